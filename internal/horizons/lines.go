package horizons

import (
	"iter"
	"strings"
)

// SplitLines yields the lines of text without their terminators. A final
// newline does not start an extra empty line, and a trailing carriage return
// is dropped so CRLF responses decode the same as LF ones.
func SplitLines(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for rest := text; rest != ""; {
			var line string
			line, rest, _ = strings.Cut(rest, "\n")
			if !yield(strings.TrimSuffix(line, "\r")) {
				return
			}
		}
	}
}
