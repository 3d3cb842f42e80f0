package horizons

import (
	"iter"
	"strconv"
	"strings"
)

// Catalog column widths. Horizons does not document them; they are what the
// "MB" listing uses, and longer names are truncated to fit.
const (
	bodyIDWidth   = 9
	bodyNameWidth = 35
)

// ParseBody decodes one line of the major body catalog. Header and footer
// decoration lines fail with a *NumericParseError on the id column.
func ParseBody(line string) (Body, error) {
	idField, rest := TakeOrEmpty(line, bodyIDWidth)
	nameField, _ := TakeOrEmpty(rest, bodyNameWidth)

	id, err := strconv.Atoi(strings.TrimSpace(idField))
	if err != nil {
		return Body{}, &NumericParseError{Field: "id", Text: idField, Err: err}
	}

	return Body{
		ID:   id,
		Name: strings.TrimSpace(nameField),
	}, nil
}

// Bodies yields every line of the catalog listing that decodes as a Body.
// Lines that do not are not data rows and are skipped.
func Bodies(lines iter.Seq[string]) iter.Seq[Body] {
	return func(yield func(Body) bool) {
		for line := range lines {
			body, err := ParseBody(line)
			if err != nil {
				continue
			}
			if !yield(body) {
				return
			}
		}
	}
}
