package horizons

import (
	"fmt"
	"strings"
	"time"
)

const (
	// timestampWidth covers "YYYY-Mon-DD HH:MM:SS". The fractional seconds
	// and time scale that follow vary in width and are discarded.
	timestampWidth  = 20
	timestampLayout = "2006-Jan-02 15:04:05"
)

// ParseTimestamp decodes the calendar date of a record header line such as
//
//	2457677.000000000 = A.D. 2016-Oct-15 12:00:00.0000 TDB
//
// The value is reported in TDB by Horizons and returned as UTC without any
// time scale correction.
func ParseTimestamp(line string) (time.Time, error) {
	_, calendar, found := strings.Cut(line, "=")
	if !found {
		return time.Time{}, &UnexpectedPrefixError{Label: "=", Text: line}
	}

	rest, err := TakeExpecting(strings.TrimSpace(calendar), "A.D. ")
	if err != nil {
		return time.Time{}, err
	}

	stamp, _ := TakeOrEmpty(rest, timestampWidth)
	t, err := time.Parse(timestampLayout, stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", stamp, err)
	}
	return t.UTC(), nil
}
