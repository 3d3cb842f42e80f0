package horizons

import (
	"errors"
	"fmt"
)

// ErrPropertyNotFound is returned when a properties block has no matching
// labeled line. Barycenters and other massless entries report this.
var ErrPropertyNotFound = errors.New("property not found")

// UnexpectedPrefixError reports a column label that did not match.
type UnexpectedPrefixError struct {
	Label string
	Text  string // the inspected text, unmodified
}

func (e *UnexpectedPrefixError) Error() string {
	return fmt.Sprintf("%q does not start with expected prefix %q", e.Text, e.Label)
}

// NumericParseError reports a sliced field that is not a valid number.
type NumericParseError struct {
	Field string
	Text  string
	Err   error
}

func (e *NumericParseError) Error() string {
	return fmt.Sprintf("parsing %s field %q: %v", e.Field, e.Text, e.Err)
}

func (e *NumericParseError) Unwrap() error {
	return e.Err
}

// MalformedRecordError is the cycle-level failure of a record machine. It
// wraps the field-level error that aborted the cycle.
type MalformedRecordError struct {
	Product string // "vectors" or "elements"
	Line    int    // 1-based input line number
	Err     error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record at line %d: %v", e.Product, e.Line, e.Err)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}
