package horizons

import (
	"strconv"
	"strings"
)

// fieldWidth is the width of every numeric value that follows a label in
// the ephemeris tables, e.g. " X =" + "-5.861602653492581E+03".
const fieldWidth = 22

// TakeOrEmpty splits line after n bytes. When line is shorter than n the
// whole line is returned with an empty remainder, so it never panics on
// truncated input. Horizons output is ASCII, so bytes are columns.
func TakeOrEmpty(line string, n int) (prefix, rest string) {
	if n < 0 {
		n = 0
	}
	if len(line) > n {
		return line[:n], line[n:]
	}
	return line, ""
}

// TakeExpecting strips label from the front of line. A mismatch, including
// a line shorter than label, yields an *UnexpectedPrefixError carrying line.
func TakeExpecting(line, label string) (string, error) {
	if !strings.HasPrefix(line, label) {
		return "", &UnexpectedPrefixError{Label: label, Text: line}
	}
	return line[len(label):], nil
}

// takeLabeledFloat reads label followed by one fixed-width float field.
func takeLabeledFloat(line, label string) (float64, string, error) {
	rest, err := TakeExpecting(line, label)
	if err != nil {
		return 0, "", err
	}
	field, rest := TakeOrEmpty(rest, fieldWidth)
	v, err := parseFloatField(strings.Trim(label, " ="), field)
	if err != nil {
		return 0, "", err
	}
	return v, rest, nil
}

// takeRow reads three labeled fields laid out back to back on one line.
func takeRow(line string, labels [3]string) ([3]float64, error) {
	var row [3]float64
	rest := line
	for i, label := range labels {
		v, r, err := takeLabeledFloat(rest, label)
		if err != nil {
			return row, err
		}
		row[i] = v
		rest = r
	}
	return row, nil
}

func parseFloatField(field, text string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, &NumericParseError{Field: field, Text: text, Err: err}
	}
	return v, nil
}
