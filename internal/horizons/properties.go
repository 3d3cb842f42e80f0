package horizons

import (
	"iter"
	"strconv"
	"strings"
)

const (
	// propertiesMargin is the left column of the physical data block. It
	// holds the radius/volume entries, the mass sits to its right:
	//
	//	 Vol. Mean Radius (km)    = 6371.01+-0.02    Mass x10^24 (kg)= 5.97219+-0.0006
	propertiesMargin = 45
	massLabel        = "Mass x10^"
	massUnitLabel    = " (kg)= "
	exponentWidth    = 2
	mantissaWidth    = 7
)

// ParseProperties scans an object data block for the mass line. The first
// match wins. ErrPropertyNotFound is returned when no line carries a mass.
func ParseProperties(lines iter.Seq[string]) (Properties, error) {
	for line := range lines {
		_, rest := TakeOrEmpty(line, propertiesMargin)
		rest, err := TakeExpecting(rest, massLabel)
		if err != nil {
			continue
		}
		exponent, rest := TakeOrEmpty(rest, exponentWidth)
		rest, err = TakeExpecting(rest, massUnitLabel)
		if err != nil {
			continue
		}
		mantissa, _ := TakeOrEmpty(rest, mantissaWidth)

		mass, err := parseMass(mantissa, exponent)
		if err != nil {
			return Properties{}, err
		}
		return Properties{Mass: mass}, nil
	}
	return Properties{}, ErrPropertyNotFound
}

// parseMass evaluates mantissa x 10^exponent. The product is formed as a
// decimal literal so "5.97219" and "24" give exactly 5.97219e24.
func parseMass(mantissa, exponent string) (float64, error) {
	exp, err := strconv.Atoi(strings.TrimSpace(exponent))
	if err != nil {
		return 0, &NumericParseError{Field: "mass exponent", Text: exponent, Err: err}
	}

	// Short masses run into their uncertainty, e.g. "1.30+-0".
	digits, _, _ := strings.Cut(mantissa, "+-")
	digits = strings.TrimSpace(digits)

	mass, err := strconv.ParseFloat(digits+"e"+strconv.Itoa(exp), 64)
	if err != nil {
		return 0, &NumericParseError{Field: "mass", Text: mantissa, Err: err}
	}
	return mass, nil
}
