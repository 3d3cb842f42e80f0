package horizons

import (
	"iter"
	"time"
)

var elementRowLabels = [4][3]string{
	{" EC=", " QR=", " IN="},
	{" OM=", " W =", " Tp="},
	{" N =", " MA=", " TA="},
	{" A =", " AD=", " PR="},
}

// elementsState is the progress of an ElementsDecoder. Rows decoded so far
// travel with the state; nothing is exposed until the fourth row succeeds.
type elementsState interface {
	isElementsState()
}

type (
	elAwaitingStart struct{}
	elAwaitingDate  struct{}
	elAwaitingFirst struct {
		time time.Time
	}
	elHaveFirst struct {
		time  time.Time
		first [3]float64 // EC, QR, IN
	}
	elHaveSecond struct {
		time          time.Time
		first, second [3]float64 // ..., OM, W, Tp
	}
	elHaveThird struct {
		time                 time.Time
		first, second, third [3]float64 // ..., N, MA, TA
	}
	elDone struct{}
)

func (elAwaitingStart) isElementsState() {}
func (elAwaitingDate) isElementsState()  {}
func (elAwaitingFirst) isElementsState() {}
func (elHaveFirst) isElementsState()     {}
func (elHaveSecond) isElementsState()    {}
func (elHaveThird) isElementsState()     {}
func (elDone) isElementsState()          {}

// ElementsDecoder decodes an ELEMENTS table. Each record is a date line
// followed by four rows of three labeled fields:
//
//	2459750.250000000 = A.D. 2022-Jun-19 18:00:00.0000 TDB
//	 EC= 1.711794334680415E-02 QR= 1.469885520304013E+08 IN= 3.134746902320420E-03
//	 OM= 1.633896137466430E+02 W = 3.006492364709574E+02 Tp=  2459584.392523936927
//	 N = 1.141316101270797E-05 MA= 1.635515780663357E+02 TA= 1.640958153023696E+02
//	 A = 1.495485150384278E+08 AD= 1.521084780464543E+08 PR= 3.154253230977451E+07
type ElementsDecoder struct {
	state elementsState
	line  int
}

// NewElementsDecoder returns a decoder waiting for the $$SOE sentinel.
func NewElementsDecoder() *ElementsDecoder {
	return &ElementsDecoder{state: elAwaitingStart{}}
}

// Done reports whether the decoder has seen $$EOE.
func (d *ElementsDecoder) Done() bool {
	_, ok := d.state.(elDone)
	return ok
}

// Step feeds one line to the decoder and returns the completed item and true
// when the line is the fourth row of a record. Failure semantics match
// VectorDecoder.Step.
func (d *ElementsDecoder) Step(line string) (OrbitalElementsItem, bool, error) {
	d.line++

	switch d.state.(type) {
	case elDone:
		return OrbitalElementsItem{}, false, nil

	case elAwaitingStart:
		if line == startOfEphemeris {
			d.state = elAwaitingDate{}
		}
		return OrbitalElementsItem{}, false, nil
	}

	if line == endOfEphemeris {
		d.state = elDone{}
		return OrbitalElementsItem{}, false, nil
	}

	if _, ok := d.state.(elAwaitingDate); ok {
		t, _ := ParseTimestamp(line)
		d.state = elAwaitingFirst{time: t}
		return OrbitalElementsItem{}, false, nil
	}

	switch s := d.state.(type) {
	case elAwaitingFirst:
		row, err := takeRow(line, elementRowLabels[0])
		if err != nil {
			return OrbitalElementsItem{}, false, d.fail(err)
		}
		d.state = elHaveFirst{time: s.time, first: row}

	case elHaveFirst:
		row, err := takeRow(line, elementRowLabels[1])
		if err != nil {
			return OrbitalElementsItem{}, false, d.fail(err)
		}
		d.state = elHaveSecond{time: s.time, first: s.first, second: row}

	case elHaveSecond:
		row, err := takeRow(line, elementRowLabels[2])
		if err != nil {
			return OrbitalElementsItem{}, false, d.fail(err)
		}
		d.state = elHaveThird{time: s.time, first: s.first, second: s.second, third: row}

	case elHaveThird:
		row, err := takeRow(line, elementRowLabels[3])
		if err != nil {
			return OrbitalElementsItem{}, false, d.fail(err)
		}
		d.state = elAwaitingDate{}
		return OrbitalElementsItem{
			Time: s.time,

			Eccentricity:      s.first[0],
			PeriapsisDistance: s.first[1],
			Inclination:       s.first[2],

			LongitudeOfAscendingNode: s.second[0],
			ArgumentOfPerifocus:      s.second[1],
			TimeOfPeriapsis:          s.second[2],

			MeanMotion:  s.third[0],
			MeanAnomaly: s.third[1],
			TrueAnomaly: s.third[2],

			SemiMajorAxis:    row[0],
			ApoapsisDistance: row[1],
			SiderealPeriod:   row[2],
		}, true, nil
	}

	return OrbitalElementsItem{}, false, nil
}

func (d *ElementsDecoder) fail(err error) error {
	d.state = elAwaitingStart{}
	return &MalformedRecordError{Product: "elements", Line: d.line, Err: err}
}

// Elements lazily decodes an ELEMENTS table with the same termination rules
// as Vectors.
func Elements(lines iter.Seq[string]) iter.Seq2[OrbitalElementsItem, error] {
	return func(yield func(OrbitalElementsItem, error) bool) {
		d := NewElementsDecoder()
		for line := range lines {
			item, ok, err := d.Step(line)
			if err != nil {
				yield(OrbitalElementsItem{}, err)
				return
			}
			if ok && !yield(item, nil) {
				return
			}
			if d.Done() {
				return
			}
		}
	}
}
