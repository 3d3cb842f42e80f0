package horizons

import (
	"iter"
	"time"
)

// Data region sentinels.
const (
	startOfEphemeris = "$$SOE"
	endOfEphemeris   = "$$EOE"
)

var (
	positionLabels = [3]string{" X =", " Y =", " Z ="}
	velocityLabels = [3]string{" VX=", " VY=", " VZ="}
)

// vectorState is the progress of a VectorDecoder. Each state carries only
// what the current cycle has accumulated so far.
type vectorState interface {
	isVectorState()
}

type (
	vecAwaitingStart    struct{}
	vecAwaitingDate     struct{}
	vecAwaitingPosition struct {
		time time.Time
	}
	vecAwaitingVelocity struct {
		time     time.Time
		position [3]float64
	}
	vecReady struct {
		time     time.Time
		position [3]float64
		velocity [3]float64
	}
	vecDone struct{}
)

func (vecAwaitingStart) isVectorState()    {}
func (vecAwaitingDate) isVectorState()     {}
func (vecAwaitingPosition) isVectorState() {}
func (vecAwaitingVelocity) isVectorState() {}
func (vecReady) isVectorState()            {}
func (vecDone) isVectorState()             {}

// VectorDecoder decodes a VECTORS table. Each record is a date line followed
// by three data lines:
//
//	2459805.330509259 = A.D. 2022-Aug-13 19:55:56.0000 TDB
//	 X = 1.870010427985840E+02 Y = 2.484687803242536E+03 Z =-5.861602653492581E+03
//	 VX=-3.362664133558439E-01 VY= 1.344100266143978E-02 VZ=-5.030275220358716E-03
//	 LT= 2.130444410468893E-02 RG= 6.386867254461445E+03 RR=-1.735564437088629E-02
//
// The LT/RG/RR line is consumed and deliberately ignored.
type VectorDecoder struct {
	state vectorState
	line  int
}

// NewVectorDecoder returns a decoder waiting for the $$SOE sentinel.
func NewVectorDecoder() *VectorDecoder {
	return &VectorDecoder{state: vecAwaitingStart{}}
}

// Done reports whether the decoder has seen $$EOE. A done decoder ignores
// any further input.
func (d *VectorDecoder) Done() bool {
	_, ok := d.state.(vecDone)
	return ok
}

// Step feeds one line to the decoder. It returns the completed item and true
// when the line closes a record. A field failure returns a
// *MalformedRecordError; the partial record is dropped and the decoder waits
// for the next $$SOE.
func (d *VectorDecoder) Step(line string) (VectorItem, bool, error) {
	d.line++

	switch d.state.(type) {
	case vecDone:
		return VectorItem{}, false, nil

	case vecAwaitingStart:
		if line == startOfEphemeris {
			d.state = vecAwaitingDate{}
		}
		return VectorItem{}, false, nil
	}

	if line == endOfEphemeris {
		// Also ends a cycle cut short; its partial data is dropped.
		d.state = vecDone{}
		return VectorItem{}, false, nil
	}

	switch s := d.state.(type) {
	case vecAwaitingDate:
		// An undecodable date leaves the record without a time.
		t, _ := ParseTimestamp(line)
		d.state = vecAwaitingPosition{time: t}

	case vecAwaitingPosition:
		position, err := takeRow(line, positionLabels)
		if err != nil {
			return VectorItem{}, false, d.fail(err)
		}
		d.state = vecAwaitingVelocity{time: s.time, position: position}

	case vecAwaitingVelocity:
		velocity, err := takeRow(line, velocityLabels)
		if err != nil {
			return VectorItem{}, false, d.fail(err)
		}
		d.state = vecReady{time: s.time, position: s.position, velocity: velocity}

	case vecReady:
		// Third line of the cycle (LT, RG, RR). Not surfaced.
		d.state = vecAwaitingDate{}
		return VectorItem{Time: s.time, Position: s.position, Velocity: s.velocity}, true, nil
	}

	return VectorItem{}, false, nil
}

func (d *VectorDecoder) fail(err error) error {
	d.state = vecAwaitingStart{}
	return &MalformedRecordError{Product: "vectors", Line: d.line, Err: err}
}

// Vectors lazily decodes a VECTORS table. The sequence ends at $$EOE, at the
// end of input, or after yielding the first decode error. An incomplete
// trailing record yields nothing.
func Vectors(lines iter.Seq[string]) iter.Seq2[VectorItem, error] {
	return func(yield func(VectorItem, error) bool) {
		d := NewVectorDecoder()
		for line := range lines {
			item, ok, err := d.Step(line)
			if err != nil {
				yield(VectorItem{}, err)
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
