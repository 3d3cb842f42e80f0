// Package units converts decoded Horizons records from the service's native
// units (km, km/s, degrees, Julian days) to SI.
package units

import (
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/unit"

	"github.com/star/horizons/internal/horizons"
)

const metersPerKm = 1000

// Vector is a state vector in meters and meters per second.
type Vector struct {
	Time     time.Time  `json:"time,omitzero" yaml:"time,omitempty"`
	Position [3]float64 `json:"position_m" yaml:"position_m"`
	Velocity [3]float64 `json:"velocity_m_s" yaml:"velocity_m_s"`
}

// Elements is an osculating element set with distances in meters, angles in
// radians and periods in seconds. The time of periapsis keeps its Julian day
// and is also given as an instant when that falls in years 0 through 9999.
type Elements struct {
	Time time.Time `json:"time,omitzero" yaml:"time,omitempty"`

	Eccentricity             float64 `json:"eccentricity" yaml:"eccentricity"`
	PeriapsisDistance        float64 `json:"periapsis_distance_m" yaml:"periapsis_distance_m"`
	Inclination              float64 `json:"inclination_rad" yaml:"inclination_rad"`
	LongitudeOfAscendingNode float64 `json:"longitude_of_ascending_node_rad" yaml:"longitude_of_ascending_node_rad"`
	ArgumentOfPerifocus      float64 `json:"argument_of_perifocus_rad" yaml:"argument_of_perifocus_rad"`

	TimeOfPeriapsisJD float64   `json:"time_of_periapsis_jd" yaml:"time_of_periapsis_jd"`
	TimeOfPeriapsis   time.Time `json:"time_of_periapsis,omitzero" yaml:"time_of_periapsis,omitempty"`

	MeanMotion  float64 `json:"mean_motion_rad_s" yaml:"mean_motion_rad_s"`
	MeanAnomaly float64 `json:"mean_anomaly_rad" yaml:"mean_anomaly_rad"`
	TrueAnomaly float64 `json:"true_anomaly_rad" yaml:"true_anomaly_rad"`

	SemiMajorAxis    float64 `json:"semi_major_axis_m" yaml:"semi_major_axis_m"`
	ApoapsisDistance float64 `json:"apoapsis_distance_m" yaml:"apoapsis_distance_m"`

	// Horizons prints 9.999999999999998E+99 for open orbits.
	SiderealPeriod float64 `json:"sidereal_period_s" yaml:"sidereal_period_s"`
}

// jdTime returns the instant of jd, or the zero time when jd falls outside
// the years 0 through 9999 that time.Time can marshal.
func jdTime(jd float64) time.Time {
	// Coarse bounds keep JDToTime clear of duration overflow.
	if !(jd > 1.7e6 && jd < 5.4e6) {
		return time.Time{}
	}
	t := julian.JDToTime(jd).UTC()
	if y := t.Year(); y < 0 || y > 9999 {
		return time.Time{}
	}
	return t
}

// VectorToSI converts km and km/s to m and m/s.
func VectorToSI(v horizons.VectorItem) Vector {
	out := Vector{Time: v.Time}
	for i := range 3 {
		out.Position[i] = v.Position[i] * metersPerKm
		out.Velocity[i] = v.Velocity[i] * metersPerKm
	}
	return out
}

// ElementsToSI converts an element set. Tp is a TDB Julian day and is put on
// the UTC time line without a TDB-UTC correction, like record times. The
// sidereal period is already in seconds.
func ElementsToSI(e horizons.OrbitalElementsItem) Elements {
	return Elements{
		Time: e.Time,

		Eccentricity:             e.Eccentricity,
		PeriapsisDistance:        e.PeriapsisDistance * metersPerKm,
		Inclination:              rad(e.Inclination),
		LongitudeOfAscendingNode: rad(e.LongitudeOfAscendingNode),
		ArgumentOfPerifocus:      rad(e.ArgumentOfPerifocus),

		TimeOfPeriapsisJD: e.TimeOfPeriapsis,
		TimeOfPeriapsis:   jdTime(e.TimeOfPeriapsis),

		// deg/s to rad/s is the same scale as deg to rad.
		MeanMotion:  rad(e.MeanMotion),
		MeanAnomaly: rad(e.MeanAnomaly),
		TrueAnomaly: rad(e.TrueAnomaly),

		SemiMajorAxis:    e.SemiMajorAxis * metersPerKm,
		ApoapsisDistance: e.ApoapsisDistance * metersPerKm,
		SiderealPeriod:   e.SiderealPeriod,
	}
}

// Vectors converts a slice of vectors.
func Vectors(items []horizons.VectorItem) []Vector {
	out := make([]Vector, len(items))
	for i, v := range items {
		out[i] = VectorToSI(v)
	}
	return out
}

// ElementSets converts a slice of element sets.
func ElementSets(items []horizons.OrbitalElementsItem) []Elements {
	out := make([]Elements, len(items))
	for i, e := range items {
		out[i] = ElementsToSI(e)
	}
	return out
}
