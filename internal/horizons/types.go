// Package horizons decodes the fixed-column text tables produced by the JPL
// Horizons ephemeris service into typed records.
//
// Every decoder consumes a sequence of already split lines and yields its
// records lazily. Decoders own their progress state and hold no external
// resources; a single decoder must not be advanced from more than one
// goroutine.
package horizons

import "time"

// Body is one entry of the major body catalog.
type Body struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"` // may be truncated by the column width
}

// VectorItem is the state of a body at one instant, in kilometers and
// kilometers per second relative to the query center.
//
// Time is the calendar rendering reported by Horizons. It is TDB read as UTC
// without correction, so it can be off from true UTC by about a minute.
// It is the zero time when the date line could not be decoded.
type VectorItem struct {
	Time     time.Time  `json:"time,omitzero" yaml:"time,omitempty"`
	Position [3]float64 `json:"position" yaml:"position"` // X, Y, Z
	Velocity [3]float64 `json:"velocity" yaml:"velocity"` // VX, VY, VZ
}

// OrbitalElementsItem holds the osculating Keplerian elements at one instant.
// Distances are in km, angles in degrees, times in seconds except
// TimeOfPeriapsis which is a Julian day number. Time follows the same TDB
// caveat as VectorItem.Time.
type OrbitalElementsItem struct {
	Time time.Time `json:"time,omitzero" yaml:"time,omitempty"`

	Eccentricity      float64 `json:"eccentricity" yaml:"eccentricity"`             // EC
	PeriapsisDistance float64 `json:"periapsis_distance" yaml:"periapsis_distance"` // QR
	Inclination       float64 `json:"inclination" yaml:"inclination"`               // IN

	LongitudeOfAscendingNode float64 `json:"longitude_of_ascending_node" yaml:"longitude_of_ascending_node"` // OM
	ArgumentOfPerifocus      float64 `json:"argument_of_perifocus" yaml:"argument_of_perifocus"`             // W
	TimeOfPeriapsis          float64 `json:"time_of_periapsis" yaml:"time_of_periapsis"`                     // Tp

	MeanMotion  float64 `json:"mean_motion" yaml:"mean_motion"`   // N, degrees/s
	MeanAnomaly float64 `json:"mean_anomaly" yaml:"mean_anomaly"` // MA
	TrueAnomaly float64 `json:"true_anomaly" yaml:"true_anomaly"` // TA

	SemiMajorAxis    float64 `json:"semi_major_axis" yaml:"semi_major_axis"`     // A
	ApoapsisDistance float64 `json:"apoapsis_distance" yaml:"apoapsis_distance"` // AD
	SiderealPeriod   float64 `json:"sidereal_period" yaml:"sidereal_period"`     // PR, seconds
}

// Properties holds the geophysical properties decoded from an object data
// block.
type Properties struct {
	Mass float64 `json:"mass" yaml:"mass"` // kg
}
