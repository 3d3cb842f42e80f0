package client

import (
	"fmt"
	"time"
)

// timeLayout is the START_TIME/STOP_TIME format Horizons accepts.
const timeLayout = "2006-Jan-02 15:04:05"

// Window selects the time span and step of an ephemeris query.
type Window struct {
	Start time.Time
	Stop  time.Time
	Step  string // Horizons STEP_SIZE, e.g. "1 h" or "10 m"; empty uses the service default
}

// Validate reports whether the window can be sent to Horizons.
func (w Window) Validate() error {
	if w.Start.IsZero() || w.Stop.IsZero() {
		return fmt.Errorf("start and stop times are required")
	}
	if !w.Stop.After(w.Start) {
		return fmt.Errorf("stop time %s is not after start time %s",
			w.Stop.Format(time.RFC3339), w.Start.Format(time.RFC3339))
	}
	return nil
}

// StepSize renders d as a Horizons STEP_SIZE in the largest whole unit of
// days, hours or minutes. Horizons has no finer calendar step than a minute.
func StepSize(d time.Duration) (string, error) {
	if d < time.Minute || d%time.Minute != 0 {
		return "", fmt.Errorf("step %s is not a positive whole number of minutes", d)
	}
	switch {
	case d%(24*time.Hour) == 0:
		return fmt.Sprintf("%d d", d/(24*time.Hour)), nil
	case d%time.Hour == 0:
		return fmt.Sprintf("%d h", d/time.Hour), nil
	default:
		return fmt.Sprintf("%d m", d/time.Minute), nil
	}
}

var inputLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	timeLayout,
}

// ParseTime accepts RFC 3339 and the shorter date forms people type on a
// command line. Times without a zone are UTC.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q, want RFC 3339 or YYYY-MM-DD[ HH:MM[:SS]]", s)
}
