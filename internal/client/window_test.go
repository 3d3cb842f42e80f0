package client

import (
	"testing"
	"time"
)

func TestStepSize(t *testing.T) {
	tests := []struct {
		in      time.Duration
		want    string
		wantErr bool
	}{
		{time.Minute, "1 m", false},
		{90 * time.Minute, "90 m", false},
		{time.Hour, "1 h", false},
		{6 * time.Hour, "6 h", false},
		{48 * time.Hour, "2 d", false},
		{30 * time.Second, "", true},
		{90 * time.Second, "", true},
		{0, "", true},
		{-time.Hour, "", true},
	}
	for _, tt := range tests {
		got, err := StepSize(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("StepSize(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("StepSize(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseTime(t *testing.T) {
	want := time.Date(2022, 8, 13, 19, 55, 0, 0, time.UTC)
	for _, in := range []string{
		"2022-08-13T19:55:00Z",
		"2022-08-13T21:55:00+02:00",
		"2022-08-13T19:55:00",
		"2022-08-13 19:55:00",
		"2022-08-13 19:55",
		"2022-08-13T19:55",
		"2022-Aug-13 19:55:00",
	} {
		got, err := ParseTime(in)
		if err != nil {
			t.Errorf("ParseTime(%q) unexpected error: %v", in, err)
			continue
		}
		if !got.Equal(want) || got.Location() != time.UTC {
			t.Errorf("ParseTime(%q) = %v, want %v", in, got, want)
		}
	}

	if got, err := ParseTime("2022-08-13"); err != nil || !got.Equal(time.Date(2022, 8, 13, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ParseTime(date) = %v, %v", got, err)
	}
	for _, bad := range []string{"", "yesterday", "13/08/2022"} {
		if _, err := ParseTime(bad); err == nil {
			t.Errorf("ParseTime(%q) expected error", bad)
		}
	}
}
