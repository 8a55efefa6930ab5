package mode

import (
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// Source names for the mode flag.
const (
	SourceToggle = "toggle"
	SourceSun    = "sun"
)

// SunMode derives night from sunrise and sunset at a location instead of
// toggling the store.
type SunMode struct {
	Latitude  float64
	Longitude float64
}

// IsNight reports whether t is before sunrise or after sunset on t's
// UTC day. On days without a sunrise or sunset (polar day or night) it
// reports false.
func (s SunMode) IsNight(t time.Time) bool {
	rise, set := s.times(t)
	if rise.IsZero() || set.IsZero() {
		return false
	}
	return !(t.After(rise) && t.Before(set))
}

// NextChange returns the next sunrise or sunset after t.
func (s SunMode) NextChange(t time.Time) time.Time {
	rise, set := s.times(t)
	switch {
	case t.Before(rise):
		return rise
	case t.Before(set):
		return set
	}
	rise, _ = s.times(t.Add(24 * time.Hour))
	return rise
}

// times returns sunrise and sunset, in UTC, for the UTC date of t.
func (s SunMode) times(t time.Time) (rise, set time.Time) {
	u := t.UTC()
	return sunrise.SunriseSunset(s.Latitude, s.Longitude, u.Year(), u.Month(), u.Day())
}
