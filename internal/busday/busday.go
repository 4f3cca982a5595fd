// Package busday maps absolute instants to business dates. A business day
// starts at a configurable local hour (default 05:00), not at midnight, so
// a note written at 01:30 still belongs to the previous day's timeline.
package busday

import (
	"errors"
	"fmt"
	"time"
)

const DefaultDayStartHour = 5

var ErrInvalidTimezone = errors.New("invalid timezone")

// Info describes which business date an instant falls on. It is a pure
// function of its inputs and carries no stored identity.
type Info struct {
	BusinessDate string
	Timezone     string
	Reference    time.Time
}

// Location resolves an IANA timezone name. Empty string and "Local" map to
// the system timezone.
func Location(tz string) (*time.Location, error) {
	if tz == "" || tz == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	return loc, nil
}

// DateOf returns the business date (YYYY-MM-DD) of t in the given timezone.
// Local times before dayStartHour belong to the previous calendar day.
func DateOf(t time.Time, tz string, dayStartHour int) (string, error) {
	loc, err := Location(tz)
	if err != nil {
		return "", err
	}
	local := t.In(loc)
	if local.Hour() < dayStartHour {
		local = local.AddDate(0, 0, -1)
	}
	return local.Format("2006-01-02"), nil
}

// InfoFor bundles DateOf with its inputs for callers that need the full tuple.
func InfoFor(t time.Time, tz string, dayStartHour int) (Info, error) {
	date, err := DateOf(t, tz, dayStartHour)
	if err != nil {
		return Info{}, err
	}
	return Info{BusinessDate: date, Timezone: tz, Reference: t}, nil
}

// DayStart returns the instant at which the given business date begins.
func DayStart(businessDate string, loc *time.Location, dayStartHour int) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", businessDate, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing business date: %w", err)
	}
	return day.Add(time.Duration(dayStartHour) * time.Hour), nil
}
