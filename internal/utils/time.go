package utils

import (
	"time"

	"github.com/pkg/errors"
)

func Now() time.Time {
	return time.Now().UTC()
}

func NowPtr() *time.Time {
	now := Now()
	return &now
}

func StartOfDayInUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// TimeOfDay is minutes since midnight, used for schedule window bounds.
type TimeOfDay int

// ParseTimeOfDay parses an "HH:MM" value.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, errors.Wrapf(err, "expected HH:MM, got %q", value)
	}
	return TimeOfDay(parsed.Hour()*60 + parsed.Minute()), nil
}

// TimeOfDayFromTime extracts the minutes-since-midnight component of t.
func TimeOfDayFromTime(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// WeekdayNames returns the weekday names accepted in schedule configuration.
func WeekdayNames() []string {
	return []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
}
