package services

import (
	"fmt"
	"time"

	"healthwatch-server/models"
)

// TimeKeys are the values a tick matches reminders against, all computed in one
// pinned location.
type TimeKeys struct {
	Weekday int    // 2 (Mon) .. 7 (Sat), 8 (Sun)
	Date    string // YYYY-MM-DD
	Time    string // HH:MM, seconds dropped
}

func (k TimeKeys) String() string {
	return fmt.Sprintf("%s %s (day %d)", k.Date, k.Time, k.Weekday)
}

// WeekdayKey maps a Go weekday to the stored weekday code.
func WeekdayKey(d time.Weekday) int {
	if d == time.Sunday {
		return models.WeekdaySunday
	}
	return int(d) + 1
}

// ComputeTimeKeys converts an instant into match keys for loc. The host's
// local zone is never consulted.
func ComputeTimeKeys(now time.Time, loc *time.Location) TimeKeys {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return TimeKeys{
		Weekday: WeekdayKey(local.Weekday()),
		Date:    local.Format(models.DateLayout),
		Time:    local.Format("15:04"),
	}
}

// LoadLocation resolves a zone name, failing loudly rather than falling back to
// the host zone.
func LoadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: load timezone %q: %v", ErrConfiguration, name, err)
	}
	return loc, nil
}
