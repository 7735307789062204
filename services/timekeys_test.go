package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekdayKey(t *testing.T) {
	want := map[time.Weekday]int{
		time.Monday:    2,
		time.Tuesday:   3,
		time.Wednesday: 4,
		time.Thursday:  5,
		time.Friday:    6,
		time.Saturday:  7,
		time.Sunday:    8,
	}
	for day, key := range want {
		assert.Equal(t, key, WeekdayKey(day), day.String())
	}
}

func TestComputeTimeKeysPinsLocation(t *testing.T) {
	loc, err := LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)

	// 2026-10-14 01:00:42 UTC is Wednesday 08:00:42 in UTC+7.
	now := time.Date(2026, 10, 14, 1, 0, 42, 999, time.UTC)
	keys := ComputeTimeKeys(now, loc)

	assert.Equal(t, TimeKeys{Weekday: 4, Date: "2026-10-14", Time: "08:00"}, keys)
}

func TestComputeTimeKeysCrossesDateLine(t *testing.T) {
	loc, err := LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)

	// Saturday 20:30 UTC is already Sunday 03:30 in UTC+7.
	now := time.Date(2026, 10, 17, 20, 30, 0, 0, time.UTC)
	keys := ComputeTimeKeys(now, loc)

	assert.Equal(t, 8, keys.Weekday)
	assert.Equal(t, "2026-10-18", keys.Date)
	assert.Equal(t, "03:30", keys.Time)
}

func TestComputeTimeKeysMinuteBoundary(t *testing.T) {
	before := ComputeTimeKeys(time.Date(2026, 10, 15, 23, 59, 59, 0, time.UTC), time.UTC)
	after := ComputeTimeKeys(time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), time.UTC)

	assert.Equal(t, "23:59", before.Time)
	assert.Equal(t, "00:00", after.Time)
	assert.Equal(t, "2026-10-16", after.Date)
}

func TestLoadLocationRejectsUnknownZone(t *testing.T) {
	_, err := LoadLocation("Nowhere/Special")
	assert.ErrorIs(t, err, ErrConfiguration)
}
