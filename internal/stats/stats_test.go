package stats

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railwatch/trainview/internal/testutil"
)

func at(day, hour int) time.Time {
	return time.Date(2023, 6, day, hour, 0, 0, 0, time.UTC)
}

func TestAverages(t *testing.T) {
	h := testutil.Snapshot{Trains: []testutil.Train{
		{LengthPx: 200, PxPerM: 2, SpeedPxS: 10},
		{LengthPx: -100, PxPerM: 2, SpeedPxS: -30},
	}}.Open(t)
	q := New(zerolog.Nop())

	avgLen, err := q.AvgLengthM(context.Background(), h)
	require.NoError(t, err)
	assert.InDelta(t, 75.0, avgLen, 1e-9)

	avgSpeed, err := q.AvgSpeedKPH(context.Background(), h)
	require.NoError(t, err)
	assert.InDelta(t, 36.0, avgSpeed, 1e-9)
}

func TestAverages_EmptySnapshot(t *testing.T) {
	h := testutil.Snapshot{}.Open(t)
	q := New(zerolog.Nop())

	avgLen, err := q.AvgLengthM(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, 0.0, avgLen)

	avgSpeed, err := q.AvgSpeedKPH(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, 0.0, avgSpeed)
}

func TestCountByDayOfWeek_StartsOnMonday(t *testing.T) {
	// 2023-06-04 is a Sunday, 2023-06-05 a Monday
	h := testutil.Snapshot{Trains: []testutil.Train{
		{Start: at(4, 10)},
		{Start: at(5, 10)},
		{Start: at(5, 11)},
		{Start: at(7, 10)},
	}}.Open(t)
	q := New(zerolog.Nop())

	got, err := q.CountByDayOfWeek(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, []Bucket{
		{Key: 0, Value: 2},
		{Key: 2, Value: 1},
		{Key: 6, Value: 1},
	}, got)
	assert.Equal(t, "Mon", DayOfWeekLabels[got[0].Key])
	assert.Equal(t, "Sun", DayOfWeekLabels[got[2].Key])
}

func TestCountByHourOfDay(t *testing.T) {
	h := testutil.Snapshot{Trains: []testutil.Train{
		{Start: at(5, 23)},
		{Start: at(5, 0)},
		{Start: at(6, 0)},
	}}.Open(t)
	q := New(zerolog.Nop())

	got, err := q.CountByHourOfDay(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, []Bucket{{Key: 0, Value: 2}, {Key: 23, Value: 1}}, got)
}

func TestSpeedHistogram_Boundaries(t *testing.T) {
	// px_per_m of 1 makes speed_px_s a speed in m/s
	speeds := []float64{2.5, 5, 5.5, 24.9, 25, -25}
	trains := make([]testutil.Train, len(speeds))
	for i, s := range speeds {
		trains[i] = testutil.Train{SpeedPxS: s, PxPerM: 1}
	}
	h := testutil.Snapshot{Trains: trains}.Open(t)
	q := New(zerolog.Nop())

	// 9 km/h, 18, 19.8, 89.64, 90, 90
	got, err := q.SpeedHistogram(context.Background(), h, 10)
	require.NoError(t, err)
	assert.Equal(t, []Bucket{
		{Key: 0, Value: 1},
		{Key: 10, Value: 2},
		{Key: 80, Value: 1},
		{Key: 90, Value: 2},
	}, got)

	// non-positive widths use the default
	def, err := q.SpeedHistogram(context.Background(), h, 0)
	require.NoError(t, err)
	assert.Equal(t, got, def)
}

func TestSpeedHistogram_CustomWidth(t *testing.T) {
	h := testutil.Snapshot{Trains: []testutil.Train{
		{SpeedPxS: 5, PxPerM: 1},    // 18 km/h, on the edge
		{SpeedPxS: 4.99, PxPerM: 1}, // just below
		{SpeedPxS: 10, PxPerM: 1},   // 36 km/h
	}}.Open(t)
	q := New(zerolog.Nop())

	got, err := q.SpeedHistogram(context.Background(), h, 9)
	require.NoError(t, err)
	assert.Equal(t, []Bucket{
		{Key: 9, Value: 1},
		{Key: 18, Value: 1},
		{Key: 36, Value: 1},
	}, got)
}

func TestTempPast24hAvg(t *testing.T) {
	now := time.Date(2023, 6, 5, 12, 30, 0, 0, time.UTC)
	h := testutil.Snapshot{Temperatures: []testutil.Temperature{
		{At: now.Add(-48 * time.Hour), DegC: 40},
		{At: time.Date(2023, 6, 4, 14, 10, 0, 0, time.UTC), DegC: 20},
		{At: time.Date(2023, 6, 4, 14, 50, 0, 0, time.UTC), DegC: 23},
		{At: time.Date(2023, 6, 5, 9, 0, 0, 0, time.UTC), DegC: 15.4},
	}}.Open(t)
	q := New(zerolog.Nop(), WithClock(func() time.Time { return now }))

	got, err := q.TempPast24hAvg(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, []Bucket{
		{Key: 9, Value: 15},
		{Key: 14, Value: 22},
	}, got)
}

func TestTempPast24hAvg_Empty(t *testing.T) {
	now := time.Date(2023, 6, 5, 12, 0, 0, 0, time.UTC)
	q := New(zerolog.Nop(), WithClock(func() time.Time { return now }))

	stale := testutil.Snapshot{Temperatures: []testutil.Temperature{
		{At: now.Add(-25 * time.Hour), DegC: 10},
	}}.Open(t)
	got, err := q.TempPast24hAvg(context.Background(), stale)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	missing := testutil.Snapshot{NoTemperatures: true}.Open(t)
	got, err = q.TempPast24hAvg(context.Background(), missing)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
