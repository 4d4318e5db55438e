package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{raw: "00:00", want: 0},
		{raw: "08:30", want: 510},
		{raw: "23:59", want: 1439},
		{raw: "24:00", want: 1440},
		{raw: "8:30", want: 510},
		{raw: "25:00", wantErr: true},
		{raw: "08:60", wantErr: true},
		{raw: "0830", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := parseClock(tc.raw)
		if tc.wantErr {
			assert.Error(t, err, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestIntervalOverlapsHalfOpen(t *testing.T) {
	a := Interval{Start: 540, End: 600}
	assert.False(t, a.Overlaps(Interval{Start: 600, End: 660}), "touching intervals do not overlap")
	assert.True(t, a.Overlaps(Interval{Start: 599, End: 660}))
	assert.True(t, a.Overlaps(Interval{Start: 500, End: 541}))
	assert.False(t, a.Overlaps(Interval{Start: 480, End: 540}))
}

func TestNormalizeIntervalsMergesAndSorts(t *testing.T) {
	merged := normalizeIntervals([]Interval{
		{Start: 600, End: 660},
		{Start: 540, End: 610},
		{Start: 660, End: 700},
		{Start: 900, End: 900}, // empty, dropped
		{Start: 800, End: 820},
	})
	assert.Equal(t, []Interval{{Start: 540, End: 700}, {Start: 800, End: 820}}, merged)
}

func TestSubtractIntervals(t *testing.T) {
	free := subtractIntervals(
		[]Interval{{Start: 480, End: 1320}},
		[]Interval{{Start: 540, End: 720}, {Start: 1000, End: 1400}},
	)
	assert.Equal(t, []Interval{{Start: 480, End: 540}, {Start: 720, End: 1000}}, free)
}

func TestSubtractIntervalsFullCover(t *testing.T) {
	free := subtractIntervals(
		[]Interval{{Start: 540, End: 600}},
		[]Interval{{Start: 480, End: 660}},
	)
	assert.Empty(t, free)
}

func TestIntersectIntervals(t *testing.T) {
	common := intersectIntervals(
		[]Interval{{Start: 480, End: 720}, {Start: 840, End: 1080}},
		[]Interval{{Start: 600, End: 900}},
	)
	assert.Equal(t, []Interval{{Start: 600, End: 720}, {Start: 840, End: 900}}, common)
}

func TestHoursToMinutesRoundsToUnit(t *testing.T) {
	assert.Equal(t, 90, hoursToMinutes(1.5, 30))
	assert.Equal(t, 90, hoursToMinutes(1.6, 30)) // 96 rounds down
	assert.Equal(t, 120, hoursToMinutes(1.8, 30))
	assert.Equal(t, 0, hoursToMinutes(0, 30))
	assert.Equal(t, 30, hoursToMinutes(0.4, 30)) // 24 rounds up
}

func TestParseWeekStartNormalizesToSunday(t *testing.T) {
	// 2026-08-26 is a Wednesday; its week starts Sunday 2026-08-23.
	got, err := ParseWeekStart("2026-08-26")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC), got)

	// A Sunday maps to itself.
	got, err = ParseWeekStart("2026-08-23")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseWeekStart("26-08-2026")
	assert.Error(t, err)
}

func TestParseHorizon(t *testing.T) {
	horizon, err := ParseHorizon("08:00", "22:00")
	require.NoError(t, err)
	assert.Equal(t, Interval{Start: 480, End: 1320}, horizon)

	_, err = ParseHorizon("late", "22:00")
	assert.Error(t, err)
}
