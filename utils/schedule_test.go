package utils

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrequencyRange(t *testing.T) {
	tests := []struct {
		label  string
		wantLo int
		wantHi int
		wantOK bool
	}{
		{"2-5", 2, 5, true},
		{"1-3", 1, 3, true},
		{"10-20", 10, 20, true},
		{" 4 - 8 ", 4, 8, true},
		{" 2-5 ", 2, 5, true},
		{"02-5", 2, 5, true},
		{"garbage", 2, 5, false},
		{"5-2", 2, 5, false},
		{"0-5", 2, 5, false},
		{"", 2, 5, false},
		{"3", 2, 5, false},
	}
	for _, tt := range tests {
		lo, hi, ok := ParseFrequencyRange(tt.label)
		assert.Equal(t, tt.wantLo, lo, "label %q", tt.label)
		assert.Equal(t, tt.wantHi, hi, "label %q", tt.label)
		assert.Equal(t, tt.wantOK, ok, "label %q", tt.label)
	}
}

func TestSnapToBusinessHours(t *testing.T) {
	loc := time.UTC

	// After closing snaps to next-day opening.
	evening := time.Date(2024, 1, 1, 19, 30, 0, 0, loc)
	snapped := SnapToBusinessHours(evening)
	assert.Equal(t, time.Date(2024, 1, 2, 9, 0, 0, 0, loc), snapped)

	// Exactly at closing also rolls over.
	atClose := time.Date(2024, 1, 1, 18, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 1, 2, 9, 0, 0, 0, loc), SnapToBusinessHours(atClose))

	// Before opening snaps to same-day opening.
	early := time.Date(2024, 1, 1, 8, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 0, 0, 0, loc), SnapToBusinessHours(early))

	// Inside the window is untouched.
	noon := time.Date(2024, 1, 1, 12, 15, 42, 0, loc)
	assert.Equal(t, noon, SnapToBusinessHours(noon))
}

func TestGenerateScheduledTimes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	times := GenerateScheduledTimes(20, &start, "2-5", rng)
	require.Len(t, times, 20)

	// An 08:00 start snaps to opening.
	assert.Equal(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), times[0])

	for i := 1; i < len(times); i++ {
		gap := times[i].Sub(times[i-1])
		assert.True(t, times[i].After(times[i-1]), "times must be strictly increasing")
		// Gaps are either inside the configured range or a business-hours
		// rollover to the next morning.
		if gap > 5*time.Minute {
			assert.Equal(t, BusinessHourStart, times[i].Hour())
		} else {
			assert.GreaterOrEqual(t, gap, 2*time.Minute)
		}
	}

	for _, ts := range times {
		assert.GreaterOrEqual(t, ts.Hour(), BusinessHourStart)
		assert.Less(t, ts.Hour(), BusinessHourEnd)
	}
}

func TestGenerateScheduledTimesDeterministicWithSeed(t *testing.T) {
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	a := GenerateScheduledTimes(10, &start, "2-5", rand.New(rand.NewSource(42)))
	b := GenerateScheduledTimes(10, &start, "2-5", rand.New(rand.NewSource(42)))
	assert.Equal(t, a, b)
}

func TestGenerateScheduledTimesEmpty(t *testing.T) {
	assert.Empty(t, GenerateScheduledTimes(0, nil, "2-5", nil))
	assert.Empty(t, GenerateScheduledTimes(-1, nil, "2-5", nil))
}

func TestGenerateContinuousTimesIgnoresWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	start := time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)

	times := GenerateContinuousTimes(5, &start, "2-5", rng)
	require.Len(t, times, 5)

	// No snapping: the first send keeps the late-night start.
	assert.Equal(t, start, times[0])
	for i := 1; i < len(times); i++ {
		gap := times[i].Sub(times[i-1])
		assert.GreaterOrEqual(t, gap, 2*time.Minute)
		assert.LessOrEqual(t, gap, 5*time.Minute)
	}
}
