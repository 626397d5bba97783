package utils

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// Business hours window for outbound sends, local time. The scheduler never
// emits a timestamp outside [BusinessHourStart, BusinessHourEnd).
const (
	BusinessHourStart = 9
	BusinessHourEnd   = 18
)

// ParseFrequencyRange parses a delay-range label like "2-5" into minute
// bounds. The third return reports whether the label parsed; malformed labels
// fall back to 2-5 minutes so the scheduler always has usable bounds.
func ParseFrequencyRange(label string) (minMinutes, maxMinutes int, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(label), "-", 2)
	if len(parts) != 2 {
		return 2, 5, false
	}
	lo, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	hi, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || lo <= 0 || hi < lo {
		return 2, 5, false
	}
	return lo, hi, true
}

// SnapToBusinessHours moves t forward into the business-hours window: at or
// after closing snaps to opening the next calendar day, before opening snaps
// to opening the same day.
func SnapToBusinessHours(t time.Time) time.Time {
	if t.Hour() >= BusinessHourEnd {
		next := t.AddDate(0, 0, 1)
		return time.Date(next.Year(), next.Month(), next.Day(), BusinessHourStart, 0, 0, 0, t.Location())
	}
	if t.Hour() < BusinessHourStart {
		return time.Date(t.Year(), t.Month(), t.Day(), BusinessHourStart, 0, 0, 0, t.Location())
	}
	return t
}

// GenerateScheduledTimes spreads count sends over irregular, human-looking
// gaps inside business hours. The gap between consecutive sends is drawn
// uniformly from the frequencyRange label ("2-5" means 2 to 5 minutes). The
// irregularity is deliberate: a fixed cadence is a spam-filter signature.
//
// start may be nil, meaning "from now". rng may be nil, in which case a
// time-seeded source is used; tests pass a seeded source for determinism.
func GenerateScheduledTimes(count int, start *time.Time, frequencyRange string, rng *rand.Rand) []time.Time {
	return generateTimes(count, start, frequencyRange, rng, true)
}

// GenerateContinuousTimes is the variant used when a user has disabled the
// business-hours restriction: same jittered gaps, no window snapping.
func GenerateContinuousTimes(count int, start *time.Time, frequencyRange string, rng *rand.Rand) []time.Time {
	return generateTimes(count, start, frequencyRange, rng, false)
}

func generateTimes(count int, start *time.Time, frequencyRange string, rng *rand.Rand, businessHours bool) []time.Time {
	if count <= 0 {
		return []time.Time{}
	}
	times := make([]time.Time, 0, count)
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	minMinutes, maxMinutes, _ := ParseFrequencyRange(frequencyRange)

	cursor := time.Now()
	if start != nil {
		cursor = *start
	}
	if businessHours {
		cursor = SnapToBusinessHours(cursor)
	}

	for i := 0; i < count; i++ {
		if i > 0 {
			delaySeconds := minMinutes*60 + rng.Intn((maxMinutes-minMinutes)*60+1)
			cursor = cursor.Add(time.Duration(delaySeconds) * time.Second)
			if businessHours {
				cursor = SnapToBusinessHours(cursor)
			}
		}
		times = append(times, cursor)
	}
	return times
}
