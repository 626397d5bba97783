package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreEngagement(t *testing.T) {
	tests := []struct {
		name    string
		opens   int
		clicks  int
		replies int
		score   int
		isHot   bool
	}{
		{"no engagement", 0, 0, 0, 0, false},
		{"single open", 1, 0, 0, 5, false},
		{"four opens stay below cap boundary", 4, 0, 0, 20, false},
		{"opens cap at 30", 10, 0, 0, 30, false},
		{"clicks cap at 45", 0, 5, 0, 45, false},
		{"two clicks", 0, 2, 0, 30, false},
		{"opens plus clicks cross threshold", 2, 3, 0, 55, true},
		{"one reply alone is hot despite low score", 1, 0, 1, 30, true},
		{"replies uncapped then clamped to 100", 0, 0, 5, 100, true},
		{"everything maxed clamps to 100", 20, 20, 3, 100, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ScoreEngagement(tt.opens, tt.clicks, tt.replies)
			assert.Equal(t, tt.score, e.Score)
			assert.Equal(t, tt.isHot, e.IsHot)
		})
	}
}

func TestScoreEngagementMonotonic(t *testing.T) {
	prev := ScoreEngagement(0, 0, 0).Score
	for opens := 1; opens <= 12; opens++ {
		cur := ScoreEngagement(opens, 0, 0).Score
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestEngagementReasonPriority(t *testing.T) {
	// A reply outranks everything else in the explanation.
	e := ScoreEngagement(5, 2, 1)
	assert.Contains(t, e.Reasoning, "replied")

	e = ScoreEngagement(5, 2, 0)
	assert.Contains(t, e.Reasoning, "clicked")

	e = ScoreEngagement(3, 0, 0)
	assert.Contains(t, e.Reasoning, "3 times")

	e = ScoreEngagement(1, 0, 0)
	assert.Equal(t, "Lead opened the email.", e.Reasoning)

	e = ScoreEngagement(0, 0, 0)
	assert.Equal(t, "No engagement recorded yet.", e.Reasoning)
}
