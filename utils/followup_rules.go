package utils

import (
	"strconv"
	"strings"
	"time"

	"coldreach/models"
)

// FollowUpRule maps an engagement score band to a follow-up timing. MinScore
// is inclusive, MaxScore exclusive; the first matching rule wins.
type FollowUpRule struct {
	Timing   string
	MinScore int
	MaxScore int
}

// DefaultFollowUpRules: moderately engaged leads get a faster follow-up than
// barely engaged ones. Hot leads (score >= 50) and zero-engagement leads get
// no automatic follow-up at all.
var DefaultFollowUpRules = []FollowUpRule{
	{Timing: models.TimingThreeDays, MinScore: 10, MaxScore: 50},
	{Timing: models.TimingOneWeek, MinScore: 5, MaxScore: 10},
}

// MatchFollowUpRule returns the first rule whose score band contains score,
// or nil when no rule matches.
func MatchFollowUpRule(rules []FollowUpRule, score int) *FollowUpRule {
	for i := range rules {
		if score >= rules[i].MinScore && score < rules[i].MaxScore {
			return &rules[i]
		}
	}
	return nil
}

// CalculateFollowUpDate adds the timing's day count to lastSentAt and pins
// the result to 10:00 local time. Unknown labels are parsed as "<n>_days";
// anything else falls back to three days.
func CalculateFollowUpDate(lastSentAt time.Time, timing string) time.Time {
	days := 3
	switch timing {
	case models.TimingThreeDays:
		days = 3
	case models.TimingOneWeek:
		days = 7
	case models.TimingTwoWeeks:
		days = 14
	default:
		if n := parseCustomDays(timing); n > 0 {
			days = n
		}
	}

	d := lastSentAt.AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), 10, 0, 0, 0, lastSentAt.Location())
}

func parseCustomDays(timing string) int {
	s, ok := strings.CutSuffix(timing, "_days")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// AssignABVariant deterministically splits campaign leads into two variants:
// the character-code sum of the decimal id, modulo 2. The same lead always
// lands in the same variant, so A/B reporting needs no persisted random state.
func AssignABVariant(campaignLeadID uint) models.ABVariant {
	sum := 0
	for _, c := range strconv.FormatUint(uint64(campaignLeadID), 10) {
		sum += int(c)
	}
	if sum%2 == 0 {
		return models.VariantA
	}
	return models.VariantB
}
