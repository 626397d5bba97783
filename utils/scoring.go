package utils

import "fmt"

// Engagement scoring weights. Opens and clicks are capped so that pixel
// refreshes and link re-clicks cannot fake a hot lead; replies are not.
const (
	openPoints   = 5
	openCap      = 30
	clickPoints  = 15
	clickCap     = 45
	replyPoints  = 25
	hotThreshold = 50
)

// Engagement is the derived interest measure for one campaign lead.
type Engagement struct {
	Score     int    `json:"score"`
	IsHot     bool   `json:"is_hot"`
	Reasoning string `json:"reasoning"`
}

// ScoreEngagement maps raw event counts to a 0-100 score, a hot flag and a
// human-readable reason. Pure function of the counts; callers must recompute
// it from the full event history rather than caching intermediate state. A
// single reply marks the lead hot regardless of the numeric score.
func ScoreEngagement(opens, clicks, replies int) Engagement {
	score := 0

	if p := opens * openPoints; p > openCap {
		score += openCap
	} else {
		score += p
	}
	if p := clicks * clickPoints; p > clickCap {
		score += clickCap
	} else {
		score += p
	}
	score += replies * replyPoints

	if score > 100 {
		score = 100
	}

	return Engagement{
		Score:     score,
		IsHot:     score >= hotThreshold || replies > 0,
		Reasoning: engagementReason(opens, clicks, replies),
	}
}

func engagementReason(opens, clicks, replies int) string {
	switch {
	case replies > 0:
		return fmt.Sprintf("Lead replied %d time(s). A reply is the strongest buying signal.", replies)
	case clicks > 0:
		return fmt.Sprintf("Lead clicked %d link(s), showing strong interest in the offer.", clicks)
	case opens >= 3:
		return fmt.Sprintf("Lead opened the email %d times, indicating repeated interest.", opens)
	case opens > 0:
		return "Lead opened the email."
	default:
		return "No engagement recorded yet."
	}
}
