package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coldreach/models"
)

func TestParseFollowUpJSON(t *testing.T) {
	content, err := ParseFollowUpJSON(`{"subject": "Quick question", "body": "<p>Hi</p>"}`)
	require.NoError(t, err)
	assert.Equal(t, "Quick question", content.Subject)
	assert.Equal(t, "<p>Hi</p>", content.Body)
}

func TestParseFollowUpJSONStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"subject\": \"Re: hello\", \"body\": \"<p>text</p>\"}\n```"
	content, err := ParseFollowUpJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, "Re: hello", content.Subject)
}

func TestParseFollowUpJSONSurroundingProse(t *testing.T) {
	raw := `Sure! Here is the follow-up: {"subject": "s", "body": "b"} Hope that helps.`
	content, err := ParseFollowUpJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, "s", content.Subject)
	assert.Equal(t, "b", content.Body)
}

func TestParseFollowUpJSONRejectsBadOutput(t *testing.T) {
	_, err := ParseFollowUpJSON("I cannot produce JSON today")
	assert.Error(t, err)

	_, err = ParseFollowUpJSON(`{"subject": "only a subject"}`)
	assert.Error(t, err)

	_, err = ParseFollowUpJSON(`{"subject": "", "body": ""}`)
	assert.Error(t, err)
}

func TestFallbackFollowUpVariants(t *testing.T) {
	a := FallbackFollowUp("Jordan", "Our offer", models.VariantA)
	b := FallbackFollowUp("Jordan", "Our offer", models.VariantB)

	assert.Contains(t, a.Subject, "Our offer")
	assert.Contains(t, b.Subject, "Our offer")
	assert.Contains(t, a.Body, "Jordan")
	assert.Contains(t, b.Body, "Jordan")
	assert.NotEqual(t, a.Subject, b.Subject)
	assert.NotEqual(t, a.Body, b.Body)
}

func TestGenerateFollowUpFallsBackWhenUnconfigured(t *testing.T) {
	c := &AIClient{} // no API key
	lead := &models.Lead{FirstName: "Sam", Email: "sam@acme.io"}
	campaign := &models.Campaign{Subject: "Intro"}

	content := c.GenerateFollowUp(lead, campaign, Engagement{Score: 20}, models.VariantA)
	assert.Contains(t, content.Subject, "Intro")
	assert.Contains(t, content.Body, "Sam")
}

func TestPositiveSentimentHeuristic(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Sounds good, let's schedule a call", true},
		{"I'm interested, tell me more", true},
		{"Can you send pricing?", true},
		{"Not interested, please remove me", false},
		{"no thanks", false},
		{"Please unsubscribe me, this call is unwanted", false}, // negative veto beats positive marker
		{"Who is this?", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PositiveSentimentHeuristic(tt.text), "text %q", tt.text)
	}
}

func TestAnalyzeSentimentFallsBackToHeuristic(t *testing.T) {
	c := &AIClient{} // unconfigured client always errors
	assert.True(t, c.AnalyzeSentiment("Yes, very interested!"))
	assert.False(t, c.AnalyzeSentiment("stop emailing me"))
}
