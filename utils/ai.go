package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"coldreach/config"
	"coldreach/models"
)

// AIClient talks to an OpenAI-compatible chat-completions endpoint. The
// collaborator is assumed to occasionally fail or return malformed JSON, so
// every caller goes through a deterministic fallback path.
type AIClient struct {
	APIURL string
	APIKey string
	Model  string
}

// NewAIClient builds a client from the loaded application config.
func NewAIClient() *AIClient {
	return &AIClient{
		APIURL: config.AppConfig.AI.APIURL,
		APIKey: config.AppConfig.AI.APIKey,
		Model:  config.AppConfig.AI.Model,
	}
}

// FollowUpContent is a generated follow-up subject and body.
type FollowUpContent struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Generate sends a single-prompt completion request and returns the raw text.
func (c *AIClient) Generate(prompt string) (string, error) {
	if c.APIKey == "" {
		return "", errors.New("ai client not configured")
	}

	body, err := json.Marshal(map[string]interface{}{
		"model": c.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.7,
	})
	if err != nil {
		return "", err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.APIURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.SetBody(body)

	if err := fasthttp.DoTimeout(req, resp, 30*time.Second); err != nil {
		return "", fmt.Errorf("ai request failed: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("ai endpoint returned status %d", resp.StatusCode())
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("ai response decode failed: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("ai response contained no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// GenerateFollowUp asks the model for a follow-up referencing the original
// email and the lead's engagement. Any failure, including malformed JSON,
// falls back to a generic templated message so a generation batch never
// aborts on the collaborator.
func (c *AIClient) GenerateFollowUp(lead *models.Lead, campaign *models.Campaign, engagement Engagement, variant models.ABVariant) FollowUpContent {
	prompt := fmt.Sprintf(`You are writing a short, friendly follow-up to a cold outreach email.

Original subject: %s
Recipient: %s at %s
Engagement: %s (score %d)
Variant: %s (variant A is direct and concise, variant B is softer and curious)

Reply with ONLY a JSON object: {"subject": "...", "body": "..."}. The body is plain HTML paragraphs, at most 120 words, no signature.`,
		campaign.Subject, lead.Name(), lead.Company, engagement.Reasoning, engagement.Score, variant)

	text, err := c.Generate(prompt)
	if err != nil {
		return FallbackFollowUp(lead.Name(), campaign.Subject, variant)
	}
	content, err := ParseFollowUpJSON(text)
	if err != nil {
		return FallbackFollowUp(lead.Name(), campaign.Subject, variant)
	}
	return content
}

// ParseFollowUpJSON extracts a FollowUpContent from model output, tolerating
// markdown code fences around the JSON object.
func ParseFollowUpJSON(text string) (FollowUpContent, error) {
	var content FollowUpContent

	cleaned := strings.TrimSpace(text)
	if idx := strings.Index(cleaned, "{"); idx >= 0 {
		if end := strings.LastIndex(cleaned, "}"); end > idx {
			cleaned = cleaned[idx : end+1]
		}
	}

	if err := json.Unmarshal([]byte(cleaned), &content); err != nil {
		return FollowUpContent{}, fmt.Errorf("malformed follow-up json: %w", err)
	}
	if content.Subject == "" || content.Body == "" {
		return FollowUpContent{}, errors.New("follow-up json missing subject or body")
	}
	return content, nil
}

// FallbackFollowUp is the deterministic templated follow-up used when the AI
// collaborator is unavailable or returns garbage.
func FallbackFollowUp(leadName, originalSubject string, variant models.ABVariant) FollowUpContent {
	if variant == models.VariantB {
		return FollowUpContent{
			Subject: "Re: " + originalSubject,
			Body: fmt.Sprintf("<p>Hi %s,</p><p>I wanted to circle back on my last note in case it got buried. Would love to hear your thoughts when you have a minute.</p>", leadName),
		}
	}
	return FollowUpContent{
		Subject: "Following up: " + originalSubject,
		Body: fmt.Sprintf("<p>Hi %s,</p><p>Just following up on my previous email. Is this something worth a quick chat this week?</p>", leadName),
	}
}

// AnalyzeSentiment classifies a reply as positive or not. On any collaborator
// failure it falls back to a keyword heuristic rather than propagating.
func (c *AIClient) AnalyzeSentiment(replyText string) bool {
	prompt := fmt.Sprintf(`Classify the sentiment of this email reply toward the sender's offer.
Reply with exactly one word: positive, neutral or negative.

Reply text:
%s`, replyText)

	text, err := c.Generate(prompt)
	if err != nil {
		return PositiveSentimentHeuristic(replyText)
	}
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "positive":
		return true
	case "neutral", "negative":
		return false
	}
	return PositiveSentimentHeuristic(replyText)
}

var positiveMarkers = []string{
	"interested", "sounds good", "tell me more", "let's talk", "lets talk",
	"schedule", "call", "meeting", "demo", "pricing", "yes", "sure", "great",
}

var negativeMarkers = []string{
	"not interested", "unsubscribe", "remove me", "stop emailing", "no thanks", "no thank you",
}

// PositiveSentimentHeuristic is the deterministic fallback classifier:
// negative markers veto, then any positive marker wins.
func PositiveSentimentHeuristic(replyText string) bool {
	text := strings.ToLower(replyText)
	for _, marker := range negativeMarkers {
		if strings.Contains(text, marker) {
			return false
		}
	}
	for _, marker := range positiveMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
