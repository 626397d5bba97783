package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"gorm.io/gorm"

	"coldreach/models"
)

// CountEngagement tallies the full event history for one campaign lead. The
// counts feed ScoreEngagement; nothing intermediate is ever persisted.
func CountEngagement(db *gorm.DB, campaignLeadID uint) (opens, clicks, replies int, err error) {
	type row struct {
		EventType models.EmailEventType
		N         int
	}
	var rows []row
	err = db.Model(&models.EmailEvent{}).
		Select("event_type, count(*) as n").
		Where("campaign_lead_id = ?", campaignLeadID).
		Group("event_type").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count events: %w", err)
	}

	for _, r := range rows {
		switch r.EventType {
		case models.EventOpened:
			opens = r.N
		case models.EventClicked:
			clicks = r.N
		case models.EventReplied:
			replies = r.N
		}
	}
	return opens, clicks, replies, nil
}

// RecordEvent appends one immutable engagement event.
func RecordEvent(db *gorm.DB, campaignLeadID uint, eventType models.EmailEventType, payload models.EventPayload) error {
	event := models.EmailEvent{
		CampaignLeadID: campaignLeadID,
		EventType:      eventType,
		Payload:        payload,
	}
	return db.Create(&event).Error
}

// InboundReply is the provider-neutral shape of a reply notification.
// LeadEmail is the campaign recipient who replied. Mailbox is the sender
// address the reply was delivered to; it determines which user's leads the
// reply may touch.
type InboundReply struct {
	LeadEmail string
	Mailbox   string
	Body      string
}

// NormalizeReplyPayload tries the known inbound-webhook shapes in turn and
// normalizes the first one that fits. The second return is false when no
// handler matched; callers answer such payloads neutrally instead of erroring
// so providers do not retry-storm us.
func NormalizeReplyPayload(body []byte) (InboundReply, bool) {
	// SendGrid inbound parse style
	var sg struct {
		From string `json:"from"`
		To   string `json:"to"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &sg); err == nil && sg.From != "" && sg.Text != "" {
		return InboundReply{
			LeadEmail: extractAddress(sg.From),
			Mailbox:   extractAddress(sg.To),
			Body:      sg.Text,
		}, true
	}

	// Mailgun routes style
	var mg struct {
		Sender    string `json:"sender"`
		Recipient string `json:"recipient"`
		BodyPlain string `json:"body-plain"`
	}
	if err := json.Unmarshal(body, &mg); err == nil && mg.Sender != "" && mg.BodyPlain != "" {
		return InboundReply{
			LeadEmail: extractAddress(mg.Sender),
			Mailbox:   extractAddress(mg.Recipient),
			Body:      mg.BodyPlain,
		}, true
	}

	// Generic flat shape
	var generic struct {
		FromEmail string `json:"from_email"`
		ToEmail   string `json:"to_email"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(body, &generic); err == nil && generic.FromEmail != "" && generic.Message != "" {
		return InboundReply{
			LeadEmail: extractAddress(generic.FromEmail),
			Mailbox:   extractAddress(generic.ToEmail),
			Body:      generic.Message,
		}, true
	}

	return InboundReply{}, false
}

// extractAddress pulls the bare address out of a "Name <addr>" header value.
func extractAddress(header string) string {
	if addr, err := mail.ParseAddress(header); err == nil {
		return strings.ToLower(addr.Address)
	}
	return strings.ToLower(strings.TrimSpace(header))
}

// ProcessReply runs the full reply ingestion path: resolve the destination
// mailbox to its owning user, append the event, advance the lead's lifecycle,
// cancel pending follow-ups (no point following up on a responder) and surface
// a hot lead when the reply reads positive. Lead lookups are scoped to the
// mailbox owner so a contact address shared across users can never bleed a
// reply into another user's campaign.
func ProcessReply(db *gorm.DB, ai *AIClient, reply InboundReply, source string) error {
	ownerID, err := ResolveMailboxOwner(db, reply.Mailbox)
	if err != nil {
		return err
	}

	var lead models.Lead
	if err := db.Where("user_id = ? AND LOWER(email) = ?", ownerID, strings.ToLower(reply.LeadEmail)).
		Order("id desc").First(&lead).Error; err != nil {
		return fmt.Errorf("no lead found for %s: %w", reply.LeadEmail, err)
	}

	var campaignLead models.CampaignLead
	if err := db.Where("lead_id = ?", lead.ID).
		Order("created_at desc").First(&campaignLead).Error; err != nil {
		return fmt.Errorf("no campaign lead for lead %d: %w", lead.ID, err)
	}

	if err := RecordEvent(db, campaignLead.ID, models.EventReplied, models.EventPayload{
		FromEmail: reply.LeadEmail,
		ReplyText: reply.Body,
		Source:    source,
	}); err != nil {
		return err
	}

	now := time.Now()
	if campaignLead.Status.CanTransition(models.LeadStatusReplied) {
		if err := db.Model(&campaignLead).Updates(map[string]interface{}{
			"status":     models.LeadStatusReplied,
			"replied_at": now,
		}).Error; err != nil {
			return fmt.Errorf("failed to mark replied: %w", err)
		}
		campaignLead.Status = models.LeadStatusReplied
		db.Model(&models.Campaign{}).Where("id = ?", campaignLead.CampaignID).
			Update("reply_count", gorm.Expr("reply_count + 1"))
	}

	// A responder never gets the queued follow-up.
	db.Model(&models.FollowUp{}).
		Where("campaign_lead_id = ? AND status IN ?", campaignLead.ID,
			[]models.FollowUpStatus{models.FollowUpDraft, models.FollowUpScheduled}).
		Update("status", models.FollowUpCancelled)

	if ai != nil && ai.AnalyzeSentiment(reply.Body) {
		if err := EnsureHotLead(db, &campaignLead, 100, "Lead replied with positive sentiment."); err != nil {
			return err
		}
	}
	return nil
}

// ResolveMailboxOwner maps a delivery mailbox to the user whose sender row
// claims it. Replies to a mailbox no sender owns are dropped rather than
// attributed by guesswork.
func ResolveMailboxOwner(db *gorm.DB, mailbox string) (uint, error) {
	if strings.TrimSpace(mailbox) == "" {
		return 0, errors.New("reply carries no destination mailbox")
	}
	var sender models.Sender
	if err := db.Where("LOWER(from_email) = ?", strings.ToLower(mailbox)).
		First(&sender).Error; err != nil {
		return 0, fmt.Errorf("no sender owns mailbox %s: %w", mailbox, err)
	}
	return sender.UserID, nil
}

// EnsureHotLead creates the hot-lead record once per campaign lead. The
// existence check makes repeated detection idempotent.
func EnsureHotLead(db *gorm.DB, campaignLead *models.CampaignLead, score int, reasoning string) error {
	var count int64
	if err := db.Model(&models.HotLead{}).
		Where("campaign_lead_id = ?", campaignLead.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var campaign models.Campaign
	if err := db.First(&campaign, campaignLead.CampaignID).Error; err != nil {
		return fmt.Errorf("campaign %d not found: %w", campaignLead.CampaignID, err)
	}

	hot := models.HotLead{
		CampaignLeadID:  campaignLead.ID,
		LeadID:          campaignLead.LeadID,
		CampaignID:      campaignLead.CampaignID,
		UserID:          campaign.UserID,
		EngagementScore: score,
		Reasoning:       reasoning,
		Status:          models.HotLeadNew,
	}
	if err := db.Create(&hot).Error; err != nil {
		return fmt.Errorf("failed to create hot lead: %w", err)
	}

	if campaignLead.Status.CanTransition(models.LeadStatusHot) {
		db.Model(campaignLead).Update("status", models.LeadStatusHot)
		campaignLead.Status = models.LeadStatusHot
	}
	return nil
}
