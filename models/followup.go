package models

import (
	"time"

	"gorm.io/gorm"
)

// FollowUpStatus is the closed set of follow-up states. draft and scheduled
// are the active states; a CampaignLead carries at most one active follow-up.
type FollowUpStatus string

const (
	FollowUpDraft     FollowUpStatus = "draft"
	FollowUpScheduled FollowUpStatus = "scheduled"
	FollowUpSent      FollowUpStatus = "sent"
	FollowUpFailed    FollowUpStatus = "failed"
	FollowUpCancelled FollowUpStatus = "cancelled"
)

// Valid reports whether s is a known follow-up status.
func (s FollowUpStatus) Valid() bool {
	switch s {
	case FollowUpDraft, FollowUpScheduled, FollowUpSent, FollowUpFailed, FollowUpCancelled:
		return true
	}
	return false
}

// Active reports whether the follow-up still occupies the lead's single
// active-follow-up slot.
func (s FollowUpStatus) Active() bool {
	return s == FollowUpDraft || s == FollowUpScheduled
}

// CanTransition enforces draft -> scheduled -> sent|failed, with cancellation
// allowed from any active state (a reply cancels pending follow-ups).
func (s FollowUpStatus) CanTransition(to FollowUpStatus) bool {
	switch s {
	case FollowUpDraft:
		return to == FollowUpScheduled || to == FollowUpCancelled
	case FollowUpScheduled:
		return to == FollowUpSent || to == FollowUpFailed || to == FollowUpCancelled
	}
	return false
}

// ABVariant is the deterministic two-way split for follow-up phrasing.
type ABVariant string

const (
	VariantA ABVariant = "A"
	VariantB ABVariant = "B"
)

// FollowUp is a secondary, AI-authored message scheduled for a warm but
// unconverted lead.
type FollowUp struct {
	gorm.Model
	CampaignLeadID uint `gorm:"not null;index" json:"campaign_lead_id"`
	LeadID         uint `gorm:"not null;index" json:"lead_id"`
	CampaignID     uint `gorm:"not null;index" json:"campaign_id"`
	UserID         uint `gorm:"not null;index" json:"user_id"`

	Subject string `gorm:"not null" json:"subject"`
	Body    string `gorm:"type:text;not null" json:"body"`

	ScheduledFor time.Time      `gorm:"not null;index" json:"scheduled_for"`
	Status       FollowUpStatus `gorm:"type:varchar(16);default:'draft';index" json:"status"`
	ABVariant    ABVariant      `gorm:"type:varchar(1)" json:"ab_variant"`

	// EngagementScore is the score snapshot that triggered this follow-up.
	EngagementScore int        `json:"engagement_score"`
	SentAt          *time.Time `json:"sent_at"`
	LastError       *string    `json:"last_error"`

	// Relations
	CampaignLead CampaignLead `json:"-"`
	Lead         Lead         `json:"-"`
	Campaign     Campaign     `json:"-"`
}
