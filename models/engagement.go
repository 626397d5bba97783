package models

import (
	"gorm.io/gorm"
)

// EmailEventType identifies one engagement signal.
type EmailEventType string

const (
	EventOpened  EmailEventType = "opened"
	EventClicked EmailEventType = "clicked"
	EventReplied EmailEventType = "replied"
)

// Valid reports whether t is a known event type.
func (t EmailEventType) Valid() bool {
	switch t {
	case EventOpened, EventClicked, EventReplied:
		return true
	}
	return false
}

// EmailEvent is an append-only engagement record. Rows are never mutated or
// deleted; scoring is always recomputed from the full event history.
type EmailEvent struct {
	gorm.Model
	CampaignLeadID uint `gorm:"not null;index" json:"campaign_lead_id"`

	EventType EmailEventType `gorm:"type:varchar(16);not null;index" json:"event_type"`
	Payload   EventPayload   `gorm:"type:jsonb;serializer:json" json:"payload"`

	// Relations
	CampaignLead CampaignLead `json:"-"`
}

// EventPayload carries the signal-specific detail (user agent and IP for
// opens, destination URL for clicks, sender and text for replies).
type EventPayload struct {
	UserAgent string `json:"user_agent,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	URL       string `json:"url,omitempty"`
	FromEmail string `json:"from_email,omitempty"`
	ReplyText string `json:"reply_text,omitempty"`
	Source    string `json:"source,omitempty"` // pixel, redirect, webhook, imap
}

// HotLeadStatus tracks the manual handling of a surfaced hot lead.
type HotLeadStatus string

const (
	HotLeadNew       HotLeadStatus = "new"
	HotLeadContacted HotLeadStatus = "contacted"
	HotLeadConverted HotLeadStatus = "converted"
)

// Valid reports whether s is a known hot-lead status.
func (s HotLeadStatus) Valid() bool {
	switch s {
	case HotLeadNew, HotLeadContacted, HotLeadConverted:
		return true
	}
	return false
}

// HotLead marks a CampaignLead whose engagement crossed the ready-to-engage
// threshold. Created at most once per CampaignLead; the existence check
// precedes every insert.
type HotLead struct {
	gorm.Model
	CampaignLeadID uint `gorm:"not null;uniqueIndex" json:"campaign_lead_id"`
	LeadID         uint `gorm:"not null;index" json:"lead_id"`
	CampaignID     uint `gorm:"not null;index" json:"campaign_id"`
	UserID         uint `gorm:"not null;index" json:"user_id"`

	EngagementScore int           `gorm:"not null" json:"engagement_score"`
	Reasoning       string        `json:"reasoning"`
	Status          HotLeadStatus `gorm:"type:varchar(16);default:'new'" json:"status"`

	// Relations
	CampaignLead CampaignLead `json:"-"`
	Lead         Lead         `json:"lead,omitempty"`
}
