package models

import (
	"time"

	"gorm.io/gorm"
)

// CampaignStatus is the closed set of campaign lifecycle states.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignPaused    CampaignStatus = "paused"
	CampaignActive    CampaignStatus = "active"
	CampaignCompleted CampaignStatus = "completed"
)

// Valid reports whether s is a known campaign status.
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignDraft, CampaignPaused, CampaignActive, CampaignCompleted:
		return true
	}
	return false
}

// Campaign represents a reusable email template plus its status, owned by one
// user. Subject and body carry [Name]/[Company]/[Email]/[Phone]/[Notes]
// placeholders substituted at queue-build time.
type Campaign struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Name    string `gorm:"not null" json:"name"`
	Subject string `gorm:"not null" json:"subject"`
	Body    string `gorm:"type:text;not null" json:"body"`

	Status CampaignStatus `gorm:"type:varchar(16);default:'draft'" json:"status"`
	IsMain bool           `gorm:"default:false" json:"is_main"` // at most one per user

	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	// Statistics (denormalized for dashboards; events remain the source of truth)
	TotalLeads int `gorm:"default:0" json:"total_leads"`
	SentCount  int `gorm:"default:0" json:"sent_count"`
	OpenCount  int `gorm:"default:0" json:"open_count"`
	ClickCount int `gorm:"default:0" json:"click_count"`
	ReplyCount int `gorm:"default:0" json:"reply_count"`

	// Relations
	CampaignLeads []CampaignLead `gorm:"foreignKey:CampaignID" json:"campaign_leads,omitempty"`
}

// CampaignLeadStatus is the canonical lifecycle state of one lead inside one
// campaign. All other records (queue items, events, follow-ups, hot leads)
// hang off the CampaignLead row.
type CampaignLeadStatus string

const (
	LeadStatusPending CampaignLeadStatus = "pending"
	LeadStatusQueued  CampaignLeadStatus = "queued"
	LeadStatusSent    CampaignLeadStatus = "sent"
	LeadStatusOpened  CampaignLeadStatus = "opened"
	LeadStatusReplied CampaignLeadStatus = "replied"
	LeadStatusHot     CampaignLeadStatus = "hot"
	LeadStatusFailed  CampaignLeadStatus = "failed"
	LeadStatusBounced CampaignLeadStatus = "bounced"
)

// Valid reports whether s is a known campaign-lead status.
func (s CampaignLeadStatus) Valid() bool {
	switch s {
	case LeadStatusPending, LeadStatusQueued, LeadStatusSent, LeadStatusOpened,
		LeadStatusReplied, LeadStatusHot, LeadStatusFailed, LeadStatusBounced:
		return true
	}
	return false
}

// Delivered reports whether the lead has received the campaign email but not
// yet replied. Delivered leads are the follow-up and loop candidates.
func (s CampaignLeadStatus) Delivered() bool {
	return s == LeadStatusSent || s == LeadStatusOpened
}

// CanTransition enforces the lifecycle state machine:
//
//	pending -> queued -> sent -> opened -> replied/hot
//	queued  -> failed/bounced, opened -> hot, replied -> hot
//
// Looping resets delivered leads back to pending; that reset goes through
// CanTransition too.
func (s CampaignLeadStatus) CanTransition(to CampaignLeadStatus) bool {
	switch s {
	case LeadStatusPending:
		return to == LeadStatusQueued
	case LeadStatusQueued:
		return to == LeadStatusSent || to == LeadStatusFailed || to == LeadStatusBounced
	case LeadStatusSent:
		return to == LeadStatusOpened || to == LeadStatusReplied || to == LeadStatusHot || to == LeadStatusPending
	case LeadStatusOpened:
		return to == LeadStatusReplied || to == LeadStatusHot || to == LeadStatusPending
	case LeadStatusReplied:
		return to == LeadStatusHot
	case LeadStatusFailed:
		return to == LeadStatusPending
	}
	return false
}

// CampaignLead joins one lead to one campaign and carries its lifecycle.
type CampaignLead struct {
	gorm.Model
	CampaignID uint `gorm:"not null;index:idx_campaign_lead,unique" json:"campaign_id"`
	LeadID     uint `gorm:"not null;index:idx_campaign_lead,unique" json:"lead_id"`

	Status CampaignLeadStatus `gorm:"type:varchar(16);default:'pending';index" json:"status"`

	SentAt      *time.Time `json:"sent_at"`
	OpenedAt    *time.Time `json:"opened_at"`
	RepliedAt   *time.Time `json:"replied_at"`
	NextEmailAt *time.Time `json:"next_email_at"` // loop pointer
	LoopCount   int        `gorm:"default:0" json:"loop_count"`

	// Relations
	Campaign Campaign     `json:"-"`
	Lead     Lead         `json:"lead,omitempty"`
	Events   []EmailEvent `gorm:"foreignKey:CampaignLeadID" json:"events,omitempty"`
}
