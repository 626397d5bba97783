package models

import (
	"time"

	"gorm.io/gorm"
)

// QueueStatus is the closed set of queue-item states. Items are created as
// pending, claimed into sending, and resolve to sent or failed. Failed items
// are only retried when a caller explicitly resets them to pending.
type QueueStatus string

const (
	QueuePending QueueStatus = "pending"
	QueueSending QueueStatus = "sending"
	QueueSent    QueueStatus = "sent"
	QueueFailed  QueueStatus = "failed"
)

// Valid reports whether s is a known queue status.
func (s QueueStatus) Valid() bool {
	switch s {
	case QueuePending, QueueSending, QueueSent, QueueFailed:
		return true
	}
	return false
}

// Terminal reports whether an item in this state is done with the pipeline.
func (s QueueStatus) Terminal() bool {
	return s == QueueSent || s == QueueFailed
}

// CanTransition enforces pending -> sending -> sent|failed, plus the manual
// failed -> pending requeue.
func (s QueueStatus) CanTransition(to QueueStatus) bool {
	switch s {
	case QueuePending:
		return to == QueueSending
	case QueueSending:
		return to == QueueSent || to == QueueFailed
	case QueueFailed:
		return to == QueuePending
	}
	return false
}

// EmailQueueItem is one scheduled send. Subject and body are fully rendered at
// creation time; the delivery worker never touches templates. Rows are kept
// after resolution for auditing.
type EmailQueueItem struct {
	gorm.Model
	CampaignID     uint `gorm:"not null;index" json:"campaign_id"`
	CampaignLeadID uint `gorm:"not null;index" json:"campaign_lead_id"`
	LeadID         uint `gorm:"not null;index" json:"lead_id"`
	UserID         uint `gorm:"not null;index" json:"user_id"`

	Subject string `gorm:"not null" json:"subject"`
	Body    string `gorm:"type:text;not null" json:"body"`
	ToEmail string `gorm:"not null" json:"to_email"`

	ScheduledFor time.Time   `gorm:"not null;index" json:"scheduled_for"`
	Status       QueueStatus `gorm:"type:varchar(16);default:'pending';index" json:"status"`
	Attempts     int         `gorm:"default:0" json:"attempts"`
	LastError    *string     `json:"last_error"`
	SentAt       *time.Time  `json:"sent_at"`
	MessageID    string      `json:"message_id"`
	IsFollowUp   bool        `gorm:"default:false" json:"is_follow_up"`

	// Relations
	Campaign     Campaign     `json:"-"`
	CampaignLead CampaignLead `json:"-"`
	Lead         Lead         `json:"-"`
}
