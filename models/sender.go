package models

import (
	"time"

	"gorm.io/gorm"
)

// Sender provider types, in delivery priority order: an OAuth mailbox is tried
// before plain SMTP, and the platform transport is the fallback of last resort.
const (
	ProviderGmail   = "gmail"
	ProviderOutlook = "outlook"
	ProviderSMTP    = "smtp"
)

// Sender holds one outbound mailbox configuration for a user. Credentials are
// encrypted at the application layer before they reach the row.
type Sender struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Name      string `gorm:"not null" json:"name"`
	FromEmail string `gorm:"not null" json:"from_email"`
	FromName  string `json:"from_name"`

	ProviderType string `gorm:"not null" json:"provider_type"` // smtp, gmail, outlook

	// ========= SMTP Configuration =========
	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUsername string `json:"smtp_username"`
	SMTPPassword string `json:"-"` // Encrypted in application layer
	Encryption   string `json:"encryption" gorm:"default:'STARTTLS'"`

	// ========= IMAP Configuration (reply detection) =========
	IMAPHost     string `json:"imap_host"`
	IMAPPort     int    `json:"imap_port" gorm:"default:993"`
	IMAPUsername string `json:"imap_username"`
	IMAPPassword string `json:"-"` // Encrypted in application layer
	IMAPMailbox  string `json:"imap_mailbox" gorm:"default:'INBOX'"`

	// ========= OAuth Configuration =========
	// Tokens are issued by the external OAuth exchange; this service only
	// consumes (and refreshes) them.
	OAuthProvider     string     `gorm:"column:oauth_provider" json:"oauth_provider"`
	OAuthToken        string     `gorm:"column:oauth_token" json:"-"`         // Encrypted
	OAuthRefreshToken string     `gorm:"column:oauth_refresh_token" json:"-"` // Encrypted
	OAuthExpiry       *time.Time `gorm:"column:oauth_expiry" json:"oauth_expiry"`

	// ========= Status =========
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	LastError    *string    `json:"last_error"`
	LastSentAt   *time.Time `json:"last_sent_at"`
	LastReplySeq uint32     `gorm:"default:0" json:"-"` // IMAP UID high-water mark

	// ========= Usage =========
	DailyLimit int `gorm:"default:500" json:"daily_limit"`
	SentToday  int `gorm:"default:0" json:"sent_today"`
	TotalSent  int `gorm:"default:0" json:"total_sent"`
}

// Sanitize strips credential material before the row is serialized to a client.
func (s *Sender) Sanitize() {
	s.SMTPPassword = ""
	s.IMAPPassword = ""
	s.OAuthToken = ""
	s.OAuthRefreshToken = ""
}

// HasOAuth reports whether the sender carries a usable OAuth token pair.
func (s *Sender) HasOAuth() bool {
	return s.OAuthProvider != "" && (s.OAuthToken != "" || s.OAuthRefreshToken != "")
}

// HasSMTP reports whether the sender carries a usable SMTP configuration.
func (s *Sender) HasSMTP() bool {
	return s.SMTPHost != "" && s.SMTPPort > 0
}
