package models

import (
	"time"

	"gorm.io/gorm"
)

// EmailStatus is the result of the external address filter.
type EmailStatus string

const (
	EmailValid     EmailStatus = "valid"
	EmailInvalid   EmailStatus = "invalid"
	EmailMissing   EmailStatus = "missing"
	EmailUnchecked EmailStatus = "unchecked"
)

// LeadList groups leads for targeting. Lists are optional; a lead can exist
// without any membership.
type LeadList struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`

	LeadCount int `gorm:"default:0" json:"lead_count"`

	// Relations
	Memberships []LeadListMembership `gorm:"foreignKey:LeadListID" json:"memberships,omitempty"`
}

// Lead represents a single contact, independent of any campaign.
type Lead struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Email     string `gorm:"index" json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Position  string `json:"position"`
	Phone     string `json:"phone"`
	Notes     string `gorm:"type:text" json:"notes"`

	EmailStatus EmailStatus `gorm:"type:varchar(16);default:'unchecked'" json:"email_status"`

	Source      string     `json:"source"`
	LastContact *time.Time `json:"last_contact"`

	// Relations
	Memberships   []LeadListMembership `gorm:"foreignKey:LeadID" json:"lists,omitempty"`
	CampaignLeads []CampaignLead       `gorm:"foreignKey:LeadID" json:"campaign_leads,omitempty"`
}

// Name returns the lead's display name, falling back to the email local part.
func (l *Lead) Name() string {
	switch {
	case l.FirstName != "" && l.LastName != "":
		return l.FirstName + " " + l.LastName
	case l.FirstName != "":
		return l.FirstName
	case l.LastName != "":
		return l.LastName
	}
	return l.Email
}

// LeadListMembership joins leads to lists.
type LeadListMembership struct {
	gorm.Model
	LeadID     uint `gorm:"not null;index" json:"lead_id"`
	LeadListID uint `gorm:"not null;index" json:"lead_list_id"`
}
