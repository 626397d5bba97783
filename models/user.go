package models

import (
	"gorm.io/gorm"
)

// User represents an account owner. Registration, login and password flows live
// in the external auth service; this service only consumes the identity.
type User struct {
	gorm.Model

	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	EmailVerified bool   `gorm:"default:false" json:"email_verified"`

	Name      *string `json:"name,omitempty"`
	Company   *string `json:"company,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Timezone  string  `gorm:"default:'UTC'" json:"timezone"`

	IsActive bool `gorm:"default:true" json:"is_active"`
	IsAdmin  bool `gorm:"default:false" json:"is_admin"`

	// TokenVersion invalidates outstanding JWTs when bumped by the auth service.
	TokenVersion int `gorm:"default:0" json:"-"`

	// Relations
	Senders   []Sender   `gorm:"foreignKey:UserID" json:"senders,omitempty"`
	Campaigns []Campaign `gorm:"foreignKey:UserID" json:"campaigns,omitempty"`
	Leads     []Lead     `gorm:"foreignKey:UserID" json:"leads,omitempty"`
}
