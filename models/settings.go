package models

import (
	"gorm.io/gorm"
)

// Follow-up timing labels understood by the rule engine.
const (
	TimingThreeDays = "3_days"
	TimingOneWeek   = "1_week"
	TimingTwoWeeks  = "2_weeks"
)

// AutomationSettings is the per-user pacing configuration, one row per user,
// written with an upsert.
type AutomationSettings struct {
	gorm.Model
	UserID uint `gorm:"not null;uniqueIndex" json:"user_id"`

	DailyLimit int `gorm:"default:50" json:"daily_limit"`

	// EmailFrequency is a delay-range label like "2-5": a uniform random gap
	// of 2-5 minutes between consecutive sends.
	EmailFrequency string `gorm:"default:'2-5'" json:"email_frequency"`

	LoopAfterDays int `gorm:"default:14" json:"loop_after_days"`

	FollowupEnabled bool   `gorm:"default:true" json:"followup_enabled"`
	FollowupTiming  string `gorm:"default:'3_days'" json:"followup_timing"`

	BusinessHoursOnly bool `gorm:"default:true" json:"business_hours_only"`
}

// SettingsForUser loads the user's automation settings, falling back to the
// model defaults when the row does not exist yet.
func SettingsForUser(db *gorm.DB, userID uint) AutomationSettings {
	var settings AutomationSettings
	if err := db.Where("user_id = ?", userID).First(&settings).Error; err != nil {
		return AutomationSettings{
			UserID:            userID,
			DailyLimit:        50,
			EmailFrequency:    "2-5",
			LoopAfterDays:     14,
			FollowupEnabled:   true,
			FollowupTiming:    TimingThreeDays,
			BusinessHoursOnly: true,
		}
	}
	return settings
}
