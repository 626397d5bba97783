package controller

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coldreach/models"
	"coldreach/utils"
)

type SettingsController struct {
	DB       *gorm.DB
	Logger   *log.Logger
	validate *validator.Validate
}

func NewSettingsController(db *gorm.DB, logger *log.Logger) *SettingsController {
	return &SettingsController{
		DB:       db,
		Logger:   logger,
		validate: validator.New(),
	}
}

// GetSettings returns the user's automation settings, defaults if unset.
func (sc *SettingsController) GetSettings(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	return c.JSON(models.SettingsForUser(sc.DB, user.ID))
}

type settingsInput struct {
	DailyLimit        int    `json:"daily_limit" validate:"required,min=1,max=500"`
	EmailFrequency    string `json:"email_frequency" validate:"required"`
	LoopAfterDays     int    `json:"loop_after_days" validate:"required,min=1,max=365"`
	FollowupEnabled   *bool  `json:"followup_enabled" validate:"required"`
	FollowupTiming    string `json:"followup_timing" validate:"required"`
	BusinessHoursOnly *bool  `json:"business_hours_only" validate:"required"`
}

// UpdateSettings upserts the user's single settings row.
func (sc *SettingsController) UpdateSettings(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input settingsInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := sc.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": err.Error(),
		})
	}

	// Reject labels the scheduler cannot parse instead of silently pacing at
	// the fallback rate.
	if _, _, ok := utils.ParseFrequencyRange(input.EmailFrequency); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "email_frequency must look like \"2-5\"",
		})
	}

	settings := models.AutomationSettings{
		UserID:            user.ID,
		DailyLimit:        input.DailyLimit,
		EmailFrequency:    input.EmailFrequency,
		LoopAfterDays:     input.LoopAfterDays,
		FollowupEnabled:   *input.FollowupEnabled,
		FollowupTiming:    input.FollowupTiming,
		BusinessHoursOnly: *input.BusinessHoursOnly,
	}

	err := sc.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"daily_limit", "email_frequency", "loop_after_days",
			"followup_enabled", "followup_timing", "business_hours_only",
			"updated_at",
		}),
	}).Create(&settings).Error
	if err != nil {
		sc.Logger.Printf("Failed to save settings for user %d: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save settings",
		})
	}

	return c.JSON(settings)
}
