package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"coldreach/models"
)

type FollowUpController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewFollowUpController(db *gorm.DB, logger *log.Logger) *FollowUpController {
	return &FollowUpController{DB: db, Logger: logger}
}

// GetFollowUps lists follow-ups for one campaign, soonest first.
func (fc *FollowUpController) GetFollowUps(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var campaign models.Campaign
	if err := fc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		First(&campaign).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	query := fc.DB.Where("campaign_id = ?", campaign.ID)
	if status := c.Query("status"); status != "" {
		if !models.FollowUpStatus(status).Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid status filter",
			})
		}
		query = query.Where("status = ?", status)
	}

	var followUps []models.FollowUp
	if err := query.Order("scheduled_for asc").Find(&followUps).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch follow-ups",
		})
	}
	return c.JSON(followUps)
}

// CancelFollowUp cancels a follow-up that has not gone out yet.
func (fc *FollowUpController) CancelFollowUp(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var followUp models.FollowUp
	if err := fc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		First(&followUp).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Follow-up not found",
		})
	}

	if !followUp.Status.CanTransition(models.FollowUpCancelled) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Follow-up can no longer be cancelled",
		})
	}

	if err := fc.DB.Model(&followUp).Update("status", models.FollowUpCancelled).Error; err != nil {
		fc.Logger.Printf("Failed to cancel follow-up %d: %v", followUp.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to cancel follow-up",
		})
	}

	return c.JSON(fiber.Map{"message": "Follow-up cancelled"})
}
