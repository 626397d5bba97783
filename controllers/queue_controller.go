package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"coldreach/models"
)

type QueueController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewQueueController(db *gorm.DB, logger *log.Logger) *QueueController {
	return &QueueController{DB: db, Logger: logger}
}

// GetQueueSummary reports the delivery pipeline state for one campaign.
func (qc *QueueController) GetQueueSummary(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var campaign models.Campaign
	if err := qc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		First(&campaign).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	countByStatus := func(status models.QueueStatus) int64 {
		var n int64
		qc.DB.Model(&models.EmailQueueItem{}).
			Where("campaign_id = ? AND status = ?", campaign.ID, status).Count(&n)
		return n
	}

	pending := countByStatus(models.QueuePending)
	sending := countByStatus(models.QueueSending)
	sent := countByStatus(models.QueueSent)
	failed := countByStatus(models.QueueFailed)

	var nextAt *time.Time
	var next models.EmailQueueItem
	if err := qc.DB.Where("campaign_id = ? AND status = ?", campaign.ID, models.QueuePending).
		Order("scheduled_for asc").First(&next).Error; err == nil {
		nextAt = &next.ScheduledFor
	}

	return c.JSON(fiber.Map{
		"pending":           pending,
		"sending":           sending,
		"sent":              sent,
		"failed":            failed,
		"processed":         sent + failed,
		"total":             pending + sending + sent + failed,
		"next_scheduled_at": nextAt,
	})
}

// RequeueFailed resets this campaign's failed queue items to pending so the
// delivery worker picks them up again. Nothing requeues automatically; this
// endpoint is the only failed -> pending path.
func (qc *QueueController) RequeueFailed(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var campaign models.Campaign
	if err := qc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		First(&campaign).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	now := time.Now()
	result := qc.DB.Model(&models.EmailQueueItem{}).
		Where("campaign_id = ? AND status = ?", campaign.ID, models.QueueFailed).
		Updates(map[string]interface{}{
			"status":        models.QueuePending,
			"scheduled_for": now,
			"last_error":    nil,
		})
	if result.Error != nil {
		qc.Logger.Printf("Failed to requeue campaign %d: %v", campaign.ID, result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to requeue items",
		})
	}

	// Failed campaign leads ride along so their rows become schedulable again.
	qc.DB.Model(&models.CampaignLead{}).
		Where("campaign_id = ? AND status = ?", campaign.ID, models.LeadStatusFailed).
		Update("status", models.LeadStatusQueued)

	return c.JSON(fiber.Map{
		"message":  "Failed items requeued",
		"requeued": result.RowsAffected,
	})
}
