package controller

import (
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"coldreach/models"
)

type CampaignController struct {
	DB       *gorm.DB
	Logger   *log.Logger
	validate *validator.Validate
}

func NewCampaignController(db *gorm.DB, logger *log.Logger) *CampaignController {
	return &CampaignController{
		DB:       db,
		Logger:   logger,
		validate: validator.New(),
	}
}

type campaignInput struct {
	Name    string `json:"name" validate:"required,min=1,max=120"`
	Subject string `json:"subject" validate:"required,min=1,max=255"`
	Body    string `json:"body" validate:"required"`
	IsMain  bool   `json:"is_main"`
}

// CreateCampaign creates a draft campaign. When is_main is set, any previous
// main campaign of the user is demoted inside the same transaction.
func (cc *CampaignController) CreateCampaign(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input campaignInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := cc.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": err.Error(),
		})
	}

	campaign := models.Campaign{
		UserID:  user.ID,
		Name:    input.Name,
		Subject: input.Subject,
		Body:    input.Body,
		Status:  models.CampaignDraft,
		IsMain:  input.IsMain,
	}

	err := cc.DB.Transaction(func(tx *gorm.DB) error {
		if input.IsMain {
			if err := tx.Model(&models.Campaign{}).
				Where("user_id = ? AND is_main = ?", user.ID, true).
				Update("is_main", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&campaign).Error
	})
	if err != nil {
		cc.Logger.Printf("Failed to create campaign: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create campaign",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(campaign)
}

// GetCampaigns lists the user's campaigns, newest first.
func (cc *CampaignController) GetCampaigns(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var campaigns []models.Campaign
	if err := cc.DB.Where("user_id = ?", user.ID).
		Order("created_at desc").Find(&campaigns).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch campaigns",
		})
	}
	return c.JSON(campaigns)
}

// GetCampaign returns one campaign owned by the user.
func (cc *CampaignController) GetCampaign(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var campaign models.Campaign
	if err := cc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		First(&campaign).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}
	return c.JSON(campaign)
}

// UpdateCampaign edits the template fields of a campaign.
func (cc *CampaignController) UpdateCampaign(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var campaign models.Campaign
	if err := cc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		First(&campaign).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	var input campaignInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := cc.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": err.Error(),
		})
	}

	err := cc.DB.Transaction(func(tx *gorm.DB) error {
		if input.IsMain && !campaign.IsMain {
			if err := tx.Model(&models.Campaign{}).
				Where("user_id = ? AND is_main = ?", user.ID, true).
				Update("is_main", false).Error; err != nil {
				return err
			}
		}
		return tx.Model(&campaign).Updates(map[string]interface{}{
			"name":    input.Name,
			"subject": input.Subject,
			"body":    input.Body,
			"is_main": input.IsMain,
		}).Error
	})
	if err != nil {
		cc.Logger.Printf("Failed to update campaign %d: %v", campaign.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update campaign",
		})
	}

	return c.JSON(campaign)
}

// UpdateCampaignStatus toggles between active, paused and completed.
func (cc *CampaignController) UpdateCampaignStatus(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Status models.CampaignStatus `json:"status"`
	}
	if err := c.BodyParser(&input); err != nil || !input.Status.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid status",
		})
	}

	var campaign models.Campaign
	if err := cc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		First(&campaign).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	updates := map[string]interface{}{"status": input.Status}
	if input.Status == models.CampaignCompleted {
		updates["completed_at"] = time.Now()
	}
	if err := cc.DB.Model(&campaign).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update campaign status",
		})
	}

	return c.JSON(fiber.Map{"message": "Campaign status updated"})
}

// AttachLeads joins leads to a campaign as pending CampaignLead rows.
// Already-attached leads are skipped.
func (cc *CampaignController) AttachLeads(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var campaign models.Campaign
	if err := cc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		First(&campaign).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	var input struct {
		LeadIDs []uint `json:"lead_ids"`
	}
	if err := c.BodyParser(&input); err != nil || len(input.LeadIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "lead_ids is required",
		})
	}

	attached := 0
	for _, leadID := range input.LeadIDs {
		var lead models.Lead
		if err := cc.DB.Where("id = ? AND user_id = ?", leadID, user.ID).
			First(&lead).Error; err != nil {
			continue
		}

		var count int64
		cc.DB.Model(&models.CampaignLead{}).
			Where("campaign_id = ? AND lead_id = ?", campaign.ID, leadID).
			Count(&count)
		if count > 0 {
			continue
		}

		campaignLead := models.CampaignLead{
			CampaignID: campaign.ID,
			LeadID:     leadID,
			Status:     models.LeadStatusPending,
		}
		if err := cc.DB.Create(&campaignLead).Error; err != nil {
			cc.Logger.Printf("Failed to attach lead %d: %v", leadID, err)
			continue
		}
		attached++
	}

	cc.DB.Model(&campaign).Update("total_leads", gorm.Expr("total_leads + ?", attached))

	return c.JSON(fiber.Map{
		"message":  "Leads attached",
		"attached": attached,
	})
}

// GetCampaignStats aggregates the lifecycle counters for one campaign.
func (cc *CampaignController) GetCampaignStats(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var campaign models.Campaign
	if err := cc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		First(&campaign).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	countByStatus := func(status models.CampaignLeadStatus) int64 {
		var n int64
		cc.DB.Model(&models.CampaignLead{}).
			Where("campaign_id = ? AND status = ?", campaign.ID, status).Count(&n)
		return n
	}

	var hotLeads int64
	cc.DB.Model(&models.HotLead{}).Where("campaign_id = ?", campaign.ID).Count(&hotLeads)

	var pendingQueue int64
	cc.DB.Model(&models.EmailQueueItem{}).
		Where("campaign_id = ? AND status = ?", campaign.ID, models.QueuePending).Count(&pendingQueue)

	return c.JSON(fiber.Map{
		"status":        campaign.Status,
		"total_leads":   campaign.TotalLeads,
		"pending":       countByStatus(models.LeadStatusPending),
		"queued":        countByStatus(models.LeadStatusQueued),
		"sent":          countByStatus(models.LeadStatusSent),
		"opened":        countByStatus(models.LeadStatusOpened),
		"replied":       countByStatus(models.LeadStatusReplied),
		"failed":        countByStatus(models.LeadStatusFailed),
		"hot_leads":     hotLeads,
		"queue_pending": pendingQueue,
		"open_count":    campaign.OpenCount,
		"click_count":   campaign.ClickCount,
		"reply_count":   campaign.ReplyCount,
	})
}

// DeleteCampaign removes a campaign and its dependent rows.
func (cc *CampaignController) DeleteCampaign(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var campaign models.Campaign
	if err := cc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		First(&campaign).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	err := cc.DB.Transaction(func(tx *gorm.DB) error {
		// Queue items and follow-ups reference the campaign; the caller owns
		// the cascade, so clear them before the campaign row itself.
		if err := tx.Where("campaign_id = ?", campaign.ID).Delete(&models.EmailQueueItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("campaign_id = ?", campaign.ID).Delete(&models.FollowUp{}).Error; err != nil {
			return err
		}
		if err := tx.Where("campaign_id = ?", campaign.ID).Delete(&models.HotLead{}).Error; err != nil {
			return err
		}
		if err := tx.Where("campaign_id = ?", campaign.ID).Delete(&models.CampaignLead{}).Error; err != nil {
			return err
		}
		return tx.Delete(&campaign).Error
	})
	if err != nil {
		cc.Logger.Printf("Failed to delete campaign %d: %v", campaign.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete campaign",
		})
	}

	return c.JSON(fiber.Map{"message": "Campaign deleted"})
}
