package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"coldreach/models"
	"coldreach/utils"
)

// ActivateCampaign turns pending campaign leads into a time-spread send
// schedule. Subjects and bodies are rendered here, once; the delivery worker
// only moves bytes. The batch honors the user's daily limit and pacing label,
// and every scheduled_for lands inside business hours.
func (cc *CampaignController) ActivateCampaign(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var campaign models.Campaign
	if err := cc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		First(&campaign).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	if campaign.Status == models.CampaignActive {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Campaign is already active",
		})
	}

	settings := models.SettingsForUser(cc.DB, user.ID)

	// Leads the external address filter has not rejected.
	var campaignLeads []models.CampaignLead
	if err := cc.DB.Preload("Lead").
		Joins("JOIN leads ON leads.id = campaign_leads.lead_id").
		Where("campaign_leads.campaign_id = ? AND campaign_leads.status = ?", campaign.ID, models.LeadStatusPending).
		Where("leads.email <> '' AND leads.email_status NOT IN ?",
			[]models.EmailStatus{models.EmailInvalid, models.EmailMissing}).
		Limit(settings.DailyLimit).
		Find(&campaignLeads).Error; err != nil {
		cc.Logger.Printf("Failed to load pending leads for campaign %d: %v", campaign.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load campaign leads",
		})
	}

	if len(campaignLeads) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No pending leads to schedule",
		})
	}

	var times []time.Time
	if settings.BusinessHoursOnly {
		times = utils.GenerateScheduledTimes(len(campaignLeads), nil, settings.EmailFrequency, nil)
	} else {
		times = utils.GenerateContinuousTimes(len(campaignLeads), nil, settings.EmailFrequency, nil)
	}

	scheduled := 0
	err := cc.DB.Transaction(func(tx *gorm.DB) error {
		for i := range campaignLeads {
			cl := &campaignLeads[i]

			item := models.EmailQueueItem{
				CampaignID:     campaign.ID,
				CampaignLeadID: cl.ID,
				LeadID:         cl.LeadID,
				UserID:         user.ID,
				Subject:        utils.RenderTemplate(campaign.Subject, &cl.Lead),
				Body:           utils.RenderTemplate(campaign.Body, &cl.Lead),
				ToEmail:        cl.Lead.Email,
				ScheduledFor:   times[i],
				Status:         models.QueuePending,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}

			if err := tx.Model(cl).Updates(map[string]interface{}{
				"status":        models.LeadStatusQueued,
				"next_email_at": times[i],
			}).Error; err != nil {
				return err
			}
			scheduled++
		}

		return tx.Model(&campaign).Updates(map[string]interface{}{
			"status":     models.CampaignActive,
			"started_at": time.Now(),
		}).Error
	})
	if err != nil {
		cc.Logger.Printf("Failed to activate campaign %d: %v", campaign.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to activate campaign",
		})
	}

	cc.Logger.Printf("Campaign %d activated with %d scheduled sends", campaign.ID, scheduled)

	return c.JSON(fiber.Map{
		"message":   "Campaign activated",
		"scheduled": scheduled,
		"first_at":  times[0],
		"last_at":   times[len(times)-1],
	})
}
