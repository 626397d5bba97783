package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"coldreach/models"
	"coldreach/utils"
)

// TrackingController handles the three public engagement ingress points.
// These endpoints are consumed by email recipients and their providers, so
// they must never fail visibly: the pixel always renders and the redirect
// always happens, whatever goes wrong internally.
type TrackingController struct {
	DB     *gorm.DB
	Logger *log.Logger
	AI     *utils.AIClient
}

func NewTrackingController(db *gorm.DB, logger *log.Logger) *TrackingController {
	return &TrackingController{
		DB:     db,
		Logger: logger,
		AI:     utils.NewAIClient(),
	}
}

// HandleOpenPixel records an email open and returns a 1x1 transparent GIF.
func (tc *TrackingController) HandleOpenPixel(c *fiber.Ctx) error {
	token := c.Params("token")

	campaignLeadID, err := utils.DecodeTrackingToken(token)
	if err != nil {
		tc.Logger.Printf("Invalid open token: %v", err)
		return tc.sendPixel(c)
	}

	if err := utils.RecordEvent(tc.DB, campaignLeadID, models.EventOpened, models.EventPayload{
		UserAgent: c.Get("User-Agent"),
		IPAddress: c.IP(),
		Source:    "pixel",
	}); err != nil {
		tc.Logger.Printf("Failed to record open event for campaign lead %d: %v", campaignLeadID, err)
		return tc.sendPixel(c)
	}

	// Only the first open moves the lifecycle; later opens just add events.
	var campaignLead models.CampaignLead
	if err := tc.DB.First(&campaignLead, campaignLeadID).Error; err == nil &&
		campaignLead.Status == models.LeadStatusSent {
		if err := tc.DB.Model(&campaignLead).Updates(map[string]interface{}{
			"status":    models.LeadStatusOpened,
			"opened_at": time.Now(),
		}).Error; err != nil {
			tc.Logger.Printf("Failed to mark campaign lead %d opened: %v", campaignLeadID, err)
		} else {
			tc.DB.Model(&models.Campaign{}).Where("id = ?", campaignLead.CampaignID).
				Update("open_count", gorm.Expr("open_count + 1"))
		}
	}

	return tc.sendPixel(c)
}

// HandleClickRedirect records a link click and redirects to the original URL.
// The redirect happens regardless of logging success.
func (tc *TrackingController) HandleClickRedirect(c *fiber.Ctx) error {
	token := c.Params("token")
	originalURL := c.Query("url")
	if originalURL == "" {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	campaignLeadID, err := utils.DecodeTrackingToken(token)
	if err != nil {
		tc.Logger.Printf("Invalid click token: %v", err)
		return c.Redirect(originalURL, fiber.StatusFound)
	}

	if err := utils.RecordEvent(tc.DB, campaignLeadID, models.EventClicked, models.EventPayload{
		UserAgent: c.Get("User-Agent"),
		IPAddress: c.IP(),
		URL:       originalURL,
		Source:    "redirect",
	}); err != nil {
		tc.Logger.Printf("Failed to record click event for campaign lead %d: %v", campaignLeadID, err)
	} else {
		var campaignLead models.CampaignLead
		if err := tc.DB.First(&campaignLead, campaignLeadID).Error; err == nil {
			tc.DB.Model(&models.Campaign{}).Where("id = ?", campaignLead.CampaignID).
				Update("click_count", gorm.Expr("click_count + 1"))
		}
	}

	return c.Redirect(originalURL, fiber.StatusFound)
}

// HandleReplyWebhook ingests inbound reply notifications. Provider payloads
// come in several shapes; an unrecognized shape gets a neutral response so
// the provider does not retry-storm us.
func (tc *TrackingController) HandleReplyWebhook(c *fiber.Ctx) error {
	reply, ok := utils.NormalizeReplyPayload(c.Body())
	if !ok {
		return c.JSON(fiber.Map{"message": "no handler matched"})
	}

	if err := utils.ProcessReply(tc.DB, tc.AI, reply, "webhook"); err != nil {
		tc.Logger.Printf("Reply processing failed for %s: %v", reply.LeadEmail, err)
	}

	return c.JSON(fiber.Map{"message": "Webhook processed successfully"})
}

func (tc *TrackingController) sendPixel(c *fiber.Ctx) error {
	return c.Type("gif").Send(transparentPixel())
}

func transparentPixel() []byte {
	// 1x1 transparent GIF
	return []byte{
		0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
		0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x21,
		0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00,
		0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44,
		0x01, 0x00, 0x3b,
	}
}
