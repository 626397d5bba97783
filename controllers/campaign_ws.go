package controller

import (
	"log"
	"time"

	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"

	"coldreach/models"
)

// progressFrame is one websocket snapshot of a running campaign.
type progressFrame struct {
	CampaignID uint                  `json:"campaign_id"`
	Status     models.CampaignStatus `json:"status"`
	TotalLeads int                   `json:"total_leads"`
	Queued     int64                 `json:"queued"`
	Sent       int64                 `json:"sent"`
	Opened     int64                 `json:"opened"`
	Replied    int64                 `json:"replied"`
	Failed     int64                 `json:"failed"`
	HotLeads   int64                 `json:"hot_leads"`
	Timestamp  time.Time             `json:"timestamp"`
}

// HandleCampaignProgressWS streams campaign progress snapshots every two
// seconds until the client disconnects or the campaign stops being active.
// The userID local is set by the middleware before the websocket upgrade.
func HandleCampaignProgressWS(db *gorm.DB, logger *log.Logger) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		userID, ok := c.Locals("userID").(uint)
		if !ok {
			c.WriteJSON(map[string]string{"error": "unauthorized"})
			return
		}

		var campaign models.Campaign
		if err := db.Where("id = ? AND user_id = ?", c.Params("id"), userID).
			First(&campaign).Error; err != nil {
			c.WriteJSON(map[string]string{"error": "campaign not found"})
			return
		}

		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		for {
			if err := db.First(&campaign, campaign.ID).Error; err != nil {
				return
			}

			frame := progressFrame{
				CampaignID: campaign.ID,
				Status:     campaign.Status,
				TotalLeads: campaign.TotalLeads,
				Queued:     countLeads(db, campaign.ID, models.LeadStatusQueued),
				Sent:       countLeads(db, campaign.ID, models.LeadStatusSent),
				Opened:     countLeads(db, campaign.ID, models.LeadStatusOpened),
				Replied:    countLeads(db, campaign.ID, models.LeadStatusReplied),
				Failed:     countLeads(db, campaign.ID, models.LeadStatusFailed),
				Timestamp:  time.Now(),
			}
			db.Model(&models.HotLead{}).
				Where("campaign_id = ?", campaign.ID).Count(&frame.HotLeads)

			if err := c.WriteJSON(frame); err != nil {
				return
			}

			if campaign.Status != models.CampaignActive {
				return
			}

			<-ticker.C
		}
	}
}

func countLeads(db *gorm.DB, campaignID uint, status models.CampaignLeadStatus) int64 {
	var n int64
	db.Model(&models.CampaignLead{}).
		Where("campaign_id = ? AND status = ?", campaignID, status).Count(&n)
	return n
}
