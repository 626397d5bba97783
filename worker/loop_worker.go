package worker

import (
	"context"
	"log"
	"os"
	"time"

	"gorm.io/gorm"

	"coldreach/models"
)

// LoopWorker re-feeds dormant leads into the pipeline. A lead that was
// delivered but never replied goes back to pending after the owner's
// loop_after_days window, ready for the next activation. Replied and hot
// leads are never looped.
type LoopWorker struct {
	DB       *gorm.DB
	Logger   *log.Logger
	Interval time.Duration
}

func NewLoopWorker(db *gorm.DB) *LoopWorker {
	return &LoopWorker{
		DB:       db,
		Logger:   log.New(os.Stdout, "LOOP: ", log.LstdFlags),
		Interval: 1 * time.Hour,
	}
}

func (w *LoopWorker) Start(ctx context.Context) {
	w.Logger.Println("Loop worker started")
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Logger.Println("Loop worker stopped")
			return
		case <-ticker.C:
			w.SweepDormantLeads()
		}
	}
}

// SweepDormantLeads resets stale delivered leads campaign by campaign, so
// each owner's loop_after_days setting is applied to their own campaigns.
func (w *LoopWorker) SweepDormantLeads() {
	var campaigns []models.Campaign
	if err := w.DB.Where("status = ?", models.CampaignActive).
		Find(&campaigns).Error; err != nil {
		w.Logger.Printf("Failed to load active campaigns: %v", err)
		return
	}

	total := int64(0)
	for i := range campaigns {
		campaign := &campaigns[i]
		settings := models.SettingsForUser(w.DB, campaign.UserID)
		cutoff := time.Now().AddDate(0, 0, -settings.LoopAfterDays)

		result := w.DB.Model(&models.CampaignLead{}).
			Where("campaign_id = ?", campaign.ID).
			Where("status IN ?",
				[]models.CampaignLeadStatus{models.LeadStatusSent, models.LeadStatusOpened}).
			Where("sent_at IS NOT NULL AND sent_at < ?", cutoff).
			Updates(map[string]interface{}{
				"status":        models.LeadStatusPending,
				"sent_at":       nil,
				"opened_at":     nil,
				"replied_at":    nil,
				"next_email_at": nil,
				"loop_count":    gorm.Expr("loop_count + 1"),
			})
		if result.Error != nil {
			w.Logger.Printf("Loop sweep failed for campaign %d: %v", campaign.ID, result.Error)
			continue
		}
		if result.RowsAffected > 0 {
			w.Logger.Printf("Campaign %d: %d dormant leads reset to pending", campaign.ID, result.RowsAffected)
			total += result.RowsAffected
		}
	}

	if total > 0 {
		w.Logger.Printf("Loop sweep done: %d leads recycled", total)
	}
}
