package worker

import (
	"context"
	"log"
	"os"
	"time"

	"gorm.io/gorm"

	"coldreach/config"
	"coldreach/models"
	"coldreach/utils"
)

const (
	followupGenerationBatch = 25
	followupDispatchBatch   = 5
	followupMinScore        = 5
)

// FollowUpWorker runs two passes per tick: a generation pass that turns
// engaged-but-silent leads into scheduled follow-ups, and a dispatch pass that
// sends the ones whose time has come.
type FollowUpWorker struct {
	DB       *gorm.DB
	Logger   *log.Logger
	AI       *utils.AIClient
	Interval time.Duration
}

func NewFollowUpWorker(db *gorm.DB) *FollowUpWorker {
	return &FollowUpWorker{
		DB:       db,
		Logger:   log.New(os.Stdout, "FOLLOWUP: ", log.LstdFlags),
		AI:       utils.NewAIClient(),
		Interval: 5 * time.Minute,
	}
}

func (w *FollowUpWorker) Start(ctx context.Context) {
	w.Logger.Println("Follow-up worker started")
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Logger.Println("Follow-up worker stopped")
			return
		case <-ticker.C:
			w.GenerateFollowUps()
			w.DispatchDueFollowUps()
		}
	}
}

// GenerateFollowUps scores delivered leads in active campaigns and schedules
// a follow-up for the ones in a rule's band. Hot leads are surfaced instead
// of followed up; barely engaged leads are left alone.
func (w *FollowUpWorker) GenerateFollowUps() {
	var candidates []models.CampaignLead
	err := w.DB.Preload("Lead").Preload("Campaign").
		Joins("JOIN campaigns ON campaigns.id = campaign_leads.campaign_id").
		Where("campaigns.status = ?", models.CampaignActive).
		Where("campaign_leads.status IN ?",
			[]models.CampaignLeadStatus{models.LeadStatusSent, models.LeadStatusOpened}).
		Where("campaign_leads.sent_at IS NOT NULL").
		Where("NOT EXISTS (SELECT 1 FROM follow_ups WHERE follow_ups.campaign_lead_id = campaign_leads.id AND follow_ups.status <> ?)",
			models.FollowUpCancelled).
		Limit(followupGenerationBatch).
		Find(&candidates).Error
	if err != nil {
		w.Logger.Printf("Failed to load follow-up candidates: %v", err)
		return
	}

	generated, surfaced := 0, 0
	for i := range candidates {
		cl := &candidates[i]

		settings := models.SettingsForUser(w.DB, cl.Campaign.UserID)
		if !settings.FollowupEnabled {
			continue
		}

		opens, clicks, replies, err := utils.CountEngagement(w.DB, cl.ID)
		if err != nil {
			w.Logger.Printf("Failed to count engagement for campaign lead %d: %v", cl.ID, err)
			continue
		}
		engagement := utils.ScoreEngagement(opens, clicks, replies)

		if engagement.IsHot {
			if err := utils.EnsureHotLead(w.DB, cl, engagement.Score, engagement.Reasoning); err != nil {
				w.Logger.Printf("Failed to surface hot lead for campaign lead %d: %v", cl.ID, err)
			} else {
				surfaced++
			}
			continue
		}
		if engagement.Score < followupMinScore {
			continue
		}

		rule := utils.MatchFollowUpRule(utils.DefaultFollowUpRules, engagement.Score)
		if rule == nil {
			continue
		}

		// The user's preferred timing applies to the standard band; the
		// low-engagement band always waits the full week.
		timing := rule.Timing
		if rule.Timing == models.TimingThreeDays && settings.FollowupTiming != "" {
			timing = settings.FollowupTiming
		}

		variant := utils.AssignABVariant(cl.ID)
		content := w.AI.GenerateFollowUp(&cl.Lead, &cl.Campaign, engagement, variant)

		followUp := models.FollowUp{
			CampaignLeadID:  cl.ID,
			LeadID:          cl.LeadID,
			CampaignID:      cl.CampaignID,
			UserID:          cl.Campaign.UserID,
			Subject:         content.Subject,
			Body:            content.Body,
			ScheduledFor:    utils.CalculateFollowUpDate(*cl.SentAt, timing),
			Status:          models.FollowUpScheduled,
			ABVariant:       variant,
			EngagementScore: engagement.Score,
		}
		if err := w.DB.Create(&followUp).Error; err != nil {
			w.Logger.Printf("Failed to schedule follow-up for campaign lead %d: %v", cl.ID, err)
			continue
		}
		generated++
	}

	if generated > 0 || surfaced > 0 {
		w.Logger.Printf("Generation pass: %d follow-ups scheduled, %d hot leads surfaced", generated, surfaced)
	}
}

// DispatchDueFollowUps sends due scheduled follow-ups through the same
// transport chain as campaign emails. Failed follow-ups stay failed; nothing
// retries them automatically.
func (w *FollowUpWorker) DispatchDueFollowUps() {
	var due []models.FollowUp
	err := w.DB.Preload("Lead").
		Where("status = ? AND scheduled_for <= ?", models.FollowUpScheduled, time.Now()).
		Order("scheduled_for asc").
		Limit(followupDispatchBatch).
		Find(&due).Error
	if err != nil {
		w.Logger.Printf("Failed to load due follow-ups: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}

	sent, failed := 0, 0
	for i := range due {
		fu := &due[i]

		transports, err := utils.ResolveTransports(w.DB, fu.UserID)
		if err != nil {
			w.failFollowUp(fu, err)
			failed++
			continue
		}

		body := utils.InjectTracking(fu.Body, config.AppConfig.BaseURL, fu.CampaignLeadID)
		messageID, _, err := utils.SendWithFallback(transports, fu.Lead.Email, fu.Subject, body)
		if err != nil {
			w.failFollowUp(fu, err)
			failed++
			continue
		}

		now := time.Now()
		// Guarded update: a reply landing mid-send may have cancelled this
		// follow-up; the cancellation wins.
		claim := w.DB.Model(fu).
			Where("status = ?", models.FollowUpScheduled).
			Updates(map[string]interface{}{
				"status":  models.FollowUpSent,
				"sent_at": now,
			})
		if claim.RowsAffected == 0 {
			w.Logger.Printf("Follow-up %d was cancelled during dispatch", fu.ID)
			continue
		}

		// Audit row in the shared pipeline ledger.
		w.DB.Create(&models.EmailQueueItem{
			CampaignID:     fu.CampaignID,
			CampaignLeadID: fu.CampaignLeadID,
			LeadID:         fu.LeadID,
			UserID:         fu.UserID,
			Subject:        fu.Subject,
			Body:           fu.Body,
			ToEmail:        fu.Lead.Email,
			ScheduledFor:   fu.ScheduledFor,
			Status:         models.QueueSent,
			Attempts:       1,
			SentAt:         &now,
			MessageID:      messageID,
			IsFollowUp:     true,
		})
		sent++
	}

	w.Logger.Printf("Dispatch pass: %d sent, %d failed", sent, failed)
}

func (w *FollowUpWorker) failFollowUp(fu *models.FollowUp, sendErr error) {
	msg := sendErr.Error()
	w.Logger.Printf("Follow-up %d delivery failed: %v", fu.ID, sendErr)
	w.DB.Model(fu).
		Where("status = ?", models.FollowUpScheduled).
		Updates(map[string]interface{}{
			"status":     models.FollowUpFailed,
			"last_error": msg,
		})
}
