package worker

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"

	"coldreach/config"
	"coldreach/models"
	"coldreach/utils"
)

const queueBatchSize = 10

// QueueWorker is the delivery loop. Every tick it claims a small batch of due
// queue items and pushes them through the transport chain. The claim is an
// atomic conditional update so concurrent workers never double-send.
type QueueWorker struct {
	DB       *gorm.DB
	Logger   *log.Logger
	Interval time.Duration

	lastResetDay int
}

func NewQueueWorker(db *gorm.DB) *QueueWorker {
	return &QueueWorker{
		DB:       db,
		Logger:   log.New(os.Stdout, "QUEUE: ", log.LstdFlags),
		Interval: 30 * time.Second,
	}
}

func (w *QueueWorker) Start(ctx context.Context) {
	w.Logger.Println("Delivery worker started")
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Logger.Println("Delivery worker stopped")
			return
		case <-ticker.C:
			w.ResetDailyCounters()
			w.ProcessDueItems()
		}
	}
}

// ProcessDueItems sends one batch of due queue items. Per-item failures are
// recorded on the item and never abort the batch.
func (w *QueueWorker) ProcessDueItems() {
	var items []models.EmailQueueItem
	err := w.DB.
		Joins("JOIN campaigns ON campaigns.id = email_queue_items.campaign_id").
		Where("email_queue_items.status = ? AND email_queue_items.scheduled_for <= ?",
			models.QueuePending, time.Now()).
		Where("campaigns.status = ?", models.CampaignActive).
		Order("email_queue_items.scheduled_for asc").
		Limit(queueBatchSize).
		Find(&items).Error
	if err != nil {
		w.Logger.Printf("Failed to load due queue items: %v", err)
		return
	}
	if len(items) == 0 {
		return
	}

	// Transport chains are per user; resolve once per owner in the batch.
	chains := make(map[uint][]utils.Transport)

	sent, failed, skipped := 0, 0, 0
	for i := range items {
		item := &items[i]

		// Claim: only the worker that flips pending -> sending owns the item.
		claim := w.DB.Model(&models.EmailQueueItem{}).
			Where("id = ? AND status = ?", item.ID, models.QueuePending).
			Update("status", models.QueueSending)
		if claim.Error != nil || claim.RowsAffected == 0 {
			skipped++
			continue
		}

		transports, ok := chains[item.UserID]
		if !ok {
			var err error
			transports, err = utils.ResolveTransports(w.DB, item.UserID)
			if err != nil {
				w.failItem(item, err)
				failed++
				continue
			}
			chains[item.UserID] = transports
		}

		body := utils.InjectTracking(item.Body, config.AppConfig.BaseURL, item.CampaignLeadID)
		messageID, transportName, err := utils.SendWithFallback(transports, item.ToEmail, item.Subject, body)
		if err != nil {
			w.failItem(item, err)
			failed++
			continue
		}

		now := time.Now()
		w.DB.Model(item).Updates(map[string]interface{}{
			"status":     models.QueueSent,
			"attempts":   gorm.Expr("attempts + 1"),
			"sent_at":    now,
			"message_id": messageID,
			"last_error": nil,
		})

		// The campaign lead moves in lockstep with its queue item.
		w.DB.Model(&models.CampaignLead{}).
			Where("id = ? AND status = ?", item.CampaignLeadID, models.LeadStatusQueued).
			Updates(map[string]interface{}{
				"status":  models.LeadStatusSent,
				"sent_at": now,
			})
		w.DB.Model(&models.Campaign{}).Where("id = ?", item.CampaignID).
			Update("sent_count", gorm.Expr("sent_count + 1"))

		w.bumpSenderCounters(item.UserID, transportName, now)
		sent++
	}

	w.Logger.Printf("Batch done: %d sent, %d failed, %d skipped", sent, failed, skipped)
}

func (w *QueueWorker) failItem(item *models.EmailQueueItem, sendErr error) {
	msg := sendErr.Error()
	w.Logger.Printf("Delivery failed for queue item %d (%s): %v", item.ID, item.ToEmail, sendErr)

	w.DB.Model(item).Updates(map[string]interface{}{
		"status":     models.QueueFailed,
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": msg,
	})
	w.DB.Model(&models.CampaignLead{}).
		Where("id = ? AND status = ?", item.CampaignLeadID, models.LeadStatusQueued).
		Update("status", models.LeadStatusFailed)
}

// bumpSenderCounters attributes the send to the mailbox that carried it. The
// transport name encodes the from address; the platform fallback has no
// sender row to update.
func (w *QueueWorker) bumpSenderCounters(userID uint, transportName string, sentAt time.Time) {
	if transportName == "platform" {
		return
	}
	idx := strings.LastIndex(transportName, ":")
	if idx < 0 {
		return
	}
	fromEmail := transportName[idx+1:]

	w.DB.Model(&models.Sender{}).
		Where("user_id = ? AND from_email = ?", userID, fromEmail).
		Updates(map[string]interface{}{
			"sent_today":   gorm.Expr("sent_today + 1"),
			"total_sent":   gorm.Expr("total_sent + 1"),
			"last_sent_at": sentAt,
		})
}

// ResetDailyCounters zeroes every sender's sent_today once per calendar day.
func (w *QueueWorker) ResetDailyCounters() {
	today := time.Now().YearDay()
	if w.lastResetDay == today {
		return
	}
	w.lastResetDay = today

	result := w.DB.Model(&models.Sender{}).
		Where("sent_today > 0").
		Update("sent_today", 0)
	if result.Error != nil {
		w.Logger.Printf("Failed to reset daily counters: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		w.Logger.Printf("Reset daily counters for %d senders", result.RowsAffected)
	}
}
