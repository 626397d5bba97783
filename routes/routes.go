package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"

	controller "coldreach/controllers"
	"coldreach/middleware"
)

// SetupRoutes wires the public tracking ingress and the authenticated API.
func SetupRoutes(app *fiber.App, db *gorm.DB) {
	trackLogger := log.New(os.Stdout, "TRACK: ", log.LstdFlags)
	campaignLogger := log.New(os.Stdout, "CAMPAIGN: ", log.LstdFlags)
	leadLogger := log.New(os.Stdout, "LEAD: ", log.LstdFlags)
	apiLogger := log.New(os.Stdout, "API: ", log.LstdFlags)

	tracking := controller.NewTrackingController(db, trackLogger)
	campaigns := controller.NewCampaignController(db, campaignLogger)
	leads := controller.NewLeadController(db, leadLogger)
	settings := controller.NewSettingsController(db, apiLogger)
	hotLeads := controller.NewHotLeadController(db, apiLogger)
	followUps := controller.NewFollowUpController(db, apiLogger)
	queue := controller.NewQueueController(db, apiLogger)
	senders := controller.NewSenderController(db, apiLogger)

	// Public tracking endpoints. Recipients and their mail providers hit
	// these; no auth, rate limited per IP.
	track := app.Group("/track", middleware.TrackingRateLimiter())
	track.Get("/open/:token", tracking.HandleOpenPixel)
	track.Get("/click/:token", tracking.HandleClickRedirect)

	// Provider webhooks post here; payload shape identifies the provider.
	app.Post("/webhooks/replies", tracking.HandleReplyWebhook)

	api := app.Group("/api/v1", middleware.Protected())

	api.Post("/campaigns", campaigns.CreateCampaign)
	api.Get("/campaigns", campaigns.GetCampaigns)
	api.Get("/campaigns/:id", campaigns.GetCampaign)
	api.Put("/campaigns/:id", campaigns.UpdateCampaign)
	api.Delete("/campaigns/:id", campaigns.DeleteCampaign)
	api.Patch("/campaigns/:id/status", campaigns.UpdateCampaignStatus)
	api.Post("/campaigns/:id/leads", campaigns.AttachLeads)
	api.Post("/campaigns/:id/activate", campaigns.ActivateCampaign)
	api.Get("/campaigns/:id/stats", campaigns.GetCampaignStats)
	api.Get("/campaigns/:id/queue", queue.GetQueueSummary)
	api.Post("/campaigns/:id/queue/requeue-failed", queue.RequeueFailed)
	api.Get("/campaigns/:id/followups", followUps.GetFollowUps)

	api.Post("/leads", leads.CreateLead)
	api.Post("/leads/import", leads.ImportLeads)
	api.Get("/leads", leads.GetLeads)
	api.Get("/leads/:id", leads.GetLead)
	api.Put("/leads/:id", leads.UpdateLead)
	api.Delete("/leads/:id", leads.DeleteLead)
	api.Post("/lead-lists", leads.CreateLeadList)
	api.Post("/lead-lists/:id/leads", leads.AddLeadsToList)

	api.Get("/settings", settings.GetSettings)
	api.Put("/settings", settings.UpdateSettings)

	api.Get("/hot-leads", hotLeads.GetHotLeads)
	api.Patch("/hot-leads/:id/status", hotLeads.UpdateHotLeadStatus)

	api.Patch("/followups/:id/cancel", followUps.CancelFollowUp)

	api.Post("/senders", senders.CreateSender)
	api.Get("/senders", senders.GetSenders)
	api.Patch("/senders/:id/status", senders.UpdateSenderStatus)
	api.Delete("/senders/:id", senders.DeleteSender)

	// Websocket progress stream. The JWT middleware runs before the upgrade,
	// so userID is already in Locals when the handler starts.
	api.Use("/campaigns/:id/progress", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/campaigns/:id/progress",
		websocket.New(controller.HandleCampaignProgressWS(db, apiLogger)))
}
