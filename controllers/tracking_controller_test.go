package controller

import (
	"io"
	"log"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"coldreach/models"
	"coldreach/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A pooled connection to a fresh :memory: database is a fresh database;
	// pin the pool to one connection so every query sees the same store.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Sender{},
		&models.Campaign{},
		&models.CampaignLead{},
		&models.LeadList{},
		&models.Lead{},
		&models.LeadListMembership{},
		&models.EmailQueueItem{},
		&models.EmailEvent{},
		&models.HotLead{},
		&models.FollowUp{},
		&models.AutomationSettings{},
	))
	return db
}

func TestOpenPixelTransitionsOnlyOnce(t *testing.T) {
	db := newTestDB(t)

	campaign := models.Campaign{UserID: 1, Name: "c", Subject: "s", Body: "b", Status: models.CampaignActive}
	require.NoError(t, db.Create(&campaign).Error)
	lead := models.Lead{UserID: 1, Email: "jordan@acme.io"}
	require.NoError(t, db.Create(&lead).Error)
	sentAt := time.Now().Add(-time.Hour)
	cl := models.CampaignLead{CampaignID: campaign.ID, LeadID: lead.ID, Status: models.LeadStatusSent, SentAt: &sentAt}
	require.NoError(t, db.Create(&cl).Error)

	tc := &TrackingController{DB: db, Logger: log.New(io.Discard, "", 0), AI: &utils.AIClient{}}
	app := fiber.New()
	app.Get("/track/open/:token", tc.HandleOpenPixel)

	url := "/track/open/" + utils.EncodeTrackingToken(cl.ID)
	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", url, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/gif", resp.Header.Get("Content-Type"))
	}

	var got models.CampaignLead
	require.NoError(t, db.First(&got, cl.ID).Error)
	assert.Equal(t, models.LeadStatusOpened, got.Status)
	assert.NotNil(t, got.OpenedAt)

	// Every open is recorded, but the counter and lifecycle move only once.
	var events int64
	db.Model(&models.EmailEvent{}).
		Where("campaign_lead_id = ? AND event_type = ?", cl.ID, models.EventOpened).
		Count(&events)
	assert.EqualValues(t, 2, events)

	var gotCampaign models.Campaign
	require.NoError(t, db.First(&gotCampaign, campaign.ID).Error)
	assert.Equal(t, 1, gotCampaign.OpenCount)
}

func TestOpenPixelInvalidTokenStillRendersPixel(t *testing.T) {
	db := newTestDB(t)

	tc := &TrackingController{DB: db, Logger: log.New(io.Discard, "", 0), AI: &utils.AIClient{}}
	app := fiber.New()
	app.Get("/track/open/:token", tc.HandleOpenPixel)

	resp, err := app.Test(httptest.NewRequest("GET", "/track/open/not-a-token", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/gif", resp.Header.Get("Content-Type"))

	var events int64
	db.Model(&models.EmailEvent{}).Count(&events)
	assert.EqualValues(t, 0, events)
}
