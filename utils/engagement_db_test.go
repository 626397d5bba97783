package utils

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"coldreach/models"
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

func TestProcessReplyScopedToMailboxOwner(t *testing.T) {
	db := newTestDB(t)

	sender := models.Sender{UserID: 1, Name: "primary", FromEmail: "me@boxa.com", ProviderType: models.ProviderSMTP}
	require.NoError(t, db.Create(&sender).Error)

	campaignA := models.Campaign{UserID: 1, Name: "a", Subject: "s", Body: "b", Status: models.CampaignActive}
	campaignB := models.Campaign{UserID: 2, Name: "b", Subject: "s", Body: "b", Status: models.CampaignActive}
	require.NoError(t, db.Create(&campaignA).Error)
	require.NoError(t, db.Create(&campaignB).Error)

	// Both users track the same contact address; user 2's rows are newer.
	leadA := models.Lead{UserID: 1, Email: "jordan@acme.io"}
	leadB := models.Lead{UserID: 2, Email: "jordan@acme.io"}
	require.NoError(t, db.Create(&leadA).Error)
	require.NoError(t, db.Create(&leadB).Error)

	now := time.Now()
	clA := models.CampaignLead{CampaignID: campaignA.ID, LeadID: leadA.ID, Status: models.LeadStatusSent, SentAt: &now}
	clB := models.CampaignLead{CampaignID: campaignB.ID, LeadID: leadB.ID, Status: models.LeadStatusSent, SentAt: &now}
	require.NoError(t, db.Create(&clA).Error)
	require.NoError(t, db.Create(&clB).Error)

	err := ProcessReply(db, &AIClient{}, InboundReply{
		LeadEmail: "jordan@acme.io",
		Mailbox:   "me@boxa.com",
		Body:      "thanks, passing this time",
	}, "webhook")
	require.NoError(t, err)

	// The mailbox belongs to user 1, so only user 1's rows move.
	var gotA, gotB models.CampaignLead
	require.NoError(t, db.First(&gotA, clA.ID).Error)
	require.NoError(t, db.First(&gotB, clB.ID).Error)
	assert.Equal(t, models.LeadStatusReplied, gotA.Status)
	assert.NotNil(t, gotA.RepliedAt)
	assert.Equal(t, models.LeadStatusSent, gotB.Status)
	assert.Nil(t, gotB.RepliedAt)

	var eventsA, eventsB int64
	db.Model(&models.EmailEvent{}).Where("campaign_lead_id = ?", clA.ID).Count(&eventsA)
	db.Model(&models.EmailEvent{}).Where("campaign_lead_id = ?", clB.ID).Count(&eventsB)
	assert.EqualValues(t, 1, eventsA)
	assert.EqualValues(t, 0, eventsB)
}

func TestProcessReplyRejectsUnknownMailbox(t *testing.T) {
	db := newTestDB(t)

	lead := models.Lead{UserID: 1, Email: "jordan@acme.io"}
	require.NoError(t, db.Create(&lead).Error)

	err := ProcessReply(db, &AIClient{}, InboundReply{
		LeadEmail: "jordan@acme.io",
		Mailbox:   "ghost@nowhere.io",
		Body:      "hello",
	}, "webhook")
	assert.Error(t, err)

	err = ProcessReply(db, &AIClient{}, InboundReply{
		LeadEmail: "jordan@acme.io",
		Body:      "hello",
	}, "webhook")
	assert.Error(t, err)

	var events int64
	db.Model(&models.EmailEvent{}).Count(&events)
	assert.EqualValues(t, 0, events)
}

func TestProcessReplyPositiveSentimentSurfacesHotLead(t *testing.T) {
	db := newTestDB(t)

	sender := models.Sender{UserID: 1, Name: "primary", FromEmail: "me@boxa.com", ProviderType: models.ProviderSMTP}
	require.NoError(t, db.Create(&sender).Error)
	campaign := models.Campaign{UserID: 1, Name: "c", Subject: "s", Body: "b", Status: models.CampaignActive}
	require.NoError(t, db.Create(&campaign).Error)
	lead := models.Lead{UserID: 1, Email: "jordan@acme.io"}
	require.NoError(t, db.Create(&lead).Error)
	now := time.Now()
	cl := models.CampaignLead{CampaignID: campaign.ID, LeadID: lead.ID, Status: models.LeadStatusSent, SentAt: &now}
	require.NoError(t, db.Create(&cl).Error)

	reply := InboundReply{
		LeadEmail: "jordan@acme.io",
		Mailbox:   "me@boxa.com",
		Body:      "Sounds good, let's schedule a call",
	}
	require.NoError(t, ProcessReply(db, &AIClient{}, reply, "webhook"))

	var hot models.HotLead
	require.NoError(t, db.Where("campaign_lead_id = ?", cl.ID).First(&hot).Error)
	assert.Equal(t, 100, hot.EngagementScore)
	assert.Equal(t, uint(1), hot.UserID)

	// Re-ingesting is idempotent on the hot-lead record.
	require.NoError(t, ProcessReply(db, &AIClient{}, reply, "imap"))
	var hotCount int64
	db.Model(&models.HotLead{}).Where("campaign_lead_id = ?", cl.ID).Count(&hotCount)
	assert.EqualValues(t, 1, hotCount)
}
