package worker

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
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

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func seedDeliveredLead(t *testing.T, db *gorm.DB, sentAgo time.Duration) (*models.Campaign, *models.CampaignLead) {
	t.Helper()

	campaign := models.Campaign{UserID: 1, Name: "launch", Subject: "Quick question", Body: "<p>Hi {{first_name}}</p>", Status: models.CampaignActive}
	require.NoError(t, db.Create(&campaign).Error)
	lead := models.Lead{UserID: 1, Email: "jordan@acme.io", FirstName: "Jordan"}
	require.NoError(t, db.Create(&lead).Error)
	sentAt := time.Now().Add(-sentAgo)
	cl := models.CampaignLead{CampaignID: campaign.ID, LeadID: lead.ID, Status: models.LeadStatusSent, SentAt: &sentAt}
	require.NoError(t, db.Create(&cl).Error)
	return &campaign, &cl
}

func TestReplyCancelsScheduledFollowUpWithoutRegeneration(t *testing.T) {
	db := newTestDB(t)

	sender := models.Sender{UserID: 1, Name: "primary", FromEmail: "me@boxa.com", ProviderType: models.ProviderSMTP}
	require.NoError(t, db.Create(&sender).Error)
	_, cl := seedDeliveredLead(t, db, 48*time.Hour)

	followUp := models.FollowUp{
		CampaignLeadID: cl.ID,
		LeadID:         cl.LeadID,
		CampaignID:     cl.CampaignID,
		UserID:         1,
		Subject:        "Following up",
		Body:           "<p>bump</p>",
		ScheduledFor:   time.Now().Add(24 * time.Hour),
		Status:         models.FollowUpScheduled,
		ABVariant:      models.VariantA,
	}
	require.NoError(t, db.Create(&followUp).Error)

	err := utils.ProcessReply(db, &utils.AIClient{}, utils.InboundReply{
		LeadEmail: "jordan@acme.io",
		Mailbox:   "me@boxa.com",
		Body:      "thanks, passing this time",
	}, "webhook")
	require.NoError(t, err)

	var gotFU models.FollowUp
	require.NoError(t, db.First(&gotFU, followUp.ID).Error)
	assert.Equal(t, models.FollowUpCancelled, gotFU.Status)

	var gotCL models.CampaignLead
	require.NoError(t, db.First(&gotCL, cl.ID).Error)
	assert.Equal(t, models.LeadStatusReplied, gotCL.Status)

	// A responder must not get a replacement follow-up on the next pass.
	w := &FollowUpWorker{DB: db, Logger: quietLogger(), AI: &utils.AIClient{}, Interval: time.Minute}
	w.GenerateFollowUps()

	var followUps int64
	db.Model(&models.FollowUp{}).Where("campaign_lead_id = ?", cl.ID).Count(&followUps)
	assert.EqualValues(t, 1, followUps)
}

func TestGenerateFollowUpsSchedulesForEngagedLead(t *testing.T) {
	db := newTestDB(t)
	_, cl := seedDeliveredLead(t, db, 48*time.Hour)

	for i := 0; i < 2; i++ {
		require.NoError(t, utils.RecordEvent(db, cl.ID, models.EventOpened, models.EventPayload{Source: "pixel"}))
	}

	w := &FollowUpWorker{DB: db, Logger: quietLogger(), AI: &utils.AIClient{}, Interval: time.Minute}
	w.GenerateFollowUps()

	var fu models.FollowUp
	require.NoError(t, db.Where("campaign_lead_id = ?", cl.ID).First(&fu).Error)
	assert.Equal(t, models.FollowUpScheduled, fu.Status)
	assert.Equal(t, 10, fu.EngagementScore)
	assert.Equal(t, utils.AssignABVariant(cl.ID), fu.ABVariant)
	assert.NotEmpty(t, fu.Subject)
	assert.NotEmpty(t, fu.Body)

	expected := utils.CalculateFollowUpDate(*cl.SentAt, models.TimingThreeDays)
	assert.WithinDuration(t, expected, fu.ScheduledFor, time.Second)

	// Idempotent: a second pass sees the scheduled follow-up and skips the lead.
	w.GenerateFollowUps()
	var followUps int64
	db.Model(&models.FollowUp{}).Where("campaign_lead_id = ?", cl.ID).Count(&followUps)
	assert.EqualValues(t, 1, followUps)
}

func TestGenerateFollowUpsSurfacesHotLeadInstead(t *testing.T) {
	db := newTestDB(t)
	_, cl := seedDeliveredLead(t, db, 48*time.Hour)

	for i := 0; i < 3; i++ {
		require.NoError(t, utils.RecordEvent(db, cl.ID, models.EventOpened, models.EventPayload{Source: "pixel"}))
		require.NoError(t, utils.RecordEvent(db, cl.ID, models.EventClicked, models.EventPayload{Source: "redirect"}))
	}

	w := &FollowUpWorker{DB: db, Logger: quietLogger(), AI: &utils.AIClient{}, Interval: time.Minute}
	w.GenerateFollowUps()

	var hot models.HotLead
	require.NoError(t, db.Where("campaign_lead_id = ?", cl.ID).First(&hot).Error)
	assert.Equal(t, uint(1), hot.UserID)

	var followUps int64
	db.Model(&models.FollowUp{}).Where("campaign_lead_id = ?", cl.ID).Count(&followUps)
	assert.EqualValues(t, 0, followUps)

	var gotCL models.CampaignLead
	require.NoError(t, db.First(&gotCL, cl.ID).Error)
	assert.Equal(t, models.LeadStatusHot, gotCL.Status)
}

func TestSweepDormantLeads(t *testing.T) {
	db := newTestDB(t)

	campaign := models.Campaign{UserID: 1, Name: "launch", Subject: "s", Body: "b", Status: models.CampaignActive}
	require.NoError(t, db.Create(&campaign).Error)

	mkLead := func(email string, status models.CampaignLeadStatus, sentAgo time.Duration) *models.CampaignLead {
		lead := models.Lead{UserID: 1, Email: email}
		require.NoError(t, db.Create(&lead).Error)
		sentAt := time.Now().Add(-sentAgo)
		cl := models.CampaignLead{CampaignID: campaign.ID, LeadID: lead.ID, Status: status, SentAt: &sentAt}
		if status == models.LeadStatusReplied {
			repliedAt := time.Now().Add(-sentAgo / 2)
			cl.RepliedAt = &repliedAt
		}
		require.NoError(t, db.Create(&cl).Error)
		return &cl
	}

	// Default loop window is 14 days.
	dormant := mkLead("old@acme.io", models.LeadStatusSent, 20*24*time.Hour)
	replied := mkLead("replied@acme.io", models.LeadStatusReplied, 20*24*time.Hour)
	fresh := mkLead("fresh@acme.io", models.LeadStatusSent, 5*24*time.Hour)

	w := &LoopWorker{DB: db, Logger: quietLogger(), Interval: time.Hour}
	w.SweepDormantLeads()

	var got models.CampaignLead
	require.NoError(t, db.First(&got, dormant.ID).Error)
	assert.Equal(t, models.LeadStatusPending, got.Status)
	assert.Nil(t, got.SentAt)
	assert.Nil(t, got.OpenedAt)
	assert.Nil(t, got.RepliedAt)
	assert.Nil(t, got.NextEmailAt)
	assert.Equal(t, 1, got.LoopCount)

	got = models.CampaignLead{}
	require.NoError(t, db.First(&got, replied.ID).Error)
	assert.Equal(t, models.LeadStatusReplied, got.Status)
	assert.NotNil(t, got.SentAt)
	assert.Equal(t, 0, got.LoopCount)

	got = models.CampaignLead{}
	require.NoError(t, db.First(&got, fresh.ID).Error)
	assert.Equal(t, models.LeadStatusSent, got.Status)
	assert.NotNil(t, got.SentAt)
	assert.Equal(t, 0, got.LoopCount)
}
