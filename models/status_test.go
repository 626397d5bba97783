package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCampaignLeadStatusTransitions(t *testing.T) {
	allowed := []struct {
		from, to CampaignLeadStatus
	}{
		{LeadStatusPending, LeadStatusQueued},
		{LeadStatusQueued, LeadStatusSent},
		{LeadStatusQueued, LeadStatusFailed},
		{LeadStatusQueued, LeadStatusBounced},
		{LeadStatusSent, LeadStatusOpened},
		{LeadStatusSent, LeadStatusReplied},
		{LeadStatusSent, LeadStatusHot},
		{LeadStatusSent, LeadStatusPending}, // loop reset
		{LeadStatusOpened, LeadStatusReplied},
		{LeadStatusOpened, LeadStatusHot},
		{LeadStatusOpened, LeadStatusPending}, // loop reset
		{LeadStatusReplied, LeadStatusHot},
		{LeadStatusFailed, LeadStatusPending}, // manual requeue
	}
	for _, tr := range allowed {
		assert.True(t, tr.from.CanTransition(tr.to), "%s -> %s should be allowed", tr.from, tr.to)
	}

	denied := []struct {
		from, to CampaignLeadStatus
	}{
		{LeadStatusPending, LeadStatusSent},
		{LeadStatusQueued, LeadStatusOpened},
		{LeadStatusReplied, LeadStatusPending}, // responders never loop
		{LeadStatusHot, LeadStatusPending},
		{LeadStatusHot, LeadStatusReplied},
		{LeadStatusOpened, LeadStatusSent},
		{LeadStatusBounced, LeadStatusPending},
	}
	for _, tr := range denied {
		assert.False(t, tr.from.CanTransition(tr.to), "%s -> %s should be denied", tr.from, tr.to)
	}
}

func TestCampaignLeadStatusDelivered(t *testing.T) {
	assert.True(t, LeadStatusSent.Delivered())
	assert.True(t, LeadStatusOpened.Delivered())
	assert.False(t, LeadStatusPending.Delivered())
	assert.False(t, LeadStatusReplied.Delivered())
	assert.False(t, LeadStatusHot.Delivered())
}

func TestQueueStatusTransitions(t *testing.T) {
	assert.True(t, QueuePending.CanTransition(QueueSending))
	assert.True(t, QueueSending.CanTransition(QueueSent))
	assert.True(t, QueueSending.CanTransition(QueueFailed))
	assert.True(t, QueueFailed.CanTransition(QueuePending))

	assert.False(t, QueuePending.CanTransition(QueueSent), "items must be claimed before sending")
	assert.False(t, QueueSent.CanTransition(QueuePending))
	assert.False(t, QueueSent.CanTransition(QueueFailed))

	assert.True(t, QueueSent.Terminal())
	assert.True(t, QueueFailed.Terminal())
	assert.False(t, QueuePending.Terminal())
	assert.False(t, QueueSending.Terminal())
}

func TestFollowUpStatusTransitions(t *testing.T) {
	assert.True(t, FollowUpDraft.CanTransition(FollowUpScheduled))
	assert.True(t, FollowUpDraft.CanTransition(FollowUpCancelled))
	assert.True(t, FollowUpScheduled.CanTransition(FollowUpSent))
	assert.True(t, FollowUpScheduled.CanTransition(FollowUpFailed))
	assert.True(t, FollowUpScheduled.CanTransition(FollowUpCancelled))

	assert.False(t, FollowUpSent.CanTransition(FollowUpCancelled))
	assert.False(t, FollowUpCancelled.CanTransition(FollowUpScheduled))
	assert.False(t, FollowUpFailed.CanTransition(FollowUpScheduled), "failed follow-ups are never retried automatically")

	assert.True(t, FollowUpDraft.Active())
	assert.True(t, FollowUpScheduled.Active())
	assert.False(t, FollowUpSent.Active())
	assert.False(t, FollowUpCancelled.Active())
}

func TestStatusValidity(t *testing.T) {
	assert.True(t, CampaignActive.Valid())
	assert.False(t, CampaignStatus("archived").Valid())
	assert.True(t, LeadStatusHot.Valid())
	assert.False(t, CampaignLeadStatus("clicked").Valid(), "clicks are events, not lifecycle states")
	assert.True(t, QueueSending.Valid())
	assert.False(t, QueueStatus("retrying").Valid())
	assert.True(t, HotLeadContacted.Valid())
	assert.False(t, HotLeadStatus("ignored").Valid())
	assert.True(t, EventReplied.Valid())
	assert.False(t, EmailEventType("bounced").Valid())
}

func TestLeadName(t *testing.T) {
	l := &Lead{FirstName: "Ada", LastName: "Byron", Email: "ada@acme.io"}
	assert.Equal(t, "Ada Byron", l.Name())

	assert.Equal(t, "Ada", (&Lead{FirstName: "Ada"}).Name())
	assert.Equal(t, "Byron", (&Lead{LastName: "Byron"}).Name())
	assert.Equal(t, "ada@acme.io", (&Lead{Email: "ada@acme.io"}).Name())
}

func TestSenderCapabilities(t *testing.T) {
	s := &Sender{OAuthProvider: "google", OAuthToken: "enc"}
	assert.True(t, s.HasOAuth())
	assert.False(t, s.HasSMTP())

	s = &Sender{SMTPHost: "smtp.acme.io", SMTPPort: 587}
	assert.True(t, s.HasSMTP())
	assert.False(t, s.HasOAuth())

	s = &Sender{
		SMTPPassword:      "a",
		IMAPPassword:      "b",
		OAuthToken:        "c",
		OAuthRefreshToken: "d",
	}
	s.Sanitize()
	assert.Empty(t, s.SMTPPassword)
	assert.Empty(t, s.IMAPPassword)
	assert.Empty(t, s.OAuthToken)
	assert.Empty(t, s.OAuthRefreshToken)
}
