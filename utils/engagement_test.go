package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeReplyPayloadSendGrid(t *testing.T) {
	body := []byte(`{"from": "Jordan Lee <jordan@acme.io>", "to": "me@mybox.com", "text": "Sounds good"}`)

	reply, ok := NormalizeReplyPayload(body)
	require.True(t, ok)
	assert.Equal(t, "jordan@acme.io", reply.LeadEmail)
	assert.Equal(t, "me@mybox.com", reply.Mailbox)
	assert.Equal(t, "Sounds good", reply.Body)
}

func TestNormalizeReplyPayloadMailgun(t *testing.T) {
	body := []byte(`{"sender": "jordan@acme.io", "recipient": "me@mybox.com", "body-plain": "tell me more"}`)

	reply, ok := NormalizeReplyPayload(body)
	require.True(t, ok)
	assert.Equal(t, "jordan@acme.io", reply.LeadEmail)
	assert.Equal(t, "tell me more", reply.Body)
}

func TestNormalizeReplyPayloadGeneric(t *testing.T) {
	body := []byte(`{"from_email": "JORDAN@ACME.IO", "to_email": "me@mybox.com", "message": "hi"}`)

	reply, ok := NormalizeReplyPayload(body)
	require.True(t, ok)
	assert.Equal(t, "jordan@acme.io", reply.LeadEmail)
	assert.Equal(t, "hi", reply.Body)
}

func TestNormalizeReplyPayloadNoMatch(t *testing.T) {
	for _, body := range []string{
		`{"something": "else"}`,
		`{"from": "only a from"}`,
		`{}`,
		`not json at all`,
		``,
	} {
		_, ok := NormalizeReplyPayload([]byte(body))
		assert.False(t, ok, "payload %q must not match", body)
	}
}

func TestExtractAddress(t *testing.T) {
	assert.Equal(t, "jordan@acme.io", extractAddress("Jordan Lee <Jordan@Acme.io>"))
	assert.Equal(t, "jordan@acme.io", extractAddress("jordan@acme.io"))
	assert.Equal(t, "jordan@acme.io", extractAddress("  JORDAN@ACME.IO  "))
}
