package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackingTokenRoundTrip(t *testing.T) {
	for _, id := range []uint{1, 42, 999999} {
		token := EncodeTrackingToken(id)
		assert.NotContains(t, token, "/")
		assert.NotContains(t, token, "+")

		got, err := DecodeTrackingToken(token)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestDecodeTrackingTokenRejectsGarbage(t *testing.T) {
	_, err := DecodeTrackingToken("not base64 !!!")
	assert.Error(t, err)

	// Valid base64 but wrong payload prefix.
	_, err = DecodeTrackingToken("aGVsbG8")
	assert.Error(t, err)

	// Right prefix, non-numeric id.
	_, err = DecodeTrackingToken("Y2wuYWJj") // "cl.abc"
	assert.Error(t, err)
}

func TestGenerateClickTrackURLEscapesTarget(t *testing.T) {
	u := GenerateClickTrackURL("https://app.example.com", 7, "https://dest.example.com/page?a=1&b=2")
	assert.True(t, strings.HasPrefix(u, "https://app.example.com/track/click/"))
	assert.Contains(t, u, "url=https%3A%2F%2Fdest.example.com%2Fpage%3Fa%3D1%26b%3D2")
}

func TestInjectTracking(t *testing.T) {
	html := `<p>Hi there,</p><p>Check <a href="https://example.com/offer">the offer</a> and <a href="https://example.com/docs">the docs</a>.</p>`

	out := InjectTracking(html, "https://app.example.com", 12)

	// Both anchors are rewritten through the redirect.
	assert.Equal(t, 2, strings.Count(out, "https://app.example.com/track/click/"))
	assert.NotContains(t, out, `href="https://example.com/offer"`)
	assert.Contains(t, out, "url=https%3A%2F%2Fexample.com%2Foffer")

	// Exactly one pixel, at the end.
	assert.Equal(t, 1, strings.Count(out, "/track/open/"))
	assert.True(t, strings.HasSuffix(out, `style="display:none">`))

	// The visible text is untouched.
	assert.Contains(t, out, ">the offer</a>")
}

func TestInjectTrackingNoAnchors(t *testing.T) {
	out := InjectTracking("<p>plain text</p>", "https://app.example.com", 3)
	assert.Contains(t, out, "<p>plain text</p>")
	assert.Contains(t, out, "/track/open/")
	assert.NotContains(t, out, "/track/click/")
}
