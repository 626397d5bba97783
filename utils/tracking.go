package utils

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const trackingTokenPrefix = "cl."

// EncodeTrackingToken wraps a campaign-lead id in an opaque, URL-safe token.
// The encoding is reversible and deliberately non-cryptographic: forging a
// token only yields a spurious engagement event, never data exposure.
func EncodeTrackingToken(campaignLeadID uint) string {
	raw := trackingTokenPrefix + strconv.FormatUint(uint64(campaignLeadID), 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeTrackingToken recovers the campaign-lead id from a tracking token.
func DecodeTrackingToken(token string) (uint, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, fmt.Errorf("invalid tracking token: %w", err)
	}
	s, ok := strings.CutPrefix(string(decoded), trackingTokenPrefix)
	if !ok {
		return 0, fmt.Errorf("invalid tracking token payload")
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid tracking token id: %w", err)
	}
	return uint(id), nil
}

// GenerateTrackingPixelURL builds the open-tracking pixel URL for a lead.
func GenerateTrackingPixelURL(baseURL string, campaignLeadID uint) string {
	return fmt.Sprintf("%s/track/open/%s", baseURL, EncodeTrackingToken(campaignLeadID))
}

// GenerateClickTrackURL builds a redirect URL wrapping originalURL.
func GenerateClickTrackURL(baseURL string, campaignLeadID uint, originalURL string) string {
	return fmt.Sprintf("%s/track/click/%s?url=%s",
		baseURL, EncodeTrackingToken(campaignLeadID), url.QueryEscape(originalURL))
}

// InjectTracking rewrites every anchor href through the click redirect and
// appends the open-tracking pixel to the HTML body.
func InjectTracking(htmlContent, baseURL string, campaignLeadID uint) string {
	modified := injectClickTracking(htmlContent, baseURL, campaignLeadID)

	pixelURL := GenerateTrackingPixelURL(baseURL, campaignLeadID)
	trackingPixel := fmt.Sprintf(`<img src="%s" alt="" width="1" height="1" style="display:none">`, pixelURL)

	return modified + trackingPixel
}

func injectClickTracking(html, baseURL string, campaignLeadID uint) string {
	const startTag = `<a href="`
	const endTag = `"`
	offset := 0

	for {
		startIdx := strings.Index(html[offset:], startTag)
		if startIdx == -1 {
			break
		}
		startIdx += offset + len(startTag)

		endIdx := strings.Index(html[startIdx:], endTag)
		if endIdx == -1 {
			break
		}
		endIdx += startIdx

		originalURL := html[startIdx:endIdx]
		trackedURL := GenerateClickTrackURL(baseURL, campaignLeadID, originalURL)

		html = html[:startIdx] + trackedURL + html[endIdx:]
		offset = startIdx + len(trackedURL)
	}

	return html
}
