package utils

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"

	"coldreach/config"
	"coldreach/models"
)

const (
	gmailSendURL = "https://gmail.googleapis.com/gmail/v1/users/me/messages/send"
	graphSendURL = "https://graph.microsoft.com/v1.0/me/sendMail"
)

// Transport is one way to deliver an email. Implementations are attempted in
// priority order and the chain short-circuits on the first success.
type Transport interface {
	Name() string
	Send(to, subject, htmlBody string) (messageID string, err error)
}

// ResolveTransports builds the priority-ordered transport chain for a user:
// OAuth mailbox senders first, then plain SMTP senders, then the platform
// fallback when one is configured.
func ResolveTransports(db *gorm.DB, userID uint) ([]Transport, error) {
	var senders []models.Sender
	if err := db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("id asc").Find(&senders).Error; err != nil {
		return nil, fmt.Errorf("failed to load senders: %w", err)
	}

	var transports []Transport
	for i := range senders {
		if !senders[i].HasOAuth() {
			continue
		}
		switch senders[i].OAuthProvider {
		case "google":
			transports = append(transports, &GmailTransport{Sender: &senders[i]})
		case "microsoft", "outlook":
			transports = append(transports, &OutlookTransport{Sender: &senders[i]})
		}
	}
	for i := range senders {
		if senders[i].HasSMTP() {
			transports = append(transports, &SMTPTransport{Sender: &senders[i]})
		}
	}
	if config.AppConfig.SMTPHost != "" {
		transports = append(transports, &PlatformTransport{})
	}

	if len(transports) == 0 {
		return nil, errors.New("no transports configured")
	}
	return transports, nil
}

// SendWithFallback walks the chain until one transport succeeds. Every
// individual failure is logged and reported; only when the whole chain is
// exhausted does the last error propagate.
func SendWithFallback(transports []Transport, to, subject, htmlBody string) (string, string, error) {
	var lastErr error
	for _, t := range transports {
		messageID, err := t.Send(to, subject, htmlBody)
		if err == nil {
			logrus.WithFields(logrus.Fields{
				"transport": t.Name(),
				"to":        to,
			}).Info("email delivered")
			return messageID, t.Name(), nil
		}

		lastErr = err
		logrus.WithFields(logrus.Fields{
			"transport": t.Name(),
			"to":        to,
			"error":     err.Error(),
		}).Warn("transport failed, trying next")
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("transport", t.Name())
			scope.SetExtra("recipient", to)
			sentry.CaptureException(err)
		})
	}
	if lastErr == nil {
		lastErr = errors.New("no transports available")
	}
	return "", "", lastErr
}

// GmailTransport sends through the Gmail API using the sender's stored OAuth
// token pair. Refresh is delegated to the oauth2 TokenSource.
type GmailTransport struct {
	Sender *models.Sender
}

func (t *GmailTransport) Name() string {
	return fmt.Sprintf("oauth:%s:%s", t.Sender.OAuthProvider, t.Sender.FromEmail)
}

func (t *GmailTransport) Send(to, subject, htmlBody string) (string, error) {
	if t.Sender.OAuthProvider != "google" {
		return "", fmt.Errorf("unsupported oauth provider %q", t.Sender.OAuthProvider)
	}

	accessToken, err := Decrypt(t.Sender.OAuthToken)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt oauth token: %w", err)
	}
	refreshToken, err := Decrypt(t.Sender.OAuthRefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	cfg := &oauth2.Config{
		ClientID:     config.AppConfig.Google.ClientID,
		ClientSecret: config.AppConfig.Google.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"https://www.googleapis.com/auth/gmail.send"},
	}
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}
	if t.Sender.OAuthExpiry != nil {
		token.Expiry = *t.Sender.OAuthExpiry
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client := cfg.Client(ctx, token)

	raw := buildRawMessage(t.Sender.FromName, t.Sender.FromEmail, to, subject, htmlBody)
	payload, err := json.Marshal(map[string]string{
		"raw": base64.URLEncoding.EncodeToString([]byte(raw)),
	})
	if err != nil {
		return "", err
	}

	resp, err := client.Post(gmailSendURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("gmail api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gmail api returned status %d", resp.StatusCode)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("gmail api response decode failed: %w", err)
	}
	return result.ID, nil
}

// OutlookTransport sends through the Microsoft Graph sendMail endpoint using
// the sender's stored OAuth token pair. Graph does not echo a message id, so
// the Message-ID is minted here and carried in the payload.
type OutlookTransport struct {
	Sender *models.Sender
}

func (t *OutlookTransport) Name() string {
	return fmt.Sprintf("oauth:%s:%s", t.Sender.OAuthProvider, t.Sender.FromEmail)
}

func (t *OutlookTransport) Send(to, subject, htmlBody string) (string, error) {
	accessToken, err := Decrypt(t.Sender.OAuthToken)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt oauth token: %w", err)
	}
	refreshToken, err := Decrypt(t.Sender.OAuthRefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	cfg := &oauth2.Config{
		ClientID:     config.AppConfig.Microsoft.ClientID,
		ClientSecret: config.AppConfig.Microsoft.ClientSecret,
		Endpoint:     microsoft.AzureADEndpoint("common"),
		Scopes:       []string{"https://graph.microsoft.com/Mail.Send"},
	}
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}
	if t.Sender.OAuthExpiry != nil {
		token.Expiry = *t.Sender.OAuthExpiry
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client := cfg.Client(ctx, token)

	messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), domainOf(t.Sender.FromEmail))
	payload, err := json.Marshal(map[string]interface{}{
		"message": map[string]interface{}{
			"subject":           subject,
			"internetMessageId": messageID,
			"body": map[string]string{
				"contentType": "HTML",
				"content":     htmlBody,
			},
			"toRecipients": []map[string]interface{}{
				{"emailAddress": map[string]string{"address": to}},
			},
		},
		"saveToSentItems": true,
	})
	if err != nil {
		return "", err
	}

	resp, err := client.Post(graphSendURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("graph api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("graph api returned status %d", resp.StatusCode)
	}
	return messageID, nil
}

// SMTPTransport sends through the sender's own SMTP account with gomail.
type SMTPTransport struct {
	Sender *models.Sender
}

func (t *SMTPTransport) Name() string {
	return fmt.Sprintf("smtp:%s", t.Sender.FromEmail)
}

func (t *SMTPTransport) Send(to, subject, htmlBody string) (string, error) {
	password, err := Decrypt(t.Sender.SMTPPassword)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt smtp password: %w", err)
	}

	dialer := gomail.NewDialer(t.Sender.SMTPHost, t.Sender.SMTPPort, t.Sender.SMTPUsername, password)
	dialer.TLSConfig = &tls.Config{ServerName: t.Sender.SMTPHost}

	messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), domainOf(t.Sender.FromEmail))

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(t.Sender.FromEmail, t.Sender.FromName))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetHeader("Message-ID", messageID)
	m.SetBody("text/html", htmlBody)

	if err := dialer.DialAndSend(m); err != nil {
		return "", fmt.Errorf("smtp send failed: %w", err)
	}
	return messageID, nil
}

// PlatformTransport is the shared fallback mailbox owned by the platform,
// used when every user-configured transport has failed.
type PlatformTransport struct{}

func (t *PlatformTransport) Name() string { return "platform" }

func (t *PlatformTransport) Send(to, subject, htmlBody string) (string, error) {
	cfg := config.AppConfig
	if cfg.SMTPHost == "" {
		return "", errors.New("platform transport not configured")
	}

	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	dialer.TLSConfig = &tls.Config{ServerName: cfg.SMTPHost}

	messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), domainOf(cfg.FromEmail))

	m := gomail.NewMessage()
	m.SetHeader("From", cfg.FromEmail)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetHeader("Message-ID", messageID)
	m.SetBody("text/html", htmlBody)

	if err := dialer.DialAndSend(m); err != nil {
		return "", fmt.Errorf("platform send failed: %w", err)
	}
	return messageID, nil
}

func buildRawMessage(fromName, fromEmail, to, subject, htmlBody string) string {
	from := fromEmail
	if fromName != "" {
		from = fmt.Sprintf("%s <%s>", fromName, fromEmail)
	}
	return fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		from, to, subject, htmlBody)
}

func domainOf(email string) string {
	for i := len(email) - 1; i >= 0; i-- {
		if email[i] == '@' {
			return email[i+1:]
		}
	}
	return "localhost"
}
