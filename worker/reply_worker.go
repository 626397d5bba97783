package worker

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"gorm.io/gorm"

	"coldreach/models"
	"coldreach/utils"
)

// ReplyWorker polls each sender's IMAP inbox for replies the webhook never
// saw. New messages run through the same ingestion path as webhook payloads,
// so both sources produce identical events and lifecycle transitions.
type ReplyWorker struct {
	DB       *gorm.DB
	Logger   *log.Logger
	AI       *utils.AIClient
	Interval time.Duration
}

func NewReplyWorker(db *gorm.DB) *ReplyWorker {
	return &ReplyWorker{
		DB:       db,
		Logger:   log.New(os.Stdout, "REPLY: ", log.LstdFlags),
		AI:       utils.NewAIClient(),
		Interval: 10 * time.Minute,
	}
}

func (w *ReplyWorker) Start(ctx context.Context) {
	w.Logger.Println("Reply worker started")
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Logger.Println("Reply worker stopped")
			return
		case <-ticker.C:
			w.PollAllInboxes()
		}
	}
}

// PollAllInboxes visits every active sender with an IMAP configuration. A
// broken mailbox is recorded on the sender and skipped, never fatal.
func (w *ReplyWorker) PollAllInboxes() {
	var senders []models.Sender
	err := w.DB.Where("is_active = ? AND imap_host <> ''", true).
		Find(&senders).Error
	if err != nil {
		w.Logger.Printf("Failed to load senders: %v", err)
		return
	}

	for i := range senders {
		sender := &senders[i]
		if err := w.pollInbox(sender); err != nil {
			w.Logger.Printf("Inbox poll failed for %s: %v", sender.FromEmail, err)
			msg := err.Error()
			w.DB.Model(sender).Update("last_error", msg)
		}
	}
}

func (w *ReplyWorker) pollInbox(sender *models.Sender) error {
	password, err := utils.Decrypt(sender.IMAPPassword)
	if err != nil {
		return fmt.Errorf("failed to decrypt imap password: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", sender.IMAPHost, sender.IMAPPort)
	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return fmt.Errorf("imap dial failed: %w", err)
	}
	defer c.Logout()

	username := sender.IMAPUsername
	if username == "" {
		username = sender.FromEmail
	}
	if err := c.Login(username, password); err != nil {
		return fmt.Errorf("imap login failed: %w", err)
	}

	mailbox := sender.IMAPMailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	mbox, err := c.Select(mailbox, true)
	if err != nil {
		return fmt.Errorf("imap select failed: %w", err)
	}
	if mbox.Messages == 0 {
		return nil
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return fmt.Errorf("imap search failed: %w", err)
	}

	// LastReplySeq is the UID high-water mark; everything at or below it was
	// already ingested on a previous poll.
	var fresh []uint32
	for _, uid := range uids {
		if uid > sender.LastReplySeq {
			fresh = append(fresh, uid)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(fresh...)

	section := &imap.BodySectionName{Peek: true}
	messages := make(chan *imap.Message, len(fresh))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, []imap.FetchItem{section.FetchItem(), imap.FetchUid}, messages)
	}()

	ingested := 0
	maxUID := sender.LastReplySeq
	for msg := range messages {
		if msg.Uid > maxUID {
			maxUID = msg.Uid
		}

		from, body, err := parseReplyMessage(msg.GetBody(section))
		if err != nil || from == "" || body == "" {
			continue
		}

		reply := utils.InboundReply{
			LeadEmail: from,
			Mailbox:   strings.ToLower(sender.FromEmail),
			Body:      body,
		}
		if err := utils.ProcessReply(w.DB, w.AI, reply, "imap"); err != nil {
			// Most inbox mail is not a campaign reply; only real failures on
			// matched leads are worth a log line.
			continue
		}
		ingested++
	}
	if err := <-done; err != nil {
		return fmt.Errorf("imap fetch failed: %w", err)
	}

	if maxUID > sender.LastReplySeq {
		w.DB.Model(sender).Update("last_reply_seq", maxUID)
	}
	if ingested > 0 {
		w.Logger.Printf("Ingested %d replies from %s", ingested, sender.FromEmail)
	}
	return nil
}

// parseReplyMessage extracts the sender address and the first text part.
func parseReplyMessage(r io.Reader) (from, body string, err error) {
	if r == nil {
		return "", "", fmt.Errorf("message has no body section")
	}

	mr, err := mail.CreateReader(r)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse message: %w", err)
	}

	if addrs, err := mr.Header.AddressList("From"); err == nil && len(addrs) > 0 {
		from = strings.ToLower(addrs[0].Address)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		if _, ok := part.Header.(*mail.InlineHeader); ok && body == "" {
			b, readErr := io.ReadAll(part.Body)
			if readErr == nil {
				body = string(b)
			}
		}
	}
	return from, body, nil
}
