package mailsource

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/jhillyerd/enmime"
	"github.com/sirupsen/logrus"

	"github.com/dkoski/phishguard/internal/config"
)

// IMAPSource reads a mailbox over IMAP. The connection is established
// lazily on first use and re-established after Close; message IDs are
// mailbox UIDs.
type IMAPSource struct {
	cfg      *config.Config
	excluded []string
	logger   *logrus.Logger

	client    *client.Client
	connected bool
}

// NewIMAP creates an IMAP source. It does not connect immediately.
func NewIMAP(cfg *config.Config, logger *logrus.Logger) *IMAPSource {
	return &IMAPSource{
		cfg:      cfg,
		excluded: cfg.ExcludedSenders,
		logger:   logger,
	}
}

// connect dials and authenticates if there is no live session.
func (s *IMAPSource) connect() error {
	if s.connected && s.client != nil {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.IMAPHost, s.cfg.IMAPPort)
	cl, err := client.DialTLS(addr, &tls.Config{
		ServerName: s.cfg.IMAPHost,
		MinVersion: tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := cl.Login(s.cfg.IMAPUsername, s.cfg.IMAPPassword); err != nil {
		cl.Logout() //nolint:errcheck
		return fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	s.client = cl
	s.connected = true
	s.logger.WithField("host", s.cfg.IMAPHost).Info("Connected to IMAP server")
	return nil
}

// ListRecentIDs selects the configured folder and returns the UIDs of
// up to limit most-recent messages, newest first.
func (s *IMAPSource) ListRecentIDs(ctx context.Context, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.connect(); err != nil {
		return nil, err
	}

	mbox, err := s.client.Select(s.cfg.IMAPFolder, true)
	if err != nil {
		return nil, fmt.Errorf("failed to select folder: %w", err)
	}
	if mbox.Messages == 0 {
		return []string{}, nil
	}

	start := uint32(1)
	if mbox.Messages > uint32(limit) {
		start = mbox.Messages - uint32(limit) + 1
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddRange(start, mbox.Messages)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- s.client.Fetch(seqSet, []imap.FetchItem{imap.FetchUid}, messages)
	}()

	var uids []uint32
	for msg := range messages {
		uids = append(uids, msg.Uid)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message UIDs: %w", err)
	}

	// Newest first.
	ids := make([]string, 0, len(uids))
	for i := len(uids) - 1; i >= 0; i-- {
		ids = append(ids, strconv.FormatUint(uint64(uids[i]), 10))
	}
	return ids, nil
}

// FetchBody fetches one message by UID and extracts its plain-text body
// from the raw RFC822 content.
func (s *IMAPSource) FetchBody(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.connect(); err != nil {
		return "", err
	}

	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return "", fmt.Errorf("invalid message id %q: %w", id, err)
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uint32(uid))

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	var fetched *imap.Message
	for msg := range messages {
		fetched = msg
	}
	if err := <-done; err != nil {
		return "", fmt.Errorf("failed to fetch message %s: %w", id, err)
	}
	if fetched == nil {
		return "", ErrNoTextBody
	}

	if fetched.Envelope != nil && len(fetched.Envelope.From) > 0 {
		if senderExcluded(fetched.Envelope.From[0].Address(), s.excluded) {
			return "", ErrExcludedSender
		}
	}

	literal := fetched.GetBody(section)
	if literal == nil {
		return "", ErrNoTextBody
	}
	return extractMIMEText(literal)
}

// Close logs out and drops the session; the next call reconnects.
func (s *IMAPSource) Close() error {
	if s.client != nil {
		err := s.client.Logout()
		s.client = nil
		s.connected = false
		return err
	}
	return nil
}

// extractMIMEText parses raw RFC822 content and returns the trimmed
// plain-text part.
func extractMIMEText(raw io.Reader) (string, error) {
	env, err := enmime.ReadEnvelope(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse message: %w", err)
	}

	text := strings.TrimSpace(env.Text)
	if text == "" {
		return "", ErrNoTextBody
	}
	return text, nil
}
