// Package store keeps the per-user collections of classified messages.
// All state is memory-resident for the process lifetime; the store is
// the single shared mutable resource between the background poller and
// request-driven fetches, so every operation is atomic under one lock.
package store

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dkoski/phishguard/internal/textfilter"
	"github.com/dkoski/phishguard/pkg/types"
)

// mailbox holds one user's live classified messages plus the set of
// normalized texts the user has deleted. Deletion is sticky: a key in
// deleted suppresses any later ingestion of the same normalized text.
type mailbox struct {
	messages []types.Message
	deleted  map[string]struct{}
}

// Store owns the mapping from user ID to mailbox.
type Store struct {
	mu        sync.Mutex
	mailboxes map[string]*mailbox
	logger    *logrus.Logger
}

// New creates an empty store.
func New(logger *logrus.Logger) *Store {
	return &Store{
		mailboxes: make(map[string]*mailbox),
		logger:    logger,
	}
}

// getOrCreate returns the user's mailbox, creating it lazily.
// Caller must hold s.mu.
func (s *Store) getOrCreate(userID string) *mailbox {
	mb, ok := s.mailboxes[userID]
	if !ok {
		mb = &mailbox{deleted: make(map[string]struct{})}
		s.mailboxes[userID] = mb
	}
	return mb
}

// Suppressed reports whether text would be rejected by AppendIfNew:
// either an exact duplicate of a live message or previously deleted
// under its normalized key. Used to avoid classifying text that will
// never be stored.
func (s *Store) Suppressed(userID, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	mb, ok := s.mailboxes[userID]
	if !ok {
		return false
	}
	return mb.suppressed(text)
}

func (mb *mailbox) suppressed(text string) bool {
	for _, msg := range mb.messages {
		if msg.Text == text {
			return true
		}
	}
	_, deleted := mb.deleted[textfilter.NormalizeKey(text)]
	return deleted
}

// AppendIfNew appends msg to the user's mailbox unless an existing
// message has identical text or the normalized text was deleted before.
// Returns true if the message was appended.
func (s *Store) AppendIfNew(userID string, msg types.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	mb := s.getOrCreate(userID)
	if mb.suppressed(msg.Text) {
		return false
	}

	mb.messages = append(mb.messages, msg)
	return true
}

// MarkDeleted adds the normalized form of rawText to the user's deleted
// set and removes every live message whose normalized text matches.
// The suppression is permanent for the lifetime of the mailbox. Returns
// the number of live messages removed.
func (s *Store) MarkDeleted(userID, rawText string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := textfilter.NormalizeKey(rawText)
	mb := s.getOrCreate(userID)
	mb.deleted[key] = struct{}{}

	kept := mb.messages[:0]
	removed := 0
	for _, msg := range mb.messages {
		if textfilter.NormalizeKey(msg.Text) == key {
			removed++
			continue
		}
		kept = append(kept, msg)
	}
	mb.messages = kept

	if removed > 0 {
		s.logger.WithFields(logrus.Fields{
			"user":    userID,
			"removed": removed,
		}).Debug("Removed deleted messages from mailbox")
	}

	return removed
}

// ListLive returns a snapshot of the user's live messages in insertion
// order. The snapshot is re-filtered against the deleted set even though
// AppendIfNew and MarkDeleted already enforce the invariant.
func (s *Store) ListLive(userID string) []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	mb, ok := s.mailboxes[userID]
	if !ok {
		return []types.Message{}
	}

	live := make([]types.Message, 0, len(mb.messages))
	for _, msg := range mb.messages {
		if _, deleted := mb.deleted[textfilter.NormalizeKey(msg.Text)]; deleted {
			continue
		}
		live = append(live, msg)
	}
	return live
}
