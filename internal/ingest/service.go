// Package ingest implements the shared per-message pipeline (fetch →
// filter → dedup/delete check → classify → store) and the two entry
// points that drive it: the background polling scheduler and the
// on-demand per-user fetch.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/dkoski/phishguard/internal/mailsource"
	"github.com/dkoski/phishguard/internal/store"
	"github.com/dkoski/phishguard/internal/textfilter"
	"github.com/dkoski/phishguard/pkg/types"
)

// maxMessageChars is the longest body still treated as a short-form
// alert; longer messages are out of scope for the classifier.
const maxMessageChars = 50

// Source is the mail-provider capability the pipeline consumes.
type Source interface {
	ListRecentIDs(ctx context.Context, limit int) ([]string, error)
	FetchBody(ctx context.Context, id string) (string, error)
	Close() error
}

// SourceFactory constructs a fresh provider handle. The scheduler and
// each on-demand fetch build their own handles independently.
type SourceFactory func(ctx context.Context) (Source, error)

// Classifier predicts a label for message text.
type Classifier interface {
	Predict(text string) (types.Label, error)
}

// Service runs the ingestion routine against the shared store.
type Service struct {
	store      *store.Store
	classifier Classifier
	newSource  SourceFactory
	fetchLimit int
	logger     *logrus.Logger
}

// NewService creates an ingestion service.
func NewService(st *store.Store, cls Classifier, newSource SourceFactory, fetchLimit int, logger *logrus.Logger) *Service {
	return &Service{
		store:      st,
		classifier: cls,
		newSource:  newSource,
		fetchLimit: fetchLimit,
		logger:     logger,
	}
}

// IngestMessage runs the pipeline for one (userID, messageID) pair and
// reports whether a new message entered the mailbox. Filtering and the
// dedup/deleted probe run before classification, so the classifier only
// sees genuinely new, plausible-alert-length, non-noise text.
func (s *Service) IngestMessage(ctx context.Context, src Source, userID, id string) bool {
	body, err := src.FetchBody(ctx, id)
	if err != nil {
		// Messages without a usable body are skipped silently; real
		// transport failures are worth a warning but never abort the run.
		if errors.Is(err, mailsource.ErrNoTextBody) || errors.Is(err, mailsource.ErrExcludedSender) {
			s.logger.WithField("id", id).WithError(err).Debug("Skipping message")
		} else {
			s.logger.WithField("id", id).WithError(err).Warn("Failed to fetch message body")
		}
		return false
	}

	text := strings.TrimSpace(body)
	if text == "" || utf8.RuneCountInString(text) > maxMessageChars {
		return false
	}

	if textfilter.ShouldIgnore(text) {
		s.logger.WithField("id", id).Debug("Ignoring noise message")
		return false
	}

	// Duplicate or previously deleted text never reaches the model.
	if s.store.Suppressed(userID, text) {
		return false
	}

	label, err := s.classifier.Predict(text)
	if err != nil {
		// Availability over strictness: record the message anyway.
		s.logger.WithError(err).Warn("Classification failed")
		label = types.LabelError
	}

	if !s.store.AppendIfNew(userID, types.Message{Text: text, Label: label}) {
		return false
	}

	s.logger.WithFields(logrus.Fields{
		"user":  userID,
		"label": label,
	}).Debug("New message ingested")
	return true
}

// ingestAll runs the pipeline for every listed id in provider order and
// returns the number of newly stored messages.
func (s *Service) ingestAll(ctx context.Context, src Source, userID string, ids []string) int {
	added := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if s.IngestMessage(ctx, src, userID, id) {
			added++
		}
	}
	return added
}

// FetchOnce performs a synchronous ingestion pass for one user with an
// independent provider handle. The returned error reports why nothing
// could be fetched; callers on the request path are expected to degrade
// it to "no new messages".
func (s *Service) FetchOnce(ctx context.Context, userID string) (int, error) {
	src, err := s.newSource(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to construct mail source: %w", err)
	}
	defer src.Close() //nolint:errcheck

	ids, err := src.ListRecentIDs(ctx, s.fetchLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to list recent messages: %w", err)
	}

	added := s.ingestAll(ctx, src, userID, ids)
	s.logger.WithFields(logrus.Fields{
		"user":   userID,
		"listed": len(ids),
		"added":  added,
	}).Info("On-demand fetch complete")
	return added, nil
}
