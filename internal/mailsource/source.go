// Package mailsource wraps remote mail providers behind the narrow
// capability surface ingestion needs: list recent message IDs and fetch
// one plain-text body. Authentication and session state are internal to
// each implementation.
package mailsource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dkoski/phishguard/internal/config"
)

// Sentinel errors for messages that carry no classifiable body. Callers
// treat them as "skip this message", but they stay distinguishable from
// transport failures.
var (
	// ErrNoTextBody means the message has no extractable plain-text part.
	ErrNoTextBody = errors.New("message has no plain-text body")
	// ErrExcludedSender means the sender matched an exclusion pattern
	// (no-reply or provider-internal addresses).
	ErrExcludedSender = errors.New("sender is excluded")
)

// Source is a connected mail-provider handle.
type Source interface {
	// ListRecentIDs returns up to limit most-recent message IDs,
	// newest first as defined by the provider.
	ListRecentIDs(ctx context.Context, limit int) ([]string, error)
	// FetchBody returns the trimmed plain-text body of one message.
	FetchBody(ctx context.Context, id string) (string, error)
	// Close releases the provider session.
	Close() error
}

// New constructs a provider handle for the configured backend.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (Source, error) {
	switch cfg.MailProvider {
	case config.ProviderGmail:
		return NewGmail(ctx, cfg.GmailCredentialsPath, cfg.GmailTokenPath, cfg.ExcludedSenders, logger)
	case config.ProviderIMAP:
		return NewIMAP(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown mail provider: %s", cfg.MailProvider)
	}
}

// senderExcluded reports whether a From header matches any exclusion
// pattern (substring match, case-insensitive).
func senderExcluded(from string, patterns []string) bool {
	lower := strings.ToLower(from)
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}
