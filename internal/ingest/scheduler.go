package ingest

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduler polls the mail provider forever under a fixed synthetic
// user identity. A failed cycle drops the provider handle and retries
// after the inter-cycle delay; the loop only stops when its context is
// cancelled.
type Scheduler struct {
	service   *Service
	newSource SourceFactory
	userID    string
	interval  time.Duration
	logger    *logrus.Logger

	src Source
}

// NewScheduler creates a background poller for the given user identity.
func NewScheduler(service *Service, newSource SourceFactory, userID string, interval time.Duration, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		service:   service,
		newSource: newSource,
		userID:    userID,
		interval:  interval,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled. The delay between cycles is
// measured from cycle completion, so slow cycles shift the schedule
// instead of overlapping.
func (p *Scheduler) Run(ctx context.Context) error {
	p.logger.WithFields(logrus.Fields{
		"user":     p.userID,
		"interval": p.interval,
	}).Info("Starting background mail poller")

	for {
		p.cycle(ctx)

		select {
		case <-ctx.Done():
			p.reset()
			p.logger.Info("Background mail poller stopped")
			return nil
		case <-time.After(p.interval):
		}
	}
}

// cycle performs one poll: ensure a provider handle exists, list recent
// messages, and run the ingestion routine per message. Any failure is
// logged and clears the handle so the next cycle reconnects.
func (p *Scheduler) cycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	if p.src == nil {
		p.logger.Debug("Connecting to mail provider")
		src, err := p.newSource(ctx)
		if err != nil {
			p.logger.WithError(err).Warn("Failed to connect to mail provider")
			return
		}
		p.src = src
	}

	ids, err := p.src.ListRecentIDs(ctx, p.service.fetchLimit)
	if err != nil {
		p.logger.WithError(err).Warn("Poll cycle failed, dropping provider handle")
		p.reset()
		return
	}

	added := p.service.ingestAll(ctx, p.src, p.userID, ids)
	p.logger.WithFields(logrus.Fields{
		"listed": len(ids),
		"added":  added,
	}).Debug("Poll cycle complete")
}

// reset drops the current provider handle, forcing a reconnect on the
// next cycle.
func (p *Scheduler) reset() {
	if p.src != nil {
		p.src.Close() //nolint:errcheck
		p.src = nil
	}
}
