package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-content-auth/pkg/helpers"
)

// Scheduler runs the periodic background sweeps: promoting due pages and pruning
// the revocation store. Request handling never waits on it.
type Scheduler struct {
	pages         *LifecycleManager
	tokens        *TokenService
	interval      time.Duration
	pruneInterval time.Duration
	now           func() time.Time
	logger        *logrus.Logger
}

func NewScheduler(pages *LifecycleManager, tokens *TokenService, interval, pruneInterval time.Duration, logger *logrus.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if pruneInterval <= 0 {
		pruneInterval = 10 * time.Minute
	}
	return &Scheduler{
		pages:         pages,
		tokens:        tokens,
		interval:      interval,
		pruneInterval: pruneInterval,
		now:           time.Now,
		logger:        logger,
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	promote := time.NewTicker(s.interval)
	defer promote.Stop()
	prune := time.NewTicker(s.pruneInterval)
	defer prune.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-promote.C:
			s.Sweep(ctx)
		case <-prune.C:
			s.Prune(ctx)
		}
	}
}

// Sweep promotes due pages once.
func (s *Scheduler) Sweep(ctx context.Context) int {
	if s.pages == nil {
		return 0
	}
	n, err := s.pages.PromoteDue(ctx, s.now().UTC())
	if err != nil {
		helpers.LogWarn(s.logger, "promote scheduled pages failed", err, nil)
	}
	return n
}

func (s *Scheduler) Prune(ctx context.Context) int {
	if s.tokens == nil {
		return 0
	}
	n, err := s.tokens.PruneRevocations(ctx)
	if err != nil {
		helpers.LogWarn(s.logger, "prune revocations failed", err, nil)
		return n
	}
	if n > 0 && s.logger != nil {
		s.logger.WithField("removed", n).Debug("revocation entries pruned")
	}
	return n
}
