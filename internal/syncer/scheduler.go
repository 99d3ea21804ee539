package syncer

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/platformnet/bounty-ledger/internal/model"
)

// DefaultInterval is the canonical feed polling cadence.
const DefaultInterval = 5 * time.Minute

// ScopeStore lists the scopes the scheduler polls.
type ScopeStore interface {
	ListActive(ctx context.Context) ([]model.TrackedScope, error)
}

// Scheduler drives one periodic sync per tracked scope plus an optional
// periodic scoring run.  Manual triggers go through the same service and
// therefore the same single-flight lease, so a tick landing during a
// manual sync simply loses the lease and waits for the next interval.
type Scheduler struct {
	svc      *Service
	scopes   ScopeStore
	interval time.Duration

	scoreEvery time.Duration
	scoreFn    func(ctx context.Context) error
}

// NewScheduler wires a scheduler.  scoreFn may be nil when scoring runs
// are triggered externally.
func NewScheduler(svc *Service, scopes ScopeStore, interval time.Duration, scoreEvery time.Duration, scoreFn func(ctx context.Context) error) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{svc: svc, scopes: scopes, interval: interval, scoreEvery: scoreEvery, scoreFn: scoreFn}
}

// Run blocks until ctx is cancelled.  Sync failures are logged and
// retried on the next tick, never mid-attempt.
func (s *Scheduler) Run(ctx context.Context) {
	syncTick := time.NewTicker(s.interval)
	defer syncTick.Stop()

	var scoreC <-chan time.Time
	if s.scoreFn != nil && s.scoreEvery > 0 {
		scoreTick := time.NewTicker(s.scoreEvery)
		defer scoreTick.Stop()
		scoreC = scoreTick.C
	}

	s.syncAll(ctx) // first pass immediately, then on the interval

	for {
		select {
		case <-ctx.Done():
			return
		case <-syncTick.C:
			s.syncAll(ctx)
		case <-scoreC:
			if err := s.scoreFn(ctx); err != nil {
				log.Printf("scheduler: scoring run failed: %v", err)
			}
		}
	}
}

func (s *Scheduler) syncAll(ctx context.Context) {
	scopes, err := s.scopes.ListActive(ctx)
	if err != nil {
		log.Printf("scheduler: list scopes failed: %v", err)
		return
	}
	for _, sc := range scopes {
		report, err := s.svc.SyncScope(ctx, sc.Scope)
		switch {
		case errors.Is(err, ErrSyncInFlight):
			// A manual trigger holds the lease; skip this tick.
		case err != nil:
			log.Printf("scheduler: sync %s failed: %v", sc.Scope, err)
		default:
			log.Printf("scheduler: sync %s: ingested=%d reclassified=%d tombstoned=%d failures=%d",
				sc.Scope, report.Ingested, report.Reclassified, report.Tombstoned, len(report.Failures))
		}
	}
}
