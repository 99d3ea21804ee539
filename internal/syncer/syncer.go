// Package syncer ingests the external event feed into the event ledger.
// A sync diffs the feed against ledger state: new items are inserted,
// known items are reclassified from their current label set, and items
// the feed stopped reporting are tombstoned.  Nothing is ever deleted.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/platformnet/bounty-ledger/internal/ledger"
	"github.com/platformnet/bounty-ledger/internal/model"
)

// QueryTimeout bounds every ledger operation issued by a sync.  On
// timeout the attempt fails fast; the scheduler retries on its own
// cadence and never mid-attempt.
const QueryTimeout = 30 * time.Second

var (
	// ErrSourceUnavailable aborts the current sync attempt; the next
	// scheduled interval retries.
	ErrSourceUnavailable = errors.New("event source unavailable")
	// ErrSyncInFlight rejects a sync for a scope that already has one
	// running.  The two may never interleave.
	ErrSyncInFlight = errors.New("sync already in flight for scope")

	// Override rejections, all terminal and specific.
	ErrNotClosed             = errors.New("item is not closed")
	ErrAlreadyClassified     = errors.New("item already classified")
	ErrAuthorMismatch        = errors.New("author mismatch")
	ErrInvalidClassification = errors.New("classification not overridable")
)

// RecordFailure is one malformed feed record skipped during a sync.
// The rest of the batch still commits.
type RecordFailure struct {
	ItemID int64  `json:"item_id"`
	Cause  string `json:"cause"`
}

// Report summarizes one sync run.
type Report struct {
	Scope        model.Scope     `json:"scope"`
	Ingested     int             `json:"ingested"`
	Reclassified int             `json:"reclassified"`
	Tombstoned   int             `json:"tombstoned"`
	Failures     []RecordFailure `json:"failures,omitempty"`
}

// ItemStore is the event-ledger slice the syncer writes through.
// repository.ItemRepo satisfies it.  Upsert must be transactional per
// record: a failed write leaves no partial mutation visible.
type ItemStore interface {
	Upsert(ctx context.Context, item model.TrackedItem) (created, reclassified bool, err error)
	ActiveItemIDs(ctx context.Context, scope model.Scope) ([]int64, error)
	Tombstone(ctx context.Context, scope model.Scope, itemIDs []int64, at time.Time) (int, error)
	Get(ctx context.Context, scope model.Scope, itemID int64) (model.TrackedItem, error)
	SetClassification(ctx context.Context, scope model.Scope, itemID int64, class model.Classification, at time.Time) error
}

// StateStore records per-scope sync bookkeeping.
type StateStore interface {
	UpdateSyncState(ctx context.Context, scope model.Scope, itemsSynced int, at time.Time) error
}

// Source is the external event feed collaborator.  Pagination and
// backoff are its problem; the syncer only sees the full result set for
// a scope.
type Source interface {
	FetchItems(ctx context.Context, scope model.Scope) ([]model.RawItem, error)
}

// Service performs syncs.  Per-scope single-flight is enforced here
// structurally: the scheduled tick and a manual trigger share the same
// lease and the loser is rejected, never queued behind the winner.
type Service struct {
	items  ItemStore
	state  StateStore
	source Source

	mu       sync.Mutex
	inFlight map[string]bool

	now func() time.Time
}

// NewService wires a sync service.  source may be nil in deployments
// that push batches in via Sync directly.
func NewService(items ItemStore, state StateStore, source Source) *Service {
	return &Service{
		items:    items,
		state:    state,
		source:   source,
		inFlight: make(map[string]bool),
		now:      time.Now,
	}
}

// WithClock overrides the service clock.  Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) acquire(scope model.Scope) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[scope.String()] {
		return false
	}
	s.inFlight[scope.String()] = true
	return true
}

func (s *Service) release(scope model.Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, scope.String())
}

// SyncScope pulls the feed for one scope and ingests it.  Feed failures
// surface as ErrSourceUnavailable without touching the ledger.
func (s *Service) SyncScope(ctx context.Context, scope model.Scope) (Report, error) {
	if s.source == nil {
		return Report{}, fmt.Errorf("%w: no source configured", ErrSourceUnavailable)
	}
	if !s.acquire(scope) {
		return Report{}, ErrSyncInFlight
	}
	defer s.release(scope)

	items, err := s.source.FetchItems(ctx, scope)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return s.sync(ctx, scope, items)
}

// Sync ingests an externally supplied batch for one scope.  Safe to
// retry with identical input: the upsert path makes the second run a
// no-op.  Concurrent calls for the same scope are rejected.
func (s *Service) Sync(ctx context.Context, scope model.Scope, items []model.RawItem) (Report, error) {
	if !s.acquire(scope) {
		return Report{}, ErrSyncInFlight
	}
	defer s.release(scope)
	return s.sync(ctx, scope, items)
}

func (s *Service) sync(ctx context.Context, scope model.Scope, items []model.RawItem) (Report, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	now := s.now().UTC()
	report := Report{Scope: scope}
	seen := make(map[int64]bool, len(items))

	for _, raw := range items {
		if cause := validateRaw(raw); cause != "" {
			// Partial failure is per-record: log, record, move on.
			log.Printf("syncer: %s item %d skipped: %s", scope, raw.ID, cause)
			report.Failures = append(report.Failures, RecordFailure{ItemID: raw.ID, Cause: cause})
			continue
		}
		seen[raw.ID] = true

		item := normalize(scope, raw)
		created, reclassified, err := s.items.Upsert(ctx, item)
		if err != nil {
			log.Printf("syncer: %s item %d upsert failed: %v", scope, raw.ID, err)
			report.Failures = append(report.Failures, RecordFailure{ItemID: raw.ID, Cause: err.Error()})
			continue
		}
		if created {
			report.Ingested++
		}
		if reclassified {
			report.Reclassified++
		}
	}

	// Items the ledger believes are live but the feed no longer reports
	// get a tombstone timestamp.  History stays put for audit.
	active, err := s.items.ActiveItemIDs(ctx, scope)
	if err != nil {
		return report, fmt.Errorf("syncer: list active items: %w", err)
	}
	var gone []int64
	for _, id := range active {
		if !seen[id] {
			gone = append(gone, id)
		}
	}
	if len(gone) > 0 {
		n, err := s.items.Tombstone(ctx, scope, gone, now)
		if err != nil {
			return report, fmt.Errorf("syncer: tombstone: %w", err)
		}
		report.Tombstoned = n
	}

	if s.state != nil {
		if err := s.state.UpdateSyncState(ctx, scope, report.Ingested, now); err != nil {
			log.Printf("syncer: %s update sync state failed: %v", scope, err)
		}
	}
	return report, nil
}

// Override force-classifies a closed item as Invalid or Duplicate.  If
// expectedAuthor is non-empty the item's author must match it.  Items
// already carrying a terminal classification are not overridable.
func (s *Service) Override(ctx context.Context, scope model.Scope, itemID int64, class model.Classification, expectedAuthor string) (model.TrackedItem, error) {
	if class != model.ClassInvalid && class != model.ClassDuplicate {
		return model.TrackedItem{}, ErrInvalidClassification
	}
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	item, err := s.items.Get(ctx, scope, itemID)
	if err != nil {
		return model.TrackedItem{}, err
	}
	if item.Lifecycle != model.LifecycleClosed {
		return model.TrackedItem{}, ErrNotClosed
	}
	if item.Classification != model.ClassUnclassified {
		return model.TrackedItem{}, ErrAlreadyClassified
	}
	if expectedAuthor != "" && item.Author != strings.ToLower(strings.TrimSpace(expectedAuthor)) {
		return model.TrackedItem{}, ErrAuthorMismatch
	}
	if err := s.items.SetClassification(ctx, scope, itemID, class, s.now().UTC()); err != nil {
		return model.TrackedItem{}, fmt.Errorf("syncer: override: %w", err)
	}
	item.Classification = class
	return item, nil
}

func validateRaw(raw model.RawItem) string {
	if raw.ID <= 0 {
		return "missing item id"
	}
	if strings.TrimSpace(raw.Author) == "" {
		return "missing author"
	}
	if raw.CreatedAt.IsZero() {
		return "missing created_at"
	}
	return ""
}

func normalize(scope model.Scope, raw model.RawItem) model.TrackedItem {
	lifecycle := model.LifecycleOpen
	if raw.IsClosed {
		lifecycle = model.LifecycleClosed
	}
	return model.TrackedItem{
		Scope:          scope,
		ItemID:         raw.ID,
		Author:         strings.ToLower(strings.TrimSpace(raw.Author)),
		Lifecycle:      lifecycle,
		Classification: ledger.Classify(raw.Labels),
		Labels:         raw.Labels,
		CreatedAt:      raw.CreatedAt,
		UpdatedAt:      raw.UpdatedAt,
		ClosedAt:       raw.ClosedAt,
	}
}
