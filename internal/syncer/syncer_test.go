package syncer

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformnet/bounty-ledger/internal/model"
)

type memItems struct {
	mu    sync.Mutex
	rows  map[string]*model.TrackedItem
	block chan struct{} // when set, Upsert parks until closed
}

func newMemItems() *memItems { return &memItems{rows: map[string]*model.TrackedItem{}} }

func (m *memItems) key(scope model.Scope, id int64) string {
	return fmt.Sprintf("%s#%d", scope, id)
}

func (m *memItems) Upsert(_ context.Context, item model.TrackedItem) (bool, bool, error) {
	if m.block != nil && item.Scope == testScope {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.key(item.Scope, item.ItemID)
	existing, ok := m.rows[k]
	if !ok {
		cp := item
		m.rows[k] = &cp
		return true, false, nil
	}
	reclassified := existing.Classification != item.Classification
	item.ID = existing.ID
	item.TombstonedAt = nil // feed reports it again
	cp := item
	m.rows[k] = &cp
	return false, reclassified, nil
}

func (m *memItems) ActiveItemIDs(_ context.Context, scope model.Scope) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for _, it := range m.rows {
		if it.Scope == scope && it.TombstonedAt == nil {
			ids = append(ids, it.ItemID)
		}
	}
	return ids, nil
}

func (m *memItems) Tombstone(_ context.Context, scope model.Scope, itemIDs []int64, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range itemIDs {
		if it, ok := m.rows[m.key(scope, id)]; ok && it.TombstonedAt == nil {
			t := at
			it.TombstonedAt = &t
			n++
		}
	}
	return n, nil
}

func (m *memItems) Get(_ context.Context, scope model.Scope, itemID int64) (model.TrackedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.rows[m.key(scope, itemID)]; ok {
		return *it, nil
	}
	return model.TrackedItem{}, sql.ErrNoRows
}

func (m *memItems) SetClassification(_ context.Context, scope model.Scope, itemID int64, class model.Classification, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.rows[m.key(scope, itemID)]
	if !ok {
		return sql.ErrNoRows
	}
	it.Classification = class
	return nil
}

var testScope = model.Scope{Owner: "platformnet", Name: "tracker"}

func rawItem(id int64, author string, closed bool, labels ...string) model.RawItem {
	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	item := model.RawItem{
		ID: id, Author: author, IsClosed: closed, Labels: labels,
		CreatedAt: created, UpdatedAt: created,
	}
	if closed {
		closedAt := created.Add(time.Hour)
		item.ClosedAt = &closedAt
	}
	return item
}

func TestSyncIngestsAndClassifies(t *testing.T) {
	items := newMemItems()
	svc := NewService(items, nil, nil)

	report, err := svc.Sync(context.Background(), testScope, []model.RawItem{
		rawItem(1, "Alice", true, "valid"),
		rawItem(2, "bob", true, "invalid"),
		rawItem(3, "carol", false),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Ingested)
	assert.Zero(t, report.Tombstoned)
	assert.Empty(t, report.Failures)

	got, err := items.Get(context.Background(), testScope, 1)
	require.NoError(t, err)
	assert.Equal(t, model.ClassValid, got.Classification)
	assert.Equal(t, "alice", got.Author, "authors are canonicalized lowercase")
	assert.Equal(t, model.LifecycleClosed, got.Lifecycle)
}

func TestSyncIdempotent(t *testing.T) {
	items := newMemItems()
	svc := NewService(items, nil, nil)
	batch := []model.RawItem{
		rawItem(1, "alice", true, "valid"),
		rawItem(2, "bob", false),
	}

	first, err := svc.Sync(context.Background(), testScope, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Ingested)

	second, err := svc.Sync(context.Background(), testScope, batch)
	require.NoError(t, err)
	assert.Zero(t, second.Ingested)
	assert.Zero(t, second.Reclassified)
	assert.Zero(t, second.Tombstoned)
}

func TestSyncReclassifiesOnLabelChange(t *testing.T) {
	items := newMemItems()
	svc := NewService(items, nil, nil)

	_, err := svc.Sync(context.Background(), testScope, []model.RawItem{rawItem(1, "alice", false)})
	require.NoError(t, err)

	report, err := svc.Sync(context.Background(), testScope, []model.RawItem{rawItem(1, "alice", true, "valid")})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Reclassified)

	got, err := items.Get(context.Background(), testScope, 1)
	require.NoError(t, err)
	assert.Equal(t, model.ClassValid, got.Classification)
}

func TestSyncTombstonesMissingItems(t *testing.T) {
	items := newMemItems()
	svc := NewService(items, nil, nil)

	_, err := svc.Sync(context.Background(), testScope, []model.RawItem{
		rawItem(1, "alice", true, "valid"),
		rawItem(2, "bob", false),
	})
	require.NoError(t, err)

	report, err := svc.Sync(context.Background(), testScope, []model.RawItem{rawItem(1, "alice", true, "valid")})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Tombstoned)

	// Tombstoned, not deleted: the row is still readable for audit.
	got, err := items.Get(context.Background(), testScope, 2)
	require.NoError(t, err)
	require.NotNil(t, got.TombstonedAt)

	// And excluded from the active view.
	active, err := items.ActiveItemIDs(context.Background(), testScope)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, active)
}

func TestSyncPartialFailuresDoNotAbortBatch(t *testing.T) {
	items := newMemItems()
	svc := NewService(items, nil, nil)

	report, err := svc.Sync(context.Background(), testScope, []model.RawItem{
		rawItem(1, "alice", true, "valid"),
		{ID: 0, Author: "ghost"},      // missing id
		rawItem(3, "", false),         // missing author
		rawItem(4, "dora", true),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Ingested)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, int64(0), report.Failures[0].ItemID)
	assert.Equal(t, int64(3), report.Failures[1].ItemID)
}

func TestSyncSingleFlightPerScope(t *testing.T) {
	items := newMemItems()
	items.block = make(chan struct{})
	svc := NewService(items, nil, nil)

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := svc.Sync(context.Background(), testScope, []model.RawItem{rawItem(1, "alice", false)})
		done <- err
	}()
	<-started
	time.Sleep(20 * time.Millisecond) // let the goroutine take the lease

	_, err := svc.Sync(context.Background(), testScope, []model.RawItem{rawItem(1, "alice", false)})
	assert.ErrorIs(t, err, ErrSyncInFlight)

	// A different scope is not blocked by the lease.
	other := model.Scope{Owner: "platformnet", Name: "other"}
	_, err = svc.Sync(context.Background(), other, []model.RawItem{rawItem(9, "erin", false)})
	require.NoError(t, err)

	close(items.block)
	require.NoError(t, <-done)
}

func TestOverrideRules(t *testing.T) {
	items := newMemItems()
	svc := NewService(items, nil, nil)

	_, err := svc.Sync(context.Background(), testScope, []model.RawItem{
		rawItem(1, "alice", true),          // closed, unclassified
		rawItem(2, "bob", false),           // open
		rawItem(3, "carol", true, "valid"), // already terminal
	})
	require.NoError(t, err)

	// Happy path: closed + unclassified becomes invalid.
	item, err := svc.Override(context.Background(), testScope, 1, model.ClassInvalid, "")
	require.NoError(t, err)
	assert.Equal(t, model.ClassInvalid, item.Classification)

	_, err = svc.Override(context.Background(), testScope, 2, model.ClassInvalid, "")
	assert.ErrorIs(t, err, ErrNotClosed)

	_, err = svc.Override(context.Background(), testScope, 3, model.ClassDuplicate, "")
	assert.ErrorIs(t, err, ErrAlreadyClassified)

	_, err = svc.Override(context.Background(), testScope, 1, model.ClassValid, "")
	assert.ErrorIs(t, err, ErrInvalidClassification)
}

func TestOverrideAuthorMismatch(t *testing.T) {
	items := newMemItems()
	svc := NewService(items, nil, nil)

	_, err := svc.Sync(context.Background(), testScope, []model.RawItem{rawItem(1, "alice", true)})
	require.NoError(t, err)

	_, err = svc.Override(context.Background(), testScope, 1, model.ClassDuplicate, "mallory")
	assert.ErrorIs(t, err, ErrAuthorMismatch)

	// Case-insensitive match on the expected author.
	item, err := svc.Override(context.Background(), testScope, 1, model.ClassDuplicate, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, model.ClassDuplicate, item.Classification)
}
