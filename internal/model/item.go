package model

import "time"

// Classification is the derived status of a tracked item, computed from
// its label set by ledger.Classify.  Exactly one classification holds at
// a time; the precedence rule lives in the ledger package and nowhere
// else.
type Classification string

const (
	ClassUnclassified Classification = "UNCLASSIFIED"
	ClassValid        Classification = "VALID"
	ClassInvalid      Classification = "INVALID"
	ClassDuplicate    Classification = "DUPLICATE"
)

// Lifecycle states mirror the upstream tracker's open/closed flag.
const (
	LifecycleOpen   = "OPEN"
	LifecycleClosed = "CLOSED"
)

// Scope identifies one tracked collection on the external source, e.g. a
// repository under an owner namespace.
type Scope struct {
	Owner string // tracked_items.scope_owner
	Name  string // tracked_items.scope_name
}

// String renders the scope in owner/name form for logging and queue keys.
func (s Scope) String() string { return s.Owner + "/" + s.Name }

// TrackedItem is one externally observed item in the event ledger.
// Rows are created on first sync observation, mutated only by
// reclassification or tombstoning, and never deleted: an item the feed
// stops reporting gets TombstonedAt set and disappears from every
// downstream view while staying available for audit and replay.
//
// Fields:
//  ID             – primary key identifier.
//  Scope          – owner/collection the item belongs to.
//  ItemID         – item number within the scope; (scope, item_id) is unique.
//  Author         – external account that authored the item (lowercase).
//  Lifecycle      – OPEN or CLOSED.
//  Classification – derived status, recomputed from labels on every sync.
//  Labels         – raw label set from the last sync, kept for audit.
//  CreatedAt      – upstream creation timestamp.
//  UpdatedAt      – upstream last-update timestamp.
//  ClosedAt       – upstream close timestamp (nil while open).
//  TombstonedAt   – soft-delete marker (nil while the feed reports the item).
type TrackedItem struct {
	ID             uint64         // tracked_items.id
	Scope          Scope          // tracked_items.scope_owner / scope_name
	ItemID         int64          // tracked_items.item_id
	Author         string         // tracked_items.author
	Lifecycle      string         // tracked_items.lifecycle
	Classification Classification // tracked_items.classification
	Labels         []string       // tracked_items.labels (comma-joined in storage)
	CreatedAt      time.Time      // tracked_items.created_at
	UpdatedAt      time.Time      // tracked_items.updated_at
	ClosedAt       *time.Time     // tracked_items.closed_at (nullable)
	TombstonedAt   *time.Time     // tracked_items.tombstoned_at (nullable)
}

// RawItem is one record from the external event source.  The syncer
// normalizes it into a TrackedItem; the core does not care how the
// collaborator obtained it (polling, webhooks, manual import).
type RawItem struct {
	ID        int64      `json:"id"`
	Author    string     `json:"author"`
	IsClosed  bool       `json:"is_closed"`
	Labels    []string   `json:"labels"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at"`
}
