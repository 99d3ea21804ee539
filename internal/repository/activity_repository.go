package repository

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/platformnet/bounty-ledger/internal/model"
	"github.com/platformnet/bounty-ledger/internal/scoring"
)

// ActivityRepo aggregates the ledgers into per-identity window activity
// for the scoring engine.  The whole read runs inside one
// REPEATABLE READ read-only transaction, so a sync committing mid-run
// cannot mix pre- and post-sync classifications into the same score.
//
// Aggregation is done here with explicit GROUP BY queries rather than
// database views so the formula stays unit-testable against plain
// Activity values.
type ActivityRepo struct{ DB *sql.DB }

func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{DB: db} }

// WindowActivity returns one Activity per identity whose bound account
// authored at least one live tracked item inside the window.  Valid
// items count by close time; invalid and duplicate items count by last
// observation time.  Tombstoned items never count.  Stars are lifetime;
// grant expiry is evaluated against now inside the same transaction.
func (r *ActivityRepo) WindowActivity(ctx context.Context, windowStart, now time.Time) ([]scoring.Activity, error) {
	tx, err := r.DB.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	identities, err := r.listIdentities(ctx, tx)
	if err != nil {
		return nil, err
	}

	type counts struct{ valid, invalid, duplicate, any int }
	byAuthor := make(map[string]*counts)
	author := func(a string) *counts {
		c, ok := byAuthor[a]
		if !ok {
			c = &counts{}
			byAuthor[a] = c
		}
		return c
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT author, classification, COUNT(*)
		   FROM tracked_items
		  WHERE tombstoned_at IS NULL
		    AND ((classification = ? AND closed_at >= ? AND closed_at <= ?)
		      OR (classification <> ? AND updated_at >= ? AND updated_at <= ?))
		  GROUP BY author, classification`,
		model.ClassValid, windowStart, now,
		model.ClassValid, windowStart, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			acct  string
			class model.Classification
			n     int
		)
		if err := rows.Scan(&acct, &class, &n); err != nil {
			return nil, err
		}
		c := author(acct)
		c.any += n
		switch class {
		case model.ClassValid:
			c.valid = n
		case model.ClassInvalid:
			c.invalid = n
		case model.ClassDuplicate:
			c.duplicate = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stars, err := r.starCounts(ctx, tx)
	if err != nil {
		return nil, err
	}
	bonuses, err := r.activeBonusSums(ctx, tx, now)
	if err != nil {
		return nil, err
	}

	var activities []scoring.Activity
	for _, id := range identities {
		c, ok := byAuthor[id.Account]
		if !ok || c.any == 0 {
			continue
		}
		activities = append(activities, scoring.Activity{
			IdentityKey:    id.IdentityKey,
			Account:        id.Account,
			ValidCount:     c.valid,
			InvalidCount:   c.invalid,
			DuplicateCount: c.duplicate,
			StarCount:      stars[id.Account],
			AdminBonus:     bonuses[id.IdentityKey],
		})
	}
	sort.Slice(activities, func(i, j int) bool { return activities[i].Account < activities[j].Account })
	return activities, tx.Commit()
}

func (r *ActivityRepo) listIdentities(ctx context.Context, tx *sql.Tx) ([]model.Identity, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id,identity_key,account,bound_at FROM identities")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []model.Identity
	for rows.Next() {
		var id model.Identity
		if err := rows.Scan(&id.ID, &id.IdentityKey, &id.Account, &id.BoundAt); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ActivityRepo) starCounts(ctx context.Context, tx *sql.Tx) (map[string]int, error) {
	rows, err := tx.QueryContext(ctx, "SELECT account, COUNT(*) FROM stars GROUP BY account")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			acct string
			n    int
		)
		if err := rows.Scan(&acct, &n); err != nil {
			return nil, err
		}
		counts[acct] = n
	}
	return counts, rows.Err()
}

func (r *ActivityRepo) activeBonusSums(ctx context.Context, tx *sql.Tx, now time.Time) (map[string]float64, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT identity_key, SUM(amount) FROM bonus_grants WHERE active=1 AND expires_at > ? GROUP BY identity_key",
		now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sums := make(map[string]float64)
	for rows.Next() {
		var (
			key string
			sum float64
		)
		if err := rows.Scan(&key, &sum); err != nil {
			return nil, err
		}
		sums[key] = sum
	}
	return sums, rows.Err()
}
