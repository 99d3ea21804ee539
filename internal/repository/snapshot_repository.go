package repository

import (
	"context"
	"database/sql"

	"github.com/platformnet/bounty-ledger/internal/model"
)

// SnapshotRepo persists score snapshots.  The table is strictly
// append-only: rows are never updated or deleted, so any historical
// epoch can be re-read exactly as it was published, formula drift or
// not.
type SnapshotRepo struct{ DB *sql.DB }

func NewSnapshotRepo(db *sql.DB) *SnapshotRepo { return &SnapshotRepo{DB: db} }

const snapshotColumns = "id,epoch,identity_key,account,valid_count,invalid_count,duplicate_count,star_count,star_bonus,admin_bonus,penalty,net_points,raw_weight,is_penalized,formula_version,computed_at"

// InsertBatch appends one scoring run's snapshots in a single
// statement.  Passing an empty slice has no effect and returns nil.
func (r *SnapshotRepo) InsertBatch(ctx context.Context, snaps []model.ScoreSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	query := `INSERT INTO score_snapshots
	  (epoch, identity_key, account, valid_count, invalid_count, duplicate_count, star_count,
	   star_bonus, admin_bonus, penalty, net_points, raw_weight, is_penalized, formula_version, computed_at) VALUES `
	args := make([]interface{}, 0, len(snaps)*15)
	for i, s := range snaps {
		if i > 0 {
			query += ","
		}
		query += "(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)"
		args = append(args, s.Epoch, s.IdentityKey, s.Account, s.ValidCount, s.InvalidCount,
			s.DuplicateCount, s.StarCount, s.StarBonus, s.AdminBonus, s.Penalty, s.NetPoints,
			s.RawWeight, s.IsPenalized, s.FormulaVersion, s.ComputedAt)
	}
	_, err := r.DB.ExecContext(ctx, query, args...)
	return err
}

// LatestEpoch returns the newest epoch that has snapshots, or
// ErrNotFound when no run has ever been recorded.
func (r *SnapshotRepo) LatestEpoch(ctx context.Context) (uint64, error) {
	var epoch sql.NullInt64
	err := r.DB.QueryRowContext(ctx,
		"SELECT MAX(epoch) FROM score_snapshots").Scan(&epoch)
	if err != nil {
		return 0, err
	}
	if !epoch.Valid {
		return 0, ErrNotFound
	}
	return uint64(epoch.Int64), nil
}

// ListByEpoch returns one snapshot per identity for the epoch, ordered
// by raw weight descending, identity key ascending on ties.  This is
// the leaderboard order.  An epoch can hold more than one row per
// identity when a run was replayed into it; only the last write counts,
// so the query keeps the highest id per identity.
func (r *SnapshotRepo) ListByEpoch(ctx context.Context, epoch uint64) ([]model.ScoreSnapshot, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM score_snapshots s
		 WHERE s.epoch=? AND s.id=(
		   SELECT MAX(id) FROM score_snapshots WHERE epoch=s.epoch AND identity_key=s.identity_key)
		 ORDER BY raw_weight DESC, identity_key ASC`,
		epoch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []model.ScoreSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

// LatestForIdentity returns an identity's most recent snapshot.  The id
// tiebreaker picks the last write when a replayed run left several rows
// in the newest epoch.
func (r *SnapshotRepo) LatestForIdentity(ctx context.Context, identityKey string) (model.ScoreSnapshot, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+snapshotColumns+" FROM score_snapshots WHERE identity_key=? ORDER BY epoch DESC, id DESC LIMIT 1",
		identityKey)
	s, err := scanSnapshot(row)
	return s, mapNoRows(err)
}

func scanSnapshot(row rowScanner) (model.ScoreSnapshot, error) {
	var s model.ScoreSnapshot
	err := row.Scan(&s.ID, &s.Epoch, &s.IdentityKey, &s.Account, &s.ValidCount, &s.InvalidCount,
		&s.DuplicateCount, &s.StarCount, &s.StarBonus, &s.AdminBonus, &s.Penalty, &s.NetPoints,
		&s.RawWeight, &s.IsPenalized, &s.FormulaVersion, &s.ComputedAt)
	return s, err
}
