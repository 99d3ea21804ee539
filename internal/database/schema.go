package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema holds the ledger tables.  Uniqueness keys are part of the
// contract, not an optimization: identities enforces the bijection,
// tracked_items serializes concurrent writes per item, stars makes
// star recording idempotent.  score_snapshots carries no unique key on
// purpose -- it is append-only and replays may legitimately write the
// same epoch twice under different formula versions.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS identities (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		identity_key  VARCHAR(128)    NOT NULL,
		account       VARCHAR(190)    NOT NULL,
		bound_at      DATETIME        NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_identities_key (identity_key),
		UNIQUE KEY uq_identities_account (account)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS tracked_items (
		id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		scope_owner    VARCHAR(100)    NOT NULL,
		scope_name     VARCHAR(100)    NOT NULL,
		item_id        BIGINT          NOT NULL,
		author         VARCHAR(190)    NOT NULL,
		lifecycle      VARCHAR(16)     NOT NULL,
		classification VARCHAR(16)     NOT NULL,
		labels         TEXT            NOT NULL,
		created_at     DATETIME        NOT NULL,
		updated_at     DATETIME        NOT NULL,
		closed_at      DATETIME        NULL,
		tombstoned_at  DATETIME        NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_items_scope_item (scope_owner, scope_name, item_id),
		KEY idx_items_author (author, classification)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS stars (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		account     VARCHAR(190)    NOT NULL,
		scope_owner VARCHAR(100)    NOT NULL,
		scope_name  VARCHAR(100)    NOT NULL,
		observed_at DATETIME        NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_stars_account_scope (account, scope_owner, scope_name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bonus_grants (
		id           CHAR(36)     NOT NULL,
		identity_key VARCHAR(128) NOT NULL,
		amount       DOUBLE       NOT NULL,
		reason       VARCHAR(255) NOT NULL,
		granted_by   VARCHAR(100) NOT NULL,
		granted_at   DATETIME     NOT NULL,
		expires_at   DATETIME     NOT NULL,
		active       TINYINT(1)   NOT NULL DEFAULT 1,
		PRIMARY KEY (id),
		KEY idx_grants_identity (identity_key, active, expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS score_snapshots (
		id              BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		epoch           BIGINT UNSIGNED NOT NULL,
		identity_key    VARCHAR(128)    NOT NULL,
		account         VARCHAR(190)    NOT NULL,
		valid_count     INT             NOT NULL,
		invalid_count   INT             NOT NULL,
		duplicate_count INT             NOT NULL,
		star_count      INT             NOT NULL,
		star_bonus      DOUBLE          NOT NULL,
		admin_bonus     DOUBLE          NOT NULL,
		penalty         DOUBLE          NOT NULL,
		net_points      DOUBLE          NOT NULL,
		raw_weight      DOUBLE          NOT NULL,
		is_penalized    TINYINT(1)      NOT NULL,
		formula_version VARCHAR(8)      NOT NULL,
		computed_at     DATETIME        NOT NULL,
		PRIMARY KEY (id),
		KEY idx_snapshots_epoch (epoch, identity_key)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS tracked_scopes (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		scope_owner VARCHAR(100)    NOT NULL,
		scope_name  VARCHAR(100)    NOT NULL,
		active      TINYINT(1)      NOT NULL DEFAULT 1,
		PRIMARY KEY (id),
		UNIQUE KEY uq_scopes (scope_owner, scope_name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS sync_state (
		scope_owner  VARCHAR(100) NOT NULL,
		scope_name   VARCHAR(100) NOT NULL,
		last_sync_at DATETIME     NULL,
		items_synced INT          NOT NULL DEFAULT 0,
		PRIMARY KEY (scope_owner, scope_name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.  Statements are idempotent, so
// running this on every boot is safe.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("database: migrate: %w", err)
		}
	}
	return nil
}
