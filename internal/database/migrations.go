package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS entitlements (
		id                 UUID PRIMARY KEY,
		owner_id           TEXT NOT NULL,
		owner_kind         TEXT NOT NULL CHECK (owner_kind IN ('user', 'center')),
		package_ref        TEXT NOT NULL,
		total_credits      INTEGER NOT NULL CHECK (total_credits >= 1),
		used_credits       INTEGER NOT NULL DEFAULT 0 CHECK (used_credits >= 0),
		purchased_at       TIMESTAMPTZ NOT NULL,
		expires_at         TIMESTAMPTZ NOT NULL,
		purchase_reference TEXT NOT NULL UNIQUE,
		CHECK (used_credits <= total_credits),
		CHECK (expires_at > purchased_at)
	)`,
	`CREATE INDEX IF NOT EXISTS entitlements_owner_idx
		ON entitlements (owner_id, owner_kind, purchased_at, id)`,

	`CREATE TABLE IF NOT EXISTS wallets (
		id                 UUID PRIMARY KEY,
		center_id          TEXT NOT NULL UNIQUE,
		balance            BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		pending_withdrawal BIGINT NOT NULL DEFAULT 0 CHECK (pending_withdrawal >= 0),
		total_earnings     BIGINT NOT NULL DEFAULT 0 CHECK (total_earnings >= 0),
		total_withdrawn    BIGINT NOT NULL DEFAULT 0 CHECK (total_withdrawn >= 0),
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		version            BIGINT NOT NULL DEFAULT 0,
		CHECK (balance = total_earnings - total_withdrawn - pending_withdrawal)
	)`,

	`CREATE TABLE IF NOT EXISTS wallet_transactions (
		id           UUID PRIMARY KEY,
		wallet_id    UUID NOT NULL REFERENCES wallets (id),
		center_id    TEXT NOT NULL,
		type         TEXT NOT NULL CHECK (type IN ('credit', 'debit', 'withdrawal', 'bonus')),
		amount       BIGINT NOT NULL CHECK (amount > 0),
		status       TEXT NOT NULL CHECK (status IN ('pending', 'completed', 'rejected', 'cancelled')),
		reference    TEXT,
		task_id      TEXT,
		admin_note   TEXT,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		processed_at TIMESTAMPTZ,
		processed_by TEXT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS wallet_transactions_reference_idx
		ON wallet_transactions (reference) WHERE reference IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS wallet_transactions_center_idx
		ON wallet_transactions (center_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS job_applications (
		id             UUID PRIMARY KEY,
		user_id        TEXT NOT NULL,
		job_id         TEXT NOT NULL,
		entitlement_id UUID NOT NULL REFERENCES entitlements (id),
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	// A NULL entitlement_id marks a lead reserved but not yet paid for.
	`CREATE TABLE IF NOT EXISTS lead_assignments (
		lead_id        TEXT PRIMARY KEY,
		center_id      TEXT NOT NULL,
		entitlement_id UUID REFERENCES entitlements (id),
		assigned_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	// Upgrades for tables created before wallet versions and lead reservations.
	`ALTER TABLE wallets ADD COLUMN IF NOT EXISTS version BIGINT NOT NULL DEFAULT 0`,
	`ALTER TABLE lead_assignments ALTER COLUMN entitlement_id DROP NOT NULL`,
}

// Migrate creates the ledger tables inside a single transaction.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}
