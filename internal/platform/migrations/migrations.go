// Package migrations applies the database schema in order at boot. Each
// statement is idempotent so repeated application is safe.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		kyc_status TEXT NOT NULL DEFAULT 'pending',
		wallet_address TEXT NOT NULL DEFAULT '',
		wallet_status TEXT NOT NULL DEFAULT 'not_activated',
		ngnts_balance BIGINT NOT NULL DEFAULT 0,
		fund_balance BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS deposit_requests (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		amount BIGINT NOT NULL,
		reference_code TEXT NOT NULL,
		platform_fee_bps BIGINT NOT NULL,
		platform_fee_amount BIGINT NOT NULL,
		gas_fee_amount BIGINT NOT NULL,
		net_credited BIGINT NOT NULL,
		proof_id TEXT NOT NULL DEFAULT '',
		proof_name TEXT NOT NULL DEFAULT '',
		proof_content_type TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		rejection_reason TEXT NOT NULL DEFAULT '',
		tx_hash TEXT NOT NULL DEFAULT '',
		reviewed_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS deposit_requests_reference_outstanding
		ON deposit_requests (reference_code)
		WHERE status IN ('pending', 'approved')`,
	`CREATE TABLE IF NOT EXISTS contribution_requests (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		amount BIGINT NOT NULL,
		reference_code TEXT NOT NULL,
		platform_fee_bps BIGINT NOT NULL,
		platform_fee_amount BIGINT NOT NULL,
		gas_fee_amount BIGINT NOT NULL,
		net_credited BIGINT NOT NULL,
		proof_id TEXT NOT NULL DEFAULT '',
		proof_name TEXT NOT NULL DEFAULT '',
		proof_content_type TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		rejection_reason TEXT NOT NULL DEFAULT '',
		tx_hash TEXT NOT NULL DEFAULT '',
		reviewed_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS contribution_requests_reference_outstanding
		ON contribution_requests (reference_code)
		WHERE status IN ('pending', 'approved')`,
	`CREATE TABLE IF NOT EXISTS wallet_activation_requests (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		public_key TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		rejection_reason TEXT NOT NULL DEFAULT '',
		gas_funded BOOLEAN NOT NULL DEFAULT FALSE,
		reviewed_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS holdings (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		project_id TEXT NOT NULL,
		total_tokens BIGINT NOT NULL,
		liquid_tokens BIGINT NOT NULL,
		locked_tokens BIGINT NOT NULL,
		nav_per_token BIGINT NOT NULL,
		lock_type TEXT NOT NULL DEFAULT 'none',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT holdings_partition CHECK (total_tokens = liquid_tokens + locked_tokens),
		UNIQUE (account_id, project_id)
	)`,
	`CREATE TABLE IF NOT EXISTS redemption_requests (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		project_id TEXT NOT NULL,
		tokens BIGINT NOT NULL,
		nav_per_token BIGINT NOT NULL,
		payout_amount BIGINT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		rejection_reason TEXT NOT NULL DEFAULT '',
		reviewed_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS platform_settings (
		singleton BOOLEAN PRIMARY KEY DEFAULT TRUE,
		bank_name TEXT NOT NULL,
		account_name TEXT NOT NULL,
		account_number TEXT NOT NULL,
		updated_by TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT platform_settings_single_row CHECK (singleton)
	)`,
}

// Apply runs every migration statement in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
