package repository

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE SCHEMA IF NOT EXISTS bank`,
	`CREATE TABLE IF NOT EXISTS bank.customers (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		email          TEXT NOT NULL,
		monthly_income NUMERIC(18,2) NOT NULL DEFAULT 0,
		created_at     TIMESTAMPTZ NOT NULL,
		inquiries      JSONB
	)`,
	`CREATE TABLE IF NOT EXISTS bank.accounts (
		id               TEXT PRIMARY KEY,
		customer_id      TEXT NOT NULL REFERENCES bank.customers(id),
		tier             TEXT NOT NULL,
		status           TEXT NOT NULL,
		balance          NUMERIC(18,2) NOT NULL DEFAULT 0,
		opened_on        TIMESTAMPTZ NOT NULL,
		pending_amb_fees NUMERIC(18,2) NOT NULL DEFAULT 0,
		window_start     TIMESTAMPTZ NOT NULL,
		weighted_sum     NUMERIC(24,2) NOT NULL DEFAULT 0,
		last_accrued     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bank.loans (
		id             TEXT PRIMARY KEY,
		account_id     TEXT NOT NULL REFERENCES bank.accounts(id),
		principal      NUMERIC(18,2) NOT NULL,
		annual_rate    NUMERIC(8,4) NOT NULL,
		term_periods   INT NOT NULL,
		start_date     TIMESTAMPTZ NOT NULL,
		status         TEXT NOT NULL,
		outstanding    NUMERIC(18,2) NOT NULL,
		next_due       TIMESTAMPTZ,
		periods_paid   INT NOT NULL DEFAULT 0,
		missed_periods INT NOT NULL DEFAULT 0,
		penalty_due    NUMERIC(18,2) NOT NULL DEFAULT 0,
		schedule       JSONB
	)`,
	`CREATE TABLE IF NOT EXISTS bank.obligations (
		id         TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES bank.accounts(id),
		kind       TEXT NOT NULL,
		name       TEXT NOT NULL,
		category   TEXT,
		amount     NUMERIC(18,2) NOT NULL,
		frequency  TEXT NOT NULL,
		next_due   TIMESTAMPTZ NOT NULL,
		status     TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bank.cards (
		id                TEXT PRIMARY KEY,
		account_id        TEXT NOT NULL REFERENCES bank.accounts(id),
		customer_id       TEXT NOT NULL REFERENCES bank.customers(id),
		number            TEXT NOT NULL,
		expiry            TEXT NOT NULL DEFAULT '',
		credit_limit      NUMERIC(18,2) NOT NULL,
		outstanding       NUMERIC(18,2) NOT NULL DEFAULT 0,
		statement_balance NUMERIC(18,2) NOT NULL DEFAULT 0,
		minimum_due       NUMERIC(18,2) NOT NULL DEFAULT 0,
		billing_day       INT NOT NULL,
		last_statement    TIMESTAMPTZ,
		due_date          TIMESTAMPTZ,
		annual_rate       NUMERIC(8,4) NOT NULL,
		autopay           TEXT NOT NULL,
		opened_on         TIMESTAMPTZ NOT NULL,
		statements        JSONB
	)`,
	`CREATE TABLE IF NOT EXISTS bank.events (
		id         TEXT PRIMARY KEY,
		date       TIMESTAMPTZ NOT NULL,
		kind       TEXT NOT NULL,
		account_id TEXT,
		amount     NUMERIC(18,2) NOT NULL,
		outcome    TEXT NOT NULL,
		ref_id     TEXT,
		detail     TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS events_account_idx ON bank.events (account_id, date)`,
	`CREATE TABLE IF NOT EXISTS bank.scores (
		customer_id     TEXT NOT NULL REFERENCES bank.customers(id),
		score           INT NOT NULL,
		category        TEXT NOT NULL,
		payment_history NUMERIC(8,6) NOT NULL,
		utilization     NUMERIC(8,6) NOT NULL,
		credit_mix      NUMERIC(8,6) NOT NULL,
		inquiries       NUMERIC(8,6) NOT NULL,
		account_age     NUMERIC(8,6) NOT NULL,
		computed_on     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS scores_customer_idx ON bank.scores (customer_id, computed_on)`,
	`CREATE TABLE IF NOT EXISTS bank.sim_state (
		id             INT PRIMARY KEY,
		last_committed TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bank.users (
		id            BIGSERIAL PRIMARY KEY,
		username      TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// Migrate creates the schema. Statements are idempotent so startup can run
// them unconditionally.
func (r *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
