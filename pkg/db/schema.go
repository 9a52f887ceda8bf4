package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema statements are written to run on both Postgres (production) and
// SQLite (tests): generic column types, no serial columns, no NOW().
// Timestamps are always supplied by the application in UTC.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS coupons (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		discount_type TEXT NOT NULL,
		value DOUBLE PRECISION NOT NULL,
		min_purchase DOUBLE PRECISION,
		max_uses BIGINT,
		max_uses_per_customer BIGINT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		starts_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP,
		uses_count BIGINT NOT NULL DEFAULT 0,
		square_discount_id TEXT,
		square_discount_version BIGINT,
		square_synced BOOLEAN NOT NULL DEFAULT FALSE,
		square_synced_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS coupon_redemptions (
		id TEXT PRIMARY KEY,
		coupon_id TEXT NOT NULL REFERENCES coupons(id),
		customer_email TEXT,
		customer_phone TEXT,
		discount_amount DOUBLE PRECISION NOT NULL,
		order_total DOUBLE PRECISION NOT NULL,
		redeemed_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_redemptions_coupon_email
		ON coupon_redemptions (coupon_id, customer_email)`,
	`CREATE TABLE IF NOT EXISTS age_verifications (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		ip_hash TEXT NOT NULL,
		user_agent TEXT NOT NULL,
		verified_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_age_verifications_verified_at
		ON age_verifications (verified_at)`,
	`CREATE TABLE IF NOT EXISTS contact_submissions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT,
		subject TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
}

// InitSchema creates all tables and indexes if they do not exist yet.
func InitSchema(ctx context.Context, conn *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
