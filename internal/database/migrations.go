package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Migration is one forward-only schema change
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations are applied in order; never edit an applied entry, append a new one.
var Migrations = []Migration{
	{
		Version:     1,
		Description: "users and properties",
		SQL: `
			CREATE TABLE IF NOT EXISTS users (
				id UUID PRIMARY KEY,
				email VARCHAR(254) NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				full_name VARCHAR(120) NOT NULL,
				roles TEXT[] NOT NULL DEFAULT '{guest}',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS properties (
				id BIGSERIAL PRIMARY KEY,
				host_id UUID NOT NULL REFERENCES users(id),
				title VARCHAR(200) NOT NULL,
				location VARCHAR(200) NOT NULL,
				price_per_night NUMERIC(10,2) NOT NULL CHECK (price_per_night > 0),
				max_guests INTEGER NOT NULL CHECK (max_guests > 0),
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);`,
	},
	{
		Version:     2,
		Description: "bookings",
		SQL: `
			CREATE TABLE IF NOT EXISTS bookings (
				id BIGSERIAL PRIMARY KEY,
				property_id BIGINT NOT NULL REFERENCES properties(id),
				user_id UUID NOT NULL REFERENCES users(id),
				check_in DATE NOT NULL,
				check_out DATE NOT NULL,
				guests INTEGER NOT NULL CHECK (guests > 0),
				status VARCHAR(20) NOT NULL DEFAULT 'pending'
					CHECK (status IN ('pending', 'confirmed', 'cancelled')),
				payment_status VARCHAR(20) NOT NULL DEFAULT 'unpaid'
					CHECK (payment_status IN ('unpaid', 'processing', 'paid', 'failed', 'refunded', 'canceled')),
				payment_intent_id VARCHAR(255),
				total_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				CHECK (check_out > check_in)
			);

			CREATE INDEX IF NOT EXISTS idx_bookings_user_id ON bookings(user_id);
			CREATE INDEX IF NOT EXISTS idx_bookings_payment_status_updated
				ON bookings(payment_status, updated_at);`,
	},
	{
		Version:     3,
		Description: "payment audit trail",
		SQL: `
			CREATE TABLE IF NOT EXISTS payment_audits (
				id UUID PRIMARY KEY,
				booking_id BIGINT,
				payment_intent_id VARCHAR(255),
				provider_event_id VARCHAR(255),
				event_type VARCHAR(50) NOT NULL,
				event_source VARCHAR(20) NOT NULL,
				payment_status VARCHAR(20),
				provider_status VARCHAR(50),
				amount NUMERIC(12,2),
				currency VARCHAR(3),
				error_message TEXT,
				processing_time_ms INTEGER,
				is_duplicate BOOLEAN NOT NULL DEFAULT FALSE,
				ip_address VARCHAR(64),
				user_agent TEXT,
				metadata JSONB,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_payment_audits_booking ON payment_audits(booking_id, created_at);
			CREATE INDEX IF NOT EXISTS idx_payment_audits_intent ON payment_audits(payment_intent_id);`,
	},
}

// Migrate applies every migration newer than the recorded schema version.
// Returns the number of migrations applied.
func Migrate(ctx context.Context, db DB, logger *logrus.Logger) (int, error) {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current int
	if err := db.GetContext(ctx, &current, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}

	applied := 0
	for _, m := range Migrations {
		if m.Version <= current {
			continue
		}

		if _, err := db.ExecContext(ctx, m.SQL); err != nil {
			return applied, fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, description) VALUES ($1, $2)`,
			m.Version, m.Description,
		); err != nil {
			return applied, fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}

		logger.WithFields(logrus.Fields{
			"version":     m.Version,
			"description": m.Description,
		}).Info("Applied migration")
		applied++
	}

	return applied, nil
}
