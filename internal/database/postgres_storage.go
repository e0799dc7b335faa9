package database

import (
	"context"
)

// PostgresStorage composes the per-table repositories behind the Storage interface
type PostgresStorage struct {
	*BookingRepository
	*PropertyRepository
	*UserRepository

	db     *PostgresDB
	audits *PaymentAuditRepository
}

// NewPostgresStorage creates a relational storage backend on an open connection
func NewPostgresStorage(db *PostgresDB) *PostgresStorage {
	return &PostgresStorage{
		BookingRepository:  NewBookingRepository(db),
		PropertyRepository: NewPropertyRepository(db),
		UserRepository:     NewUserRepository(db),
		db:                 db,
		audits:             NewPaymentAuditRepository(db),
	}
}

// Audits returns the payment audit repository
func (s *PostgresStorage) Audits() PaymentAuditStore {
	return s.audits
}

// Ping verifies the database connection
func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying connection pool
func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
