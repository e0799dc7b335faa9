package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/staychill/booking-backend/internal/models"
)

const paymentAuditColumns = `
	id, booking_id, payment_intent_id, provider_event_id,
	event_type, event_source, payment_status, provider_status,
	amount, currency, error_message, processing_time_ms, is_duplicate,
	ip_address, user_agent, metadata, created_at`

// PaymentAuditRepository handles payment audit operations
type PaymentAuditRepository struct {
	db DB
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db DB) *PaymentAuditRepository {
	return &PaymentAuditRepository{
		db: db,
	}
}

// Log creates a new payment audit entry
func (r *PaymentAuditRepository) Log(ctx context.Context, audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_audits (` + paymentAuditColumns + `
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12, $13,
			$14, $15, $16, $17
		)`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.BookingID, audit.PaymentIntentID, audit.ProviderEventID,
		audit.EventType, audit.EventSource, audit.PaymentStatus, audit.ProviderStatus,
		audit.Amount, audit.Currency, audit.ErrorMessage, audit.ProcessingTimeMs, audit.IsDuplicate,
		audit.IPAddress, audit.UserAgent, audit.Metadata, audit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment audit: %w", err)
	}
	return nil
}

// ListByBooking returns a booking's audit trail in chronological order
func (r *PaymentAuditRepository) ListByBooking(ctx context.Context, bookingID int64) ([]*models.PaymentAudit, error) {
	query := `SELECT ` + paymentAuditColumns + ` FROM payment_audits WHERE booking_id = $1 ORDER BY created_at ASC`

	audits := []*models.PaymentAudit{}
	if err := r.db.SelectContext(ctx, &audits, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to get audits by booking: %w", err)
	}
	return audits, nil
}

// ListByIntent returns every audit entry for a provider payment intent
func (r *PaymentAuditRepository) ListByIntent(ctx context.Context, paymentIntentID string) ([]*models.PaymentAudit, error) {
	query := `SELECT ` + paymentAuditColumns + ` FROM payment_audits WHERE payment_intent_id = $1 ORDER BY created_at ASC`

	audits := []*models.PaymentAudit{}
	if err := r.db.SelectContext(ctx, &audits, query, paymentIntentID); err != nil {
		return nil, fmt.Errorf("failed to get audits by intent: %w", err)
	}
	return audits, nil
}
