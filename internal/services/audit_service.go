package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staychill/booking-backend/internal/database"
	"github.com/staychill/booking-backend/internal/models"
	"github.com/staychill/booking-backend/internal/utils"
)

// AuditService records payment lifecycle events in the append-only audit trail
type AuditService struct {
	store   database.PaymentAuditStore
	logger  *logrus.Logger
	enabled bool
}

// NewAuditService creates a new audit service. A disabled service still serves reads.
func NewAuditService(store database.PaymentAuditStore, logger *logrus.Logger, enabled bool) *AuditService {
	return &AuditService{
		store:   store,
		logger:  logger,
		enabled: enabled,
	}
}

// Record stores an audit entry. Request details attached to ctx are copied onto
// the entry. Failures are logged and never returned: losing an audit row must
// not fail a payment operation.
func (s *AuditService) Record(ctx context.Context, audit *models.PaymentAudit) {
	if s == nil || !s.enabled || audit == nil {
		return
	}

	if info, ok := RequestInfoFrom(ctx); ok {
		audit.SetRequestInfo(info.IPAddress, info.UserAgent)
		if info.UserAgent != "" {
			audit.AddMetadata("device_info", utils.ParseUserAgent(info.UserAgent).AsMetadata())
		}
		if info.UserID != uuid.Nil {
			audit.AddMetadata("user_id", info.UserID.String())
		}
	}

	// the caller's context may already be cancelled after the request ends
	if err := s.store.Log(context.WithoutCancel(ctx), audit); err != nil {
		s.logger.WithFields(logrus.Fields{
			"event_type": audit.EventType,
			"source":     audit.EventSource,
		}).WithError(err).Error("AUDIT ERROR: failed to record payment audit")
	}
}

// ListByBooking returns the audit trail for a booking, oldest first
func (s *AuditService) ListByBooking(ctx context.Context, bookingID int64) ([]*models.PaymentAudit, error) {
	return s.store.ListByBooking(ctx, bookingID)
}

// ListByIntent returns the audit trail for a payment intent, oldest first
func (s *AuditService) ListByIntent(ctx context.Context, paymentIntentID string) ([]*models.PaymentAudit, error) {
	return s.store.ListByIntent(ctx, paymentIntentID)
}
