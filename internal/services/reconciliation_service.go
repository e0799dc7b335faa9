package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/staychill/booking-backend/internal/database"
	"github.com/staychill/booking-backend/internal/models"
)

// ReconciliationService sweeps bookings stuck in processing and resolves them
// against the provider. It closes the gap left when a webhook never arrives or
// a storage write failed after the provider accepted a payment.
type ReconciliationService struct {
	bookings   database.BookingStore
	lifecycle  *BookingLifecycleService
	logger     *logrus.Logger
	staleAfter time.Duration
	batchSize  int
	now        func() time.Time

	// running keeps scheduled, admin and CLI sweeps in this process from overlapping
	running sync.Mutex
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(
	bookings database.BookingStore,
	lifecycle *BookingLifecycleService,
	logger *logrus.Logger,
	staleAfter time.Duration,
	batchSize int,
) *ReconciliationService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ReconciliationService{
		bookings:   bookings,
		lifecycle:  lifecycle,
		logger:     logger,
		staleAfter: staleAfter,
		batchSize:  batchSize,
		now:        time.Now,
	}
}

// Run resolves processing bookings untouched for longer than staleAfter.
// Per-booking failures are counted and the sweep continues. A sweep already in
// progress makes Run fail with ErrConflict.
func (s *ReconciliationService) Run(ctx context.Context, source models.PaymentEventSource) (*models.ReconcileResult, error) {
	if !s.lifecycle.ProviderConfigured() {
		return nil, ErrProviderUnavailable
	}
	if !s.running.TryLock() {
		return nil, fmt.Errorf("%w: a reconciliation sweep is already running", ErrConflict)
	}
	defer s.running.Unlock()

	cutoff := s.now().Add(-s.staleAfter)

	result := &models.ReconcileResult{}

	// keyset paging so bookings left unchanged cannot starve the ones behind them
	var cursor *models.BookingCursor
	for {
		bookings, err := s.bookings.ListBookingsByPaymentStatus(ctx, models.PaymentStatusProcessing, cutoff, cursor, s.batchSize)
		if err != nil {
			return result, err
		}

		for _, booking := range bookings {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			result.Scanned++

			changed, err := s.lifecycle.ReconcileBooking(ctx, booking, source)
			if err != nil {
				if errors.Is(err, ErrProviderUnavailable) {
					return result, err
				}
				result.Errors++
				s.logger.WithFields(logrus.Fields{
					"booking_id":        booking.ID,
					"payment_intent_id": booking.IntentID(),
				}).WithError(err).Warn("Failed to reconcile booking")
				continue
			}
			if changed {
				result.Resolved++
			} else {
				result.Unchanged++
			}
		}

		if len(bookings) < s.batchSize {
			return result, nil
		}
		cursor = models.CursorOf(bookings[len(bookings)-1])
	}
}
