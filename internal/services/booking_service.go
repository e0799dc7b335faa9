package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staychill/booking-backend/internal/database"
	"github.com/staychill/booking-backend/internal/models"
	"github.com/staychill/booking-backend/pkg/validator"
)

// BookingService handles guest bookings and administrative status changes
type BookingService struct {
	bookings   database.BookingStore
	properties database.PropertyStore
	audit      *AuditService
	events     *EventPublisher
	logger     *logrus.Logger
	now        func() time.Time
}

// NewBookingService creates a new booking service
func NewBookingService(
	bookings database.BookingStore,
	properties database.PropertyStore,
	audit *AuditService,
	events *EventPublisher,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookings:   bookings,
		properties: properties,
		audit:      audit,
		events:     events,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateBooking books a property for a guest. The quoted total is nights times
// the nightly price; the amount actually charged is set when an intent is created.
func (s *BookingService) CreateBooking(ctx context.Context, userID uuid.UUID, req *models.CreateBookingRequest) (*models.Booking, error) {
	checkIn, checkOut, err := validator.ParseBookingDates(req.CheckIn, req.CheckOut, s.now())
	if err != nil {
		return nil, validationError("%v", err)
	}
	if req.Guests < 1 {
		return nil, validationError("guests must be at least 1")
	}

	property, err := s.properties.GetProperty(ctx, req.PropertyID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: property %d", ErrNotFound, req.PropertyID)
		}
		return nil, err
	}
	if req.Guests > property.MaxGuests {
		return nil, validationError("property %d accepts at most %d guests", property.ID, property.MaxGuests)
	}

	nights := models.NightsBetween(checkIn, checkOut)
	total := math.Round(float64(nights)*property.PricePerNight*100) / 100

	booking, err := s.bookings.CreateBooking(ctx, &models.Booking{
		PropertyID:    property.ID,
		UserID:        userID,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		Guests:        req.Guests,
		Status:        models.BookingStatusPending,
		PaymentStatus: models.PaymentStatusUnpaid,
		TotalAmount:   total,
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"property_id": property.ID,
		"user_id":     userID,
		"nights":      nights,
	}).Info("Booking created")

	return booking, nil
}

// ListBookings returns the guest's own bookings
func (s *BookingService) ListBookings(ctx context.Context, userID uuid.UUID) ([]*models.Booking, error) {
	return s.bookings.ListBookingsByUser(ctx, userID)
}

// GetBooking returns a booking by id without ownership checks
func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: booking %d", ErrNotFound, id)
		}
		return nil, err
	}
	return booking, nil
}

// GetBookingForUser returns a booking the caller owns. Admins may read any booking.
func (s *BookingService) GetBookingForUser(ctx context.Context, id int64, userID uuid.UUID, isAdmin bool) (*models.Booking, error) {
	booking, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && booking.UserID != userID {
		// indistinguishable from a missing booking for other guests
		return nil, fmt.Errorf("%w: booking %d", ErrNotFound, id)
	}
	return booking, nil
}

// CancelBooking marks a booking cancelled. Payment status is left untouched;
// refunds are handled with the provider directly.
func (s *BookingService) CancelBooking(ctx context.Context, id int64, reason string, source models.PaymentEventSource) (*models.Booking, error) {
	booking, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status == models.BookingStatusCancelled {
		return booking, nil
	}

	updated, err := s.bookings.UpdateBookingStatus(ctx, id, models.BookingStatusCancelled)
	if err != nil {
		return nil, err
	}

	audit := models.NewPaymentAudit(models.PaymentEventBookingCancelled, source).
		SetBooking(id).
		SetIntent(updated.IntentID()).
		SetPaymentStatus(updated.PaymentStatus).
		AddMetadata("previous_status", string(booking.Status))
	if reason != "" {
		audit.AddMetadata("reason", reason)
	}
	s.audit.Record(ctx, audit)
	s.events.PublishTransition(ctx, booking, updated, source)

	s.logger.WithFields(logrus.Fields{
		"booking_id":     id,
		"payment_status": updated.PaymentStatus,
		"reason":         reason,
	}).Info("Booking cancelled")

	return updated, nil
}
