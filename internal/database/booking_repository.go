package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/staychill/booking-backend/internal/models"
)

const bookingColumns = `
	id, property_id, user_id, check_in, check_out, guests,
	status, payment_status, payment_intent_id, total_amount,
	created_at, updated_at`

// BookingRepository handles booking database operations
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// GetBooking retrieves a booking by ID
func (r *BookingRepository) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking %d: %w", id, err)
	}
	return &booking, nil
}

// CreateBooking inserts a new booking in pending/unpaid state
func (r *BookingRepository) CreateBooking(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	if booking.Status == "" {
		booking.Status = models.BookingStatusPending
	}
	if booking.PaymentStatus == "" {
		booking.PaymentStatus = models.PaymentStatusUnpaid
	}

	query := `
		INSERT INTO bookings (
			property_id, user_id, check_in, check_out, guests,
			status, payment_status, total_amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + bookingColumns

	var created models.Booking
	err := r.db.GetContext(ctx, &created, query,
		booking.PropertyID,
		booking.UserID,
		booking.CheckIn,
		booking.CheckOut,
		booking.Guests,
		booking.Status,
		booking.PaymentStatus,
		booking.TotalAmount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	return &created, nil
}

// ListBookingsByUser returns a guest's bookings, newest first
func (r *BookingRepository) ListBookingsByUser(ctx context.Context, userID uuid.UUID) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY id DESC`

	bookings := []*models.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// ListBookingsByPaymentStatus returns bookings in a payment status that have not
// been touched since updatedBefore, oldest first, starting after the cursor
func (r *BookingRepository) ListBookingsByPaymentStatus(ctx context.Context, status models.PaymentStatus, updatedBefore time.Time, after *models.BookingCursor, limit int) ([]*models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE payment_status = $1 AND updated_at < $2
		ORDER BY updated_at ASC, id ASC
		LIMIT $3`
	args := []interface{}{status, updatedBefore, limit}

	if after != nil {
		query = `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE payment_status = $1 AND updated_at < $2
			AND (updated_at, id) > ($3, $4)
		ORDER BY updated_at ASC, id ASC
		LIMIT $5`
		args = []interface{}{status, updatedBefore, after.UpdatedAt, after.ID, limit}
	}

	bookings := []*models.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list bookings by payment status: %w", err)
	}
	return bookings, nil
}

// UpdateBookingStatus sets the booking status
func (r *BookingRepository) UpdateBookingStatus(ctx context.Context, id int64, status models.BookingStatus) (*models.Booking, error) {
	query := `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + bookingColumns

	return r.updateReturning(ctx, query, id, status)
}

// UpdateBookingPaymentStatus sets the payment status and, when given, the intent id
func (r *BookingRepository) UpdateBookingPaymentStatus(ctx context.Context, id int64, status models.PaymentStatus, paymentIntentID *string) (*models.Booking, error) {
	query := `
		UPDATE bookings
		SET payment_status = $2,
			payment_intent_id = COALESCE($3::text, payment_intent_id),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + bookingColumns

	return r.updateReturning(ctx, query, id, status, paymentIntentID)
}

// UpdateBookingTotalAmount sets the amount being charged for the booking
func (r *BookingRepository) UpdateBookingTotalAmount(ctx context.Context, id int64, amount float64) (*models.Booking, error) {
	query := `
		UPDATE bookings
		SET total_amount = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + bookingColumns

	return r.updateReturning(ctx, query, id, amount)
}

func (r *BookingRepository) updateReturning(ctx context.Context, query string, id int64, args ...interface{}) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, append([]interface{}{id}, args...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update booking %d: %w", id, err)
	}
	return &booking, nil
}
