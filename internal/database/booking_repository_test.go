package database

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/staychill/booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingRowColumns = []string{
	"id", "property_id", "user_id", "check_in", "check_out", "guests",
	"status", "payment_status", "payment_intent_id", "total_amount",
	"created_at", "updated_at",
}

func bookingRow(id int64, userID uuid.UUID, status, paymentStatus string, intentID interface{}, total float64) *sqlmock.Rows {
	checkIn := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	return sqlmock.NewRows(bookingRowColumns).AddRow(
		id, int64(7), userID.String(), checkIn, checkIn.AddDate(0, 0, 5), 2,
		status, paymentStatus, intentID, total,
		now, now,
	)
}

func TestBookingRepository_GetBooking(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1`).
			WithArgs(int64(42)).
			WillReturnRows(bookingRow(42, userID, "pending", "processing", "pi_abc", 500.00))

		booking, err := repo.GetBooking(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, int64(42), booking.ID)
		assert.Equal(t, userID, booking.UserID)
		assert.Equal(t, models.PaymentStatusProcessing, booking.PaymentStatus)
		assert.Equal(t, "pi_abc", booking.IntentID())
		assert.Equal(t, 500.00, booking.TotalAmount)
		assert.Equal(t, 5, booking.Nights())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1`).
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)

		booking, err := repo.GetBooking(ctx, 99)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, booking)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1`).
			WithArgs(int64(1)).
			WillReturnError(fmt.Errorf("connection reset"))

		booking, err := repo.GetBooking(ctx, 1)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "failed to get booking")
		assert.Nil(t, booking)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_CreateBooking(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	userID := uuid.New()
	checkIn := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO bookings`).
		WithArgs(int64(7), userID, checkIn, checkIn.AddDate(0, 0, 5), 2,
			models.BookingStatusPending, models.PaymentStatusUnpaid, 750.0).
		WillReturnRows(bookingRow(1, userID, "pending", "unpaid", nil, 750.0))

	booking, err := repo.CreateBooking(context.Background(), &models.Booking{
		PropertyID:  7,
		UserID:      userID,
		CheckIn:     checkIn,
		CheckOut:    checkIn.AddDate(0, 0, 5),
		Guests:      2,
		TotalAmount: 750,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), booking.ID)
	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, booking.PaymentStatus)
	assert.Nil(t, booking.PaymentIntentID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_UpdateBookingPaymentStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	t.Run("With Intent", func(t *testing.T) {
		intent := "pi_abc"
		mock.ExpectQuery(`UPDATE bookings\s+SET payment_status = \$2,\s+payment_intent_id = COALESCE\(\$3::text, payment_intent_id\)`).
			WithArgs(int64(42), models.PaymentStatusProcessing, "pi_abc").
			WillReturnRows(bookingRow(42, userID, "pending", "processing", "pi_abc", 0))

		booking, err := repo.UpdateBookingPaymentStatus(ctx, 42, models.PaymentStatusProcessing, &intent)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusProcessing, booking.PaymentStatus)
		assert.Equal(t, "pi_abc", booking.IntentID())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Keep Intent", func(t *testing.T) {
		mock.ExpectQuery(`UPDATE bookings`).
			WithArgs(int64(42), models.PaymentStatusFailed, nil).
			WillReturnRows(bookingRow(42, userID, "pending", "failed", "pi_abc", 500))

		booking, err := repo.UpdateBookingPaymentStatus(ctx, 42, models.PaymentStatusFailed, nil)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusFailed, booking.PaymentStatus)
		assert.Equal(t, "pi_abc", booking.IntentID())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`UPDATE bookings`).
			WithArgs(int64(404), models.PaymentStatusPaid, nil).
			WillReturnError(sql.ErrNoRows)

		booking, err := repo.UpdateBookingPaymentStatus(ctx, 404, models.PaymentStatusPaid, nil)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, booking)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_UpdateStatusAndAmount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	mock.ExpectQuery(`UPDATE bookings\s+SET status = \$2`).
		WithArgs(int64(42), models.BookingStatusConfirmed).
		WillReturnRows(bookingRow(42, userID, "confirmed", "paid", "pi_abc", 500))

	booking, err := repo.UpdateBookingStatus(ctx, 42, models.BookingStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)

	mock.ExpectQuery(`UPDATE bookings\s+SET total_amount = \$2`).
		WithArgs(int64(42), 500.0).
		WillReturnRows(bookingRow(42, userID, "pending", "processing", "pi_abc", 500))

	booking, err = repo.UpdateBookingTotalAmount(ctx, 42, 500)
	require.NoError(t, err)
	assert.Equal(t, 500.0, booking.TotalAmount)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_ListBookingsByPaymentStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	cutoff := time.Now().Add(-15 * time.Minute)
	userID := uuid.New()

	rows := sqlmock.NewRows(bookingRowColumns)
	for _, id := range []int64{3, 4} {
		now := time.Now()
		rows.AddRow(id, int64(7), userID.String(), now, now.AddDate(0, 0, 1), 1,
			"pending", "processing", fmt.Sprintf("pi_%d", id), 100.0, now, now)
	}

	mock.ExpectQuery(`SELECT (.+) FROM bookings\s+WHERE payment_status = \$1 AND updated_at < \$2\s+ORDER BY updated_at ASC, id ASC`).
		WithArgs(models.PaymentStatusProcessing, cutoff, 50).
		WillReturnRows(rows)

	bookings, err := repo.ListBookingsByPaymentStatus(context.Background(), models.PaymentStatusProcessing, cutoff, nil, 50)
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, "pi_3", bookings[0].IntentID())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_ListBookingsByPaymentStatusAfterCursor(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	cutoff := time.Now().Add(-15 * time.Minute)
	cursor := &models.BookingCursor{UpdatedAt: cutoff.Add(-time.Hour), ID: 4}

	mock.ExpectQuery(`AND \(updated_at, id\) > \(\$3, \$4\)\s+ORDER BY updated_at ASC, id ASC\s+LIMIT \$5`).
		WithArgs(models.PaymentStatusProcessing, cutoff, cursor.UpdatedAt, cursor.ID, 10).
		WillReturnRows(sqlmock.NewRows(bookingRowColumns))

	bookings, err := repo.ListBookingsByPaymentStatus(context.Background(), models.PaymentStatusProcessing, cutoff, cursor, 10)
	require.NoError(t, err)
	assert.Empty(t, bookings)

	assert.NoError(t, mock.ExpectationsWereMet())
}
