package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/staychill/booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBooking(t *testing.T, s *MemStorage, userID uuid.UUID) *models.Booking {
	t.Helper()
	checkIn := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	b, err := s.CreateBooking(context.Background(), &models.Booking{
		PropertyID: 1,
		UserID:     userID,
		CheckIn:    checkIn,
		CheckOut:   checkIn.AddDate(0, 0, 3),
		Guests:     2,
	})
	require.NoError(t, err)
	return b
}

func TestMemStorage_Bookings(t *testing.T) {
	ctx := context.Background()
	s := NewMemStorage()
	userID := uuid.New()

	b := seedBooking(t, s, userID)
	assert.Equal(t, int64(1), b.ID)
	assert.Equal(t, models.BookingStatusPending, b.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, b.PaymentStatus)

	t.Run("Explicit id advances sequence", func(t *testing.T) {
		created, err := s.CreateBooking(ctx, &models.Booking{ID: 42, UserID: userID})
		require.NoError(t, err)
		assert.Equal(t, int64(42), created.ID)

		next := seedBooking(t, s, userID)
		assert.Equal(t, int64(43), next.ID)

		_, err = s.CreateBooking(ctx, &models.Booking{ID: 42})
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("Payment status keeps intent when nil", func(t *testing.T) {
		intent := "pi_abc"
		updated, err := s.UpdateBookingPaymentStatus(ctx, b.ID, models.PaymentStatusProcessing, &intent)
		require.NoError(t, err)
		assert.Equal(t, "pi_abc", updated.IntentID())

		updated, err = s.UpdateBookingPaymentStatus(ctx, b.ID, models.PaymentStatusFailed, nil)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusFailed, updated.PaymentStatus)
		assert.Equal(t, "pi_abc", updated.IntentID())
	})

	t.Run("Returned records are copies", func(t *testing.T) {
		got, err := s.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		got.Status = models.BookingStatusCancelled
		*got.PaymentIntentID = "pi_tampered"

		again, err := s.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusPending, again.Status)
		assert.Equal(t, "pi_abc", again.IntentID())
	})

	t.Run("Status and amount", func(t *testing.T) {
		updated, err := s.UpdateBookingTotalAmount(ctx, b.ID, 500)
		require.NoError(t, err)
		assert.Equal(t, 500.0, updated.TotalAmount)

		updated, err = s.UpdateBookingStatus(ctx, b.ID, models.BookingStatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusConfirmed, updated.Status)
	})

	t.Run("Missing booking", func(t *testing.T) {
		_, err := s.GetBooking(ctx, 999)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.UpdateBookingStatus(ctx, 999, models.BookingStatusCancelled)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.UpdateBookingPaymentStatus(ctx, 999, models.PaymentStatusPaid, nil)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.UpdateBookingTotalAmount(ctx, 999, 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("List by user", func(t *testing.T) {
		seedBooking(t, s, uuid.New())
		list, err := s.ListBookingsByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Greater(t, list[0].ID, list[1].ID)
	})
}

func TestMemStorage_ListBookingsByPaymentStatus(t *testing.T) {
	ctx := context.Background()
	s := NewMemStorage()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	s.now = func() time.Time { return clock }

	old := seedBooking(t, s, uuid.New())
	_, err := s.UpdateBookingPaymentStatus(ctx, old.ID, models.PaymentStatusProcessing, nil)
	require.NoError(t, err)

	clock = base.Add(20 * time.Minute)
	fresh := seedBooking(t, s, uuid.New())
	_, err = s.UpdateBookingPaymentStatus(ctx, fresh.ID, models.PaymentStatusProcessing, nil)
	require.NoError(t, err)

	unpaid := seedBooking(t, s, uuid.New())
	_ = unpaid

	list, err := s.ListBookingsByPaymentStatus(ctx, models.PaymentStatusProcessing, base.Add(10*time.Minute), nil, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, old.ID, list[0].ID)

	list, err = s.ListBookingsByPaymentStatus(ctx, models.PaymentStatusProcessing, base.Add(time.Hour), nil, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, old.ID, list[0].ID)

	list, err = s.ListBookingsByPaymentStatus(ctx, models.PaymentStatusProcessing, base.Add(time.Hour), models.CursorOf(list[0]), 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, fresh.ID, list[0].ID)

	list, err = s.ListBookingsByPaymentStatus(ctx, models.PaymentStatusProcessing, base.Add(time.Hour), models.CursorOf(list[0]), 1)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemStorage_ListBookingsByPaymentStatusBreaksTiesByID(t *testing.T) {
	ctx := context.Background()
	s := NewMemStorage()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	var ids []int64
	for i := 0; i < 3; i++ {
		b := seedBooking(t, s, uuid.New())
		_, err := s.UpdateBookingPaymentStatus(ctx, b.ID, models.PaymentStatusProcessing, nil)
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	var seen []int64
	var cursor *models.BookingCursor
	for {
		page, err := s.ListBookingsByPaymentStatus(ctx, models.PaymentStatusProcessing, base.Add(time.Minute), cursor, 2)
		require.NoError(t, err)
		for _, b := range page {
			seen = append(seen, b.ID)
		}
		if len(page) < 2 {
			break
		}
		cursor = models.CursorOf(page[len(page)-1])
	}
	assert.Equal(t, ids, seen)
}

func TestMemStorage_UsersAndProperties(t *testing.T) {
	ctx := context.Background()
	s := NewMemStorage()

	user, err := s.CreateUser(ctx, &models.User{Email: "Guest@StayChill.app", Roles: []string{models.RoleGuest}})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "guest@staychill.app", user.Email)

	_, err = s.CreateUser(ctx, &models.User{Email: "guest@staychill.app"})
	assert.ErrorIs(t, err, ErrDuplicate)

	byEmail, err := s.GetUserByEmail(ctx, "GUEST@staychill.app")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)

	_, err = s.GetUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := s.CreateProperty(ctx, &models.Property{HostID: user.ID, Title: "Cliff House", PricePerNight: 150, MaxGuests: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)

	got, err := s.GetProperty(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cliff House", got.Title)

	_, err = s.GetProperty(ctx, 77)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := s.ListProperties(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMemStorage_Audits(t *testing.T) {
	ctx := context.Background()
	s := NewMemStorage()

	require.NoError(t, s.Audits().Log(ctx, models.NewPaymentAudit(models.PaymentEventIntentCreated, models.PaymentSourceAPI).SetBooking(42).SetIntent("pi_abc")))
	require.NoError(t, s.Audits().Log(ctx, models.NewPaymentAudit(models.PaymentEventWebhookReceived, models.PaymentSourceWebhook).SetBooking(42).SetIntent("pi_abc")))
	require.NoError(t, s.Audits().Log(ctx, models.NewPaymentAudit(models.PaymentEventIntentCreated, models.PaymentSourceAPI).SetBooking(7)))

	byBooking, err := s.Audits().ListByBooking(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, byBooking, 2)

	byIntent, err := s.Audits().ListByIntent(ctx, "pi_abc")
	require.NoError(t, err)
	assert.Len(t, byIntent, 2)

	assert.NoError(t, s.Ping(ctx))
	assert.NoError(t, s.Close())
}

func TestMemStorage_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewMemStorage()
	b := seedBooking(t, s, uuid.New())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = s.UpdateBookingPaymentStatus(ctx, b.ID, models.PaymentStatusPaid, nil)
			} else {
				_, _ = s.UpdateBookingStatus(ctx, b.ID, models.BookingStatusConfirmed)
			}
		}(i)
	}
	wg.Wait()

	got, err := s.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, models.BookingStatusConfirmed, got.Status)
}
