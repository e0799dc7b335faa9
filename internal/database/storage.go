package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/staychill/booking-backend/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique constraint would be violated
	ErrDuplicate = errors.New("record already exists")
)

// BookingStore persists bookings
type BookingStore interface {
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	CreateBooking(ctx context.Context, booking *models.Booking) (*models.Booking, error)
	ListBookingsByUser(ctx context.Context, userID uuid.UUID) ([]*models.Booking, error)
	// ListBookingsByPaymentStatus pages through bookings ordered by (updated_at, id);
	// a nil cursor starts from the beginning.
	ListBookingsByPaymentStatus(ctx context.Context, status models.PaymentStatus, updatedBefore time.Time, after *models.BookingCursor, limit int) ([]*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status models.BookingStatus) (*models.Booking, error)
	// UpdateBookingPaymentStatus sets the payment status; a nil intent id keeps the stored one.
	UpdateBookingPaymentStatus(ctx context.Context, id int64, status models.PaymentStatus, paymentIntentID *string) (*models.Booking, error)
	UpdateBookingTotalAmount(ctx context.Context, id int64, amount float64) (*models.Booking, error)
}

// PropertyStore persists property listings
type PropertyStore interface {
	GetProperty(ctx context.Context, id int64) (*models.Property, error)
	CreateProperty(ctx context.Context, property *models.Property) (*models.Property, error)
	ListProperties(ctx context.Context) ([]*models.Property, error)
}

// UserStore persists accounts
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// PaymentAuditStore is the append-only payment audit trail
type PaymentAuditStore interface {
	Log(ctx context.Context, audit *models.PaymentAudit) error
	ListByBooking(ctx context.Context, bookingID int64) ([]*models.PaymentAudit, error)
	ListByIntent(ctx context.Context, paymentIntentID string) ([]*models.PaymentAudit, error)
}

// Storage is the persistence abstraction behind the service layer.
// MemStorage and PostgresStorage are interchangeable implementations.
type Storage interface {
	BookingStore
	PropertyStore
	UserStore
	Audits() PaymentAuditStore
	Ping(ctx context.Context) error
	Close() error
}
