package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// BOOKING STATUSES (matches DB CHECK constraints)
// ============================================================================

// BookingStatus represents the lifecycle status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// IsValid checks if the booking status is a known value
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled:
		return true
	}
	return false
}

// PaymentStatus represents the payment status of a booking
type PaymentStatus string

const (
	PaymentStatusUnpaid     PaymentStatus = "unpaid"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusCanceled   PaymentStatus = "canceled"
)

// IsValid checks if the payment status is a known value
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusProcessing, PaymentStatusPaid,
		PaymentStatusFailed, PaymentStatusRefunded, PaymentStatusCanceled:
		return true
	}
	return false
}

// AcceptsNewIntent reports whether a new payment attempt may start from this status.
// Paid and refunded bookings are settled; everything else can be (re)attempted.
func (s PaymentStatus) AcceptsNewIntent() bool {
	return s != PaymentStatusPaid && s != PaymentStatusRefunded
}

// ============================================================================
// BOOKING
// ============================================================================

// BookingCursor marks a position in an (updated_at, id) ordered listing
type BookingCursor struct {
	UpdatedAt time.Time
	ID        int64
}

// CursorOf returns the listing position just after b
func CursorOf(b *Booking) *BookingCursor {
	return &BookingCursor{UpdatedAt: b.UpdatedAt, ID: b.ID}
}

// Booking is a guest's reservation of a property for a date range
type Booking struct {
	ID              int64         `json:"id" db:"id"`
	PropertyID      int64         `json:"propertyId" db:"property_id"`
	UserID          uuid.UUID     `json:"userId" db:"user_id"`
	CheckIn         time.Time     `json:"checkIn" db:"check_in"`
	CheckOut        time.Time     `json:"checkOut" db:"check_out"`
	Guests          int           `json:"guests" db:"guests"`
	Status          BookingStatus `json:"status" db:"status"`
	PaymentStatus   PaymentStatus `json:"paymentStatus" db:"payment_status"`
	PaymentIntentID *string       `json:"paymentIntentId,omitempty" db:"payment_intent_id"`
	TotalAmount     float64       `json:"totalAmount" db:"total_amount"`
	CreatedAt       time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time     `json:"updatedAt" db:"updated_at"`
}

// Nights returns the number of nights between check-in and check-out
func (b *Booking) Nights() int {
	return NightsBetween(b.CheckIn, b.CheckOut)
}

// IntentID returns the current payment intent id or an empty string
func (b *Booking) IntentID() string {
	if b.PaymentIntentID == nil {
		return ""
	}
	return *b.PaymentIntentID
}

// Clone returns a deep copy of the booking
func (b *Booking) Clone() *Booking {
	c := *b
	if b.PaymentIntentID != nil {
		id := *b.PaymentIntentID
		c.PaymentIntentID = &id
	}
	return &c
}

// NightsBetween counts calendar nights between two dates
func NightsBetween(checkIn, checkOut time.Time) int {
	in := time.Date(checkIn.Year(), checkIn.Month(), checkIn.Day(), 0, 0, 0, 0, time.UTC)
	out := time.Date(checkOut.Year(), checkOut.Month(), checkOut.Day(), 0, 0, 0, 0, time.UTC)
	return int(out.Sub(in).Hours() / 24)
}

// CreateBookingRequest represents the request to create a booking
type CreateBookingRequest struct {
	PropertyID int64  `json:"propertyId" binding:"required,min=1"`
	CheckIn    string `json:"checkIn" binding:"required,bookingdate"`
	CheckOut   string `json:"checkOut" binding:"required,bookingdate"`
	Guests     int    `json:"guests" binding:"required,min=1"`
}

// BookingDateLayout is the wire format for check-in and check-out dates
const BookingDateLayout = "2006-01-02"

// UpdateBookingStatusRequest is used by administrators to change a booking's status
type UpdateBookingStatusRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}
