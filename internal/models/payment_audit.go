package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventIntentCreated      PaymentEventType = "intent_created"
	PaymentEventIntentCreateFailed PaymentEventType = "intent_create_failed"
	PaymentEventConfirmRequested   PaymentEventType = "confirm_requested"
	PaymentEventConfirmResolved    PaymentEventType = "confirm_resolved"
	PaymentEventWebhookReceived    PaymentEventType = "webhook_received"
	PaymentEventWebhookRejected    PaymentEventType = "webhook_rejected"
	PaymentEventWebhookDuplicate   PaymentEventType = "webhook_duplicate"
	PaymentEventReconciled         PaymentEventType = "reconciled"
	PaymentEventStorageWriteFailed PaymentEventType = "storage_write_failed"
	PaymentEventBookingCancelled   PaymentEventType = "booking_cancelled"
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceAPI        PaymentEventSource = "api"
	PaymentSourceWebhook    PaymentEventSource = "webhook"
	PaymentSourceReconciler PaymentEventSource = "reconciler"
	PaymentSourceCLI        PaymentEventSource = "cli"
)

// JSONB is a map stored in a jsonb column
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface
// Returns JSON as string for compatibility with pgx simple protocol mode
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	bytes, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("unsupported JSONB source type %T", value)
	}
}

// PaymentAudit represents an immutable audit log entry for payment events
type PaymentAudit struct {
	ID              uuid.UUID `json:"id" db:"id"`
	BookingID       *int64    `json:"bookingId,omitempty" db:"booking_id"`
	PaymentIntentID *string   `json:"paymentIntentId,omitempty" db:"payment_intent_id"`
	ProviderEventID *string   `json:"providerEventId,omitempty" db:"provider_event_id"`

	// Event info
	EventType   PaymentEventType   `json:"eventType" db:"event_type"`
	EventSource PaymentEventSource `json:"eventSource" db:"event_source"`

	// Status
	PaymentStatus  *string `json:"paymentStatus,omitempty" db:"payment_status"`
	ProviderStatus *string `json:"providerStatus,omitempty" db:"provider_status"`

	// Amount
	Amount   *float64 `json:"amount,omitempty" db:"amount"`
	Currency *string  `json:"currency,omitempty" db:"currency"`

	// Error tracking
	ErrorMessage *string `json:"errorMessage,omitempty" db:"error_message"`

	// Processing info
	ProcessingTimeMs *int `json:"processingTimeMs,omitempty" db:"processing_time_ms"`
	IsDuplicate      bool `json:"isDuplicate" db:"is_duplicate"`

	// Request metadata
	IPAddress *string `json:"ipAddress,omitempty" db:"ip_address"`
	UserAgent *string `json:"userAgent,omitempty" db:"user_agent"`
	Metadata  JSONB   `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// NewPaymentAudit creates a new payment audit entry with required fields
func NewPaymentAudit(eventType PaymentEventType, source PaymentEventSource) *PaymentAudit {
	return &PaymentAudit{
		ID:          uuid.New(),
		EventType:   eventType,
		EventSource: source,
		CreatedAt:   time.Now(),
	}
}

// SetBooking sets the booking the event refers to
func (pa *PaymentAudit) SetBooking(bookingID int64) *PaymentAudit {
	if bookingID > 0 {
		pa.BookingID = &bookingID
	}
	return pa
}

// SetIntent sets the provider payment intent id
func (pa *PaymentAudit) SetIntent(intentID string) *PaymentAudit {
	if intentID != "" {
		pa.PaymentIntentID = &intentID
	}
	return pa
}

// SetProviderEvent sets the provider's webhook event id
func (pa *PaymentAudit) SetProviderEvent(eventID string) *PaymentAudit {
	if eventID != "" {
		pa.ProviderEventID = &eventID
	}
	return pa
}

// SetPaymentStatus sets our payment status after the event
func (pa *PaymentAudit) SetPaymentStatus(status PaymentStatus) *PaymentAudit {
	s := string(status)
	pa.PaymentStatus = &s
	return pa
}

// SetProviderStatus sets the raw status reported by the provider
func (pa *PaymentAudit) SetProviderStatus(status string) *PaymentAudit {
	if status != "" {
		pa.ProviderStatus = &status
	}
	return pa
}

// SetAmount sets the amount and currency
func (pa *PaymentAudit) SetAmount(amount float64, currency string) *PaymentAudit {
	pa.Amount = &amount
	pa.Currency = &currency
	return pa
}

// SetError sets error information
func (pa *PaymentAudit) SetError(err error) *PaymentAudit {
	if err != nil {
		msg := err.Error()
		pa.ErrorMessage = &msg
	}
	return pa
}

// SetRequestInfo sets client ip and user agent
func (pa *PaymentAudit) SetRequestInfo(ip, userAgent string) *PaymentAudit {
	if ip != "" {
		pa.IPAddress = &ip
	}
	if userAgent != "" {
		pa.UserAgent = &userAgent
	}
	return pa
}

// AddMetadata adds a key to the metadata document
func (pa *PaymentAudit) AddMetadata(key string, value interface{}) *PaymentAudit {
	if pa.Metadata == nil {
		pa.Metadata = JSONB{}
	}
	pa.Metadata[key] = value
	return pa
}

// SetProcessingTime calculates and sets processing time
func (pa *PaymentAudit) SetProcessingTime(startTime time.Time) *PaymentAudit {
	durationMs := int(time.Since(startTime).Milliseconds())
	pa.ProcessingTimeMs = &durationMs
	return pa
}

// MarkAsDuplicate marks this event as a duplicate delivery
func (pa *PaymentAudit) MarkAsDuplicate() *PaymentAudit {
	pa.IsDuplicate = true
	return pa
}
