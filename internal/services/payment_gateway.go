package services

import "context"

// Provider payment intent statuses the lifecycle reacts to
const (
	IntentStatusSucceeded             = "succeeded"
	IntentStatusProcessing            = "processing"
	IntentStatusRequiresPaymentMethod = "requires_payment_method"
	IntentStatusRequiresConfirmation  = "requires_confirmation"
	IntentStatusRequiresAction        = "requires_action"
	IntentStatusCanceled              = "canceled"
)

// Provider webhook event types the lifecycle reacts to
const (
	EventIntentSucceeded     = "payment_intent.succeeded"
	EventIntentPaymentFailed = "payment_intent.payment_failed"
	EventIntentCanceled      = "payment_intent.canceled"
	EventIntentProcessing    = "payment_intent.processing"
)

// Intent metadata keys. MetadataBookingID ties an intent to its booking.
const (
	MetadataBookingID = "bookingId"
	MetadataUserID    = "userId"
)

// CreateIntentParams describes a payment intent to create
type CreateIntentParams struct {
	AmountMinor int64
	Currency    string
	Description string
	Metadata    map[string]string
}

// GatewayIntent is the provider's view of a payment intent
type GatewayIntent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountMinor  int64
	Currency     string
	Metadata     map[string]string
}

// WebhookEvent is a verified provider notification
type WebhookEvent struct {
	ID   string
	Type string
	// Intent is set for payment_intent.* events
	Intent *GatewayIntent
}

// PaymentGateway is the payment provider as seen by the booking lifecycle
type PaymentGateway interface {
	IsConfigured() bool
	CreateIntent(ctx context.Context, params CreateIntentParams) (*GatewayIntent, error)
	RetrieveIntent(ctx context.Context, id string) (*GatewayIntent, error)
	// ConstructWebhookEvent verifies the signature header and decodes the payload
	ConstructWebhookEvent(payload []byte, signatureHeader string) (*WebhookEvent, error)
}
