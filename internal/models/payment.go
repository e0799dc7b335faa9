package models

// ============================================================================
// PAYMENT REQUESTS / RESPONSES
// ============================================================================

// CreatePaymentIntentRequest is sent by the client to start paying for a booking.
// Amount is in major currency units (500.00 means five hundred dollars).
type CreatePaymentIntentRequest struct {
	BookingID   int64   `json:"bookingId" binding:"required,min=1"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Currency    string  `json:"currency" binding:"omitempty,currency"`
	Description string  `json:"description" binding:"omitempty,max=500"`
}

// CreatePaymentIntentResponse carries what the client needs to render the payment form
type CreatePaymentIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// ConfirmPaymentRequest is sent after the client completes the hosted payment form
type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId" binding:"required"`
	BookingID       int64  `json:"bookingId" binding:"required,min=1"`
}

// ConfirmPaymentResponse reports the provider's view of the intent
type ConfirmPaymentResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

// PaymentStatusResponse is the read-only projection of a booking's payment fields
type PaymentStatusResponse struct {
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	BookingStatus   BookingStatus `json:"bookingStatus"`
	PaymentIntentID *string       `json:"paymentIntentId"`
	TotalAmount     float64       `json:"totalAmount"`
}

// WebhookAck acknowledges a provider webhook delivery
type WebhookAck struct {
	Received  bool   `json:"received"`
	EventID   string `json:"eventId,omitempty"`
	EventType string `json:"eventType,omitempty"`
	Handled   bool   `json:"handled"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Stale     bool   `json:"stale,omitempty"`
	BookingID int64  `json:"bookingId,omitempty"`
}

// ReconcileResult summarizes one reconciliation sweep
type ReconcileResult struct {
	Scanned   int `json:"scanned"`
	Resolved  int `json:"resolved"`
	Unchanged int `json:"unchanged"`
	Errors    int `json:"errors"`
}
