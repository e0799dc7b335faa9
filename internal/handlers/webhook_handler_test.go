package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/staychill/booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookHandler_SucceededConfirmsBooking(t *testing.T) {
	ts := newTestServer(t)
	booking := ts.seedBooking(t, ts.guest)
	intent := createIntent(t, ts, booking)

	payload := webhookPayload(t, "evt_1", "payment_intent.succeeded", intent.PaymentIntentID, booking.ID)
	w := ts.postWebhook(t, payload, signWebhook(payload))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var ack models.WebhookAck
	decode(t, w, &ack)
	assert.True(t, ack.Received)
	assert.True(t, ack.Handled)
	assert.False(t, ack.Duplicate)
	assert.Equal(t, "evt_1", ack.EventID)
	assert.Equal(t, booking.ID, ack.BookingID)

	stored, err := ts.store.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, models.BookingStatusConfirmed, stored.Status)

	// Redelivery is acknowledged without reapplying
	w = ts.postWebhook(t, payload, signWebhook(payload))
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &ack)
	assert.True(t, ack.Duplicate)
}

func TestWebhookHandler_RejectsBadSignature(t *testing.T) {
	ts := newTestServer(t)
	booking := ts.seedBooking(t, ts.guest)
	intent := createIntent(t, ts, booking)

	payload := webhookPayload(t, "evt_2", "payment_intent.payment_failed", intent.PaymentIntentID, booking.ID)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "garbage header", header: "t=1,v1=deadbeef"},
		{name: "signature for another body", header: signWebhook([]byte(`{"id":"evt_other"}`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.postWebhook(t, payload, tt.header)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp ErrorResponse
			decode(t, w, &resp)
			assert.Equal(t, "invalid_signature", resp.Error)
		})
	}

	stored, err := ts.store.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusProcessing, stored.PaymentStatus)
}

func TestWebhookHandler_UnknownBooking(t *testing.T) {
	ts := newTestServer(t)

	payload := webhookPayload(t, "evt_3", "payment_intent.succeeded", "pi_orphan", 4242)
	w := ts.postWebhook(t, payload, signWebhook(payload))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookHandler_UnhandledEventType(t *testing.T) {
	ts := newTestServer(t)

	payload := []byte(`{"id":"evt_4","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`)
	w := ts.postWebhook(t, payload, signWebhook(payload))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var ack models.WebhookAck
	decode(t, w, &ack)
	assert.True(t, ack.Received)
	assert.False(t, ack.Handled)
}

func TestWebhookHandler_BodyTooLarge(t *testing.T) {
	ts := newTestServer(t)

	payload := []byte(`{"id":"evt_big","pad":"` + strings.Repeat("x", maxWebhookBodyBytes) + `"}`)
	w := ts.postWebhook(t, payload, signWebhook(payload))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	var body ErrorResponse
	decode(t, w, &body)
	assert.Equal(t, "payload_too_large", body.Error)
}

func TestWebhookHandler_BodyReadFailure(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook",
		io.NopCloser(iotest.ErrReader(errors.New("connection reset by peer"))))
	req.Header.Set(StripeSignatureHeader, "t=1,v1=abc")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body ErrorResponse
	decode(t, w, &body)
	assert.Equal(t, "invalid_request", body.Error)
}
