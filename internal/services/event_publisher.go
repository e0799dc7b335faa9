package services

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sirupsen/logrus"
	"github.com/staychill/booking-backend/internal/models"
	"github.com/staychill/booking-backend/pkg/messaging"
)

// BookingEvent is published whenever a booking's payment status or booking status changes
type BookingEvent struct {
	BookingID             int64                `json:"bookingId"`
	PaymentIntentID       string               `json:"paymentIntentId,omitempty"`
	PaymentStatus         models.PaymentStatus `json:"paymentStatus"`
	PreviousPaymentStatus models.PaymentStatus `json:"previousPaymentStatus"`
	BookingStatus         models.BookingStatus `json:"bookingStatus"`
	PreviousBookingStatus models.BookingStatus `json:"previousBookingStatus"`
	Source                string               `json:"source"`
	OccurredAt            time.Time            `json:"occurredAt"`
}

// EventPublisher emits booking domain events. Publishing is best effort:
// storage is the source of truth and a failed publish is only logged.
type EventPublisher struct {
	publisher message.Publisher
	logger    *logrus.Logger
}

// NewEventPublisher creates a new event publisher. A nil publisher disables events.
func NewEventPublisher(publisher message.Publisher, logger *logrus.Logger) *EventPublisher {
	return &EventPublisher{
		publisher: publisher,
		logger:    logger,
	}
}

// PublishTransition publishes one message per changed field between before and after
func (p *EventPublisher) PublishTransition(ctx context.Context, before, after *models.Booking, source models.PaymentEventSource) {
	if p == nil || p.publisher == nil || before == nil || after == nil {
		return
	}

	event := BookingEvent{
		BookingID:             after.ID,
		PaymentIntentID:       after.IntentID(),
		PaymentStatus:         after.PaymentStatus,
		PreviousPaymentStatus: before.PaymentStatus,
		BookingStatus:         after.Status,
		PreviousBookingStatus: before.Status,
		Source:                string(source),
		OccurredAt:            time.Now().UTC(),
	}

	if before.PaymentStatus != after.PaymentStatus {
		p.publish(ctx, messaging.TopicPaymentStatusChanged, event)
	}
	if before.Status != after.Status {
		p.publish(ctx, messaging.TopicBookingStatusChanged, event)
	}
}

func (p *EventPublisher) publish(ctx context.Context, topic string, event BookingEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).Error("Failed to encode booking event")
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("booking_id", strconv.FormatInt(event.BookingID, 10))
	msg.Metadata.Set("source", event.Source)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		p.logger.WithFields(logrus.Fields{
			"topic":      topic,
			"booking_id": event.BookingID,
		}).WithError(err).Warn("Failed to publish booking event")
		return
	}

	p.logger.WithFields(logrus.Fields{
		"topic":          topic,
		"booking_id":     event.BookingID,
		"payment_status": event.PaymentStatus,
		"booking_status": event.BookingStatus,
	}).Debug("Booking event published")
}
