package messaging

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/sirupsen/logrus"
	"github.com/staychill/booking-backend/internal/config"
)

// Topics published by the booking service
const (
	TopicPaymentStatusChanged = "booking.payment_status_changed"
	TopicBookingStatusChanged = "booking.status_changed"
)

// NewPublisher returns an AMQP publisher when AMQP_URL is set, otherwise an
// in-process channel (events are dropped when nothing subscribes).
func NewPublisher(cfg config.BrokerConfig, logger *logrus.Logger) (message.Publisher, error) {
	wmLogger := NewLogrusAdapter(logger)

	if cfg.AMQPURL == "" {
		logger.Info("AMQP_URL not set, publishing domain events in-process")
		return gochannel.NewGoChannel(gochannel.Config{}, wmLogger), nil
	}

	publisher, err := amqp.NewPublisher(amqp.NewDurableQueueConfig(cfg.AMQPURL), wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create amqp publisher: %w", err)
	}
	return publisher, nil
}
