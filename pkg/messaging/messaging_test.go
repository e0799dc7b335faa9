package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/staychill/booking-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogrusAdapter(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.TraceLevel)

	adapter := NewLogrusAdapter(logger)
	adapter.Info("subscriber started", watermill.LogFields{"topic": "bookings"})
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, "bookings", hook.LastEntry().Data["topic"])
	assert.Equal(t, "watermill", hook.LastEntry().Data["component"])

	adapter.Error("publish failed", errors.New("broker down"), nil)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.EqualError(t, hook.LastEntry().Data[logrus.ErrorKey].(error), "broker down")

	child := adapter.With(watermill.LogFields{"handler": "reconcile"})
	child.Debug("handled", watermill.LogFields{"uuid": "1"})
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	assert.Equal(t, "reconcile", hook.LastEntry().Data["handler"])
	assert.Equal(t, "1", hook.LastEntry().Data["uuid"])

	child.Trace("tick", nil)
	assert.Equal(t, logrus.TraceLevel, hook.LastEntry().Level)
}

func TestNewPublisher_InProcess(t *testing.T) {
	logger, _ := test.NewNullLogger()

	publisher, err := NewPublisher(config.BrokerConfig{}, logger)
	require.NoError(t, err)
	defer publisher.Close()

	pubSub, ok := publisher.(*gochannel.GoChannel)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, TopicPaymentStatusChanged)
	require.NoError(t, err)

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{"bookingId":42}`))
	require.NoError(t, publisher.Publish(TopicPaymentStatusChanged, msg))

	select {
	case received := <-messages:
		assert.Equal(t, msg.UUID, received.UUID)
		assert.JSONEq(t, `{"bookingId":42}`, string(received.Payload))
		received.Ack()
	case <-ctx.Done():
		t.Fatal("message was not delivered")
	}
}
