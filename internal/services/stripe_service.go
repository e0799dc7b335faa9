package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/staychill/booking-backend/internal/config"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeService handles payment gateway integration with Stripe
type StripeService struct {
	config *config.PaymentConfig
	logger *logrus.Logger
	client *client.API
}

// NewStripeService creates a new Stripe payment service.
// Provider calls are never retried by the SDK; a failed call surfaces to the caller.
func NewStripeService(cfg *config.PaymentConfig, logger *logrus.Logger) *StripeService {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	backendConfig := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     logger,
	}
	if cfg.APIURL != "" {
		backendConfig.URL = stripe.String(strings.TrimRight(cfg.APIURL, "/"))
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig),
	}

	return &StripeService{
		config: cfg,
		logger: logger,
		client: client.New(cfg.SecretKey, backends),
	}
}

// IsConfigured returns true if the secret key is set
func (s *StripeService) IsConfigured() bool {
	return s.config.SecretKey != ""
}

// CreateIntent creates a payment intent with automatic payment methods enabled
func (s *StripeService) CreateIntent(ctx context.Context, params CreateIntentParams) (*GatewayIntent, error) {
	if !s.IsConfigured() {
		return nil, ErrProviderUnavailable
	}

	piParams := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(params.AmountMinor),
		Currency: stripe.String(params.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if params.Description != "" {
		piParams.Description = stripe.String(params.Description)
	}
	for k, v := range params.Metadata {
		piParams.AddMetadata(k, v)
	}
	piParams.Context = ctx

	s.logger.WithFields(logrus.Fields{
		"amount_minor": params.AmountMinor,
		"currency":     params.Currency,
		"booking_id":   params.Metadata[MetadataBookingID],
	}).Info("Creating Stripe payment intent")

	pi, err := s.client.PaymentIntents.New(piParams)
	if err != nil {
		s.logger.WithError(err).Error("Failed to create Stripe payment intent")
		return nil, wrapStripeError(err)
	}

	s.logger.WithFields(logrus.Fields{
		"payment_intent_id": pi.ID,
		"status":            pi.Status,
	}).Info("Stripe payment intent created")

	return toGatewayIntent(pi), nil
}

// RetrieveIntent fetches the current state of a payment intent
func (s *StripeService) RetrieveIntent(ctx context.Context, id string) (*GatewayIntent, error) {
	if !s.IsConfigured() {
		return nil, ErrProviderUnavailable
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := s.client.PaymentIntents.Get(id, params)
	if err != nil {
		s.logger.WithError(err).WithField("payment_intent_id", id).Error("Failed to retrieve Stripe payment intent")
		return nil, wrapStripeError(err)
	}

	s.logger.WithFields(logrus.Fields{
		"payment_intent_id": pi.ID,
		"status":            pi.Status,
	}).Debug("Stripe payment intent retrieved")

	return toGatewayIntent(pi), nil
}

// ConstructWebhookEvent verifies the Stripe-Signature header against the raw
// body and decodes the event. payment_intent.* events carry the intent.
func (s *StripeService) ConstructWebhookEvent(payload []byte, signatureHeader string) (*WebhookEvent, error) {
	if s.config.WebhookSecret == "" {
		return nil, ErrProviderUnavailable
	}
	if signatureHeader == "" {
		return nil, fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}

	tolerance := s.config.WebhookTolerance
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	if err := webhook.ValidatePayloadWithTolerance(payload, signatureHeader, s.config.WebhookSecret, tolerance); err != nil {
		s.logger.WithError(err).Warn("Stripe webhook signature verification failed")
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if event.ID == "" || event.Type == "" {
		return nil, fmt.Errorf("%w: event id or type missing", ErrMalformedEvent)
	}

	result := &WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}

	if strings.HasPrefix(result.Type, "payment_intent.") {
		if event.Data == nil || len(event.Data.Raw) == 0 {
			return nil, fmt.Errorf("%w: event %s has no data object", ErrMalformedEvent, event.ID)
		}
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if pi.ID == "" {
			return nil, fmt.Errorf("%w: event %s has no payment intent id", ErrMalformedEvent, event.ID)
		}
		result.Intent = toGatewayIntent(&pi)
	}

	s.logger.WithFields(logrus.Fields{
		"event_id":   result.ID,
		"event_type": result.Type,
	}).Info("Stripe webhook verified")

	return result, nil
}

func toGatewayIntent(pi *stripe.PaymentIntent) *GatewayIntent {
	metadata := make(map[string]string, len(pi.Metadata))
	for k, v := range pi.Metadata {
		metadata[k] = v
	}
	return &GatewayIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     metadata,
	}
}

// wrapStripeError converts SDK errors into *ProviderError
func wrapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		msg := stripeErr.Msg
		if msg == "" {
			msg = string(stripeErr.Type)
		}
		return &ProviderError{
			Message:    msg,
			Code:       string(stripeErr.Code),
			StatusCode: stripeErr.HTTPStatusCode,
			Err:        err,
		}
	}
	return &ProviderError{Message: err.Error(), Err: err}
}
