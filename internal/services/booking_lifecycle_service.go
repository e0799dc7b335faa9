package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/staychill/booking-backend/internal/database"
	"github.com/staychill/booking-backend/internal/models"
	"github.com/staychill/booking-backend/pkg/validator"
)

// LifecycleConfig tunes the booking lifecycle service
type LifecycleConfig struct {
	DefaultCurrency string
	// StorageRetries is the number of attempts for a storage write that follows
	// a successful provider call
	StorageRetries       int
	RetryInitialInterval time.Duration
	RetryMaxElapsed      time.Duration
}

// DefaultLifecycleConfig returns production defaults
func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		DefaultCurrency:      "usd",
		StorageRetries:       3,
		RetryInitialInterval: 200 * time.Millisecond,
		RetryMaxElapsed:      10 * time.Second,
	}
}

// CreatePaymentIntentInput starts a payment attempt. Amount is in major units.
type CreatePaymentIntentInput struct {
	BookingID   int64
	Amount      float64
	Currency    string
	Description string
}

// webhookTargets maps handled provider events to the payment status they set
var webhookTargets = map[string]models.PaymentStatus{
	EventIntentSucceeded:     models.PaymentStatusPaid,
	EventIntentPaymentFailed: models.PaymentStatusFailed,
	EventIntentCanceled:      models.PaymentStatusCanceled,
	EventIntentProcessing:    models.PaymentStatusProcessing,
}

// BookingLifecycleService translates payment provider signals into booking state
type BookingLifecycleService struct {
	bookings database.BookingStore
	gateway  PaymentGateway
	audit    *AuditService
	dedup    WebhookDedupStore
	events   *EventPublisher
	logger   *logrus.Logger
	config   LifecycleConfig
}

// NewBookingLifecycleService creates a new booking lifecycle service
func NewBookingLifecycleService(
	bookings database.BookingStore,
	gateway PaymentGateway,
	audit *AuditService,
	dedup WebhookDedupStore,
	events *EventPublisher,
	logger *logrus.Logger,
	cfg LifecycleConfig,
) *BookingLifecycleService {
	if cfg.StorageRetries < 1 {
		cfg.StorageRetries = 1
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "usd"
	}
	if dedup == nil {
		dedup = NewMemoryDedupStore(defaultMemoryDedupTTL)
	}
	return &BookingLifecycleService{
		bookings: bookings,
		gateway:  gateway,
		audit:    audit,
		dedup:    dedup,
		events:   events,
		logger:   logger,
		config:   cfg,
	}
}

// ProviderConfigured reports whether payment operations can reach the provider
func (s *BookingLifecycleService) ProviderConfigured() bool {
	return s.gateway.IsConfigured()
}

// ============================================================================
// CREATE PAYMENT INTENT
// ============================================================================

// CreatePaymentIntent requests a payment intent from the provider and moves the
// booking to processing with the new intent id and amount.
func (s *BookingLifecycleService) CreatePaymentIntent(ctx context.Context, input CreatePaymentIntentInput) (*models.CreatePaymentIntentResponse, error) {
	start := time.Now()

	if input.BookingID <= 0 {
		return nil, validationError("bookingId must be a positive integer")
	}
	amountMinor, err := validator.ToMinorUnits(input.Amount)
	if err != nil {
		return nil, validationError("%v", err)
	}
	currency := input.Currency
	if currency == "" {
		currency = s.config.DefaultCurrency
	}
	currency, err = validator.NormalizeCurrency(currency)
	if err != nil {
		return nil, validationError("%v", err)
	}

	booking, err := s.getBooking(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == models.BookingStatusCancelled {
		return nil, validationError("booking %d is cancelled", booking.ID)
	}
	if !booking.PaymentStatus.AcceptsNewIntent() {
		return nil, validationError("booking %d is already %s", booking.ID, booking.PaymentStatus)
	}

	if !s.gateway.IsConfigured() {
		return nil, ErrProviderUnavailable
	}

	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = fmt.Sprintf("Stay Chill booking #%d", booking.ID)
	}

	bookingRef := strconv.FormatInt(booking.ID, 10)
	intent, err := s.gateway.CreateIntent(ctx, CreateIntentParams{
		AmountMinor: amountMinor,
		Currency:    currency,
		Description: description,
		Metadata: map[string]string{
			MetadataBookingID: bookingRef,
			MetadataUserID:    booking.UserID.String(),
			"propertyId":      strconv.FormatInt(booking.PropertyID, 10),
		},
	})
	if err != nil {
		s.audit.Record(ctx, models.NewPaymentAudit(models.PaymentEventIntentCreateFailed, models.PaymentSourceAPI).
			SetBooking(booking.ID).
			SetAmount(input.Amount, currency).
			SetError(err).
			SetProcessingTime(start))
		return nil, err
	}

	var updated *models.Booking
	err = s.withStorageRetry(ctx, "record_payment_intent", func() error {
		if _, err := s.bookings.UpdateBookingPaymentStatus(ctx, booking.ID, models.PaymentStatusProcessing, &intent.ID); err != nil {
			return err
		}
		b, err := s.bookings.UpdateBookingTotalAmount(ctx, booking.ID, input.Amount)
		if err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		s.recordStorageFailure(ctx, booking.ID, intent.ID, models.PaymentStatusProcessing, models.PaymentSourceAPI, err)
		return nil, fmt.Errorf("failed to record payment intent %s for booking %d: %w", intent.ID, booking.ID, err)
	}

	s.audit.Record(ctx, models.NewPaymentAudit(models.PaymentEventIntentCreated, models.PaymentSourceAPI).
		SetBooking(booking.ID).
		SetIntent(intent.ID).
		SetPaymentStatus(updated.PaymentStatus).
		SetProviderStatus(intent.Status).
		SetAmount(input.Amount, currency).
		SetProcessingTime(start))
	s.events.PublishTransition(ctx, booking, updated, models.PaymentSourceAPI)

	s.logger.WithFields(logrus.Fields{
		"booking_id":        booking.ID,
		"payment_intent_id": intent.ID,
		"amount":            input.Amount,
		"currency":          currency,
	}).Info("Payment intent created")

	return &models.CreatePaymentIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
	}, nil
}

// ============================================================================
// CONFIRM PAYMENT
// ============================================================================

// ConfirmPayment resolves a payment attempt against the provider's view of the
// intent. The client-reported outcome is never trusted. Calling it again for a
// resolved intent reproduces the same state.
func (s *BookingLifecycleService) ConfirmPayment(ctx context.Context, paymentIntentID string, bookingID int64) (*models.ConfirmPaymentResponse, error) {
	start := time.Now()

	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if paymentIntentID == "" {
		return nil, validationError("paymentIntentId is required")
	}
	if bookingID <= 0 {
		return nil, validationError("bookingId must be a positive integer")
	}

	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !s.gateway.IsConfigured() {
		return nil, ErrProviderUnavailable
	}

	intent, err := s.gateway.RetrieveIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}
	if ref, ok := intent.Metadata[MetadataBookingID]; ok && ref != strconv.FormatInt(bookingID, 10) {
		return nil, validationError("payment intent %s does not belong to booking %d", paymentIntentID, bookingID)
	}

	target, changes := confirmTarget(intent.Status)
	intentRef, stale := s.intentToRecord(booking, intent.ID, target)
	if stale {
		return nil, validationError("payment intent %s is not the current intent of booking %d", paymentIntentID, bookingID)
	}
	result := &models.ConfirmPaymentResponse{
		Success: intent.Status == IntentStatusSucceeded,
		Status:  intent.Status,
	}

	final := booking
	if changes {
		err = s.withStorageRetry(ctx, "confirm_payment", func() error {
			b, err := s.applyPaymentStatus(ctx, booking, target, intentRef)
			if err != nil {
				return err
			}
			final = b
			return nil
		})
		if err != nil {
			s.recordStorageFailure(ctx, booking.ID, intent.ID, target, models.PaymentSourceAPI, err)
			return nil, fmt.Errorf("failed to record confirmation of %s for booking %d: %w", intent.ID, booking.ID, err)
		}
		s.events.PublishTransition(ctx, booking, final, models.PaymentSourceAPI)
	}

	s.audit.Record(ctx, models.NewPaymentAudit(models.PaymentEventConfirmResolved, models.PaymentSourceAPI).
		SetBooking(booking.ID).
		SetIntent(intent.ID).
		SetPaymentStatus(final.PaymentStatus).
		SetProviderStatus(intent.Status).
		AddMetadata("success", result.Success).
		SetProcessingTime(start))

	s.logger.WithFields(logrus.Fields{
		"booking_id":        booking.ID,
		"payment_intent_id": intent.ID,
		"provider_status":   intent.Status,
		"payment_status":    final.PaymentStatus,
	}).Info("Payment confirmation resolved")

	return result, nil
}

// confirmTarget maps a provider intent status to the payment status it resolves
// to. changes is false for statuses that still wait on the customer.
func confirmTarget(providerStatus string) (target models.PaymentStatus, changes bool) {
	switch providerStatus {
	case IntentStatusSucceeded:
		return models.PaymentStatusPaid, true
	case IntentStatusRequiresPaymentMethod, IntentStatusRequiresConfirmation, IntentStatusRequiresAction:
		return "", false
	default:
		return models.PaymentStatusFailed, true
	}
}

// ============================================================================
// WEBHOOK
// ============================================================================

// HandleWebhookEvent verifies and applies a provider notification. The booking
// is located through the intent's bookingId metadata only. Redelivered events
// are acknowledged without reapplying them.
func (s *BookingLifecycleService) HandleWebhookEvent(ctx context.Context, payload []byte, signatureHeader string) (*models.WebhookAck, error) {
	start := time.Now()

	event, err := s.gateway.ConstructWebhookEvent(payload, signatureHeader)
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) || errors.Is(err, ErrMalformedEvent) {
			s.audit.Record(ctx, models.NewPaymentAudit(models.PaymentEventWebhookRejected, models.PaymentSourceWebhook).
				SetError(err).
				SetProcessingTime(start))
		}
		return nil, err
	}

	ack := &models.WebhookAck{
		Received:  true,
		EventID:   event.ID,
		EventType: event.Type,
	}

	target, handled := webhookTargets[event.Type]
	if !handled {
		s.logger.WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).Debug("Ignoring unhandled webhook event type")
		return ack, nil
	}

	if event.Intent == nil {
		return nil, fmt.Errorf("%w: event %s carries no payment intent", ErrMalformedEvent, event.ID)
	}
	bookingID, err := bookingIDFromMetadata(event.Intent.Metadata)
	if err != nil {
		s.audit.Record(ctx, models.NewPaymentAudit(models.PaymentEventWebhookRejected, models.PaymentSourceWebhook).
			SetIntent(event.Intent.ID).
			SetProviderEvent(event.ID).
			SetError(err).
			SetProcessingTime(start))
		return nil, err
	}
	ack.BookingID = bookingID

	processed, err := s.dedup.IsProcessed(ctx, event.ID)
	if err != nil {
		// treated as unseen; target states are idempotent
		s.logger.WithError(err).WithField("event_id", event.ID).Warn("Webhook dedup lookup failed, processing event")
	}
	if processed {
		ack.Duplicate = true
		s.audit.Record(ctx, models.NewPaymentAudit(models.PaymentEventWebhookDuplicate, models.PaymentSourceWebhook).
			SetBooking(bookingID).
			SetIntent(event.Intent.ID).
			SetProviderEvent(event.ID).
			SetProviderStatus(event.Intent.Status).
			MarkAsDuplicate().
			SetProcessingTime(start))
		return ack, nil
	}

	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	intentRef, stale := s.intentToRecord(booking, event.Intent.ID, target)
	if stale {
		ack.Stale = true
		s.logger.WithFields(logrus.Fields{
			"event_id":          event.ID,
			"booking_id":        booking.ID,
			"payment_intent_id": event.Intent.ID,
			"current_intent_id": booking.IntentID(),
		}).Warn("Ignoring webhook for superseded payment intent")
		s.audit.Record(ctx, models.NewPaymentAudit(models.PaymentEventWebhookReceived, models.PaymentSourceWebhook).
			SetBooking(booking.ID).
			SetIntent(event.Intent.ID).
			SetProviderEvent(event.ID).
			SetProviderStatus(event.Intent.Status).
			SetPaymentStatus(booking.PaymentStatus).
			AddMetadata("stale", true).
			SetProcessingTime(start))
		s.markProcessed(ctx, event.ID)
		return ack, nil
	}

	updated, err := s.applyPaymentStatus(ctx, booking, target, intentRef)
	if err != nil {
		s.recordStorageFailure(ctx, booking.ID, event.Intent.ID, target, models.PaymentSourceWebhook, err)
		return nil, fmt.Errorf("failed to apply webhook event %s to booking %d: %w", event.ID, booking.ID, err)
	}
	s.markProcessed(ctx, event.ID)
	ack.Handled = true

	s.events.PublishTransition(ctx, booking, updated, models.PaymentSourceWebhook)
	s.audit.Record(ctx, models.NewPaymentAudit(models.PaymentEventWebhookReceived, models.PaymentSourceWebhook).
		SetBooking(booking.ID).
		SetIntent(event.Intent.ID).
		SetProviderEvent(event.ID).
		SetProviderStatus(event.Intent.Status).
		SetPaymentStatus(updated.PaymentStatus).
		AddMetadata("event_type", event.Type).
		SetProcessingTime(start))

	s.logger.WithFields(logrus.Fields{
		"event_id":       event.ID,
		"event_type":     event.Type,
		"booking_id":     booking.ID,
		"payment_status": updated.PaymentStatus,
		"booking_status": updated.Status,
	}).Info("Webhook event applied")

	return ack, nil
}

func bookingIDFromMetadata(metadata map[string]string) (int64, error) {
	raw, ok := metadata[MetadataBookingID]
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, fmt.Errorf("%w: payment intent has no %s metadata", ErrMalformedEvent, MetadataBookingID)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s metadata %q", ErrMalformedEvent, MetadataBookingID, raw)
	}
	return id, nil
}

func (s *BookingLifecycleService) markProcessed(ctx context.Context, eventID string) {
	if err := s.dedup.MarkProcessed(ctx, eventID); err != nil {
		s.logger.WithError(err).WithField("event_id", eventID).Warn("Failed to mark webhook event as processed")
	}
}

// ============================================================================
// PAYMENT STATUS
// ============================================================================

// GetPaymentStatus returns the booking's payment projection
func (s *BookingLifecycleService) GetPaymentStatus(ctx context.Context, bookingID int64) (*models.PaymentStatusResponse, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return &models.PaymentStatusResponse{
		PaymentStatus:   booking.PaymentStatus,
		BookingStatus:   booking.Status,
		PaymentIntentID: booking.PaymentIntentID,
		TotalAmount:     booking.TotalAmount,
	}, nil
}

// ============================================================================
// RECONCILIATION
// ============================================================================

// ReconcileBooking re-reads the provider's view of a processing booking's
// intent and applies the same decision table as ConfirmPayment. It reports
// whether the booking changed.
func (s *BookingLifecycleService) ReconcileBooking(ctx context.Context, booking *models.Booking, source models.PaymentEventSource) (bool, error) {
	start := time.Now()

	intentID := booking.IntentID()
	if intentID == "" {
		return false, nil
	}
	if !s.gateway.IsConfigured() {
		return false, ErrProviderUnavailable
	}

	intent, err := s.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		return false, err
	}

	target, changes := confirmTarget(intent.Status)
	if intent.Status == IntentStatusProcessing {
		// still settling at the provider
		changes = false
	}
	if !changes || target == booking.PaymentStatus {
		return false, nil
	}

	updated, err := s.applyPaymentStatus(ctx, booking, target, nil)
	if err != nil {
		s.recordStorageFailure(ctx, booking.ID, intentID, target, source, err)
		return false, err
	}

	s.events.PublishTransition(ctx, booking, updated, source)
	s.audit.Record(ctx, models.NewPaymentAudit(models.PaymentEventReconciled, source).
		SetBooking(booking.ID).
		SetIntent(intentID).
		SetProviderStatus(intent.Status).
		SetPaymentStatus(updated.PaymentStatus).
		AddMetadata("previous_payment_status", string(booking.PaymentStatus)).
		SetProcessingTime(start))

	s.logger.WithFields(logrus.Fields{
		"booking_id":        booking.ID,
		"payment_intent_id": intentID,
		"provider_status":   intent.Status,
		"payment_status":    updated.PaymentStatus,
	}).Info("Booking reconciled with provider")

	return true, nil
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *BookingLifecycleService) getBooking(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: booking %d", ErrNotFound, id)
		}
		return nil, err
	}
	return booking, nil
}

// intentToRecord decides how an outcome for intentID relates to the booking's
// stored intent. ref is the intent id to store alongside the new status (nil
// keeps the stored one). stale is true when the outcome belongs to a replaced
// intent and must not touch the current attempt. A replaced intent that
// succeeded still settles the booking: the provider has taken the money.
func (s *BookingLifecycleService) intentToRecord(booking *models.Booking, intentID string, target models.PaymentStatus) (ref *string, stale bool) {
	current := booking.IntentID()
	switch {
	case current == "":
		return &intentID, false
	case current == intentID:
		return nil, false
	case target != models.PaymentStatusPaid:
		return nil, true
	}

	log := s.logger.WithFields(logrus.Fields{
		"booking_id":        booking.ID,
		"payment_intent_id": intentID,
		"current_intent_id": current,
	})
	if booking.PaymentStatus == models.PaymentStatusPaid {
		log.Warn("Second successful payment for an already paid booking, refund required")
		return nil, false
	}
	log.Warn("Superseded payment intent succeeded, settling booking with it")
	return &intentID, false
}

// applyPaymentStatus writes the payment status and, for paid, confirms the
// booking. There is no reverse rule: leaving paid never reverts status.
func (s *BookingLifecycleService) applyPaymentStatus(ctx context.Context, booking *models.Booking, target models.PaymentStatus, intentID *string) (*models.Booking, error) {
	updated := booking
	if booking.PaymentStatus != target || intentID != nil {
		b, err := s.bookings.UpdateBookingPaymentStatus(ctx, booking.ID, target, intentID)
		if err != nil {
			return nil, err
		}
		updated = b
	}

	if target == models.PaymentStatusPaid && updated.Status != models.BookingStatusConfirmed {
		if updated.Status == models.BookingStatusCancelled {
			s.logger.WithField("booking_id", booking.ID).Warn("Payment succeeded for a cancelled booking, confirming it")
		}
		b, err := s.bookings.UpdateBookingStatus(ctx, booking.ID, models.BookingStatusConfirmed)
		if err != nil {
			return nil, err
		}
		updated = b
	}
	return updated, nil
}

// withStorageRetry retries a storage write with exponential backoff. Missing
// records are not retried.
func (s *BookingLifecycleService) withStorageRetry(ctx context.Context, operation string, fn func() error) error {
	policy := &backoff.ExponentialBackOff{
		InitialInterval:     s.config.RetryInitialInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         2 * time.Second,
		MaxElapsedTime:      s.config.RetryMaxElapsed,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = backoff.DefaultInitialInterval
	}
	policy.Reset()

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, database.ErrNotFound) {
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrNotFound, err))
		}
		s.logger.WithFields(logrus.Fields{
			"operation": operation,
			"attempt":   attempt,
		}).WithError(err).Warn("Storage write failed")
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.config.StorageRetries-1)), ctx))
}

func (s *BookingLifecycleService) recordStorageFailure(ctx context.Context, bookingID int64, intentID string, target models.PaymentStatus, source models.PaymentEventSource, err error) {
	s.logger.WithFields(logrus.Fields{
		"booking_id":        bookingID,
		"payment_intent_id": intentID,
		"target_status":     target,
	}).WithError(err).Error("Booking not updated after provider call, left for reconciliation")

	s.audit.Record(ctx, models.NewPaymentAudit(models.PaymentEventStorageWriteFailed, source).
		SetBooking(bookingID).
		SetIntent(intentID).
		SetPaymentStatus(target).
		SetError(err))
}
