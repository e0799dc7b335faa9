package services

import (
	"context"
	"testing"
	"time"

	"github.com/staychill/booking-backend/internal/config"
	"github.com/staychill/booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReconciler(f *lifecycleFixture) *ReconciliationService {
	r := NewReconciliationService(f.store, f.svc, quietLogger(), 15*time.Minute, 10)
	// everything written during the test is older than the cutoff
	r.now = func() time.Time { return time.Now().Add(time.Hour) }
	return r
}

func TestReconciliationService_Run(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		seedBooking(t, f.store, id)
	}
	seedBooking(t, f.store, 4) // unpaid, never scanned

	f.gateway.nextID = "pi_1"
	createIntentFor(t, f, 1)
	f.gateway.nextID = "pi_2"
	createIntentFor(t, f, 2)
	f.gateway.nextID = "pi_3"
	createIntentFor(t, f, 3)

	f.gateway.setStatus("pi_1", IntentStatusSucceeded)
	f.gateway.setStatus("pi_2", IntentStatusCanceled)
	// pi_3 still requires a payment method

	result, err := newTestReconciler(f).Run(ctx, models.PaymentSourceReconciler)
	require.NoError(t, err)
	assert.Equal(t, &models.ReconcileResult{Scanned: 3, Resolved: 2, Unchanged: 1}, result)

	b1, _ := f.svc.GetPaymentStatus(ctx, 1)
	assert.Equal(t, models.PaymentStatusPaid, b1.PaymentStatus)
	assert.Equal(t, models.BookingStatusConfirmed, b1.BookingStatus)

	b2, _ := f.svc.GetPaymentStatus(ctx, 2)
	assert.Equal(t, models.PaymentStatusFailed, b2.PaymentStatus)

	b3, _ := f.svc.GetPaymentStatus(ctx, 3)
	assert.Equal(t, models.PaymentStatusProcessing, b3.PaymentStatus)

	b4, _ := f.svc.GetPaymentStatus(ctx, 4)
	assert.Equal(t, models.PaymentStatusUnpaid, b4.PaymentStatus)
}

func TestReconciliationService_UnchangedBookingsDoNotBlockLaterOnes(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	seedBooking(t, f.store, 1)
	seedBooking(t, f.store, 2)
	f.gateway.nextID = "pi_abandoned"
	createIntentFor(t, f, 1)
	f.gateway.nextID = "pi_paid"
	createIntentFor(t, f, 2)
	f.gateway.setStatus("pi_paid", IntentStatusSucceeded)

	r := NewReconciliationService(f.store, f.svc, quietLogger(), 15*time.Minute, 1)
	r.now = func() time.Time { return time.Now().Add(time.Hour) }

	result, err := r.Run(ctx, models.PaymentSourceReconciler)
	require.NoError(t, err)
	assert.Equal(t, &models.ReconcileResult{Scanned: 2, Resolved: 1, Unchanged: 1}, result)

	status, err := f.svc.GetPaymentStatus(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, status.PaymentStatus)

	status, err = f.svc.GetPaymentStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusProcessing, status.PaymentStatus)
}

func TestReconciliationService_RecentBookingsAreSkipped(t *testing.T) {
	f := newLifecycleFixture(t)
	seedBooking(t, f.store, 1)
	createIntentFor(t, f, 1)
	f.gateway.setStatus("pi_abc", IntentStatusSucceeded)

	r := NewReconciliationService(f.store, f.svc, quietLogger(), 15*time.Minute, 10)
	result, err := r.Run(context.Background(), models.PaymentSourceReconciler)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Scanned)
}

func TestReconciliationService_CountsProviderErrors(t *testing.T) {
	f := newLifecycleFixture(t)
	seedBooking(t, f.store, 1)
	createIntentFor(t, f, 1)
	f.gateway.retrieveErr = &ProviderError{Message: "rate limited"}

	result, err := newTestReconciler(f).Run(context.Background(), models.PaymentSourceReconciler)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scanned)
	assert.Equal(t, 1, result.Errors)
}

func TestReconciliationService_ProviderNotConfigured(t *testing.T) {
	f := newLifecycleFixture(t)
	seedBooking(t, f.store, 1)
	createIntentFor(t, f, 1)
	f.gateway.configured = false

	_, err := newTestReconciler(f).Run(context.Background(), models.PaymentSourceReconciler)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestReconciliationService_OverlappingRunIsConflict(t *testing.T) {
	f := newLifecycleFixture(t)
	seedBooking(t, f.store, 1)
	createIntentFor(t, f, 1)
	f.gateway.setStatus("pi_abc", IntentStatusSucceeded)
	r := newTestReconciler(f)

	r.running.Lock()
	_, err := r.Run(context.Background(), models.PaymentSourceAPI)
	assert.ErrorIs(t, err, ErrConflict)

	// the scheduled job backs off instead of sweeping alongside
	cronSvc := NewCronService(r, config.ReconciliationConfig{Schedule: "0 */5 * * * *"}, quietLogger())
	cronSvc.reconcilePaymentsJob()
	status, err := f.svc.GetPaymentStatus(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusProcessing, status.PaymentStatus)
	r.running.Unlock()

	result, err := r.Run(context.Background(), models.PaymentSourceAPI)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Resolved)
}

func TestCronService_SchedulesReconciliation(t *testing.T) {
	f := newLifecycleFixture(t)
	seedBooking(t, f.store, 1)
	createIntentFor(t, f, 1)
	f.gateway.setStatus("pi_abc", IntentStatusSucceeded)

	cronSvc := NewCronService(newTestReconciler(f), config.ReconciliationConfig{
		Enabled:  true,
		Schedule: "0 */5 * * * *",
	}, quietLogger())

	require.NoError(t, cronSvc.Start())
	defer cronSvc.Stop()

	status := cronSvc.GetJobStatus()
	assert.Equal(t, true, status["running"])
	assert.Equal(t, 1, status["job_count"])

	cronSvc.reconcilePaymentsJob()

	result, err := f.svc.GetPaymentStatus(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, result.PaymentStatus)
}

func TestCronService_InvalidSchedule(t *testing.T) {
	f := newLifecycleFixture(t)
	cronSvc := NewCronService(newTestReconciler(f), config.ReconciliationConfig{Schedule: "every now and then"}, quietLogger())
	assert.Error(t, cronSvc.Start())
}
