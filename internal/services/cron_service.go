package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/staychill/booking-backend/internal/config"
	"github.com/staychill/booking-backend/internal/models"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron       *cron.Cron
	reconciler *ReconciliationService
	schedule   string
	timeout    time.Duration
	logger     *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(reconciler *ReconciliationService, cfg config.ReconciliationConfig, logger *logrus.Logger) *CronService {
	// Cron format: second minute hour day month weekday
	c := cron.New(cron.WithParser(config.CronParser))

	return &CronService{
		cron:       c,
		reconciler: reconciler,
		schedule:   cfg.Schedule,
		timeout:    time.Minute,
		logger:     logger,
	}
}

// Start schedules all jobs and starts the scheduler
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	if _, err := s.cron.AddFunc(s.schedule, s.reconcilePaymentsJob); err != nil {
		return fmt.Errorf("failed to schedule payment reconciliation job: %w", err)
	}
	s.logger.WithField("schedule", s.schedule).Info("✓ Scheduled: Reconcile processing payments")

	s.cron.Start()
	s.logger.Info("✓ Cron service started successfully")

	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("✓ Cron service stopped")
}

// reconcilePaymentsJob resolves stale processing bookings
func (s *CronService) reconcilePaymentsJob() {
	s.logger.Debug("[CRON] Starting payment reconciliation job...")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := s.reconciler.Run(ctx, models.PaymentSourceReconciler)
	if err != nil {
		if errors.Is(err, ErrProviderUnavailable) {
			s.logger.Debug("[CRON] Payment provider not configured, skipping reconciliation")
			return
		}
		if errors.Is(err, ErrConflict) {
			s.logger.Warn("[CRON] Previous reconciliation still running, skipping")
			return
		}
		s.logger.WithError(err).Error("[CRON ERROR] Payment reconciliation failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"scanned":   result.Scanned,
		"resolved":  result.Resolved,
		"unchanged": result.Unchanged,
		"errors":    result.Errors,
		"duration":  time.Since(startTime).String(),
	}).Info("[CRON] ✓ Payment reconciliation finished")
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
