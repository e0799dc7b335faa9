package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staychill/booking-backend/internal/models"
	"github.com/staychill/booking-backend/internal/services"
)

// AdminHandler handles administrator endpoints
type AdminHandler struct {
	bookingService *services.BookingService
	reconciler     *services.ReconciliationService
	auditService   *services.AuditService
	jobs           JobStatusReporter
	logger         *logrus.Logger
}

// JobStatusReporter exposes the background scheduler state
type JobStatusReporter interface {
	GetJobStatus() map[string]interface{}
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	bookingService *services.BookingService,
	reconciler *services.ReconciliationService,
	auditService *services.AuditService,
	jobs JobStatusReporter,
	logger *logrus.Logger,
) *AdminHandler {
	return &AdminHandler{
		bookingService: bookingService,
		reconciler:     reconciler,
		auditService:   auditService,
		jobs:           jobs,
		logger:         logger,
	}
}

// GetBooking returns any booking
func (h *AdminHandler) GetBooking(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	booking, err := h.bookingService.GetBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// CancelBooking marks a booking cancelled
// @Summary Cancel a booking
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path int true "Booking ID"
// @Param request body models.UpdateBookingStatusRequest false "Reason"
// @Success 200 {object} models.Booking
// @Security BearerAuth
// @Router /api/v1/admin/bookings/{id}/cancel [post]
func (h *AdminHandler) CancelBooking(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req models.UpdateBookingStatusRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	booking, err := h.bookingService.CancelBooking(c.Request.Context(), id, req.Reason, models.PaymentSourceAPI)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// GetAuditTrail returns a booking's payment audit entries, oldest first
// @Summary Booking payment audit trail
// @Tags Admin
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {array} models.PaymentAudit
// @Security BearerAuth
// @Router /api/v1/admin/bookings/{id}/audit [get]
func (h *AdminHandler) GetAuditTrail(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if _, err := h.bookingService.GetBooking(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	audits, err := h.auditService.ListByBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, audits)
}

// Reconcile runs a reconciliation sweep now
// @Summary Reconcile processing payments
// @Tags Admin
// @Produce json
// @Success 200 {object} models.ReconcileResult
// @Security BearerAuth
// @Router /api/v1/admin/reconcile [post]
func (h *AdminHandler) Reconcile(c *gin.Context) {
	result, err := h.reconciler.Run(c.Request.Context(), models.PaymentSourceAPI)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// JobStatus reports the scheduled reconciliation job
func (h *AdminHandler) JobStatus(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusOK, gin.H{"running": false})
		return
	}
	c.JSON(http.StatusOK, h.jobs.GetJobStatus())
}
