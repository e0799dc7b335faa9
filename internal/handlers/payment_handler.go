package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staychill/booking-backend/internal/middleware"
	"github.com/staychill/booking-backend/internal/models"
	"github.com/staychill/booking-backend/internal/services"
)

// PaymentHandler handles the authenticated payment endpoints
type PaymentHandler struct {
	lifecycle      *services.BookingLifecycleService
	bookingService *services.BookingService
	logger         *logrus.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(
	lifecycle *services.BookingLifecycleService,
	bookingService *services.BookingService,
	logger *logrus.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		lifecycle:      lifecycle,
		bookingService: bookingService,
		logger:         logger,
	}
}

// authorizeBooking ensures the caller owns the booking (admins may act on any)
func (h *PaymentHandler) authorizeBooking(c *gin.Context, bookingID int64) bool {
	userCtx := middleware.MustGetUserContext(c)
	if _, err := h.bookingService.GetBookingForUser(c.Request.Context(), bookingID, userCtx.UserID, userCtx.IsAdmin()); err != nil {
		respondError(c, h.logger, err)
		return false
	}
	return true
}

// CreatePaymentIntent starts a payment attempt for a booking
// @Summary Create a payment intent
// @Description Requests a payment intent from the provider and moves the booking to processing.
// @Description The returned clientSecret is used by the client to render the hosted payment form.
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body models.CreatePaymentIntentRequest true "Intent request (amount in major units)"
// @Success 200 {object} models.CreatePaymentIntentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse "Provider rejected the request"
// @Failure 503 {object} ErrorResponse "Provider not configured"
// @Security BearerAuth
// @Router /api/v1/payments/create-intent [post]
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	var req models.CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if !h.authorizeBooking(c, req.BookingID) {
		return
	}

	resp, err := h.lifecycle.CreatePaymentIntent(c.Request.Context(), services.CreatePaymentIntentInput{
		BookingID:   req.BookingID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ConfirmPayment resolves a payment against the provider's view of the intent
// @Summary Confirm a payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body models.ConfirmPaymentRequest true "Confirmation"
// @Success 200 {object} models.ConfirmPaymentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v1/payments/confirm [post]
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	var req models.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if !h.authorizeBooking(c, req.BookingID) {
		return
	}

	resp, err := h.lifecycle.ConfirmPayment(c.Request.Context(), req.PaymentIntentID, req.BookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetPaymentStatus returns the booking's payment projection
// @Summary Get payment status
// @Tags Payments
// @Produce json
// @Param bookingId path int true "Booking ID"
// @Success 200 {object} models.PaymentStatusResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v1/payments/status/{bookingId} [get]
func (h *PaymentHandler) GetPaymentStatus(c *gin.Context) {
	bookingID, err := int64Param(c, "bookingId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if !h.authorizeBooking(c, bookingID) {
		return
	}

	resp, err := h.lifecycle.GetPaymentStatus(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
