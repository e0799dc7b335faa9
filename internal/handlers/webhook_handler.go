package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staychill/booking-backend/internal/models"
	"github.com/staychill/booking-backend/internal/services"
	"github.com/staychill/booking-backend/internal/utils"
)

// StripeSignatureHeader is the header Stripe signs webhook deliveries with
const StripeSignatureHeader = "Stripe-Signature"

// maxWebhookBodyBytes caps a webhook delivery
const maxWebhookBodyBytes = 64 * 1024

// WebhookHandler receives payment provider notifications. It is not behind
// AuthMiddleware; the provider signature authenticates the request.
type WebhookHandler struct {
	lifecycle *services.BookingLifecycleService
	logger    *logrus.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(lifecycle *services.BookingLifecycleService, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// HandleStripeWebhook verifies and applies a Stripe event
// @Summary Stripe webhook
// @Description The raw body is verified against the Stripe-Signature header before anything is parsed.
// @Tags Payments
// @Accept json
// @Produce json
// @Success 200 {object} models.WebhookAck
// @Failure 400 {object} ErrorResponse "Invalid signature or malformed event"
// @Router /api/v1/payments/webhook [post]
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)

	payload, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
				Error:   "payload_too_large",
				Message: "webhook body exceeds the size limit",
			})
			return
		}
		h.logger.WithError(err).Warn("Failed to read webhook body")
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "webhook body could not be read",
		})
		return
	}

	ctx := services.WithRequestInfo(c.Request.Context(), services.RequestInfo{
		IPAddress: utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
		Source:    string(models.PaymentSourceWebhook),
	})

	ack, err := h.lifecycle.HandleWebhookEvent(ctx, payload, c.GetHeader(StripeSignatureHeader))
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"ip": utils.GetRealIP(c),
		}).WithError(err).Warn("Webhook rejected")
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, ack)
}
