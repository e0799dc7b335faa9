package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staychill/booking-backend/internal/services"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errorStatus maps a service error to its HTTP status and error code
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, services.ErrInvalidSignature):
		return http.StatusBadRequest, "invalid_signature"
	case errors.Is(err, services.ErrMalformedEvent):
		return http.StatusBadRequest, "malformed_event"
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, services.ErrProviderError):
		return http.StatusBadGateway, "provider_error"
	case errors.Is(err, services.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, "provider_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// respondError writes err as an ErrorResponse. Internal errors are logged and
// their details withheld from the client.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status, code := errorStatus(err)

	message := err.Error()
	var providerErr *services.ProviderError
	switch {
	case errors.As(err, &providerErr):
		message = providerErr.Message
	case status == http.StatusInternalServerError:
		logger.WithFields(logrus.Fields{
			"path":   c.FullPath(),
			"method": c.Request.Method,
		}).WithError(err).Error("Request failed")
		message = "An internal error occurred"
	default:
		message = userMessage(err)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Message: message})
}

// userMessage strips the leading error kind ("validation error: ...")
func userMessage(err error) string {
	msg := err.Error()
	for _, kind := range []error{
		services.ErrValidation,
		services.ErrNotFound,
		services.ErrUnauthorized,
		services.ErrConflict,
		services.ErrMalformedEvent,
		services.ErrInvalidSignature,
	} {
		prefix := kind.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}

// respondBindError rejects a request body that failed binding
func respondBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	})
}
