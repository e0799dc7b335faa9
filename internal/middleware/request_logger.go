package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staychill/booking-backend/internal/services"
	"github.com/staychill/booking-backend/internal/utils"
)

// RequestIDHeader carries the per-request id
const RequestIDHeader = "X-Request-ID"

// RequestLogger logs every request as one structured line
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         utils.GetRealIP(c),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request completed")
		}
	}
}

// RequestInfo attaches the caller's address, user agent and (when
// authenticated) user id to the request context for audit records.
// Register it after AuthMiddleware on authenticated groups.
func RequestInfo() gin.HandlerFunc {
	return func(c *gin.Context) {
		info := services.RequestInfo{
			IPAddress: utils.GetRealIP(c),
			UserAgent: utils.GetUserAgent(c),
		}
		if user, ok := GetUserContext(c); ok {
			info.UserID = user.UserID
		}
		c.Request = c.Request.WithContext(services.WithRequestInfo(c.Request.Context(), info))
		c.Next()
	}
}
