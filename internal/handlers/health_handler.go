package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is anything whose liveness can be checked
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// Ping calls f
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler reports service health. Storage is required; the cache is
// optional and only degrades the report.
type HealthHandler struct {
	storage Pinger
	cache   Pinger
	version string
	backend string
}

// NewHealthHandler creates a new HealthHandler. cache may be nil.
func NewHealthHandler(storage, cache Pinger, version, backend string) *HealthHandler {
	return &HealthHandler{storage: storage, cache: cache, version: version, backend: backend}
}

// Health returns 200 healthy, 200 degraded when only the cache is down, or
// 503 unhealthy when storage does not answer
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	code := http.StatusOK
	status := "healthy"

	storage := "ok"
	if err := h.storage.Ping(ctx); err != nil {
		storage = "unavailable"
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	cache := "disabled"
	if h.cache != nil {
		cache = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			cache = "unavailable"
			if code == http.StatusOK {
				status = "degraded"
			}
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"service":   "staychill-booking",
		"version":   h.version,
		"storage":   gin.H{"backend": h.backend, "status": storage},
		"redis":     cache,
		"timestamp": time.Now().Unix(),
	})
}
