package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staychill/booking-backend/internal/config"
	"github.com/staychill/booking-backend/internal/middleware"
	"github.com/staychill/booking-backend/internal/models"
	"github.com/staychill/booking-backend/pkg/jwt"
)

// Router bundles the handlers mounted by NewRouter
type Router struct {
	Auth     *AuthHandler
	Property *PropertyHandler
	Booking  *BookingHandler
	Payment  *PaymentHandler
	Webhook  *WebhookHandler
	Admin    *AdminHandler
	Health   *HealthHandler
}

// NewRouter builds the gin engine with middleware and every API route
func NewRouter(h Router, jwtService *jwt.Service, cfg *config.Config, logger *logrus.Logger) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}
	router.Use(middleware.RequestInfo())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     append(append([]string{}, cfg.CORS.AllowedHeaders...), StripeSignatureHeader, middleware.RequestIDHeader),
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: !containsWildcard(cfg.CORS.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", h.Health.Health)

	authRequired := middleware.AuthMiddleware(jwtService, logger)
	// re-attach request info so audit records carry the user id
	withUser := middleware.RequestInfo()

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
			auth.GET("/me", authRequired, withUser, h.Auth.Me)
		}

		properties := v1.Group("/properties")
		{
			properties.GET("", h.Property.ListProperties)
			properties.GET("/:id", h.Property.GetProperty)
			properties.POST("", authRequired, withUser, middleware.RequireRole(models.RoleHost, models.RoleAdmin), h.Property.CreateProperty)
		}

		bookings := v1.Group("/bookings")
		bookings.Use(authRequired, withUser)
		{
			bookings.POST("", h.Booking.CreateBooking)
			bookings.GET("", h.Booking.ListMyBookings)
			bookings.GET("/:id", h.Booking.GetBooking)
		}

		payments := v1.Group("/payments")
		{
			// Public: authenticated by the provider signature
			payments.POST("/webhook", h.Webhook.HandleStripeWebhook)

			protected := payments.Group("")
			protected.Use(authRequired, withUser)
			{
				protected.POST("/create-intent", h.Payment.CreatePaymentIntent)
				protected.POST("/confirm", h.Payment.ConfirmPayment)
				protected.GET("/status/:bookingId", h.Payment.GetPaymentStatus)
			}
		}

		admin := v1.Group("/admin")
		admin.Use(authRequired, withUser, middleware.RequireRole(models.RoleAdmin))
		{
			admin.GET("/bookings/:id", h.Admin.GetBooking)
			admin.POST("/bookings/:id/cancel", h.Admin.CancelBooking)
			admin.GET("/bookings/:id/audit", h.Admin.GetAuditTrail)
			admin.POST("/reconcile", h.Admin.Reconcile)
			admin.GET("/jobs", h.Admin.JobStatus)
		}
	}

	return router
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
