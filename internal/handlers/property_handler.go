package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staychill/booking-backend/internal/middleware"
	"github.com/staychill/booking-backend/internal/models"
	"github.com/staychill/booking-backend/internal/services"
)

// PropertyHandler handles property listing endpoints
type PropertyHandler struct {
	propertyService *services.PropertyService
	logger          *logrus.Logger
}

// NewPropertyHandler creates a new PropertyHandler
func NewPropertyHandler(propertyService *services.PropertyService, logger *logrus.Logger) *PropertyHandler {
	return &PropertyHandler{
		propertyService: propertyService,
		logger:          logger,
	}
}

// ListProperties returns every listing
// @Summary List properties
// @Tags Properties
// @Produce json
// @Success 200 {array} models.Property
// @Router /api/v1/properties [get]
func (h *PropertyHandler) ListProperties(c *gin.Context) {
	properties, err := h.propertyService.ListProperties(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, properties)
}

// GetProperty returns one listing
// @Summary Get a property
// @Tags Properties
// @Produce json
// @Param id path int true "Property ID"
// @Success 200 {object} models.Property
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/properties/{id} [get]
func (h *PropertyHandler) GetProperty(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	property, err := h.propertyService.GetProperty(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, property)
}

// CreateProperty lists a property owned by the caller (hosts and admins)
// @Summary Create a property
// @Tags Properties
// @Accept json
// @Produce json
// @Param request body models.CreatePropertyRequest true "Property"
// @Success 201 {object} models.Property
// @Security BearerAuth
// @Router /api/v1/properties [post]
func (h *PropertyHandler) CreateProperty(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	property, err := h.propertyService.CreateProperty(c.Request.Context(), userCtx.UserID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, property)
}
