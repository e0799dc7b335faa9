package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staychill/booking-backend/internal/database"
	"github.com/staychill/booking-backend/internal/models"
)

// PropertyService handles property listings
type PropertyService struct {
	properties database.PropertyStore
	logger     *logrus.Logger
}

// NewPropertyService creates a new property service
func NewPropertyService(properties database.PropertyStore, logger *logrus.Logger) *PropertyService {
	return &PropertyService{
		properties: properties,
		logger:     logger,
	}
}

// ListProperties returns every listing
func (s *PropertyService) ListProperties(ctx context.Context) ([]*models.Property, error) {
	return s.properties.ListProperties(ctx)
}

// GetProperty returns a listing by id
func (s *PropertyService) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	property, err := s.properties.GetProperty(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: property %d", ErrNotFound, id)
		}
		return nil, err
	}
	return property, nil
}

// CreateProperty lists a new property owned by hostID
func (s *PropertyService) CreateProperty(ctx context.Context, hostID uuid.UUID, req *models.CreatePropertyRequest) (*models.Property, error) {
	if req.PricePerNight <= 0 {
		return nil, validationError("pricePerNight must be positive")
	}
	if req.MaxGuests < 1 {
		return nil, validationError("maxGuests must be at least 1")
	}

	property, err := s.properties.CreateProperty(ctx, &models.Property{
		HostID:        hostID,
		Title:         strings.TrimSpace(req.Title),
		Location:      strings.TrimSpace(req.Location),
		PricePerNight: req.PricePerNight,
		MaxGuests:     req.MaxGuests,
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"property_id": property.ID,
		"host_id":     hostID,
	}).Info("Property listed")

	return property, nil
}
