package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/staychill/booking-backend/internal/models"
)

// PropertyRepository handles property database operations
type PropertyRepository struct {
	db DB
}

// NewPropertyRepository creates a new property repository
func NewPropertyRepository(db DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

// GetProperty retrieves a property by ID
func (r *PropertyRepository) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	query := `
		SELECT id, host_id, title, location, price_per_night, max_guests, created_at
		FROM properties
		WHERE id = $1
	`

	var property models.Property
	if err := r.db.GetContext(ctx, &property, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get property %d: %w", id, err)
	}
	return &property, nil
}

// CreateProperty inserts a new listing
func (r *PropertyRepository) CreateProperty(ctx context.Context, property *models.Property) (*models.Property, error) {
	query := `
		INSERT INTO properties (host_id, title, location, price_per_night, max_guests)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, host_id, title, location, price_per_night, max_guests, created_at
	`

	var created models.Property
	err := r.db.GetContext(ctx, &created, query,
		property.HostID,
		property.Title,
		property.Location,
		property.PricePerNight,
		property.MaxGuests,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create property: %w", err)
	}
	return &created, nil
}

// ListProperties returns all listings ordered by id
func (r *PropertyRepository) ListProperties(ctx context.Context) ([]*models.Property, error) {
	query := `
		SELECT id, host_id, title, location, price_per_night, max_guests, created_at
		FROM properties
		ORDER BY id
	`

	properties := []*models.Property{}
	if err := r.db.SelectContext(ctx, &properties, query); err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return properties, nil
}
