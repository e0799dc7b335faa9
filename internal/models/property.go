package models

import (
	"time"

	"github.com/google/uuid"
)

// Property is a rentable listing owned by a host
type Property struct {
	ID            int64     `json:"id" db:"id"`
	HostID        uuid.UUID `json:"hostId" db:"host_id"`
	Title         string    `json:"title" db:"title"`
	Location      string    `json:"location" db:"location"`
	PricePerNight float64   `json:"pricePerNight" db:"price_per_night"`
	MaxGuests     int       `json:"maxGuests" db:"max_guests"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

// CreatePropertyRequest represents the request to list a new property
type CreatePropertyRequest struct {
	Title         string  `json:"title" binding:"required,max=200"`
	Location      string  `json:"location" binding:"required,max=200"`
	PricePerNight float64 `json:"pricePerNight" binding:"required,gt=0"`
	MaxGuests     int     `json:"maxGuests" binding:"required,min=1,max=50"`
}
