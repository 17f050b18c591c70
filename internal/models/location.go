package models

import (
	"time"

	"github.com/google/uuid"
)

// Location represents a named campus pickup or drop-off point
type Location struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	Name        string        `json:"name" db:"name"`
	Description NullString    `json:"description,omitempty" db:"description"`
	CreatedBy   uuid.NullUUID `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// LocationRequest is the payload for creating or updating a location
type LocationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
