package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/campustransit/vehicle-booking-backend/internal/models"
)

// LocationRepository handles database operations for campus locations
type LocationRepository struct {
	db DB
}

// NewLocationRepository creates a new LocationRepository
func NewLocationRepository(db DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// Create inserts a new location
func (r *LocationRepository) Create(location *models.Location) error {
	if location.ID == uuid.Nil {
		location.ID = uuid.New()
	}

	query := `
		INSERT INTO locations (id, name, description, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		location.ID, location.Name, location.Description, location.CreatedBy,
	).Scan(&location.CreatedAt, &location.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create location: %w", err)
	}
	return nil
}

// GetByID retrieves a location by id
func (r *LocationRepository) GetByID(locationID uuid.UUID) (*models.Location, error) {
	query := `
		SELECT id, name, description, created_by, created_at, updated_at
		FROM locations WHERE id = $1
	`

	return r.scanLocation(r.db.QueryRow(query, locationID))
}

// List retrieves all locations sorted by name
func (r *LocationRepository) List() ([]models.Location, error) {
	query := `
		SELECT id, name, description, created_by, created_at, updated_at
		FROM locations ORDER BY name ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locations := []models.Location{}
	for rows.Next() {
		location, err := r.scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, *location)
	}
	return locations, rows.Err()
}

// ExistsByName reports whether a location with this name exists, optionally
// excluding one id (for rename collision checks)
func (r *LocationRepository) ExistsByName(name string, excludeID uuid.NullUUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM locations WHERE name = $1 AND ($2::uuid IS NULL OR id != $2))`

	var exists bool
	err := r.db.QueryRow(query, name, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check location name: %w", err)
	}
	return exists, nil
}

// Update changes a location's name and description
func (r *LocationRepository) Update(location *models.Location) error {
	query := `
		UPDATE locations
		SET name = $2, description = $3, updated_at = $4
		WHERE id = $1
	`

	location.UpdatedAt = time.Now()
	result, err := r.db.Exec(query, location.ID, location.Name, location.Description, location.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update location: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a location
func (r *LocationRepository) Delete(locationID uuid.UUID) error {
	result, err := r.db.Exec(`DELETE FROM locations WHERE id = $1`, locationID)
	if err != nil {
		return fmt.Errorf("failed to delete location: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *LocationRepository) scanLocation(row scanner) (*models.Location, error) {
	location := &models.Location{}
	err := row.Scan(
		&location.ID, &location.Name, &location.Description,
		&location.CreatedBy, &location.CreatedAt, &location.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return location, nil
}
