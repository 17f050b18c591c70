package services

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/campustransit/vehicle-booking-backend/internal/database"
	"github.com/campustransit/vehicle-booking-backend/internal/models"
)

// LocationService manages the named campus pickup and drop-off points
type LocationService struct {
	locations *database.LocationRepository
	logger    *logrus.Logger
}

// NewLocationService creates a new location service
func NewLocationService(locations *database.LocationRepository, logger *logrus.Logger) *LocationService {
	return &LocationService{locations: locations, logger: logger}
}

// List retrieves all locations, ordered by name
func (s *LocationService) List() ([]models.Location, error) {
	locations, err := s.locations.List()
	if err != nil {
		s.logger.WithError(err).Error("Failed to list locations")
		return nil, NewSystemError("failed to list locations")
	}
	return locations, nil
}

// Create adds a location. Names are unique.
func (s *LocationService) Create(admin *models.User, req models.LocationRequest) (*models.Location, error) {
	if req.Name == "" {
		return nil, NewValidationError("name is required", nil)
	}

	exists, err := s.locations.ExistsByName(req.Name, uuid.NullUUID{})
	if err != nil {
		s.logger.WithError(err).Error("Failed to check location name")
		return nil, NewSystemError("failed to create location")
	}
	if exists {
		return nil, NewConflictError("a location with this name already exists", map[string]string{"name": req.Name})
	}

	location := &models.Location{
		Name:      req.Name,
		CreatedBy: models.UUID(admin.ID),
	}
	if req.Description != "" {
		location.Description = models.String(req.Description)
	}

	if err := s.locations.Create(location); err != nil {
		s.logger.WithError(err).Error("Failed to create location")
		return nil, NewSystemError("failed to create location")
	}
	return location, nil
}

// Update renames or re-describes a location
func (s *LocationService) Update(locationID uuid.UUID, req models.LocationRequest) (*models.Location, error) {
	location, err := s.locations.GetByID(locationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewNotFoundError("location not found")
		}
		s.logger.WithError(err).Error("Failed to load location")
		return nil, NewSystemError("failed to load location")
	}

	if req.Name != "" && req.Name != location.Name {
		exists, err := s.locations.ExistsByName(req.Name, models.UUID(locationID))
		if err != nil {
			s.logger.WithError(err).Error("Failed to check location name")
			return nil, NewSystemError("failed to update location")
		}
		if exists {
			return nil, NewConflictError("a location with this name already exists", map[string]string{"name": req.Name})
		}
		location.Name = req.Name
	}
	if req.Description != "" {
		location.Description = models.String(req.Description)
	}

	if err := s.locations.Update(location); err != nil {
		s.logger.WithError(err).Error("Failed to update location")
		return nil, NewSystemError("failed to update location")
	}
	return location, nil
}

// Delete removes a location
func (s *LocationService) Delete(locationID uuid.UUID) error {
	if err := s.locations.Delete(locationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewNotFoundError("location not found")
		}
		s.logger.WithError(err).Error("Failed to delete location")
		return NewSystemError("failed to delete location")
	}
	return nil
}
