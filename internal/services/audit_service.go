package services

import (
	"github.com/sirupsen/logrus"
	"github.com/campustransit/vehicle-booking-backend/internal/database"
	"github.com/campustransit/vehicle-booking-backend/internal/models"
)

// AuditService records security and booking events. Recording failures are
// logged and swallowed so audit problems never fail the operation they
// describe.
type AuditService struct {
	repo    *database.AuditLogRepository
	logger  *logrus.Logger
	enabled bool
}

// NewAuditService creates a new audit service
func NewAuditService(repo *database.AuditLogRepository, logger *logrus.Logger, enabled bool) *AuditService {
	return &AuditService{repo: repo, logger: logger, enabled: enabled}
}

// Record persists one audit log entry
func (s *AuditService) Record(entry *models.AuditLog) {
	if !s.enabled {
		return
	}
	if entry.Status == "" {
		entry.Status = "success"
	}

	if err := s.repo.Insert(entry); err != nil {
		s.logger.WithError(err).WithField("action", entry.Action).Error("Failed to record audit log entry")
	}
}

// List retrieves audit logs for the admin surface
func (s *AuditService) List(filter models.AuditLogFilter) ([]models.AuditLog, int, error) {
	logs, total, err := s.repo.List(filter)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list audit logs")
		return nil, 0, NewSystemError("failed to list audit logs")
	}
	return logs, total, nil
}
