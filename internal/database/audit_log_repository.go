package database

import (
	"fmt"

	"github.com/campustransit/vehicle-booking-backend/internal/models"
)

// AuditLogRepository handles storage of audit log entries
type AuditLogRepository struct {
	db DB
}

// NewAuditLogRepository creates a new AuditLogRepository
func NewAuditLogRepository(db DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Insert appends an audit log entry
func (r *AuditLogRepository) Insert(entry *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			action, user_id, performed_by, email, role,
			details, reason, ip_address, user_agent, device_info, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		query,
		entry.Action, entry.UserID, entry.PerformedBy, entry.Email, entry.Role,
		entry.Details, entry.Reason, entry.IPAddress, entry.UserAgent,
		entry.DeviceInfo, entry.Status,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// List retrieves audit logs matching the filter, newest first
func (r *AuditLogRepository) List(filter models.AuditLogFilter) ([]models.AuditLog, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}

	if filter.UserID.Valid {
		args = append(args, filter.UserID.UUID)
		where += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		where += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if filter.Email != "" {
		args = append(args, "%"+filter.Email+"%")
		where += fmt.Sprintf(" AND email ILIKE $%d", len(args))
	}

	var total int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	query := `
		SELECT id, action, user_id, performed_by, email, role,
			   details, reason, ip_address, user_agent, device_info, status, created_at
		FROM audit_logs` + where + fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(` OFFSET $%d`, len(args))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := []models.AuditLog{}
	for rows.Next() {
		var entry models.AuditLog
		err := rows.Scan(
			&entry.ID, &entry.Action, &entry.UserID, &entry.PerformedBy,
			&entry.Email, &entry.Role, &entry.Details, &entry.Reason,
			&entry.IPAddress, &entry.UserAgent, &entry.DeviceInfo,
			&entry.Status, &entry.CreatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		logs = append(logs, entry)
	}
	return logs, total, rows.Err()
}
