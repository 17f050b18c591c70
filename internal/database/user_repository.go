package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/campustransit/vehicle-booking-backend/internal/models"
)

// UserRepository handles user database operations. All read queries exclude
// soft-deleted accounts unless stated otherwise.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	id, name, email, password_hash, google_id, reg_number, phone,
	role, status, is_deleted, deleted_at, deleted_by, created_at`

// Create inserts a new user
func (r *UserRepository) Create(user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()

	query := `
		INSERT INTO users (
			id, name, email, password_hash, google_id, reg_number, phone,
			role, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(
		query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.GoogleID,
		user.RegNumber, user.Phone, user.Role, user.Status, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a non-deleted user by id
func (r *UserRepository) GetByID(userID uuid.UUID) (*models.User, error) {
	query := `SELECT` + userColumns + `
	FROM users WHERE id = $1 AND is_deleted = false`

	return r.scanUser(r.db.QueryRow(query, userID))
}

// GetByEmail retrieves a non-deleted user by email
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	query := `SELECT` + userColumns + `
	FROM users WHERE email = $1 AND is_deleted = false`

	return r.scanUser(r.db.QueryRow(query, email))
}

// GetByGoogleID retrieves a non-deleted user by its linked Google identity
func (r *UserRepository) GetByGoogleID(googleID string) (*models.User, error) {
	query := `SELECT` + userColumns + `
	FROM users WHERE google_id = $1 AND is_deleted = false`

	return r.scanUser(r.db.QueryRow(query, googleID))
}

// List retrieves non-deleted users matching the filter, newest first
func (r *UserRepository) List(filter models.UserFilter) ([]models.User, error) {
	query := `SELECT` + userColumns + `
	FROM users WHERE is_deleted = false`
	args := []interface{}{}

	if filter.Role != "" {
		args = append(args, filter.Role)
		query += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(" AND (name ILIKE $%d OR email ILIKE $%d)", len(args), len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdateProfile updates the mutable profile fields
func (r *UserRepository) UpdateProfile(user *models.User) error {
	query := `
		UPDATE users
		SET name = $2, phone = $3, reg_number = $4
		WHERE id = $1 AND is_deleted = false
	`

	return r.execExpectingRow(query, user.ID, user.Name, user.Phone, user.RegNumber)
}

// UpdateStatus changes a user's account status
func (r *UserRepository) UpdateStatus(userID uuid.UUID, status models.UserStatus) error {
	query := `
		UPDATE users SET status = $2
		WHERE id = $1 AND is_deleted = false
	`

	return r.execExpectingRow(query, userID, status)
}

// UpdatePassword replaces a user's password hash
func (r *UserRepository) UpdatePassword(userID uuid.UUID, passwordHash string) error {
	query := `
		UPDATE users SET password_hash = $2
		WHERE id = $1 AND is_deleted = false
	`

	return r.execExpectingRow(query, userID, passwordHash)
}

// SoftDelete marks a user as deleted; booking history references survive
func (r *UserRepository) SoftDelete(userID, deletedBy uuid.UUID) error {
	query := `
		UPDATE users
		SET is_deleted = true, deleted_at = $2, deleted_by = $3
		WHERE id = $1 AND is_deleted = false
	`

	return r.execExpectingRow(query, userID, time.Now(), deletedBy)
}

// CountOtherActiveAdmins counts active admins other than the given user.
// Used for the last-admin guards on deactivation and deletion.
func (r *UserRepository) CountOtherActiveAdmins(excludeID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM users
		WHERE role = 'admin' AND status = 'active'
		  AND is_deleted = false AND id != $1
	`

	var count int
	err := r.db.QueryRow(query, excludeID).Scan(&count)
	return count, err
}

func (r *UserRepository) execExpectingRow(query string, args ...interface{}) error {
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
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

func (r *UserRepository) scanUser(row scanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.GoogleID,
		&user.RegNumber, &user.Phone, &user.Role, &user.Status,
		&user.IsDeleted, &user.DeletedAt, &user.DeletedBy, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}
