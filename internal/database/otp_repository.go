package database

import (
	"fmt"

	"github.com/campustransit/vehicle-booking-backend/internal/models"
)

// OTPRepository handles storage of password-reset OTP records
type OTPRepository struct {
	db DB
}

// NewOTPRepository creates a new OTPRepository
func NewOTPRepository(db DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Replace deletes any existing OTPs for the email and stores a new one
func (r *OTPRepository) Replace(otp *models.PasswordResetOTP) error {
	if _, err := r.db.Exec(`DELETE FROM password_reset_otps WHERE email = $1`, otp.Email); err != nil {
		return fmt.Errorf("failed to invalidate existing OTPs: %w", err)
	}

	query := `
		INSERT INTO password_reset_otps (email, otp_hash, expires_at, attempts, is_used)
		VALUES ($1, $2, $3, 0, false)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(query, otp.Email, otp.OTPHash, otp.ExpiresAt).Scan(&otp.ID, &otp.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store OTP: %w", err)
	}
	return nil
}

// GetByEmail retrieves the current OTP record for an email
func (r *OTPRepository) GetByEmail(email string) (*models.PasswordResetOTP, error) {
	query := `
		SELECT id, email, otp_hash, expires_at, attempts, is_used, created_at
		FROM password_reset_otps
		WHERE email = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	otp := &models.PasswordResetOTP{}
	err := r.db.QueryRow(query, email).Scan(
		&otp.ID, &otp.Email, &otp.OTPHash, &otp.ExpiresAt,
		&otp.Attempts, &otp.IsUsed, &otp.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return otp, nil
}

// IncrementAttempts bumps the failed-attempt counter
func (r *OTPRepository) IncrementAttempts(id int64) error {
	_, err := r.db.Exec(`UPDATE password_reset_otps SET attempts = attempts + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment OTP attempts: %w", err)
	}
	return nil
}

// MarkUsed marks the OTP as consumed
func (r *OTPRepository) MarkUsed(id int64) error {
	_, err := r.db.Exec(`UPDATE password_reset_otps SET is_used = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark OTP used: %w", err)
	}
	return nil
}

// Delete removes an OTP record (after max attempts)
func (r *OTPRepository) Delete(id int64) error {
	_, err := r.db.Exec(`DELETE FROM password_reset_otps WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete OTP: %w", err)
	}
	return nil
}
