package models

import "time"

// PasswordResetOTP is a single-use one-time code for password reset.
// Only the sha256 hash of the code is stored.
type PasswordResetOTP struct {
	ID        int64     `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	OTPHash   string    `json:"-" db:"otp_hash"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	Attempts  int       `json:"attempts" db:"attempts"`
	IsUsed    bool      `json:"is_used" db:"is_used"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
