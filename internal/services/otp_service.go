package services

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/campustransit/vehicle-booking-backend/internal/database"
	"github.com/campustransit/vehicle-booking-backend/internal/models"
)

// OTPLength is the number of digits in a password-reset code
const OTPLength = 6

var (
	// ErrOTPExpired indicates the code has expired
	ErrOTPExpired = errors.New("OTP has expired")

	// ErrOTPInvalid indicates the code is incorrect
	ErrOTPInvalid = errors.New("invalid OTP code")

	// ErrMaxAttemptsExceeded indicates too many failed verification attempts
	ErrMaxAttemptsExceeded = errors.New("maximum OTP verification attempts exceeded")

	// ErrNoOTPFound indicates no code exists for the email
	ErrNoOTPFound = errors.New("no OTP found for this email")

	// ErrOTPAlreadyUsed indicates the code was already consumed
	ErrOTPAlreadyUsed = errors.New("OTP has already been used")
)

// OTPService generates and verifies password-reset codes. Only the sha256
// hash of a code ever reaches storage.
type OTPService struct {
	repo        *database.OTPRepository
	expiry      time.Duration
	maxAttempts int

	// now is swapped in tests
	now func() time.Time
}

// NewOTPService creates a new OTP service
func NewOTPService(repo *database.OTPRepository, expiry time.Duration, maxAttempts int) *OTPService {
	return &OTPService{
		repo:        repo,
		expiry:      expiry,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Generate creates a new code for the email, replacing any outstanding one.
// The plaintext code is returned once, for delivery only.
func (s *OTPService) Generate(email string) (string, error) {
	code, err := randomCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}

	otp := &models.PasswordResetOTP{
		Email:     email,
		OTPHash:   hashCode(code),
		ExpiresAt: s.now().Add(s.expiry),
	}
	if err := s.repo.Replace(otp); err != nil {
		return "", fmt.Errorf("failed to store OTP: %w", err)
	}

	return code, nil
}

// Verify checks a submitted code. A successful verification consumes the
// code; failures count against the attempt limit.
func (s *OTPService) Verify(email, code string) error {
	otp, err := s.repo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoOTPFound
		}
		return fmt.Errorf("failed to load OTP: %w", err)
	}

	if otp.IsUsed {
		return ErrOTPAlreadyUsed
	}
	if s.now().After(otp.ExpiresAt) {
		return ErrOTPExpired
	}
	if otp.Attempts >= s.maxAttempts {
		return ErrMaxAttemptsExceeded
	}

	if err := s.repo.IncrementAttempts(otp.ID); err != nil {
		return fmt.Errorf("failed to increment OTP attempts: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(hashCode(code)), []byte(otp.OTPHash)) != 1 {
		return ErrOTPInvalid
	}

	if err := s.repo.MarkUsed(otp.ID); err != nil {
		return fmt.Errorf("failed to mark OTP used: %w", err)
	}
	return nil
}

// randomCode produces a uniformly random 6-digit code
func randomCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < OTPLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", OTPLength, n), nil
}

// hashCode returns the hex sha256 digest of a code
func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
