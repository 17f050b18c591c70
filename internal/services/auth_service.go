package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"github.com/campustransit/vehicle-booking-backend/internal/database"
	"github.com/campustransit/vehicle-booking-backend/internal/models"
	"github.com/campustransit/vehicle-booking-backend/pkg/jwt"
	"github.com/campustransit/vehicle-booking-backend/pkg/mailer"
	"github.com/campustransit/vehicle-booking-backend/pkg/validator"
)

// AuthResult is returned from a successful login or registration
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// AuthService handles registration, login and password reset
type AuthService struct {
	users      *database.UserRepository
	otp        *OTPService
	tokens     *jwt.Service
	mail       mailer.Gateway
	validator  *validator.BookingValidator
	audit      *AuditService
	logger     *logrus.Logger
	bcryptCost int
}

// NewAuthService creates a new auth service
func NewAuthService(
	users *database.UserRepository,
	otp *OTPService,
	tokens *jwt.Service,
	mail mailer.Gateway,
	v *validator.BookingValidator,
	audit *AuditService,
	logger *logrus.Logger,
	bcryptCost int,
) *AuthService {
	return &AuthService{
		users:      users,
		otp:        otp,
		tokens:     tokens,
		mail:       mail,
		validator:  v,
		audit:      audit,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

// Register creates a new student account with a campus email. The account
// starts pending until an admin activates it.
func (s *AuthService) Register(req models.RegisterRequest, client ClientInfo) (*models.User, error) {
	email, err := s.validator.ValidateEmail(req.Email)
	if err != nil {
		return nil, NewValidationError(err.Error(), map[string]string{"email": req.Email})
	}
	if req.Name == "" {
		return nil, NewValidationError("name is required", nil)
	}
	if len(req.Password) < 8 {
		return nil, NewValidationError("password must be at least 8 characters", nil)
	}

	user := &models.User{
		Name:   req.Name,
		Email:  email,
		Role:   models.RoleStudent,
		Status: models.UserStatusPending,
	}

	if req.RegNumber != "" {
		regNumber, err := s.validator.ValidateRegNumber(req.RegNumber)
		if err != nil {
			return nil, NewValidationError(err.Error(), map[string]string{"regNumber": req.RegNumber})
		}
		user.RegNumber = models.String(regNumber)
	}
	if req.Phone != "" {
		user.Phone = models.String(req.Phone)
	}

	if _, err := s.users.GetByEmail(email); err == nil {
		return nil, NewConflictError("an account with this email already exists", map[string]string{"email": email})
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.WithError(err).Error("Failed to look up email")
		return nil, NewSystemError("failed to register")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		s.logger.WithError(err).Error("Failed to hash password")
		return nil, NewSystemError("failed to register")
	}
	user.PasswordHash = models.String(string(hash))

	if err := s.users.Create(user); err != nil {
		s.logger.WithError(err).Error("Failed to create user")
		return nil, NewSystemError("failed to register")
	}

	s.audit.Record(&models.AuditLog{
		Action:     models.AuditUserCreated,
		UserID:     models.UUID(user.ID),
		Email:      models.String(email),
		Role:       models.String(string(user.Role)),
		Details:    models.String("self registration, awaiting activation"),
		IPAddress:  models.String(client.IPAddress),
		UserAgent:  models.String(client.UserAgent),
		DeviceInfo: models.String(client.DeviceInfo),
	})

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   email,
	}).Info("User registered")

	return user, nil
}

// GoogleRegister bridges a pre-verified Google identity into an active
// student account, or logs it in if the account already exists
func (s *AuthService) GoogleRegister(req models.GoogleRegisterRequest, client ClientInfo) (*AuthResult, error) {
	if req.GoogleID == "" {
		return nil, NewValidationError("googleId is required", nil)
	}

	if existing, err := s.users.GetByGoogleID(req.GoogleID); err == nil {
		return s.issueToken(existing, client)
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.WithError(err).Error("Failed to look up google id")
		return nil, NewSystemError("failed to sign in")
	}

	email, err := s.validator.ValidateEmail(req.Email)
	if err != nil {
		return nil, NewValidationError(err.Error(), map[string]string{"email": req.Email})
	}
	regNumber, err := s.validator.ValidateRegNumber(req.RegNumber)
	if err != nil {
		return nil, NewValidationError(err.Error(), map[string]string{"regNumber": req.RegNumber})
	}

	// Campus Google identity is already verified, activate immediately
	user := &models.User{
		Name:      req.Name,
		Email:     email,
		GoogleID:  models.String(req.GoogleID),
		RegNumber: models.String(regNumber),
		Role:      models.RoleStudent,
		Status:    models.UserStatusActive,
	}
	if err := s.users.Create(user); err != nil {
		s.logger.WithError(err).Error("Failed to create user")
		return nil, NewSystemError("failed to sign in")
	}

	s.audit.Record(&models.AuditLog{
		Action:     models.AuditUserCreated,
		UserID:     models.UUID(user.ID),
		Email:      models.String(email),
		Role:       models.String(string(user.Role)),
		Details:    models.String("google registration"),
		IPAddress:  models.String(client.IPAddress),
		UserAgent:  models.String(client.UserAgent),
		DeviceInfo: models.String(client.DeviceInfo),
	})

	return s.issueToken(user, client)
}

// Login authenticates a local account
func (s *AuthService) Login(req models.LoginRequest, client ClientInfo) (*AuthResult, error) {
	user, err := s.users.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordLogin(nil, req.Email, "failed", "unknown email", client)
			return nil, NewUnauthorizedError("invalid email or password")
		}
		s.logger.WithError(err).Error("Failed to look up user")
		return nil, NewSystemError("failed to sign in")
	}

	if !user.PasswordHash.Valid {
		s.recordLogin(user, req.Email, "failed", "account has no password", client)
		return nil, NewUnauthorizedError("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(req.Password)); err != nil {
		s.recordLogin(user, req.Email, "failed", "wrong password", client)
		return nil, NewUnauthorizedError("invalid email or password")
	}

	return s.issueToken(user, client)
}

// issueToken enforces account status and returns a signed access token
func (s *AuthService) issueToken(user *models.User, client ClientInfo) (*AuthResult, error) {
	switch user.Status {
	case models.UserStatusActive:
		// proceed
	case models.UserStatusPending:
		s.recordLogin(user, user.Email, "blocked", "account awaiting activation", client)
		return nil, NewForbiddenError("account is awaiting activation")
	default:
		s.audit.Record(&models.AuditLog{
			Action:     models.AuditLoginBlockedInactive,
			UserID:     models.UUID(user.ID),
			Email:      models.String(user.Email),
			Role:       models.String(string(user.Role)),
			Status:     "blocked",
			IPAddress:  models.String(client.IPAddress),
			UserAgent:  models.String(client.UserAgent),
			DeviceInfo: models.String(client.DeviceInfo),
		})
		return nil, NewForbiddenError("account has been deactivated")
	}

	token, err := s.tokens.GenerateAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign access token")
		return nil, NewSystemError("failed to sign in")
	}

	s.recordLogin(user, user.Email, "success", "", client)

	return &AuthResult{Token: token, User: user}, nil
}

// RequestPasswordReset generates and emails a reset code. The response never
// reveals whether the email has an account.
func (s *AuthService) RequestPasswordReset(email string, client ClientInfo) error {
	email, err := s.validator.ValidateEmail(email)
	if err != nil {
		return NewValidationError(err.Error(), map[string]string{"email": email})
	}

	user, err := s.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Pretend success
			return nil
		}
		s.logger.WithError(err).Error("Failed to look up user")
		return NewSystemError("failed to request password reset")
	}

	code, err := s.otp.Generate(email)
	if err != nil {
		s.logger.WithError(err).Error("Failed to generate OTP")
		return NewSystemError("failed to request password reset")
	}

	body := fmt.Sprintf(
		"Hi %s,\n\nYour password reset code is: %s\n\nIt expires shortly. If you did not request this, ignore this email.\n",
		user.Name, code,
	)
	if err := s.mail.Send(email, "Password reset code", body); err != nil {
		s.logger.WithError(err).Error("Failed to send OTP email")
		return NewSystemError("failed to send password reset email")
	}

	s.audit.Record(&models.AuditLog{
		Action:     models.AuditOTPGenerated,
		UserID:     models.UUID(user.ID),
		Email:      models.String(email),
		IPAddress:  models.String(client.IPAddress),
		UserAgent:  models.String(client.UserAgent),
		DeviceInfo: models.String(client.DeviceInfo),
	})

	return nil
}

// VerifyPasswordResetOTP checks a reset code and returns a short-lived
// password-reset token on success
func (s *AuthService) VerifyPasswordResetOTP(email, code string, client ClientInfo) (string, error) {
	email, err := s.validator.ValidateEmail(email)
	if err != nil {
		return "", NewValidationError(err.Error(), map[string]string{"email": email})
	}

	user, err := s.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", NewUnauthorizedError("invalid or expired code")
		}
		s.logger.WithError(err).Error("Failed to look up user")
		return "", NewSystemError("failed to verify code")
	}

	if err := s.otp.Verify(email, code); err != nil {
		s.audit.Record(&models.AuditLog{
			Action:     models.AuditOTPVerificationFailed,
			UserID:     models.UUID(user.ID),
			Email:      models.String(email),
			Reason:     models.String(err.Error()),
			Status:     "failed",
			IPAddress:  models.String(client.IPAddress),
			UserAgent:  models.String(client.UserAgent),
			DeviceInfo: models.String(client.DeviceInfo),
		})
		switch {
		case errors.Is(err, ErrOTPInvalid),
			errors.Is(err, ErrOTPExpired),
			errors.Is(err, ErrNoOTPFound),
			errors.Is(err, ErrOTPAlreadyUsed),
			errors.Is(err, ErrMaxAttemptsExceeded):
			return "", NewUnauthorizedError("invalid or expired code")
		default:
			s.logger.WithError(err).Error("Failed to verify OTP")
			return "", NewSystemError("failed to verify code")
		}
	}

	token, err := s.tokens.GeneratePasswordResetToken(user.ID, email)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign reset token")
		return "", NewSystemError("failed to verify code")
	}

	s.audit.Record(&models.AuditLog{
		Action:     models.AuditOTPVerified,
		UserID:     models.UUID(user.ID),
		Email:      models.String(email),
		IPAddress:  models.String(client.IPAddress),
		UserAgent:  models.String(client.UserAgent),
		DeviceInfo: models.String(client.DeviceInfo),
	})

	return token, nil
}

// ResetPassword sets a new password using a verified reset token
func (s *AuthService) ResetPassword(resetToken, newPassword string, client ClientInfo) error {
	claims, err := s.tokens.ValidatePasswordResetToken(resetToken)
	if err != nil {
		return NewUnauthorizedError("invalid or expired reset token")
	}
	if len(newPassword) < 8 {
		return NewValidationError("password must be at least 8 characters", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		s.logger.WithError(err).Error("Failed to hash password")
		return NewSystemError("failed to reset password")
	}

	if err := s.users.UpdatePassword(claims.UserID, string(hash)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewNotFoundError("account not found")
		}
		s.logger.WithError(err).Error("Failed to update password")
		s.audit.Record(&models.AuditLog{
			Action: models.AuditPasswordResetFailed,
			UserID: models.UUID(claims.UserID),
			Email:  models.String(claims.Email),
			Status: "failed",
		})
		return NewSystemError("failed to reset password")
	}

	s.audit.Record(&models.AuditLog{
		Action:     models.AuditPasswordResetSuccess,
		UserID:     models.UUID(claims.UserID),
		Email:      models.String(claims.Email),
		IPAddress:  models.String(client.IPAddress),
		UserAgent:  models.String(client.UserAgent),
		DeviceInfo: models.String(client.DeviceInfo),
	})

	s.logger.WithField("user_id", claims.UserID).Info("Password reset")
	return nil
}

// recordLogin writes one login_attempt audit entry
func (s *AuthService) recordLogin(user *models.User, email, status, reason string, client ClientInfo) {
	entry := &models.AuditLog{
		Action:     models.AuditLoginAttempt,
		Email:      models.String(email),
		Status:     status,
		IPAddress:  models.String(client.IPAddress),
		UserAgent:  models.String(client.UserAgent),
		DeviceInfo: models.String(client.DeviceInfo),
	}
	if user != nil {
		entry.UserID = models.UUID(user.ID)
		entry.Role = models.String(string(user.Role))
	}
	if reason != "" {
		entry.Reason = models.String(reason)
	}
	s.audit.Record(entry)
}
