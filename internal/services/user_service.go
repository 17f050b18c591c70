package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"github.com/campustransit/vehicle-booking-backend/internal/database"
	"github.com/campustransit/vehicle-booking-backend/internal/models"
	"github.com/campustransit/vehicle-booking-backend/pkg/mailer"
	"github.com/campustransit/vehicle-booking-backend/pkg/validator"
)

// UserService handles administrative account management
type UserService struct {
	users      *database.UserRepository
	validator  *validator.BookingValidator
	audit      *AuditService
	mail       mailer.Gateway
	logger     *logrus.Logger
	bcryptCost int
}

// NewUserService creates a new user service
func NewUserService(
	users *database.UserRepository,
	v *validator.BookingValidator,
	audit *AuditService,
	mail mailer.Gateway,
	logger *logrus.Logger,
	bcryptCost int,
) *UserService {
	return &UserService{
		users:      users,
		validator:  v,
		audit:      audit,
		mail:       mail,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

// GetByID retrieves one account
func (s *UserService) GetByID(userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewNotFoundError("user not found")
		}
		s.logger.WithError(err).Error("Failed to load user")
		return nil, NewSystemError("failed to load user")
	}
	return user, nil
}

// List retrieves accounts matching the filter
func (s *UserService) List(filter models.UserFilter) ([]models.User, error) {
	users, err := s.users.List(filter)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list users")
		return nil, NewSystemError("failed to list users")
	}
	return users, nil
}

// Create adds an account with an explicit role, already active. Admin only.
func (s *UserService) Create(admin *models.User, req models.CreateUserRequest, client ClientInfo) (*models.User, error) {
	email, err := s.validator.ValidateEmail(req.Email)
	if err != nil {
		return nil, NewValidationError(err.Error(), map[string]string{"email": req.Email})
	}
	if req.Name == "" {
		return nil, NewValidationError("name is required", nil)
	}
	if !req.Role.IsValid() {
		return nil, NewValidationError("unknown role", map[string]string{"role": string(req.Role)})
	}
	if len(req.Password) < 8 {
		return nil, NewValidationError("password must be at least 8 characters", nil)
	}

	if _, err := s.users.GetByEmail(email); err == nil {
		return nil, NewConflictError("an account with this email already exists", map[string]string{"email": email})
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.WithError(err).Error("Failed to look up email")
		return nil, NewSystemError("failed to create user")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		s.logger.WithError(err).Error("Failed to hash password")
		return nil, NewSystemError("failed to create user")
	}

	user := &models.User{
		Name:         req.Name,
		Email:        email,
		PasswordHash: models.String(string(hash)),
		Role:         req.Role,
		Status:       models.UserStatusActive,
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

	if err := s.users.Create(user); err != nil {
		s.logger.WithError(err).Error("Failed to create user")
		return nil, NewSystemError("failed to create user")
	}

	s.audit.Record(&models.AuditLog{
		Action:      models.AuditUserCreated,
		UserID:      models.UUID(user.ID),
		PerformedBy: models.UUID(admin.ID),
		Email:       models.String(email),
		Role:        models.String(string(user.Role)),
		IPAddress:   models.String(client.IPAddress),
		UserAgent:   models.String(client.UserAgent),
		DeviceInfo:  models.String(client.DeviceInfo),
	})

	return user, nil
}

// Update edits account profile fields. Admin only.
func (s *UserService) Update(admin *models.User, userID uuid.UUID, req models.UpdateUserRequest) (*models.User, error) {
	user, err := s.GetByID(userID)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Phone != "" {
		user.Phone = models.String(req.Phone)
	}
	if req.RegNumber != "" {
		regNumber, err := s.validator.ValidateRegNumber(req.RegNumber)
		if err != nil {
			return nil, NewValidationError(err.Error(), map[string]string{"regNumber": req.RegNumber})
		}
		user.RegNumber = models.String(regNumber)
	}

	if err := s.users.UpdateProfile(user); err != nil {
		s.logger.WithError(err).Error("Failed to update user")
		return nil, NewSystemError("failed to update user")
	}
	return user, nil
}

// SetStatus activates or deactivates an account. The last active admin can
// never be deactivated.
func (s *UserService) SetStatus(admin *models.User, userID uuid.UUID, status models.UserStatus, client ClientInfo) (*models.User, error) {
	if !status.IsValid() {
		return nil, NewValidationError("unknown status", map[string]string{"status": string(status)})
	}

	user, err := s.GetByID(userID)
	if err != nil {
		return nil, err
	}

	if user.Role == models.RoleAdmin && status != models.UserStatusActive {
		others, err := s.users.CountOtherActiveAdmins(userID)
		if err != nil {
			s.logger.WithError(err).Error("Failed to count admins")
			return nil, NewSystemError("failed to update user status")
		}
		if others == 0 {
			return nil, NewForbiddenError("cannot deactivate the last active admin")
		}
	}

	if err := s.users.UpdateStatus(userID, status); err != nil {
		s.logger.WithError(err).Error("Failed to update user status")
		return nil, NewSystemError("failed to update user status")
	}
	user.Status = status

	action := models.AuditUserDeactivated
	if status == models.UserStatusActive {
		action = models.AuditUserActivated
	}
	s.audit.Record(&models.AuditLog{
		Action:      action,
		UserID:      models.UUID(userID),
		PerformedBy: models.UUID(admin.ID),
		Email:       models.String(user.Email),
		Role:        models.String(string(user.Role)),
		IPAddress:   models.String(client.IPAddress),
		UserAgent:   models.String(client.UserAgent),
		DeviceInfo:  models.String(client.DeviceInfo),
	})

	// Best effort, a mail failure never fails the status change
	subject := "Account deactivated"
	body := fmt.Sprintf("Hi %s,\n\nYour account has been deactivated. Contact the transport office if you believe this is a mistake.\n", user.Name)
	if status == models.UserStatusActive {
		subject = "Account activated"
		body = fmt.Sprintf("Hi %s,\n\nYour account has been activated. You can now sign in and book vehicles.\n", user.Name)
	}
	if err := s.mail.Send(user.Email, subject, body); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to send account status notification")
	}

	return user, nil
}

// Delete soft-deletes an account. The last active admin can never be
// deleted, and admins cannot delete themselves.
func (s *UserService) Delete(admin *models.User, userID uuid.UUID, client ClientInfo) error {
	if admin.ID == userID {
		return NewForbiddenError("cannot delete your own account")
	}

	user, err := s.GetByID(userID)
	if err != nil {
		return err
	}

	if user.Role == models.RoleAdmin {
		others, err := s.users.CountOtherActiveAdmins(userID)
		if err != nil {
			s.logger.WithError(err).Error("Failed to count admins")
			return NewSystemError("failed to delete user")
		}
		if others == 0 {
			return NewForbiddenError("cannot delete the last active admin")
		}
	}

	if err := s.users.SoftDelete(userID, admin.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewNotFoundError("user not found")
		}
		s.logger.WithError(err).Error("Failed to delete user")
		return NewSystemError("failed to delete user")
	}

	s.audit.Record(&models.AuditLog{
		Action:      models.AuditUserDeleted,
		UserID:      models.UUID(userID),
		PerformedBy: models.UUID(admin.ID),
		Email:       models.String(user.Email),
		Role:        models.String(string(user.Role)),
		IPAddress:   models.String(client.IPAddress),
		UserAgent:   models.String(client.UserAgent),
		DeviceInfo:  models.String(client.DeviceInfo),
	})

	s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"admin_id": admin.ID,
	}).Info("User deleted")

	return nil
}
