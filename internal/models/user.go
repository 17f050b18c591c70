package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's role in the portal
type Role string

const (
	RoleStudent  Role = "student"
	RoleWatchman Role = "watchman"
	RoleAdmin    Role = "admin"
)

// ValidRoles lists every assignable role
var ValidRoles = []Role{RoleStudent, RoleWatchman, RoleAdmin}

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// UserStatus represents the account status of a user
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusPending  UserStatus = "pending"
	UserStatusInactive UserStatus = "inactive"
)

// IsValid reports whether s is a known account status
func (s UserStatus) IsValid() bool {
	return s == UserStatusActive || s == UserStatusPending || s == UserStatusInactive
}

// User represents a portal account (student, watchman or admin)
type User struct {
	ID           uuid.UUID     `json:"id" db:"id"`
	Name         string        `json:"name" db:"name"`
	Email        string        `json:"email" db:"email"`
	PasswordHash NullString    `json:"-" db:"password_hash"`
	GoogleID     NullString    `json:"-" db:"google_id"`
	RegNumber    NullString    `json:"reg_number,omitempty" db:"reg_number"`
	Phone        NullString    `json:"phone,omitempty" db:"phone"`
	Role         Role          `json:"role" db:"role"`
	Status       UserStatus    `json:"status" db:"status"`
	IsDeleted    bool          `json:"-" db:"is_deleted"`
	DeletedAt    NullTime      `json:"deleted_at,omitempty" db:"deleted_at"`
	DeletedBy    uuid.NullUUID `json:"-" db:"deleted_by"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}

// Ref projects the user into the shape attached to bookings
func (u *User) Ref() *UserRef {
	return &UserRef{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		RegNumber: u.RegNumber,
	}
}

// RegisterRequest represents a local registration request
type RegisterRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	RegNumber string `json:"regNumber,omitempty"`
	Role      Role   `json:"role,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// LoginRequest represents a local login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleRegisterRequest bridges a pre-verified Google identity into a
// student account
type GoogleRegisterRequest struct {
	GoogleID  string `json:"googleId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	RegNumber string `json:"regNumber"`
}

// CreateUserRequest is the admin user-creation payload
type CreateUserRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      Role   `json:"role"`
	RegNumber string `json:"regNumber,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// UpdateUserRequest is the admin user-edit payload
type UpdateUserRequest struct {
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	RegNumber string `json:"regNumber,omitempty"`
}

// UserFilter narrows admin user listings
type UserFilter struct {
	Role   Role
	Status UserStatus
	Search string
}
