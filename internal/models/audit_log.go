package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction identifies a security or booking event recorded in the audit log
type AuditAction string

const (
	AuditUserActivated         AuditAction = "user_activated"
	AuditUserDeactivated       AuditAction = "user_deactivated"
	AuditPasswordResetRequest  AuditAction = "password_reset_requested"
	AuditPasswordResetSuccess  AuditAction = "password_reset_successful"
	AuditPasswordResetFailed   AuditAction = "password_reset_failed"
	AuditLoginAttempt          AuditAction = "login_attempt"
	AuditLoginBlockedInactive  AuditAction = "login_blocked_deactivated"
	AuditOTPGenerated          AuditAction = "otp_generated"
	AuditOTPVerified           AuditAction = "otp_verified"
	AuditOTPVerificationFailed AuditAction = "otp_verification_failed"
	AuditUserCreated           AuditAction = "user_created"
	AuditUserDeleted           AuditAction = "user_deleted"
	AuditBookingCreated        AuditAction = "booking_created"
	AuditBookingUpdated        AuditAction = "booking_updated"
	AuditBookingApproved       AuditAction = "booking_approved"
	AuditBookingRejected       AuditAction = "booking_rejected"
	AuditBookingDispatched     AuditAction = "booking_dispatched"
	AuditBookingCompleted      AuditAction = "booking_completed"
	AuditBookingDeleted        AuditAction = "booking_deleted"
)

// AuditLog records who did what, from where
type AuditLog struct {
	ID          int64         `json:"id" db:"id"`
	Action      AuditAction   `json:"action" db:"action"`
	UserID      uuid.NullUUID `json:"user_id,omitempty" db:"user_id"`
	PerformedBy uuid.NullUUID `json:"performed_by,omitempty" db:"performed_by"`
	Email       NullString    `json:"email,omitempty" db:"email"`
	Role        NullString    `json:"role,omitempty" db:"role"`
	Details     NullString    `json:"details,omitempty" db:"details"`
	Reason      NullString    `json:"reason,omitempty" db:"reason"`
	IPAddress   NullString    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent   NullString    `json:"user_agent,omitempty" db:"user_agent"`
	DeviceInfo  NullString    `json:"device_info,omitempty" db:"device_info"`
	Status      string        `json:"status" db:"status"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}

// AuditLogFilter narrows admin audit-log queries
type AuditLogFilter struct {
	UserID uuid.NullUUID
	Action AuditAction
	Email  string
	Limit  int
	Offset int
}
