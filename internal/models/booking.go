package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/now"
)

// BookingStatus represents the status of a vehicle booking
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusApproved   BookingStatus = "approved"
	BookingStatusInProgress BookingStatus = "in-progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusRejected   BookingStatus = "rejected"
)

// ValidBookingStatuses lists every status a caller may request
var ValidBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusApproved,
	BookingStatusInProgress,
	BookingStatusCompleted,
	BookingStatusRejected,
}

// IsValid reports whether s is a known booking status
func (s BookingStatus) IsValid() bool {
	for _, v := range ValidBookingStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted out of s
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusRejected
}

// ActiveStatuses are the statuses under which a booking occupies its slot
var ActiveStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusApproved,
	BookingStatusInProgress,
}

// RejectionType distinguishes manual rejections from sweeper timeouts
type RejectionType string

const (
	RejectionManual  RejectionType = "manual"
	RejectionTimeout RejectionType = "timeout"
)

// ActionType identifies an entry in a booking's action history
type ActionType string

const (
	ActionCreated    ActionType = "created"
	ActionApproved   ActionType = "approved"
	ActionRejected   ActionType = "rejected"
	ActionDispatched ActionType = "dispatched"
	ActionCompleted  ActionType = "completed"
	ActionEdited     ActionType = "edited"
	ActionDeleted    ActionType = "deleted"
)

// Booking represents a campus vehicle booking request
type Booking struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	UserID          uuid.UUID     `json:"user_id" db:"user_id"`
	Date            time.Time     `json:"date" db:"date"`
	Time            string        `json:"time" db:"time"`
	FromPlace       string        `json:"from_place" db:"from_place"`
	Destination     string        `json:"destination" db:"destination"`
	Status          BookingStatus `json:"status" db:"status"`
	RejectionReason NullString    `json:"rejection_reason,omitempty" db:"rejection_reason"`
	RejectionType   NullString    `json:"rejection_type,omitempty" db:"rejection_type"`
	ApprovedBy      uuid.NullUUID `json:"approved_by,omitempty" db:"approved_by"`
	ApprovalTime    NullTime      `json:"approval_time,omitempty" db:"approval_time"`
	DispatchTime    NullTime      `json:"dispatch_time,omitempty" db:"dispatch_time"`
	CompletionTime  NullTime      `json:"completion_time,omitempty" db:"completion_time"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`

	// ActionHistory is loaded from the booking_actions table, oldest first
	ActionHistory []BookingAction `json:"action_history"`

	// Projected collaborator data, populated on reads for the HTTP layer
	User           *UserRef `json:"user,omitempty"`
	ApprovedByUser *UserRef `json:"approved_by_user,omitempty"`
}

// BookingAction is an append-only history entry for a booking.
// Entries are never mutated or reordered. PerformedBy is null for
// actions taken by the system (timeout sweeper).
type BookingAction struct {
	ID          int64         `json:"-" db:"id"`
	BookingID   uuid.UUID     `json:"-" db:"booking_id"`
	Action      ActionType    `json:"action" db:"action"`
	PerformedBy uuid.NullUUID `json:"performed_by,omitempty" db:"performed_by"`
	PerformedAt time.Time     `json:"performed_at" db:"performed_at"`
	Details     string        `json:"details" db:"details"`
}

// UserRef is the projection of a user attached to outgoing bookings
type UserRef struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	Email     string     `json:"email" db:"email"`
	RegNumber NullString `json:"reg_number,omitempty" db:"reg_number"`
}

// CreateBookingRequest represents the request to create a booking
type CreateBookingRequest struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	FromPlace   string `json:"fromPlace"`
	Destination string `json:"destination"`
}

// UpdateBookingStatusRequest represents a status-change request
type UpdateBookingStatusRequest struct {
	Status          BookingStatus `json:"status"`
	RejectionType   RejectionType `json:"rejectionType,omitempty"`
	RejectionReason string        `json:"rejectionReason,omitempty"`
}

// EditBookingRequest represents an administrative edit of a booking.
// Empty fields are left untouched.
type EditBookingRequest struct {
	Date             string `json:"date,omitempty"`
	Time             string `json:"time,omitempty"`
	FromPlace        string `json:"fromPlace,omitempty"`
	Destination      string `json:"destination,omitempty"`
	AssignedWatchman string `json:"assignedWatchman,omitempty"`
}

// ScheduledAt computes the absolute instant a booking is scheduled for:
// the booking's calendar day at day-start in loc, plus the HH:MM offset.
// Create-time validation and the timeout sweeper both go through this one
// computation so the two normalizations can never drift apart.
func (b *Booking) ScheduledAt(loc *time.Location) (time.Time, error) {
	parts := strings.SplitN(b.Time, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("malformed booking time %q", b.Time)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed booking time %q: %w", b.Time, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed booking time %q: %w", b.Time, err)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return time.Time{}, fmt.Errorf("booking time %q out of range", b.Time)
	}

	dayStart := now.New(b.Date.In(loc)).BeginningOfDay()
	return dayStart.Add(time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute), nil
}
