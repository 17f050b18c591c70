package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/campustransit/vehicle-booking-backend/internal/database"
	"github.com/campustransit/vehicle-booking-backend/internal/models"
	"github.com/campustransit/vehicle-booking-backend/pkg/mailer"
	"github.com/campustransit/vehicle-booking-backend/pkg/validator"
)

// ClientInfo carries request metadata recorded alongside audit entries
type ClientInfo struct {
	IPAddress  string
	UserAgent  string
	DeviceInfo string
}

// BookingService is the single entry point for booking operations. It owns
// validation, slot conflict checking, lifecycle transitions and history
// recording; handlers never touch the repositories directly.
type BookingService struct {
	bookings  *database.BookingRepository
	users     *database.UserRepository
	validator *validator.BookingValidator
	audit     *AuditService
	mail      mailer.Gateway
	logger    *logrus.Logger
	location  *time.Location

	// now is swapped in tests
	now func() time.Time
}

// NewBookingService creates a new booking service
func NewBookingService(
	bookings *database.BookingRepository,
	users *database.UserRepository,
	v *validator.BookingValidator,
	audit *AuditService,
	mail mailer.Gateway,
	logger *logrus.Logger,
	location *time.Location,
) *BookingService {
	return &BookingService{
		bookings:  bookings,
		users:     users,
		validator: v,
		audit:     audit,
		mail:      mail,
		logger:    logger,
		location:  location,
		now:       time.Now,
	}
}

// CreateBooking validates and stores a new booking in pending status
func (s *BookingService) CreateBooking(user *models.User, req models.CreateBookingRequest, client ClientInfo) (*models.Booking, error) {
	if user.Status != models.UserStatusActive {
		return nil, NewForbiddenError("account is not active")
	}
	if user.Role == models.RoleWatchman {
		return nil, NewForbiddenError("watchmen cannot create bookings")
	}

	date, err := s.validator.ValidateDate(req.Date)
	if err != nil {
		return nil, NewValidationError(err.Error(), map[string]string{"date": req.Date})
	}
	timeStr, err := s.validator.ValidateTime(req.Time)
	if err != nil {
		return nil, NewValidationError(err.Error(), map[string]string{"time": req.Time})
	}
	if req.FromPlace == "" || req.Destination == "" {
		return nil, NewValidationError("fromPlace and destination are required", nil)
	}
	if req.FromPlace == req.Destination {
		return nil, NewValidationError("fromPlace and destination must differ", nil)
	}

	booking := &models.Booking{
		UserID:      user.ID,
		Date:        date,
		Time:        timeStr,
		FromPlace:   req.FromPlace,
		Destination: req.Destination,
		Status:      models.BookingStatusPending,
	}

	scheduledAt, err := booking.ScheduledAt(s.location)
	if err != nil {
		return nil, NewValidationError(err.Error(), map[string]string{"time": req.Time})
	}
	if scheduledAt.Before(s.now()) {
		return nil, NewValidationError("cannot book a vehicle for a past time", map[string]string{
			"date": req.Date,
			"time": timeStr,
		})
	}

	taken, err := s.bookings.SlotTaken(date, timeStr, req.FromPlace, req.Destination, uuid.NullUUID{})
	if err != nil {
		s.logger.WithError(err).Error("Failed to check slot availability")
		return nil, NewSystemError("failed to check slot availability")
	}
	if taken {
		return nil, NewConflictError("this slot is already booked", map[string]string{
			"date":        req.Date,
			"time":        timeStr,
			"fromPlace":   req.FromPlace,
			"destination": req.Destination,
		})
	}

	action := &models.BookingAction{
		Action:      models.ActionCreated,
		PerformedBy: models.UUID(user.ID),
		PerformedAt: s.now(),
		Details:     fmt.Sprintf("Booking created for %s at %s", req.Date, timeStr),
	}

	if err := s.bookings.Create(booking, action); err != nil {
		s.logger.WithError(err).Error("Failed to create booking")
		return nil, NewSystemError("failed to create booking")
	}
	booking.User = user.Ref()

	s.audit.Record(&models.AuditLog{
		Action:      models.AuditBookingCreated,
		UserID:      models.UUID(user.ID),
		PerformedBy: models.UUID(user.ID),
		Email:       models.String(user.Email),
		Role:        models.String(string(user.Role)),
		Details:     models.String(fmt.Sprintf("booking %s: %s -> %s on %s %s", booking.ID, req.FromPlace, req.Destination, req.Date, timeStr)),
		IPAddress:   models.String(client.IPAddress),
		UserAgent:   models.String(client.UserAgent),
		DeviceInfo:  models.String(client.DeviceInfo),
	})

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"user_id":    user.ID,
		"date":       req.Date,
		"time":       timeStr,
	}).Info("Booking created")

	return booking, nil
}

// GetBooking retrieves one booking, enforcing role visibility: students see
// only their own bookings, watchmen never see rejected ones.
func (s *BookingService) GetBooking(bookingID uuid.UUID, requester *models.User) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewNotFoundError("booking not found")
		}
		s.logger.WithError(err).Error("Failed to load booking")
		return nil, NewSystemError("failed to load booking")
	}

	switch requester.Role {
	case models.RoleAdmin:
		return booking, nil
	case models.RoleWatchman:
		if booking.Status == models.BookingStatusRejected {
			return nil, NewNotFoundError("booking not found")
		}
		return booking, nil
	default:
		if booking.UserID != requester.ID {
			return nil, NewNotFoundError("booking not found")
		}
		return booking, nil
	}
}

// MyBookings retrieves the requester's own bookings, newest first
func (s *BookingService) MyBookings(userID uuid.UUID) ([]models.Booking, error) {
	bookings, err := s.bookings.ListByUser(userID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list user bookings")
		return nil, NewSystemError("failed to list bookings")
	}
	return bookings, nil
}

// WatchmanBookings retrieves the bookings a watchman acts on. Rejected
// bookings are never included. An optional day narrows to one date.
func (s *BookingService) WatchmanBookings(day models.NullTime) ([]models.Booking, error) {
	statuses := []models.BookingStatus{
		models.BookingStatusPending,
		models.BookingStatusApproved,
		models.BookingStatusInProgress,
		models.BookingStatusCompleted,
	}
	bookings, err := s.bookings.ListByStatuses(statuses, day)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list watchman bookings")
		return nil, NewSystemError("failed to list bookings")
	}
	return bookings, nil
}

// AdminBookings retrieves bookings matching the admin filter
func (s *BookingService) AdminBookings(filter database.AdminBookingFilter) ([]models.Booking, error) {
	bookings, err := s.bookings.ListFiltered(filter)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list bookings")
		return nil, NewSystemError("failed to list bookings")
	}
	return bookings, nil
}

// ChangeStatus applies one lifecycle transition requested by a watchman or
// admin. The transition is planned against the status the actor saw, then
// applied conditionally: if the stored status moved underneath them the
// request fails as an invalid transition instead of silently overwriting.
func (s *BookingService) ChangeStatus(bookingID uuid.UUID, actor *models.User, req models.UpdateBookingStatusRequest, client ClientInfo) (*models.Booking, error) {
	if actor.Role != models.RoleWatchman && actor.Role != models.RoleAdmin {
		return nil, NewForbiddenError("only watchmen and admins can change booking status")
	}

	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewNotFoundError("booking not found")
		}
		s.logger.WithError(err).Error("Failed to load booking")
		return nil, NewSystemError("failed to load booking")
	}

	rejectionType := req.RejectionType
	if req.Status == models.BookingStatusRejected && rejectionType == "" {
		rejectionType = models.RejectionManual
	}

	plan, err := PlanTransition(TransitionRequest{
		From:            booking.Status,
		To:              req.Status,
		Actor:           models.UUID(actor.ID),
		RejectionType:   rejectionType,
		RejectionReason: req.RejectionReason,
		Now:             s.now(),
	})
	if err != nil {
		return nil, err
	}

	applied, err := s.bookings.UpdateStatusFrom(bookingID, booking.Status, plan.Update)
	if err != nil {
		s.logger.WithError(err).Error("Failed to update booking status")
		return nil, NewSystemError("failed to update booking status")
	}
	if !applied {
		// Someone else moved the booking first
		return nil, NewInvalidTransitionError("booking status changed, please reload and retry", map[string]string{
			"from": string(booking.Status),
			"to":   string(req.Status),
		})
	}

	entry := plan.HistoryEntry(bookingID, models.UUID(actor.ID), s.now(),
		fmt.Sprintf("Status changed from %s to %s", booking.Status, req.Status))
	if err := s.bookings.AppendAction(entry); err != nil {
		s.logger.WithError(err).Error("Failed to append booking action")
	}

	s.audit.Record(&models.AuditLog{
		Action:      auditActionFor(plan.Action),
		UserID:      models.UUID(booking.UserID),
		PerformedBy: models.UUID(actor.ID),
		Email:       models.String(actor.Email),
		Role:        models.String(string(actor.Role)),
		Details:     models.String(fmt.Sprintf("booking %s: %s -> %s", bookingID, booking.Status, req.Status)),
		IPAddress:   models.String(client.IPAddress),
		UserAgent:   models.String(client.UserAgent),
		DeviceInfo:  models.String(client.DeviceInfo),
	})

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"from":       booking.Status,
		"to":         req.Status,
		"actor_id":   actor.ID,
	}).Info("Booking status changed")

	updated, err := s.bookings.GetByID(bookingID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to reload booking")
		return nil, NewSystemError("failed to load booking")
	}
	s.notifyStatusChange(updated)

	return updated, nil
}

// notifyStatusChange emails the booking owner about a status change.
// Delivery is best effort, a mail failure never fails the transition.
func (s *BookingService) notifyStatusChange(booking *models.Booking) {
	if booking.User == nil || booking.User.Email == "" {
		return
	}

	subject := fmt.Sprintf("Booking %s", booking.Status)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour booking from %s to %s on %s at %s is now %s.\n",
		booking.User.Name, booking.FromPlace, booking.Destination,
		booking.Date.Format("2006-01-02"), booking.Time, booking.Status,
	)
	if booking.Status == models.BookingStatusRejected && booking.RejectionReason.Valid {
		body += fmt.Sprintf("\nReason: %s\n", booking.RejectionReason.String)
	}

	if err := s.mail.Send(booking.User.Email, subject, body); err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("Failed to send status notification")
	}
}

// EditBooking applies an administrative edit of schedule, route or assigned
// watchman. Terminal bookings cannot be edited. A schedule or route change is
// re-checked against the conflict rule.
func (s *BookingService) EditBooking(bookingID uuid.UUID, admin *models.User, req models.EditBookingRequest, client ClientInfo) (*models.Booking, error) {
	if admin.Role != models.RoleAdmin {
		return nil, NewForbiddenError("only admins can edit bookings")
	}

	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewNotFoundError("booking not found")
		}
		s.logger.WithError(err).Error("Failed to load booking")
		return nil, NewSystemError("failed to load booking")
	}
	if booking.Status.IsTerminal() {
		return nil, NewInvalidTransitionError(
			fmt.Sprintf("cannot edit a %s booking", booking.Status), nil)
	}

	// Only values that actually differ from the stored booking count as
	// changes. An admin re-sending the current values (the client prefills
	// the form) must not trip the slot re-check against the booking itself.
	var changes []string
	slotChanged := false
	if req.Date != "" {
		date, err := s.validator.ValidateDate(req.Date)
		if err != nil {
			return nil, NewValidationError(err.Error(), map[string]string{"date": req.Date})
		}
		if !date.Equal(booking.Date) {
			changes = append(changes, fmt.Sprintf("date %s -> %s",
				booking.Date.Format("2006-01-02"), date.Format("2006-01-02")))
			booking.Date = date
			slotChanged = true
		}
	}
	if req.Time != "" {
		timeStr, err := s.validator.ValidateTime(req.Time)
		if err != nil {
			return nil, NewValidationError(err.Error(), map[string]string{"time": req.Time})
		}
		if timeStr != booking.Time {
			changes = append(changes, fmt.Sprintf("time %s -> %s", booking.Time, timeStr))
			booking.Time = timeStr
			slotChanged = true
		}
	}
	if req.FromPlace != "" && req.FromPlace != booking.FromPlace {
		changes = append(changes, fmt.Sprintf("from %s -> %s", booking.FromPlace, req.FromPlace))
		booking.FromPlace = req.FromPlace
		slotChanged = true
	}
	if req.Destination != "" && req.Destination != booking.Destination {
		changes = append(changes, fmt.Sprintf("destination %s -> %s", booking.Destination, req.Destination))
		booking.Destination = req.Destination
		slotChanged = true
	}
	if booking.FromPlace == booking.Destination {
		return nil, NewValidationError("fromPlace and destination must differ", nil)
	}

	if req.AssignedWatchman != "" {
		watchman, err := s.users.GetByEmail(req.AssignedWatchman)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, NewValidationError("assigned watchman not found", map[string]string{"assignedWatchman": req.AssignedWatchman})
			}
			s.logger.WithError(err).Error("Failed to look up watchman")
			return nil, NewSystemError("failed to look up watchman")
		}
		if watchman.Role != models.RoleWatchman {
			return nil, NewValidationError("assigned user is not a watchman", map[string]string{"assignedWatchman": req.AssignedWatchman})
		}
		if !booking.ApprovedBy.Valid || booking.ApprovedBy.UUID != watchman.ID {
			changes = append(changes, fmt.Sprintf("watchman assigned: %s", watchman.Email))
			booking.ApprovedBy = models.UUID(watchman.ID)
		}
	}

	if len(changes) == 0 {
		return booking, nil
	}

	if slotChanged {
		taken, err := s.bookings.SlotTaken(booking.Date, booking.Time, booking.FromPlace, booking.Destination, models.UUID(bookingID))
		if err != nil {
			s.logger.WithError(err).Error("Failed to check slot availability")
			return nil, NewSystemError("failed to check slot availability")
		}
		if taken {
			return nil, NewConflictError("this slot is already booked", map[string]string{
				"time":        booking.Time,
				"fromPlace":   booking.FromPlace,
				"destination": booking.Destination,
			})
		}
	}

	if err := s.bookings.UpdateFields(booking); err != nil {
		s.logger.WithError(err).Error("Failed to update booking")
		return nil, NewSystemError("failed to update booking")
	}

	entry := &models.BookingAction{
		BookingID:   bookingID,
		Action:      models.ActionEdited,
		PerformedBy: models.UUID(admin.ID),
		PerformedAt: s.now(),
		Details:     "Booking edited: " + strings.Join(changes, ", "),
	}
	if err := s.bookings.AppendAction(entry); err != nil {
		s.logger.WithError(err).Error("Failed to append booking action")
	}

	s.audit.Record(&models.AuditLog{
		Action:      models.AuditBookingUpdated,
		UserID:      models.UUID(booking.UserID),
		PerformedBy: models.UUID(admin.ID),
		Email:       models.String(admin.Email),
		Role:        models.String(string(admin.Role)),
		Details:     models.String(fmt.Sprintf("booking %s edited: %s", bookingID, strings.Join(changes, ", "))),
		IPAddress:   models.String(client.IPAddress),
		UserAgent:   models.String(client.UserAgent),
		DeviceInfo:  models.String(client.DeviceInfo),
	})

	return s.bookings.GetByID(bookingID)
}

// DeleteBooking removes a booking and its history entirely. Admin only.
func (s *BookingService) DeleteBooking(bookingID uuid.UUID, admin *models.User, client ClientInfo) error {
	if admin.Role != models.RoleAdmin {
		return NewForbiddenError("only admins can delete bookings")
	}

	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewNotFoundError("booking not found")
		}
		s.logger.WithError(err).Error("Failed to load booking")
		return NewSystemError("failed to load booking")
	}

	if err := s.bookings.Delete(bookingID); err != nil {
		s.logger.WithError(err).Error("Failed to delete booking")
		return NewSystemError("failed to delete booking")
	}

	s.audit.Record(&models.AuditLog{
		Action:      models.AuditBookingDeleted,
		UserID:      models.UUID(booking.UserID),
		PerformedBy: models.UUID(admin.ID),
		Email:       models.String(admin.Email),
		Role:        models.String(string(admin.Role)),
		Details:     models.String(fmt.Sprintf("booking %s deleted (was %s)", bookingID, booking.Status)),
		IPAddress:   models.String(client.IPAddress),
		UserAgent:   models.String(client.UserAgent),
		DeviceInfo:  models.String(client.DeviceInfo),
	})

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"admin_id":   admin.ID,
	}).Info("Booking deleted")

	return nil
}

// auditActionFor maps a history action to its audit log counterpart
func auditActionFor(action models.ActionType) models.AuditAction {
	switch action {
	case models.ActionApproved:
		return models.AuditBookingApproved
	case models.ActionRejected:
		return models.AuditBookingRejected
	case models.ActionDispatched:
		return models.AuditBookingDispatched
	case models.ActionCompleted:
		return models.AuditBookingCompleted
	case models.ActionDeleted:
		return models.AuditBookingDeleted
	default:
		return models.AuditBookingUpdated
	}
}
