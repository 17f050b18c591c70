package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/campustransit/vehicle-booking-backend/internal/models"
)

// BookingRepository handles database operations for the bookings and
// booking_actions tables. booking_actions is append-only: rows are inserted
// once and never updated.
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// StatusUpdate carries the column stamps for one lifecycle transition.
// Invalid Null* fields leave the stored value untouched (COALESCE), so a
// timestamp written by an earlier transition is never overwritten.
type StatusUpdate struct {
	Status          models.BookingStatus
	ApprovedBy      uuid.NullUUID
	ApprovalTime    models.NullTime
	DispatchTime    models.NullTime
	CompletionTime  models.NullTime
	RejectionReason models.NullString
	RejectionType   models.NullString
}

// AdminBookingFilter narrows admin booking listings
type AdminBookingFilter struct {
	UserID     uuid.NullUUID
	WatchmanID uuid.NullUUID
	Status     models.BookingStatus
	StartDate  models.NullTime
	EndDate    models.NullTime
}

const bookingColumns = `
	b.id, b.user_id, b.date, b.time, b.from_place, b.destination,
	b.status, b.rejection_reason, b.rejection_type,
	b.approved_by, b.approval_time, b.dispatch_time, b.completion_time,
	b.created_at,
	u.name, u.email, u.reg_number,
	a.name, a.email`

const bookingJoins = `
	FROM bookings b
	JOIN users u ON u.id = b.user_id
	LEFT JOIN users a ON a.id = b.approved_by`

// Create inserts a new booking together with its initial history entry
func (r *BookingRepository) Create(booking *models.Booking, action *models.BookingAction) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}

	query := `
		INSERT INTO bookings (
			id, user_id, date, time, from_place, destination, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := r.db.QueryRow(
		query,
		booking.ID, booking.UserID, booking.Date, booking.Time,
		booking.FromPlace, booking.Destination, booking.Status,
	).Scan(&booking.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	action.BookingID = booking.ID
	if err := r.AppendAction(action); err != nil {
		return fmt.Errorf("failed to record creation action: %w", err)
	}
	booking.ActionHistory = []models.BookingAction{*action}

	return nil
}

// GetByID retrieves a booking with its owner/approver projection and full
// action history
func (r *BookingRepository) GetByID(bookingID uuid.UUID) (*models.Booking, error) {
	query := `SELECT` + bookingColumns + bookingJoins + `
	WHERE b.id = $1`

	booking, err := r.scanBooking(r.db.QueryRow(query, bookingID))
	if err != nil {
		return nil, err
	}

	actions, err := r.ListActions(bookingID)
	if err != nil {
		return nil, err
	}
	booking.ActionHistory = actions

	return booking, nil
}

// ListByUser retrieves all bookings owned by a user, newest date first
func (r *BookingRepository) ListByUser(userID uuid.UUID) ([]models.Booking, error) {
	query := `SELECT` + bookingColumns + bookingJoins + `
	WHERE b.user_id = $1
	ORDER BY b.date DESC, b.created_at DESC`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// ListByStatuses retrieves bookings whose status is in the given set,
// optionally narrowed to one calendar day, ordered by schedule
func (r *BookingRepository) ListByStatuses(statuses []models.BookingStatus, day models.NullTime) ([]models.Booking, error) {
	statusStrings := make([]string, len(statuses))
	for i, s := range statuses {
		statusStrings[i] = string(s)
	}

	query := `SELECT` + bookingColumns + bookingJoins + `
	WHERE b.status = ANY($1)`
	args := []interface{}{pq.Array(statusStrings)}

	if day.Valid {
		query += ` AND b.date = $2`
		args = append(args, day.Time)
	}
	query += ` ORDER BY b.date ASC, b.time ASC, b.created_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// ListPending retrieves every pending booking, for the timeout sweeper
func (r *BookingRepository) ListPending() ([]models.Booking, error) {
	query := `SELECT` + bookingColumns + bookingJoins + `
	WHERE b.status = 'pending'
	ORDER BY b.date ASC, b.time ASC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// ListFiltered retrieves bookings matching the admin filter, newest first
func (r *BookingRepository) ListFiltered(filter AdminBookingFilter) ([]models.Booking, error) {
	query := `SELECT` + bookingColumns + bookingJoins + `
	WHERE 1=1`
	args := []interface{}{}

	if filter.UserID.Valid {
		args = append(args, filter.UserID.UUID)
		query += fmt.Sprintf(" AND b.user_id = $%d", len(args))
	}
	if filter.WatchmanID.Valid {
		args = append(args, filter.WatchmanID.UUID)
		query += fmt.Sprintf(" AND b.approved_by = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND b.status = $%d", len(args))
	}
	if filter.StartDate.Valid {
		args = append(args, filter.StartDate.Time)
		query += fmt.Sprintf(" AND b.date >= $%d", len(args))
	}
	if filter.EndDate.Valid {
		args = append(args, filter.EndDate.Time)
		query += fmt.Sprintf(" AND b.date <= $%d", len(args))
	}
	query += ` ORDER BY b.date DESC, b.created_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// SlotTaken reports whether another booking already occupies the
// (date, time, route) slot with a non-terminal status. Rejected and
// completed bookings never block a slot. excludeID keeps a booking from
// conflicting with itself when its own slot is re-checked on edit.
func (r *BookingRepository) SlotTaken(date time.Time, timeStr, fromPlace, destination string, excludeID uuid.NullUUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE date = $1
			  AND time = $2
			  AND from_place = $3
			  AND destination = $4
			  AND status IN ('pending', 'approved', 'in-progress')
			  AND ($5::uuid IS NULL OR id != $5)
		)
	`

	var taken bool
	err := r.db.QueryRow(query, date, timeStr, fromPlace, destination, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("failed to check slot availability: %w", err)
	}
	return taken, nil
}

// UpdateStatusFrom applies a lifecycle transition conditionally: the row is
// only written if the stored status still equals from. The store serializes
// writes to a single row, so of two concurrent identical transitions exactly
// one observes applied=true. This is the linearization point for the whole
// lifecycle engine.
func (r *BookingRepository) UpdateStatusFrom(bookingID uuid.UUID, from models.BookingStatus, update StatusUpdate) (bool, error) {
	query := `
		UPDATE bookings
		SET status = $3,
			approved_by = COALESCE($4, approved_by),
			approval_time = COALESCE($5, approval_time),
			dispatch_time = COALESCE($6, dispatch_time),
			completion_time = COALESCE($7, completion_time),
			rejection_reason = COALESCE($8, rejection_reason),
			rejection_type = COALESCE($9, rejection_type)
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.Exec(
		query,
		bookingID, from, update.Status,
		update.ApprovedBy, update.ApprovalTime, update.DispatchTime,
		update.CompletionTime, update.RejectionReason, update.RejectionType,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update booking status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// UpdateFields persists an administrative edit of schedule/route/assignee
func (r *BookingRepository) UpdateFields(booking *models.Booking) error {
	query := `
		UPDATE bookings
		SET date = $2, time = $3, from_place = $4, destination = $5,
			approved_by = $6
		WHERE id = $1
	`

	result, err := r.db.Exec(
		query,
		booking.ID, booking.Date, booking.Time,
		booking.FromPlace, booking.Destination, booking.ApprovedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
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

// AppendAction appends one entry to a booking's action history
func (r *BookingRepository) AppendAction(action *models.BookingAction) error {
	query := `
		INSERT INTO booking_actions (booking_id, action, performed_by, performed_at, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRow(
		query,
		action.BookingID, action.Action, action.PerformedBy,
		action.PerformedAt, action.Details,
	).Scan(&action.ID)
	if err != nil {
		return fmt.Errorf("failed to append booking action: %w", err)
	}
	return nil
}

// ListActions retrieves a booking's history, oldest entry first
func (r *BookingRepository) ListActions(bookingID uuid.UUID) ([]models.BookingAction, error) {
	query := `
		SELECT id, booking_id, action, performed_by, performed_at, details
		FROM booking_actions
		WHERE booking_id = $1
		ORDER BY performed_at ASC, id ASC
	`

	rows, err := r.db.Query(query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	actions := []models.BookingAction{}
	for rows.Next() {
		var a models.BookingAction
		if err := rows.Scan(&a.ID, &a.BookingID, &a.Action, &a.PerformedBy, &a.PerformedAt, &a.Details); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// Delete removes a booking and its history
func (r *BookingRepository) Delete(bookingID uuid.UUID) error {
	if _, err := r.db.Exec(`DELETE FROM booking_actions WHERE booking_id = $1`, bookingID); err != nil {
		return fmt.Errorf("failed to delete booking actions: %w", err)
	}

	result, err := r.db.Exec(`DELETE FROM bookings WHERE id = $1`, bookingID)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
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

// scanBooking scans a single booking row with its user/approver projection
func (r *BookingRepository) scanBooking(row scanner) (*models.Booking, error) {
	booking := &models.Booking{}
	user := models.UserRef{}
	var approverName, approverEmail sql.NullString

	err := row.Scan(
		&booking.ID, &booking.UserID, &booking.Date, &booking.Time,
		&booking.FromPlace, &booking.Destination,
		&booking.Status, &booking.RejectionReason, &booking.RejectionType,
		&booking.ApprovedBy, &booking.ApprovalTime, &booking.DispatchTime,
		&booking.CompletionTime, &booking.CreatedAt,
		&user.Name, &user.Email, &user.RegNumber,
		&approverName, &approverEmail,
	)
	if err != nil {
		return nil, err
	}

	user.ID = booking.UserID
	booking.User = &user
	if booking.ApprovedBy.Valid && approverName.Valid {
		booking.ApprovedByUser = &models.UserRef{
			ID:    booking.ApprovedBy.UUID,
			Name:  approverName.String,
			Email: approverEmail.String,
		}
	}

	return booking, nil
}

// scanBookings scans multiple booking rows
func (r *BookingRepository) scanBookings(rows *sql.Rows) ([]models.Booking, error) {
	bookings := []models.Booking{}
	for rows.Next() {
		booking, err := r.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	return bookings, rows.Err()
}
