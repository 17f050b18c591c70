package services

import (
	"database/sql/driver"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/campustransit/vehicle-booking-backend/internal/database"
	"github.com/campustransit/vehicle-booking-backend/internal/models"
	"github.com/campustransit/vehicle-booking-backend/pkg/mailer"
	"github.com/campustransit/vehicle-booking-backend/pkg/validator"
)

func newTestBookingService(t *testing.T) (*BookingService, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	mockDB := &mockDatabase{db: db}
	bookingRepo := database.NewBookingRepository(mockDB)
	userRepo := database.NewUserRepository(mockDB)
	audit := NewAuditService(database.NewAuditLogRepository(mockDB), logger, false)
	v := validator.NewBookingValidator("@bitsathy.ac.in")
	mail := mailer.NewDevGateway(logger)

	svc := NewBookingService(bookingRepo, userRepo, v, audit, mail, logger, time.UTC)
	return svc, mock, func() { db.Close() }
}

func activeStudent() *models.User {
	return &models.User{
		ID:     uuid.New(),
		Name:   "Asha",
		Email:  "asha@bitsathy.ac.in",
		Role:   models.RoleStudent,
		Status: models.UserStatusActive,
	}
}

func activeWatchman() *models.User {
	return &models.User{
		ID:     uuid.New(),
		Name:   "Kumar",
		Email:  "kumar@bitsathy.ac.in",
		Role:   models.RoleWatchman,
		Status: models.UserStatusActive,
	}
}

func TestCreateBooking_Validation(t *testing.T) {
	svc, _, cleanup := newTestBookingService(t)
	defer cleanup()

	svc.now = func() time.Time { return time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC) }
	student := activeStudent()

	cases := []struct {
		name string
		req  models.CreateBookingRequest
		kind ErrorKind
	}{
		{
			name: "Malformed Date",
			req:  models.CreateBookingRequest{Date: "01-09-2026", Time: "09:00", FromPlace: "Main Gate", Destination: "Hostel"},
			kind: KindValidation,
		},
		{
			name: "Hour Out Of Range",
			req:  models.CreateBookingRequest{Date: "2026-09-02", Time: "24:00", FromPlace: "Main Gate", Destination: "Hostel"},
			kind: KindValidation,
		},
		{
			name: "Minute Out Of Range",
			req:  models.CreateBookingRequest{Date: "2026-09-02", Time: "9:60", FromPlace: "Main Gate", Destination: "Hostel"},
			kind: KindValidation,
		},
		{
			name: "Missing Route",
			req:  models.CreateBookingRequest{Date: "2026-09-02", Time: "09:00", FromPlace: "", Destination: "Hostel"},
			kind: KindValidation,
		},
		{
			name: "Same From And Destination",
			req:  models.CreateBookingRequest{Date: "2026-09-02", Time: "09:00", FromPlace: "Hostel", Destination: "Hostel"},
			kind: KindValidation,
		},
		{
			name: "Past Schedule",
			req:  models.CreateBookingRequest{Date: "2026-09-01", Time: "07:30", FromPlace: "Main Gate", Destination: "Hostel"},
			kind: KindValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateBooking(student, tc.req, ClientInfo{})
			require.Error(t, err)
			svcErr, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, tc.kind, svcErr.Kind)
		})
	}

	t.Run("Watchman Cannot Book", func(t *testing.T) {
		_, err := svc.CreateBooking(activeWatchman(), models.CreateBookingRequest{
			Date: "2026-09-02", Time: "09:00", FromPlace: "Main Gate", Destination: "Hostel",
		}, ClientInfo{})
		require.Error(t, err)
		svcErr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindForbidden, svcErr.Kind)
	})

	t.Run("Inactive Account Cannot Book", func(t *testing.T) {
		student := activeStudent()
		student.Status = models.UserStatusInactive
		_, err := svc.CreateBooking(student, models.CreateBookingRequest{
			Date: "2026-09-02", Time: "09:00", FromPlace: "Main Gate", Destination: "Hostel",
		}, ClientInfo{})
		require.Error(t, err)
		svcErr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindForbidden, svcErr.Kind)
	})
}

func TestCreateBooking_SlotConflict(t *testing.T) {
	svc, mock, cleanup := newTestBookingService(t)
	defer cleanup()

	svc.now = func() time.Time { return time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC) }
	student := activeStudent()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC), "09:00", "Main Gate", "Hostel", nil).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := svc.CreateBooking(student, models.CreateBookingRequest{
		Date: "2026-09-02", Time: "09:00", FromPlace: "Main Gate", Destination: "Hostel",
	}, ClientInfo{})
	require.Error(t, err)
	svcErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindConflict, svcErr.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBooking_Success(t *testing.T) {
	svc, mock, cleanup := newTestBookingService(t)
	defer cleanup()

	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	student := activeStudent()

	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`INSERT INTO bookings`).
		WithArgs(
			sqlmock.AnyArg(), student.ID, time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC),
			"09:00", "Main Gate", "Hostel", models.BookingStatusPending,
		).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectQuery(`INSERT INTO booking_actions`).
		WithArgs(sqlmock.AnyArg(), models.ActionCreated, student.ID, now, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	booking, err := svc.CreateBooking(student, models.CreateBookingRequest{
		Date: "2026-09-02", Time: "9:00", FromPlace: "Main Gate", Destination: "Hostel",
	}, ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, booking.Status)
	// "9:00" is normalized before storage
	assert.Equal(t, "09:00", booking.Time)
	require.NotNil(t, booking.User)
	assert.Equal(t, student.Name, booking.User.Name)
	require.Len(t, booking.ActionHistory, 1)
	assert.Equal(t, models.ActionCreated, booking.ActionHistory[0].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func bookingRowWithStatus(bookingID, userID uuid.UUID, status string) []driver.Value {
	return []driver.Value{
		bookingID, userID, time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC), "09:00", "Main Gate", "Hostel",
		status, nil, nil,
		nil, nil, nil, nil,
		time.Now(),
		"Asha", "asha@bitsathy.ac.in", "7376211CS239",
		nil, nil,
	}
}

func expectGetByID(mock sqlmock.Sqlmock, bookingID, userID uuid.UUID, status string) {
	mock.ExpectQuery(`SELECT (.+) FROM bookings b`).
		WithArgs(bookingID).
		WillReturnRows(sqlmock.NewRows(bookingRowColumns).
			AddRow(bookingRowWithStatus(bookingID, userID, status)...))
	mock.ExpectQuery(`SELECT (.+) FROM booking_actions`).
		WithArgs(bookingID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "booking_id", "action", "performed_by", "performed_at", "details",
		}))
}

func TestChangeStatus_ApprovesPendingBooking(t *testing.T) {
	svc, mock, cleanup := newTestBookingService(t)
	defer cleanup()

	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	watchman := activeWatchman()
	bookingID := uuid.New()
	ownerID := uuid.New()

	expectGetByID(mock, bookingID, ownerID, "pending")

	mock.ExpectExec(`UPDATE bookings`).
		WithArgs(
			bookingID, models.BookingStatusPending, models.BookingStatusApproved,
			watchman.ID, now, sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(`INSERT INTO booking_actions`).
		WithArgs(bookingID, models.ActionApproved, watchman.ID, now, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))

	expectGetByID(mock, bookingID, ownerID, "approved")

	booking, err := svc.ChangeStatus(bookingID, watchman, models.UpdateBookingStatusRequest{
		Status: models.BookingStatusApproved,
	}, ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusApproved, booking.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeStatus_StaleStatusFailsAsInvalidTransition(t *testing.T) {
	svc, mock, cleanup := newTestBookingService(t)
	defer cleanup()

	svc.now = func() time.Time { return time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC) }

	watchman := activeWatchman()
	bookingID := uuid.New()

	expectGetByID(mock, bookingID, uuid.New(), "pending")

	// Another actor moved the booking between read and write
	mock.ExpectExec(`UPDATE bookings`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := svc.ChangeStatus(bookingID, watchman, models.UpdateBookingStatusRequest{
		Status: models.BookingStatusApproved,
	}, ClientInfo{})
	require.Error(t, err)
	svcErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindInvalidTransition, svcErr.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeStatus_StudentForbidden(t *testing.T) {
	svc, _, cleanup := newTestBookingService(t)
	defer cleanup()

	_, err := svc.ChangeStatus(uuid.New(), activeStudent(), models.UpdateBookingStatusRequest{
		Status: models.BookingStatusApproved,
	}, ClientInfo{})
	require.Error(t, err)
	svcErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindForbidden, svcErr.Kind)
}

func TestChangeStatus_TerminalBookingRejected(t *testing.T) {
	svc, mock, cleanup := newTestBookingService(t)
	defer cleanup()

	svc.now = func() time.Time { return time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC) }

	bookingID := uuid.New()
	expectGetByID(mock, bookingID, uuid.New(), "completed")

	_, err := svc.ChangeStatus(bookingID, activeWatchman(), models.UpdateBookingStatusRequest{
		Status: models.BookingStatusRejected,
	}, ClientInfo{})
	require.Error(t, err)
	svcErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindInvalidTransition, svcErr.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func activeAdmin() *models.User {
	return &models.User{
		ID:     uuid.New(),
		Name:   "Priya",
		Email:  "priya@bitsathy.ac.in",
		Role:   models.RoleAdmin,
		Status: models.UserStatusActive,
	}
}

func TestEditBooking(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	t.Run("Non Admin Forbidden", func(t *testing.T) {
		svc, _, cleanup := newTestBookingService(t)
		defer cleanup()

		_, err := svc.EditBooking(uuid.New(), activeWatchman(), models.EditBookingRequest{Time: "10:00"}, ClientInfo{})
		require.Error(t, err)
		svcErr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindForbidden, svcErr.Kind)
	})

	t.Run("Terminal Booking Cannot Be Edited", func(t *testing.T) {
		svc, mock, cleanup := newTestBookingService(t)
		defer cleanup()

		bookingID := uuid.New()
		expectGetByID(mock, bookingID, uuid.New(), "completed")

		_, err := svc.EditBooking(bookingID, activeAdmin(), models.EditBookingRequest{Time: "10:00"}, ClientInfo{})
		require.Error(t, err)
		svcErr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindInvalidTransition, svcErr.Kind)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Route Collision Fails Before Persisting", func(t *testing.T) {
		svc, mock, cleanup := newTestBookingService(t)
		defer cleanup()

		bookingID := uuid.New()
		expectGetByID(mock, bookingID, uuid.New(), "pending")

		// fromPlace set to the stored destination; nothing may be written
		_, err := svc.EditBooking(bookingID, activeAdmin(), models.EditBookingRequest{FromPlace: "Hostel"}, ClientInfo{})
		require.Error(t, err)
		svcErr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindValidation, svcErr.Kind)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unchanged Payload Is A No Op", func(t *testing.T) {
		svc, mock, cleanup := newTestBookingService(t)
		defer cleanup()

		bookingID := uuid.New()
		expectGetByID(mock, bookingID, uuid.New(), "pending")

		// The client prefills the form with current values; re-sending them
		// must not conflict with the booking's own slot or write anything
		booking, err := svc.EditBooking(bookingID, activeAdmin(), models.EditBookingRequest{
			Date:        "2026-09-02",
			Time:        "09:00",
			FromPlace:   "Main Gate",
			Destination: "Hostel",
		}, ClientInfo{})
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusPending, booking.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Reschedule Checks Slot Excluding Itself", func(t *testing.T) {
		svc, mock, cleanup := newTestBookingService(t)
		defer cleanup()
		svc.now = func() time.Time { return now }

		admin := activeAdmin()
		bookingID := uuid.New()
		expectGetByID(mock, bookingID, uuid.New(), "pending")

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC), "10:00", "Main Gate", "Hostel", bookingID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID, time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC), "10:00", "Main Gate", "Hostel", nil).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO booking_actions`).
			WithArgs(bookingID, models.ActionEdited, admin.ID, now, "Booking edited: time 09:00 -> 10:00").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

		expectGetByID(mock, bookingID, uuid.New(), "pending")

		_, err := svc.EditBooking(bookingID, admin, models.EditBookingRequest{Time: "10:00"}, ClientInfo{})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Conflict With Another Booking", func(t *testing.T) {
		svc, mock, cleanup := newTestBookingService(t)
		defer cleanup()

		bookingID := uuid.New()
		expectGetByID(mock, bookingID, uuid.New(), "pending")

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC), "10:00", "Main Gate", "Hostel", bookingID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := svc.EditBooking(bookingID, activeAdmin(), models.EditBookingRequest{Time: "10:00"}, ClientInfo{})
		require.Error(t, err)
		svcErr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindConflict, svcErr.Kind)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetBooking_Visibility(t *testing.T) {
	t.Run("Watchman Never Sees Rejected Bookings", func(t *testing.T) {
		svc, mock, cleanup := newTestBookingService(t)
		defer cleanup()

		bookingID := uuid.New()
		expectGetByID(mock, bookingID, uuid.New(), "rejected")

		_, err := svc.GetBooking(bookingID, activeWatchman())
		require.Error(t, err)
		svcErr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindNotFound, svcErr.Kind)
	})

	t.Run("Student Sees Only Own Bookings", func(t *testing.T) {
		svc, mock, cleanup := newTestBookingService(t)
		defer cleanup()

		bookingID := uuid.New()
		expectGetByID(mock, bookingID, uuid.New(), "pending")

		_, err := svc.GetBooking(bookingID, activeStudent())
		require.Error(t, err)
		svcErr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindNotFound, svcErr.Kind)
	})

	t.Run("Owner Sees Own Booking", func(t *testing.T) {
		svc, mock, cleanup := newTestBookingService(t)
		defer cleanup()

		student := activeStudent()
		bookingID := uuid.New()
		expectGetByID(mock, bookingID, student.ID, "rejected")

		booking, err := svc.GetBooking(bookingID, student)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusRejected, booking.Status)
	})
}
