package services

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
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
)

var bookingRowColumns = []string{
	"id", "user_id", "date", "time", "from_place", "destination",
	"status", "rejection_reason", "rejection_type",
	"approved_by", "approval_time", "dispatch_time", "completion_time",
	"created_at",
	"name", "email", "reg_number",
	"a_name", "a_email",
}

func pendingRow(bookingID, userID uuid.UUID, date time.Time, timeStr string) []driver.Value {
	return []driver.Value{
		bookingID, userID, date, timeStr, "Main Gate", "Hostel",
		"pending", nil, nil,
		nil, nil, nil, nil,
		time.Now(),
		"Asha", "asha@bitsathy.ac.in", "7376211CS239",
		nil, nil,
	}
}

func newTestSweeper(t *testing.T) (*TimeoutSweeper, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	repo := database.NewBookingRepository(&mockDatabase{db: db})
	auditRepo := database.NewAuditLogRepository(&mockDatabase{db: db})
	audit := NewAuditService(auditRepo, logger, false)

	sweeper := NewTimeoutSweeper(repo, audit, logger, time.Minute, time.UTC)
	return sweeper, mock, func() { db.Close() }
}

func TestSweeperRejectsPastPendingBooking(t *testing.T) {
	sweeper, mock, cleanup := newTestSweeper(t)
	defer cleanup()

	// Sweep at noon, booking was scheduled for 09:00 the same day
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return now }

	bookingID := uuid.New()
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(bookingRowColumns)
	rows.AddRow(pendingRow(bookingID, uuid.New(), day, "09:00")...)
	mock.ExpectQuery(`SELECT (.+) FROM bookings b`).WillReturnRows(rows)

	mock.ExpectExec(`UPDATE bookings`).
		WithArgs(
			bookingID, models.BookingStatusPending, models.BookingStatusRejected,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			TimeoutRejectionReason, string(models.RejectionTimeout),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(`INSERT INTO booking_actions`).
		WithArgs(bookingID, models.ActionRejected, nil, sqlmock.AnyArg(), TimeoutRejectionReason).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	rejected, err := sweeper.RunOnce()
	require.NoError(t, err)
	assert.Equal(t, 1, rejected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweeperLeavesFutureBookingsAlone(t *testing.T) {
	sweeper, mock, cleanup := newTestSweeper(t)
	defer cleanup()

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return now }

	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(bookingRowColumns)
	rows.AddRow(pendingRow(uuid.New(), uuid.New(), day, "15:30")...)
	mock.ExpectQuery(`SELECT (.+) FROM bookings b`).WillReturnRows(rows)

	rejected, err := sweeper.RunOnce()
	require.NoError(t, err)
	assert.Equal(t, 0, rejected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweeperSkipsBookingExactlyAtScheduledTime(t *testing.T) {
	sweeper, mock, cleanup := newTestSweeper(t)
	defer cleanup()

	// now == scheduled instant: not yet overdue
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return now }

	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(bookingRowColumns)
	rows.AddRow(pendingRow(uuid.New(), uuid.New(), day, "09:00")...)
	mock.ExpectQuery(`SELECT (.+) FROM bookings b`).WillReturnRows(rows)

	rejected, err := sweeper.RunOnce()
	require.NoError(t, err)
	assert.Equal(t, 0, rejected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweeperIgnoresBookingApprovedMidSweep(t *testing.T) {
	sweeper, mock, cleanup := newTestSweeper(t)
	defer cleanup()

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return now }

	bookingID := uuid.New()
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(bookingRowColumns)
	rows.AddRow(pendingRow(bookingID, uuid.New(), day, "09:00")...)
	mock.ExpectQuery(`SELECT (.+) FROM bookings b`).WillReturnRows(rows)

	// A watchman approved it between the list and the update: zero rows hit,
	// so no history entry is written
	mock.ExpectExec(`UPDATE bookings`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rejected, err := sweeper.RunOnce()
	require.NoError(t, err)
	assert.Equal(t, 0, rejected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweeperContinuesPastFailingRecord(t *testing.T) {
	sweeper, mock, cleanup := newTestSweeper(t)
	defer cleanup()

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return now }

	failingID := uuid.New()
	okID := uuid.New()
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(bookingRowColumns)
	rows.AddRow(pendingRow(failingID, uuid.New(), day, "08:00")...)
	rows.AddRow(pendingRow(okID, uuid.New(), day, "09:00")...)
	mock.ExpectQuery(`SELECT (.+) FROM bookings b`).WillReturnRows(rows)

	mock.ExpectExec(`UPDATE bookings`).
		WillReturnError(fmt.Errorf("database error"))

	mock.ExpectExec(`UPDATE bookings`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO booking_actions`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(8)))

	rejected, err := sweeper.RunOnce()
	require.NoError(t, err)
	assert.Equal(t, 1, rejected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweeperRunOnceIsIdempotent(t *testing.T) {
	sweeper, mock, cleanup := newTestSweeper(t)
	defer cleanup()

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return now }

	// Second pass after everything was already rejected sees no pending rows
	mock.ExpectQuery(`SELECT (.+) FROM bookings b`).
		WillReturnRows(sqlmock.NewRows(bookingRowColumns))

	rejected, err := sweeper.RunOnce()
	require.NoError(t, err)
	assert.Equal(t, 0, rejected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweeperStartStop(t *testing.T) {
	sweeper, _, cleanup := newTestSweeper(t)
	defer cleanup()

	sweeper.interval = time.Hour // never ticks during the test
	sweeper.Start()
	sweeper.Start() // second Start is a no-op
	sweeper.Stop()
	sweeper.Stop() // second Stop is a no-op
}

// mockDatabase wraps a sqlmock connection behind the database.DB interface
type mockDatabase struct {
	db *sql.DB
}

func (m *mockDatabase) Get(dest interface{}, query string, args ...interface{}) error {
	return fmt.Errorf("Get not implemented in mock")
}

func (m *mockDatabase) Select(dest interface{}, query string, args ...interface{}) error {
	return fmt.Errorf("Select not implemented in mock")
}

func (m *mockDatabase) Exec(query string, args ...interface{}) (sql.Result, error) {
	return m.db.Exec(query, args...)
}

func (m *mockDatabase) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return m.db.Query(query, args...)
}

func (m *mockDatabase) QueryRow(query string, args ...interface{}) *sql.Row {
	return m.db.QueryRow(query, args...)
}

func (m *mockDatabase) Close() error {
	return m.db.Close()
}

func (m *mockDatabase) Ping() error {
	return m.db.Ping()
}
