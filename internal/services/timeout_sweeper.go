package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/campustransit/vehicle-booking-backend/internal/database"
	"github.com/campustransit/vehicle-booking-backend/internal/models"
)

// TimeoutSweeper periodically rejects bookings still pending at their
// scheduled time. It acts as the system: history entries it appends carry no
// performing user.
type TimeoutSweeper struct {
	bookings *database.BookingRepository
	audit    *AuditService
	logger   *logrus.Logger
	interval time.Duration
	location *time.Location

	// now is swapped in tests
	now func() time.Time

	mu      sync.Mutex
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

// NewTimeoutSweeper creates a new timeout sweeper
func NewTimeoutSweeper(
	bookings *database.BookingRepository,
	audit *AuditService,
	logger *logrus.Logger,
	interval time.Duration,
	location *time.Location,
) *TimeoutSweeper {
	return &TimeoutSweeper{
		bookings: bookings,
		audit:    audit,
		logger:   logger,
		interval: interval,
		location: location,
		now:      time.Now,
	}
}

// Start launches the background sweep loop. Calling Start on a running
// sweeper is a no-op.
func (s *TimeoutSweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go s.loop(s.stopCh)

	s.logger.WithField("interval", s.interval).Info("Timeout sweeper started")
}

// Stop terminates the sweep loop and waits for an in-flight pass to finish
func (s *TimeoutSweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Timeout sweeper stopped")
}

func (s *TimeoutSweeper) loop(stopCh chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunOnce(); err != nil {
				s.logger.WithError(err).Error("Timeout sweep pass failed")
			}
		case <-stopCh:
			return
		}
	}
}

// RunOnce performs a single sweep pass and returns the number of bookings
// rejected. One failing record does not stop the pass. Running a pass twice
// is harmless: the conditional status update only fires for bookings still
// pending.
func (s *TimeoutSweeper) RunOnce() (int, error) {
	pending, err := s.bookings.ListPending()
	if err != nil {
		return 0, fmt.Errorf("failed to list pending bookings: %w", err)
	}

	nowAt := s.now()
	rejected := 0

	for i := range pending {
		booking := &pending[i]

		scheduledAt, err := booking.ScheduledAt(s.location)
		if err != nil {
			s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("Skipping booking with malformed schedule")
			continue
		}
		if !nowAt.After(scheduledAt) {
			continue
		}

		if err := s.reject(booking); err != nil {
			s.logger.WithError(err).WithField("booking_id", booking.ID).Error("Failed to reject timed-out booking")
			continue
		}
		rejected++
	}

	if rejected > 0 {
		s.logger.WithFields(logrus.Fields{
			"rejected": rejected,
			"scanned":  len(pending),
		}).Info("Timeout sweep rejected stale bookings")
	}

	return rejected, nil
}

func (s *TimeoutSweeper) reject(booking *models.Booking) error {
	plan, err := PlanTransition(TransitionRequest{
		From:          models.BookingStatusPending,
		To:            models.BookingStatusRejected,
		RejectionType: models.RejectionTimeout,
		Now:           s.now(),
	})
	if err != nil {
		return err
	}

	applied, err := s.bookings.UpdateStatusFrom(booking.ID, models.BookingStatusPending, plan.Update)
	if err != nil {
		return err
	}
	if !applied {
		// A watchman got there first, nothing to record
		return nil
	}

	entry := plan.HistoryEntry(booking.ID, uuid.NullUUID{}, s.now(), TimeoutRejectionReason)
	if err := s.bookings.AppendAction(entry); err != nil {
		return err
	}

	s.audit.Record(&models.AuditLog{
		Action:  models.AuditBookingRejected,
		UserID:  models.UUID(booking.UserID),
		Details: models.String(fmt.Sprintf("booking %s auto-rejected: %s", booking.ID, TimeoutRejectionReason)),
	})

	return nil
}
