package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/campustransit/vehicle-booking-backend/internal/database"
	"github.com/campustransit/vehicle-booking-backend/internal/models"
)

// TimeoutRejectionReason is the reason recorded when the sweeper rejects a
// booking that was still pending at its scheduled time.
const TimeoutRejectionReason = "Time Out - No approval before scheduled time"

// transitions is the complete set of permitted lifecycle transitions, keyed
// by (from, to). A pair absent from this table is invalid, including
// self-transitions and anything out of a terminal status.
var transitions = map[models.BookingStatus]map[models.BookingStatus]models.ActionType{
	models.BookingStatusPending: {
		models.BookingStatusApproved: models.ActionApproved,
		models.BookingStatusRejected: models.ActionRejected,
	},
	models.BookingStatusApproved: {
		models.BookingStatusInProgress: models.ActionDispatched,
		models.BookingStatusRejected:   models.ActionRejected,
	},
	models.BookingStatusInProgress: {
		models.BookingStatusCompleted: models.ActionCompleted,
		models.BookingStatusRejected:  models.ActionRejected,
	},
}

// TransitionRequest describes one requested lifecycle transition.
// An invalid Actor means the system itself is acting (timeout sweeper).
type TransitionRequest struct {
	From            models.BookingStatus
	To              models.BookingStatus
	Actor           uuid.NullUUID
	RejectionType   models.RejectionType
	RejectionReason string
	Now             time.Time
}

// TransitionPlan is the validated outcome of a transition request: the column
// stamps to apply and the history entry to append once the store confirms the
// status flip.
type TransitionPlan struct {
	Update database.StatusUpdate
	Action models.ActionType
}

// PlanTransition validates a lifecycle transition and computes the stamps it
// carries. It is pure: nothing is written here, and the conditional store
// update decides afterwards whether the plan still applies.
func PlanTransition(req TransitionRequest) (*TransitionPlan, error) {
	if !req.To.IsValid() {
		return nil, NewValidationError(
			fmt.Sprintf("unknown booking status %q", req.To),
			map[string]string{"status": string(req.To)},
		)
	}

	if req.From.IsTerminal() {
		return nil, NewInvalidTransitionError(
			fmt.Sprintf("booking is already %s and cannot change status", req.From),
			map[string]string{"from": string(req.From), "to": string(req.To)},
		)
	}

	action, ok := transitions[req.From][req.To]
	if !ok {
		return nil, NewInvalidTransitionError(
			fmt.Sprintf("cannot change booking from %s to %s", req.From, req.To),
			map[string]string{"from": string(req.From), "to": string(req.To)},
		)
	}

	plan := &TransitionPlan{
		Update: database.StatusUpdate{Status: req.To},
		Action: action,
	}

	switch req.To {
	case models.BookingStatusApproved:
		if !req.Actor.Valid {
			return nil, NewValidationError("approval requires an approving user", nil)
		}
		plan.Update.ApprovedBy = req.Actor
		plan.Update.ApprovalTime = models.Time(req.Now)

	case models.BookingStatusInProgress:
		plan.Update.DispatchTime = models.Time(req.Now)

	case models.BookingStatusCompleted:
		plan.Update.CompletionTime = models.Time(req.Now)

	case models.BookingStatusRejected:
		switch req.RejectionType {
		case models.RejectionManual:
			if !req.Actor.Valid {
				return nil, NewValidationError("manual rejection requires a rejecting user", nil)
			}
			reason := req.RejectionReason
			if reason == "" {
				reason = "Rejected"
			}
			plan.Update.RejectionReason = models.String(reason)
			plan.Update.RejectionType = models.String(string(models.RejectionManual))
		case models.RejectionTimeout:
			plan.Update.RejectionReason = models.String(TimeoutRejectionReason)
			plan.Update.RejectionType = models.String(string(models.RejectionTimeout))
		default:
			return nil, NewValidationError(
				fmt.Sprintf("unknown rejection type %q", req.RejectionType),
				map[string]string{"rejectionType": string(req.RejectionType)},
			)
		}
	}

	return plan, nil
}

// HistoryEntry builds the append-only action record for an applied plan
func (p *TransitionPlan) HistoryEntry(bookingID uuid.UUID, actor uuid.NullUUID, at time.Time, details string) *models.BookingAction {
	return &models.BookingAction{
		BookingID:   bookingID,
		Action:      p.Action,
		PerformedBy: actor,
		PerformedAt: at,
		Details:     details,
	}
}
