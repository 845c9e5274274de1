package services

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrTimeChangeNotAllowed   = errors.New("time change not allowed without override")
	ErrInsufficientCredit     = errors.New("insufficient credit")
	ErrCapacityFull           = errors.New("session capacity is full")
	ErrDuplicateParticipant   = errors.New("client already attached to session")
	ErrInvalidAdjustment      = errors.New("adjustment would violate package limits")
	ErrCrossStudio            = errors.New("resource belongs to a different studio")
)

// Conflict reasons, also surfaced verbatim in API responses.
const (
	ConflictReasonOutsideHours = "outside_operating_hours"
	ConflictReasonRoomBooked   = "room_booked"
	ConflictReasonCoachBooked  = "coach_booked"
	ConflictReasonCoachTimeOff = "coach_time_off"
	ConflictReasonClientBooked = "client_booked"
)

// ConflictError identifies the first resource that blocks a proposed
// window. Exactly one of ConflictingSessionID / TimeOffID is set except
// for operating-hours violations, where both are zero.
type ConflictError struct {
	Resource             string
	ResourceID           int64
	ConflictingSessionID int64
	TimeOffID            int64
	Reason               string
}

func (e *ConflictError) Error() string {
	switch {
	case e.TimeOffID != 0:
		return fmt.Sprintf("%s %d conflicts with time off %d", e.Resource, e.ResourceID, e.TimeOffID)
	case e.ConflictingSessionID != 0:
		return fmt.Sprintf("%s %d conflicts with session %d", e.Resource, e.ResourceID, e.ConflictingSessionID)
	default:
		return fmt.Sprintf("%s %d: %s", e.Resource, e.ResourceID, e.Reason)
	}
}
