package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SessionStatusScheduled  = "scheduled"
	SessionStatusInProgress = "in_progress"
	SessionStatusCompleted  = "completed"
	SessionStatusCancelled  = "cancelled"
)

const (
	SessionKindIndividual = "individual"
	SessionKindGroup      = "group"
)

type Session struct {
	ID            int64      `json:"id"`
	TenantID      int64      `json:"tenant_id"`
	StudioID      int64      `json:"studio_id"`
	RoomID        int64      `json:"room_id"`
	CoachID       int64      `json:"coach_id"`
	ClientID      *int64     `json:"client_id,omitempty"`
	StartsAt      time.Time  `json:"starts_at"`
	EndsAt        time.Time  `json:"ends_at"`
	Status        string     `json:"status"`
	Kind          string     `json:"kind"`
	Capacity      int        `json:"capacity,omitempty"`
	SeriesID      *int64     `json:"series_id,omitempty"`
	ReservationID *uuid.UUID `json:"reservation_id,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type SessionParticipant struct {
	ID            int64     `json:"id"`
	SessionID     int64     `json:"session_id"`
	ClientID      int64     `json:"client_id"`
	ReservationID uuid.UUID `json:"reservation_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type SessionDetail struct {
	Session
	Participants []SessionParticipant `json:"participants,omitempty"`
}

// Overlaps reports whether the half-open windows [aStart,aEnd) and
// [bStart,bEnd) intersect. Touching endpoints are not an overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
