package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/d-krstic/StudioOpsBack/internal/models"
)

type bookingIndex interface {
	FirstRoomOverlap(ctx context.Context, tenantID, roomID int64, startsAt, endsAt time.Time, excludeSessionID int64) (int64, error)
	FirstCoachOverlap(ctx context.Context, tenantID, coachID int64, startsAt, endsAt time.Time, excludeSessionID int64) (int64, error)
	FirstClientOverlap(ctx context.Context, tenantID, clientID int64, startsAt, endsAt time.Time, excludeSessionID int64) (int64, error)
}

type timeOffReader interface {
	FirstApprovedOverlap(ctx context.Context, coachID int64, startsAt, endsAt time.Time) (int64, error)
}

type hoursReader interface {
	GetStudioHours(ctx context.Context, studioID int64, weekday time.Weekday) (*models.StudioHours, error)
}

// ProposedSession is the slice of a booking request the conflict
// detector needs. ExcludeSessionID is non-zero only for reschedules.
type ProposedSession struct {
	TenantID         int64
	StudioID         int64
	RoomID           int64
	CoachID          int64
	ClientID         *int64
	StartsAt         time.Time
	EndsAt           time.Time
	ExcludeSessionID int64
}

// AvailabilityService answers whether a proposed window is legal given
// existing bookings, approved coach time-off, and studio hours. It is
// read-only; writes happen in the booking service, which re-runs these
// checks inside the booking transaction.
type AvailabilityService struct {
	sessions bookingIndex
	timeOff  timeOffReader
	hours    hoursReader
}

func NewAvailabilityService(
	sessions bookingIndex,
	timeOff timeOffReader,
	hours hoursReader,
) *AvailabilityService {
	return &AvailabilityService{
		sessions: sessions,
		timeOff:  timeOff,
		hours:    hours,
	}
}

// CheckConflict returns nil when the proposed window is free, or the
// first blocking *ConflictError. Check order is fixed so failures are
// deterministic: operating hours, room, coach bookings, coach time-off,
// then client. Group-session participants are checked when they join,
// not here.
func (s *AvailabilityService) CheckConflict(ctx context.Context, proposed ProposedSession) error {
	if err := s.checkOperatingHours(ctx, proposed); err != nil {
		return err
	}

	conflictingID, err := s.sessions.FirstRoomOverlap(
		ctx,
		proposed.TenantID,
		proposed.RoomID,
		proposed.StartsAt,
		proposed.EndsAt,
		proposed.ExcludeSessionID,
	)
	if err != nil {
		return err
	}
	if conflictingID != 0 {
		return &ConflictError{
			Resource:             "room",
			ResourceID:           proposed.RoomID,
			ConflictingSessionID: conflictingID,
			Reason:               ConflictReasonRoomBooked,
		}
	}

	conflictingID, err = s.sessions.FirstCoachOverlap(
		ctx,
		proposed.TenantID,
		proposed.CoachID,
		proposed.StartsAt,
		proposed.EndsAt,
		proposed.ExcludeSessionID,
	)
	if err != nil {
		return err
	}
	if conflictingID != 0 {
		return &ConflictError{
			Resource:             "coach",
			ResourceID:           proposed.CoachID,
			ConflictingSessionID: conflictingID,
			Reason:               ConflictReasonCoachBooked,
		}
	}

	timeOffID, err := s.timeOff.FirstApprovedOverlap(ctx, proposed.CoachID, proposed.StartsAt, proposed.EndsAt)
	if err != nil {
		return err
	}
	if timeOffID != 0 {
		return &ConflictError{
			Resource:   "coach",
			ResourceID: proposed.CoachID,
			TimeOffID:  timeOffID,
			Reason:     ConflictReasonCoachTimeOff,
		}
	}

	if proposed.ClientID != nil {
		conflictingID, err = s.sessions.FirstClientOverlap(
			ctx,
			proposed.TenantID,
			*proposed.ClientID,
			proposed.StartsAt,
			proposed.EndsAt,
			proposed.ExcludeSessionID,
		)
		if err != nil {
			return err
		}
		if conflictingID != 0 {
			return &ConflictError{
				Resource:             "client",
				ResourceID:           *proposed.ClientID,
				ConflictingSessionID: conflictingID,
				Reason:               ConflictReasonClientBooked,
			}
		}
	}

	return nil
}

// ClientFree reports whether the client has no booking that intersects
// the window; used when a client joins an existing group session.
func (s *AvailabilityService) ClientFree(
	ctx context.Context,
	tenantID int64,
	clientID int64,
	startsAt time.Time,
	endsAt time.Time,
) error {
	conflictingID, err := s.sessions.FirstClientOverlap(ctx, tenantID, clientID, startsAt, endsAt, 0)
	if err != nil {
		return err
	}
	if conflictingID != 0 {
		return &ConflictError{
			Resource:             "client",
			ResourceID:           clientID,
			ConflictingSessionID: conflictingID,
			Reason:               ConflictReasonClientBooked,
		}
	}
	return nil
}

func (s *AvailabilityService) checkOperatingHours(ctx context.Context, proposed ProposedSession) error {
	outside := &ConflictError{
		Resource:   "studio",
		ResourceID: proposed.StudioID,
		Reason:     ConflictReasonOutsideHours,
	}

	hours, err := s.hours.GetStudioHours(ctx, proposed.StudioID, proposed.StartsAt.Weekday())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No hours row means the studio is closed that weekday.
			return outside
		}
		return err
	}

	// Minutes since midnight of the session's start day. A window that
	// runs past midnight lands beyond closing and is rejected here too.
	startMinutes := proposed.StartsAt.Hour()*60 + proposed.StartsAt.Minute()
	endMinutes := startMinutes + int(proposed.EndsAt.Sub(proposed.StartsAt)/time.Minute)
	if startMinutes < hours.OpensAt || endMinutes > hours.ClosesAt {
		return outside
	}
	return nil
}
