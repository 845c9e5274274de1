package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/d-krstic/StudioOpsBack/internal/models"
)

type stubBookingIndex struct {
	roomHit   int64
	coachHit  int64
	clientHit int64

	lastExclude int64
}

func (s *stubBookingIndex) FirstRoomOverlap(_ context.Context, _, _ int64, _, _ time.Time, excludeSessionID int64) (int64, error) {
	s.lastExclude = excludeSessionID
	return s.roomHit, nil
}

func (s *stubBookingIndex) FirstCoachOverlap(_ context.Context, _, _ int64, _, _ time.Time, excludeSessionID int64) (int64, error) {
	s.lastExclude = excludeSessionID
	return s.coachHit, nil
}

func (s *stubBookingIndex) FirstClientOverlap(_ context.Context, _, _ int64, _, _ time.Time, excludeSessionID int64) (int64, error) {
	s.lastExclude = excludeSessionID
	return s.clientHit, nil
}

type stubTimeOff struct {
	windowID int64
}

func (s *stubTimeOff) FirstApprovedOverlap(_ context.Context, _ int64, _, _ time.Time) (int64, error) {
	return s.windowID, nil
}

type stubHours struct {
	opensAt  int
	closesAt int
	closed   bool
}

func (s *stubHours) GetStudioHours(_ context.Context, studioID int64, _ time.Weekday) (*models.StudioHours, error) {
	if s.closed {
		return nil, pgx.ErrNoRows
	}
	return &models.StudioHours{
		StudioID: studioID,
		OpensAt:  s.opensAt,
		ClosesAt: s.closesAt,
	}, nil
}

func openAllDay() *stubHours {
	return &stubHours{opensAt: 0, closesAt: 1440}
}

func proposedAt(hour int) ProposedSession {
	clientID := int64(7)
	start := time.Date(2026, 3, 2, hour, 0, 0, 0, time.UTC)
	return ProposedSession{
		TenantID: 1,
		StudioID: 10,
		RoomID:   20,
		CoachID:  30,
		ClientID: &clientID,
		StartsAt: start,
		EndsAt:   start.Add(time.Hour),
	}
}

func TestCheckConflictFreeWindow(t *testing.T) {
	service := NewAvailabilityService(&stubBookingIndex{}, &stubTimeOff{}, openAllDay())

	if err := service.CheckConflict(context.Background(), proposedAt(10)); err != nil {
		t.Fatalf("expected free window, got %v", err)
	}
}

func TestCheckConflictRoomWinsOverCoach(t *testing.T) {
	// Both the room and the coach are busy; the room check runs first so
	// the room conflict is the one reported.
	service := NewAvailabilityService(
		&stubBookingIndex{roomHit: 101, coachHit: 102},
		&stubTimeOff{windowID: 55},
		openAllDay(),
	)

	err := service.CheckConflict(context.Background(), proposedAt(10))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Resource != "room" || conflict.ConflictingSessionID != 101 {
		t.Fatalf("expected room conflict with session 101, got %+v", conflict)
	}
	if conflict.Reason != ConflictReasonRoomBooked {
		t.Fatalf("expected reason %q, got %q", ConflictReasonRoomBooked, conflict.Reason)
	}
}

func TestCheckConflictCoachBookingBeforeTimeOff(t *testing.T) {
	service := NewAvailabilityService(
		&stubBookingIndex{coachHit: 102},
		&stubTimeOff{windowID: 55},
		openAllDay(),
	)

	err := service.CheckConflict(context.Background(), proposedAt(10))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Reason != ConflictReasonCoachBooked || conflict.ConflictingSessionID != 102 {
		t.Fatalf("expected coach booking conflict, got %+v", conflict)
	}
}

func TestCheckConflictCoachTimeOff(t *testing.T) {
	service := NewAvailabilityService(
		&stubBookingIndex{},
		&stubTimeOff{windowID: 55},
		openAllDay(),
	)

	err := service.CheckConflict(context.Background(), proposedAt(10))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Reason != ConflictReasonCoachTimeOff || conflict.TimeOffID != 55 {
		t.Fatalf("expected time-off conflict with window 55, got %+v", conflict)
	}
}

func TestCheckConflictClientBusy(t *testing.T) {
	service := NewAvailabilityService(
		&stubBookingIndex{clientHit: 103},
		&stubTimeOff{},
		openAllDay(),
	)

	err := service.CheckConflict(context.Background(), proposedAt(10))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Resource != "client" || conflict.ConflictingSessionID != 103 {
		t.Fatalf("expected client conflict with session 103, got %+v", conflict)
	}
}

func TestCheckConflictSkipsClientCheckWithoutClient(t *testing.T) {
	service := NewAvailabilityService(
		&stubBookingIndex{clientHit: 103},
		&stubTimeOff{},
		openAllDay(),
	)

	proposed := proposedAt(10)
	proposed.ClientID = nil
	if err := service.CheckConflict(context.Background(), proposed); err != nil {
		t.Fatalf("expected group shell to pass without client check, got %v", err)
	}
}

func TestCheckConflictForwardsExcludeID(t *testing.T) {
	index := &stubBookingIndex{}
	service := NewAvailabilityService(index, &stubTimeOff{}, openAllDay())

	proposed := proposedAt(10)
	proposed.ExcludeSessionID = 42
	if err := service.CheckConflict(context.Background(), proposed); err != nil {
		t.Fatalf("CheckConflict: %v", err)
	}
	if index.lastExclude != 42 {
		t.Fatalf("expected exclude id 42 forwarded to overlap probes, got %d", index.lastExclude)
	}
}

func TestCheckConflictClosedDay(t *testing.T) {
	service := NewAvailabilityService(&stubBookingIndex{}, &stubTimeOff{}, &stubHours{closed: true})

	err := service.CheckConflict(context.Background(), proposedAt(10))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Resource != "studio" || conflict.Reason != ConflictReasonOutsideHours {
		t.Fatalf("expected outside-hours conflict, got %+v", conflict)
	}
}

func TestCheckConflictOperatingHoursBounds(t *testing.T) {
	// Open 09:00 to 17:00.
	hours := &stubHours{opensAt: 9 * 60, closesAt: 17 * 60}
	service := NewAvailabilityService(&stubBookingIndex{}, &stubTimeOff{}, hours)
	ctx := context.Background()

	// 09:00-10:00 starts exactly at opening: allowed.
	if err := service.CheckConflict(ctx, proposedAt(9)); err != nil {
		t.Fatalf("expected window at opening to pass, got %v", err)
	}
	// 16:00-17:00 ends exactly at closing: allowed.
	if err := service.CheckConflict(ctx, proposedAt(16)); err != nil {
		t.Fatalf("expected window ending at closing to pass, got %v", err)
	}
	// 08:00-09:00 starts before opening.
	if err := service.CheckConflict(ctx, proposedAt(8)); err == nil {
		t.Fatal("expected window before opening to be rejected")
	}
	// 16:30-17:30 runs past closing.
	proposed := proposedAt(16)
	proposed.StartsAt = proposed.StartsAt.Add(30 * time.Minute)
	proposed.EndsAt = proposed.EndsAt.Add(30 * time.Minute)
	if err := service.CheckConflict(ctx, proposed); err == nil {
		t.Fatal("expected window past closing to be rejected")
	}
}

func TestCheckConflictRejectsWindowPastMidnight(t *testing.T) {
	service := NewAvailabilityService(&stubBookingIndex{}, &stubTimeOff{}, openAllDay())

	proposed := proposedAt(23)
	proposed.EndsAt = proposed.StartsAt.Add(2 * time.Hour)
	if err := service.CheckConflict(context.Background(), proposed); err == nil {
		t.Fatal("expected window crossing midnight to be rejected")
	}
}

func TestClientFree(t *testing.T) {
	busy := NewAvailabilityService(&stubBookingIndex{clientHit: 200}, &stubTimeOff{}, openAllDay())
	free := NewAvailabilityService(&stubBookingIndex{}, &stubTimeOff{}, openAllDay())
	ctx := context.Background()
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	if err := free.ClientFree(ctx, 1, 7, start, start.Add(time.Hour)); err != nil {
		t.Fatalf("expected free client, got %v", err)
	}

	err := busy.ClientFree(ctx, 1, 7, start, start.Add(time.Hour))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.ConflictingSessionID != 200 {
		t.Fatalf("expected conflicting session 200, got %+v", conflict)
	}
}
