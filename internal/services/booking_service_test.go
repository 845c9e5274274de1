package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/d-krstic/StudioOpsBack/internal/models"
	"github.com/d-krstic/StudioOpsBack/internal/repository"
)

type stubResources struct {
	studio *models.Studio
	room   *models.Room
	coach  *models.Coach
	client *models.Client
}

func (s *stubResources) GetStudio(_ context.Context, _ int64) (*models.Studio, error) {
	return s.studio, nil
}

func (s *stubResources) GetRoom(_ context.Context, _ int64) (*models.Room, error) {
	return s.room, nil
}

func (s *stubResources) GetCoach(_ context.Context, _ int64) (*models.Coach, error) {
	return s.coach, nil
}

func (s *stubResources) GetClient(_ context.Context, _ int64) (*models.Client, error) {
	return s.client, nil
}

type stubSessions struct {
	session    *models.Session
	members    []models.Session
	lastFilter repository.SessionListFilter
}

func (s *stubSessions) GetByID(_ context.Context, _ int64) (*models.Session, error) {
	return s.session, nil
}

func (s *stubSessions) ListBySeries(_ context.Context, _ int64) ([]models.Session, error) {
	return s.members, nil
}

func (s *stubSessions) List(_ context.Context, filter repository.SessionListFilter) ([]models.Session, error) {
	s.lastFilter = filter
	return s.members, nil
}

type stubParticipants struct {
	participants []models.SessionParticipant
}

func (s *stubParticipants) ListBySession(_ context.Context, _ int64) ([]models.SessionParticipant, error) {
	return s.participants, nil
}

type stubSeries struct {
	series *models.RecurrenceSeries
}

func (s *stubSeries) GetByID(_ context.Context, _ int64) (*models.RecurrenceSeries, error) {
	return s.series, nil
}

type stubReservations struct{}

func (s *stubReservations) GetReservation(_ context.Context, _ uuid.UUID) (*models.CreditReservation, error) {
	return nil, errors.New("not implemented")
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sameTenantResources(tenantID, studioID int64) *stubResources {
	return &stubResources{
		studio: &models.Studio{ID: studioID, TenantID: tenantID},
		room:   &models.Room{ID: 20, TenantID: tenantID, StudioID: studioID},
		coach:  &models.Coach{ID: 30, TenantID: tenantID, StudioID: studioID},
		client: &models.Client{ID: 7, TenantID: tenantID, StudioID: studioID},
	}
}

func newTestBookingService(resources *stubResources, sessions *stubSessions, series *stubSeries) *BookingService {
	if resources == nil {
		resources = sameTenantResources(1, 10)
	}
	if sessions == nil {
		sessions = &stubSessions{}
	}
	if series == nil {
		series = &stubSeries{}
	}
	service := NewBookingService(nil, sessions, &stubParticipants{}, resources, series, &stubReservations{})
	service.SetClock(fixedClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	return service
}

func individualInput() BookSessionInput {
	clientID := int64(7)
	packageID := int64(70)
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	return BookSessionInput{
		StudioID:        10,
		RoomID:          20,
		CoachID:         30,
		ClientID:        &clientID,
		ClientPackageID: &packageID,
		StartsAt:        start,
		EndsAt:          start.Add(time.Hour),
		Kind:            models.SessionKindIndividual,
	}
}

func TestBookSessionRejectsInvalidInput(t *testing.T) {
	service := newTestBookingService(nil, nil, nil)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*BookSessionInput)
	}{
		{"empty window", func(in *BookSessionInput) { in.EndsAt = in.StartsAt }},
		{"inverted window", func(in *BookSessionInput) { in.StartsAt, in.EndsAt = in.EndsAt, in.StartsAt }},
		{"missing room", func(in *BookSessionInput) { in.RoomID = 0 }},
		{"missing coach", func(in *BookSessionInput) { in.CoachID = 0 }},
		{"individual without client", func(in *BookSessionInput) { in.ClientID = nil }},
		{"individual without package", func(in *BookSessionInput) { in.ClientPackageID = nil }},
		{"unknown kind", func(in *BookSessionInput) { in.Kind = "semi_private" }},
		{"group with zero capacity", func(in *BookSessionInput) {
			in.Kind = models.SessionKindGroup
			in.ClientID = nil
			in.ClientPackageID = nil
			in.Capacity = 0
		}},
		{"group with direct client", func(in *BookSessionInput) {
			in.Kind = models.SessionKindGroup
			in.Capacity = 5
		}},
	}

	for _, tc := range cases {
		input := individualInput()
		tc.mutate(&input)
		if _, err := service.BookSession(ctx, 1, input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestBookSessionRejectsPastStart(t *testing.T) {
	service := newTestBookingService(nil, nil, nil)
	service.SetClock(fixedClock(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)))

	input := individualInput() // starts 10:00, two hours before the clock
	if _, err := service.BookSession(context.Background(), 1, input); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for past start, got %v", err)
	}
}

func TestBookSessionCrossTenant(t *testing.T) {
	resources := sameTenantResources(1, 10)
	resources.coach.TenantID = 2
	service := newTestBookingService(resources, nil, nil)

	if _, err := service.BookSession(context.Background(), 1, individualInput()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for cross-tenant coach, got %v", err)
	}
}

func TestBookSessionCrossStudioRoomAlwaysRejected(t *testing.T) {
	// Room in another studio is rejected even when the studio allows
	// cross-studio staff: the flag excuses people, not rooms.
	resources := sameTenantResources(1, 10)
	resources.studio.AllowCrossStudioStaff = true
	resources.room.StudioID = 11
	service := newTestBookingService(resources, nil, nil)

	if _, err := service.BookSession(context.Background(), 1, individualInput()); !errors.Is(err, ErrCrossStudio) {
		t.Fatalf("expected ErrCrossStudio for cross-studio room, got %v", err)
	}
}

func TestCrossStudioStaffExcusedByFlag(t *testing.T) {
	resources := sameTenantResources(1, 10)
	resources.coach.StudioID = 11
	resources.client.StudioID = 11
	service := newTestBookingService(resources, nil, nil)
	ctx := context.Background()

	if _, err := service.validateResources(ctx, 1, individualInput()); !errors.Is(err, ErrCrossStudio) {
		t.Fatalf("expected ErrCrossStudio for cross-studio coach, got %v", err)
	}

	resources.studio.AllowCrossStudioStaff = true
	if _, err := service.validateResources(ctx, 1, individualInput()); err != nil {
		t.Fatalf("expected flag to excuse cross-studio staff, got %v", err)
	}
}

func TestCreateSeriesRejectsBadRule(t *testing.T) {
	service := newTestBookingService(nil, nil, nil)
	ctx := context.Background()
	input := individualInput()

	_, err := service.CreateSeries(ctx, 1, input, models.RecurrenceRule{
		Pattern: "hourly",
		EndDate: input.StartsAt.AddDate(0, 0, 7),
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown pattern, got %v", err)
	}

	_, err = service.CreateSeries(ctx, 1, input, models.RecurrenceRule{
		Pattern: models.RecurrenceWeekly,
		EndDate: input.StartsAt.AddDate(0, 0, -7),
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for end date before seed, got %v", err)
	}

	_, err = service.CreateSeries(ctx, 1, input, models.RecurrenceRule{
		Pattern: models.RecurrenceVariable,
		EndDate: input.StartsAt.AddDate(0, 0, 7),
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for variable rule without slots, got %v", err)
	}
}

func TestRescheduleSameWindowIsNoOp(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	stored := &models.Session{
		ID:       5,
		TenantID: 1,
		StartsAt: start,
		EndsAt:   start.Add(time.Hour),
		Status:   models.SessionStatusScheduled,
	}
	service := newTestBookingService(nil, &stubSessions{session: stored}, nil)

	// The override flag is false; an unchanged window must still succeed.
	session, err := service.RescheduleSession(context.Background(), 1, 5, stored.StartsAt, stored.EndsAt, false)
	if err != nil {
		t.Fatalf("expected unchanged window to be a no-op, got %v", err)
	}
	if session.ID != 5 {
		t.Fatalf("expected stored session back, got %+v", session)
	}
}

func TestRescheduleRequiresOverrideFlag(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	stored := &models.Session{
		ID:       5,
		TenantID: 1,
		StartsAt: start,
		EndsAt:   start.Add(time.Hour),
		Status:   models.SessionStatusScheduled,
	}
	service := newTestBookingService(nil, &stubSessions{session: stored}, nil)

	_, err := service.RescheduleSession(context.Background(), 1, 5, start.Add(time.Hour), start.Add(2*time.Hour), false)
	if !errors.Is(err, ErrTimeChangeNotAllowed) {
		t.Fatalf("expected ErrTimeChangeNotAllowed, got %v", err)
	}
}

func TestRescheduleRejectsInvalidWindowAndWrongTenant(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	stored := &models.Session{
		ID:       5,
		TenantID: 1,
		StartsAt: start,
		EndsAt:   start.Add(time.Hour),
		Status:   models.SessionStatusScheduled,
	}
	service := newTestBookingService(nil, &stubSessions{session: stored}, nil)
	ctx := context.Background()

	if _, err := service.RescheduleSession(ctx, 2, 5, start, start.Add(time.Hour), true); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for wrong tenant, got %v", err)
	}
	if _, err := service.RescheduleSession(ctx, 1, 5, start.Add(time.Hour), start.Add(time.Hour), true); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty window, got %v", err)
	}
}

func TestRescheduleRejectsNonScheduledSession(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	stored := &models.Session{
		ID:       5,
		TenantID: 1,
		StartsAt: start,
		EndsAt:   start.Add(time.Hour),
		Status:   models.SessionStatusCompleted,
	}
	service := newTestBookingService(nil, &stubSessions{session: stored}, nil)

	_, err := service.RescheduleSession(context.Background(), 1, 5, start.Add(time.Hour), start.Add(2*time.Hour), true)
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestUpdateStatusRejectsUnknownAndIllegalTransitions(t *testing.T) {
	stored := &models.Session{ID: 5, TenantID: 1, Status: models.SessionStatusCompleted}
	service := newTestBookingService(nil, &stubSessions{session: stored}, nil)
	ctx := context.Background()

	if _, err := service.UpdateStatus(ctx, 1, 5, "paused"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := service.UpdateStatus(ctx, 1, 5, "start"); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition for completed -> in_progress, got %v", err)
	}
	if _, err := service.UpdateStatus(ctx, 2, 5, "start"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for wrong tenant, got %v", err)
	}
}

func TestDeleteSeriesWrongTenant(t *testing.T) {
	series := &stubSeries{series: &models.RecurrenceSeries{ID: 3, TenantID: 1}}
	service := newTestBookingService(nil, nil, series)

	if err := service.DeleteSeries(context.Background(), 2, 3); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestUpdateSeriesValidation(t *testing.T) {
	series := &stubSeries{series: &models.RecurrenceSeries{
		ID:       3,
		TenantID: 1,
		Pattern:  models.RecurrenceWeekly,
		EndDate:  time.Date(2026, 3, 30, 0, 0, 0, 0, time.UTC),
	}}
	service := newTestBookingService(nil, &stubSessions{}, series)
	ctx := context.Background()

	if _, err := service.UpdateSeries(ctx, 1, 3, SeriesPatch{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty patch, got %v", err)
	}

	newEnd := time.Date(2026, 4, 13, 0, 0, 0, 0, time.UTC)
	if _, err := service.UpdateSeries(ctx, 2, 3, SeriesPatch{EndDate: &newEnd}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for wrong tenant, got %v", err)
	}

	// A series with no surviving members cannot be extended.
	if _, err := service.UpdateSeries(ctx, 1, 3, SeriesPatch{EndDate: &newEnd}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for memberless series, got %v", err)
	}
}

func TestAddParticipantWrongTenantClient(t *testing.T) {
	resources := sameTenantResources(1, 10)
	resources.client.TenantID = 2
	service := newTestBookingService(resources, nil, nil)

	_, err := service.AddParticipant(context.Background(), 1, 5, 7, 70)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestGetSessionIncludesParticipantsForGroup(t *testing.T) {
	stored := &models.Session{ID: 5, TenantID: 1, Kind: models.SessionKindGroup, Capacity: 8}
	sessions := &stubSessions{session: stored}
	service := NewBookingService(nil, sessions, &stubParticipants{
		participants: []models.SessionParticipant{
			{ID: 1, SessionID: 5, ClientID: 7},
			{ID: 2, SessionID: 5, ClientID: 8},
		},
	}, sameTenantResources(1, 10), &stubSeries{}, &stubReservations{})

	detail, err := service.GetSession(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got := len(detail.Participants); got != 2 {
		t.Fatalf("expected 2 participants, got %d", got)
	}

	if _, err := service.GetSession(context.Background(), 2, 5); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for wrong tenant, got %v", err)
	}
}

func TestListSessionsPinsTenant(t *testing.T) {
	sessions := &stubSessions{}
	service := newTestBookingService(nil, sessions, nil)

	_, err := service.ListSessions(context.Background(), 1, repository.SessionListFilter{TenantID: 99})
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if sessions.lastFilter.TenantID != 1 {
		t.Fatalf("expected filter tenant pinned to caller, got %d", sessions.lastFilter.TenantID)
	}
}

func TestNormalizeRequestedStatus(t *testing.T) {
	cases := map[string]string{
		"start":       models.SessionStatusInProgress,
		"In_Progress": models.SessionStatusInProgress,
		"complete":    models.SessionStatusCompleted,
		" completed ": models.SessionStatusCompleted,
		"cancel":      models.SessionStatusCancelled,
		"canceled":    models.SessionStatusCancelled,
	}
	for raw, want := range cases {
		got, err := normalizeRequestedStatus(raw)
		if err != nil {
			t.Fatalf("normalizeRequestedStatus(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("normalizeRequestedStatus(%q) = %q, want %q", raw, got, want)
		}
	}
	if _, err := normalizeRequestedStatus("scheduled"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus for %q, got %v", "scheduled", err)
	}
}

func TestAdvisoryKeySeparatesClasses(t *testing.T) {
	roomKey := advisoryKey(lockClassRoom, 42)
	coachKey := advisoryKey(lockClassCoach, 42)
	clientKey := advisoryKey(lockClassClient, 42)
	if roomKey == coachKey || coachKey == clientKey || roomKey == clientKey {
		t.Fatalf("expected distinct keys per class, got %d %d %d", roomKey, coachKey, clientKey)
	}
	if advisoryKey(lockClassRoom, 42) != roomKey {
		t.Fatal("expected advisory keys to be stable")
	}
}

func TestSkipReason(t *testing.T) {
	reason, skippable := skipReason(&ConflictError{Reason: ConflictReasonRoomBooked})
	if !skippable || reason != ConflictReasonRoomBooked {
		t.Fatalf("expected conflict to be skippable, got %q %v", reason, skippable)
	}
	reason, skippable = skipReason(ErrInsufficientCredit)
	if !skippable || reason != "insufficient_credit" {
		t.Fatalf("expected insufficient credit to be skippable, got %q %v", reason, skippable)
	}
	if _, skippable = skipReason(errors.New("connection reset")); skippable {
		t.Fatal("expected infrastructure error to not be skippable")
	}
}
