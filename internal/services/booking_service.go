package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/d-krstic/StudioOpsBack/internal/models"
	"github.com/d-krstic/StudioOpsBack/internal/repository"
)

// Advisory-lock key classes. Locks are always taken in class order
// (room, coach, client) so concurrent bookings cannot deadlock.
const (
	lockClassRoom   int64 = 1
	lockClassCoach  int64 = 2
	lockClassClient int64 = 3
)

type resourceReader interface {
	GetStudio(ctx context.Context, studioID int64) (*models.Studio, error)
	GetRoom(ctx context.Context, roomID int64) (*models.Room, error)
	GetCoach(ctx context.Context, coachID int64) (*models.Coach, error)
	GetClient(ctx context.Context, clientID int64) (*models.Client, error)
}

type sessionReader interface {
	GetByID(ctx context.Context, sessionID int64) (*models.Session, error)
	ListBySeries(ctx context.Context, seriesID int64) ([]models.Session, error)
	List(ctx context.Context, filter repository.SessionListFilter) ([]models.Session, error)
}

type participantReader interface {
	ListBySession(ctx context.Context, sessionID int64) ([]models.SessionParticipant, error)
}

type seriesReader interface {
	GetByID(ctx context.Context, seriesID int64) (*models.RecurrenceSeries, error)
}

type reservationReader interface {
	GetReservation(ctx context.Context, reservationID uuid.UUID) (*models.CreditReservation, error)
}

// BookingService is the entry point for every scheduling mutation. It
// validates tenant and studio ownership up front, then performs the
// conflict re-check, credit reservation, and session write inside one
// transaction, serialized per contested resource with advisory locks.
type BookingService struct {
	db           *pgxpool.Pool
	sessions     sessionReader
	participants participantReader
	resources    resourceReader
	series       seriesReader
	reservations reservationReader
	now          func() time.Time
}

func NewBookingService(
	db *pgxpool.Pool,
	sessions sessionReader,
	participants participantReader,
	resources resourceReader,
	series seriesReader,
	reservations reservationReader,
) *BookingService {
	return &BookingService{
		db:           db,
		sessions:     sessions,
		participants: participants,
		resources:    resources,
		series:       series,
		reservations: reservations,
		now:          time.Now,
	}
}

// SetClock replaces the wall clock; conflict checks and expiry guards
// read time only through it.
func (s *BookingService) SetClock(now func() time.Time) {
	s.now = now
}

type BookSessionInput struct {
	StudioID        int64
	RoomID          int64
	CoachID         int64
	ClientID        *int64
	ClientPackageID *int64
	StartsAt        time.Time
	EndsAt          time.Time
	Kind            string
	Capacity        int
	Notes           *string
}

type SkippedOccurrence struct {
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Reason   string    `json:"reason"`
}

type SeriesResult struct {
	Series  *models.RecurrenceSeries `json:"series"`
	Created []models.Session         `json:"created"`
	Skipped []SkippedOccurrence      `json:"skipped"`
}

type SeriesPatch struct {
	EndDate *time.Time
}

// BookSession books one non-recurring session.
func (s *BookingService) BookSession(
	ctx context.Context,
	tenantID int64,
	input BookSessionInput,
) (*models.Session, error) {
	if err := s.validateInput(tenantID, input); err != nil {
		return nil, err
	}
	if _, err := s.validateResources(ctx, tenantID, input); err != nil {
		return nil, err
	}
	return s.createOccurrence(ctx, tenantID, input, nil, input.StartsAt, input.EndsAt)
}

// CreateSeries expands the recurrence rule from the seed session and
// books the occurrences. The seed is all-or-nothing: if it cannot be
// placed the whole request fails and no series exists. Later
// occurrences are best-effort; ones that conflict or run out of credit
// are skipped and reported, each surviving occurrence committing in its
// own transaction.
func (s *BookingService) CreateSeries(
	ctx context.Context,
	tenantID int64,
	input BookSessionInput,
	rule models.RecurrenceRule,
) (*SeriesResult, error) {
	if err := s.validateInput(tenantID, input); err != nil {
		return nil, err
	}
	if _, err := s.validateResources(ctx, tenantID, input); err != nil {
		return nil, err
	}
	if !models.ValidRecurrencePattern(rule.Pattern) {
		return nil, ErrInvalidInput
	}
	if rule.EndDate.Before(input.StartsAt) {
		return nil, ErrInvalidInput
	}

	occurrences, err := ExpandOccurrences(input.StartsAt, input.EndsAt, rule)
	if err != nil {
		return nil, ErrInvalidInput
	}
	if len(occurrences) == 0 {
		return nil, ErrInvalidInput
	}

	result := &SeriesResult{
		Created: make([]models.Session, 0, len(occurrences)),
		Skipped: make([]SkippedOccurrence, 0),
	}

	// Series row and seed occurrence commit together: a seed conflict
	// rolls both back.
	seed := occurrences[0]
	err = s.inTransaction(ctx, func(tx pgx.Tx) error {
		series, err := repository.NewSeriesRepository(tx).Create(ctx, tenantID, rule)
		if err != nil {
			return err
		}
		result.Series = series

		session, err := s.occurrenceInTx(ctx, tx, tenantID, input, &series.ID, seed.StartsAt, seed.EndsAt)
		if err != nil {
			return err
		}
		result.Created = append(result.Created, *session)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, occurrence := range occurrences[1:] {
		session, err := s.createOccurrence(ctx, tenantID, input, &result.Series.ID, occurrence.StartsAt, occurrence.EndsAt)
		if err != nil {
			if reason, skippable := skipReason(err); skippable {
				result.Skipped = append(result.Skipped, SkippedOccurrence{
					StartsAt: occurrence.StartsAt,
					EndsAt:   occurrence.EndsAt,
					Reason:   reason,
				})
				continue
			}
			// Infrastructure failure: already-committed occurrences
			// stand, per the partial-success contract.
			return result, err
		}
		result.Created = append(result.Created, *session)
	}
	return result, nil
}

// RescheduleSession moves a session to a new window. Without the
// override flag any change to the stored window is rejected before
// conflict checking runs, so unrelated updates cannot silently drift a
// session's time. With the flag, a conflicting target leaves the stored
// session untouched.
func (s *BookingService) RescheduleSession(
	ctx context.Context,
	tenantID int64,
	sessionID int64,
	newStart time.Time,
	newEnd time.Time,
	allowTimeChange bool,
) (*models.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.TenantID != tenantID {
		return nil, ErrForbidden
	}

	if newStart.Equal(session.StartsAt) && newEnd.Equal(session.EndsAt) {
		return session, nil
	}
	if !allowTimeChange {
		return nil, ErrTimeChangeNotAllowed
	}
	if !newStart.Before(newEnd) {
		return nil, ErrInvalidInput
	}
	if session.Status != models.SessionStatusScheduled {
		return nil, ErrInvalidStateTransition
	}

	var moved *models.Session
	err = s.withSerializationRetry(ctx, func() error {
		return s.inTransaction(ctx, func(tx pgx.Tx) error {
			txSessionRepo := repository.NewSessionRepository(tx)

			current, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
			if err != nil {
				return err
			}
			if current.Status != models.SessionStatusScheduled {
				return ErrInvalidStateTransition
			}

			if err := lockResources(ctx, tx, current.RoomID, current.CoachID, current.ClientID); err != nil {
				return err
			}

			availability := newTxAvailability(tx)
			if err := availability.CheckConflict(ctx, ProposedSession{
				TenantID:         tenantID,
				StudioID:         current.StudioID,
				RoomID:           current.RoomID,
				CoachID:          current.CoachID,
				ClientID:         current.ClientID,
				StartsAt:         newStart,
				EndsAt:           newEnd,
				ExcludeSessionID: sessionID,
			}); err != nil {
				return err
			}

			moved, err = txSessionRepo.UpdateWindow(ctx, sessionID, newStart, newEnd)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// CancelSession cancels a session and releases exactly the credit it
// consumed: the single reservation of an individual session, or one per
// participant still attached to a group session. Cancelling an already
// cancelled session is a no-op, so retried deletes are safe.
func (s *BookingService) CancelSession(
	ctx context.Context,
	tenantID int64,
	sessionID int64,
) error {
	return s.inTransaction(ctx, func(tx pgx.Tx) error {
		session, err := repository.NewSessionRepository(tx).GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.TenantID != tenantID {
			return ErrForbidden
		}
		return s.cancelInTx(ctx, tx, session)
	})
}

// UpdateStatus drives the scheduled -> in_progress -> completed state
// machine. Cancellation goes through CancelSession so credit release
// stays in one place.
func (s *BookingService) UpdateStatus(
	ctx context.Context,
	tenantID int64,
	sessionID int64,
	requestedStatus string,
) (*models.Session, error) {
	next, err := normalizeRequestedStatus(requestedStatus)
	if err != nil {
		return nil, err
	}
	if next == models.SessionStatusCancelled {
		if err := s.CancelSession(ctx, tenantID, sessionID); err != nil {
			return nil, err
		}
		return s.sessions.GetByID(ctx, sessionID)
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.TenantID != tenantID {
		return nil, ErrForbidden
	}
	if err := validateStatusTransition(session.Status, next); err != nil {
		return nil, err
	}

	var updated *models.Session
	err = s.inTransaction(ctx, func(tx pgx.Tx) error {
		updated, err = repository.NewSessionRepository(tx).
			UpdateStatusIfCurrent(ctx, sessionID, session.Status, next)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidStateTransition
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteSeries cancels every member session, releasing each one's
// reservation exactly once, then removes the series row. The traversal
// is explicit: one transaction walks the owned session set.
func (s *BookingService) DeleteSeries(
	ctx context.Context,
	tenantID int64,
	seriesID int64,
) error {
	series, err := s.series.GetByID(ctx, seriesID)
	if err != nil {
		return err
	}
	if series.TenantID != tenantID {
		return ErrForbidden
	}

	return s.inTransaction(ctx, func(tx pgx.Tx) error {
		txSessionRepo := repository.NewSessionRepository(tx)

		members, err := txSessionRepo.ListBySeries(ctx, seriesID)
		if err != nil {
			return err
		}
		for i := range members {
			member, err := txSessionRepo.GetByIDForUpdate(ctx, members[i].ID)
			if err != nil {
				return err
			}
			if err := s.cancelInTx(ctx, tx, member); err != nil {
				return err
			}
		}
		return repository.NewSeriesRepository(tx).Delete(ctx, seriesID)
	})
}

// UpdateSeries patches the series end date. Shortening cancels member
// sessions past the new end date and returns their credit; extending
// books the additional occurrences best-effort, like CreateSeries.
func (s *BookingService) UpdateSeries(
	ctx context.Context,
	tenantID int64,
	seriesID int64,
	patch SeriesPatch,
) (*SeriesResult, error) {
	if patch.EndDate == nil {
		return nil, ErrInvalidInput
	}
	series, err := s.series.GetByID(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	if series.TenantID != tenantID {
		return nil, ErrForbidden
	}

	members, err := s.sessions.ListBySeries(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, ErrInvalidInput
	}
	newEnd := *patch.EndDate

	result := &SeriesResult{
		Created: make([]models.Session, 0),
		Skipped: make([]SkippedOccurrence, 0),
	}

	if newEnd.Before(series.EndDate) {
		err = s.inTransaction(ctx, func(tx pgx.Tx) error {
			txSessionRepo := repository.NewSessionRepository(tx)
			for i := range members {
				if !members[i].StartsAt.After(endOfDay(newEnd)) {
					continue
				}
				member, err := txSessionRepo.GetByIDForUpdate(ctx, members[i].ID)
				if err != nil {
					return err
				}
				if err := s.cancelInTx(ctx, tx, member); err != nil {
					return err
				}
			}
			_, err := repository.NewSeriesRepository(tx).UpdateEndDate(ctx, seriesID, newEnd)
			return err
		})
		if err != nil {
			return nil, err
		}
		result.Series, err = s.series.GetByID(ctx, seriesID)
		return result, err
	}

	// Extension: re-expand from the seed member with the new end date
	// and book only windows past the current series horizon.
	seed := members[0]
	input, err := s.inputFromSession(ctx, &seed)
	if err != nil {
		return nil, err
	}
	rule := models.RecurrenceRule{Pattern: series.Pattern, EndDate: newEnd, Slots: series.Slots}
	occurrences, err := ExpandOccurrences(seed.StartsAt, seed.EndsAt, rule)
	if err != nil {
		return nil, ErrInvalidInput
	}

	horizon := endOfDay(series.EndDate)
	for _, occurrence := range occurrences {
		if !occurrence.StartsAt.After(horizon) {
			continue
		}
		session, err := s.createOccurrence(ctx, tenantID, *input, &seriesID, occurrence.StartsAt, occurrence.EndsAt)
		if err != nil {
			if reason, skippable := skipReason(err); skippable {
				result.Skipped = append(result.Skipped, SkippedOccurrence{
					StartsAt: occurrence.StartsAt,
					EndsAt:   occurrence.EndsAt,
					Reason:   reason,
				})
				continue
			}
			return result, err
		}
		result.Created = append(result.Created, *session)
	}

	err = s.inTransaction(ctx, func(tx pgx.Tx) error {
		_, err := repository.NewSeriesRepository(tx).UpdateEndDate(ctx, seriesID, newEnd)
		return err
	})
	if err != nil {
		return result, err
	}
	result.Series, err = s.series.GetByID(ctx, seriesID)
	return result, err
}

// AddParticipant joins a client to a group session, reserving one
// credit from the given package. Capacity is checked under the session
// row lock so two concurrent joins cannot both take the last spot.
func (s *BookingService) AddParticipant(
	ctx context.Context,
	tenantID int64,
	sessionID int64,
	clientID int64,
	clientPackageID int64,
) (*models.SessionParticipant, error) {
	client, err := s.resources.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client.TenantID != tenantID {
		return nil, ErrForbidden
	}

	var participant *models.SessionParticipant
	err = s.withSerializationRetry(ctx, func() error {
		return s.inTransaction(ctx, func(tx pgx.Tx) error {
			txSessionRepo := repository.NewSessionRepository(tx)
			txParticipantRepo := repository.NewParticipantRepository(tx)
			txPackageRepo := repository.NewPackageRepository(tx)

			session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
			if err != nil {
				return err
			}
			if session.TenantID != tenantID {
				return ErrForbidden
			}
			if session.Kind != models.SessionKindGroup {
				return ErrInvalidInput
			}
			if session.Status != models.SessionStatusScheduled {
				return ErrInvalidStateTransition
			}
			if client.StudioID != session.StudioID {
				studio, err := s.resources.GetStudio(ctx, session.StudioID)
				if err != nil {
					return err
				}
				if !studio.AllowCrossStudioStaff {
					return ErrCrossStudio
				}
			}

			attached, err := txParticipantRepo.ListBySession(ctx, sessionID)
			if err != nil {
				return err
			}
			for _, existing := range attached {
				if existing.ClientID == clientID {
					return ErrDuplicateParticipant
				}
			}
			if len(attached) >= session.Capacity {
				return ErrCapacityFull
			}

			availability := newTxAvailability(tx)
			if err := availability.ClientFree(ctx, tenantID, clientID, session.StartsAt, session.EndsAt); err != nil {
				return err
			}

			reservation, err := s.reserveForClient(ctx, txPackageRepo, tenantID, clientID, clientPackageID)
			if err != nil {
				return err
			}

			participant, err = txParticipantRepo.Add(ctx, sessionID, clientID, reservation.ID)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23505" {
					return ErrDuplicateParticipant
				}
				return err
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return participant, nil
}

// RemoveParticipant detaches a client from a group session and returns
// the credit their reservation held. Removing a client who is not
// attached is a no-op.
func (s *BookingService) RemoveParticipant(
	ctx context.Context,
	tenantID int64,
	sessionID int64,
	clientID int64,
) error {
	return s.inTransaction(ctx, func(tx pgx.Tx) error {
		txSessionRepo := repository.NewSessionRepository(tx)
		txParticipantRepo := repository.NewParticipantRepository(tx)
		txPackageRepo := repository.NewPackageRepository(tx)

		session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.TenantID != tenantID {
			return ErrForbidden
		}

		reservationID, found, err := txParticipantRepo.Remove(ctx, sessionID, clientID)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		_, err = txPackageRepo.ReleaseCredit(ctx, reservationID)
		return err
	})
}

func (s *BookingService) GetSession(
	ctx context.Context,
	tenantID int64,
	sessionID int64,
) (*models.SessionDetail, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.TenantID != tenantID {
		return nil, ErrForbidden
	}

	detail := &models.SessionDetail{Session: *session}
	if session.Kind == models.SessionKindGroup {
		participants, err := s.participants.ListBySession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		detail.Participants = participants
	}
	return detail, nil
}

func (s *BookingService) ListSessions(
	ctx context.Context,
	tenantID int64,
	filter repository.SessionListFilter,
) ([]models.Session, error) {
	filter.TenantID = tenantID
	return s.sessions.List(ctx, filter)
}

func (s *BookingService) validateInput(tenantID int64, input BookSessionInput) error {
	if tenantID <= 0 || input.StudioID <= 0 || input.RoomID <= 0 || input.CoachID <= 0 {
		return ErrInvalidInput
	}
	if !input.StartsAt.Before(input.EndsAt) {
		return ErrInvalidInput
	}
	if input.StartsAt.Before(s.now().Add(-1 * time.Minute)) {
		return ErrInvalidInput
	}
	switch input.Kind {
	case models.SessionKindIndividual:
		if input.ClientID == nil || input.ClientPackageID == nil {
			return ErrInvalidInput
		}
	case models.SessionKindGroup:
		if input.Capacity <= 0 || input.ClientID != nil {
			return ErrInvalidInput
		}
	default:
		return ErrInvalidInput
	}
	return nil
}

// validateResources resolves every referenced resource and enforces the
// cross-tenant and cross-studio guards before any conflict check runs.
func (s *BookingService) validateResources(
	ctx context.Context,
	tenantID int64,
	input BookSessionInput,
) (*models.Studio, error) {
	studio, err := s.resources.GetStudio(ctx, input.StudioID)
	if err != nil {
		return nil, err
	}
	if studio.TenantID != tenantID {
		return nil, ErrForbidden
	}

	room, err := s.resources.GetRoom(ctx, input.RoomID)
	if err != nil {
		return nil, err
	}
	if room.TenantID != tenantID {
		return nil, ErrForbidden
	}
	if room.StudioID != input.StudioID {
		return nil, ErrCrossStudio
	}

	coach, err := s.resources.GetCoach(ctx, input.CoachID)
	if err != nil {
		return nil, err
	}
	if coach.TenantID != tenantID {
		return nil, ErrForbidden
	}
	if coach.StudioID != input.StudioID && !studio.AllowCrossStudioStaff {
		return nil, ErrCrossStudio
	}

	if input.ClientID != nil {
		client, err := s.resources.GetClient(ctx, *input.ClientID)
		if err != nil {
			return nil, err
		}
		if client.TenantID != tenantID {
			return nil, ErrForbidden
		}
		if client.StudioID != input.StudioID && !studio.AllowCrossStudioStaff {
			return nil, ErrCrossStudio
		}
	}
	return studio, nil
}

// createOccurrence books one concrete window as a single transaction:
// advisory locks, conflict re-check, credit reserve, session insert.
// A serialization failure is retried once with a fresh conflict check.
func (s *BookingService) createOccurrence(
	ctx context.Context,
	tenantID int64,
	input BookSessionInput,
	seriesID *int64,
	startsAt time.Time,
	endsAt time.Time,
) (*models.Session, error) {
	var session *models.Session
	err := s.withSerializationRetry(ctx, func() error {
		return s.inTransaction(ctx, func(tx pgx.Tx) error {
			created, err := s.occurrenceInTx(ctx, tx, tenantID, input, seriesID, startsAt, endsAt)
			if err != nil {
				return err
			}
			session = created
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *BookingService) occurrenceInTx(
	ctx context.Context,
	tx pgx.Tx,
	tenantID int64,
	input BookSessionInput,
	seriesID *int64,
	startsAt time.Time,
	endsAt time.Time,
) (*models.Session, error) {
	if err := lockResources(ctx, tx, input.RoomID, input.CoachID, input.ClientID); err != nil {
		return nil, err
	}

	availability := newTxAvailability(tx)
	if err := availability.CheckConflict(ctx, ProposedSession{
		TenantID: tenantID,
		StudioID: input.StudioID,
		RoomID:   input.RoomID,
		CoachID:  input.CoachID,
		ClientID: input.ClientID,
		StartsAt: startsAt,
		EndsAt:   endsAt,
	}); err != nil {
		return nil, err
	}

	var reservationID *uuid.UUID
	if input.Kind == models.SessionKindIndividual {
		reservation, err := s.reserveForClient(
			ctx,
			repository.NewPackageRepository(tx),
			tenantID,
			*input.ClientID,
			*input.ClientPackageID,
		)
		if err != nil {
			return nil, err
		}
		reservationID = &reservation.ID
	}

	return repository.NewSessionRepository(tx).Create(ctx, repository.CreateSessionInput{
		TenantID:      tenantID,
		StudioID:      input.StudioID,
		RoomID:        input.RoomID,
		CoachID:       input.CoachID,
		ClientID:      input.ClientID,
		StartsAt:      startsAt,
		EndsAt:        endsAt,
		Kind:          input.Kind,
		Capacity:      input.Capacity,
		SeriesID:      seriesID,
		ReservationID: reservationID,
		Notes:         input.Notes,
	})
}

// reserveForClient checks package ownership, then debits one credit.
func (s *BookingService) reserveForClient(
	ctx context.Context,
	txPackageRepo *repository.PackageRepository,
	tenantID int64,
	clientID int64,
	clientPackageID int64,
) (*models.CreditReservation, error) {
	pkg, err := txPackageRepo.GetByIDForUpdate(ctx, clientPackageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidInput
		}
		return nil, err
	}
	if pkg.TenantID != tenantID || pkg.ClientID != clientID {
		return nil, ErrForbidden
	}

	reservation, err := txPackageRepo.ReserveCredit(ctx, clientPackageID, s.now().UTC())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsufficientCredit
		}
		return nil, err
	}
	return reservation, nil
}

// cancelInTx flips the locked session to cancelled and releases every
// reservation it holds. Already-cancelled sessions are left alone.
func (s *BookingService) cancelInTx(ctx context.Context, tx pgx.Tx, session *models.Session) error {
	if session.Status == models.SessionStatusCancelled {
		return nil
	}
	if session.Status == models.SessionStatusCompleted {
		return ErrInvalidStateTransition
	}

	txSessionRepo := repository.NewSessionRepository(tx)
	txPackageRepo := repository.NewPackageRepository(tx)

	if _, err := txSessionRepo.UpdateStatusIfCurrent(
		ctx, session.ID, session.Status, models.SessionStatusCancelled,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidStateTransition
		}
		return err
	}

	if session.ReservationID != nil {
		if _, err := txPackageRepo.ReleaseCredit(ctx, *session.ReservationID); err != nil {
			return err
		}
	}
	if session.Kind == models.SessionKindGroup {
		participants, err := repository.NewParticipantRepository(tx).ListBySession(ctx, session.ID)
		if err != nil {
			return err
		}
		for _, participant := range participants {
			if _, err := txPackageRepo.ReleaseCredit(ctx, participant.ReservationID); err != nil {
				return err
			}
		}
	}
	return nil
}

// inputFromSession rebuilds the booking input of an existing member so
// a series extension can book more occurrences like the original ones.
func (s *BookingService) inputFromSession(
	ctx context.Context,
	session *models.Session,
) (*BookSessionInput, error) {
	input := &BookSessionInput{
		StudioID: session.StudioID,
		RoomID:   session.RoomID,
		CoachID:  session.CoachID,
		ClientID: session.ClientID,
		StartsAt: session.StartsAt,
		EndsAt:   session.EndsAt,
		Kind:     session.Kind,
		Capacity: session.Capacity,
		Notes:    session.Notes,
	}
	if session.Kind == models.SessionKindIndividual && session.ReservationID != nil {
		reservation, err := s.reservations.GetReservation(ctx, *session.ReservationID)
		if err != nil {
			return nil, err
		}
		input.ClientPackageID = &reservation.ClientPackageID
	}
	return input, nil
}

func (s *BookingService) inTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// withSerializationRetry retries fn once on a lock or serialization
// failure; business-rule failures surface immediately.
func (s *BookingService) withSerializationRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !isSerializationFailure(err) {
		return err
	}
	return fn()
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// serialization_failure, deadlock_detected, lock_not_available
	return pgErr.Code == "40001" || pgErr.Code == "40P01" || pgErr.Code == "55P03"
}

func lockResources(ctx context.Context, tx pgx.Tx, roomID, coachID int64, clientID *int64) error {
	keys := []int64{
		advisoryKey(lockClassRoom, roomID),
		advisoryKey(lockClassCoach, coachID),
	}
	if clientID != nil {
		keys = append(keys, advisoryKey(lockClassClient, *clientID))
	}
	for _, key := range keys {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", key); err != nil {
			return err
		}
	}
	return nil
}

func advisoryKey(class, id int64) int64 {
	return class<<48 | (id & 0xFFFFFFFFFFFF)
}

func newTxAvailability(tx pgx.Tx) *AvailabilityService {
	return NewAvailabilityService(
		repository.NewSessionRepository(tx),
		repository.NewTimeOffRepository(tx),
		repository.NewResourceRepository(tx),
	)
}

func skipReason(err error) (string, bool) {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict.Reason, true
	}
	if errors.Is(err, ErrInsufficientCredit) {
		return "insufficient_credit", true
	}
	return "", false
}

func endOfDay(t time.Time) time.Time {
	day := dateOf(t, t.Location())
	return day.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func normalizeRequestedStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "start", "in_progress":
		return models.SessionStatusInProgress, nil
	case "complete", "completed":
		return models.SessionStatusCompleted, nil
	case "cancel", "cancelled", "canceled":
		return models.SessionStatusCancelled, nil
	default:
		return "", ErrInvalidStatus
	}
}

func validateStatusTransition(current, next string) error {
	switch next {
	case models.SessionStatusInProgress:
		if current != models.SessionStatusScheduled {
			return ErrInvalidStateTransition
		}
	case models.SessionStatusCompleted:
		if current != models.SessionStatusInProgress && current != models.SessionStatusScheduled {
			return ErrInvalidStateTransition
		}
	default:
		return ErrInvalidStatus
	}
	return nil
}
