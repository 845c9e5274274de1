package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/d-krstic/StudioOpsBack/internal/models"
)

const sessionColumns = `
	id, tenant_id, studio_id, room_id, coach_id, client_id,
	starts_at, ends_at, status, kind, capacity, series_id,
	reservation_id, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.TenantID,
		&session.StudioID,
		&session.RoomID,
		&session.CoachID,
		&session.ClientID,
		&session.StartsAt,
		&session.EndsAt,
		&session.Status,
		&session.Kind,
		&session.Capacity,
		&session.SeriesID,
		&session.ReservationID,
		&session.Notes,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

type CreateSessionInput struct {
	TenantID      int64
	StudioID      int64
	RoomID        int64
	CoachID       int64
	ClientID      *int64
	StartsAt      time.Time
	EndsAt        time.Time
	Kind          string
	Capacity      int
	SeriesID      *int64
	ReservationID *uuid.UUID
	Notes         *string
}

type SessionListFilter struct {
	TenantID int64
	StudioID int64
	RoomID   int64
	CoachID  int64
	ClientID int64
	Status   string
	From     *time.Time
	To       *time.Time
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(
	ctx context.Context,
	input CreateSessionInput,
) (*models.Session, error) {
	query := `
		INSERT INTO sessions (
			tenant_id, studio_id, room_id, coach_id, client_id,
			starts_at, ends_at, status, kind, capacity, series_id,
			reservation_id, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'scheduled', $8, $9, $10, $11, $12)
		RETURNING` + sessionColumns

	return scanSession(r.db.QueryRow(
		ctx,
		query,
		input.TenantID,
		input.StudioID,
		input.RoomID,
		input.CoachID,
		input.ClientID,
		input.StartsAt,
		input.EndsAt,
		input.Kind,
		input.Capacity,
		input.SeriesID,
		input.ReservationID,
		input.Notes,
	))
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := `SELECT` + sessionColumns + `
		FROM sessions WHERE id = $1`
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *SessionRepository) GetByIDForUpdate(
	ctx context.Context,
	sessionID int64,
) (*models.Session, error) {
	query := `SELECT` + sessionColumns + `
		FROM sessions WHERE id = $1 FOR UPDATE`
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *SessionRepository) List(
	ctx context.Context,
	filter SessionListFilter,
) ([]models.Session, error) {
	args := []any{filter.TenantID}
	whereParts := []string{"tenant_id = $1"}

	appendFilter := func(column string, value any) {
		args = append(args, value)
		whereParts = append(whereParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if filter.StudioID > 0 {
		appendFilter("studio_id", filter.StudioID)
	}
	if filter.RoomID > 0 {
		appendFilter("room_id", filter.RoomID)
	}
	if filter.CoachID > 0 {
		appendFilter("coach_id", filter.CoachID)
	}
	if filter.ClientID > 0 {
		appendFilter("client_id", filter.ClientID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		appendFilter("status", status)
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		whereParts = append(whereParts, fmt.Sprintf("ends_at > $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		whereParts = append(whereParts, fmt.Sprintf("starts_at < $%d", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT`+sessionColumns+`
		FROM sessions
		WHERE %s
		ORDER BY starts_at ASC, id ASC
	`, strings.Join(whereParts, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *SessionRepository) ListBySeries(
	ctx context.Context,
	seriesID int64,
) ([]models.Session, error) {
	query := `
		SELECT` + sessionColumns + `
		FROM sessions
		WHERE series_id = $1
		ORDER BY starts_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, seriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *SessionRepository) UpdateWindow(
	ctx context.Context,
	sessionID int64,
	startsAt time.Time,
	endsAt time.Time,
) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET starts_at = $2, ends_at = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, query, sessionID, startsAt, endsAt))
}

func (r *SessionRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	sessionID int64,
	currentStatus string,
	nextStatus string,
) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, query, sessionID, currentStatus, nextStatus))
}

// FirstRoomOverlap returns the id of the earliest non-cancelled session
// on the room whose window intersects [startsAt, endsAt), half-open, or
// 0 when the room is free. excludeSessionID skips the session being
// moved during a reschedule; pass 0 otherwise.
func (r *SessionRepository) FirstRoomOverlap(
	ctx context.Context,
	tenantID int64,
	roomID int64,
	startsAt time.Time,
	endsAt time.Time,
	excludeSessionID int64,
) (int64, error) {
	query := `
		SELECT id
		FROM sessions
		WHERE tenant_id = $1
		  AND room_id = $2
		  AND id <> $5
		  AND status <> 'cancelled'
		  AND starts_at < $4
		  AND ends_at > $3
		ORDER BY starts_at ASC, id ASC
		LIMIT 1
	`
	return r.firstOverlap(ctx, query, tenantID, roomID, startsAt, endsAt, excludeSessionID)
}

func (r *SessionRepository) FirstCoachOverlap(
	ctx context.Context,
	tenantID int64,
	coachID int64,
	startsAt time.Time,
	endsAt time.Time,
	excludeSessionID int64,
) (int64, error) {
	query := `
		SELECT id
		FROM sessions
		WHERE tenant_id = $1
		  AND coach_id = $2
		  AND id <> $5
		  AND status <> 'cancelled'
		  AND starts_at < $4
		  AND ends_at > $3
		ORDER BY starts_at ASC, id ASC
		LIMIT 1
	`
	return r.firstOverlap(ctx, query, tenantID, coachID, startsAt, endsAt, excludeSessionID)
}

// FirstClientOverlap also counts group sessions the client joined as a
// participant, not just sessions booked directly against the client.
func (r *SessionRepository) FirstClientOverlap(
	ctx context.Context,
	tenantID int64,
	clientID int64,
	startsAt time.Time,
	endsAt time.Time,
	excludeSessionID int64,
) (int64, error) {
	query := `
		SELECT s.id
		FROM sessions s
		WHERE s.tenant_id = $1
		  AND s.id <> $5
		  AND s.status <> 'cancelled'
		  AND s.starts_at < $4
		  AND s.ends_at > $3
		  AND (
			s.client_id = $2
			OR EXISTS (
				SELECT 1 FROM session_participants sp
				WHERE sp.session_id = s.id AND sp.client_id = $2
			)
		  )
		ORDER BY s.starts_at ASC, s.id ASC
		LIMIT 1
	`
	return r.firstOverlap(ctx, query, tenantID, clientID, startsAt, endsAt, excludeSessionID)
}

func (r *SessionRepository) firstOverlap(
	ctx context.Context,
	query string,
	args ...any,
) (int64, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, rows.Err()
	}
	var sessionID int64
	if err := rows.Scan(&sessionID); err != nil {
		return 0, err
	}
	return sessionID, rows.Err()
}
