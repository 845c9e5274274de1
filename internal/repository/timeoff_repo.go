package repository

import (
	"context"
	"time"

	"github.com/d-krstic/StudioOpsBack/internal/models"
)

type TimeOffRepository struct {
	db DBTX
}

func NewTimeOffRepository(db DBTX) *TimeOffRepository {
	return &TimeOffRepository{db: db}
}

func (r *TimeOffRepository) Create(
	ctx context.Context,
	window *models.TimeOffWindow,
) error {
	query := `
		INSERT INTO time_off_windows (tenant_id, coach_id, starts_at, ends_at, status, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(
		ctx,
		query,
		window.TenantID,
		window.CoachID,
		window.StartsAt,
		window.EndsAt,
		window.Status,
		window.Reason,
	).Scan(&window.ID, &window.CreatedAt, &window.UpdatedAt)
}

func (r *TimeOffRepository) UpdateStatus(
	ctx context.Context,
	tenantID int64,
	windowID int64,
	status string,
) (*models.TimeOffWindow, error) {
	query := `
		UPDATE time_off_windows
		SET status = $3, updated_at = NOW()
		WHERE id = $2 AND tenant_id = $1
		RETURNING id, tenant_id, coach_id, starts_at, ends_at, status, reason, created_at, updated_at
	`
	var window models.TimeOffWindow
	err := r.db.QueryRow(ctx, query, tenantID, windowID, status).Scan(
		&window.ID,
		&window.TenantID,
		&window.CoachID,
		&window.StartsAt,
		&window.EndsAt,
		&window.Status,
		&window.Reason,
		&window.CreatedAt,
		&window.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &window, nil
}

// FirstApprovedOverlap returns the id of the earliest approved time-off
// window on the coach that intersects [startsAt, endsAt), or 0 when
// none does. Pending and rejected windows are ignored.
func (r *TimeOffRepository) FirstApprovedOverlap(
	ctx context.Context,
	coachID int64,
	startsAt time.Time,
	endsAt time.Time,
) (int64, error) {
	query := `
		SELECT id
		FROM time_off_windows
		WHERE coach_id = $1
		  AND status = 'approved'
		  AND starts_at < $3
		  AND ends_at > $2
		ORDER BY starts_at ASC, id ASC
		LIMIT 1
	`
	rows, err := r.db.Query(ctx, query, coachID, startsAt, endsAt)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, rows.Err()
	}
	var windowID int64
	if err := rows.Scan(&windowID); err != nil {
		return 0, err
	}
	return windowID, rows.Err()
}
