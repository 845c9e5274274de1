package repository

import (
	"context"
	"time"

	"github.com/d-krstic/StudioOpsBack/internal/models"
)

// ResourceRepository resolves the bookable resources a session refers
// to, so the booking service can verify tenant and studio ownership
// before any conflict check runs.
type ResourceRepository struct {
	db DBTX
}

func NewResourceRepository(db DBTX) *ResourceRepository {
	return &ResourceRepository{db: db}
}

func (r *ResourceRepository) GetStudio(ctx context.Context, studioID int64) (*models.Studio, error) {
	query := `
		SELECT id, tenant_id, name, allow_cross_studio_staff, created_at, updated_at
		FROM studios
		WHERE id = $1
	`
	var studio models.Studio
	err := r.db.QueryRow(ctx, query, studioID).Scan(
		&studio.ID,
		&studio.TenantID,
		&studio.Name,
		&studio.AllowCrossStudioStaff,
		&studio.CreatedAt,
		&studio.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &studio, nil
}

func (r *ResourceRepository) GetRoom(ctx context.Context, roomID int64) (*models.Room, error) {
	query := `
		SELECT id, tenant_id, studio_id, name, created_at, updated_at
		FROM rooms
		WHERE id = $1
	`
	var room models.Room
	err := r.db.QueryRow(ctx, query, roomID).Scan(
		&room.ID,
		&room.TenantID,
		&room.StudioID,
		&room.Name,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *ResourceRepository) GetCoach(ctx context.Context, coachID int64) (*models.Coach, error) {
	query := `
		SELECT id, tenant_id, studio_id, user_id, name, created_at, updated_at
		FROM coaches
		WHERE id = $1
	`
	var coach models.Coach
	err := r.db.QueryRow(ctx, query, coachID).Scan(
		&coach.ID,
		&coach.TenantID,
		&coach.StudioID,
		&coach.UserID,
		&coach.Name,
		&coach.CreatedAt,
		&coach.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &coach, nil
}

func (r *ResourceRepository) GetClient(ctx context.Context, clientID int64) (*models.Client, error) {
	query := `
		SELECT id, tenant_id, studio_id, name, created_at, updated_at
		FROM clients
		WHERE id = $1
	`
	var client models.Client
	err := r.db.QueryRow(ctx, query, clientID).Scan(
		&client.ID,
		&client.TenantID,
		&client.StudioID,
		&client.Name,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// GetStudioHours returns the opening window for one weekday, or
// pgx.ErrNoRows when the studio is closed that day.
func (r *ResourceRepository) GetStudioHours(
	ctx context.Context,
	studioID int64,
	weekday time.Weekday,
) (*models.StudioHours, error) {
	query := `
		SELECT studio_id, weekday, opens_at, closes_at
		FROM studio_hours
		WHERE studio_id = $1 AND weekday = $2
	`
	var hours models.StudioHours
	err := r.db.QueryRow(ctx, query, studioID, int(weekday)).Scan(
		&hours.StudioID,
		&hours.Weekday,
		&hours.OpensAt,
		&hours.ClosesAt,
	)
	if err != nil {
		return nil, err
	}
	return &hours, nil
}
