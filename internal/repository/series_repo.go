package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/d-krstic/StudioOpsBack/internal/models"
)

type SeriesRepository struct {
	db DBTX
}

func NewSeriesRepository(db DBTX) *SeriesRepository {
	return &SeriesRepository{db: db}
}

func (r *SeriesRepository) Create(
	ctx context.Context,
	tenantID int64,
	rule models.RecurrenceRule,
) (*models.RecurrenceSeries, error) {
	slots, err := encodeSlots(rule.Slots)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO recurrence_series (tenant_id, pattern, end_date, slots)
		VALUES ($1, $2, $3, $4)
		RETURNING id, tenant_id, pattern, end_date, slots, created_at, updated_at
	`
	return r.scanSeries(r.db.QueryRow(ctx, query, tenantID, rule.Pattern, rule.EndDate, slots))
}

func (r *SeriesRepository) GetByID(
	ctx context.Context,
	seriesID int64,
) (*models.RecurrenceSeries, error) {
	query := `
		SELECT id, tenant_id, pattern, end_date, slots, created_at, updated_at
		FROM recurrence_series
		WHERE id = $1
	`
	return r.scanSeries(r.db.QueryRow(ctx, query, seriesID))
}

func (r *SeriesRepository) UpdateEndDate(
	ctx context.Context,
	seriesID int64,
	endDate time.Time,
) (*models.RecurrenceSeries, error) {
	query := `
		UPDATE recurrence_series
		SET end_date = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, tenant_id, pattern, end_date, slots, created_at, updated_at
	`
	return r.scanSeries(r.db.QueryRow(ctx, query, seriesID, endDate))
}

func (r *SeriesRepository) Delete(ctx context.Context, seriesID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM recurrence_series WHERE id = $1`, seriesID)
	return err
}

func (r *SeriesRepository) scanSeries(row rowScanner) (*models.RecurrenceSeries, error) {
	var series models.RecurrenceSeries
	var slots []byte
	err := row.Scan(
		&series.ID,
		&series.TenantID,
		&series.Pattern,
		&series.EndDate,
		&slots,
		&series.CreatedAt,
		&series.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(slots) > 0 {
		if err := json.Unmarshal(slots, &series.Slots); err != nil {
			return nil, err
		}
	}
	return &series, nil
}

func encodeSlots(slots []models.WeeklySlot) ([]byte, error) {
	if len(slots) == 0 {
		return nil, nil
	}
	return json.Marshal(slots)
}
