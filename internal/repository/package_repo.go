package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/d-krstic/StudioOpsBack/internal/models"
)

// PackageRepository is the storage side of the credit ledger. The
// client_packages row is only ever mutated through these conditional
// updates; no other code writes the counters directly.
type PackageRepository struct {
	db DBTX
}

func NewPackageRepository(db DBTX) *PackageRepository {
	return &PackageRepository{db: db}
}

func (r *PackageRepository) GetByID(
	ctx context.Context,
	packageID int64,
) (*models.ClientPackage, error) {
	query := `
		SELECT id, tenant_id, client_id, package_id, sessions_total,
		       sessions_remaining, sessions_used, status, expires_at,
		       created_at, updated_at
		FROM client_packages
		WHERE id = $1
	`
	return r.scanPackage(r.db.QueryRow(ctx, query, packageID))
}

func (r *PackageRepository) GetByIDForUpdate(
	ctx context.Context,
	packageID int64,
) (*models.ClientPackage, error) {
	query := `
		SELECT id, tenant_id, client_id, package_id, sessions_total,
		       sessions_remaining, sessions_used, status, expires_at,
		       created_at, updated_at
		FROM client_packages
		WHERE id = $1
		FOR UPDATE
	`
	return r.scanPackage(r.db.QueryRow(ctx, query, packageID))
}

// ReserveCredit debits one session from the package and records a held
// reservation, all conditionally: the update matches zero rows when the
// package is inactive, expired, or out of credit, in which case
// pgx.ErrNoRows is returned and nothing is written.
func (r *PackageRepository) ReserveCredit(
	ctx context.Context,
	packageID int64,
	now time.Time,
) (*models.CreditReservation, error) {
	debit := `
		UPDATE client_packages
		SET sessions_remaining = sessions_remaining - 1,
		    sessions_used = sessions_used + 1,
		    status = CASE WHEN sessions_remaining - 1 = 0 THEN 'depleted' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'active'
		  AND sessions_remaining > 0
		  AND (expires_at IS NULL OR expires_at > $2)
		RETURNING id
	`
	var debitedID int64
	if err := r.db.QueryRow(ctx, debit, packageID, now).Scan(&debitedID); err != nil {
		return nil, err
	}

	insert := `
		INSERT INTO credit_reservations (id, client_package_id, status)
		VALUES ($1, $2, 'held')
		RETURNING id, client_package_id, status, created_at, released_at
	`
	var reservation models.CreditReservation
	err := r.db.QueryRow(ctx, insert, uuid.New(), packageID).Scan(
		&reservation.ID,
		&reservation.ClientPackageID,
		&reservation.Status,
		&reservation.CreatedAt,
		&reservation.ReleasedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// ReleaseCredit returns the credit a held reservation consumed.
// Releasing a reservation that is already released, or that never
// existed, is a no-op: the held->released flip matches zero rows and
// the package is left untouched, which is what makes retried deletes
// safe. The refund is clamped so remaining never exceeds total.
func (r *PackageRepository) ReleaseCredit(
	ctx context.Context,
	reservationID uuid.UUID,
) (bool, error) {
	flip := `
		UPDATE credit_reservations
		SET status = 'released', released_at = NOW()
		WHERE id = $1 AND status = 'held'
		RETURNING client_package_id
	`
	rows, err := r.db.Query(ctx, flip, reservationID)
	if err != nil {
		return false, err
	}
	var packageID int64
	found := false
	if rows.Next() {
		if err := rows.Scan(&packageID); err != nil {
			rows.Close()
			return false, err
		}
		found = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	refund := `
		UPDATE client_packages
		SET sessions_remaining = LEAST(sessions_remaining + 1, sessions_total),
		    sessions_used = GREATEST(sessions_used - 1, 0),
		    status = CASE WHEN status = 'depleted' THEN 'active' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, refund, packageID); err != nil {
		return false, err
	}
	return true, nil
}

// AdjustCredit applies a manual correction of delta sessions, moving
// credit between remaining and used so the ledger invariant holds. The
// update matches zero rows when the correction would push remaining
// below zero, above total, or used below zero.
func (r *PackageRepository) AdjustCredit(
	ctx context.Context,
	packageID int64,
	delta int,
	reason string,
) (*models.ClientPackage, error) {
	adjust := `
		UPDATE client_packages
		SET sessions_remaining = sessions_remaining + $2,
		    sessions_used = sessions_used - $2,
		    status = CASE
		        WHEN sessions_remaining + $2 = 0 THEN 'depleted'
		        WHEN status = 'depleted' THEN 'active'
		        ELSE status
		    END,
		    updated_at = NOW()
		WHERE id = $1
		  AND sessions_remaining + $2 >= 0
		  AND sessions_remaining + $2 <= sessions_total
		  AND sessions_used - $2 >= 0
		RETURNING id, tenant_id, client_id, package_id, sessions_total,
		          sessions_remaining, sessions_used, status, expires_at,
		          created_at, updated_at
	`
	pkg, err := r.scanPackage(r.db.QueryRow(ctx, adjust, packageID, delta))
	if err != nil {
		return nil, err
	}

	audit := `
		INSERT INTO credit_adjustments (client_package_id, delta, reason)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.Exec(ctx, audit, packageID, delta, reason); err != nil {
		return nil, err
	}
	return pkg, nil
}

func (r *PackageRepository) GetReservation(
	ctx context.Context,
	reservationID uuid.UUID,
) (*models.CreditReservation, error) {
	query := `
		SELECT id, client_package_id, status, created_at, released_at
		FROM credit_reservations
		WHERE id = $1
	`
	var reservation models.CreditReservation
	err := r.db.QueryRow(ctx, query, reservationID).Scan(
		&reservation.ID,
		&reservation.ClientPackageID,
		&reservation.Status,
		&reservation.CreatedAt,
		&reservation.ReleasedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *PackageRepository) scanPackage(row pgx.Row) (*models.ClientPackage, error) {
	var pkg models.ClientPackage
	err := row.Scan(
		&pkg.ID,
		&pkg.TenantID,
		&pkg.ClientID,
		&pkg.PackageID,
		&pkg.SessionsTotal,
		&pkg.SessionsRemaining,
		&pkg.SessionsUsed,
		&pkg.Status,
		&pkg.ExpiresAt,
		&pkg.CreatedAt,
		&pkg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}
