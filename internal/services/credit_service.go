package services

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/d-krstic/StudioOpsBack/internal/models"
	"github.com/d-krstic/StudioOpsBack/internal/repository"
)

// CreditService exposes the package-level ledger operations that run
// outside a booking transaction: lookups and manual corrections.
// Reserve/release during booking and cancellation happen inside the
// booking service's transactions through the same PackageRepository.
type CreditService struct {
	db          *pgxpool.Pool
	packageRepo *repository.PackageRepository
}

func NewCreditService(db *pgxpool.Pool, packageRepo *repository.PackageRepository) *CreditService {
	return &CreditService{db: db, packageRepo: packageRepo}
}

func (s *CreditService) GetPackage(
	ctx context.Context,
	tenantID int64,
	packageID int64,
) (*models.ClientPackage, error) {
	pkg, err := s.packageRepo.GetByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if pkg.TenantID != tenantID {
		return nil, ErrForbidden
	}
	return pkg, nil
}

// Adjust applies an administrative correction of delta sessions with a
// mandatory reason. It fails with ErrInvalidAdjustment when the change
// would drive remaining below zero or above total.
func (s *CreditService) Adjust(
	ctx context.Context,
	tenantID int64,
	packageID int64,
	delta int,
	reason string,
) (*models.ClientPackage, error) {
	if delta == 0 || strings.TrimSpace(reason) == "" {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txPackageRepo := repository.NewPackageRepository(tx)

	pkg, err := txPackageRepo.GetByIDForUpdate(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if pkg.TenantID != tenantID {
		return nil, ErrForbidden
	}

	adjusted, err := txPackageRepo.AdjustCredit(ctx, packageID, delta, strings.TrimSpace(reason))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidAdjustment
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return adjusted, nil
}
