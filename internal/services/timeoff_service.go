package services

import (
	"context"
	"time"

	"github.com/d-krstic/StudioOpsBack/internal/models"
	"github.com/d-krstic/StudioOpsBack/internal/repository"
)

// TimeOffService manages coach time-off windows. Windows start out
// pending and only constrain scheduling once approved; bookings that
// already exist inside an approved window are left alone.
type TimeOffService struct {
	timeOffRepo *repository.TimeOffRepository
	resources   resourceReader
}

func NewTimeOffService(
	timeOffRepo *repository.TimeOffRepository,
	resources resourceReader,
) *TimeOffService {
	return &TimeOffService{timeOffRepo: timeOffRepo, resources: resources}
}

func (s *TimeOffService) Request(
	ctx context.Context,
	tenantID int64,
	coachID int64,
	startsAt time.Time,
	endsAt time.Time,
	reason *string,
) (*models.TimeOffWindow, error) {
	if !startsAt.Before(endsAt) {
		return nil, ErrInvalidInput
	}
	coach, err := s.resources.GetCoach(ctx, coachID)
	if err != nil {
		return nil, err
	}
	if coach.TenantID != tenantID {
		return nil, ErrForbidden
	}

	window := &models.TimeOffWindow{
		TenantID: tenantID,
		CoachID:  coachID,
		StartsAt: startsAt,
		EndsAt:   endsAt,
		Status:   models.TimeOffStatusPending,
		Reason:   reason,
	}
	if err := s.timeOffRepo.Create(ctx, window); err != nil {
		return nil, err
	}
	return window, nil
}

func (s *TimeOffService) Resolve(
	ctx context.Context,
	tenantID int64,
	windowID int64,
	status string,
) (*models.TimeOffWindow, error) {
	if status != models.TimeOffStatusApproved && status != models.TimeOffStatusRejected {
		return nil, ErrInvalidStatus
	}
	return s.timeOffRepo.UpdateStatus(ctx, tenantID, windowID, status)
}
