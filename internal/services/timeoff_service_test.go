package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRequestTimeOffRejectsEmptyWindow(t *testing.T) {
	service := NewTimeOffService(nil, sameTenantResources(1, 10))
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	_, err := service.Request(context.Background(), 1, 30, start, start, nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRequestTimeOffWrongTenantCoach(t *testing.T) {
	resources := sameTenantResources(1, 10)
	resources.coach.TenantID = 2
	service := NewTimeOffService(nil, resources)
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	_, err := service.Request(context.Background(), 1, 30, start, start.AddDate(0, 0, 3), nil)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestResolveTimeOffRejectsUnknownStatus(t *testing.T) {
	service := NewTimeOffService(nil, sameTenantResources(1, 10))

	for _, status := range []string{"pending", "maybe", ""} {
		if _, err := service.Resolve(context.Background(), 1, 5, status); !errors.Is(err, ErrInvalidStatus) {
			t.Fatalf("status %q: expected ErrInvalidStatus, got %v", status, err)
		}
	}
}
