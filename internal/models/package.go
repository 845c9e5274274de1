package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PackageStatusActive   = "active"
	PackageStatusExpired  = "expired"
	PackageStatusDepleted = "depleted"
)

const (
	ReservationStatusHeld     = "held"
	ReservationStatusReleased = "released"
)

// ClientPackage is a prepaid block of sessions. The ledger invariant
// sessions_remaining + sessions_used == sessions_total holds outside of
// in-flight adjustments, and sessions_remaining never goes negative.
// Booking code mutates it only through the credit ledger operations.
type ClientPackage struct {
	ID                int64      `json:"id"`
	TenantID          int64      `json:"tenant_id"`
	ClientID          int64      `json:"client_id"`
	PackageID         int64      `json:"package_id"`
	SessionsTotal     int        `json:"sessions_total"`
	SessionsRemaining int        `json:"sessions_remaining"`
	SessionsUsed      int        `json:"sessions_used"`
	Status            string     `json:"status"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// CreditReservation binds exactly one booking (session or participant
// slot) to one credit debit. Release is keyed by the reservation id and
// is idempotent: a released reservation stays released.
type CreditReservation struct {
	ID              uuid.UUID  `json:"id"`
	ClientPackageID int64      `json:"client_package_id"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	ReleasedAt      *time.Time `json:"released_at,omitempty"`
}

type CreditAdjustment struct {
	ID              int64     `json:"id"`
	ClientPackageID int64     `json:"client_package_id"`
	Delta           int       `json:"delta"`
	Reason          string    `json:"reason"`
	CreatedAt       time.Time `json:"created_at"`
}
