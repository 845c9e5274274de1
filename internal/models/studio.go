package models

import "time"

type Studio struct {
	ID                    int64     `json:"id"`
	TenantID              int64     `json:"tenant_id"`
	Name                  string    `json:"name"`
	AllowCrossStudioStaff bool      `json:"allow_cross_studio_staff"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// StudioHours is one weekday's opening window. OpensAt/ClosesAt are
// minutes since midnight; a studio with no row for a weekday is closed
// that day.
type StudioHours struct {
	StudioID int64 `json:"studio_id"`
	Weekday  int   `json:"weekday"`
	OpensAt  int   `json:"opens_at"`
	ClosesAt int   `json:"closes_at"`
}

type Room struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	StudioID  int64     `json:"studio_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Coach struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	StudioID  int64     `json:"studio_id"`
	UserID    *int64    `json:"user_id,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Client struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	StudioID  int64     `json:"studio_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
