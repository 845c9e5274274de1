package models

import "time"

const (
	TimeOffStatusPending  = "pending"
	TimeOffStatusApproved = "approved"
	TimeOffStatusRejected = "rejected"
)

// TimeOffWindow blocks a coach's availability while approved. Pending
// and rejected windows never constrain scheduling.
type TimeOffWindow struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	CoachID   int64     `json:"coach_id"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Status    string    `json:"status"`
	Reason    *string   `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
