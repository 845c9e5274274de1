package models

import "time"

const (
	RecurrenceDaily    = "daily"
	RecurrenceWeekly   = "weekly"
	RecurrenceBiweekly = "biweekly"
	RecurrenceMonthly  = "monthly"
	RecurrenceVariable = "variable"
)

// WeeklySlot is one explicit slot of a variable-pattern rule.
// StartTime is "HH:MM" in the studio's clock.
type WeeklySlot struct {
	Weekday   int    `json:"weekday"`
	StartTime string `json:"start_time"`
}

type RecurrenceRule struct {
	Pattern string       `json:"pattern"`
	EndDate time.Time    `json:"end_date"`
	Slots   []WeeklySlot `json:"slots,omitempty"`
}

type RecurrenceSeries struct {
	ID        int64        `json:"id"`
	TenantID  int64        `json:"tenant_id"`
	Pattern   string       `json:"pattern"`
	EndDate   time.Time    `json:"end_date"`
	Slots     []WeeklySlot `json:"slots,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func ValidRecurrencePattern(pattern string) bool {
	switch pattern {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceBiweekly, RecurrenceMonthly, RecurrenceVariable:
		return true
	default:
		return false
	}
}
