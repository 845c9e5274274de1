package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/d-krstic/StudioOpsBack/internal/models"
)

// OccurrenceWindow is one concrete window of an expanded series.
type OccurrenceWindow struct {
	StartsAt time.Time
	EndsAt   time.Time
}

// ExpandOccurrences turns a seed window and a recurrence rule into the
// ordered list of occurrence windows, seed first, bounded by the rule's
// end date (inclusive, compared by calendar date). Fixed patterns step
// from the seed preserving time-of-day and duration; the variable
// pattern instead emits one occurrence per listed (weekday, start-time)
// slot per week, on or after the seed date, using the seed's duration.
func ExpandOccurrences(
	seedStart time.Time,
	seedEnd time.Time,
	rule models.RecurrenceRule,
) ([]OccurrenceWindow, error) {
	if !seedStart.Before(seedEnd) {
		return nil, fmt.Errorf("seed window is empty")
	}
	if rule.Pattern == models.RecurrenceVariable {
		return expandVariable(seedStart, seedEnd, rule)
	}

	duration := seedEnd.Sub(seedStart)
	endDate := dateOf(rule.EndDate, seedStart.Location())

	var step func(time.Time) time.Time
	switch rule.Pattern {
	case models.RecurrenceDaily:
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	case models.RecurrenceWeekly:
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }
	case models.RecurrenceBiweekly:
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 14) }
	case models.RecurrenceMonthly:
		step = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
	default:
		return nil, fmt.Errorf("unknown recurrence pattern %q", rule.Pattern)
	}

	occurrences := make([]OccurrenceWindow, 0)
	for start := seedStart; !dateOf(start, start.Location()).After(endDate); start = step(start) {
		occurrences = append(occurrences, OccurrenceWindow{
			StartsAt: start,
			EndsAt:   start.Add(duration),
		})
	}
	return occurrences, nil
}

func expandVariable(
	seedStart time.Time,
	seedEnd time.Time,
	rule models.RecurrenceRule,
) ([]OccurrenceWindow, error) {
	if len(rule.Slots) == 0 {
		return nil, fmt.Errorf("variable pattern requires at least one slot")
	}

	duration := seedEnd.Sub(seedStart)
	loc := seedStart.Location()
	seedDate := dateOf(seedStart, loc)
	endDate := dateOf(rule.EndDate, loc)

	type slotTime struct {
		weekday      time.Weekday
		hour, minute int
	}
	slots := make([]slotTime, 0, len(rule.Slots))
	for _, slot := range rule.Slots {
		if slot.Weekday < 0 || slot.Weekday > 6 {
			return nil, fmt.Errorf("slot weekday %d out of range", slot.Weekday)
		}
		hour, minute, err := parseClock(slot.StartTime)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slotTime{time.Weekday(slot.Weekday), hour, minute})
	}

	occurrences := make([]OccurrenceWindow, 0)
	for day := seedDate; !day.After(endDate); day = day.AddDate(0, 0, 1) {
		for _, slot := range slots {
			if day.Weekday() != slot.weekday {
				continue
			}
			start := time.Date(day.Year(), day.Month(), day.Day(), slot.hour, slot.minute, 0, 0, loc)
			if start.Before(seedStart) {
				continue
			}
			occurrences = append(occurrences, OccurrenceWindow{
				StartsAt: start,
				EndsAt:   start.Add(duration),
			})
		}
	}
	sort.Slice(occurrences, func(i, j int) bool {
		return occurrences[i].StartsAt.Before(occurrences[j].StartsAt)
	})
	return occurrences, nil
}

func parseClock(value string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour, minute, nil
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
