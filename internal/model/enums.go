package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the storage format of calendar dates (task_date columns).
const DateLayout = "2006-01-02"

// Priority ranks a task: normal, important or urgent.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityImportant
	PriorityUrgent
)

func (p Priority) Valid() bool {
	return p >= PriorityNormal && p <= PriorityUrgent
}

func (p Priority) String() string {
	switch p {
	case PriorityImportant:
		return "important"
	case PriorityUrgent:
		return "urgent"
	default:
		return "normal"
	}
}

// RecurrenceKind says how a template spawns dated instances.
type RecurrenceKind int

const (
	RecurNone RecurrenceKind = iota
	RecurDaily
	RecurWeekday
)

func (k RecurrenceKind) Valid() bool {
	return k >= RecurNone && k <= RecurWeekday
}

func (k RecurrenceKind) String() string {
	switch k {
	case RecurDaily:
		return "daily"
	case RecurWeekday:
		return "weekday"
	default:
		return "none"
	}
}

// Status of a stored instance. StatusDone means "timed at least once";
// completed tasks leave the instances table entirely.
type Status int

const (
	StatusPending Status = iota
	StatusDone
)

// FormatDate renders t as a task_date value in t's location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a task_date value in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, loc)
}

// ParsePriority accepts a priority name or its number.
func ParsePriority(value string) (Priority, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "0", "normal":
		return PriorityNormal, nil
	case "1", "important":
		return PriorityImportant, nil
	case "2", "urgent":
		return PriorityUrgent, nil
	default:
		return 0, fmt.Errorf("unknown priority %q", value)
	}
}

// ParseRecurrenceKind accepts none, daily or weekday(s).
func ParseRecurrenceKind(value string) (RecurrenceKind, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "none", "no":
		return RecurNone, nil
	case "daily":
		return RecurDaily, nil
	case "weekday", "weekdays":
		return RecurWeekday, nil
	default:
		return 0, fmt.Errorf("unknown recurrence %q", value)
	}
}
