package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"daily-tracker/internal/duration"
	"daily-tracker/internal/model"
)

// ReminderService builds human-readable summaries for periodic notifications.
type ReminderService struct {
	taskSvc *TaskService
}

func NewReminderService(taskSvc *TaskService) *ReminderService {
	return &ReminderService{taskSvc: taskSvc}
}

// DailySummary lists today's open tasks and what has been completed so far.
// The text is Telegram HTML.
func (s *ReminderService) DailySummary(ctx context.Context, now time.Time) (string, error) {
	items, err := s.taskSvc.ListForDate(ctx, model.FormatDate(now))
	if err != nil {
		return "", err
	}
	stats, err := s.taskSvc.Statistics(ctx, 0)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily report</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("Mon, 02 Jan 2006")))

	builder.WriteString("🔥 <b>Open tasks</b>\n")
	if len(items) == 0 {
		builder.WriteString("— nothing left for today\n")
	} else {
		for _, item := range items {
			builder.WriteString(formatSummaryItem(item))
		}
	}

	builder.WriteString("\n✅ <b>Done today</b>\n")
	if stats.TotalCompleted == 0 {
		builder.WriteString("— no completed tasks yet\n")
	} else {
		builder.WriteString(fmt.Sprintf("%d task(s), %s\n", stats.TotalCompleted, duration.Human(stats.TotalDuration)))
	}

	return strings.TrimSpace(builder.String()), nil
}

// PriorityIcon marks normal, important and urgent tasks.
func PriorityIcon(p model.Priority) string {
	switch p {
	case model.PriorityImportant:
		return "⭐"
	case model.PriorityUrgent:
		return "🔥"
	default:
		return "📌"
	}
}

// RecurrenceIcon is empty for one-off tasks.
func RecurrenceIcon(k model.RecurrenceKind) string {
	switch k {
	case model.RecurDaily:
		return "🔄"
	case model.RecurWeekday:
		return "💼"
	default:
		return ""
	}
}

func formatSummaryItem(item TodayItem) string {
	var sb strings.Builder
	inst := item.Instance
	sb.WriteString(fmt.Sprintf("%s %s", PriorityIcon(inst.Priority), html.EscapeString(strings.TrimSpace(inst.Title))))
	if icon := RecurrenceIcon(inst.RecurrenceKind); icon != "" {
		sb.WriteString(" " + icon)
	}
	if inst.EstimatedDuration > 0 {
		sb.WriteString(fmt.Sprintf("\n   ⏳ estimate %s", duration.Human(inst.EstimatedDuration)))
	}
	if total := item.Total(); total > 0 {
		sb.WriteString(fmt.Sprintf("\n   ⏱ spent %s", duration.Human(total)))
	}
	sb.WriteByte('\n')
	return sb.String()
}
