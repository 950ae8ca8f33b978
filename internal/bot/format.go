package bot

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-tracker/internal/duration"
	"daily-tracker/internal/model"
	"daily-tracker/internal/service"
)

const (
	btnSkip         = "⏭️ Skip"
	btnConfirm      = "✅ Confirm"
	btnCancel       = "↩️ Back"
	btnCancelDialog = "⏪ Cancel input"

	btnPriorityNormal    = "📌 Normal"
	btnPriorityImportant = "⭐ Important"
	btnPriorityUrgent    = "🔥 Urgent"
	btnRepeatNone        = "🚫 No repeat"
	btnRepeatDaily       = "🔄 Daily"
	btnRepeatWeekday     = "💼 Weekdays"

	menuLabelToday   = "📋 Today"
	menuLabelNewTask = "➕ New task"
	menuLabelStop    = "⏹ Stop timer"
	menuLabelStats   = "📊 Stats"
	menuLabelHistory = "🗂 History"
	menuLabelHelp    = "ℹ️ Help"

	// Telegram refuses messages above 4096 characters.
	maxHistoryRows = 25
	maxButtons     = 10
)

func escape(s string) string {
	return html.EscapeString(s)
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func parseTaskID(data, prefix string) (uint, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(data, prefix))
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}

// parseDays reads an optional day count; empty args give def.
func parseDays(args string, def int) (int, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return def, nil
	}
	days, err := strconv.Atoi(args)
	if err != nil || days < 0 {
		return 0, fmt.Errorf("days must be a non-negative number")
	}
	return days, nil
}

func parsePriority(text string) (model.Priority, bool) {
	switch strings.TrimSpace(strings.ToLower(text)) {
	case strings.ToLower(btnPriorityNormal):
		return model.PriorityNormal, true
	case strings.ToLower(btnPriorityImportant):
		return model.PriorityImportant, true
	case strings.ToLower(btnPriorityUrgent):
		return model.PriorityUrgent, true
	case "":
		return 0, false
	}
	p, err := model.ParsePriority(text)
	return p, err == nil
}

func parseRecurrence(text string) (model.RecurrenceKind, bool) {
	switch strings.TrimSpace(strings.ToLower(text)) {
	case strings.ToLower(btnRepeatNone):
		return model.RecurNone, true
	case strings.ToLower(btnRepeatDaily):
		return model.RecurDaily, true
	case strings.ToLower(btnRepeatWeekday):
		return model.RecurWeekday, true
	case "":
		return 0, false
	}
	k, err := model.ParseRecurrenceKind(text)
	return k, err == nil
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "confirm" || value == "yes"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "back" || value == "no"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "cancel"
}

// errorText turns a service error into a reply.
func errorText(err error) string {
	var conflict *service.ConflictError
	var invalid *service.ValidationError
	var storage *service.StorageError
	switch {
	case errors.As(err, &conflict):
		return fmt.Sprintf("⚠️ Task <b>#%d</b> %s is in progress. Stop or finish it first.", conflict.ActiveID, escape(normalizeTitle(conflict.ActiveTitle)))
	case errors.As(err, &invalid):
		return fmt.Sprintf("⚠️ Invalid %s: %s", escape(invalid.Field), escape(invalid.Message))
	case errors.As(err, &storage):
		return "Something went wrong, nothing was changed. Try again."
	case errors.Is(err, service.ErrNotFound):
		return "Task not found."
	case errors.Is(err, service.ErrNoSelection):
		return "Pick a task first, for example /go 3."
	case errors.Is(err, service.ErrNoActiveTask):
		return "No task is being timed."
	case errors.Is(err, service.ErrAlreadyInProgress):
		return "This task is already in progress."
	case errors.Is(err, service.ErrAlreadyPaused):
		return "The timer is already paused."
	case errors.Is(err, service.ErrNotPaused):
		return "The timer is not paused."
	default:
		return fmt.Sprintf("Error: %s", escape(err.Error()))
	}
}

func formatTodayItem(item service.TodayItem) string {
	var b strings.Builder
	inst := item.Instance
	b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s", service.PriorityIcon(inst.Priority), inst.ID, escape(normalizeTitle(inst.Title))))
	if icon := service.RecurrenceIcon(inst.RecurrenceKind); icon != "" {
		b.WriteString(" " + icon)
	}
	b.WriteByte('\n')
	if inst.Description != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(inst.Description)))
	}

	var facts []string
	if inst.EstimatedDuration > 0 {
		facts = append(facts, "⏳ "+duration.Compact(inst.EstimatedDuration))
	}
	if total := item.Total(); total > 0 {
		facts = append(facts, "⏱ "+duration.Compact(total))
	}
	switch {
	case item.Active && item.Paused:
		facts = append(facts, "⏸ paused")
	case item.Active:
		facts = append(facts, "▶️ in progress")
	}
	if len(facts) > 0 {
		b.WriteString("   " + strings.Join(facts, " · ") + "\n")
	}
	return b.String()
}

func formatTaskSaved(inst *model.TaskInstance, edited bool) string {
	var b strings.Builder
	if edited {
		b.WriteString("✏️ <b>Task updated</b>\n")
	} else {
		b.WriteString("✅ <b>Task saved</b>\n")
	}
	b.WriteString(fmt.Sprintf("• <b>ID:</b> %d\n", inst.ID))
	b.WriteString(fmt.Sprintf("• <b>Title:</b> %s\n", escape(normalizeTitle(inst.Title))))
	if inst.Description != "" {
		b.WriteString(fmt.Sprintf("• <b>Description:</b> %s\n", escape(inst.Description)))
	}
	b.WriteString(fmt.Sprintf("• <b>Date:</b> %s\n", inst.TaskDate))
	if inst.EstimatedDuration > 0 {
		b.WriteString(fmt.Sprintf("• <b>Estimate:</b> %s\n", duration.Human(inst.EstimatedDuration)))
	}
	b.WriteString(fmt.Sprintf("• <b>Priority:</b> %s %s\n", service.PriorityIcon(inst.Priority), inst.Priority))
	if inst.Recurring() {
		b.WriteString(fmt.Sprintf("• <b>Repeat:</b> %s %s\n", service.RecurrenceIcon(inst.RecurrenceKind), inst.RecurrenceKind))
	}
	return strings.TrimSpace(b.String())
}

func formatTimer(snap service.ActiveSnapshot) string {
	state := "▶️ running"
	if snap.Tracker.Paused {
		state = "⏸ paused"
	}
	return fmt.Sprintf("⏱ <b>#%d</b> %s\n<code>%s</code> · %s",
		snap.Instance.ID, escape(normalizeTitle(snap.Instance.Title)), duration.Clock(snap.Tracker.Elapsed), state)
}

func formatCompletion(record model.CompletionRecord) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🎉 <b>Completed:</b> %s\n", escape(normalizeTitle(record.Title))))
	b.WriteString(fmt.Sprintf("⏱ %s\n", duration.Human(record.TotalDuration)))
	if record.Summary != "" {
		b.WriteString(fmt.Sprintf("📝 %s\n", escape(record.Summary)))
	}
	return strings.TrimSpace(b.String())
}

func formatRecord(record model.CompletionRecord) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔎 <b>%s</b>\n", escape(normalizeTitle(record.Title))))
	if record.Description != "" {
		b.WriteString(fmt.Sprintf("📝 %s\n", escape(record.Description)))
	}
	b.WriteString(fmt.Sprintf("🗓 task date %s\n", record.TaskDate))
	b.WriteString(fmt.Sprintf("✅ completed %s\n", record.CompletedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("⏱ %s (%s)\n", duration.Human(record.TotalDuration), duration.Clock(record.TotalDuration)))
	b.WriteString(fmt.Sprintf("%s %s\n", service.PriorityIcon(record.Priority), record.Priority))
	if record.Summary != "" {
		b.WriteString(fmt.Sprintf("\n💬 %s\n", escape(record.Summary)))
	}
	return strings.TrimSpace(b.String())
}

func formatHistory(records []model.CompletionRecord, days int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗂 <b>Completed in the last %d day(s)</b>\n", days))
	if len(records) == 0 {
		b.WriteString("Nothing completed yet.")
		return b.String()
	}
	for i, record := range records {
		if i == maxHistoryRows {
			b.WriteString(fmt.Sprintf("… and %d more\n", len(records)-maxHistoryRows))
			break
		}
		b.WriteString(fmt.Sprintf("%s %s · %s · %s\n",
			service.PriorityIcon(record.Priority), record.TaskDate, escape(shortTitle(record.Title, 32)), duration.Compact(record.TotalDuration)))
	}
	return strings.TrimSpace(b.String())
}

func formatStatistics(stats service.Statistics) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>Statistics since %s</b>\n", stats.Since))
	b.WriteString(fmt.Sprintf("✅ completed: %d\n", stats.TotalCompleted))
	b.WriteString(fmt.Sprintf("⏱ time spent: %s\n", duration.Human(stats.TotalDuration)))
	if stats.Days > 0 {
		b.WriteString(fmt.Sprintf("📈 per day: %d\n", stats.AveragePerDay))
	}
	if len(stats.ByPriority) > 0 {
		b.WriteString("\n<b>By priority</b>\n")
		for _, row := range stats.ByPriority {
			b.WriteString(fmt.Sprintf("%s %s: %d · %s\n", service.PriorityIcon(row.Priority), row.Priority, row.Count, duration.Compact(row.TotalDuration)))
		}
	}
	if len(stats.ByDay) > 0 {
		b.WriteString("\n<b>By day</b>\n")
		for _, row := range stats.ByDay {
			b.WriteString(fmt.Sprintf("%s: %d · %s\n", row.TaskDate, row.Count, duration.Compact(row.TotalDuration)))
		}
	}
	return strings.TrimSpace(b.String())
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirm),
			tgbotapi.NewKeyboardButton(btnCancel),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelToday),
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelStop),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelHistory),
			tgbotapi.NewKeyboardButton(menuLabelStats),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func priorityKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnPriorityNormal),
			tgbotapi.NewKeyboardButton(btnPriorityImportant),
			tgbotapi.NewKeyboardButton(btnPriorityUrgent),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func repeatKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnRepeatNone),
			tgbotapi.NewKeyboardButton(btnRepeatDaily),
			tgbotapi.NewKeyboardButton(btnRepeatWeekday),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func timerKeyboard(snap service.ActiveSnapshot) tgbotapi.InlineKeyboardMarkup {
	pause := tgbotapi.NewInlineKeyboardButtonData("⏸ Pause", cbTogglePause)
	if snap.Tracker.Paused {
		pause = tgbotapi.NewInlineKeyboardButtonData("▶️ Resume", cbTogglePause)
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			pause,
			tgbotapi.NewInlineKeyboardButtonData("⏹ Stop", cbStop),
			tgbotapi.NewInlineKeyboardButtonData("✅ Done", fmt.Sprintf("%s%d", cbCompletePrefix, snap.Instance.ID)),
		),
	)
}

func switchKeyboard(targetID uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🔀 Switch to #%d", targetID), fmt.Sprintf("%s%d", cbSwitchPrefix, targetID)),
			tgbotapi.NewInlineKeyboardButtonData("↩️ Keep current", cbDismiss),
		),
	)
}

func todayKeyboard(items []service.TodayItem) (tgbotapi.InlineKeyboardMarkup, bool) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, item := range items {
		if len(rows) == maxButtons {
			break
		}
		id := item.Instance.ID
		var row []tgbotapi.InlineKeyboardButton
		if !item.Active {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("▶️ #%d · %s", id, shortTitle(item.Instance.Title, 16)), fmt.Sprintf("%s%d", cbStartPrefix, id)))
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("✅", fmt.Sprintf("%s%d", cbCompletePrefix, id)))
		if !item.Active {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData("🗑", fmt.Sprintf("%s%d", cbDeletePrefix, id)))
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func historyKeyboard(records []model.CompletionRecord) (tgbotapi.InlineKeyboardMarkup, bool) {
	var row []tgbotapi.InlineKeyboardButton
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, record := range records {
		if i == maxButtons {
			break
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🔎 %s", shortTitle(record.Title, 12)), fmt.Sprintf("%s%d", cbRecordPrefix, record.ID)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}
