package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-tracker/internal/duration"
	"daily-tracker/internal/service"
)

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>I keep your daily tasks and time how long they take.</b>\n\n"+
			"Start with /newtask, then /today to pick something and /go to time it.\n"+
			"Send /help for every command.",
		escape(name),
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /today — today's tasks, most urgent first\n" +
		"• /newtask — add a task step by step\n" +
		"• /edit &lt;id&gt; — change a task (skip keeps a value)\n" +
		"• /go &lt;id&gt; — start timing a task\n" +
		"• /pause, /resume — pause or resume the timer\n" +
		"• /stop [summary] — stop timing, the task stays open\n" +
		"• /done [summary] — complete the task in progress\n" +
		"• /delete &lt;id&gt; — delete a task and its sessions\n" +
		"• /history [days] — completed tasks\n" +
		"• /stats [days] — totals by priority and day\n" +
		"• /report — today's summary\n" +
		"• /cancel — cancel the current input"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleReport(ctx context.Context, chatID int64) error {
	text, err := b.reminderSvc.DailySummary(ctx, b.now())
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}
	return b.sendText(chatID, text)
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64) error {
	items, err := b.taskSvc.ListToday(ctx)
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}
	if len(items) == 0 {
		return b.sendText(chatID, "Nothing planned for today. Add a task with /newtask.")
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>Today · %s</b>\n", b.taskSvc.Today()))
	builder.WriteString("▶️ starts the timer, ✅ completes, 🗑 deletes.\n\n")
	for _, item := range items {
		builder.WriteString(formatTodayItem(item))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	if markup, ok := todayKeyboard(items); ok {
		msg.ReplyMarkup = markup
	}
	_, err = b.out.Send(msg)
	return err
}

func (b *Bot) handleGo(ctx context.Context, chatID int64, args string) error {
	if args == "" {
		return b.sendText(chatID, "Give the task ID: /go 12")
	}
	id, err := parseTaskID(args, "")
	if err != nil {
		return b.sendText(chatID, "The task ID must be a number.")
	}
	return b.startTask(ctx, chatID, id, false)
}

func (b *Bot) startTask(ctx context.Context, chatID int64, id uint, confirmSwitch bool) error {
	inst, err := b.controller.StartTask(ctx, id, confirmSwitch)
	var conflict *service.ConflictError
	switch {
	case errors.As(err, &conflict):
		text := fmt.Sprintf("⏱ <b>#%d</b> %s is in progress. Switch to #%d? Time tracked so far is kept.",
			conflict.ActiveID, escape(normalizeTitle(conflict.ActiveTitle)), id)
		return b.sendWithReplyMarkup(chatID, text, switchKeyboard(id))
	case err != nil:
		return b.sendText(chatID, errorText(err))
	}

	log.Printf("[info] task started id=%d", inst.ID)
	return b.sendTimer(chatID)
}

func (b *Bot) handlePause(ctx context.Context, chatID int64) error {
	if err := b.controller.PauseTask(ctx); err != nil {
		return b.sendText(chatID, errorText(err))
	}
	b.refreshTimer()
	return b.sendText(chatID, "⏸ Paused. /resume to continue.")
}

func (b *Bot) handleResume(ctx context.Context, chatID int64) error {
	if err := b.controller.ResumeTask(ctx); err != nil {
		return b.sendText(chatID, errorText(err))
	}
	b.refreshTimer()
	return b.sendText(chatID, "▶️ Resumed.")
}

func (b *Bot) refreshTimer() {
	if snap, ok := b.controller.Snapshot(); ok {
		b.RenderTimer(snap)
	}
}

func (b *Bot) handleStop(ctx context.Context, chatID int64, summary string) error {
	snap, ok := b.controller.Snapshot()
	if !ok {
		return b.sendText(chatID, errorText(service.ErrNoActiveTask))
	}
	if err := b.controller.StopTask(ctx, summary); err != nil {
		return b.sendText(chatID, errorText(err))
	}
	b.clearTimer()

	tracked, err := b.taskSvc.TrackedTime(ctx, snap.Instance.ID)
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}
	return b.sendText(chatID, fmt.Sprintf("⏹ Stopped <b>#%d</b> %s. Tracked so far: %s.",
		snap.Instance.ID, escape(normalizeTitle(snap.Instance.Title)), duration.Human(tracked)))
}

// handleDone completes the task in progress. Without a summary it asks for
// one first.
func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message, summary string) error {
	id := b.controller.ActiveID()
	if id == 0 {
		return b.sendText(msg.Chat.ID, "No task is being timed. Use ✅ in /today to complete another task.")
	}
	if summary != "" {
		return b.completeTask(ctx, msg.Chat.ID, id, summary)
	}
	return b.askSummary(ctx, msg.Chat.ID, msg.From.ID, id)
}

func (b *Bot) askSummary(ctx context.Context, chatID, userID int64, id uint) error {
	inst, err := b.taskSvc.GetTask(ctx, id)
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}
	b.setConversation(userID, &conversationState{stage: stageSummary, completeID: id})
	text := fmt.Sprintf("📝 How did <b>%s</b> go? Send a short summary or skip.", escape(normalizeTitle(inst.Title)))
	return b.sendWithReplyMarkup(chatID, text, skipKeyboard())
}

func (b *Bot) completeTask(ctx context.Context, chatID int64, id uint, summary string) error {
	record, err := b.controller.CompleteTask(ctx, id, summary)
	if errors.Is(err, service.ErrNoActiveTask) {
		return b.sendText(chatID, "Time this task with ▶️ before completing it.")
	}
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}
	b.mu.Lock()
	if b.timer != nil && b.timer.instanceID == id {
		b.timer = nil
	}
	b.mu.Unlock()

	log.Printf("[info] task completed id=%d total=%d", id, record.TotalDuration)
	// The owner chat already got the completion notice.
	if b.targetChat() != chatID {
		if err := b.sendText(chatID, formatCompletion(*record)); err != nil {
			return err
		}
	}
	return b.sendTaskList(ctx, chatID)
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message, args string) error {
	if args == "" {
		return b.sendText(msg.Chat.ID, "Give the task ID: /delete 12")
	}
	id, err := parseTaskID(args, "")
	if err != nil {
		return b.sendText(msg.Chat.ID, "The task ID must be a number.")
	}
	return b.askDeleteConfirmation(ctx, msg.Chat.ID, msg.From.ID, id)
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, chatID, userID int64, id uint) error {
	inst, err := b.taskSvc.GetTask(ctx, id)
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}
	if b.controller.IsActive(id) {
		return b.sendText(chatID, "This task is being timed. Stop it before deleting.")
	}
	text := fmt.Sprintf("Delete task \"%s\" (#%d) with its tracked time?", escape(normalizeTitle(inst.Title)), inst.ID)
	b.setConfirmation(userID, confirmationRequest{taskID: inst.ID})
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.deleteTaskAndRefresh(ctx, msg.Chat.ID, req.taskID)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "🔹 Nothing deleted.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Confirm or cancel the deletion.", confirmKeyboard())
	}
}

func (b *Bot) deleteTaskAndRefresh(ctx context.Context, chatID int64, id uint) error {
	inst, err := b.taskSvc.DeleteTask(ctx, id)
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}

	log.Printf("[info] task deleted id=%d", inst.ID)
	if err := b.sendText(chatID, fmt.Sprintf("🗑 Task \"%s\" deleted.", escape(normalizeTitle(inst.Title)))); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID)
}

func (b *Bot) handleHistory(ctx context.Context, chatID int64, args string) error {
	days, err := parseDays(args, b.config.HistoryDays)
	if err != nil {
		return b.sendText(chatID, "Usage: /history 30")
	}
	records, err := b.taskSvc.ListHistory(ctx, days)
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}

	msg := tgbotapi.NewMessage(chatID, formatHistory(records, days))
	msg.ParseMode = tgbotapi.ModeHTML
	if markup, ok := historyKeyboard(records); ok {
		msg.ReplyMarkup = markup
	}
	_, err = b.out.Send(msg)
	return err
}

func (b *Bot) handleStats(ctx context.Context, chatID int64, args string) error {
	days, err := parseDays(args, b.config.StatsDays)
	if err != nil {
		return b.sendText(chatID, "Usage: /stats 7")
	}
	stats, err := b.taskSvc.Statistics(ctx, days)
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}
	return b.sendText(chatID, formatStatistics(stats))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || !b.allowed(cb.Message.Chat) {
		return nil
	}
	b.ack(cb)

	chatID := cb.Message.Chat.ID
	data := cb.Data
	log.Printf("[info] callback user=%d data=%s", cb.From.ID, data)

	switch {
	case strings.HasPrefix(data, cbStartPrefix):
		id, err := parseTaskID(data, cbStartPrefix)
		if err != nil {
			return nil
		}
		return b.startTask(ctx, chatID, id, false)
	case strings.HasPrefix(data, cbSwitchPrefix):
		id, err := parseTaskID(data, cbSwitchPrefix)
		if err != nil {
			return nil
		}
		return b.startTask(ctx, chatID, id, true)
	case strings.HasPrefix(data, cbCompletePrefix):
		id, err := parseTaskID(data, cbCompletePrefix)
		if err != nil {
			return nil
		}
		return b.askSummary(ctx, chatID, cb.From.ID, id)
	case strings.HasPrefix(data, cbDeletePrefix):
		id, err := parseTaskID(data, cbDeletePrefix)
		if err != nil {
			return nil
		}
		return b.askDeleteConfirmation(ctx, chatID, cb.From.ID, id)
	case strings.HasPrefix(data, cbRecordPrefix):
		id, err := parseTaskID(data, cbRecordPrefix)
		if err != nil {
			return nil
		}
		record, err := b.taskSvc.HistoryRecord(ctx, id)
		if err != nil {
			return b.sendText(chatID, errorText(err))
		}
		return b.sendText(chatID, formatRecord(*record))
	case data == cbTogglePause:
		if _, err := b.controller.TogglePause(ctx); err != nil {
			return b.sendText(chatID, errorText(err))
		}
		b.refreshTimer()
		return nil
	case data == cbStop:
		return b.handleStop(ctx, chatID, "")
	default:
		return nil
	}
}
