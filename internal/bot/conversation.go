package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-tracker/internal/duration"
	"daily-tracker/internal/model"
	"daily-tracker/internal/service"
)

func (b *Bot) startNewTaskConversation(msg *tgbotapi.Message) error {
	log.Printf("[info] start new task conversation user=%d", msg.From.ID)
	b.clearConfirmation(msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New task.\n<b>Step 1:</b> what should it be called?", cancelKeyboard())
}

// startEditConversation walks the same steps as a new task, prefilled with
// the current values. Skipping a step keeps the value.
func (b *Bot) startEditConversation(ctx context.Context, msg *tgbotapi.Message, args string) error {
	if args == "" {
		return b.sendText(msg.Chat.ID, "Give the task ID: /edit 12")
	}
	id, err := parseTaskID(args, "")
	if err != nil {
		return b.sendText(msg.Chat.ID, "The task ID must be a number.")
	}
	inst, err := b.taskSvc.GetTask(ctx, id)
	if err != nil {
		return b.sendText(msg.Chat.ID, errorText(err))
	}
	if b.controller.IsActive(id) {
		return b.sendText(msg.Chat.ID, "This task is being timed. Stop it before editing.")
	}

	log.Printf("[info] start edit conversation user=%d task=%d", msg.From.ID, id)
	b.clearConfirmation(msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{
		stage:  stageTitle,
		editID: id,
		input: service.TaskInput{
			Title:            inst.Title,
			Description:      inst.Description,
			EstimatedMinutes: estimateMinutes(inst.EstimatedDuration),
			Priority:         inst.Priority,
			Recurrence:       inst.RecurrenceKind,
		},
	})
	text := fmt.Sprintf("✏️ Editing <b>#%d</b> %s.\n<b>Step 1:</b> new title?", id, escape(normalizeTitle(inst.Title)))
	return b.sendWithReplyMarkup(msg.Chat.ID, text, skipKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	editing := state.editID != 0
	text := strings.TrimSpace(msg.Text)
	skip := isSkipInput(text)

	switch state.stage {
	case stageTitle:
		switch {
		case skip && editing:
		case text == "" || skip:
			return b.sendWithReplyMarkup(msg.Chat.ID, "The title cannot be empty. What should the task be called?", cancelKeyboard())
		default:
			state.input.Title = text
		}
		state.stage = stageDescription
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ Add a short description (or skip).", skipKeyboard())
	case stageDescription:
		if !skip {
			state.input.Description = text
		} else if !editing {
			state.input.Description = ""
		}
		if editing {
			state.stage = stageEstimate
			return b.sendWithReplyMarkup(msg.Chat.ID, estimatePrompt, skipKeyboard())
		}
		state.stage = stageDate
		return b.sendWithReplyMarkup(msg.Chat.ID, fmt.Sprintf("🗓 Which day? Send <code>%s</code> or skip for today.", b.taskSvc.Today()), skipKeyboard())
	case stageDate:
		if !skip {
			if _, err := model.ParseDate(text, b.now().Location()); err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "I cannot read that date. Use <code>2026-10-14</code> or skip.", skipKeyboard())
			}
			state.input.TaskDate = text
		}
		state.stage = stageEstimate
		return b.sendWithReplyMarkup(msg.Chat.ID, estimatePrompt, skipKeyboard())
	case stageEstimate:
		if !skip {
			if _, err := duration.ParseMinutes(text); err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "The estimate is a whole number of minutes, for example 45.", skipKeyboard())
			}
			state.input.EstimatedMinutes = text
		}
		state.stage = stagePriority
		return b.sendWithReplyMarkup(msg.Chat.ID, "🚦 How important is it?", priorityKeyboard())
	case stagePriority:
		if !skip {
			priority, ok := parsePriority(text)
			if !ok {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Pick one of the buttons.", priorityKeyboard())
			}
			state.input.Priority = priority
		}
		state.stage = stageRepeat
		return b.sendWithReplyMarkup(msg.Chat.ID, "🔁 Should it repeat?", repeatKeyboard())
	case stageRepeat:
		if !skip {
			kind, ok := parseRecurrence(text)
			if !ok {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Pick one of the buttons.", repeatKeyboard())
			}
			state.input.Recurrence = kind
		}
		b.clearConversation(msg.From.ID)
		return b.finishTask(ctx, msg.Chat.ID, state)
	case stageSummary:
		b.clearConversation(msg.From.ID)
		summary := text
		if skip {
			summary = ""
		}
		return b.completeTask(ctx, msg.Chat.ID, state.completeID, summary)
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Input reset. Try /newtask again.")
	}
}

const estimatePrompt = "⏳ Estimated time in minutes (or skip)."

func (b *Bot) finishTask(ctx context.Context, chatID int64, state *conversationState) error {
	var (
		inst *model.TaskInstance
		err  error
	)
	if state.editID != 0 {
		inst, err = b.taskSvc.EditTask(ctx, state.editID, state.input)
	} else {
		inst, err = b.taskSvc.CreateTask(ctx, state.input)
	}
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}

	log.Printf("[info] task saved id=%d recurrence=%s edited=%t", inst.ID, inst.RecurrenceKind, state.editID != 0)
	if err := b.sendText(chatID, formatTaskSaved(inst, state.editID != 0)); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID)
}

// estimateMinutes renders a stored estimate back as conversation input.
func estimateMinutes(seconds int64) string {
	if seconds <= 0 {
		return ""
	}
	return strconv.FormatInt(seconds/60, 10)
}
