package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-tracker/internal/config"
	"daily-tracker/internal/model"
	"daily-tracker/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageDescription
	stageDate
	stageEstimate
	stagePriority
	stageRepeat
	stageSummary
)

const (
	cbStartPrefix    = "go:"
	cbCompletePrefix = "complete:"
	cbDeletePrefix   = "delete:"
	cbSwitchPrefix   = "switch:"
	cbRecordPrefix   = "record:"
	cbTogglePause    = "pause"
	cbStop           = "stop"
	cbDismiss        = "dismiss"
)

type conversationState struct {
	stage conversationStage
	input service.TaskInput
	// editID is set when the conversation edits an existing task.
	editID uint
	// completeID is the task waiting for a completion summary.
	completeID uint
}

type confirmationRequest struct {
	taskID uint
}

// timerMessage is the chat message kept in sync with the running timer.
type timerMessage struct {
	chatID     int64
	messageID  int
	instanceID uint
	lastText   string
}

// sender is the part of the Telegram API the handlers use.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           *tgbotapi.BotAPI
	out           sender
	taskSvc       *service.TaskService
	controller    *service.Controller
	reminderSvc   *service.ReminderService
	config        config.Config
	now           func() time.Time
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	timer         *timerMessage
	lastChat      int64
	mu            sync.Mutex
}

func New(token string, taskSvc *service.TaskService, controller *service.Controller, reminderSvc *service.ReminderService, cfg config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	b := newBot(api, taskSvc, controller, reminderSvc, cfg)
	b.api = api
	return b, nil
}

func newBot(out sender, taskSvc *service.TaskService, controller *service.Controller, reminderSvc *service.ReminderService, cfg config.Config) *Bot {
	return &Bot{
		out:           out,
		taskSvc:       taskSvc,
		controller:    controller,
		reminderSvc:   reminderSvc,
		config:        cfg,
		now:           time.Now,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return nil
}

// allowed reports whether a chat may drive the tracker. Without a configured
// owner any private chat may.
func (b *Bot) allowed(chat *tgbotapi.Chat) bool {
	if chat == nil || !chat.IsPrivate() {
		return false
	}
	return b.config.OwnerChatID == 0 || chat.ID == b.config.OwnerChatID
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || !b.allowed(msg.Chat) {
		return nil
	}
	b.rememberChat(msg.Chat.ID)

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(msg.From.ID) {
		log.Printf("[info] conversation step %d from %d", b.getConversation(msg.From.ID).stage, msg.From.ID)
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I did not get that. Send /newtask to add a task or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "today", "tasks":
		return b.sendTaskList(ctx, msg.Chat.ID)
	case "newtask":
		return b.startNewTaskConversation(msg)
	case "edit":
		return b.startEditConversation(ctx, msg, args)
	case "go":
		return b.handleGo(ctx, msg.Chat.ID, args)
	case "pause":
		return b.handlePause(ctx, msg.Chat.ID)
	case "resume":
		return b.handleResume(ctx, msg.Chat.ID)
	case "stop":
		return b.handleStop(ctx, msg.Chat.ID, args)
	case "done":
		return b.handleDone(ctx, msg, args)
	case "delete":
		return b.handleDelete(ctx, msg, args)
	case "history":
		return b.handleHistory(ctx, msg.Chat.ID, args)
	case "stats":
		return b.handleStats(ctx, msg.Chat.ID, args)
	case "report":
		return b.handleReport(ctx, msg.Chat.ID)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelToday):
		return true, b.sendTaskList(ctx, msg.Chat.ID)
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(msg)
	case strings.ToLower(menuLabelStop):
		return true, b.handleStop(ctx, msg.Chat.ID, "")
	case strings.ToLower(menuLabelHistory):
		return true, b.handleHistory(ctx, msg.Chat.ID, "")
	case strings.ToLower(menuLabelStats):
		return true, b.handleStats(ctx, msg.Chat.ID, "")
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

// NotifyCompleted sends a completion notice to the owner chat.
func (b *Bot) NotifyCompleted(_ context.Context, record model.CompletionRecord) error {
	chatID := b.targetChat()
	if chatID == 0 {
		return nil
	}
	return b.sendText(chatID, formatCompletion(record))
}

// SendDailyReports sends today's summary to the owner chat.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	chatID := b.targetChat()
	if chatID == 0 {
		log.Println("[info] no chat to report to yet")
		return nil
	}
	text, err := b.reminderSvc.DailySummary(ctx, b.now())
	if err != nil {
		return fmt.Errorf("build summary: %w", err)
	}
	if err := b.sendText(chatID, text); err != nil {
		return fmt.Errorf("send summary to %d: %w", chatID, err)
	}
	return nil
}

// RenderTimer refreshes the live timer message. It is the display
// refresher's render callback.
func (b *Bot) RenderTimer(snap service.ActiveSnapshot) {
	b.mu.Lock()
	timer := b.timer
	if timer == nil || timer.instanceID != snap.Instance.ID {
		b.mu.Unlock()
		return
	}
	text := formatTimer(snap)
	if text == timer.lastText {
		b.mu.Unlock()
		return
	}
	chatID, messageID := timer.chatID, timer.messageID
	b.mu.Unlock()

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, timerKeyboard(snap))
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.out.Request(edit); err != nil {
		log.Printf("refresh timer message: %v", err)
		return
	}

	b.mu.Lock()
	if b.timer != nil && b.timer.messageID == messageID {
		b.timer.lastText = text
	}
	b.mu.Unlock()
}

// sendTimer posts a fresh timer message for the task in progress.
func (b *Bot) sendTimer(chatID int64) error {
	snap, ok := b.controller.Snapshot()
	if !ok {
		return nil
	}
	text := formatTimer(snap)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = timerKeyboard(snap)
	sent, err := b.out.Send(msg)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.timer = &timerMessage{chatID: chatID, messageID: sent.MessageID, instanceID: snap.Instance.ID, lastText: text}
	b.mu.Unlock()
	return nil
}

func (b *Bot) clearTimer() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timer = nil
}

func (b *Bot) rememberChat(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastChat = chatID
}

func (b *Bot) targetChat() int64 {
	if b.config.OwnerChatID != 0 {
		return b.config.OwnerChatID
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastChat
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) ack(cb *tgbotapi.CallbackQuery) {
	if _, err := b.out.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}
