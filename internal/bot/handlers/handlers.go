package handlers

import (
	"context"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/eg0renkov/bot-sub000/internal/ai"
	"github.com/eg0renkov/bot-sub000/internal/format"
	"github.com/eg0renkov/bot-sub000/internal/repository"
)

type Repositories struct {
	User     *repository.UserRepository
	Reminder *repository.ReminderRepository
	Settings *repository.UserSettingsRepository
	Chat     *repository.ChatRepository
}

// Notifier wakes the scheduler so a freshly created reminder due inside the
// current poll interval is picked up immediately.
type Notifier interface {
	Notify()
}

type Handlers struct {
	api      *tgbotapi.BotAPI
	repos    *Repositories
	ai       *ai.Client
	notifier Notifier
}

func New(api *tgbotapi.BotAPI, repos *Repositories, aiClient *ai.Client, notifier Notifier) *Handlers {
	return &Handlers{
		api:      api,
		repos:    repos,
		ai:       aiClient,
		notifier: notifier,
	}
}

func (h *Handlers) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	// Ensure user exists
	if _, err := h.repos.User.GetOrCreate(ctx, msg.From.ID, msg.From.UserName); err != nil {
		log.Printf("Failed to get/create user: %v", err)
		return
	}

	switch msg.Command() {
	case "start":
		h.handleStart(ctx, msg)
	case "help":
		h.handleHelp(ctx, msg)
	case "remind":
		h.handleRemind(ctx, msg)
	case "reminders":
		h.handleReminderList(ctx, msg)
	case "done":
		h.handleDone(ctx, msg)
	case "delete":
		h.handleDelete(ctx, msg)
	case "pause":
		h.handleSetActive(ctx, msg, false)
	case "resume":
		h.handleSetActive(ctx, msg, true)
	case "stats":
		h.handleStats(ctx, msg)
	case "settings":
		h.handleSettings(ctx, msg)
	case "timezone":
		h.handleTimezone(ctx, msg)
	case "advance":
		h.handleAdvance(ctx, msg)
	case "clear":
		h.handleClearHistory(ctx, msg)
	default:
		h.sendMessage(msg.Chat.ID, "Неизвестная команда, используйте /help")
	}
}

func (h *Handlers) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if _, err := h.repos.User.GetOrCreate(ctx, msg.From.ID, msg.From.UserName); err != nil {
		log.Printf("Failed to get/create user: %v", err)
		return
	}

	h.handleChat(ctx, msg)
}

func (h *Handlers) HandleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	// Answer callback to remove loading state
	answer := tgbotapi.NewCallback(callback.ID, "")
	if _, err := h.api.Request(answer); err != nil {
		log.Printf("Failed to answer callback: %v", err)
	}

	parts := strings.Split(callback.Data, ":")

	switch parts[0] {
	case "remind_done":
		if len(parts) != 2 {
			return
		}
		reminderID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return
		}
		h.handleCompleteCallback(ctx, callback, reminderID)
	case "remind_snooze":
		if len(parts) != 3 {
			return
		}
		reminderID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return
		}
		minutes, err := strconv.Atoi(parts[2])
		if err != nil || minutes <= 0 {
			return
		}
		h.handleSnoozeCallback(ctx, callback, reminderID, minutes)
	case "settings_toggle":
		if len(parts) != 2 {
			return
		}
		h.handleSettingsToggle(ctx, callback, parts[1])
	}
}

func (h *Handlers) answerCallbackWithAlert(callbackID string, text string) {
	answer := tgbotapi.NewCallbackWithAlert(callbackID, text)
	if _, err := h.api.Request(answer); err != nil {
		log.Printf("Failed to answer callback with alert: %v", err)
	}
}

func (h *Handlers) editMessageText(chatID int64, messageID int, text string) {
	parsed := format.ParseMarkdown(text)
	edit := tgbotapi.NewEditMessageText(chatID, messageID, parsed.Text)
	edit.Entities = parsed.Entities
	if _, err := h.api.Send(edit); err != nil {
		log.Printf("Failed to edit message: %v", err)
	}
}

func (h *Handlers) sendMessage(chatID int64, text string) {
	parsed := format.ParseMarkdown(text)
	msg := tgbotapi.NewMessage(chatID, parsed.Text)
	msg.Entities = parsed.Entities
	if _, err := h.api.Send(msg); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

func (h *Handlers) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	text := `👋 Привет, ` + msg.From.FirstName + `!

Я бот-ассистент с напоминаниями.

⏰ /remind 15:30 выпить воды — создать напоминание
📋 /reminders — список напоминаний
⚙️ /settings — настройки

А ещё мне можно просто написать — отвечу как ассистент.

/help — все команды`
	h.sendMessage(msg.Chat.ID, text)
}

func (h *Handlers) handleHelp(ctx context.Context, msg *tgbotapi.Message) {
	text := `📖 **Команды**

**Напоминания**
/remind <время> <текст> — создать напоминание
/reminders — список напоминаний
/done <номер> — отметить выполненным
/pause <номер> — приостановить
/resume <номер> — возобновить
/delete <номер> — удалить
/stats — статистика

**Настройки**
/settings — уведомления, звук, сводка дня
/timezone <пояс> — часовой пояс (Europe/Moscow)
/advance <минуты> — предупреждать заранее

**Ассистент**
просто напишите сообщение — я отвечу
/clear — очистить историю диалога`
	h.sendMessage(msg.Chat.ID, text)
}
