package handlers

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/eg0renkov/bot-sub000/internal/models"
	"github.com/eg0renkov/bot-sub000/internal/recurrence"
)

const defaultListLimit = 50

func (h *Handlers) handleRemind(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		h.sendMessage(msg.Chat.ID, "Укажите время и текст\nПример: /remind 15:30 позвонить маме")
		return
	}

	parts := strings.SplitN(args, " ", 2)
	if len(parts) < 2 {
		h.sendMessage(msg.Chat.ID, "Укажите время и текст\nПример: /remind 15:30 позвонить маме")
		return
	}

	remindAt, err := parseTimeToday(parts[0])
	if err != nil {
		h.sendMessage(msg.Chat.ID, "Неверный формат времени, используйте ЧЧ:ММ (например 15:30)")
		return
	}

	title, repeatType := extractRepeat(parts[1])

	reminder := &models.Reminder{
		UserID:     msg.From.ID,
		Title:      title,
		RemindAt:   remindAt,
		RepeatType: repeatType,
	}

	if err := h.repos.Reminder.Create(ctx, reminder); err != nil {
		log.Printf("Failed to create reminder: %v", err)
		h.sendMessage(msg.Chat.ID, "Не удалось создать напоминание, попробуйте позже")
		return
	}

	// Wake the scheduler in case the reminder is due within the current interval
	if h.notifier != nil {
		h.notifier.Notify()
	}

	text := fmt.Sprintf("⏰ Напоминание #%d создано\nВремя: %s\nТекст: %s",
		reminder.ReminderID, remindAt.Format("02.01.2006 15:04"), title)
	if label := recurrence.Label(repeatType, 0); label != "" {
		text += "\nПовтор: " + label
	}
	h.sendMessage(msg.Chat.ID, text)
}

// extractRepeat pulls a trailing repeat keyword off the reminder text.
// "выпить воды ежедневно" -> ("выпить воды", daily).
func extractRepeat(text string) (string, string) {
	keywords := map[string]string{
		"ежедневно":   models.RepeatDaily,
		"еженедельно": models.RepeatWeekly,
		"ежемесячно":  models.RepeatMonthly,
		"ежегодно":    models.RepeatYearly,
	}

	fields := strings.Fields(text)
	if len(fields) > 1 {
		if repeatType, ok := keywords[strings.ToLower(fields[len(fields)-1])]; ok {
			return strings.Join(fields[:len(fields)-1], " "), repeatType
		}
	}
	return text, models.RepeatNone
}

func (h *Handlers) handleReminderList(ctx context.Context, msg *tgbotapi.Message) {
	reminders, err := h.repos.Reminder.GetByUserID(ctx, msg.From.ID, true, defaultListLimit)
	if err != nil {
		log.Printf("Failed to list reminders: %v", err)
		h.sendMessage(msg.Chat.ID, "Не удалось получить список, попробуйте позже")
		return
	}

	if len(reminders) == 0 {
		h.sendMessage(msg.Chat.ID, "⏰ Активных напоминаний нет")
		return
	}

	var sb strings.Builder
	sb.WriteString("⏰ **Напоминания**\n\n")
	for _, r := range reminders {
		sb.WriteString(fmt.Sprintf("**%d.** %s\n", r.ReminderID, r.Title))
		sb.WriteString("   📅 " + r.RemindAt.Format("02.01.2006 15:04"))
		if label := recurrence.Label(r.RepeatType, r.RepeatInterval); label != "" {
			sb.WriteString(" · 🔄 " + label)
		}
		sb.WriteString("\n\n")
	}

	h.sendMessage(msg.Chat.ID, sb.String())
}

func (h *Handlers) handleDone(ctx context.Context, msg *tgbotapi.Message) {
	reminderID, ok := h.parseOwnReminderID(ctx, msg)
	if !ok {
		return
	}

	done, err := h.repos.Reminder.Complete(ctx, reminderID)
	if err != nil {
		log.Printf("Failed to complete reminder %d: %v", reminderID, err)
		h.sendMessage(msg.Chat.ID, "Не удалось отметить напоминание, попробуйте позже")
		return
	}
	if !done {
		h.sendMessage(msg.Chat.ID, "Напоминание уже выполнено")
		return
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("✅ Напоминание #%d выполнено", reminderID))
}

func (h *Handlers) handleDelete(ctx context.Context, msg *tgbotapi.Message) {
	reminderID, ok := h.parseOwnReminderID(ctx, msg)
	if !ok {
		return
	}

	deleted, err := h.repos.Reminder.Delete(ctx, reminderID, msg.From.ID)
	if err != nil {
		log.Printf("Failed to delete reminder %d: %v", reminderID, err)
		h.sendMessage(msg.Chat.ID, "Не удалось удалить напоминание, попробуйте позже")
		return
	}
	if !deleted {
		h.sendMessage(msg.Chat.ID, "Напоминание не найдено")
		return
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("🗑 Напоминание #%d удалено", reminderID))
}

// handleSetActive pauses or resumes a reminder without losing its schedule.
func (h *Handlers) handleSetActive(ctx context.Context, msg *tgbotapi.Message, active bool) {
	reminderID, ok := h.parseOwnReminderID(ctx, msg)
	if !ok {
		return
	}

	updated, err := h.repos.Reminder.Update(ctx, reminderID, msg.From.ID, models.ReminderPatch{IsActive: &active})
	if err != nil {
		log.Printf("Failed to set is_active=%v for reminder %d: %v", active, reminderID, err)
		h.sendMessage(msg.Chat.ID, "Не получилось, попробуйте позже")
		return
	}
	if !updated {
		h.sendMessage(msg.Chat.ID, "Напоминание не найдено")
		return
	}

	if active {
		// The reminder may already be inside the delivery window
		if h.notifier != nil {
			h.notifier.Notify()
		}
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("▶️ Напоминание #%d снова активно", reminderID))
		return
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("⏸ Напоминание #%d приостановлено", reminderID))
}

// parseOwnReminderID parses the command argument as a reminder id and checks
// that the reminder belongs to the sender.
func (h *Handlers) parseOwnReminderID(ctx context.Context, msg *tgbotapi.Message) (int64, bool) {
	arg := strings.TrimSpace(msg.CommandArguments())
	reminderID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		h.sendMessage(msg.Chat.ID, "Укажите номер напоминания, например: /"+msg.Command()+" 3")
		return 0, false
	}

	if _, err := h.repos.Reminder.GetByID(ctx, reminderID, msg.From.ID); err != nil {
		h.sendMessage(msg.Chat.ID, "Напоминание не найдено")
		return 0, false
	}
	return reminderID, true
}

func (h *Handlers) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	stats, err := h.repos.Reminder.Stats(ctx, msg.From.ID)
	if err != nil {
		// Degrade to the zero-filled view instead of an error screen
		log.Printf("Failed to get stats for %d: %v", msg.From.ID, err)
		stats = &models.ReminderStats{}
	}

	text := fmt.Sprintf(`📊 **Статистика**

Всего: %d
Активных: %d
Выполнено: %d
Сегодня: %d
На неделе: %d`,
		stats.Total, stats.Active, stats.Completed, stats.UpcomingToday, stats.UpcomingWeek)
	h.sendMessage(msg.Chat.ID, text)
}

func (h *Handlers) handleCompleteCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, reminderID int64) {
	if _, err := h.repos.Reminder.GetByID(ctx, reminderID, callback.From.ID); err != nil {
		h.answerCallbackWithAlert(callback.ID, "Напоминание не найдено")
		return
	}

	if _, err := h.repos.Reminder.Complete(ctx, reminderID); err != nil {
		log.Printf("Failed to complete reminder %d: %v", reminderID, err)
		h.answerCallbackWithAlert(callback.ID, "Не получилось, попробуйте ещё раз")
		return
	}

	h.editMessageText(callback.Message.Chat.ID, callback.Message.MessageID,
		fmt.Sprintf("✅ Выполнено: %s", firstLine(callback.Message.Text)))
}

func (h *Handlers) handleSnoozeCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, reminderID int64, minutes int) {
	if _, err := h.repos.Reminder.GetByID(ctx, reminderID, callback.From.ID); err != nil {
		h.answerCallbackWithAlert(callback.ID, "Напоминание не найдено")
		return
	}

	until := time.Now().Add(time.Duration(minutes) * time.Minute)
	if _, err := h.repos.Reminder.Snooze(ctx, reminderID, until); err != nil {
		log.Printf("Failed to snooze reminder %d: %v", reminderID, err)
		h.answerCallbackWithAlert(callback.ID, "Не получилось, попробуйте ещё раз")
		return
	}

	h.editMessageText(callback.Message.Chat.ID, callback.Message.MessageID,
		fmt.Sprintf("💤 Отложено до %s", until.Format("15:04")))
}

// firstLine trims a delivered notification down to its headline for the
// edited confirmation message.
func firstLine(text string) string {
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "⏰") {
			return line
		}
	}
	return ""
}

// parseTimeToday parses "HH:MM" as today's time, rolling to tomorrow when
// the time has already passed.
func parseTimeToday(timeStr string) (time.Time, error) {
	now := time.Now()
	t, err := time.Parse("15:04", timeStr)
	if err != nil {
		return time.Time{}, err
	}

	result := time.Date(now.Year(), now.Month(), now.Day(),
		t.Hour(), t.Minute(), 0, 0, now.Location())

	if result.Before(now) {
		result = result.Add(24 * time.Hour)
	}

	return result, nil
}
