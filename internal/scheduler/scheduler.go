package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/eg0renkov/bot-sub000/internal/format"
	"github.com/eg0renkov/bot-sub000/internal/models"
	"github.com/eg0renkov/bot-sub000/internal/recurrence"
)

// ReminderStore is the slice of the reminder repository the scheduler needs.
type ReminderStore interface {
	GetDueReminders(ctx context.Context, window time.Duration) ([]*models.Reminder, error)
	MarkNotified(ctx context.Context, reminderID int64) (bool, error)
	Snooze(ctx context.Context, reminderID int64, until time.Time) (bool, error)
	GetTodayAgenda(ctx context.Context, userID int64, endOfDay time.Time) ([]*models.Reminder, error)
}

// SettingsStore is the slice of the settings repository the scheduler needs.
type SettingsStore interface {
	GetByUserID(ctx context.Context, userID int64) (*models.UserSettings, error)
	UsersWithDailySummary(ctx context.Context) ([]int64, error)
	SetLastSummaryDate(ctx context.Context, userID int64, at time.Time) error
}

// Sender sends Telegram messages. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Scheduler struct {
	api           Sender
	reminders     ReminderStore
	settings      SettingsStore
	checkInterval time.Duration
	window        time.Duration
	notifyCh      chan struct{}
	running       atomic.Bool
}

func New(api Sender, reminders ReminderStore, settings SettingsStore, checkInterval, window time.Duration) *Scheduler {
	if checkInterval <= 0 {
		checkInterval = time.Minute
	}
	// The lookahead window must cover at least one full poll interval,
	// otherwise a reminder due between two ticks is never seen.
	if window < checkInterval {
		window = 5 * checkInterval
	}

	return &Scheduler{
		api:           api,
		reminders:     reminders,
		settings:      settings,
		checkInterval: checkInterval,
		window:        window,
		notifyCh:      make(chan struct{}, 1),
	}
}

// Notify triggers an immediate check. Non-blocking if a check is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
		// a wake-up is already queued
	}
}

// Start runs the poll loop until ctx is cancelled. Calling Start while the
// loop is already running is a no-op. A cancelled ctx lets the in-flight
// tick finish naturally.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		log.Println("Scheduler already running, ignoring Start")
		return
	}
	defer s.running.Store(false)

	log.Println("Scheduler started")
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	// Let migrations settle before the first check
	select {
	case <-ctx.Done():
		return
	case <-time.After(2 * time.Second):
	}

	s.check(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("Scheduler stopped")
			return
		case <-ticker.C:
			s.check(ctx)
		case <-s.notifyCh:
			s.check(ctx)
		}
	}
}

// check runs one tick. A panic anywhere inside the tick must not kill the
// loop, so it is recovered here and the next interval proceeds normally.
func (s *Scheduler) check(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in scheduler tick: %v", r)
		}
	}()

	s.checkReminders(ctx)
	s.checkDailySummaries(ctx)
}

func (s *Scheduler) checkReminders(ctx context.Context) {
	reminders, err := s.reminders.GetDueReminders(ctx, s.window)
	if err != nil {
		// Store unreachable: nothing delivered this tick, retried on the next.
		log.Printf("Failed to get due reminders: %v", err)
		return
	}

	for _, reminder := range reminders {
		s.deliver(ctx, reminder)
	}
}

// deliver sends one notification and records the delivery. Send first, mark
// after: a crash between the two redelivers on the next tick, which beats
// silently losing a reminder. MarkNotified is a test-and-set at the store,
// so of two racing processes only one records the claim.
func (s *Scheduler) deliver(ctx context.Context, reminder *models.Reminder) {
	settings, err := s.settings.GetByUserID(ctx, reminder.UserID)
	if err != nil {
		log.Printf("Failed to get settings for user %d: %v", reminder.UserID, err)
		settings = models.NewDefaultUserSettings(reminder.UserID)
	}

	parsed := format.ParseMarkdown(s.notificationText(reminder, settings))
	msg := tgbotapi.NewMessage(reminder.UserID, parsed.Text)
	msg.Entities = parsed.Entities
	msg.DisableNotification = !settings.SoundEnabled
	msg.ReplyMarkup = notificationKeyboard(reminder.ReminderID)

	if _, err := s.api.Send(msg); err != nil {
		// Leave notification_sent unset: the reminder stays eligible and is
		// retried next tick until it ages out of the window.
		log.Printf("Failed to send reminder %d to user %d: %v", reminder.ReminderID, reminder.UserID, err)
		return
	}

	claimed, err := s.reminders.MarkNotified(ctx, reminder.ReminderID)
	if err != nil {
		log.Printf("Failed to mark reminder %d as sent: %v", reminder.ReminderID, err)
		return
	}
	if !claimed {
		log.Printf("Reminder %d was already claimed by another instance", reminder.ReminderID)
		return
	}

	log.Printf("Sent reminder %d to user %d", reminder.ReminderID, reminder.UserID)

	if reminder.IsRecurring() {
		s.scheduleNext(ctx, reminder)
	}
}

// scheduleNext moves a recurring reminder to its next occurrence, clearing
// notification_sent so the same row re-enters the delivery window.
func (s *Scheduler) scheduleNext(ctx context.Context, reminder *models.Reminder) {
	next, err := recurrence.Next(reminder, time.Now())
	if err != nil {
		log.Printf("Failed to compute next occurrence for reminder %d: %v", reminder.ReminderID, err)
		return
	}
	if next == nil {
		return
	}

	if _, err := s.reminders.Snooze(ctx, reminder.ReminderID, *next); err != nil {
		log.Printf("Failed to reschedule reminder %d: %v", reminder.ReminderID, err)
		return
	}
	log.Printf("Rescheduled reminder %d to %s", reminder.ReminderID, next.Format("2006-01-02 15:04"))
}

func (s *Scheduler) notificationText(reminder *models.Reminder, settings *models.UserSettings) string {
	text := "⏰ **Напоминание**\n\n**" + reminder.Title + "**"
	if reminder.Description != "" {
		text += "\n\n" + reminder.Description
	}

	if lead := time.Until(reminder.RemindAt); lead > time.Minute {
		text += fmt.Sprintf("\n\n🕐 в %s (через %s)",
			reminder.RemindAt.In(settings.Location()).Format("15:04"), formatDuration(lead))
	}

	if label := recurrence.Label(reminder.RepeatType, reminder.RepeatInterval); label != "" {
		text += "\n🔄 " + label
	}
	return text
}

func notificationKeyboard(reminderID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Готово", fmt.Sprintf("remind_done:%d", reminderID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💤 15 мин", fmt.Sprintf("remind_snooze:%d:15", reminderID)),
			tgbotapi.NewInlineKeyboardButtonData("💤 1 час", fmt.Sprintf("remind_snooze:%d:60", reminderID)),
		),
	)
}

func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	if d < time.Hour {
		return fmt.Sprintf("%d мин", minutes)
	}
	hours := int(d.Hours())
	if mins := minutes % 60; mins > 0 {
		return fmt.Sprintf("%d ч %d мин", hours, mins)
	}
	return fmt.Sprintf("%d ч", hours)
}

// ==================== Daily Summary ====================

func (s *Scheduler) checkDailySummaries(ctx context.Context) {
	now := time.Now()

	userIDs, err := s.settings.UsersWithDailySummary(ctx)
	if err != nil {
		log.Printf("Failed to get users with daily summary enabled: %v", err)
		return
	}

	for _, userID := range userIDs {
		s.sendDailySummaryIfNeeded(ctx, userID, now)
	}
}

func (s *Scheduler) sendDailySummaryIfNeeded(ctx context.Context, userID int64, now time.Time) {
	settings, err := s.settings.GetByUserID(ctx, userID)
	if err != nil {
		log.Printf("Failed to get settings for daily summary %d: %v", userID, err)
		return
	}

	if !settings.ShouldSendDailySummary(now) {
		return
	}

	loc := settings.Location()
	localNow := now.In(loc)
	endOfDay := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 23, 59, 59, 0, loc)

	agenda, err := s.reminders.GetTodayAgenda(ctx, userID, endOfDay)
	if err != nil {
		log.Printf("Failed to get today's agenda for %d: %v", userID, err)
		agenda = nil
	}

	parsed := format.ParseMarkdown(buildSummaryText(agenda, localNow, loc))
	msg := tgbotapi.NewMessage(userID, parsed.Text)
	msg.Entities = parsed.Entities
	msg.DisableNotification = !settings.SoundEnabled

	if _, err := s.api.Send(msg); err != nil {
		log.Printf("Failed to send daily summary to %d: %v", userID, err)
		return
	}

	if err := s.settings.SetLastSummaryDate(ctx, userID, now); err != nil {
		log.Printf("Failed to update last summary date for %d: %v", userID, err)
	}

	log.Printf("Sent daily summary to user %d", userID)
}

func buildSummaryText(agenda []*models.Reminder, localNow time.Time, loc *time.Location) string {
	text := "☀️ **Доброе утро!**\n\n📅 " + localNow.Format("02.01.2006") + "\n\n**Напоминания на сегодня**\n"

	if len(agenda) == 0 {
		text += "• на сегодня ничего не запланировано\n"
		return text
	}

	for _, reminder := range agenda {
		when := reminder.RemindAt.In(loc).Format("15:04")
		if reminder.RemindAt.Before(localNow) {
			when += " (просрочено)"
		}
		text += fmt.Sprintf("• %s %s\n", when, reminder.Title)
	}
	return text
}
