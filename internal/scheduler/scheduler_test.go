package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/eg0renkov/bot-sub000/internal/models"
)

// Mock ReminderStore. GetDueReminders filters out already-notified rows and
// MarkNotified is a mutex-guarded test-and-set, mirroring the store-side
// guarantees the scheduler relies on.
type mockReminderStore struct {
	mu        sync.Mutex
	reminders []*models.Reminder
	dueErr    error
	notified  map[int64]bool
	snoozed   map[int64]time.Time
}

func newMockReminderStore(reminders ...*models.Reminder) *mockReminderStore {
	return &mockReminderStore{
		reminders: reminders,
		notified:  make(map[int64]bool),
		snoozed:   make(map[int64]time.Time),
	}
}

func (m *mockReminderStore) GetDueReminders(ctx context.Context, window time.Duration) ([]*models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dueErr != nil {
		return nil, m.dueErr
	}
	var due []*models.Reminder
	for _, r := range m.reminders {
		if !m.notified[r.ReminderID] && !r.IsCompleted {
			due = append(due, r)
		}
	}
	return due, nil
}

func (m *mockReminderStore) MarkNotified(ctx context.Context, reminderID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notified[reminderID] {
		return false, nil
	}
	m.notified[reminderID] = true
	return true, nil
}

func (m *mockReminderStore) Snooze(ctx context.Context, reminderID int64, until time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snoozed[reminderID] = until
	delete(m.notified, reminderID)
	return true, nil
}

func (m *mockReminderStore) GetTodayAgenda(ctx context.Context, userID int64, endOfDay time.Time) ([]*models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var agenda []*models.Reminder
	for _, r := range m.reminders {
		if r.UserID == userID && !r.IsCompleted {
			agenda = append(agenda, r)
		}
	}
	return agenda, nil
}

type mockSettingsStore struct {
	mu           sync.Mutex
	settings     map[int64]*models.UserSettings
	summaryUsers []int64
	summarySent  map[int64]time.Time
}

func newMockSettingsStore() *mockSettingsStore {
	return &mockSettingsStore{
		settings:    make(map[int64]*models.UserSettings),
		summarySent: make(map[int64]time.Time),
	}
}

func (m *mockSettingsStore) GetByUserID(ctx context.Context, userID int64) (*models.UserSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.settings[userID]; ok {
		return s, nil
	}
	return models.NewDefaultUserSettings(userID), nil
}

func (m *mockSettingsStore) UsersWithDailySummary(ctx context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summaryUsers, nil
}

func (m *mockSettingsStore) SetLastSummaryDate(ctx context.Context, userID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summarySent[userID] = at
	return nil
}

type mockSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	sendFunc func(msg tgbotapi.MessageConfig) error
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendFunc != nil {
		if err := m.sendFunc(msg); err != nil {
			return tgbotapi.Message{}, err
		}
	}
	m.sent = append(m.sent, msg)
	return tgbotapi.Message{MessageID: len(m.sent)}, nil
}

func (m *mockSender) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func testReminder(id, userID int64, title string, remindAt time.Time) *models.Reminder {
	return &models.Reminder{
		ReminderID: id,
		UserID:     userID,
		Title:      title,
		RemindAt:   remindAt,
		RepeatType: models.RepeatNone,
		IsActive:   true,
	}
}

func newTestScheduler(store *mockReminderStore, settings *mockSettingsStore, sender *mockSender) *Scheduler {
	return New(sender, store, settings, time.Minute, 5*time.Minute)
}

func TestTickDeliversAndMarks(t *testing.T) {
	store := newMockReminderStore(testReminder(1, 100, "Call mom", time.Now()))
	sender := &mockSender{}
	s := newTestScheduler(store, newMockSettingsStore(), sender)

	s.check(context.Background())

	if sender.sentCount() != 1 {
		t.Fatalf("expected 1 message sent, got %d", sender.sentCount())
	}
	if !store.notified[1] {
		t.Errorf("reminder 1 should be marked notified after a successful send")
	}
}

func TestTickDeliversOnlyOnce(t *testing.T) {
	store := newMockReminderStore(testReminder(1, 100, "Call mom", time.Now()))
	sender := &mockSender{}
	s := newTestScheduler(store, newMockSettingsStore(), sender)

	// ceil(window/interval)+1 ticks must attempt the reminder exactly once
	for i := 0; i < 6; i++ {
		s.check(context.Background())
	}

	if sender.sentCount() != 1 {
		t.Fatalf("expected exactly 1 delivery across ticks, got %d", sender.sentCount())
	}
}

func TestMarkNotifiedSingleWinner(t *testing.T) {
	store := newMockReminderStore(testReminder(1, 100, "Call mom", time.Now()))

	const racers = 16
	var wg sync.WaitGroup
	results := make(chan bool, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := store.MarkNotified(context.Background(), 1)
			if err != nil {
				t.Errorf("MarkNotified: %v", err)
			}
			results <- claimed
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for claimed := range results {
		if claimed {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly 1 winning claim, got %d", winners)
	}
}

func TestPartialBatchResilience(t *testing.T) {
	now := time.Now()
	store := newMockReminderStore(
		testReminder(1, 100, "Call mom", now),
		testReminder(2, 200, "blocked-user", now),
		testReminder(3, 300, "Pay rent", now),
	)
	sender := &mockSender{
		sendFunc: func(msg tgbotapi.MessageConfig) error {
			if msg.ChatID == 200 {
				return errors.New("Forbidden: bot was blocked by the user")
			}
			return nil
		},
	}
	s := newTestScheduler(store, newMockSettingsStore(), sender)

	s.check(context.Background())

	if !store.notified[1] {
		t.Errorf("reminder for user A should be marked despite B's failure")
	}
	if !store.notified[3] {
		t.Errorf("reminder for user C should be marked despite B's failure")
	}
	if store.notified[2] {
		t.Errorf("failed send must leave the reminder eligible for retry")
	}
}

func TestFailedSendRetriedNextTick(t *testing.T) {
	store := newMockReminderStore(testReminder(1, 100, "Call mom", time.Now()))
	failing := true
	sender := &mockSender{}
	sender.sendFunc = func(msg tgbotapi.MessageConfig) error {
		if failing {
			return errors.New("network unreachable")
		}
		return nil
	}
	s := newTestScheduler(store, newMockSettingsStore(), sender)

	s.check(context.Background())
	if store.notified[1] {
		t.Fatalf("reminder must stay unclaimed after a failed send")
	}

	failing = false
	s.check(context.Background())
	if !store.notified[1] {
		t.Fatalf("reminder should be delivered on the next tick")
	}
	if sender.sentCount() != 1 {
		t.Fatalf("expected 1 successful send, got %d", sender.sentCount())
	}
}

func TestStoreDownDegradation(t *testing.T) {
	store := newMockReminderStore(testReminder(1, 100, "Call mom", time.Now()))
	store.dueErr = errors.New("connection refused")
	sender := &mockSender{}
	s := newTestScheduler(store, newMockSettingsStore(), sender)

	// Must not panic and must not send anything
	s.check(context.Background())

	if sender.sentCount() != 0 {
		t.Fatalf("expected no deliveries while the store is down, got %d", sender.sentCount())
	}
}

func TestCompletedReminderNeverDelivered(t *testing.T) {
	done := testReminder(1, 100, "Old chore", time.Now())
	done.IsCompleted = true
	store := newMockReminderStore(done)
	sender := &mockSender{}
	s := newTestScheduler(store, newMockSettingsStore(), sender)

	s.check(context.Background())

	if sender.sentCount() != 0 {
		t.Fatalf("completed reminder must never be delivered")
	}
}

func TestRecurringReminderRescheduled(t *testing.T) {
	r := testReminder(1, 100, "Выпить воды", time.Now().Add(-time.Minute))
	r.RepeatType = models.RepeatDaily
	store := newMockReminderStore(r)
	sender := &mockSender{}
	s := newTestScheduler(store, newMockSettingsStore(), sender)

	s.check(context.Background())

	if sender.sentCount() != 1 {
		t.Fatalf("expected 1 delivery, got %d", sender.sentCount())
	}
	next, ok := store.snoozed[1]
	if !ok {
		t.Fatalf("recurring reminder should have been rescheduled")
	}
	if !next.After(time.Now()) {
		t.Errorf("next occurrence %s should be in the future", next)
	}
	if store.notified[1] {
		t.Errorf("rescheduling must clear the sent flag for the next window")
	}
}

func TestDailySummarySentOnce(t *testing.T) {
	store := newMockReminderStore(testReminder(1, 100, "Утренняя пробежка", time.Now().Add(2*time.Hour)))
	settings := newMockSettingsStore()
	userSettings := models.NewDefaultUserSettings(100)
	userSettings.DailySummary = true
	userSettings.DailySummaryTime = "00:00"
	userSettings.Timezone = "UTC"
	settings.settings[100] = userSettings
	settings.summaryUsers = []int64{100}

	sender := &mockSender{}
	s := newTestScheduler(store, settings, sender)

	s.checkDailySummaries(context.Background())

	if sender.sentCount() != 1 {
		t.Fatalf("expected 1 summary message, got %d", sender.sentCount())
	}
	sentAt, ok := settings.summarySent[100]
	if !ok {
		t.Fatalf("summary date should be recorded after sending")
	}

	// Second pass the same day: the latch must hold
	userSettings.LastSummaryDate = &sentAt
	s.checkDailySummaries(context.Background())
	if sender.sentCount() != 1 {
		t.Fatalf("summary must be sent at most once per day, got %d sends", sender.sentCount())
	}
}

func TestStartIsIdempotent(t *testing.T) {
	store := newMockReminderStore()
	sender := &mockSender{}
	s := newTestScheduler(store, newMockSettingsStore(), sender)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	go func() {
		close(started)
		s.Start(ctx)
	}()
	<-started
	for !s.running.Load() {
		time.Sleep(time.Millisecond)
	}

	// A second Start must return immediately instead of entering the loop
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("second Start call did not return while the scheduler was running")
	}
}
