package models

import (
	"testing"
	"time"
)

func summarySettings() *UserSettings {
	s := NewDefaultUserSettings(100)
	s.DailySummary = true
	s.DailySummaryTime = "08:00"
	s.Timezone = "UTC"
	return s
}

func TestShouldSendDailySummaryDisabled(t *testing.T) {
	s := summarySettings()
	s.DailySummary = false

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	if s.ShouldSendDailySummary(now) {
		t.Fatalf("disabled digest must never fire")
	}
}

func TestShouldSendDailySummaryBeforeTime(t *testing.T) {
	s := summarySettings()

	now := time.Date(2026, 3, 10, 7, 59, 0, 0, time.UTC)
	if s.ShouldSendDailySummary(now) {
		t.Fatalf("digest must not fire before the configured time")
	}
}

func TestShouldSendDailySummaryAfterTime(t *testing.T) {
	s := summarySettings()

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	if !s.ShouldSendDailySummary(now) {
		t.Fatalf("digest should fire at the configured time")
	}
}

func TestShouldSendDailySummaryOncePerDay(t *testing.T) {
	s := summarySettings()

	sent := time.Date(2026, 3, 10, 8, 1, 0, 0, time.UTC)
	s.LastSummaryDate = &sent

	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	if s.ShouldSendDailySummary(now) {
		t.Fatalf("digest must not fire twice the same day")
	}

	nextDay := time.Date(2026, 3, 11, 8, 30, 0, 0, time.UTC)
	if !s.ShouldSendDailySummary(nextDay) {
		t.Fatalf("digest should fire again the next day")
	}
}

func TestShouldSendDailySummarySecondsForm(t *testing.T) {
	// The database renders the TIME column as "08:00:00"; the threshold must
	// not degrade to midnight on that form.
	s := summarySettings()
	s.DailySummaryTime = "08:00:00"

	night := time.Date(2026, 3, 10, 0, 30, 0, 0, time.UTC)
	if s.ShouldSendDailySummary(night) {
		t.Fatalf("digest fired at 00:30 for a user configured for 08:00")
	}

	morning := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	if !s.ShouldSendDailySummary(morning) {
		t.Fatalf("digest should fire after 08:00 local time")
	}
}

func TestShouldSendDailySummaryHonoursTimezone(t *testing.T) {
	s := summarySettings()
	s.Timezone = "Asia/Yekaterinburg" // UTC+5

	// 04:00 UTC is 09:00 local, past the 08:00 threshold
	now := time.Date(2026, 3, 10, 4, 0, 0, 0, time.UTC)
	if !s.ShouldSendDailySummary(now) {
		t.Fatalf("digest should fire once the local time passes the threshold")
	}

	// 02:00 UTC is 07:00 local
	early := time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)
	if s.ShouldSendDailySummary(early) {
		t.Fatalf("digest must not fire before the local threshold")
	}
}

func TestReminderIsRecurring(t *testing.T) {
	r := &Reminder{RepeatType: RepeatNone}
	if r.IsRecurring() {
		t.Errorf("repeat type none must not be recurring")
	}
	r.RepeatType = ""
	if r.IsRecurring() {
		t.Errorf("empty repeat type must not be recurring")
	}
	r.RepeatType = RepeatWeekly
	if !r.IsRecurring() {
		t.Errorf("weekly reminder should be recurring")
	}
}
