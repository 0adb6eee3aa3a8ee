package models

import "time"

// Repeat types supported by a reminder.
const (
	RepeatNone    = "none"
	RepeatDaily   = "daily"
	RepeatWeekly  = "weekly"
	RepeatMonthly = "monthly"
	RepeatYearly  = "yearly"
)

type Reminder struct {
	ReminderID       int64      `json:"reminder_id"`
	UserID           int64      `json:"user_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	RemindAt         time.Time  `json:"remind_at"`
	RepeatType       string     `json:"repeat_type"`
	RepeatInterval   int        `json:"repeat_interval"`
	RepeatDays       []string   `json:"repeat_days"` // weekday names, weekly repeats only
	IsActive         bool       `json:"is_active"`
	IsCompleted      bool       `json:"is_completed"`
	NotificationSent bool       `json:"notification_sent"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at"`
}

// IsRecurring returns true if this reminder repeats after delivery
func (r *Reminder) IsRecurring() bool {
	return r.RepeatType != "" && r.RepeatType != RepeatNone
}

// ReminderPatch is a partial update. Nil fields are left untouched.
type ReminderPatch struct {
	Title            *string
	Description      *string
	RemindAt         *time.Time
	RepeatType       *string
	RepeatInterval   *int
	RepeatDays       *[]string
	IsActive         *bool
	NotificationSent *bool
}

// ReminderStats holds per-user aggregate counts for the /stats view.
type ReminderStats struct {
	Total         int `json:"total"`
	Active        int `json:"active"`
	Completed     int `json:"completed"`
	UpcomingToday int `json:"upcoming_today"`
	UpcomingWeek  int `json:"upcoming_week"`
}
