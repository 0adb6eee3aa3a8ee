package models

import "time"

// UserSettings represents per-user reminder delivery settings.
// Exactly one row exists per user, created lazily on first use.
type UserSettings struct {
	UserID              int64      `json:"user_id"`
	Enabled             bool       `json:"enabled"`
	SoundEnabled        bool       `json:"sound_enabled"`
	Timezone            string     `json:"timezone"`
	AdvanceNotification int        `json:"advance_notification"` // minutes before remind_at
	DailySummary        bool       `json:"daily_summary"`
	DailySummaryTime    string     `json:"daily_summary_time"` // HH:MM format
	LastSummaryDate     *time.Time `json:"last_summary_date"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// NewDefaultUserSettings creates a new UserSettings with default values
func NewDefaultUserSettings(userID int64) *UserSettings {
	return &UserSettings{
		UserID:           userID,
		Enabled:          true,
		SoundEnabled:     true,
		Timezone:         "Europe/Moscow",
		DailySummary:     false,
		DailySummaryTime: "08:00",
		UpdatedAt:        time.Now(),
	}
}

// Location resolves the user's timezone, falling back to local time.
func (s *UserSettings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ShouldSendDailySummary checks if it's time to send the daily summary:
// the digest is enabled, the local summary time has passed, and no digest
// has been sent today yet.
func (s *UserSettings) ShouldSendDailySummary(now time.Time) bool {
	if !s.DailySummary {
		return false
	}

	loc := s.Location()
	localNow := now.In(loc)

	if s.LastSummaryDate != nil {
		last := s.LastSummaryDate.In(loc)
		if last.Year() == localNow.Year() && last.YearDay() == localNow.YearDay() {
			return false
		}
	}

	hour, min := parseTimeString(s.DailySummaryTime)
	summaryTime := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), hour, min, 0, 0, loc)

	return !localNow.Before(summaryTime)
}

// parseTimeString parses "HH:MM" to hours and minutes. Postgres renders a
// TIME column as "HH:MM:SS", so that form is accepted too.
func parseTimeString(timeStr string) (hour, min int) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, timeStr); err == nil {
			return t.Hour(), t.Minute()
		}
	}
	return 0, 0
}

// SettingsPatch is a partial settings update. Nil fields are left untouched.
type SettingsPatch struct {
	Enabled             *bool
	SoundEnabled        *bool
	Timezone            *string
	AdvanceNotification *int
	DailySummary        *bool
	DailySummaryTime    *string
}
