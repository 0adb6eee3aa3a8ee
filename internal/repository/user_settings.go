package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eg0renkov/bot-sub000/internal/database"
	"github.com/eg0renkov/bot-sub000/internal/models"
)

const settingsColumns = `user_id, enabled, sound_enabled, timezone, advance_notification,
	 daily_summary, to_char(daily_summary_time, 'HH24:MI'), last_summary_date, updated_at`

// Boolean settings columns that may be flipped via Toggle. Anything else is
// rejected rather than interpolated into SQL.
var toggleableSettings = map[string]bool{
	"enabled":       true,
	"sound_enabled": true,
	"daily_summary": true,
}

type UserSettingsRepository struct {
	db *database.DB
}

func NewUserSettingsRepository(db *database.DB) *UserSettingsRepository {
	return &UserSettingsRepository{db: db}
}

// GetOrCreate retrieves user settings, creating the default row if none
// exists. The upsert form makes concurrent first use idempotent.
func (r *UserSettingsRepository) GetOrCreate(ctx context.Context, userID int64) (*models.UserSettings, error) {
	settings := &models.UserSettings{}
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO user_settings (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		 RETURNING `+settingsColumns,
		userID,
	).Scan(
		&settings.UserID, &settings.Enabled, &settings.SoundEnabled, &settings.Timezone,
		&settings.AdvanceNotification, &settings.DailySummary, &settings.DailySummaryTime,
		&settings.LastSummaryDate, &settings.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *UserSettingsRepository) GetByUserID(ctx context.Context, userID int64) (*models.UserSettings, error) {
	settings := &models.UserSettings{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT `+settingsColumns+` FROM user_settings WHERE user_id = $1`,
		userID,
	).Scan(
		&settings.UserID, &settings.Enabled, &settings.SoundEnabled, &settings.Timezone,
		&settings.AdvanceNotification, &settings.DailySummary, &settings.DailySummaryTime,
		&settings.LastSummaryDate, &settings.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// settingsPatchSet turns a patch into SET clauses and their arguments.
// Nil patch fields are skipped; timezones are validated before they reach SQL.
func settingsPatchSet(patch models.SettingsPatch) ([]string, []any, error) {
	var set []string
	var args []any

	add := func(expr string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf(expr, len(args)))
	}

	if patch.Enabled != nil {
		add("enabled = $%d", *patch.Enabled)
	}
	if patch.SoundEnabled != nil {
		add("sound_enabled = $%d", *patch.SoundEnabled)
	}
	if patch.Timezone != nil {
		if _, err := time.LoadLocation(*patch.Timezone); err != nil {
			return nil, nil, fmt.Errorf("unknown timezone %q: %w", *patch.Timezone, err)
		}
		add("timezone = $%d", *patch.Timezone)
	}
	if patch.AdvanceNotification != nil {
		add("advance_notification = $%d", *patch.AdvanceNotification)
	}
	if patch.DailySummary != nil {
		add("daily_summary = $%d", *patch.DailySummary)
	}
	if patch.DailySummaryTime != nil {
		add("daily_summary_time = $%d::time", *patch.DailySummaryTime)
	}

	return set, args, nil
}

// Update applies a partial settings update. Nil patch fields are untouched.
func (r *UserSettingsRepository) Update(ctx context.Context, userID int64, patch models.SettingsPatch) (bool, error) {
	set, args, err := settingsPatchSet(patch)
	if err != nil {
		return false, err
	}
	if len(set) == 0 {
		return false, nil
	}

	args = append(args, userID)
	query := fmt.Sprintf("UPDATE user_settings SET %s, updated_at = now() WHERE user_id = $%d",
		strings.Join(set, ", "), len(args))

	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Toggle flips a boolean setting in a single statement, so concurrent
// toggles from the same user cannot lose an update.
func (r *UserSettingsRepository) Toggle(ctx context.Context, userID int64, field string) (bool, error) {
	if !toggleableSettings[field] {
		return false, fmt.Errorf("setting %q is not toggleable", field)
	}

	var value bool
	err := r.db.Pool.QueryRow(ctx,
		`UPDATE user_settings SET `+field+` = NOT `+field+`, updated_at = now()
		 WHERE user_id = $1 RETURNING `+field,
		userID,
	).Scan(&value)
	if err != nil {
		return false, err
	}
	return value, nil
}

func (r *UserSettingsRepository) SetLastSummaryDate(ctx context.Context, userID int64, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE user_settings SET last_summary_date = $1, updated_at = now() WHERE user_id = $2`,
		at, userID,
	)
	return err
}

// UsersWithDailySummary returns the ids of users who have the digest enabled.
func (r *UserSettingsRepository) UsersWithDailySummary(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT user_id FROM user_settings WHERE enabled AND daily_summary`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var userIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, nil
}
