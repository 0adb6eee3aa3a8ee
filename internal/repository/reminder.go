package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eg0renkov/bot-sub000/internal/database"
	"github.com/eg0renkov/bot-sub000/internal/models"
)

const reminderColumns = `reminder_id, user_id, title, description, remind_at, repeat_type,
	 repeat_interval, COALESCE(repeat_days, '{}'), is_active, is_completed, notification_sent,
	 created_at, completed_at`

type ReminderRepository struct {
	db *database.DB
}

func NewReminderRepository(db *database.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Create inserts a reminder and lazily ensures the owner's settings row
// exists. The settings upsert relies on the user_id primary key, so
// concurrent first-time creates are safe.
func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	if reminder.Title == "" {
		return fmt.Errorf("reminder title must not be empty")
	}

	if _, err := r.db.Pool.Exec(ctx,
		`INSERT INTO user_settings (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		reminder.UserID,
	); err != nil {
		return err
	}

	repeatType := reminder.RepeatType
	if repeatType == "" {
		repeatType = models.RepeatNone
	}

	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO reminders (user_id, title, description, remind_at, repeat_type, repeat_interval, repeat_days, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		 RETURNING reminder_id, created_at`,
		reminder.UserID, reminder.Title, reminder.Description, reminder.RemindAt,
		repeatType, reminder.RepeatInterval, reminder.RepeatDays,
	).Scan(&reminder.ReminderID, &reminder.CreatedAt)
}

func (r *ReminderRepository) GetByUserID(ctx context.Context, userID int64, activeOnly bool, limit int) ([]*models.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE user_id = $1`
	if activeOnly {
		query += ` AND is_active AND NOT is_completed`
	}
	query += ` ORDER BY remind_at ASC LIMIT $2`

	rows, err := r.db.Pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReminders(rows)
}

func (r *ReminderRepository) GetByID(ctx context.Context, reminderID, userID int64) (*models.Reminder, error) {
	reminder := &models.Reminder{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE reminder_id = $1 AND user_id = $2`,
		reminderID, userID,
	).Scan(
		&reminder.ReminderID, &reminder.UserID, &reminder.Title, &reminder.Description,
		&reminder.RemindAt, &reminder.RepeatType, &reminder.RepeatInterval, &reminder.RepeatDays,
		&reminder.IsActive, &reminder.IsCompleted, &reminder.NotificationSent,
		&reminder.CreatedAt, &reminder.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return reminder, nil
}

// reminderPatchSet turns a patch into SET clauses and their arguments.
// Nil patch fields are skipped.
func reminderPatchSet(patch models.ReminderPatch) ([]string, []any) {
	var set []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.RemindAt != nil {
		add("remind_at", *patch.RemindAt)
	}
	if patch.RepeatType != nil {
		add("repeat_type", *patch.RepeatType)
	}
	if patch.RepeatInterval != nil {
		add("repeat_interval", *patch.RepeatInterval)
	}
	if patch.RepeatDays != nil {
		add("repeat_days", *patch.RepeatDays)
	}
	if patch.IsActive != nil {
		add("is_active", *patch.IsActive)
	}
	if patch.NotificationSent != nil {
		add("notification_sent", *patch.NotificationSent)
	}

	return set, args
}

// Update applies a partial update. Nil patch fields keep their current value.
func (r *ReminderRepository) Update(ctx context.Context, reminderID, userID int64, patch models.ReminderPatch) (bool, error) {
	set, args := reminderPatchSet(patch)
	if len(set) == 0 {
		return false, nil
	}

	args = append(args, reminderID, userID)
	query := fmt.Sprintf("UPDATE reminders SET %s WHERE reminder_id = $%d AND user_id = $%d",
		strings.Join(set, ", "), len(args)-1, len(args))

	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ReminderRepository) Delete(ctx context.Context, reminderID, userID int64) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM reminders WHERE reminder_id = $1 AND user_id = $2`,
		reminderID, userID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Complete marks a reminder done. Terminal: completed reminders never match
// the due-reminder filter again.
func (r *ReminderRepository) Complete(ctx context.Context, reminderID int64) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET is_completed = TRUE, completed_at = now()
		 WHERE reminder_id = $1 AND NOT is_completed`,
		reminderID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Snooze moves remind_at forward and clears notification_sent, re-admitting
// the same row to a new delivery window.
func (r *ReminderRepository) Snooze(ctx context.Context, reminderID int64, until time.Time) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET remind_at = $1, notification_sent = FALSE
		 WHERE reminder_id = $2 AND NOT is_completed`,
		until, reminderID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetDueReminders returns reminders eligible for delivery right now. The
// window test runs against the database clock, not the caller's, so multiple
// bot processes sharing one store agree on eligibility. The settings join
// honours the per-user master switch and advance-notification lead time; the
// trailing window keeps a reminder retryable after a failed send until it
// ages out.
func (r *ReminderRepository) GetDueReminders(ctx context.Context, window time.Duration) ([]*models.Reminder, error) {
	secs := int(window.Seconds())
	rows, err := r.db.Pool.Query(ctx,
		`SELECT r.reminder_id, r.user_id, r.title, r.description, r.remind_at, r.repeat_type,
		        r.repeat_interval, COALESCE(r.repeat_days, '{}'), r.is_active, r.is_completed,
		        r.notification_sent, r.created_at, r.completed_at
		 FROM reminders r
		 LEFT JOIN user_settings s ON s.user_id = r.user_id
		 WHERE r.is_active AND NOT r.is_completed AND NOT r.notification_sent
		   AND COALESCE(s.enabled, TRUE)
		   AND r.remind_at - make_interval(mins => COALESCE(s.advance_notification, 0))
		       <= now() + make_interval(secs => $1)
		   AND r.remind_at >= now() - make_interval(secs => $1)
		 ORDER BY r.remind_at ASC`,
		secs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReminders(rows)
}

// MarkNotified records that a reminder's notification has been dispatched.
// The guard on notification_sent makes the transition a test-and-set: of any
// number of concurrent callers, exactly one sees true.
func (r *ReminderRepository) MarkNotified(ctx context.Context, reminderID int64) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET notification_sent = TRUE
		 WHERE reminder_id = $1 AND NOT notification_sent`,
		reminderID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetTodayAgenda returns the user's still-pending reminders due before the
// given end of day, for the daily summary digest.
func (r *ReminderRepository) GetTodayAgenda(ctx context.Context, userID int64, endOfDay time.Time) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE user_id = $1 AND is_active AND NOT is_completed AND remind_at <= $2
		 ORDER BY remind_at ASC`,
		userID, endOfDay,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReminders(rows)
}

func (r *ReminderRepository) Stats(ctx context.Context, userID int64) (*models.ReminderStats, error) {
	stats := &models.ReminderStats{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE is_active AND NOT is_completed),
		        COUNT(*) FILTER (WHERE is_completed),
		        COUNT(*) FILTER (WHERE is_active AND NOT is_completed
		                           AND remind_at >= now() AND remind_at < now() + interval '1 day'),
		        COUNT(*) FILTER (WHERE is_active AND NOT is_completed
		                           AND remind_at >= now() AND remind_at < now() + interval '7 days')
		 FROM reminders WHERE user_id = $1`,
		userID,
	).Scan(&stats.Total, &stats.Active, &stats.Completed, &stats.UpcomingToday, &stats.UpcomingWeek)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

type reminderRows interface {
	Next() bool
	Scan(dest ...any) error
}

func scanReminders(rows reminderRows) ([]*models.Reminder, error) {
	var reminders []*models.Reminder
	for rows.Next() {
		reminder := &models.Reminder{}
		if err := rows.Scan(
			&reminder.ReminderID, &reminder.UserID, &reminder.Title, &reminder.Description,
			&reminder.RemindAt, &reminder.RepeatType, &reminder.RepeatInterval, &reminder.RepeatDays,
			&reminder.IsActive, &reminder.IsCompleted, &reminder.NotificationSent,
			&reminder.CreatedAt, &reminder.CompletedAt,
		); err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	return reminders, nil
}
