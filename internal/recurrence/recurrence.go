package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/eg0renkov/bot-sub000/internal/models"
)

var weekdays = map[string]rrule.Weekday{
	"monday":    rrule.MO,
	"tuesday":   rrule.TU,
	"wednesday": rrule.WE,
	"thursday":  rrule.TH,
	"friday":    rrule.FR,
	"saturday":  rrule.SA,
	"sunday":    rrule.SU,
}

// Build converts a reminder's repeat fields into an RFC 5545 recurrence rule
// anchored at dtstart. repeat_interval 0 means "every occurrence" and is
// treated as 1. repeat_days is honoured for weekly repeats only.
func Build(repeatType string, interval int, days []string, dtstart time.Time) (*rrule.RRule, error) {
	var freq rrule.Frequency
	switch repeatType {
	case models.RepeatDaily:
		freq = rrule.DAILY
	case models.RepeatWeekly:
		freq = rrule.WEEKLY
	case models.RepeatMonthly:
		freq = rrule.MONTHLY
	case models.RepeatYearly:
		freq = rrule.YEARLY
	default:
		return nil, fmt.Errorf("repeat type %q is not recurring", repeatType)
	}

	if interval < 1 {
		interval = 1
	}

	opt := rrule.ROption{
		Freq:     freq,
		Interval: interval,
		Dtstart:  dtstart,
	}

	if repeatType == models.RepeatWeekly && len(days) > 0 {
		for _, day := range days {
			wd, ok := weekdays[strings.ToLower(strings.TrimSpace(day))]
			if !ok {
				return nil, fmt.Errorf("unknown weekday %q", day)
			}
			opt.Byweekday = append(opt.Byweekday, wd)
		}
	}

	return rrule.NewRRule(opt)
}

// Next returns the reminder's first occurrence strictly after the given
// time, or nil when the reminder does not recur.
func Next(reminder *models.Reminder, after time.Time) (*time.Time, error) {
	if !reminder.IsRecurring() {
		return nil, nil
	}

	rule, err := Build(reminder.RepeatType, reminder.RepeatInterval, reminder.RepeatDays, reminder.RemindAt)
	if err != nil {
		return nil, err
	}

	next := rule.After(after, false)
	if next.IsZero() {
		return nil, nil
	}
	return &next, nil
}

// Label returns a human-readable recurrence label for notification text.
// One-shot reminders get an empty label.
func Label(repeatType string, interval int) string {
	if interval > 1 {
		switch repeatType {
		case models.RepeatDaily:
			return fmt.Sprintf("каждые %d дн.", interval)
		case models.RepeatWeekly:
			return fmt.Sprintf("каждые %d нед.", interval)
		case models.RepeatMonthly:
			return fmt.Sprintf("каждые %d мес.", interval)
		case models.RepeatYearly:
			return fmt.Sprintf("каждые %d г.", interval)
		}
		return ""
	}

	switch repeatType {
	case models.RepeatDaily:
		return "ежедневно"
	case models.RepeatWeekly:
		return "еженедельно"
	case models.RepeatMonthly:
		return "ежемесячно"
	case models.RepeatYearly:
		return "ежегодно"
	}
	return ""
}
