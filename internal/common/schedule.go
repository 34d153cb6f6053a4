package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts standard 5-field cron expressions (minute through day-of-week).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronExpression validates a cron expression and enforces a minimum
// 5-minute firing interval.
func ValidateCronExpression(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	parts := strings.Fields(expr)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	minuteField := parts[0]
	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}
	if strings.HasPrefix(minuteField, "*/") {
		interval, err := strconv.Atoi(strings.TrimPrefix(minuteField, "*/"))
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}

// NextRunTime computes the next firing instant for a job schedule.
// An explicit cron expression wins over the named frequency. Named frequencies
// use fixed rules: daily fires at the next midnight, weekly at the next Monday
// midnight, monthly at midnight on the first of the next month.
func NextRunTime(frequency, cronExpr string, now time.Time) (time.Time, error) {
	if cronExpr != "" {
		schedule, err := cronParser.Parse(cronExpr)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid cron expression: %w", err)
		}
		return schedule.Next(now), nil
	}

	switch strings.ToLower(strings.TrimSpace(frequency)) {
	case "daily":
		return nextMidnight(now), nil
	case "weekly":
		return nextWeekdayMidnight(now, time.Monday), nil
	case "monthly":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unknown frequency: %q", frequency)
	}
}

func nextMidnight(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}

func nextWeekdayMidnight(now time.Time, weekday time.Weekday) time.Time {
	days := (int(weekday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, days)
}
