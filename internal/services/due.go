package services

import (
	"time"

	"github.com/routervault/routervault/internal/models"
)

// Due calculation: pure functions of (device state, now). The scheduler
// examines a device this tick iff IntervalDue or BaselineDue.

// IntervalDue reports whether the periodic check interval has elapsed.
// A device with no recorded check is always due.
func IntervalDue(d *models.Device, now time.Time) bool {
	if d.LastCheckAt == nil {
		return true
	}
	hours := d.CheckIntervalHours
	if hours <= 0 {
		hours = 6
	}
	return now.Sub(*d.LastCheckAt) >= time.Duration(hours)*time.Hour
}

// BaselineDue reports whether the once-per-day baseline snapshot is due.
// It fires at most once per calendar day: once LastBaselineAt lands on
// today's date, further ticks return false until tomorrow.
func BaselineDue(d *models.Device, now time.Time) bool {
	if d.DailyBaselineTime == "" {
		return false
	}
	baseline, err := time.Parse("15:04", d.DailyBaselineTime)
	if err != nil {
		return false
	}

	if d.LastBaselineAt != nil {
		ly, lm, ld := d.LastBaselineAt.In(now.Location()).Date()
		ny, nm, nd := now.Date()
		if ly == ny && lm == nm && ld == nd {
			return false
		}
	}

	nowMinutes := now.Hour()*60 + now.Minute()
	dueMinutes := baseline.Hour()*60 + baseline.Minute()
	return nowMinutes >= dueMinutes
}

// ForceDue reports whether too much time has passed since the last
// successful backup. A device that never succeeded is always forced. The
// effective cadence is min(global, per-device), floored at one day: a
// global policy can tighten a per-device cadence but never loosen it.
func ForceDue(d *models.Device, now time.Time, globalForceDays int) bool {
	if d.LastSuccessAt == nil {
		return true
	}

	days := d.ForceEveryDays
	if days <= 0 {
		days = globalForceDays
	}
	if days <= 0 {
		days = 7
	}
	if globalForceDays > 0 && globalForceDays < days {
		days = globalForceDays
	}
	if days < 1 {
		days = 1
	}
	return now.Sub(*d.LastSuccessAt) >= time.Duration(days)*24*time.Hour
}
