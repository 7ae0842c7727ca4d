package warmup

import (
	"time"

	"github.com/customeros/warmstack/internal/models"
	"github.com/customeros/warmstack/internal/utils"
)

// ComputeAllowedVolume returns the sending budget for the given day of the
// ramp. Day 0 is the configured daily limit, days at or past the ramp length
// are the target volume, and days in between interpolate linearly, rounded
// down. Rounding down keeps early days conservative.
func ComputeAllowedVolume(settings *models.WarmupSettings, daysSinceStart int) int {
	if daysSinceStart <= 0 {
		return settings.DailyLimit
	}
	if daysSinceStart >= settings.RampUpDays {
		return settings.TargetDailyVolume
	}
	return settings.DailyLimit + (settings.TargetDailyVolume-settings.DailyLimit)*daysSinceStart/settings.RampUpDays
}

// IsWithinSendWindow reports whether the schedule permits sending at the
// given moment. A disabled schedule permits everything. The end time is
// exclusive so back-to-back windows do not overlap.
func IsWithinSendWindow(schedule *models.WarmupSchedule, now time.Time) bool {
	if schedule == nil || !schedule.Enabled {
		return true
	}

	if !utils.IsStringInSlice(now.Weekday().String(), schedule.DaysOfWeek) {
		return false
	}

	start, err := utils.ParseTimeOfDay(schedule.StartTime)
	if err != nil {
		return false
	}
	end, err := utils.ParseTimeOfDay(schedule.EndTime)
	if err != nil {
		return false
	}

	current := utils.TimeOfDayFromTime(now)
	return current >= start && current < end
}

// RampUpComplete reports whether the ramp has reached its target volume.
// It is informational only; finishing the ramp never changes warm-up status.
func RampUpComplete(settings *models.WarmupSettings, daysSinceStart int) bool {
	return ComputeAllowedVolume(settings, daysSinceStart) >= settings.TargetDailyVolume
}

// RemainingQuota is the number of sends still allowed today.
func RemainingQuota(settings *models.WarmupSettings, daysSinceStart int, interactionsToday int) int {
	remaining := ComputeAllowedVolume(settings, daysSinceStart) - interactionsToday
	if remaining < 0 {
		return 0
	}
	return remaining
}
