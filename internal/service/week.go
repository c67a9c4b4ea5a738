package service

import (
	"alcyxob/health-tracker/internal/domain"
	"math"
)

// ResolveCurrentWeek infers the template week a user is on from completion
// volume: floor(completed / (total / weekCount)) + 1, clamped to [1, weekCount].
// It does not look at calendar dates, so out-of-order completions still
// advance the week.
func ResolveCurrentWeek(progress []domain.UserPlanDayProgress, weekCount int) int {
	if weekCount < 1 {
		return 1
	}
	total := len(progress)
	if total == 0 {
		return 1
	}

	completed := 0
	for _, row := range progress {
		if row.Status == domain.ProgressCompleted {
			completed++
		}
	}

	daysPerWeek := float64(total) / float64(weekCount)
	if daysPerWeek <= 0 {
		return 1
	}
	week := int(math.Floor(float64(completed)/daysPerWeek)) + 1
	return clampWeek(week, weekCount)
}

func clampWeek(week, weekCount int) int {
	if week < 1 {
		return 1
	}
	if week > weekCount {
		return weekCount
	}
	return week
}
