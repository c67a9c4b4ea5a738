package service

import "alcyxob/health-tracker/internal/domain"

// DayCandidate is a plan day competing to survive a duplicate merge, with
// the amount of state linked to it.
type DayCandidate struct {
	Day               domain.PlanDay
	PrescriptionCount int
	ProgressCount     int
}

func (c DayCandidate) linkedState() int {
	return c.PrescriptionCount + c.ProgressCount
}

// CanonicalRanking reports whether a should be kept in preference to b.
// The first candidate after sorting with it becomes the canonical day.
type CanonicalRanking func(a, b DayCandidate) bool

// RichestThenOldest prefers the day with the most linked prescriptions and
// progress rows; among equals, the first created. The ID breaks exact ties
// so repeated runs pick the same row.
func RichestThenOldest(a, b DayCandidate) bool {
	if a.linkedState() != b.linkedState() {
		return a.linkedState() > b.linkedState()
	}
	if !a.Day.CreatedAt.Equal(b.Day.CreatedAt) {
		return a.Day.CreatedAt.Before(b.Day.CreatedAt)
	}
	return a.Day.ID.Hex() < b.Day.ID.Hex()
}

// OldestFirst keeps the first created day regardless of linked state.
func OldestFirst(a, b DayCandidate) bool {
	if !a.Day.CreatedAt.Equal(b.Day.CreatedAt) {
		return a.Day.CreatedAt.Before(b.Day.CreatedAt)
	}
	return a.Day.ID.Hex() < b.Day.ID.Hex()
}

// MergeProgress folds a duplicate day's progress row into the canonical
// day's row for the same instance. Status takes the higher priority; the
// optional fields keep the canonical value and fall back to the duplicate's.
func MergeProgress(canonical, duplicate domain.UserPlanDayProgress) domain.UserPlanDayProgress {
	merged := canonical
	if duplicate.Status.Priority() > canonical.Status.Priority() {
		merged.Status = duplicate.Status
	}
	if merged.WorkoutID == nil {
		merged.WorkoutID = duplicate.WorkoutID
	}
	if merged.ProgressionDecision == nil {
		merged.ProgressionDecision = duplicate.ProgressionDecision
	}
	if merged.DecisionReason == nil {
		merged.DecisionReason = duplicate.DecisionReason
	}
	if merged.ScheduledDate == nil {
		merged.ScheduledDate = duplicate.ScheduledDate
	}
	if duplicate.UpdatedAt.After(merged.UpdatedAt) {
		merged.UpdatedAt = duplicate.UpdatedAt
	}
	return merged
}
