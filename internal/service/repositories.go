package service

import (
	"alcyxob/health-tracker/internal/repository"
	"time"
)

// Repositories bundles the stores the plan engine reads and writes.
type Repositories struct {
	Templates     repository.TemplateRepository
	Weeks         repository.PlanWeekRepository
	Days          repository.PlanDayRepository
	Prescriptions repository.PrescriptionRepository
	Instances     repository.PlanInstanceRepository
	Progress      repository.ProgressRepository
	Exercises     repository.ExerciseRepository
	Tx            repository.Transactor
}

// Metrics receives counters from the schedule and reconciliation paths.
type Metrics interface {
	RecordDayUpsert(created bool)
	RecordCleanup(dryRun bool, duplicateGroups, prescriptionsMoved, progressRepointed, progressMerged, deletedDays int)
}

type noopMetrics struct{}

func (noopMetrics) RecordDayUpsert(bool) {}
func (noopMetrics) RecordCleanup(bool, int, int, int, int, int) {}

func defaultClock() time.Time {
	return time.Now()
}
