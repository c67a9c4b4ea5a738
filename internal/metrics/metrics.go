package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "health_tracker"
	subsystem = "plans"
)

// Manager holds the plan engine's collectors. It satisfies service.Metrics.
type Manager struct {
	CounterDayUpserts          *prometheus.CounterVec
	CounterCleanupRuns         *prometheus.CounterVec
	CounterDuplicateGroups     *prometheus.CounterVec
	CounterPrescriptionsMoved  *prometheus.CounterVec
	CounterProgressRepointed   *prometheus.CounterVec
	CounterProgressMerged      *prometheus.CounterVec
	CounterDeletedDays         *prometheus.CounterVec
	GaugeLastCleanupDuplicates prometheus.Gauge
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager(reg), reg
}

func NewManager(reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)
	dryRun := []string{"dry_run"}

	return &Manager{
		CounterDayUpserts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "day_upserts_total",
			Help:      "Weekday upserts, split by whether a plan day was created",
		}, []string{"created"}),
		CounterCleanupRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cleanup_runs_total",
			Help:      "Completed duplicate plan day cleanups",
		}, dryRun),
		CounterDuplicateGroups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cleanup_duplicate_groups_total",
			Help:      "Weekday slots found holding more than one plan day",
		}, dryRun),
		CounterPrescriptionsMoved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cleanup_prescriptions_moved_total",
			Help:      "Prescriptions moved onto canonical plan days",
		}, dryRun),
		CounterProgressRepointed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cleanup_progress_repointed_total",
			Help:      "Progress rows repointed onto canonical plan days",
		}, dryRun),
		CounterProgressMerged: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cleanup_progress_merged_total",
			Help:      "Progress rows merged into an existing canonical row",
		}, dryRun),
		CounterDeletedDays: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cleanup_deleted_days_total",
			Help:      "Duplicate plan days deleted",
		}, dryRun),
		GaugeLastCleanupDuplicates: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_cleanup_duplicate_groups",
			Help:      "Duplicate groups seen by the most recent cleanup",
		}),
	}
}

func (m *Manager) RecordDayUpsert(created bool) {
	m.CounterDayUpserts.WithLabelValues(strconv.FormatBool(created)).Inc()
}

func (m *Manager) RecordCleanup(dryRun bool, duplicateGroups, prescriptionsMoved, progressRepointed, progressMerged, deletedDays int) {
	label := strconv.FormatBool(dryRun)
	m.CounterCleanupRuns.WithLabelValues(label).Inc()
	m.CounterDuplicateGroups.WithLabelValues(label).Add(float64(duplicateGroups))
	m.CounterPrescriptionsMoved.WithLabelValues(label).Add(float64(prescriptionsMoved))
	m.CounterProgressRepointed.WithLabelValues(label).Add(float64(progressRepointed))
	m.CounterProgressMerged.WithLabelValues(label).Add(float64(progressMerged))
	m.CounterDeletedDays.WithLabelValues(label).Add(float64(deletedDays))
	m.GaugeLastCleanupDuplicates.Set(float64(duplicateGroups))
}
