package service

import (
	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/repository"
	"alcyxob/health-tracker/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DuplicateGroup describes one (week, weekday) pair that held several days.
type DuplicateGroup struct {
	WeekID          primitive.ObjectID   `json:"weekId"`
	DayOfWeek       int                  `json:"dayOfWeek"`
	CanonicalDayID  primitive.ObjectID   `json:"canonicalDayId"`
	DuplicateDayIDs []primitive.ObjectID `json:"duplicateDayIds"`
}

// CleanupReport counts what a reconciliation did, or would do in dry-run
// mode. Counters are identical in both modes.
type CleanupReport struct {
	RunID                    string           `json:"runId"`
	DryRun                   bool             `json:"dryRun"`
	DuplicateGroups          int              `json:"duplicateGroups"`
	PrescriptionsMoved       int              `json:"prescriptionsMoved"`
	ProgressEntriesRepointed int              `json:"progressEntriesRepointed"`
	ProgressEntriesMerged    int              `json:"progressEntriesMerged"`
	DeletedDays              int              `json:"deletedDays"`
	Groups                   []DuplicateGroup `json:"groups"`
	StartedAt                time.Time        `json:"startedAt"`
	FinishedAt               time.Time        `json:"finishedAt"`
	ArchiveKey               string           `json:"archiveKey,omitempty"`
	ArchiveURL               string           `json:"archiveUrl,omitempty"` // Presigned download link, valid for storage.DefaultPresignedURLExpiry
}

// Reconciler merges plan days that share a weekday within a week.
// Each merge step is persisted before the next, and the duplicate day is
// deleted last, so an interrupted run leaves a state the next run repairs.
type Reconciler struct {
	repos   Repositories
	rank    CanonicalRanking
	archive storage.ReportArchive
	metrics Metrics
	now     func() time.Time
}

type ReconcilerOption func(*Reconciler)

// WithRanking swaps the canonical-day policy.
func WithRanking(rank CanonicalRanking) ReconcilerOption {
	return func(r *Reconciler) { r.rank = rank }
}

// WithArchive uploads the report of every non-dry full cleanup.
func WithArchive(archive storage.ReportArchive) ReconcilerOption {
	return func(r *Reconciler) { r.archive = archive }
}

func WithMetrics(metrics Metrics) ReconcilerOption {
	return func(r *Reconciler) { r.metrics = metrics }
}

func NewReconciler(repos Repositories, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		repos:   repos,
		rank:    RichestThenOldest,
		metrics: noopMetrics{},
		now:     defaultClock,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CleanupDuplicatePlanDays scans every week and merges duplicate weekday
// rows. With dryRun it runs the same decisions without writing.
func (r *Reconciler) CleanupDuplicatePlanDays(ctx context.Context, dryRun bool) (*CleanupReport, error) {
	report := r.newReport(dryRun)
	logger := log.WithFields(log.Fields{"run": report.RunID, "dryRun": dryRun})

	weeks, err := r.repos.Weeks.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list weeks: %w", err)
	}

	for _, week := range weeks {
		if err := ctx.Err(); err != nil {
			logger.WithError(err).Warn("cleanup interrupted")
			return report, err
		}
		days, err := r.repos.Days.ListByWeek(ctx, week.ID)
		if err != nil {
			return report, fmt.Errorf("list days of week %s: %w", week.ID.Hex(), err)
		}
		groups := groupByWeekday(days)
		for dow := 0; dow < DaysInWeek; dow++ {
			if len(groups[dow]) < 2 {
				continue
			}
			if err := r.mergeGroup(ctx, week.ID, dow, groups[dow], report); err != nil {
				return report, err
			}
		}
	}
	report.FinishedAt = r.now().UTC()

	r.metrics.RecordCleanup(dryRun, report.DuplicateGroups, report.PrescriptionsMoved,
		report.ProgressEntriesRepointed, report.ProgressEntriesMerged, report.DeletedDays)
	if !dryRun && r.archive != nil {
		r.archiveReport(ctx, report)
	}

	logger.WithFields(log.Fields{
		"weeks":              len(weeks),
		"duplicateGroups":    report.DuplicateGroups,
		"prescriptionsMoved": report.PrescriptionsMoved,
		"progressRepointed":  report.ProgressEntriesRepointed,
		"progressMerged":     report.ProgressEntriesMerged,
		"deletedDays":        report.DeletedDays,
	}).Info("plan day cleanup finished")
	return report, nil
}

// ReconcileWeekDay merges the duplicates of a single (week, weekday) pair.
// The report has one group when a merge happened and none otherwise.
func (r *Reconciler) ReconcileWeekDay(ctx context.Context, weekID primitive.ObjectID, dayOfWeek int, dryRun bool) (*CleanupReport, error) {
	report := r.newReport(dryRun)

	days, err := r.repos.Days.ListByWeek(ctx, weekID)
	if err != nil {
		return nil, fmt.Errorf("list days of week %s: %w", weekID.Hex(), err)
	}
	group := groupByWeekday(days)[dayOfWeek]
	if len(group) > 1 {
		if err := r.mergeGroup(ctx, weekID, dayOfWeek, group, report); err != nil {
			return report, err
		}
		log.WithFields(log.Fields{
			"week":      weekID.Hex(),
			"dayOfWeek": dayOfWeek,
			"canonical": report.Groups[0].CanonicalDayID.Hex(),
			"deleted":   report.DeletedDays,
		}).Info("merged duplicate plan days")
	}
	report.FinishedAt = r.now().UTC()
	return report, nil
}

func (r *Reconciler) newReport(dryRun bool) *CleanupReport {
	return &CleanupReport{
		RunID:     uuid.NewString(),
		DryRun:    dryRun,
		Groups:    []DuplicateGroup{},
		StartedAt: r.now().UTC(),
	}
}

// groupByWeekday buckets days by weekday. Rows without a weekday predate the
// weekday model and are left out.
func groupByWeekday(days []domain.PlanDay) map[int][]domain.PlanDay {
	groups := make(map[int][]domain.PlanDay)
	for _, day := range days {
		if day.DayOfWeek == nil {
			continue
		}
		groups[*day.DayOfWeek] = append(groups[*day.DayOfWeek], day)
	}
	return groups
}

// rankCandidates loads linked-state counts and orders the days by r.rank.
func (r *Reconciler) rankCandidates(ctx context.Context, days []domain.PlanDay) ([]DayCandidate, error) {
	candidates := make([]DayCandidate, 0, len(days))
	for _, day := range days {
		prescriptions, err := r.repos.Prescriptions.CountByDay(ctx, day.ID)
		if err != nil {
			return nil, fmt.Errorf("count prescriptions of day %s: %w", day.ID.Hex(), err)
		}
		progress, err := r.repos.Progress.CountByDay(ctx, day.ID)
		if err != nil {
			return nil, fmt.Errorf("count progress of day %s: %w", day.ID.Hex(), err)
		}
		candidates = append(candidates, DayCandidate{Day: day, PrescriptionCount: prescriptions, ProgressCount: progress})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return r.rank(candidates[i], candidates[j])
	})
	return candidates, nil
}

func (r *Reconciler) mergeGroup(ctx context.Context, weekID primitive.ObjectID, dayOfWeek int, days []domain.PlanDay, report *CleanupReport) error {
	dryRun := report.DryRun

	candidates, err := r.rankCandidates(ctx, days)
	if err != nil {
		return err
	}
	canonical := candidates[0].Day

	canonicalPrescriptions, err := r.repos.Prescriptions.ListByDay(ctx, canonical.ID)
	if err != nil {
		return fmt.Errorf("list prescriptions of day %s: %w", canonical.ID.Hex(), err)
	}
	maxOrder := 0
	for _, p := range canonicalPrescriptions {
		if p.Order > maxOrder {
			maxOrder = p.Order
		}
	}

	// Canonical progress per instance, kept current in dry runs too so later
	// duplicates see the same state a real run would.
	canonicalRows, err := r.repos.Progress.ListByDay(ctx, canonical.ID)
	if err != nil {
		return fmt.Errorf("list progress of day %s: %w", canonical.ID.Hex(), err)
	}
	byInstance := make(map[primitive.ObjectID]domain.UserPlanDayProgress, len(canonicalRows))
	for _, row := range canonicalRows {
		if _, seen := byInstance[row.PlanInstanceID]; !seen {
			byInstance[row.PlanInstanceID] = row
		}
	}

	group := DuplicateGroup{WeekID: weekID, DayOfWeek: dayOfWeek, CanonicalDayID: canonical.ID}
	for _, candidate := range candidates[1:] {
		duplicate := candidate.Day

		// a. Prescriptions are appended after the canonical day's, keeping their order.
		prescriptions, err := r.repos.Prescriptions.ListByDay(ctx, duplicate.ID)
		if err != nil {
			return fmt.Errorf("list prescriptions of day %s: %w", duplicate.ID.Hex(), err)
		}
		for _, p := range prescriptions {
			maxOrder++
			if !dryRun {
				if err := r.repos.Prescriptions.Place(ctx, p.ID, canonical.ID, maxOrder); err != nil {
					return fmt.Errorf("move prescription %s: %w", p.ID.Hex(), err)
				}
			}
			report.PrescriptionsMoved++
		}

		// b. Progress rows are repointed, or merged when the instance already has one.
		rows, err := r.repos.Progress.ListByDay(ctx, duplicate.ID)
		if err != nil {
			return fmt.Errorf("list progress of day %s: %w", duplicate.ID.Hex(), err)
		}
		for _, row := range rows {
			existing, ok := byInstance[row.PlanInstanceID]
			if !ok {
				if !dryRun {
					if err := r.repos.Progress.Repoint(ctx, row.ID, canonical.ID); err != nil {
						return fmt.Errorf("repoint progress %s: %w", row.ID.Hex(), err)
					}
				}
				row.PlanDayID = canonical.ID
				byInstance[row.PlanInstanceID] = row
				report.ProgressEntriesRepointed++
				continue
			}

			merged := MergeProgress(existing, row)
			if !dryRun {
				if err := r.repos.Progress.Update(ctx, &merged); err != nil {
					return fmt.Errorf("merge progress into %s: %w", merged.ID.Hex(), err)
				}
				if err := r.repos.Progress.Delete(ctx, row.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("delete merged progress %s: %w", row.ID.Hex(), err)
				}
			}
			byInstance[row.PlanInstanceID] = merged
			report.ProgressEntriesMerged++
		}

		// c. The emptied duplicate goes last.
		if !dryRun {
			if err := r.repos.Days.Delete(ctx, duplicate.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("delete duplicate day %s: %w", duplicate.ID.Hex(), err)
			}
		}
		report.DeletedDays++
		group.DuplicateDayIDs = append(group.DuplicateDayIDs, duplicate.ID)
	}

	report.DuplicateGroups++
	report.Groups = append(report.Groups, group)
	return nil
}

// archiveReport uploads the report; failures are logged and do not fail the run.
func (r *Reconciler) archiveReport(ctx context.Context, report *CleanupReport) {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.WithError(err).Warn("failed to encode cleanup report")
		return
	}
	key := fmt.Sprintf("%s-%s.json", report.StartedAt.Format("20060102T150405Z"), report.RunID)
	objectKey, err := r.archive.PutReport(ctx, key, body)
	if err != nil {
		log.WithError(err).WithField("run", report.RunID).Warn("failed to archive cleanup report")
		return
	}
	report.ArchiveKey = objectKey

	url, err := r.archive.GeneratePresignedDownloadURL(ctx, objectKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		log.WithError(err).WithField("key", objectKey).Warn("failed to presign cleanup report")
		return
	}
	report.ArchiveURL = url
}
