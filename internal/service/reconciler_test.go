package service

import (
	"alcyxob/health-tracker/internal/domain"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// duplicateScenario is one Monday authored three times:
//   - a is the oldest and holds two prescriptions plus the user's planned row
//   - b holds one prescription plus a completed row for the same instance
//   - c holds a row of another user's instance
type duplicateScenario struct {
	week       domain.PlanWeek
	instance   *domain.UserPlanInstance
	a, b, c    domain.PlanDay
	workoutID  primitive.ObjectID
	otherRowID primitive.ObjectID
}

func newDuplicateScenario(f *fixture) duplicateScenario {
	template, weeks := f.createTemplate("Duplicates", 1, 1)
	s := duplicateScenario{week: weeks[0], workoutID: primitive.NewObjectID()}
	userID := primitive.NewObjectID()
	s.instance = f.assign(userID, template.ID)

	s.a = f.daysAt(s.week.ID, 1)[0]
	f.addPrescription(s.a.ID, 1, "Squat")
	f.addPrescription(s.a.ID, 2, "Lunge")

	s.b = f.addDay(template.ID, s.week.ID, 2, intPtr(1), "Upper")
	f.addPrescription(s.b.ID, 1, "Dip")
	completed := f.addProgress(s.instance.ID, userID, s.b.ID, domain.ProgressCompleted)
	completed.WorkoutID = &s.workoutID
	require.NoError(f.t, f.repos.Progress.Update(f.ctx, &completed))

	s.c = f.addDay(template.ID, s.week.ID, 3, intPtr(1), "Upper")
	s.otherRowID = f.addProgress(primitive.NewObjectID(), primitive.NewObjectID(), s.c.ID, domain.ProgressSkipped).ID
	return s
}

func TestCleanupDuplicatePlanDays(t *testing.T) {
	f := newFixture(t)
	s := newDuplicateScenario(f)
	metrics := &recordingMetrics{}

	report, err := f.reconciler(WithMetrics(metrics)).CleanupDuplicatePlanDays(f.ctx, false)
	require.NoError(t, err)
	assert.False(t, report.DryRun)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, report.DuplicateGroups)
	assert.Equal(t, 1, report.PrescriptionsMoved)
	assert.Equal(t, 1, report.ProgressEntriesRepointed)
	assert.Equal(t, 1, report.ProgressEntriesMerged)
	assert.Equal(t, 2, report.DeletedDays)
	require.Len(t, report.Groups, 1)
	assert.Equal(t, DuplicateGroup{
		WeekID:          s.week.ID,
		DayOfWeek:       1,
		CanonicalDayID:  s.a.ID,
		DuplicateDayIDs: []primitive.ObjectID{s.b.ID, s.c.ID},
	}, report.Groups[0])

	mondays := f.daysAt(s.week.ID, 1)
	require.Len(t, mondays, 1)
	assert.Equal(t, s.a.ID, mondays[0].ID)

	prescriptions := f.prescriptions(s.a.ID)
	require.Len(t, prescriptions, 3)
	for i, p := range prescriptions {
		assert.Equal(t, i+1, p.Order)
	}

	rows := f.progressOf(s.a.ID)
	require.Len(t, rows, 2)
	for _, row := range rows {
		if row.PlanInstanceID == s.instance.ID {
			assert.Equal(t, domain.ProgressCompleted, row.Status)
			assert.Equal(t, &s.workoutID, row.WorkoutID)
			assert.NotNil(t, row.ScheduledDate)
		} else {
			assert.Equal(t, s.otherRowID, row.ID)
			assert.Equal(t, domain.ProgressSkipped, row.Status)
		}
	}
	assert.Empty(t, f.progressOf(s.b.ID))
	assert.Empty(t, f.progressOf(s.c.ID))

	require.Len(t, metrics.cleanups, 1)
	assert.Equal(t, 2, metrics.cleanups[0].DeletedDays)

	again, err := f.reconciler().CleanupDuplicatePlanDays(f.ctx, false)
	require.NoError(t, err)
	assert.Zero(t, again.DuplicateGroups)
	assert.Zero(t, again.DeletedDays)
	assert.Empty(t, again.Groups)
}

func TestCleanupDuplicatePlanDays_DryRunMatchesRealRun(t *testing.T) {
	f := newFixture(t)
	s := newDuplicateScenario(f)

	dry, err := f.reconciler().CleanupDuplicatePlanDays(f.ctx, true)
	require.NoError(t, err)
	assert.True(t, dry.DryRun)

	assert.Len(t, f.daysAt(s.week.ID, 1), 3)
	assert.Len(t, f.prescriptions(s.a.ID), 2)
	assert.Len(t, f.prescriptions(s.b.ID), 1)
	assert.Len(t, f.progressOf(s.b.ID), 1)
	assert.Len(t, f.progressOf(s.c.ID), 1)

	applied, err := f.reconciler().CleanupDuplicatePlanDays(f.ctx, false)
	require.NoError(t, err)
	assert.Equal(t, dry.Groups, applied.Groups)
	assert.Equal(t, dry.DuplicateGroups, applied.DuplicateGroups)
	assert.Equal(t, dry.PrescriptionsMoved, applied.PrescriptionsMoved)
	assert.Equal(t, dry.ProgressEntriesRepointed, applied.ProgressEntriesRepointed)
	assert.Equal(t, dry.ProgressEntriesMerged, applied.ProgressEntriesMerged)
	assert.Equal(t, dry.DeletedDays, applied.DeletedDays)
}

func TestCleanupDuplicatePlanDays_RankingPolicy(t *testing.T) {
	setup := func(f *fixture) (older, richer domain.PlanDay) {
		template, weeks := f.createTemplate("Ranking", 1)
		older = f.addDay(template.ID, weeks[0].ID, 1, intPtr(2), "Legs")
		richer = f.addDay(template.ID, weeks[0].ID, 2, intPtr(2), "Legs")
		f.addPrescription(richer.ID, 1, "Squat")
		f.addPrescription(richer.ID, 2, "Deadlift")
		return older, richer
	}

	t.Run("richest wins by default", func(t *testing.T) {
		f := newFixture(t)
		_, richer := setup(f)
		report, err := f.reconciler().CleanupDuplicatePlanDays(f.ctx, false)
		require.NoError(t, err)
		assert.Equal(t, richer.ID, report.Groups[0].CanonicalDayID)
		assert.Zero(t, report.PrescriptionsMoved)
	})

	t.Run("oldest first", func(t *testing.T) {
		f := newFixture(t)
		older, _ := setup(f)
		report, err := f.reconciler(WithRanking(OldestFirst)).CleanupDuplicatePlanDays(f.ctx, false)
		require.NoError(t, err)
		assert.Equal(t, older.ID, report.Groups[0].CanonicalDayID)
		assert.Equal(t, 2, report.PrescriptionsMoved)
		assert.Len(t, f.prescriptions(older.ID), 2)
	})
}

func TestCleanupDuplicatePlanDays_IgnoresDaysWithoutWeekday(t *testing.T) {
	f := newFixture(t)
	template, weeks := f.createTemplate("Legacy", 1)
	f.addDay(template.ID, weeks[0].ID, 1, nil, "Push")
	f.addDay(template.ID, weeks[0].ID, 2, nil, "Push")

	report, err := f.reconciler().CleanupDuplicatePlanDays(f.ctx, false)
	require.NoError(t, err)
	assert.Zero(t, report.DuplicateGroups)
	assert.Len(t, f.days(weeks[0].ID), 2)
}

func TestCleanupDuplicatePlanDays_Cancelled(t *testing.T) {
	f := newFixture(t)
	newDuplicateScenario(f)
	ctx, cancel := context.WithCancel(f.ctx)
	cancel()

	report, err := f.reconciler().CleanupDuplicatePlanDays(ctx, false)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Zero(t, report.DeletedDays)
}

type fakeArchive struct {
	keys      []string
	bodies    [][]byte
	putErr    error
	presignOK bool
}

func (a *fakeArchive) PutReport(_ context.Context, key string, body []byte) (string, error) {
	if a.putErr != nil {
		return "", a.putErr
	}
	a.keys = append(a.keys, key)
	a.bodies = append(a.bodies, body)
	return "reports/" + key, nil
}

func (a *fakeArchive) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	if !a.presignOK {
		return "", errors.New("presign unavailable")
	}
	return "https://archive.example/" + objectKey, nil
}

func TestCleanupDuplicatePlanDays_ArchivesReport(t *testing.T) {
	f := newFixture(t)
	newDuplicateScenario(f)
	archive := &fakeArchive{presignOK: true}
	r := f.reconciler(WithArchive(archive))

	dry, err := r.CleanupDuplicatePlanDays(f.ctx, true)
	require.NoError(t, err)
	assert.Empty(t, archive.keys)
	assert.Empty(t, dry.ArchiveKey)

	report, err := r.CleanupDuplicatePlanDays(f.ctx, false)
	require.NoError(t, err)
	require.Len(t, archive.keys, 1)
	assert.True(t, strings.HasPrefix(archive.keys[0], "20260301T093000Z-"+report.RunID))
	assert.Equal(t, "reports/"+archive.keys[0], report.ArchiveKey)
	assert.Equal(t, "https://archive.example/"+report.ArchiveKey, report.ArchiveURL)
	assert.Contains(t, string(archive.bodies[0]), `"deletedDays": 2`)
}

func TestCleanupDuplicatePlanDays_ArchiveFailureDoesNotFailRun(t *testing.T) {
	f := newFixture(t)
	s := newDuplicateScenario(f)
	archive := &fakeArchive{putErr: errors.New("bucket gone")}

	report, err := f.reconciler(WithArchive(archive)).CleanupDuplicatePlanDays(f.ctx, false)
	require.NoError(t, err)
	assert.Empty(t, report.ArchiveKey)
	assert.Empty(t, report.ArchiveURL)
	assert.Len(t, f.daysAt(s.week.ID, 1), 1)
}

func TestReconcileWeekDay_ScopedToOneWeekday(t *testing.T) {
	f := newFixture(t)
	template, weeks := f.createTemplate("Scoped", 1, 1, 3)
	f.addDay(template.ID, weeks[0].ID, 3, intPtr(1), "Upper")
	f.addDay(template.ID, weeks[0].ID, 4, intPtr(3), "Upper")
	r := f.reconciler()

	report, err := r.ReconcileWeekDay(f.ctx, weeks[0].ID, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.DuplicateGroups)
	assert.Len(t, f.daysAt(weeks[0].ID, 1), 1)
	assert.Len(t, f.daysAt(weeks[0].ID, 3), 2)

	report, err = r.ReconcileWeekDay(f.ctx, weeks[0].ID, 5, false)
	require.NoError(t, err)
	assert.Zero(t, report.DuplicateGroups)
	assert.Empty(t, report.Groups)
}

func TestRichestThenOldest(t *testing.T) {
	older := domain.PlanDay{ID: primitive.NewObjectID(), CreatedAt: baseTime}
	newer := domain.PlanDay{ID: primitive.NewObjectID(), CreatedAt: baseTime.Add(time.Minute)}

	assert.True(t, RichestThenOldest(DayCandidate{Day: newer, PrescriptionCount: 1}, DayCandidate{Day: older}))
	assert.True(t, RichestThenOldest(DayCandidate{Day: newer, ProgressCount: 2}, DayCandidate{Day: older, PrescriptionCount: 1}))
	assert.True(t, RichestThenOldest(DayCandidate{Day: older, ProgressCount: 1}, DayCandidate{Day: newer, PrescriptionCount: 1}))
	assert.False(t, RichestThenOldest(DayCandidate{Day: newer}, DayCandidate{Day: older}))

	sameTime := domain.PlanDay{ID: newer.ID, CreatedAt: older.CreatedAt}
	lower, higher := older, sameTime
	if lower.ID.Hex() > higher.ID.Hex() {
		lower, higher = higher, lower
	}
	assert.True(t, RichestThenOldest(DayCandidate{Day: lower}, DayCandidate{Day: higher}))
	assert.False(t, RichestThenOldest(DayCandidate{Day: higher}, DayCandidate{Day: lower}))
}

func TestOldestFirst(t *testing.T) {
	older := domain.PlanDay{ID: primitive.NewObjectID(), CreatedAt: baseTime}
	newer := domain.PlanDay{ID: primitive.NewObjectID(), CreatedAt: baseTime.Add(time.Minute)}
	assert.True(t, OldestFirst(DayCandidate{Day: older}, DayCandidate{Day: newer, PrescriptionCount: 5}))
	assert.False(t, OldestFirst(DayCandidate{Day: newer, PrescriptionCount: 5}, DayCandidate{Day: older}))
}

func TestMergeProgress(t *testing.T) {
	workout := primitive.NewObjectID()
	otherWorkout := primitive.NewObjectID()
	hold := domain.DecisionHold
	scheduled := baseTime.Truncate(24 * time.Hour)
	later := baseTime.Add(time.Hour)

	for caseName, tc := range map[string]struct {
		canonical, duplicate domain.UserPlanDayProgress
		want                 domain.UserPlanDayProgress
	}{
		"completed duplicate wins status and fills fields": {
			canonical: domain.UserPlanDayProgress{Status: domain.ProgressPlanned, ScheduledDate: &scheduled, UpdatedAt: baseTime},
			duplicate: domain.UserPlanDayProgress{Status: domain.ProgressCompleted, WorkoutID: &workout, ProgressionDecision: &hold, UpdatedAt: later},
			want:      domain.UserPlanDayProgress{Status: domain.ProgressCompleted, ScheduledDate: &scheduled, WorkoutID: &workout, ProgressionDecision: &hold, UpdatedAt: later},
		},
		"skipped does not downgrade completed": {
			canonical: domain.UserPlanDayProgress{Status: domain.ProgressCompleted, WorkoutID: &workout, UpdatedAt: later},
			duplicate: domain.UserPlanDayProgress{Status: domain.ProgressSkipped, WorkoutID: &otherWorkout, DecisionReason: strPtr("sick"), UpdatedAt: baseTime},
			want:      domain.UserPlanDayProgress{Status: domain.ProgressCompleted, WorkoutID: &workout, DecisionReason: strPtr("sick"), UpdatedAt: later},
		},
		"skipped beats planned": {
			canonical: domain.UserPlanDayProgress{Status: domain.ProgressPlanned},
			duplicate: domain.UserPlanDayProgress{Status: domain.ProgressSkipped},
			want:      domain.UserPlanDayProgress{Status: domain.ProgressSkipped},
		},
	} {
		t.Run(caseName, func(t *testing.T) {
			assert.Equal(t, tc.want, MergeProgress(tc.canonical, tc.duplicate))
		})
	}
}

func TestCleanupDuplicatePlanDays_OlderRicherDaySurvives(t *testing.T) {
	f := newFixture(t)
	template, weeks := f.createTemplate("Tuesday", 1)
	userID := primitive.NewObjectID()
	instance := f.assign(userID, template.ID)

	older := f.addDay(template.ID, weeks[0].ID, 1, intPtr(2), "Pull")
	for i := 1; i <= 3; i++ {
		f.addPrescription(older.ID, i, "Row")
	}
	f.addProgress(instance.ID, userID, older.ID, domain.ProgressPlanned)
	newer := f.addDay(template.ID, weeks[0].ID, 2, intPtr(2), "Pull")
	f.addPrescription(newer.ID, 1, "Curl")

	report, err := f.reconciler().CleanupDuplicatePlanDays(f.ctx, false)
	require.NoError(t, err)
	assert.Equal(t, older.ID, report.Groups[0].CanonicalDayID)
	assert.Equal(t, 1, report.PrescriptionsMoved)
	assert.Equal(t, 1, report.DeletedDays)
	assert.Len(t, f.prescriptions(older.ID), 4)
	assert.Len(t, f.progressOf(older.ID), 1)
	_, err = f.repos.Days.GetByID(f.ctx, newer.ID)
	assert.Error(t, err)
}
