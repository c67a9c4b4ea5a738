package service

import (
	"alcyxob/health-tracker/internal/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMarkDayCompleted(t *testing.T) {
	f := newFixture(t)
	template, _ := f.createTemplate("Progress", 1, 1, 3, 5)
	userID := primitive.NewObjectID()
	instance := f.assign(userID, template.ID)
	row := f.instanceProgress(instance.ID)[0]
	f.now = baseTime.Add(48 * time.Hour)

	workoutID := primitive.NewObjectID()
	decision := domain.DecisionIncrease
	completed, err := f.progressService().MarkDayCompleted(f.ctx, MarkDayCompletedInput{
		UserID:              userID,
		ProgressID:          row.ID,
		WorkoutID:           &workoutID,
		ProgressionDecision: &decision,
		DecisionReason:      strPtr("all sets at RIR 3"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ProgressCompleted, completed.Status)

	stored, err := f.repos.Progress.GetByID(f.ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProgressCompleted, stored.Status)
	assert.Equal(t, &workoutID, stored.WorkoutID)
	assert.Equal(t, &decision, stored.ProgressionDecision)
	assert.Equal(t, "all sets at RIR 3", *stored.DecisionReason)
	assert.Equal(t, f.now, stored.UpdatedAt)
	assert.Equal(t, row.ScheduledDate, stored.ScheduledDate)
}

func TestMarkDayCompleted_Errors(t *testing.T) {
	f := newFixture(t)
	template, _ := f.createTemplate("Progress", 1, 1)
	userID := primitive.NewObjectID()
	instance := f.assign(userID, template.ID)
	row := f.instanceProgress(instance.ID)[0]
	svc := f.progressService()

	_, err := svc.MarkDayCompleted(f.ctx, MarkDayCompletedInput{UserID: primitive.NewObjectID(), ProgressID: row.ID})
	assert.ErrorIs(t, err, ErrProgressNotFound)

	_, err = svc.MarkDayCompleted(f.ctx, MarkDayCompletedInput{UserID: userID, ProgressID: primitive.NewObjectID()})
	assert.ErrorIs(t, err, ErrProgressNotFound)

	bogus := domain.ProgressionDecision("double")
	_, err = svc.MarkDayCompleted(f.ctx, MarkDayCompletedInput{UserID: userID, ProgressID: row.ID, ProgressionDecision: &bogus})
	assert.ErrorIs(t, err, ErrInvalidInput)

	stored, err := f.repos.Progress.GetByID(f.ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProgressPlanned, stored.Status)
}

func TestMarkDaySkipped(t *testing.T) {
	f := newFixture(t)
	template, _ := f.createTemplate("Progress", 1, 1)
	userID := primitive.NewObjectID()
	instance := f.assign(userID, template.ID)
	row := f.instanceProgress(instance.ID)[0]
	svc := f.progressService()

	skipped, err := svc.MarkDaySkipped(f.ctx, userID, row.ID, strPtr("travelling"))
	require.NoError(t, err)
	assert.Equal(t, domain.ProgressSkipped, skipped.Status)
	assert.Equal(t, "travelling", *skipped.DecisionReason)

	_, err = svc.MarkDaySkipped(f.ctx, primitive.NewObjectID(), row.ID, nil)
	assert.ErrorIs(t, err, ErrProgressNotFound)
}

func TestGetAdherence(t *testing.T) {
	f := newFixture(t)
	template, _ := f.createTemplate("Adherence", 1, 1, 3, 5)
	userID := primitive.NewObjectID()
	instance := f.assign(userID, template.ID)
	rows := f.instanceProgress(instance.ID)
	require.Len(t, rows, 3)
	svc := f.progressService()

	adherence, err := svc.GetAdherence(f.ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, &Adherence{PlannedCount: 3}, adherence)

	_, err = svc.MarkDayCompleted(f.ctx, MarkDayCompletedInput{UserID: userID, ProgressID: rows[0].ID})
	require.NoError(t, err)
	adherence, err = svc.GetAdherence(f.ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, &Adherence{PlannedCount: 3, CompletedCount: 1, AdherenceRate: 33}, adherence)

	_, err = svc.MarkDayCompleted(f.ctx, MarkDayCompletedInput{UserID: userID, ProgressID: rows[1].ID})
	require.NoError(t, err)
	_, err = svc.MarkDaySkipped(f.ctx, userID, rows[2].ID, nil)
	require.NoError(t, err)
	adherence, err = svc.GetAdherence(f.ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, &Adherence{PlannedCount: 3, CompletedCount: 2, SkippedCount: 1, AdherenceRate: 67}, adherence)
}

func TestGetAdherence_NoActivePlan(t *testing.T) {
	f := newFixture(t)
	adherence, err := f.progressService().GetAdherence(f.ctx, primitive.NewObjectID())
	require.NoError(t, err)
	assert.Equal(t, &Adherence{}, adherence)
}
