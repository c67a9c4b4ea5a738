package catalog

import (
	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/repository/memory"
	"alcyxob/health-tracker/internal/service"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const seedDoc = `
templates:
  - name: Test Split
    goal: strength
    experienceLevel: beginner
    daysPerWeek: 2
    sessionMinutes: 45
    blocks:
      - name: Base
        weeks:
          - days:
              - dayOfWeek: 1
                focus: Upper
                exercises:
                  - exercise: Bench Press
                    sets: 3
                    reps: "8"
                  - exercise: Row
                    variant: Cable Row
                    sets: 3
                    reps: "10"
              - dayOfWeek: 3
                focus: rest day
          - days:
              - dayOfWeek: 1
                focus: Upper
                exercises:
                  - exercise: Bench Press
                    sets: 4
                    reps: "6"
`

func newRepos() service.Repositories {
	store := memory.NewStore()
	return service.Repositories{
		Templates:     store.Templates(),
		Weeks:         store.Weeks(),
		Days:          store.Days(),
		Prescriptions: store.Prescriptions(),
		Instances:     store.Instances(),
		Progress:      store.Progress(),
		Exercises:     store.Exercises(),
		Tx:            store.Transactor(),
	}
}

func TestSeed_CreatesTemplateTree(t *testing.T) {
	ctx := context.Background()
	repos := newRepos()

	result, err := NewSeeder(repos).Seed(ctx, strings.NewReader(seedDoc))
	require.NoError(t, err)
	assert.Equal(t, 1, result.TemplatesCreated)
	assert.Equal(t, 0, result.TemplatesSkipped)

	template, err := repos.Templates.GetByName(ctx, "Test Split")
	require.NoError(t, err)
	assert.Equal(t, 2, template.DaysPerWeek)

	weeks, err := repos.Weeks.ListByTemplate(ctx, template.ID)
	require.NoError(t, err)
	require.Len(t, weeks, 2)
	assert.Equal(t, 1, weeks[0].WeekNumber)
	assert.Equal(t, 2, weeks[1].WeekNumber)

	days, err := repos.Days.ListByWeek(ctx, weeks[0].ID)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "Upper", days[0].Focus)
	assert.Equal(t, domain.RestFocus, days[1].Focus)
	require.NotNil(t, days[1].DayOfWeek)
	assert.Equal(t, 3, *days[1].DayOfWeek)

	prescriptions, err := repos.Prescriptions.ListByDay(ctx, days[0].ID)
	require.NoError(t, err)
	require.Len(t, prescriptions, 2)
	assert.Equal(t, 1, prescriptions[0].Order)
	assert.Equal(t, 2, prescriptions[1].Order)
	require.NotNil(t, prescriptions[1].ExerciseVariantID)

	names, err := repos.Exercises.VariantNames(ctx, []primitive.ObjectID{*prescriptions[1].ExerciseVariantID})
	require.NoError(t, err)
	assert.Equal(t, "Cable Row", names[*prescriptions[1].ExerciseVariantID])

	// Both weeks reference the same library entry.
	week2Days, err := repos.Days.ListByWeek(ctx, weeks[1].ID)
	require.NoError(t, err)
	week2Prescriptions, err := repos.Prescriptions.ListByDay(ctx, week2Days[0].ID)
	require.NoError(t, err)
	assert.Equal(t, *prescriptions[0].ExerciseLibraryID, *week2Prescriptions[0].ExerciseLibraryID)
}

func TestSeed_IsRerunnable(t *testing.T) {
	ctx := context.Background()
	repos := newRepos()

	_, err := NewSeeder(repos).Seed(ctx, strings.NewReader(seedDoc))
	require.NoError(t, err)
	result, err := NewSeeder(repos).Seed(ctx, strings.NewReader(seedDoc))
	require.NoError(t, err)
	assert.Equal(t, 0, result.TemplatesCreated)
	assert.Equal(t, 1, result.TemplatesSkipped)

	weeks, err := repos.Weeks.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, weeks, 2)
}

func TestSeed_Validation(t *testing.T) {
	for caseName, doc := range map[string]string{
		"missing name":      "templates:\n  - goal: strength\n",
		"duplicate name":    "templates:\n  - name: A\n  - name: A\n",
		"weekday too large": "templates:\n  - name: A\n    blocks:\n      - weeks:\n          - days:\n              - dayOfWeek: 7\n",
		"no exercise name":  "templates:\n  - name: A\n    blocks:\n      - weeks:\n          - days:\n              - exercises:\n                  - sets: 3\n",
		"malformed":         "templates: [",
	} {
		t.Run(caseName, func(t *testing.T) {
			_, err := NewSeeder(newRepos()).Seed(context.Background(), strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestSeed_EmptyDocument(t *testing.T) {
	result, err := NewSeeder(newRepos()).Seed(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, result.TemplatesCreated)
}

func TestSeedFile_SampleCatalog(t *testing.T) {
	ctx := context.Background()
	repos := newRepos()

	result, err := NewSeeder(repos).SeedFile(ctx, "../../configs/catalog.yaml")
	require.NoError(t, err)
	assert.Equal(t, 2, result.TemplatesCreated)

	matches, err := repos.Templates.FindMatching(ctx, "strength", "beginner", 3)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Full Body Foundations", matches[0].Name)
}
