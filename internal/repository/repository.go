package repository

import (
	"alcyxob/health-tracker/internal/domain"
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound = RepositoryError("not found")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Transactor runs fn as one unit of work. Implementations without
// multi-document transactions simply call fn.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// TemplateRepository reads and seeds the template catalog.
type TemplateRepository interface {
	Create(ctx context.Context, template *domain.PlanTemplate) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanTemplate, error)
	GetByName(ctx context.Context, name string) (*domain.PlanTemplate, error)
	// FindMatching returns templates for the given goal, level and days per week, ordered by name.
	FindMatching(ctx context.Context, goal, experienceLevel string, daysPerWeek int) ([]domain.PlanTemplate, error)
	CreateBlock(ctx context.Context, block *domain.PlanBlock) (primitive.ObjectID, error)
}

// PlanWeekRepository defines access to template weeks.
type PlanWeekRepository interface {
	Create(ctx context.Context, week *domain.PlanWeek) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanWeek, error)
	GetByTemplateAndNumber(ctx context.Context, templateID primitive.ObjectID, weekNumber int) (*domain.PlanWeek, error)
	// ListByTemplate returns weeks ordered by weekNumber.
	ListByTemplate(ctx context.Context, templateID primitive.ObjectID) ([]domain.PlanWeek, error)
	// ListAll returns every week in the system, ordered by template then weekNumber.
	ListAll(ctx context.Context) ([]domain.PlanWeek, error)
}

// PlanDayPatch holds the fields UpsertWeekDay may change on an existing day.
type PlanDayPatch struct {
	Focus            string
	DayOfWeek        int
	Name             *string
	EstimatedMinutes *int
}

// PlanDayRepository defines access to plan days.
type PlanDayRepository interface {
	Create(ctx context.Context, day *domain.PlanDay) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanDay, error)
	// ListByWeek returns the week's days ordered by dayNumber, then createdAt.
	ListByWeek(ctx context.Context, weekID primitive.ObjectID) ([]domain.PlanDay, error)
	Patch(ctx context.Context, id primitive.ObjectID, patch PlanDayPatch) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// PrescriptionRepository defines access to plan prescriptions.
type PrescriptionRepository interface {
	Create(ctx context.Context, p *domain.PlanPrescription) (primitive.ObjectID, error)
	// ListByDay returns the day's prescriptions ordered by order, then createdAt.
	ListByDay(ctx context.Context, dayID primitive.ObjectID) ([]domain.PlanPrescription, error)
	CountByDay(ctx context.Context, dayID primitive.ObjectID) (int, error)
	// Place sets the owning day and order of a prescription.
	Place(ctx context.Context, id, dayID primitive.ObjectID, order int) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// PlanInstanceRepository defines access to user plan instances.
type PlanInstanceRepository interface {
	// Create keeps a preset ID so dependent rows can be written first.
	Create(ctx context.Context, instance *domain.UserPlanInstance) (primitive.ObjectID, error)
	GetActiveByUser(ctx context.Context, userID primitive.ObjectID) (*domain.UserPlanInstance, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status domain.PlanStatus) error
	// PauseActiveForUser pauses every active instance of the user except keepID
	// and reports how many changed.
	PauseActiveForUser(ctx context.Context, userID, keepID primitive.ObjectID) (int, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.UserPlanInstance, error)
}

// ProgressRepository defines access to per-day progress rows.
type ProgressRepository interface {
	CreateMany(ctx context.Context, rows []domain.UserPlanDayProgress) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.UserPlanDayProgress, error)
	GetByInstanceAndDay(ctx context.Context, instanceID, dayID primitive.ObjectID) (*domain.UserPlanDayProgress, error)
	ListByInstance(ctx context.Context, instanceID primitive.ObjectID) ([]domain.UserPlanDayProgress, error)
	ListByDay(ctx context.Context, dayID primitive.ObjectID) ([]domain.UserPlanDayProgress, error)
	CountByDay(ctx context.Context, dayID primitive.ObjectID) (int, error)
	// Update replaces the mutable fields (status, workout, decision, reason,
	// scheduledDate, updatedAt) of the row.
	Update(ctx context.Context, row *domain.UserPlanDayProgress) error
	Repoint(ctx context.Context, id, dayID primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByInstance(ctx context.Context, instanceID primitive.ObjectID) (int, error)
}

// ExerciseRepository resolves exercise identities for display and seeding.
type ExerciseRepository interface {
	CreateLibraryEntry(ctx context.Context, entry *domain.ExerciseLibraryEntry) (primitive.ObjectID, error)
	GetLibraryEntryByName(ctx context.Context, name string) (*domain.ExerciseLibraryEntry, error)
	CreateVariant(ctx context.Context, variant *domain.ExerciseVariant) (primitive.ObjectID, error)
	// VariantNames and LibraryNames return id -> name for the ids that exist.
	VariantNames(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error)
	LibraryNames(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error)
}
