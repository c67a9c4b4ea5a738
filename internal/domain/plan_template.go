// internal/domain/plan_template.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanTemplate is an authored, reusable multi-week training program.
// Templates are seeded once by the catalog and are read-only afterwards.
type PlanTemplate struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	Goal            string             `bson:"goal" json:"goal"`                       // e.g., "strength", "hypertrophy"
	ExperienceLevel string             `bson:"experienceLevel" json:"experienceLevel"` // e.g., "beginner"
	DaysPerWeek     int                `bson:"daysPerWeek" json:"daysPerWeek"`
	SessionMinutes  int                `bson:"sessionMinutes" json:"sessionMinutes"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}

// PlanBlock groups consecutive weeks of a template (e.g., "Accumulation").
type PlanBlock struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanTemplateID primitive.ObjectID `bson:"planTemplateId" json:"planTemplateId"`
	Name           string             `bson:"name" json:"name"`
	Order          int                `bson:"order" json:"order"`
}

// PlanWeek is one numbered week (1..N) of a template.
type PlanWeek struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanTemplateID primitive.ObjectID `bson:"planTemplateId" json:"planTemplateId"`
	BlockID        primitive.ObjectID `bson:"blockId,omitempty" json:"blockId,omitempty"`
	WeekNumber     int                `bson:"weekNumber" json:"weekNumber"`
}

// PlanDay is a single training day within a template week.
// At most one PlanDay per (WeekID, DayOfWeek) is the target state; concurrent
// upserts can break it and the reconciler repairs it.
type PlanDay struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanTemplateID   primitive.ObjectID `bson:"planTemplateId" json:"planTemplateId"`
	WeekID           primitive.ObjectID `bson:"weekId" json:"weekId"`
	DayNumber        int                `bson:"dayNumber" json:"dayNumber"`
	DayOfWeek        *int               `bson:"dayOfWeek,omitempty" json:"dayOfWeek,omitempty"` // 0 (Sun) - 6 (Sat); nil on legacy rows
	Name             string             `bson:"name" json:"name"`
	Focus            string             `bson:"focus" json:"focus"`
	EstimatedMinutes int                `bson:"estimatedMinutes" json:"estimatedMinutes"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
}

// FocusKind reports whether the day is a rest day or a trained one.
func (d *PlanDay) FocusKind() DayFocus {
	return ParseDayFocus(d.Focus)
}

// PlanPrescription assigns one exercise (sets/reps/rest) to a plan day.
// Order is unique within a day and defines the execution sequence.
type PlanPrescription struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	PlanDayID         primitive.ObjectID  `bson:"planDayId" json:"planDayId"`
	Order             int                 `bson:"order" json:"order"`
	ExerciseVariantID *primitive.ObjectID `bson:"exerciseVariantId,omitempty" json:"exerciseVariantId,omitempty"`
	ExerciseLibraryID *primitive.ObjectID `bson:"exerciseLibraryId,omitempty" json:"exerciseLibraryId,omitempty"`
	TargetSets        int                 `bson:"targetSets" json:"targetSets"`
	TargetReps        string              `bson:"targetReps" json:"targetReps"` // e.g., "8-10"
	TargetRIR         *int                `bson:"targetRir,omitempty" json:"targetRir,omitempty"`
	RestSeconds       int                 `bson:"restSeconds" json:"restSeconds"`
	Notes             string              `bson:"notes,omitempty" json:"notes,omitempty"`
	SubstitutionTags  []string            `bson:"substitutionTags,omitempty" json:"substitutionTags,omitempty"`
	CreatedAt         time.Time           `bson:"createdAt" json:"createdAt"`
}
