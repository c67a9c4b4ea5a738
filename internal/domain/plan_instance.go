// internal/domain/plan_instance.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanStatus tracks the lifecycle of a user's plan instance.
type PlanStatus string

const (
	PlanStatusActive PlanStatus = "active"
	PlanStatusPaused PlanStatus = "paused" // Superseded by a newer assignment
)

// UserPlanInstance binds one template to one user. At most one instance per
// user is active at any time.
type UserPlanInstance struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID  `bson:"userId" json:"userId"`
	PlanTemplateID primitive.ObjectID  `bson:"planTemplateId" json:"planTemplateId"`
	GymProfileID   *primitive.ObjectID `bson:"gymProfileId,omitempty" json:"gymProfileId,omitempty"`
	StartDate      time.Time           `bson:"startDate" json:"startDate"` // Midnight of the first plan day
	Status         PlanStatus          `bson:"status" json:"status"`
	Goal           string              `bson:"goal" json:"goal"`
	DaysPerWeek    int                 `bson:"daysPerWeek" json:"daysPerWeek"`
	SessionMinutes int                 `bson:"sessionMinutes" json:"sessionMinutes"`
	Exclusions     []string            `bson:"exclusions,omitempty" json:"exclusions,omitempty"` // Substitution tags the user wants avoided
	CreatedAt      time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// ProgressStatus is the outcome recorded for one plan day.
type ProgressStatus string

const (
	ProgressPlanned   ProgressStatus = "planned"
	ProgressCompleted ProgressStatus = "completed"
	ProgressSkipped   ProgressStatus = "skipped"
)

// Priority ranks statuses when two progress rows are merged:
// completed beats skipped beats planned.
func (s ProgressStatus) Priority() int {
	switch s {
	case ProgressCompleted:
		return 3
	case ProgressSkipped:
		return 2
	case ProgressPlanned:
		return 1
	}
	return 0
}

// ProgressionDecision is the load adjustment chosen after a completed day.
type ProgressionDecision string

const (
	DecisionIncrease ProgressionDecision = "increase"
	DecisionHold     ProgressionDecision = "hold"
	DecisionReduce   ProgressionDecision = "reduce"
)

func (d ProgressionDecision) Valid() bool {
	return d == DecisionIncrease || d == DecisionHold || d == DecisionReduce
}

// UserPlanDayProgress records what a user did with one plan day of an instance.
type UserPlanDayProgress struct {
	ID                  primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	PlanInstanceID      primitive.ObjectID   `bson:"planInstanceId" json:"planInstanceId"`
	UserID              primitive.ObjectID   `bson:"userId" json:"userId"`
	PlanDayID           primitive.ObjectID   `bson:"planDayId" json:"planDayId"`
	ScheduledDate       *time.Time           `bson:"scheduledDate,omitempty" json:"scheduledDate,omitempty"`
	Status              ProgressStatus       `bson:"status" json:"status"`
	WorkoutID           *primitive.ObjectID  `bson:"workoutId,omitempty" json:"workoutId,omitempty"` // Set by the workout logger on completion
	ProgressionDecision *ProgressionDecision `bson:"progressionDecision,omitempty" json:"progressionDecision,omitempty"`
	DecisionReason      *string              `bson:"decisionReason,omitempty" json:"decisionReason,omitempty"`
	UpdatedAt           time.Time            `bson:"updatedAt" json:"updatedAt"`
}
