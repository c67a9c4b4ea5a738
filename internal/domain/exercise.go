// internal/domain/exercise.go
package domain

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultExerciseName is shown when neither a variant nor a library entry resolves.
const DefaultExerciseName = "Exercise"

// ExerciseLibraryEntry is a generic exercise definition (e.g., "Bench Press").
type ExerciseLibraryEntry struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	MuscleGroup string             `bson:"muscleGroup,omitempty" json:"muscleGroup,omitempty"` // e.g., "Chest", "Legs", "Back"
}

// ExerciseVariant is an equipment-specific form of a library exercise
// (e.g., "Dumbbell Bench Press").
type ExerciseVariant struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	LibraryID primitive.ObjectID `bson:"libraryId" json:"libraryId"`
	Name      string             `bson:"name" json:"name"`
	Equipment string             `bson:"equipment,omitempty" json:"equipment,omitempty"`
}
