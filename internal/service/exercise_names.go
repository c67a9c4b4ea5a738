package service

import (
	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/repository"
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScheduledExercise is a prescription enriched with its display name.
type ScheduledExercise struct {
	PrescriptionID    primitive.ObjectID  `json:"prescriptionId"`
	Order             int                 `json:"order"`
	Name              string              `json:"name"`
	ExerciseVariantID *primitive.ObjectID `json:"exerciseVariantId,omitempty"`
	ExerciseLibraryID *primitive.ObjectID `json:"exerciseLibraryId,omitempty"`
	TargetSets        int                 `json:"targetSets"`
	TargetReps        string              `json:"targetReps"`
	TargetRIR         *int                `json:"targetRir,omitempty"`
	RestSeconds       int                 `json:"restSeconds"`
	Notes             string              `json:"notes,omitempty"`
	SubstitutionTags  []string            `json:"substitutionTags,omitempty"`
}

// exerciseNamer resolves display names with the fallback chain
// variant name, then library name, then domain.DefaultExerciseName.
type exerciseNamer struct {
	variants map[primitive.ObjectID]string
	library  map[primitive.ObjectID]string
}

func loadExerciseNamer(ctx context.Context, repo repository.ExerciseRepository, prescriptions []domain.PlanPrescription) (*exerciseNamer, error) {
	var variantIDs, libraryIDs []primitive.ObjectID
	for _, p := range prescriptions {
		if p.ExerciseVariantID != nil {
			variantIDs = append(variantIDs, *p.ExerciseVariantID)
		}
		if p.ExerciseLibraryID != nil {
			libraryIDs = append(libraryIDs, *p.ExerciseLibraryID)
		}
	}

	variants, err := repo.VariantNames(ctx, variantIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve variant names: %w", err)
	}
	library, err := repo.LibraryNames(ctx, libraryIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve library names: %w", err)
	}
	return &exerciseNamer{variants: variants, library: library}, nil
}

func (n *exerciseNamer) name(p domain.PlanPrescription) string {
	if p.ExerciseVariantID != nil {
		if name := n.variants[*p.ExerciseVariantID]; name != "" {
			return name
		}
	}
	if p.ExerciseLibraryID != nil {
		if name := n.library[*p.ExerciseLibraryID]; name != "" {
			return name
		}
	}
	return domain.DefaultExerciseName
}

func (n *exerciseNamer) enrich(prescriptions []domain.PlanPrescription) []ScheduledExercise {
	out := make([]ScheduledExercise, 0, len(prescriptions))
	for _, p := range prescriptions {
		out = append(out, ScheduledExercise{
			PrescriptionID:    p.ID,
			Order:             p.Order,
			Name:              n.name(p),
			ExerciseVariantID: p.ExerciseVariantID,
			ExerciseLibraryID: p.ExerciseLibraryID,
			TargetSets:        p.TargetSets,
			TargetReps:        p.TargetReps,
			TargetRIR:         p.TargetRIR,
			RestSeconds:       p.RestSeconds,
			Notes:             p.Notes,
			SubstitutionTags:  p.SubstitutionTags,
		})
	}
	return out
}
