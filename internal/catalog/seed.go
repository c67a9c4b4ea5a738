// Package catalog loads authored plan templates from a YAML document.
package catalog

import (
	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/repository"
	"alcyxob/health-tracker/internal/service"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gopkg.in/yaml.v3"
)

// Document is the root of a seed file.
type Document struct {
	Templates []TemplateSpec `yaml:"templates"`
}

type TemplateSpec struct {
	Name            string      `yaml:"name"`
	Goal            string      `yaml:"goal"`
	ExperienceLevel string      `yaml:"experienceLevel"`
	DaysPerWeek     int         `yaml:"daysPerWeek"`
	SessionMinutes  int         `yaml:"sessionMinutes"`
	Blocks          []BlockSpec `yaml:"blocks"`
}

type BlockSpec struct {
	Name  string     `yaml:"name"`
	Weeks []WeekSpec `yaml:"weeks"`
}

type WeekSpec struct {
	Days []DaySpec `yaml:"days"`
}

type DaySpec struct {
	DayOfWeek        *int               `yaml:"dayOfWeek"`
	Name             string             `yaml:"name"`
	Focus            string             `yaml:"focus"`
	EstimatedMinutes int                `yaml:"estimatedMinutes"`
	Exercises        []PrescriptionSpec `yaml:"exercises"`
}

// PrescriptionSpec names its exercise; library entries and variants are
// created on first use.
type PrescriptionSpec struct {
	Exercise         string   `yaml:"exercise"`
	Variant          string   `yaml:"variant"`
	Equipment        string   `yaml:"equipment"`
	MuscleGroup      string   `yaml:"muscleGroup"`
	Sets             int      `yaml:"sets"`
	Reps             string   `yaml:"reps"`
	RIR              *int     `yaml:"rir"`
	RestSeconds      int      `yaml:"restSeconds"`
	Notes            string   `yaml:"notes"`
	SubstitutionTags []string `yaml:"substitutionTags"`
}

type SeedResult struct {
	TemplatesCreated int
	TemplatesSkipped int
}

// Seeder writes templates into the plan repositories. Seeding is re-runnable:
// templates whose name already exists are skipped whole.
type Seeder struct {
	repos service.Repositories

	libraryIDs map[string]primitive.ObjectID
	variantIDs map[string]primitive.ObjectID
}

func NewSeeder(repos service.Repositories) *Seeder {
	return &Seeder{
		repos:      repos,
		libraryIDs: make(map[string]primitive.ObjectID),
		variantIDs: make(map[string]primitive.ObjectID),
	}
}

// SeedFile opens path and seeds it.
func (s *Seeder) SeedFile(ctx context.Context, path string) (*SeedResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return s.Seed(ctx, f)
}

func (s *Seeder) Seed(ctx context.Context, r io.Reader) (*SeedResult, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &SeedResult{}, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}

	result := &SeedResult{}
	for _, spec := range doc.Templates {
		_, err := s.repos.Templates.GetByName(ctx, spec.Name)
		if err == nil {
			result.TemplatesSkipped++
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return result, err
		}
		if err := s.createTemplate(ctx, spec); err != nil {
			return result, fmt.Errorf("seed template %q: %w", spec.Name, err)
		}
		result.TemplatesCreated++
	}

	log.WithFields(log.Fields{
		"created": result.TemplatesCreated,
		"skipped": result.TemplatesSkipped,
	}).Info("plan template catalog seeded")
	return result, nil
}

func (d Document) validate() error {
	seen := make(map[string]bool, len(d.Templates))
	for i, t := range d.Templates {
		if t.Name == "" {
			return fmt.Errorf("template #%d has no name", i+1)
		}
		if seen[t.Name] {
			return fmt.Errorf("template %q defined twice", t.Name)
		}
		seen[t.Name] = true
		for _, b := range t.Blocks {
			for _, w := range b.Weeks {
				for _, day := range w.Days {
					if day.DayOfWeek != nil && (*day.DayOfWeek < 0 || *day.DayOfWeek > 6) {
						return fmt.Errorf("template %q: dayOfWeek %d out of range", t.Name, *day.DayOfWeek)
					}
					for _, p := range day.Exercises {
						if p.Exercise == "" {
							return fmt.Errorf("template %q: prescription without exercise", t.Name)
						}
					}
				}
			}
		}
	}
	return nil
}

func (s *Seeder) createTemplate(ctx context.Context, spec TemplateSpec) error {
	template := &domain.PlanTemplate{
		Name:            spec.Name,
		Goal:            spec.Goal,
		ExperienceLevel: spec.ExperienceLevel,
		DaysPerWeek:     spec.DaysPerWeek,
		SessionMinutes:  spec.SessionMinutes,
	}
	if _, err := s.repos.Templates.Create(ctx, template); err != nil {
		return err
	}

	weekNumber := 0
	for blockIndex, blockSpec := range spec.Blocks {
		block := &domain.PlanBlock{PlanTemplateID: template.ID, Name: blockSpec.Name, Order: blockIndex + 1}
		if _, err := s.repos.Templates.CreateBlock(ctx, block); err != nil {
			return err
		}
		for _, weekSpec := range blockSpec.Weeks {
			weekNumber++
			week := &domain.PlanWeek{PlanTemplateID: template.ID, BlockID: block.ID, WeekNumber: weekNumber}
			if _, err := s.repos.Weeks.Create(ctx, week); err != nil {
				return err
			}
			for dayIndex, daySpec := range weekSpec.Days {
				if err := s.createDay(ctx, template.ID, week.ID, dayIndex+1, daySpec); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *Seeder) createDay(ctx context.Context, templateID, weekID primitive.ObjectID, dayNumber int, spec DaySpec) error {
	focus := domain.ParseDayFocus(spec.Focus).String()
	day := &domain.PlanDay{
		PlanTemplateID:   templateID,
		WeekID:           weekID,
		DayNumber:        dayNumber,
		DayOfWeek:        spec.DayOfWeek,
		Name:             spec.Name,
		Focus:            focus,
		EstimatedMinutes: spec.EstimatedMinutes,
	}
	if day.Name == "" {
		day.Name = focus
	}
	if _, err := s.repos.Days.Create(ctx, day); err != nil {
		return err
	}

	for i, p := range spec.Exercises {
		libraryID, err := s.libraryEntry(ctx, p)
		if err != nil {
			return err
		}
		prescription := &domain.PlanPrescription{
			PlanDayID:         day.ID,
			Order:             i + 1,
			ExerciseLibraryID: &libraryID,
			TargetSets:        p.Sets,
			TargetReps:        p.Reps,
			TargetRIR:         p.RIR,
			RestSeconds:       p.RestSeconds,
			Notes:             p.Notes,
			SubstitutionTags:  p.SubstitutionTags,
		}
		if p.Variant != "" {
			variantID, err := s.variant(ctx, libraryID, p)
			if err != nil {
				return err
			}
			prescription.ExerciseVariantID = &variantID
		}
		if _, err := s.repos.Prescriptions.Create(ctx, prescription); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) libraryEntry(ctx context.Context, p PrescriptionSpec) (primitive.ObjectID, error) {
	if id, ok := s.libraryIDs[p.Exercise]; ok {
		return id, nil
	}
	entry, err := s.repos.Exercises.GetLibraryEntryByName(ctx, p.Exercise)
	if err == nil {
		s.libraryIDs[p.Exercise] = entry.ID
		return entry.ID, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return primitive.NilObjectID, err
	}
	entry = &domain.ExerciseLibraryEntry{Name: p.Exercise, MuscleGroup: p.MuscleGroup}
	if _, err := s.repos.Exercises.CreateLibraryEntry(ctx, entry); err != nil {
		return primitive.NilObjectID, fmt.Errorf("create exercise %q: %w", p.Exercise, err)
	}
	s.libraryIDs[p.Exercise] = entry.ID
	return entry.ID, nil
}

// variant creates each named variant once per seed run.
func (s *Seeder) variant(ctx context.Context, libraryID primitive.ObjectID, p PrescriptionSpec) (primitive.ObjectID, error) {
	key := libraryID.Hex() + "/" + p.Variant
	if id, ok := s.variantIDs[key]; ok {
		return id, nil
	}
	v := &domain.ExerciseVariant{LibraryID: libraryID, Name: p.Variant, Equipment: p.Equipment}
	if _, err := s.repos.Exercises.CreateVariant(ctx, v); err != nil {
		return primitive.NilObjectID, fmt.Errorf("create variant %q: %w", p.Variant, err)
	}
	s.variantIDs[key] = v.ID
	return v.ID, nil
}
