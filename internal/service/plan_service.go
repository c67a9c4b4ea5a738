package service

import (
	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignTemplateInput carries the parameters of AssignTemplate.
type AssignTemplateInput struct {
	UserID       primitive.ObjectID
	TemplateID   primitive.ObjectID
	GymProfileID *primitive.ObjectID
	StartDate    *time.Time // Defaults to now; truncated to local midnight
	Exclusions   []string
}

// ActivePlan summarizes a user's active instance.
type ActivePlan struct {
	Instance    domain.UserPlanInstance `json:"instance"`
	Template    domain.PlanTemplate     `json:"template"`
	CurrentWeek int                     `json:"currentWeek"`
	WeekCount   int                     `json:"weekCount"`
}

// EditableDay is a plan day with its prescriptions, as shown in the plan editor.
type EditableDay struct {
	domain.PlanDay
	IsRest    bool                `json:"isRest"`
	Exercises []ScheduledExercise `json:"exercises"`
}

// EditableWeek is one template week in the plan editor.
type EditableWeek struct {
	domain.PlanWeek
	Days []EditableDay `json:"days"`
}

// PlanEditView is the whole active plan tree for editing.
type PlanEditView struct {
	ActivePlan
	Weeks []EditableWeek `json:"weeks"`
}

type PlanService interface {
	// AssignTemplate pauses the user's active instances, creates a new active
	// one and materializes planned progress rows for week 1.
	AssignTemplate(ctx context.Context, in AssignTemplateInput) (*domain.UserPlanInstance, error)
	CreateDefaultPlanForUser(ctx context.Context, userID primitive.ObjectID, goal, experienceLevel string, daysPerWeek int) (*domain.UserPlanInstance, error)

	// Queries return (nil, nil) when the user has no active plan.
	GetActivePlan(ctx context.Context, userID primitive.ObjectID) (*ActivePlan, error)
	GetPlanForEditing(ctx context.Context, userID primitive.ObjectID) (*PlanEditView, error)
}

// planService implements the PlanService interface.
type planService struct {
	repos Repositories
	now   func() time.Time
}

// NewPlanService creates a new instance of planService.
func NewPlanService(repos Repositories) PlanService {
	return &planService{
		repos: repos,
		now:   defaultClock,
	}
}

func (s *planService) AssignTemplate(ctx context.Context, in AssignTemplateInput) (*domain.UserPlanInstance, error) {
	if in.UserID == primitive.NilObjectID || in.TemplateID == primitive.NilObjectID {
		return nil, fmt.Errorf("%w: user ID and template ID are required", ErrInvalidInput)
	}

	template, err := s.repos.Templates.GetByID(ctx, in.TemplateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	start := s.now()
	if in.StartDate != nil {
		start = *in.StartDate
	}
	start = startOfDay(start)

	instance := &domain.UserPlanInstance{
		ID:             primitive.NewObjectID(),
		UserID:         in.UserID,
		PlanTemplateID: template.ID,
		GymProfileID:   in.GymProfileID,
		StartDate:      start,
		Status:         domain.PlanStatusActive,
		Goal:           template.Goal,
		DaysPerWeek:    template.DaysPerWeek,
		SessionMinutes: template.SessionMinutes,
		Exclusions:     in.Exclusions,
	}
	var progressRows int
	// Without session transactions the writes below are not atomic. They are
	// ordered so the new instance is only visible as active once its week-1
	// rows exist, and the previous plan is only paused after that. Each
	// failure path undoes the earlier steps.
	err = s.repos.Tx.RunInTransaction(ctx, func(ctx context.Context) error {
		rows, err := s.weekOneProgress(ctx, instance)
		if err != nil {
			return err
		}
		if err := s.repos.Progress.CreateMany(ctx, rows); err != nil {
			s.discardProgress(ctx, instance.ID)
			return fmt.Errorf("create week 1 progress: %w", err)
		}
		progressRows = len(rows)

		if _, err := s.repos.Instances.Create(ctx, instance); err != nil {
			s.discardProgress(ctx, instance.ID)
			return fmt.Errorf("create plan instance: %w", err)
		}

		paused, err := s.repos.Instances.PauseActiveForUser(ctx, in.UserID, instance.ID)
		if err != nil {
			s.discardInstance(ctx, instance.ID)
			return fmt.Errorf("pause active instances: %w", err)
		}
		if paused > 0 {
			log.WithFields(log.Fields{"user": in.UserID.Hex(), "paused": paused}).Info("paused superseded plan instances")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user":     in.UserID.Hex(),
		"template": template.Name,
		"instance": instance.ID.Hex(),
		"progress": progressRows,
	}).Info("assigned plan template")
	return instance, nil
}

// weekOneProgress builds the planned rows of the template's first week,
// scheduled dayNumber-1 days after the instance start.
func (s *planService) weekOneProgress(ctx context.Context, instance *domain.UserPlanInstance) ([]domain.UserPlanDayProgress, error) {
	week, err := s.repos.Weeks.GetByTemplateAndNumber(ctx, instance.PlanTemplateID, 1)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Template has no authored days yet; the instance stands without progress rows.
			return nil, nil
		}
		return nil, fmt.Errorf("load week 1: %w", err)
	}
	days, err := s.repos.Days.ListByWeek(ctx, week.ID)
	if err != nil {
		return nil, fmt.Errorf("load week 1 days: %w", err)
	}

	rows := make([]domain.UserPlanDayProgress, 0, len(days))
	for _, day := range days {
		offset := day.DayNumber - 1
		if offset < 0 {
			offset = 0
		}
		scheduled := instance.StartDate.AddDate(0, 0, offset)
		rows = append(rows, domain.UserPlanDayProgress{
			PlanInstanceID: instance.ID,
			UserID:         instance.UserID,
			PlanDayID:      day.ID,
			ScheduledDate:  &scheduled,
			Status:         domain.ProgressPlanned,
		})
	}
	return rows, nil
}

// discardProgress removes rows written for an assignment that did not complete.
func (s *planService) discardProgress(ctx context.Context, instanceID primitive.ObjectID) {
	if _, err := s.repos.Progress.DeleteByInstance(ctx, instanceID); err != nil {
		log.WithError(err).WithField("instance", instanceID.Hex()).Error("failed to discard progress of aborted assignment")
	}
}

// discardInstance retires an instance whose assignment did not complete, so
// the previously active plan stays the only active one.
func (s *planService) discardInstance(ctx context.Context, instanceID primitive.ObjectID) {
	if err := s.repos.Instances.SetStatus(ctx, instanceID, domain.PlanStatusPaused); err != nil {
		log.WithError(err).WithField("instance", instanceID.Hex()).Error("failed to retire aborted plan instance")
	}
	s.discardProgress(ctx, instanceID)
}

func (s *planService) CreateDefaultPlanForUser(ctx context.Context, userID primitive.ObjectID, goal, experienceLevel string, daysPerWeek int) (*domain.UserPlanInstance, error) {
	templates, err := s.repos.Templates.FindMatching(ctx, goal, experienceLevel, daysPerWeek)
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, ErrNoMatchingTemplate
	}
	return s.AssignTemplate(ctx, AssignTemplateInput{
		UserID:     userID,
		TemplateID: templates[0].ID,
	})
}

func (s *planService) GetActivePlan(ctx context.Context, userID primitive.ObjectID) (*ActivePlan, error) {
	state, err := loadPlanState(ctx, s.repos, userID)
	if err != nil || state == nil {
		return nil, err
	}
	return &state.ActivePlan, nil
}

func (s *planService) GetPlanForEditing(ctx context.Context, userID primitive.ObjectID) (*PlanEditView, error) {
	state, err := loadPlanState(ctx, s.repos, userID)
	if err != nil || state == nil {
		return nil, err
	}

	view := &PlanEditView{ActivePlan: state.ActivePlan, Weeks: make([]EditableWeek, 0, len(state.weeks))}
	for _, week := range state.weeks {
		days, err := s.repos.Days.ListByWeek(ctx, week.ID)
		if err != nil {
			return nil, fmt.Errorf("load days of week %d: %w", week.WeekNumber, err)
		}

		editable := EditableWeek{PlanWeek: week, Days: make([]EditableDay, 0, len(days))}
		for _, day := range days {
			prescriptions, err := s.repos.Prescriptions.ListByDay(ctx, day.ID)
			if err != nil {
				return nil, fmt.Errorf("load prescriptions: %w", err)
			}
			namer, err := loadExerciseNamer(ctx, s.repos.Exercises, prescriptions)
			if err != nil {
				return nil, err
			}
			editable.Days = append(editable.Days, EditableDay{
				PlanDay:   day,
				IsRest:    day.FocusKind().IsRest(),
				Exercises: namer.enrich(prescriptions),
			})
		}
		view.Weeks = append(view.Weeks, editable)
	}
	return view, nil
}

// planState is what every read path needs about a user's active plan.
type planState struct {
	ActivePlan
	weeks    []domain.PlanWeek
	progress []domain.UserPlanDayProgress
}

// loadPlanState returns nil without error when the user has no active instance.
func loadPlanState(ctx context.Context, repos Repositories, userID primitive.ObjectID) (*planState, error) {
	instance, err := repos.Instances.GetActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	template, err := repos.Templates.GetByID(ctx, instance.PlanTemplateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	weeks, err := repos.Weeks.ListByTemplate(ctx, template.ID)
	if err != nil {
		return nil, fmt.Errorf("load template weeks: %w", err)
	}
	progress, err := repos.Progress.ListByInstance(ctx, instance.ID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	return &planState{
		ActivePlan: ActivePlan{
			Instance:    *instance,
			Template:    *template,
			CurrentWeek: ResolveCurrentWeek(progress, len(weeks)),
			WeekCount:   len(weeks),
		},
		weeks:    weeks,
		progress: progress,
	}, nil
}

// currentWeek returns the week record matching CurrentWeek, if authored.
func (p *planState) currentWeek() *domain.PlanWeek {
	for i := range p.weeks {
		if p.weeks[i].WeekNumber == p.CurrentWeek {
			return &p.weeks[i]
		}
	}
	return nil
}

// startOfDay truncates t to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
