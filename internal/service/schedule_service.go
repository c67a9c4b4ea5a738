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

// DaysInWeek is the number of calendar slots of a schedule (Sun..Sat).
const DaysInWeek = 7

var weekdayNames = [DaysInWeek]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// ScheduleDay is one calendar slot of the weekly schedule. Slots without a
// stored plan day are rest placeholders with Exists=false; they are never persisted.
type ScheduleDay struct {
	DayOfWeek        int                   `json:"dayOfWeek"`
	Weekday          string                `json:"weekday"`
	Exists           bool                  `json:"exists"`
	PlanDayID        *primitive.ObjectID   `json:"planDayId,omitempty"`
	Name             string                `json:"name"`
	Focus            string                `json:"focus"`
	IsRest           bool                  `json:"isRest"`
	EstimatedMinutes int                   `json:"estimatedMinutes"`
	ProgressID       *primitive.ObjectID   `json:"progressId,omitempty"`
	Status           domain.ProgressStatus `json:"status"`
	ScheduledDate    *time.Time            `json:"scheduledDate,omitempty"`
	Exercises        []ScheduledExercise   `json:"exercises"`
}

// WeekSchedule is the active plan's current week projected onto Sun..Sat.
type WeekSchedule struct {
	PlanInstanceID primitive.ObjectID `json:"planInstanceId"`
	PlanTemplateID primitive.ObjectID `json:"planTemplateId"`
	WeekID         primitive.ObjectID `json:"weekId,omitempty"`
	CurrentWeek    int                `json:"currentWeek"`
	WeekCount      int                `json:"weekCount"`
	Days           []ScheduleDay      `json:"days"`
}

// TodaySummary is the slot of the current weekday in the current week.
type TodaySummary struct {
	PlanInstanceID primitive.ObjectID `json:"planInstanceId"`
	PlanName       string             `json:"planName"`
	CurrentWeek    int                `json:"currentWeek"`
	Today          ScheduleDay        `json:"today"`
}

// UpsertWeekDayInput carries the parameters of UpsertWeekDay.
type UpsertWeekDayInput struct {
	UserID            primitive.ObjectID // Optional; a created day gets a progress row on this user's active instance
	WeekID            primitive.ObjectID
	TemplateID        primitive.ObjectID
	DayOfWeek         int
	Focus             string
	Name              *string
	EstimatedMinutes  *int
	ExistingPlanDayID *primitive.ObjectID
}

type UpsertWeekDayResult struct {
	PlanDayID        primitive.ObjectID `json:"planDayId"`
	Created          bool               `json:"created"`
	ResolvedExisting bool               `json:"resolvedExisting"` // The canonical weekday row replaced a stale caller reference
}

// AddExerciseInput describes a prescription appended to a day.
type AddExerciseInput struct {
	ExerciseVariantID *primitive.ObjectID
	ExerciseLibraryID *primitive.ObjectID
	TargetSets        int
	TargetReps        string
	TargetRIR         *int
	RestSeconds       int
	Notes             string
	SubstitutionTags  []string
}

type RemovePrescriptionResult struct {
	Success        bool `json:"success"`
	AlreadyDeleted bool `json:"alreadyDeleted"`
}

type ScheduleService interface {
	// GetCurrentWeekSchedule returns (nil, nil) when the user has no active plan.
	GetCurrentWeekSchedule(ctx context.Context, userID primitive.ObjectID) (*WeekSchedule, error)
	GetTodayPlanSummary(ctx context.Context, userID primitive.ObjectID) (*TodaySummary, error)

	UpsertWeekDay(ctx context.Context, in UpsertWeekDayInput) (*UpsertWeekDayResult, error)
	AddExerciseToPlanDay(ctx context.Context, planDayID primitive.ObjectID, in AddExerciseInput) (*domain.PlanPrescription, error)
	RemovePlanPrescription(ctx context.Context, prescriptionID primitive.ObjectID) (*RemovePrescriptionResult, error)
	// ReorderPlanPrescriptions gives the listed prescriptions orders 1..n in
	// list order; unlisted ones follow in their previous order.
	ReorderPlanPrescriptions(ctx context.Context, planDayID primitive.ObjectID, orderedIDs []primitive.ObjectID) ([]domain.PlanPrescription, error)
}

// scheduleService implements the ScheduleService interface.
type scheduleService struct {
	repos      Repositories
	reconciler *Reconciler // Nil disables the post-upsert convergence pass
	metrics    Metrics
	now        func() time.Time
}

// NewScheduleService creates a new instance of scheduleService. When
// reconciler is non-nil, every UpsertWeekDay is followed by a reconciliation
// scoped to its (week, weekday) pair.
func NewScheduleService(repos Repositories, reconciler *Reconciler, metrics Metrics) ScheduleService {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &scheduleService{
		repos:      repos,
		reconciler: reconciler,
		metrics:    metrics,
		now:        defaultClock,
	}
}

// === Queries ===

func (s *scheduleService) GetCurrentWeekSchedule(ctx context.Context, userID primitive.ObjectID) (*WeekSchedule, error) {
	state, err := loadPlanState(ctx, s.repos, userID)
	if err != nil || state == nil {
		return nil, err
	}
	return s.buildSchedule(ctx, state)
}

func (s *scheduleService) GetTodayPlanSummary(ctx context.Context, userID primitive.ObjectID) (*TodaySummary, error) {
	state, err := loadPlanState(ctx, s.repos, userID)
	if err != nil || state == nil {
		return nil, err
	}
	schedule, err := s.buildSchedule(ctx, state)
	if err != nil {
		return nil, err
	}
	return &TodaySummary{
		PlanInstanceID: state.Instance.ID,
		PlanName:       state.Template.Name,
		CurrentWeek:    schedule.CurrentWeek,
		Today:          schedule.Days[int(s.now().Weekday())],
	}, nil
}

func (s *scheduleService) buildSchedule(ctx context.Context, state *planState) (*WeekSchedule, error) {
	schedule := &WeekSchedule{
		PlanInstanceID: state.Instance.ID,
		PlanTemplateID: state.Template.ID,
		CurrentWeek:    state.CurrentWeek,
		WeekCount:      state.WeekCount,
		Days:           make([]ScheduleDay, DaysInWeek),
	}
	for dow := 0; dow < DaysInWeek; dow++ {
		schedule.Days[dow] = restPlaceholder(dow)
	}

	week := state.currentWeek()
	if week == nil {
		return schedule, nil
	}
	schedule.WeekID = week.ID

	days, err := s.repos.Days.ListByWeek(ctx, week.ID)
	if err != nil {
		return nil, fmt.Errorf("load week days: %w", err)
	}

	progressByDay := make(map[primitive.ObjectID]domain.UserPlanDayProgress, len(state.progress))
	for _, row := range state.progress {
		if _, seen := progressByDay[row.PlanDayID]; !seen {
			progressByDay[row.PlanDayID] = row
		}
	}

	for dow, day := range daysByWeekday(days) {
		prescriptions, err := s.repos.Prescriptions.ListByDay(ctx, day.ID)
		if err != nil {
			return nil, fmt.Errorf("load prescriptions: %w", err)
		}
		namer, err := loadExerciseNamer(ctx, s.repos.Exercises, prescriptions)
		if err != nil {
			return nil, err
		}

		dayID := day.ID
		focus := day.FocusKind()
		slot := ScheduleDay{
			DayOfWeek:        dow,
			Weekday:          weekdayNames[dow],
			Exists:           true,
			PlanDayID:        &dayID,
			Name:             day.Name,
			Focus:            focus.String(),
			IsRest:           focus.IsRest(),
			EstimatedMinutes: day.EstimatedMinutes,
			Status:           domain.ProgressPlanned,
			Exercises:        namer.enrich(prescriptions),
		}
		if row, ok := progressByDay[day.ID]; ok {
			progressID := row.ID
			slot.ProgressID = &progressID
			slot.Status = row.Status
			slot.ScheduledDate = row.ScheduledDate
		}
		schedule.Days[dow] = slot
	}
	return schedule, nil
}

// daysByWeekday maps weekday -> day. Legacy rows without a weekday take
// index % 7. When duplicates exist the first row in dayNumber order wins;
// repairing them is the reconciler's job, not the read path's.
func daysByWeekday(days []domain.PlanDay) map[int]domain.PlanDay {
	byWeekday := make(map[int]domain.PlanDay, len(days))
	for i, day := range days {
		dow := i % DaysInWeek
		if day.DayOfWeek != nil {
			dow = *day.DayOfWeek
		}
		if dow < 0 || dow >= DaysInWeek {
			continue
		}
		if existing, dup := byWeekday[dow]; dup {
			log.WithFields(log.Fields{
				"week":      day.WeekID.Hex(),
				"dayOfWeek": dow,
				"kept":      existing.ID.Hex(),
				"ignored":   day.ID.Hex(),
			}).Warn("duplicate plan day for weekday")
			continue
		}
		byWeekday[dow] = day
	}
	return byWeekday
}

func restPlaceholder(dow int) ScheduleDay {
	return ScheduleDay{
		DayOfWeek: dow,
		Weekday:   weekdayNames[dow],
		Exists:    false,
		Name:      domain.RestFocus,
		Focus:     domain.RestFocus,
		IsRest:    true,
		Status:    domain.ProgressPlanned,
		Exercises: []ScheduledExercise{},
	}
}

// === Commands ===

func (s *scheduleService) UpsertWeekDay(ctx context.Context, in UpsertWeekDayInput) (*UpsertWeekDayResult, error) {
	if in.DayOfWeek < 0 || in.DayOfWeek >= DaysInWeek {
		return nil, fmt.Errorf("%w: dayOfWeek must be between 0 and 6", ErrInvalidInput)
	}

	week, err := s.repos.Weeks.GetByID(ctx, in.WeekID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWeekNotFound
		}
		return nil, err
	}
	if week.PlanTemplateID != in.TemplateID {
		return nil, ErrWeekNotFound
	}

	days, err := s.repos.Days.ListByWeek(ctx, week.ID)
	if err != nil {
		return nil, fmt.Errorf("load week days: %w", err)
	}

	// The canonical candidate is the weekday's row, whatever ID the caller holds.
	var canonical, passed *domain.PlanDay
	maxDayNumber := 0
	for i := range days {
		day := &days[i]
		if day.DayNumber > maxDayNumber {
			maxDayNumber = day.DayNumber
		}
		if canonical == nil && day.DayOfWeek != nil && *day.DayOfWeek == in.DayOfWeek {
			canonical = day
		}
		if in.ExistingPlanDayID != nil && day.ID == *in.ExistingPlanDayID {
			passed = day
		}
	}

	result := &UpsertWeekDayResult{}
	target := canonical
	switch {
	case in.ExistingPlanDayID != nil && canonical != nil && canonical.ID != *in.ExistingPlanDayID:
		result.ResolvedExisting = true
	case canonical == nil && in.ExistingPlanDayID != nil:
		if passed == nil {
			return nil, ErrPlanDayNotFound
		}
		target = passed
	}

	focus := domain.ParseDayFocus(in.Focus).String()
	if target != nil {
		patch := repository.PlanDayPatch{
			Focus:            focus,
			DayOfWeek:        in.DayOfWeek,
			Name:             in.Name,
			EstimatedMinutes: in.EstimatedMinutes,
		}
		if err := s.repos.Days.Patch(ctx, target.ID, patch); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrPlanDayNotFound
			}
			return nil, err
		}
		result.PlanDayID = target.ID
	} else {
		dow := in.DayOfWeek
		day := &domain.PlanDay{
			PlanTemplateID: week.PlanTemplateID,
			WeekID:         week.ID,
			DayNumber:      maxDayNumber + 1,
			DayOfWeek:      &dow,
			Name:           focus,
			Focus:          focus,
		}
		if in.Name != nil {
			day.Name = *in.Name
		}
		if in.EstimatedMinutes != nil {
			day.EstimatedMinutes = *in.EstimatedMinutes
		}
		if _, err := s.repos.Days.Create(ctx, day); err != nil {
			return nil, fmt.Errorf("create plan day: %w", err)
		}
		result.PlanDayID = day.ID
		result.Created = true

		if err := s.ensureProgressForNewDay(ctx, in.UserID, week, day); err != nil {
			return nil, err
		}
		log.WithFields(log.Fields{
			"week":      week.ID.Hex(),
			"dayOfWeek": dow,
			"day":       day.ID.Hex(),
		}).Info("created plan day")
	}
	s.metrics.RecordDayUpsert(result.Created)

	if s.reconciler != nil {
		report, err := s.reconciler.ReconcileWeekDay(ctx, week.ID, in.DayOfWeek, false)
		if err != nil {
			// The write itself succeeded; the scheduled cleanup will retry the merge.
			log.WithError(err).WithField("week", week.ID.Hex()).Warn("post-upsert reconciliation failed")
		} else if len(report.Groups) > 0 {
			result.PlanDayID = report.Groups[0].CanonicalDayID
		}
	}
	return result, nil
}

// ensureProgressForNewDay gives a day created in a later week a planned
// progress row on the caller's active instance of the same template.
func (s *scheduleService) ensureProgressForNewDay(ctx context.Context, userID primitive.ObjectID, week *domain.PlanWeek, day *domain.PlanDay) error {
	if userID == primitive.NilObjectID {
		return nil
	}
	instance, err := s.repos.Instances.GetActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if instance.PlanTemplateID != week.PlanTemplateID {
		return nil
	}
	if _, err := s.repos.Progress.GetByInstanceAndDay(ctx, instance.ID, day.ID); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	scheduled := scheduledDateFor(instance.StartDate, week.WeekNumber, *day.DayOfWeek)
	row := domain.UserPlanDayProgress{
		PlanInstanceID: instance.ID,
		UserID:         userID,
		PlanDayID:      day.ID,
		ScheduledDate:  &scheduled,
		Status:         domain.ProgressPlanned,
	}
	if err := s.repos.Progress.CreateMany(ctx, []domain.UserPlanDayProgress{row}); err != nil {
		return fmt.Errorf("create progress for new day: %w", err)
	}
	return nil
}

// scheduledDateFor returns the date of the given weekday inside the
// weekNumber-th seven-day window starting at start.
func scheduledDateFor(start time.Time, weekNumber, dayOfWeek int) time.Time {
	if weekNumber < 1 {
		weekNumber = 1
	}
	weekStart := start.AddDate(0, 0, 7*(weekNumber-1))
	offset := (dayOfWeek - int(weekStart.Weekday()) + DaysInWeek) % DaysInWeek
	return weekStart.AddDate(0, 0, offset)
}

func (s *scheduleService) AddExerciseToPlanDay(ctx context.Context, planDayID primitive.ObjectID, in AddExerciseInput) (*domain.PlanPrescription, error) {
	if in.ExerciseVariantID == nil && in.ExerciseLibraryID == nil {
		return nil, fmt.Errorf("%w: exercise variant or library id is required", ErrInvalidInput)
	}
	if _, err := s.repos.Days.GetByID(ctx, planDayID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanDayNotFound
		}
		return nil, err
	}

	existing, err := s.repos.Prescriptions.ListByDay(ctx, planDayID)
	if err != nil {
		return nil, err
	}
	maxOrder := 0
	for _, p := range existing {
		if p.Order > maxOrder {
			maxOrder = p.Order
		}
	}

	prescription := &domain.PlanPrescription{
		PlanDayID:         planDayID,
		Order:             maxOrder + 1,
		ExerciseVariantID: in.ExerciseVariantID,
		ExerciseLibraryID: in.ExerciseLibraryID,
		TargetSets:        in.TargetSets,
		TargetReps:        in.TargetReps,
		TargetRIR:         in.TargetRIR,
		RestSeconds:       in.RestSeconds,
		Notes:             in.Notes,
		SubstitutionTags:  in.SubstitutionTags,
	}
	if _, err := s.repos.Prescriptions.Create(ctx, prescription); err != nil {
		return nil, err
	}
	return prescription, nil
}

func (s *scheduleService) RemovePlanPrescription(ctx context.Context, prescriptionID primitive.ObjectID) (*RemovePrescriptionResult, error) {
	err := s.repos.Prescriptions.Delete(ctx, prescriptionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &RemovePrescriptionResult{Success: true, AlreadyDeleted: true}, nil
		}
		return nil, err
	}
	return &RemovePrescriptionResult{Success: true}, nil
}

func (s *scheduleService) ReorderPlanPrescriptions(ctx context.Context, planDayID primitive.ObjectID, orderedIDs []primitive.ObjectID) ([]domain.PlanPrescription, error) {
	if _, err := s.repos.Days.GetByID(ctx, planDayID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanDayNotFound
		}
		return nil, err
	}
	current, err := s.repos.Prescriptions.ListByDay(ctx, planDayID)
	if err != nil {
		return nil, err
	}

	byID := make(map[primitive.ObjectID]domain.PlanPrescription, len(current))
	for _, p := range current {
		byID[p.ID] = p
	}
	listed := make(map[primitive.ObjectID]bool, len(orderedIDs))
	sequence := make([]domain.PlanPrescription, 0, len(current))
	for _, id := range orderedIDs {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: prescription %s does not belong to day %s", ErrInvalidInput, id.Hex(), planDayID.Hex())
		}
		if listed[id] {
			return nil, fmt.Errorf("%w: prescription %s listed twice", ErrInvalidInput, id.Hex())
		}
		listed[id] = true
		sequence = append(sequence, p)
	}
	for _, p := range current {
		if !listed[p.ID] {
			sequence = append(sequence, p)
		}
	}

	for i, p := range sequence {
		order := i + 1
		if p.Order == order {
			continue
		}
		if err := s.repos.Prescriptions.Place(ctx, p.ID, planDayID, order); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// Removed concurrently; deletions win.
				continue
			}
			return nil, err
		}
	}
	return s.repos.Prescriptions.ListByDay(ctx, planDayID)
}
