// Package memory keeps plan-engine documents in process memory. It backs the
// service tests and local runs with database.driver=memory. Like the Mongo
// collections, it enforces no uniqueness on (weekId, dayOfWeek).
package memory

import (
	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/repository"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store holds every collection behind a single lock.
type Store struct {
	mu            sync.RWMutex
	templates     map[primitive.ObjectID]domain.PlanTemplate
	blocks        map[primitive.ObjectID]domain.PlanBlock
	weeks         map[primitive.ObjectID]domain.PlanWeek
	days          map[primitive.ObjectID]domain.PlanDay
	prescriptions map[primitive.ObjectID]domain.PlanPrescription
	instances     map[primitive.ObjectID]domain.UserPlanInstance
	progress      map[primitive.ObjectID]domain.UserPlanDayProgress
	library       map[primitive.ObjectID]domain.ExerciseLibraryEntry
	variants      map[primitive.ObjectID]domain.ExerciseVariant

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		templates:     make(map[primitive.ObjectID]domain.PlanTemplate),
		blocks:        make(map[primitive.ObjectID]domain.PlanBlock),
		weeks:         make(map[primitive.ObjectID]domain.PlanWeek),
		days:          make(map[primitive.ObjectID]domain.PlanDay),
		prescriptions: make(map[primitive.ObjectID]domain.PlanPrescription),
		instances:     make(map[primitive.ObjectID]domain.UserPlanInstance),
		progress:      make(map[primitive.ObjectID]domain.UserPlanDayProgress),
		library:       make(map[primitive.ObjectID]domain.ExerciseLibraryEntry),
		variants:      make(map[primitive.ObjectID]domain.ExerciseVariant),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the timestamp source; tests use it to control createdAt ordering.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Templates() repository.TemplateRepository { return templateRepo{s} }
func (s *Store) Weeks() repository.PlanWeekRepository { return weekRepo{s} }
func (s *Store) Days() repository.PlanDayRepository { return dayRepo{s} }
func (s *Store) Prescriptions() repository.PrescriptionRepository { return prescriptionRepo{s} }
func (s *Store) Instances() repository.PlanInstanceRepository { return instanceRepo{s} }
func (s *Store) Progress() repository.ProgressRepository { return progressRepo{s} }
func (s *Store) Exercises() repository.ExerciseRepository { return exerciseRepo{s} }

// Transactor runs work directly; each call is already atomic under the store lock.
func (s *Store) Transactor() repository.Transactor { return directTx{} }

type directTx struct{}

func (directTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- templates ---

type templateRepo struct{ s *Store }

func (r templateRepo) Create(_ context.Context, t *domain.PlanTemplate) (primitive.ObjectID, error) {
	if t.Name == "" {
		return primitive.NilObjectID, errors.New("template requires a name")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.templates {
		if existing.Name == t.Name {
			return primitive.NilObjectID, errors.New("template name already exists")
		}
	}
	t.ID = primitive.NewObjectID()
	t.CreatedAt = r.s.now()
	r.s.templates[t.ID] = *t
	return t.ID, nil
}

func (r templateRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.PlanTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r templateRepo) GetByName(_ context.Context, name string) (*domain.PlanTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.templates {
		if t.Name == name {
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r templateRepo) FindMatching(_ context.Context, goal, experienceLevel string, daysPerWeek int) ([]domain.PlanTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.PlanTemplate
	for _, t := range r.s.templates {
		if t.Goal == goal && t.ExperienceLevel == experienceLevel && t.DaysPerWeek == daysPerWeek {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r templateRepo) CreateBlock(_ context.Context, b *domain.PlanBlock) (primitive.ObjectID, error) {
	if b.PlanTemplateID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("block requires planTemplateId")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b.ID = primitive.NewObjectID()
	r.s.blocks[b.ID] = *b
	return b.ID, nil
}

// --- weeks ---

type weekRepo struct{ s *Store }

func (r weekRepo) Create(_ context.Context, w *domain.PlanWeek) (primitive.ObjectID, error) {
	if w.PlanTemplateID == primitive.NilObjectID || w.WeekNumber < 1 {
		return primitive.NilObjectID, errors.New("week requires planTemplateId and a positive weekNumber")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w.ID = primitive.NewObjectID()
	r.s.weeks[w.ID] = *w
	return w.ID, nil
}

func (r weekRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.PlanWeek, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.weeks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &w, nil
}

func (r weekRepo) GetByTemplateAndNumber(_ context.Context, templateID primitive.ObjectID, weekNumber int) (*domain.PlanWeek, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, w := range r.s.weeks {
		if w.PlanTemplateID == templateID && w.WeekNumber == weekNumber {
			return &w, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r weekRepo) ListByTemplate(_ context.Context, templateID primitive.ObjectID) ([]domain.PlanWeek, error) {
	return r.list(func(w domain.PlanWeek) bool { return w.PlanTemplateID == templateID }), nil
}

func (r weekRepo) ListAll(_ context.Context) ([]domain.PlanWeek, error) {
	return r.list(func(domain.PlanWeek) bool { return true }), nil
}

func (r weekRepo) list(keep func(domain.PlanWeek) bool) []domain.PlanWeek {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.PlanWeek
	for _, w := range r.s.weeks {
		if keep(w) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlanTemplateID != out[j].PlanTemplateID {
			return out[i].PlanTemplateID.Hex() < out[j].PlanTemplateID.Hex()
		}
		return out[i].WeekNumber < out[j].WeekNumber
	})
	return out
}

// --- days ---

type dayRepo struct{ s *Store }

func (r dayRepo) Create(_ context.Context, d *domain.PlanDay) (primitive.ObjectID, error) {
	if d.WeekID == primitive.NilObjectID || d.PlanTemplateID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("plan day requires weekId and planTemplateId")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d.ID = primitive.NewObjectID()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = r.s.now()
	}
	stored := *d
	stored.DayOfWeek = copyInt(d.DayOfWeek)
	r.s.days[d.ID] = stored
	return d.ID, nil
}

func (r dayRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.PlanDay, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.days[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	d.DayOfWeek = copyInt(d.DayOfWeek)
	return &d, nil
}

func (r dayRepo) ListByWeek(_ context.Context, weekID primitive.ObjectID) ([]domain.PlanDay, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.PlanDay
	for _, d := range r.s.days {
		if d.WeekID == weekID {
			d.DayOfWeek = copyInt(d.DayOfWeek)
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayNumber != out[j].DayNumber {
			return out[i].DayNumber < out[j].DayNumber
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}

func (r dayRepo) Patch(_ context.Context, id primitive.ObjectID, patch repository.PlanDayPatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.days[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.Focus = patch.Focus
	dow := patch.DayOfWeek
	d.DayOfWeek = &dow
	if patch.Name != nil {
		d.Name = *patch.Name
	}
	if patch.EstimatedMinutes != nil {
		d.EstimatedMinutes = *patch.EstimatedMinutes
	}
	r.s.days[id] = d
	return nil
}

func (r dayRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.days[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.days, id)
	return nil
}

// --- prescriptions ---

type prescriptionRepo struct{ s *Store }

func (r prescriptionRepo) Create(_ context.Context, p *domain.PlanPrescription) (primitive.ObjectID, error) {
	if p.PlanDayID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("prescription requires planDayId")
	}
	if p.ExerciseVariantID == nil && p.ExerciseLibraryID == nil {
		return primitive.NilObjectID, errors.New("prescription requires an exercise variant or library id")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = primitive.NewObjectID()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.s.now()
	}
	r.s.prescriptions[p.ID] = *p
	return p.ID, nil
}

func (r prescriptionRepo) ListByDay(_ context.Context, dayID primitive.ObjectID) ([]domain.PlanPrescription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.PlanPrescription
	for _, p := range r.s.prescriptions {
		if p.PlanDayID == dayID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}

func (r prescriptionRepo) CountByDay(_ context.Context, dayID primitive.ObjectID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, p := range r.s.prescriptions {
		if p.PlanDayID == dayID {
			n++
		}
	}
	return n, nil
}

func (r prescriptionRepo) Place(_ context.Context, id, dayID primitive.ObjectID, order int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.prescriptions[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.PlanDayID = dayID
	p.Order = order
	r.s.prescriptions[id] = p
	return nil
}

func (r prescriptionRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.prescriptions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.prescriptions, id)
	return nil
}

// --- plan instances ---

type instanceRepo struct{ s *Store }

func (r instanceRepo) Create(_ context.Context, in *domain.UserPlanInstance) (primitive.ObjectID, error) {
	if in.UserID == primitive.NilObjectID || in.PlanTemplateID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("plan instance requires userId and planTemplateId")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if in.ID == primitive.NilObjectID {
		in.ID = primitive.NewObjectID()
	}
	now := r.s.now()
	in.CreatedAt = now
	in.UpdatedAt = now
	r.s.instances[in.ID] = *in
	return in.ID, nil
}

func (r instanceRepo) SetStatus(_ context.Context, id primitive.ObjectID, status domain.PlanStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	in, ok := r.s.instances[id]
	if !ok {
		return repository.ErrNotFound
	}
	in.Status = status
	in.UpdatedAt = r.s.now()
	r.s.instances[id] = in
	return nil
}

func (r instanceRepo) GetActiveByUser(ctx context.Context, userID primitive.ObjectID) (*domain.UserPlanInstance, error) {
	all, err := r.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, in := range all {
		if in.Status == domain.PlanStatusActive {
			return &in, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r instanceRepo) PauseActiveForUser(_ context.Context, userID, keepID primitive.ObjectID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, in := range r.s.instances {
		if in.UserID == userID && in.Status == domain.PlanStatusActive && id != keepID {
			in.Status = domain.PlanStatusPaused
			in.UpdatedAt = r.s.now()
			r.s.instances[id] = in
			n++
		}
	}
	return n, nil
}

// ListByUser fails on a canceled context like the driver-backed repository.
func (r instanceRepo) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.UserPlanInstance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.UserPlanInstance
	for _, in := range r.s.instances {
		if in.UserID == userID {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out, nil
}

// --- progress ---

type progressRepo struct{ s *Store }

func (r progressRepo) CreateMany(_ context.Context, rows []domain.UserPlanDayProgress) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range rows {
		if rows[i].PlanInstanceID == primitive.NilObjectID || rows[i].PlanDayID == primitive.NilObjectID {
			return errors.New("progress row requires planInstanceId and planDayId")
		}
	}
	for i := range rows {
		rows[i].ID = primitive.NewObjectID()
		if rows[i].UpdatedAt.IsZero() {
			rows[i].UpdatedAt = r.s.now()
		}
		r.s.progress[rows[i].ID] = rows[i]
	}
	return nil
}

func (r progressRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.UserPlanDayProgress, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.progress[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func (r progressRepo) GetByInstanceAndDay(_ context.Context, instanceID, dayID primitive.ObjectID) (*domain.UserPlanDayProgress, error) {
	rows := r.list(func(p domain.UserPlanDayProgress) bool {
		return p.PlanInstanceID == instanceID && p.PlanDayID == dayID
	})
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	return &rows[0], nil
}

func (r progressRepo) ListByInstance(_ context.Context, instanceID primitive.ObjectID) ([]domain.UserPlanDayProgress, error) {
	return r.list(func(p domain.UserPlanDayProgress) bool { return p.PlanInstanceID == instanceID }), nil
}

func (r progressRepo) ListByDay(_ context.Context, dayID primitive.ObjectID) ([]domain.UserPlanDayProgress, error) {
	return r.list(func(p domain.UserPlanDayProgress) bool { return p.PlanDayID == dayID }), nil
}

func (r progressRepo) CountByDay(ctx context.Context, dayID primitive.ObjectID) (int, error) {
	rows, _ := r.ListByDay(ctx, dayID)
	return len(rows), nil
}

func (r progressRepo) list(keep func(domain.UserPlanDayProgress) bool) []domain.UserPlanDayProgress {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.UserPlanDayProgress
	for _, p := range r.s.progress {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out
}

func (r progressRepo) Update(_ context.Context, row *domain.UserPlanDayProgress) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.progress[row.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = r.s.now()
	}
	existing.Status = row.Status
	existing.WorkoutID = row.WorkoutID
	existing.ProgressionDecision = row.ProgressionDecision
	existing.DecisionReason = row.DecisionReason
	existing.ScheduledDate = row.ScheduledDate
	existing.UpdatedAt = row.UpdatedAt
	r.s.progress[row.ID] = existing
	return nil
}

func (r progressRepo) Repoint(_ context.Context, id, dayID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.progress[id]
	if !ok {
		return repository.ErrNotFound
	}
	row.PlanDayID = dayID
	r.s.progress[id] = row
	return nil
}

func (r progressRepo) DeleteByInstance(_ context.Context, instanceID primitive.ObjectID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, row := range r.s.progress {
		if row.PlanInstanceID == instanceID {
			delete(r.s.progress, id)
			n++
		}
	}
	return n, nil
}

func (r progressRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.progress[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.progress, id)
	return nil
}

// --- exercises ---

type exerciseRepo struct{ s *Store }

func (r exerciseRepo) CreateLibraryEntry(_ context.Context, e *domain.ExerciseLibraryEntry) (primitive.ObjectID, error) {
	if e.Name == "" {
		return primitive.NilObjectID, errors.New("exercise name is required")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.ID = primitive.NewObjectID()
	r.s.library[e.ID] = *e
	return e.ID, nil
}

func (r exerciseRepo) GetLibraryEntryByName(_ context.Context, name string) (*domain.ExerciseLibraryEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, e := range r.s.library {
		if e.Name == name {
			return &e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r exerciseRepo) CreateVariant(_ context.Context, v *domain.ExerciseVariant) (primitive.ObjectID, error) {
	if v.Name == "" || v.LibraryID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("variant requires a name and libraryId")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v.ID = primitive.NewObjectID()
	r.s.variants[v.ID] = *v
	return v.ID, nil
}

func (r exerciseRepo) VariantNames(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	names := make(map[primitive.ObjectID]string, len(ids))
	for _, id := range ids {
		if v, ok := r.s.variants[id]; ok {
			names[id] = v.Name
		}
	}
	return names, nil
}

func (r exerciseRepo) LibraryNames(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	names := make(map[primitive.ObjectID]string, len(ids))
	for _, id := range ids {
		if e, ok := r.s.library[id]; ok {
			names[id] = e.Name
		}
	}
	return names, nil
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
