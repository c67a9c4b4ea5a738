package service

import (
	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/repository"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MarkDayCompletedInput carries the outcome of a finished workout.
type MarkDayCompletedInput struct {
	UserID              primitive.ObjectID
	ProgressID          primitive.ObjectID
	WorkoutID           *primitive.ObjectID
	ProgressionDecision *domain.ProgressionDecision
	DecisionReason      *string
}

// Adherence aggregates the active instance's progress rows.
type Adherence struct {
	PlannedCount   int `json:"plannedCount"` // Every scheduled day, whatever its status
	CompletedCount int `json:"completedCount"`
	SkippedCount   int `json:"skippedCount"`
	AdherenceRate  int `json:"adherenceRate"` // Percent, 0..100
}

type ProgressService interface {
	MarkDayCompleted(ctx context.Context, in MarkDayCompletedInput) (*domain.UserPlanDayProgress, error)
	MarkDaySkipped(ctx context.Context, userID, progressID primitive.ObjectID, reason *string) (*domain.UserPlanDayProgress, error)
	GetAdherence(ctx context.Context, userID primitive.ObjectID) (*Adherence, error)
}

// progressService implements the ProgressService interface.
type progressService struct {
	repos Repositories
	now   func() time.Time
}

// NewProgressService creates a new instance of progressService.
func NewProgressService(repos Repositories) ProgressService {
	return &progressService{
		repos: repos,
		now:   defaultClock,
	}
}

func (s *progressService) MarkDayCompleted(ctx context.Context, in MarkDayCompletedInput) (*domain.UserPlanDayProgress, error) {
	if in.ProgressionDecision != nil && !in.ProgressionDecision.Valid() {
		return nil, fmt.Errorf("%w: unknown progression decision %q", ErrInvalidInput, *in.ProgressionDecision)
	}
	row, err := s.ownedRow(ctx, in.UserID, in.ProgressID)
	if err != nil {
		return nil, err
	}

	row.Status = domain.ProgressCompleted
	row.WorkoutID = in.WorkoutID
	row.ProgressionDecision = in.ProgressionDecision
	row.DecisionReason = in.DecisionReason
	row.UpdatedAt = s.now().UTC()
	if err := s.save(ctx, row); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"user": in.UserID.Hex(), "progress": row.ID.Hex()}).Info("plan day completed")
	return row, nil
}

func (s *progressService) MarkDaySkipped(ctx context.Context, userID, progressID primitive.ObjectID, reason *string) (*domain.UserPlanDayProgress, error) {
	row, err := s.ownedRow(ctx, userID, progressID)
	if err != nil {
		return nil, err
	}

	row.Status = domain.ProgressSkipped
	row.DecisionReason = reason
	row.UpdatedAt = s.now().UTC()
	if err := s.save(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// ownedRow loads a progress row; rows of other users look missing.
func (s *progressService) ownedRow(ctx context.Context, userID, progressID primitive.ObjectID) (*domain.UserPlanDayProgress, error) {
	row, err := s.repos.Progress.GetByID(ctx, progressID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgressNotFound
		}
		return nil, err
	}
	if row.UserID != userID {
		return nil, ErrProgressNotFound
	}
	return row, nil
}

func (s *progressService) save(ctx context.Context, row *domain.UserPlanDayProgress) error {
	if err := s.repos.Progress.Update(ctx, row); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProgressNotFound
		}
		return err
	}
	return nil
}

func (s *progressService) GetAdherence(ctx context.Context, userID primitive.ObjectID) (*Adherence, error) {
	instance, err := s.repos.Instances.GetActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &Adherence{}, nil
		}
		return nil, err
	}
	rows, err := s.repos.Progress.ListByInstance(ctx, instance.ID)
	if err != nil {
		return nil, err
	}
	return computeAdherence(rows), nil
}

func computeAdherence(rows []domain.UserPlanDayProgress) *Adherence {
	a := &Adherence{PlannedCount: len(rows)}
	for _, row := range rows {
		switch row.Status {
		case domain.ProgressCompleted:
			a.CompletedCount++
		case domain.ProgressSkipped:
			a.SkippedCount++
		}
	}
	if a.PlannedCount > 0 {
		a.AdherenceRate = int(math.Round(float64(a.CompletedCount) / float64(a.PlannedCount) * 100))
	}
	return a
}
