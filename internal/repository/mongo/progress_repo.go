package mongo

import (
	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const progressCollectionName = "user_plan_day_progress"

// mongoProgressRepository implements repository.ProgressRepository
type mongoProgressRepository struct {
	collection *mongo.Collection
}

// NewMongoProgressRepository creates a new UserPlanDayProgress repository.
func NewMongoProgressRepository(db *mongo.Database) repository.ProgressRepository {
	return &mongoProgressRepository{
		collection: db.Collection(progressCollectionName),
	}
}

// CreateMany inserts progress rows, assigning IDs in place.
func (r *mongoProgressRepository) CreateMany(ctx context.Context, rows []domain.UserPlanDayProgress) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, len(rows))
	for i := range rows {
		if rows[i].PlanInstanceID == primitive.NilObjectID || rows[i].PlanDayID == primitive.NilObjectID {
			return errors.New("progress row requires planInstanceId and planDayId")
		}
		rows[i].ID = primitive.NewObjectID()
		if rows[i].UpdatedAt.IsZero() {
			rows[i].UpdatedAt = now
		}
		docs[i] = rows[i]
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

func (r *mongoProgressRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.UserPlanDayProgress, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoProgressRepository) GetByInstanceAndDay(ctx context.Context, instanceID, dayID primitive.ObjectID) (*domain.UserPlanDayProgress, error) {
	return r.findOne(ctx, bson.M{"planInstanceId": instanceID, "planDayId": dayID})
}

func (r *mongoProgressRepository) findOne(ctx context.Context, filter bson.M) (*domain.UserPlanDayProgress, error) {
	var row domain.UserPlanDayProgress
	err := r.collection.FindOne(ctx, filter).Decode(&row)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *mongoProgressRepository) ListByInstance(ctx context.Context, instanceID primitive.ObjectID) ([]domain.UserPlanDayProgress, error) {
	return r.find(ctx, bson.M{"planInstanceId": instanceID})
}

func (r *mongoProgressRepository) ListByDay(ctx context.Context, dayID primitive.ObjectID) ([]domain.UserPlanDayProgress, error) {
	return r.find(ctx, bson.M{"planDayId": dayID})
}

func (r *mongoProgressRepository) find(ctx context.Context, filter bson.M) ([]domain.UserPlanDayProgress, error) {
	var rows []domain.UserPlanDayProgress
	findOptions := options.Find().SetSort(bson.D{{Key: "scheduledDate", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *mongoProgressRepository) CountByDay(ctx context.Context, dayID primitive.ObjectID) (int, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"planDayId": dayID})
	return int(n), err
}

// Update writes the mutable fields of a progress row.
func (r *mongoProgressRepository) Update(ctx context.Context, row *domain.UserPlanDayProgress) error {
	if row.ID == primitive.NilObjectID {
		return errors.New("progress ID is required for update")
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	update := bson.M{
		"$set": bson.M{
			"status":              row.Status,
			"workoutId":           row.WorkoutID,
			"progressionDecision": row.ProgressionDecision,
			"decisionReason":      row.DecisionReason,
			"scheduledDate":       row.ScheduledDate,
			"updatedAt":           row.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": row.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Repoint moves a progress row to another plan day.
func (r *mongoProgressRepository) Repoint(ctx context.Context, id, dayID primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"planDayId": dayID}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByInstance removes every row of the instance; used to roll back a failed assignment.
func (r *mongoProgressRepository) DeleteByInstance(ctx context.Context, instanceID primitive.ObjectID) (int, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"planInstanceId": instanceID})
	if err != nil {
		return 0, err
	}
	return int(result.DeletedCount), nil
}

func (r *mongoProgressRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
