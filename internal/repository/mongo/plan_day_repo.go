// internal/repository/mongo/plan_day_repo.go
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

const dayCollectionName = "plan_days"

// mongoPlanDayRepository implements repository.PlanDayRepository
type mongoPlanDayRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanDayRepository creates a new PlanDay repository.
func NewMongoPlanDayRepository(db *mongo.Database) repository.PlanDayRepository {
	return &mongoPlanDayRepository{
		collection: db.Collection(dayCollectionName),
	}
}

// Create inserts a new plan day. CreatedAt is kept if the caller set it (seeding).
func (r *mongoPlanDayRepository) Create(ctx context.Context, day *domain.PlanDay) (primitive.ObjectID, error) {
	if day.WeekID == primitive.NilObjectID || day.PlanTemplateID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("plan day requires weekId and planTemplateId")
	}
	day.ID = primitive.NewObjectID()
	if day.CreatedAt.IsZero() {
		day.CreatedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, day)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted plan day ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single plan day by its ID.
func (r *mongoPlanDayRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanDay, error) {
	var day domain.PlanDay
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&day)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &day, nil
}

// ListByWeek retrieves all days of a week.
func (r *mongoPlanDayRepository) ListByWeek(ctx context.Context, weekID primitive.ObjectID) ([]domain.PlanDay, error) {
	var days []domain.PlanDay
	findOptions := options.Find().SetSort(bson.D{{Key: "dayNumber", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"weekId": weekID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &days); err != nil {
		return nil, err
	}
	return days, nil
}

// Patch updates focus and weekday, plus name and duration when provided.
func (r *mongoPlanDayRepository) Patch(ctx context.Context, id primitive.ObjectID, patch repository.PlanDayPatch) error {
	set := bson.M{
		"focus":     patch.Focus,
		"dayOfWeek": patch.DayOfWeek,
	}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.EstimatedMinutes != nil {
		set["estimatedMinutes"] = *patch.EstimatedMinutes
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a plan day. Linked prescriptions and progress rows are not touched.
func (r *mongoPlanDayRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
