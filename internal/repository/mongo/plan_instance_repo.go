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

const instanceCollectionName = "user_plan_instances"

// mongoPlanInstanceRepository implements repository.PlanInstanceRepository
type mongoPlanInstanceRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanInstanceRepository creates a new UserPlanInstance repository.
func NewMongoPlanInstanceRepository(db *mongo.Database) repository.PlanInstanceRepository {
	return &mongoPlanInstanceRepository{
		collection: db.Collection(instanceCollectionName),
	}
}

// Create inserts a new plan instance, keeping a preset ID.
func (r *mongoPlanInstanceRepository) Create(ctx context.Context, instance *domain.UserPlanInstance) (primitive.ObjectID, error) {
	if instance.UserID == primitive.NilObjectID || instance.PlanTemplateID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("plan instance requires userId and planTemplateId")
	}
	if instance.ID == primitive.NilObjectID {
		instance.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	instance.CreatedAt = now
	instance.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, instance)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted plan instance ID")
	}
	return insertedID, nil
}

func (r *mongoPlanInstanceRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status domain.PlanStatus) error {
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetActiveByUser retrieves the user's active instance. If several are active
// (a write raced the pause), the newest wins.
func (r *mongoPlanInstanceRepository) GetActiveByUser(ctx context.Context, userID primitive.ObjectID) (*domain.UserPlanInstance, error) {
	var instance domain.UserPlanInstance
	filter := bson.M{"userId": userID, "status": domain.PlanStatusActive}
	findOptions := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	err := r.collection.FindOne(ctx, filter, findOptions).Decode(&instance)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &instance, nil
}

// PauseActiveForUser marks every active instance of the user but keepID as paused.
func (r *mongoPlanInstanceRepository) PauseActiveForUser(ctx context.Context, userID, keepID primitive.ObjectID) (int, error) {
	filter := bson.M{"userId": userID, "status": domain.PlanStatusActive, "_id": bson.M{"$ne": keepID}}
	update := bson.M{"$set": bson.M{"status": domain.PlanStatusPaused, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return int(result.ModifiedCount), nil
}

// ListByUser retrieves all instances of the user, newest first.
func (r *mongoPlanInstanceRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.UserPlanInstance, error) {
	var instances []domain.UserPlanInstance
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &instances); err != nil {
		return nil, err
	}
	return instances, nil
}
