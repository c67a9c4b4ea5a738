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

const prescriptionCollectionName = "plan_prescriptions"

// mongoPrescriptionRepository implements repository.PrescriptionRepository
type mongoPrescriptionRepository struct {
	collection *mongo.Collection
}

// NewMongoPrescriptionRepository creates a new PlanPrescription repository backed by MongoDB.
func NewMongoPrescriptionRepository(db *mongo.Database) repository.PrescriptionRepository {
	return &mongoPrescriptionRepository{
		collection: db.Collection(prescriptionCollectionName),
	}
}

// Create inserts a new prescription into the database.
func (r *mongoPrescriptionRepository) Create(ctx context.Context, p *domain.PlanPrescription) (primitive.ObjectID, error) {
	if p.PlanDayID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("prescription requires planDayId")
	}
	if p.ExerciseVariantID == nil && p.ExerciseLibraryID == nil {
		return primitive.NilObjectID, errors.New("prescription requires an exercise variant or library id")
	}

	p.ID = primitive.NewObjectID()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, p)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted prescription ID")
	}
	return insertedID, nil
}

// ListByDay retrieves all prescriptions for a day in execution order.
func (r *mongoPrescriptionRepository) ListByDay(ctx context.Context, dayID primitive.ObjectID) ([]domain.PlanPrescription, error) {
	var prescriptions []domain.PlanPrescription
	// Ties on order fall back to creation order
	findOptions := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"planDayId": dayID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &prescriptions); err != nil {
		return nil, err
	}
	return prescriptions, nil
}

func (r *mongoPrescriptionRepository) CountByDay(ctx context.Context, dayID primitive.ObjectID) (int, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"planDayId": dayID})
	return int(n), err
}

// Place moves a prescription to a day at the given order.
func (r *mongoPrescriptionRepository) Place(ctx context.Context, id, dayID primitive.ObjectID, order int) error {
	update := bson.M{"$set": bson.M{"planDayId": dayID, "order": order}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a prescription; ErrNotFound when it is already gone.
func (r *mongoPrescriptionRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
