package mongo

import (
	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const weekCollectionName = "plan_weeks"

// mongoPlanWeekRepository implements repository.PlanWeekRepository
type mongoPlanWeekRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanWeekRepository creates a new PlanWeek repository.
func NewMongoPlanWeekRepository(db *mongo.Database) repository.PlanWeekRepository {
	return &mongoPlanWeekRepository{
		collection: db.Collection(weekCollectionName),
	}
}

func (r *mongoPlanWeekRepository) Create(ctx context.Context, week *domain.PlanWeek) (primitive.ObjectID, error) {
	if week.PlanTemplateID == primitive.NilObjectID || week.WeekNumber < 1 {
		return primitive.NilObjectID, errors.New("week requires planTemplateId and a positive weekNumber")
	}
	week.ID = primitive.NewObjectID()
	if _, err := r.collection.InsertOne(ctx, week); err != nil {
		return primitive.NilObjectID, err
	}
	return week.ID, nil
}

func (r *mongoPlanWeekRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanWeek, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoPlanWeekRepository) GetByTemplateAndNumber(ctx context.Context, templateID primitive.ObjectID, weekNumber int) (*domain.PlanWeek, error) {
	return r.findOne(ctx, bson.M{"planTemplateId": templateID, "weekNumber": weekNumber})
}

func (r *mongoPlanWeekRepository) findOne(ctx context.Context, filter bson.M) (*domain.PlanWeek, error) {
	var week domain.PlanWeek
	err := r.collection.FindOne(ctx, filter).Decode(&week)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &week, nil
}

// ListByTemplate retrieves a template's weeks ordered by week number.
func (r *mongoPlanWeekRepository) ListByTemplate(ctx context.Context, templateID primitive.ObjectID) ([]domain.PlanWeek, error) {
	return r.find(ctx, bson.M{"planTemplateId": templateID})
}

// ListAll retrieves every week; used by the duplicate-day reconciler.
func (r *mongoPlanWeekRepository) ListAll(ctx context.Context) ([]domain.PlanWeek, error) {
	return r.find(ctx, bson.M{})
}

func (r *mongoPlanWeekRepository) find(ctx context.Context, filter bson.M) ([]domain.PlanWeek, error) {
	var weeks []domain.PlanWeek
	findOptions := options.Find().SetSort(bson.D{{Key: "planTemplateId", Value: 1}, {Key: "weekNumber", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &weeks); err != nil {
		return nil, err
	}
	return weeks, nil
}
