// internal/repository/mongo/template_repo.go
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

const (
	templateCollectionName = "plan_templates"
	blockCollectionName    = "plan_blocks"
)

// mongoTemplateRepository implements repository.TemplateRepository
type mongoTemplateRepository struct {
	collection *mongo.Collection
	blocks     *mongo.Collection
}

// NewMongoTemplateRepository creates a new PlanTemplate repository.
func NewMongoTemplateRepository(db *mongo.Database) repository.TemplateRepository {
	return &mongoTemplateRepository{
		collection: db.Collection(templateCollectionName),
		blocks:     db.Collection(blockCollectionName),
	}
}

// Create inserts a new template.
func (r *mongoTemplateRepository) Create(ctx context.Context, template *domain.PlanTemplate) (primitive.ObjectID, error) {
	if template.Name == "" {
		return primitive.NilObjectID, errors.New("template requires a name")
	}
	template.ID = primitive.NewObjectID()
	template.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, template)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted template ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single template by its ID.
func (r *mongoTemplateRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanTemplate, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByName retrieves a template by its unique name.
func (r *mongoTemplateRepository) GetByName(ctx context.Context, name string) (*domain.PlanTemplate, error) {
	return r.findOne(ctx, bson.M{"name": name})
}

func (r *mongoTemplateRepository) findOne(ctx context.Context, filter bson.M) (*domain.PlanTemplate, error) {
	var template domain.PlanTemplate
	err := r.collection.FindOne(ctx, filter).Decode(&template)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &template, nil
}

// FindMatching retrieves templates matching goal, level and weekly frequency.
func (r *mongoTemplateRepository) FindMatching(ctx context.Context, goal, experienceLevel string, daysPerWeek int) ([]domain.PlanTemplate, error) {
	var templates []domain.PlanTemplate
	filter := bson.M{
		"goal":            goal,
		"experienceLevel": experienceLevel,
		"daysPerWeek":     daysPerWeek,
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// CreateBlock inserts a block grouping weeks of a template.
func (r *mongoTemplateRepository) CreateBlock(ctx context.Context, block *domain.PlanBlock) (primitive.ObjectID, error) {
	if block.PlanTemplateID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("block requires planTemplateId")
	}
	block.ID = primitive.NewObjectID()
	if _, err := r.blocks.InsertOne(ctx, block); err != nil {
		return primitive.NilObjectID, err
	}
	return block.ID, nil
}
