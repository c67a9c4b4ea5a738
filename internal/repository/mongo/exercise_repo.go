package mongo

import (
	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	libraryCollectionName = "exercise_library"
	variantCollectionName = "exercise_variants"
)

// mongoExerciseRepository implements repository.ExerciseRepository
type mongoExerciseRepository struct {
	library  *mongo.Collection
	variants *mongo.Collection
}

// NewMongoExerciseRepository creates a new Exercise repository backed by MongoDB.
func NewMongoExerciseRepository(db *mongo.Database) repository.ExerciseRepository {
	return &mongoExerciseRepository{
		library:  db.Collection(libraryCollectionName),
		variants: db.Collection(variantCollectionName),
	}
}

func (r *mongoExerciseRepository) CreateLibraryEntry(ctx context.Context, entry *domain.ExerciseLibraryEntry) (primitive.ObjectID, error) {
	if entry.Name == "" {
		return primitive.NilObjectID, errors.New("exercise name is required")
	}
	entry.ID = primitive.NewObjectID()
	if _, err := r.library.InsertOne(ctx, entry); err != nil {
		return primitive.NilObjectID, err
	}
	return entry.ID, nil
}

func (r *mongoExerciseRepository) GetLibraryEntryByName(ctx context.Context, name string) (*domain.ExerciseLibraryEntry, error) {
	var entry domain.ExerciseLibraryEntry
	err := r.library.FindOne(ctx, bson.M{"name": name}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *mongoExerciseRepository) CreateVariant(ctx context.Context, variant *domain.ExerciseVariant) (primitive.ObjectID, error) {
	if variant.Name == "" || variant.LibraryID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("variant requires a name and libraryId")
	}
	variant.ID = primitive.NewObjectID()
	if _, err := r.variants.InsertOne(ctx, variant); err != nil {
		return primitive.NilObjectID, err
	}
	return variant.ID, nil
}

func (r *mongoExerciseRepository) VariantNames(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	return namesByID(ctx, r.variants, ids)
}

func (r *mongoExerciseRepository) LibraryNames(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	return namesByID(ctx, r.library, ids)
}

// namesByID loads {_id, name} for the given ids in a single query.
func namesByID(ctx context.Context, collection *mongo.Collection, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	names := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	cursor, err := collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID   primitive.ObjectID `bson:"_id"`
		Name string             `bson:"name"`
	}
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		names[d.ID] = d.Name
	}
	return names, nil
}
