package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/multierr"
)

// EnsureIndexes creates the indexes of every collection used by the plan engine.
// It keeps going after a failure and returns all errors combined.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		templateCollectionName: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "goal", Value: 1}, {Key: "experienceLevel", Value: 1}, {Key: "daysPerWeek", Value: 1}}},
		},
		blockCollectionName: {
			{Keys: bson.D{{Key: "planTemplateId", Value: 1}, {Key: "order", Value: 1}}},
		},
		weekCollectionName: {
			// Finding a template's weeks in order, and week 1 on assignment
			{Keys: bson.D{{Key: "planTemplateId", Value: 1}, {Key: "weekNumber", Value: 1}}},
		},
		dayCollectionName: {
			// Not unique: concurrent upserts may still produce duplicates that the reconciler merges.
			{Keys: bson.D{{Key: "weekId", Value: 1}, {Key: "dayOfWeek", Value: 1}}},
			{Keys: bson.D{{Key: "weekId", Value: 1}, {Key: "dayNumber", Value: 1}}},
		},
		prescriptionCollectionName: {
			{Keys: bson.D{{Key: "planDayId", Value: 1}, {Key: "order", Value: 1}}},
		},
		instanceCollectionName: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "status", Value: 1}}},
		},
		progressCollectionName: {
			{Keys: bson.D{{Key: "planInstanceId", Value: 1}, {Key: "planDayId", Value: 1}}},
			{Keys: bson.D{{Key: "planDayId", Value: 1}}},
		},
		libraryCollectionName: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		variantCollectionName: {
			{Keys: bson.D{{Key: "libraryId", Value: 1}}},
		},
	}

	var err error
	for name, models := range specs {
		if _, cerr := db.Collection(name).Indexes().CreateMany(ctx, models); cerr != nil {
			err = multierr.Append(err, cerr)
		}
	}
	return err
}
