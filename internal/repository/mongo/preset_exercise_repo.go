package mongo

import (
	"context"

	"fitlink/coach-api/internal/domain"
	"fitlink/coach-api/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const presetExerciseCollectionName = "preset_exercises"

// mongoPresetExerciseRepository implements repository.PresetExerciseRepository using MongoDB.
type mongoPresetExerciseRepository struct {
	collection *mongo.Collection
}

// NewMongoPresetExerciseRepository creates a new instance of mongoPresetExerciseRepository.
func NewMongoPresetExerciseRepository(db *mongo.Database) repository.PresetExerciseRepository {
	return &mongoPresetExerciseRepository{
		collection: db.Collection(presetExerciseCollectionName),
	}
}

// GetByIDs retrieves preset entries whose IDs are in the provided list.
func (r *mongoPresetExerciseRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.PresetExercise, error) {
	if len(ids) == 0 {
		return []domain.PresetExercise{}, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var presets []domain.PresetExercise
	if err = cursor.All(ctx, &presets); err != nil {
		return nil, err
	}
	return presets, nil
}
