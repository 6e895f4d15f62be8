package mongo

import (
	"context"
	"errors"
	"time"

	"fitlink/coach-api/internal/domain"
	"fitlink/coach-api/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const trainerRoutineCollectionName = "routines_trainer"

// mongoTrainerRoutineRepository implements repository.TrainerRoutineRepository using MongoDB.
type mongoTrainerRoutineRepository struct {
	collection *mongo.Collection
}

// NewMongoTrainerRoutineRepository creates a new instance of mongoTrainerRoutineRepository.
func NewMongoTrainerRoutineRepository(db *mongo.Database) repository.TrainerRoutineRepository {
	return &mongoTrainerRoutineRepository{
		collection: db.Collection(trainerRoutineCollectionName),
	}
}

// Create inserts a new trainer-authored routine header.
func (r *mongoTrainerRoutineRepository) Create(ctx context.Context, routine *domain.TrainerRoutine) (primitive.ObjectID, error) {
	if routine.CreatedBy == primitive.NilObjectID || routine.AssignedTo == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("routine createdBy and assignedTo are required")
	}
	if routine.Name == "" {
		return primitive.NilObjectID, errors.New("routine name is required")
	}

	routine.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	routine.CreatedAt = now
	routine.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, routine)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single trainer routine.
func (r *mongoTrainerRoutineRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrainerRoutine, error) {
	var routine domain.TrainerRoutine
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&routine)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &routine, nil
}

// GetByAssignedTo retrieves routines authored for a student, most recent first.
func (r *mongoTrainerRoutineRepository) GetByAssignedTo(ctx context.Context, studentID primitive.ObjectID) ([]domain.TrainerRoutine, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"assignedTo": studentID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var routines []domain.TrainerRoutine
	if err = cursor.All(ctx, &routines); err != nil {
		return nil, err
	}
	return routines, nil
}

// Update replaces the mutable header fields of a routine.
func (r *mongoTrainerRoutineRepository) Update(ctx context.Context, routine *domain.TrainerRoutine) error {
	update := bson.M{"$set": bson.M{
		"name":            routine.Name,
		"description":     routine.Description,
		"durationMinutes": routine.DurationMinutes,
		"difficulty":      routine.Difficulty,
		"totalExercises":  routine.TotalExercises,
		"updatedAt":       time.Now().UTC(),
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": routine.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a routine header, enforcing authorship in the filter.
func (r *mongoTrainerRoutineRepository) Delete(ctx context.Context, id primitive.ObjectID, createdBy primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "createdBy": createdBy})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureTrainerRoutineIndexes creates necessary indexes for the routines_trainer collection.
func EnsureTrainerRoutineIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "assignedTo", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "createdBy", Value: 1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
