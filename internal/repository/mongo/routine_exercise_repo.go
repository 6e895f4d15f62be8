package mongo

import (
	"context"
	"time"

	"fitlink/coach-api/internal/domain"
	"fitlink/coach-api/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const routineExerciseCollectionName = "routine_exercises"

// mongoRoutineExerciseRepository implements repository.RoutineExerciseRepository using MongoDB.
type mongoRoutineExerciseRepository struct {
	collection *mongo.Collection
}

// NewMongoRoutineExerciseRepository creates a new instance of mongoRoutineExerciseRepository.
func NewMongoRoutineExerciseRepository(db *mongo.Database) repository.RoutineExerciseRepository {
	return &mongoRoutineExerciseRepository{
		collection: db.Collection(routineExerciseCollectionName),
	}
}

// InsertMany bulk-inserts the prescribed rows of a routine.
func (r *mongoRoutineExerciseRepository) InsertMany(ctx context.Context, rows []domain.RoutineExercise) error {
	if len(rows) == 0 {
		return nil
	}

	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(rows))
	for i := range rows {
		if rows[i].ID == primitive.NilObjectID {
			rows[i].ID = primitive.NewObjectID()
		}
		rows[i].CreatedAt = now
		rows[i].UpdatedAt = now
		docs = append(docs, rows[i])
	}

	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

// GetByIDs retrieves rows whose IDs are in the provided list.
func (r *mongoRoutineExerciseRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.RoutineExercise, error) {
	if len(ids) == 0 {
		return []domain.RoutineExercise{}, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []domain.RoutineExercise
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *mongoRoutineExerciseRepository) getOrdered(ctx context.Context, filter bson.M) ([]domain.RoutineExercise, error) {
	opts := options.Find().SetSort(bson.D{{Key: "orderInRoutine", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []domain.RoutineExercise
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetByRoutineID retrieves the ordered rows of a system routine.
func (r *mongoRoutineExerciseRepository) GetByRoutineID(ctx context.Context, routineID primitive.ObjectID) ([]domain.RoutineExercise, error) {
	return r.getOrdered(ctx, bson.M{"routineId": routineID})
}

// GetByTrainerRoutineID retrieves the ordered rows of a trainer routine.
func (r *mongoRoutineExerciseRepository) GetByTrainerRoutineID(ctx context.Context, routineID primitive.ObjectID) ([]domain.RoutineExercise, error) {
	return r.getOrdered(ctx, bson.M{"trainerRoutineId": routineID})
}

// Upsert inserts or replaces one row by ID, used by routine editing.
func (r *mongoRoutineExerciseRepository) Upsert(ctx context.Context, row *domain.RoutineExercise) error {
	now := time.Now().UTC()
	if row.ID == primitive.NilObjectID {
		row.ID = primitive.NewObjectID()
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": row.ID}, row, opts)
	return err
}

// DeleteByIDs removes the given rows.
func (r *mongoRoutineExerciseRepository) DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return repository.ErrDeleteFailed
	}
	return nil
}

// EnsureRoutineExerciseIndexes creates necessary indexes for the routine_exercises collection.
func EnsureRoutineExerciseIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "routineId", Value: 1}, {Key: "orderInRoutine", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "trainerRoutineId", Value: 1}, {Key: "orderInRoutine", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
