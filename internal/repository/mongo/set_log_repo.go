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

const setLogCollectionName = "exercise_set_logs"

// mongoSetLogRepository implements repository.SetLogRepository using MongoDB.
type mongoSetLogRepository struct {
	collection *mongo.Collection
}

// NewMongoSetLogRepository creates a new instance of mongoSetLogRepository.
func NewMongoSetLogRepository(db *mongo.Database) repository.SetLogRepository {
	return &mongoSetLogRepository{
		collection: db.Collection(setLogCollectionName),
	}
}

func (r *mongoSetLogRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.SetLog, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []domain.SetLog
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// GetBySessionID retrieves the logs of one session ordered by set index.
func (r *mongoSetLogRepository) GetBySessionID(ctx context.Context, sessionID primitive.ObjectID) ([]domain.SetLog, error) {
	filter := bson.M{"workoutSessionId": sessionID}
	opts := options.Find().SetSort(bson.D{{Key: "setIndex", Value: 1}})
	return r.find(ctx, filter, opts)
}

// GetBySessionIDs retrieves logs for a batch of sessions.
func (r *mongoSetLogRepository) GetBySessionIDs(ctx context.Context, sessionIDs []primitive.ObjectID) ([]domain.SetLog, error) {
	if len(sessionIDs) == 0 {
		return []domain.SetLog{}, nil
	}
	filter := bson.M{"workoutSessionId": bson.M{"$in": sessionIDs}}
	return r.find(ctx, filter, nil)
}

// GetSessionlessByRoutineExercises retrieves logs that never got linked
// to a session, matched instead by planned row and creation window.
func (r *mongoSetLogRepository) GetSessionlessByRoutineExercises(ctx context.Context, routineExerciseIDs []primitive.ObjectID, from, to time.Time) ([]domain.SetLog, error) {
	if len(routineExerciseIDs) == 0 {
		return []domain.SetLog{}, nil
	}
	filter := bson.M{
		"routineExerciseId": bson.M{"$in": routineExerciseIDs},
		"workoutSessionId":  nil,
		"createdAt":         bson.M{"$gte": from, "$lte": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "setIndex", Value: 1}})
	return r.find(ctx, filter, opts)
}

// GetByRoutineExercises retrieves up to limit logs on the planned rows,
// oldest first, with no session or time constraint.
func (r *mongoSetLogRepository) GetByRoutineExercises(ctx context.Context, routineExerciseIDs []primitive.ObjectID, limit int64) ([]domain.SetLog, error) {
	if len(routineExerciseIDs) == 0 {
		return []domain.SetLog{}, nil
	}
	filter := bson.M{"routineExerciseId": bson.M{"$in": routineExerciseIDs}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}).SetLimit(limit)
	return r.find(ctx, filter, opts)
}

// DeleteByRoutineExercises removes logs referencing the given planned rows.
// Used when a trainer routine is deleted.
func (r *mongoSetLogRepository) DeleteByRoutineExercises(ctx context.Context, routineExerciseIDs []primitive.ObjectID) error {
	if len(routineExerciseIDs) == 0 {
		return nil
	}
	_, err := r.collection.DeleteMany(ctx, bson.M{"routineExerciseId": bson.M{"$in": routineExerciseIDs}})
	if err != nil {
		return repository.ErrDeleteFailed
	}
	return nil
}

// EnsureSetLogIndexes creates necessary indexes for the exercise_set_logs collection.
func EnsureSetLogIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "workoutSessionId", Value: 1}, {Key: "setIndex", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "routineExerciseId", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
