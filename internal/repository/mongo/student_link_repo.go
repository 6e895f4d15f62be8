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

const studentLinkCollectionName = "trainer_students"

// mongoStudentLinkRepository implements repository.StudentLinkRepository using MongoDB.
type mongoStudentLinkRepository struct {
	collection *mongo.Collection
}

// NewMongoStudentLinkRepository creates a new instance of mongoStudentLinkRepository.
func NewMongoStudentLinkRepository(db *mongo.Database) repository.StudentLinkRepository {
	return &mongoStudentLinkRepository{
		collection: db.Collection(studentLinkCollectionName),
	}
}

// Create inserts a new relationship edge.
func (r *mongoStudentLinkRepository) Create(ctx context.Context, link *domain.StudentLink) (primitive.ObjectID, error) {
	if link.TrainerID == primitive.NilObjectID || link.StudentID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("trainer ID and student ID are required")
	}

	link.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	if link.InvitedAt.IsZero() {
		link.InvitedAt = now
	}
	link.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, link)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single edge.
func (r *mongoStudentLinkRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.StudentLink, error) {
	var link domain.StudentLink
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&link)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &link, nil
}

// GetByTrainerID retrieves the trainer's edges, optionally filtered by
// status. Accepted edges sort by acceptance time, everything else by
// invitation time, most recent first.
func (r *mongoStudentLinkRepository) GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID, status *domain.LinkStatus) ([]domain.StudentLink, error) {
	filter := bson.M{"trainerId": trainerID}
	sort := bson.D{{Key: "invitedAt", Value: -1}}
	if status != nil {
		filter["status"] = *status
		if *status == domain.LinkAccepted {
			sort = bson.D{{Key: "acceptedAt", Value: -1}}
		}
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var links []domain.StudentLink
	if err = cursor.All(ctx, &links); err != nil {
		return nil, err
	}
	return links, nil
}

// GetByTrainerAndStudent retrieves the edge between the pair, if any.
func (r *mongoStudentLinkRepository) GetByTrainerAndStudent(ctx context.Context, trainerID, studentID primitive.ObjectID) (*domain.StudentLink, error) {
	var link domain.StudentLink
	filter := bson.M{"trainerId": trainerID, "studentId": studentID}
	err := r.collection.FindOne(ctx, filter).Decode(&link)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &link, nil
}

// SetStatus applies a status transition. The filter requires the edge
// to still be pending, so decided edges cannot be flipped by a
// concurrent or repeated request.
func (r *mongoStudentLinkRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status domain.LinkStatus, acceptedAt *time.Time) error {
	set := bson.M{"status": status, "updatedAt": time.Now().UTC()}
	if acceptedAt != nil {
		set["acceptedAt"] = *acceptedAt
	}

	filter := bson.M{"_id": id, "status": domain.LinkPending}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureStudentLinkIndexes creates necessary indexes for the trainer_students collection.
func EnsureStudentLinkIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "trainerId", Value: 1}, {Key: "studentId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "trainerId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
