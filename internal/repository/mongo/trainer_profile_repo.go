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

const trainerProfileCollectionName = "trainers"

// mongoTrainerProfileRepository implements repository.TrainerProfileRepository using MongoDB.
type mongoTrainerProfileRepository struct {
	collection *mongo.Collection
}

// NewMongoTrainerProfileRepository creates a new instance of mongoTrainerProfileRepository.
func NewMongoTrainerProfileRepository(db *mongo.Database) repository.TrainerProfileRepository {
	return &mongoTrainerProfileRepository{
		collection: db.Collection(trainerProfileCollectionName),
	}
}

// Upsert inserts or replaces the profile row keyed by userId.
func (r *mongoTrainerProfileRepository) Upsert(ctx context.Context, profile *domain.TrainerProfile) error {
	if profile.UserID == primitive.NilObjectID {
		return errors.New("trainer profile user ID is required")
	}

	now := time.Now().UTC()
	profile.UpdatedAt = now

	filter := bson.M{"userId": profile.UserID}
	update := bson.M{
		"$set": bson.M{
			"gymName":         profile.GymName,
			"certificateUrl":  profile.CertificateURL,
			"experienceYears": profile.ExperienceYears,
			"specialties":     profile.Specialties,
			"biography":       profile.Biography,
			"socialLinks":     profile.SocialLinks,
			"updatedAt":       profile.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"userId":    profile.UserID,
			"createdAt": now,
		},
	}

	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	return err
}

// GetByUserID retrieves the trainer profile for the given user.
func (r *mongoTrainerProfileRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.TrainerProfile, error) {
	var profile domain.TrainerProfile
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// SetCertificateURL patches only the certificate URL.
func (r *mongoTrainerProfileRepository) SetCertificateURL(ctx context.Context, userID primitive.ObjectID, url string) error {
	update := bson.M{"$set": bson.M{"certificateUrl": url, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"userId": userID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureTrainerProfileIndexes creates necessary indexes for the trainers collection.
func EnsureTrainerProfileIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
