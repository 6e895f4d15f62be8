package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"fitlink/coach-api/internal/domain"
	"fitlink/coach-api/internal/repository"
	"fitlink/coach-api/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrAvatarNotImage     = errors.New("avatar must be a JPEG, PNG or WebP image")
	ErrAvatarTooLarge     = errors.New("avatar exceeds the maximum size")
	ErrCertificateMissing = errors.New("no certificate on file")
)

// MaxAvatarBytes caps avatar uploads at 5 MB.
const MaxAvatarBytes = 5 * 1024 * 1024

// certificateURLTTL bounds how long a presigned certificate link stays
// valid.
const certificateURLTTL = 15 * time.Minute

var avatarContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// UpdateProfileInput carries the editable trainer profile fields.
type UpdateProfileInput struct {
	GymName         string
	ExperienceYears int
	Specialties     []string
	Biography       string
	SocialLinks     domain.SocialLinks
}

// ProfileService manages the trainer's own profile and avatar.
type ProfileService interface {
	// GetProfile returns the trainer profile, or nil when none exists yet.
	GetProfile(ctx context.Context, userID primitive.ObjectID) (*domain.TrainerProfile, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, input UpdateProfileInput) (*domain.TrainerProfile, error)
	// UploadAvatar stores the image and patches the user row; returns the
	// public URL. The previous avatar object is removed best-effort.
	UploadAvatar(ctx context.Context, userID primitive.ObjectID, fileName, contentType string, data []byte) (string, error)
	// CertificateDownloadURL returns a short-lived presigned URL for the
	// trainer's stored certificate.
	CertificateDownloadURL(ctx context.Context, userID primitive.ObjectID) (string, error)
}

// --- Service Implementation ---

type profileService struct {
	userRepo           repository.UserRepository
	trainerProfileRepo repository.TrainerProfileRepository
	fileStorage        storage.FileStorage
}

// NewProfileService creates a new instance of profileService.
func NewProfileService(userRepo repository.UserRepository, trainerProfileRepo repository.TrainerProfileRepository, fileStorage storage.FileStorage) ProfileService {
	return &profileService{
		userRepo:           userRepo,
		trainerProfileRepo: trainerProfileRepo,
		fileStorage:        fileStorage,
	}
}

func (s *profileService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*domain.TrainerProfile, error) {
	profile, err := s.trainerProfileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, input UpdateProfileInput) (*domain.TrainerProfile, error) {
	profile := &domain.TrainerProfile{
		UserID:          userID,
		GymName:         input.GymName,
		ExperienceYears: input.ExperienceYears,
		Specialties:     input.Specialties,
		Biography:       input.Biography,
		SocialLinks:     input.SocialLinks,
	}
	if err := s.trainerProfileRepo.Upsert(ctx, profile); err != nil {
		return nil, err
	}
	return s.trainerProfileRepo.GetByUserID(ctx, userID)
}

func (s *profileService) UploadAvatar(ctx context.Context, userID primitive.ObjectID, fileName, contentType string, data []byte) (string, error) {
	if !avatarContentTypes[strings.ToLower(contentType)] {
		return "", ErrAvatarNotImage
	}
	if len(data) > MaxAvatarBytes {
		return "", ErrAvatarTooLarge
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	if ext == "" {
		ext = "jpg"
	}
	objectKey := fmt.Sprintf("avatars/%s/%s.%s", userID.Hex(), uuid.NewString(), ext)
	if err := s.fileStorage.Upload(ctx, objectKey, contentType, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to store avatar: %w", err)
	}

	avatarURL := s.fileStorage.PublicURL(objectKey)
	if err := s.userRepo.UpdateAvatar(ctx, userID, avatarURL); err != nil {
		return "", err
	}

	// Clean up the replaced object. A failure here leaves an orphan, not
	// a broken profile.
	if oldKey := objectKeyFromURL(user.Avatar, "avatars/"); oldKey != "" && oldKey != objectKey {
		if err := s.fileStorage.DeleteObject(ctx, oldKey); err != nil {
			log.Printf("WARN: Failed to delete previous avatar object %s: %v", oldKey, err)
		}
	}
	return avatarURL, nil
}

// CertificateDownloadURL presigns a GET for the stored certificate. The
// profile keeps the public URL; the object key is its bucket-relative
// tail.
func (s *profileService) CertificateDownloadURL(ctx context.Context, userID primitive.ObjectID) (string, error) {
	profile, err := s.trainerProfileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrCertificateMissing
		}
		return "", err
	}
	objectKey := objectKeyFromURL(profile.CertificateURL, "certificates/")
	if objectKey == "" {
		return "", ErrCertificateMissing
	}
	return s.fileStorage.GeneratePresignedDownloadURL(ctx, objectKey, certificateURLTTL)
}

// objectKeyFromURL recovers a bucket object key from a stored public
// URL by the well-known prefix its uploads use. Returns "" when the URL
// does not point into the bucket.
func objectKeyFromURL(url, marker string) string {
	idx := strings.Index(url, marker)
	if idx < 0 {
		return ""
	}
	return url[idx:]
}
