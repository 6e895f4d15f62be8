package repository

import (
	"context"
	"time"

	"fitlink/coach-api/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive" // For using ObjectIDs
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("duplicate")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.User, error)
	SetEmailVerified(ctx context.Context, id primitive.ObjectID) error
	ClearPendingTrainerProfile(ctx context.Context, id primitive.ObjectID) error
	UpdateAvatar(ctx context.Context, id primitive.ObjectID, avatarURL string) error
}

// TrainerProfileRepository manages the one-to-one trainer extension rows.
type TrainerProfileRepository interface {
	Upsert(ctx context.Context, profile *domain.TrainerProfile) error
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.TrainerProfile, error)
	SetCertificateURL(ctx context.Context, userID primitive.ObjectID, url string) error
}

// StudentLinkRepository manages trainer/student relationship edges.
type StudentLinkRepository interface {
	Create(ctx context.Context, link *domain.StudentLink) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.StudentLink, error)
	GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID, status *domain.LinkStatus) ([]domain.StudentLink, error)
	GetByTrainerAndStudent(ctx context.Context, trainerID, studentID primitive.ObjectID) (*domain.StudentLink, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status domain.LinkStatus, acceptedAt *time.Time) error
}

// ExerciseRepository defines the interface for interacting with the
// exercise catalog.
type ExerciseRepository interface {
	Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Exercise, error)
	// FindByNameFold matches by name ignoring case; ErrNotFound when no row matches.
	FindByNameFold(ctx context.Context, name string) (*domain.Exercise, error)
	ListOrderedByName(ctx context.Context) ([]domain.Exercise, error)
}

// PresetExerciseRepository reads the seeded catalog used for media lookup.
type PresetExerciseRepository interface {
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.PresetExercise, error)
}

// RoutineRepository reads system-origin routines.
type RoutineRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Routine, error)
	GetByOwnerID(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Routine, error)
	GetNamesByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error)
}

// TrainerRoutineRepository manages trainer-authored routines.
type TrainerRoutineRepository interface {
	Create(ctx context.Context, routine *domain.TrainerRoutine) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrainerRoutine, error)
	GetByAssignedTo(ctx context.Context, studentID primitive.ObjectID) ([]domain.TrainerRoutine, error)
	Update(ctx context.Context, routine *domain.TrainerRoutine) error
	Delete(ctx context.Context, id primitive.ObjectID, createdBy primitive.ObjectID) error // Ensure trainer owns the routine
}

// RoutineExerciseRepository manages the ordered entries of both routine variants.
type RoutineExerciseRepository interface {
	InsertMany(ctx context.Context, rows []domain.RoutineExercise) error
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.RoutineExercise, error)
	GetByRoutineID(ctx context.Context, routineID primitive.ObjectID) ([]domain.RoutineExercise, error)        // Ordered by orderInRoutine
	GetByTrainerRoutineID(ctx context.Context, routineID primitive.ObjectID) ([]domain.RoutineExercise, error) // Ordered by orderInRoutine
	Upsert(ctx context.Context, row *domain.RoutineExercise) error
	DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) error
}

// SessionRepository reads workout sessions.
type SessionRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutSession, error)
	// GetByUserBetween returns sessions with startedAt in [from, to],
	// most recent first.
	GetByUserBetween(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]domain.WorkoutSession, error)
}

// SetLogRepository reads and prunes per-set workout logs.
type SetLogRepository interface {
	GetBySessionID(ctx context.Context, sessionID primitive.ObjectID) ([]domain.SetLog, error) // Ordered by setIndex
	GetBySessionIDs(ctx context.Context, sessionIDs []primitive.ObjectID) ([]domain.SetLog, error)
	// GetSessionlessByRoutineExercises returns logs with no session link
	// on the given planned rows, created within [from, to].
	GetSessionlessByRoutineExercises(ctx context.Context, routineExerciseIDs []primitive.ObjectID, from, to time.Time) ([]domain.SetLog, error)
	// GetByRoutineExercises returns up to limit logs on the given planned
	// rows regardless of session or time, oldest first.
	GetByRoutineExercises(ctx context.Context, routineExerciseIDs []primitive.ObjectID, limit int64) ([]domain.SetLog, error)
	DeleteByRoutineExercises(ctx context.Context, routineExerciseIDs []primitive.ObjectID) error
}
