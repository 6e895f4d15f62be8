package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutSession records one workout performed by a user, optionally
// against a system routine.
type WorkoutSession struct {
	ID                   primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID               primitive.ObjectID  `bson:"userId" json:"userId"`
	RoutineID            *primitive.ObjectID `bson:"routineId,omitempty" json:"routineId,omitempty"`
	StartedAt            time.Time           `bson:"startedAt" json:"startedAt"`
	CompletedAt          *time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	TotalDurationMinutes *int                `bson:"totalDurationMinutes,omitempty" json:"totalDurationMinutes,omitempty"`
	Notes                string              `bson:"notes,omitempty" json:"notes,omitempty"`
}

// SetLog records one completed set during a session. Historical rows
// are not guaranteed to carry the RoutineExerciseID link, or even the
// SessionID; the history aggregation tolerates both being absent.
type SetLog struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	SessionID         *primitive.ObjectID `bson:"workoutSessionId,omitempty" json:"workoutSessionId,omitempty"`
	RoutineExerciseID *primitive.ObjectID `bson:"routineExerciseId,omitempty" json:"routineExerciseId,omitempty"`
	ExerciseID        *primitive.ObjectID `bson:"exerciseId,omitempty" json:"exerciseId,omitempty"`
	SetIndex          int                 `bson:"setIndex" json:"setIndex"` // 0-based
	Reps              *int                `bson:"reps,omitempty" json:"reps,omitempty"`
	WeightKg          *float64            `bson:"weightKg,omitempty" json:"weightKg,omitempty"`
	RestSeconds       *int                `bson:"restSeconds,omitempty" json:"restSeconds,omitempty"`
	RPE               *float64            `bson:"rpe,omitempty" json:"rpe,omitempty"`
	Completed         *bool               `bson:"completed,omitempty" json:"completed,omitempty"`
	Notes             string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CompletedAt       *time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedAt         time.Time           `bson:"createdAt" json:"createdAt"`
}
