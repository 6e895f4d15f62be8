// internal/domain/routine.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Routine is a system-origin routine owned by the student it was
// generated for. Trainer-authored routines live in TrainerRoutine.
type Routine struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerUserID primitive.ObjectID `bson:"ownerUserId" json:"ownerUserId"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// TrainerRoutine is a routine authored by a trainer for one student.
type TrainerRoutine struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedBy       primitive.ObjectID `bson:"createdBy" json:"createdBy"`   // Trainer
	AssignedTo      primitive.ObjectID `bson:"assignedTo" json:"assignedTo"` // Student
	Name            string             `bson:"name" json:"name"`
	Description     string             `bson:"description,omitempty" json:"description,omitempty"`
	DurationMinutes int                `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"`
	Difficulty      string             `bson:"difficulty,omitempty" json:"difficulty,omitempty"`
	TotalExercises  int                `bson:"totalExercises" json:"totalExercises"`
	AIGenerated     bool               `bson:"aiGenerated" json:"aiGenerated"`
	// RoutineData is a denormalized snapshot of the form payload the
	// routine was created from, kept for audit/debug.
	RoutineData map[string]interface{} `bson:"routineData,omitempty" json:"routineData,omitempty"`
	CreatedAt   time.Time              `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time              `bson:"updatedAt" json:"updatedAt"`
}

// RoutineExercise is one ordered, prescribed entry of a routine.
// Exactly one of RoutineID / TrainerRoutineID is set, mirroring the
// two routine variants.
type RoutineExercise struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	RoutineID        *primitive.ObjectID `bson:"routineId,omitempty" json:"routineId,omitempty"`
	TrainerRoutineID *primitive.ObjectID `bson:"trainerRoutineId,omitempty" json:"trainerRoutineId,omitempty"`
	ExerciseID       *primitive.ObjectID `bson:"exerciseId,omitempty" json:"exerciseId,omitempty"`
	OrderInRoutine   int                 `bson:"orderInRoutine" json:"orderInRoutine"` // 1-based
	Sets             int                 `bson:"sets" json:"sets"`
	Reps             string              `bson:"reps" json:"reps"` // Free-form ("10", "8-12", "AMRAP")
	RestSeconds      *int                `bson:"restSeconds,omitempty" json:"restSeconds,omitempty"`
	WeightKg         *float64            `bson:"weightKg,omitempty" json:"weightKg,omitempty"`
	Notes            string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt        time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time           `bson:"updatedAt" json:"updatedAt"`
}
