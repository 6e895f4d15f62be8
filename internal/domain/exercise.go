// internal/domain/exercise.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Exercise represents a single exercise definition in the catalog.
// Rows are shared: trainers resolve form rows against the catalog by
// case-insensitive name and only create a new row when no match exists.
type Exercise struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name              string              `bson:"name" json:"name"`
	Description       string              `bson:"description,omitempty" json:"description,omitempty"`
	Instructions      string              `bson:"instructions,omitempty" json:"instructions,omitempty"`
	MuscleGroups      []string            `bson:"muscleGroups,omitempty" json:"muscleGroups,omitempty"`
	EquipmentRequired []string            `bson:"equipmentRequired,omitempty" json:"equipmentRequired,omitempty"`
	DifficultyLevel   string              `bson:"difficultyLevel,omitempty" json:"difficultyLevel,omitempty"` // e.g. "Principiante", "Intermedio", "Avanzado"
	ExerciseType      string              `bson:"exerciseType,omitempty" json:"exerciseType,omitempty"`       // e.g. "Fuerza", "Cardio"
	MediaURL          string              `bson:"mediaUrl,omitempty" json:"mediaUrl,omitempty"`
	PresetSourceID    *primitive.ObjectID `bson:"presetSourceId,omitempty" json:"presetSourceId,omitempty"` // Link to the preset catalog entry this row was copied from
	OwnerUserID       *primitive.ObjectID `bson:"ownerUserId,omitempty" json:"ownerUserId,omitempty"`       // Trainer who created the row; nil for seeded entries
	CreatedAt         time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// PresetExercise is a read-only entry of the seeded exercise catalog,
// carrying the curated media asset for the exercise.
type PresetExercise struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	MediaURL string             `bson:"mediaUrl,omitempty" json:"mediaUrl,omitempty"` // Absolute URL or a path relative to the media bucket
}
