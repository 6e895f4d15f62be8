package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

// Define constants for roles
const (
	RoleUser    Role = "user"
	RoleTrainer Role = "trainer"
)

// SocialLinks maps a platform name (instagram, twitter, tiktok, website)
// to its URL or handle.
type SocialLinks map[string]string

// User represents an account in the system. Regular users ("students")
// and trainers share the collection; trainers additionally have a
// TrainerProfile row keyed by their user ID.
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email         string             `bson:"email" json:"email"` // Unique
	FirstName     string             `bson:"firstName,omitempty" json:"firstName,omitempty"`
	LastName      string             `bson:"lastName,omitempty" json:"lastName,omitempty"`
	PasswordHash  string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	Role          Role               `bson:"role" json:"role"`
	Avatar        string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	EmailVerified bool               `bson:"emailVerified" json:"emailVerified"`

	// PendingTrainerProfile holds the trainer profile data captured at
	// registration while email verification is still outstanding. It is
	// promoted into the trainers collection on the first verified login
	// and cleared; no trainer profile row may exist before then.
	PendingTrainerProfile *TrainerProfileData `bson:"pendingTrainerProfile,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// DisplayName joins first and last name; empty when neither is set.
func (u *User) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

func (u *User) IsTrainer() bool {
	return u.Role == RoleTrainer
}

// Identity is the resolved per-request view of an account: credential
// data merged with the user row (row values win) and, for trainers,
// the trainer profile. A missing trainer profile is an empty state,
// not an error.
type Identity struct {
	UserID      primitive.ObjectID `json:"userId"`
	Email       string             `json:"email"`
	DisplayName string             `json:"displayName,omitempty"`
	Role        Role               `json:"role,omitempty"`
	Avatar      string             `json:"avatar,omitempty"`
	Trainer     *TrainerProfile    `json:"trainer,omitempty"`
}
