package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrainerProfileData carries the profile fields collected on the
// registration form, before a profile row exists.
type TrainerProfileData struct {
	GymName         string      `bson:"gymName,omitempty" json:"gymName,omitempty"`
	ExperienceYears int         `bson:"experienceYears,omitempty" json:"experienceYears,omitempty"`
	Specialties     []string    `bson:"specialties,omitempty" json:"specialties,omitempty"`
	Biography       string      `bson:"biography,omitempty" json:"biography,omitempty"`
	SocialLinks     SocialLinks `bson:"socialLinks,omitempty" json:"socialLinks,omitempty"`
}

// TrainerProfile extends a trainer User one-to-one.
type TrainerProfile struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"` // Unique, links to User
	GymName         string             `bson:"gymName,omitempty" json:"gymName,omitempty"`
	CertificateURL  string             `bson:"certificateUrl,omitempty" json:"certificateUrl,omitempty"`
	ExperienceYears int                `bson:"experienceYears,omitempty" json:"experienceYears,omitempty"`
	Specialties     []string           `bson:"specialties,omitempty" json:"specialties,omitempty"`
	Biography       string             `bson:"biography,omitempty" json:"biography,omitempty"`
	SocialLinks     SocialLinks        `bson:"socialLinks,omitempty" json:"socialLinks,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}
