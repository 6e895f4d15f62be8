package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LinkStatus type for the trainer/student relationship lifecycle
type LinkStatus string

const (
	LinkPending  LinkStatus = "pending"
	LinkAccepted LinkStatus = "accepted"
	LinkRejected LinkStatus = "rejected"
)

// StudentLink is the pairwise edge between a trainer and a student.
// Status only ever moves pending -> accepted or pending -> rejected;
// a decided edge is never reversed.
type StudentLink struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TrainerID  primitive.ObjectID `bson:"trainerId" json:"trainerId"`
	StudentID  primitive.ObjectID `bson:"studentId" json:"studentId"`
	Status     LinkStatus         `bson:"status" json:"status"`
	InvitedAt  time.Time          `bson:"invitedAt" json:"invitedAt"`
	AcceptedAt *time.Time         `bson:"acceptedAt,omitempty" json:"acceptedAt,omitempty"` // Set iff status became accepted
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}
