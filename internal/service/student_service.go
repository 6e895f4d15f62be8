package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"fitlink/coach-api/internal/domain"
	"fitlink/coach-api/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrStudentNotFound     = errors.New("student user not found")
	ErrStudentNotRole      = errors.New("user found but is not a student")
	ErrLinkNotFound        = errors.New("student relationship not found")
	ErrLinkAlreadyExists   = errors.New("student relationship already exists")
	ErrLinkNotPending      = errors.New("relationship has already been decided")
	ErrLinkAccessDenied    = errors.New("relationship does not belong to this trainer")
	ErrInvalidLinkDecision = errors.New("decision must be accept or reject")
)

// StudentLinkView joins a relationship edge with the student's user row
// for listing.
type StudentLinkView struct {
	Link    domain.StudentLink `json:"link"`
	Student *domain.User       `json:"student,omitempty"`
}

// StudentService manages the trainer's side of student relationships.
type StudentService interface {
	ListLinks(ctx context.Context, trainerID primitive.ObjectID, status *domain.LinkStatus) ([]StudentLinkView, error)
	Invite(ctx context.Context, trainerID primitive.ObjectID, studentEmail string) (*domain.StudentLink, error)
	Respond(ctx context.Context, trainerID, linkID primitive.ObjectID, accept bool) (*domain.StudentLink, error)
	GetStudent(ctx context.Context, trainerID, studentID primitive.ObjectID) (*domain.User, error)
}

// --- Service Implementation ---

type studentService struct {
	userRepo repository.UserRepository
	linkRepo repository.StudentLinkRepository
}

// NewStudentService creates a new instance of studentService.
func NewStudentService(userRepo repository.UserRepository, linkRepo repository.StudentLinkRepository) StudentService {
	return &studentService{
		userRepo: userRepo,
		linkRepo: linkRepo,
	}
}

// ListLinks returns the trainer's relationship edges joined with the
// student rows. The list is always scoped to the requesting trainer.
func (s *studentService) ListLinks(ctx context.Context, trainerID primitive.ObjectID, status *domain.LinkStatus) ([]StudentLinkView, error) {
	if trainerID == primitive.NilObjectID {
		return nil, errors.New("trainer ID cannot be nil")
	}

	links, err := s.linkRepo.GetByTrainerID(ctx, trainerID, status)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return []StudentLinkView{}, nil
	}

	studentIDs := make([]primitive.ObjectID, 0, len(links))
	for _, link := range links {
		studentIDs = append(studentIDs, link.StudentID)
	}

	students, err := s.userRepo.GetByIDs(ctx, studentIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*domain.User, len(students))
	for i := range students {
		students[i].PasswordHash = ""
		byID[students[i].ID] = &students[i]
	}

	views := make([]StudentLinkView, 0, len(links))
	for _, link := range links {
		views = append(views, StudentLinkView{Link: link, Student: byID[link.StudentID]})
	}
	return views, nil
}

// Invite creates a pending edge towards the user with the given email.
func (s *studentService) Invite(ctx context.Context, trainerID primitive.ObjectID, studentEmail string) (*domain.StudentLink, error) {
	if trainerID == primitive.NilObjectID || studentEmail == "" {
		return nil, errors.New("trainer ID and student email are required")
	}

	student, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(studentEmail)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	if student.Role != domain.RoleUser {
		return nil, ErrStudentNotRole
	}

	link := &domain.StudentLink{
		TrainerID: trainerID,
		StudentID: student.ID,
		Status:    domain.LinkPending,
		InvitedAt: time.Now().UTC(),
	}

	linkID, err := s.linkRepo.Create(ctx, link)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrLinkAlreadyExists
		}
		return nil, err
	}
	link.ID = linkID
	return link, nil
}

// Respond decides a pending edge. Transitions are one-way: pending can
// become accepted or rejected, and acceptedAt is set exactly when the
// decision is accept. A decided edge is never flipped back.
func (s *studentService) Respond(ctx context.Context, trainerID, linkID primitive.ObjectID, accept bool) (*domain.StudentLink, error) {
	link, err := s.linkRepo.GetByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	if link.TrainerID != trainerID {
		return nil, ErrLinkAccessDenied
	}
	if link.Status != domain.LinkPending {
		return nil, ErrLinkNotPending
	}

	status := domain.LinkRejected
	var acceptedAt *time.Time
	if accept {
		status = domain.LinkAccepted
		now := time.Now().UTC()
		acceptedAt = &now
	}

	if err := s.linkRepo.SetStatus(ctx, linkID, status, acceptedAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Lost the race against another decision on the same edge.
			return nil, ErrLinkNotPending
		}
		return nil, err
	}

	link.Status = status
	link.AcceptedAt = acceptedAt
	return link, nil
}

// GetStudent returns the student's user row, verifying the accepted
// relationship with the requesting trainer first.
func (s *studentService) GetStudent(ctx context.Context, trainerID, studentID primitive.ObjectID) (*domain.User, error) {
	link, err := s.linkRepo.GetByTrainerAndStudent(ctx, trainerID, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	if link.Status != domain.LinkAccepted {
		return nil, ErrLinkAccessDenied
	}

	student, err := s.userRepo.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	student.PasswordHash = ""
	return student, nil
}
