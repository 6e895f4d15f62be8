package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"fitlink/coach-api/internal/domain"
	"fitlink/coach-api/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository stubs shared by the service tests. Error fields
// inject failures for the paths that must abort instead of falling
// through.

type fakeUserRepo struct {
	users map[primitive.ObjectID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*domain.User)}
}

// Create and GetByEmail match emails exactly, like the unique index and
// FindOne on the real collection. Services normalize casing before
// calling in.
func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	id := primitive.NewObjectID()
	user.ID = id
	copied := *user
	r.users[id] = &copied
	return id, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.User, error) {
	var out []domain.User
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			out = append(out, *user)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) SetEmailVerified(_ context.Context, id primitive.ObjectID) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.EmailVerified = true
	return nil
}

func (r *fakeUserRepo) ClearPendingTrainerProfile(_ context.Context, id primitive.ObjectID) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PendingTrainerProfile = nil
	return nil
}

func (r *fakeUserRepo) UpdateAvatar(_ context.Context, id primitive.ObjectID, avatarURL string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Avatar = avatarURL
	return nil
}

type fakeTrainerProfileRepo struct {
	profiles map[primitive.ObjectID]*domain.TrainerProfile // keyed by user ID
}

func newFakeTrainerProfileRepo() *fakeTrainerProfileRepo {
	return &fakeTrainerProfileRepo{profiles: make(map[primitive.ObjectID]*domain.TrainerProfile)}
}

func (r *fakeTrainerProfileRepo) Upsert(_ context.Context, profile *domain.TrainerProfile) error {
	existing, ok := r.profiles[profile.UserID]
	if ok {
		profile.ID = existing.ID
		profile.CertificateURL = existing.CertificateURL
		profile.CreatedAt = existing.CreatedAt
	} else {
		profile.ID = primitive.NewObjectID()
		profile.CreatedAt = time.Now()
	}
	profile.UpdatedAt = time.Now()
	copied := *profile
	r.profiles[profile.UserID] = &copied
	return nil
}

func (r *fakeTrainerProfileRepo) GetByUserID(_ context.Context, userID primitive.ObjectID) (*domain.TrainerProfile, error) {
	profile, ok := r.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *profile
	return &copied, nil
}

func (r *fakeTrainerProfileRepo) SetCertificateURL(_ context.Context, userID primitive.ObjectID, url string) error {
	profile, ok := r.profiles[userID]
	if !ok {
		return repository.ErrNotFound
	}
	profile.CertificateURL = url
	return nil
}

type fakeStudentLinkRepo struct {
	links map[primitive.ObjectID]*domain.StudentLink
}

func newFakeStudentLinkRepo() *fakeStudentLinkRepo {
	return &fakeStudentLinkRepo{links: make(map[primitive.ObjectID]*domain.StudentLink)}
}

func (r *fakeStudentLinkRepo) Create(_ context.Context, link *domain.StudentLink) (primitive.ObjectID, error) {
	for _, existing := range r.links {
		if existing.TrainerID == link.TrainerID && existing.StudentID == link.StudentID {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	id := primitive.NewObjectID()
	link.ID = id
	copied := *link
	r.links[id] = &copied
	return id, nil
}

func (r *fakeStudentLinkRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.StudentLink, error) {
	link, ok := r.links[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *link
	return &copied, nil
}

func (r *fakeStudentLinkRepo) GetByTrainerID(_ context.Context, trainerID primitive.ObjectID, status *domain.LinkStatus) ([]domain.StudentLink, error) {
	var out []domain.StudentLink
	for _, link := range r.links {
		if link.TrainerID != trainerID {
			continue
		}
		if status != nil && link.Status != *status {
			continue
		}
		out = append(out, *link)
	}
	return out, nil
}

func (r *fakeStudentLinkRepo) GetByTrainerAndStudent(_ context.Context, trainerID, studentID primitive.ObjectID) (*domain.StudentLink, error) {
	for _, link := range r.links {
		if link.TrainerID == trainerID && link.StudentID == studentID {
			copied := *link
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

// SetStatus mirrors the production filter: only a pending row can be
// decided.
func (r *fakeStudentLinkRepo) SetStatus(_ context.Context, id primitive.ObjectID, status domain.LinkStatus, acceptedAt *time.Time) error {
	link, ok := r.links[id]
	if !ok || link.Status != domain.LinkPending {
		return repository.ErrNotFound
	}
	link.Status = status
	link.AcceptedAt = acceptedAt
	link.UpdatedAt = time.Now()
	return nil
}

type fakeExerciseRepo struct {
	exercises []domain.Exercise
	createErr error
	findErr   error // overrides FindByNameFold when set
}

func (r *fakeExerciseRepo) Create(_ context.Context, exercise *domain.Exercise) (primitive.ObjectID, error) {
	if r.createErr != nil {
		return primitive.NilObjectID, r.createErr
	}
	exercise.ID = primitive.NewObjectID()
	r.exercises = append(r.exercises, *exercise)
	return exercise.ID, nil
}

func (r *fakeExerciseRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	for _, ex := range r.exercises {
		if ex.ID == id {
			copied := ex
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeExerciseRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.Exercise, error) {
	var out []domain.Exercise
	for _, id := range ids {
		for _, ex := range r.exercises {
			if ex.ID == id {
				out = append(out, ex)
			}
		}
	}
	return out, nil
}

func (r *fakeExerciseRepo) FindByNameFold(_ context.Context, name string) (*domain.Exercise, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, ex := range r.exercises {
		if strings.EqualFold(ex.Name, name) {
			copied := ex
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeExerciseRepo) ListOrderedByName(_ context.Context) ([]domain.Exercise, error) {
	out := append([]domain.Exercise(nil), r.exercises...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakePresetRepo struct {
	presets map[primitive.ObjectID]domain.PresetExercise
}

func (r *fakePresetRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.PresetExercise, error) {
	var out []domain.PresetExercise
	for _, id := range ids {
		if preset, ok := r.presets[id]; ok {
			out = append(out, preset)
		}
	}
	return out, nil
}

type fakeRoutineRepo struct {
	routines map[primitive.ObjectID]domain.Routine
}

func (r *fakeRoutineRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Routine, error) {
	routine, ok := r.routines[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &routine, nil
}

func (r *fakeRoutineRepo) GetByOwnerID(_ context.Context, ownerID primitive.ObjectID) ([]domain.Routine, error) {
	var out []domain.Routine
	for _, routine := range r.routines {
		if routine.OwnerUserID == ownerID {
			out = append(out, routine)
		}
	}
	return out, nil
}

func (r *fakeRoutineRepo) GetNamesByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	names := make(map[primitive.ObjectID]string)
	for _, id := range ids {
		if routine, ok := r.routines[id]; ok {
			names[id] = routine.Name
		}
	}
	return names, nil
}

type fakeTrainerRoutineRepo struct {
	routines  map[primitive.ObjectID]*domain.TrainerRoutine
	createErr error
}

func newFakeTrainerRoutineRepo() *fakeTrainerRoutineRepo {
	return &fakeTrainerRoutineRepo{routines: make(map[primitive.ObjectID]*domain.TrainerRoutine)}
}

func (r *fakeTrainerRoutineRepo) Create(_ context.Context, routine *domain.TrainerRoutine) (primitive.ObjectID, error) {
	if r.createErr != nil {
		return primitive.NilObjectID, r.createErr
	}
	id := primitive.NewObjectID()
	routine.ID = id
	copied := *routine
	r.routines[id] = &copied
	return id, nil
}

func (r *fakeTrainerRoutineRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.TrainerRoutine, error) {
	routine, ok := r.routines[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *routine
	return &copied, nil
}

func (r *fakeTrainerRoutineRepo) GetByAssignedTo(_ context.Context, studentID primitive.ObjectID) ([]domain.TrainerRoutine, error) {
	var out []domain.TrainerRoutine
	for _, routine := range r.routines {
		if routine.AssignedTo == studentID {
			out = append(out, *routine)
		}
	}
	return out, nil
}

func (r *fakeTrainerRoutineRepo) Update(_ context.Context, routine *domain.TrainerRoutine) error {
	if _, ok := r.routines[routine.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *routine
	r.routines[routine.ID] = &copied
	return nil
}

func (r *fakeTrainerRoutineRepo) Delete(_ context.Context, id primitive.ObjectID, createdBy primitive.ObjectID) error {
	routine, ok := r.routines[id]
	if !ok || routine.CreatedBy != createdBy {
		return repository.ErrNotFound
	}
	delete(r.routines, id)
	return nil
}

type fakeRoutineExerciseRepo struct {
	rows         []domain.RoutineExercise
	insertErr    error
	byIDsErr     error
	byRoutineErr error
}

func (r *fakeRoutineExerciseRepo) InsertMany(_ context.Context, rows []domain.RoutineExercise) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	for i := range rows {
		rows[i].ID = primitive.NewObjectID()
	}
	r.rows = append(r.rows, rows...)
	return nil
}

func (r *fakeRoutineExerciseRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.RoutineExercise, error) {
	if r.byIDsErr != nil {
		return nil, r.byIDsErr
	}
	var out []domain.RoutineExercise
	for _, id := range ids {
		for _, row := range r.rows {
			if row.ID == id {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

func (r *fakeRoutineExerciseRepo) GetByRoutineID(_ context.Context, routineID primitive.ObjectID) ([]domain.RoutineExercise, error) {
	if r.byRoutineErr != nil {
		return nil, r.byRoutineErr
	}
	var out []domain.RoutineExercise
	for _, row := range r.rows {
		if row.RoutineID != nil && *row.RoutineID == routineID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderInRoutine < out[j].OrderInRoutine })
	return out, nil
}

func (r *fakeRoutineExerciseRepo) GetByTrainerRoutineID(_ context.Context, routineID primitive.ObjectID) ([]domain.RoutineExercise, error) {
	var out []domain.RoutineExercise
	for _, row := range r.rows {
		if row.TrainerRoutineID != nil && *row.TrainerRoutineID == routineID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderInRoutine < out[j].OrderInRoutine })
	return out, nil
}

func (r *fakeRoutineExerciseRepo) Upsert(_ context.Context, row *domain.RoutineExercise) error {
	if row.ID != primitive.NilObjectID {
		for i := range r.rows {
			if r.rows[i].ID == row.ID {
				r.rows[i] = *row
				return nil
			}
		}
	}
	row.ID = primitive.NewObjectID()
	r.rows = append(r.rows, *row)
	return nil
}

func (r *fakeRoutineExerciseRepo) DeleteByIDs(_ context.Context, ids []primitive.ObjectID) error {
	keep := r.rows[:0]
	for _, row := range r.rows {
		drop := false
		for _, id := range ids {
			if row.ID == id {
				drop = true
				break
			}
		}
		if !drop {
			keep = append(keep, row)
		}
	}
	r.rows = keep
	return nil
}

type fakeSessionRepo struct {
	sessions map[primitive.ObjectID]domain.WorkoutSession
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.WorkoutSession, error) {
	session, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &session, nil
}

func (r *fakeSessionRepo) GetByUserBetween(_ context.Context, userID primitive.ObjectID, from, to time.Time) ([]domain.WorkoutSession, error) {
	var out []domain.WorkoutSession
	for _, session := range r.sessions {
		if session.UserID != userID {
			continue
		}
		if session.StartedAt.Before(from) || session.StartedAt.After(to) {
			continue
		}
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

type fakeSetLogRepo struct {
	logs           []domain.SetLog
	bySessionErr   error
	sessionlessErr error
	deleted        []primitive.ObjectID
}

func (r *fakeSetLogRepo) GetBySessionID(_ context.Context, sessionID primitive.ObjectID) ([]domain.SetLog, error) {
	if r.bySessionErr != nil {
		return nil, r.bySessionErr
	}
	var out []domain.SetLog
	for _, log := range r.logs {
		if log.SessionID != nil && *log.SessionID == sessionID {
			out = append(out, log)
		}
	}
	return out, nil
}

func (r *fakeSetLogRepo) GetBySessionIDs(_ context.Context, sessionIDs []primitive.ObjectID) ([]domain.SetLog, error) {
	var out []domain.SetLog
	for _, log := range r.logs {
		if log.SessionID == nil {
			continue
		}
		for _, id := range sessionIDs {
			if *log.SessionID == id {
				out = append(out, log)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeSetLogRepo) GetSessionlessByRoutineExercises(_ context.Context, routineExerciseIDs []primitive.ObjectID, from, to time.Time) ([]domain.SetLog, error) {
	if r.sessionlessErr != nil {
		return nil, r.sessionlessErr
	}
	var out []domain.SetLog
	for _, log := range r.logs {
		if log.SessionID != nil || log.RoutineExerciseID == nil {
			continue
		}
		if log.CreatedAt.Before(from) || log.CreatedAt.After(to) {
			continue
		}
		for _, id := range routineExerciseIDs {
			if *log.RoutineExerciseID == id {
				out = append(out, log)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeSetLogRepo) GetByRoutineExercises(_ context.Context, routineExerciseIDs []primitive.ObjectID, limit int64) ([]domain.SetLog, error) {
	var out []domain.SetLog
	for _, log := range r.logs {
		if log.RoutineExerciseID == nil {
			continue
		}
		for _, id := range routineExerciseIDs {
			if *log.RoutineExerciseID == id {
				out = append(out, log)
				break
			}
		}
		if int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeSetLogRepo) DeleteByRoutineExercises(_ context.Context, routineExerciseIDs []primitive.ObjectID) error {
	r.deleted = append(r.deleted, routineExerciseIDs...)
	return nil
}

type fakeStorage struct {
	uploads  map[string][]byte
	listings map[string][]string // prefix -> names
	listErr  error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		uploads:  make(map[string][]byte),
		listings: make(map[string][]string),
	}
}

func (s *fakeStorage) Upload(_ context.Context, objectKey, _ string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.uploads[objectKey] = data
	return nil
}

func (s *fakeStorage) PublicURL(objectKey string) string {
	return "https://cdn.test/" + objectKey
}

func (s *fakeStorage) List(_ context.Context, prefix string, _ int32) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listings[strings.TrimSuffix(prefix, "/")], nil
}

func (s *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://cdn.test/presigned/" + objectKey, nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, objectKey string) error {
	delete(s.uploads, objectKey)
	return nil
}
