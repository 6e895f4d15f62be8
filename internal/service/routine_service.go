package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"path"
	"strings"
	"sync"
	"time"

	"fitlink/coach-api/internal/domain"
	"fitlink/coach-api/internal/repository"
	"fitlink/coach-api/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrRoutineNotFound     = errors.New("routine not found")
	ErrRoutineAccessDenied = errors.New("access denied to modify or delete this routine")
	ErrRoutineNoRows       = errors.New("a routine needs at least one exercise row")
	ErrRowNameMissing      = errors.New("exercise name is required")
)

// RoutineRowInput is one exercise row of the assignment form.
type RoutineRowInput struct {
	ExerciseName string
	Sets         int
	Reps         int // Fixed rep count from the form
	RestMinutes  *float64
	WeightKg     *float64
	Notes        string
	// Image, when set, is stored before the row is resolved.
	Image *ImageUpload
}

// ImageUpload carries an in-memory image destined for object storage.
type ImageUpload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// AssignRoutineInput is the routine header plus its rows.
type AssignRoutineInput struct {
	Name            string
	Description     string
	DurationMinutes int
	Difficulty      string
	Rows            []RoutineRowInput
}

// UpdateRoutineRowInput is one row of the edit form; a nil ID means
// the row is new.
type UpdateRoutineRowInput struct {
	ID          *primitive.ObjectID
	Sets        int
	Reps        string
	RestSeconds *int
	WeightKg    *float64
	Notes       string
}

// UpdateRoutineInput carries the editable header fields and rows.
type UpdateRoutineInput struct {
	Name            string
	Description     string
	DurationMinutes int
	Difficulty      string
	Rows            []UpdateRoutineRowInput
}

// StudentRoutines fans the two routine variants of one student in.
type StudentRoutines struct {
	System  []domain.Routine        `json:"system"`
	Trainer []domain.TrainerRoutine `json:"trainer"`
}

// RoutineDetail is a trainer routine joined with its ordered rows and
// their exercise names.
type RoutineDetail struct {
	Routine domain.TrainerRoutine `json:"routine"`
	Rows    []RoutineDetailRow    `json:"rows"`
}

type RoutineDetailRow struct {
	Row          domain.RoutineExercise `json:"row"`
	ExerciseName string                 `json:"exerciseName,omitempty"`
}

// RoutineService owns trainer-authored routines and the exercise catalog
// surface backing the assignment form.
type RoutineService interface {
	AssignRoutine(ctx context.Context, trainerID, studentID primitive.ObjectID, input AssignRoutineInput) (*domain.TrainerRoutine, error)
	ListForStudent(ctx context.Context, studentID primitive.ObjectID) (*StudentRoutines, error)
	GetRoutineDetail(ctx context.Context, trainerID, routineID primitive.ObjectID) (*RoutineDetail, error)
	UpdateRoutine(ctx context.Context, trainerID, routineID primitive.ObjectID, input UpdateRoutineInput) (*domain.TrainerRoutine, error)
	DeleteRoutine(ctx context.Context, trainerID, routineID primitive.ObjectID) error
	ListExerciseOptions(ctx context.Context) ([]domain.Exercise, error)
}

// --- Service Implementation ---

type routineService struct {
	trainerRoutineRepo  repository.TrainerRoutineRepository
	routineRepo         repository.RoutineRepository
	routineExerciseRepo repository.RoutineExerciseRepository
	exerciseRepo        repository.ExerciseRepository
	setLogRepo          repository.SetLogRepository
	fileStorage         storage.FileStorage
}

// NewRoutineService creates a new instance of routineService.
func NewRoutineService(
	trainerRoutineRepo repository.TrainerRoutineRepository,
	routineRepo repository.RoutineRepository,
	routineExerciseRepo repository.RoutineExerciseRepository,
	exerciseRepo repository.ExerciseRepository,
	setLogRepo repository.SetLogRepository,
	fileStorage storage.FileStorage,
) RoutineService {
	return &routineService{
		trainerRoutineRepo:  trainerRoutineRepo,
		routineRepo:         routineRepo,
		routineExerciseRepo: routineExerciseRepo,
		exerciseRepo:        exerciseRepo,
		setLogRepo:          setLogRepo,
		fileStorage:         fileStorage,
	}
}

// AssignRoutine persists a trainer-authored routine for a student.
//
// The write is deliberately multi-step and non-transactional, and its
// partial-failure shape is part of the contract: the header goes in
// first; rows are then processed strictly in form order (image upload,
// catalog resolve-or-create, row collection); the prescribed rows are
// bulk-inserted last. A failure at row N aborts the loop with the row
// index in the error; the header and any catalog exercises created for
// rows < N remain persisted.
func (s *routineService) AssignRoutine(ctx context.Context, trainerID, studentID primitive.ObjectID, input AssignRoutineInput) (*domain.TrainerRoutine, error) {
	if trainerID == primitive.NilObjectID || studentID == primitive.NilObjectID {
		return nil, errors.New("trainer ID and student ID are required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, errors.New("routine name is required")
	}
	if len(input.Rows) == 0 {
		return nil, ErrRoutineNoRows
	}

	routine := &domain.TrainerRoutine{
		CreatedBy:       trainerID,
		AssignedTo:      studentID,
		Name:            input.Name,
		Description:     input.Description,
		DurationMinutes: input.DurationMinutes,
		Difficulty:      input.Difficulty,
		TotalExercises:  len(input.Rows),
		AIGenerated:     false,
		RoutineData:     routineSnapshot(input),
	}

	routineID, err := s.trainerRoutineRepo.Create(ctx, routine)
	if err != nil {
		return nil, err
	}
	routine.ID = routineID

	rows := make([]domain.RoutineExercise, 0, len(input.Rows))
	for i, row := range input.Rows {
		name := strings.TrimSpace(row.ExerciseName)
		if name == "" {
			return nil, fmt.Errorf("row %d: %w", i+1, ErrRowNameMissing)
		}

		if row.Image != nil {
			if err := s.uploadRowImage(ctx, name, row.Image); err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
		}

		exerciseID, err := s.resolveOrCreateExercise(ctx, trainerID, name, input.Difficulty)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		var restSeconds *int
		if row.RestMinutes != nil {
			secs := int(math.Round(*row.RestMinutes * 60))
			restSeconds = &secs
		}

		rows = append(rows, domain.RoutineExercise{
			TrainerRoutineID: &routineID,
			ExerciseID:       &exerciseID,
			OrderInRoutine:   i + 1,
			Sets:             row.Sets,
			Reps:             fmt.Sprintf("%d", row.Reps),
			RestSeconds:      restSeconds,
			WeightKg:         row.WeightKg,
			Notes:            row.Notes,
		})
	}

	if err := s.routineExerciseRepo.InsertMany(ctx, rows); err != nil {
		return nil, err
	}
	return routine, nil
}

// resolveOrCreateExercise matches the catalog by name ignoring case and
// reuses the match; only when nothing matches is a new row created.
func (s *routineService) resolveOrCreateExercise(ctx context.Context, trainerID primitive.ObjectID, name, difficulty string) (primitive.ObjectID, error) {
	existing, err := s.exerciseRepo.FindByNameFold(ctx, name)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return primitive.NilObjectID, err
	}

	exercise := &domain.Exercise{
		Name:            name,
		MuscleGroups:    []string{},
		DifficultyLevel: difficulty,
		ExerciseType:    "Fuerza",
		OwnerUserID:     &trainerID,
	}
	return s.exerciseRepo.Create(ctx, exercise)
}

// uploadRowImage stores a row's image under ex/. An object that already
// exists under the same key is simply overwritten; key collisions are
// avoided by the timestamp component.
func (s *routineService) uploadRowImage(ctx context.Context, exerciseName string, image *ImageUpload) error {
	ext := strings.TrimPrefix(path.Ext(image.FileName), ".")
	if ext == "" {
		ext = "jpg"
	}
	objectKey := fmt.Sprintf("ex/%d_%s.%s", time.Now().UnixMilli(), slugify(exerciseName), ext)
	return s.fileStorage.Upload(ctx, objectKey, image.ContentType, bytes.NewReader(image.Data))
}

// ListForStudent fetches the two routine variants concurrently and
// fans them in.
func (s *routineService) ListForStudent(ctx context.Context, studentID primitive.ObjectID) (*StudentRoutines, error) {
	var (
		wg         sync.WaitGroup
		system     []domain.Routine
		trainer    []domain.TrainerRoutine
		systemErr  error
		trainerErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		system, systemErr = s.routineRepo.GetByOwnerID(ctx, studentID)
	}()
	go func() {
		defer wg.Done()
		trainer, trainerErr = s.trainerRoutineRepo.GetByAssignedTo(ctx, studentID)
	}()
	wg.Wait()

	if systemErr != nil {
		return nil, systemErr
	}
	if trainerErr != nil {
		return nil, trainerErr
	}
	return &StudentRoutines{System: system, Trainer: trainer}, nil
}

// GetRoutineDetail loads a trainer routine with its ordered rows and
// exercise names. Reads are scoped to the creator, like edits.
func (s *routineService) GetRoutineDetail(ctx context.Context, trainerID, routineID primitive.ObjectID) (*RoutineDetail, error) {
	routine, err := s.trainerRoutineRepo.GetByID(ctx, routineID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoutineNotFound
		}
		return nil, err
	}
	if routine.CreatedBy != trainerID {
		return nil, ErrRoutineAccessDenied
	}

	rows, err := s.routineExerciseRepo.GetByTrainerRoutineID(ctx, routineID)
	if err != nil {
		return nil, err
	}

	names, err := s.exerciseNames(ctx, rows)
	if err != nil {
		return nil, err
	}

	detail := &RoutineDetail{Routine: *routine, Rows: make([]RoutineDetailRow, 0, len(rows))}
	for _, row := range rows {
		name := ""
		if row.ExerciseID != nil {
			name = names[*row.ExerciseID]
		}
		detail.Rows = append(detail.Rows, RoutineDetailRow{Row: row, ExerciseName: name})
	}
	return detail, nil
}

// UpdateRoutine edits the header and upserts the given rows.
func (s *routineService) UpdateRoutine(ctx context.Context, trainerID, routineID primitive.ObjectID, input UpdateRoutineInput) (*domain.TrainerRoutine, error) {
	routine, err := s.trainerRoutineRepo.GetByID(ctx, routineID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoutineNotFound
		}
		return nil, err
	}
	if routine.CreatedBy != trainerID {
		return nil, ErrRoutineAccessDenied
	}

	routine.Name = input.Name
	routine.Description = input.Description
	routine.DurationMinutes = input.DurationMinutes
	routine.Difficulty = input.Difficulty
	if len(input.Rows) > 0 {
		routine.TotalExercises = len(input.Rows)
	}

	if err := s.trainerRoutineRepo.Update(ctx, routine); err != nil {
		return nil, err
	}

	for i, row := range input.Rows {
		re := domain.RoutineExercise{
			TrainerRoutineID: &routineID,
			OrderInRoutine:   i + 1,
			Sets:             row.Sets,
			Reps:             row.Reps,
			RestSeconds:      row.RestSeconds,
			WeightKg:         row.WeightKg,
			Notes:            row.Notes,
		}
		if row.ID != nil {
			re.ID = *row.ID
		}
		if err := s.routineExerciseRepo.Upsert(ctx, &re); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	return routine, nil
}

// DeleteRoutine removes a trainer routine and everything hanging off
// it: set logs referencing its rows first, then the rows, then the
// header.
func (s *routineService) DeleteRoutine(ctx context.Context, trainerID, routineID primitive.ObjectID) error {
	routine, err := s.trainerRoutineRepo.GetByID(ctx, routineID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoutineNotFound
		}
		return err
	}
	if routine.CreatedBy != trainerID {
		return ErrRoutineAccessDenied
	}

	rows, err := s.routineExerciseRepo.GetByTrainerRoutineID(ctx, routineID)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		ids := make([]primitive.ObjectID, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		if err := s.setLogRepo.DeleteByRoutineExercises(ctx, ids); err != nil {
			return err
		}
		if err := s.routineExerciseRepo.DeleteByIDs(ctx, ids); err != nil {
			return err
		}
	}

	return s.trainerRoutineRepo.Delete(ctx, routineID, trainerID)
}

// ListExerciseOptions returns the catalog for the assignment form's
// suggestion list.
func (s *routineService) ListExerciseOptions(ctx context.Context) ([]domain.Exercise, error) {
	return s.exerciseRepo.ListOrderedByName(ctx)
}

func (s *routineService) exerciseNames(ctx context.Context, rows []domain.RoutineExercise) (map[primitive.ObjectID]string, error) {
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, row := range rows {
		if row.ExerciseID != nil {
			ids = append(ids, *row.ExerciseID)
		}
	}
	exercises, err := s.exerciseRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[primitive.ObjectID]string, len(exercises))
	for _, ex := range exercises {
		names[ex.ID] = ex.Name
	}
	return names, nil
}

// routineSnapshot denormalizes the form payload onto the header row.
func routineSnapshot(input AssignRoutineInput) map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(input.Rows))
	for _, row := range input.Rows {
		entry := map[string]interface{}{
			"exerciseName": row.ExerciseName,
			"sets":         row.Sets,
			"reps":         row.Reps,
		}
		if row.RestMinutes != nil {
			entry["restMinutes"] = *row.RestMinutes
		}
		if row.WeightKg != nil {
			entry["weightKg"] = *row.WeightKg
		}
		if row.Notes != "" {
			entry["notes"] = row.Notes
		}
		rows = append(rows, entry)
	}
	return map[string]interface{}{
		"name":            input.Name,
		"description":     input.Description,
		"durationMinutes": input.DurationMinutes,
		"difficulty":      input.Difficulty,
		"exercises":       rows,
	}
}

// accentFold maps the accented characters that occur in the exercise
// catalog onto their ASCII base letters.
var accentFold = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u",
	"ü", "u", "ñ", "n",
	"à", "a", "è", "e", "ì", "i", "ò", "o", "ù", "u",
	"ç", "c",
)

// slugify normalizes a display name into a storage-key fragment:
// lowercase, accents folded, every non-alphanumeric run collapsed into
// a single hyphen. Also used to match storage file names against
// exercise names.
func slugify(name string) string {
	lowered := accentFold.Replace(strings.ToLower(name))
	var b strings.Builder
	lastHyphen := true // Suppress leading hyphen
	for _, r := range lowered {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
