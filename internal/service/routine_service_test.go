package service

import (
	"context"
	"errors"
	"testing"

	"fitlink/coach-api/internal/domain"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type routineFixture struct {
	headers   *fakeTrainerRoutineRepo
	routines  *fakeRoutineRepo
	rows      *fakeRoutineExerciseRepo
	exercises *fakeExerciseRepo
	logs      *fakeSetLogRepo
	storage   *fakeStorage
	svc       RoutineService
}

func newRoutineFixture() *routineFixture {
	f := &routineFixture{
		headers:   newFakeTrainerRoutineRepo(),
		routines:  &fakeRoutineRepo{routines: make(map[primitive.ObjectID]domain.Routine)},
		rows:      &fakeRoutineExerciseRepo{},
		exercises: &fakeExerciseRepo{},
		logs:      &fakeSetLogRepo{},
		storage:   newFakeStorage(),
	}
	f.svc = NewRoutineService(f.headers, f.routines, f.rows, f.exercises, f.logs, f.storage)
	return f
}

func restMinutes(m float64) *float64 { return &m }

func TestAssignRoutineReusesExercisesIgnoringCase(t *testing.T) {
	f := newRoutineFixture()
	existing := domain.Exercise{ID: primitive.NewObjectID(), Name: "Sentadilla"}
	f.exercises.exercises = append(f.exercises.exercises, existing)

	trainerID := primitive.NewObjectID()
	studentID := primitive.NewObjectID()

	routine, err := f.svc.AssignRoutine(context.Background(), trainerID, studentID, AssignRoutineInput{
		Name:       "Pierna A",
		Difficulty: "Intermedio",
		Rows: []RoutineRowInput{
			{ExerciseName: "SENTADILLA", Sets: 4, Reps: 8},
			{ExerciseName: "Peso muerto", Sets: 3, Reps: 5},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, routine.TotalExercises)

	// "SENTADILLA" matched the existing row; only "Peso muerto" is new.
	require.Len(t, f.exercises.exercises, 2)
	require.Len(t, f.rows.rows, 2)
	require.Equal(t, existing.ID, *f.rows.rows[0].ExerciseID)
	require.Equal(t, trainerID, *f.exercises.exercises[1].OwnerUserID)
}

func TestAssignRoutineComputesOrderAndRest(t *testing.T) {
	f := newRoutineFixture()
	trainerID := primitive.NewObjectID()
	studentID := primitive.NewObjectID()

	_, err := f.svc.AssignRoutine(context.Background(), trainerID, studentID, AssignRoutineInput{
		Name: "Full body",
		Rows: []RoutineRowInput{
			{ExerciseName: "Sentadilla", Sets: 4, Reps: 8, RestMinutes: restMinutes(1.5)},
			{ExerciseName: "Press banca", Sets: 3, Reps: 10, RestMinutes: restMinutes(0.75)},
			{ExerciseName: "Remo", Sets: 3, Reps: 12},
		},
	})
	require.NoError(t, err)
	require.Len(t, f.rows.rows, 3)

	// Order is 1-based and follows the form.
	require.Equal(t, 1, f.rows.rows[0].OrderInRoutine)
	require.Equal(t, 2, f.rows.rows[1].OrderInRoutine)
	require.Equal(t, 3, f.rows.rows[2].OrderInRoutine)

	// Rest minutes become rounded seconds.
	require.Equal(t, 90, *f.rows.rows[0].RestSeconds)
	require.Equal(t, 45, *f.rows.rows[1].RestSeconds)
	require.Nil(t, f.rows.rows[2].RestSeconds)

	require.Equal(t, "8", f.rows.rows[0].Reps)
}

func TestAssignRoutinePartialFailureKeepsEarlierWrites(t *testing.T) {
	f := newRoutineFixture()
	existing := domain.Exercise{ID: primitive.NewObjectID(), Name: "Sentadilla"}
	f.exercises.exercises = append(f.exercises.exercises, existing)

	// The second row needs a catalog insert, which fails.
	boom := errors.New("write conflict")
	f.exercises.createErr = boom

	_, err := f.svc.AssignRoutine(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), AssignRoutineInput{
		Name: "Pierna A",
		Rows: []RoutineRowInput{
			{ExerciseName: "Sentadilla", Sets: 4, Reps: 8},
			{ExerciseName: "Peso muerto", Sets: 3, Reps: 5},
		},
	})
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "row 2")

	// The header survives the aborted loop; no prescription rows exist.
	require.Len(t, f.headers.routines, 1)
	require.Empty(t, f.rows.rows)
}

func TestAssignRoutineUploadsRowImages(t *testing.T) {
	f := newRoutineFixture()

	_, err := f.svc.AssignRoutine(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), AssignRoutineInput{
		Name: "Empuje",
		Rows: []RoutineRowInput{
			{
				ExerciseName: "Press Arnold",
				Sets:         3,
				Reps:         10,
				Image:        &ImageUpload{FileName: "arnold.JPG", ContentType: "image/jpeg", Data: []byte("img")},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, f.storage.uploads, 1)
	for key := range f.storage.uploads {
		require.Regexp(t, `^ex/\d+_press-arnold\.JPG$`, key)
	}
}

func TestAssignRoutineRequiresRows(t *testing.T) {
	f := newRoutineFixture()
	_, err := f.svc.AssignRoutine(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), AssignRoutineInput{Name: "Vacía"})
	require.ErrorIs(t, err, ErrRoutineNoRows)
}

func TestListForStudentMergesBothVariants(t *testing.T) {
	f := newRoutineFixture()
	studentID := primitive.NewObjectID()

	systemID := primitive.NewObjectID()
	f.routines.routines[systemID] = domain.Routine{ID: systemID, OwnerUserID: studentID, Name: "Generada"}
	_, err := f.headers.Create(context.Background(), &domain.TrainerRoutine{
		CreatedBy:  primitive.NewObjectID(),
		AssignedTo: studentID,
		Name:       "Del coach",
	})
	require.NoError(t, err)

	routines, err := f.svc.ListForStudent(context.Background(), studentID)
	require.NoError(t, err)
	require.Len(t, routines.System, 1)
	require.Len(t, routines.Trainer, 1)
	require.Equal(t, "Generada", routines.System[0].Name)
	require.Equal(t, "Del coach", routines.Trainer[0].Name)
}

func TestUpdateRoutineScopedToCreator(t *testing.T) {
	f := newRoutineFixture()
	trainerID := primitive.NewObjectID()

	routineID, err := f.headers.Create(context.Background(), &domain.TrainerRoutine{
		CreatedBy:  trainerID,
		AssignedTo: primitive.NewObjectID(),
		Name:       "Original",
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateRoutine(context.Background(), primitive.NewObjectID(), routineID, UpdateRoutineInput{Name: "Robada"})
	require.ErrorIs(t, err, ErrRoutineAccessDenied)

	updated, err := f.svc.UpdateRoutine(context.Background(), trainerID, routineID, UpdateRoutineInput{Name: "Renombrada"})
	require.NoError(t, err)
	require.Equal(t, "Renombrada", updated.Name)
}

func TestGetRoutineDetailScopedToCreator(t *testing.T) {
	f := newRoutineFixture()
	trainerID := primitive.NewObjectID()

	routineID, err := f.headers.Create(context.Background(), &domain.TrainerRoutine{
		CreatedBy:  trainerID,
		AssignedTo: primitive.NewObjectID(),
		Name:       "Pierna A",
	})
	require.NoError(t, err)

	_, err = f.svc.GetRoutineDetail(context.Background(), primitive.NewObjectID(), routineID)
	require.ErrorIs(t, err, ErrRoutineAccessDenied)

	detail, err := f.svc.GetRoutineDetail(context.Background(), trainerID, routineID)
	require.NoError(t, err)
	require.Equal(t, "Pierna A", detail.Routine.Name)
}

func TestDeleteRoutineCascades(t *testing.T) {
	f := newRoutineFixture()
	trainerID := primitive.NewObjectID()
	studentID := primitive.NewObjectID()

	routine, err := f.svc.AssignRoutine(context.Background(), trainerID, studentID, AssignRoutineInput{
		Name: "Para borrar",
		Rows: []RoutineRowInput{{ExerciseName: "Sentadilla", Sets: 3, Reps: 10}},
	})
	require.NoError(t, err)
	rowID := f.rows.rows[0].ID

	require.NoError(t, f.svc.DeleteRoutine(context.Background(), trainerID, routine.ID))

	require.Empty(t, f.headers.routines)
	require.Empty(t, f.rows.rows)
	// Set logs hanging off the rows were pruned first.
	require.Equal(t, []primitive.ObjectID{rowID}, f.logs.deleted)
}

func TestDeleteRoutineScopedToCreator(t *testing.T) {
	f := newRoutineFixture()
	trainerID := primitive.NewObjectID()

	routine, err := f.svc.AssignRoutine(context.Background(), trainerID, primitive.NewObjectID(), AssignRoutineInput{
		Name: "Ajena",
		Rows: []RoutineRowInput{{ExerciseName: "Remo", Sets: 3, Reps: 10}},
	})
	require.NoError(t, err)

	err = f.svc.DeleteRoutine(context.Background(), primitive.NewObjectID(), routine.ID)
	require.ErrorIs(t, err, ErrRoutineAccessDenied)
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "press-frances", slugify("Press Francés"))
	require.Equal(t, "zancada-bulgara", slugify("Zancada Búlgara"))
	require.Equal(t, "curl-21s", slugify("  Curl (21s)!  "))
	require.Equal(t, "", slugify("¡¿!?"))
}
