package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"fitlink/coach-api/internal/domain"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestWeekWindow(t *testing.T) {
	loc := time.FixedZone("TST", 2*60*60)

	// Wednesday mid-afternoon rolls back to that week's Monday.
	wednesday := time.Date(2026, 9, 2, 15, 30, 0, 0, loc)
	start, end := WeekWindow(wednesday)
	require.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, loc), start)
	require.Equal(t, start.AddDate(0, 0, 7).Add(-time.Millisecond), end)

	// Sunday belongs to the week that started six days earlier.
	sunday := time.Date(2026, 9, 6, 23, 59, 0, 0, loc)
	start, _ = WeekWindow(sunday)
	require.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, loc), start)

	// Monday midnight is already the week start.
	monday := time.Date(2026, 8, 31, 0, 0, 0, 0, loc)
	start, end = WeekWindow(monday)
	require.Equal(t, monday, start)
	require.Equal(t, time.Date(2026, 9, 6, 23, 59, 59, 999000000, loc), end)
}

func TestDisplayDurationMinutes(t *testing.T) {
	started := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)

	completed := started.Add(42 * time.Minute)
	recorded := 50
	session := domain.WorkoutSession{StartedAt: started, CompletedAt: &completed, TotalDurationMinutes: &recorded}
	require.Equal(t, 50, DisplayDurationMinutes(session))

	session.TotalDurationMinutes = nil
	require.Equal(t, 42, DisplayDurationMinutes(session))

	// Rounded, not truncated.
	completed = started.Add(42*time.Minute + 40*time.Second)
	session.CompletedAt = &completed
	require.Equal(t, 43, DisplayDurationMinutes(session))

	// Never below one minute once completed.
	completed = started.Add(10 * time.Second)
	session.CompletedAt = &completed
	require.Equal(t, 1, DisplayDurationMinutes(session))

	session.CompletedAt = nil
	require.Equal(t, 0, DisplayDurationMinutes(session))
}

func TestGroupByExerciseNameIsStableAndRepeatable(t *testing.T) {
	squatID := primitive.NewObjectID()
	pressID := primitive.NewObjectID()
	names := map[primitive.ObjectID]string{squatID: "Sentadilla", pressID: "Press banca"}

	logs := []domain.SetLog{
		{ExerciseID: &squatID, SetIndex: 0},
		{ExerciseID: &pressID, SetIndex: 0},
		{ExerciseID: &squatID, SetIndex: 1},
		{SetIndex: 2}, // No exercise link
	}

	groups := groupByExerciseName(logs, names)
	require.Len(t, groups, 3)
	require.Equal(t, "Sentadilla", groups[0].ExerciseName)
	require.Len(t, groups[0].Logs, 2)
	require.Equal(t, "Press banca", groups[1].ExerciseName)
	require.Equal(t, UnassignedGroup, groups[2].ExerciseName)

	// Grouping the concatenation of the groups reproduces them.
	var flattened []domain.SetLog
	for _, g := range groups {
		flattened = append(flattened, g.Logs...)
	}
	require.Equal(t, groups, groupByExerciseName(flattened, names))
}

type historyFixture struct {
	users     *fakeUserRepo
	sessions  *fakeSessionRepo
	logs      *fakeSetLogRepo
	routines  *fakeRoutineRepo
	rows      *fakeRoutineExerciseRepo
	exercises *fakeExerciseRepo
	presets   *fakePresetRepo
	storage   *fakeStorage
	svc       HistoryService
}

func newHistoryFixture() *historyFixture {
	f := &historyFixture{
		users:     newFakeUserRepo(),
		sessions:  &fakeSessionRepo{sessions: make(map[primitive.ObjectID]domain.WorkoutSession)},
		logs:      &fakeSetLogRepo{},
		routines:  &fakeRoutineRepo{routines: make(map[primitive.ObjectID]domain.Routine)},
		rows:      &fakeRoutineExerciseRepo{},
		exercises: &fakeExerciseRepo{},
		presets:   &fakePresetRepo{presets: make(map[primitive.ObjectID]domain.PresetExercise)},
		storage:   newFakeStorage(),
	}
	f.svc = NewHistoryService(f.users, f.sessions, f.logs, f.routines, f.rows, f.exercises, f.presets, f.storage)
	return f
}

func (f *historyFixture) addExercise(name string) primitive.ObjectID {
	ex := domain.Exercise{ID: primitive.NewObjectID(), Name: name}
	f.exercises.exercises = append(f.exercises.exercises, ex)
	return ex.ID
}

func (f *historyFixture) addPlannedRow(routineID, exerciseID primitive.ObjectID, order int) primitive.ObjectID {
	row := domain.RoutineExercise{
		ID:             primitive.NewObjectID(),
		RoutineID:      &routineID,
		ExerciseID:     &exerciseID,
		OrderInRoutine: order,
		Sets:           3,
		Reps:           "10",
	}
	f.rows.rows = append(f.rows.rows, row)
	return row.ID
}

func TestSessionDetailPrefersLogLinkedRows(t *testing.T) {
	f := newHistoryFixture()
	studentID := primitive.NewObjectID()
	routineID := primitive.NewObjectID()
	f.routines.routines[routineID] = domain.Routine{ID: routineID, Name: "Full body"}

	squatID := f.addExercise("Sentadilla")
	pressID := f.addExercise("Press banca")
	squatRow := f.addPlannedRow(routineID, squatID, 1)
	f.addPlannedRow(routineID, pressID, 2)

	sessionID := primitive.NewObjectID()
	f.sessions.sessions[sessionID] = domain.WorkoutSession{
		ID:        sessionID,
		UserID:    studentID,
		RoutineID: &routineID,
		StartedAt: time.Now(),
	}
	// Only the squat row is referenced by logs; the linked set wins over
	// the declared routine, so the press row must not appear.
	f.logs.logs = []domain.SetLog{
		{ID: primitive.NewObjectID(), SessionID: &sessionID, RoutineExerciseID: &squatRow, ExerciseID: &squatID, SetIndex: 0},
		{ID: primitive.NewObjectID(), SessionID: &sessionID, RoutineExerciseID: &squatRow, ExerciseID: &squatID, SetIndex: 1},
	}

	detail, err := f.svc.SessionDetail(context.Background(), studentID, sessionID)
	require.NoError(t, err)
	require.Len(t, detail.Exercises, 1)
	require.Equal(t, "Sentadilla", detail.Exercises[0].ExerciseName)
	require.Len(t, detail.Exercises[0].Logs, 2)
	require.Empty(t, detail.Unassigned)
	require.Equal(t, "Full body", detail.RoutineName)
}

func TestSessionDetailFallsBackToDeclaredRoutine(t *testing.T) {
	f := newHistoryFixture()
	studentID := primitive.NewObjectID()
	routineID := primitive.NewObjectID()
	f.routines.routines[routineID] = domain.Routine{ID: routineID, Name: "Pierna"}

	squatID := f.addExercise("Sentadilla")
	lungeID := f.addExercise("Zancada")
	f.addPlannedRow(routineID, squatID, 1)
	f.addPlannedRow(routineID, lungeID, 2)

	sessionID := primitive.NewObjectID()
	f.sessions.sessions[sessionID] = domain.WorkoutSession{
		ID:        sessionID,
		UserID:    studentID,
		RoutineID: &routineID,
		StartedAt: time.Now(),
	}
	// No log carries the planned-row link; the squat log is rescued via
	// its exercise id, the unknown one lands in unassigned.
	unknownID := primitive.NewObjectID()
	f.logs.logs = []domain.SetLog{
		{ID: primitive.NewObjectID(), SessionID: &sessionID, ExerciseID: &squatID, SetIndex: 0},
		{ID: primitive.NewObjectID(), SessionID: &sessionID, ExerciseID: &unknownID, SetIndex: 0},
	}

	detail, err := f.svc.SessionDetail(context.Background(), studentID, sessionID)
	require.NoError(t, err)
	require.Len(t, detail.Exercises, 2)
	require.Equal(t, "Sentadilla", detail.Exercises[0].ExerciseName)
	require.Len(t, detail.Exercises[0].Logs, 1)
	require.Empty(t, detail.Exercises[1].Logs)
	require.Len(t, detail.Unassigned, 1)
}

func TestSessionDetailExerciseMatchMustBeUnique(t *testing.T) {
	f := newHistoryFixture()
	studentID := primitive.NewObjectID()
	routineID := primitive.NewObjectID()
	f.routines.routines[routineID] = domain.Routine{ID: routineID, Name: "Doble"}

	squatID := f.addExercise("Sentadilla")
	// The same exercise appears twice in the routine, so a bare
	// exercise-id match is ambiguous.
	f.addPlannedRow(routineID, squatID, 1)
	f.addPlannedRow(routineID, squatID, 2)

	sessionID := primitive.NewObjectID()
	f.sessions.sessions[sessionID] = domain.WorkoutSession{
		ID:        sessionID,
		UserID:    studentID,
		RoutineID: &routineID,
		StartedAt: time.Now(),
	}
	f.logs.logs = []domain.SetLog{
		{ID: primitive.NewObjectID(), SessionID: &sessionID, ExerciseID: &squatID, SetIndex: 0},
	}

	detail, err := f.svc.SessionDetail(context.Background(), studentID, sessionID)
	require.NoError(t, err)
	require.Len(t, detail.Unassigned, 1)
	require.Empty(t, detail.Exercises[0].Logs)
	require.Empty(t, detail.Exercises[1].Logs)
}

func TestSessionDetailAbortsOnLookupFailure(t *testing.T) {
	f := newHistoryFixture()
	studentID := primitive.NewObjectID()
	routineID := primitive.NewObjectID()

	rowID := primitive.NewObjectID()
	sessionID := primitive.NewObjectID()
	f.sessions.sessions[sessionID] = domain.WorkoutSession{
		ID:        sessionID,
		UserID:    studentID,
		RoutineID: &routineID,
		StartedAt: time.Now(),
	}
	f.logs.logs = []domain.SetLog{
		{ID: primitive.NewObjectID(), SessionID: &sessionID, RoutineExerciseID: &rowID, SetIndex: 0},
	}

	// A failing lookup must surface, not silently advance to the next
	// resolution stage.
	boom := errors.New("connection reset")
	f.rows.byIDsErr = boom

	_, err := f.svc.SessionDetail(context.Background(), studentID, sessionID)
	require.ErrorIs(t, err, boom)
}

func TestSessionDetailRecoversSessionlessLogs(t *testing.T) {
	f := newHistoryFixture()
	studentID := primitive.NewObjectID()
	routineID := primitive.NewObjectID()
	f.routines.routines[routineID] = domain.Routine{ID: routineID, Name: "Empuje"}

	pressID := f.addExercise("Press banca")
	pressRow := f.addPlannedRow(routineID, pressID, 1)

	startedAt := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)
	sessionID := primitive.NewObjectID()
	f.sessions.sessions[sessionID] = domain.WorkoutSession{
		ID:        sessionID,
		UserID:    studentID,
		RoutineID: &routineID,
		StartedAt: startedAt,
	}
	// The logs never got a session link but sit on the planned row within
	// the recovery window.
	f.logs.logs = []domain.SetLog{
		{ID: primitive.NewObjectID(), RoutineExerciseID: &pressRow, ExerciseID: &pressID, SetIndex: 0, CreatedAt: startedAt.Add(30 * time.Minute)},
		{ID: primitive.NewObjectID(), RoutineExerciseID: &pressRow, ExerciseID: &pressID, SetIndex: 1, CreatedAt: startedAt.Add(35 * time.Minute)},
		// Outside the window, must not be picked up.
		{ID: primitive.NewObjectID(), RoutineExerciseID: &pressRow, ExerciseID: &pressID, SetIndex: 0, CreatedAt: startedAt.Add(-48 * time.Hour)},
	}

	detail, err := f.svc.SessionDetail(context.Background(), studentID, sessionID)
	require.NoError(t, err)
	require.Len(t, detail.Exercises, 1)
	require.Len(t, detail.Exercises[0].Logs, 2)
}

func TestSessionDetailRecoveryWindowExtendsPastCompletion(t *testing.T) {
	f := newHistoryFixture()
	studentID := primitive.NewObjectID()
	routineID := primitive.NewObjectID()
	f.routines.routines[routineID] = domain.Routine{ID: routineID, Name: "Pierna"}

	squatID := f.addExercise("Sentadilla")
	squatRow := f.addPlannedRow(routineID, squatID, 1)

	startedAt := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)
	completedAt := startedAt.Add(3 * time.Hour)
	sessionID := primitive.NewObjectID()
	f.sessions.sessions[sessionID] = domain.WorkoutSession{
		ID:          sessionID,
		UserID:      studentID,
		RoutineID:   &routineID,
		StartedAt:   startedAt,
		CompletedAt: &completedAt,
	}
	// The second log lands after startedAt+12h but inside
	// completedAt+12h; the window must reach it.
	f.logs.logs = []domain.SetLog{
		{ID: primitive.NewObjectID(), RoutineExerciseID: &squatRow, ExerciseID: &squatID, SetIndex: 0, CreatedAt: startedAt.Add(30 * time.Minute)},
		{ID: primitive.NewObjectID(), RoutineExerciseID: &squatRow, ExerciseID: &squatID, SetIndex: 1, CreatedAt: startedAt.Add(14 * time.Hour)},
		{ID: primitive.NewObjectID(), RoutineExerciseID: &squatRow, ExerciseID: &squatID, SetIndex: 0, CreatedAt: completedAt.Add(13 * time.Hour)},
	}

	detail, err := f.svc.SessionDetail(context.Background(), studentID, sessionID)
	require.NoError(t, err)
	require.Len(t, detail.Exercises, 1)
	require.Len(t, detail.Exercises[0].Logs, 2)
}

func TestSessionDetailRejectsForeignSession(t *testing.T) {
	f := newHistoryFixture()
	sessionID := primitive.NewObjectID()
	f.sessions.sessions[sessionID] = domain.WorkoutSession{
		ID:        sessionID,
		UserID:    primitive.NewObjectID(),
		StartedAt: time.Now(),
	}

	_, err := f.svc.SessionDetail(context.Background(), primitive.NewObjectID(), sessionID)
	require.ErrorIs(t, err, ErrSessionAccessDenied)
}

func TestSessionDetailResolvesImages(t *testing.T) {
	f := newHistoryFixture()
	studentID := primitive.NewObjectID()
	routineID := primitive.NewObjectID()
	f.routines.routines[routineID] = domain.Routine{ID: routineID, Name: "Mixta"}

	// Exercise backed by a preset with an absolute media URL.
	absPreset := domain.PresetExercise{ID: primitive.NewObjectID(), Name: "Remo", MediaURL: "https://media.example.com/remo.gif"}
	f.presets.presets[absPreset.ID] = absPreset
	remo := domain.Exercise{ID: primitive.NewObjectID(), Name: "Remo", PresetSourceID: &absPreset.ID}

	// Exercise backed by a preset with a bucket-relative path.
	relPreset := domain.PresetExercise{ID: primitive.NewObjectID(), Name: "Curl", MediaURL: "ex/curl.jpg"}
	f.presets.presets[relPreset.ID] = relPreset
	curl := domain.Exercise{ID: primitive.NewObjectID(), Name: "Curl", PresetSourceID: &relPreset.ID}

	// Exercise with no media at all, matched against the listing.
	press := domain.Exercise{ID: primitive.NewObjectID(), Name: "Press Francés"}
	f.storage.listings["ex"] = []string{"1700000000_press-frances.jpg"}

	f.exercises.exercises = append(f.exercises.exercises, remo, curl, press)
	f.addPlannedRow(routineID, remo.ID, 1)
	f.addPlannedRow(routineID, curl.ID, 2)
	f.addPlannedRow(routineID, press.ID, 3)

	sessionID := primitive.NewObjectID()
	f.sessions.sessions[sessionID] = domain.WorkoutSession{
		ID:        sessionID,
		UserID:    studentID,
		RoutineID: &routineID,
		StartedAt: time.Now(),
	}

	detail, err := f.svc.SessionDetail(context.Background(), studentID, sessionID)
	require.NoError(t, err)
	require.Len(t, detail.Exercises, 3)
	require.Equal(t, "https://media.example.com/remo.gif", detail.Exercises[0].ImageURL)
	require.Equal(t, "https://cdn.test/ex/curl.jpg", detail.Exercises[1].ImageURL)
	require.Equal(t, "https://cdn.test/ex/1700000000_press-frances.jpg", detail.Exercises[2].ImageURL)
}

func TestWeekHistoryAggregatesSessions(t *testing.T) {
	f := newHistoryFixture()
	student := &domain.User{Email: "alumno@example.com", FirstName: "Ana", Role: domain.RoleUser}
	studentID, err := f.users.Create(context.Background(), student)
	require.NoError(t, err)

	routineID := primitive.NewObjectID()
	f.routines.routines[routineID] = domain.Routine{ID: routineID, Name: "Semana A"}
	squatID := f.addExercise("Sentadilla")

	anchor := time.Date(2026, 9, 2, 12, 0, 0, 0, time.UTC)
	weekStart, _ := WeekWindow(anchor)

	inWeek := primitive.NewObjectID()
	completed := weekStart.Add(25 * time.Hour)
	f.sessions.sessions[inWeek] = domain.WorkoutSession{
		ID:          inWeek,
		UserID:      studentID,
		RoutineID:   &routineID,
		StartedAt:   weekStart.Add(24 * time.Hour),
		CompletedAt: &completed,
	}
	outOfWeek := primitive.NewObjectID()
	f.sessions.sessions[outOfWeek] = domain.WorkoutSession{
		ID:        outOfWeek,
		UserID:    studentID,
		StartedAt: weekStart.AddDate(0, 0, -3),
	}
	f.logs.logs = []domain.SetLog{
		{ID: primitive.NewObjectID(), SessionID: &inWeek, ExerciseID: &squatID, SetIndex: 1},
		{ID: primitive.NewObjectID(), SessionID: &inWeek, ExerciseID: &squatID, SetIndex: 0},
	}

	history, err := f.svc.WeekHistory(context.Background(), studentID, anchor)
	require.NoError(t, err)
	require.Equal(t, weekStart, history.WeekStart)
	require.Len(t, history.Sessions, 1)

	summary := history.Sessions[0]
	require.Equal(t, inWeek, summary.Session.ID)
	require.Equal(t, "Semana A", summary.RoutineName)
	require.Equal(t, 60, summary.DurationMinutes)
	require.Equal(t, 2, summary.TotalSets)
	require.Len(t, summary.Groups, 1)
	require.Equal(t, "Sentadilla", summary.Groups[0].ExerciseName)
	// Logs come back ordered by set index.
	require.Equal(t, 0, summary.Groups[0].Logs[0].SetIndex)
	require.Equal(t, 1, summary.Groups[0].Logs[1].SetIndex)
}
