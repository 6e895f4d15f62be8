package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"fitlink/coach-api/internal/domain"
	"fitlink/coach-api/internal/observability"
	"fitlink/coach-api/internal/repository"
	"fitlink/coach-api/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrSessionNotFound     = errors.New("workout session not found")
	ErrSessionAccessDenied = errors.New("session does not belong to this student")
)

const (
	// Window around a session's start for picking up logs that were
	// written without a session link.
	sessionlessLogWindow = 12 * time.Hour
	// Cap for the last-resort log query with no time bound.
	recentLogLimit = 200
	// Cap for one storage directory listing during image resolution.
	imageListLimit = 1000

	// UnassignedGroup labels set logs that could not be attached to any
	// planned exercise of the session's routine.
	UnassignedGroup = "unassigned"
)

// ExerciseGroup is a run of set logs under one exercise name, ordered
// by set index.
type ExerciseGroup struct {
	ExerciseName string          `json:"exerciseName"`
	Logs         []domain.SetLog `json:"logs"`
}

// SessionSummary is one session of the week view with its logs already
// grouped for display.
type SessionSummary struct {
	Session         domain.WorkoutSession `json:"session"`
	RoutineName     string                `json:"routineName,omitempty"`
	DurationMinutes int                   `json:"durationMinutes"`
	TotalSets       int                   `json:"totalSets"`
	Groups          []ExerciseGroup       `json:"groups"`
}

// WeekHistoryResult is a student's workout history for one week window.
type WeekHistoryResult struct {
	Student   domain.User      `json:"student"`
	WeekStart time.Time        `json:"weekStart"`
	WeekEnd   time.Time        `json:"weekEnd"`
	Sessions  []SessionSummary `json:"sessions"`
}

// SessionExerciseGroup is one planned exercise of the session's routine
// together with the logs recorded against it.
type SessionExerciseGroup struct {
	Planned      domain.RoutineExercise `json:"planned"`
	ExerciseName string                 `json:"exerciseName"`
	ImageURL     string                 `json:"imageUrl,omitempty"`
	Logs         []domain.SetLog        `json:"logs"`
}

// SessionDetailResult is the per-exercise view of a single session.
// Unassigned holds logs that matched no planned exercise.
type SessionDetailResult struct {
	Session         domain.WorkoutSession  `json:"session"`
	RoutineName     string                 `json:"routineName,omitempty"`
	DurationMinutes int                    `json:"durationMinutes"`
	Exercises       []SessionExerciseGroup `json:"exercises"`
	Unassigned      []domain.SetLog        `json:"unassigned"`
}

// HistoryService aggregates workout sessions and set logs into the
// grouped views the trainer screens render.
type HistoryService interface {
	WeekHistory(ctx context.Context, studentID primitive.ObjectID, anchor time.Time) (*WeekHistoryResult, error)
	SessionDetail(ctx context.Context, studentID, sessionID primitive.ObjectID) (*SessionDetailResult, error)
}

// WeekWindow returns the week containing t: Monday 00:00:00.000 in t's
// location through the following Monday minus one millisecond.
func WeekWindow(t time.Time) (time.Time, time.Time) {
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).
		AddDate(0, 0, -daysSinceMonday)
	end := start.AddDate(0, 0, 7).Add(-time.Millisecond)
	return start, end
}

// DisplayDurationMinutes computes the duration shown for a session:
// the recorded total if present, else the completed-started span
// rounded to minutes, never below 1. Sessions without a completion
// timestamp report 0.
func DisplayDurationMinutes(session domain.WorkoutSession) int {
	if session.CompletedAt == nil {
		return 0
	}
	if session.TotalDurationMinutes != nil {
		return *session.TotalDurationMinutes
	}
	minutes := int(math.Round(float64(session.CompletedAt.Sub(session.StartedAt).Milliseconds()) / 60000))
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// --- Service Implementation ---

type historyService struct {
	userRepo            repository.UserRepository
	sessionRepo         repository.SessionRepository
	setLogRepo          repository.SetLogRepository
	routineRepo         repository.RoutineRepository
	routineExerciseRepo repository.RoutineExerciseRepository
	exerciseRepo        repository.ExerciseRepository
	presetRepo          repository.PresetExerciseRepository
	fileStorage         storage.FileStorage
}

// NewHistoryService creates a new instance of historyService.
func NewHistoryService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	setLogRepo repository.SetLogRepository,
	routineRepo repository.RoutineRepository,
	routineExerciseRepo repository.RoutineExerciseRepository,
	exerciseRepo repository.ExerciseRepository,
	presetRepo repository.PresetExerciseRepository,
	fileStorage storage.FileStorage,
) HistoryService {
	return &historyService{
		userRepo:            userRepo,
		sessionRepo:         sessionRepo,
		setLogRepo:          setLogRepo,
		routineRepo:         routineRepo,
		routineExerciseRepo: routineExerciseRepo,
		exerciseRepo:        exerciseRepo,
		presetRepo:          presetRepo,
		fileStorage:         fileStorage,
	}
}

// WeekHistory returns the student's sessions whose start falls inside
// the week containing anchor, each with its logs grouped by exercise
// name.
func (s *historyService) WeekHistory(ctx context.Context, studentID primitive.ObjectID, anchor time.Time) (*WeekHistoryResult, error) {
	student, err := s.userRepo.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	student.PasswordHash = ""

	weekStart, weekEnd := WeekWindow(anchor)
	sessions, err := s.sessionRepo.GetByUserBetween(ctx, studentID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}

	result := &WeekHistoryResult{
		Student:   *student,
		WeekStart: weekStart,
		WeekEnd:   weekEnd,
		Sessions:  make([]SessionSummary, 0, len(sessions)),
	}
	if len(sessions) == 0 {
		return result, nil
	}

	sessionIDs := make([]primitive.ObjectID, 0, len(sessions))
	routineIDs := make([]primitive.ObjectID, 0)
	for _, session := range sessions {
		sessionIDs = append(sessionIDs, session.ID)
		if session.RoutineID != nil {
			routineIDs = append(routineIDs, *session.RoutineID)
		}
	}

	logs, err := s.setLogRepo.GetBySessionIDs(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}
	logsBySession := make(map[primitive.ObjectID][]domain.SetLog)
	for _, log := range logs {
		if log.SessionID == nil {
			continue
		}
		logsBySession[*log.SessionID] = append(logsBySession[*log.SessionID], log)
	}

	routineNames := map[primitive.ObjectID]string{}
	if len(routineIDs) > 0 {
		routineNames, err = s.routineRepo.GetNamesByIDs(ctx, routineIDs)
		if err != nil {
			return nil, err
		}
	}

	exerciseNames, err := s.exerciseNamesForLogs(ctx, logs)
	if err != nil {
		return nil, err
	}

	for _, session := range sessions {
		sessionLogs := logsBySession[session.ID]
		sortLogs(sessionLogs)

		routineName := ""
		if session.RoutineID != nil {
			routineName = routineNames[*session.RoutineID]
		}
		result.Sessions = append(result.Sessions, SessionSummary{
			Session:         session,
			RoutineName:     routineName,
			DurationMinutes: DisplayDurationMinutes(session),
			TotalSets:       len(sessionLogs),
			Groups:          groupByExerciseName(sessionLogs, exerciseNames),
		})
	}
	return result, nil
}

// SessionDetail resolves one session into per-exercise groups.
//
// The planned exercises are resolved in order: (1) the routine-exercise
// ids the logs themselves carry; (2) when no log carries the link, the
// session's declared routine. Logs that end up on no planned row land
// in the Unassigned bucket. Each stage advances only when the previous
// one found nothing; any other failure aborts.
func (s *historyService) SessionDetail(ctx context.Context, studentID, sessionID primitive.ObjectID) (*SessionDetailResult, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.UserID != studentID {
		return nil, ErrSessionAccessDenied
	}

	logs, err := s.setLogRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	planned, err := s.resolvePlanned(ctx, session, logs)
	if err != nil {
		return nil, err
	}

	if len(logs) == 0 && len(planned) > 0 {
		logs, err = s.resolveOrphanLogs(ctx, session, planned)
		if err != nil {
			return nil, err
		}
	}
	sortLogs(logs)

	exercises, unassigned := attachLogs(planned, logs)
	if len(unassigned) > 0 {
		observability.RecordUnassignedLogs(len(unassigned))
	}

	names, images, err := s.resolveExerciseMedia(ctx, planned)
	if err != nil {
		return nil, err
	}
	for i := range exercises {
		if id := exercises[i].Planned.ExerciseID; id != nil {
			exercises[i].ExerciseName = names[*id]
			exercises[i].ImageURL = images[*id]
		}
	}

	routineName := ""
	if session.RoutineID != nil {
		routineNames, err := s.routineRepo.GetNamesByIDs(ctx, []primitive.ObjectID{*session.RoutineID})
		if err != nil {
			return nil, err
		}
		routineName = routineNames[*session.RoutineID]
	}

	return &SessionDetailResult{
		Session:         *session,
		RoutineName:     routineName,
		DurationMinutes: DisplayDurationMinutes(*session),
		Exercises:       exercises,
		Unassigned:      unassigned,
	}, nil
}

// resolvePlanned finds the routine-exercise rows belonging to the
// session, trying the logs' own links before the session's declared
// routine.
func (s *historyService) resolvePlanned(ctx context.Context, session *domain.WorkoutSession, logs []domain.SetLog) ([]domain.RoutineExercise, error) {
	linkedIDs := make([]primitive.ObjectID, 0, len(logs))
	seen := make(map[primitive.ObjectID]bool)
	for _, log := range logs {
		if log.RoutineExerciseID != nil && !seen[*log.RoutineExerciseID] {
			seen[*log.RoutineExerciseID] = true
			linkedIDs = append(linkedIDs, *log.RoutineExerciseID)
		}
	}

	if len(linkedIDs) > 0 {
		planned, err := s.routineExerciseRepo.GetByIDs(ctx, linkedIDs)
		if err != nil {
			return nil, err
		}
		if len(planned) > 0 {
			observability.RecordSessionFallback("linked_logs")
			sortPlanned(planned)
			return planned, nil
		}
	}

	if session.RoutineID != nil {
		planned, err := s.routineExerciseRepo.GetByRoutineID(ctx, *session.RoutineID)
		if err != nil {
			return nil, err
		}
		if len(planned) > 0 {
			observability.RecordSessionFallback("declared_routine")
			return planned, nil
		}
	}

	observability.RecordSessionFallback("none")
	return nil, nil
}

// resolveOrphanLogs recovers logs written without a session link: first
// sessionless logs on the planned rows within a window spanning the
// session (start minus 12h through completion, or start, plus 12h),
// then the oldest logs on those rows with no time bound.
func (s *historyService) resolveOrphanLogs(ctx context.Context, session *domain.WorkoutSession, planned []domain.RoutineExercise) ([]domain.SetLog, error) {
	ids := make([]primitive.ObjectID, 0, len(planned))
	for _, row := range planned {
		ids = append(ids, row.ID)
	}

	from := session.StartedAt.Add(-sessionlessLogWindow)
	to := session.StartedAt.Add(sessionlessLogWindow)
	if session.CompletedAt != nil {
		to = session.CompletedAt.Add(sessionlessLogWindow)
	}
	logs, err := s.setLogRepo.GetSessionlessByRoutineExercises(ctx, ids, from, to)
	if err != nil {
		return nil, err
	}
	if len(logs) > 0 {
		observability.RecordSessionFallback("time_window")
		return logs, nil
	}

	logs, err = s.setLogRepo.GetByRoutineExercises(ctx, ids, recentLogLimit)
	if err != nil {
		return nil, err
	}
	if len(logs) > 0 {
		observability.RecordSessionFallback("recent_logs")
	}
	return logs, nil
}

// attachLogs distributes logs over the planned rows. A log attaches by
// its routine-exercise link; a log without the link attaches by
// exercise id when exactly one planned row has that exercise. Anything
// else is unassigned.
func attachLogs(planned []domain.RoutineExercise, logs []domain.SetLog) ([]SessionExerciseGroup, []domain.SetLog) {
	groups := make([]SessionExerciseGroup, len(planned))
	byRowID := make(map[primitive.ObjectID]int, len(planned))
	rowsByExercise := make(map[primitive.ObjectID][]int)
	for i, row := range planned {
		groups[i] = SessionExerciseGroup{Planned: row, Logs: []domain.SetLog{}}
		byRowID[row.ID] = i
		if row.ExerciseID != nil {
			rowsByExercise[*row.ExerciseID] = append(rowsByExercise[*row.ExerciseID], i)
		}
	}

	var unassigned []domain.SetLog
	for _, log := range logs {
		if log.RoutineExerciseID != nil {
			if i, ok := byRowID[*log.RoutineExerciseID]; ok {
				groups[i].Logs = append(groups[i].Logs, log)
				continue
			}
			unassigned = append(unassigned, log)
			continue
		}
		if log.ExerciseID != nil {
			if rows := rowsByExercise[*log.ExerciseID]; len(rows) == 1 {
				groups[rows[0]].Logs = append(groups[rows[0]].Logs, log)
				continue
			}
		}
		unassigned = append(unassigned, log)
	}
	return groups, unassigned
}

// resolveExerciseMedia looks up names and images for the planned
// exercises. Images resolve through an ordered chain: the preset
// catalog's media URL (absolute passthrough, relative mapped to a
// public URL), then a file-name match against the ex/ listing, then
// covers/.
func (s *historyService) resolveExerciseMedia(ctx context.Context, planned []domain.RoutineExercise) (map[primitive.ObjectID]string, map[primitive.ObjectID]string, error) {
	ids := make([]primitive.ObjectID, 0, len(planned))
	seen := make(map[primitive.ObjectID]bool)
	for _, row := range planned {
		if row.ExerciseID != nil && !seen[*row.ExerciseID] {
			seen[*row.ExerciseID] = true
			ids = append(ids, *row.ExerciseID)
		}
	}

	names := make(map[primitive.ObjectID]string, len(ids))
	images := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return names, images, nil
	}

	exercises, err := s.exerciseRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	presetIDs := make([]primitive.ObjectID, 0, len(exercises))
	for _, ex := range exercises {
		names[ex.ID] = ex.Name
		if ex.PresetSourceID != nil {
			presetIDs = append(presetIDs, *ex.PresetSourceID)
		}
	}

	presetMedia := make(map[primitive.ObjectID]string)
	if len(presetIDs) > 0 {
		presets, err := s.presetRepo.GetByIDs(ctx, presetIDs)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, nil, err
		}
		for _, preset := range presets {
			presetMedia[preset.ID] = preset.MediaURL
		}
	}

	var listings map[string][]string
	for _, ex := range exercises {
		mediaURL := ex.MediaURL
		if ex.PresetSourceID != nil {
			if presetURL := presetMedia[*ex.PresetSourceID]; presetURL != "" {
				mediaURL = presetURL
			}
		}
		if mediaURL != "" {
			if strings.HasPrefix(mediaURL, "http://") || strings.HasPrefix(mediaURL, "https://") {
				images[ex.ID] = mediaURL
			} else {
				images[ex.ID] = s.fileStorage.PublicURL(strings.TrimPrefix(mediaURL, "/"))
			}
			continue
		}

		if listings == nil {
			listings = make(map[string][]string)
		}
		key, err := s.matchStoredImage(ctx, listings, ex.Name)
		if err != nil {
			return nil, nil, err
		}
		if key != "" {
			images[ex.ID] = s.fileStorage.PublicURL(key)
		}
	}
	return names, images, nil
}

// matchStoredImage scans the ex/ then covers/ listings for a file
// whose normalized name contains the exercise's slug. Listings are
// fetched once per call chain and cached in listings.
func (s *historyService) matchStoredImage(ctx context.Context, listings map[string][]string, exerciseName string) (string, error) {
	slug := slugify(exerciseName)
	if slug == "" {
		return "", nil
	}
	for _, prefix := range []string{"ex", "covers"} {
		entries, ok := listings[prefix]
		if !ok {
			var err error
			entries, err = s.fileStorage.List(ctx, prefix+"/", imageListLimit)
			if err != nil {
				return "", err
			}
			listings[prefix] = entries
		}
		for _, name := range entries {
			if strings.Contains(slugify(name), slug) {
				return prefix + "/" + name, nil
			}
		}
	}
	return "", nil
}

func (s *historyService) exerciseNamesForLogs(ctx context.Context, logs []domain.SetLog) (map[primitive.ObjectID]string, error) {
	ids := make([]primitive.ObjectID, 0, len(logs))
	seen := make(map[primitive.ObjectID]bool)
	for _, log := range logs {
		if log.ExerciseID != nil && !seen[*log.ExerciseID] {
			seen[*log.ExerciseID] = true
			ids = append(ids, *log.ExerciseID)
		}
	}
	names := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	exercises, err := s.exerciseRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, ex := range exercises {
		names[ex.ID] = ex.Name
	}
	return names, nil
}

// groupByExerciseName buckets logs by exercise name preserving first
// appearance order. Running it over an already-grouped slice yields the
// same groups.
func groupByExerciseName(logs []domain.SetLog, names map[primitive.ObjectID]string) []ExerciseGroup {
	var groups []ExerciseGroup
	index := make(map[string]int)
	for _, log := range logs {
		name := UnassignedGroup
		if log.ExerciseID != nil {
			if n := names[*log.ExerciseID]; n != "" {
				name = n
			}
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, ExerciseGroup{ExerciseName: name, Logs: []domain.SetLog{}})
		}
		groups[i].Logs = append(groups[i].Logs, log)
	}
	return groups
}

func sortLogs(logs []domain.SetLog) {
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].SetIndex != logs[j].SetIndex {
			return logs[i].SetIndex < logs[j].SetIndex
		}
		return logs[i].CreatedAt.Before(logs[j].CreatedAt)
	})
}

func sortPlanned(rows []domain.RoutineExercise) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].OrderInRoutine < rows[j].OrderInRoutine
	})
}
