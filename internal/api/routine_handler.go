package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fitlink/coach-api/internal/domain"
	"fitlink/coach-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxRowImageBytes caps one exercise image in the assignment form.
const maxRowImageBytes = 10 * 1024 * 1024

type RoutineHandler struct {
	routineService service.RoutineService
	studentService service.StudentService
}

func NewRoutineHandler(routineService service.RoutineService, studentService service.StudentService) *RoutineHandler {
	return &RoutineHandler{
		routineService: routineService,
		studentService: studentService,
	}
}

// --- DTOs for Routine Management ---

type AssignRoutineRow struct {
	ExerciseName string   `json:"exerciseName"`
	Sets         int      `json:"sets"`
	Reps         int      `json:"reps"`
	RestMinutes  *float64 `json:"restMinutes,omitempty"`
	WeightKg     *float64 `json:"weightKg,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}

type AssignRoutineRequest struct {
	Name            string             `json:"name"`
	Description     string             `json:"description,omitempty"`
	DurationMinutes int                `json:"durationMinutes,omitempty"`
	Difficulty      string             `json:"difficulty,omitempty"`
	Rows            []AssignRoutineRow `json:"rows"`
}

type UpdateRoutineRow struct {
	ID          string   `json:"id,omitempty"` // Empty for new rows
	Sets        int      `json:"sets"`
	Reps        string   `json:"reps"`
	RestSeconds *int     `json:"restSeconds,omitempty"`
	WeightKg    *float64 `json:"weightKg,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

type UpdateRoutineRequest struct {
	Name            string             `json:"name" binding:"required"`
	Description     string             `json:"description,omitempty"`
	DurationMinutes int                `json:"durationMinutes,omitempty"`
	Difficulty      string             `json:"difficulty,omitempty"`
	Rows            []UpdateRoutineRow `json:"rows,omitempty"`
}

type TrainerRoutineResponse struct {
	ID              string    `json:"id"`
	CreatedBy       string    `json:"createdBy"`
	AssignedTo      string    `json:"assignedTo"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	DurationMinutes int       `json:"durationMinutes,omitempty"`
	Difficulty      string    `json:"difficulty,omitempty"`
	TotalExercises  int       `json:"totalExercises"`
	AIGenerated     bool      `json:"aiGenerated"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type SystemRoutineResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type StudentRoutinesResponse struct {
	System  []SystemRoutineResponse  `json:"system"`
	Trainer []TrainerRoutineResponse `json:"trainer"`
}

// --- Handler Methods ---

// AssignRoutine godoc
// @Summary Assign a new routine to a student
// @Description Accepts either a JSON body or multipart/form-data with a
// @Description "routine" JSON field plus optional per-row images named
// @Description image_0, image_1, ... matching row indexes. Rows are written
// @Description in form order; a failing row aborts the remainder without
// @Description rolling back what was already persisted.
// @Tags Routines
// @Accept json
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Success 201 {object} TrainerRoutineResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 403 {object} gin.H "No accepted relationship with this student"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /trainer/students/{studentId}/routines [post]
func (h *RoutineHandler) AssignRoutine(c *gin.Context) {
	trainerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify trainer from token.")
		return
	}
	studentID, err := primitive.ObjectIDFromHex(c.Param("studentId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid student ID format.")
		return
	}

	if !requireAcceptedStudent(c, h.studentService, trainerID, studentID) {
		return
	}

	input, err := h.bindAssignInput(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	routine, err := h.routineService.AssignRoutine(c.Request.Context(), trainerID, studentID, *input)
	if err != nil {
		if errors.Is(err, service.ErrRoutineNoRows) || errors.Is(err, service.ErrRowNameMissing) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to assign routine: "+err.Error())
		}
		return
	}
	c.JSON(http.StatusCreated, MapTrainerRoutineToResponse(routine))
}

// bindAssignInput reads the assignment payload from either a JSON body
// or a multipart form carrying a "routine" field and image_N files.
func (h *RoutineHandler) bindAssignInput(c *gin.Context) (*service.AssignRoutineInput, error) {
	var req AssignRoutineRequest

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		form, err := c.MultipartForm()
		if err != nil {
			return nil, fmt.Errorf("invalid multipart form: %v", err)
		}
		payload := c.PostForm("routine")
		if payload == "" {
			return nil, errors.New("missing routine field in multipart form")
		}
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return nil, fmt.Errorf("invalid routine payload: %v", err)
		}

		input := assignInputFromRequest(req)
		for i := range input.Rows {
			files := form.File[fmt.Sprintf("image_%d", i)]
			if len(files) == 0 {
				continue
			}
			header := files[0]
			if header.Size > maxRowImageBytes {
				return nil, fmt.Errorf("image for row %d exceeds the size limit", i+1)
			}
			file, err := header.Open()
			if err != nil {
				return nil, fmt.Errorf("failed to read image for row %d: %v", i+1, err)
			}
			data, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to read image for row %d: %v", i+1, err)
			}
			input.Rows[i].Image = &service.ImageUpload{
				FileName:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			}
		}
		return input, nil
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, fmt.Errorf("validation error: %v", err)
	}
	return assignInputFromRequest(req), nil
}

func assignInputFromRequest(req AssignRoutineRequest) *service.AssignRoutineInput {
	input := &service.AssignRoutineInput{
		Name:            req.Name,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		Difficulty:      req.Difficulty,
		Rows:            make([]service.RoutineRowInput, len(req.Rows)),
	}
	for i, row := range req.Rows {
		input.Rows[i] = service.RoutineRowInput{
			ExerciseName: row.ExerciseName,
			Sets:         row.Sets,
			Reps:         row.Reps,
			RestMinutes:  row.RestMinutes,
			WeightKg:     row.WeightKg,
			Notes:        row.Notes,
		}
	}
	return input
}

// ListStudentRoutines godoc
// @Summary List a student's routines
// @Description Returns the student's system-generated routines and the
// @Description trainer-authored ones, fetched concurrently.
// @Tags Routines
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Success 200 {object} StudentRoutinesResponse
// @Failure 403 {object} gin.H "No accepted relationship with this student"
// @Router /trainer/students/{studentId}/routines [get]
func (h *RoutineHandler) ListStudentRoutines(c *gin.Context) {
	trainerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify trainer from token.")
		return
	}
	studentID, err := primitive.ObjectIDFromHex(c.Param("studentId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid student ID format.")
		return
	}

	if !requireAcceptedStudent(c, h.studentService, trainerID, studentID) {
		return
	}

	routines, err := h.routineService.ListForStudent(c.Request.Context(), studentID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list routines.")
		return
	}

	resp := StudentRoutinesResponse{
		System:  make([]SystemRoutineResponse, len(routines.System)),
		Trainer: make([]TrainerRoutineResponse, len(routines.Trainer)),
	}
	for i, r := range routines.System {
		resp.System[i] = SystemRoutineResponse{
			ID:          r.ID.Hex(),
			Name:        r.Name,
			Description: r.Description,
			CreatedAt:   r.CreatedAt,
		}
	}
	for i := range routines.Trainer {
		resp.Trainer[i] = MapTrainerRoutineToResponse(&routines.Trainer[i])
	}
	c.JSON(http.StatusOK, resp)
}

// GetRoutine godoc
// @Summary Get a trainer routine with its ordered exercise rows
// @Tags Routines
// @Produce json
// @Security BearerAuth
// @Param routineId path string true "Routine ID"
// @Success 200 {object} service.RoutineDetail
// @Failure 403 {object} gin.H "Routine belongs to another trainer"
// @Failure 404 {object} gin.H "Routine not found"
// @Router /trainer/routines/{routineId} [get]
func (h *RoutineHandler) GetRoutine(c *gin.Context) {
	routineID, err := primitive.ObjectIDFromHex(c.Param("routineId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid routine ID format.")
		return
	}

	trainerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify trainer from token.")
		return
	}

	detail, err := h.routineService.GetRoutineDetail(c.Request.Context(), trainerID, routineID)
	if err != nil {
		if errors.Is(err, service.ErrRoutineNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrRoutineAccessDenied) {
			abortWithError(c, http.StatusForbidden, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve routine.")
		}
		return
	}
	c.JSON(http.StatusOK, detail)
}

// UpdateRoutine godoc
// @Summary Edit a trainer routine's header and rows
// @Tags Routines
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param routineId path string true "Routine ID"
// @Param routine body UpdateRoutineRequest true "Updated fields"
// @Success 200 {object} TrainerRoutineResponse
// @Failure 403 {object} gin.H "Routine belongs to another trainer"
// @Failure 404 {object} gin.H "Routine not found"
// @Router /trainer/routines/{routineId} [put]
func (h *RoutineHandler) UpdateRoutine(c *gin.Context) {
	var req UpdateRoutineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	trainerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify trainer from token.")
		return
	}
	routineID, err := primitive.ObjectIDFromHex(c.Param("routineId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid routine ID format.")
		return
	}

	input := service.UpdateRoutineInput{
		Name:            req.Name,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		Difficulty:      req.Difficulty,
		Rows:            make([]service.UpdateRoutineRowInput, len(req.Rows)),
	}
	for i, row := range req.Rows {
		input.Rows[i] = service.UpdateRoutineRowInput{
			Sets:        row.Sets,
			Reps:        row.Reps,
			RestSeconds: row.RestSeconds,
			WeightKg:    row.WeightKg,
			Notes:       row.Notes,
		}
		if row.ID != "" {
			rowID, err := primitive.ObjectIDFromHex(row.ID)
			if err != nil {
				abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid row ID format at row %d.", i+1))
				return
			}
			input.Rows[i].ID = &rowID
		}
	}

	routine, err := h.routineService.UpdateRoutine(c.Request.Context(), trainerID, routineID, input)
	if err != nil {
		if errors.Is(err, service.ErrRoutineNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrRoutineAccessDenied) {
			abortWithError(c, http.StatusForbidden, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to update routine.")
		}
		return
	}
	c.JSON(http.StatusOK, MapTrainerRoutineToResponse(routine))
}

// DeleteRoutine godoc
// @Summary Delete a trainer routine and its rows and logs
// @Tags Routines
// @Produce json
// @Security BearerAuth
// @Param routineId path string true "Routine ID"
// @Success 204 "Deleted"
// @Failure 403 {object} gin.H "Routine belongs to another trainer"
// @Failure 404 {object} gin.H "Routine not found"
// @Router /trainer/routines/{routineId} [delete]
func (h *RoutineHandler) DeleteRoutine(c *gin.Context) {
	trainerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify trainer from token.")
		return
	}
	routineID, err := primitive.ObjectIDFromHex(c.Param("routineId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid routine ID format.")
		return
	}

	if err := h.routineService.DeleteRoutine(c.Request.Context(), trainerID, routineID); err != nil {
		if errors.Is(err, service.ErrRoutineNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrRoutineAccessDenied) {
			abortWithError(c, http.StatusForbidden, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to delete routine.")
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// ListExerciseOptions godoc
// @Summary List the exercise catalog for the assignment form
// @Tags Routines
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Exercise
// @Router /trainer/exercises/options [get]
func (h *RoutineHandler) ListExerciseOptions(c *gin.Context) {
	exercises, err := h.routineService.ListExerciseOptions(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list exercises.")
		return
	}
	if exercises == nil {
		exercises = []domain.Exercise{}
	}
	c.JSON(http.StatusOK, exercises)
}

// requireAcceptedStudent aborts the request unless the trainer has an
// accepted relationship with the student.
func requireAcceptedStudent(c *gin.Context, studentService service.StudentService, trainerID, studentID primitive.ObjectID) bool {
	_, err := studentService.GetStudent(c.Request.Context(), trainerID, studentID)
	if err == nil {
		return true
	}
	if errors.Is(err, service.ErrStudentNotFound) {
		abortWithError(c, http.StatusNotFound, err.Error())
	} else if errors.Is(err, service.ErrLinkNotFound) || errors.Is(err, service.ErrLinkAccessDenied) {
		abortWithError(c, http.StatusForbidden, "No accepted relationship with this student.")
	} else {
		abortWithError(c, http.StatusInternalServerError, "Failed to verify student relationship.")
	}
	return false
}

// MapTrainerRoutineToResponse converts a domain TrainerRoutine to its DTO.
func MapTrainerRoutineToResponse(r *domain.TrainerRoutine) TrainerRoutineResponse {
	if r == nil {
		return TrainerRoutineResponse{}
	}
	return TrainerRoutineResponse{
		ID:              r.ID.Hex(),
		CreatedBy:       r.CreatedBy.Hex(),
		AssignedTo:      r.AssignedTo.Hex(),
		Name:            r.Name,
		Description:     r.Description,
		DurationMinutes: r.DurationMinutes,
		Difficulty:      r.Difficulty,
		TotalExercises:  r.TotalExercises,
		AIGenerated:     r.AIGenerated,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}
