package api

import (
	"errors"
	"net/http"
	"time"

	"fitlink/coach-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type HistoryHandler struct {
	historyService service.HistoryService
	studentService service.StudentService
}

func NewHistoryHandler(historyService service.HistoryService, studentService service.StudentService) *HistoryHandler {
	return &HistoryHandler{
		historyService: historyService,
		studentService: studentService,
	}
}

// WeekHistory godoc
// @Summary Get a student's workout history for one week
// @Description Returns the sessions whose start falls in the week containing
// @Description the date parameter (Monday through Sunday), each with its set
// @Description logs grouped by exercise. Defaults to the current week.
// @Tags History
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param date query string false "Anchor date (YYYY-MM-DD or RFC 3339)"
// @Success 200 {object} service.WeekHistoryResult
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 403 {object} gin.H "No accepted relationship with this student"
// @Failure 404 {object} gin.H "Student not found"
// @Router /trainer/students/{studentId}/history [get]
func (h *HistoryHandler) WeekHistory(c *gin.Context) {
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

	anchor := time.Now()
	if raw := c.Query("date"); raw != "" {
		anchor, err = parseAnchorDate(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid date: use YYYY-MM-DD or RFC 3339.")
			return
		}
	}

	if !requireAcceptedStudent(c, h.studentService, trainerID, studentID) {
		return
	}

	history, err := h.historyService.WeekHistory(c.Request.Context(), studentID, anchor)
	if err != nil {
		if errors.Is(err, service.ErrStudentNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load workout history.")
		}
		return
	}
	c.JSON(http.StatusOK, history)
}

// SessionDetail godoc
// @Summary Get the per-exercise view of one workout session
// @Description Resolves the session's planned exercises and attaches each set
// @Description log to its exercise. Logs that cannot be attached to any
// @Description planned exercise are returned in the unassigned bucket.
// @Tags History
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param sessionId path string true "Session ID"
// @Success 200 {object} service.SessionDetailResult
// @Failure 403 {object} gin.H "Session belongs to another student"
// @Failure 404 {object} gin.H "Session not found"
// @Router /trainer/students/{studentId}/sessions/{sessionId} [get]
func (h *HistoryHandler) SessionDetail(c *gin.Context) {
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
	sessionID, err := primitive.ObjectIDFromHex(c.Param("sessionId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid session ID format.")
		return
	}

	if !requireAcceptedStudent(c, h.studentService, trainerID, studentID) {
		return
	}

	detail, err := h.historyService.SessionDetail(c.Request.Context(), studentID, sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrSessionAccessDenied) {
			abortWithError(c, http.StatusForbidden, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load session detail.")
		}
		return
	}
	c.JSON(http.StatusOK, detail)
}

// parseAnchorDate accepts a bare date or a full RFC 3339 timestamp.
// Bare dates are anchored in the server's local week computation.
func parseAnchorDate(raw string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", raw, time.Local); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
