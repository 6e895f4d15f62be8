package api

import (
	"errors"
	"net/http"
	"time"

	"fitlink/coach-api/internal/domain"
	"fitlink/coach-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type StudentHandler struct {
	studentService service.StudentService
}

func NewStudentHandler(studentService service.StudentService) *StudentHandler {
	return &StudentHandler{studentService: studentService}
}

// --- DTOs for Student Management ---

type InviteStudentRequest struct {
	StudentEmail string `json:"studentEmail" binding:"required,email"`
}

type RespondToInviteRequest struct {
	Decision string `json:"decision" binding:"required,oneof=accepted rejected"`
}

type StudentLinkResponse struct {
	ID         string            `json:"id"`
	TrainerID  string            `json:"trainerId"`
	StudentID  string            `json:"studentId"`
	Status     domain.LinkStatus `json:"status"`
	InvitedAt  time.Time         `json:"invitedAt"`
	AcceptedAt *time.Time        `json:"acceptedAt,omitempty"`
	Student    *UserResponse     `json:"student,omitempty"`
}

// --- Handler Methods ---

// ListStudents godoc
// @Summary List the trainer's student relationships
// @Description Lists relationship rows of the authenticated trainer, each
// @Description joined with the student's account. Filterable by status.
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status (pending/accepted/rejected)"
// @Success 200 {array} StudentLinkResponse
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /trainer/students [get]
func (h *StudentHandler) ListStudents(c *gin.Context) {
	trainerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify trainer from token.")
		return
	}

	var statusFilter *domain.LinkStatus
	if raw := c.Query("status"); raw != "" {
		status := domain.LinkStatus(raw)
		if status != domain.LinkPending && status != domain.LinkAccepted && status != domain.LinkRejected {
			abortWithError(c, http.StatusBadRequest, "Invalid status filter.")
			return
		}
		statusFilter = &status
	}

	views, err := h.studentService.ListLinks(c.Request.Context(), trainerID, statusFilter)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list students.")
		return
	}

	responses := make([]StudentLinkResponse, len(views))
	for i, view := range views {
		responses[i] = MapLinkViewToResponse(view)
	}
	c.JSON(http.StatusOK, responses)
}

// InviteStudent godoc
// @Summary Invite a student by email
// @Description Creates a pending relationship with an existing student account.
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param invite body InviteStudentRequest true "Student's email"
// @Success 201 {object} StudentLinkResponse "Pending relationship created"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 403 {object} gin.H "User is not a student"
// @Failure 404 {object} gin.H "Student not found"
// @Failure 409 {object} gin.H "Relationship already exists"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /trainer/students [post]
func (h *StudentHandler) InviteStudent(c *gin.Context) {
	var req InviteStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	trainerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify trainer from token.")
		return
	}

	link, err := h.studentService.Invite(c.Request.Context(), trainerID, req.StudentEmail)
	if err != nil {
		if errors.Is(err, service.ErrStudentNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrStudentNotRole) {
			abortWithError(c, http.StatusForbidden, err.Error())
		} else if errors.Is(err, service.ErrLinkAlreadyExists) {
			abortWithError(c, http.StatusConflict, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to invite student.")
		}
		return
	}
	c.JSON(http.StatusCreated, MapLinkToResponse(link))
}

// RespondToInvite godoc
// @Summary Decide a pending student relationship
// @Description Transitions a pending relationship to accepted or rejected.
// @Description A decided relationship cannot be changed again.
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param linkId path string true "Relationship ID"
// @Param decision body RespondToInviteRequest true "accepted or rejected"
// @Success 200 {object} StudentLinkResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 403 {object} gin.H "Relationship belongs to another trainer"
// @Failure 404 {object} gin.H "Relationship not found"
// @Failure 409 {object} gin.H "Relationship already decided"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /trainer/links/{linkId}/respond [post]
func (h *StudentHandler) RespondToInvite(c *gin.Context) {
	var req RespondToInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	trainerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify trainer from token.")
		return
	}
	linkID, err := primitive.ObjectIDFromHex(c.Param("linkId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid relationship ID format.")
		return
	}

	link, err := h.studentService.Respond(c.Request.Context(), trainerID, linkID, req.Decision == string(domain.LinkAccepted))
	if err != nil {
		if errors.Is(err, service.ErrLinkNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrLinkAccessDenied) {
			abortWithError(c, http.StatusForbidden, err.Error())
		} else if errors.Is(err, service.ErrLinkNotPending) {
			abortWithError(c, http.StatusConflict, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to update relationship.")
		}
		return
	}
	c.JSON(http.StatusOK, MapLinkToResponse(link))
}

// GetStudent godoc
// @Summary Get one accepted student's account
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Success 200 {object} UserResponse
// @Failure 403 {object} gin.H "No accepted relationship with this student"
// @Failure 404 {object} gin.H "Student not found"
// @Router /trainer/students/{studentId} [get]
func (h *StudentHandler) GetStudent(c *gin.Context) {
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

	student, err := h.studentService.GetStudent(c.Request.Context(), trainerID, studentID)
	if err != nil {
		if errors.Is(err, service.ErrStudentNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrLinkNotFound) || errors.Is(err, service.ErrLinkAccessDenied) {
			abortWithError(c, http.StatusForbidden, "No accepted relationship with this student.")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve student.")
		}
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(student))
}

// MapLinkToResponse converts a domain StudentLink to its DTO.
func MapLinkToResponse(link *domain.StudentLink) StudentLinkResponse {
	if link == nil {
		return StudentLinkResponse{}
	}
	return StudentLinkResponse{
		ID:         link.ID.Hex(),
		TrainerID:  link.TrainerID.Hex(),
		StudentID:  link.StudentID.Hex(),
		Status:     link.Status,
		InvitedAt:  link.InvitedAt,
		AcceptedAt: link.AcceptedAt,
	}
}

// MapLinkViewToResponse converts a joined link/student pair to its DTO.
func MapLinkViewToResponse(view service.StudentLinkView) StudentLinkResponse {
	resp := MapLinkToResponse(&view.Link)
	if view.Student != nil {
		student := MapUserToResponse(view.Student)
		resp.Student = &student
	}
	return resp
}
