package api

import (
	"errors"
	"io"
	"net/http"

	"fitlink/coach-api/internal/domain"
	"fitlink/coach-api/internal/service"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	authService    service.AuthService
	profileService service.ProfileService
}

func NewProfileHandler(authService service.AuthService, profileService service.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		authService:    authService,
		profileService: profileService,
	}
}

// --- DTOs for Profile Management ---

type UpdateProfileRequest struct {
	GymName         string            `json:"gymName"`
	ExperienceYears int               `json:"experienceYears"`
	Specialties     []string          `json:"specialties"`
	Biography       string            `json:"biography"`
	SocialLinks     map[string]string `json:"socialLinks"`
}

type CertificateResponse struct {
	CertificateURL string `json:"certificateUrl"`
}

type AvatarResponse struct {
	AvatarURL string `json:"avatarUrl"`
}

type CertificateDownloadResponse struct {
	URL string `json:"url"`
}

// --- Handler Methods ---

// GetProfile godoc
// @Summary Get the authenticated trainer's profile
// @Description Returns the trainer profile, or an empty object when the
// @Description trainer has not filled one in yet.
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.TrainerProfile
// @Failure 401 {object} gin.H "Unauthorized"
// @Router /trainer/profile [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify trainer from token.")
		return
	}

	profile, err := h.profileService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to load profile.")
		return
	}
	if profile == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile godoc
// @Summary Update the authenticated trainer's profile
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} domain.TrainerProfile
// @Failure 400 {object} gin.H "Invalid input"
// @Router /trainer/profile [put]
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify trainer from token.")
		return
	}

	profile, err := h.profileService.UpdateProfile(c.Request.Context(), userID, service.UpdateProfileInput{
		GymName:         req.GymName,
		ExperienceYears: req.ExperienceYears,
		Specialties:     req.Specialties,
		Biography:       req.Biography,
		SocialLinks:     domain.SocialLinks(req.SocialLinks),
	})
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to update profile.")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UploadCertificate godoc
// @Summary Upload the trainer's certificate document
// @Description Accepts a PDF up to 10 MB as the "certificate" form file and
// @Description patches the trainer profile with its URL.
// @Tags Profile
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param certificate formData file true "PDF document"
// @Success 200 {object} CertificateResponse
// @Failure 400 {object} gin.H "Not a PDF or too large"
// @Failure 404 {object} gin.H "Trainer profile not found"
// @Router /trainer/profile/certificate [post]
func (h *ProfileHandler) UploadCertificate(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify trainer from token.")
		return
	}

	header, err := c.FormFile("certificate")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Missing certificate file.")
		return
	}
	file, err := header.Open()
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to read certificate file.")
		return
	}
	defer file.Close()

	url, err := h.authService.UploadCertificate(
		c.Request.Context(), userID,
		header.Filename, header.Header.Get("Content-Type"), header.Size, file,
	)
	if err != nil {
		if errors.Is(err, service.ErrCertificateNotPDF) || errors.Is(err, service.ErrCertificateTooLarge) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else if errors.Is(err, service.ErrTrainerProfileGone) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to upload certificate.")
		}
		return
	}
	c.JSON(http.StatusOK, CertificateResponse{CertificateURL: url})
}

// DownloadCertificate godoc
// @Summary Get a temporary download link for the stored certificate
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} CertificateDownloadResponse
// @Failure 404 {object} gin.H "No certificate on file"
// @Router /trainer/profile/certificate [get]
func (h *ProfileHandler) DownloadCertificate(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify trainer from token.")
		return
	}

	url, err := h.profileService.CertificateDownloadURL(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrCertificateMissing) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to generate certificate link.")
		}
		return
	}
	c.JSON(http.StatusOK, CertificateDownloadResponse{URL: url})
}

// UploadAvatar godoc
// @Summary Upload the authenticated account's avatar image
// @Tags Profile
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "JPEG, PNG or WebP image"
// @Success 200 {object} AvatarResponse
// @Failure 400 {object} gin.H "Not an image or too large"
// @Router /me/avatar [post]
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify account from token.")
		return
	}

	header, err := c.FormFile("avatar")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Missing avatar file.")
		return
	}
	if header.Size > service.MaxAvatarBytes {
		abortWithError(c, http.StatusBadRequest, service.ErrAvatarTooLarge.Error())
		return
	}
	file, err := header.Open()
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to read avatar file.")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to read avatar file.")
		return
	}

	url, err := h.profileService.UploadAvatar(c.Request.Context(), userID, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		if errors.Is(err, service.ErrAvatarNotImage) || errors.Is(err, service.ErrAvatarTooLarge) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to upload avatar.")
		}
		return
	}
	c.JSON(http.StatusOK, AvatarResponse{AvatarURL: url})
}
