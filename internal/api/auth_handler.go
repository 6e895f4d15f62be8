package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"fitlink/coach-api/internal/domain"
	"fitlink/coach-api/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler holds the authentication service dependency.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// --- Request/Response Structs ---

type RegisterRequest struct {
	Email     string      `json:"email" binding:"required,email"`
	Password  string      `json:"password" binding:"required,min=8"`
	FirstName string      `json:"firstName" binding:"required"`
	LastName  string      `json:"lastName"`
	Role      domain.Role `json:"role" binding:"required,oneof=user trainer"`
	// Trainer carries the trainer-specific profile fields; ignored for
	// regular users.
	Trainer *TrainerRegistrationData `json:"trainer,omitempty"`
}

type TrainerRegistrationData struct {
	GymName         string            `json:"gymName"`
	ExperienceYears int               `json:"experienceYears"`
	Specialties     []string          `json:"specialties"`
	Biography       string            `json:"biography"`
	SocialLinks     map[string]string `json:"socialLinks"`
}

// UserResponse excludes sensitive info like password hash
type UserResponse struct {
	ID            string      `json:"id"`
	Email         string      `json:"email"`
	FirstName     string      `json:"firstName,omitempty"`
	LastName      string      `json:"lastName,omitempty"`
	Role          domain.Role `json:"role"`
	Avatar        string      `json:"avatar,omitempty"`
	EmailVerified bool        `json:"emailVerified"`
	CreatedAt     time.Time   `json:"createdAt"`
}

type RegisterResponse struct {
	User              UserResponse `json:"user"`
	NeedsVerification bool         `json:"needsVerification"`
	// VerificationToken is returned for out-of-band delivery; empty when
	// verification is not required.
	VerificationToken string `json:"verificationToken,omitempty"`
}

type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token    string          `json:"token"`
	Identity domain.Identity `json:"identity"`
}

// --- Handler Methods ---

// Register godoc
// @Summary Register a new account (user or trainer)
// @Description Creates a new account. When email verification is enabled the
// @Description response carries needsVerification and the verification token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param user body RegisterRequest true "Registration details"
// @Success 201 {object} RegisterResponse "Account created"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 409 {object} gin.H "Conflict (email already exists)"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	input := service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	}
	if req.Role == domain.RoleTrainer && req.Trainer != nil {
		input.Trainer = &domain.TrainerProfileData{
			GymName:         req.Trainer.GymName,
			ExperienceYears: req.Trainer.ExperienceYears,
			Specialties:     req.Trainer.Specialties,
			Biography:       req.Trainer.Biography,
			SocialLinks:     req.Trainer.SocialLinks,
		}
	}

	result, err := h.authService.Register(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrUserAlreadyExists) {
			abortWithError(c, http.StatusConflict, err.Error())
		} else if errors.Is(err, service.ErrHashingFailed) {
			abortWithError(c, http.StatusInternalServerError, "Could not process registration")
		} else {
			abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred during registration")
		}
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{
		User:              MapUserToResponse(result.User),
		NeedsVerification: result.NeedsVerification,
		VerificationToken: result.VerificationToken,
	})
}

// VerifyEmail godoc
// @Summary Redeem an email verification token
// @Tags Auth
// @Accept json
// @Produce json
// @Param token body VerifyEmailRequest true "Verification token"
// @Success 200 {object} gin.H "Email verified"
// @Failure 400 {object} gin.H "Invalid or expired token"
// @Router /auth/verify [post]
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	if err := h.authService.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		if errors.Is(err, service.ErrVerificationInvalid) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred during verification")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "email verified"})
}

// Login godoc
// @Summary Log in
// @Description Authenticates an account and returns a JWT token and the
// @Description resolved identity.
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse "Login successful"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 401 {object} gin.H "Unauthorized (invalid credentials)"
// @Failure 403 {object} gin.H "Email not verified"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	token, identity, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrAuthenticationFailed) {
			abortWithError(c, http.StatusUnauthorized, err.Error())
		} else if errors.Is(err, service.ErrEmailNotVerified) {
			abortWithError(c, http.StatusForbidden, err.Error())
		} else if errors.Is(err, service.ErrTokenGeneration) {
			abortWithError(c, http.StatusInternalServerError, "Could not process login")
		} else {
			abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred during login")
		}
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: token, Identity: *identity})
}

// Me godoc
// @Summary Get the resolved identity of the authenticated account
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.Identity
// @Failure 401 {object} gin.H "Unauthorized"
// @Router /me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify account from token.")
		return
	}

	identity, err := h.authService.ResolveIdentity(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrIdentityNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to resolve identity.")
		}
		return
	}
	c.JSON(http.StatusOK, identity)
}

// MapUserToResponse converts a domain User to a UserResponse DTO.
func MapUserToResponse(user *domain.User) UserResponse {
	if user == nil {
		return UserResponse{}
	}
	return UserResponse{
		ID:            user.ID.Hex(),
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Role:          user.Role,
		Avatar:        user.Avatar,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
	}
}
