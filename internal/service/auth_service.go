package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"fitlink/coach-api/internal/domain"
	"fitlink/coach-api/internal/repository"
	"fitlink/coach-api/internal/storage"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// --- Error Definitions ---
var (
	ErrUserAlreadyExists    = errors.New("user with this email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed: invalid email or password")
	ErrEmailNotVerified     = errors.New("email address has not been verified yet")
	ErrVerificationInvalid  = errors.New("verification token is invalid or expired")
	ErrHashingFailed        = errors.New("failed to hash password")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
	ErrIdentityNotFound     = errors.New("identity not found")
	ErrCertificateNotPDF    = errors.New("certificate must be a PDF document")
	ErrCertificateTooLarge  = errors.New("certificate exceeds the 10 MB limit")
	ErrTrainerProfileGone   = errors.New("trainer profile not found")
)

// MaxCertificateBytes is the upload cap for trainer certificates.
const MaxCertificateBytes = 10 * 1024 * 1024

// RegisterInput carries the registration form payload.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domain.Role
	// Trainer holds the trainer-specific profile fields; nil for
	// regular users.
	Trainer *domain.TrainerProfileData
}

// RegistrationResult reports what registration produced. When email
// verification is required, only the credential record exists:
// the user row is held back from trainer-profile promotion until the
// first verified login, and VerificationToken is handed to the caller
// for out-of-band delivery.
type RegistrationResult struct {
	User              *domain.User
	NeedsVerification bool
	VerificationToken string
}

// AuthService owns credentials, tokens and identity resolution.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*RegistrationResult, error)
	VerifyEmail(ctx context.Context, token string) error
	Login(ctx context.Context, email, password string) (token string, identity *domain.Identity, err error)
	ResolveIdentity(ctx context.Context, userID primitive.ObjectID) (*domain.Identity, error)
	UploadCertificate(ctx context.Context, userID primitive.ObjectID, fileName, contentType string, size int64, body io.Reader) (string, error)
	GetJWTSecret() string
}

// --- Service Implementation ---

type authService struct {
	userRepo           repository.UserRepository
	trainerProfileRepo repository.TrainerProfileRepository
	fileStorage        storage.FileStorage
	jwtSecret          string
	jwtExpiration      time.Duration
	requireVerified    bool
	verifyTTL          time.Duration
}

// NewAuthService creates a new instance of authService.
func NewAuthService(
	userRepo repository.UserRepository,
	trainerProfileRepo repository.TrainerProfileRepository,
	fileStorage storage.FileStorage,
	jwtSecret string,
	jwtExpiration time.Duration,
	requireEmailVerification bool,
	verificationTokenTTL time.Duration,
) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour
	}
	if verificationTokenTTL <= 0 {
		verificationTokenTTL = 48 * time.Hour
	}
	return &authService{
		userRepo:           userRepo,
		trainerProfileRepo: trainerProfileRepo,
		fileStorage:        fileStorage,
		jwtSecret:          jwtSecret,
		jwtExpiration:      jwtExpiration,
		requireVerified:    requireEmailVerification,
		verifyTTL:          verificationTokenTTL,
	}
}

// Register handles new user registration. Trainer registration is a
// multi-step, non-transactional write: the user row is created first,
// then the trainer profile row. A failure between the two leaves the
// user row in place and surfaces the error.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*RegistrationResult, error) {
	if input.Email == "" || input.Password == "" || input.Role == "" {
		return nil, errors.New("email, password, and role cannot be empty")
	}
	if input.Role != domain.RoleUser && input.Role != domain.RoleTrainer {
		return nil, fmt.Errorf("unsupported role %q", input.Role)
	}
	// Emails are stored lowercase; the unique index matches exactly.
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	// Check if the email is already taken.
	_, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrHashingFailed
	}

	user := &domain.User{
		Email:         input.Email,
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		PasswordHash:  string(hashedPassword),
		Role:          input.Role,
		EmailVerified: !s.requireVerified,
	}
	if input.Role == domain.RoleTrainer && s.requireVerified {
		// Stash the profile data; it is promoted on the first verified
		// login. No trainers row may exist until then.
		user.PendingTrainerProfile = input.Trainer
	}

	userID, err := s.userRepo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}
	user.ID = userID
	user.PasswordHash = ""

	if s.requireVerified {
		token, err := s.generateVerificationToken(userID)
		if err != nil {
			return nil, ErrTokenGeneration
		}
		return &RegistrationResult{User: user, NeedsVerification: true, VerificationToken: token}, nil
	}

	if input.Role == domain.RoleTrainer {
		profile := profileFromData(userID, input.Trainer)
		if err := s.trainerProfileRepo.Upsert(ctx, profile); err != nil {
			// No rollback of the user row; the caller sees the raw failure.
			return nil, err
		}
	}

	return &RegistrationResult{User: user}, nil
}

// VerifyEmail redeems an emailed confirmation token.
func (s *authService) VerifyEmail(ctx context.Context, token string) error {
	claims := &verificationClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !parsed.Valid || claims.Purpose != "email_verification" {
		return ErrVerificationInvalid
	}

	userID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return ErrVerificationInvalid
	}

	if err := s.userRepo.SetEmailVerified(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrVerificationInvalid
		}
		return err
	}
	return nil
}

// Login handles user authentication and JWT generation. The first
// login after email verification promotes the stashed trainer profile
// into its own row.
func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.Identity, error) {
	if email == "" || password == "" {
		return "", nil, errors.New("email and password cannot be empty")
	}

	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrAuthenticationFailed
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrAuthenticationFailed
	}

	if !user.EmailVerified {
		return "", nil, ErrEmailNotVerified
	}

	// Deferred trainer-profile creation (property of the verification flow).
	if user.IsTrainer() && user.PendingTrainerProfile != nil {
		profile := profileFromData(user.ID, user.PendingTrainerProfile)
		if err := s.trainerProfileRepo.Upsert(ctx, profile); err != nil {
			return "", nil, err
		}
		if err := s.userRepo.ClearPendingTrainerProfile(ctx, user.ID); err != nil {
			return "", nil, err
		}
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return "", nil, ErrTokenGeneration
	}

	identity, err := s.ResolveIdentity(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, identity, nil
}

// ResolveIdentity builds the unified identity view for a user ID: the
// user row supplies email, display name, role and avatar; the trainer
// profile is joined when present. A missing trainer profile is a valid
// empty state. Any other repository failure aborts the resolution.
func (s *authService) ResolveIdentity(ctx context.Context, userID primitive.ObjectID) (*domain.Identity, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	identity := &domain.Identity{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName(),
		Role:        user.Role,
		Avatar:      user.Avatar,
	}

	profile, err := s.trainerProfileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		// No trainer extension; identity stays as-is.
	} else {
		identity.Trainer = profile
	}

	return identity, nil
}

var certificateNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// UploadCertificate validates and stores a trainer's certificate PDF,
// then patches the profile with its public URL.
func (s *authService) UploadCertificate(ctx context.Context, userID primitive.ObjectID, fileName, contentType string, size int64, body io.Reader) (string, error) {
	isPDF := contentType == "application/pdf" || strings.HasSuffix(strings.ToLower(fileName), ".pdf")
	if !isPDF {
		return "", ErrCertificateNotPDF
	}
	if size > MaxCertificateBytes {
		return "", ErrCertificateTooLarge
	}

	sanitized := certificateNameSanitizer.ReplaceAllString(fileName, "_")
	objectKey := fmt.Sprintf("certificates/%s/%d-%s", userID.Hex(), time.Now().UnixMilli(), sanitized)

	if err := s.fileStorage.Upload(ctx, objectKey, "application/pdf", body); err != nil {
		return "", err
	}

	url := s.fileStorage.PublicURL(objectKey)
	if err := s.trainerProfileRepo.SetCertificateURL(ctx, userID, url); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrTrainerProfileGone
		}
		return "", err
	}
	return url, nil
}

// GetJWTSecret returns the JWT secret for middleware authentication
func (s *authService) GetJWTSecret() string {
	return s.jwtSecret
}

func profileFromData(userID primitive.ObjectID, data *domain.TrainerProfileData) *domain.TrainerProfile {
	profile := &domain.TrainerProfile{UserID: userID}
	if data != nil {
		profile.GymName = data.GymName
		profile.ExperienceYears = data.ExperienceYears
		profile.Specialties = data.Specialties
		profile.Biography = data.Biography
		profile.SocialLinks = data.SocialLinks
	}
	return profile
}

// --- JWT helpers ---

// jwtClaims defines the structure of the JWT payload.
type jwtClaims struct {
	UserID string      `json:"uid"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type verificationClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// generateJWT creates a new JWT token for the given user.
func (s *authService) generateJWT(user *domain.User) (string, error) {
	expirationTime := time.Now().Add(s.jwtExpiration)
	claims := &jwtClaims{
		UserID: user.ID.Hex(),
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "coach-api",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *authService) generateVerificationToken(userID primitive.ObjectID) (string, error) {
	claims := &verificationClaims{
		Purpose: "email_verification",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.Hex(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.verifyTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "coach-api",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
