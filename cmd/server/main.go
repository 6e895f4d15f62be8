package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitlink/coach-api/internal/api"
	"fitlink/coach-api/internal/config"
	"fitlink/coach-api/internal/repository/mongo"
	"fitlink/coach-api/internal/service"
	"fitlink/coach-api/internal/storage"

	"github.com/gin-gonic/gin"
)

// @title Coach API
// @version 1.0
// @description Trainer-facing API for student relationships, routine
// @description assignment and workout history.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	log.Println("Starting Coach API server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	log.Println("Ensuring database indexes...")
	go func() { // Run index creation in the background
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsureTrainerProfileIndexes(ctx, appDB.Collection("trainers"))
		mongo.EnsureStudentLinkIndexes(ctx, appDB.Collection("trainer_students"))
		mongo.EnsureExerciseIndexes(ctx, appDB.Collection("exercises"))
		mongo.EnsureRoutineIndexes(ctx, appDB.Collection("routines"))
		mongo.EnsureTrainerRoutineIndexes(ctx, appDB.Collection("routines_trainer"))
		mongo.EnsureRoutineExerciseIndexes(ctx, appDB.Collection("routine_exercises"))
		mongo.EnsureSessionIndexes(ctx, appDB.Collection("workout_sessions"))
		mongo.EnsureSetLogIndexes(ctx, appDB.Collection("exercise_set_logs"))
		log.Println("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	log.Println("Initializing file storage service...")
	fileStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
	}

	// --- Initialize Repositories ---
	log.Println("Initializing repositories...")
	userRepo := mongo.NewMongoUserRepository(appDB)
	trainerProfileRepo := mongo.NewMongoTrainerProfileRepository(appDB)
	studentLinkRepo := mongo.NewMongoStudentLinkRepository(appDB)
	exerciseRepo := mongo.NewMongoExerciseRepository(appDB)
	presetExerciseRepo := mongo.NewMongoPresetExerciseRepository(appDB)
	routineRepo := mongo.NewMongoRoutineRepository(appDB)
	trainerRoutineRepo := mongo.NewMongoTrainerRoutineRepository(appDB)
	routineExerciseRepo := mongo.NewMongoRoutineExerciseRepository(appDB)
	sessionRepo := mongo.NewMongoSessionRepository(appDB)
	setLogRepo := mongo.NewMongoSetLogRepository(appDB)

	// --- Initialize Services ---
	log.Println("Initializing services...")
	authService := service.NewAuthService(
		userRepo, trainerProfileRepo, fileStorage,
		cfg.JWT.Secret, cfg.JWT.Expiration,
		cfg.Auth.RequireEmailVerification, cfg.Auth.VerificationTokenTTL,
	)
	studentService := service.NewStudentService(userRepo, studentLinkRepo)
	routineService := service.NewRoutineService(
		trainerRoutineRepo, routineRepo, routineExerciseRepo,
		exerciseRepo, setLogRepo, fileStorage,
	)
	historyService := service.NewHistoryService(
		userRepo, sessionRepo, setLogRepo,
		routineRepo, routineExerciseRepo,
		exerciseRepo, presetExerciseRepo, fileStorage,
	)
	profileService := service.NewProfileService(userRepo, trainerProfileRepo, fileStorage)

	// --- Initialize Gin Engine ---
	// gin.SetMode(gin.ReleaseMode) // Uncomment for production
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	api.SetupRoutes(router, cfg.JWT.Secret, authService, studentService, routineService, historyService, profileService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
