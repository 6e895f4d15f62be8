package api

import (
	"net/http"

	"fitlink/coach-api/internal/domain"
	"fitlink/coach-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	studentService service.StudentService,
	routineService service.RoutineService,
	historyService service.HistoryService,
	profileService service.ProfileService,
) {
	authHandler := NewAuthHandler(authService)
	studentHandler := NewStudentHandler(studentService)
	routineHandler := NewRoutineHandler(routineService, studentService)
	historyHandler := NewHistoryHandler(historyService, studentService)
	profileHandler := NewProfileHandler(authService, profileService)

	router.Use(MetricsMiddleware())
	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/verify", authHandler.VerifyEmail)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", authHandler.Me)
		protected.POST("/me/avatar", profileHandler.UploadAvatar)

		// --- Trainer Routes ---
		// Require authentication AND the trainer role.
		trainerGroup := protected.Group("/trainer")
		trainerGroup.Use(RoleMiddleware(domain.RoleTrainer))
		{
			// Student relationships
			trainerGroup.GET("/students", studentHandler.ListStudents)
			trainerGroup.POST("/students", studentHandler.InviteStudent)
			trainerGroup.POST("/links/:linkId/respond", studentHandler.RespondToInvite)
			trainerGroup.GET("/students/:studentId", studentHandler.GetStudent)

			// Routine assignment and management
			trainerGroup.POST("/students/:studentId/routines", routineHandler.AssignRoutine)
			trainerGroup.GET("/students/:studentId/routines", routineHandler.ListStudentRoutines)
			trainerGroup.GET("/routines/:routineId", routineHandler.GetRoutine)
			trainerGroup.PUT("/routines/:routineId", routineHandler.UpdateRoutine)
			trainerGroup.DELETE("/routines/:routineId", routineHandler.DeleteRoutine)
			trainerGroup.GET("/exercises/options", routineHandler.ListExerciseOptions)

			// Workout history
			trainerGroup.GET("/students/:studentId/history", historyHandler.WeekHistory)
			trainerGroup.GET("/students/:studentId/sessions/:sessionId", historyHandler.SessionDetail)

			// Trainer profile
			trainerGroup.GET("/profile", profileHandler.GetProfile)
			trainerGroup.PUT("/profile", profileHandler.UpdateProfile)
			trainerGroup.POST("/profile/certificate", profileHandler.UploadCertificate)
			trainerGroup.GET("/profile/certificate", profileHandler.DownloadCertificate)
		}
	}
}
