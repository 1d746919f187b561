package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/veertikothari/campustrack/internal/config"
	"github.com/veertikothari/campustrack/internal/entity"
	"github.com/veertikothari/campustrack/internal/middleware"
	"github.com/veertikothari/campustrack/internal/session"
	"github.com/veertikothari/campustrack/pkg/cooldown"
	"github.com/veertikothari/campustrack/pkg/storage"

	adminHttp "github.com/veertikothari/campustrack/internal/modules/admin/delivery/http"
	adminService "github.com/veertikothari/campustrack/internal/modules/admin/service"

	attendanceHttp "github.com/veertikothari/campustrack/internal/modules/attendance/delivery/http"
	attendanceRepo "github.com/veertikothari/campustrack/internal/modules/attendance/repository"
	attendanceService "github.com/veertikothari/campustrack/internal/modules/attendance/service"

	cepHttp "github.com/veertikothari/campustrack/internal/modules/cep/delivery/http"
	cepRepo "github.com/veertikothari/campustrack/internal/modules/cep/repository"
	cepService "github.com/veertikothari/campustrack/internal/modules/cep/service"

	enrollHttp "github.com/veertikothari/campustrack/internal/modules/enrollment/delivery/http"
	enrollRepo "github.com/veertikothari/campustrack/internal/modules/enrollment/repository"
	enrollService "github.com/veertikothari/campustrack/internal/modules/enrollment/service"

	eventHttp "github.com/veertikothari/campustrack/internal/modules/event/delivery/http"
	eventRepo "github.com/veertikothari/campustrack/internal/modules/event/repository"
	eventService "github.com/veertikothari/campustrack/internal/modules/event/service"

	feedbackHttp "github.com/veertikothari/campustrack/internal/modules/feedback/delivery/http"
	feedbackRepo "github.com/veertikothari/campustrack/internal/modules/feedback/repository"
	feedbackService "github.com/veertikothari/campustrack/internal/modules/feedback/service"

	notiHttp "github.com/veertikothari/campustrack/internal/modules/notification/delivery/http"
	notifService "github.com/veertikothari/campustrack/internal/modules/notification/service"

	reportHttp "github.com/veertikothari/campustrack/internal/modules/report/delivery/http"
	reportRepo "github.com/veertikothari/campustrack/internal/modules/report/repository"
	reportService "github.com/veertikothari/campustrack/internal/modules/report/service"

	userHttp "github.com/veertikothari/campustrack/internal/modules/user/delivery/http"
	userRepo "github.com/veertikothari/campustrack/internal/modules/user/repository"
	userService "github.com/veertikothari/campustrack/internal/modules/user/service"
)

// Dependencies are the long-lived clients built in main. Redis, Index,
// Proofs and Jobs may be nil; the affected features degrade instead of failing.
type Dependencies struct {
	DB            *gorm.DB
	Redis         *redis.Client
	Sessions      *session.Manager
	Notifications notifService.NotificationService
	Notifier      notifService.Notifier
	Index         eventService.EventIndex
	Proofs        storage.ProofStorage
	Guard         cooldown.Guard
	Drafts        attendanceService.DraftStore
	Jobs          adminHttp.JobRunner
}

type Server struct {
	engine *gin.Engine
}

func NewServer(cfg *config.Config, deps Dependencies) *Server {
	userRepo := userRepo.NewUserRepository(deps.DB)

	authSvc := userService.NewAuthService(userRepo, deps.Sessions)
	authHandler := userHttp.NewAuthHandler(authSvc)

	adminSvc := adminService.NewAdminService(userRepo)
	adminHandler := adminHttp.NewAdminHandler(adminSvc)

	notificationHandler := notiHttp.NewNotificationHandler(deps.Notifications, cfg.Origins())

	eventRepository := eventRepo.NewEventRepository(deps.DB)
	eventSvc := eventService.NewEventService(eventRepository, userRepo, deps.Notifier, deps.Index)
	eventHandler := eventHttp.NewEventHandler(eventSvc)

	enrollmentRepository := enrollRepo.NewEnrollmentRepository(deps.DB)
	enrollmentSvc := enrollService.NewEnrollmentService(enrollmentRepository, eventSvc, deps.Notifier)
	enrollmentHandler := enrollHttp.NewEnrollmentHandler(enrollmentSvc)

	attendanceRepository := attendanceRepo.NewAttendanceRepository(deps.DB)
	attendanceSvc := attendanceService.NewAttendanceService(attendanceRepository, enrollmentRepository, eventSvc, deps.Drafts, deps.Notifier)
	attendanceHandler := attendanceHttp.NewAttendanceHandler(attendanceSvc)

	feedbackRepository := feedbackRepo.NewFeedbackRepository(deps.DB)
	feedbackSvc := feedbackService.NewFeedbackService(feedbackRepository, enrollmentRepository, userRepo, eventSvc)
	feedbackHandler := feedbackHttp.NewFeedbackHandler(feedbackSvc)

	cepRepository := cepRepo.NewCEPRepository(deps.DB)
	cepSvc := cepService.NewCEPService(cepRepository, userRepo, deps.Proofs, deps.Guard, cfg.CEPSubmitCooldown)
	cepHandler := cepHttp.NewCEPHandler(cepSvc)

	reportRepository := reportRepo.NewReportRepository(deps.DB)
	reportSvc := reportService.NewReportService(reportRepository, enrollmentRepository, attendanceRepository, eventSvc, deps.Notifier)
	reportHandler := reportHttp.NewReportHandler(reportSvc)

	router := gin.New()

	setupCORS(router, cfg.Origins())

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.NewAuthMiddleware(deps.Sessions)
	faculty := authMiddleware.RequireRole(entity.RoleFaculty, entity.RoleAdmin)

	api := router.Group("/api")
	api.Use(middleware.RateLimiter(deps.Redis, cfg.RateLimitPerMinute))

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
	}

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.GET("/auth/me", authHandler.Me)

		// Admin routes
		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.POST("/users", adminHandler.CreateUser)
			adminGroup.GET("/users", adminHandler.GetAllUsers)
			adminGroup.DELETE("/users/:id", adminHandler.DeleteUser)
			if deps.Jobs != nil {
				adminGroup.POST("/jobs/:name/run", adminHttp.NewJobHandler(deps.Jobs).RunJob)
			}
		}

		// Event routes
		protected.GET("/events", eventHandler.ListEvents)
		protected.GET("/events/search", eventHandler.SearchEvents)
		protected.POST("/events", faculty, eventHandler.CreateEvent)
		protected.GET("/events/:event_id", eventHandler.GetEvent)

		// Enrollment routes
		protected.POST("/events/:event_id/enroll", enrollmentHandler.Enroll)
		protected.DELETE("/events/:event_id/enroll", enrollmentHandler.Unenroll)
		protected.GET("/enrollments/me", enrollmentHandler.MyEnrollments)
		protected.GET("/events/:event_id/enrollments", faculty, enrollmentHandler.EventEnrollments)

		// Attendance routes
		attendance := protected.Group("/events/:event_id/attendance")
		attendance.Use(faculty)
		{
			attendance.GET("", attendanceHandler.GetSheet)
			attendance.PUT("/:user_id", attendanceHandler.Stage)
			attendance.DELETE("/draft", attendanceHandler.Reset)
			attendance.POST("/commit", attendanceHandler.Commit)
		}

		// Feedback routes
		protected.POST("/events/:event_id/feedback", feedbackHandler.Submit)
		protected.GET("/events/:event_id/feedback/me", feedbackHandler.MyStatus)
		protected.GET("/events/:event_id/feedback", faculty, feedbackHandler.ListForEvent)

		// Report routes
		protected.POST("/events/:event_id/report", faculty, reportHandler.Generate)
		protected.GET("/events/:event_id/report", faculty, reportHandler.Get)
		protected.GET("/events/:event_id/report/export", faculty, reportHandler.Export)

		// CEP routes
		cep := protected.Group("/cep")
		{
			cep.PUT("/requirements", faculty, cepHandler.SetRequirement)
			cep.GET("/progress", cepHandler.MyProgress)
			cep.GET("/students/:user_id/progress", faculty, cepHandler.StudentProgress)
			cep.POST("/submissions", cepHandler.Submit)
			cep.GET("/submissions/me", cepHandler.MySubmissions)
			cep.GET("/submissions/pending", faculty, cepHandler.PendingSubmissions)
			cep.PUT("/submissions/:id", cepHandler.Edit)
			cep.PATCH("/submissions/:id/review", faculty, cepHandler.Review)
		}

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)
		protected.POST("/notifications/devices", notificationHandler.RegisterDevice)
		protected.DELETE("/notifications/devices", notificationHandler.UnregisterDevice)
	}

	return &Server{engine: router}
}

// Handler exposes the router so callers can wrap it in their own http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, origins []string) {
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
