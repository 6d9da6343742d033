package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"anoa.com/foodrescue/internal/config"
	"anoa.com/foodrescue/internal/entity"
	"anoa.com/foodrescue/internal/metrics"
	"anoa.com/foodrescue/internal/middleware"
	"anoa.com/foodrescue/internal/scheduler"
	"anoa.com/foodrescue/pkg/clock"
	"anoa.com/foodrescue/pkg/database"
	"anoa.com/foodrescue/pkg/ratelimit"
	"anoa.com/foodrescue/pkg/retry"

	achievementRepo "anoa.com/foodrescue/internal/modules/achievement/repository"
	achievementService "anoa.com/foodrescue/internal/modules/achievement/service"

	adminHttp "anoa.com/foodrescue/internal/modules/admin/delivery/http"
	adminService "anoa.com/foodrescue/internal/modules/admin/service"

	donationHttp "anoa.com/foodrescue/internal/modules/donation/delivery/http"
	donationRepo "anoa.com/foodrescue/internal/modules/donation/repository"
	donationService "anoa.com/foodrescue/internal/modules/donation/service"

	expiryService "anoa.com/foodrescue/internal/modules/expiry/service"

	leaderboardHttp "anoa.com/foodrescue/internal/modules/leaderboard/delivery/http"
	leaderboardRepo "anoa.com/foodrescue/internal/modules/leaderboard/repository"
	leaderboardService "anoa.com/foodrescue/internal/modules/leaderboard/service"

	matchingHttp "anoa.com/foodrescue/internal/modules/matching/delivery/http"
	matchingService "anoa.com/foodrescue/internal/modules/matching/service"

	notiHttp "anoa.com/foodrescue/internal/modules/notification/delivery/http"
	notifRepo "anoa.com/foodrescue/internal/modules/notification/repository"
	notifService "anoa.com/foodrescue/internal/modules/notification/service"

	pickupRepo "anoa.com/foodrescue/internal/modules/pickup/repository"

	pointsRepo "anoa.com/foodrescue/internal/modules/points/repository"
	pointsService "anoa.com/foodrescue/internal/modules/points/service"

	profileHttp "anoa.com/foodrescue/internal/modules/profile/delivery/http"
	profileService "anoa.com/foodrescue/internal/modules/profile/service"

	userRepo "anoa.com/foodrescue/internal/modules/user/repository"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services is everything the HTTP layer talks to.
type Services struct {
	Donations     donationService.DonationService
	Matching      matchingService.MatchingService
	Leaderboard   leaderboardService.LeaderboardService
	Points        pointsService.PointsService
	Profile       profileService.ProfileService
	Notifications notifService.NotificationService
	Admin         adminService.AdminService
	Jobs          adminHttp.JobRunner
}

type Server struct {
	engine    *gin.Engine
	http      *http.Server
	scheduler *scheduler.Scheduler
	notifier  notifService.NotificationService
	log       *zap.Logger
}

func NewServer(cfg *config.Config, gam *config.Gamification, db *gorm.DB, redisClient *redis.Client, log *zap.Logger) (*Server, error) {
	clk := clock.System()
	tx := database.NewTransactor(db, retry.DefaultConfig())

	userRepo := userRepo.NewUserRepository(db)
	ledgerRepo := pointsRepo.NewLedgerRepository(db, tx)
	leaderboardRepo := leaderboardRepo.NewLeaderboardRepository(db)
	achievementRepo := achievementRepo.NewAchievementRepository(db)
	donationRepo := donationRepo.NewDonationRepository(db)
	pickupRepo := pickupRepo.NewPickupRepository(db)

	// Notification Module
	var mailer notifService.Mailer
	if cfg.SMTPEnabled() {
		mailer = notifService.NewSMTPMailer(notifService.MailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			Sender:   cfg.SMTPSender,
		})
	}
	emailOf := func(ctx context.Context, id uuid.UUID) (string, error) {
		user, err := userRepo.FindByID(ctx, id)
		if err != nil {
			return "", err
		}
		return user.Email, nil
	}
	notificationRepository := notifRepo.NewNotificationRepository(db)
	notificationSvc := notifService.NewNotificationService(notificationRepository, redisClient, mailer, emailOf, log)

	leaderboardSvc := leaderboardService.NewLeaderboardService(leaderboardRepo, userRepo, ledgerRepo, achievementRepo, gam, redisClient, tx, clk, log)
	pointsSvc := pointsService.NewPointsService(ledgerRepo, userRepo, leaderboardSvc, notificationSvc, tx, gam, clk, log)
	achievementSvc := achievementService.NewAchievementService(achievementRepo, ledgerRepo, userRepo, pointsSvc, leaderboardSvc, notificationSvc, tx, gam, clk, log)
	donationSvc := donationService.NewDonationService(donationRepo, pickupRepo, userRepo, pointsSvc, achievementSvc, notificationSvc, tx, clk, log)

	jobs := scheduler.New(cfg.ExpirySweepTimeout, log)
	sweeper := expiryService.NewSweeper(donationRepo, donationSvc, clk, cfg.ExpirySweepBatch, cfg.ExpirySweepSchedule, log)
	if err := jobs.Register(sweeper); err != nil {
		return nil, err
	}

	services := Services{
		Donations:     donationSvc,
		Matching:      matchingService.NewMatchingService(userRepo, donationRepo, cfg.MatchRadiusKm, log),
		Leaderboard:   leaderboardSvc,
		Points:        pointsSvc,
		Profile:       profileService.NewProfileService(userRepo, leaderboardRepo, pointsSvc, achievementSvc, gam),
		Notifications: notificationSvc,
		Admin:         adminService.NewAdminService(userRepo, log),
		Jobs:          jobs,
	}

	limiter := ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	router := NewRouter(cfg, services, limiter, log)

	return &Server{
		engine: router,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		scheduler: jobs,
		notifier:  notificationSvc,
		log:       log,
	}, nil
}

// NewRouter registers every route on a fresh engine.
func NewRouter(cfg *config.Config, svc Services, limiter *ratelimit.Limiter, log *zap.Logger) *gin.Engine {
	donationHandler := donationHttp.NewDonationHandler(svc.Donations, log)
	matchingHandler := matchingHttp.NewMatchingHandler(svc.Matching, log)
	leaderboardHandler := leaderboardHttp.NewLeaderboardHandler(svc.Leaderboard, log)
	profileHandler := profileHttp.NewProfileHandler(svc.Profile, log)
	notificationHandler := notiHttp.NewNotificationHandler(svc.Notifications, log)
	adminHandler := adminHttp.NewAdminHandler(svc.Admin, svc.Points, svc.Jobs, log)

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/metrics", "/healthz"},
	}))
	router.Use(metrics.Middleware())

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)

	api := router.Group("/api")

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	if limiter != nil {
		protected.Use(limiter.Middleware())
	}
	{
		// Admin routes
		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.POST("/users", adminHandler.CreateUser)
			adminGroup.GET("/users", adminHandler.GetUsers)
			adminGroup.POST("/points/adjust", adminHandler.AdjustPoints)
			adminGroup.POST("/leaderboard/:role/rebuild", leaderboardHandler.Rebuild)
			adminGroup.POST("/jobs/:name/run", adminHandler.RunJob)
		}

		// Donation routes
		donations := protected.Group("/donations")
		{
			donations.POST("", authMiddleware.RequireRole(entity.RoleDonor), donationHandler.CreateDonation)
			donations.GET("/me", donationHandler.GetMyDonations)
			donations.GET("/:id", donationHandler.GetDonation)
			donations.DELETE("/:id", donationHandler.DeleteDonation)
			donations.POST("/:id/accept", authMiddleware.RequireRole(entity.RoleNGO), donationHandler.Accept)
			donations.POST("/:id/assign", authMiddleware.RequireRole(entity.RoleNGO, entity.RoleAdmin), donationHandler.AssignVolunteer)
			donations.POST("/:id/start", authMiddleware.RequireRole(entity.RoleVolunteer), donationHandler.StartPickup)
			donations.POST("/:id/complete", authMiddleware.RequireRole(entity.RoleVolunteer, entity.RoleNGO), donationHandler.Complete)
			donations.POST("/:id/cancel", donationHandler.Cancel)
		}
		protected.POST("/pickups/:donation_id/rating", authMiddleware.RequireRole(entity.RoleDonor, entity.RoleNGO), donationHandler.RatePickup)

		// Matching routes
		match := protected.Group("/match")
		{
			match.GET("/ngos", matchingHandler.NearbyNGOs)
			match.GET("/volunteers", matchingHandler.NearbyVolunteers)
			match.GET("/donations", matchingHandler.NearbyDonations)
		}

		// Gamification routes
		protected.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
		protected.GET("/me/points", profileHandler.MyPoints)
		protected.GET("/me/achievements", profileHandler.MyAchievements)
		protected.GET("/me/badges", profileHandler.MyBadges)
		protected.GET("/users/:id/profile", profileHandler.GetProfile)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.GetUnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
	}

	return router
}

// Start serves HTTP and runs the scheduler. It blocks until the listener
// stops; http.ErrServerClosed after Shutdown is not an error.
func (s *Server) Start() error {
	s.scheduler.Start()
	s.log.Info("http server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then waits for a running sweep and
// for emails already queued.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.scheduler.Stop(ctx)
	if drainErr := s.notifier.Drain(ctx); drainErr != nil {
		s.log.Warn("pending emails abandoned", zap.Error(drainErr))
	}
	return err
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
