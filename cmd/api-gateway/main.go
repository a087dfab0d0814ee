package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/carebridge/carebridge-api/api/swagger"
	"github.com/carebridge/carebridge-api/internal/handler"
	"github.com/carebridge/carebridge-api/internal/repository"
	"github.com/carebridge/carebridge-api/internal/service"
	"github.com/carebridge/carebridge-api/pkg/cache"
	"github.com/carebridge/carebridge-api/pkg/config"
	"github.com/carebridge/carebridge-api/pkg/database"
	"github.com/carebridge/carebridge-api/pkg/logger"
	corsmiddleware "github.com/carebridge/carebridge-api/pkg/middleware/cors"
	reqidmiddleware "github.com/carebridge/carebridge-api/pkg/middleware/requestid"
	"github.com/carebridge/carebridge-api/pkg/storage"

	"github.com/go-playground/validator/v10"
)

// @title CareBridge API
// @version 1.0.0
// @description Care management backend: goals, activities, shifts, incidents.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	validate := validator.New()
	metricsService := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Goals.CacheTTL, logr, cacheRepo != nil)

	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	goalRepo := repository.NewGoalRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	logRepo := repository.NewActivityLogRepository(db)
	shiftRepo := repository.NewShiftRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	behaviorRepo := repository.NewBehaviorRepository(db)
	mediaRepo := repository.NewMediaRepository(db)
	eventRepo := repository.NewEventRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventService := service.NewEventService(eventRepo, &service.LogNotifier{Logger: logr}, service.EventQueueConfig{
		Workers:    cfg.Events.Workers,
		BufferSize: cfg.Events.BufferSize,
	}, logr)
	eventService.Start(ctx)
	defer eventService.Stop()

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "carebridge-api",
	})
	userService := service.NewUserService(userRepo, validate, logr)
	clientService := service.NewClientService(clientRepo, validate, logr)
	goalService := service.NewGoalService(goalRepo, eventService, cacheService, validate, logr, service.GoalConfig{
		DefaultContributionWeight: cfg.Goals.DefaultContributionWeight,
		CacheTTL:                  cfg.Goals.CacheTTL,
	})
	activityService := service.NewActivityService(activityRepo, logRepo, goalService, validate, logr)
	shiftService := service.NewShiftService(shiftRepo, userRepo, eventService, validate, logr, service.ShiftConfig{
		GracePeriod:   cfg.Shifts.GracePeriod,
		SweepInterval: cfg.Shifts.SweepInterval,
	})
	go shiftService.RunNoShowSweep(ctx)
	scheduleService := service.NewScheduleService(scheduleRepo, validate, logr)

	behaviorService := service.NewBehaviorService(behaviorRepo, logRepo, cacheService, eventService, validate, logr, service.RiskConfig{
		WindowDays:     cfg.Behavior.RiskWindowDays,
		CriticalHigh:   cfg.Behavior.CriticalHighCount,
		TotalHigh:      cfg.Behavior.TotalHighCount,
		CriticalMedium: cfg.Behavior.CriticalMediumCount,
		TotalMedium:    cfg.Behavior.TotalMediumCount,
	}, cfg.Analytics.CacheTTL)

	mediaStore, err := storage.NewLocalStorage(cfg.Media.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init media storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Media.SignedURLSecret, cfg.Media.SignedURLTTL)
	mediaService := service.NewMediaService(mediaRepo, mediaStore, signer, logr, service.MediaConfig{
		MaxFileSizeBytes: cfg.Media.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Media.AllowedMIMEs,
	})

	reportService := service.NewReportService(shiftRepo, behaviorRepo, validate, logr)
	analyticsService := service.NewAnalyticsService(goalRepo, metricsService, cacheService, cfg.Analytics.CacheTTL, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	routes := handler.Routes{
		Auth:      handler.NewAuthHandler(authService),
		Users:     handler.NewUserHandler(userService),
		Clients:   handler.NewClientHandler(clientService),
		Goals:     handler.NewGoalHandler(goalService),
		Activity:  handler.NewActivityHandler(activityService),
		Shifts:    handler.NewShiftHandler(shiftService),
		Schedules: handler.NewScheduleHandler(scheduleService),
		Behavior:  handler.NewBehaviorHandler(behaviorService),
		Media:     handler.NewMediaHandler(mediaService),
		Reports:   handler.NewReportHandler(reportService),
		Analytics: handler.NewAnalyticsHandler(analyticsService),
		Metrics:   handler.NewMetricsHandler(metricsService),

		AuthService:    authService,
		MetricsService: metricsService,
		UserRepo:       userRepo,
	}
	routes.Register(r)

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
