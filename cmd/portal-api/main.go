package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/student-portal-api/api/swagger"
	"github.com/noah-isme/student-portal-api/internal/handler"
	internalmiddleware "github.com/noah-isme/student-portal-api/internal/middleware"
	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/internal/repository"
	"github.com/noah-isme/student-portal-api/internal/service"
	"github.com/noah-isme/student-portal-api/pkg/cache"
	"github.com/noah-isme/student-portal-api/pkg/config"
	"github.com/noah-isme/student-portal-api/pkg/database"
	"github.com/noah-isme/student-portal-api/pkg/export"
	"github.com/noah-isme/student-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/student-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/student-portal-api/pkg/middleware/requestid"
)

// @title Student Portal API
// @version 1.0.0
// @description Course enrollment ledger and timetable service for the student portal.
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
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		redisClient = nil
	}

	courseRepo := repository.NewCourseRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	userRepo := repository.NewUserRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	var sessions *service.LedgerSessions
	metricsSvc := service.NewMetricsService(func() int { return sessions.Active() })

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled && redisClient != nil)
	catalogSvc := service.NewCatalogService(courseRepo, cacheSvc, cfg.Catalog.CacheTTL, logr)
	sessions = service.NewLedgerSessions(catalogSvc, profileRepo, cfg.Enrollment.SessionIdleTimeout, logr)

	historySvc := service.NewHistoryService(historyRepo, service.HistoryConfig{
		Semester:   cfg.Enrollment.Semester,
		Workers:    cfg.Enrollment.HistoryWorkers,
		MaxRetries: cfg.Enrollment.HistoryRetries,
		RetryDelay: cfg.Enrollment.HistoryRetryDelay,
	}, logr)
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	historySvc.Start(workerCtx)
	go sessions.Run(workerCtx, time.Minute)

	revocationCache := service.NewCacheService(cacheRepo, metricsSvc, cfg.JWT.Expiration, logr, redisClient != nil)
	denyList := service.NewTokenDenyList(revocationCache, logr)

	enrollmentSvc := service.NewEnrollmentService(sessions, historySvc, metricsSvc, logr)
	authSvc := service.NewAuthService(userRepo, sessions, denyList, validator.New(), logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	timetableSvc := service.NewTimetableService(sessions, export.NewPDFExporter(), nil, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	rosterExportSvc := service.NewRosterExportService(catalogSvc, export.NewCSVExporter(), logr)
	courseHandler := handler.NewCourseHandler(catalogSvc, rosterExportSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, historySvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(cacheRepo.Ping)
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, internalmiddleware.LogFields))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.DocsEnabled {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	authn := internalmiddleware.JWT(authSvc)
	studentOnly := internalmiddleware.RequireRoles(models.RoleStudent)

	auth := api.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authn, authHandler.Logout)
	auth.GET("/me", authn, authHandler.Me)

	courses := api.Group("/courses", authn)
	courses.GET("", courseHandler.List)
	courses.GET("/:id", courseHandler.Get)
	courses.GET("/:id/students", internalmiddleware.RequireRoles(models.RoleAdmin), courseHandler.Students)
	courses.GET("/:id/students/csv", internalmiddleware.RequireRoles(models.RoleAdmin), courseHandler.StudentsCSV)

	enrollment := api.Group("/enrollment", authn, studentOnly)
	enrollment.GET("", enrollmentHandler.State)
	enrollment.GET("/available", enrollmentHandler.Available)
	enrollment.POST("/selection/:courseId", enrollmentHandler.Toggle)
	enrollment.POST("/commit", enrollmentHandler.Commit)
	enrollment.DELETE("/courses/:courseId", enrollmentHandler.Withdraw)
	enrollment.POST("/reload", enrollmentHandler.Reload)
	enrollment.GET("/history", enrollmentHandler.History)

	timetable := api.Group("/timetable", authn, studentOnly)
	timetable.GET("", timetableHandler.Get)
	timetable.GET("/pdf", timetableHandler.PDF)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	stopWorkers()
	historySvc.Stop()
}
