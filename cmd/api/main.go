package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/elimuhub/elimu-api/api/swagger"
	"github.com/elimuhub/elimu-api/internal/handler"
	"github.com/elimuhub/elimu-api/internal/middleware"
	"github.com/elimuhub/elimu-api/internal/models"
	"github.com/elimuhub/elimu-api/internal/repository"
	"github.com/elimuhub/elimu-api/internal/service"
	"github.com/elimuhub/elimu-api/pkg/cache"
	"github.com/elimuhub/elimu-api/pkg/config"
	"github.com/elimuhub/elimu-api/pkg/database"
	"github.com/elimuhub/elimu-api/pkg/export"
	"github.com/elimuhub/elimu-api/pkg/jobs"
	"github.com/elimuhub/elimu-api/pkg/logger"
	corsmiddleware "github.com/elimuhub/elimu-api/pkg/middleware/cors"
	reqidmiddleware "github.com/elimuhub/elimu-api/pkg/middleware/requestid"
	"github.com/elimuhub/elimu-api/pkg/storage"
)

// @title Elimu API
// @version 1.0.0
// @description Exam results computation and analytics engine for school administration
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, analytics cache disabled", "error", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	termRepo := repository.NewTermRepository(db)
	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	examRepo := repository.NewExamRepository(db)
	gradingRepo := repository.NewGradingRepository(db)
	resultRepo := repository.NewResultRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, cfg.Analytics.CacheEnabled && redisClient != nil)
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	termSvc := service.NewTermService(termRepo, nil, logr)
	classSvc := service.NewClassService(classRepo, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, gradingRepo, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, classRepo, nil, logr)
	gradingSvc := service.NewGradingService(gradingRepo, nil, logr)
	examSvc := service.NewExamService(examRepo, termRepo, cacheSvc, nil, logr)
	resultSvc := service.NewResultService(resultRepo, examRepo, subjectRepo, studentRepo, gradingSvc, cacheSvc, metricsSvc, nil, logr)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, classRepo, examRepo, gradingSvc, cacheSvc, metricsSvc, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	termHandler := handler.NewTermHandler(termSvc)
	classHandler := handler.NewClassHandler(classSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	gradingHandler := handler.NewGradingHandler(gradingSvc)
	examHandler := handler.NewExamHandler(examSvc)
	resultHandler := handler.NewResultHandler(resultSvc)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group(cfg.APIPrefix)

	v1.POST("/auth/login", authHandler.Login)

	protected := v1.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		protected.GET("/auth/me", authHandler.Me)

		protected.GET("/terms", termHandler.List)
		protected.GET("/terms/:id", termHandler.Get)
		protected.GET("/classes", classHandler.List)
		protected.GET("/classes/:id", classHandler.Get)
		protected.GET("/classes/:id/streams", classHandler.ClassStreams)
		protected.GET("/streams", classHandler.Streams)
		protected.GET("/subjects", subjectHandler.List)
		protected.GET("/subjects/:id", subjectHandler.Get)
		protected.GET("/exams", examHandler.List)
		protected.GET("/exams/:id", examHandler.Get)
		protected.GET("/results", resultHandler.List)
		protected.GET("/analytics/exams", analyticsHandler.ExamAnalysis)

		staff := protected.Group("")
		staff.Use(middleware.RequireStaff())
		{
			staff.GET("/students", studentHandler.List)
			staff.GET("/students/:id", studentHandler.Get)
			staff.GET("/grading-systems", gradingHandler.ListSystems)
			staff.GET("/grading-systems/:id", gradingHandler.GetSystem)
			staff.POST("/results", resultHandler.SaveBatch)
		}

		admin := protected.Group("")
		admin.Use(middleware.RequireRoles(models.RoleAdmin))
		{
			admin.POST("/terms", termHandler.Create)
			admin.POST("/subjects", subjectHandler.Create)
			admin.PUT("/subjects/:id", subjectHandler.Update)
			admin.POST("/students", studentHandler.Create)
			admin.PUT("/students/:id", studentHandler.Update)
			admin.POST("/grading-systems", gradingHandler.CreateSystem)
			admin.PUT("/grading-systems/:id", gradingHandler.UpdateSystem)
			admin.POST("/grading-systems/:id/default", gradingHandler.SetDefault)
			admin.PUT("/grading-systems/:id/scales", gradingHandler.ReplaceScales)
			admin.POST("/exams", examHandler.Create)
			admin.PUT("/exams/:id", examHandler.Update)
			admin.POST("/exams/:id/publish", examHandler.Publish)
			admin.POST("/exams/:id/unpublish", examHandler.Unpublish)
			admin.DELETE("/exams/:id", examHandler.Delete)
			admin.DELETE("/results/:id", resultHandler.Delete)
			admin.GET("/analytics/system", analyticsHandler.System)
		}
	}

	var reportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc := service.NewExportService(analyticsSvc, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr, export.NewCSVExporter(), export.NewPDFExporter())

		worker := service.NewReportWorker(reportRepo, exportSvc, cfg.Exports.WorkerRetries, logr)
		reportQueue = jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		reportQueue.Start(ctx)

		reportSvc := service.NewReportService(reportRepo, reportQueue, exportSvc, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
			MaxRetries:      cfg.Exports.WorkerRetries,
		})
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)

		reportHandler := handler.NewReportHandler(reportSvc)
		v1.GET("/exports/:token", reportHandler.Download)
		reports := protected.Group("")
		reports.Use(middleware.RequireStaff())
		{
			reports.POST("/reports", reportHandler.Create)
			reports.GET("/reports/:id", reportHandler.Status)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("forced shutdown", "error", err)
	}
	if reportQueue != nil {
		reportQueue.Stop()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
