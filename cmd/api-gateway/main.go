package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/skul-exams-api/api/swagger"
	"github.com/noah-isme/skul-exams-api/internal/handler"
	"github.com/noah-isme/skul-exams-api/internal/middleware"
	"github.com/noah-isme/skul-exams-api/internal/models"
	"github.com/noah-isme/skul-exams-api/internal/repository"
	"github.com/noah-isme/skul-exams-api/internal/service"
	"github.com/noah-isme/skul-exams-api/pkg/cache"
	"github.com/noah-isme/skul-exams-api/pkg/config"
	"github.com/noah-isme/skul-exams-api/pkg/database"
	"github.com/noah-isme/skul-exams-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/skul-exams-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/skul-exams-api/pkg/middleware/requestid"
)

// @title Skul Exams API
// @version 1.0.0
// @description Exam grading, term reports and cross-exam consolidation
// @BasePath /api/v1
// @schemes http

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
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, report caching disabled", "error", err)
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Reports.CacheTTL, logr, cfg.Reports.CacheEnabled && redisClient != nil)

	gradingRepo := repository.NewGradingSystemRepository(db)
	examRepo := repository.NewExamRepository(db)
	resultRepo := repository.NewExamResultRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	termReportRepo := repository.NewTermReportRepository(db)
	ruleRepo := repository.NewConsolidationRuleRepository(db)
	consolidatedRepo := repository.NewConsolidatedReportRepository(db)

	gradingSvc := service.NewGradingService(gradingRepo, nil, logr)
	resultSvc := service.NewResultService(resultRepo, examRepo, gradingRepo, nil, logr)
	examSvc := service.NewExamService(examRepo, logr)
	termReportSvc := service.NewTermReportService(termReportRepo, examRepo, resultRepo, studentRepo, gradingRepo, cacheSvc, metricsSvc, logr)
	consolidationSvc := service.NewConsolidationService(ruleRepo, consolidatedRepo, examRepo, resultRepo, studentRepo, gradingRepo, cacheSvc, metricsSvc, nil, logr)

	gradingHandler := handler.NewGradingHandler(gradingSvc)
	examHandler := handler.NewExamHandler(examSvc, termReportSvc)
	resultHandler := handler.NewExamResultHandler(resultSvc)
	termReportHandler := handler.NewTermReportHandler(termReportSvc)
	consolidatedHandler := handler.NewConsolidatedReportHandler(consolidationSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))

	staff := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleTeacher)
	admins := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)

	exams := api.Group("/exams")
	{
		exams.GET("", examHandler.List)
		exams.GET("/terms", examHandler.Terms)
		exams.GET("/stats", examHandler.Stats)
		exams.GET("/:id", examHandler.Get)
		exams.GET("/:id/subjects", examHandler.ListSubjects)
		exams.POST("/:id/publish", admins, examHandler.Publish)
		exams.POST("/:id/generate_term_report", admins, examHandler.GenerateTermReport)
	}

	subjects := api.Group("/exam-subjects")
	{
		subjects.GET("/:id/statistics", resultHandler.SubjectStatistics)
		subjects.POST("/:id/publish", admins, examHandler.PublishSubject)
	}

	results := api.Group("/exam-results")
	{
		results.GET("", resultHandler.List)
		results.GET("/:id", resultHandler.Get)
		results.POST("", staff, resultHandler.Create)
		results.POST("/bulk", staff, resultHandler.Bulk)
		results.PUT("/:id", staff, resultHandler.Update)
	}

	grading := api.Group("/grading-systems")
	{
		grading.GET("", gradingHandler.ListSystems)
		grading.POST("", admins, gradingHandler.CreateSystem)
		grading.POST("/:id/default", admins, gradingHandler.SetDefault)
		grading.GET("/:id/ranges", gradingHandler.ListRanges)
		grading.POST("/:id/ranges", admins, gradingHandler.CreateRange)
	}

	termReports := api.Group("/term-reports")
	{
		termReports.GET("", termReportHandler.List)
		termReports.POST("/:id/publish", admins, termReportHandler.Publish)
	}

	consolidated := api.Group("/consolidated-reports")
	{
		consolidated.GET("", consolidatedHandler.List)
		consolidated.POST("/generate", admins, consolidatedHandler.Generate)
		consolidated.POST("/:id/publish", admins, consolidatedHandler.Publish)
	}

	rules := api.Group("/consolidation-rules")
	{
		rules.GET("", consolidatedHandler.ListRules)
		rules.POST("", admins, consolidatedHandler.CreateRule)
		rules.PUT("/:id", admins, consolidatedHandler.UpdateRule)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
