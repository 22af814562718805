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

	_ "github.com/amal-center/rehab-center-api/api/swagger"
	"github.com/amal-center/rehab-center-api/internal/handler"
	"github.com/amal-center/rehab-center-api/internal/middleware"
	"github.com/amal-center/rehab-center-api/internal/models"
	"github.com/amal-center/rehab-center-api/internal/repository"
	"github.com/amal-center/rehab-center-api/internal/service"
	"github.com/amal-center/rehab-center-api/pkg/cache"
	"github.com/amal-center/rehab-center-api/pkg/config"
	"github.com/amal-center/rehab-center-api/pkg/database"
	"github.com/amal-center/rehab-center-api/pkg/logger"
	corsmiddleware "github.com/amal-center/rehab-center-api/pkg/middleware/cors"
	reqidmiddleware "github.com/amal-center/rehab-center-api/pkg/middleware/requestid"
	"github.com/amal-center/rehab-center-api/pkg/storage"
)

// @title Amal Rehab Center API
// @version 1.0.0
// @description Approval workflows, clinical intake and rehab planning
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, cache disabled", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, true)
			defer cacheRepo.Close()
		}
	}

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	beneficiaryRepo := repository.NewBeneficiaryRepository(db)
	medicalRepo := repository.NewMedicalRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	planRepo := repository.NewPlanRepository(db)
	reportRepo := repository.NewReportRepository(db)

	authority := service.NewAuthority(cfg.Workflow)
	validate := validator.New()

	authSvc := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "rehab-center-api",
	})
	riskSvc := service.NewClinicalRiskService(medicalRepo, cacheSvc, logr)
	admissionSvc := service.NewAdmissionService(medicalRepo, beneficiaryRepo, authority, auditRepo, riskSvc, logr)
	leaveSvc := service.NewLeaveService(leaveRepo, beneficiaryRepo, riskSvc, authority, auditRepo, metricsSvc, logr)
	planSvc := service.NewPlanService(planRepo, beneficiaryRepo, authority, auditRepo, cfg.Workflow, logr)
	beneficiarySvc := service.NewBeneficiaryService(beneficiaryRepo, logr)

	var reportSvc *service.ReportService
	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		reportSvc = service.NewReportService(reportRepo, leaveRepo, planRepo, store, signer, metricsSvc, cfg.Reports, logr)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	beneficiaryHandler := handler.NewBeneficiaryHandler(beneficiarySvc)
	admissionHandler := handler.NewAdmissionHandler(admissionSvc)
	leaveHandler := handler.NewLeaveHandler(leaveSvc)
	planHandler := handler.NewPlanHandler(planSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

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

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.GET("/beneficiaries", beneficiaryHandler.List)
	authed.GET("/beneficiaries/:id", beneficiaryHandler.Get)
	authed.POST("/beneficiaries",
		middleware.RequireRoles(models.RoleSocialWorker, models.RoleAdmin),
		middleware.Audit(auditRepo, "CREATE", "beneficiary"),
		beneficiaryHandler.Create)

	clinical := authed.Group("")
	clinical.Use(middleware.RequireRoles(models.RoleDoctor, models.RoleNurse))
	clinical.POST("/admissions/validate", admissionHandler.Validate)
	clinical.POST("/admissions", admissionHandler.Admit)

	authed.GET("/leaves", leaveHandler.List)
	authed.GET("/leaves/:id", leaveHandler.Get)
	authed.POST("/leaves",
		middleware.RequireRoles(models.RoleSocialWorker),
		leaveHandler.Create)
	// Gate legality per workflow step is enforced in the service layer.
	authed.POST("/leaves/:id/approve", leaveHandler.Approve)
	authed.POST("/leaves/:id/reject", leaveHandler.Reject)

	authed.GET("/plans", planHandler.List)
	authed.GET("/plans/:id", planHandler.Get)
	authed.POST("/plans",
		middleware.RequireRoles(models.RoleSocialWorker, models.RoleDoctor),
		planHandler.Create)
	authed.POST("/plans/:id/goals", planHandler.AddGoal)
	authed.PUT("/plans/:id/goals/:goalId", planHandler.UpdateGoal)
	authed.DELETE("/plans/:id/goals/:goalId", planHandler.RemoveGoal)
	authed.POST("/plans/:id/approve", planHandler.Approve)
	authed.PUT("/plans/:id/status", planHandler.UpdateStatus)

	auditHandler := handler.NewAuditHandler(auditRepo)
	// Who may stand in for the director is a policy decision, so the
	// director-only routes take their role list from the authority.
	directorRoles := authority.GateRoles(models.RoleDirector)
	authed.GET("/audit/:resource/:id",
		middleware.RequireRoles(directorRoles...),
		auditHandler.ListByResource)

	if reportSvc != nil {
		reportHandler := handler.NewReportHandler(reportSvc)
		authed.POST("/reports",
			middleware.RequireRoles(directorRoles...),
			reportHandler.Create)
		authed.GET("/reports/:id", reportHandler.Status)
		// Download is authenticated by the signed token itself.
		api.GET("/reports/download/:token", reportHandler.Download)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if reportSvc != nil {
		reportSvc.Start(rootCtx)
		defer reportSvc.Stop()

		go func() {
			ticker := time.NewTicker(cfg.Reports.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-rootCtx.Done():
					return
				case <-ticker.C:
					reportSvc.CleanupExpired()
				}
			}
		}()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
