package main

import (
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"

	_ "github.com/unidesk/registrar-api/api/swagger"
	"github.com/unidesk/registrar-api/internal/repository"
	"github.com/unidesk/registrar-api/internal/router"
	"github.com/unidesk/registrar-api/internal/service"
	"github.com/unidesk/registrar-api/pkg/cache"
	"github.com/unidesk/registrar-api/pkg/config"
	"github.com/unidesk/registrar-api/pkg/database"
	"github.com/unidesk/registrar-api/pkg/logger"
)

// @title Registrar API
// @version 1.0.0
// @description Student, course and registration management
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
	defer db.Close()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	registrationRepo := repository.NewRegistrationRepository(db)

	var countCache *repository.CacheRepository
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		// Counts fall back to the database when redis is unreachable.
		logr.Sugar().Warnw("redis unavailable, count caching disabled", "error", err)
	} else {
		countCache = repository.NewCacheRepository(redisClient, logr)
	}

	var registrationSvc *service.RegistrationService
	if countCache != nil {
		registrationSvc = service.NewRegistrationService(registrationRepo, countCache, metricsSvc, validate, logr, cfg.Counts.CacheTTL)
	} else {
		registrationSvc = service.NewRegistrationService(registrationRepo, nil, metricsSvc, validate, logr, cfg.Counts.CacheTTL)
	}

	studentSvc := service.NewStudentService(repository.NewStudentRepository(db), registrationRepo, validate, logr)
	courseSvc := service.NewCourseService(repository.NewCourseRepository(db), registrationRepo, validate, logr)
	authSvc := service.NewAuthService(repository.NewUserRepository(db), validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	r := router.New(cfg, logr, db, router.Services{
		Auth:          authSvc,
		Students:      studentSvc,
		Courses:       courseSvc,
		Registrations: registrationSvc,
		Metrics:       metricsSvc,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
