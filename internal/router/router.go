package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/unidesk/registrar-api/internal/handler"
	"github.com/unidesk/registrar-api/internal/middleware"
	"github.com/unidesk/registrar-api/internal/service"
	"github.com/unidesk/registrar-api/pkg/config"
	"github.com/unidesk/registrar-api/pkg/logger"
	corsmiddleware "github.com/unidesk/registrar-api/pkg/middleware/cors"
	reqidmiddleware "github.com/unidesk/registrar-api/pkg/middleware/requestid"
)

// Services bundles everything the router needs to wire routes.
type Services struct {
	Auth          *service.AuthService
	Students      *service.StudentService
	Courses       *service.CourseService
	Registrations *service.RegistrationService
	Metrics       *service.MetricsService
}

// New builds the gin engine with all middleware and routes attached.
// Reads are open; every mutating route sits behind JWT auth.
func New(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, svcs Services) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(svcs.Metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if db != nil {
			if err := db.PingContext(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(svcs.Metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(svcs.Auth)
	studentHandler := handler.NewStudentHandler(svcs.Students, svcs.Registrations)
	courseHandler := handler.NewCourseHandler(svcs.Courses, svcs.Registrations)
	registrationHandler := handler.NewRegistrationHandler(svcs.Registrations)

	api := r.Group(cfg.APIPrefix)
	auth := middleware.JWT(svcs.Auth)

	api.POST("/auth/login", authHandler.Login)

	students := api.Group("/students")
	{
		students.GET("", studentHandler.List)
		students.GET("/:id", studentHandler.Get)
		students.GET("/:id/registrations", studentHandler.Registrations)
		students.GET("/:id/registrations/count", studentHandler.RegistrationCount)
		students.POST("", auth, studentHandler.Create)
		students.PUT("/:id", auth, studentHandler.Update)
		students.DELETE("/:id", auth, studentHandler.Delete)
	}

	courses := api.Group("/courses")
	{
		courses.GET("", courseHandler.List)
		courses.GET("/:id", courseHandler.Get)
		courses.GET("/:id/registrations", courseHandler.Registrations)
		courses.GET("/:id/registrations/count", courseHandler.EnrollmentCount)
		courses.POST("", auth, courseHandler.Create)
		courses.PUT("/:id", auth, courseHandler.Update)
		courses.DELETE("/:id", auth, courseHandler.Delete)
	}

	registrations := api.Group("/registrations")
	{
		registrations.GET("", registrationHandler.List)
		registrations.GET("/check", registrationHandler.Check)
		registrations.GET("/export", registrationHandler.Export)
		registrations.GET("/:id", registrationHandler.Get)
		registrations.POST("", auth, registrationHandler.Register)
		registrations.DELETE("", auth, registrationHandler.Drop)
		registrations.PUT("/grade", auth, registrationHandler.UpdateGrade)
		registrations.PUT("/status", auth, registrationHandler.UpdateStatus)
	}

	return r
}
