package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/etbur/eschool-portal/api/swagger"
	"github.com/etbur/eschool-portal/internal/handler"
	"github.com/etbur/eschool-portal/internal/metrics"
	"github.com/etbur/eschool-portal/internal/middleware"
	"github.com/etbur/eschool-portal/internal/teacher"
	"github.com/etbur/eschool-portal/pkg/logger"
	corsmiddleware "github.com/etbur/eschool-portal/pkg/middleware/cors"
	reqidmiddleware "github.com/etbur/eschool-portal/pkg/middleware/requestid"
)

// Dependencies groups what the gateway routes need.
type Dependencies struct {
	Runtime         *teacher.Runtime
	Credentials     middleware.CredentialSource
	Exports         *handler.ExportHandler
	Metrics         *metrics.Service
	ReadinessChecks map[string]handler.ReadinessCheck
	Logger          *zap.Logger
	AllowedOrigins  []string
	// Docs mounts the Swagger UI under /docs.
	Docs bool
}

// New builds the gin engine serving the teacher portal.
func New(deps Dependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(deps.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics, "/metrics", "/docs/*any"))

	metricsHandler := handler.NewMetricsHandler(deps.Metrics)
	for name, check := range deps.ReadinessChecks {
		metricsHandler.WithCheck(name, check)
	}
	sessionHandler := handler.NewSessionHandler(deps.Runtime)
	stateHandler := handler.NewStateHandler()
	recordHandler := handler.NewRecordHandler()

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Summary)

	if deps.Docs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	sessionGroup := r.Group("/session")
	{
		sessionGroup.POST("/login", sessionHandler.Login)
		sessionGroup.POST("/logout", sessionHandler.Logout)
		sessionGroup.POST("/activity", sessionHandler.Activity)
		sessionGroup.GET("", sessionHandler.Status)
	}

	if deps.Exports != nil {
		r.GET("/downloads/:token", deps.Exports.Download)
	}

	portal := r.Group("/")
	portal.Use(middleware.Session(deps.Runtime))
	portal.Use(middleware.RequireTeacher(deps.Credentials))
	{
		portal.GET("/state", stateHandler.Get)
		portal.POST("/state/:resource/reload", stateHandler.Reload)
		portal.PATCH("/filters", stateHandler.SetFilters)
		portal.DELETE("/filters", stateHandler.ResetFilters)
		portal.DELETE("/error", stateHandler.ClearError)
		portal.GET("/options", stateHandler.Options)
		portal.GET("/grades", stateHandler.Grades)

		portal.PATCH("/profile", recordHandler.UpdateProfile)
		portal.POST("/attendance", recordHandler.MarkAttendance)
		portal.POST("/attendance/bulk", recordHandler.MarkBulkAttendance)
		portal.POST("/grades", recordHandler.AddGrade)
		portal.PUT("/grades", recordHandler.UpdateGrade)
		portal.POST("/grades/bulk", recordHandler.AddBulkGrades)

		if deps.Exports != nil {
			portal.POST("/exports/:resource", deps.Exports.Create)
			portal.GET("/exports/:id", deps.Exports.Status)
			portal.GET("/reports/render", deps.Exports.Render)
		}
	}

	return r
}
