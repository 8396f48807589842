package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/claimflow/backend/internal/config"
	"github.com/claimflow/backend/internal/http/handlers"
	"github.com/claimflow/backend/internal/http/middleware"
	"github.com/claimflow/backend/internal/metrics"
	"github.com/claimflow/backend/internal/s3io"
	"github.com/claimflow/backend/internal/service"
	"github.com/claimflow/backend/internal/store"

	_ "github.com/claimflow/backend/docs"
)

func Router(cfg config.Config, st *store.Store, appeals *service.AppealService, docs *s3io.Documents, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.AdminKeyHeader, middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Appeals:     appeals,
		Store:       st,
		Documents:   docs,
		Validator:   validator.New(),
		Logger:      logger,
		Concurrency: cfg.ProcessWorkers,
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.Use(middleware.Timeout(cfg.RequestTimeout))
	{
		api.GET("/dashboard", h.Dashboard)
		api.GET("/claims", h.ClaimsList)
		api.GET("/claims/:id", h.ClaimDetails)
		api.GET("/appeals", h.AppealsList)
		api.GET("/appeals/:id", h.AppealDetails)
		api.POST("/appeals", h.SubmitAppeal)
		api.POST("/appeals/:id/validate", h.ValidateAppeal)
		api.POST("/appeals/:id/decision", h.DecideAppeal)
		api.POST("/appeals/:id/confirm", h.ConfirmAppeal)
		api.POST("/documents/presign", h.PresignDocument)
	}

	admin := r.Group("/api")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/process", h.Process)
		admin.POST("/admin/reset", h.Reset)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
