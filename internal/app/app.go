package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/avreyn/chorus/internal/config"
	"github.com/avreyn/chorus/internal/database"
	"github.com/avreyn/chorus/internal/handlers"
	"github.com/avreyn/chorus/internal/middleware"
	"github.com/avreyn/chorus/internal/services"
)

type App struct {
	config   *config.Config
	logger   *logrus.Logger
	db       *database.Database
	services *services.Services
	handlers *handlers.Handlers
	router   *gin.Engine
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	svcs, err := services.New(cfg, app.logger, db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = svcs

	app.handlers, err = handlers.New(app.logger, cfg, svcs)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	registerBindings()
	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

// registerBindings adds the custom "rating" rule: only -1 and 1 are valid.
func registerBindings() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("rating", func(fl validator.FieldLevel) bool {
			rating := fl.Field().Int()
			return rating == -1 || rating == 1
		})
	}
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))
	router.Use(middleware.Metrics())

	router.GET("/health", a.handlers.Health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		songs := api.Group("/songs")
		{
			songs.GET("", a.handlers.Songs.List)
			songs.POST("", a.handlers.Songs.Create)
			songs.GET("/search", a.handlers.Songs.Search)
			songs.POST("/similar", a.handlers.Songs.GetSimilarForMany)
			songs.GET("/:id", a.handlers.Songs.Get)
			songs.PUT("/:id", a.handlers.Songs.Update)
			songs.DELETE("/:id", a.handlers.Songs.Delete)
			songs.GET("/:id/similar", a.handlers.Songs.GetSimilar)
		}

		users := api.Group("/users/:userId/recommendations")
		{
			users.GET("/personalized", a.handlers.Recommendations.Personalized)
			users.GET("/genre", a.handlers.Recommendations.GenreBased)
			users.GET("/history", a.handlers.Recommendations.History)
		}

		recommendations := api.Group("/recommendations")
		{
			recommendations.POST("", a.handlers.Recommendations.Store)
			recommendations.POST("/:id/rate", a.handlers.Recommendations.Rate)
		}
	}

	a.router = router
}
