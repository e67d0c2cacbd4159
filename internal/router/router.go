package router

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/snshub/backend/internal/alarm"
	"github.com/snshub/backend/internal/apperr"
	"github.com/snshub/backend/internal/cache"
	"github.com/snshub/backend/internal/handlers"
	"github.com/snshub/backend/internal/middleware"
	"github.com/snshub/backend/internal/models"
	"github.com/snshub/backend/internal/repositories"
	"github.com/snshub/backend/pkg/config"
	"gorm.io/gorm"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	e.HTTPErrorHandler = httpErrorHandler
	log.Println("Global middleware configured.")
}

// httpErrorHandler maps the application error taxonomy to HTTP statuses in
// one place, so handlers just return errors.
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := err.Error()

	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		status = httpErr.Code
		if m, ok := httpErr.Message.(string); ok {
			message = m
		}
	case errors.Is(err, apperr.ErrUserNotFound), errors.Is(err, apperr.ErrPostNotFound),
		errors.Is(err, apperr.ErrAlarmNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrDuplicateUsername), errors.Is(err, apperr.ErrAlreadyLiked):
		status = http.StatusConflict
	case errors.Is(err, apperr.ErrInvalidPassword), errors.Is(err, apperr.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, apperr.ErrInvalidPermission):
		status = http.StatusForbidden
	case errors.Is(err, apperr.ErrAlarmConnect):
		status = http.StatusInternalServerError
	default:
		log.Printf("Unhandled error: %v", err)
		message = "Internal server error"
	}

	if err := c.JSON(status, echo.Map{"success": false, "error": message}); err != nil {
		log.Printf("Failed to write error response: %v", err)
	}
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, db *gorm.DB, userCache *cache.UserCache, cfg *config.Config) {
	err := db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.Alarm{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed for all models.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize repositories ---
	userRepo := repositories.NewPostgresUserRepository(db)
	postRepo := repositories.NewPostgresPostRepository(db)
	commentRepo := repositories.NewPostgresCommentRepository(db)
	likeRepo := repositories.NewPostgresLikeRepository(db)
	alarmRepo := repositories.NewPostgresAlarmRepository(db)

	// --- Alarm delivery core ---
	registry := alarm.NewRegistry()
	alarmService := alarm.NewService(db, alarmRepo, userRepo, registry)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1")
	userHandler := handlers.NewUserHandler(userRepo, userCache, cfg.JWTSecret, cfg.JWTExpiry)
	userHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret, userCache, userRepo))
	log.Println("JWT authentication middleware applied to /api/v1 group.")

	postHandler := handlers.NewPostHandler(postRepo)
	postHandler.RegisterPostRoutes(api)
	log.Println("Post routes configured.")

	commentHandler := handlers.NewCommentHandler(commentRepo, postRepo, alarmService)
	commentHandler.RegisterCommentRoutes(api)
	log.Println("Comment routes configured.")

	likeHandler := handlers.NewLikeHandler(likeRepo, postRepo, alarmService)
	likeHandler.RegisterLikeRoutes(api)
	log.Println("Like routes configured.")

	alarmHandler := handlers.NewAlarmHandler(alarmRepo, alarmService)
	alarmHandler.RegisterAlarmRoutes(api)
	log.Println("Alarm routes configured.")

	log.Println("All routes configured.")
}
