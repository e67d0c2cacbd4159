package main

import (
	"log"

	"github.com/labstack/echo/v4"
	"github.com/snshub/backend/internal/cache"
	"github.com/snshub/backend/internal/router"
	"github.com/snshub/backend/pkg/config"
	"github.com/snshub/backend/validators"
)

const memoryCacheSize = 10000

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database connection
	db, err := config.InitDB(cfg.PostgresConnStr)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer config.CloseDB(db)

	// User cache: Redis when configured, in-process LRU otherwise
	var store cache.Store
	if cfg.RedisAddr != "" {
		client, err := config.InitRedis(cfg.RedisAddr)
		if err != nil {
			log.Fatalf("Failed to initialize Redis: %v", err)
		}
		defer client.Close()
		store = cache.NewRedisStore(client)
	} else {
		log.Println("REDIS_ADDR not set, using in-process user cache.")
		store = cache.NewMemoryStore(memoryCacheSize, cache.UserCacheTTL)
	}
	userCache := cache.NewUserCache(store)

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	router.SetupRoutes(e, db, userCache, cfg)

	// Validator
	e.Validator = validators.NewValidator()

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
