package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/xplodegame/backend/internal/api"
	"github.com/xplodegame/backend/internal/config"
	"github.com/xplodegame/backend/internal/database"
	"github.com/xplodegame/backend/internal/discovery"
	"github.com/xplodegame/backend/internal/game"
	"github.com/xplodegame/backend/internal/middleware"
	"github.com/xplodegame/backend/internal/migrations"
	"github.com/xplodegame/backend/internal/notify"
	"github.com/xplodegame/backend/internal/redis"
	"github.com/xplodegame/backend/internal/settlement"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	log.Printf("Starting coordinator instance %s (%s)", cfg.InstanceID, cfg.Environment)

	// Settlement store
	db, err := database.Connect(cfg.SettlementDSN)
	if err != nil {
		log.Fatalf("Failed to connect to settlement store: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.SettlementDSN); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Shared directory
	rdb, err := redis.Connect(cfg.DirectoryURL)
	if err != nil {
		log.Fatalf("Failed to connect to directory: %v", err)
	}
	defer rdb.Close()

	directory := discovery.New(rdb, time.Duration(cfg.DirectoryTTLSecs)*time.Second)
	settler := settlement.NewPostgres(db)

	// Result notifications (production only)
	var notifier game.Notifier
	if t := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.Environment); t != nil {
		notifier = t
		log.Printf("[NOTIFY] Telegram notifier configured")
	} else {
		log.Printf("[NOTIFY] Telegram not configured - result notifications disabled")
	}

	registry := game.NewRegistry()
	machine := game.NewMachine(registry, directory, settler, notifier, cfg.InstanceID, cfg.DefaultCurrency)

	// Sweep terminal sessions once the rematch window has passed
	game.StartReaper(context.Background(), registry,
		time.Duration(cfg.ReapIntervalSecs)*time.Second,
		time.Duration(cfg.ReapGraceSecs)*time.Second)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(middleware.CORS(cfg))
	api.SetupRoutes(router, machine)

	log.Printf("Listening on %s", cfg.ListenAddress)
	if err := router.Run(cfg.ListenAddress); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
