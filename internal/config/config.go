package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Identity of this coordinator instance within the cluster
	InstanceID string

	// Server
	ListenAddress string

	// Shared directory (Redis)
	DirectoryURL string

	// Settlement store (Postgres)
	SettlementDSN string

	// Browser origin allowed to call us (CORS)
	FrontendURL string

	// Game defaults
	DefaultCurrency  string
	DirectoryTTLSecs int

	// Terminal-session sweep
	ReapIntervalSecs int
	ReapGraceSecs    int

	// Notifications
	TelegramBotToken string
	TelegramChatID   string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),

		InstanceID: instanceID(),

		ListenAddress: getEnv("LISTEN_ADDRESS", "0.0.0.0:8080"),

		DirectoryURL: getEnv("DIRECTORY_URL", "redis://localhost:6379/0"),

		SettlementDSN: getEnv("SETTLEMENT_DSN", "postgres://localhost:5432/xplode?sslmode=disable"),

		FrontendURL: getEnv("FRONTEND_URL", ""),

		DefaultCurrency:  getEnv("DEFAULT_CURRENCY", "SOL"),
		DirectoryTTLSecs: getEnvInt("DIRECTORY_TTL_SECONDS", 120),

		ReapIntervalSecs: getEnvInt("REAP_INTERVAL_SECONDS", 30),
		ReapGraceSecs:    getEnvInt("REAP_GRACE_SECONDS", 300),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
	}
}

// instanceID resolves this instance's cluster identity. On Fly the machine
// id is injected; elsewhere fall back to a locally generated one.
func instanceID() string {
	if id := os.Getenv("INSTANCE_ID"); id != "" {
		return id
	}
	if id := os.Getenv("FLY_MACHINE_ID"); id != "" {
		return id
	}
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "local-" + hex.EncodeToString(bytes)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
