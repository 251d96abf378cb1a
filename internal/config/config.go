package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr       string
	WebhookURL string
	CORSOrigin string
	SessionTTL time.Duration
	// PostgreSQL - optional, category catalog source
	DatabaseURL   string
	MigrationsDir string
	// Redis - optional, session registry backend
	RedisURL string
	// Meilisearch - optional, conversation search
	MeiliURL       string
	MeiliMasterKey string
	// MinIO - optional, attachment blob storage
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

func Load() Config {
	return Config{
		Addr:       getenv("API_ADDR", ":8686"),
		WebhookURL: getenv("PROMPTDECK_WEBHOOK_URL", "http://localhost:5678/webhook/prompt-composer"),
		CORSOrigin: getenv("PROMPTDECK_CORS_ORIGIN", "*"),
		SessionTTL: time.Duration(getenvInt("PROMPTDECK_SESSION_TTL_SECONDS", 1800)) * time.Second,
		// Postgres - empty by default, built-in catalog used if not configured
		DatabaseURL:   getenv("DATABASE_URL", ""),
		MigrationsDir: getenv("PROMPTDECK_MIGRATIONS_DIR", "./db/migrations"),
		// Redis - empty by default, in-memory session registry if not configured
		RedisURL: getenv("REDIS_URL", ""),
		// Meilisearch - empty by default, in-memory search index if not configured
		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),
		// MinIO - empty by default, in-memory blob store if not configured
		MinioEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "promptdeck-attachments"),
		MinioUseSSL:    getenv("MINIO_USE_SSL", "") == "true",
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
