package config

import (
	"os"
	"time"
)

// DefaultJWTSecret is the documented fallback used when JWT_SECRET is unset.
// Deployments must override it; the fallback exists so development setups
// work out of the box.
const DefaultJWTSecret = "fallback_secret"

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port          string
	UserStore     string // "mongo" or "postgres"
	PostgresDSN   string
	MongoURI      string
	MongoDB       string
	RedisAddr     string
	RedisPassword string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	JWTSecret string
	JWTExpire time.Duration

	ReportCacheTTL time.Duration
}

func Load() *Config {
	return &Config{
		Port:          getenv("PORT", "8080"),
		UserStore:     getenv("USER_STORE", "mongo"),
		PostgresDSN:   getenv("POSTGRES_DSN", ""),
		MongoURI:      getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:       getenv("MONGO_DB", "account_portal"),
		RedisAddr:     getenv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		MinioEndpoint:  getenv("MINIO_ENDPOINT", "minio:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "user-reports"),
		MinioUseSSL:    getenv("MINIO_USE_SSL", "false") == "true",

		JWTSecret: getenv("JWT_SECRET", DefaultJWTSecret),
		JWTExpire: getduration("JWT_EXPIRE", 7*24*time.Hour),

		ReportCacheTTL: getduration("REPORT_CACHE_TTL", 5*time.Minute),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
