package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Provider ProviderConfig
	Sync     SyncConfig
	Admin    AdminConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

// ProviderConfig holds the streaming platform API settings.
type ProviderConfig struct {
	BaseURL        string
	TokenURL       string
	ClientID       string
	ClientSecret   string
	RequestTimeout time.Duration
	RatePerSec     int
}

// SyncConfig controls the synchronizer and the recording finalizer.
type SyncConfig struct {
	// TitlePrefix is the naming convention that marks a remote broadcast
	// as belonging to the canonical session slot.
	TitlePrefix     string
	DemoFallback    bool
	FinalizerDelay  time.Duration
	SweepInterval   time.Duration
	PollInterval    time.Duration
	RateLimitPerSec int
}

// AdminConfig is the single operator login for the control-plane API.
type AdminConfig struct {
	Email        string
	PasswordHash string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		redisDB = 0
	}

	jwtExpiry, err := strconv.Atoi(getEnv("JWT_EXPIRY_HOURS", "168"))
	if err != nil {
		jwtExpiry = 168
	}

	origins := strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"), ",")

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "aulacast"),
			Password: getEnv("DB_PASSWORD", "aulacast_password"),
			DBName:   getEnv("DB_NAME", "aulacast_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-this-secret-key"),
			ExpiryHours: jwtExpiry,
		},
		Provider: ProviderConfig{
			BaseURL:        getEnv("PROVIDER_BASE_URL", "https://streaming.example.com/v1"),
			TokenURL:       getEnv("PROVIDER_TOKEN_URL", "https://streaming.example.com/oauth/token"),
			ClientID:       getEnv("PROVIDER_CLIENT_ID", ""),
			ClientSecret:   getEnv("PROVIDER_CLIENT_SECRET", ""),
			RequestTimeout: getEnvDuration("PROVIDER_REQUEST_TIMEOUT", 10*time.Second),
			RatePerSec:     getEnvInt("PROVIDER_RATE_PER_SEC", 5),
		},
		Sync: SyncConfig{
			TitlePrefix:     getEnv("SYNC_TITLE_PREFIX", "Live Session"),
			DemoFallback:    getEnv("SYNC_DEMO_FALLBACK", "false") == "true",
			FinalizerDelay:  getEnvDuration("FINALIZER_DELAY", 2*time.Minute),
			SweepInterval:   getEnvDuration("FINALIZER_SWEEP_INTERVAL", 30*time.Second),
			PollInterval:    getEnvDuration("SYNC_POLL_INTERVAL", time.Minute),
			RateLimitPerSec: getEnvInt("RATE_LIMIT_REQUESTS_PER_SECOND", 10),
		},
		Admin: AdminConfig{
			Email:        getEnv("ADMIN_EMAIL", "admin@aulacast.local"),
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: origins,
		},
	}

	// Validate required fields
	if cfg.JWT.Secret == "change-this-secret-key" && cfg.Server.Env == "production" {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}
	if cfg.Admin.PasswordHash == "" && cfg.Server.Env == "production" {
		return nil, fmt.Errorf("ADMIN_PASSWORD_HASH must be set in production")
	}
	if cfg.Sync.DemoFallback && cfg.Server.Env == "production" {
		return nil, fmt.Errorf("SYNC_DEMO_FALLBACK must not be enabled in production")
	}

	return cfg, nil
}

// GetDSN returns the database connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
