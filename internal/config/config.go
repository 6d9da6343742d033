package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	DatabaseURL string
	DBHost      string
	DBUser      string
	DBPass      string
	DBName      string
	DBPort      string

	RedisURL  string
	JWTSecret string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPSender   string

	MatchRadiusKm       float64
	ExpirySweepSchedule string
	ExpirySweepBatch    int
	ExpirySweepTimeout  time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	GamificationFile string
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPass:      os.Getenv("DB_PASS"),
		DBName:      getEnv("DB_NAME", "food_rescue"),
		DBPort:      getEnv("DB_PORT", "5432"),

		RedisURL:  os.Getenv("REDIS_URL"),
		JWTSecret: os.Getenv("JWT_SECRET"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPSender:   getEnv("SMTP_SENDER", "no-reply@foodrescue.local"),

		ExpirySweepSchedule: getEnv("EXPIRY_SWEEP_SCHEDULE", "@every 15m"),
		GamificationFile:    os.Getenv("GAMIFICATION_FILE"),
	}

	var err error
	if cfg.SMTPPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587")); err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}
	if cfg.MatchRadiusKm, err = strconv.ParseFloat(getEnv("MATCH_RADIUS_KM", "10"), 64); err != nil {
		return nil, fmt.Errorf("invalid MATCH_RADIUS_KM: %w", err)
	}
	if cfg.MatchRadiusKm <= 0 {
		return nil, fmt.Errorf("invalid MATCH_RADIUS_KM: must be positive")
	}
	if cfg.ExpirySweepBatch, err = strconv.Atoi(getEnv("EXPIRY_SWEEP_BATCH", "200")); err != nil {
		return nil, fmt.Errorf("invalid EXPIRY_SWEEP_BATCH: %w", err)
	}
	if cfg.ExpirySweepTimeout, err = parseDuration(getEnv("EXPIRY_SWEEP_TIMEOUT", "5m")); err != nil {
		return nil, fmt.Errorf("invalid EXPIRY_SWEEP_TIMEOUT: %w", err)
	}
	if cfg.RateLimitRPS, err = strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "10"), 64); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(getEnv("RATE_LIMIT_BURST", "20")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	if cfg.JWTSecret == "" {
		if cfg.AppEnv == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev-secret"
	}

	return cfg, nil
}

// SMTPEnabled reports whether outgoing email is configured.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPUser != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
