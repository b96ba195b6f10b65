package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	Port       string
	DBURL      string
	AppURL     string
	CORSOrigin string

	JWTSecret          string
	ProfessorJWTSecret string
	CronSecret         string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeProductID     string

	TrialDays          int
	TrialSweepInterval time.Duration
	SSEPingInterval    time.Duration

	GoogleClientID         string
	GoogleClientSecret     string
	GoogleRedirectURL      string
	GoogleFrontendRedirect string
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	cfg := &Config{
		Env:        getEnv("APP_ENV", "production"),
		Port:       getEnv("PORT", "8080"),
		DBURL:      mustEnv("DB_URL"),
		AppURL:     getEnv("APP_URL", "http://localhost:5173"),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:5173"),

		JWTSecret:  mustEnv("JWT_SECRET"),
		CronSecret: mustEnv("CRON_SECRET"),

		StripeSecretKey:     mustEnv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: mustEnv("STRIPE_WEBHOOK_SECRET"),
		StripeProductID:     getEnv("STRIPE_PRODUCT_ID", ""),

		TrialDays:          getEnvInt("TRIAL_DAYS", 14),
		TrialSweepInterval: getEnvDuration("TRIAL_SWEEP_INTERVAL", 0),
		SSEPingInterval:    getEnvDuration("SSE_PING_INTERVAL", 25*time.Second),

		GoogleClientID:         getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:     getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:      getEnv("GOOGLE_REDIRECT_URL", ""),
		GoogleFrontendRedirect: getEnv("GOOGLE_FRONTEND_REDIRECT", ""),
	}
	cfg.ProfessorJWTSecret = getEnv("PROFESSOR_JWT_SECRET", cfg.JWTSecret)

	return cfg
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Fatalf("Invalid integer for %s: %q", key, v)
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		log.Fatalf("Invalid duration for %s: %q", key, v)
	}
	return d
}
