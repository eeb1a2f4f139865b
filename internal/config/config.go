package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string

	// Auth
	AuthJWTSecret string

	// CORS
	CORSAllowedOrigins []string

	// Clinic civil timezone, as minutes east of UTC. All slot times are
	// authored and displayed in this zone regardless of server timezone.
	ClinicUTCOffsetMinutes int

	// Appointment and session timing
	SessionStartGrace  time.Duration
	SessionStaleAfter  time.Duration
	CleanupInterval    time.Duration
	DefaultDurationMin int
	DefaultFee         int

	// Rate limiting (requests/sec per IP, burst)
	RateLimitRPS   float64
	RateLimitBurst int

	// AI assist (Gemini)
	GeminiAPIKey string
	GeminiModels []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		ClinicUTCOffsetMinutes: getEnvAsInt("CLINIC_UTC_OFFSET_MINUTES", 330),

		SessionStartGrace:  getEnvAsDuration("SESSION_START_GRACE", 10*time.Minute),
		SessionStaleAfter:  getEnvAsDuration("SESSION_STALE_AFTER", 45*time.Minute),
		CleanupInterval:    getEnvAsDuration("CLEANUP_INTERVAL", 30*time.Minute),
		DefaultDurationMin: getEnvAsInt("DEFAULT_SLOT_DURATION_MINUTES", 30),
		DefaultFee:         getEnvAsInt("DEFAULT_CONSULT_FEE", 500),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 20),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModels: getEnvAsList("GEMINI_MODELS", []string{"gemini-2.5-flash", "gemini-2.0-flash"}),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
