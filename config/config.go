package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	GinMode       string
	DBDriver      string
	DBDSN         string
	JWTSecret     string
	JWTTTL        time.Duration
	PublicBaseURL string
	PollInterval  time.Duration
	CORSOrigins   []string
	RateLimit     int
	LogFormat     string
	PrinterDevice string
	AMQPURL       string
	SMTP          SMTPConfig
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Enabled reports whether e-mail notifications can be sent.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

// Load reads .env (if present) and then the environment.
func Load() *Config {
	// .env is optional
	_ = godotenv.Load()

	return &Config{
		Port:          getEnv("PORT", "8080"),
		GinMode:       getEnv("GIN_MODE", "debug"),
		DBDriver:      getEnv("DB_DRIVER", "sqlite"),
		DBDSN:         getEnv("DB_DSN", "restaurant.db"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTTTL:        getDuration("JWT_TTL", 24*time.Hour),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		PollInterval:  getDuration("CHANGE_POLL_INTERVAL", 500*time.Millisecond),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		RateLimit:     getInt("RATE_LIMIT", 50),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
		PrinterDevice: os.Getenv("PRINTER_DEVICE"),
		AMQPURL:       os.Getenv("AMQP_URL"),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getInt("SMTP_PORT", 465),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
