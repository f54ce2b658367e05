package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config is everything the server reads from the environment.
type Config struct {
	HTTPAddr string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBTimezone string

	// StoreBackend is "postgres" or "memory".
	StoreBackend string

	JWTSecret string
	// CORSOrigins is empty to allow any origin.
	CORSOrigins []string

	LogFile  string
	LogLevel string

	RouteTieBreak string

	// Defaults for the anomaly endpoint when the caller omits them.
	AnomalyWindow    time.Duration
	AnomalyThreshold int
}

// Load reads .env (if present) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, relying on env vars")
	}

	cfg := Config{
		HTTPAddr:      getEnv("HTTP_ADDR", "0.0.0.0:8080"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "password"),
		DBName:        getEnv("DB_NAME", "tracker"),
		DBSSLMode:     getEnv("DB_SSLMODE", "disable"),
		DBTimezone:    getEnv("DB_TIMEZONE", "UTC"),
		StoreBackend:  getEnv("STORE_BACKEND", "postgres"),
		JWTSecret:     getEnv("JWT_SECRET", "supersecret"),
		LogFile:       getEnv("LOG_FILE", "./logs/app.log"),
		LogLevel:      getEnv("LOG_LEVEL", "debug"),
		RouteTieBreak: getEnv("ROUTE_TIE_BREAK", "most_recent"),
	}

	window, err := time.ParseDuration(getEnv("ANOMALY_WINDOW", "15m"))
	if err != nil {
		return Config{}, fmt.Errorf("ANOMALY_WINDOW: %w", err)
	}
	cfg.AnomalyWindow = window

	threshold, err := strconv.Atoi(getEnv("ANOMALY_THRESHOLD", "3"))
	if err != nil {
		return Config{}, fmt.Errorf("ANOMALY_THRESHOLD: %w", err)
	}
	cfg.AnomalyThreshold = threshold

	if origins := getEnv("CORS_ORIGINS", ""); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	switch cfg.StoreBackend {
	case "postgres", "memory":
	default:
		return Config{}, fmt.Errorf("STORE_BACKEND: unknown backend %q", cfg.StoreBackend)
	}
	return cfg, nil
}

// DSN builds the postgres data source name.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode, c.DBTimezone,
	)
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}
