package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	DatabaseType   string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string

	JWTSecret string

	// Device agent settings
	APIBaseURL      string
	DeviceStorePath string
	DeviceToken     string
	DeviceUserID    string
	ProbeInterval   time.Duration
	ProbeTimeout    time.Duration
	DrainInterval   time.Duration

	// Streak reminder settings
	SESRegion        string
	SESFromEmail     string
	SESFromName      string
	ReminderInterval time.Duration

	Debug bool
}

// Load reads configuration from the environment (and a .env file when
// present) with sensible defaults
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	return &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseType:   getEnv("DB_TYPE", "sqlite"),
		DatabasePath:   getEnv("DB_PATH", "./linguaquest.db"),
		DatabaseURL:    getEnv("DB_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		APIBaseURL:      getEnv("API_BASE_URL", "http://localhost:8080"),
		DeviceStorePath: getEnv("DEVICE_STORE_PATH", "./device.db"),
		DeviceToken:     getEnv("DEVICE_TOKEN", ""),
		DeviceUserID:    getEnv("DEVICE_USER_ID", ""),
		ProbeInterval:   getDuration("PROBE_INTERVAL", 10*time.Second),
		ProbeTimeout:    getDuration("PROBE_TIMEOUT", 3*time.Second),
		DrainInterval:   getDuration("DRAIN_INTERVAL", 30*time.Second),

		SESRegion:        getEnv("SES_REGION", "eu-west-1"),
		SESFromEmail:     getEnv("SES_FROM_EMAIL", ""),
		SESFromName:      getEnv("SES_FROM_NAME", "LinguaQuest"),
		ReminderInterval: getDuration("REMINDER_INTERVAL", 1*time.Hour),

		Debug: getBool("DEBUG", false),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration reads a duration environment variable or returns a default
func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Warning: invalid duration for %s, using default %s", key, defaultValue)
	}
	return defaultValue
}

// getBool reads a boolean environment variable or returns a default
func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
