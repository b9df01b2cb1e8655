// Package config is a generalization of the teacher's internal/config/app.go:
// same getEnvOrDefault/getEnvAsInt/getEnvAsDuration helpers and
// struct-of-structs shape, extended with the gateway's own knobs (provider
// timeouts, job leasing, voice passthrough, API key prefix).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/logger"
)

// AppConfig holds all application configuration.
type AppConfig struct {
	Server   ServerConfig
	Database DatabaseConfig
	Provider ProviderConfig
	Job      JobConfig
	Voice    VoiceConfig
}

// ServerConfig holds HTTP-server-related configuration.
type ServerConfig struct {
	Port          string
	APIKeyPrefix  string
	MaxHistory    int
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	ConnectionLimit int
	PoolTimeout     time.Duration
	ConnectTimeout  time.Duration
}

// ProviderConfig holds orchestrator/provider timing configuration.
type ProviderConfig struct {
	VendorATimeout time.Duration
	VendorBTimeout time.Duration
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
}

// JobConfig holds durable-job-queue configuration.
type JobConfig struct {
	LeaseDuration      time.Duration
	PollInterval       time.Duration
	DefaultMaxAttempts int
	SessionLockTimeout time.Duration
}

// VoiceConfig holds voice-channel passthrough configuration.
type VoiceConfig struct {
	AudioStorageDir string
	VoiceMode       string
}

// Load reads and validates application configuration from the environment.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Server: ServerConfig{
			Port:         getEnvOrDefault("SERVER_PORT", "8080"),
			APIKeyPrefix: getEnvOrDefault("API_KEY_PREFIX", "vb_live_"),
			MaxHistory:   getEnvAsInt("MAX_HISTORY_MESSAGES", 50),
		},
		Database: DatabaseConfig{
			Host:            getEnvOrDefault("DB_HOST", "postgres"),
			Port:            getEnvOrDefault("DB_PORT", "5432"),
			User:            getEnvOrDefault("DB_USER", "postgres"),
			Password:        getEnvOrDefault("DB_PASSWORD", "postgres"),
			Name:            getEnvOrDefault("DB_NAME", "vocalbridgeops"),
			SSLMode:         getEnvOrDefault("DB_SSLMODE", "disable"),
			ConnectionLimit: getEnvAsInt("DB_CONNECTION_LIMIT", 25),
			PoolTimeout:     getEnvAsDuration("DB_POOL_TIMEOUT", 10*time.Second),
			ConnectTimeout:  getEnvAsDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
		},
		Provider: ProviderConfig{
			VendorATimeout: getEnvAsDuration("VENDOR_A_TIMEOUT", 30*time.Second),
			VendorBTimeout: getEnvAsDuration("VENDOR_B_TIMEOUT", 15*time.Second),
			MaxAttempts:    getEnvAsInt("ORCHESTRATOR_MAX_ATTEMPTS", 3),
			InitialDelay:   getEnvAsDuration("ORCHESTRATOR_INITIAL_DELAY", 100*time.Millisecond),
			MaxDelay:       getEnvAsDuration("ORCHESTRATOR_MAX_DELAY", 5*time.Second),
			Multiplier:     getEnvAsFloat("ORCHESTRATOR_BACKOFF_MULT", 2.0),
		},
		Job: JobConfig{
			LeaseDuration:      getEnvAsDuration("JOB_LEASE_DURATION", 5*time.Minute),
			PollInterval:       getEnvAsDuration("JOB_POLL_INTERVAL", 2*time.Second),
			DefaultMaxAttempts: getEnvAsInt("JOB_DEFAULT_MAX_ATTEMPTS", 5),
			SessionLockTimeout: getEnvAsDuration("SESSION_LOCK_TIMEOUT", 30*time.Second),
		},
		Voice: VoiceConfig{
			AudioStorageDir: getEnvOrDefault("AUDIO_STORAGE_DIR", "./audio-storage"),
			VoiceMode:       getEnvOrDefault("VOICE_MODE", "passthrough"),
		},
	}

	if raw, set := os.LookupEnv("API_KEY_PREFIX"); (set && raw == "") || len(cfg.Server.APIKeyPrefix) == 0 {
		return nil, fmt.Errorf("API_KEY_PREFIX must not be empty")
	}

	return cfg, nil
}

// GetDSN returns the database connection string, with connection_limit,
// pool_timeout, and connect_timeout appended.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s connection_limit=%d pool_timeout=%d connect_timeout=%d",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
		c.ConnectionLimit, int(c.PoolTimeout.Seconds()), int(c.ConnectTimeout.Seconds()),
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid integer value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid float value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid duration value, using default")
		return defaultValue
	}
	return value
}
