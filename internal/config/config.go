// Package config provides configuration management for the readcache service.
// It handles loading configuration from environment variables with sensible
// defaults and validates the configuration to ensure the service starts safely.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FILE: Log file path (default: readcache.log)
//
// Redis Configuration:
//   - REDIS_URL: Full Redis connection string; takes precedence over host/port
//   - REDIS_HOST: Redis host, used with the settings below when REDIS_URL is absent
//   - REDIS_PORT: Redis port (default: 6379)
//   - REDIS_USERNAME: Redis username (default: default)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//
// If neither REDIS_URL nor REDIS_HOST is set, no connection is attempted and
// the cache runs with its local tier only.
//
// Cache Configuration:
//   - CACHE_KEY_PREFIX: Namespace prefix for remote keys (default: "cache:")
//   - CACHE_CONNECT_TIMEOUT: Budget for the one-time Redis connect (default: 10s)
//   - CACHE_OP_TIMEOUT: Budget for each remote get/set/delete (default: 3s)
//   - CACHE_SWEEP_INTERVAL: How often the local tier is swept (default: 5m)
//   - CACHE_MAX_AGE: Age past which swept entries are evicted (default: 10m)
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the readcache service.
// All fields correspond to environment variables that can be set to
// override the default values.
//
// The configuration is loaded using the Load() function and should be
// validated using the Validate() method before use.
type Config struct {
	// Application settings
	Port     string // Server port number
	LogLevel string // Logging level (debug, info, warn, error)
	LogFile  string // Log file path

	// Redis configuration for the remote cache tier
	RedisURL      string // Full connection string, wins over host/port
	RedisHost     string // Redis host address
	RedisPort     string // Redis port number
	RedisUsername string // Redis username
	RedisPassword string // Redis authentication password
	RedisDB       string // Redis database number (0-15)

	// Cache behavior
	CacheKeyPrefix      string        // Namespace prefix for remote keys
	CacheConnectTimeout time.Duration // One-time connect budget
	CacheOpTimeout      time.Duration // Per remote operation budget
	CacheSweepInterval  time.Duration // Local tier sweep period
	CacheMaxAge         time.Duration // Sweep eviction threshold
}

// Load creates a new Config instance with values loaded from environment
// variables. If an environment variable is not set, the corresponding default
// value is used.
//
// This function does not validate the configuration - call Validate() on the
// returned Config to ensure all values are valid.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", "readcache.log"),

		// Redis configuration
		RedisURL:      getEnv("REDIS_URL", ""),
		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", "default"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),

		// Cache behavior
		CacheKeyPrefix:      getEnv("CACHE_KEY_PREFIX", "cache:"),
		CacheConnectTimeout: getDurationEnv("CACHE_CONNECT_TIMEOUT", 10*time.Second),
		CacheOpTimeout:      getDurationEnv("CACHE_OP_TIMEOUT", 3*time.Second),
		CacheSweepInterval:  getDurationEnv("CACHE_SWEEP_INTERVAL", 5*time.Minute),
		CacheMaxAge:         getDurationEnv("CACHE_MAX_AGE", 10*time.Minute),
	}
}

// RemoteConfigured reports whether any remote endpoint is configured.
func (c *Config) RemoteConfigured() bool {
	return c.RedisURL != "" || c.RedisHost != ""
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv retrieves a duration environment variable value or returns a
// default value if the variable is not set or fails to parse.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate performs validation on the configuration to ensure all values are
// valid. The service should call this method after loading configuration and
// before starting.
func (c *Config) Validate() error {
	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	// Validate Redis config if a host is provided without a URL
	if c.RedisURL == "" && c.RedisHost != "" {
		if port, err := strconv.Atoi(c.RedisPort); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("REDIS_PORT must be a valid port number")
		}
	}
	if c.RemoteConfigured() {
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
	}

	// Validate cache timing
	if c.CacheConnectTimeout <= 0 {
		return fmt.Errorf("CACHE_CONNECT_TIMEOUT must be a positive duration")
	}
	if c.CacheOpTimeout <= 0 {
		return fmt.Errorf("CACHE_OP_TIMEOUT must be a positive duration")
	}
	if c.CacheSweepInterval <= 0 {
		return fmt.Errorf("CACHE_SWEEP_INTERVAL must be a positive duration")
	}
	if c.CacheMaxAge <= 0 {
		return fmt.Errorf("CACHE_MAX_AGE must be a positive duration")
	}

	return nil
}
