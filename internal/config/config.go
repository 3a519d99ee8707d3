// internal/config/config.go
package config

import (
	"os"
	"strings"
	"time"
)

// Config holds the coordinator's runtime settings, all sourced from the
// environment (a .env file is loaded by godotenv in main).
type Config struct {
	// Addr is the listen address, ":8080" unless PORT is set.
	Addr string

	// TeardownGrace is how long a completed room stays in memory so clients
	// can render the final broadcast.
	TeardownGrace time.Duration

	// IdleTimeout reaps waiting rooms whose host never readied up.
	// Zero (the default) disables reaping.
	IdleTimeout time.Duration

	// ScoreEndpoint is the application backend's score-persistence URL.
	// Empty disables reporting.
	ScoreEndpoint string

	// OriginPatterns are the accepted websocket origins.
	OriginPatterns []string
}

// Load reads the configuration from environment variables.
func Load() Config {
	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	return Config{
		Addr:           addr,
		TeardownGrace:  getEnvDuration("ROOM_TEARDOWN_GRACE", time.Minute),
		IdleTimeout:    getEnvDuration("ROOM_IDLE_TIMEOUT", 0),
		ScoreEndpoint:  os.Getenv("SCORE_ENDPOINT"),
		OriginPatterns: getEnvList("WS_ORIGIN_PATTERNS", []string{"*"}),
	}
}

// getEnvDuration parses an environment variable as a duration, else a default.
func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// getEnvList splits a comma-separated environment variable, else a default.
func getEnvList(key string, def []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
