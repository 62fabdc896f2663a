// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime configuration for the search worker.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	DestinationPoolSize    int // concurrent destination searches per job
	ProviderPoolSize       int // concurrent provider calls per destination
	DiscoveryHorizonMonths int // forward window the discovery provider can serve
	JobTTLMinutes          int // hot-tier absolute TTL
	ArchiveTTLDays         int // cold-tier sliding TTL
	CleanupIntervalHours   int // how often the retention sweep fires

	AmadeusAPIKey    string
	AmadeusAPISecret string
	SerpAPIKey       string
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	destPool, err := intEnv("DESTINATION_POOL_SIZE", 5)
	if err != nil {
		return nil, err
	}
	provPool, err := intEnv("PROVIDER_POOL_SIZE", 2)
	if err != nil {
		return nil, err
	}
	horizon, err := intEnv("DISCOVERY_HORIZON_MONTHS", 6)
	if err != nil {
		return nil, err
	}
	jobTTL, err := intEnv("JOB_TTL_MINUTES", 60)
	if err != nil {
		return nil, err
	}
	archiveTTL, err := intEnv("ARCHIVE_TTL_DAYS", 7)
	if err != nil {
		return nil, err
	}
	cleanup, err := intEnv("CLEANUP_INTERVAL_HOURS", 6)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:                   port,
		DatabaseURL:            dbURL,
		RedisURL:               redisURL,
		DestinationPoolSize:    destPool,
		ProviderPoolSize:       provPool,
		DiscoveryHorizonMonths: horizon,
		JobTTLMinutes:          jobTTL,
		ArchiveTTLDays:         archiveTTL,
		CleanupIntervalHours:   cleanup,
		AmadeusAPIKey:          os.Getenv("AMADEUS_API_KEY"),
		AmadeusAPISecret:       os.Getenv("AMADEUS_API_SECRET"),
		SerpAPIKey:             os.Getenv("SERPAPI_API_KEY"),
	}, nil
}

// intEnv reads a positive integer variable, falling back to def when unset.
func intEnv(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, s)
	}
	return v, nil
}
