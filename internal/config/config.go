package config

import (
	"errors"
	"os"
	"time"
)

// ErrMissingDatabaseURL is returned when no database DSN is configured.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

// Config holds server configuration.
type Config struct {
	DatabaseURL      string        `yaml:"database_url" env:"DATABASE_URL"`
	ServerPort       string        `yaml:"server_port" env:"SERVER_PORT"`
	RedisURL         string        `yaml:"redis_url" env:"REDIS_URL"`
	YouTubeAPIKey    string        `yaml:"youtube_api_key" env:"YOUTUBE_API_KEY"`
	UserAgent        string        `yaml:"user_agent" env:"FETCHER_USER_AGENT"`
	Timeout          time.Duration `yaml:"timeout" env:"FETCHER_TIMEOUT"`
	SyncLockTTL      time.Duration `yaml:"sync_lock_ttl" env:"SYNC_LOCK_TTL"`
	MovieMinDuration time.Duration `yaml:"movie_min_duration" env:"MOVIE_MIN_DURATION"`
	LogLevel         string        `yaml:"log_level" env:"LOG_LEVEL"`
}

// Load builds config from environment variables.
// If DATABASE_URL is not set, Load tries to load .env.local and .env first.
// DATABASE_URL is required; everything else has a default or is optional.
func Load() (*Config, error) {
	if os.Getenv("DATABASE_URL") == "" {
		loadEnvFiles()
	}
	c := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		ServerPort:    os.Getenv("SERVER_PORT"),
		RedisURL:      os.Getenv("REDIS_URL"),
		YouTubeAPIKey: os.Getenv("YOUTUBE_API_KEY"),
		UserAgent:     os.Getenv("FETCHER_USER_AGENT"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
	}
	c.Timeout = envDuration("FETCHER_TIMEOUT")
	c.SyncLockTTL = envDuration("SYNC_LOCK_TTL")
	c.MovieMinDuration = envDuration("MOVIE_MIN_DURATION")
	c.applyDefaults()
	if c.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.ServerPort == "" {
		c.ServerPort = "8080"
	}
	if c.UserAgent == "" {
		c.UserAgent = "ChannelDesk/1.0"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.SyncLockTTL <= 0 {
		c.SyncLockTTL = 10 * time.Minute
	}
	if c.MovieMinDuration <= 0 {
		c.MovieMinDuration = 60 * time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// envDuration parses a duration env var; invalid or missing values yield 0.
func envDuration(key string) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
