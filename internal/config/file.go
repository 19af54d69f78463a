package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	DatabaseURL      string `yaml:"database_url"`
	ServerPort       string `yaml:"server_port"`
	RedisURL         string `yaml:"redis_url"`
	YouTubeAPIKey    string `yaml:"youtube_api_key"`
	UserAgent        string `yaml:"user_agent"`
	Timeout          string `yaml:"timeout"`
	SyncLockTTL      string `yaml:"sync_lock_ttl"`
	MovieMinDuration string `yaml:"movie_min_duration"`
	LogLevel         string `yaml:"log_level"`
}

// LoadFromFile loads config from a YAML file. database_url is required.
// Durations are Go duration strings ("30s", "10m"); unparsable ones fall back to defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	c := &Config{
		DatabaseURL:      f.DatabaseURL,
		ServerPort:       f.ServerPort,
		RedisURL:         f.RedisURL,
		YouTubeAPIKey:    f.YouTubeAPIKey,
		UserAgent:        f.UserAgent,
		Timeout:          parseDuration(f.Timeout),
		SyncLockTTL:      parseDuration(f.SyncLockTTL),
		MovieMinDuration: parseDuration(f.MovieMinDuration),
		LogLevel:         f.LogLevel,
	}
	c.applyDefaults()
	return c, nil
}

func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
