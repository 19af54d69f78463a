package config

import (
	"os"
	"strings"
	"time"
)

// ClientConfig configures the admin CLI and anything else that talks to the API.
type ClientConfig struct {
	APIURL   string
	Timeout  time.Duration
	LogLevel string
}

// LoadClient builds client config from environment variables (and .env files).
func LoadClient() *ClientConfig {
	if os.Getenv("CHANNELDESK_API_URL") == "" {
		loadEnvFiles()
	}
	c := &ClientConfig{
		APIURL:   strings.TrimRight(os.Getenv("CHANNELDESK_API_URL"), "/"),
		Timeout:  envDuration("CHANNELDESK_TIMEOUT"),
		LogLevel: os.Getenv("LOG_LEVEL"),
	}
	if c.APIURL == "" {
		c.APIURL = "http://localhost:8080/api"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	return c
}
