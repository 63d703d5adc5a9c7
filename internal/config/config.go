// Package config loads the command line configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

const (
	defaultChatURL     = "wss://open-chat.trovo.live/chat"
	defaultAPIURL      = "https://open-api.trovo.live/openplatform"
	defaultHTTPTimeout = 30 * time.Second
)

// Config holds every setting of the trovo-chat command.
type Config struct {
	// ClientID identifies the application to the API.
	ClientID string
	// AccessToken is the user token, needed for sending and for the user's own chat.
	AccessToken string
	ChatURL     string
	APIURL      string
	LogLevel    zapcore.Level
	// MetricsAddr is the listen address of the metrics endpoint, empty to disable it.
	MetricsAddr string
	HTTPTimeout time.Duration
}

// Load reads the optional .env files and then the environment.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	cfg := Config{
		ClientID:    strings.TrimSpace(os.Getenv("TROVO_CLIENT_ID")),
		AccessToken: strings.TrimSpace(os.Getenv("TROVO_ACCESS_TOKEN")),
		ChatURL:     envOr("TROVO_CHAT_URL", defaultChatURL),
		APIURL:      envOr("TROVO_API_URL", defaultAPIURL),
		MetricsAddr: strings.TrimSpace(os.Getenv("METRICS_ADDR")),
		HTTPTimeout: defaultHTTPTimeout,
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(envOr("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if v := strings.TrimSpace(os.Getenv("HTTP_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
		}
		cfg.HTTPTimeout = d
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("TROVO_CLIENT_ID is required")
	}
	if err := checkURL(c.ChatURL, "ws", "wss"); err != nil {
		return fmt.Errorf("invalid TROVO_CHAT_URL: %w", err)
	}
	if err := checkURL(c.APIURL, "http", "https"); err != nil {
		return fmt.Errorf("invalid TROVO_API_URL: %w", err)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be greater than zero")
	}
	return nil
}

// RequireAccessToken fails if no user access token is configured.
func (c Config) RequireAccessToken() error {
	if c.AccessToken == "" {
		return fmt.Errorf("TROVO_ACCESS_TOKEN is required")
	}
	return nil
}

func checkURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%q needs a %s URL", raw, strings.Join(schemes, " or "))
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
