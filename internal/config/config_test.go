package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func TestLoadParsesEnv(t *testing.T) {
	t.Setenv("TROVO_CLIENT_ID", " client ")
	t.Setenv("TROVO_ACCESS_TOKEN", "token")
	t.Setenv("TROVO_CHAT_URL", "ws://localhost:9000/chat")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("METRICS_ADDR", ":9090")
	t.Setenv("HTTP_TIMEOUT", "5s")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.ClientID != "client" || cfg.AccessToken != "token" {
		t.Errorf("unexpected credentials: %+v", cfg)
	}
	if cfg.ChatURL != "ws://localhost:9000/chat" {
		t.Errorf("expected chat url override, got %s", cfg.ChatURL)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Errorf("expected default api url, got %s", cfg.APIURL)
	}
	if cfg.LogLevel != zapcore.DebugLevel {
		t.Errorf("expected debug level, got %v", cfg.LogLevel)
	}
	if cfg.MetricsAddr != ":9090" || cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("unexpected metrics or timeout: %+v", cfg)
	}
	if err := cfg.RequireAccessToken(); err != nil {
		t.Errorf("RequireAccessToken() error = %v", err)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(file, []byte("TROVO_CLIENT_ID=from-file\nLOG_LEVEL=warn\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// Registered so the values set by godotenv are removed after the test.
	t.Setenv("TROVO_CLIENT_ID", "")
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("TROVO_CLIENT_ID")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ClientID != "from-file" {
		t.Errorf("expected client id from file, got %q", cfg.ClientID)
	}
	if cfg.LogLevel != zapcore.WarnLevel {
		t.Errorf("expected warn level, got %v", cfg.LogLevel)
	}
	if cfg.ChatURL != defaultChatURL {
		t.Errorf("expected default chat url, got %s", cfg.ChatURL)
	}
}

func TestLoadEnvironmentWinsOverFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(file, []byte("TROVO_CLIENT_ID=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TROVO_CLIENT_ID", "from-env")

	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ClientID != "from-env" {
		t.Errorf("expected client id from env, got %q", cfg.ClientID)
	}
}

func TestLoadValidates(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing client id", map[string]string{"TROVO_CLIENT_ID": ""}},
		{"http chat url", map[string]string{"TROVO_CLIENT_ID": "id", "TROVO_CHAT_URL": "http://chat"}},
		{"ws api url", map[string]string{"TROVO_CLIENT_ID": "id", "TROVO_API_URL": "ws://api"}},
		{"bad log level", map[string]string{"TROVO_CLIENT_ID": "id", "LOG_LEVEL": "loud"}},
		{"bad timeout", map[string]string{"TROVO_CLIENT_ID": "id", "HTTP_TIMEOUT": "soon"}},
		{"negative timeout", map[string]string{"TROVO_CLIENT_ID": "id", "HTTP_TIMEOUT": "-1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
				t.Fatalf("expected error for %s", tt.name)
			}
		})
	}
}

func TestRequireAccessToken(t *testing.T) {
	if err := (Config{}).RequireAccessToken(); err == nil {
		t.Fatal("expected error when access token is missing")
	}
}
