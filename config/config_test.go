package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	if cfg.HTTPTimeout.Std() != 30*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
	if cfg.StalenessWindow.Std() != 30*time.Second {
		t.Errorf("StalenessWindow = %v", cfg.StalenessWindow)
	}
	if cfg.DebounceInterval.Std() != 300*time.Millisecond {
		t.Errorf("DebounceInterval = %v", cfg.DebounceInterval)
	}
	if cfg.MaxFetchAttempts != 3 {
		t.Errorf("MaxFetchAttempts = %d", cfg.MaxFetchAttempts)
	}
	if cfg.DefaultPageSize != 10 {
		t.Errorf("DefaultPageSize = %d", cfg.DefaultPageSize)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ROSTERVIEW_SERVER_URL", "https://roster.example.com")
	t.Setenv("ROSTERVIEW_HTTP_TIMEOUT", "5s")
	t.Setenv("ROSTERVIEW_MAX_FETCH_ATTEMPTS", "5")
	t.Setenv("ROSTERVIEW_OTLP_ENDPOINT", "http://collector:4318")

	cfg := FromEnv()
	if cfg.ServerURL != "https://roster.example.com" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.HTTPTimeout.Std() != 5*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
	if cfg.MaxFetchAttempts != 5 {
		t.Errorf("MaxFetchAttempts = %d", cfg.MaxFetchAttempts)
	}
	if cfg.Telemetry.OTLPEndpoint != "http://collector:4318" {
		t.Errorf("OTLPEndpoint = %q", cfg.Telemetry.OTLPEndpoint)
	}
}

func TestFromEnvIgnoresGarbageDurations(t *testing.T) {
	t.Setenv("ROSTERVIEW_HTTP_TIMEOUT", "not-a-duration")
	cfg := FromEnv()
	if cfg.HTTPTimeout.Std() != 30*time.Second {
		t.Errorf("garbage duration should keep default, got %v", cfg.HTTPTimeout)
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, loaded, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if loaded {
		t.Fatal("expected loaded=false for missing file")
	}
	if cfg.HTTPTimeout.Std() != 30*time.Second {
		t.Errorf("expected defaults, got %v", cfg.HTTPTimeout)
	}
}

func TestLoadOrDefaultReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	content := []byte("serverURL: https://roster.internal\nstalenessWindow: 90s\nrequestsPerSecond: 4\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, loaded, err := LoadOrDefault(path)
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if !loaded {
		t.Fatal("expected loaded=true")
	}
	if cfg.ServerURL != "https://roster.internal" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.StalenessWindow.Std() != 90*time.Second {
		t.Errorf("StalenessWindow = %v", cfg.StalenessWindow)
	}
	if cfg.RequestsPerSecond != 4 {
		t.Errorf("RequestsPerSecond = %v", cfg.RequestsPerSecond)
	}
	// Unspecified values keep their defaults.
	if cfg.DebounceInterval.Std() != 300*time.Millisecond {
		t.Errorf("DebounceInterval = %v", cfg.DebounceInterval)
	}
}

func TestLoadOrDefaultRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("serverURL: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := LoadOrDefault(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default settings should validate: %v", err)
	}
	cfg.ServerURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation failure for empty server url")
	}
}
