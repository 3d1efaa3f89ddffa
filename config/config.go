// Package config centralises runtime configuration helpers for rosterview.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPTimeout      = 30 * time.Second
	defaultStalenessWindow  = 30 * time.Second
	defaultDebounceInterval = 300 * time.Millisecond
	defaultMaxAttempts      = 3
	defaultInitialBackoff   = 500 * time.Millisecond
	defaultMaxBackoff       = 2 * time.Second
	defaultPageSize         = 10
)

// TelemetrySettings configures the OTLP metric exporter.
type TelemetrySettings struct {
	OTLPEndpoint string `yaml:"otlpEndpoint"`
	ServiceName  string `yaml:"serviceName"`
}

// Settings contains the rosterview configuration tree loaded from defaults
// and overrides.
type Settings struct {
	ServerURL         string            `yaml:"serverURL"`
	HTTPTimeout       Duration          `yaml:"httpTimeout"`
	StalenessWindow   Duration          `yaml:"stalenessWindow"`
	DebounceInterval  Duration          `yaml:"debounceInterval"`
	MaxFetchAttempts  int               `yaml:"maxFetchAttempts"`
	InitialBackoff    Duration          `yaml:"initialBackoff"`
	MaxBackoff        Duration          `yaml:"maxBackoff"`
	RequestsPerSecond float64           `yaml:"requestsPerSecond"`
	RequestBurst      int               `yaml:"requestBurst"`
	DefaultPageSize   int               `yaml:"defaultPageSize"`
	PreferencesPath   string            `yaml:"preferencesPath"`
	Telemetry         TelemetrySettings `yaml:"telemetry"`
}

// Default returns the default rosterview configuration.
func Default() Settings {
	return Settings{
		ServerURL:         "http://localhost:8080",
		HTTPTimeout:       Duration(defaultHTTPTimeout),
		StalenessWindow:   Duration(defaultStalenessWindow),
		DebounceInterval:  Duration(defaultDebounceInterval),
		MaxFetchAttempts:  defaultMaxAttempts,
		InitialBackoff:    Duration(defaultInitialBackoff),
		MaxBackoff:        Duration(defaultMaxBackoff),
		RequestsPerSecond: 0,
		RequestBurst:      1,
		DefaultPageSize:   defaultPageSize,
		PreferencesPath:   "",
		Telemetry:         TelemetrySettings{OTLPEndpoint: "", ServiceName: "rosterview"},
	}
}

// FromEnv loads configuration values from environment variables, overriding defaults.
func FromEnv() Settings {
	cfg := Default()
	if v := strings.TrimSpace(os.Getenv("ROSTERVIEW_SERVER_URL")); v != "" {
		cfg.ServerURL = v
	}
	if v := strings.TrimSpace(os.Getenv("ROSTERVIEW_HTTP_TIMEOUT")); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			cfg.HTTPTimeout = Duration(dur)
		}
	}
	if v := strings.TrimSpace(os.Getenv("ROSTERVIEW_STALENESS_WINDOW")); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			cfg.StalenessWindow = Duration(dur)
		}
	}
	if v := strings.TrimSpace(os.Getenv("ROSTERVIEW_DEBOUNCE_INTERVAL")); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			cfg.DebounceInterval = Duration(dur)
		}
	}
	if v := strings.TrimSpace(os.Getenv("ROSTERVIEW_MAX_FETCH_ATTEMPTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxFetchAttempts = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ROSTERVIEW_REQUESTS_PER_SECOND")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.RequestsPerSecond = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("ROSTERVIEW_PREFERENCES_PATH")); v != "" {
		cfg.PreferencesPath = v
	}
	if v := strings.TrimSpace(os.Getenv("ROSTERVIEW_OTLP_ENDPOINT")); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("ROSTERVIEW_SERVICE_NAME")); v != "" {
		cfg.Telemetry.ServiceName = v
	}
	return cfg
}

// LoadOrDefault reads settings from a YAML file, layering them over the
// environment-derived defaults. A missing file is not an error: the second
// return reports whether the file was found.
func LoadOrDefault(path string) (Settings, bool, error) {
	cfg := FromEnv()
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg.applyDefaults(), false, nil
		}
		return Settings{}, false, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Settings{}, false, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.applyDefaults(), true, nil
}

func (s Settings) applyDefaults() Settings {
	s.ServerURL = strings.TrimSpace(s.ServerURL)
	if s.HTTPTimeout <= 0 {
		s.HTTPTimeout = Duration(defaultHTTPTimeout)
	}
	if s.StalenessWindow <= 0 {
		s.StalenessWindow = Duration(defaultStalenessWindow)
	}
	if s.DebounceInterval <= 0 {
		s.DebounceInterval = Duration(defaultDebounceInterval)
	}
	if s.MaxFetchAttempts <= 0 {
		s.MaxFetchAttempts = defaultMaxAttempts
	}
	if s.InitialBackoff <= 0 {
		s.InitialBackoff = Duration(defaultInitialBackoff)
	}
	if s.MaxBackoff < s.InitialBackoff {
		s.MaxBackoff = Duration(defaultMaxBackoff)
	}
	if s.RequestBurst <= 0 {
		s.RequestBurst = 1
	}
	if s.DefaultPageSize <= 0 {
		s.DefaultPageSize = defaultPageSize
	}
	if strings.TrimSpace(s.Telemetry.ServiceName) == "" {
		s.Telemetry.ServiceName = "rosterview"
	}
	return s
}

// Validate checks that settings required at startup are present.
func (s Settings) Validate() error {
	if s.ServerURL == "" {
		return errors.New("config: server url required")
	}
	return nil
}
