package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// envOverrides are applied on top of the file, highest precedence.
type envOverrides struct {
	Mode     string `env:"ABV_MODE"`
	BaseURL  string `env:"ABV_BASE_URL"`
	LogLevel string `env:"ABV_LOG_LEVEL"`
}

// Load reads and parses configuration from a file. ${VAR} references inside
// the file are expanded from the environment before parsing; a sidecar
// .checksum file, when present, is verified against the raw bytes first.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	if err := verifySidecar(absPath, data); err != nil {
		return nil, err
	}

	expanded := envVarPattern.ReplaceAllStringFunc(string(data), func(m string) string {
		name := envVarPattern.FindStringSubmatch(m)[1]
		return os.Getenv(name)
	})

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return fmt.Errorf("parse env overrides: %w", err)
	}
	if ov.Mode != "" {
		cfg.Backend.Mode = ov.Mode
	}
	if ov.BaseURL != "" {
		cfg.Backend.BaseURL = ov.BaseURL
	}
	if ov.LogLevel != "" {
		cfg.Service.LogLevel = ov.LogLevel
	}
	return nil
}

func validate(cfg *Config) error {
	switch cfg.Backend.Mode {
	case ModeNative:
	case ModeHTTP:
		if cfg.Backend.BaseURL == "" {
			return fmt.Errorf("backend.base_url is required in http mode")
		}
		if !strings.HasPrefix(cfg.Backend.BaseURL, "http://") &&
			!strings.HasPrefix(cfg.Backend.BaseURL, "https://") {
			return fmt.Errorf("backend.base_url must be an http(s) URL, got %q", cfg.Backend.BaseURL)
		}
	default:
		return fmt.Errorf("backend.mode must be %q or %q, got %q", ModeNative, ModeHTTP, cfg.Backend.Mode)
	}

	if cfg.State.Path == "" {
		return fmt.Errorf("state.path is required")
	}
	return nil
}
