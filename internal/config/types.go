package config

import "time"

// Config is the abvctl client configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	State   StateConfig   `yaml:"state"`
	Backend BackendConfig `yaml:"backend"`
	Stub    StubConfig    `yaml:"stub,omitempty"`
}

// ServiceConfig defines core client settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// StateConfig defines local state storage settings (credential slots,
// invocation history).
type StateConfig struct {
	Path string `yaml:"path"`
}

// BackendConfig selects the dispatch transport. Mode is an explicit
// capability flag, not a runtime environment probe.
type BackendConfig struct {
	// Mode is "native" or "http".
	Mode string `yaml:"mode"`
	// BaseURL of the REST backend; required in http mode.
	BaseURL string `yaml:"base_url"`
	// Timeout for the underlying HTTP client. The dispatch layer itself
	// imposes none.
	Timeout time.Duration `yaml:"timeout"`
}

// StubConfig defines the local development backend.
type StubConfig struct {
	Listen string `yaml:"listen"`
	APIKey string `yaml:"api_key"`
}

const (
	ModeNative = "native"
	ModeHTTP   = "http"
)

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "abvctl",
			LogLevel:  "INFO",
			LogFormat: "json",
		},
		State: StateConfig{
			Path: "./state/abv.db",
		},
		Backend: BackendConfig{
			Mode:    ModeHTTP,
			BaseURL: "http://127.0.0.1:8317",
			Timeout: 15 * time.Second,
		},
		Stub: StubConfig{
			Listen: "127.0.0.1:8317",
		},
	}
}
