package model

// AppConfig is the user-facing application configuration stored by the
// backend and round-tripped through load_config / save_config.
type AppConfig struct {
	Language          string                `json:"language"`
	Theme             string                `json:"theme"`
	AutoRefresh       bool                  `json:"auto_refresh"`
	RefreshInterval   int                   `json:"refresh_interval"` // minutes
	AutoSync          bool                  `json:"auto_sync"`
	SyncInterval      int                   `json:"sync_interval"` // minutes
	DefaultExportPath string                `json:"default_export_path,omitempty"`
	AutoLaunch        bool                  `json:"auto_launch"`
	ScheduledWarmup   ScheduledWarmupConfig `json:"scheduled_warmup"`
	QuotaProtection   QuotaProtectionConfig `json:"quota_protection"`
	PinnedQuotaModels PinnedModelsConfig    `json:"pinned_quota_models"`
	HiddenMenuItems   []string              `json:"hidden_menu_items"`
}

// ScheduledWarmupConfig controls periodic model warmup.
type ScheduledWarmupConfig struct {
	Enabled         bool     `json:"enabled"`
	MonitoredModels []string `json:"monitored_models"`
}

// QuotaProtectionConfig reserves a quota floor below which switching away
// from an account is suggested.
type QuotaProtectionConfig struct {
	Enabled             bool     `json:"enabled"`
	ThresholdPercentage int      `json:"threshold_percentage"` // 1-99
	MonitoredModels     []string `json:"monitored_models"`
}

// PinnedModelsConfig lists models surfaced outside the account list.
type PinnedModelsConfig struct {
	Models []string `json:"models"`
}

// DefaultAppConfig returns the configuration a fresh installation starts with.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Language:        "zh",
		Theme:           "system",
		AutoRefresh:     true,
		RefreshInterval: 15,
		AutoSync:        false,
		SyncInterval:    5,
		ScheduledWarmup: ScheduledWarmupConfig{
			MonitoredModels: []string{
				"gemini-3-flash",
				"claude",
				"gemini-3-pro-high",
				"gemini-3-pro-image",
			},
		},
		QuotaProtection: QuotaProtectionConfig{
			ThresholdPercentage: 10,
			MonitoredModels: []string{
				"claude",
				"gemini-3-pro-high",
				"gemini-3-flash",
				"gemini-3-pro-image",
			},
		},
		PinnedQuotaModels: PinnedModelsConfig{
			Models: []string{
				"gemini-3-pro-high",
				"gemini-3-flash",
				"gemini-3-pro-image",
				"claude-sonnet-4-6-thinking",
			},
		},
		HiddenMenuItems: []string{},
	}
}
