// Package model holds the wire types exchanged with the account backend.
// These mirror the backend payloads field for field; no behavior lives here.
package model

// Account is one authenticated account in the managed collection.
type Account struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Label     string     `json:"label,omitempty"`
	Current   bool       `json:"current"`
	SortIndex int        `json:"sort_index"`
	ProjectID string     `json:"project_id,omitempty"`
	Quota     *QuotaData `json:"quota,omitempty"`
	CreatedAt string     `json:"created_at,omitempty"`
}

// QuotaData is a point-in-time quota snapshot for one account.
type QuotaData struct {
	Models           []ModelQuota `json:"models"`
	IsForbidden      bool         `json:"is_forbidden"`
	SubscriptionTier string       `json:"subscription_tier,omitempty"`
}

// ModelQuota is the remaining quota for a single upstream model.
type ModelQuota struct {
	Name       string `json:"name"`
	Percentage int    `json:"percentage"`
	ResetTime  string `json:"reset_time,omitempty"`
}

// RefreshStats summarizes a bulk quota refresh.
type RefreshStats struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// DeviceProfile is one synthesized device fingerprint.
type DeviceProfile struct {
	ID          string `json:"id"`
	MachineID   string `json:"machine_id"`
	DeviceID    string `json:"device_id"`
	SQMID       string `json:"sqm_id,omitempty"`
	MacMachine  string `json:"mac_machine_id,omitempty"`
	GeneratedAt string `json:"generated_at,omitempty"`
}

// DeviceVersion is a saved fingerprint snapshot that can be restored.
type DeviceVersion struct {
	ID        string `json:"id"`
	Label     string `json:"label,omitempty"`
	CreatedAt string `json:"created_at"`
}

// UpdateInfo is the result of an update check.
type UpdateInfo struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// ProxyStatus reports whether the local proxy is enabled.
type ProxyStatus struct {
	Enabled bool `json:"enabled"`
}
