package invoke

import "net/http"

// Command names shared by both transports. The native surface is open-ended;
// this list is the subset reachable from HTTP mode and must stay in sync
// with the route table below.
const (
	CmdListAccounts           = "list_accounts"
	CmdGetCurrentAccount      = "get_current_account"
	CmdAddAccount             = "add_account"
	CmdDeleteAccount          = "delete_account"
	CmdDeleteAccounts         = "delete_accounts"
	CmdReorderAccounts        = "reorder_accounts"
	CmdSwitchAccount          = "switch_account"
	CmdUpdateAccountLabel     = "update_account_label"
	CmdExportAccounts         = "export_accounts"
	CmdFetchAccountQuota      = "fetch_account_quota"
	CmdRefreshAllQuotas       = "refresh_all_quotas"
	CmdGetDeviceProfiles      = "get_device_profiles"
	CmdPreviewGenerateProfile = "preview_generate_profile"
	CmdBindDeviceProfile      = "bind_device_profile"
	CmdApplyDeviceProfile     = "apply_device_profile"
	CmdRestoreOriginalDevice  = "restore_original_device"
	CmdListDeviceVersions     = "list_device_versions"
	CmdRestoreDeviceVersion   = "restore_device_version"
	CmdDeleteDeviceVersion    = "delete_device_version"
	CmdLoadConfig             = "load_config"
	CmdSaveConfig             = "save_config"
	CmdToggleProxyStatus      = "toggle_proxy_status"
	CmdCheckForUpdates        = "check_for_updates"
)

// Route maps a command onto the REST backend: an HTTP method plus a URL
// template whose :name placeholders are filled from the argument bag.
type Route struct {
	Method   string
	Template string
}

// routeTable is consulted only in HTTP mode and is immutable after init.
// A command missing here fails loudly before any network activity.
var routeTable = map[string]Route{
	CmdListAccounts:           {http.MethodGet, "/api/accounts"},
	CmdGetCurrentAccount:      {http.MethodGet, "/api/accounts/current"},
	CmdAddAccount:             {http.MethodPost, "/api/accounts"},
	CmdDeleteAccount:          {http.MethodDelete, "/api/accounts/:accountId"},
	CmdDeleteAccounts:         {http.MethodPost, "/api/accounts/batch-delete"},
	CmdReorderAccounts:        {http.MethodPost, "/api/accounts/reorder"},
	CmdSwitchAccount:          {http.MethodPost, "/api/accounts/switch"},
	CmdUpdateAccountLabel:     {http.MethodPatch, "/api/accounts/:accountId/label"},
	CmdExportAccounts:         {http.MethodPost, "/api/accounts/export"},
	CmdFetchAccountQuota:      {http.MethodGet, "/api/accounts/:accountId/quota"},
	CmdRefreshAllQuotas:       {http.MethodPost, "/api/quota/refresh"},
	CmdGetDeviceProfiles:      {http.MethodGet, "/api/devices/profiles"},
	CmdPreviewGenerateProfile: {http.MethodGet, "/api/devices/preview"},
	CmdBindDeviceProfile:      {http.MethodPost, "/api/accounts/:accountId/device/bind"},
	CmdApplyDeviceProfile:     {http.MethodPost, "/api/devices/apply"},
	CmdRestoreOriginalDevice:  {http.MethodPost, "/api/devices/restore"},
	CmdListDeviceVersions:     {http.MethodGet, "/api/devices/versions"},
	CmdRestoreDeviceVersion:   {http.MethodPost, "/api/devices/versions/:versionId/restore"},
	CmdDeleteDeviceVersion:    {http.MethodDelete, "/api/devices/versions/:versionId"},
	CmdLoadConfig:             {http.MethodGet, "/api/config"},
	CmdSaveConfig:             {http.MethodPost, "/api/config"},
	CmdToggleProxyStatus:      {http.MethodPost, "/api/proxy/toggle"},
	CmdCheckForUpdates:        {http.MethodGet, "/api/updates/check"},
}

// Routes returns a copy of the route table, keyed by command name.
// Consumers (the stub backend, tooling) must not rely on iteration order.
func Routes() map[string]Route {
	out := make(map[string]Route, len(routeTable))
	for cmd, rt := range routeTable {
		out[cmd] = rt
	}
	return out
}
