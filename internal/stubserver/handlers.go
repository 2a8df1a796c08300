package stubserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/uabidotfun/antigravity-manager/internal/invoke"
	"github.com/uabidotfun/antigravity-manager/internal/model"
)

// handlerTable binds every routed command to its HTTP handler. Server.Routes
// fails fast on a command left out of this map.
func (s *Server) handlerTable() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		invoke.CmdListAccounts:           s.handleListAccounts,
		invoke.CmdGetCurrentAccount:      s.handleGetCurrentAccount,
		invoke.CmdAddAccount:             s.handleAddAccount,
		invoke.CmdDeleteAccount:          s.handleDeleteAccount,
		invoke.CmdDeleteAccounts:         s.handleDeleteAccounts,
		invoke.CmdReorderAccounts:        s.handleReorderAccounts,
		invoke.CmdSwitchAccount:          s.handleSwitchAccount,
		invoke.CmdUpdateAccountLabel:     s.handleUpdateAccountLabel,
		invoke.CmdExportAccounts:         s.handleExportAccounts,
		invoke.CmdFetchAccountQuota:      s.handleFetchAccountQuota,
		invoke.CmdRefreshAllQuotas:       s.handleRefreshAllQuotas,
		invoke.CmdGetDeviceProfiles:      s.handleGetDeviceProfiles,
		invoke.CmdPreviewGenerateProfile: s.handlePreviewGenerateProfile,
		invoke.CmdBindDeviceProfile:      s.handleBindDeviceProfile,
		invoke.CmdApplyDeviceProfile:     s.handleApplyDeviceProfile,
		invoke.CmdRestoreOriginalDevice:  s.handleRestoreOriginalDevice,
		invoke.CmdListDeviceVersions:     s.handleListDeviceVersions,
		invoke.CmdRestoreDeviceVersion:   s.handleRestoreDeviceVersion,
		invoke.CmdDeleteDeviceVersion:    s.handleDeleteDeviceVersion,
		invoke.CmdLoadConfig:             s.handleLoadConfig,
		invoke.CmdSaveConfig:             s.handleSaveConfig,
		invoke.CmdToggleProxyStatus:      s.handleToggleProxyStatus,
		invoke.CmdCheckForUpdates:        s.handleCheckForUpdates,
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.fixtures.ListAccounts())
}

func (s *Server) handleGetCurrentAccount(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.fixtures.CurrentAccount()
	if !ok {
		s.writeError(w, http.StatusNotFound, "no current account")
		return
	}
	s.writeJSON(w, http.StatusOK, acct)
}

func (s *Server) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	acct, err := s.fixtures.AddAccount(req.Email)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, acct)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if !s.fixtures.DeleteAccount(chi.URLParam(r, "accountId")) {
		s.writeError(w, http.StatusNotFound, "account not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteAccounts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountIDs []string `json:"accountIds"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	deleted := s.fixtures.DeleteAccounts(req.AccountIDs)
	s.writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

func (s *Server) handleReorderAccounts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountIDs []string `json:"accountIds"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.fixtures.ReorderAccounts(req.AccountIDs)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSwitchAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"accountId"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	acct, ok := s.fixtures.SwitchAccount(req.AccountID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "account not found")
		return
	}
	s.writeJSON(w, http.StatusOK, acct)
}

func (s *Server) handleUpdateAccountLabel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label string `json:"label"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if !s.fixtures.UpdateLabel(chi.URLParam(r, "accountId"), req.Label) {
		s.writeError(w, http.StatusNotFound, "account not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportAccounts(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"accounts": s.fixtures.ListAccounts(),
	})
}

func (s *Server) handleFetchAccountQuota(w http.ResponseWriter, r *http.Request) {
	quota, ok := s.fixtures.Quota(chi.URLParam(r, "accountId"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "account not found")
		return
	}
	s.writeJSON(w, http.StatusOK, quota)
}

func (s *Server) handleRefreshAllQuotas(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.fixtures.RefreshAllQuotas())
}

func (s *Server) handleGetDeviceProfiles(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.fixtures.DeviceProfiles())
}

func (s *Server) handlePreviewGenerateProfile(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.fixtures.PreviewProfile())
}

func (s *Server) handleBindDeviceProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProfileID string `json:"profileId"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if !s.fixtures.BindProfile(chi.URLParam(r, "accountId"), req.ProfileID) {
		s.writeError(w, http.StatusNotFound, "account not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleApplyDeviceProfile(w http.ResponseWriter, r *http.Request) {
	var profile model.DeviceProfile
	if !s.decode(w, r, &profile) {
		return
	}
	s.fixtures.ApplyProfile(profile)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRestoreOriginalDevice(w http.ResponseWriter, r *http.Request) {
	s.fixtures.RestoreOriginal()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListDeviceVersions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.fixtures.DeviceVersions())
}

func (s *Server) handleRestoreDeviceVersion(w http.ResponseWriter, r *http.Request) {
	if !s.fixtures.RestoreVersion(chi.URLParam(r, "versionId")) {
		s.writeError(w, http.StatusNotFound, "version not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteDeviceVersion(w http.ResponseWriter, r *http.Request) {
	if !s.fixtures.DeleteVersion(chi.URLParam(r, "versionId")) {
		s.writeError(w, http.StatusNotFound, "version not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLoadConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.fixtures.AppConfig())
}

func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var cfg model.AppConfig
	if !s.decode(w, r, &cfg) {
		return
	}
	s.fixtures.SetAppConfig(cfg)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleProxyStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.fixtures.ToggleProxy())
}

func (s *Server) handleCheckForUpdates(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.fixtures.UpdateInfo())
}
