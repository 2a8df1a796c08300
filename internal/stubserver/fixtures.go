package stubserver

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/uabidotfun/antigravity-manager/internal/model"
)

// Fixtures is the in-memory dataset behind the stub backend. Both the HTTP
// handlers and the native invoker operate on the same instance, so either
// transport observes identical state. All methods are safe for concurrent
// use. Quota values are canned; no real upstream is consulted.
type Fixtures struct {
	mu       sync.Mutex
	accounts []model.Account
	quotas   map[string]model.QuotaData
	profiles []model.DeviceProfile
	versions []model.DeviceVersion
	applied  *model.DeviceProfile
	cfg      model.AppConfig
	proxyOn  bool
}

// NewFixtures seeds a dataset with a couple of accounts and device state.
func NewFixtures() *Fixtures {
	f := &Fixtures{
		quotas: make(map[string]model.QuotaData),
		cfg:    model.DefaultAppConfig(),
	}
	a1 := f.addLocked("alice@example.com")
	a2 := f.addLocked("bob@example.com")
	f.accounts[0].Current = true
	f.quotas[a1.ID] = cannedQuota(72)
	f.quotas[a2.ID] = cannedQuota(35)
	f.versions = []model.DeviceVersion{
		{ID: uuid.NewString(), Label: "initial", CreatedAt: now()},
	}
	return f
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func cannedQuota(pct int) model.QuotaData {
	reset := time.Now().UTC().Add(4 * time.Hour).Format(time.RFC3339)
	return model.QuotaData{
		Models: []model.ModelQuota{
			{Name: "gemini-3-flash", Percentage: pct, ResetTime: reset},
			{Name: "gemini-3-pro-high", Percentage: pct / 2, ResetTime: reset},
			{Name: "claude-sonnet-4-6-thinking", Percentage: pct, ResetTime: reset},
		},
		SubscriptionTier: "free",
	}
}

func (f *Fixtures) addLocked(email string) model.Account {
	acct := model.Account{
		ID:        uuid.NewString(),
		Email:     email,
		SortIndex: len(f.accounts),
		CreatedAt: now(),
	}
	f.accounts = append(f.accounts, acct)
	return acct
}

func (f *Fixtures) ListAccounts() []model.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Account, len(f.accounts))
	copy(out, f.accounts)
	return out
}

func (f *Fixtures) CurrentAccount() (model.Account, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Current {
			return a, true
		}
	}
	return model.Account{}, false
}

func (f *Fixtures) AddAccount(email string) (model.Account, error) {
	if strings.TrimSpace(email) == "" {
		return model.Account{}, fmt.Errorf("email is required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Email == email {
			return model.Account{}, fmt.Errorf("account %s already exists", email)
		}
	}
	acct := f.addLocked(email)
	f.quotas[acct.ID] = cannedQuota(100)
	return acct, nil
}

func (f *Fixtures) DeleteAccount(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteLocked(id)
}

func (f *Fixtures) deleteLocked(id string) bool {
	for i, a := range f.accounts {
		if a.ID == id {
			f.accounts = append(f.accounts[:i], f.accounts[i+1:]...)
			delete(f.quotas, id)
			return true
		}
	}
	return false
}

// DeleteAccounts removes every listed account, returning how many existed.
func (f *Fixtures) DeleteAccounts(ids []string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range ids {
		if f.deleteLocked(id) {
			n++
		}
	}
	return n
}

// ReorderAccounts applies the given ID order; unknown IDs are ignored and
// unlisted accounts keep their relative order at the end.
func (f *Fixtures) ReorderAccounts(ids []string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rank := make(map[string]int, len(ids))
	for i, id := range ids {
		rank[id] = i
	}
	sort.SliceStable(f.accounts, func(i, j int) bool {
		ri, iok := rank[f.accounts[i].ID]
		rj, jok := rank[f.accounts[j].ID]
		if iok && jok {
			return ri < rj
		}
		return iok && !jok
	})
	for i := range f.accounts {
		f.accounts[i].SortIndex = i
	}
}

func (f *Fixtures) SwitchAccount(id string) (model.Account, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := -1
	for i, a := range f.accounts {
		if a.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Account{}, false
	}
	for i := range f.accounts {
		f.accounts[i].Current = i == idx
	}
	return f.accounts[idx], true
}

func (f *Fixtures) UpdateLabel(id, label string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, a := range f.accounts {
		if a.ID == id {
			f.accounts[i].Label = label
			return true
		}
	}
	return false
}

func (f *Fixtures) Quota(id string) (model.QuotaData, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotas[id]
	return q, ok
}

func (f *Fixtures) RefreshAllQuotas() model.RefreshStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return model.RefreshStats{Success: len(f.accounts)}
}

func (f *Fixtures) DeviceProfiles() []model.DeviceProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.DeviceProfile, len(f.profiles))
	copy(out, f.profiles)
	return out
}

// PreviewProfile synthesizes a fingerprint without applying it.
func (f *Fixtures) PreviewProfile() model.DeviceProfile {
	return model.DeviceProfile{
		ID:          uuid.NewString(),
		MachineID:   uuid.NewString(),
		DeviceID:    uuid.NewString(),
		SQMID:       "{" + strings.ToUpper(uuid.NewString()) + "}",
		MacMachine:  uuid.NewString(),
		GeneratedAt: now(),
	}
}

func (f *Fixtures) BindProfile(accountID, profileID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.ID == accountID {
			f.profiles = append(f.profiles, model.DeviceProfile{
				ID:          profileID,
				MachineID:   uuid.NewString(),
				DeviceID:    uuid.NewString(),
				GeneratedAt: now(),
			})
			return true
		}
	}
	return false
}

func (f *Fixtures) ApplyProfile(p model.DeviceProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = &p
	f.versions = append(f.versions, model.DeviceVersion{
		ID:        uuid.NewString(),
		Label:     "before " + p.ID,
		CreatedAt: now(),
	})
}

func (f *Fixtures) AppliedProfile() *model.DeviceProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applied
}

func (f *Fixtures) RestoreOriginal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = nil
}

func (f *Fixtures) DeviceVersions() []model.DeviceVersion {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.DeviceVersion, len(f.versions))
	copy(out, f.versions)
	return out
}

func (f *Fixtures) RestoreVersion(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.versions {
		if v.ID == id {
			f.applied = nil
			return true
		}
	}
	return false
}

func (f *Fixtures) DeleteVersion(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, v := range f.versions {
		if v.ID == id {
			f.versions = append(f.versions[:i], f.versions[i+1:]...)
			return true
		}
	}
	return false
}

func (f *Fixtures) AppConfig() model.AppConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg
}

func (f *Fixtures) SetAppConfig(cfg model.AppConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = cfg
}

func (f *Fixtures) ToggleProxy() model.ProxyStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proxyOn = !f.proxyOn
	return model.ProxyStatus{Enabled: f.proxyOn}
}

func (f *Fixtures) UpdateInfo() model.UpdateInfo {
	return model.UpdateInfo{Available: false, Version: "3.3.1"}
}
