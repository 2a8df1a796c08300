package stubserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uabidotfun/antigravity-manager/internal/events"
	"github.com/uabidotfun/antigravity-manager/internal/invoke"
	"github.com/uabidotfun/antigravity-manager/internal/session"
)

func newTestServer(t *testing.T, apiKey string) (*Server, *httptest.Server) {
	t.Helper()
	s := New(Config{APIKey: apiKey}, nil)
	router, err := s.Routes()
	require.NoError(t, err)
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return s, ts
}

func newHTTPClient(t *testing.T, ts *httptest.Server, creds invoke.CredentialSource, hub *events.Hub) *invoke.Client {
	t.Helper()
	d, err := invoke.New(invoke.Options{
		BaseURL: ts.URL,
		Client:  ts.Client(),
		Creds:   creds,
		Hub:     hub,
	})
	require.NoError(t, err)
	return invoke.NewClient(d)
}

func TestEveryRouteHasAHandler(t *testing.T) {
	s := New(Config{}, nil)
	handlers := s.handlerTable()
	for command := range invoke.Routes() {
		_, ok := handlers[command]
		assert.True(t, ok, "command %s has no stub handler", command)
	}
}

func TestChiPattern(t *testing.T) {
	assert.Equal(t, "/api/accounts/{accountId}/quota", chiPattern("/api/accounts/:accountId/quota"))
	assert.Equal(t, "/api/accounts", chiPattern("/api/accounts"))
}

func TestAccountLifecycleOverHTTP(t *testing.T) {
	_, ts := newTestServer(t, "")
	c := newHTTPClient(t, ts, nil, nil)
	ctx := context.Background()

	accounts, err := c.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	added, err := c.AddAccount(ctx, "carol@example.com", "rt-1")
	require.NoError(t, err)
	require.NotEmpty(t, added.ID)

	require.NoError(t, c.SwitchAccount(ctx, added.ID))
	current, err := c.GetCurrentAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", current.Email)

	quota, err := c.FetchAccountQuota(ctx, added.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, quota.Models)

	require.NoError(t, c.UpdateAccountLabel(ctx, added.ID, "work"))
	require.NoError(t, c.DeleteAccount(ctx, added.ID))

	accounts, err = c.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}

func TestDeleteUnknownAccountSurfacesBackendError(t *testing.T) {
	_, ts := newTestServer(t, "")
	c := newHTTPClient(t, ts, nil, nil)

	err := c.DeleteAccount(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, "account not found", err.Error())
}

func TestBothAuthAcceptors(t *testing.T) {
	_, ts := newTestServer(t, "sekrit")

	for _, tc := range []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"bearer", "Authorization", "Bearer sekrit", http.StatusOK},
		{"api key header", "X-Api-Key", "sekrit", http.StatusOK},
		{"wrong key", "X-Api-Key", "wrong", http.StatusUnauthorized},
		{"no key", "", "", http.StatusUnauthorized},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/accounts", nil)
			require.NoError(t, err)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			resp, err := ts.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestUnauthorizedDispatchEmitsSignal(t *testing.T) {
	_, ts := newTestServer(t, "sekrit")
	hub := events.NewHub(8)
	c := newHTTPClient(t, ts, session.Static("wrong"), hub)

	_, err := c.ListAccounts(context.Background())
	require.Error(t, err)
	assert.Equal(t, "invalid API key", err.Error())
	assert.Len(t, hub.SnapshotSince(0), 1)
}

func TestHealthzUnauthenticated(t *testing.T) {
	_, ts := newTestServer(t, "sekrit")

	resp, err := ts.Client().Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNativeAndHTTPShareFixtures(t *testing.T) {
	s, ts := newTestServer(t, "")
	ctx := context.Background()

	// Mutate through the native transport.
	nd, err := invoke.New(invoke.Options{Transport: invoke.TransportNative, Native: s.Invoker()})
	require.NoError(t, err)
	nc := invoke.NewClient(nd)

	added, err := nc.AddAccount(ctx, "native@example.com", "")
	require.NoError(t, err)

	// Observe through the HTTP transport.
	hc := newHTTPClient(t, ts, nil, nil)
	accounts, err := hc.ListAccounts(ctx)
	require.NoError(t, err)

	var found bool
	for _, a := range accounts {
		if a.ID == added.ID {
			found = true
		}
	}
	assert.True(t, found, "account added natively must be visible over HTTP")
}

func TestNativeHostOnlyCommands(t *testing.T) {
	s, _ := newTestServer(t, "")

	d, err := invoke.New(invoke.Options{Transport: invoke.TransportNative, Native: s.Invoker()})
	require.NoError(t, err)

	res, err := d.Dispatch(context.Background(), "get_data_dir_path", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, res)
}

func TestDeviceVersionFlow(t *testing.T) {
	_, ts := newTestServer(t, "")
	c := newHTTPClient(t, ts, nil, nil)
	ctx := context.Background()

	preview, err := c.PreviewGenerateProfile(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, preview.MachineID)

	require.NoError(t, c.ApplyDeviceProfile(ctx, preview))

	versions, err := c.ListDeviceVersions(ctx)
	require.NoError(t, err)
	require.Len(t, versions, 2, "applying a profile snapshots the previous device state")

	require.NoError(t, c.RestoreDeviceVersion(ctx, versions[0].ID))
	require.NoError(t, c.DeleteDeviceVersion(ctx, versions[1].ID))

	versions, err = c.ListDeviceVersions(ctx)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestAppConfigRoundTrip(t *testing.T) {
	_, ts := newTestServer(t, "")
	c := newHTTPClient(t, ts, nil, nil)
	ctx := context.Background()

	cfg, err := c.LoadConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "system", cfg.Theme)

	cfg.Theme = "dark"
	cfg.QuotaProtection.Enabled = true
	require.NoError(t, c.SaveConfig(ctx, cfg))

	got, err := c.LoadConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dark", got.Theme)
	assert.True(t, got.QuotaProtection.Enabled)
}

func TestToggleProxyStatus(t *testing.T) {
	_, ts := newTestServer(t, "")
	c := newHTTPClient(t, ts, nil, nil)
	ctx := context.Background()

	st, err := c.ToggleProxyStatus(ctx)
	require.NoError(t, err)
	assert.True(t, st.Enabled)

	st, err = c.ToggleProxyStatus(ctx)
	require.NoError(t, err)
	assert.False(t, st.Enabled)
}
