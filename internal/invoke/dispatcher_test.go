package invoke

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uabidotfun/antigravity-manager/internal/events"
)

type staticCreds string

func (s staticCreds) Token(ctx context.Context) (string, error) {
	return string(s), nil
}

// captured records the essentials of one received request.
type captured struct {
	Method string
	Path   string
	Query  string
	Body   string
	Header http.Header
}

// newCapture starts a backend that records every request and replies with
// status and body. Returns the dispatcher and the capture slice pointer.
func newCapture(t *testing.T, status int, body string) (*Dispatcher, *[]captured) {
	t.Helper()

	var (
		mu   sync.Mutex
		seen []captured
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, captured{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   string(raw),
			Header: r.Header.Clone(),
		})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	d, err := New(Options{BaseURL: srv.URL, Client: srv.Client()})
	require.NoError(t, err)
	return d, &seen
}

func TestAllRoutedCommandsResolve(t *testing.T) {
	d, seen := newCapture(t, http.StatusOK, `{}`)

	// A bag that satisfies every placeholder in the table.
	bag := Args{"accountId": "abc123", "versionId": "v1"}

	for command, rt := range Routes() {
		_, err := d.Dispatch(context.Background(), command, bag)
		require.NoError(t, err, "command %s", command)

		last := (*seen)[len(*seen)-1]
		assert.Equal(t, rt.Method, last.Method, "command %s", command)
		assert.NotContains(t, last.Path, ":", "unresolved placeholder in %s", command)
	}
}

func TestUnknownCommandFailsWithoutNetworkCall(t *testing.T) {
	d, seen := newCapture(t, http.StatusOK, `{}`)

	_, err := d.Dispatch(context.Background(), "frobnicate", nil)

	var noRoute *NoRouteError
	require.ErrorAs(t, err, &noRoute)
	assert.Equal(t, "frobnicate", noRoute.Command)
	assert.Empty(t, *seen, "no request may be attempted for an unmapped command")
}

func TestEmptyCommandRejected(t *testing.T) {
	d, _ := newCapture(t, http.StatusOK, `{}`)
	_, err := d.Dispatch(context.Background(), "", nil)
	require.Error(t, err)
}

func TestDeleteAccountConsumesPathParam(t *testing.T) {
	d, seen := newCapture(t, http.StatusNoContent, "")

	res, err := d.Dispatch(context.Background(), CmdDeleteAccount, Args{"accountId": "abc123"})
	require.NoError(t, err)
	assert.Nil(t, res)

	require.Len(t, *seen, 1)
	got := (*seen)[0]
	assert.Equal(t, http.MethodDelete, got.Method)
	assert.Equal(t, "/api/accounts/abc123", got.Path)
	assert.Empty(t, got.Query, "path-consumed key must not reappear as a query param")
	assert.Empty(t, got.Body, "DELETE must not carry a body")
}

func TestSwitchAccountSendsFlatBody(t *testing.T) {
	d, seen := newCapture(t, http.StatusOK, `{}`)

	_, err := d.Dispatch(context.Background(), CmdSwitchAccount, Args{"accountId": "abc123"})
	require.NoError(t, err)

	got := (*seen)[0]
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/api/accounts/switch", got.Path)
	assert.JSONEq(t, `{"accountId":"abc123"}`, got.Body)
}

func TestFetchAccountQuotaSplitsPathAndQuery(t *testing.T) {
	d, seen := newCapture(t, http.StatusOK, `{}`)

	_, err := d.Dispatch(context.Background(), CmdFetchAccountQuota, Args{
		"accountId": "abc123",
		"extra":     "x",
	})
	require.NoError(t, err)

	got := (*seen)[0]
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/api/accounts/abc123/quota", got.Path)
	assert.Equal(t, "extra=x", got.Query)
	assert.Empty(t, got.Body, "GET must not carry a body")
}

func TestQuerySkipsNilValues(t *testing.T) {
	d, seen := newCapture(t, http.StatusOK, `{}`)

	_, err := d.Dispatch(context.Background(), CmdListAccounts, Args{
		"filter": "active",
		"page":   nil,
	})
	require.NoError(t, err)

	got := (*seen)[0]
	assert.Equal(t, "filter=active", got.Query)
}

func TestRequestWrapperReplacesBody(t *testing.T) {
	d, seen := newCapture(t, http.StatusOK, `{}`)

	_, err := d.Dispatch(context.Background(), CmdSaveConfig, Args{
		"request": map[string]any{"theme": "dark"},
		"sibling": "dropped",
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{"theme":"dark"}`, (*seen)[0].Body)
}

func TestFlatBagBodyExcludesPathKeys(t *testing.T) {
	d, seen := newCapture(t, http.StatusOK, `{}`)

	_, err := d.Dispatch(context.Background(), CmdBindDeviceProfile, Args{
		"accountId": "abc123",
		"profileId": "p1",
	})
	require.NoError(t, err)

	got := (*seen)[0]
	assert.Equal(t, "/api/accounts/abc123/device/bind", got.Path)
	assert.JSONEq(t, `{"profileId":"p1"}`, got.Body)
}

func TestPostWithoutArgsSendsEmptyObject(t *testing.T) {
	d, seen := newCapture(t, http.StatusOK, `{}`)

	_, err := d.Dispatch(context.Background(), CmdRefreshAllQuotas, nil)
	require.NoError(t, err)

	assert.JSONEq(t, `{}`, (*seen)[0].Body)
}

func TestCallerBagIsNotMutated(t *testing.T) {
	d, _ := newCapture(t, http.StatusOK, `{}`)

	bag := Args{"accountId": "abc123", "label": "work"}
	_, err := d.Dispatch(context.Background(), CmdUpdateAccountLabel, bag)
	require.NoError(t, err)

	assert.Equal(t, Args{"accountId": "abc123", "label": "work"}, bag)
}

func TestContentTypeAlwaysJSON(t *testing.T) {
	d, seen := newCapture(t, http.StatusOK, `{}`)

	_, err := d.Dispatch(context.Background(), CmdListAccounts, nil)
	require.NoError(t, err)

	assert.Equal(t, "application/json", (*seen)[0].Header.Get("Content-Type"))
}

func TestAuthHeadersBothAttached(t *testing.T) {
	var seen []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, captured{Header: r.Header.Clone()})
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	d, err := New(Options{BaseURL: srv.URL, Client: srv.Client(), Creds: staticCreds("tok-1")})
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), CmdListAccounts, nil)
	require.NoError(t, err)

	got := seen[0]
	assert.Equal(t, "Bearer tok-1", got.Header.Get("Authorization"))
	assert.Equal(t, "tok-1", got.Header.Get("X-Api-Key"))
}

func TestMissingCredentialOmitsHeaders(t *testing.T) {
	var seen []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, captured{Header: r.Header.Clone()})
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	d, err := New(Options{BaseURL: srv.URL, Client: srv.Client(), Creds: staticCreds("")})
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), CmdListAccounts, nil)
	require.NoError(t, err, "missing token must not fail the call")

	got := seen[0]
	assert.Empty(t, got.Header.Get("Authorization"))
	assert.Empty(t, got.Header.Get("X-Api-Key"))
}

// rotatingCreds proves the credential is read fresh per call, never cached.
type rotatingCreds struct {
	tokens []string
	i      int
}

func (r *rotatingCreds) Token(ctx context.Context) (string, error) {
	tok := r.tokens[r.i]
	r.i++
	return tok, nil
}

func TestCredentialReadFreshEveryCall(t *testing.T) {
	var auth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	d, err := New(Options{
		BaseURL: srv.URL,
		Client:  srv.Client(),
		Creds:   &rotatingCreds{tokens: []string{"first", "second"}},
	})
	require.NoError(t, err)

	ctx := context.Background()
	_, _ = d.Dispatch(ctx, CmdListAccounts, nil)
	_, _ = d.Dispatch(ctx, CmdListAccounts, nil)

	assert.Equal(t, []string{"Bearer first", "Bearer second"}, auth)
}

func TestEmptyBodySuccessYieldsNil(t *testing.T) {
	d, _ := newCapture(t, http.StatusOK, "")

	res, err := d.Dispatch(context.Background(), CmdListAccounts, nil)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestNonJSONSuccessYieldsRawText(t *testing.T) {
	d, _ := newCapture(t, http.StatusOK, "plain text, not json")

	res, err := d.Dispatch(context.Background(), CmdListAccounts, nil)
	require.NoError(t, err, "decode degradation must not raise")
	assert.Equal(t, "plain text, not json", res)
}

func TestJSONSuccessDecoded(t *testing.T) {
	d, _ := newCapture(t, http.StatusOK, `{"enabled":true}`)

	res, err := d.Dispatch(context.Background(), CmdToggleProxyStatus, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"enabled": true}, res)
}

func TestErrorPayloadMessageSurfaced(t *testing.T) {
	d, _ := newCapture(t, http.StatusForbidden, `{"error":"forbidden"}`)

	_, err := d.Dispatch(context.Background(), CmdFetchAccountQuota, Args{"accountId": "abc123"})
	require.Error(t, err)
	assert.Equal(t, "forbidden", err.Error())

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Code)
}

func TestUnparseableErrorBodyFallsBackToStatusLine(t *testing.T) {
	d, _ := newCapture(t, http.StatusInternalServerError, "<html>boom</html>")

	_, err := d.Dispatch(context.Background(), CmdListAccounts, nil)
	require.Error(t, err)
	assert.Equal(t, "HTTP 500", err.Error())
}

func TestNetworkFailurePropagatedUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // connection refused from here on

	d, err := New(Options{BaseURL: url})
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), CmdListAccounts, nil)
	require.Error(t, err)
	var se *StatusError
	assert.False(t, errors.As(err, &se), "transport errors are not protocol errors")
	assert.True(t, strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connect"), "got: %v", err)
}

func TestUnauthorizedDebounce(t *testing.T) {
	d, _ := newCapture(t, http.StatusUnauthorized, `{"error":"session expired"}`)

	hub := events.NewHub(16)
	d.hub = hub

	clock := time.Unix(1000, 0)
	d.now = func() time.Time { return clock }

	ctx := context.Background()

	// Two failures inside the window emit exactly one event.
	_, err := d.Dispatch(ctx, CmdListAccounts, nil)
	require.Error(t, err)
	clock = clock.Add(1900 * time.Millisecond)
	_, err = d.Dispatch(ctx, CmdListAccounts, nil)
	require.Error(t, err)
	require.Len(t, hub.SnapshotSince(0), 1)

	// 2100ms after the first emission the signal fires again.
	clock = clock.Add(200 * time.Millisecond)
	_, err = d.Dispatch(ctx, CmdListAccounts, nil)
	require.Error(t, err)

	evs := hub.SnapshotSince(0)
	require.Len(t, evs, 2)
	for _, ev := range evs {
		assert.Equal(t, events.TypeUnauthorized, ev.Type)
	}
}

func TestConcurrentDispatchesShareOnlyDebounceState(t *testing.T) {
	d, _ := newCapture(t, http.StatusUnauthorized, `{}`)
	hub := events.NewHub(64)
	d.hub = hub

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			_, _ = d.Dispatch(context.Background(), CmdListAccounts, nil)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	assert.Len(t, hub.SnapshotSince(0), 1, "a burst of 401s emits exactly one signal")
}

func TestNewValidation(t *testing.T) {
	_, err := New(Options{Transport: TransportNative})
	require.Error(t, err, "native mode needs an invoker")

	_, err = New(Options{Transport: TransportHTTP})
	require.Error(t, err, "http mode needs a base URL")
}

func TestMaterialize(t *testing.T) {
	args := Args{"accountId": "a/b", "label": "x"}
	path, body := materialize("/api/accounts/:accountId/label", args)

	assert.Equal(t, "/api/accounts/a%2Fb/label", path)
	assert.Equal(t, Args{"label": "x"}, body)
	// Caller's bag untouched.
	assert.Equal(t, Args{"accountId": "a/b", "label": "x"}, args)
}
