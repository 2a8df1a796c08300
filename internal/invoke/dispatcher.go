package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/uabidotfun/antigravity-manager/internal/events"
	"github.com/uabidotfun/antigravity-manager/internal/log"
)

// unauthorizedDebounce is the minimum gap between abv-unauthorized emissions.
// Concurrent requests failing together must not produce a notification storm.
const unauthorizedDebounce = 2 * time.Second

// apiKeyHeader is the second auth acceptor next to Authorization: Bearer.
const apiKeyHeader = "X-Api-Key"

// Args is the loose argument bag for a single command call. Call sites keep
// their own typed boundary (see Call and Client); the bag only exists so the
// route table can stay data-driven.
type Args map[string]any

// Invoker is the native invocation primitive supplied by the embedding host.
// Its command surface is open-ended and its error values are host-defined.
type Invoker interface {
	Invoke(ctx context.Context, command string, args Args) (any, error)
}

// CredentialSource yields the session credential. It is read fresh on every
// HTTP-mode call and never written by this layer; an empty token simply
// omits the auth headers.
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
}

// Transport selects the calling convention at construction time. The choice
// is a capability flag injected by the host, not sniffed from the
// environment, and is fixed for the dispatcher's lifetime.
type Transport int

const (
	TransportHTTP Transport = iota
	TransportNative
)

func (t Transport) String() string {
	if t == TransportNative {
		return "native"
	}
	return "http"
}

// Options configures a Dispatcher.
type Options struct {
	// Transport selects the calling convention.
	Transport Transport

	// Native is required for TransportNative and ignored otherwise.
	Native Invoker

	// BaseURL prefixes every materialized route, e.g. "http://127.0.0.1:8317".
	BaseURL string

	// Client issues HTTP requests. Any timeout is its responsibility; the
	// dispatch layer imposes none. Defaults to http.DefaultClient.
	Client *http.Client

	// Creds supplies the session credential. Optional.
	Creds CredentialSource

	// Hub receives the debounced abv-unauthorized broadcast. Optional.
	Hub *events.Hub

	Logger *slog.Logger
}

// Dispatcher is the single public surface of the dispatch layer. Safe for
// concurrent use; calls share no state beyond the 401 debounce timestamp.
type Dispatcher struct {
	transport Transport
	native    Invoker
	baseURL   string
	client    *http.Client
	creds     CredentialSource
	hub       *events.Hub
	logger    *slog.Logger

	mu               sync.Mutex
	lastUnauthorized time.Time
	now              func() time.Time
}

// New creates a Dispatcher from opts.
func New(opts Options) (*Dispatcher, error) {
	if opts.Transport == TransportNative && opts.Native == nil {
		return nil, fmt.Errorf("native transport selected but no invoker supplied")
	}
	if opts.Transport == TransportHTTP && opts.BaseURL == "" {
		return nil, fmt.Errorf("http transport selected but base URL is empty")
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.WithComponent("invoke")
	}
	return &Dispatcher{
		transport: opts.Transport,
		native:    opts.Native,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		client:    client,
		creds:     opts.Creds,
		hub:       opts.Hub,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Transport reports the calling convention this dispatcher was built with.
func (d *Dispatcher) Transport() Transport {
	return d.transport
}

// Dispatch invokes a named command with an optional argument bag and returns
// the normalized result: a decoded JSON value, nil for empty/no-content
// outcomes, or the raw body text when it is not valid JSON. Every failure is
// terminal for the call; nothing is retried here.
func (d *Dispatcher) Dispatch(ctx context.Context, command string, args Args) (any, error) {
	if command == "" {
		return nil, fmt.Errorf("dispatch: command name is empty")
	}

	if d.transport == TransportNative {
		res, err := d.native.Invoke(ctx, command, args)
		if err != nil {
			d.logger.Error("native invoke failed", "command", command, "error", err)
			return nil, err
		}
		return res, nil
	}

	return d.dispatchHTTP(ctx, command, args)
}

func (d *Dispatcher) dispatchHTTP(ctx context.Context, command string, args Args) (any, error) {
	rt, ok := routeTable[command]
	if !ok {
		err := &NoRouteError{Command: command}
		d.logger.Error("unmapped command", "command", command)
		return nil, err
	}

	endpoint, body := materialize(rt.Template, args)

	var reqBody io.Reader
	switch rt.Method {
	case http.MethodGet, http.MethodDelete:
		if qs := queryString(endpoint, args); qs != "" {
			endpoint += "?" + qs
		}
	case http.MethodPost, http.MethodPatch:
		payload := any(body)
		// A pre-shaped payload under "request" replaces the flat bag.
		if wrapped, ok := body["request"]; ok {
			payload = wrapped
		}
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode body for %s: %w", command, err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, rt.Method, d.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", command, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := d.token(ctx); tok != "" {
		// Two parallel acceptors on the backend; send both.
		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set(apiKeyHeader, tok)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Error("request failed", "command", command, "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		d.logger.Error("read response failed", "command", command, "error", err)
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized {
			d.notifyUnauthorized()
		}
		return nil, statusError(resp.StatusCode, raw)
	}

	if resp.StatusCode == http.StatusNoContent || len(raw) == 0 {
		return nil, nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		// Decode degradation: hand the caller the bytes rather than failing.
		d.logger.Warn("response body is not valid JSON, returning raw text",
			"command", command, "bytes", len(raw))
		return string(raw), nil
	}
	return decoded, nil
}

// materialize substitutes :key placeholders in template from args and
// returns the path plus a copy of the bag with consumed keys removed. The
// caller's map is never mutated; a key used as a path segment is never also
// sent as a query parameter or body field.
func materialize(template string, args Args) (string, Args) {
	body := make(Args, len(args))
	maps.Copy(body, args)

	path := template
	for key, val := range args {
		placeholder := ":" + key
		if !strings.Contains(path, placeholder) {
			continue
		}
		path = strings.ReplaceAll(path, placeholder, url.PathEscape(stringify(val)))
		delete(body, key)
	}
	return path, body
}

// queryString renders the remaining bag keys as query parameters. A key is
// skipped when its value is nil or when its escaped value already appears in
// the materialized path. Keys are emitted in sorted order.
func queryString(endpoint string, args Args) string {
	q := url.Values{}
	for _, key := range slices.Sorted(maps.Keys(args)) {
		val := args[key]
		if val == nil {
			continue
		}
		s := stringify(val)
		if strings.Contains(endpoint, url.PathEscape(s)) {
			continue
		}
		q.Set(key, s)
	}
	return q.Encode()
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func statusError(code int, raw []byte) error {
	var payload map[string]any
	// Parse failure is treated as an empty payload.
	_ = json.Unmarshal(raw, &payload)
	if msg, ok := payload["error"].(string); ok && msg != "" {
		return &StatusError{Code: code, Message: msg}
	}
	return &StatusError{Code: code, Message: fmt.Sprintf("HTTP %d", code)}
}

// token reads the session credential fresh for this call. Failures downgrade
// to an unauthenticated request instead of failing the dispatch.
func (d *Dispatcher) token(ctx context.Context) string {
	if d.creds == nil {
		return ""
	}
	tok, err := d.creds.Token(ctx)
	if err != nil {
		d.logger.Warn("credential read failed, sending unauthenticated", "error", err)
		return ""
	}
	return tok
}

func (d *Dispatcher) notifyUnauthorized() {
	if d.hub == nil {
		return
	}

	d.mu.Lock()
	now := d.now()
	fire := now.Sub(d.lastUnauthorized) > unauthorizedDebounce
	if fire {
		d.lastUnauthorized = now
	}
	d.mu.Unlock()

	if fire {
		d.hub.Publish(events.TypeUnauthorized)
	}
}
