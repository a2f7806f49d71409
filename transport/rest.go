// Package transport ships the default REST transport for the account API
// and registers it under the "transport" pluggable type. It encodes
// requests as JSON, injects the session's identification headers, and
// optionally pins the server certificate chain against the environment's
// SPKI hashes.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-session/core"
	"github.com/goliatone/go-session/registry"
)

// TypeName is the pluggable type transports register under.
const TypeName = "transport"

const defaultClientTimeout = 30 * time.Second

const defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

func init() {
	registry.Announce(TypeName, "rest", func() (registry.Component, error) {
		return NewFactory(nil), nil
	})
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Factory builds REST transports bound to a session. A nil client enables
// per-environment certificate pinning; an injected client is used as-is.
type Factory struct {
	registry.AlwaysValid
	client HTTPDoer
}

func NewFactory(client HTTPDoer) *Factory {
	return &Factory{client: client}
}

func (*Factory) Priority() (int, bool) { return 10, true }

func (f *Factory) NewTransport(state core.SessionState) (core.Transport, error) {
	if state == nil {
		return nil, core.NewUsageError("transport: session state is required")
	}
	client := f.client
	if client == nil {
		client = &http.Client{
			Timeout:   defaultClientTimeout,
			Transport: pinnedRoundTripper(state.Environment()),
		}
	}
	return &REST{client: client, state: state}, nil
}

// REST executes API calls over HTTP with a JSON envelope.
type REST struct {
	client HTTPDoer
	state  core.SessionState
}

func (t *REST) Request(ctx context.Context, req core.Request) (map[string]any, error) {
	if t == nil || t.client == nil {
		return nil, core.NewUsageError("transport: rest transport requires an http client")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	environment := t.state.Environment()
	if environment == nil {
		return nil, core.NewUsageError("transport: session has no environment")
	}

	endpoint, err := url.Parse(environment.BaseURL() + req.Endpoint)
	if err != nil {
		return nil, core.NewUsageError("transport: invalid request url: " + err.Error())
	}
	query := endpoint.Query()
	for key, value := range req.Query {
		if strings.TrimSpace(key) == "" {
			continue
		}
		query.Set(key, value)
	}
	endpoint.RawQuery = query.Encode()

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	var body io.Reader
	var encoded []byte
	if req.Body != nil {
		encoded, err = json.Marshal(req.Body)
		if err != nil {
			return nil, core.NewUsageError("transport: encode request body: " + err.Error())
		}
		body = bytes.NewReader(encoded)
	}
	if method == "" {
		method = http.MethodGet
		if req.Body != nil {
			method = http.MethodPost
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, core.NewUsageError("transport: create http request: " + err.Error())
	}
	t.setHeaders(httpReq, req.Headers, encoded != nil)

	httpRes, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpRes.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpRes.Body, defaultResponseBodyLimit))
	if err != nil {
		return nil, err
	}

	data := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		// The API always answers JSON; an unparseable body on an error
		// status still has to surface the status itself.
		_ = json.Unmarshal(raw, &data)
	}

	if httpRes.StatusCode < 200 || httpRes.StatusCode >= 300 {
		return nil, core.WrapAPIError(&core.APIError{
			HTTPCode: httpRes.StatusCode,
			BodyCode: bodyCode(data),
			Message:  bodyError(data),
			Headers:  httpRes.Header,
		})
	}
	return data, nil
}

func (t *REST) setHeaders(httpReq *http.Request, extra map[string]string, hasBody bool) {
	httpReq.Header.Set("x-pm-appversion", t.state.AppVersion())
	httpReq.Header.Set("User-Agent", t.state.UserAgent())
	httpReq.Header.Set("x-request-id", uuid.NewString())
	httpReq.Header.Set("Accept", "application/json")
	if hasBody {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if uid := t.state.UID(); uid != "" {
		httpReq.Header.Set("x-pm-uid", uid)
	}
	if token := t.state.AccessToken(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if environment := t.state.Environment(); environment != nil {
		for key, value := range environment.ExtraHeaders() {
			httpReq.Header.Set(key, value)
		}
	}
	for key, value := range extra {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(key, value)
	}
}

func bodyCode(data map[string]any) int {
	if value, ok := data["Code"].(float64); ok {
		return int(value)
	}
	return 0
}

func bodyError(data map[string]any) string {
	if value, ok := data["Error"].(string); ok {
		return value
	}
	return ""
}

var (
	_ core.TransportFactory = (*Factory)(nil)
	_ registry.Component    = (*Factory)(nil)
)
