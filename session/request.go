package session

import (
	"context"
	"net/http"
	"time"

	"github.com/goliatone/go-session/core"
)

// maxAttempts bounds the retry loop: the initial try plus two retries.
const maxAttempts = 3

// Backoff window for throttled responses without a usable Retry-After
// header, in seconds.
const (
	backoffFloorSeconds = 3
	backoffSpanSeconds  = 5
)

// Request executes an API call with transparent retry. Transient
// failures (408, 502) retry immediately, throttling (429, 503) retries
// after the server hint or a randomized backoff, and an expired access
// token (401) triggers one refresh cycle before the call is retried.
// Both-factor failures (403) surface immediately as second-factor or
// missing-scope errors. The call waits whenever the session's gate is
// shut by a concurrent mutating operation.
func (s *Session) Request(ctx context.Context, req core.Request) (map[string]any, error) {
	return s.request(ctx, req, false)
}

func (s *Session) request(ctx context.Context, req core.Request, bypassGate bool) (map[string]any, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		revision := s.refreshRevision.Load()

		data, err := s.dispatch(ctx, req, bypassGate)
		if err == nil {
			return data, nil
		}
		api, ok := core.AsAPIError(err)
		if !ok {
			return nil, err
		}
		lastErr = err

		switch api.HTTPCode {
		case http.StatusForbidden:
			if s.NeedsSecondFactor() {
				return nil, core.NewSecondFactorRequired(api)
			}
			return nil, core.NewMissingScope(api)
		case http.StatusUnauthorized:
			refreshed, refreshErr := s.refreshWithRevision(ctx, revision, bypassGate)
			if refreshErr != nil {
				return nil, refreshErr
			}
			if !refreshed {
				return nil, core.NewAuthenticationNeeded(api)
			}
		case http.StatusRequestTimeout, http.StatusBadGateway:
			// Retry immediately.
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			if sleepErr := s.backoff(ctx, api); sleepErr != nil {
				return nil, sleepErr
			}
		default:
			return nil, err
		}
	}
	return nil, lastErr
}

// dispatch runs one attempt. Mutating operations pass bypassGate: they
// hold the gate shut themselves and their own requests must not block
// on it.
func (s *Session) dispatch(ctx context.Context, req core.Request, bypassGate bool) (map[string]any, error) {
	transport, err := s.ensureTransport()
	if err != nil {
		return nil, err
	}
	if !bypassGate {
		if err := s.gate.wait(ctx); err != nil {
			return nil, err
		}
	}
	return transport.Request(ctx, req)
}

func (s *Session) backoff(ctx context.Context, api *core.APIError) error {
	var delay time.Duration
	if seconds, ok := api.RetryAfter(); ok {
		delay = time.Duration(seconds) * time.Second
	} else {
		seconds := backoffFloorSeconds + s.jitter()*backoffSpanSeconds
		delay = time.Duration(seconds * float64(time.Second))
	}
	return s.sleep(ctx, delay)
}
