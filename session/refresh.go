package session

import (
	"context"
	"net/http"
	"time"

	"github.com/goliatone/go-session/core"
)

// refreshRedirectURI is the fixed redirect the token endpoint expects
// from non-web clients.
const refreshRedirectURI = "http://protonmail.ch"

// Refresh exchanges the refresh token for a new token pair. It returns
// true when the session holds valid credentials afterwards (including
// when a concurrent refresh already renewed them) and false when the
// refresh token was rejected; a false return with the token permanently
// invalid (400, 422) also clears the local credentials. API-level
// failures map to the boolean, only context cancellation and transport
// breakdowns surface as errors.
func (s *Session) Refresh(ctx context.Context) (refreshed bool, err error) {
	startedAt := time.Now()
	defer func() {
		s.observeOperation(ctx, startedAt, "refresh", err, map[string]any{
			"refreshed": refreshed,
		})
	}()
	refreshed, err = s.refreshWithRevision(ctx, s.refreshRevision.Load(), false)
	return refreshed, err
}

// refreshWithRevision runs a refresh cycle unless the revision counter
// moved past the caller's observed value, which means another refresh
// already completed and the caller's tokens are stale rather than the
// session's.
func (s *Session) refreshWithRevision(ctx context.Context, observed int64, bypassGate bool) (bool, error) {
	if !bypassGate {
		s.gateAcquire()
		defer s.gateRelease()
	}

	if s.refreshRevision.Load() != observed {
		return true, nil
	}
	s.refreshRevision.Add(1)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := s.dispatch(ctx, core.Request{
			Endpoint: "/auth/refresh",
			Body: map[string]any{
				"ResponseType": "token",
				"GrantType":    "refresh_token",
				"RefreshToken": s.RefreshToken(),
				"RedirectURI":  refreshRedirectURI,
			},
		}, true)
		if err == nil {
			s.updateTokens(
				stringField(resp, "UID"),
				stringField(resp, "AccessToken"),
				stringField(resp, "RefreshToken"),
				stringsField(resp, "Scopes"),
			)
			return true, nil
		}

		api, ok := core.AsAPIError(err)
		if !ok {
			return false, err
		}
		switch api.HTTPCode {
		case http.StatusConflict:
			// Another client is refreshing the same token; retry at once.
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			if sleepErr := s.backoff(ctx, api); sleepErr != nil {
				return false, sleepErr
			}
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			s.clearCredentials()
			return false, nil
		default:
			return false, nil
		}
	}
	return false, nil
}
