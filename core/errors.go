package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	SessionErrorAPI           = "SESSION_API_ERROR"
	SessionErrorCrypto        = "SESSION_CRYPTO_FAILED"
	SessionErrorAuthNeeded    = "SESSION_AUTH_NEEDED"
	SessionErrorSecondFactor  = "SESSION_SECOND_FACTOR_REQUIRED"
	SessionErrorMissingScope  = "SESSION_MISSING_SCOPE"
	SessionErrorUsage         = "SESSION_USAGE_ERROR"
	SessionErrorConfiguration = "SESSION_CONFIG_ERROR"
)

// APIError is the typed failure produced by transports: an HTTP status, the
// body-level error code, the body-level error message, and the response
// headers. It travels wrapped inside a categorized error; use AsAPIError to
// recover it.
type APIError struct {
	HTTPCode int
	BodyCode int
	Message  string
	Headers  http.Header
}

func (e *APIError) Error() string {
	if e == nil {
		return "core: api error"
	}
	message := strings.TrimSpace(e.Message)
	if message == "" {
		message = http.StatusText(e.HTTPCode)
	}
	return fmt.Sprintf("core: api error %d (code %d): %s", e.HTTPCode, e.BodyCode, message)
}

// RetryAfter returns the numeric retry-after header value in seconds, if
// present and numeric.
func (e *APIError) RetryAfter() (int, bool) {
	if e == nil || e.Headers == nil {
		return 0, false
	}
	raw := strings.TrimSpace(e.Headers.Get("Retry-After"))
	if raw == "" {
		return 0, false
	}
	seconds := 0
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
		seconds = seconds*10 + int(r-'0')
	}
	return seconds, true
}

// AsAPIError unwraps the typed API failure from an error chain.
func AsAPIError(err error) (*APIError, bool) {
	if err == nil {
		return nil, false
	}
	var api *APIError
	if errors.As(err, &api) {
		return api, true
	}
	return nil, false
}

// WrapAPIError envelopes a transport failure in the module's error
// taxonomy, keeping the typed APIError reachable through the chain.
func WrapAPIError(api *APIError) error {
	if api == nil {
		return nil
	}
	return goerrors.Wrap(api, goerrors.CategoryExternal, "core: api request failed").
		WithCode(api.HTTPCode).
		WithTextCode(SessionErrorAPI).
		WithMetadata(map[string]any{
			"http_code": api.HTTPCode,
			"body_code": api.BodyCode,
		})
}

// NewCryptoError reports a fatal, unretried cryptographic verification
// failure (modulus signature or server proof mismatch).
func NewCryptoError(message string) error {
	return goerrors.New(message, goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(SessionErrorCrypto)
}

// NewAuthenticationNeeded reports a 401 that could not be recovered by a
// token refresh; the caller has to authenticate again.
func NewAuthenticationNeeded(api *APIError) error {
	return goerrors.Wrap(api, goerrors.CategoryAuth, "core: authentication needed").
		WithCode(http.StatusUnauthorized).
		WithTextCode(SessionErrorAuthNeeded)
}

// NewSecondFactorRequired reports a 403 issued while a second factor is
// still pending.
func NewSecondFactorRequired(api *APIError) error {
	return goerrors.Wrap(api, goerrors.CategoryAuthz, "core: second factor required").
		WithCode(http.StatusForbidden).
		WithTextCode(SessionErrorSecondFactor)
}

// NewMissingScope reports a 403 with no pending second factor.
func NewMissingScope(api *APIError) error {
	return goerrors.Wrap(api, goerrors.CategoryAuthz, "core: missing scope").
		WithCode(http.StatusForbidden).
		WithTextCode(SessionErrorMissingScope)
}

// NewUsageError reports a caller mistake: a nested blocking call, an
// unresolvable implementation, or a conflicting force-override.
func NewUsageError(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(SessionErrorUsage)
}

// NewConfigurationError reports broken process configuration, such as two
// implementations registered under one name.
func NewConfigurationError(message string) error {
	return goerrors.New(message, goerrors.CategoryConflict).
		WithCode(http.StatusConflict).
		WithTextCode(SessionErrorConfiguration)
}

func IsCryptoError(err error) bool { return hasTextCode(err, SessionErrorCrypto) }

func IsAuthenticationNeeded(err error) bool { return hasTextCode(err, SessionErrorAuthNeeded) }

func IsSecondFactorRequired(err error) bool { return hasTextCode(err, SessionErrorSecondFactor) }

func IsMissingScope(err error) bool { return hasTextCode(err, SessionErrorMissingScope) }

func IsUsageError(err error) bool { return hasTextCode(err, SessionErrorUsage) }

func IsConfigurationError(err error) bool { return hasTextCode(err, SessionErrorConfiguration) }

func hasTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(richErr.TextCode), textCode)
}
