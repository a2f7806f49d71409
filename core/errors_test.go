package core

import (
	"fmt"
	"net/http"
	"testing"
)

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{HTTPCode: 422, BodyCode: 8002, Message: "Incorrect login credentials"}
	got := err.Error()
	want := "core: api error 422 (code 8002): Incorrect login credentials"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestAPIErrorMessageFallsBackToStatusText(t *testing.T) {
	err := &APIError{HTTPCode: http.StatusBadGateway}
	got := err.Error()
	want := "core: api error 502 (code 0): Bad Gateway"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRetryAfter(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		want    int
		present bool
	}{
		{"numeric", "5", 5, true},
		{"multi digit", "120", 120, true},
		{"missing", "", 0, false},
		{"http date", "Wed, 21 Oct 2015 07:28:00 GMT", 0, false},
		{"negative", "-3", 0, false},
		{"padded", " 7 ", 7, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &APIError{HTTPCode: 429}
			if tc.header != "" {
				api.Headers = http.Header{}
				api.Headers.Set("Retry-After", tc.header)
			}
			got, ok := api.RetryAfter()
			if ok != tc.present || got != tc.want {
				t.Fatalf("RetryAfter() = (%d, %v), want (%d, %v)", got, ok, tc.want, tc.present)
			}
		})
	}
}

func TestAsAPIErrorRecoversWrappedCause(t *testing.T) {
	api := &APIError{HTTPCode: 503, BodyCode: 0}
	wrapped := WrapAPIError(api)

	recovered, ok := AsAPIError(wrapped)
	if !ok {
		t.Fatalf("expected api error recovery from %v", wrapped)
	}
	if recovered.HTTPCode != 503 {
		t.Fatalf("expected original cause, got %+v", recovered)
	}

	doubly := fmt.Errorf("request failed: %w", wrapped)
	if _, ok := AsAPIError(doubly); !ok {
		t.Fatal("expected recovery through further wrapping")
	}

	if _, ok := AsAPIError(fmt.Errorf("plain failure")); ok {
		t.Fatal("expected no api error in unrelated failure")
	}
}

func TestPredicatesMatchTheirConstructors(t *testing.T) {
	api := &APIError{HTTPCode: 403}
	cases := []struct {
		name      string
		err       error
		predicate func(error) bool
	}{
		{"crypto", NewCryptoError("core: bad signature"), IsCryptoError},
		{"auth needed", NewAuthenticationNeeded(api), IsAuthenticationNeeded},
		{"second factor", NewSecondFactorRequired(api), IsSecondFactorRequired},
		{"missing scope", NewMissingScope(api), IsMissingScope},
		{"usage", NewUsageError("core: bad call"), IsUsageError},
		{"configuration", NewConfigurationError("core: duplicate"), IsConfigurationError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !tc.predicate(tc.err) {
				t.Fatalf("expected predicate to match %v", tc.err)
			}
			for _, other := range cases {
				if other.name == tc.name {
					continue
				}
				if other.predicate(tc.err) {
					t.Fatalf("predicate %s unexpectedly matched %v", other.name, tc.err)
				}
			}
			if tc.predicate(nil) {
				t.Fatal("expected predicate to reject nil")
			}
			if tc.predicate(fmt.Errorf("unrelated")) {
				t.Fatal("expected predicate to reject unrelated errors")
			}
		})
	}
}

func TestAuthErrorsCarryAPICause(t *testing.T) {
	api := &APIError{HTTPCode: 401, BodyCode: 10013}
	err := NewAuthenticationNeeded(api)
	recovered, ok := AsAPIError(err)
	if !ok || recovered.BodyCode != 10013 {
		t.Fatalf("expected api cause preserved, got %v %v", recovered, ok)
	}
}
