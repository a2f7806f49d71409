package session

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/goliatone/go-session/core"
)

// Body-level codes the auth endpoints use.
const (
	codeSuccess            = 1000
	codeInvalidCredentials = 8002
)

// Authenticate runs the SRP handshake for username/password and installs
// the issued credentials on success. It returns (false, nil) when the
// server rejects the credentials or declines mutual authentication, and
// an error for crypto, transport or usage failures. Any prior session is
// logged out first. The gate stays shut for the whole flow.
func (s *Session) Authenticate(ctx context.Context, username, password string) (authenticated bool, err error) {
	startedAt := time.Now()
	defer func() {
		s.observeOperation(ctx, startedAt, "authenticate", err, map[string]any{
			"account_name":  username,
			"authenticated": authenticated,
		})
	}()

	s.gateAcquire()
	defer s.gateRelease()

	if err := s.logoutLocked(ctx); err != nil {
		return false, err
	}

	info, err := s.dispatch(ctx, core.Request{
		Endpoint: "/auth/info",
		Body:     map[string]any{"Username": username},
	}, true)
	if err != nil {
		return false, err
	}

	modulus, err := s.verifier.Verify(stringField(info, "Modulus"))
	if err != nil {
		return false, err
	}
	serverEphemeral, err := base64Field(info, "ServerEphemeral")
	if err != nil {
		return false, err
	}
	salt, err := base64Field(info, "Salt")
	if err != nil {
		return false, err
	}
	version := intField(info, "Version")
	srpSession := stringField(info, "SRPSession")

	factory, err := s.resolveSRPFactory()
	if err != nil {
		return false, err
	}
	client, err := factory.NewClient(password, modulus)
	if err != nil {
		return false, err
	}
	challenge, err := client.Challenge()
	if err != nil {
		return false, core.NewCryptoError("session: srp challenge generation failed")
	}
	proof, err := client.ComputeProof(salt, serverEphemeral, version)
	if err != nil {
		return false, core.NewCryptoError("session: invalid srp challenge")
	}

	auth, err := s.dispatch(ctx, core.Request{
		Endpoint: "/auth",
		Body: map[string]any{
			"Username":        username,
			"ClientEphemeral": base64.StdEncoding.EncodeToString(challenge),
			"ClientProof":     base64.StdEncoding.EncodeToString(proof),
			"SRPSession":      srpSession,
		},
	}, true)
	if err != nil {
		if api, ok := core.AsAPIError(err); ok && api.BodyCode == codeInvalidCredentials {
			return false, nil
		}
		return false, err
	}

	serverProofRaw, ok := auth["ServerProof"].(string)
	if !ok || serverProofRaw == "" {
		// The server withheld mutual authentication.
		return false, nil
	}
	serverProof, err := base64.StdEncoding.DecodeString(serverProofRaw)
	if err != nil {
		return false, core.NewCryptoError("session: server proof is not valid base64")
	}
	if !client.VerifyServerProof(serverProof) {
		return false, core.NewCryptoError("session: server proof verification failed")
	}

	scopes := stringsField(auth, "Scopes")
	_, awaitingSecond := auth["2FA"]
	s.setCredentials(
		stringField(auth, "UID"),
		stringField(auth, "AccessToken"),
		stringField(auth, "RefreshToken"),
		scopes,
		username,
		awaitingSecond,
	)
	authenticated = true
	return true, nil
}

// ProvideSecondFactor submits a second-factor code. It returns
// (false, nil) when the server rejects the code; the caller may retry
// with a fresh code. On acceptance the scope set is replaced with the
// fully unlocked scopes.
func (s *Session) ProvideSecondFactor(ctx context.Context, code string) (accepted bool, err error) {
	startedAt := time.Now()
	defer func() {
		s.observeOperation(ctx, startedAt, "second_factor", err, map[string]any{
			"accepted": accepted,
		})
	}()

	s.gateAcquire()
	defer s.gateRelease()

	resp, err := s.dispatch(ctx, core.Request{
		Endpoint: "/auth/2fa",
		Body:     map[string]any{"TwoFactorCode": code},
	}, true)
	if err != nil {
		if _, ok := core.AsAPIError(err); ok {
			return false, nil
		}
		return false, err
	}

	if scopes := stringsField(resp, "Scopes"); scopes != nil {
		s.setScopes(scopes)
	}
	if bodyCode(resp) != codeSuccess {
		return false, nil
	}
	s.clearSecondFactor()
	accepted = true
	return true, nil
}

// Logout invalidates the session server-side and clears local
// credentials. On an unauthenticated session it is a no-op returning
// true without any API call. A 401 from the server means the token was
// already dead; local state is cleared and the logout counts as
// successful.
func (s *Session) Logout(ctx context.Context) (done bool, err error) {
	if !s.Authenticated() {
		return true, nil
	}

	startedAt := time.Now()
	defer func() {
		s.observeOperation(ctx, startedAt, "logout", err, nil)
	}()

	s.gateAcquire()
	defer s.gateRelease()

	if err := s.logoutLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// logoutLocked performs the logout while the caller holds the gate.
func (s *Session) logoutLocked(ctx context.Context) error {
	if !s.Authenticated() {
		return nil
	}
	_, err := s.dispatch(ctx, core.Request{
		Endpoint: "/auth",
		Method:   http.MethodDelete,
	}, true)
	if err != nil {
		api, ok := core.AsAPIError(err)
		if !ok || api.HTTPCode != http.StatusUnauthorized {
			return err
		}
	}
	s.clearCredentials()
	return nil
}

// Lock downgrades the session server-side and reloads the reduced scope
// set.
func (s *Session) Lock(ctx context.Context) (err error) {
	startedAt := time.Now()
	defer func() {
		s.observeOperation(ctx, startedAt, "lock", err, nil)
	}()

	s.gateAcquire()
	defer s.gateRelease()

	if _, err := s.dispatch(ctx, core.Request{
		Endpoint: "/users/lock",
		Method:   http.MethodPut,
	}, true); err != nil {
		return err
	}

	scopes, err := s.dispatch(ctx, core.Request{Endpoint: "/auth/scopes"}, true)
	if err != nil {
		return err
	}
	s.setScopes(stringsField(scopes, "Scopes"))
	return nil
}
