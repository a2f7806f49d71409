package session

import (
	"context"

	"github.com/goliatone/go-session/core"
)

// Sync variants run their operation to completion on the session's
// private execution context. They are for callers that have no context
// plumbing of their own; code already running inside one of these calls
// must use the context variant, and a nested Sync call is rejected with
// a usage error.

func (s *Session) AuthenticateSync(username, password string) (bool, error) {
	var authenticated bool
	err := s.exec.run(func(ctx context.Context) error {
		var err error
		authenticated, err = s.Authenticate(ctx, username, password)
		return err
	})
	return authenticated, err
}

func (s *Session) ProvideSecondFactorSync(code string) (bool, error) {
	var accepted bool
	err := s.exec.run(func(ctx context.Context) error {
		var err error
		accepted, err = s.ProvideSecondFactor(ctx, code)
		return err
	})
	return accepted, err
}

func (s *Session) RefreshSync() (bool, error) {
	var refreshed bool
	err := s.exec.run(func(ctx context.Context) error {
		var err error
		refreshed, err = s.Refresh(ctx)
		return err
	})
	return refreshed, err
}

func (s *Session) LogoutSync() (bool, error) {
	var done bool
	err := s.exec.run(func(ctx context.Context) error {
		var err error
		done, err = s.Logout(ctx)
		return err
	})
	return done, err
}

func (s *Session) LockSync() error {
	return s.exec.run(func(ctx context.Context) error {
		return s.Lock(ctx)
	})
}

func (s *Session) RequestSync(req core.Request) (map[string]any, error) {
	var data map[string]any
	err := s.exec.run(func(ctx context.Context) error {
		var err error
		data, err = s.Request(ctx, req)
		return err
	})
	return data, err
}
