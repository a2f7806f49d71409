// Package filekeyring persists session snapshots as JSON files, one per
// account, optionally sealed with a passphrase-derived key. It
// implements core.PersistenceObserver: the snapshot passed on release
// reflects the completed mutation and is written out; an empty snapshot
// removes the account's file.
package filekeyring

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-session/core"
	"github.com/goliatone/go-session/registry"
)

// TypeName is the pluggable type keyring backends register under.
const TypeName = "keyring"

const fileMode = 0o600

func init() {
	registry.Announce(TypeName, "file", func() (registry.Component, error) {
		return NewDefault()
	})
}

type Observer struct {
	dir        string
	passphrase string
	logger     core.Logger
}

type Option func(*Observer)

func WithLogger(logger core.Logger) Option {
	return func(o *Observer) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPassphrase seals snapshots with a key derived from the
// passphrase. Without it snapshots are written in the clear.
func WithPassphrase(passphrase string) Option {
	return func(o *Observer) {
		o.passphrase = passphrase
	}
}

func New(dir string, options ...Option) (*Observer, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("filekeyring: directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("filekeyring: create directory: %w", err)
	}
	o := &Observer{dir: dir, logger: glog.Nop()}
	for _, opt := range options {
		if opt != nil {
			opt(o)
		}
	}
	return o, nil
}

// NewDefault stores snapshots under the user configuration directory.
// It backs the "file" keyring announcement.
func NewDefault(options ...Option) (*Observer, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("filekeyring: resolve config directory: %w", err)
	}
	return New(filepath.Join(base, "go-session", "keyring"), options...)
}

func (o *Observer) Priority() (int, bool) { return 10, true }

func (o *Observer) Validate(map[string]any) bool { return true }

// AcquireSessionLock is the pre-mutation hook. The file reflects
// completed mutations only, so nothing is written here.
func (o *Observer) AcquireSessionLock(accountName string, snapshot core.Snapshot) {}

// ReleaseSessionLock writes the post-mutation snapshot, or removes the
// account's file when the session ended unauthenticated. Failures are
// logged, never propagated: the session does not depend on its
// observers.
func (o *Observer) ReleaseSessionLock(accountName string, snapshot core.Snapshot) {
	if o == nil {
		return
	}
	if snapshot.Empty() {
		if err := o.Delete(accountName); err != nil {
			o.logger.Error("session file removal failed", "account_name", accountName, "error", err)
		}
		return
	}
	if err := o.save(accountName, snapshot); err != nil {
		o.logger.Error("session file write failed", "account_name", accountName, "error", err)
	}
}

func (o *Observer) save(accountName string, snapshot core.Snapshot) error {
	plaintext, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("filekeyring: encode snapshot: %w", err)
	}

	payload := plaintext
	if o.passphrase != "" {
		sealed, err := sealSnapshot(o.passphrase, plaintext)
		if err != nil {
			return err
		}
		payload, err = json.Marshal(sealed)
		if err != nil {
			return fmt.Errorf("filekeyring: encode envelope: %w", err)
		}
	}

	path := o.path(accountName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, fileMode); err != nil {
		return fmt.Errorf("filekeyring: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("filekeyring: replace snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot stored for an account. A missing file is not
// an error: it loads as the empty snapshot.
func (o *Observer) Load(accountName string) (core.Snapshot, error) {
	if o == nil {
		return core.Snapshot{}, fmt.Errorf("filekeyring: observer is nil")
	}
	payload, err := os.ReadFile(o.path(accountName))
	if os.IsNotExist(err) {
		return core.Snapshot{}, nil
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("filekeyring: read snapshot: %w", err)
	}

	if o.passphrase != "" {
		var sealed sealedSnapshot
		if err := json.Unmarshal(payload, &sealed); err != nil {
			return core.Snapshot{}, fmt.Errorf("filekeyring: decode envelope: %w", err)
		}
		payload, err = openSnapshot(o.passphrase, sealed)
		if err != nil {
			return core.Snapshot{}, err
		}
	}

	var snapshot core.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return core.Snapshot{}, fmt.Errorf("filekeyring: decode snapshot: %w", err)
	}
	return snapshot, nil
}

func (o *Observer) Delete(accountName string) error {
	err := os.Remove(o.path(accountName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("filekeyring: remove snapshot: %w", err)
	}
	return nil
}

func (o *Observer) path(accountName string) string {
	return filepath.Join(o.dir, sanitizeName(accountName)+".json")
}

// sanitizeName keeps account-derived filenames inside the keyring
// directory regardless of what the account name contains.
func sanitizeName(accountName string) string {
	name := strings.TrimSpace(accountName)
	if name == "" {
		return "default"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_', r == '@':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

var (
	_ core.PersistenceObserver = (*Observer)(nil)
	_ registry.Component       = (*Observer)(nil)
)
