package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// Request describes a single call against the account API. Body is encoded
// as JSON when non-nil. Method defaults to GET without a body and POST with
// one.
type Request struct {
	Endpoint string
	Body     any
	Headers  map[string]string
	Method   string
	Query    map[string]string
}

// Transport executes API requests and returns the decoded response object.
// Failures carrying API semantics must be classifiable through AsAPIError.
type Transport interface {
	Request(ctx context.Context, req Request) (map[string]any, error)
}

// SessionState is the read-only view a transport needs from its owning
// session to build request headers.
type SessionState interface {
	AppVersion() string
	UserAgent() string
	UID() string
	AccessToken() string
	Environment() Environment
}

// TransportFactory builds a transport bound to a session's state. The
// default factory is resolved through the component registry under the
// "transport" pluggable type.
type TransportFactory interface {
	NewTransport(state SessionState) (Transport, error)
}

// Environment describes one deployment of the remote API. Environments
// compare equal by Name.
type Environment interface {
	Name() string
	BaseURL() string
	ExtraHeaders() map[string]string
	TLSPinningHashes() []string
	TLSPinningHashesAR() []string
}

// SRPClient is one client-side run of the SRP handshake for a single
// password/modulus pair.
type SRPClient interface {
	// Challenge returns the client ephemeral.
	Challenge() ([]byte, error)
	// ComputeProof derives the client proof from the server parameters. A
	// failure signals an invalid challenge.
	ComputeProof(salt, serverEphemeral []byte, version int) ([]byte, error)
	// VerifyServerProof checks the server proof and reports whether the
	// handshake is mutually authenticated.
	VerifyServerProof(proof []byte) bool
}

// SRPFactory creates SRP clients. The math engine itself lives outside this
// module; embedders provide one directly or register it under the "srp"
// pluggable type.
type SRPFactory interface {
	NewClient(password string, modulus []byte) (SRPClient, error)
}

// ModulusVerifier checks the signature on an armored SRP modulus and
// returns the decoded modulus bytes.
type ModulusVerifier interface {
	Verify(armored string) ([]byte, error)
}

// PersistenceObserver is notified around every mutating session operation.
// AcquireSessionLock runs in registration order before the mutation,
// ReleaseSessionLock in reverse order after it, so layered backends compose
// like a stack. Observers own durable storage and their own failure
// handling; the session never inspects their outcome.
type PersistenceObserver interface {
	AcquireSessionLock(accountName string, snapshot Snapshot)
	ReleaseSessionLock(accountName string, snapshot Snapshot)
}

// MetricsRecorder receives operation counters and latency histograms.
type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// RawConfigLoader supplies raw configuration values before defaults and
// validation are applied.
type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

// ConfigProvider loads a validated Config on top of defaults.
type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

// OptionsResolver merges defaults, loaded and runtime configuration layers.
type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}
