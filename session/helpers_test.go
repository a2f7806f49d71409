package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-session/core"
	"github.com/goliatone/go-session/registry"
)

type transportScript struct {
	Data map[string]any
	Err  error
}

type scriptedTransport struct {
	mu       sync.Mutex
	scripts  []transportScript
	requests []core.Request
	hook     func(req core.Request)
	nested   *Session
}

func newScriptedTransport(scripts ...transportScript) *scriptedTransport {
	return &scriptedTransport{scripts: append([]transportScript(nil), scripts...)}
}

func (t *scriptedTransport) Request(_ context.Context, req core.Request) (map[string]any, error) {
	t.mu.Lock()
	t.requests = append(t.requests, req)
	index := len(t.requests) - 1
	hook := t.hook
	t.mu.Unlock()

	if hook != nil {
		hook(req)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if index < len(t.scripts) {
		return t.scripts[index].Data, t.scripts[index].Err
	}
	if len(t.scripts) > 0 {
		last := t.scripts[len(t.scripts)-1]
		return last.Data, last.Err
	}
	return map[string]any{"Code": float64(codeSuccess)}, nil
}

func (t *scriptedTransport) Requests() []core.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]core.Request(nil), t.requests...)
}

type staticTransportFactory struct {
	transport core.Transport
}

func (f staticTransportFactory) NewTransport(core.SessionState) (core.Transport, error) {
	return f.transport, nil
}

type fakeEnvironment struct {
	registry.AlwaysValid
	name string
}

func (e fakeEnvironment) Priority() (int, bool)           { return 0, true }
func (e fakeEnvironment) Name() string                    { return e.name }
func (e fakeEnvironment) BaseURL() string                 { return "https://" + e.name + ".invalid" }
func (e fakeEnvironment) ExtraHeaders() map[string]string { return nil }
func (e fakeEnvironment) TLSPinningHashes() []string      { return nil }
func (e fakeEnvironment) TLSPinningHashesAR() []string    { return nil }

type fakeVerifier struct {
	modulus []byte
	err     error
	armored []string
}

func (v *fakeVerifier) Verify(armored string) ([]byte, error) {
	v.armored = append(v.armored, armored)
	if v.err != nil {
		return nil, v.err
	}
	return v.modulus, nil
}

type fakeSRPClient struct {
	challenge      []byte
	challengeErr   error
	proof          []byte
	proofErr       error
	acceptServer   bool
	verifiedProofs [][]byte
}

func (c *fakeSRPClient) Challenge() ([]byte, error) {
	return c.challenge, c.challengeErr
}

func (c *fakeSRPClient) ComputeProof(salt, serverEphemeral []byte, version int) ([]byte, error) {
	if c.proofErr != nil {
		return nil, c.proofErr
	}
	return c.proof, nil
}

func (c *fakeSRPClient) VerifyServerProof(proof []byte) bool {
	c.verifiedProofs = append(c.verifiedProofs, proof)
	return c.acceptServer
}

type fakeSRPFactory struct {
	client    *fakeSRPClient
	err       error
	passwords []string
	moduli    [][]byte
}

func (f *fakeSRPFactory) NewClient(password string, modulus []byte) (core.SRPClient, error) {
	f.passwords = append(f.passwords, password)
	f.moduli = append(f.moduli, modulus)
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

type observerEvent struct {
	Observer string
	Phase    string
	Account  string
	Snapshot core.Snapshot
}

type recordingObserver struct {
	mu     sync.Mutex
	name   string
	events *[]observerEvent
}

func (o *recordingObserver) AcquireSessionLock(account string, snapshot core.Snapshot) {
	o.record("acquire", account, snapshot)
}

func (o *recordingObserver) ReleaseSessionLock(account string, snapshot core.Snapshot) {
	o.record("release", account, snapshot)
}

func (o *recordingObserver) record(phase, account string, snapshot core.Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	*o.events = append(*o.events, observerEvent{
		Observer: o.name,
		Phase:    phase,
		Account:  account,
		Snapshot: snapshot,
	})
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func (r *sleepRecorder) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func apiFailure(httpCode, bodyCode int, headers map[string]string) error {
	api := &core.APIError{HTTPCode: httpCode, BodyCode: bodyCode}
	if len(headers) > 0 {
		api.Headers = map[string][]string{}
		for key, value := range headers {
			api.Headers.Set(key, value)
		}
	}
	return core.WrapAPIError(api)
}

func newTestRegistry() *registry.Registry {
	return registry.New(registry.WithOverrideSource(func() string { return "" }))
}

func newTestSession(t *testing.T, transport *scriptedTransport, options ...Option) *Session {
	t.Helper()
	base := []Option{
		WithComponentRegistry(newTestRegistry()),
		WithEnvironment(fakeEnvironment{name: "test"}),
		WithModulusVerifier(&fakeVerifier{modulus: []byte("modulus")}),
	}
	if transport != nil {
		base = append(base, WithTransportFactory(staticTransportFactory{transport: transport}))
	}
	s, err := New(core.Config{AppVersion: "app/1.0.0", UserAgent: "tests"}, append(base, options...)...)
	if err != nil {
		t.Fatalf("expected session, got error: %v", err)
	}
	return s
}

func restoreCredentials(s *Session) {
	s.setCredentials("uid-1", "access-1", "refresh-1", []string{"full"}, "alice", false)
}
