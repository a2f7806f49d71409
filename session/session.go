package session

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-session/core"
	"github.com/goliatone/go-session/registry"
	"github.com/goliatone/go-session/security"
)

// Pluggable type names the session resolves through the component
// registry when no explicit implementation is injected.
const (
	typeEnvironment = "environment"
	typeTransport   = "transport"
	typeSRP         = "srp"
)

// twoFactorScope marks a session that authenticated but still owes a
// second factor before the full scope set is granted.
const twoFactorScope = "twofactor"

// Session tracks the credential state of one account and executes API
// calls against the configured environment. The zero value is not
// usable; construct with New or restore one with Restore.
//
// Credential fields (UID, access token, refresh token, scopes) always
// change as a group under one lock, so concurrent readers never observe
// a token from one login paired with scopes from another.
type Session struct {
	cfg     core.Config
	logger  core.Logger
	metrics core.MetricsRecorder

	components *registry.Registry
	verifier   core.ModulusVerifier
	srpFactory core.SRPFactory

	gate *gate
	exec executor

	// refreshRevision increments once per refresh cycle. Retry paths
	// capture it before a request and pass the observed value back in,
	// so a refresh that already happened is not repeated.
	refreshRevision atomic.Int64

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64

	mu               sync.Mutex
	uid              string
	accessToken      string
	refreshToken     string
	scopes           []string
	accountName      string
	awaitingSecond   bool
	environment      core.Environment
	transport        core.Transport
	transportFactory core.TransportFactory
	observers        []core.PersistenceObserver
}

type sessionBuilder struct {
	runtimeConfig    core.Config
	logger           core.Logger
	loggerProvider   core.LoggerProvider
	metrics          core.MetricsRecorder
	configProvider   core.ConfigProvider
	optionsResolver  core.OptionsResolver
	components       *registry.Registry
	verifier         core.ModulusVerifier
	srpFactory       core.SRPFactory
	transportFactory core.TransportFactory
	environment      core.Environment
	observers        []core.PersistenceObserver
	sleep            func(ctx context.Context, d time.Duration) error
	jitter           func() float64
}

type Option func(*sessionBuilder)

func WithLogger(logger core.Logger) Option {
	return func(b *sessionBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(b *sessionBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(b *sessionBuilder) {
		b.metrics = recorder
	}
}

func WithConfigProvider(provider core.ConfigProvider) Option {
	return func(b *sessionBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver core.OptionsResolver) Option {
	return func(b *sessionBuilder) {
		b.optionsResolver = resolver
	}
}

// WithComponentRegistry replaces the registry used to resolve the
// environment, transport and SRP pluggable types.
func WithComponentRegistry(components *registry.Registry) Option {
	return func(b *sessionBuilder) {
		b.components = components
	}
}

func WithModulusVerifier(verifier core.ModulusVerifier) Option {
	return func(b *sessionBuilder) {
		b.verifier = verifier
	}
}

func WithSRPFactory(factory core.SRPFactory) Option {
	return func(b *sessionBuilder) {
		b.srpFactory = factory
	}
}

func WithTransportFactory(factory core.TransportFactory) Option {
	return func(b *sessionBuilder) {
		b.transportFactory = factory
	}
}

func WithEnvironment(env core.Environment) Option {
	return func(b *sessionBuilder) {
		b.environment = env
	}
}

func WithPersistenceObserver(observer core.PersistenceObserver) Option {
	return func(b *sessionBuilder) {
		if observer != nil {
			b.observers = append(b.observers, observer)
		}
	}
}

// withSleep and withJitter let tests capture the retry backoff without
// waiting out real delays.
func withSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(b *sessionBuilder) {
		b.sleep = sleep
	}
}

func withJitter(jitter func() float64) Option {
	return func(b *sessionBuilder) {
		b.jitter = jitter
	}
}

// New builds a Session from defaults, the configured provider's values
// and the runtime config, in that order of precedence.
func New(cfg core.Config, options ...Option) (*Session, error) {
	builder := sessionBuilder{runtimeConfig: cfg}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("session", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("session"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metrics == nil {
		builder.metrics = core.NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = core.NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = core.GoOptionsResolver{}
	}
	if builder.sleep == nil {
		builder.sleep = sleepWithContext
	}
	if builder.jitter == nil {
		builder.jitter = rand.Float64
	}

	defaults := core.DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, err
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, err
	}

	if builder.components == nil {
		if finalConfig.Overrides != "" {
			overrides := finalConfig.Overrides
			builder.components = registry.New(
				registry.WithLogger(logger),
				registry.WithOverrideSource(func() string { return overrides }),
			)
		} else {
			builder.components = registry.Default()
		}
	}

	if builder.verifier == nil {
		verifier, err := security.DefaultModulusVerifier()
		if err != nil {
			return nil, err
		}
		builder.verifier = verifier
	}

	s := &Session{
		cfg:              finalConfig,
		logger:           logger,
		metrics:          builder.metrics,
		components:       builder.components,
		verifier:         builder.verifier,
		srpFactory:       builder.srpFactory,
		transportFactory: builder.transportFactory,
		environment:      builder.environment,
		observers:        builder.observers,
		gate:             newGate(),
		sleep:            builder.sleep,
		jitter:           builder.jitter,
	}
	return s, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AppVersion implements core.SessionState.
func (s *Session) AppVersion() string { return s.cfg.AppVersion }

// UserAgent implements core.SessionState.
func (s *Session) UserAgent() string { return s.cfg.UserAgent }

func (s *Session) UID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uid
}

func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

func (s *Session) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshToken
}

func (s *Session) Scopes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.scopes...)
}

func (s *Session) AccountName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountName
}

// Authenticated reports whether the session holds credentials. A session
// that still owes a second factor is authenticated.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uid != ""
}

// NeedsSecondFactor reports whether a second factor is still owed, either
// flagged at login or visible as the two-factor marker scope.
func (s *Session) NeedsSecondFactor() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.awaitingSecond {
		return true
	}
	for _, scope := range s.scopes {
		if scope == twoFactorScope {
			return true
		}
	}
	return false
}

// Environment returns the environment the session is bound to, resolving
// the default through the registry on first use. It returns nil when no
// environment is registered or selectable.
func (s *Session) Environment() core.Environment {
	env, err := s.resolveEnvironment()
	if err != nil {
		s.logError(context.Background(), "environment resolution failed", map[string]any{"error": err.Error()})
		return nil
	}
	return env
}

func (s *Session) resolveEnvironment() (core.Environment, error) {
	s.mu.Lock()
	if s.environment != nil {
		env := s.environment
		s.mu.Unlock()
		return env, nil
	}
	name := s.cfg.Environment
	s.mu.Unlock()

	lookups := []registry.LookupOption{}
	if name != "" {
		lookups = append(lookups, registry.WithName(name))
	}
	component, err := s.components.Get(typeEnvironment, lookups...)
	if err != nil {
		return nil, err
	}
	env, ok := component.(core.Environment)
	if !ok {
		return nil, core.NewConfigurationError("session: registered environment component does not implement core.Environment")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.environment == nil {
		s.environment = env
	}
	return s.environment, nil
}

// SetEnvironment pins the session to an environment. The environment is
// set-once: changing it under live credentials would desynchronize the
// tokens from the deployment that issued them.
func (s *Session) SetEnvironment(env core.Environment) error {
	if env == nil {
		return core.NewUsageError("session: environment must not be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.environment != nil && s.environment.Name() != env.Name() {
		return core.NewUsageError("session: environment is already set and cannot be changed")
	}
	s.environment = env
	return nil
}

// SetTransportFactory replaces the transport factory and drops any
// transport built from the previous one.
func (s *Session) SetTransportFactory(factory core.TransportFactory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transportFactory = factory
	s.transport = nil
}

// RegisterPersistenceObserver appends an observer. Observers are invoked
// in registration order on acquire and in reverse order on release.
func (s *Session) RegisterPersistenceObserver(observer core.PersistenceObserver) {
	if observer == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, observer)
}

func (s *Session) ensureTransport() (core.Transport, error) {
	s.mu.Lock()
	if s.transport != nil {
		t := s.transport
		s.mu.Unlock()
		return t, nil
	}
	factory := s.transportFactory
	s.mu.Unlock()

	if factory == nil {
		component, err := s.components.Get(typeTransport)
		if err != nil {
			return nil, err
		}
		resolved, ok := component.(core.TransportFactory)
		if !ok {
			return nil, core.NewConfigurationError("session: registered transport component does not implement core.TransportFactory")
		}
		factory = resolved
	}

	if _, err := s.resolveEnvironment(); err != nil {
		return nil, err
	}

	transport, err := factory.NewTransport(s)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transport == nil {
		s.transport = transport
		s.transportFactory = factory
	}
	return s.transport, nil
}

func (s *Session) resolveSRPFactory() (core.SRPFactory, error) {
	s.mu.Lock()
	factory := s.srpFactory
	s.mu.Unlock()
	if factory != nil {
		return factory, nil
	}

	component, err := s.components.Get(typeSRP)
	if err != nil {
		return nil, err
	}
	resolved, ok := component.(core.SRPFactory)
	if !ok {
		return nil, core.NewConfigurationError("session: registered srp component does not implement core.SRPFactory")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srpFactory == nil {
		s.srpFactory = resolved
	}
	return s.srpFactory, nil
}

// Dump captures the credential state as a snapshot. An unauthenticated
// session dumps the zero snapshot, which restores to an unauthenticated
// session.
func (s *Session) Dump() core.Snapshot {
	env := s.Environment()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uid == "" {
		return core.Snapshot{}
	}
	snapshot := core.Snapshot{
		UID:          s.uid,
		AccessToken:  s.accessToken,
		RefreshToken: s.refreshToken,
		Scopes:       append([]string(nil), s.scopes...),
		AccountName:  s.accountName,
	}
	if env != nil {
		snapshot.Environment = env.Name()
	}
	return snapshot
}

// Restore replaces the credential state with the snapshot's contents and
// drops the live transport. Restoring an empty snapshot clears the
// session.
func (s *Session) Restore(snapshot core.Snapshot) error {
	var env core.Environment
	if snapshot.Environment != "" {
		component, err := s.components.Get(typeEnvironment, registry.WithName(snapshot.Environment))
		if err != nil {
			return err
		}
		resolved, ok := component.(core.Environment)
		if !ok {
			return core.NewConfigurationError("session: registered environment component does not implement core.Environment")
		}
		env = resolved
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if env != nil && s.environment != nil && s.environment.Name() != env.Name() {
		return core.NewUsageError("session: snapshot environment conflicts with the session environment")
	}
	s.uid = snapshot.UID
	s.accessToken = snapshot.AccessToken
	s.refreshToken = snapshot.RefreshToken
	s.scopes = append([]string(nil), snapshot.Scopes...)
	s.accountName = snapshot.AccountName
	s.awaitingSecond = false
	if env != nil {
		s.environment = env
	}
	s.transport = nil
	return nil
}

func (s *Session) setCredentials(uid, accessToken, refreshToken string, scopes []string, accountName string, awaitingSecond bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uid = uid
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.scopes = append([]string(nil), scopes...)
	s.accountName = accountName
	s.awaitingSecond = awaitingSecond
}

func (s *Session) clearCredentials() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uid = ""
	s.accessToken = ""
	s.refreshToken = ""
	s.scopes = nil
	s.accountName = ""
	s.awaitingSecond = false
}

func (s *Session) updateTokens(uid, accessToken, refreshToken string, scopes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uid != "" {
		s.uid = uid
	}
	if accessToken != "" {
		s.accessToken = accessToken
	}
	if refreshToken != "" {
		s.refreshToken = refreshToken
	}
	if len(scopes) > 0 {
		s.scopes = append([]string(nil), scopes...)
	}
}

func (s *Session) setScopes(scopes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scopes = append([]string(nil), scopes...)
}

func (s *Session) clearSecondFactor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.awaitingSecond = false
}

// gateAcquire shuts the gate so ordinary requests block, then notifies
// observers in registration order with the current snapshot. gateRelease
// reverses both.
func (s *Session) gateAcquire() {
	s.gate.shut()

	account, observers := s.observersSnapshot()
	snapshot := s.Dump()
	for _, observer := range observers {
		observer.AcquireSessionLock(account, snapshot)
	}
}

func (s *Session) gateRelease() {
	account, observers := s.observersSnapshot()
	snapshot := s.Dump()
	for i := len(observers) - 1; i >= 0; i-- {
		observers[i].ReleaseSessionLock(account, snapshot)
	}

	s.gate.open()
}

func (s *Session) observersSnapshot() (string, []core.PersistenceObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountName, append([]core.PersistenceObserver(nil), s.observers...)
}

var _ core.SessionState = (*Session)(nil)
