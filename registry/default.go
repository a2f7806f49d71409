package registry

import "sync"

var (
	defaultMu       sync.Mutex
	defaultRegistry *Registry
	defaultOptions  []Option
)

// Configure sets the options used when the shared registry is first
// constructed. It has no effect once Default has run; call Reset first to
// rebuild.
func Configure(options ...Option) {
	defaultMu.Lock()
	defaultOptions = options
	defaultMu.Unlock()
}

// Default returns the process-wide shared registry, constructing it once.
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRegistry == nil {
		defaultRegistry = New(defaultOptions...)
	}
	return defaultRegistry
}

// Reset clears the shared registry's discovery state. Test isolation
// helper; catalog announcements survive.
func Reset() {
	defaultMu.Lock()
	registry := defaultRegistry
	defaultMu.Unlock()
	if registry != nil {
		registry.Reset()
	}
}

// Get resolves an implementation through the shared registry.
func Get(typeName string, options ...LookupOption) (Component, error) {
	return Default().Get(typeName, options...)
}

// GetAll lists the ordered candidates through the shared registry.
func GetAll(typeName string) ([]Entry, error) {
	return Default().GetAll(typeName)
}

// GetName reverse-looks-up an implementation through the shared registry.
func GetName(implementation Component) (ComponentName, bool) {
	return Default().GetName(implementation)
}

// SetAll installs implementations on the shared registry.
func SetAll(typeName string, implementations map[string]Component) {
	Default().SetAll(typeName, implementations)
}
