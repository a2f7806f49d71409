package registry

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-session/core"
)

// Component is the capability contract every pluggable implementation has
// to satisfy. Priority returns false to opt out of automatic selection;
// Validate probes whether the implementation is usable right now (embed
// AlwaysValid when no probe is needed).
type Component interface {
	Priority() (int, bool)
	Validate(params map[string]any) bool
}

// AlwaysValid is the trivial validation hook for implementations that are
// always usable.
type AlwaysValid struct{}

func (AlwaysValid) Validate(map[string]any) bool { return true }

// Entry is one resolved implementation: its auto-selection priority (nil
// when opted out), its name, and the implementation handle.
type Entry struct {
	Priority       *int
	Name           string
	Implementation Component
}

// ComponentName identifies a registered implementation for reverse lookups.
type ComponentName struct {
	TypeName string
	Name     string
}

// Registry discovers and resolves pluggable components. Discovery for a
// type runs exactly once per Registry. Every lookup takes the mutex below
// briefly to consult the discovery state; candidate filtering and override
// parsing happen outside it.
type Registry struct {
	mu        sync.Mutex
	known     map[string]map[string]Component
	poisoned  map[string]error
	names     map[Component]ComponentName
	overrides func() string
	logger    core.Logger
}

type Option func(*Registry)

func WithLogger(logger core.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithOverrideSource replaces the default override source (the
// SESSION_LOADER_OVERRIDES environment variable). The source is consulted
// on every lookup, never cached.
func WithOverrideSource(source func() string) Option {
	return func(r *Registry) {
		if source != nil {
			r.overrides = source
		}
	}
}

func New(options ...Option) *Registry {
	registry := &Registry{
		known:     map[string]map[string]Component{},
		poisoned:  map[string]error{},
		names:     map[Component]ComponentName{},
		overrides: func() string { return os.Getenv(OverridesEnvVar) },
		logger:    glog.Nop(),
	}
	for _, option := range options {
		if option != nil {
			option(registry)
		}
	}
	return registry
}

// GetAll returns the filtered, ordered candidate entries for typeName.
// Entries carrying a priority come first, sorted strictly descending by
// (priority, name); entries without one follow in unspecified relative
// order. A force-override reduces the result to the named implementation;
// excluded names are absent entirely.
func (r *Registry) GetAll(typeName string) ([]Entry, error) {
	return r.getAll(typeName)
}

func (r *Registry) getAll(typeName string) ([]Entry, error) {
	typeName = strings.TrimSpace(typeName)
	if typeName == "" {
		return nil, core.NewUsageError("registry: type name is required")
	}

	implementations, err := r.discover(typeName)
	if err != nil {
		return nil, err
	}

	directive, err := parseOverrides(r.overrides(), typeName)
	if err != nil {
		return nil, err
	}

	var candidates []string
	if directive.force != "" {
		if _, known := implementations[directive.force]; !known {
			return nil, core.NewUsageError(fmt.Sprintf(
				"registry: override forces unknown implementation %q for %q",
				directive.force, typeName,
			))
		}
		candidates = []string{directive.force}
	} else {
		for name := range implementations {
			if !directive.excluded[name] {
				candidates = append(candidates, name)
			}
		}
	}

	var prioritized, unprioritized []Entry
	for _, name := range candidates {
		implementation := implementations[name]
		if value, ok := implementation.Priority(); ok {
			priority := value
			prioritized = append(prioritized, Entry{
				Priority:       &priority,
				Name:           name,
				Implementation: implementation,
			})
			continue
		}
		unprioritized = append(unprioritized, Entry{Name: name, Implementation: implementation})
	}

	sort.Slice(prioritized, func(i, j int) bool {
		if *prioritized[i].Priority != *prioritized[j].Priority {
			return *prioritized[i].Priority > *prioritized[j].Priority
		}
		return prioritized[i].Name > prioritized[j].Name
	})
	sort.Slice(unprioritized, func(i, j int) bool {
		return unprioritized[i].Name < unprioritized[j].Name
	})

	return append(prioritized, unprioritized...), nil
}

// discover loads the catalog announcements for typeName exactly once. Two
// announcements sharing a name poison the whole type: shadowing an expected
// implementation is how tampering hides, so nothing usable survives.
func (r *Registry) discover(typeName string) (map[string]Component, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err, bad := r.poisoned[typeName]; bad {
		return nil, err
	}
	if implementations, done := r.known[typeName]; done {
		return implementations, nil
	}

	implementations := map[string]Component{}
	seen := map[string]bool{}
	for _, entry := range announcementsFor(typeName) {
		if seen[entry.name] {
			err := core.NewConfigurationError(fmt.Sprintf(
				"registry: found two implementations named %q for %q",
				entry.name, typeName,
			))
			r.poisoned[typeName] = err
			return nil, err
		}
		seen[entry.name] = true
		implementation, err := entry.load()
		if err != nil {
			r.logger.Warn("registry: implementation failed to load, skipping",
				"type", typeName, "name", entry.name, "error", err)
			continue
		}
		implementations[entry.name] = implementation
		r.names[implementation] = ComponentName{TypeName: typeName, Name: entry.name}
	}

	r.known[typeName] = implementations
	return implementations, nil
}

type lookup struct {
	name   string
	params map[string]any
}

type LookupOption func(*lookup)

// WithName requests a specific implementation instead of automatic
// selection. The name still has to survive override filtering.
func WithName(name string) LookupOption {
	return func(l *lookup) { l.name = strings.TrimSpace(name) }
}

// WithValidateParams passes caller-supplied parameters to validation
// probes during automatic selection.
func WithValidateParams(params map[string]any) LookupOption {
	return func(l *lookup) { l.params = params }
}

// Get resolves one implementation for typeName. With WithName it returns
// that entry if present in the filtered candidate set. Otherwise it walks
// the ordered candidates: entries without a priority are never
// auto-selected, and the first entry whose validation probe accepts wins.
func (r *Registry) Get(typeName string, options ...LookupOption) (Component, error) {
	var query lookup
	for _, option := range options {
		if option != nil {
			option(&query)
		}
	}

	entries, err := r.getAll(typeName)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if query.name != "" {
			if entry.Name == query.name {
				return entry.Implementation, nil
			}
			continue
		}
		if entry.Priority == nil {
			continue
		}
		if entry.Implementation.Validate(query.params) {
			return entry.Implementation, nil
		}
	}

	if query.name != "" {
		return nil, core.NewUsageError(fmt.Sprintf(
			"registry: implementation %q not found for %q", query.name, typeName,
		))
	}
	return nil, core.NewUsageError(fmt.Sprintf(
		"registry: no acceptable implementation for %q", typeName,
	))
}

// GetName reverse-looks-up the type and name an implementation was
// registered under.
func (r *Registry) GetName(implementation Component) (ComponentName, bool) {
	if implementation == nil {
		return ComponentName{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	name, ok := r.names[implementation]
	return name, ok
}

// SetAll installs a complete implementation map for typeName, bypassing
// discovery. Meant for tests and embedders.
func (r *Registry) SetAll(typeName string, implementations map[string]Component) {
	typeName = strings.TrimSpace(typeName)
	if typeName == "" {
		return
	}
	installed := make(map[string]Component, len(implementations))
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.poisoned, typeName)
	for name, implementation := range implementations {
		name = strings.TrimSpace(name)
		if name == "" || implementation == nil {
			continue
		}
		installed[name] = implementation
		r.names[implementation] = ComponentName{TypeName: typeName, Name: name}
	}
	r.known[typeName] = installed
}

// Reset erases all discovery state and the reverse-lookup cache so the next
// lookup re-discovers. Test isolation helper.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.known = map[string]map[string]Component{}
	r.poisoned = map[string]error{}
	r.names = map[Component]ComponentName{}
}
