package registry

import (
	"fmt"
	"testing"

	"github.com/goliatone/go-session/core"
)

type testComponent struct {
	AlwaysValid
	id       string
	priority *int
}

func (c *testComponent) Priority() (int, bool) {
	if c.priority == nil {
		return 0, false
	}
	return *c.priority, true
}

type probedComponent struct {
	id       string
	priority int
	valid    bool
	probes   []map[string]any
}

func (c *probedComponent) Priority() (int, bool) { return c.priority, true }

func (c *probedComponent) Validate(params map[string]any) bool {
	c.probes = append(c.probes, params)
	return c.valid
}

func intPtr(value int) *int { return &value }

func newTestRegistry(overrides string) *Registry {
	return New(WithOverrideSource(func() string { return overrides }))
}

func announceTransportTrio(t *testing.T) (a, b, c *testComponent) {
	t.Helper()
	a = &testComponent{id: "a", priority: intPtr(10)}
	b = &testComponent{id: "b", priority: intPtr(5)}
	c = &testComponent{id: "c"}
	Announce("transport", "a", func() (Component, error) { return a, nil })
	Announce("transport", "b", func() (Component, error) { return b, nil })
	Announce("transport", "c", func() (Component, error) { return c, nil })
	t.Cleanup(ClearAnnouncements)
	return a, b, c
}

func TestGetAll_OrderedByDescendingPriorityThenName(t *testing.T) {
	ClearAnnouncements()
	t.Cleanup(ClearAnnouncements)
	for _, name := range []string{"low", "high", "peer-a", "peer-b", "floating"} {
		name := name
		priority := map[string]*int{
			"low":      intPtr(1),
			"high":     intPtr(50),
			"peer-a":   intPtr(7),
			"peer-b":   intPtr(7),
			"floating": nil,
		}[name]
		component := &testComponent{id: name, priority: priority}
		Announce("keyring", name, func() (Component, error) { return component, nil })
	}

	registry := newTestRegistry("")
	entries, err := registry.GetAll("keyring")
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}

	wantOrder := []string{"high", "peer-b", "peer-a", "low"}
	for idx, want := range wantOrder {
		if entries[idx].Name != want {
			t.Fatalf("position %d: got %q want %q", idx, entries[idx].Name, want)
		}
		if entries[idx].Priority == nil {
			t.Fatalf("position %d: expected a priority", idx)
		}
	}
	if entries[4].Name != "floating" || entries[4].Priority != nil {
		t.Fatalf("expected null-priority entry last, got %+v", entries[4])
	}
}

func TestGetAll_ScenarioFromDocs(t *testing.T) {
	ClearAnnouncements()
	a, b, _ := announceTransportTrio(t)

	registry := newTestRegistry("")
	entries, err := registry.GetAll("transport")
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	got := []string{entries[0].Name, entries[1].Name, entries[2].Name}
	want := []string{"a", "b", "c"}
	for idx := range want {
		if got[idx] != want[idx] {
			t.Fatalf("unexpected order: got %v want %v", got, want)
		}
	}

	selected, err := registry.Get("transport")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if selected != Component(a) {
		t.Fatalf("expected highest-priority implementation")
	}

	excluding := newTestRegistry("transport=-a")
	selected, err = excluding.Get("transport")
	if err != nil {
		t.Fatalf("get with exclusion: %v", err)
	}
	if selected != Component(b) {
		t.Fatalf("expected b after excluding a")
	}

	forcing := newTestRegistry("transport=b")
	selected, err = forcing.Get("transport")
	if err != nil {
		t.Fatalf("get with force: %v", err)
	}
	if selected != Component(b) {
		t.Fatalf("expected forced implementation despite a's higher priority")
	}
}

func TestGetAll_ExcludedNameAbsentAndUnreachable(t *testing.T) {
	ClearAnnouncements()
	announceTransportTrio(t)

	registry := newTestRegistry("transport=-a")
	entries, err := registry.GetAll("transport")
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	for _, entry := range entries {
		if entry.Name == "a" {
			t.Fatalf("excluded name present in candidates")
		}
	}

	if _, err := registry.Get("transport", WithName("a")); err == nil {
		t.Fatalf("expected explicit request for excluded name to fail")
	} else if !core.IsUsageError(err) {
		t.Fatalf("expected not-found usage error, got %v", err)
	}
}

func TestGetAll_ForceUnknownNameFails(t *testing.T) {
	ClearAnnouncements()
	announceTransportTrio(t)

	registry := newTestRegistry("transport=nope")
	if _, err := registry.GetAll("transport"); !core.IsUsageError(err) {
		t.Fatalf("expected usage error for unknown forced implementation, got %v", err)
	}
}

func TestGetAll_ConflictingForceDirectivesFail(t *testing.T) {
	ClearAnnouncements()
	announceTransportTrio(t)

	registry := newTestRegistry("transport=a transport=b")
	if _, err := registry.GetAll("transport"); !core.IsUsageError(err) {
		t.Fatalf("expected usage error for conflicting force directives, got %v", err)
	}
}

func TestGetAll_RepeatedForceDirectiveCollapses(t *testing.T) {
	ClearAnnouncements()
	_, b, _ := announceTransportTrio(t)

	registry := newTestRegistry("transport=b transport=b")
	selected, err := registry.Get("transport")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if selected != Component(b) {
		t.Fatalf("expected forced implementation")
	}
}

func TestDiscovery_DuplicateNamePoisonsType(t *testing.T) {
	ClearAnnouncements()
	t.Cleanup(ClearAnnouncements)
	first := &testComponent{id: "first", priority: intPtr(1)}
	second := &testComponent{id: "second", priority: intPtr(2)}
	Announce("environment", "prod", func() (Component, error) { return first, nil })
	Announce("environment", "prod", func() (Component, error) { return second, nil })

	registry := newTestRegistry("")
	if _, err := registry.GetAll("environment"); !core.IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	// The whole type stays unusable afterwards.
	if _, err := registry.Get("environment"); !core.IsConfigurationError(err) {
		t.Fatalf("expected poisoned type on later lookups, got %v", err)
	}
}

func TestDiscovery_LoadFailureIsSkipped(t *testing.T) {
	ClearAnnouncements()
	t.Cleanup(ClearAnnouncements)
	healthy := &testComponent{id: "healthy", priority: intPtr(1)}
	Announce("keyring", "broken", func() (Component, error) {
		return nil, fmt.Errorf("missing native dependency")
	})
	Announce("keyring", "healthy", func() (Component, error) { return healthy, nil })

	registry := newTestRegistry("")
	entries, err := registry.GetAll("keyring")
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "healthy" {
		t.Fatalf("expected only the healthy implementation, got %+v", entries)
	}
}

func TestGet_SkipsNullPriorityAndProbesValidation(t *testing.T) {
	ClearAnnouncements()
	t.Cleanup(ClearAnnouncements)
	floating := &testComponent{id: "floating"}
	rejecting := &probedComponent{id: "rejecting", priority: 20, valid: false}
	accepting := &probedComponent{id: "accepting", priority: 10, valid: true}
	Announce("transport", "floating", func() (Component, error) { return floating, nil })
	Announce("transport", "rejecting", func() (Component, error) { return rejecting, nil })
	Announce("transport", "accepting", func() (Component, error) { return accepting, nil })

	registry := newTestRegistry("")
	params := map[string]any{"timeout": 5}
	selected, err := registry.Get("transport", WithValidateParams(params))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if selected != Component(accepting) {
		t.Fatalf("expected first validating implementation")
	}
	if len(rejecting.probes) != 1 || len(accepting.probes) != 1 {
		t.Fatalf("expected each prioritized implementation probed once")
	}
	if accepting.probes[0]["timeout"] != 5 {
		t.Fatalf("expected caller params forwarded to the probe")
	}
}

func TestGet_NoAcceptableImplementation(t *testing.T) {
	ClearAnnouncements()
	t.Cleanup(ClearAnnouncements)
	rejecting := &probedComponent{id: "rejecting", priority: 20, valid: false}
	Announce("transport", "rejecting", func() (Component, error) { return rejecting, nil })

	registry := newTestRegistry("")
	_, err := registry.Get("transport")
	if !core.IsUsageError(err) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestGetName_ReverseLookup(t *testing.T) {
	ClearAnnouncements()
	a, _, _ := announceTransportTrio(t)

	registry := newTestRegistry("")
	if _, err := registry.GetAll("transport"); err != nil {
		t.Fatalf("get all: %v", err)
	}

	name, ok := registry.GetName(a)
	if !ok {
		t.Fatalf("expected reverse lookup to succeed")
	}
	if name.TypeName != "transport" || name.Name != "a" {
		t.Fatalf("unexpected reverse lookup result: %+v", name)
	}

	if _, ok := registry.GetName(&testComponent{id: "unregistered"}); ok {
		t.Fatalf("expected unregistered implementation to be absent")
	}
}

func TestSetAll_BypassesDiscoveryAndUpdatesReverseCache(t *testing.T) {
	ClearAnnouncements()
	t.Cleanup(ClearAnnouncements)
	installed := &testComponent{id: "installed", priority: intPtr(3)}

	registry := newTestRegistry("")
	registry.SetAll("keyring", map[string]Component{"installed": installed})

	selected, err := registry.Get("keyring")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if selected != Component(installed) {
		t.Fatalf("expected installed implementation")
	}
	if name, ok := registry.GetName(installed); !ok || name.Name != "installed" {
		t.Fatalf("expected reverse cache update, got %+v ok=%v", name, ok)
	}
}

func TestReset_ForcesRediscovery(t *testing.T) {
	ClearAnnouncements()
	t.Cleanup(ClearAnnouncements)
	loads := 0
	component := &testComponent{id: "counted", priority: intPtr(1)}
	Announce("transport", "counted", func() (Component, error) {
		loads++
		return component, nil
	})

	registry := newTestRegistry("")
	for i := 0; i < 3; i++ {
		if _, err := registry.GetAll("transport"); err != nil {
			t.Fatalf("get all: %v", err)
		}
	}
	if loads != 1 {
		t.Fatalf("expected discovery to run once, ran %d times", loads)
	}

	registry.Reset()
	if _, err := registry.GetAll("transport"); err != nil {
		t.Fatalf("get all after reset: %v", err)
	}
	if loads != 2 {
		t.Fatalf("expected rediscovery after reset, load count %d", loads)
	}
}

func TestTypeNames_ListsAnnouncedTypes(t *testing.T) {
	ClearAnnouncements()
	t.Cleanup(ClearAnnouncements)
	Announce("transport", "a", func() (Component, error) { return &testComponent{id: "a"}, nil })
	Announce("environment", "prod", func() (Component, error) { return &testComponent{id: "p"}, nil })

	names := TypeNames()
	found := map[string]bool{}
	for _, name := range names {
		found[name] = true
	}
	if !found["transport"] || !found["environment"] {
		t.Fatalf("expected announced type names, got %v", names)
	}
}
