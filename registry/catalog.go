package registry

import (
	"strings"
	"sync"
)

// groupPrefix partitions the announcement catalog: the metadata group for a
// pluggable type is groupPrefix + typeName.
const groupPrefix = "session_loader_"

// Loader materializes an announced implementation. Returning an error marks
// the entry unusable; discovery skips it with a warning.
type Loader func() (Component, error)

type announcement struct {
	name string
	load Loader
}

var (
	catalogMu sync.Mutex
	catalog   = map[string][]announcement{}
)

// Announce registers an implementation loader for a pluggable type. It is
// meant to be called from init() in the implementing package. Announcing
// two entries with the same name under one type is not rejected here;
// discovery treats the collision as a fatal configuration error for the
// whole type.
func Announce(typeName, name string, load Loader) {
	typeName = strings.TrimSpace(typeName)
	name = strings.TrimSpace(name)
	if typeName == "" || name == "" || load == nil {
		return
	}
	group := groupPrefix + typeName
	catalogMu.Lock()
	catalog[group] = append(catalog[group], announcement{name: name, load: load})
	catalogMu.Unlock()
}

// TypeNames lists the pluggable types with at least one announcement.
func TypeNames() []string {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	names := make([]string, 0, len(catalog))
	for group := range catalog {
		names = append(names, strings.TrimPrefix(group, groupPrefix))
	}
	return names
}

// ClearAnnouncements drops every catalog entry. Test helper; packages that
// announce from init() will not re-announce afterwards.
func ClearAnnouncements() {
	catalogMu.Lock()
	catalog = map[string][]announcement{}
	catalogMu.Unlock()
}

func announcementsFor(typeName string) []announcement {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	entries := catalog[groupPrefix+typeName]
	out := make([]announcement, len(entries))
	copy(out, entries)
	return out
}
