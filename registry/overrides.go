package registry

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-session/core"
)

// OverridesEnvVar is the process-wide override configuration read on every
// lookup.
const OverridesEnvVar = "SESSION_LOADER_OVERRIDES"

type overrideDirective struct {
	force    string
	excluded map[string]bool
}

// parseOverrides extracts the directives targeting typeName from the raw
// override string. At most one distinct force token per type is allowed.
func parseOverrides(raw, typeName string) (overrideDirective, error) {
	directive := overrideDirective{excluded: map[string]bool{}}
	prefix := typeName + "="

	forces := map[string]bool{}
	for _, token := range strings.Fields(raw) {
		if !strings.HasPrefix(token, prefix) {
			continue
		}
		value := token[len(prefix):]
		if value == "" {
			continue
		}
		if strings.HasPrefix(value, "-") {
			directive.excluded[value[1:]] = true
			continue
		}
		forces[value] = true
	}

	switch len(forces) {
	case 0:
	case 1:
		for name := range forces {
			directive.force = name
		}
	default:
		return overrideDirective{}, core.NewUsageError(
			fmt.Sprintf("registry: overrides contain multiple force directives for %q", typeName),
		)
	}
	return directive, nil
}
