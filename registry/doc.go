// Package registry resolves pluggable components. A pluggable type is a
// named extension point ("transport", "environment", "keyring", ...) with
// zero or more competing implementations. Implementations announce
// themselves from init(), the way database/sql drivers register:
//
//	func init() {
//		registry.Announce("transport", "rest", func() (registry.Component, error) {
//			return NewFactory(nil), nil
//		})
//	}
//
// Callers resolve one implementation through Get, which honors priorities,
// validation probes, and the SESSION_LOADER_OVERRIDES environment variable.
// Overrides are whitespace-separated tokens of the form TYPE=NAME (force
// NAME) or TYPE=-NAME (exclude NAME) and are re-read on every lookup.
package registry
