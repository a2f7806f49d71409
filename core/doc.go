// Package core defines the shared contracts for the session manager: the
// transport and environment boundaries, the SRP engine boundary, persistence
// observers, snapshots, configuration, and the error taxonomy used across
// the module.
package core
