// Package session owns credential state for one account against the
// remote API and drives the SRP login, second factor, token refresh,
// logout and lock flows. Ordinary calls retry transparently under the
// classification rules of the API (throttling, gateway hiccups, token
// expiry); mutating operations close a gate that ordinary calls wait on,
// and persistence observers are notified around every mutation.
//
// Every operation has a context-taking variant and a Sync variant. Sync
// variants run the operation to completion on a private, isolated
// execution context; calling one from within that context is a usage
// error, never a silent fallback.
package session
