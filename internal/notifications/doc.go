// Package notifications delivers scan pipeline events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Each event class (resolved, no-match, error, batch summary) can be
// toggled independently so noisy classes can be silenced without losing the
// rest.
//
// Extend this package if you need alternative transports; pipeline code
// depends only on the simple Service interface.
package notifications
