// Package metrics exports Prometheus metrics for the notification engine:
// created and suppressed notifications, read transitions, live stream
// lifecycle, frames per event type, bus handler panics and per-route HTTP
// traffic. All collectors live on one Metrics value registered with a
// caller-supplied registry, so tests can use a fresh prometheus.NewRegistry.
package metrics
