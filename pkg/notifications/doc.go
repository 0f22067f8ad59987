// Package notifications implements the forum notification delivery engine.
//
// A producer describes an event as a Candidate (see the constructors in
// triggers.go) and hands it to Service.Create. The service resolves the
// recipient's Settings, asks the pure policy function Evaluate whether the
// candidate is delivered, persists accepted candidates through Storage and
// publishes an Event for the recipient on the bus. Suppressed candidates are
// never persisted and are not errors.
//
// Read state moves one way, unread to read. MarkRead and MarkAllRead are
// idempotent and publish only when something changed. Every published event
// carries the unread count recomputed from storage at publish time.
//
// Storage, SettingsStorage and UserDirectory have two implementations:
// MemoryStorage for tests and local runs, PostgresStorage for production.
package notifications
