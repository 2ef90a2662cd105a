// Package store persists the resolution cache in SQLite: catalog card
// records, their price snapshots, and the append-only scan attempt log.
//
// The Store manages database connections, embedded schema migrations, busy
// retries, stats queries, and the scan status transitions that mirror the
// public pipeline enum. Cards and prices are caches keyed by catalog id;
// scans are never deleted, only moved between statuses.
//
// Price reads are TTL-gated: GetPrice returns a snapshot only when it was
// written strictly within the caller's max age, so a zero max age always
// forces a fresh catalog fetch. Schema changes add a numbered file under
// migrations/; applied versions are tracked in schema_migrations.
package store
