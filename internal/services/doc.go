// Package services defines shared utilities consumed by the resolution
// pipeline and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp scan IDs and correlation identifiers for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification consistent across the catalog client, store, and
//     pipeline.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across the system.
package services
