// Package pipeline drives batch resolution of pending scans.
//
// The processor pulls NEW scans oldest first and works through them one at a
// time: the visual path (embed, index search, geometric rerank, confidence)
// when an index and embedder are wired, then text resolution against the
// catalog, then price extraction and cache writes. Each scan lands in exactly
// one terminal status; a failure marks that scan ERROR and the batch moves
// on. Cancellation takes effect between scans only, so the in-flight scan
// always finishes and reaches a terminal status.
package pipeline
