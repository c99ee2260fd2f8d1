// Package checkpoint persists per-document processing outcomes so an
// interrupted batch can resume without re-evaluating documents or repeating
// archive writes.
//
// The store is a single JSON file rewritten in full after every save; volume
// is low and per-document latency is dominated by model calls, so the
// synchronous rewrite never matters. A corrupt or missing file silently
// becomes a fresh empty store: stale checkpoint state must never block
// processing.
package checkpoint
