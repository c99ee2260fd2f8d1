// Package processor drives the per-document triage state machine.
//
// A run is strictly single-flow: documents are handled one at a time, in
// order, so checkpoint resume semantics stay correct. Pause and stop are
// cooperative and only take effect at document boundaries; in-flight archive
// or model calls are never interrupted. All shared state (stats, current
// document, log buffer) is guarded by one mutex and exposed to control
// surfaces as snapshots.
package processor
