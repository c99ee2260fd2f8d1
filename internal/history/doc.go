// Package history persists one summary row per processing run to SQLite,
// backing the history views of the control surfaces.
package history
