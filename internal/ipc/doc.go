// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs for the
// control surface: start, pause/resume, stop, reset-stats, clear-checkpoints,
// status, logs, and history. Reuse these types when adding new RPC endpoints
// to keep the protocol compatible with existing command implementations.
package ipc
