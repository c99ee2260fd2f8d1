// Package daemon wires the processor, checkpoint store, and run history into
// a single long-lived service with a file lock guaranteeing one instance per
// data directory. An optional HTTP API exposes read-only status, logs, and
// history; mutation goes through the IPC socket.
package daemon
