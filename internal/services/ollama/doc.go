// Package ollama wraps the native ollama /api/generate completion endpoint.
//
// The endpoint streams newline-delimited JSON fragments; the client
// concatenates the response fields into the full completion text.
package ollama
