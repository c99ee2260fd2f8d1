// Package backend adapts model transports into the triage capability
// interface: classify document content as high or low quality and draft
// replacement titles.
//
// Transports are interchangeable. The configured endpoint path decides which
// wire shape a backend speaks: paths containing /chat/completions use the
// OpenAI-style chat schema, everything else the native ollama generate
// stream. Model output is free-form text; label and title extraction is a
// narrow best-effort parse that yields an empty result rather than an error
// when nothing usable is found.
package backend
