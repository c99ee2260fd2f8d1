// Package openaichat wraps OpenAI-style chat-completion endpoints.
//
// The response is a single JSON object; the completion text lives at
// choices[0].message.content.
package openaichat
