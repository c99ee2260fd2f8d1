// Package paperless consumes the paperless-ngx REST API: paginated document
// listing, detail fetch, tag and title updates, and bulk tag modification.
//
// Every call carries the static API token. Mutating calls additionally carry
// a CSRF token the caller fetches once per batch via FetchCSRFToken. Network
// calls retry a bounded number of times with a fixed delay on transient
// failures, then surface the last error.
package paperless
