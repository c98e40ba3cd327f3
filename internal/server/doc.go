// Package server receives GitHub webhook deliveries and turns them into
// generation runs.
//
// The server verifies each delivery against the shared webhook secret,
// decodes the events the pipeline cares about, and hands them to a
// Dispatcher on a separate goroutine so GitHub sees an acknowledgement
// immediately instead of waiting on a model call.
//
// # Endpoints
//
//   - POST /webhook - GitHub webhook deliveries (push, issue_comment, ping)
//   - GET /healthz - Liveness check
//
// # Verification
//
// Deliveries are authenticated with the HMAC-SHA256 signature GitHub sends
// in the X-Hub-Signature-256 header. When no secret is configured the
// server accepts unsigned deliveries and logs a warning at startup.
package server
