// Package server wires the explorer together.
//
// Startup order:
//   - Storage backend (file, sqlite or memory) and session restore
//   - Overrides file seeding and the model catalog, reloaded on change
//   - Model client factory with an optional circuit breaker
//   - Generation pipeline and the WebSocket hub
//   - Gin router with trace ids, recovery, request logging, metrics, CORS
//     and rate limiting
//
// Close tears these down in reverse so that the final session flush sees the
// last streamed chunk.
package server
