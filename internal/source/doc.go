// Package source provides the client for the source state API.
//
// The source system (Home Assistant) exposes the entities the gateway
// bridges to the cloud platform:
//
//   - GET /api/states          — full entity list (discovery)
//   - GET /api/states/{id}     — single entity state (telemetry poll)
//   - POST /api/services/...   — state-changing actions (commands)
//
// All calls are bearer-token authenticated with explicit timeouts.
// Snapshot reads (Ping, ListEntities) are retried through
// internal/infrastructure/retry; single-state reads surface errors
// directly, because the telemetry collector's readiness budget already
// re-polls them. The transport layer underneath (resty) is treated as a
// black box.
package source
