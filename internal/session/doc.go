// Package session manages the broker connection for Gray Link Gateway.
//
// This package owns:
//   - Connection lifecycle (DISCONNECTED → CONNECTING → CONNECTED) with
//     a session-driven exponential backoff reconnect loop (1s doubling
//     to a 60s ceiling, reset on success)
//   - Rotating credentials: HMAC-SHA256 over a 300-second window counter
//     keyed by the device secret, recomputed before every connect
//   - Reference clock synchronisation (NTP) so token windows are not
//     skewed by the local clock; sync failure falls back to the local
//     clock with a warning
//   - Topic subscriptions, tracked and restored after every reconnect
//     (the broker does not preserve them across a hard disconnect)
//   - Inbound delivery through a bounded queue, decoupling broker
//     callback goroutines from the command bridge
//
// No component other than the session may touch the broker connection.
package session
