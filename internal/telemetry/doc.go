// Package telemetry collects typed property payloads from resolved devices.
//
// For each resolved (property, entity) pair the collector:
//
//  1. Polls the entity with a bounded readiness wait (not-ready sentinel
//     states re-polled on a fixed interval until a timeout)
//  2. Converts the raw state: on/off/trip to integer encodings for the
//     state property, first numeric token extraction for the rest
//  3. Applies the device's conversion factor (state exempt)
//  4. Rounds per the table-driven per-property policy
//
// Supported properties that remain absent are filled from the documented
// per-category defaults (sensor battery 100, socket voltage 220, socket
// current/power 0, breaker state off); everything else is omitted.
// Collection never fails as a whole — an empty payload tells the caller
// to skip publishing for that device this cycle.
package telemetry
