// Package bridge routes inbound broker commands to the source system.
//
// The bridge consumes the session's bounded inbound queue, extracts the
// routing key from the topic, resolves the target device against the
// current catalog snapshot, invokes the binary-toggle action on the
// device's state entity, and verifies the change by re-reading the
// entity after a short delay.
//
// Every inbound command is answered with exactly one correlated reply:
//
//	200  verified success (data carries the resulting state)
//	400  payload could not be parsed or carries no usable state request
//	460  routing key matches no device in the catalog
//	461  device has no resolved state entity
//	462  action invoked but the state change was not confirmed
//	500  action or transport failure
//
// On verified success the bridge additionally triggers a state-only
// telemetry re-publish, after the reply, so platform-side state
// converges without waiting for the next push cycle.
package bridge
