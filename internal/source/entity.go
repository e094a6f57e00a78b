package source

import "strings"

// Entity is one externally-reported state source from the source system,
// as returned by GET /api/states. Entities are ephemeral: each discovery
// or poll call returns a fresh snapshot and nothing mutates them in place.
type Entity struct {
	ID         string     `json:"entity_id"`
	State      string     `json:"state"`
	Attributes Attributes `json:"attributes"`
}

// Attributes carries the entity metadata used for device matching.
type Attributes struct {
	DeviceClass       string `json:"device_class,omitempty"`
	FriendlyName      string `json:"friendly_name,omitempty"`
	UnitOfMeasurement string `json:"unit_of_measurement,omitempty"`
}

// Domain returns the entity's domain, derived from the identifier prefix
// before the first separator ("sensor.kitchen_temp" → "sensor").
func (e Entity) Domain() string {
	if i := strings.Index(e.ID, "."); i >= 0 {
		return e.ID[:i]
	}
	return ""
}

// ObjectID returns the identifier suffix after the domain separator
// ("sensor.kitchen_temp" → "kitchen_temp").
func (e Entity) ObjectID() string {
	if i := strings.Index(e.ID, "."); i >= 0 {
		return e.ID[i+1:]
	}
	return e.ID
}

// Not-ready sentinel states. An entity reporting one of these has no
// usable value yet; the telemetry collector waits and re-polls within
// its readiness budget before treating the entity as unavailable.
var notReadyStates = map[string]bool{
	"":            true,
	"unknown":     true,
	"unavailable": true,
	"none":        true,
}

// IsReady reports whether a raw state string carries a usable value.
func IsReady(state string) bool {
	return !notReadyStates[strings.ToLower(state)]
}
