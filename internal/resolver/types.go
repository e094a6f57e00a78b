package resolver

import "sort"

// Category classifies a platform device and drives domain compatibility
// during resolution.
type Category string

const (
	// CategorySensor is an environmental sensor (temperature, humidity, battery).
	CategorySensor Category = "environmental-sensor"

	// CategorySwitch is a binary on/off switch.
	CategorySwitch Category = "switch"

	// CategorySocket is a metered power socket (state plus electrical telemetry).
	CategorySocket Category = "socket"

	// CategoryBreaker is a circuit breaker (state may additionally report "trip").
	CategoryBreaker Category = "breaker"
)

// Electrical reports whether the category covers switch-like devices
// whose power metrics arrive as separate telemetry entities.
func (c Category) Electrical() bool {
	return c == CategorySwitch || c == CategorySocket || c == CategoryBreaker
}

// RoutingKey identifies a device on the messaging platform side.
type RoutingKey struct {
	ProductKey string
	DeviceName string
}

// DeviceSpec describes one platform device. Specs are immutable once
// loaded for a resolution cycle; the resolver and collector only read them.
type DeviceSpec struct {
	ID                  string
	Category            Category
	EntityPrefix        string
	SupportedProperties []string
	RoutingKey          RoutingKey
	DeviceSecret        string
	ConversionFactors   map[string]float64
	Enabled             bool
}

// Supports reports whether the spec lists the canonical property.
func (s DeviceSpec) Supports(property string) bool {
	for _, p := range s.SupportedProperties {
		if p == property {
			return true
		}
	}
	return false
}

// Factor returns the conversion factor for a property, defaulting to 1.0.
func (s DeviceSpec) Factor(property string) float64 {
	if f, ok := s.ConversionFactors[property]; ok {
		return f
	}
	return 1.0
}

// ResolvedDevice maps a device spec to the source entities backing each
// canonical property. Built once per resolution cycle and read-only
// afterwards; at most one entity per property (first match wins).
type ResolvedDevice struct {
	Spec       DeviceSpec
	Properties map[string]string // canonical property -> entity ID
}

// Catalog is the output of one resolution cycle. The gateway replaces
// the active catalog by atomic pointer swap, so concurrent readers
// (telemetry loop, command bridge) never see a partially-built map.
type Catalog struct {
	devices  map[string]*ResolvedDevice
	byRoute  map[RoutingKey]*ResolvedDevice
	ordering []string
}

// NewCatalog builds a catalog from resolved devices.
func NewCatalog(devices map[string]*ResolvedDevice) *Catalog {
	c := &Catalog{
		devices: devices,
		byRoute: make(map[RoutingKey]*ResolvedDevice, len(devices)),
	}
	for id, dev := range devices {
		c.ordering = append(c.ordering, id)
		c.byRoute[dev.Spec.RoutingKey] = dev
	}
	sort.Strings(c.ordering)
	return c
}

// Device returns the resolved device with the given ID.
func (c *Catalog) Device(id string) (*ResolvedDevice, bool) {
	dev, ok := c.devices[id]
	return dev, ok
}

// ByRoutingKey returns the resolved device with the given routing key.
func (c *Catalog) ByRoutingKey(key RoutingKey) (*ResolvedDevice, bool) {
	dev, ok := c.byRoute[key]
	return dev, ok
}

// DeviceIDs returns device IDs in stable (sorted) order. Push cycles
// iterate this so per-cycle processing order is deterministic.
func (c *Catalog) DeviceIDs() []string {
	return c.ordering
}

// Len returns the number of devices in the catalog.
func (c *Catalog) Len() int {
	return len(c.devices)
}
