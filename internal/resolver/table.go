package resolver

// Canonical property names. Every vendor naming variant normalises into
// this small fixed vocabulary.
const (
	PropTemp        = "temp"
	PropHum         = "hum"
	PropBatt        = "batt"
	PropState       = "state"
	PropCurrent     = "current"
	PropVoltage     = "voltage"
	PropActivePower = "active_power"
	PropEnergy      = "energy"
	PropFrequency   = "frequency"
)

// variant pairs one naming variant with its canonical property.
type variant struct {
	name      string
	canonical string
}

// canonicalVariants is the single static table mapping naming variants
// (full words, abbreviations, unit-suffixed forms, device classes) to
// canonical properties. Ordering matters for the friendly-name substring
// scan: more specific variants come before shorter ones they contain, so
// "power_consumption" resolves to energy before a bare "power" can claim
// it for active_power.
var canonicalVariants = []variant{
	// Accumulated consumption. Listed before the power variants so that
	// consumption-flavoured names never fall through to instantaneous power.
	{"power_consumption", PropEnergy},
	{"energy_consumed", PropEnergy},
	{"total_energy", PropEnergy},
	{"consumption", PropEnergy},
	{"energy_kwh", PropEnergy},
	{"energy", PropEnergy},
	{"kwh", PropEnergy},

	// Instantaneous power.
	{"active_power", PropActivePower},
	{"instant_power", PropActivePower},
	{"power_w", PropActivePower},
	{"power", PropActivePower},

	// Temperature.
	{"temperature", PropTemp},
	{"temp_c", PropTemp},
	{"temp_f", PropTemp},
	{"temp", PropTemp},

	// Humidity.
	{"humidity_percent", PropHum},
	{"humidity", PropHum},
	{"hum", PropHum},

	// Battery.
	{"battery_level", PropBatt},
	{"battery_percent", PropBatt},
	{"battery", PropBatt},
	{"batt", PropBatt},

	// Electrical telemetry.
	{"current_a", PropCurrent},
	{"amperage", PropCurrent},
	{"current", PropCurrent},
	{"voltage_v", PropVoltage},
	{"voltage", PropVoltage},
	{"volt", PropVoltage},
	{"frequency_hz", PropFrequency},
	{"frequency", PropFrequency},
	{"freq", PropFrequency},

	// Binary state.
	{"on_off", PropState},
	{"switch", PropState},
	{"state", PropState},
}

// canonicalExact indexes the table for exact lookups (device class,
// cleaned suffix, suffix tokens). Built once at init.
var canonicalExact = func() map[string]string {
	m := make(map[string]string, len(canonicalVariants))
	for _, v := range canonicalVariants {
		// First entry wins; later duplicates would silently change
		// priority, so keep the table free of them.
		if _, exists := m[v.name]; !exists {
			m[v.name] = v.canonical
		}
	}
	return m
}()

// lookupExact returns the canonical property for an exact variant name.
func lookupExact(name string) (string, bool) {
	prop, ok := canonicalExact[name]
	return prop, ok
}
