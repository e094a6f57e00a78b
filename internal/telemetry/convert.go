package telemetry

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-link-gateway/internal/resolver"
)

// numberPattern extracts the first signed decimal or integer token from
// a raw state. Supports values embedded with units ("220 V" → 220).
var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// parseNumeric extracts a numeric value from a raw state string.
func parseNumeric(raw string) (float64, error) {
	token := numberPattern.FindString(raw)
	if token == "" {
		return 0, fmt.Errorf("no numeric token in %q", raw)
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", token, err)
	}
	return v, nil
}

// Binary state encodings published to the platform.
const (
	stateOff  = 0
	stateOn   = 1
	stateTrip = 2
)

// parseState converts a raw binary-state value to its platform encoding.
// Breakers additionally report a tripped condition.
func parseState(raw string, cat resolver.Category) (int, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on":
		return stateOn, nil
	case "off":
		return stateOff, nil
	case "trip", "tripped":
		if cat == resolver.CategoryBreaker {
			return stateTrip, nil
		}
	}
	return 0, fmt.Errorf("unrecognised state %q", raw)
}

// roundingDecimals is the fixed per-property rounding policy. It applies
// identically across device categories; properties not listed are
// published unrounded.
var roundingDecimals = map[string]int{
	resolver.PropCurrent:     2,
	resolver.PropVoltage:     1,
	resolver.PropTemp:        1,
	resolver.PropHum:         1,
	resolver.PropFrequency:   1,
	resolver.PropActivePower: 1,
	resolver.PropEnergy:      3,
	resolver.PropBatt:        0,
}

// roundProperty applies the rounding policy for one property.
func roundProperty(property string, value float64) float64 {
	decimals, ok := roundingDecimals[property]
	if !ok {
		return value
	}
	shift := math.Pow10(decimals)
	return math.Round(value*shift) / shift
}

// propertyDefault holds a documented default for a property a device
// supports but could not resolve or read. The default is scaled by the
// device's conversion factor like a collected value would be, except for
// the state property which is never scaled.
type propertyDefault struct {
	value   float64
	isState bool
}

// categoryDefaults documents the substitution policy per category.
// Properties without an entry are simply omitted from the payload.
var categoryDefaults = map[resolver.Category]map[string]propertyDefault{
	resolver.CategorySensor: {
		resolver.PropBatt: {value: 100},
	},
	resolver.CategorySocket: {
		resolver.PropVoltage:     {value: 220},
		resolver.PropCurrent:     {value: 0},
		resolver.PropActivePower: {value: 0},
	},
	resolver.CategoryBreaker: {
		resolver.PropState: {value: stateOff, isState: true},
	},
}

// defaultFor returns the documented default for a (category, property)
// pair, if one exists.
func defaultFor(cat resolver.Category, property string) (propertyDefault, bool) {
	defaults, ok := categoryDefaults[cat]
	if !ok {
		return propertyDefault{}, false
	}
	d, ok := defaults[property]
	return d, ok
}
