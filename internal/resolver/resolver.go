package resolver

import (
	"regexp"
	"strings"

	"github.com/nerrad567/gray-link-gateway/internal/source"
)

// Logger is the narrow logging interface the resolver needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// Resolver maps noisy source entity identifiers onto the canonical
// device/property model. Resolution is deterministic: for a fixed entity
// list and spec list it always produces the same catalog.
type Resolver struct {
	logger Logger
}

// New creates a Resolver. logger may be nil.
func New(logger Logger) *Resolver {
	return &Resolver{logger: logger}
}

// indexSuffixPattern matches vendor-assigned disambiguation suffixes:
// a separator, one letter, then one or more digit groups ("_p3", "_p_3_2").
// Stripping it before matching keeps the semantic property name intact.
var indexSuffixPattern = regexp.MustCompile(`_[a-z](?:_?\d+)+$`)

// cleanSuffix strips a trailing pagination/index suffix from an entity
// object ID fragment.
func cleanSuffix(s string) string {
	return indexSuffixPattern.ReplaceAllString(s, "")
}

// nativeDomain returns the source domain an environmental sensor's
// entities live in.
const sensorDomain = "sensor"

// domainCompatible applies the category's domain filter. Environmental
// sensors accept only native sensor entities; electrical categories also
// accept sensor entities because their power metrics are reported as
// separate telemetry entities from the on/off control entity.
func domainCompatible(cat Category, domain string) bool {
	if cat == CategorySensor {
		return domain == sensorDomain
	}
	if cat.Electrical() {
		return domain == "switch" || domain == sensorDomain
	}
	return false
}

// matchPrefix reports whether the entity ID contains the spec's prefix.
// Sensor specs may carry the native domain fragment in their configured
// prefix ("sensor.hz2_01"); it is stripped before comparison so the
// prefix matches telemetry entities regardless of domain spelling.
func matchPrefix(spec DeviceSpec, entityID string) (rest string, ok bool) {
	prefix := spec.EntityPrefix
	if spec.Category == CategorySensor {
		prefix = strings.TrimPrefix(prefix, sensorDomain+".")
	}
	idx := strings.Index(entityID, prefix)
	if idx < 0 {
		return "", false
	}
	return strings.Trim(entityID[idx+len(prefix):], "_"), true
}

// matchProperty runs the tiered matching algorithm for one entity
// against one spec. Evaluated in strict priority order, first success
// wins:
//
//  1. Exact match of the declared device class.
//  2. Exact match of the full cleaned suffix.
//  3. Match of any underscore-delimited token of the cleaned suffix.
//  4. Substring containment of a canonical keyword in the friendly name.
func matchProperty(entity source.Entity, suffix string) (string, bool) {
	// Tier 1: device class attribute (most reliable).
	if class := strings.ToLower(entity.Attributes.DeviceClass); class != "" {
		if prop, ok := lookupExact(class); ok {
			return prop, true
		}
	}

	cleaned := cleanSuffix(strings.ToLower(suffix))

	// Tier 2: full cleaned suffix.
	if prop, ok := lookupExact(cleaned); ok {
		return prop, true
	}

	// Tier 3: individual suffix tokens.
	for _, token := range strings.Split(cleaned, "_") {
		if prop, ok := lookupExact(token); ok {
			return prop, true
		}
	}

	// Tier 4: canonical keywords inside the human-readable label.
	// canonicalVariants is ordered most-specific-first, so ambiguous
	// labels resolve deterministically.
	if name := strings.ToLower(entity.Attributes.FriendlyName); name != "" {
		for _, v := range canonicalVariants {
			if strings.Contains(name, v.name) {
				return v.canonical, true
			}
		}
	}

	return "", false
}

// Resolve builds a fresh catalog from the entity snapshot and device
// specs. Disabled specs are skipped. A device whose required properties
// find no entity is still resolved, just with those properties absent;
// the telemetry collector's default-value policy covers the gap.
func (r *Resolver) Resolve(entities []source.Entity, specs []DeviceSpec) *Catalog {
	devices := make(map[string]*ResolvedDevice, len(specs))

	for _, spec := range specs {
		if !spec.Enabled {
			continue
		}

		resolved := &ResolvedDevice{
			Spec:       spec,
			Properties: make(map[string]string),
		}

		for _, entity := range entities {
			if !domainCompatible(spec.Category, entity.Domain()) {
				continue
			}

			suffix, ok := matchPrefix(spec, entity.ID)
			if !ok {
				continue
			}

			prop, ok := matchProperty(entity, suffix)
			if !ok {
				continue
			}

			if !spec.Supports(prop) {
				continue
			}

			// First successful match wins; later candidates for an
			// already-resolved property are ignored.
			if _, exists := resolved.Properties[prop]; exists {
				continue
			}

			resolved.Properties[prop] = entity.ID
			if r.logger != nil {
				r.logger.Debug("entity resolved",
					"device", spec.ID,
					"property", prop,
					"entity", entity.ID,
				)
			}
		}

		devices[spec.ID] = resolved
		if r.logger != nil {
			r.logger.Info("device resolved",
				"device", spec.ID,
				"properties", len(resolved.Properties),
			)
		}
	}

	return NewCatalog(devices)
}
