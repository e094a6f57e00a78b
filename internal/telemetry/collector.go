package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/gray-link-gateway/internal/resolver"
	"github.com/nerrad567/gray-link-gateway/internal/source"
)

// StateReader reads entity states from the source system.
// Satisfied by *source.Client.
type StateReader interface {
	GetState(ctx context.Context, entityID string) (string, error)
}

// Logger is the narrow logging interface the collector needs.
type Logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Payload is one device's telemetry for a push cycle. Values are float64
// for numeric properties and int for the state property. Payloads are
// discarded after publish.
type Payload struct {
	Properties map[string]any
}

// Empty reports whether the payload carries no properties at all.
// An empty payload means collection failed entirely and the publish step
// for the device should be skipped this cycle.
func (p Payload) Empty() bool {
	return len(p.Properties) == 0
}

// Options configures collection timing.
type Options struct {
	// ReadinessTimeout bounds how long a single entity may report a
	// not-ready sentinel before being treated as unavailable.
	ReadinessTimeout time.Duration

	// ReadinessPoll is the fixed wait between readiness re-polls.
	ReadinessPoll time.Duration
}

// Collector polls resolved entities and produces typed, scaled,
// rounded property payloads.
type Collector struct {
	reader StateReader
	opts   Options
	logger Logger
}

// NewCollector creates a Collector. logger may be nil.
func NewCollector(reader StateReader, opts Options, logger Logger) *Collector {
	return &Collector{
		reader: reader,
		opts:   opts,
		logger: logger,
	}
}

// Collect polls every resolved property of a device and builds its
// payload. Individual read failures are logged and the property is
// omitted or defaulted; Collect itself never fails. The device spec is
// only read, never mutated.
func (c *Collector) Collect(ctx context.Context, device *resolver.ResolvedDevice) Payload {
	payload := Payload{Properties: make(map[string]any)}
	spec := device.Spec

	for prop, entityID := range device.Properties {
		raw, err := c.readReady(ctx, entityID)
		if err != nil {
			c.logWarn("entity read failed",
				"device", spec.ID,
				"property", prop,
				"entity", entityID,
				"error", err,
			)
			continue
		}

		value, err := c.convert(spec, prop, raw)
		if err != nil {
			c.logWarn("state conversion failed",
				"device", spec.ID,
				"property", prop,
				"raw", raw,
				"error", err,
			)
			continue
		}

		payload.Properties[prop] = value
	}

	c.substituteDefaults(spec, payload)

	return payload
}

// CollectOne polls and converts a single resolved property. Returns
// false when the property is unresolved or the read or conversion
// failed; no default substitution applies here.
//
// Used for the out-of-band state re-publish after a verified command.
func (c *Collector) CollectOne(ctx context.Context, device *resolver.ResolvedDevice, prop string) (any, bool) {
	entityID, ok := device.Properties[prop]
	if !ok {
		return nil, false
	}

	raw, err := c.readReady(ctx, entityID)
	if err != nil {
		c.logWarn("entity read failed",
			"device", device.Spec.ID,
			"property", prop,
			"entity", entityID,
			"error", err,
		)
		return nil, false
	}

	value, err := c.convert(device.Spec, prop, raw)
	if err != nil {
		c.logWarn("state conversion failed",
			"device", device.Spec.ID,
			"property", prop,
			"raw", raw,
			"error", err,
		)
		return nil, false
	}

	return value, true
}

// readReady polls an entity until it reports a usable value or the
// readiness budget elapses. Read errors are treated like not-ready
// states: wait and re-poll within the same budget.
func (c *Collector) readReady(ctx context.Context, entityID string) (string, error) {
	deadline := time.Now().Add(c.opts.ReadinessTimeout)

	for {
		raw, err := c.reader.GetState(ctx, entityID)
		if err == nil && source.IsReady(raw) {
			return raw, nil
		}

		if time.Now().After(deadline) {
			if err != nil {
				return "", err
			}
			return "", errors.New("entity not ready within readiness timeout")
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.opts.ReadinessPoll):
		}
	}
}

// convert turns a raw state into the typed, scaled, rounded value
// published for one property. The state property maps on/off (and trip
// for breakers) to its integer encoding and is exempt from scaling.
func (c *Collector) convert(spec resolver.DeviceSpec, prop, raw string) (any, error) {
	if prop == resolver.PropState {
		return parseState(raw, spec.Category)
	}

	value, err := parseNumeric(raw)
	if err != nil {
		return nil, err
	}

	value *= spec.Factor(prop)
	return roundProperty(prop, value), nil
}

// substituteDefaults fills in documented defaults for supported
// properties that are still absent after polling. Defaults pass through
// the same conversion factor as collected values; the state default is
// published as-is.
func (c *Collector) substituteDefaults(spec resolver.DeviceSpec, payload Payload) {
	for _, prop := range spec.SupportedProperties {
		if _, ok := payload.Properties[prop]; ok {
			continue
		}

		d, ok := defaultFor(spec.Category, prop)
		if !ok {
			continue
		}

		if d.isState {
			payload.Properties[prop] = int(d.value)
		} else {
			payload.Properties[prop] = roundProperty(prop, d.value*spec.Factor(prop))
		}

		c.logDebug("default substituted",
			"device", spec.ID,
			"property", prop,
			"value", payload.Properties[prop],
		)
	}
}

func (c *Collector) logWarn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Collector) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
