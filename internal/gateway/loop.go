package gateway

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-link-gateway/internal/resolver"
	"github.com/nerrad567/gray-link-gateway/internal/session"
	"github.com/nerrad567/gray-link-gateway/internal/source"
	"github.com/nerrad567/gray-link-gateway/internal/telemetry"
)

// EntityLister fetches the full entity snapshot used for discovery.
// Satisfied by *source.Client.
type EntityLister interface {
	ListEntities(ctx context.Context) ([]source.Entity, error)
}

// Collector builds per-device telemetry payloads.
// Satisfied by *telemetry.Collector.
type Collector interface {
	Collect(ctx context.Context, device *resolver.ResolvedDevice) telemetry.Payload
	CollectOne(ctx context.Context, device *resolver.ResolvedDevice, prop string) (any, bool)
}

// Broker is the session surface the loop needs.
// Satisfied by *session.Session.
type Broker interface {
	Publish(topic string, payload []byte) error
	Subscribe(topics ...string) error
}

// Logger is the narrow logging interface the loop needs.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Options configures loop scheduling.
type Options struct {
	// StartupDelay is waited once before the first discovery, giving the
	// source system time to finish its own startup.
	StartupDelay time.Duration

	// PushInterval is the telemetry push cadence.
	PushInterval time.Duration

	// DiscoveryInterval is the entity rediscovery cadence.
	DiscoveryInterval time.Duration

	// Topics builds publish topic names.
	Topics session.Topics
}

// telemetryEnvelope is the outbound telemetry payload contract.
type telemetryEnvelope struct {
	ID      int64          `json:"id"`
	Version string         `json:"version"`
	Params  map[string]any `json:"params"`
}

// envelopeVersion is the fixed payload version on the platform contract.
const envelopeVersion = "1.0"

// Loop orchestrates discovery and push cycles.
//
// The active catalog is replaced by atomic pointer swap after each
// discovery, so the telemetry cycle (this goroutine) and the command
// bridge (session delivery goroutine) never observe a partially-built
// catalog. Devices are processed in stable sorted order within a cycle;
// no cross-device ordering is guaranteed beyond that.
type Loop struct {
	entities  EntityLister
	resolver  *resolver.Resolver
	collector Collector
	broker    Broker
	specs     []resolver.DeviceSpec
	opts      Options
	logger    Logger

	catalog atomic.Pointer[resolver.Catalog]

	// now is stubbed in tests for deterministic envelope IDs.
	now func() time.Time
}

// New creates a Loop. logger may be nil.
func New(entities EntityLister, res *resolver.Resolver, collector Collector, broker Broker, specs []resolver.DeviceSpec, opts Options, logger Logger) *Loop {
	return &Loop{
		entities:  entities,
		resolver:  res,
		collector: collector,
		broker:    broker,
		specs:     specs,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Catalog returns the current catalog snapshot. Nil before the first
// successful discovery.
func (l *Loop) Catalog() *resolver.Catalog {
	return l.catalog.Load()
}

// Run drives the gateway until ctx is cancelled: one initial discovery
// and push, then periodic push cycles with periodic rediscovery.
// Returns nil on graceful shutdown.
func (l *Loop) Run(ctx context.Context) error {
	if l.opts.StartupDelay > 0 {
		l.logInfo("waiting before first discovery", "delay", l.opts.StartupDelay.String())
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.opts.StartupDelay):
		}
	}

	if err := l.Discover(ctx); err != nil {
		return err
	}
	l.Push(ctx)

	pushTicker := time.NewTicker(l.opts.PushInterval)
	defer pushTicker.Stop()
	discoveryTicker := time.NewTicker(l.opts.DiscoveryInterval)
	defer discoveryTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logInfo("gateway loop stopping")
			return nil
		case <-discoveryTicker.C:
			if err := l.Discover(ctx); err != nil {
				// Keep serving the previous catalog until the next cycle.
				l.logError("rediscovery failed", "error", err)
			}
		case <-pushTicker.C:
			l.Push(ctx)
		}
	}
}

// Discover fetches the entity snapshot, resolves it against the device
// catalog, swaps in the new catalog, and (re-)subscribes to every
// device's command topics.
func (l *Loop) Discover(ctx context.Context) error {
	entities, err := l.entities.ListEntities(ctx)
	if err != nil {
		return err
	}

	catalog := l.resolver.Resolve(entities, l.specs)
	l.catalog.Store(catalog)

	l.logInfo("discovery complete",
		"entities", len(entities),
		"devices", catalog.Len(),
	)

	return l.subscribeCommands(catalog)
}

// subscribeCommands subscribes to the command topics of every device in
// the catalog. Re-subscribing an already-subscribed topic is harmless.
func (l *Loop) subscribeCommands(catalog *resolver.Catalog) error {
	for _, id := range catalog.DeviceIDs() {
		device, ok := catalog.Device(id)
		if !ok {
			continue
		}
		key := device.Spec.RoutingKey
		if err := l.broker.Subscribe(l.opts.Topics.CommandTopics(key.ProductKey, key.DeviceName)...); err != nil {
			return err
		}
	}
	return nil
}

// Push runs one telemetry cycle over the current catalog. Per-device
// failures skip that device for the cycle; the cycle itself never fails.
func (l *Loop) Push(ctx context.Context) {
	catalog := l.catalog.Load()
	if catalog == nil {
		return
	}

	for _, id := range catalog.DeviceIDs() {
		if ctx.Err() != nil {
			return
		}

		device, ok := catalog.Device(id)
		if !ok {
			continue
		}

		payload := l.collector.Collect(ctx, device)
		if payload.Empty() {
			l.logWarn("empty payload, skipping publish", "device", id)
			continue
		}

		l.publish(device, payload.Properties)
	}
}

// PublishState re-publishes only the state property of one device.
// Called by the command bridge after a verified command so platform-side
// state converges before the next full push cycle.
func (l *Loop) PublishState(ctx context.Context, deviceID string) {
	catalog := l.catalog.Load()
	if catalog == nil {
		return
	}

	device, ok := catalog.Device(deviceID)
	if !ok {
		return
	}

	value, ok := l.collector.CollectOne(ctx, device, resolver.PropState)
	if !ok {
		return
	}

	l.publish(device, map[string]any{resolver.PropState: value})
}

// publish wraps properties in the platform envelope and sends them on
// the device's telemetry topic.
func (l *Loop) publish(device *resolver.ResolvedDevice, properties map[string]any) {
	envelope := telemetryEnvelope{
		ID:      l.now().UnixMilli(),
		Version: envelopeVersion,
		Params:  properties,
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		l.logError("encoding telemetry failed", "device", device.Spec.ID, "error", err)
		return
	}

	key := device.Spec.RoutingKey
	topic := l.opts.Topics.PropertyPost(key.ProductKey, key.DeviceName)
	if err := l.broker.Publish(topic, payload); err != nil {
		l.logError("publishing telemetry failed",
			"device", device.Spec.ID,
			"topic", topic,
			"error", err,
		)
		return
	}

	l.logDebug("telemetry published",
		"device", device.Spec.ID,
		"properties", len(properties),
	)
}

func (l *Loop) logError(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Error(msg, args...)
	}
}

func (l *Loop) logWarn(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Warn(msg, args...)
	}
}

func (l *Loop) logInfo(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Info(msg, args...)
	}
}

func (l *Loop) logDebug(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Debug(msg, args...)
	}
}
