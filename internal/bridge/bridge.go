package bridge

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nerrad567/gray-link-gateway/internal/resolver"
	"github.com/nerrad567/gray-link-gateway/internal/session"
)

// CatalogProvider supplies the current device catalog snapshot.
// Satisfied by the gateway's atomic catalog holder.
type CatalogProvider interface {
	Catalog() *resolver.Catalog
}

// ActionClient executes and verifies state changes on the source system.
// Satisfied by *source.Client.
type ActionClient interface {
	CallService(ctx context.Context, domain, service, entityID string) error
	GetState(ctx context.Context, entityID string) (string, error)
}

// Publisher sends acknowledgements back to the broker.
// Satisfied by *session.Session.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// StateNotifier triggers an out-of-band re-publish of a device's state
// property after a verified command, so platform-side state converges
// without waiting for the next full push cycle.
type StateNotifier interface {
	PublishState(ctx context.Context, deviceID string)
}

// Logger is the narrow logging interface the bridge needs.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Options configures the bridge.
type Options struct {
	// Topics builds reply topic names.
	Topics session.Topics

	// VerifyDelay is the wait between invoking the action and re-reading
	// the entity state to confirm the change took effect.
	VerifyDelay time.Duration
}

// Bridge turns inbound command messages into verified source actions.
//
// Every inbound command produces exactly one correlated reply, whatever
// branch it takes; action and transport failures are answered with error
// codes, never allowed to crash the loop. The reply is always published
// before the state re-publish is triggered.
type Bridge struct {
	catalogs CatalogProvider
	actions  ActionClient
	pub      Publisher
	notifier StateNotifier
	opts     Options
	logger   Logger
}

// New creates a Bridge. notifier and logger may be nil.
func New(catalogs CatalogProvider, actions ActionClient, pub Publisher, notifier StateNotifier, opts Options, logger Logger) *Bridge {
	return &Bridge{
		catalogs: catalogs,
		actions:  actions,
		pub:      pub,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
	}
}

// Run consumes inbound messages until ctx is cancelled or the channel
// closes. Intended to run on its own goroutine.
func (b *Bridge) Run(ctx context.Context, messages <-chan session.InboundMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			b.handle(ctx, msg)
		}
	}
}

// handle processes one inbound command end to end.
func (b *Bridge) handle(ctx context.Context, msg session.InboundMessage) {
	key, ok := parseRoutingKey(msg.Topic)
	if !ok {
		// Without a routing key there is no reply topic to answer on.
		b.logWarn("unroutable inbound message", "topic", msg.Topic)
		return
	}

	cmd, err := parseCommand(msg.Payload)
	if err != nil {
		b.logWarn("malformed command payload", "topic", msg.Topic, "error", err)
		b.reply(key, newReply(Command{}, CodeInvalidPayload, "invalid payload", nil))
		return
	}

	reply, deviceID := b.execute(ctx, key, cmd)
	b.reply(key, reply)

	// The acknowledgement is on the wire before the redundant telemetry
	// update, so consumers observe them in that order.
	if reply.Code == CodeSuccess && b.notifier != nil {
		b.notifier.PublishState(ctx, deviceID)
	}
}

// execute runs the command transaction and returns the reply to publish,
// plus the device ID for the follow-up state re-publish on success.
func (b *Bridge) execute(ctx context.Context, key resolver.RoutingKey, cmd Command) (Reply, string) {
	catalog := b.catalogs.Catalog()
	if catalog == nil {
		return newReply(cmd, CodeInternalError, "catalog not ready", nil), ""
	}

	device, ok := catalog.ByRoutingKey(key)
	if !ok {
		b.logWarn("command for unknown device",
			"product_key", key.ProductKey,
			"device_name", key.DeviceName,
		)
		return newReply(cmd, CodeDeviceNotFound, "device not found", nil), ""
	}

	entityID, ok := device.Properties[resolver.PropState]
	if !ok {
		return newReply(cmd, CodeNoControllableEntity, "no controllable entity", nil), ""
	}

	desired, err := cmd.desiredState()
	if err != nil {
		b.logWarn("command carries no usable state request",
			"device", device.Spec.ID,
			"error", err,
		)
		return newReply(cmd, CodeInvalidPayload, "invalid state parameter", nil), ""
	}

	service := "turn_off"
	if desired == 1 {
		service = "turn_on"
	}
	domain := entityDomain(entityID)

	b.logInfo("executing command",
		"device", device.Spec.ID,
		"entity", entityID,
		"service", service,
	)

	if err := b.actions.CallService(ctx, domain, service, entityID); err != nil {
		b.logError("action invocation failed",
			"device", device.Spec.ID,
			"entity", entityID,
			"error", err,
		)
		return newReply(cmd, CodeInternalError, "action failed", nil), ""
	}

	if !b.verify(ctx, entityID, desired) {
		return newReply(cmd, CodeUnconfirmed, "state change not confirmed", nil), ""
	}

	data := map[string]any{"state": desired}
	return newReply(cmd, CodeSuccess, "success", data), device.Spec.ID
}

// verify re-reads the entity after the configured delay and compares it
// to the requested state. A read failure counts as unconfirmed.
func (b *Bridge) verify(ctx context.Context, entityID string, desired int) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(b.opts.VerifyDelay):
	}

	raw, err := b.actions.GetState(ctx, entityID)
	if err != nil {
		b.logWarn("verification read failed", "entity", entityID, "error", err)
		return false
	}

	want := "off"
	if desired == 1 {
		want = "on"
	}
	return strings.EqualFold(strings.TrimSpace(raw), want)
}

// reply publishes one acknowledgement on the device's reply topic.
func (b *Bridge) reply(key resolver.RoutingKey, r Reply) {
	payload, err := json.Marshal(r)
	if err != nil {
		b.logError("encoding reply failed", "error", err)
		return
	}

	topic := b.opts.Topics.CommonServiceReply(key.ProductKey, key.DeviceName)
	if err := b.pub.Publish(topic, payload); err != nil {
		b.logError("publishing reply failed", "topic", topic, "error", err)
	}
}

// parseRoutingKey extracts the (productKey, deviceName) pair from an
// inbound topic of the form {ns}/{productKey}/{deviceName}/...
func parseRoutingKey(topic string) (resolver.RoutingKey, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) < 4 || parts[1] == "" || parts[2] == "" {
		return resolver.RoutingKey{}, false
	}
	return resolver.RoutingKey{ProductKey: parts[1], DeviceName: parts[2]}, true
}

// entityDomain returns the entity ID's domain prefix ("switch.plug_01" →
// "switch"), which doubles as the action endpoint's service domain.
func entityDomain(entityID string) string {
	domain, _, ok := strings.Cut(entityID, ".")
	if !ok {
		return entityID
	}
	return domain
}

func (b *Bridge) logError(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Error(msg, args...)
	}
}

func (b *Bridge) logWarn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}

func (b *Bridge) logInfo(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, args...)
	}
}
