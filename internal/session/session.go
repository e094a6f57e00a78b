package session

import (
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for one connection attempt.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// defaultQueueSize bounds the inbound delivery queue.
	defaultQueueSize = 64

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// State is the session connection state.
type State int

// Session states. Transitions: DISCONNECTED → CONNECTING → CONNECTED,
// back to DISCONNECTED on error (triggering the backoff retry loop).
// Terminal only on explicit Close.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// InboundMessage is one message delivered from the broker.
type InboundMessage struct {
	Topic   string
	Payload []byte
}

// Logger is the narrow logging interface the session needs.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}

// NowSource supplies the (reference-corrected) current time.
// Satisfied by *Clock.
type NowSource interface {
	Now() time.Time
}

// Options configures a Session.
type Options struct {
	// Host, Port, TLS identify the broker.
	Host string
	Port int
	TLS  bool

	// ClientID is the base client identifier; a random suffix is added
	// so a crashed instance's half-open session cannot block reconnects.
	ClientID string

	// Username is the broker username (gateway routing identity).
	Username string

	// Credentials derives the rotating password. Required.
	Credentials *Credentials

	// Clock supplies the time used for token derivation. Required.
	Clock NowSource

	// QoS is the quality-of-service level for publishes and subscriptions.
	QoS byte

	// InitialBackoff and MaxBackoff bound the reconnect schedule.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// QueueSize bounds the inbound delivery queue (default 64).
	QueueSize int

	// Logger is optional.
	Logger Logger
}

// Session owns the broker connection lifecycle: credential rotation,
// reconnect backoff, and topic subscriptions. Inbound messages are
// delivered through a bounded queue (Messages) so broker callback
// goroutines are decoupled from command processing.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - No other component may touch the underlying broker client.
type Session struct {
	opts   Options
	client pahomqtt.Client

	state   State
	stateMu sync.RWMutex

	// subscriptions tracks topics for re-subscription after reconnect;
	// the broker does not preserve them across a hard disconnect.
	subscriptions map[string]struct{}
	subMu         sync.RWMutex

	inbound chan InboundMessage

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a Session. Call Connect to establish the connection.
func New(opts Options) (*Session, error) {
	if opts.Credentials == nil {
		return nil, fmt.Errorf("session: credentials are required")
	}
	if opts.Clock == nil {
		return nil, fmt.Errorf("session: clock is required")
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 1 * time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 60 * time.Second
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	s := &Session{
		opts:          opts,
		subscriptions: make(map[string]struct{}),
		inbound:       make(chan InboundMessage, queueSize),
		done:          make(chan struct{}),
	}

	s.client = pahomqtt.NewClient(s.buildClientOptions())
	return s, nil
}

// buildClientOptions creates paho options from session options.
//
// Auto-reconnect is deliberately disabled: the session drives its own
// backoff loop so a fresh rotating token is computed before every
// attempt and subscriptions are restored under session control.
func (s *Session) buildClientOptions() *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if s.opts.TLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, s.opts.Host, s.opts.Port))

	opts.SetClientID(fmt.Sprintf("%s-%s", s.opts.ClientID, uuid.NewString()[:8]))

	// Recomputed on every connection attempt so the password always
	// belongs to the current rotation window.
	opts.SetCredentialsProvider(func() (string, string) {
		return s.opts.Username, s.opts.Credentials.Token(s.opts.Clock.Now())
	})

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		s.handleConnectionLost(err)
	})

	if s.opts.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}

	return opts
}

// Connect establishes the initial connection to the broker.
func (s *Session) Connect() error {
	if s.isClosed() {
		return ErrClosed
	}

	s.setState(StateConnecting)

	token := s.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		s.setState(StateDisconnected)
		return fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		s.setState(StateDisconnected)
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	s.setState(StateConnected)
	s.logInfo("broker connected", "host", s.opts.Host, "port", s.opts.Port)
	return nil
}

// handleConnectionLost reacts to an unexpected disconnect by entering
// the backoff-driven reconnect loop.
func (s *Session) handleConnectionLost(err error) {
	s.setState(StateDisconnected)

	if s.isClosed() {
		return
	}

	s.logWarn("broker connection lost", "error", err)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.reconnectLoop()
	}()
}

// reconnectLoop retries the connection with exponential backoff until it
// succeeds or the session is closed. A successful connect resets the
// backoff to its initial value and restores every tracked subscription.
func (s *Session) reconnectLoop() {
	backoff := s.opts.InitialBackoff

	for {
		select {
		case <-s.done:
			return
		case <-time.After(backoff):
		}

		s.logInfo("attempting reconnect", "backoff", backoff.String())
		s.setState(StateConnecting)

		token := s.client.Connect()
		if token.WaitTimeout(defaultConnectTimeout) && token.Error() == nil {
			s.setState(StateConnected)
			s.logInfo("broker reconnected")
			s.restoreSubscriptions()
			return
		}

		s.setState(StateDisconnected)
		s.logWarn("reconnect failed", "error", token.Error())
		backoff = nextBackoff(backoff, s.opts.MaxBackoff)
	}
}

// nextBackoff doubles the delay up to the ceiling.
func nextBackoff(current, maxDelay time.Duration) time.Duration {
	next := current * 2
	if next > maxDelay {
		return maxDelay
	}
	return next
}

// restoreSubscriptions re-subscribes to all tracked topics after reconnect.
func (s *Session) restoreSubscriptions() {
	s.subMu.RLock()
	topics := make([]string, 0, len(s.subscriptions))
	for topic := range s.subscriptions {
		topics = append(topics, topic)
	}
	s.subMu.RUnlock()

	for _, topic := range topics {
		token := s.client.Subscribe(topic, s.opts.QoS, s.onMessage)
		if !token.WaitTimeout(defaultPublishTimeout) || token.Error() != nil {
			s.logError("re-subscribe failed", "topic", topic, "error", token.Error())
			continue
		}
	}

	s.logInfo("subscriptions restored", "count", len(topics))
}

// Subscribe registers the session for inbound messages on the topics.
// Delivery happens through the bounded queue returned by Messages.
func (s *Session) Subscribe(topics ...string) error {
	if !s.IsConnected() {
		return ErrNotConnected
	}

	for _, topic := range topics {
		if topic == "" {
			return fmt.Errorf("%w: empty topic", ErrSubscribeFailed)
		}

		s.subMu.Lock()
		s.subscriptions[topic] = struct{}{}
		s.subMu.Unlock()

		token := s.client.Subscribe(topic, s.opts.QoS, s.onMessage)
		if !token.WaitTimeout(defaultPublishTimeout) {
			return fmt.Errorf("%w: timeout on %s", ErrSubscribeFailed, topic)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
		}
	}

	return nil
}

// onMessage is the paho delivery callback. It must never block: when the
// queue is full the message is dropped with a warning rather than
// stalling the broker client's delivery goroutine.
func (s *Session) onMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	s.enqueue(InboundMessage{Topic: msg.Topic(), Payload: msg.Payload()})
}

// enqueue pushes an inbound message onto the bounded queue.
func (s *Session) enqueue(msg InboundMessage) {
	select {
	case s.inbound <- msg:
	default:
		s.logWarn("inbound queue full, dropping message", "topic", msg.Topic)
	}
}

// Messages returns the inbound delivery queue. The command bridge is the
// sole consumer.
func (s *Session) Messages() <-chan InboundMessage {
	return s.inbound
}

// Publish sends a message to the broker with the configured QoS.
func (s *Session) Publish(topic string, payload []byte) error {
	if !s.IsConnected() {
		return ErrNotConnected
	}

	token := s.client.Publish(topic, s.opts.QoS, false, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// State returns the current connection state.
func (s *Session) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// IsConnected reports whether the session is in the connected state.
func (s *Session) IsConnected() bool {
	return s.State() == StateConnected && s.client.IsConnected()
}

// Close gracefully shuts down the session: pending operations get a
// quiesce period and the broker receives a clean disconnect notification.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)

		if s.client.IsConnected() {
			s.client.Disconnect(defaultDisconnectQuiesce)
		}
		s.setState(StateDisconnected)

		s.wg.Wait()
		s.logInfo("session closed")
	})
}

// isClosed reports whether Close has been called.
func (s *Session) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) setState(state State) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()
}

func (s *Session) logError(msg string, args ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Error(msg, args...)
	}
}

func (s *Session) logWarn(msg string, args ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Warn(msg, args...)
	}
}

func (s *Session) logInfo(msg string, args ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Info(msg, args...)
	}
}
