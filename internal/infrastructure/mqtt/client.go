package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/thingspeak-listener/internal/channel"
)

// Client is the connection manager for the ThingSpeak broker.
//
// It owns the paho session, the subscription set, the connected flag and
// the reconnect loop. Inbound messages are queued by paho's callback and
// handed to the MessageHandler one at a time by a single dispatch goroutine.
//
// Thread Safety:
//   - All exported methods are safe for concurrent use.
//   - The connected flag is the only state shared between paho callbacks
//     and the monitoring loop.
type Client struct {
	client   pahomqtt.Client
	opts     Options
	channels []channel.Channel
	handler  MessageHandler

	// subscriptions tracks topics acknowledged by the broker in this session.
	subscriptions map[string]subscription
	subMu         sync.RWMutex

	connected atomic.Bool
	state     atomic.Int32

	inbound  chan InboundMessage
	wake     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
	wg       sync.WaitGroup

	onEvent    func(Event)
	callbackMu sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex

	now func() time.Time
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// subscription holds the details of one acknowledged subscription.
type subscription struct {
	topic     string
	channelID string
	qos       byte
}

// InboundMessage is one received publish, alive only until handled.
type InboundMessage struct {
	Topic   string
	Payload []byte
}

// MessageHandler is called for each inbound message, sequentially and in
// arrival order, from the dispatch goroutine. Panics are recovered.
type MessageHandler func(topic string, payload []byte)

// clientFactory builds the underlying paho client. Replaced in tests.
type clientFactory func(*pahomqtt.ClientOptions) pahomqtt.Client

// New builds a Client. No network I/O happens until Connect or Run.
//
// It registers the paho callbacks:
//   - on connect: CONNACK accepted, subscribe every channel
//   - on connection lost: clear the connected flag and wake the loop
func New(opts Options, channels []channel.Channel, handler MessageHandler) (*Client, error) {
	return newWithFactory(opts, channels, handler, pahomqtt.NewClient)
}

func newWithFactory(opts Options, channels []channel.Channel, handler MessageHandler, factory clientFactory) (*Client, error) {
	if len(channels) == 0 {
		return nil, ErrNoChannels
	}
	if handler == nil {
		return nil, errors.New("mqtt: message handler cannot be nil")
	}
	if opts.QoS > maxQoS {
		return nil, ErrInvalidQoS
	}

	opts = opts.withDefaults()

	c := &Client{
		opts:          opts,
		channels:      append([]channel.Channel(nil), channels...),
		handler:       handler,
		subscriptions: make(map[string]subscription),
		inbound:       make(chan InboundMessage, opts.QueueSize),
		wake:          make(chan struct{}, 1),
		stopped:       make(chan struct{}),
		logger:        nopLogger{},
		now:           time.Now,
	}

	pahoOpts := buildClientOptions(opts)
	pahoOpts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnAck(0)
	})
	pahoOpts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		if err == nil {
			err = errors.New("connection lost")
		}
		c.handleDisconnect(err)
	})

	c.client = factory(pahoOpts)
	return c, nil
}

// returnCoder is implemented by *pahomqtt.ConnectToken.
type returnCoder interface {
	ReturnCode() byte
}

// Network-level failure codes paho reports in place of a CONNACK code.
const (
	pahoErrNetwork           = 0xFE
	pahoErrProtocolViolation = 0xFF
)

// Connect performs one connect attempt.
//
// Outcomes:
//   - CONNACK 0: returns nil; paho fires the on-connect callback, which sets
//     the connected flag and subscribes (asynchronously to this call).
//   - CONNACK 1..253: the refusal is handled here (reason logged, flag stays
//     false) and nil is returned; the handshake itself worked.
//   - no CONNACK (dial error, timeout, cancelled ctx): logged, returns an
//     error wrapping ErrConnectionFailed.
//
// Connect never retries; the monitoring loop does.
func (c *Client) Connect(ctx context.Context) error {
	return c.connect(ctx, false)
}

func (c *Client) connect(ctx context.Context, reconnect bool) error {
	if c.State() == StateStopped {
		return fmt.Errorf("%w: client stopped", ErrConnectionFailed)
	}

	c.setState(StateConnecting)
	c.emit(Event{Kind: EventConnectAttempt, Reconnect: reconnect})
	c.getLogger().Debug("connecting to broker",
		"broker", c.opts.BrokerURL(),
		"client_id", c.opts.ClientID,
		"reconnect", reconnect,
	)

	token := c.client.Connect()
	if err := waitToken(ctx, token, c.opts.ConnectTimeout); err != nil {
		return c.connectFailed(err)
	}

	if err := token.Error(); err != nil {
		if code, ok := refusalCode(token); ok {
			c.handleConnAck(code)
			return nil
		}
		return c.connectFailed(err)
	}

	return nil
}

// refusalCode extracts a broker CONNACK refusal code from a failed token.
func refusalCode(token pahomqtt.Token) (byte, bool) {
	rc, ok := token.(returnCoder)
	if !ok {
		return 0, false
	}
	code := rc.ReturnCode()
	if code == 0 || code == pahoErrNetwork || code == pahoErrProtocolViolation {
		return 0, false
	}
	return code, true
}

func (c *Client) connectFailed(err error) error {
	if c.State() == StateConnecting {
		c.setState(StateDisconnected)
	}
	c.emit(Event{Kind: EventConnectFailed, Err: err})
	c.getLogger().Error("error connecting to broker",
		"broker", c.opts.BrokerURL(),
		"error", err,
	)
	return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
}

// handleConnAck processes the broker's answer to CONNECT.
func (c *Client) handleConnAck(code byte) {
	if code != 0 {
		c.connected.Store(false)
		if c.State() != StateStopped {
			c.setState(StateDisconnected)
		}

		ackErr := &ConnAckError{Code: code}
		c.emit(Event{Kind: EventConnRefused, Code: code, Err: ackErr})
		c.getLogger().Error("failed to connect",
			"return_code", code,
			"reason", ackErr.Reason(),
		)
		return
	}

	if c.State() == StateStopped {
		return
	}

	c.connected.Store(true)
	c.setState(StateConnected)
	c.emit(Event{Kind: EventConnAccepted})
	c.getLogger().Info("successfully connected to broker", "broker", c.opts.BrokerURL())

	c.subscribeAll()
}

// handleDisconnect is called when the session ends. A nil err is a clean,
// requested disconnect; anything else is an unexpected drop.
func (c *Client) handleDisconnect(err error) {
	c.connected.Store(false)
	if c.State() != StateStopped {
		c.setState(StateDisconnected)
	}

	c.subMu.Lock()
	clear(c.subscriptions)
	c.subMu.Unlock()

	if err != nil {
		c.emit(Event{Kind: EventConnectionLost, Err: err})
		c.getLogger().Warn("unexpected disconnection, attempting to reconnect", "error", err)
	} else {
		c.emit(Event{Kind: EventDisconnected})
		c.getLogger().Info("successfully disconnected from broker")
	}

	c.signalWake()
}

// signalWake nudges the monitoring loop without blocking.
func (c *Client) signalWake() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Close stops dispatching and disconnects. Safe to call more than once and
// without Run having been called.
func (c *Client) Close() error {
	c.shutdown()
	return nil
}

// shutdown stops the dispatch goroutine, then disconnects from the broker.
func (c *Client) shutdown() {
	c.stopOnce.Do(func() {
		c.setState(StateStopped)
		if c.stopped == nil {
			// Zero Client, never built by New.
			return
		}
		close(c.stopped)
		c.wg.Wait()

		// A session that never came up, or already dropped, gets no
		// clean-disconnect event.
		wasConnected := c.connected.Load()
		if c.client != nil {
			c.client.Disconnect(defaultDisconnectQuiesce)
		}
		if wasConnected {
			c.handleDisconnect(nil)
		}
	})
}

// HealthCheck verifies the session is up.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether a CONNACK 0 was received and no disconnect
// event has followed it.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
}

// SetOnEvent sets a callback invoked for every lifecycle event.
// It runs on paho's or the loop's goroutine and must not block.
func (c *Client) SetOnEvent(callback func(Event)) {
	c.callbackMu.Lock()
	c.onEvent = callback
	c.callbackMu.Unlock()
}

func (c *Client) emit(e Event) {
	if e.At.IsZero() {
		e.At = c.now()
	}
	c.callbackMu.RLock()
	callback := c.onEvent
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(e)
	}
}

// SetLogger sets a logger for connection and handler diagnostics.
// If not set, nothing is logged.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = nopLogger{}
	}
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// waitToken waits for a paho token, bounded by timeout and ctx.
func waitToken(ctx context.Context, token pahomqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: after %v", ErrTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
