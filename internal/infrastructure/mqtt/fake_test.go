package mqtt

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/thingspeak-listener/internal/channel"
)

// =============================================================================
// Fake paho client
// =============================================================================

// connectResult scripts one Connect call on the fake.
type connectResult struct {
	code byte  // CONNACK return code; 0 accepts
	err  error // network failure, no CONNACK
	hang bool  // token never completes
}

// fakeClient implements pahomqtt.Client without a network.
// Connect results are consumed in order; once exhausted every attempt is accepted.
type fakeClient struct {
	opts *pahomqtt.ClientOptions

	mu           sync.Mutex
	results      []connectResult
	connects     int
	disconnects  int
	subscribed   []string
	subscribeErr map[string]error
	routes       map[string]pahomqtt.MessageHandler
	open         bool
}

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeClient) IsConnectionOpen() bool {
	return f.IsConnected()
}

func (f *fakeClient) Connect() pahomqtt.Token {
	f.mu.Lock()
	f.connects++
	result := connectResult{}
	if len(f.results) > 0 {
		result = f.results[0]
		f.results = f.results[1:]
	}
	f.mu.Unlock()

	switch {
	case result.hang:
		return newPendingToken()
	case result.err != nil:
		return newDoneToken(pahoErrNetwork, result.err)
	case result.code != 0:
		reason, _ := ConnAckReason(result.code)
		return newDoneToken(result.code, errors.New(reason))
	}

	f.mu.Lock()
	f.open = true
	f.mu.Unlock()
	if f.opts.OnConnect != nil {
		go f.opts.OnConnect(f)
	}
	return newDoneToken(0, nil)
}

func (f *fakeClient) Disconnect(uint) {
	f.mu.Lock()
	f.disconnects++
	f.open = false
	f.mu.Unlock()
}

func (f *fakeClient) Publish(string, byte, bool, interface{}) pahomqtt.Token {
	return newDoneToken(0, errors.New("publish not supported"))
}

func (f *fakeClient) Subscribe(topic string, _ byte, callback pahomqtt.MessageHandler) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.subscribed = append(f.subscribed, topic)
	if err := f.subscribeErr[topic]; err != nil {
		return newDoneToken(0, err)
	}
	if f.routes == nil {
		f.routes = make(map[string]pahomqtt.MessageHandler)
	}
	f.routes[topic] = callback
	return newDoneToken(0, nil)
}

func (f *fakeClient) SubscribeMultiple(map[string]byte, pahomqtt.MessageHandler) pahomqtt.Token {
	return newDoneToken(0, errors.New("not implemented"))
}

func (f *fakeClient) Unsubscribe(...string) pahomqtt.Token {
	return newDoneToken(0, nil)
}

func (f *fakeClient) AddRoute(string, pahomqtt.MessageHandler) {}

func (f *fakeClient) OptionsReader() pahomqtt.ClientOptionsReader {
	return pahomqtt.ClientOptionsReader{}
}

// drop simulates an unexpected connection loss.
func (f *fakeClient) drop(err error) {
	f.mu.Lock()
	f.open = false
	f.mu.Unlock()
	f.opts.OnConnectionLost(f, err)
}

// publish delivers a message through the route registered for topic.
func (f *fakeClient) publish(t *testing.T, topic string, payload []byte) {
	t.Helper()
	f.mu.Lock()
	route := f.routes[topic]
	f.mu.Unlock()
	if route == nil {
		t.Fatalf("no route for topic %q", topic)
	}
	route(f, &fakeMessage{topic: topic, payload: payload})
}

func (f *fakeClient) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func (f *fakeClient) disconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

func (f *fakeClient) subscribeCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.subscribed...)
}

// fakeToken implements pahomqtt.Token and ReturnCode.
type fakeToken struct {
	done chan struct{}
	code byte
	err  error
}

func newDoneToken(code byte, err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), code: code, err: err}
	close(t.done)
	return t
}

func newPendingToken() *fakeToken {
	return &fakeToken{done: make(chan struct{})}
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }
func (t *fakeToken) ReturnCode() byte      { return t.code }

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

// =============================================================================
// Helpers
// =============================================================================

func testChannels() []channel.Channel {
	return []channel.Channel{
		{ID: "2718325", Name: "Channel 1"},
		{ID: "2716987", Name: "Channel 2"},
		{ID: "2718316", Name: "Channel 3"},
	}
}

func testOptions() Options {
	return Options{
		Host:           "broker.test",
		Port:           1883,
		ClientID:       "listener-test",
		KeepAlive:      time.Minute,
		ConnectTimeout: 200 * time.Millisecond,
		PollInterval:   10 * time.Millisecond,
		Backoff:        30 * time.Millisecond,
		QueueSize:      16,
	}
}

// newTestClient builds a Client backed by a fakeClient.
func newTestClient(t *testing.T, opts Options, handler MessageHandler, results ...connectResult) (*Client, *fakeClient) {
	t.Helper()
	if handler == nil {
		handler = func(string, []byte) {}
	}

	fake := &fakeClient{results: results}
	c, err := newWithFactory(opts, testChannels(), handler, func(o *pahomqtt.ClientOptions) pahomqtt.Client {
		fake.opts = o
		return fake
	})
	if err != nil {
		t.Fatalf("newWithFactory() error = %v", err)
	}
	return c, fake
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// eventLog collects lifecycle events.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(e Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

func (l *eventLog) count(kind EventKind) int {
	n := 0
	for _, e := range l.all() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Contains(s string) bool {
	return strings.Contains(b.String(), s)
}

func newTestLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}
