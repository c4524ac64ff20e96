package stats

import (
	"sort"
	"sync"
	"time"
)

// ChannelCounts holds per-channel message counters.
type ChannelCounts struct {
	ChannelID    string `json:"channel_id"`
	Received     int64  `json:"received"`
	DecodeErrors int64  `json:"decode_errors"`
	Failures     int64  `json:"failures"`
}

// ConnectionCounts holds broker session counters.
type ConnectionCounts struct {
	Attempts              int64 `json:"attempts"`
	Accepted              int64 `json:"accepted"`
	Refused               int64 `json:"refused"`
	Failed                int64 `json:"failed"`
	CleanDisconnects      int64 `json:"clean_disconnects"`
	UnexpectedDisconnects int64 `json:"unexpected_disconnects"`
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Taken      time.Time        `json:"taken"`
	Channels   []ChannelCounts  `json:"channels"`
	Connection ConnectionCounts `json:"connection"`
}

// Counters is the concurrency-safe counter store.
//
// The zero value is not usable; create with NewCounters.
// A nil *Counters is a valid no-op recorder.
type Counters struct {
	mu       sync.Mutex
	channels map[string]*ChannelCounts
	conn     ConnectionCounts
	now      func() time.Time
}

// NewCounters returns an empty counter store.
func NewCounters() *Counters {
	return &Counters{
		channels: make(map[string]*ChannelCounts),
		now:      time.Now,
	}
}

// channel returns the counters for id, creating them. Caller holds c.mu.
func (c *Counters) channel(id string) *ChannelCounts {
	cc, ok := c.channels[id]
	if !ok {
		cc = &ChannelCounts{ChannelID: id}
		c.channels[id] = cc
	}
	return cc
}

// MessageReceived counts a successfully rendered message.
func (c *Counters) MessageReceived(channelID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.channel(channelID).Received++
	c.mu.Unlock()
}

// DecodeError counts a payload that was not valid UTF-8 JSON.
func (c *Counters) DecodeError(channelID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.channel(channelID).DecodeErrors++
	c.mu.Unlock()
}

// HandlingFailure counts any other error while handling a message.
func (c *Counters) HandlingFailure(channelID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.channel(channelID).Failures++
	c.mu.Unlock()
}

// ConnectAttempt counts a connect call to the broker.
func (c *Counters) ConnectAttempt() {
	c.updateConn(func(cc *ConnectionCounts) { cc.Attempts++ })
}

// ConnectAccepted counts a CONNACK with return code 0.
func (c *Counters) ConnectAccepted() {
	c.updateConn(func(cc *ConnectionCounts) { cc.Accepted++ })
}

// ConnectRefused counts a CONNACK with a non-zero return code.
func (c *Counters) ConnectRefused() {
	c.updateConn(func(cc *ConnectionCounts) { cc.Refused++ })
}

// ConnectFailed counts a connect attempt that never got a CONNACK.
func (c *Counters) ConnectFailed() {
	c.updateConn(func(cc *ConnectionCounts) { cc.Failed++ })
}

// Disconnected counts a session end; unexpected reports a dropped connection.
func (c *Counters) Disconnected(unexpected bool) {
	c.updateConn(func(cc *ConnectionCounts) {
		if unexpected {
			cc.UnexpectedDisconnects++
		} else {
			cc.CleanDisconnects++
		}
	})
}

func (c *Counters) updateConn(fn func(*ConnectionCounts)) {
	if c == nil {
		return
	}
	c.mu.Lock()
	fn(&c.conn)
	c.mu.Unlock()
}

// Snapshot returns a copy of the counters, channels sorted by ID.
func (c *Counters) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Taken:      c.now(),
		Channels:   make([]ChannelCounts, 0, len(c.channels)),
		Connection: c.conn,
	}
	for _, cc := range c.channels {
		snap.Channels = append(snap.Channels, *cc)
	}
	sort.Slice(snap.Channels, func(i, j int) bool {
		return snap.Channels[i].ChannelID < snap.Channels[j].ChannelID
	})
	return snap
}

// Channel returns the counters for one channel ID.
func (s Snapshot) Channel(id string) (ChannelCounts, bool) {
	for _, cc := range s.Channels {
		if cc.ChannelID == id {
			return cc, true
		}
	}
	return ChannelCounts{}, false
}

// TotalReceived sums Received across channels.
func (s Snapshot) TotalReceived() int64 {
	var total int64
	for _, cc := range s.Channels {
		total += cc.Received
	}
	return total
}
