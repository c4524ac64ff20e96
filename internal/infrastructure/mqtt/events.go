package mqtt

import "time"

// State is the connection lifecycle state.
//
//	DISCONNECTED -> CONNECTING -> CONNECTED -> DISCONNECTED
//	CONNECTING --(refused)--> DISCONNECTED
//	any -> STOPPED (shutdown)
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// EventKind names a connection lifecycle event.
type EventKind string

const (
	// EventConnectAttempt is emitted before each CONNECT; Reconnect marks loop retries.
	EventConnectAttempt EventKind = "connect_attempt"

	// EventConnectFailed is emitted when no CONNACK was received.
	EventConnectFailed EventKind = "connect_failed"

	// EventConnAccepted is emitted for CONNACK return code 0.
	EventConnAccepted EventKind = "connack_accepted"

	// EventConnRefused is emitted for a non-zero CONNACK return code.
	EventConnRefused EventKind = "connack_refused"

	// EventSubscribed is emitted once per successful channel subscription.
	EventSubscribed EventKind = "subscribed"

	// EventDisconnected is emitted for a clean, requested disconnect.
	EventDisconnected EventKind = "disconnected"

	// EventConnectionLost is emitted for an unexpected drop.
	EventConnectionLost EventKind = "connection_lost"
)

// Event describes one lifecycle transition.
type Event struct {
	Kind      EventKind
	Code      byte
	Topic     string
	Reconnect bool
	Err       error
	At        time.Time
}

// Unexpected reports whether the event is an unplanned disconnect.
func (e Event) Unexpected() bool {
	return e.Kind == EventConnectionLost
}
