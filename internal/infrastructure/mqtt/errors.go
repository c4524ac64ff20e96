package mqtt

import (
	"errors"
	"fmt"
)

// Domain-specific errors for MQTT operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when the session is not established.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is returned when a connect attempt never got a CONNACK.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrConnectionRefused is matched by *ConnAckError.
	ErrConnectionRefused = errors.New("mqtt: connection refused")

	// ErrSubscribeFailed is returned when a subscribe operation fails.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrInvalidQoS is returned when an invalid QoS level is specified.
	// Valid QoS levels are 0, 1, or 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned for topics not shaped channels/{id}/subscribe.
	ErrInvalidTopic = errors.New("mqtt: invalid channel topic")

	// ErrNoChannels is returned when the client is built without channels.
	ErrNoChannels = errors.New("mqtt: no channels configured")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("mqtt: operation timed out")

	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("mqtt: client already running")

	// ErrLoopFailed wraps an unexpected failure inside the monitoring loop.
	ErrLoopFailed = errors.New("mqtt: monitoring loop failed")
)

// connAckReasons maps MQTT 3.1.1 CONNACK return codes to readable reasons.
var connAckReasons = map[byte]string{
	1: "Invalid protocol version",
	2: "Invalid client identifier",
	3: "Server unavailable",
	4: "Bad username or password",
	5: "Not authorized",
}

// ConnAckReason returns the reason for a CONNACK return code.
// ok is false for 0 (accepted) and for codes outside the 3.1.1 table.
func ConnAckReason(code byte) (reason string, ok bool) {
	reason, ok = connAckReasons[code]
	return reason, ok
}

// ConnAckError reports a broker that answered CONNECT with a non-zero code.
type ConnAckError struct {
	Code byte
}

// Reason returns the table reason, or a generic text for unknown codes.
func (e *ConnAckError) Reason() string {
	if reason, ok := ConnAckReason(e.Code); ok {
		return reason
	}
	return fmt.Sprintf("unknown return code %d", e.Code)
}

func (e *ConnAckError) Error() string {
	return fmt.Sprintf("%s: %s (return code %d)", ErrConnectionRefused.Error(), e.Reason(), e.Code)
}

// Unwrap makes errors.Is(err, ErrConnectionRefused) true.
func (e *ConnAckError) Unwrap() error {
	return ErrConnectionRefused
}
