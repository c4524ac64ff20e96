package reading

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode is returned when a payload is not valid UTF-8 JSON.
	ErrDecode = errors.New("reading: could not decode JSON message")

	// ErrNotObject is returned when the payload is valid JSON but not an object.
	ErrNotObject = errors.New("reading: payload is not a JSON object")

	// ErrUnexpectedTopic is returned for topics not shaped channels/{id}/subscribe.
	ErrUnexpectedTopic = errors.New("reading: unexpected topic")
)

// DecodeError carries the payload that failed to decode so it can be echoed.
type DecodeError struct {
	Raw []byte
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %v", ErrDecode.Error(), e.Err)
}

// Unwrap lets errors.Is match both ErrDecode and the underlying cause.
func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}
