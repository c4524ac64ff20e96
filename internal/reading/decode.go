package reading

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/nerrad567/thingspeak-listener/internal/infrastructure/mqtt"
)

const (
	// FirstField and LastField bound the field indices a channel can carry.
	FirstField = 1
	LastField  = 8

	fieldKeyPrefix = "field"
)

// Reading is one decoded channel update.
type Reading struct {
	ChannelID string
	Fields    map[int]Value
}

// Indices returns the present field indices in ascending order.
func (r Reading) Indices() []int {
	idx := make([]int, 0, len(r.Fields))
	for i := range r.Fields {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// FieldKey returns the JSON key for field index i ("field1".."field8").
func FieldKey(i int) string {
	return fieldKeyPrefix + strconv.Itoa(i)
}

// Decode parses one inbound message.
//
// The payload is decoded first so that a malformed payload is reported as
// a decode error regardless of topic. Errors:
//   - *DecodeError (matches ErrDecode): invalid UTF-8 or invalid JSON
//   - ErrNotObject: valid JSON whose top level is not an object
//   - ErrUnexpectedTopic: topic is not channels/{id}/subscribe
func Decode(topic string, payload []byte) (Reading, error) {
	fields, err := DecodeFields(payload)
	if err != nil {
		return Reading{}, err
	}

	channelID, err := mqtt.ParseChannelTopic(topic)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %w", ErrUnexpectedTopic, err)
	}

	return Reading{ChannelID: channelID, Fields: fields}, nil
}

// DecodeFields extracts field1..field8 from a JSON object payload.
// Absent fields are simply missing from the returned map.
func DecodeFields(payload []byte) (map[int]Value, error) {
	if !utf8.Valid(payload) {
		return nil, &DecodeError{Raw: payload, Err: fmt.Errorf("payload is not valid UTF-8")}
	}

	var top json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil {
		return nil, &DecodeError{Raw: payload, Err: err}
	}

	if trimmed := bytes.TrimSpace(top); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotObject
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(top, &obj); err != nil {
		return nil, &DecodeError{Raw: payload, Err: err}
	}

	fields := make(map[int]Value)
	for i := FirstField; i <= LastField; i++ {
		raw, ok := obj[FieldKey(i)]
		if !ok {
			continue
		}
		v, err := valueFromJSON(raw)
		if err != nil {
			return nil, &DecodeError{Raw: payload, Err: fmt.Errorf("%s: %w", FieldKey(i), err)}
		}
		fields[i] = v
	}

	return fields, nil
}
