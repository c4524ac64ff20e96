package reading

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies the JSON type of a field value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	// KindRaw covers arrays and nested objects, kept as compact JSON.
	KindRaw
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindRaw:
		return "raw"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is one decoded field value.
type Value struct {
	kind Kind
	b    bool
	text string
}

// Null returns a null Value.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric Value holding the literal n.
func Number(n json.Number) Value { return Value{kind: KindNumber, text: n.String()} }

// String returns a text Value.
func String(s string) Value { return Value{kind: KindString, text: s} }

// Kind returns the value's JSON type.
func (v Value) Kind() Kind { return v.kind }

// String renders the value for console output.
// Strings print without quotes; numbers print as sent.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.text
	}
}

// valueFromJSON converts one raw JSON value into a Value.
func valueFromJSON(raw json.RawMessage) (Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Value{}, fmt.Errorf("empty JSON value")
	}

	switch raw[0] {
	case 'n':
		if string(raw) != "null" {
			return Value{}, fmt.Errorf("invalid JSON value %q", raw)
		}
		return Null(), nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, err
		}
		return String(s), nil
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return Value{}, err
		}
		return Value{kind: KindRaw, text: buf.String()}, nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return Value{}, err
		}
		return Number(n), nil
	}
}
