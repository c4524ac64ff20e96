package reading

import (
	"errors"
	"slices"
	"testing"
)

func TestDecode_PresentFieldsOnly(t *testing.T) {
	rd, err := Decode("channels/2718325/subscribe", []byte(`{"field1": 23.5, "field3": 10}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if rd.ChannelID != "2718325" {
		t.Errorf("ChannelID = %q, want 2718325", rd.ChannelID)
	}
	if got := rd.Indices(); !slices.Equal(got, []int{1, 3}) {
		t.Errorf("Indices() = %v, want [1 3]", got)
	}
	if got := rd.Fields[1].String(); got != "23.5" {
		t.Errorf("field1 = %q, want 23.5", got)
	}
	if got := rd.Fields[3].String(); got != "10" {
		t.Errorf("field3 = %q, want 10", got)
	}
}

func TestDecodeFields_IgnoresOtherKeys(t *testing.T) {
	payload := `{
		"channel_id": 2718325,
		"created_at": "2026-01-02T15:04:05Z",
		"entry_id": 812,
		"field2": "71",
		"field8": null,
		"field9": "out of range",
		"field0": "out of range",
		"status": null
	}`

	fields, err := DecodeFields([]byte(payload))
	if err != nil {
		t.Fatalf("DecodeFields() error = %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("len(fields) = %d, want 2: %v", len(fields), fields)
	}
	if fields[2].Kind() != KindString || fields[2].String() != "71" {
		t.Errorf("field2 = %v (%s)", fields[2], fields[2].Kind())
	}
	if fields[8].Kind() != KindNull {
		t.Errorf("field8 kind = %s, want null", fields[8].Kind())
	}
}

func TestDecodeFields_EmptyObject(t *testing.T) {
	fields, err := DecodeFields([]byte(`{}`))
	if err != nil {
		t.Fatalf("DecodeFields() error = %v", err)
	}
	if len(fields) != 0 {
		t.Errorf("len(fields) = %d, want 0", len(fields))
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload []byte
		want    error
	}{
		{"not json", "channels/1/subscribe", []byte("not-json"), ErrDecode},
		{"truncated json", "channels/1/subscribe", []byte(`{"field1": `), ErrDecode},
		{"invalid utf-8", "channels/1/subscribe", []byte{'{', '"', 0xff, '"', ':', '1', '}'}, ErrDecode},
		{"empty payload", "channels/1/subscribe", []byte{}, ErrDecode},
		{"array top level", "channels/1/subscribe", []byte(`[1, 2]`), ErrNotObject},
		{"number top level", "channels/1/subscribe", []byte(`42`), ErrNotObject},
		{"string top level", "channels/1/subscribe", []byte(`"field1"`), ErrNotObject},
		{"bad topic", "channels/1", []byte(`{"field1": 1}`), ErrUnexpectedTopic},
		{"bad payload wins over bad topic", "garbage", []byte("nope"), ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.topic, tt.payload)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeError_CarriesRaw(t *testing.T) {
	_, err := DecodeFields([]byte("not-json"))

	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("error %v is not *DecodeError", err)
	}
	if string(de.Raw) != "not-json" {
		t.Errorf("Raw = %q, want not-json", de.Raw)
	}
}

func TestFieldKey(t *testing.T) {
	if FieldKey(FirstField) != "field1" || FieldKey(LastField) != "field8" {
		t.Errorf("FieldKey bounds = %q, %q", FieldKey(FirstField), FieldKey(LastField))
	}
}
