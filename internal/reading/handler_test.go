package reading

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/nerrad567/thingspeak-listener/internal/channel"
	"github.com/nerrad567/thingspeak-listener/internal/stats"
)

type handlerFixture struct {
	handler  *Handler
	out      *bytes.Buffer
	logs     *bytes.Buffer
	counters *stats.Counters
}

func newHandlerFixture(t *testing.T) handlerFixture {
	t.Helper()

	out := &bytes.Buffer{}
	logs := &bytes.Buffer{}
	counters := stats.NewCounters()

	registry := channel.NewRegistry([]channel.Channel{
		{ID: "2718325", Name: "Channel 1"},
		{ID: "2716987", Name: "Channel 2"},
		{ID: "2718316", Name: "Channel 3"},
	})

	h, err := NewHandler(HandlerOptions{
		Registry: registry,
		Printer:  fixedPrinter(out),
		Logger:   slog.New(slog.NewTextHandler(logs, nil)),
		Stats:    counters,
	})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	return handlerFixture{handler: h, out: out, logs: logs, counters: counters}
}

func TestNewHandler_RequiresDependencies(t *testing.T) {
	if _, err := NewHandler(HandlerOptions{Printer: NewPrinter(&bytes.Buffer{})}); err == nil {
		t.Error("NewHandler() without registry expected error")
	}
	if _, err := NewHandler(HandlerOptions{Registry: channel.NewRegistry(nil)}); err == nil {
		t.Error("NewHandler() without printer expected error")
	}

	h, err := NewHandler(HandlerOptions{
		Registry: channel.NewRegistry(nil),
		Printer:  NewPrinter(&bytes.Buffer{}),
	})
	if err != nil {
		t.Fatalf("NewHandler() with optional deps unset error = %v", err)
	}
	// Nil logger and stats fall back to no-ops.
	h.Handle("channels/1/subscribe", []byte("not-json"))
}

func TestHandle_ConfiguredChannel(t *testing.T) {
	f := newHandlerFixture(t)

	f.handler.Handle("channels/2718325/subscribe", []byte(`{"field1": 23.5, "field3": 10}`))

	got := f.out.String()
	for _, want := range []string{
		"New data received from Channel 1:",
		"Channel ID: 2718325\n",
		"Field 1: 23.5\n",
		"Field 3: 10\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	for _, absent := range []string{"Field 2", "Field 4", "Field 5", "Field 6", "Field 7", "Field 8"} {
		if strings.Contains(got, absent) {
			t.Errorf("output has absent field %q:\n%s", absent, got)
		}
	}
	if strings.Index(got, "Field 1") > strings.Index(got, "Field 3") {
		t.Errorf("fields out of order:\n%s", got)
	}

	snap := f.counters.Snapshot()
	if cc, ok := snap.Channel("2718325"); !ok || cc.Received != 1 {
		t.Errorf("counters for 2718325 = %+v, %v", cc, ok)
	}
}

func TestHandle_AllFieldsAscending(t *testing.T) {
	f := newHandlerFixture(t)

	payload := `{"field8":"h","field7":"g","field6":"f","field5":"e","field4":"d","field3":"c","field2":"b","field1":"a"}`
	f.handler.Handle("channels/2716987/subscribe", []byte(payload))

	got := f.out.String()
	last := -1
	for i := FirstField; i <= LastField; i++ {
		pos := strings.Index(got, "Field "+string(rune('0'+i))+": ")
		if pos < 0 {
			t.Fatalf("missing Field %d:\n%s", i, got)
		}
		if pos < last {
			t.Errorf("Field %d printed before Field %d", i, i-1)
		}
		last = pos
	}
}

func TestHandle_UnknownChannelUsesFallbackName(t *testing.T) {
	f := newHandlerFixture(t)

	f.handler.Handle("channels/999/subscribe", []byte(`{"field2": "x"}`))

	got := f.out.String()
	if !strings.Contains(got, "New data received from "+channel.FallbackName("999")+":") {
		t.Errorf("output missing fallback name:\n%s", got)
	}
	if !strings.Contains(got, "999") {
		t.Errorf("fallback output missing raw id:\n%s", got)
	}
}

func TestHandle_NotJSON(t *testing.T) {
	f := newHandlerFixture(t)

	f.handler.Handle("channels/2718325/subscribe", []byte("not-json"))

	if f.out.Len() != 0 {
		t.Errorf("decode error printed a reading:\n%s", f.out.String())
	}
	logs := f.logs.String()
	if !strings.Contains(logs, "could not decode JSON message") {
		t.Errorf("log missing decode error:\n%s", logs)
	}
	if !strings.Contains(logs, "raw_payload=not-json") {
		t.Errorf("log missing raw payload:\n%s", logs)
	}

	cc, _ := f.counters.Snapshot().Channel("2718325")
	if cc.DecodeErrors != 1 || cc.Received != 0 {
		t.Errorf("counters = %+v, want one decode error", cc)
	}
}

func TestHandle_InvalidUTF8(t *testing.T) {
	f := newHandlerFixture(t)

	f.handler.Handle("channels/2718325/subscribe", []byte{0xff, 0xfe, 'x'})

	if !strings.Contains(f.logs.String(), "could not decode JSON message") {
		t.Errorf("log missing decode error:\n%s", f.logs.String())
	}
	if f.out.Len() != 0 {
		t.Error("invalid UTF-8 printed a reading")
	}
}

func TestHandle_NonObjectAndBadTopic(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{"array payload", "channels/2718325/subscribe", `[1,2,3]`},
		{"two segment topic", "channels/2718325", `{"field1": 1}`},
		{"wrong prefix", "devices/2718325/subscribe", `{"field1": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture(t)

			f.handler.Handle(tt.topic, []byte(tt.payload))

			if f.out.Len() != 0 {
				t.Errorf("printed output for bad message:\n%s", f.out.String())
			}
			if !strings.Contains(f.logs.String(), "error processing message") {
				t.Errorf("log missing failure:\n%s", f.logs.String())
			}
		})
	}
}

func TestHandle_ContinuesAfterBadMessage(t *testing.T) {
	f := newHandlerFixture(t)

	f.handler.Handle("channels/2718325/subscribe", []byte("not-json"))
	f.handler.Handle("channels/2718325", []byte(`{}`))
	f.handler.Handle("channels/2718316/subscribe", []byte(`{"field4": 7}`))

	if !strings.Contains(f.out.String(), "New data received from Channel 3:") {
		t.Errorf("good message after bad ones not printed:\n%s", f.out.String())
	}
}

func TestHandle_PrinterFailureIsContained(t *testing.T) {
	logs := &bytes.Buffer{}
	h, err := NewHandler(HandlerOptions{
		Registry: channel.NewRegistry([]channel.Channel{{ID: "1", Name: "One"}}),
		Printer:  NewPrinter(failingWriter{}),
		Logger:   slog.New(slog.NewTextHandler(logs, nil)),
	})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	h.Handle("channels/1/subscribe", []byte(`{"field1": 1}`))

	if !strings.Contains(logs.String(), "writing output") {
		t.Errorf("log missing output failure:\n%s", logs.String())
	}
}

func TestRawText(t *testing.T) {
	if got := RawText([]byte("plain")); got != "plain" {
		t.Errorf("RawText() = %q", got)
	}
	if got := RawText([]byte{'a', 0xff, 'b'}); got != "a\uFFFDb" {
		t.Errorf("RawText() = %q, want replacement char", got)
	}
}
