package reading

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/thingspeak-listener/internal/channel"
	"github.com/nerrad567/thingspeak-listener/internal/infrastructure/mqtt"
)

// Logger is the logging surface the handler needs.
// Satisfied by *slog.Logger and *logging.Logger.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Recorder counts handling outcomes. Satisfied by *stats.Counters.
type Recorder interface {
	MessageReceived(channelID string)
	DecodeError(channelID string)
	HandlingFailure(channelID string)
}

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	Registry *channel.Registry
	Printer  *Printer
	Logger   Logger
	Stats    Recorder
}

// Handler decodes and prints inbound messages.
//
// Thread Safety: stateless between calls; safe for concurrent use.
type Handler struct {
	registry *channel.Registry
	printer  *Printer
	logger   Logger
	stats    Recorder
}

// NewHandler creates a Handler. Registry and Printer are required.
func NewHandler(opts HandlerOptions) (*Handler, error) {
	if opts.Registry == nil {
		return nil, errors.New("reading: registry is required")
	}
	if opts.Printer == nil {
		return nil, errors.New("reading: printer is required")
	}

	h := &Handler{
		registry: opts.Registry,
		printer:  opts.Printer,
		logger:   opts.Logger,
		stats:    opts.Stats,
	}
	if h.logger == nil {
		h.logger = nopLogger{}
	}
	if h.stats == nil {
		h.stats = nopRecorder{}
	}
	return h, nil
}

// Handle processes one message. It never panics and never returns an error;
// a bad message is logged and dropped.
func (h *Handler) Handle(topic string, payload []byte) {
	// Best effort: used only to attribute counters.
	channelID, _ := mqtt.ParseChannelTopic(topic)

	defer func() {
		if r := recover(); r != nil {
			h.stats.HandlingFailure(channelID)
			h.logger.Error("error processing message",
				"topic", topic,
				"error", fmt.Sprint(r),
			)
		}
	}()

	rd, err := Decode(topic, payload)
	if err != nil {
		h.reportError(topic, channelID, payload, err)
		return
	}

	if err := h.printer.Print(h.registry.Name(rd.ChannelID), rd); err != nil {
		h.reportError(topic, channelID, payload, fmt.Errorf("writing output: %w", err))
		return
	}

	h.stats.MessageReceived(rd.ChannelID)
}

// MessageHandler adapts Handle to the mqtt.MessageHandler signature.
func (h *Handler) MessageHandler() mqtt.MessageHandler {
	return h.Handle
}

func (h *Handler) reportError(topic, channelID string, payload []byte, err error) {
	if errors.Is(err, ErrDecode) {
		h.stats.DecodeError(channelID)
		h.logger.Warn("could not decode JSON message",
			"topic", topic,
			"error", err,
			"raw_payload", RawText(payload),
		)
		return
	}

	h.stats.HandlingFailure(channelID)
	h.logger.Error("error processing message",
		"topic", topic,
		"error", err,
	)
}

// RawText returns payload as text for diagnostics, replacing invalid UTF-8.
func RawText(payload []byte) string {
	return strings.ToValidUTF8(string(payload), "\uFFFD")
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type nopRecorder struct{}

func (nopRecorder) MessageReceived(string) {}
func (nopRecorder) DecodeError(string)     {}
func (nopRecorder) HandlingFailure(string) {}
