package channel

import (
	"fmt"
	"io"
	"strings"
)

// bannerWidth is the width of the "=" rules around the startup banner.
const bannerWidth = 50

// Channel is one configured sensor-data stream.
type Channel struct {
	// ID is the ThingSpeak channel number, treated as opaque text.
	ID string

	// Name is the human-readable label used in console output.
	Name string
}

// Registry is an immutable, ordered set of channels.
//
// Thread Safety: read-only after construction, safe for concurrent use.
type Registry struct {
	channels []Channel
}

// NewRegistry copies channels into a new Registry.
func NewRegistry(channels []Channel) *Registry {
	cp := make([]Channel, len(channels))
	copy(cp, channels)
	return &Registry{channels: cp}
}

// All returns a copy of the channels in configured order.
func (r *Registry) All() []Channel {
	cp := make([]Channel, len(r.channels))
	copy(cp, r.channels)
	return cp
}

// Len returns the number of configured channels.
func (r *Registry) Len() int {
	return len(r.channels)
}

// IDs returns the channel IDs in configured order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.channels))
	for _, ch := range r.channels {
		ids = append(ids, ch.ID)
	}
	return ids
}

// Lookup returns the first channel whose ID matches id.
func (r *Registry) Lookup(id string) (Channel, bool) {
	for _, ch := range r.channels {
		if ch.ID == id {
			return ch, true
		}
	}
	return Channel{}, false
}

// Name returns the display name for id, or "Channel {id}" when id is not configured.
func (r *Registry) Name(id string) string {
	if ch, ok := r.Lookup(id); ok {
		return ch.Name
	}
	return FallbackName(id)
}

// FallbackName is the label used for channel IDs missing from the registry.
func FallbackName(id string) string {
	return "Channel " + id
}

// PrintBanner writes the startup banner listing every configured channel.
func (r *Registry) PrintBanner(w io.Writer) error {
	rule := strings.Repeat("=", bannerWidth)

	var b strings.Builder
	b.WriteString("\n" + rule + "\n")
	b.WriteString("ThingSpeak Public MQTT Subscriber\n")
	b.WriteString(rule + "\n")
	b.WriteString("Configured Channels:\n")
	for _, ch := range r.channels {
		fmt.Fprintf(&b, "- %s (ID: %s)\n", ch.Name, ch.ID)
	}
	b.WriteString(rule + "\n\n")

	_, err := io.WriteString(w, b.String())
	return err
}
