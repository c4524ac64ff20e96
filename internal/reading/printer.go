package reading

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const (
	// TimestampLayout is the header timestamp format.
	TimestampLayout = "2006-01-02 15:04:05"

	// separatorWidth is the number of '-' in the record separator.
	separatorWidth = 50
)

// Printer renders readings as human-readable console blocks.
//
// Output is illustrative and not meant to be machine-parsed:
//
//	[2026-01-02 15:04:05] New data received from Channel 1:
//	Channel ID: 2718325
//	Field 1: 23.5
//	--------------------------------------------------
type Printer struct {
	w   io.Writer
	mu  sync.Mutex
	now func() time.Time
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, now: time.Now}
}

// Print writes one record. The whole block is written in a single call so
// records never interleave.
func (p *Printer) Print(name string, r Reading) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n[%s] New data received from %s:\n", p.now().Format(TimestampLayout), name)
	fmt.Fprintf(&b, "Channel ID: %s\n", r.ChannelID)
	for _, i := range r.Indices() {
		fmt.Fprintf(&b, "Field %d: %s\n", i, r.Fields[i])
	}
	b.WriteString(strings.Repeat("-", separatorWidth))
	b.WriteString("\n")

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.w, b.String())
	return err
}
