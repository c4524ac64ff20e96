package stats

import (
	"context"
	"log/slog"
	"time"
)

// Sink receives periodic counter snapshots.
type Sink interface {
	WriteSnapshot(snap Snapshot)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Snapshot)

// WriteSnapshot implements Sink.
func (f SinkFunc) WriteSnapshot(snap Snapshot) { f(snap) }

// Reporter pushes snapshots from a Counters store to its sinks on a fixed interval.
type Reporter struct {
	counters *Counters
	interval time.Duration
	sinks    []Sink
}

// NewReporter creates a Reporter. A non-positive interval defaults to one minute.
func NewReporter(counters *Counters, interval time.Duration, sinks ...Sink) *Reporter {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reporter{
		counters: counters,
		interval: interval,
		sinks:    sinks,
	}
}

// Run reports until ctx is cancelled, then sends one final snapshot.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.report()
			return
		case <-ticker.C:
			r.report()
		}
	}
}

func (r *Reporter) report() {
	snap := r.counters.Snapshot()
	for _, sink := range r.sinks {
		sink.WriteSnapshot(snap)
	}
}

// LogSink writes snapshots as one structured log line per report.
type LogSink struct {
	Logger *slog.Logger
}

// WriteSnapshot implements Sink.
func (s LogSink) WriteSnapshot(snap Snapshot) {
	if s.Logger == nil {
		return
	}

	var decodeErrors, failures int64
	for _, cc := range snap.Channels {
		decodeErrors += cc.DecodeErrors
		failures += cc.Failures
	}

	s.Logger.Info("listener stats",
		"received", snap.TotalReceived(),
		"decode_errors", decodeErrors,
		"failures", failures,
		"connect_attempts", snap.Connection.Attempts,
		"connect_refused", snap.Connection.Refused,
		"unexpected_disconnects", snap.Connection.UnexpectedDisconnects,
	)
}
