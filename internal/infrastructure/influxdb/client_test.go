package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/thingspeak-listener/internal/infrastructure/config"
	"github.com/nerrad567/thingspeak-listener/internal/infrastructure/influxdb"
	"github.com/nerrad567/thingspeak-listener/internal/stats"
)

// fakeInflux is a minimal InfluxDB v2 HTTP API: /ping and /api/v2/write.
type fakeInflux struct {
	mu          sync.Mutex
	lines       []string
	pingStatus  int
	writeStatus int
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/ping"):
		w.WriteHeader(f.pingStatus)
	case strings.HasSuffix(r.URL.Path, "/write"):
		body, _ := io.ReadAll(r.Body)
		if f.writeStatus != http.StatusNoContent {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.writeStatus)
			_, _ = io.WriteString(w, `{"code":"invalid","message":"rejected"}`)
			return
		}
		for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
			if line != "" {
				f.lines = append(f.lines, line)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeInflux) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func newFakeInflux(t *testing.T) (*fakeInflux, config.InfluxDBConfig) {
	t.Helper()
	fake := &fakeInflux{pingStatus: http.StatusNoContent, writeStatus: http.StatusNoContent}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	return fake, config.InfluxDBConfig{
		Enabled:       true,
		URL:           server.URL,
		Token:         "test-token",
		Org:           "listener",
		Bucket:        "counters",
		BatchSize:     100,
		FlushInterval: 60,
	}
}

func testSnapshot() stats.Snapshot {
	return stats.Snapshot{
		Taken: time.Unix(1767366245, 0),
		Channels: []stats.ChannelCounts{
			{ChannelID: "2718325", Received: 2, DecodeErrors: 1},
			{ChannelID: "999", Received: 5},
		},
		Connection: stats.ConnectionCounts{Attempts: 3, Accepted: 2, Refused: 1, UnexpectedDisconnects: 1},
	}
}

func waitForLines(t *testing.T, fake *fakeInflux, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if lines := fake.written(); len(lines) >= n {
			return lines
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d lines, got %v", n, fake.written())
	return nil
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect_Disabled(t *testing.T) {
	_, cfg := newFakeInflux(t)
	cfg.Enabled = false

	_, err := influxdb.Connect(context.Background(), cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_PingFails(t *testing.T) {
	fake, cfg := newFakeInflux(t)
	fake.pingStatus = http.StatusServiceUnavailable

	_, err := influxdb.Connect(context.Background(), cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	cfg := config.InfluxDBConfig{Enabled: true, URL: url, Org: "o", Bucket: "b"}
	_, err := influxdb.Connect(context.Background(), cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	_, cfg := newFakeInflux(t)
	cfg.BatchSize = 0
	cfg.FlushInterval = -1

	client, err := influxdb.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect() with default batch settings")
	}
}

// =============================================================================
// Write Tests
// =============================================================================

func TestWriteSnapshot(t *testing.T) {
	fake, cfg := newFakeInflux(t)
	client, err := influxdb.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.SetChannelNames(func(id string) string {
		if id == "2718325" {
			return "Channel 1"
		}
		return "Channel " + id
	})

	client.WriteSnapshot(testSnapshot())
	client.Flush()

	lines := waitForLines(t, fake, 3)
	joined := strings.Join(lines, "\n")

	for _, want := range []string{
		`listener_channel,channel_id=2718325,channel_name=Channel\ 1 `,
		`decode_errors=1i`,
		`received=2i`,
		`listener_channel,channel_id=999,channel_name=Channel\ 999 `,
		`listener_connection `,
		`unexpected_disconnects=1i`,
		`1767366245000000000`,
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("written lines missing %q:\n%s", want, joined)
		}
	}
}

func TestWriteSnapshot_WithoutNames(t *testing.T) {
	fake, cfg := newFakeInflux(t)
	client, err := influxdb.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.WriteSnapshot(testSnapshot())
	client.Flush()

	for _, line := range waitForLines(t, fake, 3) {
		if strings.Contains(line, "channel_name=") {
			t.Errorf("unexpected channel_name tag: %s", line)
		}
	}
}

func TestWriteSnapshot_ErrorCallback(t *testing.T) {
	fake, cfg := newFakeInflux(t)
	fake.writeStatus = http.StatusBadRequest

	client, err := influxdb.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	errCh := make(chan error, 4)
	client.SetOnError(func(err error) {
		select {
		case errCh <- err:
		default:
		}
	})

	client.WriteSnapshot(testSnapshot())
	client.Flush()

	select {
	case err := <-errCh:
		if !errors.Is(err, influxdb.ErrWriteFailed) {
			t.Errorf("callback error = %v, want ErrWriteFailed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("write error callback not invoked")
	}
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestHealthCheck(t *testing.T) {
	_, cfg := newFakeInflux(t)
	client, err := influxdb.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() should return error for cancelled context")
	}

	client.Close()
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}
}

func TestClose_Idempotent(t *testing.T) {
	fake, cfg := newFakeInflux(t)
	client, err := influxdb.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	// Writes and flushes after Close are no-ops.
	client.WriteSnapshot(testSnapshot())
	client.Flush()
	if got := fake.written(); len(got) != 0 {
		t.Errorf("lines written after Close: %v", got)
	}
}

func TestCloseNil(t *testing.T) {
	var client *influxdb.Client
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}
