package journal

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/thingspeak-listener/internal/infrastructure/config"
	"github.com/nerrad567/thingspeak-listener/internal/infrastructure/database"
	"github.com/nerrad567/thingspeak-listener/internal/infrastructure/mqtt"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const (
	migrationDir = "migrations"

	defaultBufferSize = 128

	// writeTimeout bounds a single insert.
	writeTimeout = 5 * time.Second

	timeLayout = time.RFC3339Nano
)

// ErrDisabled is returned by Open when the journal is switched off.
var ErrDisabled = errors.New("journal: disabled in configuration")

// Logger is the logging surface the recorder needs.
type Logger interface {
	Warn(msg string, args ...any)
}

// Entry is one journaled event.
type Entry struct {
	ID         int64
	SessionID  string
	Kind       mqtt.EventKind
	Code       int
	Detail     string
	OccurredAt time.Time
}

// Recorder writes mqtt.Events for one session.
type Recorder struct {
	db        *database.DB
	ownsDB    bool
	sessionID string
	logger    Logger

	events  chan mqtt.Event
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	started atomic.Bool
	dropped atomic.Int64
}

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// Open opens the journal database, applies migrations and starts the writer.
// Returns ErrDisabled when cfg.Enabled is false.
func Open(ctx context.Context, cfg config.JournalConfig, sessionID string, logger Logger) (*Recorder, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	db, err := database.Open(database.ConfigFromJournal(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	r, err := New(ctx, db, sessionID, logger)
	if err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, err
	}
	r.ownsDB = true
	r.Start()
	return r, nil
}

// New builds a Recorder on an open database and migrates the schema.
// Call Start before Record.
func New(ctx context.Context, db *database.DB, sessionID string, logger Logger) (*Recorder, error) {
	if db == nil {
		return nil, errors.New("journal: database is required")
	}
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	if logger == nil {
		logger = nopLogger{}
	}

	if err := db.Migrate(ctx, migrationFS, migrationDir); err != nil {
		return nil, fmt.Errorf("migrating journal: %w", err)
	}

	return &Recorder{
		db:        db,
		sessionID: sessionID,
		logger:    logger,
		events:    make(chan mqtt.Event, defaultBufferSize),
		done:      make(chan struct{}),
	}, nil
}

// SessionID returns the ID stamped on every row this recorder writes.
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// Start launches the writer goroutine. Calling it again has no effect.
func (r *Recorder) Start() {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	go r.run()
}

// Record queues e for writing. It never blocks; when the buffer is full or
// the recorder is closed the event is dropped and counted.
func (r *Recorder) Record(e mqtt.Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.dropped.Add(1)
		return
	}

	select {
	case r.events <- e:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns the number of events that could not be queued.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting events, writes what is queued, and closes the
// database if Open created it. Safe to call more than once.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.events)
	r.mu.Unlock()

	if r.started.Load() {
		<-r.done
	}

	if n := r.dropped.Load(); n > 0 {
		r.logger.Warn("journal dropped events", "count", n)
	}

	if r.ownsDB {
		return r.db.Close()
	}
	return nil
}

func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.events {
		if err := r.write(e); err != nil {
			r.logger.Warn("failed to journal event", "kind", string(e.Kind), "error", err)
		}
	}
}

func (r *Recorder) write(e mqtt.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	at := e.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO session_events (session_id, kind, code, detail, occurred_at)
		 VALUES (?, ?, ?, ?, ?)`,
		r.sessionID,
		string(e.Kind),
		int(e.Code),
		detail(e),
		at.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting session event: %w", err)
	}
	return nil
}

// detail is the free-text column: the error, else the topic, else a marker
// for reconnect attempts.
func detail(e mqtt.Event) string {
	switch {
	case e.Err != nil:
		return e.Err.Error()
	case e.Topic != "":
		return e.Topic
	case e.Reconnect:
		return "reconnect"
	default:
		return ""
	}
}

// Recent returns up to n entries for this session, newest first.
func (r *Recorder) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, kind, code, detail, occurred_at
		 FROM session_events
		 WHERE session_id = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		r.sessionID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("querying session events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e    Entry
			kind string
			at   string
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &kind, &e.Code, &e.Detail, &at); err != nil {
			return nil, fmt.Errorf("scanning session event: %w", err)
		}
		e.Kind = mqtt.EventKind(kind)
		if e.OccurredAt, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("parsing occurred_at %q: %w", at, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session events: %w", err)
	}
	return entries, nil
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...any) {}
