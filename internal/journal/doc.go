// Package journal records connection lifecycle events to SQLite.
//
// Every process run gets a session ID (a random UUID). Each event the
// connection manager emits (connect attempts, CONNACK codes, subscriptions,
// disconnects) becomes one session_events row tagged with that ID, so a
// flapping broker or a credential problem can be reconstructed after the
// fact.
//
// Message payloads are never journaled.
//
// Record never blocks the caller: events go through a buffered channel to
// a single writer goroutine, and are dropped (and counted) when the buffer
// is full.
package journal
