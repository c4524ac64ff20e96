// Package stats keeps in-memory counters for the listener: how many
// messages each channel delivered, how many failed to decode, and how the
// broker session behaved (attempts, refusals, drops).
//
// Only counts are kept. Field values from payloads are never recorded.
//
// A Reporter periodically hands a Snapshot to one or more Sinks; the log
// sink and the InfluxDB client are the two sinks wired by cmd/listener.
package stats
