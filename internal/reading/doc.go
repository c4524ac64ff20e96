// Package reading turns raw ThingSpeak MQTT messages into console output.
//
// A ThingSpeak channel update arrives on channels/{id}/subscribe as a JSON
// object. Up to eight keys, field1 through field8, carry the channel's
// measurements; every other key (created_at, entry_id, ...) is ignored.
//
// Field values are kept as a tagged Value so a number prints exactly as it
// was sent ("10" stays "10", "23.5" stays "23.5") while strings, booleans
// and nulls keep their own kind.
//
// Handler is the per-message entry point. It never panics and never
// returns an error: decode problems are logged with the raw payload, any
// other failure is logged with its message, and the next message is
// handled normally.
package reading
