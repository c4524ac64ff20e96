package influxdb

import (
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/thingspeak-listener/internal/stats"
)

// Measurement names written by WriteSnapshot.
const (
	MeasurementChannel    = "listener_channel"
	MeasurementConnection = "listener_connection"
)

// WriteSnapshot writes one counter snapshot: a listener_channel point per
// channel and a single listener_connection point, all stamped snap.Taken.
//
// The write is non-blocking; points are batched and sent asynchronously.
// Implements stats.Sink.
func (c *Client) WriteSnapshot(snap stats.Snapshot) {
	if !c.IsConnected() {
		return
	}

	c.mu.RLock()
	nameOf := c.nameOf
	c.mu.RUnlock()

	for _, ch := range snap.Channels {
		tags := map[string]string{"channel_id": ch.ChannelID}
		if nameOf != nil {
			tags["channel_name"] = nameOf(ch.ChannelID)
		}

		c.writeAPI.WritePoint(write.NewPoint(
			MeasurementChannel,
			tags,
			map[string]interface{}{
				"received":      ch.Received,
				"decode_errors": ch.DecodeErrors,
				"failures":      ch.Failures,
			},
			snap.Taken,
		))
	}

	conn := snap.Connection
	c.writeAPI.WritePoint(write.NewPoint(
		MeasurementConnection,
		nil,
		map[string]interface{}{
			"attempts":               conn.Attempts,
			"accepted":               conn.Accepted,
			"refused":                conn.Refused,
			"failed":                 conn.Failed,
			"clean_disconnects":      conn.CleanDisconnects,
			"unexpected_disconnects": conn.UnexpectedDisconnects,
		},
		snap.Taken,
	))
}

var _ stats.Sink = (*Client)(nil)
