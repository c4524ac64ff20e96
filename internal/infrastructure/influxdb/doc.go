// Package influxdb exports listener counters to InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library. The stats reporter
// hands it periodic snapshots; each becomes one listener_channel point per
// channel (tags channel_id, channel_name) and one listener_connection point.
//
// Received field values are never written: only message and connection
// counts leave the process.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.SetChannelNames(registry.Name)
//
//	reporter := stats.NewReporter(counters, interval, client)
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are non-blocking and
// batched according to batch_size and flush_interval; write errors arrive
// asynchronously through SetOnError.
package influxdb
