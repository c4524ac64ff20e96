package influxdb

import "errors"

// Sentinel errors for InfluxDB operations.
//
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // export not configured, carry on without it
//	}
var (
	// ErrNotConnected indicates the client is closed or never connected.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial ping failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed wraps async batch write errors delivered to SetOnError.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrDisabled indicates InfluxDB export is disabled in config.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
