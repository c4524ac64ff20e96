// Package logging provides structured logging for the listener.
//
// This package wraps Go's standard log/slog package so every component
// logs with the same handler, level and default fields.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # text, json
//	  output: "stderr"   # stdout, stderr
//
// Readings are printed to stdout by the reading package; keeping logs on
// stderr means the two streams can be redirected separately.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("connected", "broker", addr)
//
// Never log MQTT passwords or the InfluxDB token.
package logging
