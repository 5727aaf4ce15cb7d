// Package logging provides structured logging for the Catalyst Dashboard.
//
// This package wraps Go's standard log/slog package so every component logs
// with the same fields and format.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("broker connected", "url", cfg.Broker.URL)
//	busLogger := logger.With("component", "bus")
//
// Never log tokens. The InfluxDB token in particular stays out of log fields.
package logging
