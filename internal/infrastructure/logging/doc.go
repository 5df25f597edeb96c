// Package logging provides structured logging for netmap-core.
//
// It wraps log/slog with JSON output for production, text output for
// development, and default service/version attributes on every record.
//
// Logging is configured via the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	mon := logger.Component("monitor")
//	mon.Debug("probe failed", "device_id", id, "error", err)
//
// Never log MQTT passwords or InfluxDB tokens.
package logging
