// Package logging provides structured logging for the Maestro bridge.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Size-rotated log files through lumberjack
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "file"     # stdout, stderr, file
//	  file:
//	    path: "logs/maestro.log"
//	    max_size: 10     # megabytes
//	    max_backups: 7
//	    max_age: 7       # days
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	defer logger.Close()
//	logger.Info("session connected", "url", cfg.Maestro.URL)
//
// # Security
//
// Never log the MQTT password. config.MQTTAuthConfig has a redacting String method.
package logging
