// Package logging provides structured logging for the ADR control core.
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
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "adr", cfg.ADR.Name)
//	logger.Error("failed to connect", "error", err)
//
// Note that this is operator-facing process logging. The fridge event log
// that the control loops append to (and that the GUI renders) lives in
// internal/eventlog and is a separate concern.
//
// # Security
//
// Never log secrets, tokens, passwords, or API keys.
package logging
