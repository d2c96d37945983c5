// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Log Levels:
//   - Debug: Verbose debugging information
//   - Info: General informational messages
//   - Warn: Warning messages
//   - Error: Error messages
//   - Fatal: Fatal errors (exits process)
//
// Components get their own child logger through Named ("pipeline",
// "persister", "ws", ...), so every line carries its origin.
//
// Example Usage:
//
//	logger := logging.FromConfig("info", false)
//	logger.Named("pipeline").Info("Generation started", zap.String("url", url))
package logging
