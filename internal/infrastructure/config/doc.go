// Package config provides 12-factor configuration management for the explorer.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP listener and shutdown
//   - LLM: generation backend, retries and circuit breaker
//   - Storage: session backend, location and backups
//   - Generation: token budget, timeout and request history
//   - Logging: log level and output format
//   - RateLimit / CORS: HTTP guards
//
// An optional YAML file named by CONFIG_FILE carries prompt and model
// overrides. It seeds a fresh session and can be watched for changes.
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
package config
