// Package main is the entry point for the indranet explorer backend.
//
// The explorer is a fictional web browser: every page is written on demand
// by a language model, and the pages visited form a navigation tree that
// survives restarts.
//
// Architecture:
//
//	Client (REST + WebSocket) → Go Backend → Model provider (Anthropic, OpenAI, Ollama)
//	                                       → Session storage (file, SQLite)
//
// The server provides:
//   - REST API for settings, the node tree and navigation
//   - WebSocket streaming of generated pages
//   - Sandboxed page frames
//   - Prometheus metrics
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Optional YAML overrides file, reloaded on change
//
// Usage:
//
//	# Anthropic with the key from the environment
//	LLM_API_KEY=sk-... ./server -port 8000
//
//	# Local model, SQLite storage, development logs
//	./server -provider ollama -storage sqlite -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
