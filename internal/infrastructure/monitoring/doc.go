/*
Package monitoring provides Prometheus metrics for the explorer server.

# Overview

Each Metrics value owns a private registry, exposed through Handler at
/metrics. Methods are safe on a nil receiver so components can run without
instrumentation in tests.

# Metrics

- HTTP request metrics (latency, throughput, size) keyed by route template
- Tree size and node churn
- Generation streams: outcome, duration, applied and discarded chunks, tokens
- Session persistence writes and restores
- WebSocket connections and messages
- Uptime

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	metrics.GenerationStarted()
	metrics.RecordChunk(true)
*/
package monitoring
