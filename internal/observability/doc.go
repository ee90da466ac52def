// Package observability provides structured logging and latency tracking
// for the voice control plane.
//
// This package implements:
//   - Structured logging with contextual fields (zap-based)
//   - Per-stage latency tracking with percentile statistics
//   - Human-readable latency summaries with a qualitative verdict
//
// All pipeline stages (speech-to-text, generation) are instrumented
// through the LatencyTracker.
package observability
