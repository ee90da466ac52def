package observability

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"
)

// StageMetrics holds the recorded latencies for a single pipeline stage.
// Statistics are computed on read from the append-only sample list; nothing
// is cached between recordings.
type StageMetrics struct {
	Name      string
	latencies []float64
}

// add appends a latency sample in milliseconds.
func (m *StageMetrics) add(latencyMs float64) {
	m.latencies = append(m.latencies, latencyMs)
}

// Count returns the number of recorded samples.
func (m *StageMetrics) Count() int {
	return len(m.latencies)
}

// Mean returns the arithmetic mean of all samples, or 0 with no samples.
func (m *StageMetrics) Mean() float64 {
	if len(m.latencies) == 0 {
		return 0
	}
	var sum float64
	for _, v := range m.latencies {
		sum += v
	}
	return sum / float64(len(m.latencies))
}

// P50 returns the median latency using the nearest-rank estimator.
func (m *StageMetrics) P50() float64 { return m.percentile(0.50) }

// P95 returns the 95th percentile latency.
func (m *StageMetrics) P95() float64 { return m.percentile(0.95) }

// P99 returns the 99th percentile latency. The index is clamped to the last
// sample so short sequences never read out of range.
func (m *StageMetrics) P99() float64 { return m.percentile(0.99) }

// percentile is a nearest-rank estimator: element at floor(n*k) of the
// sorted samples, clamped to n-1. Not interpolated.
func (m *StageMetrics) percentile(k float64) float64 {
	n := len(m.latencies)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, m.latencies)
	sort.Float64s(sorted)
	idx := int(float64(n) * k)
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

// StageSummary is the read-only statistics snapshot for one stage.
type StageSummary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
}

// LatencyTracker records per-stage latencies across the lifetime of one
// conversational session or benchmark run. It is safe for concurrent use:
// recording, snapshotting and reset are serialized by an internal mutex.
//
// Usage:
//
//	tracker := observability.NewLatencyTracker(logger)
//
//	stop := tracker.Measure("stt")
//	result, err := stt.Transcribe(ctx, audio)
//	stop()
//
//	tracker.PrintSummary()
type LatencyTracker struct {
	mu     sync.Mutex
	stages map[string]*StageMetrics
	starts map[string]time.Time
	logger *zap.Logger
}

// NewLatencyTracker creates an empty tracker. The logger may be nil.
func NewLatencyTracker(logger *zap.Logger) *LatencyTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LatencyTracker{
		stages: make(map[string]*StageMetrics),
		starts: make(map[string]time.Time),
		logger: logger,
	}
}

// Measure opens a timer for the stage and returns the closure that stops it.
// Deferring the returned func guarantees the elapsed time is recorded on
// every exit path, panics included:
//
//	defer tracker.Measure("llm")()
func (t *LatencyTracker) Measure(stage string) func() {
	start := time.Now()
	return func() {
		t.record(stage, float64(time.Since(start).Microseconds())/1000.0)
	}
}

// Start begins a manual timing for the stage. A stage may have at most one
// open timer; calling Start again before Stop overwrites the pending start.
func (t *LatencyTracker) Start(stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.starts[stage] = time.Now()
}

// Stop ends a manual timing, records the measurement and returns the elapsed
// milliseconds. Stopping a stage that was never started is an error naming
// the stage. Stop removes the pending start, so a subsequent Start/Stop pair
// on the same name is independent.
func (t *LatencyTracker) Stop(stage string) (float64, error) {
	t.mu.Lock()
	start, ok := t.starts[stage]
	if !ok {
		t.mu.Unlock()
		return 0, fmt.Errorf("stage %q was not started", stage)
	}
	delete(t.starts, stage)
	t.mu.Unlock()

	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0
	t.record(stage, latencyMs)
	return latencyMs, nil
}

func (t *LatencyTracker) record(stage string, latencyMs float64) {
	t.mu.Lock()
	m, ok := t.stages[stage]
	if !ok {
		m = &StageMetrics{Name: stage}
		t.stages[stage] = m
	}
	m.add(latencyMs)
	t.mu.Unlock()

	t.logger.Debug("stage latency recorded",
		zap.String("stage", stage),
		zap.Float64("latency_ms", latencyMs))
}

// Summary returns per-stage statistics. It is a pure read: calling it twice
// with no intervening recordings yields identical results.
func (t *LatencyTracker) Summary() map[string]StageSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]StageSummary, len(t.stages))
	for name, m := range t.stages {
		out[name] = StageSummary{
			Count: m.Count(),
			Mean:  m.Mean(),
			P50:   m.P50(),
			P95:   m.P95(),
			P99:   m.P99(),
		}
	}
	return out
}

// Verdict classifies a summed per-stage p50 against fixed conversational
// latency thresholds.
func Verdict(totalP50 float64) string {
	switch {
	case totalP50 < 300:
		return "EXCELLENT - natural conversation feel"
	case totalP50 < 500:
		return "GOOD - acceptable latency"
	case totalP50 < 800:
		return "FAIR - noticeable delay"
	default:
		return "POOR - needs optimization"
	}
}

// WriteSummary renders the latency table to w, one row per stage plus a
// total row. The total is the sum of per-stage p50s, which approximates
// end-to-end turnaround for a pipeline whose stages run back to back.
func (t *LatencyTracker) WriteSummary(w io.Writer) error {
	summary := t.Summary()

	names := make([]string, 0, len(summary))
	for name := range summary {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tCOUNT\tMEAN\tP50\tP95\tP99")

	var totalP50 float64
	for _, name := range names {
		s := summary[name]
		fmt.Fprintf(tw, "%s\t%d\t%.0fms\t%.0fms\t%.0fms\t%.0fms\n",
			name, s.Count, s.Mean, s.P50, s.P95, s.P99)
		totalP50 += s.P50
	}
	fmt.Fprintf(tw, "TOTAL (estimated)\t-\t-\t%.0fms\t-\t-\n", totalP50)
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nStatus: %s\n", Verdict(totalP50))
	return err
}

// PrintSummary writes the summary table to stdout.
func (t *LatencyTracker) PrintSummary() {
	_ = t.WriteSummary(os.Stdout)
}

// Reset clears all recorded stages and any pending manual timers. Use it
// between independent benchmark runs.
func (t *LatencyTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stages = make(map[string]*StageMetrics)
	t.starts = make(map[string]time.Time)
}
