package handlers

import (
	"net/http"
	"strings"

	"github.com/upb/voice-control-plane/app"
	"github.com/upb/voice-control-plane/internal/observability"
	"github.com/upb/voice-control-plane/utils"
)

// MetricsSummaryHandler returns the per-stage latency statistics plus the
// qualitative verdict on the summed p50s.
func MetricsSummaryHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary := deps.Tracker.Summary()

		var totalP50 float64
		for _, s := range summary {
			totalP50 += s.P50
		}

		_ = utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"stages":    summary,
			"total_p50": totalP50,
			"verdict":   observability.Verdict(totalP50),
		})
	}
}

// MetricsTableHandler renders the human-readable summary table.
func MetricsTableHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sb strings.Builder
		if err := deps.Tracker.WriteSummary(&sb); err != nil {
			_ = utils.WriteInternalServerError(w, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(sb.String()))
	}
}

// MetricsResetHandler clears all recorded stages, for use between
// independent benchmark runs.
func MetricsResetHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Tracker.Reset()
		w.WriteHeader(http.StatusNoContent)
	}
}
