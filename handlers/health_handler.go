package handlers

import (
	"net/http"

	"github.com/upb/voice-control-plane/app"
	"github.com/upb/voice-control-plane/utils"
)

// HealthCheck returns a simple health check handler
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// ReadinessCheck reports whether the pipeline is wired and which tiers are
// available. The local tier is always configured, so readiness never depends
// on the cloud credential.
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"pipeline": "wired",
			"local":    "configured",
		}
		if deps.Config.HasRemoteCredential() {
			checks["remote"] = "configured"
		} else {
			checks["remote"] = "no_credential"
		}

		_ = utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ready",
			"checks": checks,
		})
	}
}

// StatusHandler returns application status information
func StatusHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"version":      "0.1.0",
			"environment":  deps.Config.Environment,
			"stt_provider": deps.Config.Pipeline.STTProvider,
			"llm_provider": deps.Config.Pipeline.LLMProvider,
		})
	}
}
