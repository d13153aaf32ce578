package handlers

import (
	"context"
	"net/http"

	"scenegen/internal/infra"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports whether the scene store answers and a story generator is
// configured. Either missing yields 503.
func (a *App) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), infra.ReadyCheckTimeout)
	defer cancel()

	checks := map[string]string{"store": "ok", "story": "ok"}
	ready := true
	if a.Store == nil {
		checks["store"] = "not configured"
		ready = false
	} else if err := a.Store.Ping(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("http: readiness store ping failed")
		checks["store"] = "unreachable"
		ready = false
	}
	if !a.StoryReady {
		checks["story"] = "not configured"
		ready = false
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	a.json(w, code, map[string]any{"status": status, "checks": checks})
}
