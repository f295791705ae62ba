package httpapi

import (
	"net/http"
	"time"
)

// health answers a trivial liveness probe.
func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ok"})
}

// info answers /api/info: server identity and a summary of what's
// connected, consumed by the same monitoring tooling that polls the
// teacher's /api/info route.
func (h *Handlers) info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"name":             h.ServerName,
		"uuid":             h.ServerUUID,
		"uptime_seconds":   time.Since(h.StartedAt).Seconds(),
		"players_connected": h.Registry.Count(),
		"cometd_sessions":   h.Cometd.SessionCount(),
	})
}
