package server

import "net/http"

// HealthHandler answers GET /healthz with {ok, version, environment}. It is not authenticated.
type HealthHandler struct {
	Version     string
	Environment string
}

// Routes returns the HTTP routes this handler serves.
func (h *HealthHandler) Routes() []string {
	return []string{"GET /healthz"}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"version":     h.Version,
		"environment": h.Environment,
	})
}
