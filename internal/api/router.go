package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	if s.metrics != nil {
		r.Handle(s.metricsPath, s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)

		r.Route("/endpoints", func(r chi.Router) {
			r.Get("/", s.handleListEndpoints)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetEndpoint)
				r.Put("/value", s.handleSetValue)
				r.Post("/press", s.handlePress)
			})
		})

		r.Get("/audit", s.handleListAudit)
	})

	return r
}

// handleHealth reports the bridge status. It answers 503 while the serial
// link is closed so load balancers and probes can act on it.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"version":   s.version,
		"endpoints": s.registry.Len(),
	}
	status := http.StatusOK

	if s.stats != nil {
		st := s.stats.Stats()
		resp["link"] = map[string]any{
			"port":      s.stats.LinkName(),
			"connected": st.Link.Connected,
			"state":     st.State,
		}
		if !st.Link.Connected {
			resp["status"] = "link_closed"
			status = http.StatusServiceUnavailable
		}
	}
	if s.health != nil {
		resp["bridge"] = s.health.Current()
	}

	writeJSON(w, status, resp)
}

// handleStats returns link and scheduler counters.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	if s.stats == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "statistics not available")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"port":  s.stats.LinkName(),
		"stats": s.stats.Stats(),
	})
}
