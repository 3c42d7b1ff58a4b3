package web

import (
	"context"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/qbimport/internal/core"
	"github.com/JonMunkholm/qbimport/internal/logging"
	"github.com/JonMunkholm/qbimport/internal/web/views"
)

const (
	recentRuns   = 20
	probeTimeout = 2 * time.Second
)

// handleIndex renders the upload form and the recent run list.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	runs, err := s.service.ListRuns(r.Context(), recentRuns)
	if err != nil {
		// The page still works without history.
		logging.FromContext(r.Context()).Warn("list runs", "error", err)
	}

	templ.Handler(views.Index(views.IndexProps{
		Runs:        runs,
		Headers:     core.Headers,
		MaxFileSize: s.service.MaxFileSize(),
		Extensions:  s.cfg.Import.AllowedExtensions,
	})).ServeHTTP(w, r)
}

// handleRunPage renders one run.
func (s *Server) handleRunPage(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.Lookup(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	templ.Handler(views.Run(status)).ServeHTTP(w, r)
}

// handleHealthz reports liveness.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readiness is the /readyz body.
type readiness struct {
	Status  string                `json:"status"`
	Checks  map[string]string     `json:"checks"`
	Imports core.RunLimiterStatus `json:"imports"`
}

// handleReadyz runs every health check and answers 503 if any fails.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	body := readiness{
		Status:  "ok",
		Checks:  make(map[string]string, len(s.checks)),
		Imports: s.service.LimiterStatus(),
	}
	status := http.StatusOK
	for _, c := range s.checks {
		if err := c.Check(ctx); err != nil {
			body.Checks[c.Name] = err.Error()
			body.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		body.Checks[c.Name] = "ok"
	}
	writeJSON(w, status, body)
}
