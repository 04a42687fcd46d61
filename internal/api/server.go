// Package api exposes the run history and its artifacts over HTTP, so a
// browser can pull up past classification reports.
package api

import (
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/meridian-geo/landcover.report/internal/httputil"
	"github.com/meridian-geo/landcover.report/internal/security"
	"github.com/meridian-geo/landcover.report/internal/store"
	"github.com/meridian-geo/landcover.report/internal/version"
)

// Server serves run history queries and classification artifacts.
type Server struct {
	store       *store.Store
	artifactDir string
	mux         *http.ServeMux
}

// NewServer returns a Server reading runs from st and artifact files from
// artifactDir.
func NewServer(st *store.Store, artifactDir string) *Server {
	s := &Server{
		store:       st,
		artifactDir: artifactDir,
		mux:         http.NewServeMux(),
	}
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/runs", s.handleListRuns)
	s.mux.HandleFunc("/api/runs/", s.handleGetRun)
	s.mux.HandleFunc("/artifacts/", s.handleArtifact)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe blocks serving on addr.
func (s *Server) ListenAndServe(addr string) error {
	log.Printf("[API] listening on %s", addr)
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	limit := 20
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			httputil.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := s.store.ListRecent(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	httputil.WriteJSONOK(w, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	runID := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if runID == "" || strings.Contains(runID, "/") {
		httputil.BadRequest(w, "run id required")
		return
	}
	run, err := s.store.Get(runID)
	if err != nil {
		httputil.NotFound(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, run)
}

// handleArtifact serves files out of the artifact directory. The requested
// name is sanitised and the resolved path must stay inside that directory.
func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/artifacts/")
	if name == "" {
		httputil.BadRequest(w, "artifact name required")
		return
	}
	path := filepath.Join(s.artifactDir, security.SanitizeFilename(name))
	if err := security.ValidatePathWithinDirectory(path, s.artifactDir); err != nil {
		httputil.BadRequest(w, "invalid artifact path")
		return
	}
	http.ServeFile(w, r, path)
}
