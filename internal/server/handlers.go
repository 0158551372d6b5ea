package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "fundlens",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// handleGetMasterlist returns the active-scheme master map.
// GET /api/masterlist
func (s *Server) handleGetMasterlist(w http.ResponseWriter, r *http.Request) {
	master := s.masterStore.LoadMaster()
	if master == nil {
		s.writeError(w, http.StatusNotFound, "master map not built yet")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"active": len(master),
		"master": master,
	})
}

// handleRebuildMasterlist rebuilds the master map and parent grouping.
// POST /api/masterlist/rebuild?force=true
func (s *Server) handleRebuildMasterlist(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") != "false"

	summary, err := s.builder.BuildAll(force)
	if err != nil {
		s.log.Error().Err(err).Msg("Masterlist rebuild failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"total_codes": summary.TotalCodes,
		"active":      summary.Active,
		"parents":     summary.Parents,
		"elapsed_sec": summary.Elapsed.Seconds(),
	})
}

// handleListParents returns the parent grouping artifact.
// GET /api/parents
func (s *Server) handleListParents(w http.ResponseWriter, r *http.Request) {
	payload, err := s.masterStore.LoadParents()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.writeError(w, http.StatusNotFound, "parent grouping not built yet")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, payload)
}

// handleSearchParents searches parent keys by substring.
// GET /api/parents/search?q=flexi&limit=10
func (s *Server) handleSearchParents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	hits, err := s.overview.Search(query, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": hits,
	})
}

// handleParentOverview returns the merged view of one parent product.
// GET /api/parents/{key}/overview
func (s *Server) handleParentOverview(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	ov, err := s.overview.Get(key)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ov == nil {
		s.writeError(w, http.StatusNotFound, "parent not found")
		return
	}
	s.writeJSON(w, http.StatusOK, ov)
}

// handleParentMetrics returns the per-parent metrics artifact.
// GET /api/metrics/parents
func (s *Server) handleParentMetrics(w http.ResponseWriter, r *http.Request) {
	payload, err := s.metricsBuilder.LoadParentMetrics()
	if err != nil {
		s.writeError(w, http.StatusNotFound, "parent metrics not built yet")
		return
	}
	s.writeJSON(w, http.StatusOK, payload)
}

// handleSchemeMetrics returns the per-code metrics artifact.
// GET /api/metrics/schemes
func (s *Server) handleSchemeMetrics(w http.ResponseWriter, r *http.Request) {
	payload, err := s.metricsBuilder.LoadCodeMetrics()
	if err != nil {
		s.writeError(w, http.StatusNotFound, "scheme metrics not built yet")
		return
	}
	s.writeJSON(w, http.StatusOK, payload)
}

// handleRebuildMetrics recomputes metrics artifacts.
// POST /api/metrics/rebuild?scope=parents|all&limit=0&rf=0.06
func (s *Server) handleRebuildMetrics(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = "parents"
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	riskFree := s.cfg.RiskFreeRate
	if rf := r.URL.Query().Get("rf"); rf != "" {
		parsed, err := strconv.ParseFloat(rf, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid rf parameter")
			return
		}
		riskFree = parsed
	}

	switch scope {
	case "parents":
		_, summary, err := s.metricsBuilder.BuildParentMetrics(limit, riskFree)
		if err != nil {
			s.log.Error().Err(err).Msg("Parent metrics rebuild failed")
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, summary)
	case "all":
		_, summary, err := s.metricsBuilder.BuildAllSchemeMetrics(limit, riskFree)
		if err != nil {
			s.log.Error().Err(err).Msg("Scheme metrics rebuild failed")
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, summary)
	default:
		s.writeError(w, http.StatusBadRequest, "scope must be parents or all")
	}
}
