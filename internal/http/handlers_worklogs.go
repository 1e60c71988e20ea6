package http

import (
	"log/slog"
	"net/http"
)

const summaryCacheKey = "work-summary"

func (s *Server) handleWorkLogs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	logs, err := s.reports.Recent(r.Context(), limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "List work logs failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not load work logs")
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

func (s *Server) handleWorkSummary(w http.ResponseWriter, r *http.Request) {
	if cached, found := s.summaryCache.Get(summaryCacheKey); found {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	summary, err := s.reports.Summary(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Work summary failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not compute summary")
		return
	}

	s.summaryCache.Set(summaryCacheKey, summary)
	respondJSON(w, http.StatusOK, summary)
}
