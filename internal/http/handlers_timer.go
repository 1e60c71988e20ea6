package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Martyparty1988/PichackaTracker/internal/core"
)

func (s *Server) handleTimerState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.sessions.View())
}

func (s *Server) handleTimerStart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.sessions.Start(r.Context()))
}

func (s *Server) handleTimerPause(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.sessions.Pause(r.Context()))
}

func (s *Server) handleTimerResume(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.sessions.Resume(r.Context()))
}

type stopResponse struct {
	Skipped bool          `json:"skipped"`
	Reason  string        `json:"reason,omitempty"`
	WorkLog *core.WorkLog `json:"workLog,omitempty"`
}

func (s *Server) handleTimerStop(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.sessions.StopAndSettle(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Settlement failed", "error", err)
		respondError(w, http.StatusInternalServerError, "settlement could not be saved, stop again to retry")
		return
	}

	// Settled sessions change today's totals.
	s.summaryCache.Delete(summaryCacheKey)

	resp := stopResponse{Skipped: outcome.Skipped, Reason: outcome.Reason}
	if !outcome.Skipped {
		wl := outcome.WorkLog
		resp.WorkLog = &wl
	}
	respondJSON(w, http.StatusOK, resp)
}

type switchPersonRequest struct {
	PersonID int64 `json:"personId"`
}

func (s *Server) handleTimerPerson(w http.ResponseWriter, r *http.Request) {
	var req switchPersonRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := s.sessions.SwitchPerson(r.Context(), req.PersonID)
	if errors.Is(err, core.ErrUnknownPerson) {
		respondError(w, http.StatusUnprocessableEntity, "unknown person")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "switch person failed")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

type switchActivityRequest struct {
	ActivityID int64 `json:"activityId"`
}

func (s *Server) handleTimerActivity(w http.ResponseWriter, r *http.Request) {
	var req switchActivityRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, ok := s.directory.Activity(req.ActivityID); !ok {
		respondError(w, http.StatusUnprocessableEntity, "unknown activity")
		return
	}
	respondJSON(w, http.StatusOK, s.sessions.SwitchActivity(r.Context(), req.ActivityID))
}

func (s *Server) handlePersons(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.directory.Persons())
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.directory.Activities())
}
