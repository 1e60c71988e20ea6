package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Martyparty1988/PichackaTracker/internal/core"
)

func (s *Server) handleDebts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.finances.Debts())
}

type createDebtRequest struct {
	Name        string `json:"name"`
	TotalAmount string `json:"totalAmount"`
}

func (s *Server) handleCreateDebt(w http.ResponseWriter, r *http.Request) {
	var req createDebtRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	total, err := core.ParseAmount(req.TotalAmount)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	debt, err := s.finances.CreateDebt(r.Context(), sanitizeInput(req.Name), total)
	if err != nil {
		if errors.Is(err, core.ErrEmptyName) || errors.Is(err, core.ErrInvalidAmount) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Create debt failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not create debt")
		return
	}
	respondJSON(w, http.StatusCreated, debt)
}

type payDebtRequest struct {
	Amount string `json:"amount"`
}

type payDebtResponse struct {
	Applied int64     `json:"applied"`
	Debt    core.Debt `json:"debt"`
}

func (s *Server) handlePayDebt(w http.ResponseWriter, r *http.Request) {
	debtID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid debt id")
		return
	}

	var req payDebtRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	applied, debt, err := s.finances.PayDebt(r.Context(), debtID, amount)
	if errors.Is(err, core.ErrUnknownDebt) {
		respondError(w, http.StatusNotFound, "unknown debt")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Debt payment failed", "error", err, "debt_id", debtID)
		respondError(w, http.StatusInternalServerError, "could not apply payment")
		return
	}
	respondJSON(w, http.StatusOK, payDebtResponse{Applied: applied, Debt: debt})
}
