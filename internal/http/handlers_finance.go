package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Martyparty1988/PichackaTracker/internal/core"
)

type transactionRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func (s *Server) handleFinanceOverview(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	respondJSON(w, http.StatusOK, s.finances.Overview(limit))
}

func (s *Server) handleIncome(w http.ResponseWriter, r *http.Request) {
	s.handleTransaction(w, r, s.finances.RecordIncome)
}

func (s *Server) handleExpense(w http.ResponseWriter, r *http.Request) {
	s.handleTransaction(w, r, s.finances.RecordExpense)
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request,
	record func(ctx context.Context, amount int64, currency core.Currency, description, category string) (core.Transaction, error)) {

	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	tx, err := record(r.Context(), amount, core.Currency(req.Currency),
		sanitizeInput(req.Description), sanitizeInput(req.Category))
	if err != nil {
		if errors.Is(err, core.ErrInvalidAmount) ||
			errors.Is(err, core.ErrInvalidCurrency) ||
			errors.Is(err, core.ErrEmptyDescription) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Transaction failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not record transaction")
		return
	}
	respondJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleRent(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.finances.Rent())
}
