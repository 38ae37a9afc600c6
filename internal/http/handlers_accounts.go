package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"kassa/internal/core"
	"kassa/internal/ledger"
)

type accountRequest struct {
	Name     string        `json:"name"`
	Currency string        `json:"currency"`
	Color    string        `json:"color"`
	Icon     string        `json:"icon"`
	Balance  *amountString `json:"balance"`
}

func (req accountRequest) toInput() ledger.AccountInput {
	in := ledger.AccountInput{
		Name:     req.Name,
		Currency: req.Currency,
		Color:    req.Color,
		Icon:     req.Icon,
	}
	if req.Balance != nil {
		// The service rejects any balance write; parse just to carry it.
		b, err := core.ParseAmount(string(*req.Balance))
		if err != nil {
			b = decimal.Zero
		}
		in.Balance = &b
	}
	return in
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.Accounts(r.Context(), ownerID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]accountResponse, len(accounts))
	for i := range accounts {
		out[i] = toAccountResponse(&accounts[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	in := req.toInput()

	account, err := s.ledger.CreateAccount(r.Context(), ownerID(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.ledger.Account(r.Context(), ownerID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	in := req.toInput()

	account, err := s.ledger.UpdateAccount(r.Context(), ownerID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteAccount(r.Context(), ownerID(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEntriesByAccount(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r)
	res, err := s.ledger.EntriesByAccount(r.Context(), ownerID(r), chi.URLParam(r, "id"), page, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListResponse(res))
}
