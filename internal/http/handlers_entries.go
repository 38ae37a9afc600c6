package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"kassa/internal/core"
	"kassa/internal/ledger"
)

type entryRequest struct {
	AccountID   string       `json:"accountId"`
	CategoryID  string       `json:"categoryId"`
	Amount      amountString `json:"amount"`
	Type        string       `json:"type"`
	Date        string       `json:"date"`
	Description string       `json:"description"`
}

func (req entryRequest) toInput() (ledger.EntryInput, error) {
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		return ledger.EntryInput{}, core.ErrInvalidAmount
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return ledger.EntryInput{}, core.ErrInvalidDate
	}
	return ledger.EntryInput{
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Amount:      amount,
		Type:        core.EntryType(req.Type),
		Date:        date,
		Description: req.Description,
	}, nil
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	criteria, err := parseFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, limit := parsePagination(r)

	res, err := s.ledger.ListEntries(r.Context(), ownerID(r), criteria, page, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListResponse(res))
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	in, err := req.toInput()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	entry, err := s.ledger.CreateEntry(r.Context(), ownerID(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryResponse(*entry))
}

func (s *Server) handleRecentEntries(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.ledger.RecentEntries(r.Context(), ownerID(r), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponses(entries))
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.ledger.Entry(r.Context(), ownerID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(*entry))
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	in, err := req.toInput()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	entry, err := s.ledger.UpdateEntry(r.Context(), ownerID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(*entry))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteEntry(r.Context(), ownerID(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEntriesByCategory(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r)
	res, err := s.ledger.EntriesByCategory(r.Context(), ownerID(r), chi.URLParam(r, "id"), page, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListResponse(res))
}
