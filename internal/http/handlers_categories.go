package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"kassa/internal/core"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	var (
		categories []core.Category
		err        error
	)
	if t := r.URL.Query().Get("type"); t != "" {
		categories, err = s.ledger.CategoriesByType(r.Context(), core.EntryType(t))
	} else {
		categories, err = s.ledger.Categories(r.Context())
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]categoryResponse, len(categories))
	for i, c := range categories {
		out[i] = toCategoryResponse(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := s.ledger.Category(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(*category))
}
