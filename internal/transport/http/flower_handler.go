package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flora-agent/flora/internal/domain"
)

func (s *Server) handleFlowerCreate(w http.ResponseWriter, r *http.Request) {
	var req createFlowerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	created, err := s.catalog.Create(r.Context(), domain.Flower{
		Name:          req.Name,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		respondDomainError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toFlowerResponse(created))
}

func (s *Server) handleFlowerGet(w http.ResponseWriter, r *http.Request) {
	flower, err := s.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toFlowerResponse(flower))
}

func (s *Server) handleFlowerList(w http.ResponseWriter, r *http.Request) {
	offset, limit := parsePage(r)

	flowers, total, err := s.catalog.List(r.Context(), offset, limit)
	if err != nil {
		respondDomainError(w, s.logger, err)
		return
	}

	items := make([]flowerResponse, 0, len(flowers))
	for _, flower := range flowers {
		items = append(items, toFlowerResponse(flower))
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, Total: total, Offset: offset, Limit: limit})
}

func (s *Server) handleFlowerUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateFlowerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	updated, err := s.catalog.Update(r.Context(), domain.Flower{
		ID:    chi.URLParam(r, "id"),
		Name:  req.Name,
		Price: req.Price,
	})
	if err != nil {
		respondDomainError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toFlowerResponse(updated))
}

func (s *Server) handleFlowerSetStock(w http.ResponseWriter, r *http.Request) {
	var req setStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	updated, err := s.catalog.SetStock(r.Context(), chi.URLParam(r, "id"), req.StockQuantity)
	if err != nil {
		respondDomainError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toFlowerResponse(updated))
}

func (s *Server) handleFlowerDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
