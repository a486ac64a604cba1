package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flora-agent/flora/internal/domain"
)

func (s *Server) handleCustomerCreate(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	created, err := s.customers.Create(r.Context(), domain.Customer{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
	})
	if err != nil {
		respondDomainError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCustomerResponse(created))
}

func (s *Server) handleCustomerGet(w http.ResponseWriter, r *http.Request) {
	customer, err := s.customers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerResponse(customer))
}

func (s *Server) handleCustomerList(w http.ResponseWriter, r *http.Request) {
	offset, limit := parsePage(r)

	customers, total, err := s.customers.List(r.Context(), offset, limit)
	if err != nil {
		respondDomainError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Items:  toCustomerResponses(customers),
		Total:  total,
		Offset: offset,
		Limit:  limit,
	})
}

func (s *Server) handleCustomerSearch(w http.ResponseWriter, r *http.Request) {
	offset, limit := parsePage(r)
	query := r.URL.Query().Get("q")

	customers, total, err := s.customers.Search(r.Context(), query, offset, limit)
	if err != nil {
		respondDomainError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Items:  toCustomerResponses(customers),
		Total:  total,
		Offset: offset,
		Limit:  limit,
	})
}

func (s *Server) handleCustomerUpdate(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	updated, err := s.customers.Update(r.Context(), domain.Customer{
		ID:        chi.URLParam(r, "id"),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
	})
	if err != nil {
		respondDomainError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toCustomerResponse(updated))
}

func (s *Server) handleCustomerDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.customers.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCustomerOrders возвращает страницу заказов одного клиента.
func (s *Server) handleCustomerOrders(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")

	// Несуществующий клиент — 404, а не пустая страница.
	if _, err := s.customers.Get(r.Context(), customerID); err != nil {
		respondDomainError(w, s.logger, err)
		return
	}

	offset, limit := parsePage(r)
	page, err := s.orders.ListByCustomer(r.Context(), customerID, offset, limit)
	if err != nil {
		respondDomainError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderListResponse(page))
}

func toCustomerResponses(customers []domain.Customer) []customerResponse {
	items := make([]customerResponse, 0, len(customers))
	for _, customer := range customers {
		items = append(items, toCustomerResponse(customer))
	}
	return items
}
