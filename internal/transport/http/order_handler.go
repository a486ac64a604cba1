package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flora-agent/flora/internal/domain"
)

func (s *Server) handleOrderCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	lines := make([]domain.OrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, domain.OrderLine{FlowerID: item.FlowerID, Qty: item.Qty})
	}

	order, err := s.orders.Create(r.Context(), domain.CreateOrderInput{
		CustomerID: req.CustomerID,
		Notes:      req.Notes,
		Lines:      lines,
	})
	if err != nil {
		respondDomainError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (s *Server) handleOrderGet(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (s *Server) handleOrderList(w http.ResponseWriter, r *http.Request) {
	offset, limit := parsePage(r)

	var statusFilter *domain.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.OrderStatus(raw)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "validation_failed", domain.ErrOrderStatusInvalid.Error())
			return
		}
		statusFilter = &status
	}

	page, err := s.orders.List(r.Context(), statusFilter, offset, limit)
	if err != nil {
		respondDomainError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderListResponse(page))
}

func (s *Server) handleOrderDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.orders.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOrderUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	order, err := s.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), domain.OrderStatus(req.Status))
	if err != nil {
		respondDomainError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (s *Server) handleOrderTimeline(w http.ResponseWriter, r *http.Request) {
	events, err := s.orders.Timeline(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimelineResponse(events))
}

func toOrderListResponse(page domain.OrderPage) listResponse {
	items := make([]orderResponse, 0, len(page.Orders))
	for _, order := range page.Orders {
		items = append(items, toOrderResponse(order))
	}
	return listResponse{Items: items, Total: page.Total, Offset: page.Offset, Limit: page.Limit}
}
