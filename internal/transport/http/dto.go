package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/flora-agent/flora/internal/domain"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// flowerResponse — каталожная карточка в ответе API. Цена — строка "10.00".
type flowerResponse struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Price         domain.Money `json:"price"`
	StockQuantity int32        `json:"stock_quantity"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

type createFlowerRequest struct {
	Name          string       `json:"name"`
	Price         domain.Money `json:"price"`
	StockQuantity int32        `json:"stock_quantity"`
}

type updateFlowerRequest struct {
	Name  string       `json:"name"`
	Price domain.Money `json:"price"`
}

type setStockRequest struct {
	StockQuantity int32 `json:"stock_quantity"`
}

func toFlowerResponse(f domain.Flower) flowerResponse {
	return flowerResponse{
		ID:            f.ID,
		Name:          f.Name,
		Price:         f.Price,
		StockQuantity: f.StockQuantity,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

type customerResponse struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type customerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

func toCustomerResponse(c domain.Customer) customerResponse {
	return customerResponse{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type orderLineRequest struct {
	FlowerID string `json:"flower_id"`
	Qty      int32  `json:"qty"`
}

type createOrderRequest struct {
	CustomerID string             `json:"customer_id"`
	Notes      string             `json:"notes"`
	Items      []orderLineRequest `json:"items"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

type orderItemResponse struct {
	ID        string          `json:"id"`
	FlowerID  string          `json:"flower_id"`
	Qty       int32           `json:"qty"`
	UnitPrice domain.Money    `json:"unit_price"`
	Subtotal  domain.Money    `json:"subtotal"`
	Flower    *flowerResponse `json:"flower,omitempty"`
}

type orderResponse struct {
	ID         string              `json:"id"`
	CustomerID string              `json:"customer_id"`
	Status     string              `json:"status"`
	TotalPrice domain.Money        `json:"total_price"`
	Notes      string              `json:"notes,omitempty"`
	Items      []orderItemResponse `json:"items"`
	Customer   *customerResponse   `json:"customer,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func toOrderResponse(o domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		resp := orderItemResponse{
			ID:        item.ID,
			FlowerID:  item.FlowerID,
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal(),
		}
		if item.Flower != nil {
			flower := toFlowerResponse(*item.Flower)
			resp.Flower = &flower
		}
		items = append(items, resp)
	}

	resp := orderResponse{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		Status:     string(o.Status),
		TotalPrice: o.TotalPrice,
		Notes:      o.Notes,
		Items:      items,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
	if o.Customer != nil {
		customer := toCustomerResponse(*o.Customer)
		resp.Customer = &customer
	}
	return resp
}

type timelineEventResponse struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

func toTimelineResponse(events []domain.TimelineEvent) []timelineEventResponse {
	result := make([]timelineEventResponse, 0, len(events))
	for _, event := range events {
		result = append(result, timelineEventResponse{
			Type:     event.Type,
			Reason:   event.Reason,
			Occurred: event.Occurred,
		})
	}
	return result
}

// listResponse — конверт постраничных выборок.
type listResponse struct {
	Items  interface{} `json:"items"`
	Total  int         `json:"total"`
	Offset int         `json:"offset"`
	Limit  int         `json:"limit"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPairResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// parsePage читает offset/limit из query-параметров с безопасными значениями.
func parsePage(r *http.Request) (int, int) {
	offset := parseQueryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	limit := parseQueryInt(r, "limit", defaultPageLimit)
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return offset, limit
}

func parseQueryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
