package domain

import "time"

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusOrdered — заказ создан, сток списан.
	OrderStatusOrdered OrderStatus = "ordered"
	// OrderStatusDelivered — заказ доставлен клиенту.
	OrderStatusDelivered OrderStatus = "delivered"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusOrdered, OrderStatusDelivered:
		return true
	default:
		return false
	}
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	ID       string
	OrderID  string
	FlowerID string
	// Qty — количество единиц товара, строго положительное.
	Qty int32
	// UnitPrice — снимок цены цветка на момент создания заказа.
	// Последующие изменения каталога на него не влияют.
	UnitPrice Money
	// Flower заполняется при гидрации заказа для ответа API.
	Flower    *Flower
	CreatedAt time.Time
}

// Subtotal возвращает стоимость позиции: qty * unit_price.
func (i OrderItem) Subtotal() Money {
	return i.UnitPrice.MulQty(i.Qty)
}

// Order агрегирует состояние заказа и его позиции.
// Позиции живут только вместе с заказом: создаются и удаляются одной единицей работы.
type Order struct {
	ID         string
	CustomerID string
	Status     OrderStatus
	// TotalPrice — сумма subtotal всех позиций на момент создания, далее неизменна.
	TotalPrice Money
	Notes      string
	Items      []OrderItem
	// Customer заполняется при гидрации заказа для ответа API.
	Customer  *Customer
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.TotalPrice < 0 {
		errs = append(errs, ErrTotalNegative)
	}

	// Сверяем сумму заказа с суммой позиций: qty * unit_price.
	var calc Money
	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPrice < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc += item.Subtotal()
	}
	if calc != o.TotalPrice {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}

// OrderLine — запрошенная позиция при создании заказа: (цветок, количество).
// Дубликаты FlowerID в одном запросе трактуются как независимые позиции.
type OrderLine struct {
	FlowerID string
	Qty      int32
}

// CreateOrderInput — входные данные workflow создания заказа.
type CreateOrderInput struct {
	CustomerID string
	Notes      string
	Lines      []OrderLine
}

// Validate проверяет запрос до обращения к хранилищу.
func (in *CreateOrderInput) Validate() []error {
	var errs []error

	if in.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if len(in.Lines) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	for _, line := range in.Lines {
		if line.FlowerID == "" {
			errs = append(errs, ErrFlowerIDRequired)
		}
		if line.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
	}

	return errs
}

// OrderPage — страница выборки заказов с общим количеством.
type OrderPage struct {
	Orders []Order
	Total  int
	Offset int
	Limit  int
}
