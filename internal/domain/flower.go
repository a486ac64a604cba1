package domain

import "time"

// Flower — позиция каталога с ценой и текущим остатком на складе.
type Flower struct {
	ID   string
	Name string
	// Price — цена за единицу; её снимок фиксируется в позиции заказа.
	Price Money
	// StockQuantity меняется только через AdjustStock/SetStock, никогда напрямую.
	StockQuantity int32
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate проверяет инварианты каталожной записи.
func (f *Flower) Validate() []error {
	var errs []error

	if f.Name == "" {
		errs = append(errs, ErrFlowerNameRequired)
	}
	if f.Price <= 0 {
		errs = append(errs, ErrFlowerPriceInvalid)
	}
	if f.StockQuantity < 0 {
		errs = append(errs, ErrStockNegative)
	}

	return errs
}
