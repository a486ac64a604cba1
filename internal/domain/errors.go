package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы заказа.
	ErrTotalNegative = errors.New("total_price must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item unit price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrTotalMismatch = errors.New("order total does not match items sum")
	// Ошибка отсутствующего идентификатора цветка в позиции.
	ErrFlowerIDRequired = errors.New("flower_id is required")
	// Ошибка недопустимого статуса заказа.
	ErrOrderStatusInvalid = errors.New("unsupported order status")

	// Ошибки валидации каталога.
	ErrFlowerNameRequired = errors.New("flower name is required")
	ErrFlowerPriceInvalid = errors.New("flower price must be greater than zero")
	ErrStockNegative      = errors.New("stock_quantity must be non-negative")

	// Ошибки валидации клиента.
	ErrCustomerFirstNameRequired = errors.New("first_name is required")
	ErrCustomerLastNameRequired  = errors.New("last_name is required")
	ErrCustomerEmailRequired     = errors.New("email is required")

	// Ошибки валидации учётной записи.
	ErrUsernameRequired  = errors.New("username is required")
	ErrUserEmailRequired = errors.New("user email is required")
	ErrPasswordTooWeak   = errors.New("password must be at least 8 characters")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// NotFoundError — запрошенная сущность отсутствует в хранилище.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NewNotFound возвращает NotFoundError для сущности с идентификатором.
func NewNotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// IsNotFound проверяет, является ли ошибка отсутствием сущности.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// InsufficientStockError — проверка стока не прошла: запрошено больше, чем доступно.
type InsufficientStockError struct {
	FlowerID   string
	FlowerName string
	Available  int32
	Requested  int32
}

func (e *InsufficientStockError) Error() string {
	name := e.FlowerName
	if name == "" {
		name = e.FlowerID
	}
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", name, e.Available, e.Requested)
}

// IsInsufficientStock проверяет, является ли ошибка нехваткой стока.
func IsInsufficientStock(err error) bool {
	var is *InsufficientStockError
	return errors.As(err, &is)
}

// IntegrityConflictError — нарушение уникального ограничения (например, дубликат email).
// Это пользовательская ошибка валидации, не сбой процесса.
type IntegrityConflictError struct {
	Entity string
	Field  string
}

func (e *IntegrityConflictError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s already exists", e.Entity)
	}
	return fmt.Sprintf("%s with this %s already exists", e.Entity, e.Field)
}

// IsIntegrityConflict проверяет, является ли ошибка конфликтом уникальности.
func IsIntegrityConflict(err error) bool {
	var ic *IntegrityConflictError
	return errors.As(err, &ic)
}

// ConstraintBlockedError — удаление отклонено, пока существуют зависимые записи.
type ConstraintBlockedError struct {
	Entity string
	ID     string
}

func (e *ConstraintBlockedError) Error() string {
	return fmt.Sprintf("%s %s cannot be deleted: dependent records exist", e.Entity, e.ID)
}

// IsConstraintBlocked проверяет, заблокировано ли удаление зависимыми записями.
func IsConstraintBlocked(err error) bool {
	var cb *ConstraintBlockedError
	return errors.As(err, &cb)
}
