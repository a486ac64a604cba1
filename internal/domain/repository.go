package domain

import "context"

// FlowerRepository описывает требования к хранилищу каталога.
type FlowerRepository interface {
	// Create сохраняет новую каталожную запись.
	Create(ctx context.Context, flower Flower) (Flower, error)
	// Get возвращает цветок по идентификатору или NotFoundError.
	Get(ctx context.Context, id string) (Flower, error)
	// List возвращает страницу каталога, отсортированную по имени, и общее количество записей.
	List(ctx context.Context, offset, limit int) ([]Flower, int, error)
	// Update перезаписывает имя и цену. Сток этим путём не меняется.
	Update(ctx context.Context, flower Flower) (Flower, error)
	// SetStock выставляет абсолютное значение остатка.
	SetStock(ctx context.Context, id string, quantity int32) (Flower, error)
	// Delete удаляет запись. Возвращает ConstraintBlockedError,
	// пока на цветок ссылается хотя бы одна позиция заказа.
	Delete(ctx context.Context, id string) error
}

// CustomerRepository описывает требования к реестру клиентов.
type CustomerRepository interface {
	// Create сохраняет клиента. Дубликат email — IntegrityConflictError.
	Create(ctx context.Context, customer Customer) (Customer, error)
	// Get возвращает клиента по идентификатору или NotFoundError.
	Get(ctx context.Context, id string) (Customer, error)
	// GetByEmail возвращает клиента по email или NotFoundError.
	GetByEmail(ctx context.Context, email string) (Customer, error)
	// List возвращает страницу клиентов, отсортированную по фамилии и имени.
	List(ctx context.Context, offset, limit int) ([]Customer, int, error)
	// Search ищет по имени, фамилии и email без учёта регистра.
	Search(ctx context.Context, query string, offset, limit int) ([]Customer, int, error)
	// Update перезаписывает данные клиента. Дубликат email — IntegrityConflictError.
	Update(ctx context.Context, customer Customer) (Customer, error)
	// Delete удаляет клиента. Возвращает ConstraintBlockedError,
	// пока на клиента ссылается хотя бы один заказ.
	Delete(ctx context.Context, id string) error
}

// OrderRepository — read-сторона хранилища заказов.
// Все записи идут только через UnitOfWork (см. uow.go).
type OrderRepository interface {
	// Get возвращает заказ с позициями, клиентом и каталожными карточками позиций.
	Get(ctx context.Context, id string) (Order, error)
	// List возвращает страницу заказов, новые первыми, с опциональным фильтром по статусу.
	List(ctx context.Context, status *OrderStatus, offset, limit int) (OrderPage, error)
	// ListByCustomer возвращает страницу заказов одного клиента.
	ListByCustomer(ctx context.Context, customerID string, offset, limit int) (OrderPage, error)
}

// UserRepository хранит учётные записи API.
type UserRepository interface {
	// Create сохраняет пользователя. Дубликат username/email — IntegrityConflictError.
	Create(ctx context.Context, user User) (User, error)
	// Get возвращает пользователя по идентификатору или NotFoundError.
	Get(ctx context.Context, id string) (User, error)
	// GetByUsername возвращает пользователя по username или NotFoundError.
	GetByUsername(ctx context.Context, username string) (User, error)
}
