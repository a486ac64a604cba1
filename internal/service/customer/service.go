package customer

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/flora-agent/flora/internal/domain"
)

// Service — сервис реестра клиентов.
type Service struct {
	customers domain.CustomerRepository
	logger    *log.Entry
}

// NewService создаёт сервис клиентов.
func NewService(customers domain.CustomerRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "customers")
	}
	return &Service{customers: customers, logger: logger}
}

// Create регистрирует клиента. Дубликат email — IntegrityConflictError.
func (s *Service) Create(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	customer.Email = strings.TrimSpace(customer.Email)
	if errs := customer.Validate(); len(errs) > 0 {
		return domain.Customer{}, errors.Join(errs...)
	}

	created, err := s.customers.Create(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logger.WithFields(log.Fields{
		"customer_id": created.ID,
		"email":       created.Email,
	}).Info("customer created")
	return created, nil
}

// Get возвращает клиента по идентификатору.
func (s *Service) Get(ctx context.Context, id string) (domain.Customer, error) {
	return s.customers.Get(ctx, id)
}

// List возвращает страницу клиентов.
func (s *Service) List(ctx context.Context, offset, limit int) ([]domain.Customer, int, error) {
	return s.customers.List(ctx, offset, limit)
}

// Search ищет клиентов по имени, фамилии и email без учёта регистра.
// Пустой запрос эквивалентен листингу.
func (s *Service) Search(ctx context.Context, query string, offset, limit int) ([]domain.Customer, int, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.customers.List(ctx, offset, limit)
	}
	return s.customers.Search(ctx, query, offset, limit)
}

// Update перезаписывает данные клиента.
func (s *Service) Update(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	customer.Email = strings.TrimSpace(customer.Email)
	if errs := customer.Validate(); len(errs) > 0 {
		return domain.Customer{}, errors.Join(errs...)
	}

	updated, err := s.customers.Update(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logger.WithField("customer_id", updated.ID).Info("customer updated")
	return updated, nil
}

// Delete удаляет клиента. Пока на него ссылаются заказы,
// возвращается ConstraintBlockedError.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.customers.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.WithField("customer_id", id).Info("customer deleted")
	return nil
}
