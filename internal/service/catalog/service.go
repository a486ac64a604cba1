package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/flora-agent/flora/internal/domain"
	"github.com/flora-agent/flora/internal/messaging/kafka"
)

// ListCache — кэш страниц листинга каталога.
type ListCache interface {
	Get(offset, limit int) ([]domain.Flower, int, bool)
	Put(offset, limit int, flowers []domain.Flower, total int)
	InvalidateFlowers()
}

// Service — сервис каталога цветов. Листинг читается через кэш,
// каждая мутация сбрасывает кэш и ставит событие каталога в outbox.
type Service struct {
	flowers domain.FlowerRepository
	cache   ListCache
	outbox  domain.OutboxRepository
	logger  *log.Entry
}

// NewService создаёт сервис каталога. cache и outbox опциональны.
func NewService(flowers domain.FlowerRepository, cache ListCache, outbox domain.OutboxRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "catalog")
	}
	return &Service{
		flowers: flowers,
		cache:   cache,
		outbox:  outbox,
		logger:  logger,
	}
}

// Create добавляет цветок в каталог.
func (s *Service) Create(ctx context.Context, flower domain.Flower) (domain.Flower, error) {
	if errs := flower.Validate(); len(errs) > 0 {
		return domain.Flower{}, errors.Join(errs...)
	}

	created, err := s.flowers.Create(ctx, flower)
	if err != nil {
		return domain.Flower{}, err
	}

	s.afterMutation(created.ID, kafka.EventTypeFlowerUpdated)
	s.logger.WithFields(log.Fields{
		"flower_id": created.ID,
		"name":      created.Name,
	}).Info("flower created")
	return created, nil
}

// Get возвращает цветок по идентификатору.
func (s *Service) Get(ctx context.Context, id string) (domain.Flower, error) {
	return s.flowers.Get(ctx, id)
}

// List возвращает страницу каталога через кэш.
func (s *Service) List(ctx context.Context, offset, limit int) ([]domain.Flower, int, error) {
	if s.cache != nil {
		if flowers, total, ok := s.cache.Get(offset, limit); ok {
			return flowers, total, nil
		}
	}

	flowers, total, err := s.flowers.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	if s.cache != nil {
		s.cache.Put(offset, limit, flowers, total)
	}
	return flowers, total, nil
}

// Update перезаписывает имя и цену цветка. Сток этим путём не меняется.
func (s *Service) Update(ctx context.Context, flower domain.Flower) (domain.Flower, error) {
	if errs := flower.Validate(); len(errs) > 0 {
		return domain.Flower{}, errors.Join(errs...)
	}

	updated, err := s.flowers.Update(ctx, flower)
	if err != nil {
		return domain.Flower{}, err
	}

	s.afterMutation(updated.ID, kafka.EventTypeFlowerUpdated)
	s.logger.WithField("flower_id", updated.ID).Info("flower updated")
	return updated, nil
}

// SetStock выставляет абсолютное значение остатка.
func (s *Service) SetStock(ctx context.Context, id string, quantity int32) (domain.Flower, error) {
	if quantity < 0 {
		return domain.Flower{}, fmt.Errorf("%w: %d", domain.ErrStockNegative, quantity)
	}

	updated, err := s.flowers.SetStock(ctx, id, quantity)
	if err != nil {
		return domain.Flower{}, err
	}

	s.afterMutation(id, kafka.EventTypeStockChanged)
	s.logger.WithFields(log.Fields{
		"flower_id": id,
		"stock":     quantity,
	}).Info("flower stock set")
	return updated, nil
}

// Delete удаляет цветок. Пока на него ссылаются позиции заказов,
// возвращается ConstraintBlockedError.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.flowers.Delete(ctx, id); err != nil {
		return err
	}

	s.afterMutation(id, kafka.EventTypeFlowerUpdated)
	s.logger.WithField("flower_id", id).Info("flower deleted")
	return nil
}

// afterMutation сбрасывает кэш листинга и ставит событие каталога в outbox.
func (s *Service) afterMutation(flowerID string, eventType kafka.EventType) {
	if s.cache != nil {
		s.cache.InvalidateFlowers()
	}
	if s.outbox == nil {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"flower_id": flowerID,
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		s.logger.WithError(err).WithField("flower_id", flowerID).Error("marshal catalog event failed")
		return
	}
	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "flower",
		AggregateID:   flowerID,
		EventType:     string(eventType),
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"flower_id": flowerID,
			"event":     eventType,
		}).Error("enqueue catalog event failed")
	}
}
