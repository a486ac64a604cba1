// Package httpapi реализует REST API поверх доменных сервисов.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/flora-agent/flora/internal/domain"
	"github.com/flora-agent/flora/internal/metrics"
	"github.com/flora-agent/flora/internal/service/auth"
	"github.com/flora-agent/flora/internal/service/catalog"
	"github.com/flora-agent/flora/internal/service/customer"
	"github.com/flora-agent/flora/internal/service/order"
)

// Server агрегирует доменные сервисы для HTTP-хендлеров.
type Server struct {
	catalog     *catalog.Service
	customers   *customer.Service
	orders      *order.Ledger
	auth        *auth.Service
	idempotency domain.IdempotencyRepository
	logger      *log.Entry
	metrics     *metrics.HTTPMetrics
}

// Options — зависимости HTTP-сервера. Idempotency и Metrics опциональны.
type Options struct {
	Catalog     *catalog.Service
	Customers   *customer.Service
	Orders      *order.Ledger
	Auth        *auth.Service
	Idempotency domain.IdempotencyRepository
	Logger      *log.Entry
	Metrics     *metrics.HTTPMetrics
}

// NewServer создаёт HTTP-сервер API.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New().WithField("component", "http-api")
	}
	return &Server{
		catalog:     opts.Catalog,
		customers:   opts.Customers,
		orders:      opts.Orders,
		auth:        opts.Auth,
		idempotency: opts.Idempotency,
		logger:      logger,
		metrics:     opts.Metrics,
	}
}

// Routes собирает маршрутизатор API.
// Всё, кроме register/login/refresh, требует Bearer-токен.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger, s.metrics))
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleAuthRegister)
			r.Post("/login", s.handleAuthLogin)
			r.Post("/refresh", s.handleAuthRefresh)
			r.With(requireAuth(s.auth, s.logger)).Post("/logout", s.handleAuthLogout)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(s.auth, s.logger))

			r.Route("/flowers", func(r chi.Router) {
				r.Get("/", s.handleFlowerList)
				r.Post("/", s.handleFlowerCreate)
				r.Get("/{id}", s.handleFlowerGet)
				r.Put("/{id}", s.handleFlowerUpdate)
				r.Put("/{id}/stock", s.handleFlowerSetStock)
				r.Delete("/{id}", s.handleFlowerDelete)
			})

			r.Route("/customers", func(r chi.Router) {
				r.Get("/", s.handleCustomerList)
				r.Post("/", s.handleCustomerCreate)
				r.Get("/search", s.handleCustomerSearch)
				r.Get("/{id}", s.handleCustomerGet)
				r.Put("/{id}", s.handleCustomerUpdate)
				r.Delete("/{id}", s.handleCustomerDelete)
				r.Get("/{id}/orders", s.handleCustomerOrders)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", s.handleOrderList)
				r.With(withIdempotency(s.idempotency, s.logger)).Post("/", s.handleOrderCreate)
				r.Get("/{id}", s.handleOrderGet)
				r.Delete("/{id}", s.handleOrderDelete)
				r.Patch("/{id}/status", s.handleOrderUpdateStatus)
				r.Get("/{id}/timeline", s.handleOrderTimeline)
			})
		})
	})

	return r
}
