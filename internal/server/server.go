package server

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/Eidanhurtado/Bibliowave/internal/cart"
	"github.com/Eidanhurtado/Bibliowave/internal/cart/cache"
	"github.com/Eidanhurtado/Bibliowave/internal/catalog"
	"github.com/Eidanhurtado/Bibliowave/internal/domain"
	"github.com/Eidanhurtado/Bibliowave/internal/fulfillment"
	"github.com/Eidanhurtado/Bibliowave/internal/stripeapi"
)

// Deliverer dispatches e-book delivery for a paid session.
type Deliverer interface {
	Deliver(ctx context.Context, items []domain.LineItem, buyerEmail, buyerName string) []fulfillment.Result
}

type Config struct {
	// BaseURL is the public origin of the storefront, used to build
	// the provider's success and cancel redirect URLs.
	BaseURL        string
	WebhookSecret  string
	RequestTimeout time.Duration
}

type Server struct {
	cfg       Config
	provider  *stripeapi.Client
	catalog   catalog.RepoInterface
	redis     *redis.Client
	deliverer Deliverer
	carts     cart.CartRepository
	cartCache cache.CartCache

	// cartLoads outlives individual requests so concurrent restores
	// for one session collapse into a single storage read.
	cartLoads singleflight.Group
}

func NewServer(cfg Config, provider *stripeapi.Client, cat catalog.RepoInterface, rdb *redis.Client, deliverer Deliverer, carts cart.CartRepository, cartCache cache.CartCache) *Server {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &Server{
		cfg:       cfg,
		provider:  provider,
		catalog:   cat,
		redis:     rdb,
		deliverer: deliverer,
		carts:     carts,
		cartCache: cartCache,
	}
}

// Router wires the payment backend's HTTP surface.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Post("/create-payment-session", s.handleCreateSession)
	r.Post("/webhook", s.handleWebhook)
	r.Get("/success", s.handleSuccess)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", s.handleGetCart)
			r.Post("/items", s.handleAddItem)
			r.Delete("/items/{item_id}", s.handleRemoveItem)
			r.Delete("/", s.handleClearCart)
			r.Post("/discount", s.handleApplyDiscount)
		})
		r.Get("/products", s.handleListProducts)
	})

	return r
}
