// Package api exposes the shop over HTTP with a chi router.
//
// Routes:
//
//	POST /carts/                           create a cart
//	GET  /carts/search/                    search checked-out line items
//	GET  /carts/{cart_id}                  render a cart
//	POST /carts/{cart_id}/items/{item_sku} set a line item quantity
//	POST /carts/{cart_id}/checkout         check out a cart
//	GET  /catalog/                         list advertised items
//	GET  /inventory/gold                   gold balance
//	GET  /inventory/{sku}                  stock of one item
//
// When an API key is configured, every shop route requires it in the
// "access_token" header.
package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/xraph/apothecary"
)

// APIKeyHeader carries the API key.
const APIKeyHeader = "access_token"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 10 * time.Second

// Server serves the shop routes.
type Server struct {
	shop    *apothecary.Shop
	logger  *slog.Logger
	apiKey  string
	timeout time.Duration
	metrics http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithAPIKey requires key in the access_token header. Empty disables the gate.
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithTimeout bounds each request. Non-positive values keep DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMetricsHandler serves h at /metrics, outside the API key gate.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// New creates a Server for shop.
func New(shop *apothecary.Shop, opts ...Option) *Server {
	s := &Server{
		shop:    shop,
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/health", s.health)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.requireAPIKey)

		r.Route("/carts", func(r chi.Router) {
			r.Post("/", s.createCart)
			r.Get("/search/", s.searchOrders)
			r.Get("/{cart_id}", s.getCart)
			r.Post("/{cart_id}/items/{item_sku}", s.setItemQuantity)
			r.Post("/{cart_id}/checkout", s.checkout)
		})
		r.Get("/catalog/", s.getCatalog)
		r.Get("/inventory/gold", s.getGold)
		r.Get("/inventory/{sku}", s.getStock)
	})

	return r
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" {
			got := r.Header.Get(APIKeyHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.apiKey)) != 1 {
				respondError(w, http.StatusForbidden, "forbidden", "could not validate credentials")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.shop.Store().Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
