// Package api exposes the HTTP read interface over persisted catalog items.
package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glamoda/catalog-crawler/internal/config"
	"github.com/glamoda/catalog-crawler/internal/metrics"
	"github.com/glamoda/catalog-crawler/internal/storage/postgres"
)

// ItemLister is the store capability the read API consumes.
type ItemLister interface {
	ListItems(ctx context.Context, filter postgres.ItemFilter) ([]postgres.Item, error)
}

// Server wires HTTP handlers to the item store.
type Server struct {
	router chi.Router
	store  ItemLister
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(store ItemLister, cfg config.Config, logger *zap.Logger) *Server {
	s := &Server{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Post("/items/{last_timestamp}", s.listItems)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type itemsRequest struct {
	Types []string `json:"type_"`
	Price []int    `json:"price"`
}

type itemResponse struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Price          string   `json:"price"`
	PriceNumber    float64  `json:"priceNumber"`
	PriceCurrency  string   `json:"priceCurrency"`
	Pictures       []string `json:"pictures"`
	VendorLink     string   `json:"vendorLink"`
	Type           string   `json:"type"`
	Descr          string   `json:"descr"`
	AddedTimestamp int64    `json:"addedTimestamp"`
}

// listItems returns items added after the path timestamp, narrowed by the
// category and price-bucket filters in the request body.
func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	lastTimestamp, err := strconv.ParseInt(chi.URLParam(r, "last_timestamp"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid last_timestamp")
		return
	}
	var req itemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	filter := s.toItemFilter(lastTimestamp, req)
	items, err := s.store.ListItems(r.Context(), filter)
	if err != nil {
		s.logger.Error("list items failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load items")
		return
	}

	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		pictures := item.Pictures
		if pictures == nil {
			pictures = []string{}
		}
		out = append(out, itemResponse{
			ID:             item.ID,
			Name:           item.Name,
			Price:          item.Price,
			PriceNumber:    item.PriceNumber,
			PriceCurrency:  item.PriceCurrency,
			Pictures:       pictures,
			VendorLink:     item.VendorLink,
			Type:           item.Type,
			Descr:          item.Descr,
			AddedTimestamp: item.AddedTimestamp,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// priceBounds maps the numbered price buckets to a single min/max window:
// 1 covers 0-19.99, 2 covers 20-49.99, 3 covers 50-99.99, 4 covers 100 up
// to the max possible price. An empty filter means no price restriction; a
// filter with only unknown buckets matches nothing.
func priceBounds(buckets []int) (float64, float64) {
	const (
		minPossiblePrice = 0.0
		maxPossiblePrice = 1_000_000.0
	)
	if len(buckets) == 0 {
		return minPossiblePrice, maxPossiblePrice
	}

	min := math.MaxFloat64
	max := 0.0
	for _, bucket := range buckets {
		switch bucket {
		case 1:
			min = math.Min(min, minPossiblePrice)
			max = math.Max(max, 19.99)
		case 2:
			min = math.Min(min, 20)
			max = math.Max(max, 49.99)
		case 3:
			min = math.Min(min, 50)
			max = math.Max(max, 99.99)
		case 4:
			min = math.Min(min, 100)
			max = math.Max(max, maxPossiblePrice)
		}
	}
	return min, max
}

func (s *Server) toItemFilter(lastTimestamp int64, req itemsRequest) postgres.ItemFilter {
	types := req.Types
	if len(types) == 0 {
		types = s.cfg.Categories()
	}
	min, max := priceBounds(req.Price)
	return postgres.ItemFilter{
		AfterTimestamp: lastTimestamp,
		Types:          types,
		PriceMin:       min,
		PriceMax:       max,
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
