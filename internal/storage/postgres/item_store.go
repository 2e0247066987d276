// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/glamoda/catalog-crawler/internal/scraper"
)

// Clock supplies insert timestamps; swapped for a fixed clock in tests.
type Clock interface {
	Now() time.Time
}

// ItemStoreConfig controls the Postgres connection pool used for item rows.
type ItemStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// ItemStore writes extracted product records into the item and item_pic
// tables and serves the read side of the catalog.
type ItemStore struct {
	pool   querier
	clock  Clock
	logger *zap.Logger
}

// NewItemStore creates a Postgres-backed ItemStore using the provided config.
func NewItemStore(ctx context.Context, cfg ItemStoreConfig, clock Clock, logger *zap.Logger) (*ItemStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ItemStore{pool: pool, clock: clock, logger: logger}, nil
}

// NewItemStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewItemStoreWithPool(pool querier, clock Clock, logger *zap.Logger) (*ItemStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	return &ItemStore{pool: pool, clock: clock, logger: logger}, nil
}

// Close releases the underlying pool resources.
func (s *ItemStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const insertItemQuery = `
INSERT INTO item (name_, price, price_number, price_currency, vendor_link, type_, added_timestamp, descr)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`

const insertItemPicQuery = `
INSERT INTO item_pic (item_id, url)
VALUES ($1, $2)`

// SaveProduct inserts one item row and its picture rows under the given
// category tag: the listing thumbnail, then any gallery images the detail
// collector gathered. The inserts are sequential and not wrapped in a
// transaction: a picture failure leaves the item row in place with the
// pictures written so far.
func (s *ItemStore) SaveProduct(ctx context.Context, product scraper.ProductInfo, category string) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("item store is not configured")
	}

	var itemID int32
	err := s.pool.QueryRow(ctx, insertItemQuery,
		product.Name,
		product.Price.Display,
		product.Price.Number,
		product.Price.Currency,
		product.Link,
		category,
		s.clock.Now().UnixMicro(),
		"",
	).Scan(&itemID)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}

	if _, err := s.pool.Exec(ctx, insertItemPicQuery, itemID, product.Image); err != nil {
		return fmt.Errorf("insert item picture: %w", err)
	}
	for _, url := range product.GalleryImages {
		if url == product.Image {
			continue
		}
		if _, err := s.pool.Exec(ctx, insertItemPicQuery, itemID, url); err != nil {
			return fmt.Errorf("insert gallery picture: %w", err)
		}
	}
	return nil
}

// SaveProducts persists a batch one product at a time. A failed product is
// logged with its vendor link and the batch continues; the return value is
// the number of products fully persisted.
func (s *ItemStore) SaveProducts(ctx context.Context, products []scraper.ProductInfo, category string) (int, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("item store is not configured")
	}
	saved := 0
	for _, product := range products {
		if err := s.SaveProduct(ctx, product, category); err != nil {
			s.logger.Error("persist product failed",
				zap.String("vendor_link", product.Link),
				zap.Error(err),
			)
			continue
		}
		saved++
	}
	return saved, nil
}

// ItemFilter narrows the read query. Types must be non-empty; callers apply
// their category defaults before reaching the store.
type ItemFilter struct {
	AfterTimestamp int64
	Types          []string
	PriceMin       float64
	PriceMax       float64
}

// Item is a persisted catalog row joined with its picture URLs.
type Item struct {
	ID             string
	Name           string
	Price          string
	PriceNumber    float64
	PriceCurrency  string
	VendorLink     string
	Type           string
	Descr          string
	AddedTimestamp int64
	Pictures       []string
}

const listItemsQuery = `
SELECT
    i.id::TEXT AS id,
    i.name_,
    i.price,
    i.price_number,
    i.price_currency,
    i.vendor_link,
    i.type_,
    i.descr,
    i.added_timestamp,
    COALESCE(array_agg(ip.url) FILTER (WHERE ip.url IS NOT NULL), ARRAY[]::TEXT[]) AS pictures
FROM
    item i
LEFT JOIN
    item_pic ip ON i.id = ip.item_id
WHERE
    i.added_timestamp > $1 AND i.type_ = ANY($2) AND i.price_number > $3 AND i.price_number < $4
GROUP BY
    i.id, i.name_, i.price, i.price_number, i.price_currency, i.vendor_link, i.type_, i.descr, i.added_timestamp
LIMIT 50`

// ListItems returns up to 50 items added after filter.AfterTimestamp that
// match the category and price bounds.
func (s *ItemStore) ListItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("item store is not configured")
	}
	rows, err := s.pool.Query(ctx, listItemsQuery,
		filter.AfterTimestamp,
		filter.Types,
		filter.PriceMin,
		filter.PriceMax,
	)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Price,
			&item.PriceNumber,
			&item.PriceCurrency,
			&item.VendorLink,
			&item.Type,
			&item.Descr,
			&item.AddedTimestamp,
			&item.Pictures,
		)
		if err != nil {
			return nil, fmt.Errorf("scan item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate item rows: %w", err)
	}
	return items, nil
}
