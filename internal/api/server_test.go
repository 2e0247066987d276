package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/glamoda/catalog-crawler/internal/config"
	"github.com/glamoda/catalog-crawler/internal/metrics"
	"github.com/glamoda/catalog-crawler/internal/storage/postgres"
)

func init() {
	metrics.Init()
}

type fakeItemLister struct {
	items      []postgres.Item
	err        error
	lastFilter postgres.ItemFilter
}

func (f *fakeItemLister) ListItems(_ context.Context, filter postgres.ItemFilter) ([]postgres.Item, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{Port: 8080},
		Searches: map[string]string{
			"handbag": "https://www.amazon.de/s?k=handbag",
			"earring": "https://www.amazon.de/s?k=earring",
		},
	}
}

func TestServer_ListItems_ReturnsRows(t *testing.T) {
	t.Parallel()

	store := &fakeItemLister{
		items: []postgres.Item{
			{
				ID:             "7",
				Name:           "Leather Tote",
				Price:          "49.99",
				PriceNumber:    49.99,
				PriceCurrency:  "€",
				VendorLink:     "https://www.amazon.de/dp/B07FD729LJ?tag=glam0d9-21",
				Type:           "handbag",
				AddedTimestamp: 1695000000000000,
				Pictures:       []string{"https://img.test/tote.jpg"},
			},
		},
	}
	server := NewServer(store, testConfig(), zap.NewNop())

	reqBody := []byte(`{"type_":["handbag"],"price":[2]}`)
	req := httptest.NewRequest(http.MethodPost, "/items/1690000000000000", bytes.NewReader(reqBody))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(1690000000000000), store.lastFilter.AfterTimestamp)
	require.Equal(t, []string{"handbag"}, store.lastFilter.Types)
	require.InDelta(t, 20.0, store.lastFilter.PriceMin, 1e-9)
	require.InDelta(t, 49.99, store.lastFilter.PriceMax, 1e-9)

	var payload []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload, 1)
	require.Equal(t, "Leather Tote", payload[0]["name"])
	require.Equal(t, "handbag", payload[0]["type"])
	require.Equal(t, []any{"https://img.test/tote.jpg"}, payload[0]["pictures"])
}

func TestServer_ListItems_EmptyTypesUseConfiguredCategories(t *testing.T) {
	t.Parallel()

	store := &fakeItemLister{}
	server := NewServer(store, testConfig(), zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/items/0", bytes.NewReader([]byte(`{"type_":[],"price":[]}`)))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.ElementsMatch(t, []string{"handbag", "earring"}, store.lastFilter.Types)
	require.InDelta(t, 0.0, store.lastFilter.PriceMin, 1e-9)
	require.InDelta(t, 1_000_000.0, store.lastFilter.PriceMax, 1e-9)
	require.Equal(t, "[]\n", rec.Body.String())
}

func TestServer_ListItems_InvalidTimestamp(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeItemLister{}, testConfig(), zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/items/not-a-number", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ListItems_InvalidJSON(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeItemLister{}, testConfig(), zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/items/0", bytes.NewReader([]byte(`{`)))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ListItems_StoreFailure(t *testing.T) {
	t.Parallel()

	store := &fakeItemLister{err: errors.New("connection refused")}
	server := NewServer(store, testConfig(), zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/items/0", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeItemLister{}, testConfig(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
}

func TestPriceBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		buckets []int
		wantMin float64
		wantMax float64
	}{
		{name: "empty means unrestricted", buckets: nil, wantMin: 0, wantMax: 1_000_000},
		{name: "single low bucket", buckets: []int{1}, wantMin: 0, wantMax: 19.99},
		{name: "middle buckets merge", buckets: []int{2, 3}, wantMin: 20, wantMax: 99.99},
		{name: "disjoint buckets span the gap", buckets: []int{1, 4}, wantMin: 0, wantMax: 1_000_000},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			min, max := priceBounds(tt.buckets)
			require.InDelta(t, tt.wantMin, min, 1e-9)
			require.InDelta(t, tt.wantMax, max, 1e-9)
		})
	}
}
