package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/glamoda/catalog-crawler/internal/scraper"
)

func TestCSVSinkWritesHeaderAndRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "products.csv")
	sink, err := NewCSVSink(path, zap.NewNop())
	require.NoError(t, err)

	products := []scraper.ProductInfo{
		{
			Name:  "Leather Tote",
			Link:  "https://www.amazon.de/dp/B07FD729LJ?tag=glam0d9-21",
			Price: scraper.Price{Display: "49.99", Number: 49.99, Currency: "€"},
			Image: "https://img.test/tote.jpg",
		},
		{
			Name:  "Hoop Earrings, \"gold\"",
			Link:  "https://www.amazon.de/dp/B00000000?tag=glam0d9-21",
			Price: scraper.Price{Display: "12.50", Number: 12.5, Currency: "€"},
			Image: "https://img.test/hoops.jpg",
		},
	}
	require.NoError(t, sink.SaveProducts(products))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"name", "price", "currency", "image_url", "link"}, rows[0])
	require.Equal(t, []string{
		"Leather Tote", "49.99", "€",
		"https://img.test/tote.jpg",
		"https://www.amazon.de/dp/B07FD729LJ?tag=glam0d9-21",
	}, rows[1])
	require.Equal(t, "Hoop Earrings, \"gold\"", rows[2][0])
}

func TestCSVSinkReplacesExistingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "products.csv")
	sink, err := NewCSVSink(path, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, sink.SaveProducts([]scraper.ProductInfo{
		{Name: "first", Price: scraper.Price{Display: "1.00", Currency: "€"}},
		{Name: "second", Price: scraper.Price{Display: "2.00", Currency: "€"}},
	}))
	require.NoError(t, sink.SaveProducts(nil))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestNewCSVSinkRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewCSVSink("", zap.NewNop())
	require.Error(t, err)
}
