// Package export writes extracted product records to flat files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/glamoda/catalog-crawler/internal/scraper"
)

// CSVSink writes one row per extracted product to a delimited file. It is an
// alternate output path to the item store, not used alongside it in the same
// run.
type CSVSink struct {
	path   string
	logger *zap.Logger
}

// NewCSVSink returns a sink writing to path; parent directories are created.
func NewCSVSink(path string, logger *zap.Logger) (*CSVSink, error) {
	if path == "" {
		return nil, fmt.Errorf("export path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create export dir %s: %w", dir, err)
		}
	}
	return &CSVSink{path: path, logger: logger}, nil
}

// SaveProducts writes the batch, replacing any previous file at the sink
// path.
func (s *CSVSink) SaveProducts(products []scraper.ProductInfo) error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create export file %s: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"name", "price", "currency", "image_url", "link"}); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}
	for _, p := range products {
		row := []string{p.Name, p.Price.Display, p.Price.Currency, p.Image, p.Link}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write export row for %s: %w", p.Link, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush export file %s: %w", s.path, err)
	}

	s.logger.Info("wrote csv export",
		zap.String("path", s.path),
		zap.Int("rows", len(products)),
	)
	return nil
}
