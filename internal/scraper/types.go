// Package scraper implements the extraction-and-ingestion pipeline: pagination
// control, per-listing field extraction, link canonicalization, price parsing,
// and responsive-image selection.
package scraper

import (
	"fmt"
)

// Price is a parsed listing price.
type Price struct {
	// Display is the "{whole}.{fraction}" string as shown on the page.
	Display  string
	Number   float64
	Currency string
}

// ProductInfo is one fully extracted listing. It is produced by the listing
// extractor and consumed by the persistence writer or an export sink.
type ProductInfo struct {
	Name  string
	Link  string // canonical, affiliate-tagged vendor link
	Price Price
	Image string
	// GalleryImages holds the full-size detail-page images; empty unless the
	// detail collector ran over the batch.
	GalleryImages []string
}

// FieldError reports which extraction step failed for a listing and why.
// Field errors are recovered at listing granularity: the listing is skipped
// and the rest of the page continues.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Counters tracks what happened during one crawl run.
type Counters struct {
	Pages             int
	ListingsExtracted int
	ListingsSkipped   int
}

// CrawlResult is the accumulator threaded through the pagination state
// machine; it carries everything a run produced.
type CrawlResult struct {
	Products []ProductInfo
	Counters Counters
}
