package scraper

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Selectors for the storefront's search-result markup. The markup changes
// frequently; the zero/multiple match checks below are the best-effort guard
// against silent drift.
const (
	listingSelector     = ".s-result-item"
	linkWrapperSelector = ".s-title-instructions-style"
	nameSelector        = ".a-size-base-plus.a-spacing-none"
	priceWholeSelector  = ".a-price-whole"
	priceFractionSel    = ".a-price-fraction"
	priceSymbolSelector = ".a-price-symbol"
	imageSelector       = ".s-image"
	srcsetAttr          = "srcset"
)

// Extractor pulls ProductInfo records out of listing containers.
type Extractor struct {
	links    LinkCanonicalizer
	currency string // expected symbol for the operating locale, e.g. "€"
	logger   *zap.Logger
}

// NewExtractor constructs an Extractor. currency is the symbol every listing
// is expected to carry; a mismatch is logged, never fatal.
func NewExtractor(links LinkCanonicalizer, currency string, logger *zap.Logger) *Extractor {
	return &Extractor{
		links:    links,
		currency: currency,
		logger:   logger,
	}
}

// ExtractListings enumerates the listing containers under the given results
// region and extracts a ProductInfo from each. A failed listing is logged and
// skipped; it never drops the rest of the page.
func (e *Extractor) ExtractListings(ctx context.Context, results Element) ([]ProductInfo, int, error) {
	containers, err := results.FindAll(ctx, listingSelector)
	if err != nil {
		return nil, 0, fmt.Errorf("find listing containers: %w", err)
	}

	var products []ProductInfo
	skipped := 0
	for _, container := range containers {
		product, err := e.extractProduct(ctx, container)
		if err != nil {
			skipped++
			e.logger.Warn("skipping listing", zap.Error(err))
			continue
		}
		products = append(products, product)
	}
	e.logger.Info("page extracted",
		zap.Int("listings", len(containers)),
		zap.Int("products", len(products)),
		zap.Int("skipped", skipped),
	)
	return products, skipped, nil
}

// extractProduct runs the field extractors in fixed order: link, name, price,
// image. The first failure wins and aborts extraction of this listing only.
func (e *Extractor) extractProduct(ctx context.Context, container Element) (ProductInfo, error) {
	link, err := e.extractLink(ctx, container)
	if err != nil {
		return ProductInfo{}, &FieldError{Field: "link", Err: err}
	}
	name, err := e.extractName(ctx, container)
	if err != nil {
		return ProductInfo{}, &FieldError{Field: "name", Err: err}
	}
	price, err := e.extractPrice(ctx, container)
	if err != nil {
		return ProductInfo{}, &FieldError{Field: "price", Err: err}
	}
	image, err := e.extractImage(ctx, container)
	if err != nil {
		return ProductInfo{}, &FieldError{Field: "image", Err: err}
	}
	return ProductInfo{
		Name:  name,
		Link:  link,
		Price: price,
		Image: image,
	}, nil
}

// extractLink locates the single link wrapper and the single anchor inside
// it, then canonicalizes the raw href.
func (e *Extractor) extractLink(ctx context.Context, container Element) (string, error) {
	wrappers, err := container.FindAll(ctx, linkWrapperSelector)
	if err != nil {
		return "", err
	}
	if len(wrappers) != 1 {
		return "", fmt.Errorf("no link wrappers or too many found: %d", len(wrappers))
	}
	anchors, err := wrappers[0].FindAll(ctx, "a")
	if err != nil {
		return "", err
	}
	if len(anchors) != 1 {
		return "", fmt.Errorf("no links or too many found: %d", len(anchors))
	}
	href, err := anchors[0].Attr(ctx, "href")
	if err != nil {
		return "", err
	}

	canonical, markerFound, err := e.links.Canonicalize(href)
	if err != nil {
		return "", err
	}
	if !markerFound {
		e.logger.Warn("no detail marker in link path", zap.String("href", href))
	}
	return canonical, nil
}

// extractName locates the single name wrapper and the single text span inside
// it and returns the span's trimmed text.
func (e *Extractor) extractName(ctx context.Context, container Element) (string, error) {
	wrappers, err := container.FindAll(ctx, nameSelector)
	if err != nil {
		return "", err
	}
	if len(wrappers) != 1 {
		return "", fmt.Errorf("no name wrappers or too many found: %d", len(wrappers))
	}
	spans, err := wrappers[0].FindAll(ctx, "span")
	if err != nil {
		return "", err
	}
	if len(spans) != 1 {
		return "", fmt.Errorf("no name spans or too many found: %d", len(spans))
	}
	text, err := spans[0].Text(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// extractPrice reads the whole, fraction, and currency-symbol parts. Unlike
// link and name these are single lookups: absence is a hard failure for the
// listing. A currency symbol other than the expected one is logged, not
// fatal.
func (e *Extractor) extractPrice(ctx context.Context, container Element) (Price, error) {
	whole, err := e.findText(ctx, container, priceWholeSelector)
	if err != nil {
		return Price{}, err
	}
	fraction, err := e.findText(ctx, container, priceFractionSel)
	if err != nil {
		return Price{}, err
	}
	symbol, err := e.findText(ctx, container, priceSymbolSelector)
	if err != nil {
		return Price{}, err
	}

	price, err := ParsePrice(whole, fraction, symbol)
	if err != nil {
		return Price{}, err
	}
	if price.Currency != e.currency {
		e.logger.Warn("unexpected currency symbol",
			zap.String("symbol", price.Currency),
			zap.String("expected", e.currency),
		)
	}
	return price, nil
}

// extractImage reads the thumbnail's responsive candidate attribute and
// delegates selection to SelectImageURL. A missing attribute reads as the
// empty string, which the selector rejects as an empty candidate set.
func (e *Extractor) extractImage(ctx context.Context, container Element) (string, error) {
	img, err := container.Find(ctx, imageSelector)
	if err != nil {
		return "", err
	}
	candidateSet, err := img.Attr(ctx, srcsetAttr)
	if err != nil {
		return "", err
	}

	url, density, err := SelectImageURL(candidateSet)
	if err != nil {
		return "", err
	}
	if density != maxDensityDescriptor {
		// Either a higher density exists now or the ordering assumption broke.
		e.logger.Warn("last candidate density is not the expected maximum",
			zap.String("density", density),
		)
	}
	return url, nil
}

func (e *Extractor) findText(ctx context.Context, container Element, selector string) (string, error) {
	el, err := container.Find(ctx, selector)
	if err != nil {
		return "", err
	}
	return el.Text(ctx)
}
