package scraper

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	resultsSelector     = ".s-main-slot"
	consentRejectSel    = "#sp-cc-rejectall-link"
	nextPageDisabledSel = ".s-pagination-item.s-pagination-next.s-pagination-disabled"
)

// crawlState is the pagination controller's phase.
type crawlState int

const (
	stateNavigating crawlState = iota
	stateExtracting
	stateDone
)

// Controller drives one browser session across paginated search results,
// invoking the extractor on each page. Navigation and container-lookup
// failures are fatal for the whole crawl; the session itself failing is
// unrecoverable within one run.
type Controller struct {
	session   Session
	extractor *Extractor
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// NewController constructs a Controller. limiter paces page navigations and
// may be nil to disable pacing.
func NewController(session Session, extractor *Extractor, limiter *rate.Limiter, logger *zap.Logger) *Controller {
	return &Controller{
		session:   session,
		extractor: extractor,
		limiter:   limiter,
		logger:    logger,
	}
}

// Run crawls search result pages starting at rootURL until the storefront
// reports no next page or maxPages pages have been extracted, whichever comes
// first. maxPages <= 0 means unbounded. The accumulated result is threaded
// through each state transition rather than held in shared mutable state.
func (c *Controller) Run(ctx context.Context, rootURL string, maxPages int) (CrawlResult, error) {
	acc := CrawlResult{}
	state := stateNavigating
	pageURL := rootURL
	page := 1

	for state != stateDone {
		switch state {
		case stateNavigating:
			if err := c.session.Navigate(ctx, pageURL); err != nil {
				return acc, fmt.Errorf("navigate to page %d: %w", page, err)
			}
			if err := c.dismissConsent(ctx); err != nil {
				return acc, fmt.Errorf("dismiss consent dialog: %w", err)
			}
			state = stateExtracting

		case stateExtracting:
			var err error
			acc, err = c.extractPage(ctx, acc, page)
			if err != nil {
				return acc, err
			}

			done, err := c.atLastPage(ctx)
			if err != nil {
				return acc, fmt.Errorf("check last page: %w", err)
			}
			if done || (maxPages > 0 && page >= maxPages) {
				state = stateDone
				break
			}

			page++
			pageURL = nextPageURL(rootURL, page)
			if err := c.wait(ctx); err != nil {
				return acc, err
			}
			state = stateNavigating
		}
	}

	c.logger.Info("crawl finished",
		zap.Int("pages", acc.Counters.Pages),
		zap.Int("products", len(acc.Products)),
		zap.Int("skipped", acc.Counters.ListingsSkipped),
	)
	return acc, nil
}

// extractPage locates the results container (fatal when missing) and folds
// the page's products into the accumulator.
func (c *Controller) extractPage(ctx context.Context, acc CrawlResult, page int) (CrawlResult, error) {
	results, err := c.session.Find(ctx, resultsSelector)
	if err != nil {
		return acc, fmt.Errorf("locate results container on page %d: %w", page, err)
	}
	products, skipped, err := c.extractor.ExtractListings(ctx, results)
	if err != nil {
		return acc, fmt.Errorf("extract page %d: %w", page, err)
	}
	acc.Products = append(acc.Products, products...)
	acc.Counters.Pages++
	acc.Counters.ListingsExtracted += len(products)
	acc.Counters.ListingsSkipped += skipped
	return acc, nil
}

// dismissConsent clicks the cookie-consent reject link when the dialog is
// present. Absence is a no-op; the locate-all primitive doubles as an
// optional-presence check.
func (c *Controller) dismissConsent(ctx context.Context) error {
	links, err := c.session.FindAll(ctx, consentRejectSel)
	if err != nil {
		return err
	}
	if len(links) != 1 {
		return nil
	}
	c.logger.Debug("dismissing cookie consent dialog")
	return links[0].Click(ctx)
}

// atLastPage reports whether the current page carries the disabled next-page
// indicator.
func (c *Controller) atLastPage(ctx context.Context) (bool, error) {
	disabled, err := c.session.FindAll(ctx, nextPageDisabledSel)
	if err != nil {
		return false, err
	}
	return len(disabled) > 0, nil
}

func (c *Controller) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait navigation budget: %w", err)
	}
	return nil
}

// nextPageURL appends the page-index query parameter to the root search URL.
// The root URL already carries a query string, so the parameter is appended
// the way the storefront's own pagination links do it.
func nextPageURL(rootURL string, page int) string {
	return fmt.Sprintf("%s&page=%d", rootURL, page)
}
