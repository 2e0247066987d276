package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/glamoda/catalog-crawler/internal/clock/system"
	"github.com/glamoda/catalog-crawler/internal/config"
	"github.com/glamoda/catalog-crawler/internal/export"
	"github.com/glamoda/catalog-crawler/internal/id/uuid"
	"github.com/glamoda/catalog-crawler/internal/metrics"
	"github.com/glamoda/catalog-crawler/internal/scraper"
	"github.com/glamoda/catalog-crawler/internal/session/headless"
	"github.com/glamoda/catalog-crawler/internal/storage/postgres"
)

type crawlFlags struct {
	category string
	url      string
	all      bool
	maxPages int
	csv      bool
	details  bool
}

// newCrawlCmd creates and configures the 'crawl' subcommand.
func newCrawlCmd() *cobra.Command {
	flags := &crawlFlags{}
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawls search results and persists the extracted products",
		Long: `Walks the paginated search results of one or more configured categories
in a headless browser, extracts a product record per listing, and writes
the batch to the item store (or a CSV file with --csv).`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawlCommand(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&flags.category, "category", "", "configured search category to crawl")
	cmd.Flags().StringVar(&flags.url, "url", "", "root search URL, overrides the configured one for --category")
	cmd.Flags().BoolVar(&flags.all, "all", false, "crawl every configured category")
	cmd.Flags().IntVar(&flags.maxPages, "max-pages", -1, "page ceiling per category, 0 means unbounded (default from config)")
	cmd.Flags().BoolVar(&flags.csv, "csv", false, "write a CSV export instead of the item store")
	cmd.Flags().BoolVar(&flags.details, "details", false, "visit each product's detail page for the full title and gallery images")
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, flags *crawlFlags) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config
	logger := appInstance.Logger

	searches, err := selectSearches(flags, cfg.Searches)
	if err != nil {
		return err
	}
	maxPages := flags.maxPages
	if maxPages < 0 {
		maxPages = cfg.Crawl.MaxPages
	}

	runID, err := uuid.NewUUIDGenerator().NewID()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}
	logger = logger.With(zap.String("run_id", runID))

	session, err := headless.New(headless.Config{
		Headless:          cfg.Browser.Headless,
		UserAgent:         cfg.Browser.UserAgent,
		NavigationTimeout: cfg.NavTimeout(),
	}, logger.Named("browser"))
	if err != nil {
		return fmt.Errorf("start browser session: %w", err)
	}
	defer session.Close()

	sink, err := buildSink(cmd.Context(), flags, cfg, logger)
	if err != nil {
		return err
	}
	defer sink.Close()

	canonicalizer := scraper.LinkCanonicalizer{
		BaseOrigin:      cfg.Crawl.BaseOrigin,
		CanonicalOrigin: cfg.Crawl.CanonicalOrigin,
		AffiliateTag:    cfg.Crawl.AffiliateTag,
	}
	extractor := scraper.NewExtractor(canonicalizer, cfg.Crawl.CurrencySymbol, logger.Named("extractor"))

	var limiter *rate.Limiter
	if delay := cfg.PageDelay(); delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	controller := scraper.NewController(session, extractor, limiter, logger.Named("controller"))

	for category, rootURL := range searches {
		crawlLogger := logger.With(zap.String("category", category))
		crawlLogger.Info("starting crawl", zap.String("url", rootURL))

		start := time.Now()
		result, err := controller.Run(cmd.Context(), rootURL, maxPages)
		if err != nil {
			return fmt.Errorf("crawl category %s: %w", category, err)
		}
		metrics.ObserveCrawl(category,
			result.Counters.Pages,
			result.Counters.ListingsExtracted,
			result.Counters.ListingsSkipped,
			time.Since(start),
		)

		products := result.Products
		if flags.details {
			details := controller.CollectDetails(cmd.Context(), products)
			products = applyDetails(products, details)
		}

		saved, err := sink.SaveProducts(cmd.Context(), products, category)
		if err != nil {
			return fmt.Errorf("persist category %s: %w", category, err)
		}
		metrics.ObservePersistence(category, saved, len(products)-saved)
		crawlLogger.Info("category finished",
			zap.Int("extracted", result.Counters.ListingsExtracted),
			zap.Int("saved", saved),
		)
	}
	return nil
}

// applyDetails folds detail-page results back into the extracted batch: the
// fuller title replaces the listing name and the gallery images ride along
// for persistence as extra picture rows. Products whose detail page failed
// keep their listing fields.
func applyDetails(products []scraper.ProductInfo, details []scraper.ProductDetails) []scraper.ProductInfo {
	byLink := make(map[string]scraper.ProductDetails, len(details))
	for _, d := range details {
		byLink[d.Link] = d
	}
	for i, product := range products {
		d, ok := byLink[product.Link]
		if !ok {
			continue
		}
		if d.Name != "" {
			products[i].Name = d.Name
		}
		products[i].GalleryImages = d.Images
	}
	return products
}

// selectSearches resolves the flag combination into category -> root URL.
func selectSearches(flags *crawlFlags, configured map[string]string) (map[string]string, error) {
	switch {
	case flags.all:
		if len(configured) == 0 {
			return nil, fmt.Errorf("no searches configured")
		}
		return configured, nil
	case flags.category != "":
		if flags.url != "" {
			return map[string]string{flags.category: flags.url}, nil
		}
		rootURL, ok := configured[flags.category]
		if !ok {
			return nil, fmt.Errorf("category %q is not configured", flags.category)
		}
		return map[string]string{flags.category: rootURL}, nil
	default:
		return nil, fmt.Errorf("either --category or --all is required")
	}
}

// productSink is where a crawled batch ends up: the item store, or the CSV
// file when --csv is set.
type productSink interface {
	SaveProducts(ctx context.Context, products []scraper.ProductInfo, category string) (int, error)
	Close()
}

func buildSink(ctx context.Context, flags *crawlFlags, cfg config.Config, logger *zap.Logger) (productSink, error) {
	if flags.csv {
		sink, err := export.NewCSVSink(cfg.Export.Path, logger.Named("export"))
		if err != nil {
			return nil, fmt.Errorf("init csv sink: %w", err)
		}
		return &csvSink{sink: sink}, nil
	}
	store, err := postgres.NewItemStore(ctx, postgres.ItemStoreConfig{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	}, system.New(), logger.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("init item store: %w", err)
	}
	return store, nil
}

// csvSink adapts the CSV exporter to the productSink shape. The export
// format has no category column, so the tag is dropped; all categories of a
// run land in one file, rewritten after each batch.
type csvSink struct {
	sink     *export.CSVSink
	products []scraper.ProductInfo
}

func (s *csvSink) SaveProducts(_ context.Context, products []scraper.ProductInfo, _ string) (int, error) {
	s.products = append(s.products, products...)
	if err := s.sink.SaveProducts(s.products); err != nil {
		return 0, err
	}
	return len(products), nil
}

func (s *csvSink) Close() {}
