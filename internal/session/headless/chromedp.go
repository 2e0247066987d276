// Package headless implements the scraper session capability with chromedp
// and headless Chrome.
package headless

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/glamoda/catalog-crawler/internal/scraper"
)

// Config controls the behavior of the headless session.
type Config struct {
	Headless          bool
	UserAgent         string
	NavigationTimeout time.Duration
}

// Session implements scraper.Session on a single browser tab. One tab is
// deliberate: the pipeline serializes every automation call, and page state
// (the consent dialog, hover side effects) must survive between calls until
// the next navigation.
type Session struct {
	cfg           Config
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	logger        *zap.Logger
}

// New launches the browser and warms up a tab.
func New(cfg Config, logger *zap.Logger) (*Session, error) {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &Session{
		cfg:           cfg,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		logger:        logger,
	}, nil
}

// Close tears down the browser and allocator contexts.
func (s *Session) Close() {
	s.browserCancel()
	s.allocCancel()
}

// Navigate loads url in the session tab and waits for the document body.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("navigating", zap.String("url", url))
	err := s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// Find returns the first element matching selector on the current page.
func (s *Session) Find(ctx context.Context, selector string) (scraper.Element, error) {
	return find(ctx, s, selector, nil)
}

// FindAll returns every element matching selector on the current page.
func (s *Session) FindAll(ctx context.Context, selector string) ([]scraper.Element, error) {
	return findAll(ctx, s, selector, nil)
}

// run executes actions against the session tab, bounded by the navigation
// timeout and canceled when the caller's context finishes.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.browserCtx, s.cfg.NavigationTimeout)
	defer cancel()

	stop := forwardCancel(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func find(ctx context.Context, s *Session, selector string, from *cdp.Node) (scraper.Element, error) {
	nodes, err := queryNodes(ctx, s, selector, from)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no element matches %q", selector)
	}
	return &element{session: s, node: nodes[0]}, nil
}

func findAll(ctx context.Context, s *Session, selector string, from *cdp.Node) ([]scraper.Element, error) {
	nodes, err := queryNodes(ctx, s, selector, from)
	if err != nil {
		return nil, err
	}
	elements := make([]scraper.Element, len(nodes))
	for i, node := range nodes {
		elements[i] = &element{session: s, node: node}
	}
	return elements, nil
}

func queryNodes(ctx context.Context, s *Session, selector string, from *cdp.Node) ([]*cdp.Node, error) {
	queryOpts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if from != nil {
		queryOpts = append(queryOpts, chromedp.FromNode(from))
	}
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(selector, &nodes, queryOpts...)); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return nodes, nil
}

// element is a borrowed handle to one DOM node; it is invalidated by the
// next navigation.
type element struct {
	session *Session
	node    *cdp.Node
}

func (e *element) Find(ctx context.Context, selector string) (scraper.Element, error) {
	return find(ctx, e.session, selector, e.node)
}

func (e *element) FindAll(ctx context.Context, selector string) ([]scraper.Element, error) {
	return findAll(ctx, e.session, selector, e.node)
}

// Attr reads the named attribute; an absent attribute reads as "".
func (e *element) Attr(ctx context.Context, name string) (string, error) {
	var (
		value string
		ok    bool
	)
	err := e.session.run(ctx, chromedp.AttributeValue(
		[]cdp.NodeID{e.node.NodeID}, name, &value, &ok, chromedp.ByNodeID,
	))
	if err != nil {
		return "", fmt.Errorf("read attribute %q: %w", name, err)
	}
	if !ok {
		return "", nil
	}
	return value, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.session.run(ctx, chromedp.Text(
		[]cdp.NodeID{e.node.NodeID}, &text, chromedp.ByNodeID,
	))
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return text, nil
}

func (e *element) Click(ctx context.Context) error {
	if err := e.session.run(ctx, chromedp.MouseClickNode(e.node)); err != nil {
		return fmt.Errorf("click node: %w", err)
	}
	return nil
}

// Hover dispatches a synthetic mouse move to the center of the node's
// content box.
func (e *element) Hover(ctx context.Context) error {
	err := e.session.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		quads, err := dom.GetContentQuads().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("content quads: %w", err)
		}
		if len(quads) == 0 || len(quads[0]) < 8 {
			return fmt.Errorf("node has no content box")
		}
		quad := quads[0]
		x := (quad[0] + quad[2] + quad[4] + quad[6]) / 4
		y := (quad[1] + quad[3] + quad[5] + quad[7]) / 4
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("hover node: %w", err)
	}
	return nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
