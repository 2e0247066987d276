package scraper

import (
	"context"
	"fmt"
)

// fakeElement is an in-memory DOM node; child lookups resolve against the
// children map by selector.
type fakeElement struct {
	children map[string][]*fakeElement
	attrs    map[string]string
	text     string
	clicks   int
	hovers   int
}

func (f *fakeElement) child(selector string, nodes ...*fakeElement) *fakeElement {
	if f.children == nil {
		f.children = map[string][]*fakeElement{}
	}
	f.children[selector] = append(f.children[selector], nodes...)
	return f
}

func (f *fakeElement) Find(_ context.Context, selector string) (Element, error) {
	nodes := f.children[selector]
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no element matches %q", selector)
	}
	return nodes[0], nil
}

func (f *fakeElement) FindAll(_ context.Context, selector string) ([]Element, error) {
	nodes := f.children[selector]
	out := make([]Element, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out, nil
}

func (f *fakeElement) Attr(_ context.Context, name string) (string, error) {
	return f.attrs[name], nil
}

func (f *fakeElement) Text(_ context.Context) (string, error) {
	return f.text, nil
}

func (f *fakeElement) Click(_ context.Context) error {
	f.clicks++
	return nil
}

func (f *fakeElement) Hover(_ context.Context) error {
	f.hovers++
	return nil
}

// fakeSession serves pre-built page roots by URL.
type fakeSession struct {
	pages     map[string]*fakeElement
	current   *fakeElement
	navigated []string
}

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	s.navigated = append(s.navigated, url)
	page, ok := s.pages[url]
	if !ok {
		return fmt.Errorf("no page registered for %q", url)
	}
	s.current = page
	return nil
}

func (s *fakeSession) Find(ctx context.Context, selector string) (Element, error) {
	if s.current == nil {
		return nil, fmt.Errorf("no page loaded")
	}
	return s.current.Find(ctx, selector)
}

func (s *fakeSession) FindAll(ctx context.Context, selector string) ([]Element, error) {
	if s.current == nil {
		return nil, fmt.Errorf("no page loaded")
	}
	return s.current.FindAll(ctx, selector)
}

// goodListing builds a listing container that extracts cleanly.
func goodListing(href, name, whole, fraction, symbol, srcset string) *fakeElement {
	listing := &fakeElement{}
	listing.child(linkWrapperSelector,
		(&fakeElement{}).child("a", &fakeElement{attrs: map[string]string{"href": href}}))
	listing.child(nameSelector,
		(&fakeElement{}).child("span", &fakeElement{text: name}))
	listing.child(priceWholeSelector, &fakeElement{text: whole})
	listing.child(priceFractionSel, &fakeElement{text: fraction})
	listing.child(priceSymbolSelector, &fakeElement{text: symbol})
	listing.child(imageSelector, &fakeElement{attrs: map[string]string{srcsetAttr: srcset}})
	return listing
}

// resultsPage wraps listings in a results container under a page root.
func resultsPage(lastPage bool, listings ...*fakeElement) *fakeElement {
	results := &fakeElement{}
	for _, l := range listings {
		results.child(listingSelector, l)
	}
	page := (&fakeElement{}).child(resultsSelector, results)
	if lastPage {
		page.child(nextPageDisabledSel, &fakeElement{})
	}
	return page
}

func testCanonicalizer() LinkCanonicalizer {
	return LinkCanonicalizer{
		BaseOrigin:      "https://amazon.de",
		CanonicalOrigin: "https://www.amazon.de",
		AffiliateTag:    "glam0d9-21",
	}
}
