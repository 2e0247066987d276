package scraper

import "context"

// Session is the browser automation capability the pipeline drives. One
// session is a serialized resource: calls are issued one at a time and the
// pipeline awaits each result before proceeding.
type Session interface {
	// Navigate loads the given URL and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error
	// Find returns the first element matching the selector, or an error if
	// none exists.
	Find(ctx context.Context, selector string) (Element, error)
	// FindAll returns every element matching the selector; zero matches is
	// not an error.
	FindAll(ctx context.Context, selector string) ([]Element, error)
}

// Element is a handle to one node of the current page. Handles are borrowed:
// they are invalidated by the next navigation.
type Element interface {
	Find(ctx context.Context, selector string) (Element, error)
	FindAll(ctx context.Context, selector string) ([]Element, error)
	// Attr returns the value of the named attribute, or the empty string if
	// the attribute is absent.
	Attr(ctx context.Context, name string) (string, error)
	// Text returns the rendered text content of the element.
	Text(ctx context.Context) (string, error)
	Click(ctx context.Context) error
	// Hover moves the pointer to the center of the element.
	Hover(ctx context.Context) error
}
