package scraper

import (
	"fmt"
	"net/url"
	"strings"
)

// detailMarker is the path segment that precedes the product identifier on
// detail-page links.
const detailMarker = "dp"

// LinkCanonicalizer rewrites raw listing hrefs into minimal, trackable
// product URLs.
type LinkCanonicalizer struct {
	// BaseOrigin resolves relative hrefs, e.g. "https://amazon.de".
	BaseOrigin string
	// CanonicalOrigin is the origin the rebuilt URL uses, e.g.
	// "https://www.amazon.de".
	CanonicalOrigin string
	// AffiliateTag is the value of the single "tag" query parameter the
	// canonical URL carries.
	AffiliateTag string
}

// Canonicalize resolves href against the base origin, keeps only the detail
// marker segment and the product identifier that follows it, and rebuilds the
// URL on the canonical origin with every original query parameter stripped
// and exactly one affiliate tag parameter appended.
//
// The returned bool reports whether the detail marker was found. When it is
// missing the kept path degenerates to "/"; callers may warn but the result
// is still returned.
func (c LinkCanonicalizer) Canonicalize(href string) (string, bool, error) {
	base, err := url.Parse(c.BaseOrigin)
	if err != nil {
		return "", false, fmt.Errorf("parse base origin: %w", err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false, fmt.Errorf("parse href %q: %w", href, err)
	}
	resolved := base.ResolveReference(ref)

	segments := strings.Split(strings.Trim(resolved.Path, "/"), "/")
	kept := make([]string, 0, 2)
	for i, segment := range segments {
		if segment == detailMarker {
			kept = append(kept, segment)
			if i+1 < len(segments) {
				kept = append(kept, segments[i+1])
			}
			break
		}
	}

	canonical, err := url.Parse(c.CanonicalOrigin)
	if err != nil {
		return "", false, fmt.Errorf("parse canonical origin: %w", err)
	}
	canonical.Path = "/" + strings.Join(kept, "/")
	canonical.RawQuery = url.Values{"tag": {c.AffiliateTag}}.Encode()

	return canonical.String(), len(kept) > 0, nil
}
