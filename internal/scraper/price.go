package scraper

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePrice builds a structured price from the raw whole, fraction, and
// currency-symbol text fragments of a listing. The display string is
// "{whole}.{fraction}" with both parts trimmed; the numeric value is parsed
// from it. The currency is the trimmed symbol as found; validating it against
// the expected symbol for the locale is the caller's concern.
func ParsePrice(whole, fraction, symbol string) (Price, error) {
	display := strings.TrimSpace(whole) + "." + strings.TrimSpace(fraction)
	number, err := strconv.ParseFloat(display, 64)
	if err != nil {
		return Price{}, fmt.Errorf("parse price %q: %w", display, err)
	}
	return Price{
		Display:  display,
		Number:   number,
		Currency: strings.TrimSpace(symbol),
	}, nil
}
