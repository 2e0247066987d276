package scraper

import (
	"errors"
	"fmt"
	"strings"
)

// maxDensityDescriptor is the highest pixel-density descriptor the storefront
// is known to serve. The candidate set is ordered low to high, so the last
// entry is expected to carry it.
const maxDensityDescriptor = "3x"

// ErrNoImageCandidates indicates an empty responsive candidate set.
var ErrNoImageCandidates = errors.New("no image candidates")

// SelectImageURL picks the authoritative URL out of a responsive candidate
// set, a comma-separated list of "<url> <density>" pairs. The last entry is
// taken as the highest resolution. The chosen entry's density descriptor is
// returned alongside the URL so callers can warn when it is not the expected
// maximum. Any entry that does not split into exactly two whitespace
// separated tokens makes the whole set malformed.
func SelectImageURL(candidateSet string) (url, density string, err error) {
	if strings.TrimSpace(candidateSet) == "" {
		return "", "", ErrNoImageCandidates
	}
	entries := strings.Split(candidateSet, ",")
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		parts := strings.Fields(entry)
		if len(parts) != 2 {
			return "", "", fmt.Errorf("malformed candidate set: entry %q is not \"<url> <density>\"", entry)
		}
		url, density = parts[0], parts[1]
	}
	return url, density, nil
}
