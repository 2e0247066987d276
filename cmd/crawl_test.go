package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glamoda/catalog-crawler/internal/scraper"
)

func TestSelectSearches(t *testing.T) {
	t.Parallel()

	configured := map[string]string{
		"handbag": "https://www.amazon.de/s?k=handbag",
		"earring": "https://www.amazon.de/s?k=earring",
	}

	t.Run("all categories", func(t *testing.T) {
		t.Parallel()
		got, err := selectSearches(&crawlFlags{all: true}, configured)
		require.NoError(t, err)
		require.Equal(t, configured, got)
	})

	t.Run("all with nothing configured", func(t *testing.T) {
		t.Parallel()
		_, err := selectSearches(&crawlFlags{all: true}, nil)
		require.Error(t, err)
	})

	t.Run("configured category", func(t *testing.T) {
		t.Parallel()
		got, err := selectSearches(&crawlFlags{category: "handbag"}, configured)
		require.NoError(t, err)
		require.Equal(t, map[string]string{"handbag": configured["handbag"]}, got)
	})

	t.Run("category with url override", func(t *testing.T) {
		t.Parallel()
		got, err := selectSearches(&crawlFlags{category: "belt", url: "https://www.amazon.de/s?k=belt"}, configured)
		require.NoError(t, err)
		require.Equal(t, map[string]string{"belt": "https://www.amazon.de/s?k=belt"}, got)
	})

	t.Run("unknown category", func(t *testing.T) {
		t.Parallel()
		_, err := selectSearches(&crawlFlags{category: "belt"}, configured)
		require.Error(t, err)
	})

	t.Run("no selection", func(t *testing.T) {
		t.Parallel()
		_, err := selectSearches(&crawlFlags{}, configured)
		require.Error(t, err)
	})
}

func TestApplyDetails(t *testing.T) {
	t.Parallel()

	first := "https://www.amazon.de/dp/B0FIRST?tag=glam0d9-21"
	second := "https://www.amazon.de/dp/B0SECOND?tag=glam0d9-21"
	products := []scraper.ProductInfo{
		{Name: "Tote...", Link: first, Image: "https://img.test/tote.jpg"},
		{Name: "Clutch...", Link: second, Image: "https://img.test/clutch.jpg"},
	}
	details := []scraper.ProductDetails{
		{
			Link:   first,
			Name:   "Leather Tote, Large, Cognac",
			Images: []string{"https://img.test/gallery-1.jpg", "https://img.test/gallery-2.jpg"},
		},
	}

	got := applyDetails(products, details)
	require.Len(t, got, 2)

	// First product picks up the fuller title and the gallery.
	require.Equal(t, "Leather Tote, Large, Cognac", got[0].Name)
	require.Equal(t, []string{
		"https://img.test/gallery-1.jpg",
		"https://img.test/gallery-2.jpg",
	}, got[0].GalleryImages)

	// Second product had no detail result and keeps its listing fields.
	require.Equal(t, "Clutch...", got[1].Name)
	require.Empty(t, got[1].GalleryImages)
}

func TestApplyDetailsKeepsListingNameWhenTitleEmpty(t *testing.T) {
	t.Parallel()

	link := "https://www.amazon.de/dp/B0ONE?tag=glam0d9-21"
	products := []scraper.ProductInfo{{Name: "Listing Name", Link: link}}
	details := []scraper.ProductDetails{{Link: link, Images: []string{"https://img.test/one.jpg"}}}

	got := applyDetails(products, details)
	require.Equal(t, "Listing Name", got[0].Name)
	require.Equal(t, []string{"https://img.test/one.jpg"}, got[0].GalleryImages)
}
