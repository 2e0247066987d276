package scraper

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	detailTitleSelector     = "#productTitle"
	detailThumbnailSelector = ".imageThumbnail"
	detailImageWrapperSel   = ".imgTagWrapper"
)

// ProductDetails carries the extra fields available only on a product's
// detail page, keyed back to the product by its canonical link.
type ProductDetails struct {
	Link   string
	Name   string
	Images []string
}

// CollectDetails visits each product's canonical page and gathers its title
// and full-size gallery images. A product whose detail page cannot be
// extracted is logged and skipped; the rest of the batch continues.
func (c *Controller) CollectDetails(ctx context.Context, products []ProductInfo) []ProductDetails {
	details := make([]ProductDetails, 0, len(products))
	for _, product := range products {
		d, err := c.collectDetail(ctx, product.Link)
		if err != nil {
			c.logger.Warn("skipping product details",
				zap.String("link", product.Link),
				zap.Error(err),
			)
			continue
		}
		details = append(details, d)
	}
	return details
}

func (c *Controller) collectDetail(ctx context.Context, link string) (ProductDetails, error) {
	if err := c.session.Navigate(ctx, link); err != nil {
		return ProductDetails{}, fmt.Errorf("navigate to detail page: %w", err)
	}
	// The consent overlay would otherwise sit between the pointer and the
	// thumbnails.
	if err := c.dismissConsent(ctx); err != nil {
		return ProductDetails{}, fmt.Errorf("dismiss consent dialog: %w", err)
	}

	images, err := c.collectGalleryImages(ctx)
	if err != nil {
		return ProductDetails{}, err
	}

	title, err := c.session.Find(ctx, detailTitleSelector)
	if err != nil {
		return ProductDetails{}, fmt.Errorf("locate product title: %w", err)
	}
	name, err := title.Text(ctx)
	if err != nil {
		return ProductDetails{}, err
	}

	return ProductDetails{
		Link:   link,
		Name:   strings.TrimSpace(name),
		Images: images,
	}, nil
}

// collectGalleryImages hovers every thumbnail so the full-size images enter
// the DOM, then reads each gallery image's source.
func (c *Controller) collectGalleryImages(ctx context.Context) ([]string, error) {
	thumbnails, err := c.session.FindAll(ctx, detailThumbnailSelector)
	if err != nil {
		return nil, fmt.Errorf("locate thumbnails: %w", err)
	}
	for _, thumbnail := range thumbnails {
		if err := thumbnail.Hover(ctx); err != nil {
			return nil, fmt.Errorf("hover thumbnail: %w", err)
		}
	}

	wrappers, err := c.session.FindAll(ctx, detailImageWrapperSel)
	if err != nil {
		return nil, fmt.Errorf("locate image wrappers: %w", err)
	}
	var images []string
	for _, wrapper := range wrappers {
		imgs, err := wrapper.FindAll(ctx, "img")
		if err != nil {
			return nil, err
		}
		if len(imgs) != 1 {
			continue
		}
		src, err := imgs[0].Attr(ctx, "src")
		if err != nil {
			return nil, err
		}
		images = append(images, src)
	}
	return images, nil
}
