package source

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/UsmanKarim08/flipping-lead-gen/internal/models"
)

// Craigslist fetches listings from one Craigslist city's RSS search feed.
type Craigslist struct {
	city        string
	urlTemplate string // two %s verbs: city slug, URL-escaped keyword
	maxListings int
}

// NewCraigslist creates a source for the given city slug. urlTemplate is the
// search feed URL with %s placeholders for city and escaped keyword;
// maxListings caps how many feed entries one fetch yields.
func NewCraigslist(city, urlTemplate string, maxListings int) *Craigslist {
	return &Craigslist{
		city:        city,
		urlTemplate: urlTemplate,
		maxListings: maxListings,
	}
}

// ID returns the city slug.
func (c *Craigslist) ID() string {
	return c.city
}

// Fetch retrieves and parses the RSS search feed for the keyword. The feed's
// GUID becomes the stable per-listing ID when present, which gives the dedup
// store its preferred key.
func (c *Craigslist) Fetch(ctx context.Context, keyword string) ([]models.RawListing, error) {
	feedURL := fmt.Sprintf(c.urlTemplate, c.city, url.QueryEscape(keyword))

	// Fetches for different keywords run concurrently; gofeed parsers are
	// not documented as goroutine-safe, so each fetch gets its own.
	feed, err := gofeed.NewParser().ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s feed for %q: %w", c.city, keyword, err)
	}

	count := len(feed.Items)
	if count > c.maxListings {
		count = c.maxListings
	}

	listings := make([]models.RawListing, 0, count)
	for _, item := range feed.Items[:count] {
		if item.Title == "" {
			continue
		}

		fetchedAt := time.Now()
		if item.PublishedParsed != nil {
			fetchedAt = *item.PublishedParsed
		}

		listings = append(listings, models.RawListing{
			Source:    c.city,
			Title:     item.Title,
			Summary:   item.Description,
			URL:       item.Link,
			Location:  c.city,
			ListingID: item.GUID,
			FetchedAt: fetchedAt,
		})
	}
	return listings, nil
}
