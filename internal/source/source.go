// Package source defines the listing source boundary and the Craigslist RSS
// implementation. A source turns (site, keyword) into raw listings; fetch and
// parse failures are reported to the caller, which treats them as "zero
// listings from this source this cycle", never as fatal.
package source

import (
	"context"

	"github.com/UsmanKarim08/flipping-lead-gen/internal/models"
)

// Source fetches raw listings for one search keyword from one site.
type Source interface {
	// ID identifies the site, e.g. the Craigslist city slug.
	ID() string
	// Fetch returns the listings currently visible for the keyword. The
	// context bounds the whole fetch; implementations must not outlive it.
	Fetch(ctx context.Context, keyword string) ([]models.RawListing, error)
}
