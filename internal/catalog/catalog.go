// Package catalog holds the static reference data for tracked items and maps
// listing titles onto catalog entries via case-insensitive alias matching.
// The catalog is built once at startup and read-only afterwards; alias casing
// is folded at build time so per-listing matching does no allocation beyond
// folding the title itself.
package catalog

import (
	"fmt"
	"strings"

	"github.com/UsmanKarim08/flipping-lead-gen/internal/models"
	"github.com/UsmanKarim08/flipping-lead-gen/internal/pricing"
)

// entry pairs a catalog item with its folded aliases and compiled policy.
type entry struct {
	item    models.CatalogItem
	aliases []string // lower-cased copies of item.Aliases, same order
	policy  pricing.Policy
}

// Catalog is an ordered, immutable collection of tracked items.
type Catalog struct {
	entries []entry
	byID    map[string]*entry
}

// New validates every item and builds the catalog. Declaration order is
// preserved: Match returns the first item with any matching alias. Any
// invalid item makes the whole catalog invalid; callers treat that as a
// fatal startup error.
func New(items []models.CatalogItem) (*Catalog, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("catalog must contain at least one item")
	}

	c := &Catalog{
		entries: make([]entry, 0, len(items)),
		byID:    make(map[string]*entry, len(items)),
	}
	for i := range items {
		item := items[i]
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("invalid catalog item: %w", err)
		}
		if _, dup := c.byID[item.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog item ID %q", item.ID)
		}

		policy, err := pricing.PolicyFor(&item)
		if err != nil {
			return nil, err
		}

		folded := make([]string, len(item.Aliases))
		for j, alias := range item.Aliases {
			folded[j] = strings.ToLower(alias)
		}

		c.entries = append(c.entries, entry{item: item, aliases: folded, policy: policy})
		c.byID[item.ID] = &c.entries[len(c.entries)-1]
	}
	return c, nil
}

// Match returns the first catalog item (in declaration order) with an alias
// appearing as a case-insensitive substring of the title, or nil when
// nothing matches. Matching is side-effect-free and deterministic.
func (c *Catalog) Match(title string) *models.CatalogItem {
	folded := strings.ToLower(title)
	for i := range c.entries {
		for _, alias := range c.entries[i].aliases {
			if strings.Contains(folded, alias) {
				return &c.entries[i].item
			}
		}
	}
	return nil
}

// Policy returns the compiled margin policy for an item ID.
func (c *Catalog) Policy(itemID string) (pricing.Policy, error) {
	e, ok := c.byID[itemID]
	if !ok {
		return nil, fmt.Errorf("no catalog item with ID %q", itemID)
	}
	return e.policy, nil
}

// Items returns the catalog items in declaration order.
func (c *Catalog) Items() []models.CatalogItem {
	items := make([]models.CatalogItem, len(c.entries))
	for i := range c.entries {
		items[i] = c.entries[i].item
	}
	return items
}

// Keywords returns the search keyword of every item in declaration order,
// de-duplicated. A poll cycle queries each source once per keyword.
func (c *Catalog) Keywords() []string {
	seen := make(map[string]bool, len(c.entries))
	keywords := make([]string, 0, len(c.entries))
	for i := range c.entries {
		kw := c.entries[i].item.SearchKeyword()
		if seen[kw] {
			continue
		}
		seen[kw] = true
		keywords = append(keywords, kw)
	}
	return keywords
}

// Len returns the number of catalog items.
func (c *Catalog) Len() int {
	return len(c.entries)
}
