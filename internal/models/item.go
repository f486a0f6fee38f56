// Package models defines the core domain entities for the flipping-lead-gen
// application: tracked catalog items, raw marketplace listings, the parsed and
// evaluated forms of those listings, and the alert batches handed to notifiers.
// All models include built-in validation to ensure data integrity throughout
// the application.
package models

import (
	"errors"
	"fmt"
)

// PolicyKind selects how a catalog item's margin policy is evaluated.
type PolicyKind string

const (
	// PolicyFixedMaxBuy accepts any listing priced at or below a fixed ceiling.
	PolicyFixedMaxBuy PolicyKind = "fixed_max_buy"
	// PolicyMarginWindow accepts listings whose profit margin falls inside a
	// configured [min, max] window. Suspiciously cheap listings land above the
	// window and are rejected.
	PolicyMarginWindow PolicyKind = "margin_window"
)

// CatalogItem is one tracked product with a known resale value and the alias
// keywords used to recognize it in listing titles. Items are loaded once at
// startup and are immutable afterwards; Validate runs at load time and a
// failure there aborts startup before the first poll cycle.
type CatalogItem struct {
	ID        string     `json:"id" mapstructure:"id"`
	Aliases   []string   `json:"aliases" mapstructure:"aliases"`
	Resale    float64    `json:"resale" mapstructure:"resale"`
	Policy    PolicyKind `json:"policy" mapstructure:"policy"`
	MaxBuy    float64    `json:"max_buy,omitempty" mapstructure:"max_buy"`
	MinMargin float64    `json:"min_margin,omitempty" mapstructure:"min_margin"`
	MaxMargin float64    `json:"max_margin,omitempty" mapstructure:"max_margin"`
}

// Validate checks that a catalog item is well formed.
func (c *CatalogItem) Validate() error {
	if c.ID == "" {
		return errors.New("catalog item ID must not be empty")
	}
	if len(c.Aliases) == 0 {
		return fmt.Errorf("catalog item %s: alias list must not be empty", c.ID)
	}
	for _, alias := range c.Aliases {
		if alias == "" {
			return fmt.Errorf("catalog item %s: aliases must not be empty strings", c.ID)
		}
	}
	if c.Resale <= 0 {
		return fmt.Errorf("catalog item %s: resale value must be positive, got %v", c.ID, c.Resale)
	}
	switch c.Policy {
	case PolicyFixedMaxBuy:
		if c.MaxBuy <= 0 {
			return fmt.Errorf("catalog item %s: max_buy must be positive, got %v", c.ID, c.MaxBuy)
		}
	case PolicyMarginWindow:
		if c.MinMargin < 0 || c.MinMargin > 1 {
			return fmt.Errorf("catalog item %s: min_margin must be between 0.0 and 1.0", c.ID)
		}
		if c.MaxMargin < 0 || c.MaxMargin > 1 {
			return fmt.Errorf("catalog item %s: max_margin must be between 0.0 and 1.0", c.ID)
		}
		if c.MinMargin > c.MaxMargin {
			return fmt.Errorf("catalog item %s: min_margin must not exceed max_margin", c.ID)
		}
	default:
		return fmt.Errorf("catalog item %s: unknown policy kind %q", c.ID, c.Policy)
	}
	return nil
}

// SearchKeyword returns the keyword used when querying sources for this item.
// The first alias doubles as the search term, matching how the catalog pairs
// a search keyword with each pricing target.
func (c *CatalogItem) SearchKeyword() string {
	return c.Aliases[0]
}
