package pricing

import (
	"fmt"

	"github.com/UsmanKarim08/flipping-lead-gen/internal/models"
)

// Decision is the outcome of evaluating an asking price against a policy.
// Profit and Margin are populated whether or not the price was accepted.
type Decision struct {
	Accept bool
	Price  float64
	Profit float64 // resale - price
	Margin float64 // profit / resale
	MaxBuy float64 // effective buy ceiling under the policy
}

// Policy decides whether an asking price is worth an alert for one catalog
// item. Implementations are pure: identical inputs always yield identical
// decisions.
type Policy interface {
	// Evaluate computes profit and margin for the given asking price and
	// applies the policy's acceptance rule. A price above resale (negative
	// profit) is rejected by every policy.
	Evaluate(price float64) Decision
}

// PolicyFor builds the policy configured on a catalog item. The item must
// already be validated; an unknown policy kind is an error.
func PolicyFor(item *models.CatalogItem) (Policy, error) {
	switch item.Policy {
	case models.PolicyFixedMaxBuy:
		return &FixedMaxBuy{Resale: item.Resale, MaxBuy: item.MaxBuy}, nil
	case models.PolicyMarginWindow:
		return NewMarginWindow(item.Resale, item.MinMargin, item.MaxMargin), nil
	default:
		return nil, fmt.Errorf("unknown policy kind %q for item %s", item.Policy, item.ID)
	}
}

// FixedMaxBuy accepts any price at or below a precomputed ceiling. The
// ceiling is configured directly and is independent of the margin formula.
type FixedMaxBuy struct {
	Resale float64
	MaxBuy float64
}

// Evaluate accepts iff price <= MaxBuy, boundary inclusive.
func (p *FixedMaxBuy) Evaluate(price float64) Decision {
	d := Decision{
		Price:  price,
		Profit: p.Resale - price,
		MaxBuy: p.MaxBuy,
	}
	d.Margin = d.Profit / p.Resale
	d.Accept = d.Profit >= 0 && price <= p.MaxBuy
	return d
}

// MarginWindow accepts prices whose resulting margin lands inside an
// inclusive [MinMargin, MaxMargin] window. Prices cheap enough to push the
// margin above MaxMargin are rejected: a listing far below market value is
// more likely a scam than a windfall.
type MarginWindow struct {
	Resale    float64
	MinMargin float64
	MaxMargin float64
	maxBuy    float64
}

// NewMarginWindow derives the effective buy ceiling from the midpoint of the
// target margin window: maxBuy = resale * (1 - (min+max)/2).
func NewMarginWindow(resale, minMargin, maxMargin float64) *MarginWindow {
	mid := (minMargin + maxMargin) / 2
	return &MarginWindow{
		Resale:    resale,
		MinMargin: minMargin,
		MaxMargin: maxMargin,
		maxBuy:    resale * (1 - mid),
	}
}

// Evaluate accepts iff margin lies in [MinMargin, MaxMargin], both ends
// inclusive.
func (p *MarginWindow) Evaluate(price float64) Decision {
	d := Decision{
		Price:  price,
		Profit: p.Resale - price,
		MaxBuy: p.maxBuy,
	}
	d.Margin = d.Profit / p.Resale
	d.Accept = d.Profit >= 0 && d.Margin >= p.MinMargin && d.Margin <= p.MaxMargin
	return d
}
