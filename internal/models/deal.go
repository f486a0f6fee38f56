package models

import (
	"errors"
	"math"
	"time"
)

// Deal is a listing that cleared extraction, catalog matching, the item's
// margin policy, and the dedup store. It exists only inside the cycle that
// produced it; the alert batch is its only consumer.
type Deal struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	ItemID     string    `json:"item_id"`
	Keyword    string    `json:"keyword"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Location   string    `json:"location,omitempty"`
	Price      float64   `json:"price"`
	MaxBuy     float64   `json:"max_buy"`
	Resale     float64   `json:"resale"`
	Profit     float64   `json:"profit"`
	Margin     float64   `json:"margin"` // profit / resale, as a fraction
	DetectedAt time.Time `json:"detected_at"`
}

// Validate checks that all deal fields are consistent.
func (d *Deal) Validate() error {
	if d.ID == "" {
		return errors.New("deal ID must not be empty")
	}
	if d.Source == "" {
		return errors.New("deal source must not be empty")
	}
	if d.ItemID == "" {
		return errors.New("deal item ID must not be empty")
	}
	if d.Price < 0 || math.IsNaN(d.Price) || math.IsInf(d.Price, 0) {
		return errors.New("deal price must be finite and non-negative")
	}
	if d.Resale <= 0 {
		return errors.New("deal resale value must be positive")
	}
	if math.Abs(d.Profit-(d.Resale-d.Price)) > 0.001 {
		return errors.New("profit must equal resale - price")
	}
	if math.Abs(d.Margin-d.Profit/d.Resale) > 0.001 {
		return errors.New("margin must equal profit / resale")
	}
	if d.DetectedAt.After(time.Now().Add(time.Minute)) {
		return errors.New("detected at must not be in the future")
	}
	return nil
}

// AlertGroup collects the deals for one catalog item, in arrival order.
type AlertGroup struct {
	ItemID string `json:"item_id"`
	Deals  []Deal `json:"deals"`
}

// AlertBatch is the ordered set of deal groups produced by one poll cycle.
// Groups appear at the position of their first deal in arrival order, and
// deals within a group retain arrival order. The batch is handed as a whole
// to the configured notifiers.
type AlertBatch struct {
	Groups  []AlertGroup `json:"groups"`
	CycleAt time.Time    `json:"cycle_at"`
}

// Empty reports whether the batch carries no deals.
func (b *AlertBatch) Empty() bool {
	return len(b.Groups) == 0
}

// Size returns the total number of deals across all groups.
func (b *AlertBatch) Size() int {
	n := 0
	for _, g := range b.Groups {
		n += len(g.Deals)
	}
	return n
}
