package engine

import (
	"time"

	"github.com/UsmanKarim08/flipping-lead-gen/internal/models"
)

// BuildBatch groups deals by catalog item, preserving first-seen order both
// across and within groups: item X's group sits at the position of X's first
// deal in arrival order, and deals inside a group keep arrival order. The
// engine hands the batch to notifiers as-is and has no notion of delivery.
func BuildBatch(deals []models.Deal, cycleAt time.Time) models.AlertBatch {
	groupMap := make(map[string]*models.AlertGroup)
	var order []string

	for _, deal := range deals {
		g, exists := groupMap[deal.ItemID]
		if !exists {
			g = &models.AlertGroup{ItemID: deal.ItemID}
			groupMap[deal.ItemID] = g
			order = append(order, deal.ItemID)
		}
		g.Deals = append(g.Deals, deal)
	}

	batch := models.AlertBatch{CycleAt: cycleAt}
	for _, itemID := range order {
		batch.Groups = append(batch.Groups, *groupMap[itemID])
	}
	return batch
}
