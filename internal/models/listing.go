package models

import (
	"errors"
	"time"
)

// RawListing is one untouched observation pulled from an external source
// during a poll cycle. It lives for the duration of that cycle only.
type RawListing struct {
	Source    string    `json:"source"`               // site identifier, e.g. "newyork"
	Title     string    `json:"title"`                // unstructured listing title
	Summary   string    `json:"summary,omitempty"`    // secondary free text, may carry the price
	URL       string    `json:"url"`                  // link to the listing page
	Location  string    `json:"location,omitempty"`   // human-readable area
	ListingID string    `json:"listing_id,omitempty"` // stable per-listing id (RSS GUID) when the source supplies one
	FetchedAt time.Time `json:"fetched_at"`
}

// Validate checks that a raw listing carries the minimum required fields.
func (l *RawListing) Validate() error {
	if l.Source == "" {
		return errors.New("listing source must not be empty")
	}
	if l.Title == "" {
		return errors.New("listing title must not be empty")
	}
	if l.FetchedAt.After(time.Now().Add(time.Minute)) {
		return errors.New("fetched at must not be in the future")
	}
	return nil
}

// ParsedListing is a raw listing after price extraction and catalog matching.
// Price is only meaningful when HasPrice is true; Item is nil when no catalog
// entry matched the title.
type ParsedListing struct {
	RawListing
	Price    float64      `json:"price"`
	HasPrice bool         `json:"has_price"`
	Item     *CatalogItem `json:"item,omitempty"`
}
