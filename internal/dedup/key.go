// Package dedup suppresses repeat alerts for the same marketplace
// opportunity. It builds deterministic keys for evaluated listings and
// provides stores with an atomic check-and-set: the first caller to present
// a key wins, every later caller is told the key was already seen.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/UsmanKarim08/flipping-lead-gen/internal/models"
)

// titlePrefixLen bounds the title contribution to fallback keys. Longer
// prefixes re-alert on trivially edited reposts; shorter ones collide across
// genuinely different listings.
const titlePrefixLen = 20

// Key returns the dedup key for an evaluated listing. When the source
// supplies a stable per-listing identifier the key is built from
// (source, listing id) alone. Otherwise it falls back to
// (source, item id, price, title prefix), which is known to collide on
// near-identical titles at the same price and to miss reposts whose price
// moved outside the prefix; acceptable only because some feeds omit GUIDs.
func Key(listing *models.ParsedListing) string {
	if listing.ListingID != "" {
		return digest(fmt.Sprintf("id|%s|%s", listing.Source, listing.ListingID))
	}

	itemID := ""
	if listing.Item != nil {
		itemID = listing.Item.ID
	}
	return digest(fmt.Sprintf("fp|%s|%s|%.2f|%s",
		listing.Source, itemID, listing.Price, titlePrefix(listing.Title)))
}

func titlePrefix(title string) string {
	runes := []rune(title)
	if len(runes) > titlePrefixLen {
		runes = runes[:titlePrefixLen]
	}
	return string(runes)
}

func digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:16])
}
