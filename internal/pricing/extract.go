// Package pricing contains the listing price extractor and the margin
// policies that decide whether an asking price is worth an alert.
//
// Extraction rules, fixed deliberately since listing text is ambiguous:
//   - The first "$" marker followed by a parseable number wins. In
//     "$50 OBO, will take $45" the extracted price is 50.
//   - A range takes its lower bound: the numeric token ends at the first
//     character that is not a digit, comma, or dot, so "$50-$60" yields 50.
//   - Thousands separators are stripped before parsing.
package pricing

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrNoPrice indicates that no parseable asking price was found in the text.
var ErrNoPrice = errors.New("no price found in listing text")

// ExtractPrice pulls the asking price out of a listing title, falling back to
// the summary text when the title has no usable currency marker. Returns
// ErrNoPrice when neither field yields a finite positive number.
func ExtractPrice(title, summary string) (float64, error) {
	if price, ok := scanDollars(title); ok {
		return price, nil
	}
	if price, ok := scanDollars(summary); ok {
		return price, nil
	}
	return 0, ErrNoPrice
}

// scanDollars walks the text left to right and returns the number following
// the first "$" marker that parses cleanly.
func scanDollars(text string) (float64, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '$' {
			continue
		}
		if price, ok := parseToken(text[i+1:]); ok {
			return price, true
		}
	}
	return 0, false
}

// parseToken parses the numeric token at the start of rest, after skipping
// leading spaces. The token is the maximal run of digits, commas, and dots;
// it must start with a digit.
func parseToken(rest string) (float64, bool) {
	rest = strings.TrimLeft(rest, " \t")
	end := 0
	for end < len(rest) {
		c := rest[end]
		if (c < '0' || c > '9') && c != ',' && c != '.' {
			break
		}
		end++
	}
	token := strings.ReplaceAll(rest[:end], ",", "")
	token = strings.TrimRight(token, ".")
	if token == "" || token[0] < '0' || token[0] > '9' {
		return 0, false
	}

	price, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	// Zero-priced listings ("$0", "free") carry no asking price worth
	// evaluating; the observed monitor skipped them too.
	if price <= 0 || math.IsInf(price, 0) || math.IsNaN(price) {
		return 0, false
	}
	return price, true
}
