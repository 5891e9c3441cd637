package autoscout

import "relentless-autoscout/internal/models"

// Strategy names the extraction path that produced a page's listings.
type Strategy string

const (
	StrategyStructured Strategy = "structured"
	StrategyDOM        Strategy = "dom"
	StrategyNone       Strategy = "none"
)

// Page is the parse result for one search-results page.
type Page struct {
	Listings   []models.ListingRecord
	TotalPages int
	Strategy   Strategy
}

// ParsePage extracts listings from a raw search-results page. The embedded
// page-state blob is preferred; when it is missing, malformed, or yields no
// listings the rendered markup is scanned instead and the page hint is 1.
// ParsePage is pure: the same bytes always give the same Page.
func ParsePage(raw []byte) Page {
	if listings, total, ok := ExtractStructuredPage(raw); ok && len(listings) > 0 {
		return Page{Listings: listings, TotalPages: total, Strategy: StrategyStructured}
	}
	listings, err := ExtractDOMPage(raw)
	if err != nil || len(listings) == 0 {
		return Page{TotalPages: 1, Strategy: StrategyNone}
	}
	return Page{Listings: listings, TotalPages: 1, Strategy: StrategyDOM}
}
