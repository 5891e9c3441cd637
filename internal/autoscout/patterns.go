package autoscout

import "regexp"

// Page-structure constants for the listing site. Everything the parsers match
// against markup or text lives here.
var (
	// nextDataPattern captures the serialized page-state script body.
	nextDataPattern = regexp.MustCompile(`(?is)<script\s+id="__NEXT_DATA__"[^>]*>(.*?)</script>`)

	nonDigitPattern = regexp.MustCompile(`\D`)

	powerHPPattern = regexp.MustCompile(`(?i)\((\d+)\s*hp\)`)
	powerKWPattern = regexp.MustCompile(`(?i)(\d+)\s*kW`)
	// domPowerPattern accepts "150 hp" or "150 PS" inside a detail snippet.
	domPowerPattern = regexp.MustCompile(`(?i)(\d+)\s*(?:hp|ps)\b`)

	priceTextPattern = regexp.MustCompile(`[\d,.]+`)
	priceGrouping    = regexp.MustCompile(`[,.]`)

	mileageSpecPattern      = regexp.MustCompile(`(?i)km`)
	monthYearSpecPattern    = regexp.MustCompile(`^\d{2}/\d{4}$`)
	yearSpecPattern         = regexp.MustCompile(`^\d{4}$`)
	fuelSpecPattern         = regexp.MustCompile(`(?i)gasoline|diesel|electric|hybrid|petrol`)
	transmissionSpecPattern = regexp.MustCompile(`(?i)manual|automatic`)
	powerSpecPattern        = regexp.MustCompile(`(?i)hp|kw|ps`)

	colorTokenPattern = regexp.MustCompile(`^[A-Za-z]{3,14}$`)
)

// DOM selectors used by the fallback strategy.
const (
	listingContainerSelector = "article"
	detailLinkSelector       = `a[href*="/offers/"]`
	titleSelector            = `[class*="ListItemTitle"]`
	priceSelector            = `[class*="Price"]`
	specSelector             = `[data-testid="vehicle-details-item"], [class*="VehicleDetailTable_item"]`
	imageSelector            = "img"
)

// powerDetailLabel marks the structured details entry carrying engine power.
const powerDetailLabel = "Power"

// colorFinishTokens are paint-finish words that trail the actual color in detail URLs.
var colorFinishTokens = map[string]bool{
	"metallic": true,
	"pearl":    true,
	"matt":     true,
	"matte":    true,
	"effect":   true,
}
