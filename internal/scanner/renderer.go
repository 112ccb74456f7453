package scanner

import (
	"strconv"

	"csgo-pricecheck/internal/models"
	"csgo-pricecheck/internal/page"
)

// Tier thresholds on reference price per displayed coin. Both bounds are Fair.
const (
	UnderpricedBelow = 0.01
	OverpricedAbove  = 0.1
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"NOK": "kr",
	"SEK": "kr",
	"GBP": "£",
	"CAD": "$",
	"AUD": "$",
}

// CurrencySymbol returns the label prefix for an ISO code, "$" if unknown.
func CurrencySymbol(code string) string {
	if s, ok := currencySymbols[code]; ok {
		return s
	}
	return "$"
}

// Compare divides the reference price by the displayed coin price.
func Compare(displayed, reference float64) models.ComparisonResult {
	ratio := reference / displayed
	return models.ComparisonResult{Ratio: ratio, Tier: Classify(ratio)}
}

func Classify(ratio float64) models.Tier {
	switch {
	case ratio < UnderpricedBelow:
		return models.Underpriced
	case ratio > OverpricedAbove:
		return models.Overpriced
	default:
		return models.Fair
	}
}

// Label formats a ratio as the badge text, e.g. "$0.02".
func Label(symbol string, ratio float64) string {
	return symbol + strconv.FormatFloat(ratio, 'f', 2, 64)
}

// Renderer turns a price pair into a badge on the card.
type Renderer struct{}

// Render annotates card unless it already carries a badge. It reports
// whether a badge was added.
func (Renderer) Render(card page.Card, displayed, reference float64, symbol string) bool {
	if card.HasAnnotation() {
		return false
	}
	res := Compare(displayed, reference)
	card.Annotate(page.Annotation{Label: Label(symbol, res.Ratio), Tier: res.Tier})
	return true
}
