// Package identity maps what a listing card displays to the Steam
// market_hash_name used as the price catalog key.
package identity

import (
	"strings"

	"csgo-pricecheck/internal/models"
)

const (
	FamilyDoppler      = "Doppler"
	FamilyGammaDoppler = "Gamma Doppler"
)

// phase names are shown instead of the finish name for these two families.
// The value is the owning family and the suffix appended after the wear.
type phase struct {
	family string
	suffix string
}

var phaseNames = map[string]phase{
	"Doppler Phase 1": {FamilyDoppler, "Phase 1"},
	"Doppler Phase 2": {FamilyDoppler, "Phase 2"},
	"Doppler Phase 3": {FamilyDoppler, "Phase 3"},
	"Doppler Phase 4": {FamilyDoppler, "Phase 4"},
	"Ruby":            {FamilyDoppler, "Ruby"},
	"Sapphire":        {FamilyDoppler, "Sapphire"},
	"Black Pearl":     {FamilyDoppler, "Black Pearl"},

	"Gamma Doppler Phase 1": {FamilyGammaDoppler, "Phase 1"},
	"Gamma Doppler Phase 2": {FamilyGammaDoppler, "Phase 2"},
	"Gamma Doppler Phase 3": {FamilyGammaDoppler, "Phase 3"},
	"Gamma Doppler Phase 4": {FamilyGammaDoppler, "Phase 4"},
	"Emerald":               {FamilyGammaDoppler, "Emerald"},
}

// Resolver is stateless; the zero value is ready to use.
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve builds "<subcategory> | <name> (<wear>)[ - <phase>]". It never fails:
// unknown names pass through verbatim.
func (r *Resolver) Resolve(v models.ItemVariant) string {
	var b strings.Builder
	b.WriteString(v.Subcategory)
	b.WriteString(" | ")

	family, suffix, isPhase := Family(v.DisplayName)
	if isPhase {
		b.WriteString(family)
	} else {
		b.WriteString(v.DisplayName)
	}

	b.WriteString(" (")
	b.WriteString(v.Wear.Label())
	b.WriteString(")")

	if isPhase {
		b.WriteString(" - ")
		b.WriteString(suffix)
	}
	return b.String()
}

// Family reports the phase family and suffix for a phase display name.
// Names are matched exactly, so "Doppler" or "Doppler Phase 5" are not phases.
func Family(displayName string) (family, suffix string, ok bool) {
	p, ok := phaseNames[displayName]
	if !ok {
		return "", "", false
	}
	return p.family, p.suffix, true
}

// ParseWearClass maps a wear bar CSS class list to a wear tier. Anything
// unrecognised, including an empty list, is Factory New.
func ParseWearClass(classes string) models.Wear {
	for _, c := range strings.Fields(classes) {
		switch c {
		case "wear-bar-mw":
			return models.MinimalWear
		case "wear-bar-ft":
			return models.FieldTested
		case "wear-bar-ww":
			return models.WellWorn
		case "wear-bar-bs":
			return models.BattleScarred
		}
	}
	return models.FactoryNew
}
