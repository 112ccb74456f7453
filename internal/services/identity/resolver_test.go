package identity

import (
	"testing"

	"csgo-pricecheck/internal/models"
)

func TestResolvePlainNames(t *testing.T) {
	r := NewResolver()
	cases := []struct {
		variant models.ItemVariant
		want    string
	}{
		{models.ItemVariant{DisplayName: "Redline", Subcategory: "AK-47", Wear: models.FieldTested}, "AK-47 | Redline (Field-Tested)"},
		{models.ItemVariant{DisplayName: "Asiimov", Subcategory: "AWP", Wear: models.BattleScarred}, "AWP | Asiimov (Battle-Scarred)"},
		{models.ItemVariant{DisplayName: "Fade", Subcategory: "★ Karambit", Wear: models.FactoryNew}, "★ Karambit | Fade (Factory New)"},
		{models.ItemVariant{DisplayName: "Doppler", Subcategory: "★ Bayonet", Wear: models.MinimalWear}, "★ Bayonet | Doppler (Minimal Wear)"},
		{models.ItemVariant{DisplayName: "Doppler Phase 5", Subcategory: "★ Bayonet", Wear: models.WellWorn}, "★ Bayonet | Doppler Phase 5 (Well-Worn)"},
		{models.ItemVariant{DisplayName: "Printstream", Subcategory: "StatTrak™ M4A1-S", Wear: models.WellWorn}, "StatTrak™ M4A1-S | Printstream (Well-Worn)"},
	}
	for _, tc := range cases {
		if got := r.Resolve(tc.variant); got != tc.want {
			t.Fatalf("resolve %+v: got %q want %q", tc.variant, got, tc.want)
		}
	}
}

func TestResolvePhaseFamilies(t *testing.T) {
	r := NewResolver()
	cases := []struct {
		name string
		want string
	}{
		{"Doppler Phase 1", "★ Karambit | Doppler (Factory New) - Phase 1"},
		{"Doppler Phase 2", "★ Karambit | Doppler (Factory New) - Phase 2"},
		{"Doppler Phase 3", "★ Karambit | Doppler (Factory New) - Phase 3"},
		{"Doppler Phase 4", "★ Karambit | Doppler (Factory New) - Phase 4"},
		{"Ruby", "★ Karambit | Doppler (Factory New) - Ruby"},
		{"Sapphire", "★ Karambit | Doppler (Factory New) - Sapphire"},
		{"Black Pearl", "★ Karambit | Doppler (Factory New) - Black Pearl"},
		{"Gamma Doppler Phase 1", "★ Karambit | Gamma Doppler (Factory New) - Phase 1"},
		{"Gamma Doppler Phase 2", "★ Karambit | Gamma Doppler (Factory New) - Phase 2"},
		{"Gamma Doppler Phase 3", "★ Karambit | Gamma Doppler (Factory New) - Phase 3"},
		{"Gamma Doppler Phase 4", "★ Karambit | Gamma Doppler (Factory New) - Phase 4"},
		{"Emerald", "★ Karambit | Gamma Doppler (Factory New) - Emerald"},
	}
	for _, tc := range cases {
		v := models.ItemVariant{DisplayName: tc.name, Subcategory: "★ Karambit", Wear: models.FactoryNew}
		if got := r.Resolve(v); got != tc.want {
			t.Fatalf("resolve %q: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestFamilyAliases(t *testing.T) {
	for _, name := range []string{"Ruby", "Sapphire", "Black Pearl"} {
		family, suffix, ok := Family(name)
		if !ok || family != FamilyDoppler || suffix != name {
			t.Fatalf("%s: family=%q suffix=%q ok=%v", name, family, suffix, ok)
		}
	}
	family, suffix, ok := Family("Emerald")
	if !ok || family != FamilyGammaDoppler || suffix != "Emerald" {
		t.Fatalf("Emerald: family=%q suffix=%q ok=%v", family, suffix, ok)
	}
	if _, _, ok := Family("Redline"); ok {
		t.Fatal("Redline is not a phase name")
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	r := NewResolver()
	v := models.ItemVariant{DisplayName: "Sapphire", Subcategory: "★ Butterfly Knife", Wear: models.MinimalWear}
	first := r.Resolve(v)
	for i := 0; i < 10; i++ {
		if got := r.Resolve(v); got != first {
			t.Fatalf("iteration %d: %q != %q", i, got, first)
		}
	}
}

func TestParseWearClass(t *testing.T) {
	cases := map[string]models.Wear{
		"":                     models.FactoryNew,
		"wear-bar":             models.FactoryNew,
		"wear-bar wear-bar-fn": models.FactoryNew,
		"wear-bar wear-bar-mw": models.MinimalWear,
		"wear-bar wear-bar-ft": models.FieldTested,
		"wear-bar-ww wear-bar": models.WellWorn,
		"wear-bar wear-bar-bs": models.BattleScarred,
	}
	for classes, want := range cases {
		if got := ParseWearClass(classes); got != want {
			t.Fatalf("%q: got %v want %v", classes, got, want)
		}
	}
}
