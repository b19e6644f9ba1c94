package scraper

import (
	"testing"

	"dubai-rentals/internal/geo"
	"dubai-rentals/internal/models"
	"dubai-rentals/internal/validate"
)

func TestFallbackDeterministic(t *testing.T) {
	a := NewFallbackGenerator(42, 8).Generate("bayut", "JVC", models.RentalFilter{})
	b := NewFallbackGenerator(42, 8).Generate("bayut", "JVC", models.RentalFilter{})

	if len(a) != 8 || len(b) != 8 {
		t.Fatalf("got %d and %d listings, want 8", len(a), len(b))
	}
	for i := range a {
		if a[i].Rent != b[i].Rent || a[i].SizeSqft != b[i].SizeSqft || a[i].Bedrooms != b[i].Bedrooms {
			t.Errorf("listing %d differs between runs with the same seed", i)
		}
		if a[i].ID == b[i].ID {
			t.Errorf("listing %d reused ID %s", i, a[i].ID)
		}
	}
}

func TestFallbackHonoursFilter(t *testing.T) {
	f := mustFilter(t, models.RawFilter{Bedrooms: "2", Furnishing: "Furnished", RentMax: "200000"})
	listings := NewFallbackGenerator(1, 5).Generate("propertyfinder", "Dubai Marina", f)

	if len(listings) == 0 {
		t.Fatal("no listings generated")
	}
	for _, l := range listings {
		if !f.Matches(&l) {
			t.Errorf("listing outside filter: %+v", l)
		}
		if l.Origin != models.OriginFallback || l.Source != "propertyfinder" || l.Location != "Dubai Marina" {
			t.Errorf("unexpected listing metadata %+v", l)
		}
	}
}

func TestFallbackListingsValidate(t *testing.T) {
	v := validate.New(validate.DefaultConfig(), nil)
	g := NewFallbackGenerator(99, 10)

	for _, area := range geo.Areas {
		for beds := 0; beds <= 7; beds++ {
			f := models.RentalFilter{Bedrooms: &beds}
			for _, l := range g.Generate("dld", area.Name, f) {
				if res := v.Validate(&l); !res.IsValid {
					t.Errorf("%s %dBR: generated listing failed validation: %v (rent %v, size %v)",
						area.Name, beds, res.Issues, l.Rent, l.SizeSqft)
				}
			}
		}
	}
}

func TestFallbackEdgeCases(t *testing.T) {
	g := NewFallbackGenerator(3, 5)

	tooMany := 9
	if got := g.Generate("bayut", "JLT", models.RentalFilter{Bedrooms: &tooMany}); got != nil {
		t.Errorf("bedrooms out of range produced %d listings", len(got))
	}

	unknown := g.Generate("bayut", "Al Qusais", models.RentalFilter{})
	if len(unknown) == 0 || unknown[0].Location != "Al Qusais" {
		t.Errorf("unknown area should keep its name: %+v", unknown)
	}

	short := g.Generate("bayut", "X", models.RentalFilter{})
	if len(short) == 0 || short[0].Location != geo.DefaultArea.Name {
		t.Errorf("short area should use the default profile: %+v", short)
	}

	impossible := mustFilter(t, models.RawFilter{RentMax: "1"})
	if got := g.Generate("bayut", "JLT", impossible); len(got) != 0 {
		t.Errorf("impossible filter produced %d listings", len(got))
	}
}
