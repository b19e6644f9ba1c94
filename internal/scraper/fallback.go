package scraper

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"dubai-rentals/internal/geo"
	"dubai-rentals/internal/models"
	"dubai-rentals/internal/validate"
)

var agentNames = []string{
	"Ahmed Khan", "Sara Al Mansoori", "Rahul Mehta", "Olga Petrova", "Omar Haddad",
	"Fatima Noor", "James Carter", "Aisha Rahman", "Daniel Brooks", "Layla Aziz",
}

// FallbackGenerator synthesises plausible listings from area profiles when an
// upstream cannot be reached. Every listing it returns has Origin fallback.
type FallbackGenerator struct {
	est   *validate.Estimator
	count int
	maxBR int

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewFallbackGenerator creates a generator producing count listings per call.
// The same seed yields the same sequence of listings apart from IDs.
func NewFallbackGenerator(seed uint64, count int) *FallbackGenerator {
	if count <= 0 {
		count = 5
	}
	return &FallbackGenerator{
		est:   validate.NewEstimator(),
		count: count,
		maxBR: validate.DefaultConfig().MaxBedrooms,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now:   time.Now,
	}
}

// Generate returns up to count listings for the area that satisfy filter
func (g *FallbackGenerator) Generate(source, area string, filter models.RentalFilter) []models.RentalListing {
	if filter.Bedrooms != nil && (*filter.Bedrooms < 0 || *filter.Bedrooms > g.maxBR) {
		return nil
	}

	profile, matched := geo.LookupArea(area)
	location := profile.Name
	if !matched && len(strings.TrimSpace(area)) >= 3 {
		location = strings.TrimSpace(area)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]models.RentalListing, 0, g.count)
	for attempt := 0; attempt < g.count*20 && len(out) < g.count; attempt++ {
		l := g.one(source, location, profile, filter)
		if filter.Matches(&l) {
			out = append(out, l)
		}
	}
	return out
}

func (g *FallbackGenerator) one(source, location string, profile geo.AreaProfile, filter models.RentalFilter) models.RentalListing {
	beds := g.bedrooms(profile, filter)

	// Rent and size vary independently by up to 10%
	est := g.est.Estimate(profile.Name, beds)
	rent := math.Round(est.Rent*g.vary(0.1)/500) * 500
	size := math.Round(est.SizeSqft * g.vary(0.1))

	ptype := g.propertyType(profile, beds, filter)
	furnishing := g.furnishing(filter)

	l := models.RentalListing{
		ID:             uuid.NewString(),
		Source:         source,
		Origin:         models.OriginFallback,
		PropertyType:   ptype,
		Bedrooms:       beds,
		Bathrooms:      max(1, beds+g.rng.IntN(2)),
		SizeSqft:       size,
		Rent:           rent,
		RentPeriod:     models.Yearly,
		Furnishing:     furnishing,
		PropertyName:   profile.Buildings[g.rng.IntN(len(profile.Buildings))],
		Location:       location,
		Amenities:      g.amenities(profile),
		Contact:        g.contact(),
		AvailableSince: g.now().AddDate(0, 0, -g.rng.IntN(30)).Truncate(24 * time.Hour),
		Description:    fmt.Sprintf("Estimated listing generated from the %s area profile", profile.Name),
	}
	if ptype != models.Villa && ptype != models.Townhouse {
		l.Floor = fmt.Sprintf("%d", 1+g.rng.IntN(40))
	}
	l.FullAddress = l.BuildFullAddress()
	return l
}

func (g *FallbackGenerator) bedrooms(profile geo.AreaProfile, filter models.RentalFilter) int {
	if filter.Bedrooms != nil {
		return *filter.Bedrooms
	}
	if profile.Villas {
		return 2 + g.rng.IntN(4)
	}
	return g.rng.IntN(4)
}

func (g *FallbackGenerator) propertyType(profile geo.AreaProfile, beds int, filter models.RentalFilter) models.PropertyType {
	if filter.PropertyType != nil {
		return *filter.PropertyType
	}
	switch {
	case profile.Villas && g.rng.IntN(3) == 0:
		return models.Townhouse
	case profile.Villas:
		return models.Villa
	case beds == 0:
		return models.Studio
	case beds >= 3 && g.rng.IntN(5) == 0:
		return models.Penthouse
	default:
		return models.Apartment
	}
}

func (g *FallbackGenerator) furnishing(filter models.RentalFilter) models.Furnishing {
	if filter.Furnishing != nil {
		return *filter.Furnishing
	}
	options := []models.Furnishing{models.Furnished, models.Unfurnished, models.PartiallyFurnished}
	return options[g.rng.IntN(len(options))]
}

func (g *FallbackGenerator) amenities(profile geo.AreaProfile) []string {
	n := min(len(profile.Amenities), 3+g.rng.IntN(3))
	picked := make([]string, 0, n)
	for _, i := range g.rng.Perm(len(profile.Amenities))[:n] {
		picked = append(picked, profile.Amenities[i])
	}
	return models.UniqueStrings(picked)
}

func (g *FallbackGenerator) contact() models.Contact {
	name := agentNames[g.rng.IntN(len(agentNames))]
	handle := strings.ToLower(strings.ReplaceAll(name, " ", "."))
	return models.Contact{
		Name:  name,
		Phone: fmt.Sprintf("+971 5%d %03d %04d", g.rng.IntN(9), g.rng.IntN(1000), g.rng.IntN(10000)),
		Email: handle + "@example.ae",
	}
}

// vary returns a factor in [1-spread, 1+spread]
func (g *FallbackGenerator) vary(spread float64) float64 {
	return 1 - spread + g.rng.Float64()*2*spread
}
