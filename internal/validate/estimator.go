package validate

import (
	"math"

	"dubai-rentals/internal/geo"
)

// BedroomMultipliers scale an area's one-bedroom base rent, indexed by bedroom count
var BedroomMultipliers = []float64{0.7, 1.0, 1.45, 1.95, 2.5, 3.1, 3.7, 4.3}

// Estimate is the area/bedroom based expectation for a unit
type Estimate struct {
	Area         string  `json:"area"`
	Matched      bool    `json:"matched"` // false when the default profile was used
	Bedrooms     int     `json:"bedrooms"`
	Rent         float64 `json:"rent"`
	SizeSqft     float64 `json:"size_sqft"`
	PricePerSqft float64 `json:"price_per_sqft"`
}

// Estimator derives rent and size from area profiles
type Estimator struct {
	lookup func(string) (geo.AreaProfile, bool)
}

// NewEstimator creates an estimator over the built-in area table
func NewEstimator() *Estimator {
	return &Estimator{lookup: geo.LookupArea}
}

// Estimate returns expected rent and size for a unit in the given area
func (e *Estimator) Estimate(area string, bedrooms int) Estimate {
	profile, ok := e.lookup(area)
	beds := clampBedrooms(bedrooms)

	rent := math.Round(profile.BaseRent*BedroomMultipliers[beds]/500) * 500
	size := math.Round(profile.StudioSqft + profile.SqftPerBedroom*float64(beds))

	return Estimate{
		Area:         profile.Name,
		Matched:      ok,
		Bedrooms:     beds,
		Rent:         rent,
		SizeSqft:     size,
		PricePerSqft: math.Round(rent/size*100) / 100,
	}
}

// Rent estimates the annual rent in AED
func (e *Estimator) Rent(area string, bedrooms int) float64 {
	return e.Estimate(area, bedrooms).Rent
}

// Size estimates the unit size in sqft
func (e *Estimator) Size(area string, bedrooms int) float64 {
	return e.Estimate(area, bedrooms).SizeSqft
}

func clampBedrooms(n int) int {
	if n < 0 {
		return 0
	}
	if n >= len(BedroomMultipliers) {
		return len(BedroomMultipliers) - 1
	}
	return n
}
