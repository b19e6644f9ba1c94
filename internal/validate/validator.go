// Package validate scores the plausibility of individual rental listings.
package validate

import (
	"fmt"
	"math"
	"strings"

	"dubai-rentals/internal/models"
)

// Penalties are the confidence deductions applied per failed check
type Penalties struct {
	RentLow      float64 `yaml:"rent_low" json:"rent_low"`
	RentHigh     float64 `yaml:"rent_high" json:"rent_high"`
	Size         float64 `yaml:"size" json:"size"`
	PricePerSqft float64 `yaml:"price_per_sqft" json:"price_per_sqft"`
	Bedrooms     float64 `yaml:"bedrooms" json:"bedrooms"`
	Location     float64 `yaml:"location" json:"location"`
}

// Config holds the plausibility bounds. Rent figures are AED per year.
type Config struct {
	MinRent         float64   `yaml:"min_rent" json:"min_rent"`
	MaxRent         float64   `yaml:"max_rent" json:"max_rent"`
	MinSizeSqft     float64   `yaml:"min_size_sqft" json:"min_size_sqft"`
	MinPricePerSqft float64   `yaml:"min_price_per_sqft" json:"min_price_per_sqft"`
	MaxPricePerSqft float64   `yaml:"max_price_per_sqft" json:"max_price_per_sqft"`
	MaxBedrooms     int       `yaml:"max_bedrooms" json:"max_bedrooms"`
	MinLocationLen  int       `yaml:"min_location_len" json:"min_location_len"`
	Penalties       Penalties `yaml:"penalties" json:"penalties"`
	ValidAbove      float64   `yaml:"valid_above" json:"valid_above"`
	MaxIssues       int       `yaml:"max_issues" json:"max_issues"`
}

// DefaultConfig returns the standard Dubai residential bounds
func DefaultConfig() Config {
	return Config{
		MinRent:         10000,
		MaxRent:         2000000,
		MinSizeSqft:     200,
		MinPricePerSqft: 50,
		MaxPricePerSqft: 300,
		MaxBedrooms:     7,
		MinLocationLen:  3,
		Penalties: Penalties{
			RentLow:      0.3,
			RentHigh:     0.2,
			Size:         0.2,
			PricePerSqft: 0.2,
			Bedrooms:     0.2,
			Location:     0.1,
		},
		ValidAbove: 0.5,
		MaxIssues:  3,
	}
}

// Validator scores listings against a Config
type Validator struct {
	cfg Config
	est *Estimator
}

// New creates a validator. A nil estimator disables corrections.
func New(cfg Config, est *Estimator) *Validator {
	return &Validator{cfg: cfg, est: est}
}

// Config returns the bounds in use
func (v *Validator) Config() Config {
	return v.cfg
}

// Validate runs every check independently against a starting confidence of 1.0.
// A rent outside [MinRent, MaxRent] always makes the listing invalid.
func (v *Validator) Validate(l *models.RentalListing) models.ValidationResult {
	cfg := v.cfg
	confidence := 1.0
	var issues []models.Issue
	var fix models.Correction
	correctable := false

	rentOutOfBand := false
	switch {
	case l.Rent <= 0:
		issues = append(issues, models.IssueRentMissing)
		confidence -= cfg.Penalties.RentLow
		rentOutOfBand = true
	case l.Rent < cfg.MinRent:
		issues = append(issues, models.IssueRentBelowMin)
		confidence -= cfg.Penalties.RentLow
		rentOutOfBand = true
	case l.Rent > cfg.MaxRent:
		issues = append(issues, models.IssueRentAboveMax)
		confidence -= cfg.Penalties.RentHigh
		rentOutOfBand = true
	}

	sizeOK := l.SizeSqft >= cfg.MinSizeSqft && l.SizeSqft > 0
	if !sizeOK {
		issues = append(issues, models.IssueSizeBelowMin)
		confidence -= cfg.Penalties.Size
	}

	if l.Rent > 0 && l.SizeSqft > 0 {
		ppsf := l.PricePerSqft()
		if ppsf < cfg.MinPricePerSqft || ppsf > cfg.MaxPricePerSqft {
			issues = append(issues, models.IssuePricePerSqft)
			confidence -= cfg.Penalties.PricePerSqft
		}
	}

	if l.Bedrooms < 0 || l.Bedrooms > cfg.MaxBedrooms {
		issues = append(issues, models.IssueBedroomsRange)
		confidence -= cfg.Penalties.Bedrooms
	}

	if len(strings.TrimSpace(l.Location)) < cfg.MinLocationLen {
		issues = append(issues, models.IssueLocationMissing)
		confidence -= cfg.Penalties.Location
	}

	// Estimates only make sense when the bedroom count is usable
	if v.est != nil && l.Bedrooms >= 0 && l.Bedrooms <= cfg.MaxBedrooms {
		if l.Rent < cfg.MinRent {
			rent := v.est.Rent(l.Location, l.Bedrooms)
			fix.Rent = &rent
			correctable = true
		}
		if !sizeOK {
			size := v.est.Size(l.Location, l.Bedrooms)
			fix.SizeSqft = &size
			correctable = true
		}
	}

	confidence = math.Max(0, math.Round(confidence*100)/100)

	res := models.ValidationResult{
		IsValid:    confidence > cfg.ValidAbove && len(issues) < cfg.MaxIssues && !rentOutOfBand,
		Confidence: confidence,
		Issues:     issues,
	}
	if correctable {
		res.CorrectedFields = &fix
	}
	return res
}

// Apply patches a listing with the result's corrected fields and re-scores it.
// The returned listing carries the new confidence; the bool is its validity.
func (v *Validator) Apply(l models.RentalListing, res models.ValidationResult) (models.RentalListing, bool) {
	out := l.Clone()
	if res.CorrectedFields == nil {
		out.Confidence = res.Confidence
		return out, res.IsValid
	}

	if res.CorrectedFields.Rent != nil {
		out.AppendNote(fmt.Sprintf("Rent estimated from area profile: AED %.0f (source gave AED %.0f)",
			*res.CorrectedFields.Rent, l.Rent))
		out.Rent = *res.CorrectedFields.Rent
	}
	if res.CorrectedFields.SizeSqft != nil {
		out.AppendNote(fmt.Sprintf("Size estimated from area profile: %.0f sqft", *res.CorrectedFields.SizeSqft))
		out.SizeSqft = *res.CorrectedFields.SizeSqft
	}

	again := v.Validate(&out)
	// Corrected listings keep the lower of the two scores
	out.Confidence = math.Min(again.Confidence, res.Confidence)
	return out, again.IsValid
}
