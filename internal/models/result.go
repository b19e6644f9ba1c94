package models

import "time"

// ScrapeResult is the outcome of one adapter invocation
type ScrapeResult struct {
	Source     string          `json:"source"`
	Listings   []RentalListing `json:"listings"`
	FetchedAt  time.Time       `json:"fetched_at"`
	Confidence float64         `json:"confidence"`
	Errors     []string        `json:"errors"`
	Fallback   bool            `json:"fallback"` // listings were synthesised from area profiles
	Skipped    int             `json:"skipped"`  // items dropped by parsing or validation
}

// Failed reports whether the adapter produced nothing usable
func (r *ScrapeResult) Failed() bool {
	return len(r.Listings) == 0 && len(r.Errors) > 0
}

// Live reports whether the result carries upstream data rather than a failure or fallback
func (r *ScrapeResult) Live() bool {
	return !r.Failed() && !r.Fallback
}

// Issue is a validation issue tag
type Issue string

const (
	IssueRentMissing     Issue = "rent_missing"
	IssueRentBelowMin    Issue = "rent_below_min"
	IssueRentAboveMax    Issue = "rent_above_max"
	IssueSizeBelowMin    Issue = "size_below_min"
	IssuePricePerSqft    Issue = "price_per_sqft_out_of_range"
	IssueBedroomsRange   Issue = "bedrooms_out_of_range"
	IssueLocationMissing Issue = "location_missing"
)

// Correction holds estimated replacements for missing or implausible fields
type Correction struct {
	SizeSqft *float64 `json:"size_sqft,omitempty"`
	Rent     *float64 `json:"rent,omitempty"`
}

// ValidationResult scores one listing's plausibility
type ValidationResult struct {
	IsValid         bool        `json:"is_valid"`
	Confidence      float64     `json:"confidence"`
	Issues          []Issue     `json:"issues"`
	CorrectedFields *Correction `json:"corrected_fields,omitempty"`
}

// Has reports whether the result carries the given issue
func (v ValidationResult) Has(issue Issue) bool {
	for _, i := range v.Issues {
		if i == issue {
			return true
		}
	}
	return false
}

// AggregateResult is the merged response handed to the presentation layer
type AggregateResult struct {
	Area            string          `json:"area"`
	Filter          RentalFilter    `json:"filter"`
	Listings        []RentalListing `json:"listings"`
	Sources         []ScrapeResult  `json:"sources"`
	TotalConfidence float64         `json:"total_confidence"`
	Errors          []string        `json:"errors"`
	Degraded        bool            `json:"degraded"` // no source returned live data; fallback-only runs count
	GeneratedAt     time.Time       `json:"generated_at"`
}
