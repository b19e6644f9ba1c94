// Package reconcile merges listings recovered from several sources.
package reconcile

import (
	"fmt"
	"math"

	"dubai-rentals/internal/models"
)

// Signature is the coarse identity key used to spot the same unit across sources:
// bedrooms, rent rounded to the nearest thousand, rounded size and normalised location.
func Signature(l *models.RentalListing) string {
	return fmt.Sprintf("%d|%d|%d|%s",
		l.Bedrooms,
		int64(math.Round(l.Rent/1000)),
		int64(math.Round(l.SizeSqft)),
		models.NormalizeLocation(l.Location),
	)
}

// Dedupe keeps the first listing seen per signature, in input order.
// Distinct units that share every rounded attribute are merged as well.
func Dedupe(listings []models.RentalListing) []models.RentalListing {
	seen := make(map[string]bool, len(listings))
	out := make([]models.RentalListing, 0, len(listings))

	for i := range listings {
		sig := Signature(&listings[i])
		if seen[sig] {
			continue
		}
		seen[sig] = true
		out = append(out, listings[i].Clone())
	}

	return out
}
