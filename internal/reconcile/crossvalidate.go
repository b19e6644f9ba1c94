package reconcile

import (
	"fmt"
	"math"

	"dubai-rentals/internal/models"
)

// DefaultThreshold is the relative deviation from the group mean tolerated before correction
const DefaultThreshold = 0.4

// CrossValidator pulls outlier rents toward the consensus of their peer group.
// Peers share bedroom count and normalised location.
type CrossValidator struct {
	Threshold float64
}

// NewCrossValidator creates a cross validator; a non-positive threshold uses the default
func NewCrossValidator(threshold float64) *CrossValidator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &CrossValidator{Threshold: threshold}
}

type groupKey struct {
	bedrooms int
	location string
}

// CrossValidate returns a corrected copy of listings; the input is not modified.
//
// For each group with more than one member the consensus mean is found by
// repeatedly dropping the member furthest from the current mean while that
// member deviates by more than Threshold and more than two members remain.
// Every member deviating from the final mean by more than Threshold gets its
// rent replaced by the rounded mean and a note appended to its description.
func (cv *CrossValidator) CrossValidate(listings []models.RentalListing) []models.RentalListing {
	out := make([]models.RentalListing, len(listings))
	groups := make(map[groupKey][]int)
	var order []groupKey

	for i := range listings {
		out[i] = listings[i].Clone()
		k := groupKey{bedrooms: listings[i].Bedrooms, location: models.NormalizeLocation(listings[i].Location)}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	for _, k := range order {
		members := groups[k]
		if len(members) < 2 {
			continue
		}

		mean := cv.consensusMean(out, members)
		if mean <= 0 {
			continue
		}

		for _, i := range members {
			if deviation(out[i].Rent, mean) <= cv.Threshold {
				continue
			}
			corrected := math.Round(mean)
			note := fmt.Sprintf("Rent adjusted from AED %.0f to AED %.0f (peer average of %d listings)",
				out[i].Rent, corrected, len(members))
			out[i].Rent = corrected
			out[i].AppendNote(note)
		}
	}

	return out
}

func (cv *CrossValidator) consensusMean(listings []models.RentalListing, members []int) float64 {
	inliers := append([]int(nil), members...)

	for len(inliers) > 2 {
		mean := meanRent(listings, inliers)
		worst, worstDev := -1, 0.0
		for pos, i := range inliers {
			if d := deviation(listings[i].Rent, mean); d > worstDev {
				worst, worstDev = pos, d
			}
		}
		if worst < 0 || worstDev <= cv.Threshold {
			break
		}
		inliers = append(inliers[:worst], inliers[worst+1:]...)
	}

	return meanRent(listings, inliers)
}

func meanRent(listings []models.RentalListing, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range idx {
		sum += listings[i].Rent
	}
	return sum / float64(len(idx))
}

func deviation(rent, mean float64) float64 {
	if mean == 0 {
		return 0
	}
	return math.Abs(rent-mean) / mean
}
