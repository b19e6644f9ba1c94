package models

import (
	"math"
	"strings"
	"time"
)

// PropertyType is the canonical unit category
type PropertyType string

const (
	Apartment PropertyType = "Apartment"
	Villa     PropertyType = "Villa"
	Townhouse PropertyType = "Townhouse"
	Penthouse PropertyType = "Penthouse"
	Studio    PropertyType = "Studio"
	Office    PropertyType = "Office"
	Shop      PropertyType = "Shop"
	Warehouse PropertyType = "Warehouse"
)

// PropertyTypes lists every canonical property type
var PropertyTypes = []PropertyType{Apartment, Villa, Townhouse, Penthouse, Studio, Office, Shop, Warehouse}

// Furnishing is the furnishing status of a unit
type Furnishing string

const (
	Furnished          Furnishing = "Furnished"
	Unfurnished        Furnishing = "Unfurnished"
	PartiallyFurnished Furnishing = "PartiallyFurnished"
)

// RentPeriod is the period an upstream advertises its rent for
type RentPeriod string

const (
	Yearly  RentPeriod = "yearly"
	Monthly RentPeriod = "monthly"
	Weekly  RentPeriod = "weekly"
	Daily   RentPeriod = "daily"
)

// Origin tags where a listing's data came from
type Origin string

const (
	// OriginLive marks data parsed from an upstream response
	OriginLive Origin = "live"
	// OriginFallback marks synthetic data generated from area profiles
	OriginFallback Origin = "fallback"
)

// Contact holds the advertiser's contact details
type Contact struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// RentalListing is one rentable unit as reconciled across sources.
// Rent is always AED per year; RentPeriod records what the upstream advertised.
type RentalListing struct {
	ID             string       `json:"id"`
	Source         string       `json:"source"`
	Origin         Origin       `json:"origin"`
	PropertyType   PropertyType `json:"property_type"`
	Bedrooms       int          `json:"bedrooms"`
	Bathrooms      int          `json:"bathrooms"`
	SizeSqft       float64      `json:"size_sqft"`
	Rent           float64      `json:"rent"`
	RentPeriod     RentPeriod   `json:"rent_period"`
	Furnishing     Furnishing   `json:"furnishing"`
	PropertyName   string       `json:"property_name,omitempty"`
	Floor          string       `json:"floor,omitempty"`
	Location       string       `json:"location"`
	FullAddress    string       `json:"full_address"`
	Amenities      []string     `json:"amenities"`
	Contact        Contact      `json:"contact"`
	AvailableSince time.Time    `json:"available_since"`
	SourceURL      string       `json:"source_url,omitempty"`
	Description    string       `json:"description,omitempty"`
	Confidence     float64      `json:"confidence"`
}

// PricePerSqft returns the annual rent per square foot, or 0 when size is unknown
func (l *RentalListing) PricePerSqft() float64 {
	if l.SizeSqft <= 0 {
		return 0
	}
	return l.Rent / l.SizeSqft
}

// BuildFullAddress derives the full address from property name, floor and location
func (l *RentalListing) BuildFullAddress() string {
	var parts []string
	if name := strings.TrimSpace(l.PropertyName); name != "" {
		parts = append(parts, name)
	}
	if floor := strings.TrimSpace(l.Floor); floor != "" {
		if _, err := parseIntLoose(floor); err == nil {
			floor = "Floor " + floor
		}
		parts = append(parts, floor)
	}
	if loc := strings.TrimSpace(l.Location); loc != "" {
		parts = append(parts, loc)
	}
	return strings.Join(parts, ", ")
}

// AppendNote adds a line to the description, used to flag values that were not read from the source
func (l *RentalListing) AppendNote(note string) {
	desc := strings.TrimSpace(l.Description)
	if desc == "" {
		l.Description = note
		return
	}
	l.Description = desc + "\n" + note
}

// Clone returns a copy that shares no slices with the original
func (l RentalListing) Clone() RentalListing {
	if l.Amenities != nil {
		l.Amenities = append([]string(nil), l.Amenities...)
	}
	return l
}

// AnnualRent converts an advertised amount to AED per year
func AnnualRent(amount float64, period RentPeriod) float64 {
	switch period {
	case Monthly:
		return amount * 12
	case Weekly:
		return amount * 52
	case Daily:
		return amount * 365
	default:
		return amount
	}
}

// SqmToSqft converts square meters to square feet
func SqmToSqft(sqm float64) float64 {
	return math.Round(sqm*10.7639*100) / 100
}

// NormalizeLocation returns the comparison key for a free-text area name
func NormalizeLocation(location string) string {
	return strings.ToLower(strings.Join(strings.Fields(location), " "))
}

// UniqueStrings removes blanks and duplicates while keeping order
func UniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// ParsePropertyType maps upstream type labels onto the canonical enum.
// Unknown labels map to Apartment.
func ParsePropertyType(s string) PropertyType {
	switch k := strings.ToLower(strings.TrimSpace(s)); {
	case strings.Contains(k, "penthouse"):
		return Penthouse
	case strings.Contains(k, "villa"):
		return Villa
	case strings.Contains(k, "townhouse"), strings.Contains(k, "town house"):
		return Townhouse
	case strings.Contains(k, "studio"):
		return Studio
	case strings.Contains(k, "office"):
		return Office
	case strings.Contains(k, "shop"), strings.Contains(k, "retail"):
		return Shop
	case strings.Contains(k, "warehouse"):
		return Warehouse
	default:
		return Apartment
	}
}

// LookupPropertyType is the strict counterpart of ParsePropertyType
func LookupPropertyType(s string) (PropertyType, bool) {
	for _, t := range PropertyTypes {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, true
		}
	}
	return "", false
}

// ParseFurnishing maps upstream furnishing labels onto the canonical enum
func ParseFurnishing(s string) Furnishing {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer("-", "", "_", "", " ", "").Replace(k)
	switch k {
	case "furnished", "yes", "true", "fullyfurnished":
		return Furnished
	case "partlyfurnished", "partiallyfurnished", "partly", "semifurnished":
		return PartiallyFurnished
	default:
		return Unfurnished
	}
}

// LookupFurnishing is the strict counterpart of ParseFurnishing
func LookupFurnishing(s string) (Furnishing, bool) {
	k := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.TrimSpace(s)))
	switch k {
	case "furnished":
		return Furnished, true
	case "unfurnished":
		return Unfurnished, true
	case "partiallyfurnished", "partlyfurnished":
		return PartiallyFurnished, true
	}
	return "", false
}

// ParseRentPeriod maps upstream frequency labels; unknown labels are yearly
func ParseRentPeriod(s string) RentPeriod {
	switch k := strings.ToLower(strings.TrimSpace(s)); {
	case strings.HasPrefix(k, "month"), k == "mon", k == "mth", k == "pm":
		return Monthly
	case strings.HasPrefix(k, "week"), k == "wk":
		return Weekly
	case strings.HasPrefix(k, "da"), k == "night":
		return Daily
	default:
		return Yearly
	}
}
