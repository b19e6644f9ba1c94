package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawFilter is a rental filter as received from a caller, every field string-encoded.
// Empty fields mean "no constraint".
type RawFilter struct {
	PropertyType string `json:"propertyType,omitempty"`
	Bedrooms     string `json:"bedrooms,omitempty"`
	SizeMin      string `json:"sizeMin,omitempty"`
	SizeMax      string `json:"sizeMax,omitempty"`
	RentMin      string `json:"rentMin,omitempty"`
	RentMax      string `json:"rentMax,omitempty"`
	Furnishing   string `json:"furnishing,omitempty"`
}

// RentalFilter is the validated, typed form of RawFilter
type RentalFilter struct {
	PropertyType *PropertyType `json:"property_type,omitempty"`
	Bedrooms     *int          `json:"bedrooms,omitempty"`
	SizeMin      *float64      `json:"size_min,omitempty"`
	SizeMax      *float64      `json:"size_max,omitempty"`
	RentMin      *float64      `json:"rent_min,omitempty"`
	RentMax      *float64      `json:"rent_max,omitempty"`
	Furnishing   *Furnishing   `json:"furnishing,omitempty"`
}

// FilterError reports a malformed filter field
type FilterError struct {
	Field string
	Value string
	Err   error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid filter %s=%q: %v", e.Field, e.Value, e.Err)
}

func (e *FilterError) Unwrap() error { return e.Err }

// Parse validates the raw fields and returns the typed filter
func (r RawFilter) Parse() (RentalFilter, error) {
	var f RentalFilter

	if v := strings.TrimSpace(r.PropertyType); v != "" && !strings.EqualFold(v, "any") {
		t, ok := LookupPropertyType(v)
		if !ok {
			return f, &FilterError{Field: "propertyType", Value: v, Err: fmt.Errorf("unknown property type")}
		}
		f.PropertyType = &t
	}

	if v := strings.TrimSpace(r.Bedrooms); v != "" && !strings.EqualFold(v, "any") {
		var beds int
		if strings.EqualFold(v, "studio") {
			beds = 0
		} else {
			n, err := parseIntLoose(v)
			if err != nil {
				return f, &FilterError{Field: "bedrooms", Value: v, Err: err}
			}
			if n < 0 {
				return f, &FilterError{Field: "bedrooms", Value: v, Err: fmt.Errorf("must not be negative")}
			}
			beds = n
		}
		f.Bedrooms = &beds
	}

	var err error
	if f.SizeMin, err = parseAmount("sizeMin", r.SizeMin); err != nil {
		return f, err
	}
	if f.SizeMax, err = parseAmount("sizeMax", r.SizeMax); err != nil {
		return f, err
	}
	if f.RentMin, err = parseAmount("rentMin", r.RentMin); err != nil {
		return f, err
	}
	if f.RentMax, err = parseAmount("rentMax", r.RentMax); err != nil {
		return f, err
	}
	if f.SizeMin != nil && f.SizeMax != nil && *f.SizeMin > *f.SizeMax {
		return f, &FilterError{Field: "sizeMin", Value: r.SizeMin, Err: fmt.Errorf("exceeds sizeMax %s", r.SizeMax)}
	}
	if f.RentMin != nil && f.RentMax != nil && *f.RentMin > *f.RentMax {
		return f, &FilterError{Field: "rentMin", Value: r.RentMin, Err: fmt.Errorf("exceeds rentMax %s", r.RentMax)}
	}

	if v := strings.TrimSpace(r.Furnishing); v != "" && !strings.EqualFold(v, "any") {
		fs, ok := LookupFurnishing(v)
		if !ok {
			return f, &FilterError{Field: "furnishing", Value: v, Err: fmt.Errorf("unknown furnishing status")}
		}
		f.Furnishing = &fs
	}

	return f, nil
}

// Matches reports whether a listing satisfies every constraint of the filter
func (f RentalFilter) Matches(l *RentalListing) bool {
	if f.PropertyType != nil && l.PropertyType != *f.PropertyType {
		return false
	}
	if f.Bedrooms != nil && l.Bedrooms != *f.Bedrooms {
		return false
	}
	if f.SizeMin != nil && l.SizeSqft < *f.SizeMin {
		return false
	}
	if f.SizeMax != nil && l.SizeSqft > *f.SizeMax {
		return false
	}
	if f.RentMin != nil && l.Rent < *f.RentMin {
		return false
	}
	if f.RentMax != nil && l.Rent > *f.RentMax {
		return false
	}
	if f.Furnishing != nil && l.Furnishing != *f.Furnishing {
		return false
	}
	return true
}

// IsEmpty reports whether the filter has no constraints
func (f RentalFilter) IsEmpty() bool {
	return f.PropertyType == nil && f.Bedrooms == nil &&
		f.SizeMin == nil && f.SizeMax == nil &&
		f.RentMin == nil && f.RentMax == nil &&
		f.Furnishing == nil
}

func parseAmount(field, raw string) (*float64, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, nil
	}
	clean := strings.NewReplacer(",", "", "AED", "", "aed", "", " ", "").Replace(v)
	n, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return nil, &FilterError{Field: field, Value: v, Err: fmt.Errorf("not a number")}
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, &FilterError{Field: field, Value: v, Err: fmt.Errorf("must be a finite number")}
	}
	if n < 0 {
		return nil, &FilterError{Field: field, Value: v, Err: fmt.Errorf("must not be negative")}
	}
	return &n, nil
}

// parseIntLoose accepts "2", " 2 ", "2+" and "2.0"
func parseIntLoose(s string) (int, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "+")
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("not an integer")
	}
	return int(f), nil
}
