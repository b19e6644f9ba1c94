package scraper

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"dubai-rentals/internal/models"
)

// PropertyFinder parses propertyfinder.ae search pages, which are Next.js
// pages carrying their results in __NEXT_DATA__
type PropertyFinder struct {
	baseURL string
}

// NewPropertyFinder creates the PropertyFinder source
func NewPropertyFinder() *PropertyFinder {
	return &PropertyFinder{baseURL: "https://www.propertyfinder.ae"}
}

func (s *PropertyFinder) Name() string { return "propertyfinder" }

// PropertyFinder numeric property type codes
var pfTypeCodes = map[models.PropertyType]string{
	models.Apartment: "1",
	models.Villa:     "35",
	models.Townhouse: "22",
	models.Penthouse: "20",
	models.Office:    "4",
	models.Shop:      "27",
	models.Warehouse: "13",
}

// BuildRequest builds /en/search?c=2&q=<area>&... (c=2 is residential rent)
func (s *PropertyFinder) BuildRequest(area string, filter models.RentalFilter) (Request, error) {
	q := url.Values{}
	q.Set("c", "2")
	q.Set("rp", "y")
	q.Set("ob", "mr")
	if a := strings.TrimSpace(area); a != "" {
		q.Set("q", a)
	}
	if filter.PropertyType != nil {
		if code, ok := pfTypeCodes[*filter.PropertyType]; ok {
			q.Set("t", code)
		}
	}
	if filter.Bedrooms != nil {
		q.Add("bdr[]", strconv.Itoa(*filter.Bedrooms))
	}
	if filter.RentMin != nil {
		q.Set("pf", formatAmount(*filter.RentMin))
	}
	if filter.RentMax != nil {
		q.Set("pt", formatAmount(*filter.RentMax))
	}
	if filter.SizeMin != nil {
		q.Set("af", formatAmount(*filter.SizeMin))
	}
	if filter.SizeMax != nil {
		q.Set("at", formatAmount(*filter.SizeMax))
	}
	if filter.Furnishing != nil {
		switch *filter.Furnishing {
		case models.Furnished:
			q.Set("fu", "1")
		case models.Unfurnished:
			q.Set("fu", "2")
		case models.PartiallyFurnished:
			q.Set("fu", "3")
		}
	}

	return Request{
		URL:     s.baseURL + "/en/search?" + q.Encode(),
		WaitFor: "#__NEXT_DATA__",
	}, nil
}

type pfNextData struct {
	Props struct {
		PageProps struct {
			SearchResult *struct {
				Listings []pfListing `json:"listings"`
			} `json:"searchResult"`
		} `json:"pageProps"`
	} `json:"props"`
}

type pfListing struct {
	ListingType string      `json:"listing_type"`
	Property    *pfProperty `json:"property"`
}

type pfProperty struct {
	ID           string `json:"id"`
	PropertyType string `json:"property_type"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Price        struct {
		Value    float64 `json:"value"`
		Period   string  `json:"period"`
		Currency string  `json:"currency"`
	} `json:"price"`
	Bedrooms  json.RawMessage `json:"bedrooms"` // "studio", "2" or 2
	Bathrooms json.RawMessage `json:"bathrooms"`
	Size      struct {
		Value float64 `json:"value"`
		Unit  string  `json:"unit"`
	} `json:"size"`
	Location struct {
		Name     string `json:"name"`
		FullName string `json:"full_name"`
	} `json:"location"`
	Furnished    string   `json:"furnished"`
	AmenityNames []string `json:"amenity_names"`
	Agent        struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"agent"`
	ContactOptions []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"contact_options"`
	ListedDate string `json:"listed_date"`
	ShareURL   string `json:"share_url"`
}

var pfNextDataPattern = regexp.MustCompile(`(?s)<script id="__NEXT_DATA__"[^>]*>(.+?)</script>`)

// Parse reads props.pageProps.searchResult.listings[].property
func (s *PropertyFinder) Parse(raw []byte, area string) (Parsed, error) {
	m := pfNextDataPattern.FindSubmatch(raw)
	if len(m) < 2 {
		return Parsed{}, parseFailed("propertyfinder page has no __NEXT_DATA__")
	}

	var data pfNextData
	if err := json.Unmarshal(m[1], &data); err != nil {
		return Parsed{}, parseFailed("propertyfinder __NEXT_DATA__: %v", err)
	}
	if data.Props.PageProps.SearchResult == nil {
		return Parsed{}, parseFailed("propertyfinder __NEXT_DATA__ has no searchResult")
	}

	var p Parsed
	for _, item := range data.Props.PageProps.SearchResult.Listings {
		// project and ad slots are not listings
		if item.ListingType != "" && item.ListingType != "property" {
			continue
		}
		if item.Property == nil {
			p.Skipped++
			continue
		}
		l, ok := s.convert(item.Property, area)
		if !ok {
			p.Skipped++
			continue
		}
		p.Listings = append(p.Listings, l)
	}
	return p, nil
}

func (s *PropertyFinder) convert(prop *pfProperty, area string) (models.RentalListing, bool) {
	if prop.Price.Value <= 0 {
		return models.RentalListing{}, false
	}
	if prop.Price.Currency != "" && !strings.EqualFold(prop.Price.Currency, "AED") {
		return models.RentalListing{}, false
	}

	beds, ok := pfCount(prop.Bedrooms)
	if !ok {
		return models.RentalListing{}, false
	}
	baths, _ := pfCount(prop.Bathrooms)

	period := models.ParseRentPeriod(prop.Price.Period)
	l := models.RentalListing{
		Source:       s.Name(),
		Origin:       models.OriginLive,
		PropertyType: models.ParsePropertyType(prop.PropertyType),
		Bedrooms:     beds,
		Bathrooms:    baths,
		SizeSqft:     prop.Size.Value,
		Rent:         models.AnnualRent(prop.Price.Value, period),
		RentPeriod:   period,
		Furnishing:   models.ParseFurnishing(prop.Furnished),
		Amenities:    prop.AmenityNames,
		Description:  strings.TrimSpace(prop.Title),
		SourceURL:    prop.ShareURL,
		Contact: models.Contact{
			Name:  prop.Agent.Name,
			Email: prop.Agent.Email,
		},
	}
	if prop.ID != "" {
		l.ID = "pf-" + prop.ID
	}
	if strings.EqualFold(prop.Size.Unit, "sqm") {
		l.SizeSqft = models.SqmToSqft(prop.Size.Value)
	}
	for _, c := range prop.ContactOptions {
		if c.Type == "phone" && l.Contact.Phone == "" {
			l.Contact.Phone = c.Value
		}
		if c.Type == "email" && l.Contact.Email == "" {
			l.Contact.Email = c.Value
		}
	}

	// full_name is "Building, Community, City"
	parts := strings.Split(prop.Location.FullName, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch {
	case len(parts) >= 3:
		l.PropertyName = parts[0]
		l.Location = parts[len(parts)-2]
	case len(parts) == 2:
		l.Location = parts[0]
	default:
		l.Location = firstNonEmpty(prop.Location.Name, area)
	}

	if t, err := time.Parse(time.RFC3339, prop.ListedDate); err == nil {
		l.AvailableSince = t
	}
	l.FullAddress = l.BuildFullAddress()
	return l, true
}

// pfCount decodes counts published either as numbers or as strings like "studio" or "7+"
func pfCount(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	if strings.EqualFold(strings.TrimSpace(s), "studio") {
		return 0, true
	}
	return leadingInt(s)
}
