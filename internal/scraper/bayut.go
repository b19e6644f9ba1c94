package scraper

import (
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"dubai-rentals/internal/models"
)

// Bayut parses bayut.com rental search pages
type Bayut struct {
	baseURL string
}

// NewBayut creates the Bayut source
func NewBayut() *Bayut {
	return &Bayut{baseURL: "https://www.bayut.com"}
}

func (s *Bayut) Name() string { return "bayut" }

// BuildRequest builds the search URL, e.g. /to-rent/apartments/dubai/dubai-marina/?beds_in=2
func (s *Bayut) BuildRequest(area string, filter models.RentalFilter) (Request, error) {
	category := "property"
	if filter.PropertyType != nil {
		category = bayutCategory(*filter.PropertyType)
	}

	path := fmt.Sprintf("%s/to-rent/%s/dubai/", s.baseURL, category)
	if slug := slugify(area); slug != "" {
		path += slug + "/"
	}

	q := url.Values{}
	if filter.Bedrooms != nil {
		q.Set("beds_in", strconv.Itoa(*filter.Bedrooms))
	}
	if filter.RentMin != nil {
		q.Set("price_min", formatAmount(*filter.RentMin))
	}
	if filter.RentMax != nil {
		q.Set("price_max", formatAmount(*filter.RentMax))
	}
	if filter.SizeMin != nil {
		q.Set("area_min", formatAmount(*filter.SizeMin))
	}
	if filter.SizeMax != nil {
		q.Set("area_max", formatAmount(*filter.SizeMax))
	}
	if filter.Furnishing != nil {
		switch *filter.Furnishing {
		case models.Furnished:
			q.Set("furnishing_status", "furnished")
		case models.Unfurnished:
			q.Set("furnishing_status", "unfurnished")
		}
	}
	q.Set("rent_frequency", "yearly")

	return Request{
		URL:      path + "?" + q.Encode(),
		RenderJS: true,
		WaitFor:  "article",
	}, nil
}

type bayutState struct {
	Algolia struct {
		Content struct {
			Hits []bayutHit `json:"hits"`
		} `json:"content"`
	} `json:"algolia"`
}

type bayutHit struct {
	ExternalID      string   `json:"externalID"`
	Title           string   `json:"title"`
	Price           float64  `json:"price"`
	RentFrequency   string   `json:"rentFrequency"`
	Rooms           *int     `json:"rooms"`
	Baths           int      `json:"baths"`
	Area            float64  `json:"area"` // square metres
	FurnishingState string   `json:"furnishingStatus"`
	FloorNumber     *int     `json:"floorNumber"`
	Amenities       []string `json:"amenities"`
	ContactName     string   `json:"contactName"`
	Agency          struct {
		Name string `json:"name"`
	} `json:"agency"`
	PhoneNumber struct {
		Mobile string `json:"mobile"`
		Phone  string `json:"phone"`
	} `json:"phoneNumber"`
	Category []struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	} `json:"category"`
	Location []struct {
		Name  string `json:"name"`
		Level int    `json:"level"`
	} `json:"location"`
	CreatedAt   int64  `json:"createdAt"` // unix seconds
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

var (
	bayutStatePattern   = regexp.MustCompile(`(?s)window\.state\s*=\s*(\{.+?\});?\s*</script>`)
	bayutArticlePattern = regexp.MustCompile(`(?s)<article\b[^>]*>(.*?)</article>`)
	bayutLinkPattern    = regexp.MustCompile(`href="(/property/details-(\d+)\.html)"`)
	bayutNumberPattern  = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)

	// card fields keyed by their aria-label
	bayutAriaPatterns = ariaPatterns("Price", "Type", "Beds", "Baths", "Area", "Location", "Frequency")
)

func ariaPatterns(labels ...string) map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(labels))
	for _, label := range labels {
		m[label] = regexp.MustCompile(`aria-label="` + regexp.QuoteMeta(label) + `"[^>]*>(?:\s*<[^>]+>)*\s*([^<]+)`)
	}
	return m
}

// Parse reads the embedded window.state JSON, falling back to listing cards
func (s *Bayut) Parse(raw []byte, area string) (Parsed, error) {
	body := string(raw)

	var stateErr error
	if m := bayutStatePattern.FindStringSubmatch(body); len(m) >= 2 {
		var state bayutState
		if err := json.Unmarshal([]byte(m[1]), &state); err != nil {
			stateErr = err
		} else if hits := state.Algolia.Content.Hits; hits != nil {
			return s.fromHits(hits), nil
		}
	}

	articles := bayutArticlePattern.FindAllStringSubmatch(body, -1)
	if len(articles) == 0 {
		if stateErr != nil {
			return Parsed{}, parseFailed("bayut window.state: %v", stateErr)
		}
		if strings.Contains(body, "No results found") || strings.Contains(body, "no-results") {
			return Parsed{}, nil
		}
		return Parsed{}, parseFailed("bayut page has neither window.state nor listing cards")
	}

	return s.fromCards(articles, area), nil
}

func (s *Bayut) fromHits(hits []bayutHit) Parsed {
	var p Parsed
	for _, h := range hits {
		if h.ExternalID == "" || h.Price <= 0 || h.Rooms == nil {
			p.Skipped++
			continue
		}

		period := models.ParseRentPeriod(h.RentFrequency)
		l := models.RentalListing{
			ID:           "bayut-" + h.ExternalID,
			Source:       s.Name(),
			Origin:       models.OriginLive,
			PropertyType: models.Apartment,
			Bedrooms:     *h.Rooms,
			Bathrooms:    h.Baths,
			SizeSqft:     models.SqmToSqft(h.Area),
			Rent:         models.AnnualRent(h.Price, period),
			RentPeriod:   period,
			Furnishing:   models.ParseFurnishing(h.FurnishingState),
			Amenities:    h.Amenities,
			Description:  strings.TrimSpace(h.Title),
			Contact: models.Contact{
				Name:  firstNonEmpty(h.ContactName, h.Agency.Name),
				Phone: firstNonEmpty(h.PhoneNumber.Mobile, h.PhoneNumber.Phone),
			},
		}
		if len(h.Category) > 0 {
			l.PropertyType = models.ParsePropertyType(h.Category[len(h.Category)-1].Name)
		}
		if *h.Rooms == 0 && l.PropertyType == models.Apartment {
			l.PropertyType = models.Studio
		}
		if h.FloorNumber != nil {
			l.Floor = strconv.Itoa(*h.FloorNumber)
		}

		// location chain: UAE > Dubai > community > sub-community > building
		if n := len(h.Location); n >= 3 {
			l.Location = h.Location[2].Name
			if n >= 4 {
				l.PropertyName = h.Location[n-1].Name
			}
		} else if n > 0 {
			l.Location = h.Location[n-1].Name
		}

		if h.CreatedAt > 0 {
			l.AvailableSince = time.Unix(h.CreatedAt, 0).UTC()
		}
		if h.ExternalID != "" {
			l.SourceURL = fmt.Sprintf("%s/property/details-%s.html", s.baseURL, h.ExternalID)
		}
		l.FullAddress = l.BuildFullAddress()
		p.Listings = append(p.Listings, l)
	}
	return p
}

// fromCards extracts listings from <article> cards using their aria-label fields
func (s *Bayut) fromCards(articles [][]string, area string) Parsed {
	var p Parsed
	for _, a := range articles {
		card := a[1]

		price := bayutNumber(ariaValue(card, "Price"))
		if price <= 0 {
			p.Skipped++
			continue
		}

		l := models.RentalListing{
			Source:       s.Name(),
			Origin:       models.OriginLive,
			PropertyType: models.ParsePropertyType(ariaValue(card, "Type")),
			Bathrooms:    int(bayutNumber(ariaValue(card, "Baths"))),
			Location:     ariaValue(card, "Location"),
			RentPeriod:   models.ParseRentPeriod(ariaValue(card, "Frequency")),
		}
		l.Rent = models.AnnualRent(price, l.RentPeriod)

		beds := ariaValue(card, "Beds")
		if strings.EqualFold(beds, "studio") {
			l.Bedrooms = 0
			l.PropertyType = models.Studio
		} else if beds == "" {
			p.Skipped++
			continue
		} else {
			l.Bedrooms = int(bayutNumber(beds))
		}

		size := ariaValue(card, "Area")
		l.SizeSqft = bayutNumber(size)
		if strings.Contains(strings.ToLower(size), "sqm") {
			l.SizeSqft = models.SqmToSqft(l.SizeSqft)
		}

		// "Marina Gate 1, Dubai Marina, Dubai"
		if parts := strings.Split(l.Location, ","); len(parts) >= 2 {
			l.PropertyName = strings.TrimSpace(parts[0])
			l.Location = strings.TrimSpace(parts[1])
		}
		if l.Location == "" {
			l.Location = area
		}

		if m := bayutLinkPattern.FindStringSubmatch(card); len(m) >= 3 {
			l.ID = "bayut-" + m[2]
			l.SourceURL = s.baseURL + m[1]
		}
		l.FullAddress = l.BuildFullAddress()
		p.Listings = append(p.Listings, l)
	}
	return p
}

// ariaValue returns the text of the first element labelled aria-label="label"
func ariaValue(card, label string) string {
	re, ok := bayutAriaPatterns[label]
	if !ok {
		return ""
	}
	m := re.FindStringSubmatch(card)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(m[1]))
}

func bayutNumber(s string) float64 {
	m := bayutNumberPattern.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

func bayutCategory(t models.PropertyType) string {
	switch t {
	case models.Villa:
		return "villas"
	case models.Townhouse:
		return "townhouses"
	case models.Penthouse:
		return "penthouse"
	case models.Office:
		return "offices"
	case models.Shop:
		return "shops"
	case models.Warehouse:
		return "warehouses"
	default:
		return "apartments"
	}
}
