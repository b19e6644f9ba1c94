package scraper

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"dubai-rentals/internal/models"
)

// Dubizzle parses dubizzle.com rental pages through their schema.org JSON-LD
type Dubizzle struct {
	baseURL string
}

// NewDubizzle creates the Dubizzle source
func NewDubizzle() *Dubizzle {
	return &Dubizzle{baseURL: "https://dubai.dubizzle.com"}
}

func (s *Dubizzle) Name() string { return "dubizzle" }

// BuildRequest builds /property-for-rent/residential/<type>/<area>/?bedrooms=2
func (s *Dubizzle) BuildRequest(area string, filter models.RentalFilter) (Request, error) {
	category := "residential"
	if filter.PropertyType != nil {
		switch *filter.PropertyType {
		case models.Villa, models.Townhouse:
			category = "residential/villahouse"
		case models.Office, models.Shop, models.Warehouse:
			category = "commercial"
		default:
			category = "residential/apartmentflat"
		}
	}

	path := fmt.Sprintf("%s/property-for-rent/%s/", s.baseURL, category)
	if slug := slugify(area); slug != "" {
		path += slug + "/"
	}

	q := url.Values{}
	if filter.Bedrooms != nil {
		q.Set("bedrooms", strconv.Itoa(*filter.Bedrooms))
	}
	if filter.RentMin != nil {
		q.Set("price__gte", formatAmount(*filter.RentMin))
	}
	if filter.RentMax != nil {
		q.Set("price__lte", formatAmount(*filter.RentMax))
	}
	if filter.SizeMin != nil {
		q.Set("size__gte", formatAmount(*filter.SizeMin))
	}
	if filter.SizeMax != nil {
		q.Set("size__lte", formatAmount(*filter.SizeMax))
	}
	if filter.Furnishing != nil {
		q.Set("furnished", strconv.FormatBool(*filter.Furnishing == models.Furnished))
	}

	u := path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return Request{
		URL:      u,
		RenderJS: true,
		WaitFor:  `script[type="application/ld+json"]`,
	}, nil
}

var dubizzleLDPattern = regexp.MustCompile(`(?s)<script[^>]*type="application/ld\+json"[^>]*>(.+?)</script>`)

// residence types that represent rentable units
var dubizzleResidenceTypes = map[string]bool{
	"Apartment":             true,
	"House":                 true,
	"SingleFamilyResidence": true,
	"Residence":             true,
	"Accommodation":         true,
	"Room":                  true,
	"Suite":                 true,
}

// Parse walks every JSON-LD block, unwrapping ItemList and @graph containers
func (s *Dubizzle) Parse(raw []byte, area string) (Parsed, error) {
	blocks := dubizzleLDPattern.FindAllSubmatch(raw, -1)
	if len(blocks) == 0 {
		return Parsed{}, parseFailed("dubizzle page has no JSON-LD")
	}

	var p Parsed
	decoded := 0
	for _, b := range blocks {
		var data interface{}
		if err := json.Unmarshal(b[1], &data); err != nil {
			continue
		}
		decoded++
		for _, item := range flattenLD(data) {
			if !dubizzleResidenceTypes[ldType(item)] {
				continue
			}
			l, ok := s.convert(item, area)
			if !ok {
				p.Skipped++
				continue
			}
			p.Listings = append(p.Listings, l)
		}
	}

	if decoded == 0 {
		return Parsed{}, parseFailed("dubizzle JSON-LD blocks are not valid JSON")
	}
	return p, nil
}

// flattenLD returns every object nested in arrays, @graph lists and ItemList elements
func flattenLD(data interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	switch v := data.(type) {
	case []interface{}:
		for _, e := range v {
			out = append(out, flattenLD(e)...)
		}
	case map[string]interface{}:
		if graph, ok := v["@graph"]; ok {
			out = append(out, flattenLD(graph)...)
		}
		if elems, ok := v["itemListElement"]; ok {
			out = append(out, flattenLD(elems)...)
		}
		if item, ok := v["item"]; ok && ldType(v) == "ListItem" {
			out = append(out, flattenLD(item)...)
		}
		out = append(out, v)
	}
	return out
}

func ldType(m map[string]interface{}) string {
	switch t := m["@type"].(type) {
	case string:
		return t
	case []interface{}:
		for _, e := range t {
			if s, ok := e.(string); ok && dubizzleResidenceTypes[s] {
				return s
			}
		}
	}
	return ""
}

func (s *Dubizzle) convert(m map[string]interface{}, area string) (models.RentalListing, bool) {
	offers, _ := m["offers"].(map[string]interface{})
	if offers == nil {
		return models.RentalListing{}, false
	}

	price := ldNumber(offers["price"])
	unit := ""
	if spec, ok := offers["priceSpecification"].(map[string]interface{}); ok {
		if price <= 0 {
			price = ldNumber(spec["price"])
		}
		unit = ldString(spec["unitText"])
	}
	if price <= 0 {
		return models.RentalListing{}, false
	}
	if cur := ldString(offers["priceCurrency"]); cur != "" && !strings.EqualFold(cur, "AED") {
		return models.RentalListing{}, false
	}

	bedsRaw, hasBeds := m["numberOfBedrooms"]
	if !hasBeds {
		bedsRaw, hasBeds = m["numberOfRooms"]
	}
	if !hasBeds {
		return models.RentalListing{}, false
	}

	period := models.ParseRentPeriod(unit)
	l := models.RentalListing{
		Source:       s.Name(),
		Origin:       models.OriginLive,
		PropertyType: models.ParsePropertyType(ldString(m["accommodationCategory"])),
		Bedrooms:     int(ldNumber(bedsRaw)),
		Bathrooms:    int(ldNumber(m["numberOfBathroomsTotal"])),
		Rent:         models.AnnualRent(price, period),
		RentPeriod:   period,
		Furnishing:   models.Unfurnished,
		PropertyName: ldString(m["name"]),
		Description:  ldString(m["description"]),
		SourceURL:    ldString(m["url"]),
	}
	if l.PropertyType == models.Apartment {
		switch ldType(m) {
		case "House", "SingleFamilyResidence":
			l.PropertyType = models.Villa
		}
	}

	if size, ok := m["floorSize"].(map[string]interface{}); ok {
		l.SizeSqft = ldNumber(size["value"])
		// UN/CEFACT codes: FTK square foot, MTK square metre
		if code := ldString(size["unitCode"]); code == "MTK" || strings.EqualFold(ldString(size["unitText"]), "sqm") {
			l.SizeSqft = models.SqmToSqft(l.SizeSqft)
		}
	}

	if addr, ok := m["address"].(map[string]interface{}); ok {
		l.Location = firstNonEmpty(ldString(addr["addressLocality"]), ldString(addr["addressRegion"]))
		if street := ldString(addr["streetAddress"]); street != "" && l.PropertyName == "" {
			l.PropertyName = street
		}
	}
	if l.Location == "" {
		l.Location = area
	}

	if feats, ok := m["amenityFeature"].([]interface{}); ok {
		for _, f := range feats {
			fm, ok := f.(map[string]interface{})
			if !ok {
				continue
			}
			if v, ok := fm["value"].(bool); ok && !v {
				continue
			}
			name := ldString(fm["name"])
			if strings.EqualFold(name, "furnished") {
				l.Furnishing = models.Furnished
				continue
			}
			l.Amenities = append(l.Amenities, name)
		}
	}

	if seller, ok := offers["seller"].(map[string]interface{}); ok {
		l.Contact = models.Contact{
			Name:  ldString(seller["name"]),
			Phone: ldString(seller["telephone"]),
			Email: ldString(seller["email"]),
		}
	}

	if id := ldString(m["@id"]); id != "" {
		l.ID = "dubizzle-" + slugify(id)
	}
	if d := ldString(m["datePosted"]); d != "" {
		if t, err := time.Parse("2006-01-02", d); err == nil {
			l.AvailableSince = t
		} else if t, err := time.Parse(time.RFC3339, d); err == nil {
			l.AvailableSince = t
		}
	}

	l.FullAddress = l.BuildFullAddress()
	return l, true
}

func ldString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

// ldNumber accepts JSON numbers and numeric strings such as "95,000"
func ldNumber(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", ""), 64)
		if err == nil {
			return f
		}
		if strings.EqualFold(strings.TrimSpace(t), "studio") {
			return 0
		}
	case map[string]interface{}:
		// QuantitativeValue
		return ldNumber(t["value"])
	}
	return 0
}
