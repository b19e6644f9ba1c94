package scraper

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"dubai-rentals/internal/models"
)

func mustFilter(t *testing.T, raw models.RawFilter) models.RentalFilter {
	t.Helper()
	f, err := raw.Parse()
	if err != nil {
		t.Fatalf("parsing filter: %v", err)
	}
	return f
}

const bayutStatePage = `<html><head><script>window.state = {"algolia":{"content":{"hits":[
{"externalID":"123","title":"Sea view 2BR","price":120000,"rentFrequency":"yearly","rooms":2,"baths":2,"area":102.19,
 "furnishingStatus":"furnished","floorNumber":12,"amenities":["Pool","Gym"],"contactName":"Ahmed",
 "phoneNumber":{"mobile":"+971501234567"},
 "category":[{"name":"Residential","slug":"residential"},{"name":"Apartments","slug":"apartments"}],
 "location":[{"name":"UAE","level":0},{"name":"Dubai","level":1},{"name":"Dubai Marina","level":2},{"name":"Marina Gate","level":3},{"name":"Marina Gate 1","level":4}],
 "createdAt":1700000000},
{"externalID":"124","price":0}
]}}};</script></head><body></body></html>`

const bayutCardPage = `<html><body><ul>
<li><article class="ca2f5674"><a href="/property/details-555.html" title="listing"></a>
<span aria-label="Price">85,000</span>
<span aria-label="Frequency">Yearly</span>
<span aria-label="Beds">Studio</span>
<span aria-label="Baths">1</span>
<span aria-label="Area"><span>450 sqft</span></span>
<div aria-label="Location">Bay Central, Dubai Marina, Dubai</div>
<span aria-label="Type">Apartment</span>
</article></li>
<li><article class="ca2f5674"><span aria-label="Beds">2</span></article></li>
</ul></body></html>`

func TestBayutBuildRequest(t *testing.T) {
	f := mustFilter(t, models.RawFilter{Bedrooms: "2", RentMax: "150000", PropertyType: "Apartment"})
	req, err := NewBayut().BuildRequest("Dubai Marina", f)
	if err != nil {
		t.Fatal(err)
	}
	want := "https://www.bayut.com/to-rent/apartments/dubai/dubai-marina/?beds_in=2&price_max=150000&rent_frequency=yearly"
	if req.URL != want {
		t.Errorf("URL = %s\nwant  %s", req.URL, want)
	}
	if !req.RenderJS || req.WaitFor != "article" {
		t.Errorf("rendering hints not set: %+v", req)
	}
}

func TestBayutParseState(t *testing.T) {
	p, err := NewBayut().Parse([]byte(bayutStatePage), "Dubai Marina")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Listings) != 1 || p.Skipped != 1 {
		t.Fatalf("got %d listings, %d skipped; want 1, 1", len(p.Listings), p.Skipped)
	}

	l := p.Listings[0]
	if l.ID != "bayut-123" || l.Rent != 120000 || l.Bedrooms != 2 || l.Bathrooms != 2 {
		t.Errorf("unexpected listing %+v", l)
	}
	if l.SizeSqft < 1090 || l.SizeSqft > 1110 {
		t.Errorf("size %v was not converted from square metres", l.SizeSqft)
	}
	if l.Location != "Dubai Marina" || l.PropertyName != "Marina Gate 1" || l.Floor != "12" {
		t.Errorf("location fields = %q, %q, %q", l.Location, l.PropertyName, l.Floor)
	}
	if l.Furnishing != models.Furnished || l.PropertyType != models.Apartment {
		t.Errorf("furnishing %s, type %s", l.Furnishing, l.PropertyType)
	}
	if l.Contact.Phone != "+971501234567" {
		t.Errorf("phone = %q", l.Contact.Phone)
	}
	if l.FullAddress != "Marina Gate 1, Floor 12, Dubai Marina" {
		t.Errorf("FullAddress = %q", l.FullAddress)
	}
	if l.SourceURL != "https://www.bayut.com/property/details-123.html" {
		t.Errorf("SourceURL = %q", l.SourceURL)
	}
}

func TestBayutParseCards(t *testing.T) {
	p, err := NewBayut().Parse([]byte(bayutCardPage), "Dubai Marina")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Listings) != 1 || p.Skipped != 1 {
		t.Fatalf("got %d listings, %d skipped; want 1, 1", len(p.Listings), p.Skipped)
	}

	l := p.Listings[0]
	if l.ID != "bayut-555" || l.Rent != 85000 || l.Bedrooms != 0 || l.PropertyType != models.Studio {
		t.Errorf("unexpected listing %+v", l)
	}
	if l.SizeSqft != 450 || l.Bathrooms != 1 {
		t.Errorf("size %v, baths %d", l.SizeSqft, l.Bathrooms)
	}
	if l.PropertyName != "Bay Central" || l.Location != "Dubai Marina" {
		t.Errorf("name %q, location %q", l.PropertyName, l.Location)
	}
}

func TestAriaValue(t *testing.T) {
	card := `<span aria-label="Price"><b>85,000</b></span><span aria-label="Beds">Studio</span>` +
		`<div aria-label="Area"><span>450 sqft</span></div>`

	tests := []struct {
		label string
		want  string
	}{
		{"Price", "85,000"},
		{"Beds", "Studio"},
		{"Area", "450 sqft"},
		{"Baths", ""},
		{"Unlisted", ""},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := ariaValue(card, tt.label); got != tt.want {
				t.Errorf("ariaValue(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}

	for _, label := range []string{"Price", "Type", "Beds", "Baths", "Area", "Location", "Frequency"} {
		if bayutAriaPatterns[label] == nil {
			t.Errorf("no compiled pattern for %q", label)
		}
	}
}

func TestBayutParseEmptyAndBroken(t *testing.T) {
	p, err := NewBayut().Parse([]byte(`<html><div class="no-results">No results found</div></html>`), "JLT")
	if err != nil || len(p.Listings) != 0 {
		t.Errorf("empty page: %d listings, err %v", len(p.Listings), err)
	}

	if _, err := NewBayut().Parse([]byte(`<html>captcha</html>`), "JLT"); !errors.Is(err, ErrParseFailed) {
		t.Errorf("got %v, want ErrParseFailed", err)
	}

	broken := `<script>window.state = {"algolia": {broken};</script>`
	if _, err := NewBayut().Parse([]byte(broken), "JLT"); !errors.Is(err, ErrParseFailed) {
		t.Errorf("got %v, want ErrParseFailed", err)
	}
}

const pfPage = `<html><body><script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"searchResult":{"listings":[
{"listing_type":"property","property":{"id":"9001","property_type":"Apartment","title":"Bright 1BR",
 "price":{"value":8000,"period":"monthly","currency":"AED"},"bedrooms":"1","bathrooms":2,
 "size":{"value":800,"unit":"sqft"},
 "location":{"name":"JLT","full_name":"Cluster D, Jumeirah Lake Towers, Dubai"},
 "furnished":"YES","amenity_names":["Gym"],"agent":{"name":"Sara"},
 "contact_options":[{"type":"phone","value":"+97141234567"}],
 "listed_date":"2024-05-01T10:00:00Z","share_url":"https://www.propertyfinder.ae/en/plp/9001"}},
{"listing_type":"project","property":null},
{"listing_type":"property","property":{"id":"9002","price":{"value":0}}},
{"listing_type":"property","property":{"id":"9003","property_type":"Apartment","price":{"value":50000,"period":"yearly"},
 "bedrooms":"studio","size":{"value":40,"unit":"sqm"},"location":{"name":"Deira","full_name":"Deira, Dubai"}}}
]}}}}</script></body></html>`

func TestPropertyFinderBuildRequest(t *testing.T) {
	f := mustFilter(t, models.RawFilter{Bedrooms: "1", Furnishing: "furnished", PropertyType: "Villa"})
	req, err := NewPropertyFinder().BuildRequest("Arabian Ranches", f)
	if err != nil {
		t.Fatal(err)
	}
	for _, part := range []string{"c=2", "q=Arabian+Ranches", "t=35", "bdr%5B%5D=1", "fu=1", "rp=y"} {
		if !strings.Contains(req.URL, part) {
			t.Errorf("URL %s is missing %s", req.URL, part)
		}
	}
}

func TestPropertyFinderParse(t *testing.T) {
	p, err := NewPropertyFinder().Parse([]byte(pfPage), "JLT")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Listings) != 2 || p.Skipped != 1 {
		t.Fatalf("got %d listings, %d skipped; want 2, 1", len(p.Listings), p.Skipped)
	}

	l := p.Listings[0]
	if l.ID != "pf-9001" || l.Rent != 96000 || l.RentPeriod != models.Monthly {
		t.Errorf("rent not annualised: %+v", l)
	}
	if l.Bedrooms != 1 || l.Bathrooms != 2 || l.SizeSqft != 800 {
		t.Errorf("beds %d baths %d size %v", l.Bedrooms, l.Bathrooms, l.SizeSqft)
	}
	if l.Location != "Jumeirah Lake Towers" || l.PropertyName != "Cluster D" {
		t.Errorf("location %q, name %q", l.Location, l.PropertyName)
	}
	if l.Furnishing != models.Furnished || l.Contact.Phone != "+97141234567" || l.Contact.Name != "Sara" {
		t.Errorf("furnishing %s, contact %+v", l.Furnishing, l.Contact)
	}
	if !l.AvailableSince.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("AvailableSince = %v", l.AvailableSince)
	}

	studio := p.Listings[1]
	if studio.Bedrooms != 0 || studio.Location != "Deira" {
		t.Errorf("studio parsed as %+v", studio)
	}
	if studio.SizeSqft < 430 || studio.SizeSqft > 431 {
		t.Errorf("studio size %v was not converted from square metres", studio.SizeSqft)
	}
}

func TestPropertyFinderParseFailures(t *testing.T) {
	tests := map[string]string{
		"no next data":    `<html><body>Access denied</body></html>`,
		"invalid json":    `<script id="__NEXT_DATA__" type="application/json">{"props":</script>`,
		"no searchResult": `<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{}}}</script>`,
	}
	for name, page := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewPropertyFinder().Parse([]byte(page), "JLT"); !errors.Is(err, ErrParseFailed) {
				t.Errorf("got %v, want ErrParseFailed", err)
			}
		})
	}
}

const dubizzlePage = `<html><head>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"ItemList","itemListElement":[
{"@type":"ListItem","position":1,"item":{"@type":"Apartment",
 "@id":"https://dubai.dubizzle.com/property-for-rent/residential/apartmentflat/2024/5/1/abc-123/",
 "name":"2BR Marina view","numberOfBedrooms":2,"numberOfBathroomsTotal":3,
 "floorSize":{"@type":"QuantitativeValue","value":1200,"unitCode":"FTK"},
 "address":{"@type":"PostalAddress","addressLocality":"Dubai Marina","addressRegion":"Dubai"},
 "amenityFeature":[{"name":"Furnished","value":true},{"name":"Balcony","value":true},{"name":"Maid Room","value":false}],
 "offers":{"@type":"Offer","price":"130,000","priceCurrency":"AED","priceSpecification":{"unitText":"YEAR"},
  "seller":{"name":"Blue Homes","telephone":"+97145550000"}},
 "datePosted":"2024-05-01"}},
{"@type":"ListItem","position":2,"item":{"@type":"Apartment","name":"no offer"}}
]}</script>
<script type="application/ld+json">{"@type":"Organization","name":"dubizzle"}</script>
</head></html>`

func TestDubizzleParse(t *testing.T) {
	p, err := NewDubizzle().Parse([]byte(dubizzlePage), "Dubai Marina")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Listings) != 1 || p.Skipped != 1 {
		t.Fatalf("got %d listings, %d skipped; want 1, 1", len(p.Listings), p.Skipped)
	}

	l := p.Listings[0]
	if l.Rent != 130000 || l.Bedrooms != 2 || l.Bathrooms != 3 || l.SizeSqft != 1200 {
		t.Errorf("unexpected listing %+v", l)
	}
	if l.Location != "Dubai Marina" || l.Furnishing != models.Furnished {
		t.Errorf("location %q, furnishing %s", l.Location, l.Furnishing)
	}
	if len(l.Amenities) != 1 || l.Amenities[0] != "Balcony" {
		t.Errorf("amenities = %v", l.Amenities)
	}
	if l.Contact.Name != "Blue Homes" || !strings.HasPrefix(l.ID, "dubizzle-") {
		t.Errorf("contact %+v, id %q", l.Contact, l.ID)
	}
	if l.AvailableSince.IsZero() {
		t.Error("datePosted not parsed")
	}
}

func TestDubizzleParseFailures(t *testing.T) {
	if _, err := NewDubizzle().Parse([]byte(`<html></html>`), "JLT"); !errors.Is(err, ErrParseFailed) {
		t.Errorf("no JSON-LD: got %v", err)
	}
	bad := `<script type="application/ld+json">{not json}</script>`
	if _, err := NewDubizzle().Parse([]byte(bad), "JLT"); !errors.Is(err, ErrParseFailed) {
		t.Errorf("invalid JSON-LD: got %v", err)
	}
}

const dldPayload = `{"response":{"result":[
{"contract_id":"CT-1","contract_start_date":"15-03-2024","annual_amount":85000,"actual_area":75,
 "ejari_property_type_en":"Flat","ejari_property_sub_type_en":"1bed room+hall",
 "area_name_en":"AL BARSHA SOUTH FOURTH","project_name_en":"SAMANA HILLS",
 "nearest_metro_en":"Dubai Internet City","no_of_prop":1},
{"contract_id":"CT-2","annual_amount":900000,"ejari_property_sub_type_en":"Studio","no_of_prop":12},
{"contract_id":"CT-3","annual_amount":60000,"ejari_property_sub_type_en":"Office"}
],"total":3}}`

func TestDLDBuildRequest(t *testing.T) {
	if _, err := NewDLD("", "").BuildRequest("Al Barsha", models.RentalFilter{}); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("got %v, want ErrMissingCredentials", err)
	}
	if !errors.Is(ErrMissingCredentials, ErrUpstreamUnavailable) {
		t.Error("missing credentials should count as an unavailable upstream")
	}

	f := mustFilter(t, models.RawFilter{Bedrooms: "2"})
	req, err := NewDLD("k", "https://dld.test/").BuildRequest("Al Barsha", f)
	if err != nil {
		t.Fatal(err)
	}
	if req.Method != http.MethodPost || req.URL != "https://dld.test/open-data/rents" {
		t.Errorf("request %s %s", req.Method, req.URL)
	}
	if req.Headers["Authorization"] != "Bearer k" {
		t.Errorf("Authorization = %q", req.Headers["Authorization"])
	}

	var q dldQuery
	if err := json.Unmarshal(req.Body, &q); err != nil {
		t.Fatal(err)
	}
	if q.AreaName != "AL BARSHA" || q.Rooms != "2 B/R" || q.Take != 50 {
		t.Errorf("query = %+v", q)
	}
}

func TestDLDParse(t *testing.T) {
	p, err := NewDLD("k", "").Parse([]byte(dldPayload), "Al Barsha")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Listings) != 1 || p.Skipped != 2 {
		t.Fatalf("got %d listings, %d skipped; want 1, 2", len(p.Listings), p.Skipped)
	}

	l := p.Listings[0]
	if l.ID != "dld-CT-1" || l.Rent != 85000 || l.Bedrooms != 1 {
		t.Errorf("unexpected listing %+v", l)
	}
	if l.Location != "Al Barsha South Fourth" || l.PropertyName != "Samana Hills" {
		t.Errorf("location %q, name %q", l.Location, l.PropertyName)
	}
	if l.SizeSqft < 800 || l.SizeSqft > 815 {
		t.Errorf("size %v was not converted from square metres", l.SizeSqft)
	}
	if !l.AvailableSince.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("AvailableSince = %v", l.AvailableSince)
	}
	if len(l.Amenities) != 1 || l.Amenities[0] != "Near Dubai Internet City" {
		t.Errorf("amenities = %v", l.Amenities)
	}

	if _, err := NewDLD("k", "").Parse([]byte(`{"error":"unauthorised"}`), "x"); !errors.Is(err, ErrParseFailed) {
		t.Errorf("missing envelope: got %v", err)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Dubai Marina", "dubai-marina"},
		{"  Jumeirah Lake Towers (JLT) ", "jumeirah-lake-towers-jlt"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
