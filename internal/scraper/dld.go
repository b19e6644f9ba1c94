package scraper

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dubai-rentals/internal/models"
)

// DLD reads registered rent contracts (Ejari) from the Dubai Land Department
// open data API. Contracts carry annual amounts and areas in square metres.
type DLD struct {
	apiKey   string
	baseURL  string
	pageSize int
}

// NewDLD creates the DLD source. An empty apiKey makes every request fail
// with ErrMissingCredentials.
func NewDLD(apiKey, baseURL string) *DLD {
	if baseURL == "" {
		baseURL = "https://gateway.dubailand.gov.ae"
	}
	return &DLD{
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: 50,
	}
}

func (s *DLD) Name() string { return "dld" }

// dldQuery is the request body for the rent contracts endpoint
type dldQuery struct {
	AreaName     string   `json:"area_name_en,omitempty"`
	Rooms        string   `json:"rooms,omitempty"`
	PropertyType string   `json:"ejari_property_type_en,omitempty"`
	FromAmount   *float64 `json:"from_amount,omitempty"`
	ToAmount     *float64 `json:"to_amount,omitempty"`
	FromDate     string   `json:"p_from_date"`
	ToDate       string   `json:"p_to_date"`
	Take         int      `json:"take"`
	Skip         int      `json:"skip"`
}

type dldResponse struct {
	Response *struct {
		Result []dldContract `json:"result"`
		Total  int           `json:"total"`
	} `json:"response"`
}

type dldContract struct {
	ContractID      string  `json:"contract_id"`
	StartDate       string  `json:"contract_start_date"`
	AnnualAmount    float64 `json:"annual_amount"`
	ActualArea      float64 `json:"actual_area"` // square metres
	PropertyType    string  `json:"ejari_property_type_en"`
	PropertySubType string  `json:"ejari_property_sub_type_en"`
	Usage           string  `json:"property_usage_en"`
	AreaName        string  `json:"area_name_en"`
	ProjectName     string  `json:"project_name_en"`
	MasterProject   string  `json:"master_project_en"`
	NearestMetro    string  `json:"nearest_metro_en"`
	NearestLandmark string  `json:"nearest_landmark_en"`
	IsFreeHold      string  `json:"is_free_hold_en"`
	TenantType      string  `json:"tenant_type_en"`
	NumberOfUnits   int     `json:"no_of_prop"`
}

// BuildRequest builds a POST for contracts registered over the last 12 months
func (s *DLD) BuildRequest(area string, filter models.RentalFilter) (Request, error) {
	if s.apiKey == "" {
		return Request{}, ErrMissingCredentials
	}

	now := time.Now()
	q := dldQuery{
		AreaName:   strings.ToUpper(strings.TrimSpace(area)),
		FromAmount: filter.RentMin,
		ToAmount:   filter.RentMax,
		FromDate:   now.AddDate(-1, 0, 0).Format("01/02/2006"),
		ToDate:     now.Format("01/02/2006"),
		Take:       s.pageSize,
	}
	if filter.Bedrooms != nil {
		q.Rooms = dldRooms(*filter.Bedrooms)
	}
	if filter.PropertyType != nil {
		switch *filter.PropertyType {
		case models.Villa, models.Townhouse:
			q.PropertyType = "Villa"
		case models.Office:
			q.PropertyType = "Office"
		case models.Shop:
			q.PropertyType = "Shop"
		case models.Warehouse:
			q.PropertyType = "Warehouse"
		default:
			q.PropertyType = "Flat"
		}
	}

	body, err := json.Marshal(q)
	if err != nil {
		return Request{}, fmt.Errorf("encoding query: %w", err)
	}

	return Request{
		Method: "POST",
		URL:    s.baseURL + "/open-data/rents",
		Body:   body,
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Accept":        "application/json",
			"Authorization": "Bearer " + s.apiKey,
		},
	}, nil
}

// Parse maps contract records to listings
func (s *DLD) Parse(raw []byte, area string) (Parsed, error) {
	var resp dldResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Parsed{}, parseFailed("dld response: %v", err)
	}
	if resp.Response == nil {
		return Parsed{}, parseFailed("dld response has no result envelope")
	}

	var p Parsed
	for _, c := range resp.Response.Result {
		l, ok := s.convert(c, area)
		if !ok {
			p.Skipped++
			continue
		}
		p.Listings = append(p.Listings, l)
	}
	return p, nil
}

func (s *DLD) convert(c dldContract, area string) (models.RentalListing, bool) {
	if c.AnnualAmount <= 0 || c.ContractID == "" {
		return models.RentalListing{}, false
	}
	// Multi-unit contracts (whole buildings) do not describe a single unit
	if c.NumberOfUnits > 1 {
		return models.RentalListing{}, false
	}

	beds, ok := dldBedrooms(c.PropertySubType)
	if !ok {
		return models.RentalListing{}, false
	}

	l := models.RentalListing{
		ID:           "dld-" + c.ContractID,
		Source:       s.Name(),
		Origin:       models.OriginLive,
		PropertyType: dldPropertyType(c.PropertyType, c.PropertySubType, beds),
		Bedrooms:     beds,
		Bathrooms:    max(1, beds),
		SizeSqft:     models.SqmToSqft(c.ActualArea),
		Rent:         c.AnnualAmount,
		RentPeriod:   models.Yearly,
		Furnishing:   models.Unfurnished,
		PropertyName: toTitleCase(firstNonEmpty(c.ProjectName, c.MasterProject)),
		Location:     toTitleCase(firstNonEmpty(c.AreaName, area)),
		Description:  fmt.Sprintf("Registered Ejari contract %s", c.ContractID),
	}
	if c.NearestMetro != "" {
		l.Amenities = append(l.Amenities, "Near "+toTitleCase(c.NearestMetro))
	}
	if c.NearestLandmark != "" {
		l.Amenities = append(l.Amenities, "Near "+toTitleCase(c.NearestLandmark))
	}

	for _, layout := range []string{"02-01-2006", "01/02/2006", "2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, c.StartDate); err == nil {
			l.AvailableSince = t
			break
		}
	}

	l.FullAddress = l.BuildFullAddress()
	return l, true
}

// dldBedrooms reads sub types like "Studio", "1bed Room+Hall", "3 B/R"
func dldBedrooms(subType string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(subType))
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, "studio") {
		return 0, true
	}
	return leadingInt(s)
}

func dldRooms(beds int) string {
	if beds == 0 {
		return "Studio"
	}
	return fmt.Sprintf("%d B/R", beds)
}

func dldPropertyType(kind, subType string, beds int) models.PropertyType {
	switch strings.ToLower(kind) {
	case "villa":
		if strings.Contains(strings.ToLower(subType), "town") {
			return models.Townhouse
		}
		return models.Villa
	case "flat", "unit", "":
		if beds == 0 {
			return models.Studio
		}
		if strings.Contains(strings.ToLower(subType), "penthouse") {
			return models.Penthouse
		}
		return models.Apartment
	default:
		return models.ParsePropertyType(kind)
	}
}
