package geo

import (
	"math"
	"strings"
)

// AreaProfile holds the rental statistics used to estimate missing fields
// and to synthesise fallback listings for one Dubai neighbourhood
type AreaProfile struct {
	Name           string   `json:"name"`
	Aliases        []string `json:"aliases,omitempty"`
	BaseRent       float64  `json:"base_rent"`        // AED/year for a one-bedroom unit
	StudioSqft     float64  `json:"studio_sqft"`      // size of a studio
	SqftPerBedroom float64  `json:"sqft_per_bedroom"` // added per bedroom
	Villas         bool     `json:"villas"`           // mostly villas and townhouses
	Amenities      []string `json:"amenities"`
	Buildings      []string `json:"buildings"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
}

// DistanceToDowntown returns the straight-line distance in km from the area centre
func (a AreaProfile) DistanceToDowntown() float64 {
	return DistanceToDowntown(a.Latitude, a.Longitude)
}

// Location returns the area centre
func (a AreaProfile) Location() Location {
	return Location{Name: a.Name, Latitude: a.Latitude, Longitude: a.Longitude}
}

var commonAmenities = []string{"Central A/C", "Covered Parking", "Security", "Maintenance"}

// Areas is the built-in profile table
var Areas = []AreaProfile{
	{
		Name: "Dubai Marina", Aliases: []string{"marina"},
		BaseRent: 95000, StudioSqft: 450, SqftPerBedroom: 450,
		Amenities: []string{"Swimming Pool", "Gym", "Balcony", "Marina View", "Concierge"},
		Buildings: []string{"Marina Gate", "Cayan Tower", "Princess Tower", "Marina Promenade", "Silverene"},
		Latitude:  25.0805, Longitude: 55.1403,
	},
	{
		Name: "Downtown Dubai", Aliases: []string{"downtown", "burj khalifa"},
		BaseRent: 120000, StudioSqft: 500, SqftPerBedroom: 450,
		Amenities: []string{"Swimming Pool", "Gym", "Burj Khalifa View", "Concierge", "Kids Play Area"},
		Buildings: []string{"Burj Vista", "The Address Residences", "Boulevard Point", "Act One Act Two", "29 Boulevard"},
		Latitude:  25.1972, Longitude: 55.2744,
	},
	{
		Name: "JBR", Aliases: []string{"jumeirah beach residence"},
		BaseRent: 110000, StudioSqft: 500, SqftPerBedroom: 450,
		Amenities: []string{"Beach Access", "Swimming Pool", "Gym", "Sea View", "Balcony"},
		Buildings: []string{"Sadaf", "Murjan", "Rimal", "Bahar", "Shams"},
		Latitude:  25.0780, Longitude: 55.1330,
	},
	{
		Name: "Business Bay", Aliases: []string{"bay"},
		BaseRent: 85000, StudioSqft: 450, SqftPerBedroom: 430,
		Amenities: []string{"Swimming Pool", "Gym", "Canal View", "Concierge"},
		Buildings: []string{"Executive Towers", "Damac Maison", "Paramount Tower", "Merano Tower", "Vera Residences"},
		Latitude:  25.1851, Longitude: 55.2650,
	},
	{
		Name: "JLT", Aliases: []string{"jumeirah lake towers", "jumeirah lakes towers"},
		BaseRent: 75000, StudioSqft: 450, SqftPerBedroom: 420,
		Amenities: []string{"Swimming Pool", "Gym", "Lake View", "Metro Access"},
		Buildings: []string{"Lake Terrace", "Goldcrest Views", "Icon Tower", "Concorde Tower", "Saba Tower"},
		Latitude:  25.0693, Longitude: 55.1417,
	},
	{
		Name: "Palm Jumeirah", Aliases: []string{"palm", "the palm"},
		BaseRent: 200000, StudioSqft: 600, SqftPerBedroom: 600,
		Amenities: []string{"Private Beach", "Swimming Pool", "Gym", "Sea View", "Concierge", "Private Garden"},
		Buildings: []string{"Shoreline Apartments", "Tiara Residences", "Oceana", "Golden Mile", "Frond Villas"},
		Latitude:  25.1124, Longitude: 55.1390,
	},
	{
		Name: "Dubai Hills Estate", Aliases: []string{"dubai hills"},
		BaseRent: 105000, StudioSqft: 500, SqftPerBedroom: 500,
		Amenities: []string{"Swimming Pool", "Gym", "Park View", "Golf Course", "Kids Play Area"},
		Buildings: []string{"Park Heights", "Mulberry", "Collective", "Acacia", "Maple Townhouses"},
		Latitude:  25.1030, Longitude: 55.2430,
	},
	{
		Name: "Arabian Ranches", Aliases: []string{"ranches"}, Villas: true,
		BaseRent: 110000, StudioSqft: 700, SqftPerBedroom: 650,
		Amenities: []string{"Private Garden", "Private Pool", "Community Pool", "Golf Course", "Maid Room"},
		Buildings: []string{"Saheel", "Alvorada", "Mirador", "Palmera", "Savannah"},
		Latitude:  25.0550, Longitude: 55.2680,
	},
	{
		Name: "JVC", Aliases: []string{"jumeirah village circle"},
		BaseRent: 60000, StudioSqft: 420, SqftPerBedroom: 400,
		Amenities: []string{"Swimming Pool", "Gym", "Balcony", "Kids Play Area"},
		Buildings: []string{"Bloom Towers", "Belgravia", "Oxford Residence", "Park Corner", "Seasons Community"},
		Latitude:  25.0580, Longitude: 55.2090,
	},
	{
		Name: "Al Barsha", Aliases: []string{"barsha"},
		BaseRent: 70000, StudioSqft: 450, SqftPerBedroom: 420,
		Amenities: []string{"Swimming Pool", "Gym", "Metro Access", "Balcony"},
		Buildings: []string{"Al Barsha Heights Tower", "Dusit Residence", "Mazaya Centre", "Al Fahad Tower"},
		Latitude:  25.1100, Longitude: 55.1990,
	},
	{
		Name: "Deira", Aliases: []string{"dubai deira"},
		BaseRent: 55000, StudioSqft: 400, SqftPerBedroom: 380,
		Amenities: []string{"Metro Access", "Balcony", "Creek View"},
		Buildings: []string{"Al Rigga Tower", "Port Saeed Residence", "Abraj Al Mamzar", "Al Muraqqabat Building"},
		Latitude:  25.2711, Longitude: 55.3075,
	},
	{
		Name: "Bur Dubai", Aliases: []string{"al mankhool", "karama"},
		BaseRent: 60000, StudioSqft: 400, SqftPerBedroom: 380,
		Amenities: []string{"Metro Access", "Balcony", "Swimming Pool"},
		Buildings: []string{"Al Mankhool Tower", "Golden Sands", "Al Hudaiba Residence", "Oud Metha Tower"},
		Latitude:  25.2532, Longitude: 55.2970,
	},
	{
		Name: "International City", Aliases: []string{"intl city"},
		BaseRent: 42000, StudioSqft: 300, SqftPerBedroom: 300,
		Amenities: []string{"Covered Parking", "Balcony"},
		Buildings: []string{"China Cluster", "England Cluster", "France Cluster", "Persia Cluster", "Morocco Cluster"},
		Latitude:  25.1656, Longitude: 55.4088,
	},
	{
		Name: "Dubai Silicon Oasis", Aliases: []string{"dso", "silicon oasis"},
		BaseRent: 52000, StudioSqft: 400, SqftPerBedroom: 350,
		Amenities: []string{"Swimming Pool", "Gym", "Balcony"},
		Buildings: []string{"Binghatti Stars", "Palacio Tower", "Axis Residence", "Spring Oasis", "Cedre Villas"},
		Latitude:  25.1185, Longitude: 55.3820,
	},
	{
		Name: "Mirdif", Aliases: []string{"mirdiff"}, Villas: true,
		BaseRent: 75000, StudioSqft: 550, SqftPerBedroom: 500,
		Amenities: []string{"Private Garden", "Maid Room", "Covered Parking", "Community Pool"},
		Buildings: []string{"Ghoroob", "Shorooq", "Uptown Mirdif", "Mirdif Hills"},
		Latitude:  25.2180, Longitude: 55.4210,
	},
}

// DefaultArea is used when an area matches no profile
var DefaultArea = AreaProfile{
	Name:           "Dubai",
	BaseRent:       80000,
	StudioSqft:     450,
	SqftPerBedroom: 420,
	Amenities:      []string{"Swimming Pool", "Gym", "Balcony"},
	Buildings:      []string{"Residence Tower", "Garden Apartments", "City View Building"},
	Latitude:       Downtown.Latitude,
	Longitude:      Downtown.Longitude,
}

// LookupArea finds the profile for a free-text area name. The second return
// value is false when the default profile was used.
func LookupArea(name string) (AreaProfile, bool) {
	key := strings.ToLower(strings.Join(strings.Fields(name), " "))
	if key == "" {
		return withCommon(DefaultArea), false
	}

	for _, a := range Areas {
		if strings.ToLower(a.Name) == key {
			return withCommon(a), true
		}
		for _, alias := range a.Aliases {
			if alias == key {
				return withCommon(a), true
			}
		}
	}

	// Looser pass for inputs like "Dubai Marina, Dubai" or "Marina Gate, Dubai Marina"
	for _, a := range Areas {
		if strings.Contains(key, strings.ToLower(a.Name)) {
			return withCommon(a), true
		}
	}

	return withCommon(DefaultArea), false
}

func withCommon(a AreaProfile) AreaProfile {
	amenities := make([]string, 0, len(a.Amenities)+len(commonAmenities))
	amenities = append(amenities, a.Amenities...)
	amenities = append(amenities, commonAmenities...)
	a.Amenities = amenities
	return a
}

// NearestArea returns the profile whose centre is closest to the point, and the distance in km
func NearestArea(lat, lng float64) (AreaProfile, float64) {
	nearest := DefaultArea
	minDist := math.MaxFloat64

	for _, a := range Areas {
		if d := Haversine(lat, lng, a.Latitude, a.Longitude); d < minDist {
			minDist = d
			nearest = a
		}
	}

	return withCommon(nearest), minDist
}
