package geo

import (
	"math"
)

const (
	// Earth radius in kilometers
	EarthRadiusKm = 6371.0
)

// Haversine calculates the great-circle distance between two points
// Returns distance in kilometers
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Location represents a geographic point
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Downtown is the Burj Khalifa, used as the city-centre reference
var Downtown = Location{
	Name:      "Downtown Dubai",
	Latitude:  25.1972,
	Longitude: 55.2744,
}

// Landmarks commuters usually measure against
var Landmarks = []Location{
	Downtown,
	{Name: "DIFC", Latitude: 25.2128, Longitude: 55.2796},
	{Name: "Dubai Marina Metro", Latitude: 25.0802, Longitude: 55.1406},
	{Name: "Dubai International Airport", Latitude: 25.2532, Longitude: 55.3657},
	{Name: "Al Maktoum Airport", Latitude: 24.8963, Longitude: 55.1614},
	{Name: "Mall of the Emirates", Latitude: 25.1181, Longitude: 55.2006},
	{Name: "Dubai Internet City", Latitude: 25.0955, Longitude: 55.1586},
	{Name: "Deira City Centre", Latitude: 25.2523, Longitude: 55.3322},
	{Name: "Dubai Silicon Oasis HQ", Latitude: 25.1185, Longitude: 55.3820},
	{Name: "Jebel Ali Port", Latitude: 25.0112, Longitude: 55.0612},
}

// FindNearestLandmark finds the nearest landmark to a given location
func FindNearestLandmark(lat, lng float64) (Location, float64) {
	var nearest Location
	minDist := math.MaxFloat64

	for _, lm := range Landmarks {
		dist := Haversine(lat, lng, lm.Latitude, lm.Longitude)
		if dist < minDist {
			minDist = dist
			nearest = lm
		}
	}

	return nearest, minDist
}

// DistanceToDowntown calculates distance from a point to Downtown Dubai
func DistanceToDowntown(lat, lng float64) float64 {
	return Haversine(lat, lng, Downtown.Latitude, Downtown.Longitude)
}
