package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Router estimates commute times using a Valhalla routing server
type Router struct {
	client  *http.Client
	baseURL string
	// TrafficFactor scales the free-flow duration; Dubai peak traffic is rarely free-flow
	TrafficFactor float64
}

// Commute is the result of one route calculation
type Commute struct {
	From         Location `json:"from"`
	To           Location `json:"to"`
	DurationMins float64  `json:"duration_mins"`
	DistanceKm   float64  `json:"distance_km"`
}

// NewRouter creates a router. Pass "" for the public Valhalla server or a URL
// like "http://localhost:8002" for a local instance.
func NewRouter(baseURL string) *Router {
	if baseURL == "" {
		baseURL = "https://valhalla1.openstreetmap.de"
	}
	return &Router{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:       baseURL,
		TrafficFactor: 1.25,
	}
}

type valhallaLocation struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type valhallaRequest struct {
	Locations []valhallaLocation `json:"locations"`
	Costing   string             `json:"costing"`
	Units     string             `json:"units"`
}

type valhallaRouteResponse struct {
	Trip struct {
		Summary struct {
			Time   float64 `json:"time"`   // seconds
			Length float64 `json:"length"` // kilometers
		} `json:"summary"`
	} `json:"trip"`
}

// CommuteToDowntown returns the drive from an area centre to Downtown Dubai
func (r *Router) CommuteToDowntown(ctx context.Context, area AreaProfile) (*Commute, error) {
	return r.Route(ctx, area.Location(), Downtown)
}

// Route calculates the drive between two points
func (r *Router) Route(ctx context.Context, from, to Location) (*Commute, error) {
	payload, err := json.Marshal(valhallaRequest{
		Locations: []valhallaLocation{
			{Lat: from.Latitude, Lon: from.Longitude},
			{Lat: to.Latitude, Lon: to.Longitude},
		},
		Costing: "auto",
		Units:   "kilometers",
	})
	if err != nil {
		return nil, err
	}

	endpoint := r.baseURL + "/route?json=" + url.QueryEscape(string(payload))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "DubaiRentals/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("route request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("route API error %d: %s", resp.StatusCode, string(body))
	}

	var result valhallaRouteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse route response: %w", err)
	}

	factor := r.TrafficFactor
	if factor <= 0 {
		factor = 1
	}

	return &Commute{
		From:         from,
		To:           to,
		DurationMins: result.Trip.Summary.Time / 60.0 * factor,
		DistanceKm:   result.Trip.Summary.Length,
	}, nil
}
