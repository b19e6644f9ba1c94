package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// ErrNoGeocodeResult is returned when Nominatim knows no place for the query
var ErrNoGeocodeResult = errors.New("no geocoding result")

// Geocoder resolves Dubai place names using Nominatim
type Geocoder struct {
	client    *http.Client
	userAgent string
	baseURL   string
	limiter   *rate.Limiter
}

// NominatimResult represents a geocoding result from Nominatim
type NominatimResult struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
}

// NewGeocoder creates a new Nominatim geocoder. baseURL may be empty.
func NewGeocoder(baseURL string) *Geocoder {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	return &Geocoder{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		userAgent: "DubaiRentals/1.0 (rental market research)",
		baseURL:   baseURL,
		// Nominatim usage policy: at most one request per second
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Geocode converts a place name in Dubai to a Location
func (g *Geocoder) Geocode(ctx context.Context, place string) (Location, error) {
	params := url.Values{}
	params.Set("q", place+", Dubai")
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("countrycodes", "ae")

	var results []NominatimResult
	if err := g.get(ctx, "/search?"+params.Encode(), &results); err != nil {
		return Location{}, err
	}
	if len(results) == 0 {
		return Location{}, fmt.Errorf("%w for %q", ErrNoGeocodeResult, place)
	}

	r := results[0]
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return Location{}, fmt.Errorf("failed to parse latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return Location{}, fmt.Errorf("failed to parse longitude: %w", err)
	}

	return Location{Name: r.DisplayName, Latitude: lat, Longitude: lng}, nil
}

// ReverseGeocode converts coordinates to a display name
func (g *Geocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(lng, 'f', 6, 64))
	params.Set("format", "json")

	var result NominatimResult
	if err := g.get(ctx, "/reverse?"+params.Encode(), &result); err != nil {
		return "", err
	}
	if result.DisplayName == "" {
		return "", ErrNoGeocodeResult
	}
	return result.DisplayName, nil
}

func (g *Geocoder) get(ctx context.Context, path string, out interface{}) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Nominatim requires a valid User-Agent
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
