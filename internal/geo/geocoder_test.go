package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"
)

func TestGeocoder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("request without User-Agent")
		}
		switch r.URL.Path {
		case "/search":
			if r.URL.Query().Get("countrycodes") != "ae" {
				t.Errorf("countrycodes = %q", r.URL.Query().Get("countrycodes"))
			}
			if r.URL.Query().Get("q") == "Nowhere, Dubai" {
				w.Write([]byte(`[]`))
				return
			}
			w.Write([]byte(`[{"lat":"25.2867","lon":"55.3742","display_name":"Al Qusais, Deira, Dubai","type":"suburb","importance":0.5}]`))
		case "/reverse":
			w.Write([]byte(`{"lat":"25.2867","lon":"55.3742","display_name":"Al Qusais, Deira, Dubai"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	g := NewGeocoder(srv.URL)
	g.limiter = rate.NewLimiter(rate.Inf, 1)
	ctx := context.Background()

	loc, err := g.Geocode(ctx, "Al Qusais")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if loc.Latitude != 25.2867 || loc.Longitude != 55.3742 || loc.Name != "Al Qusais, Deira, Dubai" {
		t.Errorf("got %+v", loc)
	}

	if _, err := g.Geocode(ctx, "Nowhere"); !errors.Is(err, ErrNoGeocodeResult) {
		t.Errorf("got %v, want ErrNoGeocodeResult", err)
	}

	name, err := g.ReverseGeocode(ctx, 25.2867, 55.3742)
	if err != nil || name != "Al Qusais, Deira, Dubai" {
		t.Errorf("ReverseGeocode = %q, %v", name, err)
	}
}

func TestGeocoderHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGeocoder(srv.URL)
	if _, err := g.Geocode(context.Background(), "JLT"); err == nil {
		t.Error("expected an error for HTTP 429")
	}
}
