package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"dubai-rentals/internal/db"
	"dubai-rentals/internal/geo"
	"dubai-rentals/internal/models"
	"dubai-rentals/internal/validate"
)

type fakeRunner struct {
	calls  int
	area   string
	filter models.RentalFilter
}

func (f *fakeRunner) Run(ctx context.Context, area string, filter models.RentalFilter) *models.AggregateResult {
	f.calls++
	f.area = area
	f.filter = filter
	return &models.AggregateResult{
		Area:   area,
		Filter: filter,
		Listings: []models.RentalListing{
			{ID: "bayut-1", Source: "bayut", Origin: models.OriginLive, PropertyType: models.Apartment,
				Bedrooms: 2, SizeSqft: 1200, Rent: 140000, Location: area, Confidence: 1},
		},
		Sources:         []models.ScrapeResult{{Source: "bayut", Confidence: 0.9, FetchedAt: time.Now()}},
		TotalConfidence: 0.9,
		Errors:          []string{},
		GeneratedAt:     time.Now(),
	}
}

func (f *fakeRunner) Sources() []string { return []string{"bayut"} }

type fakeLocator struct {
	loc geo.Location
	err error
}

func (f fakeLocator) Geocode(ctx context.Context, place string) (geo.Location, error) {
	return f.loc, f.err
}

type fakeRouter struct{}

func (fakeRouter) CommuteToDowntown(ctx context.Context, area geo.AreaProfile) (*geo.Commute, error) {
	return &geo.Commute{From: area.Location(), To: geo.Downtown, DurationMins: 30, DistanceKm: 28}, nil
}

func newTestServer(t *testing.T, withDB bool, opts ...Option) (*httptest.Server, *fakeRunner) {
	t.Helper()
	var database *db.DB
	if withDB {
		var err error
		database, err = db.New(filepath.Join(t.TempDir(), "api.db"))
		if err != nil {
			t.Fatalf("db.New: %v", err)
		}
		t.Cleanup(func() { database.Close() })
	}

	runner := &fakeRunner{}
	srv := httptest.NewServer(NewRouter(NewHandlers(runner, database, nil, opts...)))
	t.Cleanup(srv.Close)
	return srv, runner
}

func getJSON(t *testing.T, url string, wantStatus int, out interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s: status %d, want %d", url, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
}

func TestSearchRentals(t *testing.T) {
	srv, runner := newTestServer(t, false)

	var body struct {
		Area            string                 `json:"area"`
		Listings        []models.RentalListing `json:"listings"`
		TotalConfidence float64                `json:"total_confidence"`
		RunID           string                 `json:"run_id"`
	}
	getJSON(t, srv.URL+"/api/rentals?area=Dubai+Marina&bedrooms=2&rentMax=150000", http.StatusOK, &body)

	if runner.area != "Dubai Marina" {
		t.Errorf("runner got area %q", runner.area)
	}
	if runner.filter.Bedrooms == nil || *runner.filter.Bedrooms != 2 || runner.filter.RentMax == nil || *runner.filter.RentMax != 150000 {
		t.Errorf("runner got filter %+v", runner.filter)
	}
	if body.Area != "Dubai Marina" || len(body.Listings) != 1 || body.TotalConfidence != 0.9 || body.RunID != "" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestSearchRentalsBadRequest(t *testing.T) {
	srv, runner := newTestServer(t, false)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"missing area", "?bedrooms=2", http.StatusBadRequest},
		{"bad bedrooms", "?area=JLT&bedrooms=lots", http.StatusBadRequest},
		{"inverted rent", "?area=JLT&rentMin=200000&rentMax=100000", http.StatusBadRequest},
		{"unknown furnishing", "?area=JLT&furnishing=half", http.StatusBadRequest},
		{"nan rent", "?area=JLT&rentMin=NaN", http.StatusBadRequest},
		{"infinite rent", "?area=JLT&rentMax=Inf", http.StatusBadRequest},
		{"infinite size", "?area=JLT&sizeMin=%2BInf", http.StatusBadRequest},
		{"save without storage", "?area=JLT&save=1", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getJSON(t, srv.URL+"/api/rentals"+tt.query, tt.want, nil)
		})
	}
	if runner.calls != 0 {
		t.Errorf("runner called %d times for rejected requests", runner.calls)
	}
}

func TestSaveAndFetchRun(t *testing.T) {
	srv, _ := newTestServer(t, true)

	var saved struct {
		RunID string `json:"run_id"`
	}
	getJSON(t, srv.URL+"/api/rentals?area=JLT&save=true", http.StatusOK, &saved)
	if saved.RunID == "" {
		t.Fatal("no run_id returned")
	}

	var run db.Run
	getJSON(t, srv.URL+"/api/runs/"+saved.RunID, http.StatusOK, &run)
	if run.Area != "JLT" || run.ListingCount != 1 || len(run.Sources) != 1 {
		t.Errorf("unexpected run %+v", run)
	}

	var listings struct {
		Listings []models.RentalListing `json:"listings"`
		Count    int                    `json:"count"`
	}
	getJSON(t, srv.URL+"/api/runs/"+saved.RunID+"/listings", http.StatusOK, &listings)
	if listings.Count != 1 || listings.Listings[0].ID != "bayut-1" {
		t.Errorf("unexpected listings %+v", listings)
	}

	var runs struct {
		Count int `json:"count"`
	}
	getJSON(t, srv.URL+"/api/runs?area=jlt", http.StatusOK, &runs)
	if runs.Count != 1 {
		t.Errorf("got %d runs, want 1", runs.Count)
	}

	getJSON(t, srv.URL+"/api/runs/does-not-exist", http.StatusNotFound, nil)
	getJSON(t, srv.URL+"/api/runs/does-not-exist/listings", http.StatusNotFound, nil)
}

func TestRunsWithoutStorage(t *testing.T) {
	srv, _ := newTestServer(t, false)
	getJSON(t, srv.URL+"/api/runs", http.StatusServiceUnavailable, nil)
}

func TestListAreas(t *testing.T) {
	srv, _ := newTestServer(t, false)

	var body struct {
		Areas []areaSummary `json:"areas"`
		Count int           `json:"count"`
	}
	getJSON(t, srv.URL+"/api/areas", http.StatusOK, &body)

	if body.Count != len(geo.Areas) {
		t.Fatalf("got %d areas, want %d", body.Count, len(geo.Areas))
	}
	for _, a := range body.Areas {
		if a.Name == "Downtown Dubai" && a.DowntownKm != 0 {
			t.Errorf("Downtown Dubai is %.1f km from itself", a.DowntownKm)
		}
		if a.Name == "Dubai Marina" && (a.DowntownKm < 15 || a.DowntownKm > 25) {
			t.Errorf("Dubai Marina distance %.1f km", a.DowntownKm)
		}
	}
}

func TestEstimate(t *testing.T) {
	srv, _ := newTestServer(t, false)

	var est validate.Estimate
	getJSON(t, srv.URL+"/api/estimate?area=marina&bedrooms=studio", http.StatusOK, &est)
	if est.Area != "Dubai Marina" || est.Bedrooms != 0 || !est.Matched || est.Rent <= 0 {
		t.Errorf("unexpected estimate %+v", est)
	}

	getJSON(t, srv.URL+"/api/estimate?area=marina&bedrooms=-1", http.StatusBadRequest, nil)
	getJSON(t, srv.URL+"/api/estimate", http.StatusBadRequest, nil)
}

func TestLocate(t *testing.T) {
	loc := geo.Location{Name: "Marina Walk", Latitude: 25.0805, Longitude: 55.1403}
	srv, _ := newTestServer(t, false, WithGeocoder(fakeLocator{loc: loc}))

	var body struct {
		NearestArea string  `json:"nearest_area"`
		DowntownKm  float64 `json:"distance_downtown_km"`
	}
	getJSON(t, srv.URL+"/api/locate?q=Marina+Walk", http.StatusOK, &body)
	if body.NearestArea != "Dubai Marina" || body.DowntownKm <= 0 {
		t.Errorf("unexpected body %+v", body)
	}

	missing, _ := newTestServer(t, false, WithGeocoder(fakeLocator{err: geo.ErrNoGeocodeResult}))
	getJSON(t, missing.URL+"/api/locate?q=Atlantis", http.StatusNotFound, nil)

	unconfigured, _ := newTestServer(t, false)
	getJSON(t, unconfigured.URL+"/api/locate?q=JLT", http.StatusServiceUnavailable, nil)
}

func TestAreaCommute(t *testing.T) {
	srv, _ := newTestServer(t, false, WithRouter(fakeRouter{}))

	var c geo.Commute
	getJSON(t, srv.URL+"/api/areas/JLT/commute", http.StatusOK, &c)
	if c.From.Name != "JLT" || c.DurationMins != 30 {
		t.Errorf("unexpected commute %+v", c)
	}

	getJSON(t, srv.URL+"/api/areas/Atlantis/commute", http.StatusNotFound, nil)
}

func TestHealthAndCORS(t *testing.T) {
	srv, _ := newTestServer(t, true)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header missing")
	}

	var body struct {
		Status  string   `json:"status"`
		Sources []string `json:"sources"`
		Storage bool     `json:"storage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || !body.Storage || len(body.Sources) != 1 {
		t.Errorf("unexpected health %+v", body)
	}

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/rentals", nil)
	pre, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	pre.Body.Close()
	if pre.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status %d", pre.StatusCode)
	}
}

func TestWriteJSONEncodeFailure(t *testing.T) {
	h := NewHandlers(&fakeRunner{}, nil, nil)
	rec := httptest.NewRecorder()

	h.writeJSON(rec, http.StatusOK, map[string]float64{"rent": math.NaN()})

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status %d, want 500", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("empty body for an unencodable value")
	}
}
