package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"dubai-rentals/internal/models"
)

func testConfig(sources ...string) Config {
	cfg := DefaultConfig()
	cfg.Sources = sources
	cfg.DelayBetween = time.Millisecond
	cfg.HostRPS = 0
	cfg.FallbackSeed = 1
	cfg.Options.Timeout = 5 * time.Second
	return cfg
}

func TestScraperRunDLD(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(dldPayload))
	}))
	defer srv.Close()

	cfg := testConfig("dld")
	cfg.DLDAPIKey = "secret"
	cfg.DLDBaseURL = srv.URL

	s, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	res := s.Run(context.Background(), "Al Barsha", models.RentalFilter{})
	if auth != "Bearer secret" {
		t.Errorf("Authorization = %q", auth)
	}
	if len(res.Listings) != 1 || res.TotalConfidence != 0.9 || len(res.Errors) != 0 {
		t.Errorf("listings %d, confidence %v, errors %v", len(res.Listings), res.TotalConfidence, res.Errors)
	}
	if st := s.Stats(); st.Completed != 1 {
		t.Errorf("queue stats %+v", st)
	}
}

func TestScraperMissingKeyFallsBack(t *testing.T) {
	s, err := New(testConfig("DLD"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if got := s.Sources(); len(got) != 1 || got[0] != "dld" {
		t.Fatalf("Sources() = %v", got)
	}

	res := s.Run(context.Background(), "JLT", models.RentalFilter{})
	if len(res.Sources) != 1 || !res.Sources[0].Fallback {
		t.Fatalf("expected a fallback result, got %+v", res.Sources)
	}
	if len(res.Errors) != 1 || !res.Degraded {
		t.Errorf("errors %v, degraded %v", res.Errors, res.Degraded)
	}
	for _, l := range res.Listings {
		if l.Origin != models.OriginFallback {
			t.Errorf("listing %s has origin %s", l.ID, l.Origin)
		}
	}
}

func TestScraperUnknownSource(t *testing.T) {
	if _, err := New(testConfig("craigslist"), nil); err == nil {
		t.Error("expected an error for an unknown source")
	}
}

func TestScraperDefaultSources(t *testing.T) {
	s, err := New(testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	got := s.Sources()
	if len(got) != len(SourceNames) {
		t.Fatalf("Sources() = %v", got)
	}
	for i := range got {
		if got[i] != SourceNames[i] {
			t.Errorf("source %d = %s, want %s", i, got[i], SourceNames[i])
		}
	}
}

func TestScraperDuplicateSources(t *testing.T) {
	tests := []struct {
		name    string
		sources []string
		want    []string
	}{
		{"repeated", []string{"dld", "dld"}, []string{"dld"}},
		{"case and spacing", []string{"dld", "DLD", " dld "}, []string{"dld"}},
		{"order kept", []string{"dld", "bayut", "Dld", "bayut"}, []string{"dld", "bayut"}},
		{"blank entries", []string{"", "dld", " "}, []string{"dld"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(testConfig(tt.sources...), nil)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer s.Close()

			got := s.Sources()
			if len(got) != len(tt.want) || len(s.adapters) != len(tt.want) {
				t.Fatalf("Sources() = %v with %d adapters, want %v", got, len(s.adapters), tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("source %d = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestScraperBrowserUnavailableUsesHTTP(t *testing.T) {
	cfg := testConfig("dubizzle")
	cfg.UseBrowser = true
	cfg.BrowserPath = filepath.Join(t.TempDir(), "no-chrome")

	s, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if s.browser != nil {
		t.Error("browser kept after a failed launch")
	}
	if _, ok := s.adapters[0].fetcher.(*HTTPFetcher); !ok {
		t.Errorf("dubizzle fetcher is %T, want *HTTPFetcher", s.adapters[0].fetcher)
	}
}
