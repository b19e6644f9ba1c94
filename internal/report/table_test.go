package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"dubai-rentals/internal/db"
	"dubai-rentals/internal/models"
)

func TestTableMeasuresColumnsNotBytes(t *testing.T) {
	tbl := &Table{Headers: []string{"NAME", "RENT"}}
	tbl.Append("برج", "1")
	tbl.Append("Marina Gate", "2")

	var buf bytes.Buffer
	if err := tbl.Render(&buf); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if lines[1] != "-----------  ----" {
		t.Errorf("separator %q", lines[1])
	}
	if !strings.HasPrefix(lines[3], "Marina Gate  2") {
		t.Errorf("row %q", lines[3])
	}
}

func TestTableTruncates(t *testing.T) {
	tbl := &Table{MaxWidth: 5}
	tbl.Append("Jumeirah Village Circle")

	var buf bytes.Buffer
	tbl.Render(&buf)
	if got := strings.TrimSpace(buf.String()); got != "Jume…" {
		t.Errorf("got %q", got)
	}
}

func TestFormatting(t *testing.T) {
	if got := AED(125000); got != "AED 125,000" {
		t.Errorf("AED = %q", got)
	}
	if Bedrooms(0) != "Studio" || Bedrooms(3) != "3 BR" {
		t.Error("unexpected bedroom labels")
	}
}

func TestListingsAndSources(t *testing.T) {
	listings := []models.RentalListing{
		{Source: "bayut", Origin: models.OriginLive, PropertyType: models.Apartment, Bedrooms: 2,
			SizeSqft: 1000, Rent: 120000, PropertyName: "Marina Gate", Location: "Dubai Marina", Confidence: 1},
		{Source: "dld", Origin: models.OriginFallback, PropertyType: models.Villa, Bedrooms: 4,
			Rent: 300000, Location: "Arabian Ranches", Confidence: 0.3},
	}

	var buf bytes.Buffer
	if err := Listings(&buf, listings); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"AED 120,000", "1,000 sqft", "120", "dld*", "4 BR"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing table missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	results := []models.ScrapeResult{
		{Source: "bayut", Listings: listings[:1], Confidence: 0.9},
		{Source: "dubizzle", Errors: []string{"parse failed"}},
	}
	if err := Sources(&buf, results); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "failed: parse failed") {
		t.Errorf("source table:\n%s", buf.String())
	}
}

func TestSummary(t *testing.T) {
	res := &models.AggregateResult{
		Area:            "JLT",
		Listings:        []models.RentalListing{{Rent: 80000}, {Rent: 100000}},
		TotalConfidence: 0.75,
	}
	var buf bytes.Buffer
	Summary(&buf, res)
	if got := buf.String(); got != "JLT: 2 listings, confidence 0.75, mean rent AED 90,000\n" {
		t.Errorf("got %q", got)
	}

	buf.Reset()
	Summary(&buf, &models.AggregateResult{Area: "JLT", Degraded: true})
	if !strings.Contains(buf.String(), "degraded") {
		t.Errorf("got %q", buf.String())
	}
}

func TestRuns(t *testing.T) {
	now := time.Now()
	runs := []db.Run{{ID: "r1", Area: "Deira", ListingCount: 1200, TotalConfidence: 0.6, CreatedAt: now.Add(-2 * time.Hour)}}

	var buf bytes.Buffer
	if err := Runs(&buf, runs, now); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "1,200") || !strings.Contains(buf.String(), "2 hours ago") {
		t.Errorf("runs table:\n%s", buf.String())
	}
}
