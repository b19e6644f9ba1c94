package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"dubai-rentals/internal/config"
	"dubai-rentals/internal/db"
	"dubai-rentals/internal/geo"
	"dubai-rentals/internal/models"
	"dubai-rentals/internal/report"
	"dubai-rentals/internal/scraper"
	"dubai-rentals/internal/validate"
)

func main() {
	// Sub-commands
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	os.Args = os.Args[1:] // Shift args for flag parsing

	switch cmd {
	case "areas":
		listAreas()
	case "estimate":
		estimate()
	case "commute":
		commute()
	case "geocode":
		geocode()
	case "fallback":
		generateFallback()
	case "runs":
		listRuns()
	case "prune":
		pruneRuns()
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: tools <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  areas     List area profiles with distances to Downtown Dubai")
	fmt.Println("  estimate  Estimate rent and size for an area and bedroom count")
	fmt.Println("  commute   Drive time from each area to Downtown Dubai (Valhalla)")
	fmt.Println("  geocode   Resolve a place name and find its area profile")
	fmt.Println("  fallback  Print synthetic listings for an area")
	fmt.Println("  runs      List stored aggregation runs")
	fmt.Println("  prune     Delete stored runs older than a cutoff")
}

func listAreas() {
	flag.Parse()

	t := &report.Table{Headers: []string{"AREA", "1BR RENT", "STUDIO", "TYPE", "DOWNTOWN", "NEAREST LANDMARK"}}
	for _, a := range geo.Areas {
		kind := "apartments"
		if a.Villas {
			kind = "villas"
		}
		lm, lmDist := geo.FindNearestLandmark(a.Latitude, a.Longitude)
		t.Append(a.Name, report.AED(a.BaseRent), humanize.Ftoa(a.StudioSqft)+" sqft", kind,
			fmt.Sprintf("%.1f km", a.DistanceToDowntown()), fmt.Sprintf("%s (%.1f km)", lm.Name, lmDist))
	}
	t.Render(os.Stdout)
}

func estimate() {
	area := flag.String("area", "", "Area name")
	flag.Parse()

	if *area == "" {
		log.Fatal("-area is required")
	}

	est := validate.NewEstimator()
	if e := est.Estimate(*area, 1); !e.Matched {
		log.Printf("Unknown area %q, using %s averages", *area, e.Area)
	}

	t := &report.Table{Headers: []string{"BEDS", "RENT", "SIZE", "AED/SQFT"}}
	for beds := 0; beds < len(validate.BedroomMultipliers); beds++ {
		e := est.Estimate(*area, beds)
		t.Append(report.Bedrooms(beds), report.AED(e.Rent), humanize.Ftoa(e.SizeSqft)+" sqft", humanize.Ftoa(e.PricePerSqft))
	}
	t.Render(os.Stdout)
}

func commute() {
	baseURL := flag.String("valhalla", os.Getenv("VALHALLA_URL"), "Valhalla server (default public instance)")
	area := flag.String("area", "", "Single area (default: every area)")
	flag.Parse()

	areas := geo.Areas
	if *area != "" {
		a, ok := geo.LookupArea(*area)
		if !ok {
			log.Fatalf("Unknown area %q", *area)
		}
		areas = []geo.AreaProfile{a}
	}

	ctx := context.Background()
	router := geo.NewRouter(*baseURL)

	t := &report.Table{Headers: []string{"AREA", "DRIVE", "ROAD KM", "STRAIGHT KM"}}
	for _, a := range areas {
		c, err := router.CommuteToDowntown(ctx, a)
		if err != nil {
			log.Printf("Failed to route from %s: %v", a.Name, err)
			continue
		}
		t.Append(a.Name, fmt.Sprintf("%.0f min", c.DurationMins), fmt.Sprintf("%.1f", c.DistanceKm),
			fmt.Sprintf("%.1f", a.DistanceToDowntown()))

		// Public Valhalla instances throttle aggressively
		time.Sleep(500 * time.Millisecond)
	}
	t.Render(os.Stdout)
}

func geocode() {
	baseURL := flag.String("nominatim", os.Getenv("NOMINATIM_URL"), "Nominatim server (default public instance)")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("Usage: tools geocode [-nominatim URL] <place>")
	}

	g := geo.NewGeocoder(*baseURL)
	for _, place := range flag.Args() {
		loc, err := g.Geocode(context.Background(), place)
		if err != nil {
			log.Printf("%s: %v", place, err)
			continue
		}
		area, dist := geo.NearestArea(loc.Latitude, loc.Longitude)
		fmt.Printf("%s\n  %s\n  %.5f, %.5f\n  nearest area: %s (%.1f km), downtown %.1f km\n",
			place, loc.Name, loc.Latitude, loc.Longitude, area.Name, dist,
			geo.DistanceToDowntown(loc.Latitude, loc.Longitude))
	}
}

func generateFallback() {
	area := flag.String("area", "Dubai Marina", "Area name")
	beds := flag.String("beds", "", "Bedrooms filter")
	count := flag.Int("count", 6, "Listings to generate")
	seed := flag.Uint64("seed", 1, "Random seed")
	source := flag.String("source", "sample", "Source name stamped on the listings")
	asJSON := flag.Bool("json", false, "Print JSON")
	flag.Parse()

	filter, err := models.RawFilter{Bedrooms: *beds}.Parse()
	if err != nil {
		log.Fatalf("Invalid filter: %v", err)
	}

	listings := scraper.NewFallbackGenerator(*seed, *count).Generate(*source, *area, filter)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(listings)
		return
	}
	report.Listings(os.Stdout, listings)
}

func openDB() *db.DB {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	return database
}

func listRuns() {
	area := flag.String("area", "", "Only runs for this area")
	limit := flag.Int("limit", 20, "Maximum runs to list")
	flag.Parse()

	database := openDB()
	defer database.Close()

	runs, err := database.ListRuns(context.Background(), *area, *limit)
	if err != nil {
		log.Fatalf("Failed to list runs: %v", err)
	}
	report.Runs(os.Stdout, runs, time.Now())
}

func pruneRuns() {
	olderThan := flag.String("older-than", "720h", "Age cutoff as a Go duration, or days like \"30\"")
	flag.Parse()

	age, err := time.ParseDuration(*olderThan)
	if err != nil {
		days, convErr := strconv.Atoi(*olderThan)
		if convErr != nil {
			log.Fatalf("Invalid -older-than %q", *olderThan)
		}
		age = time.Duration(days) * 24 * time.Hour
	}

	database := openDB()
	defer database.Close()

	cutoff := time.Now().Add(-age)
	n, err := database.DeleteRunsBefore(context.Background(), cutoff)
	if err != nil {
		log.Fatalf("Failed to prune runs: %v", err)
	}
	log.Printf("Deleted %d runs created before %s", n, humanize.Time(cutoff))
}
