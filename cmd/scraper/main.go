package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"dubai-rentals/internal/config"
	"dubai-rentals/internal/db"
	"dubai-rentals/internal/logger"
	"dubai-rentals/internal/models"
	"dubai-rentals/internal/report"
	"dubai-rentals/internal/scraper"
)

func main() {
	// Parse command line flags
	area := flag.String("area", "", "Area to search, e.g. \"Dubai Marina\" (required)")
	propertyType := flag.String("type", "", "Property type: apartment, villa, townhouse, penthouse, studio")
	bedrooms := flag.String("beds", "", "Bedrooms, or \"studio\"")
	sizeMin := flag.String("size-min", "", "Minimum size in sqft")
	sizeMax := flag.String("size-max", "", "Maximum size in sqft")
	rentMin := flag.String("rent-min", "", "Minimum annual rent in AED")
	rentMax := flag.String("rent-max", "", "Maximum annual rent in AED")
	furnishing := flag.String("furnishing", "", "furnished, unfurnished or partly furnished")

	sources := flag.String("sources", "", "Comma-separated sources (default: all enabled)")
	useBrowser := flag.Bool("browser", false, "Render Dubizzle in a headless browser")
	headless := flag.Bool("headless", true, "Run browser in headless mode (set false to see browser)")
	seed := flag.Uint64("seed", 0, "Fallback data seed (0 uses the clock)")
	asJSON := flag.Bool("json", false, "Print the aggregate result as JSON")
	save := flag.Bool("save", false, "Store the run in the database")
	flag.Parse()

	if strings.TrimSpace(*area) == "" {
		flag.Usage()
		os.Exit(2)
	}

	filter, err := models.RawFilter{
		PropertyType: *propertyType,
		Bedrooms:     *bedrooms,
		SizeMin:      *sizeMin,
		SizeMax:      *sizeMax,
		RentMin:      *rentMin,
		RentMax:      *rentMax,
		Furnishing:   *furnishing,
	}.Parse()
	if err != nil {
		log.Fatalf("Invalid filter: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Configure scraper
	sc := cfg.Scraper()
	if *sources != "" {
		sc.Sources = strings.Split(*sources, ",")
	}
	if *useBrowser {
		sc.UseBrowser = true
	}
	sc.Headless = *headless
	if *seed != 0 {
		sc.FallbackSeed = *seed
	}

	// JSON output owns stdout, so logs go to stderr either way
	appLog := logger.NewWithWriter(os.Stderr, cfg.LogLevel)

	s, err := scraper.New(sc, appLog)
	if err != nil {
		log.Fatalf("Failed to create scraper: %v", err)
	}
	defer s.Close()

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received interrupt signal, shutting down...")
		cancel()
	}()

	log.Printf("Searching %s on %s...", *area, strings.Join(s.Sources(), ", "))
	startTime := time.Now()

	result := s.Run(ctx, *area, filter)
	if ctx.Err() == context.Canceled {
		log.Println("Search cancelled by user")
	}

	if *save {
		database, err := db.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer database.Close()

		id, err := database.SaveRun(context.Background(), result)
		if err != nil {
			log.Fatalf("Failed to save run: %v", err)
		}
		log.Printf("Saved run %s", id)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Fatalf("Failed to encode result: %v", err)
		}
	} else {
		report.Listings(os.Stdout, result.Listings)
		os.Stdout.WriteString("\n")
		report.Sources(os.Stdout, result.Sources)
		os.Stdout.WriteString("\n")
		report.Summary(os.Stdout, result)
	}

	stats := s.Stats()
	log.Printf("Search completed in %s (%d requests, peak concurrency %d)",
		time.Since(startTime).Round(time.Millisecond), stats.Completed, stats.Peak)

	if result.Degraded {
		os.Exit(1)
	}
}
