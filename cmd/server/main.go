package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dubai-rentals/internal/api"
	"dubai-rentals/internal/config"
	"dubai-rentals/internal/db"
	"dubai-rentals/internal/geo"
	"dubai-rentals/internal/logger"
	"dubai-rentals/internal/scraper"
)

func main() {
	// Parse command line flags
	port := flag.Int("port", 0, "Port to listen on (default SERVER_PORT)")
	dbURL := flag.String("db", "", "SQLite path or postgres:// URL (default DATABASE_URL)")
	noStore := flag.Bool("no-store", false, "Disable run history")
	valhalla := flag.String("valhalla", os.Getenv("VALHALLA_URL"), "Valhalla routing server for commute estimates")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *port != 0 {
		cfg.ServerPort = *port
	}
	if *dbURL != "" {
		cfg.DatabaseURL = *dbURL
	}

	appLog := logger.NewLogger(cfg.LogLevel)

	var database *db.DB
	if !*noStore {
		if cfg.IsPostgres() {
			log.Printf("Database: PostgreSQL")
		} else {
			log.Printf("Database path: %s", cfg.DatabaseURL)
		}
		database, err = db.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer database.Close()
	}

	s, err := scraper.New(cfg.Scraper(), appLog)
	if err != nil {
		log.Fatalf("Failed to create scraper: %v", err)
	}
	defer s.Close()

	handlers := api.NewHandlers(s, database, appLog,
		api.WithGeocoder(geo.NewGeocoder(os.Getenv("NOMINATIM_URL"))),
		api.WithRouter(geo.NewRouter(*valhalla)),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           api.NewRouter(handlers),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Println("Received interrupt signal, shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	// Start server
	log.Printf("Starting server on http://localhost%s (sources: %v)", srv.Addr, s.Sources())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}
