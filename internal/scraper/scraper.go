package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dubai-rentals/internal/aggregator"
	"dubai-rentals/internal/logger"
	"dubai-rentals/internal/models"
	"dubai-rentals/internal/reconcile"
	"dubai-rentals/internal/validate"
)

// Config holds scraper configuration
type Config struct {
	ScrapingBeeAPIKey string
	DLDAPIKey         string
	DLDBaseURL        string

	MaxConcurrent int
	DelayBetween  time.Duration // queue dispatch interval
	HostRPS       float64
	UseBrowser    bool // render Dubizzle in headless Chrome
	Headless      bool
	BrowserPath   string // Chrome binary, empty searches the usual locations

	Sources       []string // empty means every source
	FallbackSeed  uint64   // 0 seeds from the clock
	FallbackCount int

	Validator validate.Config
	Threshold float64
	Options   Options
}

// DefaultConfig returns default scraper settings
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 3,
		DelayBetween:  1500 * time.Millisecond,
		HostRPS:       0.5,
		Headless:      true,
		FallbackCount: 6,
		Validator:     validate.DefaultConfig(),
		Threshold:     reconcile.DefaultThreshold,
		Options:       DefaultOptions(),
	}
}

// SourceNames lists every supported source
var SourceNames = []string{"bayut", "propertyfinder", "dubizzle", "dld"}

// Scraper owns the shared transports and the adapter set for every enabled source
type Scraper struct {
	config   Config
	log      *logger.Logger
	queue    *Queue
	browser  *BrowserFetcher
	adapters []*Adapter
	agg      *aggregator.Aggregator
}

// New creates a new Scraper instance
func New(config Config, log *logger.Logger) (*Scraper, error) {
	if log == nil {
		log = logger.Discard()
	}

	s := &Scraper{
		config: config,
		log:    log,
		queue:  NewQueue(config.MaxConcurrent, config.DelayBetween),
	}

	limiter := NewHostLimiter(config.HostRPS, 1)
	direct := NewHTTPFetcher(config.Options.Timeout, limiter)

	var web Fetcher = direct
	if config.ScrapingBeeAPIKey != "" {
		web = NewScrapingBeeClient(config.ScrapingBeeAPIKey, limiter)
		log.Info("using ScrapingBee for portal pages")
	}

	rendered := web
	if config.UseBrowser {
		s.browser = NewBrowserFetcher(config.Headless, config.Options.Timeout)
		s.browser.execPath = config.BrowserPath
		if err := s.browser.Start(); err != nil {
			log.Warn("headless browser unavailable, using HTTP", "error", err)
			s.browser = nil
		} else {
			rendered = s.browser
		}
	}

	seed := config.FallbackSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	fallback := NewFallbackGenerator(seed, config.FallbackCount)
	validator := validate.New(config.Validator, validate.NewEstimator())

	for _, name := range s.enabled() {
		var src Source
		fetcher := web
		switch name {
		case "bayut":
			src = NewBayut()
		case "propertyfinder":
			src = NewPropertyFinder()
		case "dubizzle":
			src = NewDubizzle()
			fetcher = rendered
		case "dld":
			// JSON API, no proxy needed
			src = NewDLD(config.DLDAPIKey, config.DLDBaseURL)
			fetcher = direct
		default:
			s.Close()
			return nil, fmt.Errorf("unknown source %q", name)
		}

		s.adapters = append(s.adapters, NewAdapter(AdapterConfig{
			Source:    src,
			Fetcher:   fetcher,
			Queue:     s.queue,
			Validator: validator,
			Fallback:  fallback,
			Options:   config.Options,
			Logger:    log,
		}))
	}

	adapters := make([]aggregator.Adapter, len(s.adapters))
	for i, a := range s.adapters {
		adapters[i] = a
	}
	s.agg = aggregator.New(adapters,
		aggregator.WithLogger(log),
		aggregator.WithThreshold(config.Threshold),
	)

	return s, nil
}

func (s *Scraper) enabled() []string {
	if len(s.config.Sources) == 0 {
		return SourceNames
	}
	var names []string
	seen := make(map[string]bool)
	for _, n := range s.config.Sources {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	return names
}

// Sources returns the names of the configured sources in run order
func (s *Scraper) Sources() []string {
	return s.agg.Sources()
}

// Run executes one aggregation over every source for the area
func (s *Scraper) Run(ctx context.Context, area string, filter models.RentalFilter) *models.AggregateResult {
	s.log.Info("starting aggregation", "area", area, "sources", strings.Join(s.Sources(), ","))
	return s.agg.Aggregate(ctx, area, filter)
}

// Stats returns the shared request queue counters
func (s *Scraper) Stats() QueueStats {
	return s.queue.Stats()
}

// Close releases the queue and the browser
func (s *Scraper) Close() {
	s.queue.Close()
	if s.browser != nil {
		s.browser.Stop()
	}
}
