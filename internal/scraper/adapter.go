package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dubai-rentals/internal/logger"
	"dubai-rentals/internal/models"
	"dubai-rentals/internal/validate"
)

// Parsed is the successful outcome of parsing one upstream payload.
// Items that could not be mapped are counted in Skipped.
type Parsed struct {
	Listings []models.RentalListing
	Skipped  int
}

// Source knows one upstream's query format and payload shape
type Source interface {
	Name() string
	BuildRequest(area string, filter models.RentalFilter) (Request, error)
	// Parse maps a raw payload to listings. A payload with an unexpected
	// overall shape returns an error wrapping ErrParseFailed.
	Parse(raw []byte, area string) (Parsed, error)
}

// Options tunes an Adapter
type Options struct {
	Timeout            time.Duration `yaml:"timeout"`
	ApplyCorrections   bool          `yaml:"apply_corrections"`
	UseFallback        bool          `yaml:"use_fallback"`
	FoundConfidence    float64       `yaml:"found_confidence"`
	EmptyConfidence    float64       `yaml:"empty_confidence"`
	FallbackConfidence float64       `yaml:"fallback_confidence"`
}

// DefaultOptions returns the standard adapter settings
func DefaultOptions() Options {
	return Options{
		Timeout:            30 * time.Second,
		ApplyCorrections:   true,
		UseFallback:        true,
		FoundConfidence:    0.9,
		EmptyConfidence:    0.3,
		FallbackConfidence: 0.3,
	}
}

// AdapterConfig wires an Adapter's collaborators
type AdapterConfig struct {
	Source    Source
	Fetcher   Fetcher
	Queue     *Queue // nil calls the fetcher directly
	Validator *validate.Validator
	Fallback  *FallbackGenerator // nil disables fallback data
	Options   Options
	Logger    *logger.Logger
}

// Adapter runs one Source end to end and converts every failure into data
type Adapter struct {
	source    Source
	fetcher   Fetcher
	queue     *Queue
	validator *validate.Validator
	fallback  *FallbackGenerator
	opts      Options
	log       *logger.Logger
	now       func() time.Time
}

// NewAdapter creates an adapter
func NewAdapter(cfg AdapterConfig) *Adapter {
	if cfg.Options.Timeout <= 0 {
		cfg.Options.Timeout = DefaultOptions().Timeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	if cfg.Validator == nil {
		cfg.Validator = validate.New(validate.DefaultConfig(), validate.NewEstimator())
	}
	return &Adapter{
		source:    cfg.Source,
		fetcher:   cfg.Fetcher,
		queue:     cfg.Queue,
		validator: cfg.Validator,
		fallback:  cfg.Fallback,
		opts:      cfg.Options,
		log:       cfg.Logger.With("source", cfg.Source.Name()),
		now:       time.Now,
	}
}

// Name returns the source name
func (a *Adapter) Name() string {
	return a.source.Name()
}

// Fetch retrieves, parses, validates and filters listings for an area.
// Upstream and parse problems are reported in the result, never as an error.
func (a *Adapter) Fetch(ctx context.Context, area string, filter models.RentalFilter) (*models.ScrapeResult, error) {
	start := a.now()
	result := &models.ScrapeResult{
		Source:    a.source.Name(),
		FetchedAt: start,
		Listings:  []models.RentalListing{},
	}

	req, err := a.source.BuildRequest(area, filter)
	if err != nil {
		return a.fail(result, fmt.Errorf("building request: %w", err), area, filter), nil
	}

	raw, err := a.do(ctx, req)
	if err != nil {
		return a.fail(result, unavailable(err), area, filter), nil
	}

	parsed, err := a.source.Parse(raw, area)
	if err != nil {
		if !errors.Is(err, ErrParseFailed) {
			err = fmt.Errorf("%w: %w", ErrParseFailed, err)
		}
		return a.fail(result, err, area, filter), nil
	}

	listings, dropped := a.screen(parsed.Listings, filter)
	result.Listings = listings
	result.Skipped = parsed.Skipped + dropped
	if len(listings) > 0 {
		result.Confidence = a.opts.FoundConfidence
	} else {
		result.Confidence = a.opts.EmptyConfidence
	}

	a.log.Info("fetched listings",
		"area", area,
		"parsed", len(parsed.Listings),
		"kept", len(listings),
		"skipped", result.Skipped,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return result, nil
}

func (a *Adapter) do(ctx context.Context, req Request) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	if a.queue == nil {
		return a.fetcher.Fetch(callCtx, req)
	}
	return Enqueue(callCtx, a.queue, func(ctx context.Context) ([]byte, error) {
		return a.fetcher.Fetch(ctx, req)
	})
}

// fail records err and, for unreachable upstreams, substitutes fallback data
func (a *Adapter) fail(result *models.ScrapeResult, err error, area string, filter models.RentalFilter) *models.ScrapeResult {
	result.Errors = append(result.Errors, err.Error())
	result.Confidence = 0

	if !a.opts.UseFallback || a.fallback == nil || !errors.Is(err, ErrUpstreamUnavailable) {
		a.log.Warn("fetch failed", "area", area, "error", err)
		return result
	}

	synthetic := a.fallback.Generate(a.source.Name(), area, filter)
	for i := range synthetic {
		synthetic[i].Confidence = a.opts.FallbackConfidence
	}
	result.Listings = synthetic
	result.Fallback = true
	result.Confidence = a.opts.FallbackConfidence

	a.log.Warn("fetch failed, using fallback data", "area", area, "error", err, "generated", len(synthetic))
	return result
}

// screen validates each listing, applies corrections when enabled and
// drops invalid listings and those outside the filter
func (a *Adapter) screen(in []models.RentalListing, filter models.RentalFilter) ([]models.RentalListing, int) {
	out := make([]models.RentalListing, 0, len(in))
	dropped := 0

	for _, l := range in {
		l = a.normalize(l)

		res := a.validator.Validate(&l)
		ok := res.IsValid
		if res.CorrectedFields != nil && a.opts.ApplyCorrections {
			l, ok = a.validator.Apply(l, res)
		} else {
			l.Confidence = res.Confidence
		}
		if !ok {
			a.log.Debug("dropping listing", "id", l.ID, "issues", res.Issues)
			dropped++
			continue
		}

		if !filter.Matches(&l) {
			continue
		}
		out = append(out, l)
	}

	return out, dropped
}

func (a *Adapter) normalize(l models.RentalListing) models.RentalListing {
	l = l.Clone()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Source == "" {
		l.Source = a.source.Name()
	}
	if l.Origin == "" {
		l.Origin = models.OriginLive
	}
	if l.RentPeriod == "" {
		l.RentPeriod = models.Yearly
	}
	if l.Furnishing == "" {
		l.Furnishing = models.Unfurnished
	}
	if l.Bathrooms <= 0 {
		l.Bathrooms = max(1, l.Bedrooms)
	}
	l.Amenities = models.UniqueStrings(l.Amenities)
	if l.FullAddress == "" {
		l.FullAddress = l.BuildFullAddress()
	}
	return l
}
