// Package aggregator runs every source adapter for an area and merges the results.
package aggregator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"dubai-rentals/internal/logger"
	"dubai-rentals/internal/models"
	"dubai-rentals/internal/reconcile"
)

// Adapter is anything that can fetch listings for an area. scraper.Adapter
// implements it; tests substitute fakes.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, area string, filter models.RentalFilter) (*models.ScrapeResult, error)
}

// Aggregator fans out to all adapters and reconciles their listings
type Aggregator struct {
	adapters []Adapter
	cross    *reconcile.CrossValidator
	log      *logger.Logger
	now      func() time.Time
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(a *Aggregator) { a.log = l }
}

// WithThreshold sets the cross-validation deviation threshold
func WithThreshold(t float64) Option {
	return func(a *Aggregator) { a.cross = reconcile.NewCrossValidator(t) }
}

// New creates an aggregator over adapters, run in the given order
func New(adapters []Adapter, opts ...Option) *Aggregator {
	a := &Aggregator{
		adapters: adapters,
		cross:    reconcile.NewCrossValidator(reconcile.DefaultThreshold),
		log:      logger.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Sources returns the adapter names in run order
func (a *Aggregator) Sources() []string {
	names := make([]string, len(a.adapters))
	for i, ad := range a.adapters {
		names[i] = ad.Name()
	}
	return names
}

// Aggregate runs every adapter concurrently and waits for all of them.
// An adapter error or panic becomes a failed ScrapeResult; nothing escapes.
//
// TotalConfidence weights each source equally, failed sources counting as 0.
// The result is degraded when no source returned live data, including when
// every listing was synthesised by fallback.
func (a *Aggregator) Aggregate(ctx context.Context, area string, filter models.RentalFilter) *models.AggregateResult {
	start := a.now()
	results := make([]models.ScrapeResult, len(a.adapters))

	var wg sync.WaitGroup
	for i, ad := range a.adapters {
		wg.Add(1)
		go func(i int, ad Adapter) {
			defer wg.Done()
			results[i] = a.run(ctx, ad, area, filter)
		}(i, ad)
	}
	wg.Wait()

	var merged []models.RentalListing
	var errs []string
	failed, live := 0, 0
	confidence := 0.0

	for _, r := range results {
		merged = append(merged, r.Listings...)
		for _, e := range r.Errors {
			errs = append(errs, fmt.Sprintf("%s: %s", r.Source, e))
		}
		if r.Failed() {
			failed++
		}
		if r.Live() {
			live++
		}
		confidence += r.Confidence
	}

	if len(results) > 0 {
		confidence = math.Round(confidence/float64(len(results))*100) / 100
	}

	listings := a.cross.CrossValidate(reconcile.Dedupe(merged))

	res := &models.AggregateResult{
		Area:            area,
		Filter:          filter,
		Listings:        listings,
		Sources:         results,
		TotalConfidence: confidence,
		Errors:          errs,
		Degraded:        len(results) > 0 && live == 0,
		GeneratedAt:     a.now(),
	}
	if res.Errors == nil {
		res.Errors = []string{}
	}

	a.log.Info("aggregation complete",
		"area", area,
		"sources", len(results),
		"failed", failed,
		"live", live,
		"merged", len(merged),
		"listings", len(listings),
		"confidence", confidence,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return res
}

func (a *Aggregator) run(ctx context.Context, ad Adapter, area string, filter models.RentalFilter) (res models.ScrapeResult) {
	name := ad.Name()
	failure := func(msg string) models.ScrapeResult {
		return models.ScrapeResult{
			Source:    name,
			Listings:  []models.RentalListing{},
			FetchedAt: a.now(),
			Errors:    []string{msg},
		}
	}

	defer func() {
		if r := recover(); r != nil {
			a.log.Error("adapter panicked", "source", name, "panic", r)
			res = failure(fmt.Sprintf("adapter panicked: %v", r))
		}
	}()

	out, err := ad.Fetch(ctx, area, filter)
	if err != nil {
		a.log.Warn("adapter failed", "source", name, "error", err)
		return failure(err.Error())
	}
	if out == nil {
		return failure("adapter returned no result")
	}

	r := *out
	if r.Source == "" {
		r.Source = name
	}
	if r.Listings == nil {
		r.Listings = []models.RentalListing{}
	}
	return r
}
