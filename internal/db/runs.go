package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"dubai-rentals/internal/models"
)

// ErrRunNotFound is returned by GetRun for unknown IDs
var ErrRunNotFound = errors.New("run not found")

// Run is a stored aggregation summary
type Run struct {
	ID              string              `db:"id" json:"id"`
	Area            string              `db:"area" json:"area"`
	FilterJSON      string              `db:"filter_json" json:"-"`
	TotalConfidence float64             `db:"total_confidence" json:"total_confidence"`
	Degraded        bool                `db:"degraded" json:"degraded"`
	ListingCount    int                 `db:"listing_count" json:"listing_count"`
	ErrorsJSON      string              `db:"errors_json" json:"-"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	Filter          models.RentalFilter `db:"-" json:"filter"`
	Errors          []string            `db:"-" json:"errors"`
	Sources         []RunSource         `db:"-" json:"sources,omitempty"`
}

// RunSource is one adapter's outcome within a run
type RunSource struct {
	RunID        string    `db:"run_id" json:"-"`
	Source       string    `db:"source" json:"source"`
	Confidence   float64   `db:"confidence" json:"confidence"`
	Fallback     bool      `db:"fallback" json:"fallback"`
	ListingCount int       `db:"listing_count" json:"listing_count"`
	Skipped      int       `db:"skipped" json:"skipped"`
	ErrorsJSON   string    `db:"errors_json" json:"-"`
	FetchedAt    time.Time `db:"fetched_at" json:"fetched_at"`
	Errors       []string  `db:"-" json:"errors"`
}

type runListing struct {
	RunID        string  `db:"run_id"`
	Position     int     `db:"position"`
	ListingID    string  `db:"listing_id"`
	Source       string  `db:"source"`
	Origin       string  `db:"origin"`
	PropertyType string  `db:"property_type"`
	Bedrooms     int     `db:"bedrooms"`
	SizeSqft     float64 `db:"size_sqft"`
	Rent         float64 `db:"rent"`
	Location     string  `db:"location"`
	Confidence   float64 `db:"confidence"`
	DataJSON     string  `db:"data_json"`
}

// SaveRun stores an aggregation result with its sources and listings and
// returns the new run ID
func (db *DB) SaveRun(ctx context.Context, res *models.AggregateResult) (string, error) {
	filterJSON, err := json.Marshal(res.Filter)
	if err != nil {
		return "", fmt.Errorf("encoding filter: %w", err)
	}

	created := res.GeneratedAt
	if created.IsZero() {
		created = time.Now()
	}

	run := Run{
		ID:              uuid.NewString(),
		Area:            res.Area,
		FilterJSON:      string(filterJSON),
		TotalConfidence: res.TotalConfidence,
		Degraded:        res.Degraded,
		ListingCount:    len(res.Listings),
		ErrorsJSON:      encodeStrings(res.Errors),
		CreatedAt:       created.UTC(),
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO runs (id, area, filter_json, total_confidence, degraded, listing_count, errors_json, created_at)
		VALUES (:id, :area, :filter_json, :total_confidence, :degraded, :listing_count, :errors_json, :created_at)
	`, run)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for _, s := range res.Sources {
		src := RunSource{
			RunID:        run.ID,
			Source:       s.Source,
			Confidence:   s.Confidence,
			Fallback:     s.Fallback,
			ListingCount: len(s.Listings),
			Skipped:      s.Skipped,
			ErrorsJSON:   encodeStrings(s.Errors),
			FetchedAt:    s.FetchedAt.UTC(),
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO run_sources (run_id, source, confidence, fallback, listing_count, skipped, errors_json, fetched_at)
			VALUES (:run_id, :source, :confidence, :fallback, :listing_count, :skipped, :errors_json, :fetched_at)
		`, src)
		if err != nil {
			return "", fmt.Errorf("failed to insert source %s: %w", s.Source, err)
		}
	}

	for i, l := range res.Listings {
		data, err := json.Marshal(l)
		if err != nil {
			return "", fmt.Errorf("encoding listing %s: %w", l.ID, err)
		}
		row := runListing{
			RunID:        run.ID,
			Position:     i,
			ListingID:    l.ID,
			Source:       l.Source,
			Origin:       string(l.Origin),
			PropertyType: string(l.PropertyType),
			Bedrooms:     l.Bedrooms,
			SizeSqft:     l.SizeSqft,
			Rent:         l.Rent,
			Location:     l.Location,
			Confidence:   l.Confidence,
			DataJSON:     string(data),
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO run_listings (run_id, position, listing_id, source, origin, property_type,
				bedrooms, size_sqft, rent, location, confidence, data_json)
			VALUES (:run_id, :position, :listing_id, :source, :origin, :property_type,
				:bedrooms, :size_sqft, :rent, :location, :confidence, :data_json)
		`, row)
		if err != nil {
			return "", fmt.Errorf("failed to insert listing %s: %w", l.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return run.ID, nil
}

// ListRuns returns the newest runs first, optionally restricted to an area
func (db *DB) ListRuns(ctx context.Context, area string, limit int) ([]Run, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT id, area, filter_json, total_confidence, degraded, listing_count, errors_json, created_at
		FROM runs
	`
	var args []interface{}
	if a := strings.TrimSpace(area); a != "" {
		query += " WHERE LOWER(area) = LOWER(?)"
		args = append(args, a)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", limit)

	runs := []Run{}
	if err := db.SelectContext(ctx, &runs, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	for i := range runs {
		if err := runs[i].decode(); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// GetRun returns a run with its per-source outcomes
func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := db.GetContext(ctx, &run, db.Rebind(`
		SELECT id, area, filter_json, total_confidence, degraded, listing_count, errors_json, created_at
		FROM runs WHERE id = ?
	`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if err := run.decode(); err != nil {
		return nil, err
	}

	run.Sources = []RunSource{}
	err = db.SelectContext(ctx, &run.Sources, db.Rebind(`
		SELECT run_id, source, confidence, fallback, listing_count, skipped, errors_json, fetched_at
		FROM run_sources WHERE run_id = ? ORDER BY source
	`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run sources: %w", err)
	}
	for i := range run.Sources {
		run.Sources[i].Errors = decodeStrings(run.Sources[i].ErrorsJSON)
	}

	return &run, nil
}

// RunListings returns the listings of a run in their stored order
func (db *DB) RunListings(ctx context.Context, id string) ([]models.RentalListing, error) {
	var rows []string
	err := db.SelectContext(ctx, &rows, db.Rebind(`
		SELECT data_json FROM run_listings WHERE run_id = ? ORDER BY position
	`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run listings: %w", err)
	}

	listings := make([]models.RentalListing, 0, len(rows))
	for _, data := range rows {
		var l models.RentalListing
		if err := json.Unmarshal([]byte(data), &l); err != nil {
			return nil, fmt.Errorf("decoding stored listing: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, nil
}

// DeleteRunsBefore removes runs created before cutoff and returns how many were removed
func (db *DB) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Children first; SQLite only cascades with foreign_keys enabled
	sub := "SELECT id FROM runs WHERE created_at < ?"
	for _, table := range []string{"run_listings", "run_sources"} {
		q := fmt.Sprintf("DELETE FROM %s WHERE run_id IN (%s)", table, sub)
		if _, err := tx.ExecContext(ctx, tx.Rebind(q), cutoff.UTC()); err != nil {
			return 0, fmt.Errorf("failed to prune %s: %w", table, err)
		}
	}

	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM runs WHERE created_at < ?"), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return n, nil
}

func (r *Run) decode() error {
	r.Errors = decodeStrings(r.ErrorsJSON)
	if r.FilterJSON != "" {
		if err := json.Unmarshal([]byte(r.FilterJSON), &r.Filter); err != nil {
			return fmt.Errorf("decoding filter of run %s: %w", r.ID, err)
		}
	}
	return nil
}

func encodeStrings(s []string) string {
	if len(s) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(s)
	return string(data)
}

func decodeStrings(s string) []string {
	out := []string{}
	json.Unmarshal([]byte(s), &out)
	return out
}
