// Package report renders aggregation results as aligned terminal tables.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"dubai-rentals/internal/db"
	"dubai-rentals/internal/models"
)

// Table is a simple column-aligned text table
type Table struct {
	Headers []string
	Rows    [][]string
	// MaxWidth truncates cells wider than this many columns; 0 disables truncation
	MaxWidth int
}

// Append adds a row
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render writes the table. Widths are measured in terminal columns, not bytes.
func (t *Table) Render(w io.Writer) error {
	cols := len(t.Headers)
	for _, row := range t.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return nil
	}

	cell := func(row []string, i int) string {
		if i >= len(row) {
			return ""
		}
		if t.MaxWidth > 0 {
			return runewidth.Truncate(row[i], t.MaxWidth, "…")
		}
		return row[i]
	}

	widths := make([]int, cols)
	for _, row := range append([][]string{t.Headers}, t.Rows...) {
		for i := 0; i < cols; i++ {
			if width := runewidth.StringWidth(cell(row, i)); width > widths[i] {
				widths[i] = width
			}
		}
	}

	writeRow := func(row []string) error {
		var sb strings.Builder
		for i := 0; i < cols; i++ {
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(runewidth.FillRight(cell(row, i), widths[i]))
		}
		_, err := fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
		return err
	}

	if len(t.Headers) > 0 {
		if err := writeRow(t.Headers); err != nil {
			return err
		}
		sep := make([]string, cols)
		for i := range sep {
			sep[i] = strings.Repeat("-", widths[i])
		}
		if err := writeRow(sep); err != nil {
			return err
		}
	}
	for _, row := range t.Rows {
		if err := writeRow(row); err != nil {
			return err
		}
	}
	return nil
}

// AED formats an annual amount like "AED 125,000"
func AED(v float64) string {
	return "AED " + humanize.Comma(int64(v+0.5))
}

// Bedrooms formats a bedroom count, 0 being a studio
func Bedrooms(n int) string {
	if n == 0 {
		return "Studio"
	}
	return fmt.Sprintf("%d BR", n)
}

// Listings renders one row per listing
func Listings(w io.Writer, listings []models.RentalListing) error {
	t := &Table{
		Headers:  []string{"SOURCE", "TYPE", "BEDS", "SIZE", "RENT", "AED/SQFT", "BUILDING", "LOCATION", "CONF"},
		MaxWidth: 32,
	}
	for i := range listings {
		l := &listings[i]
		size, ppsf := "-", "-"
		if l.SizeSqft > 0 {
			size = humanize.Comma(int64(l.SizeSqft+0.5)) + " sqft"
			ppsf = humanize.Ftoa(roundTo(l.PricePerSqft(), 1))
		}
		source := l.Source
		if l.Origin == models.OriginFallback {
			source += "*"
		}
		t.Append(source, string(l.PropertyType), Bedrooms(l.Bedrooms), size, AED(l.Rent), ppsf,
			l.PropertyName, l.Location, fmt.Sprintf("%.2f", l.Confidence))
	}
	return t.Render(w)
}

// Sources renders the per-adapter outcome of a run
func Sources(w io.Writer, results []models.ScrapeResult) error {
	t := &Table{Headers: []string{"SOURCE", "LISTINGS", "SKIPPED", "CONFIDENCE", "STATUS"}, MaxWidth: 60}
	for _, r := range results {
		status := "ok"
		switch {
		case r.Fallback:
			status = "fallback"
		case r.Failed():
			status = "failed"
		}
		if len(r.Errors) > 0 {
			status += ": " + strings.Join(r.Errors, "; ")
		}
		t.Append(r.Source, humanize.Comma(int64(len(r.Listings))), humanize.Comma(int64(r.Skipped)),
			fmt.Sprintf("%.2f", r.Confidence), status)
	}
	return t.Render(w)
}

// Summary writes the headline figures of an aggregation
func Summary(w io.Writer, res *models.AggregateResult) error {
	_, err := fmt.Fprintf(w, "%s: %s listings, confidence %.2f", res.Area,
		humanize.Comma(int64(len(res.Listings))), res.TotalConfidence)
	if err != nil {
		return err
	}
	if n := len(res.Listings); n > 0 {
		var total float64
		for _, l := range res.Listings {
			total += l.Rent
		}
		if _, err := fmt.Fprintf(w, ", mean rent %s", AED(total/float64(n))); err != nil {
			return err
		}
	}
	if res.Degraded {
		if _, err := fmt.Fprint(w, " (degraded: no live data)"); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(w)
	return err
}

// Runs renders stored run summaries, ages relative to now
func Runs(w io.Writer, runs []db.Run, now time.Time) error {
	t := &Table{Headers: []string{"ID", "AREA", "LISTINGS", "CONFIDENCE", "DEGRADED", "CREATED"}}
	for _, r := range runs {
		degraded := ""
		if r.Degraded {
			degraded = "yes"
		}
		t.Append(r.ID, r.Area, humanize.Comma(int64(r.ListingCount)), fmt.Sprintf("%.2f", r.TotalConfidence),
			degraded, humanize.RelTime(r.CreatedAt, now, "ago", "from now"))
	}
	return t.Render(w)
}

func roundTo(v float64, places int) float64 {
	p := 1.0
	for i := 0; i < places; i++ {
		p *= 10
	}
	return float64(int64(v*p+0.5)) / p
}
