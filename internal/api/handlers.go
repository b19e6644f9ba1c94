package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"dubai-rentals/internal/db"
	"dubai-rentals/internal/geo"
	"dubai-rentals/internal/logger"
	"dubai-rentals/internal/models"
	"dubai-rentals/internal/validate"
)

// Runner executes one aggregation run
type Runner interface {
	Run(ctx context.Context, area string, filter models.RentalFilter) *models.AggregateResult
	Sources() []string
}

// Locator resolves free-text places to coordinates
type Locator interface {
	Geocode(ctx context.Context, place string) (geo.Location, error)
}

// CommuteRouter estimates drive times to Downtown Dubai
type CommuteRouter interface {
	CommuteToDowntown(ctx context.Context, area geo.AreaProfile) (*geo.Commute, error)
}

// Handlers contains HTTP handlers and their dependencies
type Handlers struct {
	runner    Runner
	db        *db.DB // nil disables run history
	estimator *validate.Estimator
	geocoder  Locator
	router    CommuteRouter
	log       *logger.Logger
}

// Option configures optional handler dependencies
type Option func(*Handlers)

// WithGeocoder enables /api/locate
func WithGeocoder(l Locator) Option {
	return func(h *Handlers) { h.geocoder = l }
}

// WithRouter enables /api/areas/{name}/commute
func WithRouter(r CommuteRouter) Option {
	return func(h *Handlers) { h.router = r }
}

// NewHandlers creates a new Handlers instance
func NewHandlers(runner Runner, database *db.DB, log *logger.Logger, opts ...Option) *Handlers {
	if log == nil {
		log = logger.Discard()
	}
	h := &Handlers{
		runner:    runner,
		db:        database,
		estimator: validate.NewEstimator(),
		log:       log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type rentalsResponse struct {
	*models.AggregateResult
	RunID string `json:"run_id,omitempty"`
}

// SearchRentals handles GET /api/rentals
func (h *Handlers) SearchRentals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	area := strings.TrimSpace(q.Get("area"))
	if area == "" {
		http.Error(w, "area is required", http.StatusBadRequest)
		return
	}

	raw := models.RawFilter{
		PropertyType: q.Get("propertyType"),
		Bedrooms:     q.Get("bedrooms"),
		SizeMin:      q.Get("sizeMin"),
		SizeMax:      q.Get("sizeMax"),
		RentMin:      q.Get("rentMin"),
		RentMax:      q.Get("rentMax"),
		Furnishing:   q.Get("furnishing"),
	}
	filter, err := raw.Parse()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	save := parseBool(q.Get("save"))
	if save && h.db == nil {
		http.Error(w, "run history is not configured", http.StatusServiceUnavailable)
		return
	}

	result := h.runner.Run(r.Context(), area, filter)
	resp := rentalsResponse{AggregateResult: result}

	if save {
		id, err := h.db.SaveRun(r.Context(), result)
		if err != nil {
			h.log.Error("failed to save run", "area", area, "error", err)
			http.Error(w, "failed to save run", http.StatusInternalServerError)
			return
		}
		resp.RunID = id
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type areaSummary struct {
	Name            string   `json:"name"`
	Aliases         []string `json:"aliases,omitempty"`
	BaseRent        float64  `json:"base_rent"`
	Villas          bool     `json:"villas"`
	Latitude        float64  `json:"latitude"`
	Longitude       float64  `json:"longitude"`
	DowntownKm      float64  `json:"distance_downtown_km"`
	NearestLandmark string   `json:"nearest_landmark"`
	LandmarkKm      float64  `json:"distance_landmark_km"`
}

// ListAreas handles GET /api/areas
func (h *Handlers) ListAreas(w http.ResponseWriter, r *http.Request) {
	areas := make([]areaSummary, 0, len(geo.Areas))
	for _, a := range geo.Areas {
		lm, lmDist := geo.FindNearestLandmark(a.Latitude, a.Longitude)
		areas = append(areas, areaSummary{
			Name:            a.Name,
			Aliases:         a.Aliases,
			BaseRent:        a.BaseRent,
			Villas:          a.Villas,
			Latitude:        a.Latitude,
			Longitude:       a.Longitude,
			DowntownKm:      round1(a.DistanceToDowntown()),
			NearestLandmark: lm.Name,
			LandmarkKm:      round1(lmDist),
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"areas": areas,
		"count": len(areas),
	})
}

// AreaCommute handles GET /api/areas/{name}/commute
func (h *Handlers) AreaCommute(w http.ResponseWriter, r *http.Request) {
	area, ok := geo.LookupArea(chi.URLParam(r, "name"))
	if !ok {
		http.Error(w, "unknown area", http.StatusNotFound)
		return
	}
	if h.router == nil {
		http.Error(w, "routing is not configured", http.StatusServiceUnavailable)
		return
	}

	commute, err := h.router.CommuteToDowntown(r.Context(), area)
	if err != nil {
		h.log.Warn("commute lookup failed", "area", area.Name, "error", err)
		http.Error(w, "routing service unavailable", http.StatusBadGateway)
		return
	}

	h.writeJSON(w, http.StatusOK, commute)
}

// Estimate handles GET /api/estimate
func (h *Handlers) Estimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	area := strings.TrimSpace(q.Get("area"))
	if area == "" {
		http.Error(w, "area is required", http.StatusBadRequest)
		return
	}

	beds := 1
	if v := strings.TrimSpace(q.Get("bedrooms")); v != "" {
		if strings.EqualFold(v, "studio") {
			beds = 0
		} else {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				http.Error(w, "invalid bedrooms", http.StatusBadRequest)
				return
			}
			beds = n
		}
	}

	h.writeJSON(w, http.StatusOK, h.estimator.Estimate(area, beds))
}

// Locate handles GET /api/locate
func (h *Handlers) Locate(w http.ResponseWriter, r *http.Request) {
	place := strings.TrimSpace(r.URL.Query().Get("q"))
	if place == "" {
		http.Error(w, "q is required", http.StatusBadRequest)
		return
	}
	if h.geocoder == nil {
		http.Error(w, "geocoding is not configured", http.StatusServiceUnavailable)
		return
	}

	loc, err := h.geocoder.Geocode(r.Context(), place)
	if errors.Is(err, geo.ErrNoGeocodeResult) {
		http.Error(w, "place not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Warn("geocoding failed", "place", place, "error", err)
		http.Error(w, "geocoding service unavailable", http.StatusBadGateway)
		return
	}

	area, areaDist := geo.NearestArea(loc.Latitude, loc.Longitude)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"location":             loc,
		"nearest_area":         area.Name,
		"distance_area_km":     round1(areaDist),
		"distance_downtown_km": round1(geo.DistanceToDowntown(loc.Latitude, loc.Longitude)),
	})
}

// ListRuns handles GET /api/runs
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	if !h.requireDB(w) {
		return
	}
	q := r.URL.Query()

	limit := 0
	if v := q.Get("limit"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			limit = val
		}
	}

	runs, err := h.db.ListRuns(r.Context(), q.Get("area"), limit)
	if err != nil {
		h.log.Error("failed to list runs", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun handles GET /api/runs/{id}
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	if !h.requireDB(w) {
		return
	}

	run, err := h.db.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, db.ErrRunNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, run)
}

// RunListings handles GET /api/runs/{id}/listings
func (h *Handlers) RunListings(w http.ResponseWriter, r *http.Request) {
	if !h.requireDB(w) {
		return
	}
	id := chi.URLParam(r, "id")

	if _, err := h.db.GetRun(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrRunNotFound) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	listings, err := h.db.RunListings(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"listings": listings,
		"count":    len(listings),
	})
}

// Health handles GET /healthz
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			h.log.Error("database ping failed", "error", err)
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}

	h.writeJSON(w, code, map[string]interface{}{
		"status":  status,
		"sources": h.runner.Sources(),
		"storage": h.db != nil,
	})
}

func (h *Handlers) requireDB(w http.ResponseWriter) bool {
	if h.db == nil {
		http.Error(w, "run history is not configured", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (h *Handlers) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		h.log.Error("failed to encode response", "error", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(append(body, '\n'))
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
