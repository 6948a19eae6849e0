// Package handlers contains the HTTP handler implementations for the
// Rainparade API. Handlers depend on locally defined service interfaces so
// tests can substitute stubs without touching the concrete pipeline.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"rainparade/internal/core"
	"rainparade/internal/forecast"
	"rainparade/internal/types"
)

// maxBatchLocations caps how many locations one batch request may carry.
const maxBatchLocations = 25

// batchConcurrency limits how many locations are forecast in parallel.
const batchConcurrency = 8

// Forecaster is the assembly contract the climate handler depends on.
type Forecaster interface {
	Assemble(ctx context.Context, dr types.DateRange, pt types.GeoPoint) (*types.ForecastResult, error)
}

// ModelStatus exposes model availability for the status endpoint.
type ModelStatus interface {
	Load() forecast.LoadResult
	Info() forecast.ModelInfo
}

// ForecastMetrics records forecast provenance telemetry. Optional; a nil
// recorder disables it.
type ForecastMetrics interface {
	RecordForecastServed(source types.ForecastSource, days int)
}

// ClimateHandler maps HTTP requests to the forecast pipeline.
type ClimateHandler struct {
	forecaster Forecaster
	model      ModelStatus
	validator  *core.Validator
	metrics    ForecastMetrics
	logger     *slog.Logger
}

// NewClimateHandler creates a ClimateHandler with the provided dependencies.
// metrics may be nil.
func NewClimateHandler(
	forecaster Forecaster,
	model ModelStatus,
	val *core.Validator,
	metrics ForecastMetrics,
	logger *slog.Logger,
) *ClimateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClimateHandler{
		forecaster: forecaster,
		model:      model,
		validator:  val,
		metrics:    metrics,
		logger:     logger,
	}
}

// RegisterRoutes mounts the climate endpoints onto the mux.
func (h *ClimateHandler) RegisterRoutes(r chi.Router) {
	r.Route("/climate", func(r chi.Router) {
		r.Post("/predict", h.HandlePredict)
		r.Post("/predict/batch", h.HandlePredictBatch)
		r.Get("/status", h.HandleStatus)
	})
}

// PredictRequest is the body of POST /v1/climate/predict. Latitude and
// longitude are pointers so a missing field is distinguishable from zero
// (the equator and the prime meridian are valid inputs).
type PredictRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
	StartDate string   `json:"start_date" validate:"required"`
	EndDate   string   `json:"end_date" validate:"required"`
	Activity  string   `json:"activity" validate:"required,activity"`
}

// PredictResponse is the data payload of a successful prediction: the
// assembled forecast plus the activity recommendation.
type PredictResponse struct {
	*types.ForecastResult
	Recommendation types.Recommendation `json:"recommendation"`
}

// HandlePredict handles POST /v1/climate/predict.
func (h *ClimateHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	pt := types.GeoPoint{Latitude: *req.Latitude, Longitude: *req.Longitude}
	dr, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if err := types.ValidateGeoPoint(pt); err != nil {
		core.Error(w, r, err)
		return
	}

	result, err := h.forecaster.Assemble(r.Context(), dr, pt)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.recordServed(result)

	core.Success(w, r, http.StatusOK, PredictResponse{
		ForecastResult: result,
		Recommendation: forecast.Classify(result, req.Activity),
	})
}

// BatchLocation is one location inside a batch prediction request.
type BatchLocation struct {
	Label     string   `json:"label"`
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
}

// BatchPredictRequest is the body of POST /v1/climate/predict/batch. All
// locations share one date range and activity.
type BatchPredictRequest struct {
	Locations []BatchLocation `json:"locations" validate:"required,min=1,dive"`
	StartDate string          `json:"start_date" validate:"required"`
	EndDate   string          `json:"end_date" validate:"required"`
	Activity  string          `json:"activity" validate:"required,activity"`
}

// BatchEntryError is the per-location error payload inside a batch response.
type BatchEntryError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchEntry is the outcome for one requested location. Exactly one of
// Forecast or Error is set.
type BatchEntry struct {
	Index          int                   `json:"index"`
	Label          string                `json:"label,omitempty"`
	Forecast       *types.ForecastResult `json:"forecast,omitempty"`
	Recommendation *types.Recommendation `json:"recommendation,omitempty"`
	Error          *BatchEntryError      `json:"error,omitempty"`
}

// BatchPredictResponse is the data payload of a batch prediction.
type BatchPredictResponse struct {
	Results   []BatchEntry `json:"results"`
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}

// HandlePredictBatch handles POST /v1/climate/predict/batch. Locations are
// forecast concurrently with a bounded fan-out; failures are isolated per
// location so one bad coordinate does not sink the batch.
func (h *ClimateHandler) HandlePredictBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchPredictRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}
	if len(req.Locations) > maxBatchLocations {
		core.Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeValidationBatchSize,
			"too many locations in batch request",
			nil,
			map[string]any{"max": maxBatchLocations, "got": len(req.Locations)},
		))
		return
	}

	dr, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	entries := make([]BatchEntry, len(req.Locations))

	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(batchConcurrency)

	for i, loc := range req.Locations {
		g.Go(func() error {
			entries[i] = h.forecastOne(ctx, i, loc, dr, req.Activity)
			return nil
		})
	}
	// Goroutines never return errors; Wait only synchronizes completion.
	_ = g.Wait()

	resp := BatchPredictResponse{
		Results: entries,
		Total:   len(entries),
	}
	for _, e := range entries {
		if e.Error != nil {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}

	core.Success(w, r, http.StatusOK, resp)
}

// forecastOne forecasts a single batch location, converting any failure into
// a per-entry error payload.
func (h *ClimateHandler) forecastOne(ctx context.Context, idx int, loc BatchLocation, dr types.DateRange, activity string) BatchEntry {
	entry := BatchEntry{Index: idx, Label: loc.Label}

	pt := types.GeoPoint{Latitude: *loc.Latitude, Longitude: *loc.Longitude}
	if err := types.ValidateGeoPoint(pt); err != nil {
		entry.Error = toEntryError(err)
		return entry
	}

	result, err := h.forecaster.Assemble(ctx, dr, pt)
	if err != nil {
		h.logger.Warn("batch location forecast failed",
			slog.Int("index", idx),
			slog.String("error", err.Error()),
		)
		entry.Error = toEntryError(err)
		return entry
	}

	h.recordServed(result)

	rec := forecast.Classify(result, activity)
	entry.Forecast = result
	entry.Recommendation = &rec
	return entry
}

// toEntryError flattens an error into the batch entry payload without
// leaking internal details.
func toEntryError(err error) *BatchEntryError {
	if appErr, ok := err.(*types.AppError); ok {
		return &BatchEntryError{Code: string(appErr.Code), Message: appErr.Message}
	}
	return &BatchEntryError{
		Code:    string(types.ErrCodeInternalUnexpected),
		Message: "forecast failed",
	}
}

// StatusResponse is the data payload of GET /v1/climate/status.
type StatusResponse struct {
	ModelAvailable  bool     `json:"model_available"`
	ModelName       string   `json:"model_name,omitempty"`
	DataSource      string   `json:"data_source,omitempty"`
	FallbackReason  string   `json:"fallback_reason,omitempty"`
	MaxForecastDays int      `json:"max_forecast_days"`
	Activities      []string `json:"activities"`
	Endpoints       []string `json:"endpoints"`
}

// HandleStatus handles GET /v1/climate/status. It reports which prediction
// path the service is on without running any inference.
func (h *ClimateHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	load := h.model.Load()

	resp := StatusResponse{
		ModelAvailable:  load.Available,
		MaxForecastDays: types.MaxForecastDays,
		Activities:      knownActivityList(),
		Endpoints: []string{
			"POST /v1/climate/predict",
			"POST /v1/climate/predict/batch",
			"GET /v1/climate/status",
			"GET /v1/geo/reverse",
		},
	}

	if load.Available {
		info := h.model.Info()
		resp.ModelName = info.Name
		resp.DataSource = info.DataSource
	} else {
		resp.ModelName = forecast.SimulatedModelName
		resp.DataSource = forecast.SimulatedDataSource
		resp.FallbackReason = load.Reason
	}

	core.Success(w, r, http.StatusOK, resp)
}

// knownActivityList returns the accepted activity labels in stable order.
func knownActivityList() []string {
	out := make([]string, 0, len(types.KnownActivities))
	for a := range types.KnownActivities {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// parseDateRange parses the wire date strings and builds a validated range.
func parseDateRange(startStr, endStr string) (types.DateRange, error) {
	start, err := time.Parse(types.DateOnly, startStr)
	if err != nil {
		return types.DateRange{}, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidDate,
			"start_date must be formatted YYYY-MM-DD",
			err,
			map[string]any{"start_date": startStr},
		)
	}
	end, err := time.Parse(types.DateOnly, endStr)
	if err != nil {
		return types.DateRange{}, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidDate,
			"end_date must be formatted YYYY-MM-DD",
			err,
			map[string]any{"end_date": endStr},
		)
	}
	return types.NewDateRange(start, end)
}

// recordServed publishes provenance telemetry when a collector is wired.
func (h *ClimateHandler) recordServed(result *types.ForecastResult) {
	if h.metrics == nil || len(result.Predictions) == 0 {
		return
	}
	h.metrics.RecordForecastServed(result.Predictions[0].Source, result.TotalDays)
}
