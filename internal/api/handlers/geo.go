package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"rainparade/internal/core"
	"rainparade/internal/types"
)

// GeocodeService is the reverse-geocoding contract the geo handler depends
// on.
type GeocodeService interface {
	Reverse(ctx context.Context, pt types.GeoPoint) (*types.Address, error)
}

// GeoHandler maps HTTP requests to the geocoding service.
type GeoHandler struct {
	service GeocodeService
	logger  *slog.Logger
}

// NewGeoHandler creates a GeoHandler with the provided dependencies.
func NewGeoHandler(svc GeocodeService, logger *slog.Logger) *GeoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeoHandler{
		service: svc,
		logger:  logger,
	}
}

// RegisterRoutes mounts the geo endpoints onto the mux.
func (h *GeoHandler) RegisterRoutes(r chi.Router) {
	r.Route("/geo", func(r chi.Router) {
		r.Get("/reverse", h.HandleReverse)
	})
}

// ReverseResponse is the data payload of GET /v1/geo/reverse.
type ReverseResponse struct {
	Location types.GeoPoint `json:"location"`
	Address  types.Address  `json:"address"`
}

// HandleReverse handles GET /v1/geo/reverse?lat=..&lon=..
func (h *GeoHandler) HandleReverse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	latStr := q.Get("lat")
	if latStr == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"lat query parameter is required",
			nil,
		))
		return
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidLat,
			"lat must be a valid number",
			nil,
		))
		return
	}

	lonStr := q.Get("lon")
	if lonStr == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"lon query parameter is required",
			nil,
		))
		return
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidLon,
			"lon must be a valid number",
			nil,
		))
		return
	}

	pt := types.GeoPoint{Latitude: lat, Longitude: lon}
	addr, err := h.service.Reverse(r.Context(), pt)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.Success(w, r, http.StatusOK, ReverseResponse{
		Location: pt,
		Address:  *addr,
	})
}
