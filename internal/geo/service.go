package geo

import (
	"context"
	"log/slog"
	"time"

	"rainparade/internal/types"
)

// Cache stores resolved addresses keyed by rounded coordinates. Implemented
// by db.GeocodeRepository (PostgreSQL) and MemoryCache (single process).
type Cache interface {
	// Get returns (nil, nil) on a miss.
	Get(ctx context.Context, pt types.GeoPoint) (*types.Address, error)
	Put(ctx context.Context, pt types.GeoPoint, addr *types.Address, ttl time.Duration) error
}

// ReverseGeocoder resolves a point to an administrative address.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, pt types.GeoPoint) (*types.Address, error)
}

// Service is the cache-first reverse geocoding service. Cache failures are
// logged and treated as misses so a degraded cache never blocks lookups;
// only upstream failures surface to the caller.
type Service struct {
	cache    Cache
	upstream ReverseGeocoder
	ttl      time.Duration
	logger   *slog.Logger
}

// NewService creates a geocoding service. ttl controls how long resolved
// addresses stay cached.
func NewService(cache Cache, upstream ReverseGeocoder, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cache:    cache,
		upstream: upstream,
		ttl:      ttl,
		logger:   logger,
	}
}

// Reverse validates the point, consults the cache, and falls through to the
// upstream geocoder on a miss. Successful upstream results are cached
// best-effort.
func (s *Service) Reverse(ctx context.Context, pt types.GeoPoint) (*types.Address, error) {
	if err := types.ValidateGeoPoint(pt); err != nil {
		return nil, err
	}

	addr, err := s.cache.Get(ctx, pt)
	if err != nil {
		s.logger.Warn("geocode cache read failed, falling through to upstream",
			slog.Float64("lat", pt.Latitude),
			slog.Float64("lon", pt.Longitude),
			slog.String("error", err.Error()),
		)
	}
	if addr != nil {
		return addr, nil
	}

	addr, err = s.upstream.Reverse(ctx, pt)
	if err != nil {
		return nil, err
	}

	if putErr := s.cache.Put(ctx, pt, addr, s.ttl); putErr != nil {
		s.logger.Warn("geocode cache write failed",
			slog.Float64("lat", pt.Latitude),
			slog.Float64("lon", pt.Longitude),
			slog.String("error", putErr.Error()),
		)
	}

	return addr, nil
}
