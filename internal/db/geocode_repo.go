package db

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"rainparade/internal/types"
)

// GeocodeRepository provides data access for the geocode_cache table.
// Entries are keyed by coordinates rounded to two decimals (roughly 1.1 km),
// matching the precision Nominatim results are stable at. Expired rows are
// treated as misses and lazily overwritten on the next upsert.
type GeocodeRepository struct {
	db    DBTX
	clock types.Clock
}

// NewGeocodeRepository creates a new GeocodeRepository backed by the given
// database connection (pool or transaction).
func NewGeocodeRepository(db DBTX) *GeocodeRepository {
	return &GeocodeRepository{db: db, clock: types.RealClock{}}
}

// cacheKeyPrecision rounds a coordinate to two decimal places for use as a
// cache key component.
func cacheKeyPrecision(v float64) float64 {
	return math.Round(v*100) / 100
}

// Get looks up a cached address for the given point. A miss (no row, or an
// expired row) returns (nil, nil); callers fall through to the upstream
// geocoder.
func (r *GeocodeRepository) Get(ctx context.Context, pt types.GeoPoint) (*types.Address, error) {
	const q = `
		SELECT state, region, district, display_name, country_code
		FROM geocode_cache
		WHERE lat_key = $1 AND lon_key = $2 AND expires_at > $3`

	var addr types.Address
	err := r.db.QueryRow(ctx, q,
		cacheKeyPrecision(pt.Latitude),
		cacheKeyPrecision(pt.Longitude),
		r.clock.Now(),
	).Scan(&addr.State, &addr.Region, &addr.District, &addr.DisplayName, &addr.CountryCode)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query geocode cache", err)
	}

	return &addr, nil
}

// Put stores an address for the given point with the supplied TTL,
// overwriting any existing entry for the same rounded coordinates.
func (r *GeocodeRepository) Put(ctx context.Context, pt types.GeoPoint, addr *types.Address, ttl time.Duration) error {
	const q = `
		INSERT INTO geocode_cache
			(lat_key, lon_key, state, region, district, display_name, country_code, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (lat_key, lon_key) DO UPDATE SET
			state = EXCLUDED.state,
			region = EXCLUDED.region,
			district = EXCLUDED.district,
			display_name = EXCLUDED.display_name,
			country_code = EXCLUDED.country_code,
			expires_at = EXCLUDED.expires_at`

	now := r.clock.Now()
	_, err := r.db.Exec(ctx, q,
		cacheKeyPrecision(pt.Latitude),
		cacheKeyPrecision(pt.Longitude),
		addr.State,
		addr.Region,
		addr.District,
		addr.DisplayName,
		addr.CountryCode,
		now.Add(ttl),
		now,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upsert geocode cache entry", err)
	}

	return nil
}

// DeleteExpired removes entries whose TTL has elapsed and reports how many
// rows were deleted. Intended for periodic maintenance; correctness does not
// depend on it because Get filters on expires_at.
func (r *GeocodeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM geocode_cache WHERE expires_at <= $1`,
		r.clock.Now(),
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to purge geocode cache", err)
	}
	return tag.RowsAffected(), nil
}
