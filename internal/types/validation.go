package types

// Coordinate constraint constants. All components validate against these.
const (
	MinLat = -90.0
	MaxLat = 90.0
	MinLon = -180.0
	MaxLon = 180.0
)

// ValidateGeoPoint checks that the point lies within valid WGS84 bounds.
func ValidateGeoPoint(pt GeoPoint) error {
	if pt.Latitude < MinLat || pt.Latitude > MaxLat {
		return NewAppErrorWithDetails(ErrCodeValidationInvalidLat,
			"latitude must be between -90 and 90", nil,
			map[string]any{"lat": pt.Latitude})
	}
	if pt.Longitude < MinLon || pt.Longitude > MaxLon {
		return NewAppErrorWithDetails(ErrCodeValidationInvalidLon,
			"longitude must be between -180 and 180", nil,
			map[string]any{"lon": pt.Longitude})
	}
	return nil
}
