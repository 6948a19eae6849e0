package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rainparade/internal/types"
)

var chiclayo = types.GeoPoint{Latitude: -6.7714, Longitude: -79.8405}

func TestBuildFeatures_ShapeAndOrder(t *testing.T) {
	day := time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC)

	fv, err := BuildFeatures(day, chiclayo)
	require.NoError(t, err)
	require.Len(t, fv, types.FeatureCount)

	assert.Equal(t, chiclayo.Latitude, fv[featLatitude])
	assert.Equal(t, chiclayo.Longitude, fv[featLongitude])
	assert.Equal(t, float64(10), fv[featMonth])
	assert.Equal(t, float64(day.YearDay()), fv[featDayOfYear])
	assert.Equal(t, float64(6), fv[featDayOfMonth])

	// The current artifact generation is centered on this point.
	assert.InDelta(t, 0, fv[featCentroidDistKm], 0.01)
}

func TestBuildFeatures_Deterministic(t *testing.T) {
	day := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	pt := types.GeoPoint{Latitude: 40.4168, Longitude: -3.7038}

	a, err := BuildFeatures(day, pt)
	require.NoError(t, err)
	b, err := BuildFeatures(day, pt)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestBuildFeatures_CyclicalDayOfYear_NoYearWrapJump(t *testing.T) {
	pt := types.GeoPoint{Latitude: 10, Longitude: 10}

	dec31, err := BuildFeatures(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), pt)
	require.NoError(t, err)
	jan1, err := BuildFeatures(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), pt)
	require.NoError(t, err)

	// The sine/cosine encoding must be continuous across the year boundary.
	assert.InDelta(t, dec31[featDoySin], jan1[featDoySin], 0.05)
	assert.InDelta(t, dec31[featDoyCos], jan1[featDoyCos], 0.05)
}

func TestBuildFeatures_SeasonIndicatorsByHemisphere(t *testing.T) {
	january := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	south, err := BuildFeatures(january, types.GeoPoint{Latitude: -6.77, Longitude: -79.84})
	require.NoError(t, err)
	north, err := BuildFeatures(january, types.GeoPoint{Latitude: 45.5, Longitude: -122.7})
	require.NoError(t, err)

	assert.Equal(t, 1.0, south[featRainySeason])
	assert.Equal(t, 0.0, south[featDrySeason])
	assert.Equal(t, 0.0, north[featRainySeason])
	assert.Equal(t, 1.0, north[featDrySeason])
}

func TestBuildFeatures_DefensiveChecks(t *testing.T) {
	day := time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC)

	_, err := BuildFeatures(time.Time{}, chiclayo)
	require.Error(t, err)

	_, err = BuildFeatures(day, types.GeoPoint{Latitude: 91, Longitude: 0})
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalFeatureShape, appErr.Code)
}

func TestTemperatureBaseline_SmoothAndLatitudeAware(t *testing.T) {
	// Warm in southern summer, cooler in southern winter.
	summer := temperatureBaseline(15, -6.77)
	winter := temperatureBaseline(196, -6.77)
	assert.Greater(t, summer, winter)

	// Higher latitudes swing harder.
	tropicalSwing := temperatureBaseline(196, 5) - temperatureBaseline(15, 5)
	temperateSwing := temperatureBaseline(196, 50) - temperatureBaseline(15, 50)
	assert.Greater(t, temperateSwing, tropicalSwing)
}
