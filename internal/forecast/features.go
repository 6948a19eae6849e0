// Package forecast implements the rainparade forecasting pipeline: feature
// construction, inference through the pretrained gradient-boosted ensemble,
// the deterministic seasonal fallback simulator, day-range assembly, and the
// activity recommendation classifier.
//
// The pipeline is synchronous and request-scoped. The only shared state is
// the model artifact held by the Gateway, which is loaded once per process
// and read-only thereafter.
package forecast

import (
	"math"
	"time"

	"rainparade/internal/types"
)

// Feature vector layout. Index i of every FeatureVector always carries the
// feature named at featureNames[i]; the model artifact must declare the same
// names in the same order or the gateway refuses to load it.
const (
	featDoySin = iota
	featDoyCos
	featMonthSin
	featMonthCos
	featLatitude
	featLongitude
	featTempBaseline
	featPrecipBaseline
	featHumidityBaseline
	featRainySeason
	featDrySeason
	featMonth
	featDayOfYear
	featDayOfMonth
	featCentroidDistKm
)

var featureNames = [types.FeatureCount]string{
	"doy_sin",
	"doy_cos",
	"month_sin",
	"month_cos",
	"latitude",
	"longitude",
	"temp_baseline",
	"precip_baseline",
	"humidity_baseline",
	"is_rainy_season",
	"is_dry_season",
	"month",
	"day_of_year",
	"day_of_month",
	"centroid_dist_km",
}

// FeatureNames returns the canonical ordered feature names of the builder.
func FeatureNames() []string {
	names := make([]string, types.FeatureCount)
	copy(names, featureNames[:])
	return names
}

// Training centroid: the reference site the current artifact generation was
// fitted around (Chiclayo, Peru). The distance feature lets the ensemble
// discount predictions far from its training data.
const (
	centroidLat = -6.7714
	centroidLon = -79.8405
)

const daysPerYear = 365.25

// BuildFeatures turns a (date, point) pair into the fixed 15-feature vector.
// It is a pure function: identical inputs always yield an identical vector.
//
// Inputs are validated at the HTTP boundary; the checks here are defensive
// and only reject structurally impossible values.
func BuildFeatures(day time.Time, pt types.GeoPoint) (types.FeatureVector, error) {
	if day.IsZero() {
		return nil, types.NewAppError(types.ErrCodeInternalFeatureShape,
			"feature builder received a zero date", nil)
	}
	if err := types.ValidateGeoPoint(pt); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalFeatureShape,
			"feature builder received an out-of-range point", err)
	}

	day = day.UTC()
	doy := float64(day.YearDay())
	month := float64(int(day.Month()))

	fv := make(types.FeatureVector, types.FeatureCount)
	fv[featDoySin] = math.Sin(2 * math.Pi * doy / daysPerYear)
	fv[featDoyCos] = math.Cos(2 * math.Pi * doy / daysPerYear)
	fv[featMonthSin] = math.Sin(2 * math.Pi * month / 12)
	fv[featMonthCos] = math.Cos(2 * math.Pi * month / 12)
	fv[featLatitude] = pt.Latitude
	fv[featLongitude] = pt.Longitude
	fv[featTempBaseline] = temperatureBaseline(day.YearDay(), pt.Latitude)
	fv[featPrecipBaseline] = precipBaseline(day.Month(), pt.Latitude)
	fv[featHumidityBaseline] = humidityBaseline(day.YearDay(), pt.Latitude)
	fv[featRainySeason] = boolFeature(isRainySeason(day.Month(), pt.Latitude))
	fv[featDrySeason] = boolFeature(isDrySeason(day.Month(), pt.Latitude))
	fv[featMonth] = month
	fv[featDayOfYear] = doy
	fv[featDayOfMonth] = float64(day.Day())
	fv[featCentroidDistKm] = haversineKm(pt.Latitude, pt.Longitude, centroidLat, centroidLon)

	return fv, nil
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Warm-season peak day of year per hemisphere: mid January in the south,
// mid July in the north.
func seasonPeakDoy(lat float64) float64 {
	if lat < 0 {
		return 15
	}
	return 196
}

// temperatureBaseline is a smooth periodic estimate of the daily mean
// temperature in °C as a function of day-of-year and latitude. The curve is
// anchored to the training centroid's climate: mean shrinks and annual
// amplitude grows with distance from the equator.
func temperatureBaseline(yearDay int, lat float64) float64 {
	absLat := math.Abs(lat)
	mean := 24.0 - 0.25*absLat
	amplitude := 4.0 + 0.15*absLat
	phase := 2 * math.Pi * (float64(yearDay) - seasonPeakDoy(lat)) / daysPerYear
	return mean + amplitude*math.Cos(phase)
}

// humidityBaseline estimates specific humidity in g/kg on the same seasonal
// curve as temperature.
func humidityBaseline(yearDay int, lat float64) float64 {
	phase := 2 * math.Pi * (float64(yearDay) - seasonPeakDoy(lat)) / daysPerYear
	return 12.0 + 3.0*math.Cos(phase)
}

// precipBaseline estimates the hourly precipitation rate in mm/h: wet during
// the hemisphere's rainy season, near-dry otherwise.
func precipBaseline(month time.Month, lat float64) float64 {
	if isRainySeason(month, lat) {
		return 0.5
	}
	return 0.05
}

// isRainySeason reports whether the month falls in the wet season for the
// point's hemisphere: December through March in the south, June through
// September in the north.
func isRainySeason(month time.Month, lat float64) bool {
	if lat < 0 {
		return month == time.December || month <= time.March
	}
	return month >= time.June && month <= time.September
}

// isDrySeason mirrors isRainySeason on the opposite half of the year.
func isDrySeason(month time.Month, lat float64) bool {
	if lat < 0 {
		return month >= time.June && month <= time.September
	}
	return month == time.December || month <= time.March
}

const earthRadiusKm = 6371.0

// haversineKm returns the great-circle distance between two points in km.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := math.Pi / 180
	dLat := (lat2 - lat1) * toRad
	dLon := (lon2 - lon1) * toRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*toRad)*math.Cos(lat2*toRad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
