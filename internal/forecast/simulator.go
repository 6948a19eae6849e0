package forecast

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"time"

	"rainparade/internal/types"
)

// Simulator provenance labels surfaced in result metadata.
const (
	SimulatedModelName  = "Seasonal simulation"
	SimulatedDataSource = "Simulated"
)

// SeasonalSimulator produces a deterministic pseudo-random forecast when no
// trained model artifact is available. The generator is seeded purely from
// the request's own inputs (date plus coordinates rounded to two decimals),
// never from wall-clock or global random state, so the same (date, point)
// simulates the same forecast across processes and runs.
//
// Predict never fails: it is the guaranteed-available fallback for any
// structurally valid input.
type SeasonalSimulator struct{}

// NewSeasonalSimulator creates the fallback simulator. It is stateless.
func NewSeasonalSimulator() *SeasonalSimulator {
	return &SeasonalSimulator{}
}

// Simulated rain probability envelope, as fractions.
const (
	simRainySeasonProb = 0.45
	simDrySeasonProb   = 0.08
	simProbJitterLow   = -0.1
	simProbJitterHigh  = 0.2
	simProbCeiling     = 0.9
	simTempStdDev      = 1.5
)

// Predict simulates one day's forecast: the seasonal temperature baseline
// for (day-of-year, latitude) plus a small seeded perturbation, and a rain
// probability drawn from the same seeded generator.
func (s *SeasonalSimulator) Predict(day time.Time, pt types.GeoPoint) types.RawForecast {
	day = day.UTC()
	// Round once and use the rounded point everywhere below, so the baseline
	// agrees with the seed and two nearby points simulate identically.
	pt = roundPoint(pt)
	rng := seededRNG(day, pt)

	temp := temperatureBaseline(day.YearDay(), pt.Latitude) + rng.NormFloat64()*simTempStdDev

	prob := simDrySeasonProb
	if isRainySeason(day.Month(), pt.Latitude) {
		prob = simRainySeasonProb
	}
	prob += simProbJitterLow + (simProbJitterHigh-simProbJitterLow)*rng.Float64()
	prob = clamp(prob, 0, simProbCeiling)

	return types.RawForecast{
		TemperatureMean: temp,
		TemperatureMin:  temp - tempBandBelow,
		TemperatureMax:  temp + tempBandAbove,
		RainProbability: prob * 100,
	}
}

// roundPoint rounds coordinates to two decimals (~1 km), the resolution the
// whole simulation operates at.
func roundPoint(pt types.GeoPoint) types.GeoPoint {
	return types.GeoPoint{
		Latitude:  math.Round(pt.Latitude*100) / 100,
		Longitude: math.Round(pt.Longitude*100) / 100,
	}
}

// seededRNG derives a PCG generator from the calendar date and the rounded
// coordinates.
func seededRNG(day time.Time, pt types.GeoPoint) *rand.Rand {
	key := fmt.Sprintf("%s|%.2f|%.2f", day.Format(types.DateOnly), pt.Latitude, pt.Longitude)

	h1 := fnv.New64a()
	h1.Write([]byte(key))
	seed1 := h1.Sum64()

	h2 := fnv.New64a()
	h2.Write([]byte(key))
	h2.Write([]byte{0})
	seed2 := h2.Sum64()

	return rand.New(rand.NewPCG(seed1, seed2))
}
