package forecast

import (
	"context"
	"log/slog"
	"math"
	"time"

	"rainparade/internal/types"
)

// Result-level provenance notes.
const (
	NoteRealModel = "Prediction from trained model"
	NoteSimulated = "SIMULATED DATA - model not trained"
)

// Confidence distance: a real prediction is TierHigh only when its rain
// probability is at least this far from the 50% decision boundary.
const tierHighProbDistance = 30.0

// Assembler drives the feature builder and the resolved forecast source
// across every day of a requested range, normalizing both sources into one
// output schema tagged with provenance and confidence.
//
// Assembler instances are cheap and safe for concurrent use: all per-request
// state lives on the stack, and the gateway's artifact is read-only.
type Assembler struct {
	gateway   ModelSource
	simulator *SeasonalSimulator
	logger    *slog.Logger
}

// NewAssembler wires an assembler with its model source and fallback
// simulator. The gateway is injected rather than reached through ambient
// state so tests can substitute a stub.
func NewAssembler(gateway ModelSource, simulator *SeasonalSimulator, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	if simulator == nil {
		simulator = NewSeasonalSimulator()
	}
	return &Assembler{
		gateway:   gateway,
		simulator: simulator,
		logger:    logger,
	}
}

// Assemble produces one DailyForecast per calendar day in the inclusive
// range, chronological, no gaps or duplicates. Model availability is
// resolved once before iterating, so a single provenance decision governs
// the whole result; a result never mixes real and simulated days.
//
// Range validation (inversion, 30-day cap) happens when the DateRange is
// constructed at the boundary, before this stage.
func (a *Assembler) Assemble(ctx context.Context, dr types.DateRange, pt types.GeoPoint) (*types.ForecastResult, error) {
	load := a.gateway.Load()

	predictions := make([]types.DailyForecast, 0, dr.Days())
	err := dr.EachDay(func(day time.Time) error {
		if err := ctx.Err(); err != nil {
			return types.NewAppError(types.ErrCodeInternalUnexpected,
				"forecast assembly cancelled", err)
		}

		raw, err := a.predictDay(day, pt, load.Available)
		if err != nil {
			return err
		}
		predictions = append(predictions, normalizeDay(day, raw, load.Available))
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &types.ForecastResult{
		Location:    pt,
		StartDate:   dr.Start.Format(types.DateOnly),
		EndDate:     dr.End.Format(types.DateOnly),
		TotalDays:   dr.Days(),
		Predictions: predictions,
	}

	if load.Available {
		info := a.gateway.Info()
		result.ModelName = info.Name
		result.DataSource = info.DataSource
		result.Note = NoteRealModel
	} else {
		result.ModelName = SimulatedModelName
		result.DataSource = SimulatedDataSource
		result.Note = NoteSimulated
	}

	return result, nil
}

// predictDay obtains one raw forecast from the source selected by the
// availability decision.
func (a *Assembler) predictDay(day time.Time, pt types.GeoPoint, available bool) (types.RawForecast, error) {
	if !available {
		return a.simulator.Predict(day, pt), nil
	}

	fv, err := BuildFeatures(day, pt)
	if err != nil {
		return types.RawForecast{}, err
	}
	return a.gateway.Predict(fv)
}

// normalizeDay converts a raw forecast into the assembled output unit:
// one-decimal rounding, derived will_rain flag, weekday name, and a
// confidence tier reflecting provenance.
func normalizeDay(day time.Time, raw types.RawForecast, real bool) types.DailyForecast {
	value := round1(raw.TemperatureMean)
	min := round1(raw.TemperatureMin)
	max := round1(raw.TemperatureMax)

	// Rounding must not break the ordering invariant.
	if min > value {
		min = value
	}
	if max < value {
		max = value
	}

	prob := round1(raw.RainProbability)

	source := types.SourceSimulated
	tier := types.TierMedium
	if real {
		source = types.SourceReal
		if math.Abs(prob-50) > tierHighProbDistance {
			tier = types.TierHigh
		}
	}

	return types.DailyForecast{
		Date:    day.Format(types.DateOnly),
		Weekday: day.Weekday().String(),
		Temperature: types.Temperature{
			Value: value,
			Min:   min,
			Max:   max,
			Unit:  "°C",
		},
		Precipitation: types.Precipitation{
			WillRain:    prob > 50,
			Probability: prob,
			Confidence:  tier,
		},
		Source: source,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
