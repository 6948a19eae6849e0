package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rainparade/internal/types"
)

// resultWithProbs builds a ForecastResult whose days carry the given rain
// probabilities; will_rain follows the probability > 50 invariant.
func resultWithProbs(probs ...float64) *types.ForecastResult {
	days := make([]types.DailyForecast, len(probs))
	for i, p := range probs {
		days[i] = types.DailyForecast{
			Precipitation: types.Precipitation{
				Probability: p,
				WillRain:    p > 50,
			},
		}
	}
	return &types.ForecastResult{Predictions: days, TotalDays: len(days)}
}

func TestClassify_Favorable(t *testing.T) {
	rec := Classify(resultWithProbs(10, 20, 30, 15), "picnic")

	assert.Equal(t, types.VerdictFavorable, rec.Verdict)
	assert.Contains(t, rec.Message, "picnic")
	assert.Contains(t, rec.Message, "favorable")
}

func TestClassify_CautionByAverage(t *testing.T) {
	// Average 45, no rainy day: caution via the probability band.
	rec := Classify(resultWithProbs(45, 45, 45), "hiking")
	assert.Equal(t, types.VerdictCaution, rec.Verdict)
	assert.Contains(t, rec.Message, "hiking")
}

func TestClassify_CautionByRainyDays(t *testing.T) {
	// Average ~31 (< 40) but two rainy days: caution via the day count.
	rec := Classify(resultWithProbs(60, 60, 5, 5, 5, 5, 5, 5), "camping")
	assert.Equal(t, types.VerdictCaution, rec.Verdict)
}

func TestClassify_UnfavorableByAverage(t *testing.T) {
	rec := Classify(resultWithProbs(80, 75, 72), "beach")
	assert.Equal(t, types.VerdictUnfavorable, rec.Verdict)
	assert.Contains(t, rec.Message, "beach")
}

func TestClassify_UnfavorableByRainyDays(t *testing.T) {
	// Four rainy days trumps a moderate average.
	rec := Classify(resultWithProbs(55, 55, 55, 55, 10, 10, 10), "festival")
	assert.Equal(t, types.VerdictUnfavorable, rec.Verdict)
}

func TestClassify_TieBreakMostConservativeWins(t *testing.T) {
	// Average 75 with a single rainy day: the probability-driven OR
	// condition dominates even with a low day count.
	rec := Classify(resultWithProbs(75), "parade")
	assert.Equal(t, types.VerdictUnfavorable, rec.Verdict)
}

func TestClassify_BandBoundaries(t *testing.T) {
	// Average exactly 40 is caution, not favorable.
	assert.Equal(t, types.VerdictCaution, Classify(resultWithProbs(40, 40), "parade").Verdict)

	// Average exactly 70 stays caution; just above tips unfavorable.
	assert.Equal(t, types.VerdictCaution, Classify(resultWithProbs(70, 70), "parade").Verdict)
	assert.Equal(t, types.VerdictUnfavorable, Classify(resultWithProbs(71, 71), "parade").Verdict)

	// Exactly three rainy days is caution; four is unfavorable.
	assert.Equal(t, types.VerdictCaution,
		Classify(resultWithProbs(51, 51, 51, 10, 10, 10, 10, 10, 10, 10, 10, 10), "parade").Verdict)
}

func TestClassify_EmptyResult(t *testing.T) {
	rec := Classify(resultWithProbs(), "parade")
	assert.Equal(t, types.VerdictFavorable, rec.Verdict)
}
