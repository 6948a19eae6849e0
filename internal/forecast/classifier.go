package forecast

import (
	"fmt"

	"rainparade/internal/types"
)

// Classification thresholds. They are activity-agnostic by policy: the
// activity label only shapes the message, never the bands.
const (
	favorableMaxAvgProb  = 40.0 // favorable requires average below this
	cautionMaxAvgProb    = 70.0 // above this is unfavorable
	favorableMaxRainDays = 2    // favorable requires fewer rainy days than this
	cautionMaxRainDays   = 3    // more rainy days than this is unfavorable
)

var verdictMessages = map[types.Verdict]string{
	types.VerdictFavorable:   "Conditions look favorable for your %s: low chance of rain across the selected days.",
	types.VerdictCaution:     "Plan your %s with caution: some of the selected days show a meaningful chance of rain.",
	types.VerdictUnfavorable: "Conditions are unfavorable for your %s: high chance of rain across the selected days.",
}

// Classify aggregates the per-day forecast into an activity-level verdict.
// The most conservative applicable band wins: unfavorable over caution over
// favorable.
func Classify(result *types.ForecastResult, activity string) types.Recommendation {
	avg, rainDays := rainStats(result)

	verdict := types.VerdictFavorable
	switch {
	case avg > cautionMaxAvgProb || rainDays > cautionMaxRainDays:
		verdict = types.VerdictUnfavorable
	case avg >= favorableMaxAvgProb || rainDays >= favorableMaxRainDays:
		verdict = types.VerdictCaution
	}

	return types.Recommendation{
		Verdict: verdict,
		Message: fmt.Sprintf(verdictMessages[verdict], activity),
	}
}

// rainStats computes the average rain probability and the rainy-day count
// over all days in the result.
func rainStats(result *types.ForecastResult) (avgProb float64, rainDays int) {
	if len(result.Predictions) == 0 {
		return 0, 0
	}

	var sum float64
	for _, day := range result.Predictions {
		sum += day.Precipitation.Probability
		if day.Precipitation.WillRain {
			rainDays++
		}
	}
	return sum / float64(len(result.Predictions)), rainDays
}
