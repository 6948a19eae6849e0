package types

// FeatureCount is the fixed length of every FeatureVector. It must match the
// feature contract the model artifact was fitted on; a mismatch is a hard
// error, never silently padded.
const FeatureCount = 15

// FeatureVector is an ordered, fixed-length sequence of numeric features
// built from a (date, point) pair. Order matters: index i always carries the
// same named feature (see forecast.FeatureNames).
type FeatureVector []float64

// RawForecast is the unnormalized per-day output of a forecast source, either
// the model gateway or the seasonal simulator. It is ephemeral: the assembler
// consumes it immediately and never stores it.
type RawForecast struct {
	TemperatureMean float64
	TemperatureMin  float64
	TemperatureMax  float64
	RainProbability float64 // percent, [0, 100]
}

// ForecastSource tags a daily forecast with its provenance.
type ForecastSource string

const (
	// SourceReal marks predictions produced by the trained model artifact.
	SourceReal ForecastSource = "real"
	// SourceSimulated marks predictions produced by the seasonal fallback
	// simulator when no usable model artifact is available.
	SourceSimulated ForecastSource = "simulated"
)

// ConfidenceTier is a coarse per-day confidence label reflecting forecast
// provenance, not a statistical confidence interval.
type ConfidenceTier string

const (
	// TierHigh ("Alta") is only ever attached to real model predictions.
	TierHigh ConfidenceTier = "Alta"
	// TierMedium ("Media") covers uncertain real predictions and all
	// simulated ones.
	TierMedium ConfidenceTier = "Media"
)

// Temperature carries the assembled per-day temperature values in °C,
// rounded to one decimal place. Invariant: Min <= Value <= Max.
type Temperature struct {
	Value float64 `json:"value"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Unit  string  `json:"unit"`
}

// Precipitation carries the assembled per-day rain outlook.
// Invariant: WillRain == (Probability > 50).
type Precipitation struct {
	WillRain    bool           `json:"will_rain"`
	Probability float64        `json:"probability"`
	Confidence  ConfidenceTier `json:"confidence"`
}

// DailyForecast is the assembled output unit for a single calendar day.
type DailyForecast struct {
	Date          string         `json:"date"`
	Weekday       string         `json:"weekday"`
	Temperature   Temperature    `json:"temperature"`
	Precipitation Precipitation  `json:"precipitation"`
	Source        ForecastSource `json:"source"`
}

// ForecastResult is the complete response for one (point, range) request:
// one DailyForecast per calendar day, chronological, no gaps or duplicates,
// plus model provenance metadata. All days in a single result share the same
// Source.
type ForecastResult struct {
	Location    GeoPoint        `json:"location"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	TotalDays   int             `json:"total_days"`
	Predictions []DailyForecast `json:"predictions"`
	ModelName   string          `json:"model_name"`
	DataSource  string          `json:"data_source"`
	Note        string          `json:"note"`
}

// Simulated reports whether the result was produced by the fallback
// simulator rather than the trained model.
func (r *ForecastResult) Simulated() bool {
	return len(r.Predictions) > 0 && r.Predictions[0].Source == SourceSimulated
}
