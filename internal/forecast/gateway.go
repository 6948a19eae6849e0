package forecast

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"

	"rainparade/internal/types"
)

// Temperature band offsets applied around the predicted daily mean, matching
// the band the artifact generation was calibrated with.
const (
	tempBandBelow = 2.0
	tempBandAbove = 3.0
)

// LoadResult is the tagged outcome of resolving the model artifact. Callers
// branch on Available instead of catching an error: model absence is a
// recoverable condition that selects the fallback path, not a failure.
type LoadResult struct {
	Available bool
	Reason    string // populated only when Available is false
}

// ModelInfo describes the loaded artifact for result provenance metadata.
type ModelInfo struct {
	Name       string
	DataSource string
}

// ModelSource is the contract the assembler depends on. The concrete Gateway
// satisfies it in production; tests substitute stubs.
type ModelSource interface {
	// Load resolves artifact availability. Idempotent and memoized: the
	// first call decides provenance for the process lifetime.
	Load() LoadResult

	// Predict runs a pure forward pass through the ensemble. Only called
	// after Load reported Available.
	Predict(fv types.FeatureVector) (types.RawForecast, error)

	// Info returns provenance metadata for the loaded artifact. Zero value
	// when no artifact is available.
	Info() ModelInfo
}

// Gateway loads the serialized model artifact once per process lifetime and
// exposes prediction over it. The artifact is read-only after load, so
// concurrent requests share the Gateway without locking.
type Gateway struct {
	path   string
	logger *slog.Logger

	once     sync.Once
	result   LoadResult
	artifact *Artifact
}

var _ ModelSource = (*Gateway)(nil)

// NewGateway creates a Gateway reading the artifact at path. The artifact is
// not touched until the first Load call.
func NewGateway(path string, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{path: path, logger: logger}
}

// Load resolves the artifact exactly once and caches the outcome. A missing,
// corrupt, or shape-mismatched artifact yields Unavailable(reason); nothing
// escapes as a panic or error. The single status log line emitted here is
// the process-wide provenance decision.
func (g *Gateway) Load() LoadResult {
	g.once.Do(func() {
		g.result = g.load()
		if g.result.Available {
			g.logger.Info("model artifact loaded",
				"path", g.path,
				"model", g.artifact.ModelName,
				"trained_at", g.artifact.TrainedAt,
			)
		} else {
			g.logger.Warn("model artifact unavailable, forecasts will be simulated",
				"path", g.path,
				"reason", g.result.Reason,
			)
		}
	})
	return g.result
}

func (g *Gateway) load() LoadResult {
	if g.path == "" {
		return LoadResult{Reason: "no model path configured"}
	}

	f, err := os.Open(g.path)
	if err != nil {
		return LoadResult{Reason: fmt.Sprintf("artifact not readable: %v", err)}
	}
	defer f.Close()

	artifact, err := DecodeArtifact(f)
	if err != nil {
		return LoadResult{Reason: fmt.Sprintf("artifact rejected: %v", err)}
	}

	g.artifact = artifact
	return LoadResult{Available: true}
}

// Info returns the loaded artifact's provenance metadata.
func (g *Gateway) Info() ModelInfo {
	if g.artifact == nil {
		return ModelInfo{}
	}
	return ModelInfo{
		Name:       g.artifact.ModelName,
		DataSource: g.artifact.DataSource,
	}
}

// Predict runs the feature vector through both ensembles and returns the raw
// per-day forecast. It is a pure forward pass: no retraining, no mutation of
// the cached artifact. A malformed vector is an inference error fatal to the
// request; the cached artifact state is untouched for subsequent requests.
func (g *Gateway) Predict(fv types.FeatureVector) (types.RawForecast, error) {
	if g.artifact == nil {
		return types.RawForecast{}, types.NewAppError(types.ErrCodeInternalInferenceFailed,
			"predict called without a loaded model artifact", nil)
	}
	if len(fv) != types.FeatureCount {
		return types.RawForecast{}, types.NewAppErrorWithDetails(types.ErrCodeInternalInferenceFailed,
			"feature vector shape does not match the model contract", nil,
			map[string]any{"got": len(fv), "want": types.FeatureCount})
	}
	for i, v := range fv {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return types.RawForecast{}, types.NewAppErrorWithDetails(types.ErrCodeInternalInferenceFailed,
				"feature vector contains a non-finite value", nil,
				map[string]any{"feature": g.artifact.FeatureNames[i]})
		}
	}

	scaled := g.artifact.Scaler.transform(fv)

	temp := g.artifact.Temperature.score(scaled)
	prob := sigmoid(g.artifact.Rain.score(scaled)) * 100
	prob = clamp(prob, 0, 100)

	return types.RawForecast{
		TemperatureMean: temp,
		TemperatureMin:  temp - tempBandBelow,
		TemperatureMax:  temp + tempBandAbove,
		RainProbability: prob,
	}, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
