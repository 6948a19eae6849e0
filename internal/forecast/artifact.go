package forecast

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/klauspost/compress/zstd"

	"rainparade/internal/types"
)

// ArtifactSchemaVersion is the artifact schema this build understands.
// Artifacts with any other version are refused at load time.
const ArtifactSchemaVersion = 1

// Artifact is the deserialized pretrained model: a standard scaler plus two
// gradient-boosted tree ensembles, one regressing daily mean temperature and
// one classifying rain occurrence (sigmoid link). The on-disk format is
// zstd-compressed JSON.
//
// An Artifact is read-only after load; Predict never mutates it.
type Artifact struct {
	SchemaVersion int          `json:"schema_version"`
	ModelName     string       `json:"model_name"`
	DataSource    string       `json:"data_source"`
	TrainedAt     time.Time    `json:"trained_at"`
	FeatureNames  []string     `json:"feature_names"`
	Scaler        scalerParams `json:"scaler"`
	Temperature   ensemble     `json:"temperature"`
	Rain          ensemble     `json:"rain"`
}

// scalerParams holds the per-feature standardization parameters fitted
// offline alongside the ensembles.
type scalerParams struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// transform standardizes a feature vector in place-order (returns a copy).
func (s scalerParams) transform(fv types.FeatureVector) []float64 {
	out := make([]float64, len(fv))
	for i, v := range fv {
		out[i] = (v - s.Mean[i]) / s.Std[i]
	}
	return out
}

// ensemble is an additive gradient-boosted tree model.
type ensemble struct {
	InitScore    float64        `json:"init_score"`
	LearningRate float64        `json:"learning_rate"`
	Trees        []decisionTree `json:"trees"`
}

// score runs the full additive forward pass over scaled features.
func (e ensemble) score(scaled []float64) float64 {
	sum := e.InitScore
	for _, t := range e.Trees {
		sum += e.LearningRate * t.predict(scaled)
	}
	return sum
}

// decisionTree is a binary regression tree stored as a flat node array with
// child indices, the natural serialization of an offline-trained tree.
type decisionTree struct {
	Nodes []treeNode `json:"nodes"`
}

// treeNode is one node of a decisionTree. Leaf nodes carry Value; split
// nodes route on Feature against Threshold (<= goes left).
type treeNode struct {
	Leaf      bool    `json:"leaf"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

// predict walks the tree from the root. Traversal is bounded by the node
// count so a malformed artifact cannot loop forever.
func (t decisionTree) predict(scaled []float64) float64 {
	idx := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		n := t.Nodes[idx]
		if n.Leaf {
			return n.Value
		}
		if scaled[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
	return 0
}

// DecodeArtifact reads a zstd-compressed JSON artifact and validates it
// against the feature contract. Any structural problem is returned as an
// error; callers translate it into an Unavailable load result.
func DecodeArtifact(r io.Reader) (*Artifact, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening zstd stream: %w", err)
	}
	defer zr.Close()

	var a Artifact
	dec := json.NewDecoder(zr)
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("decoding artifact JSON: %w", err)
	}

	if err := a.validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// validate enforces the artifact's structural contract: schema version,
// feature count/order, scaler shape, and non-degenerate ensembles.
func (a *Artifact) validate() error {
	if a.SchemaVersion != ArtifactSchemaVersion {
		return fmt.Errorf("unsupported artifact schema version %d (want %d)",
			a.SchemaVersion, ArtifactSchemaVersion)
	}
	if len(a.FeatureNames) != types.FeatureCount {
		return fmt.Errorf("artifact declares %d features, contract requires %d",
			len(a.FeatureNames), types.FeatureCount)
	}
	for i, name := range FeatureNames() {
		if a.FeatureNames[i] != name {
			return fmt.Errorf("artifact feature %d is %q, contract requires %q",
				i, a.FeatureNames[i], name)
		}
	}
	if len(a.Scaler.Mean) != types.FeatureCount || len(a.Scaler.Std) != types.FeatureCount {
		return fmt.Errorf("scaler shape mismatch: mean=%d std=%d",
			len(a.Scaler.Mean), len(a.Scaler.Std))
	}
	for i, std := range a.Scaler.Std {
		if std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
			return fmt.Errorf("scaler std for feature %d is degenerate", i)
		}
	}
	if len(a.Temperature.Trees) == 0 {
		return fmt.Errorf("temperature ensemble has no trees")
	}
	if len(a.Rain.Trees) == 0 {
		return fmt.Errorf("rain ensemble has no trees")
	}
	for ti, tree := range append(append([]decisionTree{}, a.Temperature.Trees...), a.Rain.Trees...) {
		if err := tree.validate(); err != nil {
			return fmt.Errorf("tree %d: %w", ti, err)
		}
	}
	return nil
}

func (t decisionTree) validate() error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("empty node array")
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			continue
		}
		if n.Feature < 0 || n.Feature >= types.FeatureCount {
			return fmt.Errorf("node %d splits on out-of-range feature %d", i, n.Feature)
		}
		if n.Left < 0 || n.Left >= len(t.Nodes) || n.Right < 0 || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has out-of-range child index", i)
		}
	}
	return nil
}
