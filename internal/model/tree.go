package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// TreeNode is one node of a regression tree stored as a flat array.
// Leaf nodes carry the prediction value; internal nodes carry the split.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	Left       int     `json:"left"`
	Right      int     `json:"right"`
	Value      float64 `json:"value"`
	Leaf       bool    `json:"leaf"`
}

// RegressionTree is a single boosted tree.
type RegressionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

type treeArtifact struct {
	Version     string             `json:"version"`
	TrainedAt   time.Time          `json:"trained_at"`
	Features    []string           `json:"features"`
	NumFeatures int                `json:"num_features"`
	BaseScores  []float64          `json:"base_scores"`
	Forests     [][]RegressionTree `json:"forests"`
}

// TreeEnsemble is a gradient-boosted regression forest loaded from a JSON
// artifact. One forest per output dimension; the prediction for a dimension
// is the base score plus the sum of its trees' leaf values.
type TreeEnsemble struct {
	meta    Metadata
	width   int
	base    []float64
	forests [][]RegressionTree
}

// LoadTreeEnsemble reads and validates a tree-ensemble artifact.
func LoadTreeEnsemble(path string) (*TreeEnsemble, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tree model %s: %w", path, err)
	}

	var art treeArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parse tree model %s: %w", path, err)
	}

	if art.NumFeatures <= 0 {
		return nil, fmt.Errorf("tree model %s: num_features must be positive, got %d", path, art.NumFeatures)
	}
	if len(art.Forests) == 0 {
		return nil, fmt.Errorf("tree model %s: no forests", path)
	}
	if len(art.BaseScores) != len(art.Forests) {
		return nil, fmt.Errorf("tree model %s: %d base scores for %d forests", path, len(art.BaseScores), len(art.Forests))
	}
	for o, forest := range art.Forests {
		for ti, tree := range forest {
			if len(tree.Nodes) == 0 {
				return nil, fmt.Errorf("tree model %s: output %d tree %d is empty", path, o, ti)
			}
		}
	}

	te := &TreeEnsemble{
		meta: Metadata{
			Version:     art.Version,
			Kind:        "tree_ensemble",
			TrainedAt:   art.TrainedAt,
			Features:    art.Features,
			InputShape:  []int64{1, int64(art.NumFeatures)},
			OutputShape: []int64{1, int64(len(art.Forests))},
		},
		width:   art.NumFeatures,
		base:    art.BaseScores,
		forests: art.Forests,
	}

	log.Info().
		Str("model_path", path).
		Str("version", art.Version).
		Int("num_features", art.NumFeatures).
		Int("output_dim", len(art.Forests)).
		Msg("tree ensemble loaded")

	return te, nil
}

// Infer evaluates the forest on a single feature vector. The vector is
// treated as one 2-D row, matching how the regressor scored rows during
// training.
func (t *TreeEnsemble) Infer(features []float64) ([]float64, error) {
	if len(features) != t.width {
		return nil, fmt.Errorf("tree ensemble expects %d features, got %d", t.width, len(features))
	}

	// Single-row batch; the forest scores each row independently.
	rows := [][]float64{features}
	out := make([]float64, len(t.forests))
	for _, row := range rows {
		for o, forest := range t.forests {
			score := t.base[o]
			for ti := range forest {
				leaf, err := evalTree(forest[ti].Nodes, row)
				if err != nil {
					return nil, fmt.Errorf("output %d tree %d: %w", o, ti, err)
				}
				score += leaf
			}
			if math.IsNaN(score) || math.IsInf(score, 0) {
				return nil, fmt.Errorf("output %d: non-finite score", o)
			}
			out[o] = score
		}
	}
	return out, nil
}

// evalTree descends a flat node array until a leaf is reached.
func evalTree(nodes []TreeNode, row []float64) (float64, error) {
	idx := 0
	for hops := 0; hops <= len(nodes); hops++ {
		node := nodes[idx]
		if node.Leaf {
			return node.Value, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(row) {
			return 0, fmt.Errorf("feature index %d out of range", node.FeatureIdx)
		}
		if row[node.FeatureIdx] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
		if idx < 0 || idx >= len(nodes) {
			return 0, fmt.Errorf("invalid tree state: child index %d", idx)
		}
	}
	return 0, fmt.Errorf("tree descent did not terminate")
}

func (t *TreeEnsemble) InputWidth() int    { return t.width }
func (t *TreeEnsemble) OutputDim() int     { return len(t.forests) }
func (t *TreeEnsemble) Metadata() Metadata { return t.meta }
