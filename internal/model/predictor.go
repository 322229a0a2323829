// Package model loads pre-trained forecasting model artifacts and exposes
// them behind a common Predictor interface. Each concrete model owns the
// adaptation from the flat feature vector to its native tensor layout, so
// callers never deal with per-model input shapes.
//
// Two artifact kinds are supported: a gradient-boosted regression forest
// (single-row 2-D input) and a single-layer recurrent network
// (batch=1, timestep=1, 3-D input). Both are immutable after load and safe
// for concurrent inference.
package model

import (
	"time"
)

// Predictor is the capability every loaded model exposes to the ensemble.
// Implementations must be safe for concurrent use and deterministic for a
// fixed artifact and input.
type Predictor interface {
	// Infer runs the model on a flat feature vector and returns one value
	// per output dimension.
	Infer(features []float64) ([]float64, error)

	// InputWidth returns the feature-vector length the model was trained on.
	InputWidth() int

	// OutputDim returns the number of output dimensions.
	OutputDim() int

	// Metadata returns descriptive information about the loaded artifact.
	Metadata() Metadata
}

// Metadata describes a loaded model artifact.
type Metadata struct {
	Version     string    `json:"version"`
	Kind        string    `json:"kind"`
	TrainedAt   time.Time `json:"trained_at"`
	Features    []string  `json:"features"`
	InputShape  []int64   `json:"input_shape"`
	OutputShape []int64   `json:"output_shape"`
}
