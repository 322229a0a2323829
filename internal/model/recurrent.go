package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

type recurrentArtifact struct {
	Version   string    `json:"version"`
	TrainedAt time.Time `json:"trained_at"`
	Features  []string  `json:"features"`

	InputDim  int `json:"input_dim"`
	HiddenDim int `json:"hidden_dim"`
	OutputDim int `json:"output_dim"`

	WIn       [][]float64 `json:"w_in"`     // hidden x input
	WRec      [][]float64 `json:"w_rec"`    // hidden x hidden
	BHidden   []float64   `json:"b_hidden"` // hidden
	WOut      [][]float64 `json:"w_out"`    // output x hidden
	BOut      []float64   `json:"b_out"`    // output
	InitState []float64   `json:"h0,omitempty"`
}

// RecurrentNet is a single-layer recurrent network loaded from a JSON weights
// artifact. Inference feeds the feature vector as a (batch=1, timestep=1)
// sequence: one tanh step from the initial hidden state, then a linear
// readout.
type RecurrentNet struct {
	meta      Metadata
	inputDim  int
	hiddenDim int
	outputDim int

	wIn     [][]float64
	wRec    [][]float64
	bHidden []float64
	wOut    [][]float64
	bOut    []float64
	h0      []float64
}

// LoadRecurrentNet reads and validates a recurrent-network artifact.
func LoadRecurrentNet(path string) (*RecurrentNet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recurrent model %s: %w", path, err)
	}

	var art recurrentArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parse recurrent model %s: %w", path, err)
	}

	if art.InputDim <= 0 || art.HiddenDim <= 0 || art.OutputDim <= 0 {
		return nil, fmt.Errorf("recurrent model %s: dimensions must be positive (input=%d hidden=%d output=%d)",
			path, art.InputDim, art.HiddenDim, art.OutputDim)
	}
	if err := checkMatrix("w_in", art.WIn, art.HiddenDim, art.InputDim); err != nil {
		return nil, fmt.Errorf("recurrent model %s: %w", path, err)
	}
	if err := checkMatrix("w_rec", art.WRec, art.HiddenDim, art.HiddenDim); err != nil {
		return nil, fmt.Errorf("recurrent model %s: %w", path, err)
	}
	if err := checkMatrix("w_out", art.WOut, art.OutputDim, art.HiddenDim); err != nil {
		return nil, fmt.Errorf("recurrent model %s: %w", path, err)
	}
	if len(art.BHidden) != art.HiddenDim {
		return nil, fmt.Errorf("recurrent model %s: b_hidden has %d entries, want %d", path, len(art.BHidden), art.HiddenDim)
	}
	if len(art.BOut) != art.OutputDim {
		return nil, fmt.Errorf("recurrent model %s: b_out has %d entries, want %d", path, len(art.BOut), art.OutputDim)
	}
	if art.InitState == nil {
		art.InitState = make([]float64, art.HiddenDim)
	} else if len(art.InitState) != art.HiddenDim {
		return nil, fmt.Errorf("recurrent model %s: h0 has %d entries, want %d", path, len(art.InitState), art.HiddenDim)
	}

	rn := &RecurrentNet{
		meta: Metadata{
			Version:     art.Version,
			Kind:        "recurrent_net",
			TrainedAt:   art.TrainedAt,
			Features:    art.Features,
			InputShape:  []int64{1, 1, int64(art.InputDim)},
			OutputShape: []int64{1, int64(art.OutputDim)},
		},
		inputDim:  art.InputDim,
		hiddenDim: art.HiddenDim,
		outputDim: art.OutputDim,
		wIn:       art.WIn,
		wRec:      art.WRec,
		bHidden:   art.BHidden,
		wOut:      art.WOut,
		bOut:      art.BOut,
		h0:        art.InitState,
	}

	log.Info().
		Str("model_path", path).
		Str("version", art.Version).
		Int("input_dim", art.InputDim).
		Int("hidden_dim", art.HiddenDim).
		Int("output_dim", art.OutputDim).
		Msg("recurrent net loaded")

	return rn, nil
}

func checkMatrix(name string, m [][]float64, rows, cols int) error {
	if len(m) != rows {
		return fmt.Errorf("%s has %d rows, want %d", name, len(m), rows)
	}
	for i, row := range m {
		if len(row) != cols {
			return fmt.Errorf("%s row %d has %d columns, want %d", name, i, len(row), cols)
		}
	}
	return nil
}

// Infer runs the feature vector through the network as a one-timestep
// sequence and returns the readout.
func (r *RecurrentNet) Infer(features []float64) ([]float64, error) {
	if len(features) != r.inputDim {
		return nil, fmt.Errorf("recurrent net expects %d features, got %d", r.inputDim, len(features))
	}

	// Reshape to (batch=1, timestep=1, features) and unroll the single step.
	batch := [][][]float64{{features}}
	state := r.h0
	for _, step := range batch[0] {
		next := make([]float64, r.hiddenDim)
		for i := 0; i < r.hiddenDim; i++ {
			sum := r.bHidden[i]
			for j, x := range step {
				sum += r.wIn[i][j] * x
			}
			for j, h := range state {
				sum += r.wRec[i][j] * h
			}
			next[i] = math.Tanh(sum)
		}
		state = next
	}

	out := make([]float64, r.outputDim)
	for o := 0; o < r.outputDim; o++ {
		sum := r.bOut[o]
		for i, h := range state {
			sum += r.wOut[o][i] * h
		}
		if math.IsNaN(sum) || math.IsInf(sum, 0) {
			return nil, fmt.Errorf("output %d: non-finite value", o)
		}
		out[o] = sum
	}
	return out, nil
}

func (r *RecurrentNet) InputWidth() int    { return r.inputDim }
func (r *RecurrentNet) OutputDim() int     { return r.outputDim }
func (r *RecurrentNet) Metadata() Metadata { return r.meta }
