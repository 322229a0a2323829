// Package ensemble combines the two forecasting models into the prediction
// service. The service owns both immutable model handles, validates incoming
// feature vectors, and returns the element-wise sum of the models' outputs.
package ensemble

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"powercast/internal/model"
)

// Prediction error kinds. The API layer maps each to a distinct status code.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrModelUnavailable = errors.New("model unavailable")
	ErrInferenceFailure = errors.New("inference failure")
)

// MetricsInterface defines the metrics methods the service needs.
type MetricsInterface interface {
	PredictionsInc()
	FailuresInc()
	InvalidInputsInc()
	LatencyObserve(float64)
	ForecastObserve(float64)
}

// Service is the prediction service. Both predictors are read-only after
// construction, so concurrent requests share them without locking.
type Service struct {
	tree    model.Predictor
	seq     model.Predictor
	width   int
	metrics MetricsInterface
}

// Result carries the combined forecast along with each model's contribution.
type Result struct {
	Forecast   []float64
	TreeOutput []float64
	SeqOutput  []float64
}

// New builds the service from the two loaded models. The models must agree
// on input width and output dimensionality; the combined forecast is
// undefined otherwise.
func New(tree, seq model.Predictor, metrics MetricsInterface) (*Service, error) {
	if tree == nil || seq == nil {
		return nil, fmt.Errorf("%w: both models are required", ErrModelUnavailable)
	}
	if tree.InputWidth() != seq.InputWidth() {
		return nil, fmt.Errorf("%w: input width mismatch (tree=%d, sequence=%d)",
			ErrModelUnavailable, tree.InputWidth(), seq.InputWidth())
	}
	if tree.OutputDim() != seq.OutputDim() {
		return nil, fmt.Errorf("%w: output dimension mismatch (tree=%d, sequence=%d)",
			ErrModelUnavailable, tree.OutputDim(), seq.OutputDim())
	}

	return &Service{
		tree:    tree,
		seq:     seq,
		width:   tree.InputWidth(),
		metrics: metrics,
	}, nil
}

// Predict validates the feature vector, runs both models, and sums their
// outputs element-wise. Deterministic and idempotent for fixed artifacts.
func (s *Service) Predict(ctx context.Context, features []float64) (*Result, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.LatencyObserve(time.Since(start).Seconds())
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.validateInput(features); err != nil {
		if s.metrics != nil {
			s.metrics.InvalidInputsInc()
		}
		return nil, err
	}

	treeOut, err := s.tree.Infer(features)
	if err != nil {
		return nil, s.inferenceFailed("tree", err)
	}

	seqOut, err := s.seq.Infer(features)
	if err != nil {
		return nil, s.inferenceFailed("sequence", err)
	}

	if len(treeOut) != len(seqOut) {
		err := fmt.Errorf("%w: output shape mismatch (tree=%d, sequence=%d)",
			ErrInferenceFailure, len(treeOut), len(seqOut))
		if s.metrics != nil {
			s.metrics.FailuresInc()
		}
		return nil, err
	}

	combined := make([]float64, len(treeOut))
	for i := range treeOut {
		combined[i] = treeOut[i] + seqOut[i]
	}

	if s.metrics != nil {
		s.metrics.PredictionsInc()
		for _, v := range combined {
			s.metrics.ForecastObserve(v)
		}
	}

	log.Debug().
		Floats64("features", features).
		Floats64("tree_output", treeOut).
		Floats64("seq_output", seqOut).
		Floats64("forecast", combined).
		Msg("prediction served")

	return &Result{
		Forecast:   combined,
		TreeOutput: treeOut,
		SeqOutput:  seqOut,
	}, nil
}

func (s *Service) validateInput(features []float64) error {
	if len(features) == 0 {
		return fmt.Errorf("%w: features cannot be empty", ErrInvalidInput)
	}
	if len(features) != s.width {
		return fmt.Errorf("%w: expected %d features, got %d", ErrInvalidInput, s.width, len(features))
	}
	for i, f := range features {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: feature %d is not finite", ErrInvalidInput, i)
		}
	}
	return nil
}

func (s *Service) inferenceFailed(which string, err error) error {
	if s.metrics != nil {
		s.metrics.FailuresInc()
	}
	log.Error().Err(err).Str("model", which).Msg("model inference failed")
	return fmt.Errorf("%w: %s model: %v", ErrInferenceFailure, which, err)
}

// Width returns the feature-vector length the service accepts.
func (s *Service) Width() int { return s.width }

// OutputDim returns the forecast dimensionality.
func (s *Service) OutputDim() int { return s.tree.OutputDim() }

// TreeMetadata returns the tree model's artifact metadata.
func (s *Service) TreeMetadata() model.Metadata { return s.tree.Metadata() }

// SeqMetadata returns the sequence model's artifact metadata.
func (s *Service) SeqMetadata() model.Metadata { return s.seq.Metadata() }
