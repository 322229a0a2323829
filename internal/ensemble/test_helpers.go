package ensemble

import (
	"sync"

	"powercast/internal/model"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu            sync.Mutex
	predictions   int
	failures      int
	invalidInputs int
	latencySum    float64
	forecasts     []float64
}

func (m *MockMetrics) PredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) FailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) InvalidInputsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidInputs++
}

func (m *MockMetrics) LatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
}

func (m *MockMetrics) ForecastObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forecasts = append(m.forecasts, v)
}

// StubPredictor returns fixed outputs for testing the ensemble contract.
type StubPredictor struct {
	Width int
	Out   []float64
	Err   error
	Meta  model.Metadata
}

func (s *StubPredictor) Infer(features []float64) ([]float64, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]float64, len(s.Out))
	copy(out, s.Out)
	return out, nil
}

func (s *StubPredictor) InputWidth() int          { return s.Width }
func (s *StubPredictor) OutputDim() int           { return len(s.Out) }
func (s *StubPredictor) Metadata() model.Metadata { return s.Meta }
