package metrics

// Wrapper adapts Metrics to the narrow interface the ensemble service
// consumes, avoiding a dependency from the service on Prometheus types.
type Wrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

func (w *Wrapper) PredictionsInc() {
	w.m.PredictionsTotal.Inc()
}

func (w *Wrapper) FailuresInc() {
	w.m.PredictionFailures.Inc()
}

func (w *Wrapper) InvalidInputsInc() {
	w.m.InvalidInputs.Inc()
}

func (w *Wrapper) LatencyObserve(v float64) {
	w.m.PredictionLatency.Observe(v)
}

func (w *Wrapper) ForecastObserve(v float64) {
	w.m.ForecastValues.Observe(v)
}
