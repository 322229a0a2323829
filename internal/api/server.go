// Package api exposes the prediction service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"powercast/internal/ensemble"
	"powercast/internal/metrics"
	"powercast/internal/storage"
)

// Server provides the HTTP API for power consumption predictions.
type Server struct {
	svc            *ensemble.Service
	store          *storage.Store // optional, nil disables history
	m              *metrics.Metrics
	server         *http.Server
	requestTimeout time.Duration
	historyLimit   int
	started        time.Time
}

// PredictionRequest represents the incoming prediction request.
type PredictionRequest struct {
	Features []float64 `json:"features"`
}

// PredictionResponse represents the prediction result.
type PredictionResponse struct {
	PredictedPowerConsumption []float64 `json:"predicted_power_consumption"`
}

// ErrorResponse is the structured error body returned on failures.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type healthResponse struct {
	Status        string  `json:"status"`
	TreeVersion   string  `json:"tree_model_version"`
	SeqVersion    string  `json:"seq_model_version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// New creates the API server. The store may be nil when history persistence
// is disabled.
func New(svc *ensemble.Service, store *storage.Store, m *metrics.Metrics, addr string, requestTimeout time.Duration, historyLimit int) *Server {
	s := &Server{
		svc:            svc,
		store:          store,
		m:              m,
		requestTimeout: requestTimeout,
		historyLimit:   historyLimit,
		started:        time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/predict", s.handlePredict)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/model/info", s.handleModelInfo)
	mux.HandleFunc("/history", s.handleHistory)
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting prediction server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "invalid_input", "method not allowed")
		return
	}

	var req PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", fmt.Sprintf("invalid request body: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	result, err := s.svc.Predict(ctx, req.Features)
	if err != nil {
		status, kind := classifyError(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Msg("prediction failed")
		}
		writeError(w, status, kind, err.Error())
		return
	}

	s.recordHistory(req.Features, result)

	writeJSON(w, http.StatusOK, PredictionResponse{
		PredictedPowerConsumption: result.Forecast,
	})
}

// classifyError maps service error kinds to HTTP statuses.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, ensemble.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, ensemble.ErrModelUnavailable):
		return http.StatusServiceUnavailable, "model_unavailable"
	case errors.Is(err, ensemble.ErrInferenceFailure):
		return http.StatusInternalServerError, "inference_failure"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) recordHistory(features []float64, result *ensemble.Result) {
	if s.store == nil {
		return
	}

	rec := storage.PredictionRecord{
		Ts:         time.Now(),
		Features:   features,
		TreeOutput: result.TreeOutput,
		SeqOutput:  result.SeqOutput,
		Forecast:   result.Forecast,
	}
	if err := s.store.StorePrediction(rec); err != nil {
		log.Warn().Err(err).Msg("failed to persist prediction record")
		if s.m != nil {
			s.m.HistoryWriteErrors.Inc()
		}
		return
	}
	if s.m != nil {
		s.m.HistoryWrites.Inc()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		TreeVersion:   s.svc.TreeMetadata().Version,
		SeqVersion:    s.svc.SeqMetadata().Version,
		UptimeSeconds: time.Since(s.started).Seconds(),
	})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"input_width": s.svc.Width(),
		"output_dim":  s.svc.OutputDim(),
		"tree_model":  s.svc.TreeMetadata(),
		"seq_model":   s.svc.SeqMetadata(),
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "history_disabled", "prediction history is not enabled")
		return
	}

	limit := s.historyLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_input", "limit must be a positive integer")
			return
		}
		if n < limit {
			limit = n
		}
	}

	records, err := s.store.Recent(limit)
	if err != nil {
		log.Error().Err(err).Msg("history query failed")
		writeError(w, http.StatusInternalServerError, "internal", "history query failed")
		return
	}
	if records == nil {
		records = []storage.PredictionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Kind: kind})
}
