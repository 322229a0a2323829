// Package dashboard provides the interactive front-end for the powercast
// prediction service. It serves a feature-input form, forwards submissions
// to the prediction endpoint, and streams recent predictions to connected
// browsers over WebSocket.
//
// The dashboard is a thin HTTP client of the prediction service; it holds no
// model state of its own.
package dashboard

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Dashboard serves the front-end and relays prediction requests to the
// service.
type Dashboard struct {
	serviceURL string
	client     *resty.Client
	server     *http.Server
	upgrader   websocket.Upgrader

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	stopChannel chan struct{}
	isRunning   bool
	mu          sync.RWMutex
}

// predictionView is what the form handler renders and the WebSocket feed
// broadcasts.
type predictionView struct {
	Features []float64 `json:"features"`
	Forecast []float64 `json:"predicted_power_consumption"`
	Error    string    `json:"error,omitempty"`
}

// New creates a dashboard pointed at the prediction service URL.
func New(serviceURL string, port int) *Dashboard {
	d := &Dashboard{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		client: resty.New().
			SetBaseURL(strings.TrimRight(serviceURL, "/")).
			SetTimeout(10 * time.Second),
		upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:     make(map[*websocket.Conn]bool),
		stopChannel: make(chan struct{}),
	}

	r := mux.NewRouter()
	r.HandleFunc("/", d.handleIndex).Methods("GET")
	r.HandleFunc("/predict", d.handlePredictForm).Methods("POST")
	r.HandleFunc("/api/history", d.handleHistory).Methods("GET")
	r.HandleFunc("/ws", d.handleWebSocket).Methods("GET")

	d.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return d
}

// Start starts the dashboard server and the history broadcast loop.
func (d *Dashboard) Start() error {
	d.mu.Lock()
	if d.isRunning {
		d.mu.Unlock()
		return fmt.Errorf("dashboard is already running")
	}
	d.isRunning = true
	d.mu.Unlock()

	go d.broadcastLoop()

	log.Info().Str("addr", d.server.Addr).Str("service_url", d.serviceURL).Msg("starting dashboard")
	return d.server.ListenAndServe()
}

// Shutdown stops the broadcast loop and the HTTP server.
func (d *Dashboard) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.isRunning {
		close(d.stopChannel)
		d.isRunning = false
	}
	d.mu.Unlock()

	d.clientsMu.Lock()
	for conn := range d.clients {
		conn.Close()
	}
	d.clients = make(map[*websocket.Conn]bool)
	d.clientsMu.Unlock()

	return d.server.Shutdown(ctx)
}

func (d *Dashboard) handleIndex(w http.ResponseWriter, r *http.Request) {
	d.renderIndex(w, nil, "")
}

// handlePredictForm parses the comma-separated feature string, POSTs it to
// the prediction service, and renders the response.
func (d *Dashboard) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		d.renderIndex(w, nil, fmt.Sprintf("invalid form: %v", err))
		return
	}

	raw := r.FormValue("features")
	features, err := ParseFeatures(raw)
	if err != nil {
		d.renderIndex(w, nil, err.Error())
		return
	}

	view, err := d.requestPrediction(features)
	if err != nil {
		d.renderIndex(w, nil, err.Error())
		return
	}
	d.renderIndex(w, view, "")
}

func (d *Dashboard) requestPrediction(features []float64) (*predictionView, error) {
	var ok struct {
		PredictedPowerConsumption []float64 `json:"predicted_power_consumption"`
	}
	var svcErr struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}

	resp, err := d.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string][]float64{"features": features}).
		SetResult(&ok).
		SetError(&svcErr).
		Post("/predict")
	if err != nil {
		return nil, fmt.Errorf("prediction service unreachable: %w", err)
	}
	if resp.IsError() {
		if svcErr.Error != "" {
			return nil, fmt.Errorf("prediction service: %s", svcErr.Error)
		}
		return nil, fmt.Errorf("prediction service returned %s", resp.Status())
	}

	return &predictionView{
		Features: features,
		Forecast: ok.PredictedPowerConsumption,
	}, nil
}

// handleHistory proxies the service's history endpoint.
func (d *Dashboard) handleHistory(w http.ResponseWriter, r *http.Request) {
	resp, err := d.client.R().
		SetQueryParamsFromValues(r.URL.Query()).
		Get("/history")
	if err != nil {
		http.Error(w, fmt.Sprintf("prediction service unreachable: %v", err), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode())
	w.Write(resp.Body())
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	d.clientsMu.Lock()
	d.clients[conn] = true
	d.clientsMu.Unlock()

	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("websocket client connected")

	// Reader loop only detects disconnects; the feed is push-only.
	go func() {
		defer func() {
			d.clientsMu.Lock()
			delete(d.clients, conn)
			d.clientsMu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// broadcastLoop polls the service history and pushes the latest records to
// connected clients.
func (d *Dashboard) broadcastLoop() {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopChannel:
			return
		case <-ticker.C:
			d.clientsMu.RLock()
			n := len(d.clients)
			d.clientsMu.RUnlock()
			if n == 0 {
				continue
			}

			resp, err := d.client.R().SetQueryParam("limit", "20").Get("/history")
			if err != nil || resp.IsError() {
				continue
			}
			d.broadcast(resp.Body())
		}
	}
}

func (d *Dashboard) broadcast(payload []byte) {
	d.clientsMu.Lock()
	defer d.clientsMu.Unlock()

	for conn := range d.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(d.clients, conn)
		}
	}
}

// ParseFeatures converts a comma-separated string into a feature vector.
func ParseFeatures(raw string) ([]float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("features cannot be empty")
	}

	parts := strings.Split(trimmed, ",")
	features := make([]float64, 0, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("feature %d (%q) is not a number", i+1, strings.TrimSpace(part))
		}
		features = append(features, v)
	}
	return features, nil
}

func (d *Dashboard) renderIndex(w http.ResponseWriter, result *predictionView, errMsg string) {
	data := struct {
		Result *predictionView
		Error  string
	}{Result: result, Error: errMsg}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("failed to render dashboard")
	}
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>Powercast</title>
	<style>
		body { font-family: sans-serif; max-width: 720px; margin: 2em auto; }
		input[type=text] { width: 100%; padding: 0.5em; }
		.error { color: #b00; }
		.result { background: #f4f4f4; padding: 1em; margin-top: 1em; }
		table { border-collapse: collapse; width: 100%; margin-top: 1em; }
		td, th { border: 1px solid #ccc; padding: 0.3em 0.6em; text-align: right; }
	</style>
</head>
<body>
	<h1>Power Consumption Forecast</h1>
	<form method="POST" action="/predict">
		<label for="features">Features (comma-separated numbers):</label>
		<input type="text" id="features" name="features" placeholder="1.0, 2.0, 3.0">
		<button type="submit">Predict</button>
	</form>
	{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
	{{if .Result}}
	<div class="result">
		<strong>Predicted power consumption:</strong>
		{{range .Result.Forecast}}<span>{{printf "%.4f" .}}</span> {{end}}
	</div>
	{{end}}
	<h2>Recent predictions</h2>
	<table id="history"><tr><th>Time</th><th>Forecast</th></tr></table>
	<script>
		const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
		ws.onmessage = (ev) => {
			const records = JSON.parse(ev.data);
			const table = document.getElementById("history");
			table.innerHTML = "<tr><th>Time</th><th>Forecast</th></tr>";
			for (const rec of records) {
				const row = table.insertRow();
				row.insertCell().textContent = rec.ts;
				row.insertCell().textContent = rec.forecast.map(v => v.toFixed(4)).join(", ");
			}
		};
	</script>
</body>
</html>
`))
