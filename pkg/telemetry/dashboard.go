package telemetry

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Window is one rolling-window aggregate the dashboard exposes, computed
// from whatever store backs the Aggregator (see Aggregator below).
type Window struct {
	IssuesProcessed int            `json:"issues_processed"`
	Outcomes        map[string]int `json:"outcomes"`
	Escalations     map[string]int `json:"escalations"`
}

// Aggregator supplies the dashboard's current rolling-window view; a
// concrete implementation lives wherever session outcomes are recorded
// (pkg/benchmark or the orchestrator's own bookkeeping).
type Aggregator interface {
	Window(ctx context.Context) (Window, error)
}

// Dashboard is a read-only chi HTTP surface serving /metrics (Prometheus
// exposition) and /dashboard (the aggregated JSON view), mirroring the
// teacher's metrics.Server but generalized to swarm's domain.
type Dashboard struct {
	server *http.Server
	log    logr.Logger
}

// NewDashboard builds the router. addr is a host:port or ":port" string,
// as net/http.Server.Addr expects.
func NewDashboard(addr string, agg Aggregator, log logr.Logger) *Dashboard {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/dashboard", func(w http.ResponseWriter, req *http.Request) {
		window, err := agg.Window(req.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(window)
	})
	r.Get("/openapi.json", func(w http.ResponseWriter, req *http.Request) {
		doc, err := LoadDashboardSpec(req.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	})

	return &Dashboard{
		server: &http.Server{Addr: addr, Handler: r},
		log:    log,
	}
}

// StartAsync launches the HTTP server in the background; errors other than
// http.ErrServerClosed are swallowed into the logger since there is no
// synchronous caller to return them to.
func (d *Dashboard) StartAsync() {
	go func() {
		if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.log.Error(err, "dashboard server exited")
		}
	}()
}

// Stop gracefully shuts the server down.
func (d *Dashboard) Stop(ctx context.Context) error {
	return d.server.Shutdown(ctx)
}

// StaticAggregator is a fixed-snapshot Aggregator, useful for tests and for
// wiring a dashboard ahead of a real store being available.
type StaticAggregator struct {
	Snapshot Window
}

// Window implements Aggregator.
func (s StaticAggregator) Window(context.Context) (Window, error) {
	return s.Snapshot, nil
}
