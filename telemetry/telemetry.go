// Package telemetry exposes the pacing loop's drift and cycle-rate
// statistics on a small debug HTTP server: a live runtime dashboard via
// statsview, plus a custom drift chart rendered with go-echarts, both
// reachable cross-origin for a browser-based front end.
package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/rs/cors"

	"github.com/retrodiag/ice196/logger"
)

// Sample is one pacing tick's worth of drift bookkeeping. The pacing
// loop re-anchors when the wall clock falls more than 50ms behind the
// cycle-derived target.
type Sample struct {
	Cycles    uint64
	TargetMS  int64
	ActualMS  int64
	DriftMS   int64
	Reanchors uint64
}

// Server hosts the telemetry endpoints for one running machine.
type Server struct {
	mgr *statsview.ViewManager

	mu      sync.Mutex
	history []Sample

	httpSrv *http.Server
}

const maxHistory = 600

// New builds a Server bound to addr (empty uses statsview's default),
// wiring go-echarts/statsview for general runtime stats and a custom
// mux for the drift chart and JSON feed.
func New(addr string) *Server {
	if addr == "" {
		addr = ":18066"
	}
	viewer.SetConfiguration(viewer.WithAddr(addr))
	s := &Server{mgr: statsview.New()}

	mux := http.NewServeMux()
	mux.HandleFunc("/ice196/drift.json", s.handleDriftJSON)
	mux.HandleFunc("/ice196/drift.html", s.handleDriftChart)

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}).Handler(mux)

	s.httpSrv = &http.Server{Addr: addr, Handler: handler}
	return s
}

// Start launches the statsview runtime dashboard and the drift-chart
// server as background goroutines; it does not block.
func (s *Server) Start() {
	go s.mgr.Start()
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logf("telemetry", "serve: %s", err)
		}
	}()
}

// Stop shuts down both servers.
func (s *Server) Stop() {
	s.mgr.Stop()
	_ = s.httpSrv.Shutdown(context.Background())
}

// Record appends one pacing sample, discarding the oldest once the
// history buffer fills.
func (s *Server) Record(sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, sample)
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
}

func (s *Server) snapshot() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Sample, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Server) handleDriftChart(w http.ResponseWriter, r *http.Request) {
	hist := s.snapshot()

	xs := make([]string, len(hist))
	driftPoints := make([]opts.LineData, len(hist))
	for i, h := range hist {
		xs[i] = ""
		driftPoints[i] = opts.LineData{Value: h.DriftMS}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "pacing drift (ms)"}),
	)
	line.SetXAxis(xs).AddSeries("drift_ms", driftPoints)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := line.Render(w); err != nil {
		logger.Logf("telemetry", "render chart: %s", err)
	}
}

func (s *Server) handleDriftJSON(w http.ResponseWriter, r *http.Request) {
	hist := s.snapshot()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(hist); err != nil {
		logger.Logf("telemetry", "encode json: %s", err)
	}
}
