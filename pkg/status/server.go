/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package status serves the latest snapshot over a read-only HTTP API and
// reports tick health through the standard gRPC health service.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/musyoka101/sliver-tui/pkg/logger"
	"github.com/musyoka101/sliver-tui/pkg/models"
	"github.com/musyoka101/sliver-tui/pkg/monitor"
	"github.com/musyoka101/sliver-tui/pkg/version"
)

// ServiceName is the gRPC health service name.
const ServiceName = "sliver-graph"

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

var (
	errNoSnapshot    = errors.New("no snapshot committed yet")
	errAgentNotFound = errors.New("agent not found")
)

// SnapshotReader is the read side of the monitor.
type SnapshotReader interface {
	Snapshot() *monitor.Snapshot
	LastError() error
}

// Server is the status surface. It also implements monitor.Publisher and
// monitor.FailureObserver to keep the gRPC health status current.
type Server struct {
	reader     SnapshotReader
	logger     logger.Logger
	router     *mux.Router
	health     *health.Server
	httpAddr   string
	grpcAddr   string
	metrics    http.Handler
	grpcServer *grpc.Server
}

var (
	_ monitor.Publisher       = (*Server)(nil)
	_ monitor.FailureObserver = (*Server)(nil)
)

type ServerOption func(*Server)

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) { s.metrics = h }
}

func NewServer(cfg *models.StatusConfig, reader SnapshotReader, log logger.Logger, opts ...ServerOption) *Server {
	s := &Server{
		reader:   reader,
		logger:   log,
		router:   mux.NewRouter(),
		health:   health.NewServer(),
		httpAddr: cfg.ListenAddr,
		grpcAddr: cfg.GRPCAddr,
	}

	for _, o := range opts {
		o(s)
	}

	s.setServing(false)
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.commonMiddleware)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/snapshot", s.getSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.getStats).Methods(http.MethodGet)
	api.HandleFunc("/lost", s.getLost).Methods(http.MethodGet)
	api.HandleFunc("/alerts", s.getAlerts).Methods(http.MethodGet)
	api.HandleFunc("/agents/{id}", s.getAgent).Methods(http.MethodGet)

	s.router.HandleFunc("/healthz", s.getHealth).Methods(http.MethodGet)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Health returns the gRPC health server.
func (s *Server) Health() *health.Server {
	return s.health
}

func (*Server) Name() string { return "status" }

func (s *Server) Publish(context.Context, *monitor.Snapshot) error {
	s.setServing(true)

	return nil
}

func (s *Server) ObserveFailure(error) {
	s.setServing(false)
}

func (s *Server) setServing(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus(ServiceName, status)
	s.health.SetServingStatus("", status)
}

// Run serves HTTP and gRPC on the configured addresses until ctx is done.
// An empty address disables that listener.
func (s *Server) Run(ctx context.Context) error {
	var grpcLis net.Listener

	if s.grpcAddr != "" {
		lis, err := net.Listen("tcp", s.grpcAddr)
		if err != nil {
			return err
		}

		grpcLis = lis
	}

	g, ctx := errgroup.WithContext(ctx)

	if s.httpAddr != "" {
		srv := &http.Server{
			Addr:              s.httpAddr,
			Handler:           s.router,
			ReadHeaderTimeout: readHeaderTimeout,
		}

		g.Go(func() error {
			s.logger.Info().Str("addr", s.httpAddr).Msg("Starting status HTTP server")

			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			return nil
		})

		g.Go(func() error {
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			return srv.Shutdown(shutdownCtx)
		})
	}

	if grpcLis != nil {
		s.grpcServer = grpc.NewServer()
		healthpb.RegisterHealthServer(s.grpcServer, s.health)

		g.Go(func() error {
			s.logger.Info().Str("addr", grpcLis.Addr().String()).Msg("Starting gRPC health server")

			return s.grpcServer.Serve(grpcLis)
		})

		g.Go(func() error {
			<-ctx.Done()
			s.health.Shutdown()
			s.grpcServer.GracefulStop()

			return nil
		})
	}

	return g.Wait()
}

func (s *Server) current(w http.ResponseWriter) *monitor.Snapshot {
	snap := s.reader.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, errNoSnapshot)
	}

	return snap
}

func (s *Server) getSnapshot(w http.ResponseWriter, _ *http.Request) {
	if snap := s.current(w); snap != nil {
		s.writeJSON(w, snap)
	}
}

func (s *Server) getStats(w http.ResponseWriter, _ *http.Request) {
	if snap := s.current(w); snap != nil {
		s.writeJSON(w, snap.Stats)
	}
}

func (s *Server) getLost(w http.ResponseWriter, _ *http.Request) {
	if snap := s.current(w); snap != nil {
		s.writeJSON(w, snap.RecentlyLost)
	}
}

func (s *Server) getAlerts(w http.ResponseWriter, _ *http.Request) {
	if snap := s.current(w); snap != nil {
		s.writeJSON(w, snap.Alerts)
	}
}

func (s *Server) getAgent(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}

	id := mux.Vars(r)["id"]

	if node := findNode(snap.Forest, id); node != nil {
		s.writeJSON(w, node)
		return
	}

	writeError(w, http.StatusNotFound, errAgentNotFound)
}

func findNode(nodes []models.TopologyNode, id string) *models.TopologyNode {
	for i := range nodes {
		if nodes[i].Agent.ID == id {
			return &nodes[i]
		}

		if n := findNode(nodes[i].Children, id); n != nil {
			return n
		}
	}

	return nil
}

type healthResponse struct {
	Status   string    `json:"status"`
	Version  string    `json:"version"`
	Sequence uint64    `json:"sequence,omitempty"`
	TickAt   time.Time `json:"tick_at,omitempty"`
	Error    string    `json:"error,omitempty"`
}

func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.reader.Snapshot()
	lastErr := s.reader.LastError()

	resp := healthResponse{Status: "ok", Version: version.GetVersion()}
	code := http.StatusOK

	if snap != nil {
		resp.Sequence = snap.Sequence
		resp.TickAt = snap.TickAt
	}

	switch {
	case lastErr != nil:
		resp.Status = "degraded"
		resp.Error = lastErr.Error()
		code = http.StatusServiceUnavailable
	case snap == nil:
		resp.Status = "starting"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error().Err(err).Msg("Error encoding health response")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("Error encoding response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
