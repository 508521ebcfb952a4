package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-rego6xx/internal/audit"
	"github.com/nerrad567/gray-logic-rego6xx/internal/bridge"
	"github.com/nerrad567/gray-logic-rego6xx/internal/controller"
	"github.com/nerrad567/gray-logic-rego6xx/internal/endpoint"
	"github.com/nerrad567/gray-logic-rego6xx/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-rego6xx/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// StatsSource supplies link statistics. *controller.Controller satisfies it.
type StatsSource interface {
	Stats() controller.Stats
	LinkName() string
}

// HealthSource supplies the bridge health. *bridge.HealthReporter satisfies it.
type HealthSource interface {
	Current() bridge.HealthMessage
}

// AuditRecorder records write requests. *audit.Recorder satisfies it.
type AuditRecorder interface {
	Record(e audit.Entry)
}

// Writer queues writes. *bridge.Bridge satisfies it, so HTTP writes
// supersede MQTT commands still waiting for the same endpoint.
type Writer interface {
	SetPendingWrite(id string, value float64) (float64, error)
	Press(id string) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Registry *endpoint.Registry

	// Optional.
	Writer      Writer // defaults to Registry
	Stats       StatsSource
	Health      HealthSource
	AuditRepo   audit.Repository
	Audit       AuditRecorder
	Metrics     http.Handler
	MetricsPath string
	Version     string
}

// Server is the HTTP API server.
type Server struct {
	cfg         config.APIConfig
	logger      *logging.Logger
	registry    *endpoint.Registry
	writer      Writer
	stats       StatsSource
	health      HealthSource
	auditRepo   audit.Repository
	audit       AuditRecorder
	metrics     http.Handler
	metricsPath string
	version     string

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a new API server with the given dependencies.
//
// Parameters:
//   - deps: Logger and Registry are required
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("endpoint registry is required")
	}

	var writer Writer = deps.Registry
	if deps.Writer != nil {
		writer = deps.Writer
	}

	metricsPath := deps.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	return &Server{
		cfg:         deps.Config,
		logger:      deps.Logger,
		registry:    deps.Registry,
		writer:      writer,
		stats:       deps.Stats,
		health:      deps.Health,
		auditRepo:   deps.AuditRepo,
		audit:       deps.Audit,
		metrics:     deps.Metrics,
		metricsPath: metricsPath,
		version:     deps.Version,
	}, nil
}

// Handler returns the router. Exposed for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listener and serves in a background goroutine.
// The listener is bound before Start returns so a port in use is reported here.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.server = nil
		return fmt.Errorf("listening on %s:%d: %w", s.cfg.Host, s.cfg.Port, err)
	}
	s.listener = ln

	s.logger.Info("API server starting", "address", ln.Addr().String())

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
