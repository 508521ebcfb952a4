// Rego Bridge - IVT Rego 6xx heat pump controller
//
// This is the main entry point for the regobridge service. It owns one
// serial link to a Rego 6xx controller, polls the configured registers,
// and exposes them over:
//   - MQTT (state, commands, acknowledgements, health)
//   - HTTP REST API and Prometheus metrics
//   - InfluxDB link telemetry (optional)
//
// For the wire protocol, see: internal/rego
// For the MQTT contract, see: internal/bridge
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-rego6xx/internal/api"
	"github.com/nerrad567/gray-logic-rego6xx/internal/audit"
	"github.com/nerrad567/gray-logic-rego6xx/internal/bridge"
	"github.com/nerrad567/gray-logic-rego6xx/internal/controller"
	"github.com/nerrad567/gray-logic-rego6xx/internal/endpoint"
	"github.com/nerrad567/gray-logic-rego6xx/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-rego6xx/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-rego6xx/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-rego6xx/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-rego6xx/internal/infrastructure/metrics"
	"github.com/nerrad567/gray-logic-rego6xx/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-rego6xx/internal/scheduler"
	"github.com/nerrad567/gray-logic-rego6xx/internal/telemetry"
	"github.com/nerrad567/gray-logic-rego6xx/internal/transport"
	"github.com/nerrad567/gray-logic-rego6xx/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// configEnvVar overrides defaultConfigPath.
const configEnvVar = "REGO_CONFIG"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo,funlen // linear startup sequence
	log := logging.Default()
	log.Info("starting regobridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	defer func() {
		if closeErr := log.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "closing log file: %v\n", closeErr)
		}
	}()
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Audit database
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Serial link
	link, err := transport.Open(cfg.Serial)
	if err != nil {
		return fmt.Errorf("opening serial link: %w", err)
	}
	defer func() {
		if closeErr := link.Close(); closeErr != nil {
			log.Error("error closing serial link", "error", closeErr)
		}
	}()
	log.Info("serial link open", "device", link.Name(), "simulated", cfg.Serial.Simulate)

	registry := endpoint.NewRegistry()
	registry.SetLogger(log)

	// Metrics
	promRegistry := metrics.NewRegistry()
	var gauges *metrics.EndpointGauges
	if cfg.Metrics.Enabled {
		gauges = metrics.NewEndpointGauges(cfg.Metrics.Namespace, promRegistry)
	}

	// MQTT
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Audit trail
	recorder := audit.NewRecorder(audit.NewSQLiteRepository(db.DB), log)

	// The bridge and controller reference each other: the bridge reads link
	// stats from the controller, the controller reports write results to the
	// bridge. statsProxy breaks the construction cycle.
	stats := &statsProxy{}

	mqttBridge, err := bridge.New(bridge.Options{
		BridgeID:       cfg.Bridge.ID,
		Version:        version,
		HealthInterval: cfg.GetHealthInterval(),
		MQTTClient:     mqttClient,
		Registry:       registry,
		Stats:          stats,
		Audit:          recorder,
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("creating MQTT bridge: %w", err)
	}

	publishers := endpoint.Publishers{mqttBridge}
	if gauges != nil {
		publishers = append(publishers, gauges)
	}

	ctrl, err := controller.New(controller.Options{
		Link:      link,
		Registry:  registry,
		Config:    cfg.Scheduler,
		Publisher: publishers,
		OnWrite: func(res scheduler.WriteResult) {
			mqttBridge.HandleWriteResult(res)
			recorder.RecordWrite(res)
		},
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("creating controller: %w", err)
	}
	stats.source = ctrl

	if regErr := ctrl.RegisterFromConfig(cfg); regErr != nil {
		return fmt.Errorf("registering endpoints: %w", regErr)
	}
	if setupErr := ctrl.Setup(); setupErr != nil {
		return fmt.Errorf("setting up controller: %w", setupErr)
	}

	if cfg.Metrics.Enabled {
		if regErr := promRegistry.Register(metrics.NewLinkCollector(cfg.Metrics.Namespace, ctrl)); regErr != nil {
			return fmt.Errorf("registering link metrics: %w", regErr)
		}
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(writeErr error) {
			log.Warn("InfluxDB write failed", "error", writeErr)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	if startErr := mqttBridge.Start(ctx); startErr != nil {
		return fmt.Errorf("starting MQTT bridge: %w", startErr)
	}
	defer mqttBridge.Stop()

	// Retained state must be republished after the broker session is lost.
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
		mqttBridge.ClearStateCache()
	})
	mqttClient.SetOnDisconnect(func(discErr error) {
		log.Warn("MQTT disconnected", "error", discErr)
	})

	// HTTP API
	if cfg.API.Enabled {
		apiServer, apiErr := api.New(api.Deps{
			Config:      cfg.API,
			Logger:      log,
			Registry:    registry,
			Writer:      mqttBridge,
			Stats:       ctrl,
			Health:      mqttBridge.Health(),
			AuditRepo:   audit.NewSQLiteRepository(db.DB),
			Audit:       recorder,
			Metrics:     metricsHandler(cfg.Metrics, promRegistry),
			MetricsPath: cfg.Metrics.Path,
			Version:     version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("regobridge started",
		"bridge_id", cfg.Bridge.ID,
		"endpoints", registry.Len(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Run(gctx) })
	g.Go(func() error { return recorder.Run(gctx) })
	if influxClient != nil {
		sampler := telemetry.NewSampler(telemetry.Options{
			BridgeID: cfg.Bridge.ID,
			Source:   ctrl,
			Writer:   influxClient,
			Interval: time.Duration(cfg.InfluxDB.SampleInterval) * time.Second,
			Logger:   log,
		})
		g.Go(func() error { return sampler.Run(gctx) })
	}

	err = g.Wait()
	log.Info("shutting down",
		"dropped_audit_entries", recorder.Dropped(),
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("running: %w", err)
	}

	// Deferred Close() calls run in reverse order:
	// API -> bridge -> InfluxDB -> MQTT -> serial link -> database -> log file
	return nil
}

// getConfigPath returns the config file path from REGO_CONFIG or the default.
func getConfigPath() string {
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}

// metricsHandler returns the Prometheus handler, or nil when metrics are disabled.
func metricsHandler(cfg config.MetricsConfig, reg *prometheus.Registry) http.Handler {
	if !cfg.Enabled {
		return nil
	}
	return metrics.Handler(reg)
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout
//   - db: Database connection
//   - mqttClient: MQTT client
//   - influxClient: InfluxDB client (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// statsProxy forwards to the controller once it exists.
type statsProxy struct {
	source bridge.StatsSource
}

func (p *statsProxy) Stats() controller.Stats {
	if p.source == nil {
		return controller.Stats{}
	}
	return p.source.Stats()
}

func (p *statsProxy) LinkName() string {
	if p.source == nil {
		return ""
	}
	return p.source.LinkName()
}
