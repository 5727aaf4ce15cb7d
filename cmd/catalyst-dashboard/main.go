// Catalyst Dashboard - operator dashboard event core
//
// This is the main entry point for the dashboard backend. It keeps one broker
// connection, fans decoded events out to the in-memory aggregate stores, and
// serves those stores plus a live WebSocket relay over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/nerrad567/catalyst-dashboard/internal/api"
	"github.com/nerrad567/catalyst-dashboard/internal/bus"
	"github.com/nerrad567/catalyst-dashboard/internal/contextapi"
	"github.com/nerrad567/catalyst-dashboard/internal/infrastructure/config"
	"github.com/nerrad567/catalyst-dashboard/internal/infrastructure/influxdb"
	"github.com/nerrad567/catalyst-dashboard/internal/infrastructure/logging"
	"github.com/nerrad567/catalyst-dashboard/internal/infrastructure/mqtt"
	"github.com/nerrad567/catalyst-dashboard/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const (
	// defaultConfigPath is used when CATALYST_CONFIG is unset and the file exists.
	defaultConfigPath = "configs/config.yaml"

	// meterName scopes the dispatcher's OpenTelemetry instruments.
	meterName = "github.com/nerrad567/catalyst-dashboard/internal/bus"

	// startupConnectWait bounds how long startup waits for the first broker
	// connection before carrying on in the background.
	startupConnectWait = 10 * time.Second
)

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Catalyst Dashboard",
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
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Event core: manager ↔ registry ↔ dispatcher
	manager := mqtt.New(mqtt.OptionsFromConfig(cfg.Broker))
	manager.SetLogger(log.Component("mqtt"))

	registry := bus.NewRegistry(manager)
	registry.SetLogger(log.Component("bus"))

	dispatcher := bus.NewDispatcher(registry)
	dispatcher.SetLogger(log.Component("bus"))
	metrics, err := bus.NewMetrics(otel.Meter(meterName))
	if err != nil {
		return fmt.Errorf("creating bus metrics: %w", err)
	}
	dispatcher.SetMetrics(metrics)

	manager.SetPatternSource(registry)
	manager.SetMessageHandler(dispatcher.OnMessage)

	// Aggregate stores
	dashboard := telemetry.NewDashboard(telemetry.ConfigFrom(cfg))
	dashboard.SetLogger(log.Component("telemetry"))
	if attachErr := dashboard.Attach(registry); attachErr != nil {
		return fmt.Errorf("attaching dashboard stores: %w", attachErr)
	}
	defer dashboard.Detach()

	// Sensor mirror (optional)
	influxClient, err := startMirror(ctx, cfg, registry, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

	// Broker connection
	if openErr := manager.Open(ctx); openErr != nil {
		return fmt.Errorf("opening broker connection: %w", openErr)
	}
	defer func() {
		log.Info("disconnecting from broker")
		if closeErr := manager.Close(); closeErr != nil {
			log.Error("error closing broker connection", "error", closeErr)
		}
	}()
	log.Info("broker connection opening",
		"url", cfg.Broker.URL,
		"client_id", manager.ClientID(),
		"patterns", registry.ActivePatterns(),
	)

	// HTTP API
	var contextClient api.ContextService
	if cfg.ContextAPI.BaseURL != "" {
		contextClient = contextapi.New(cfg.ContextAPI.BaseURL, cfg.GetContextAPITimeout())
	}

	server, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Logger:     log.Component("api"),
		Dashboard:  dashboard,
		Events:     registry,
		Connection: manager,
		Context:    contextClient,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	waitForBroker(ctx, manager, log)

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Broker connection
	// 3. InfluxDB (if enabled)
	// 4. Dashboard subscriptions

	log.Info("Catalyst Dashboard stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// CATALYST_CONFIG wins; otherwise the default file is used when present, and
// an empty path (defaults plus environment) when it is not.
func getConfigPath() string {
	if path := os.Getenv("CATALYST_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

// startMirror connects to InfluxDB and attaches the sensor mirror. It returns
// a nil client when the mirror is disabled.
func startMirror(ctx context.Context, cfg *config.Config, registry *bus.Registry, log *logging.Logger) (*influxdb.Client, error) {
	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
	if errors.Is(err, influxdb.ErrDisabled) {
		log.Info("InfluxDB mirror disabled")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})

	mirror := telemetry.NewSensorMirror(client)
	mirror.SetLogger(log.Component("influxdb"))
	if err := mirror.Attach(registry, cfg.Subscriptions.Sensors); err != nil {
		client.Close()
		return nil, fmt.Errorf("attaching sensor mirror: %w", err)
	}

	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

// waitForBroker gives the first connection a bounded head start so the
// startup log reflects it. An unreachable broker is not fatal; the manager
// keeps retrying.
func waitForBroker(ctx context.Context, manager *mqtt.Manager, log *logging.Logger) {
	waitCtx, cancel := context.WithTimeout(ctx, startupConnectWait)
	defer cancel()

	if err := manager.WaitConnected(waitCtx); err != nil {
		log.Warn("broker not connected yet, retrying in background",
			"error", err,
			"last_error", manager.LastError(),
		)
		return
	}
	if err := manager.HealthCheck(ctx); err == nil {
		log.Info("broker connected")
	}
}
