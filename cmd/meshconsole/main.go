// meshconsole - device telemetry console
//
// This is the main entry point for the meshconsole service. It bridges a
// fleet of mesh devices behind a cloud MQTT gateway to browser sessions:
// telemetry events fan in over MQTT, merge into per-device state, and fan
// out to WebSocket subscribers, while claim and command operations run
// over a REST API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/tamsinwray/meshconsole/migrations"

	"github.com/tamsinwray/meshconsole/internal/api"
	"github.com/tamsinwray/meshconsole/internal/claim"
	"github.com/tamsinwray/meshconsole/internal/command"
	"github.com/tamsinwray/meshconsole/internal/dispatch"
	"github.com/tamsinwray/meshconsole/internal/identity"
	"github.com/tamsinwray/meshconsole/internal/infrastructure/config"
	"github.com/tamsinwray/meshconsole/internal/infrastructure/database"
	"github.com/tamsinwray/meshconsole/internal/infrastructure/influxdb"
	"github.com/tamsinwray/meshconsole/internal/infrastructure/logging"
	"github.com/tamsinwray/meshconsole/internal/infrastructure/mqtt"
	"github.com/tamsinwray/meshconsole/internal/ingest"
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

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting meshconsole",
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

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	claims := claim.NewService(db.DB)

	// Connect to MQTT broker
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
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the dispatch core
	identities := identity.NewJWTProvider(cfg.Security.JWT.Secret)

	dispatchOpts := dispatch.Options{
		Claims:      claims,
		Identities:  identities,
		Logger:      log,
		SessionTick: cfg.GetSessionTick(),
	}
	if influxClient != nil {
		dispatchOpts.Metrics = influxClient
	}
	dispatcher := dispatch.NewDispatcher(dispatchOpts)
	defer dispatcher.Close()

	// Route inbound telemetry into the dispatcher
	eventTopic := mqtt.Topics{}.AllAppEvents(cfg.Application.Name)
	err = mqttClient.Subscribe(eventTopic, byte(cfg.MQTT.QoS), func(_ string, payload []byte) error {
		event, ok := ingest.Decode(payload)
		if !ok {
			return nil
		}
		dispatcher.HandleEvent(event)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to device events: %w", err)
	}
	log.Info("subscribed to device events", "topic", eventTopic)

	sender := command.NewSender(mqttClient, cfg.Application.Name, log)

	// Start the API server
	apiServer, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Security:   cfg.Security,
		Logger:     log,
		Claims:     claims,
		Dispatcher: dispatcher,
		Commands:   sender,
		Identities: identities,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Dispatcher (sessions and listener streams)
	// 3. InfluxDB (if enabled)
	// 4. MQTT
	// 5. Database

	log.Info("meshconsole stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses MESHCONSOLE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("MESHCONSOLE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
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
