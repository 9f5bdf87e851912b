// domoregd - Domo Registry Daemon
//
// This is the main entry point for the domo registry service: the
// inventory of zones, equipment and commands for a home-automation
// deployment. Entities are stored as JSON documents in an embedded
// SQLite database, exposed over an HTTP API, and every accepted field
// change is published on the MQTT bus.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/weftlab/domo-registry/internal/api"
	"github.com/weftlab/domo-registry/internal/docstore"
	"github.com/weftlab/domo-registry/internal/infrastructure/config"
	"github.com/weftlab/domo-registry/internal/infrastructure/database"
	"github.com/weftlab/domo-registry/internal/infrastructure/influxdb"
	"github.com/weftlab/domo-registry/internal/infrastructure/logging"
	"github.com/weftlab/domo-registry/internal/infrastructure/mqtt"
	"github.com/weftlab/domo-registry/internal/registry"
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
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
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
	log.Info("starting domo registry",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
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

	// Prepare the document store
	store := docstore.NewSQLiteStore(db.DB, log)
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("preparing document store: %w", err)
	}
	log.Info("document store ready")

	// Connect to MQTT broker (optional: the registry still serves HTTP
	// without a bus, it just cannot publish changes)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			log.Warn("MQTT unavailable, change publication disabled", "error", err)
			mqttClient = nil
		} else {
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
			mqttClient.SetOnConnect(func() {
				log.Info("MQTT reconnected")
			})
			mqttClient.SetOnDisconnect(func(err error) {
				log.Warn("MQTT disconnected", "error", err)
			})
			// Trace the registry topic tree so a debug log shows the
			// bus traffic alongside the registry's own activity
			if err := mqttClient.Subscribe(mqtt.Topics{}.AllEntities(), 0, busTraceHandler(log)); err != nil {
				log.Warn("bus trace subscription failed", "error", err)
			}
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional change-history sink)
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

	// Wire the registry service
	var publisher registry.Publisher
	if mqttClient != nil || influxClient != nil {
		publisher = registry.NewBusPublisher(mqttClient, influxClient, log)
	}
	service := registry.NewService(store, store, publisher, log)

	// Re-emit the command inventory so bus subscribers can rebuild
	// their view after a restart
	if mqttClient != nil {
		service.PublishAll(ctx)
	}

	// Start the API server
	server, err := api.New(api.Deps{
		Config:  cfg.API,
		Logger:  log,
		Service: service,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify infrastructure connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if connected)
	// 4. Database

	log.Info("domo registry stopped")
	return nil
}

// busTraceHandler logs every message seen on the registry topic tree at
// debug level. The registry never consumes these messages; the trace
// exists so a debug log shows bus traffic alongside registry activity.
func busTraceHandler(log *logging.Logger) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		log.Debug("bus message", "topic", topic, "payload", string(payload))
		return nil
	}
}

// getConfigPath returns the configuration file path.
// Uses DOMOREG_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DOMOREG_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies infrastructure connections are healthy. The MQTT
// and InfluxDB clients may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
