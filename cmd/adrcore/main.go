// ADR Core - Cryostat Magnet Controller
//
// This is the main entry point for the ADR core service. It owns the
// magnet of one adiabatic demagnetization refrigerator:
//   - Samples the instrument stack once per step into a shared snapshot
//   - Ramps the magnet to full current on request (mag-up)
//   - Holds a target FAA temperature via PID regulation
//   - Serves commands and events over MQTT
//
// Everything hardware-facing goes through the instrument registry, so
// the whole service runs against the in-tree magnet simulator with a
// one-line config change.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/coldstage/adr-core/migrations"

	"github.com/coldstage/adr-core/internal/api"
	"github.com/coldstage/adr-core/internal/control"
	"github.com/coldstage/adr-core/internal/eventlog"
	"github.com/coldstage/adr-core/internal/history"
	"github.com/coldstage/adr-core/internal/infrastructure/config"
	"github.com/coldstage/adr-core/internal/infrastructure/database"
	"github.com/coldstage/adr-core/internal/infrastructure/influxdb"
	"github.com/coldstage/adr-core/internal/infrastructure/logging"
	"github.com/coldstage/adr-core/internal/infrastructure/mqtt"
	"github.com/coldstage/adr-core/internal/instrument"
	"github.com/coldstage/adr-core/internal/state"
	"github.com/coldstage/adr-core/internal/telemetry"
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

// run is the actual application logic, separated from main for
// testability. Returning an error allows main to handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting ADR core",
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
	log.Info("configuration loaded", "path", configPath, "adr", cfg.ADR.Name)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// One pair of data files (event log, temperature series) per
	// process start, both stamped with the same start time.
	start := time.Now()

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

	// Operator-facing event log, mirrored to a dated file
	elog, err := eventlog.New(cfg.ADR.DataDir, start, log)
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}
	defer func() {
		log.Info("closing event log")
		if closeErr := elog.Close(); closeErr != nil {
			log.Error("error closing event log", "error", closeErr)
		}
	}()

	// Per-cycle temperature series on disk
	recorder, err := telemetry.NewRecorder(cfg.ADR.DataDir, start, cfg.ADR.Name)
	if err != nil {
		return fmt.Errorf("opening telemetry recorder: %w", err)
	}
	defer func() {
		log.Info("closing telemetry recorder")
		if closeErr := recorder.Close(); closeErr != nil {
			log.Error("error closing telemetry recorder", "error", closeErr)
		}
	}()
	log.Info("data files opened", "dir", cfg.ADR.DataDir)

	// Connect to InfluxDB (optional cycle-sample mirror)
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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		recorder.SetMirror(influxClient)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled, cycle samples stay on local disk")
	}

	// Shared state snapshot and the instrument stack
	store := state.NewStore()

	set, err := instrument.New(cfg.Instruments)
	if err != nil {
		return fmt.Errorf("creating instrument backend: %w", err)
	}
	devices := instrument.NewRegistry(set)
	devices.SetEventLogger(elog)
	devices.RefreshAll(ctx)
	log.Info("instruments initialised",
		"backend", cfg.Instruments.Backend,
		"connections", devices.Status(),
	)

	// Magnet tunables, mutable at runtime over the command surface
	settings := control.NewSettings(cfg.ADR.Settings)
	settings.SetOperatorLog(elog)

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

	// Event chain: controllers -> run tracker -> MQTT fan-out.
	// The tracker records run history as a side effect and forwards
	// every notification unchanged.
	publisher := api.NewEventPublisher(mqttClient, log)
	elog.SetPublisher(publisher.LogEntry)

	runRepo := history.NewSQLiteRepository(db)
	tracker := history.NewTracker(runRepo, store, settings, publisher, log)

	magup := control.NewMagUpController(store, devices, settings, elog, tracker, log)
	regulation := control.NewRegulationController(store, devices, settings, elog, tracker, log)
	poller := control.NewPoller(store, devices, settings, recorder, tracker, log)

	// Command surface over MQTT
	server, err := api.New(api.Deps{
		Broker:     mqttClient,
		Store:      store,
		Devices:    devices,
		Settings:   settings,
		Log:        elog,
		MagUp:      magup,
		Regulation: regulation,
		Runs:       runRepo,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("creating command surface: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting command surface: %w", err)
	}

	// The poller drives everything downstream of the instruments. It
	// must stop before the deferred closes pull the recorder and the
	// event log out from under it.
	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		poller.Run(ctx)
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	<-pollerDone

	// Deferred Close() calls will run in reverse order:
	// 1. InfluxDB (if enabled)
	// 2. MQTT
	// 3. Telemetry recorder
	// 4. Event log
	// 5. Database

	log.Info("ADR core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ADRCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ADRCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when the mirror is disabled.
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

	// Instrument health is the poller's business: it reconciles the
	// connectivity flags on every cycle and the registry starts
	// refreshed, so a dead instrument shows up in state immediately.

	return nil
}
