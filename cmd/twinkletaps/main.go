// TwinkleTaps Core - multi-tenant access control for tap devices.
//
// This is the main entry point. It loads configuration, opens and migrates
// the relational store, wires the credential pool, device registry,
// invitation lifecycle and workspace administration, and serves them over
// the HTTP API until it receives SIGINT or SIGTERM.
//
// "twinkletaps migrate [up|down|status]" runs schema maintenance and exits.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/twinkletaps/twinkletaps-core/internal/api"
	"github.com/twinkletaps/twinkletaps-core/internal/credential"
	"github.com/twinkletaps/twinkletaps-core/internal/device"
	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/config"
	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/database"
	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/influxdb"
	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/logging"
	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/mqtt"
	"github.com/twinkletaps/twinkletaps-core/internal/invitation"
	"github.com/twinkletaps/twinkletaps-core/internal/workspace"
	_ "github.com/twinkletaps/twinkletaps-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default file locations, relative to the working directory.
const (
	defaultConfigPath = "configs/config.yaml"
	defaultDotEnvPath = ".env"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	if len(os.Args) > 1 {
		err = runCommand(ctx, os.Args[1:], os.Stdout)
	} else {
		err = run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting TwinkleTaps Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	if err := config.LoadDotEnv(defaultDotEnvPath); err != nil {
		return err
	}

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

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "driver", cfg.Database.Driver)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// The broker connection is established on the first tap.
	mqttClient := mqtt.New(cfg.MQTT)
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	pool := credential.NewPool(db)
	pool.SetLogger(log.Component("credential"))

	devices := device.NewService(db, pool, mqttClient, cfg.MQTT.TopicPrefix)
	devices.SetLogger(log.Component("device"))

	invitations := invitation.NewService(db)
	invitations.SetLogger(log.Component("invitation"))

	workspaces := workspace.NewService(db)
	workspaces.SetLogger(log.Component("workspace"))

	influxClient, err := connectInfluxDB(ctx, cfg.InfluxDB, log)
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
		pool.SetRecorder(influxClient)
		devices.SetRecorder(influxClient)
	}

	if n, countErr := pool.CountUnclaimed(ctx); countErr != nil {
		log.Warn("counting unclaimed credentials failed", "error", countErr)
	} else {
		log.Info("credential pool ready", "unclaimed", n)
	}

	server, err := api.New(api.Deps{
		Config:       cfg.API,
		Security:     cfg.Security,
		InviteConfig: cfg.Invitations,
		Logger:       log.Component("api"),
		DB:           db,
		Workspaces:   workspaces,
		Devices:      devices,
		Invitations:  invitations,
		Pool:         pool,
		MQTT:         mqttClient,
		Version:      version,
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

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, InfluxDB (if enabled), MQTT, database.
	log.Info("TwinkleTaps Core stopped")
	return nil
}

// runCommand handles the one-shot maintenance commands:
//
//	twinkletaps migrate [up|down|status]
func runCommand(ctx context.Context, args []string, out io.Writer) error {
	if args[0] != "migrate" {
		return fmt.Errorf("unknown command %q (want: migrate)", args[0])
	}
	action := "up"
	if len(args) > 1 {
		action = args[1]
	}

	if err := config.LoadDotEnv(defaultDotEnvPath); err != nil {
		return err
	}
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	db, err := openDatabase(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // one-shot command

	switch action {
	case "up":
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
	case "down":
		if err := db.MigrateDown(ctx); err != nil {
			return fmt.Errorf("reverting migration: %w", err)
		}
	case "status":
	default:
		return fmt.Errorf("unknown migrate action %q (want: up, down or status)", action)
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}
	for _, m := range applied {
		fmt.Fprintf(out, "applied  %s  %s\n", m.Version, m.AppliedAt.Format(time.RFC3339))
	}
	for _, m := range pending {
		fmt.Fprintf(out, "pending  %s  %s\n", m.Version, m.Name)
	}
	return nil
}

// openDatabase opens the relational store described by cfg.
func openDatabase(cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Open(database.Config{
		Driver:       cfg.Driver,
		Path:         cfg.Path,
		WALMode:      cfg.WALMode,
		BusyTimeout:  cfg.BusyTimeout,
		DSN:          cfg.DSN,
		MaxOpenConns: cfg.MaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// getConfigPath returns the configuration file path.
// Uses TWINKLETAPS_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TWINKLETAPS_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectInfluxDB connects the metrics recorder when enabled.
// It returns a nil client when InfluxDB is disabled.
func connectInfluxDB(ctx context.Context, cfg config.InfluxDBConfig, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil //nolint:nilnil // disabled is not an error
	}

	client, err := influxdb.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.URL,
		"org", cfg.Org,
		"bucket", cfg.Bucket,
	)
	return client, nil
}
