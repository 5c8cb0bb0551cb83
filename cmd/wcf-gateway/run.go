package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/RexQian/wcf-gateway/internal/api"
	"github.com/RexQian/wcf-gateway/internal/attachment"
	"github.com/RexQian/wcf-gateway/internal/infrastructure/config"
	"github.com/RexQian/wcf-gateway/internal/infrastructure/influxdb"
	"github.com/RexQian/wcf-gateway/internal/infrastructure/logging"
	"github.com/RexQian/wcf-gateway/internal/media"
	"github.com/RexQian/wcf-gateway/internal/wcf"
)

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: YAML configuration file
//   - explicit: true if configPath was given on the command line; a missing
//     default file falls back to built-in defaults, an explicit one is an error
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string, explicit bool) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting WCF gateway",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig(configPath, explicit)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"backend", cfg.Backend.Mode,
		"level", cfg.Logging.Level,
	)

	// Connect to InfluxDB (optional)
	guardOpts := []wcf.GuardOption{wcf.WithLogger(log)}
	retrieverOpts := []attachment.Option{attachment.WithLogger(log)}

	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		guardOpts = append(guardOpts, wcf.WithObserver(influxClient))
		retrieverOpts = append(retrieverOpts, attachment.WithObserver(influxClient))
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	be, err := startBackend(cfg, log)
	if err != nil {
		return fmt.Errorf("starting %s backend: %w", cfg.Backend.Mode, err)
	}
	defer be.close()

	guard := wcf.NewGuard(be.client, guardOpts...)

	deps := api.Deps{
		Config:        cfg.API,
		WS:            cfg.WebSocket,
		Logger:        log,
		Guard:         guard,
		Retriever:     attachment.New(guard, retrieverOpts...),
		Stager:        media.NewStager(cfg.Media, nil),
		Messages:      be.messages,
		Backend:       cfg.Backend.Mode,
		BackendOnline: be.online,
		Version:       version,
	}
	if be.mqtt != nil {
		deps.MQTT = be.mqtt
	}

	apiServer, err := api.New(deps)
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

	log.Info("initialisation complete, waiting for shutdown signal",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Backend (remote client, then MQTT)
	// 3. InfluxDB (if enabled)
	return nil
}

// loadConfig reads configPath. A missing file at the default path yields
// the built-in configuration.
func loadConfig(configPath string, explicit bool) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return config.Default()
	}
	return nil, err
}
