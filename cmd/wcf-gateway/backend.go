package main

import (
	"fmt"

	"github.com/RexQian/wcf-gateway/internal/infrastructure/config"
	"github.com/RexQian/wcf-gateway/internal/infrastructure/logging"
	"github.com/RexQian/wcf-gateway/internal/infrastructure/mqtt"
	"github.com/RexQian/wcf-gateway/internal/wcf"
	"github.com/RexQian/wcf-gateway/internal/wcf/remote"
	"github.com/RexQian/wcf-gateway/internal/wcf/simulator"
)

// backend is a started wcf.Client and the collaborators reported on
// /health and /metrics.
type backend struct {
	client   wcf.Client
	messages wcf.MessageSource
	online   func() bool
	mqtt     *mqtt.Client // nil for the simulator
	close    func()
}

// startBackend builds the backend selected by cfg.Backend.Mode.
func startBackend(cfg *config.Config, log *logging.Logger) (*backend, error) {
	switch cfg.Backend.Mode {
	case config.BackendSimulator:
		return startSimulator(cfg, log), nil
	case config.BackendRemote:
		return startRemote(cfg, log)
	default:
		return nil, fmt.Errorf("unknown backend mode %q", cfg.Backend.Mode)
	}
}

func startSimulator(cfg *config.Config, log *logging.Logger) *backend {
	sim := simulator.New(cfg.Backend.Simulator, log)
	log.Info("simulator backend ready",
		"data_dir", cfg.Backend.Simulator.DataDir,
		"self_wxid", cfg.Backend.Simulator.SelfWxid,
	)
	return &backend{
		client:   sim,
		messages: sim,
		online:   func() bool { return true },
		close:    func() {},
	}
}

// startRemote connects to the MQTT broker and starts the bridge client.
func startRemote(cfg *config.Config, log *logging.Logger) (*backend, error) {
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	closeMQTT := func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}

	rc, err := remote.New(remote.Options{
		Transport:   mqttClient,
		Topics:      mqttClient.Topics(),
		QoS:         mqttClient.QoS(),
		CallTimeout: cfg.GetCallTimeout(),
		Logger:      log,
	})
	if err != nil {
		closeMQTT()
		return nil, err
	}
	if err := rc.Start(); err != nil {
		closeMQTT()
		return nil, fmt.Errorf("starting remote client: %w", err)
	}

	return &backend{
		client:   rc,
		messages: rc,
		online:   rc.Online,
		mqtt:     mqttClient,
		close: func() {
			//nolint:errcheck // Close only fails pending calls
			rc.Close()
			closeMQTT()
		},
	}, nil
}
