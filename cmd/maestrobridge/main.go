// Maestro Bridge - MCZ Maestro pellet stove to MQTT gateway
//
// This is the main entry point for the bridge. It holds a Socket.IO session
// with the MCZ cloud on behalf of one stove, republishes the stove status on
// MQTT (optionally with Home Assistant discovery) and relays MQTT commands
// back to the stove.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/nerrad567/maestro-bridge/internal/api"
	"github.com/nerrad567/maestro-bridge/internal/bridges/maestro"
	"github.com/nerrad567/maestro-bridge/internal/discovery"
	"github.com/nerrad567/maestro-bridge/internal/infrastructure/config"
	"github.com/nerrad567/maestro-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/maestro-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/maestro-bridge/internal/infrastructure/socketio"
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

// healthCheckTimeout bounds the startup health check.
const healthCheckTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the command-line settings.
type options struct {
	configPath       string
	cleanupDiscovery bool
	showVersion      bool
}

// parseFlags parses the command line.
func parseFlags(args []string) (options, error) {
	var opts options

	fs := pflag.NewFlagSet("maestrobridge", pflag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to the YAML configuration file (env MAESTRO_CONFIG)")
	fs.BoolVar(&opts.cleanupDiscovery, "cleanup-discovery", false, "remove the retained Home Assistant discovery configs and exit")
	fs.BoolVarP(&opts.showVersion, "version", "v", false, "print the version and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	opts.configPath = getConfigPath(opts.configPath)
	return opts, nil
}

// getConfigPath returns the configuration file path.
// The --config flag wins, then MAESTRO_CONFIG, then the default.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv("MAESTRO_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// run is the actual application logic, separated from main for testability.
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Printf("maestrobridge %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Maestro bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", opts.configPath)

	log = logging.New(cfg.Logging, version)
	defer func() {
		if closeErr := log.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "closing log output: %v\n", closeErr)
		}
	}()
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	if opts.cleanupDiscovery {
		return cleanupDiscovery(cfg, log)
	}

	mqttClient := mqtt.New(cfg.MQTT)
	mqttClient.SetLogger(log)

	disc := newDiscoveryManager(cfg, cfg.Discovery.Enabled, mqttClient)
	disc.SetLogger(log)
	if cfg.Discovery.Enabled {
		mqttClient.SetWill(disc.AvailabilityTopic(), mqtt.PayloadOffline)
	}

	if connErr := mqttClient.Connect(); connErr != nil {
		return fmt.Errorf("connecting to MQTT: %w", connErr)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"auth", cfg.MQTT.Auth.String(),
	)

	session, err := socketio.New(socketio.Config{
		URL:                  cfg.Maestro.URL,
		ConnectTimeout:       time.Duration(cfg.Maestro.ConnectTimeout) * time.Second,
		ReconnectInterval:    time.Duration(cfg.Maestro.ReconnectInterval) * time.Second,
		MaxReconnectInterval: time.Duration(cfg.Maestro.MaxReconnectDelay) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("creating cloud session: %w", err)
	}
	session.SetLogger(log)
	defer func() {
		log.Info("closing cloud session")
		if closeErr := session.Close(); closeErr != nil {
			log.Error("error closing cloud session", "error", closeErr)
		}
	}()

	bridge, err := maestro.NewBridge(maestro.BridgeOptions{
		Config:        bridgeConfig(cfg),
		MQTTClient:    &mqttBridgeAdapter{client: mqttClient},
		SessionClient: &sessionAdapter{client: session},
		Discovery:     disc,
		Logger:        log,
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if startErr := bridge.Start(ctx); startErr != nil {
		return fmt.Errorf("starting bridge: %w", startErr)
	}
	defer func() {
		log.Info("stopping bridge")
		bridge.Stop()
	}()

	// The first connection must succeed; later drops are recovered by the session.
	if connErr := session.Connect(ctx); connErr != nil {
		return fmt.Errorf("connecting to MCZ cloud: %w", connErr)
	}
	log.Info("cloud session started", "url", cfg.Maestro.URL, "serial", cfg.Maestro.SerialNumber)

	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log,
			Bridge:  bridge,
			Version: version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("status API disabled")
	}

	if err := healthCheck(ctx, mqttClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	// Deferred calls run in reverse: API, bridge (publishes offline),
	// cloud session, MQTT, log output.
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// cleanupDiscovery retracts the retained discovery configs and returns.
func cleanupDiscovery(cfg *config.Config, log *logging.Logger) error {
	mqttClient := mqtt.New(cfg.MQTT)
	mqttClient.SetLogger(log)
	if err := mqttClient.Connect(); err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()

	disc := newDiscoveryManager(cfg, true, mqttClient)
	disc.SetLogger(log)

	removed := disc.CleanupDiscoveryConfigs()
	log.Info("discovery configs removed", "removed", removed, "entities", len(disc.Entities()))
	if removed < len(disc.Entities()) {
		return fmt.Errorf("removed %d of %d discovery configs", removed, len(disc.Entities()))
	}
	return nil
}

// newDiscoveryManager builds the discovery manager for the stove catalog.
func newDiscoveryManager(cfg *config.Config, enabled bool, pub discovery.Publisher) *discovery.Manager {
	return discovery.NewManager(discovery.Settings{
		Enabled:      enabled,
		Prefix:       cfg.Discovery.Prefix,
		DeviceName:   cfg.Discovery.DeviceName,
		DeviceID:     cfg.Discovery.DeviceID,
		StateTopic:   cfg.MQTT.Topics.State,
		CommandTopic: cfg.MQTT.Topics.Command,
		Version:      version,
		QoS:          byte(cfg.MQTT.QoS),
	}, maestro.Entities(), pub)
}

// bridgeConfig converts the loaded configuration into bridge settings.
func bridgeConfig(cfg *config.Config) maestro.Config {
	return maestro.Config{
		Device: maestro.Device{
			SerialNumber: cfg.Maestro.SerialNumber,
			MACAddress:   cfg.Maestro.MACAddress,
		},
		StateTopic:      cfg.MQTT.Topics.State,
		CommandTopic:    cfg.MQTT.Topics.Command,
		QoS:             byte(cfg.MQTT.QoS),
		CommandCodes:    cfg.Discovery.CommandCodes,
		QueueCapacity:   cfg.Bridge.QueueCapacity,
		RefreshInterval: cfg.Bridge.RefreshIntervalDuration(),
		RefreshSettle:   cfg.Bridge.RefreshSettleDuration(),
		DrainInterval:   cfg.Bridge.DrainIntervalDuration(),
		ReconnectWait:   cfg.Bridge.ReconnectWaitDuration(),
	}
}

// healthCheck verifies the broker connection after startup. The cloud
// session is not checked: its namespace handshake completes asynchronously
// and the bridge reacts to it through the connect callback.
func healthCheck(ctx context.Context, mqttClient *mqtt.Client) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	return nil
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the bridge's
// MQTTClient interface. The difference is the Subscribe handler signature:
// - Infrastructure mqtt: func(topic, payload []byte) error
// - Bridge expects: func(topic, payload []byte)
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements maestro.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements maestro.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements maestro.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}

// SetOnConnect implements maestro.MQTTClient.
func (a *mqttBridgeAdapter) SetOnConnect(callback func(reasonCode byte)) {
	a.client.SetOnConnect(callback)
}

// SetOnDisconnect implements maestro.MQTTClient.
func (a *mqttBridgeAdapter) SetOnDisconnect(callback func(reasonCode byte)) {
	a.client.SetOnDisconnect(callback)
}

// sessionAdapter adapts the Socket.IO client to the bridge's SessionClient
// interface, converting the plain handler func to socketio.Handler.
type sessionAdapter struct {
	client *socketio.Client
}

// Emit implements maestro.SessionClient.
func (a *sessionAdapter) Emit(event string, payload any) error {
	return a.client.Emit(event, payload)
}

// On implements maestro.SessionClient.
func (a *sessionAdapter) On(event string, handler func(payload json.RawMessage)) {
	a.client.On(event, socketio.Handler(handler))
}

// IsConnected implements maestro.SessionClient.
func (a *sessionAdapter) IsConnected() bool {
	return a.client.IsConnected()
}

// SetOnConnect implements maestro.SessionClient.
func (a *sessionAdapter) SetOnConnect(callback func()) {
	a.client.SetOnConnect(callback)
}

// SetOnDisconnect implements maestro.SessionClient.
func (a *sessionAdapter) SetOnDisconnect(callback func(err error)) {
	a.client.SetOnDisconnect(callback)
}
