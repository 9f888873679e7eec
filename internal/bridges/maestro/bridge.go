package maestro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/maestro-bridge/internal/discovery"
	"github.com/nerrad567/maestro-bridge/internal/infrastructure/mqtt"
)

// Default loop timing, matching the cloud app's polling cadence.
const (
	DefaultRefreshInterval = 30 * time.Second
	DefaultRefreshSettle   = 15 * time.Second
	DefaultDrainInterval   = 5 * time.Second
	DefaultReconnectWait   = 30 * time.Second
)

// mqttReasonSuccess is the connect/disconnect reason code for success.
const mqttReasonSuccess byte = 0

// Bridge relays state and commands between the Maestro cloud session and MQTT.
// It handles:
//   - Decoding status frames and publishing the snapshot and per-entity topics
//   - Queueing bus commands and emitting them to the cloud one at a time
//   - Discovery configs and availability on (re)connect
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	cfg       Config
	mqtt      MQTTClient
	session   SessionClient
	discovery *discovery.Manager
	topics    mqtt.Topics
	decoder   *Decoder
	queue     *CommandQueue

	// Latest decoded frame, replaced whole on each response.
	snapshot    Snapshot
	lastFrameAt time.Time
	snapshotMu  sync.RWMutex

	sessionState atomic.Int32
	busState     atomic.Int32

	// Counters for the metrics endpoint.
	framesDecoded    atomic.Uint64
	fieldErrors      atomic.Uint64
	commandsReceived atomic.Uint64
	commandsRejected atomic.Uint64
	requestsSent     atomic.Uint64
	publishErrors    atomic.Uint64

	// trigger wakes the drain loop early; buffered so triggers coalesce.
	trigger chan struct{}

	// Shutdown coordination
	started  atomic.Bool
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger is the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool

	// SetOnConnect registers the callback run on every (re)connect attempt
	// with the broker's reason code.
	SetOnConnect(callback func(reasonCode byte))

	// SetOnDisconnect registers the callback run when the connection drops.
	SetOnDisconnect(callback func(reasonCode byte))
}

// SessionClient is the interface for the cloud session transport.
type SessionClient interface {
	// Emit sends an event with a JSON payload.
	Emit(event string, payload any) error

	// On registers the handler for an incoming event.
	On(event string, handler func(payload json.RawMessage))

	// IsConnected returns true while the session is established.
	IsConnected() bool

	// SetOnConnect registers the callback run on every (re)connect.
	SetOnConnect(callback func())

	// SetOnDisconnect registers the callback run when the session drops.
	SetOnDisconnect(callback func(err error))
}

// Config holds the bridge settings.
type Config struct {
	Device Device

	// StateTopic and CommandTopic are the MQTT topic bases.
	StateTopic   string
	CommandTopic string
	QoS          byte

	// CommandCodes maps entity keys to parameter codes for entity command topics.
	CommandCodes map[string]int

	// QueueCapacity bounds the command queue; 0 means unbounded.
	QueueCapacity int

	RefreshInterval time.Duration
	RefreshSettle   time.Duration
	DrainInterval   time.Duration
	ReconnectWait   time.Duration
}

// withDefaults fills zero durations with the package defaults.
func (c Config) withDefaults() Config {
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.RefreshSettle <= 0 {
		c.RefreshSettle = DefaultRefreshSettle
	}
	if c.DrainInterval <= 0 {
		c.DrainInterval = DefaultDrainInterval
	}
	if c.ReconnectWait <= 0 {
		c.ReconnectWait = DefaultReconnectWait
	}
	return c
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Config is the bridge configuration.
	Config Config

	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// SessionClient is the cloud session.
	SessionClient SessionClient

	// Discovery publishes discovery configs and availability.
	// If nil, neither is published and per-entity topics are skipped.
	Discovery *discovery.Manager

	// Logger is optional structured logger.
	Logger Logger
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.SessionClient == nil {
		return nil, fmt.Errorf("session client is required")
	}
	if opts.Config.Device.SerialNumber == "" {
		return nil, fmt.Errorf("device serial number is required")
	}
	if opts.Config.StateTopic == "" || opts.Config.CommandTopic == "" {
		return nil, fmt.Errorf("state and command topics are required")
	}

	cfg := opts.Config.withDefaults()

	return &Bridge{
		cfg:       cfg,
		mqtt:      opts.MQTTClient,
		session:   opts.SessionClient,
		discovery: opts.Discovery,
		topics:    mqtt.NewTopics(cfg.StateTopic, cfg.CommandTopic),
		decoder:   NewInfoDecoder(),
		queue:     NewCommandQueue(cfg.QueueCapacity),
		trigger:   make(chan struct{}, 1),
		done:      make(chan struct{}),
		logger:    opts.Logger,
	}, nil
}

// Start registers the transport callbacks and starts the refresh and drain
// loops. Transports that are already connected are handled immediately.
func (b *Bridge) Start(ctx context.Context) error {
	if !b.started.CompareAndSwap(false, true) {
		return fmt.Errorf("bridge already started")
	}

	b.session.On(EventResponse, b.handleResponse)
	b.session.SetOnConnect(b.handleSessionConnect)
	b.session.SetOnDisconnect(b.handleSessionDisconnect)
	b.mqtt.SetOnConnect(b.handleBusConnect)
	b.mqtt.SetOnDisconnect(b.handleBusDisconnect)

	if b.mqtt.IsConnected() {
		b.handleBusConnect(mqttReasonSuccess)
	}
	if b.session.IsConnected() {
		b.handleSessionConnect()
	} else {
		b.sessionState.Store(int32(SessionConnecting))
	}

	b.wg.Add(2)
	go b.refreshLoop(ctx)
	go b.drainLoop(ctx)

	b.logInfo("bridge started",
		"serial_number", b.cfg.Device.SerialNumber,
		"state_topic", b.topics.State(),
		"command_topic", b.topics.Command())

	return nil
}

// Stop gracefully shuts down the bridge and marks the device offline.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)

		// Wait for the loops
		b.wg.Wait()

		b.publishAvailability(false)
		b.sessionState.Store(int32(SessionDisconnected))

		b.logInfo("bridge stopped", "pending_commands", b.queue.Len())
	})
}

// handleSessionConnect joins the stove and requests its state.
func (b *Bridge) handleSessionConnect() {
	b.sessionState.Store(int32(SessionActive))
	b.logInfo("cloud session connected")

	if err := b.session.Emit(EventJoin, b.cfg.Device.Join()); err != nil {
		b.logError("failed to join stove", err)
	}
	if err := b.emitRequest(CallParameters, RequestParameters); err != nil {
		b.logError("failed to request parameters", err)
	}
	if err := b.emitRequest(CallCommand, RequestInfo); err != nil {
		b.logError("failed to request info", err)
	}

	b.publishAvailability(true)
}

// handleSessionDisconnect marks the device offline; the transport reconnects.
func (b *Bridge) handleSessionDisconnect(err error) {
	select {
	case <-b.done:
		return
	default:
	}

	b.sessionState.Store(int32(SessionConnecting))
	b.logError("cloud session disconnected", err)
	b.publishAvailability(false)
}

// handleBusConnect subscribes to commands and publishes discovery configs.
func (b *Bridge) handleBusConnect(reasonCode byte) {
	// The paho transport connects with SetConnectRetry, so a refused CONNACK
	// after Start is retried inside paho and never reaches this callback.
	// Only clients without connect retry deliver a non-zero code here.
	if reasonCode != mqttReasonSuccess {
		b.busState.Store(int32(BusDisconnected))
		b.logWarn("MQTT connection refused, discovery skipped", "reason_code", reasonCode)
		return
	}
	b.busState.Store(int32(BusConnected))
	b.logInfo("MQTT connected")

	for _, topic := range []string{b.topics.Command(), b.topics.AllEntityCommands()} {
		if err := b.mqtt.Subscribe(topic, b.cfg.QoS, b.handleMQTTMessage); err != nil {
			b.logError("failed to subscribe", err)
			continue
		}
		b.logInfo("subscribed to commands", "topic", topic)
	}

	if b.discovery != nil {
		n := b.discovery.PublishDiscoveryConfigs()
		if b.discovery.Enabled() {
			b.logInfo("discovery configs published", "entities", n)
		}
	}

	// A Last Will may have marked the device offline while we were away.
	if b.session.IsConnected() {
		b.publishAvailability(true)
	}
}

// handleBusDisconnect records the lost broker connection.
func (b *Bridge) handleBusDisconnect(reasonCode byte) {
	b.busState.Store(int32(BusDisconnected))
	if reasonCode != mqttReasonSuccess {
		b.logWarn("unexpected MQTT disconnection, reconnecting", "reason_code", reasonCode)
	}
}

// handleMQTTMessage turns a bus command into a queued cloud directive.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) {
	b.commandsReceived.Add(1)

	var (
		directive string
		err       error
	)
	if key, ok := b.topics.EntityFromCommand(topic); ok {
		directive, err = ParseEntityCommand(b.cfg.CommandCodes, key, string(payload))
	} else {
		directive, err = ParseBusCommand(string(payload))
	}
	if err != nil {
		b.commandsRejected.Add(1)
		b.logWarn("dropping command", "topic", topic, "payload", string(payload), "error", err)
		return
	}

	if err := b.queue.Enqueue(directive); err != nil {
		b.commandsRejected.Add(1)
		b.logError("failed to queue command", err)
		return
	}

	b.logInfo("command queued", "directive", directive, "pending", b.queue.Len())
	b.triggerDrain()
}

// handleResponse decodes a status frame and publishes it.
func (b *Bridge) handleResponse(payload json.RawMessage) {
	resp, err := ParseResponse(payload)
	if err != nil {
		b.logError("invalid response", err)
		return
	}

	snap, fieldErrs := b.decoder.Decode(resp.Frame)
	for _, fieldErr := range fieldErrs {
		b.fieldErrors.Add(1)
		b.logWarn("skipping malformed field", "error", fieldErr)
	}
	b.framesDecoded.Add(1)

	b.snapshotMu.Lock()
	b.snapshot = snap
	b.lastFrameAt = time.Now()
	b.snapshotMu.Unlock()

	b.publishSnapshot(snap)
}

// publishSnapshot publishes the aggregate snapshot, then per-entity
// topics, then availability.
func (b *Bridge) publishSnapshot(snap Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		b.logError("failed to encode snapshot", err)
		return
	}
	b.logDebug("publishing snapshot", "topic", b.topics.State(), "fields", len(snap))
	b.publish(b.topics.State(), data)

	if b.discovery != nil && b.discovery.Enabled() {
		for _, r := range MapSnapshot(snap) {
			b.publish(b.topics.EntityState(r.Key), []byte(r.Value))
		}
	}

	b.publishAvailability(true)
}

// publish sends a non-retained message; failures are logged and counted.
func (b *Bridge) publish(topic string, payload []byte) {
	if err := b.mqtt.Publish(topic, payload, b.cfg.QoS, false); err != nil {
		b.publishErrors.Add(1)
		b.logError("failed to publish", fmt.Errorf("%s: %w", topic, err))
	}
}

func (b *Bridge) publishAvailability(online bool) {
	if b.discovery == nil {
		return
	}
	var err error
	if online {
		err = b.discovery.PublishAvailabilityOnline()
	} else {
		err = b.discovery.PublishAvailabilityOffline()
	}
	if err != nil {
		b.publishErrors.Add(1)
	}
}

// emitRequest sends a chiedo request for the configured stove.
func (b *Bridge) emitRequest(callType int, request string) error {
	if !b.session.IsConnected() {
		return ErrSessionDisconnected
	}
	if err := b.session.Emit(EventRequest, b.cfg.Device.Request(callType, request)); err != nil {
		return fmt.Errorf("emitting %q: %w", request, err)
	}
	b.requestsSent.Add(1)
	b.logDebug("request sent", "request", request)
	return nil
}

// triggerDrain wakes the drain loop without blocking.
func (b *Bridge) triggerDrain() {
	select {
	case b.trigger <- struct{}{}:
	default:
	}
}

// Snapshot returns a copy of the latest decoded frame and when it arrived.
func (b *Bridge) Snapshot() (Snapshot, time.Time) {
	b.snapshotMu.RLock()
	defer b.snapshotMu.RUnlock()
	return b.snapshot.Clone(), b.lastFrameAt
}

// PendingCommands returns the queued directives, front first.
func (b *Bridge) PendingCommands() []string {
	return b.queue.Items()
}

// State returns the connection state of both transports.
func (b *Bridge) State() State {
	return State{
		Session: SessionState(b.sessionState.Load()),
		Bus:     BusState(b.busState.Load()),
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	defer b.loggerMu.Unlock()
	b.logger = logger
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning if logger is set.
func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (b *Bridge) logError(msg string, err error) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}

// logDebug logs a debug message if logger is set.
func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

// BridgeMetrics contains metrics data for the API metrics endpoint.
type BridgeMetrics struct {
	SessionConnected bool
	BusConnected     bool
	Status           string
	FramesDecoded    uint64
	FieldErrors      uint64
	CommandsReceived uint64
	CommandsRejected uint64
	RequestsSent     uint64
	PublishErrors    uint64
	PendingCommands  int
	LastFrameAt      time.Time
}

// GetMetrics returns current bridge metrics for the API metrics endpoint.
func (b *Bridge) GetMetrics() BridgeMetrics {
	b.snapshotMu.RLock()
	lastFrame := b.lastFrameAt
	b.snapshotMu.RUnlock()

	sessionUp := b.session.IsConnected()
	busUp := b.mqtt.IsConnected()

	status := "disconnected"
	switch {
	case sessionUp && busUp:
		status = "healthy"
	case sessionUp || busUp:
		status = "degraded"
	}

	return BridgeMetrics{
		SessionConnected: sessionUp,
		BusConnected:     busUp,
		Status:           status,
		FramesDecoded:    b.framesDecoded.Load(),
		FieldErrors:      b.fieldErrors.Load(),
		CommandsReceived: b.commandsReceived.Load(),
		CommandsRejected: b.commandsRejected.Load(),
		RequestsSent:     b.requestsSent.Load(),
		PublishErrors:    b.publishErrors.Load(),
		PendingCommands:  b.queue.Len(),
		LastFrameAt:      lastFrame,
	}
}

// isDisconnected reports whether err means the session is down.
func isDisconnected(err error) bool {
	return errors.Is(err, ErrSessionDisconnected)
}
