package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/maestro-bridge/internal/infrastructure/config"
)

// Reason codes reported to the connect and disconnect callbacks.
// Connect codes are the MQTT 3.1.1 CONNACK return codes.
const (
	// ReasonSuccess is reported for an accepted connection or a requested disconnect.
	ReasonSuccess byte = 0x00

	// ReasonRefusedBadCredentials is the CONNACK code for a bad username or password.
	ReasonRefusedBadCredentials byte = 0x04

	// ReasonRefusedNotAuthorised is the CONNACK code for an unauthorised client.
	ReasonRefusedNotAuthorised byte = 0x05

	// ReasonConnectionLost is reported when the network connection drops.
	ReasonConnectionLost byte = 0x80
)

// Client wraps paho.mqtt.golang with bridge-specific functionality.
//
// It provides connection management, message publishing, subscription handling,
// and automatic reconnection with exponential backoff.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Subscriptions are not restored by the client; owners re-subscribe
//     from their connect callback, which runs on every (re)connect.
type Client struct {
	client  pahomqtt.Client
	options *pahomqtt.ClientOptions
	cfg     config.MQTTConfig

	connected bool
	connMu    sync.RWMutex

	// Callbacks for connection events (optional, set before Connect).
	onConnect    func(reasonCode byte)
	onDisconnect func(reasonCode byte)
	callbackMu   sync.RWMutex

	// logger for error/panic logging (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// MessageHandler is the callback signature for received messages.
//
// Handlers are invoked in separate goroutines by the paho library.
// They should not block for extended periods.
//
// Returns:
//   - error: Logged but does not affect message acknowledgment
type MessageHandler func(topic string, payload []byte) error

// New prepares a client from configuration without connecting.
//
// Callbacks and the Last Will should be registered before Connect so the
// initial connection is observed like every later reconnect.
func New(cfg config.MQTTConfig) *Client {
	c := &Client{
		cfg:     cfg,
		options: buildClientOptions(cfg),
	}

	c.options.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	c.options.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})
	c.options.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("MQTT reconnecting", "broker", brokerURL(cfg))
		}
	})

	return c
}

// SetWill configures the Last Will and Testament, published retained by the
// broker if the bridge disappears without a clean disconnect.
// Must be called before Connect.
func (c *Client) SetWill(topic, payload string) {
	c.options.SetWill(topic, payload, byte(c.cfg.QoS), true)
}

// Connect establishes the connection to the MQTT broker.
//
// Returns:
//   - error: wraps ErrConnectionFailed if the broker refuses or does not
//     answer within the connect timeout
func (c *Client) Connect() error {
	c.client = pahomqtt.NewClient(c.options)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		rc := connectReturnCode(token)
		c.notifyConnect(rc)
		return fmt.Errorf("%w: %w (reason code %d)", ErrConnectionFailed, err, rc)
	}

	// The OnConnectHandler runs asynchronously and may not have executed yet.
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	return nil
}

// connectReturnCode extracts the CONNACK code from a finished connect token.
func connectReturnCode(token pahomqtt.Token) byte {
	if ct, ok := token.(*pahomqtt.ConnectToken); ok {
		return ct.ReturnCode()
	}
	return ReasonConnectionLost
}

// handleConnect is called when the connection is established.
func (c *Client) handleConnect() {
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	c.notifyConnect(ReasonSuccess)
}

func (c *Client) notifyConnect(reasonCode byte) {
	c.callbackMu.RLock()
	callback := c.onConnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(reasonCode)
	}
}

// handleDisconnect is called when the connection is lost.
func (c *Client) handleDisconnect(err error) {
	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	if logger := c.getLogger(); logger != nil && err != nil {
		logger.Warn("MQTT connection lost", "error", err)
	}

	c.callbackMu.RLock()
	callback := c.onDisconnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(disconnectReasonCode(err))
	}
}

// disconnectReasonCode maps a paho connection-lost error onto a reason code.
func disconnectReasonCode(err error) byte {
	if err == nil || errors.Is(err, context.Canceled) {
		return ReasonSuccess
	}
	return ReasonConnectionLost
}

// Close gracefully disconnects from the MQTT broker.
// The Last Will is not published on a clean disconnect, so callers that
// announce availability should publish "offline" before calling Close.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	c.client.Disconnect(defaultDisconnectQuiesce)

	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	return nil
}

// HealthCheck verifies the MQTT connection is alive.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client != nil && c.client.IsConnected()
}

// SetOnConnect sets a callback invoked with the CONNACK reason code on the
// initial connect and on every reconnect.
func (c *Client) SetOnConnect(callback func(reasonCode byte)) {
	c.callbackMu.Lock()
	c.onConnect = callback
	c.callbackMu.Unlock()
}

// SetOnDisconnect sets a callback invoked when the connection is lost.
func (c *Client) SetOnDisconnect(callback func(reasonCode byte)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}

// SetLogger sets a logger for error and panic logging.
// If not set, errors in handlers are silently ignored.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// wrapHandler wraps a MessageHandler with panic recovery and optional logging.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.dispatch(handler, msg.Topic(), msg.Payload())
	}
}

// dispatch runs a handler, turning panics and returned errors into log entries.
func (c *Client) dispatch(handler MessageHandler, topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Error("MQTT handler panic recovered",
					"topic", topic,
					"panic", r,
				)
			}
		}
	}()

	if err := handler(topic, payload); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("MQTT handler returned error",
				"topic", topic,
				"error", err,
			)
		}
	}
}
