package mqtt

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/maestro-bridge/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
// Unit tests here never reach a broker; see integration_test.go for those.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "maestro-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// mockLogger implements Logger interface for testing.
type mockLogger struct {
	errors []string
	warns  []string
	mu     sync.Mutex
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

// =============================================================================
// Options Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "stove", Password: "secret"}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want [tcp://127.0.0.1:1883]", opts.Servers)
	}
	if opts.ClientID != "maestro-test" {
		t.Errorf("ClientID = %q, want maestro-test", opts.ClientID)
	}
	if opts.Username != "stove" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q, want stove/secret", opts.Username, opts.Password)
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect = false, want true")
	}
	if !opts.CleanSession {
		t.Error("CleanSession = false, want true")
	}
	if opts.TLSConfig != nil && opts.TLSConfig.MinVersion != 0 {
		t.Error("TLS configured without broker.tls")
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg)

	if opts.Servers[0].String() != "ssl://127.0.0.1:8883" {
		t.Errorf("Servers[0] = %s, want ssl://127.0.0.1:8883", opts.Servers[0])
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS config missing or below minimum version")
	}
}

func TestClientID_Generated(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = ""

	a, b := clientID(cfg), clientID(cfg)
	if !strings.HasPrefix(a, clientIDPrefix) {
		t.Errorf("clientID() = %q, want prefix %q", a, clientIDPrefix)
	}
	if a == b {
		t.Errorf("clientID() returned %q twice, want unique IDs", a)
	}
}

func TestSetWill(t *testing.T) {
	c := New(testConfig())
	c.SetWill("Maestro/State/availability", PayloadOffline)

	if !c.options.WillEnabled {
		t.Fatal("WillEnabled = false after SetWill")
	}
	if c.options.WillTopic != "Maestro/State/availability" {
		t.Errorf("WillTopic = %q", c.options.WillTopic)
	}
	if string(c.options.WillPayload) != PayloadOffline {
		t.Errorf("WillPayload = %q, want %q", c.options.WillPayload, PayloadOffline)
	}
	if !c.options.WillRetained {
		t.Error("WillRetained = false, want true")
	}
}

// =============================================================================
// Disconnected Client Tests
// =============================================================================

func TestIsConnected_InitialState(t *testing.T) {
	if (&Client{}).IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
	if New(testConfig()).IsConnected() {
		t.Error("IsConnected() should be false before Connect")
	}
}

func TestCloseNil(t *testing.T) {
	if err := (&Client{}).Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestHealthCheck_NotConnected(t *testing.T) {
	c := New(testConfig())
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	c := New(testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestPublish_Validation(t *testing.T) {
	c := New(testConfig())

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{name: "empty topic", topic: "", qos: 1, wantErr: ErrInvalidTopic},
		{name: "invalid qos", topic: "Maestro/State", qos: 3, wantErr: ErrInvalidQoS},
		{name: "oversized payload", topic: "Maestro/State", payload: make([]byte, maxPayloadSize+1), qos: 1, wantErr: ErrPublishFailed},
		{name: "not connected", topic: "Maestro/State", payload: []byte("{}"), qos: 1, wantErr: ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := New(testConfig())
	handler := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 1, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe(empty) error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Subscribe("Maestro/Command", 5, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe(qos 5) error = %v, want ErrInvalidQoS", err)
	}
	if err := c.Subscribe("Maestro/Command", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) error = %v, want ErrSubscribeFailed", err)
	}
	if err := c.Subscribe("Maestro/Command", 1, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe(disconnected) error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Callback Tests
// =============================================================================

func TestHandleConnect_NotifiesSuccess(t *testing.T) {
	c := New(testConfig())

	got := make(chan byte, 1)
	c.SetOnConnect(func(rc byte) { got <- rc })
	c.handleConnect()

	if rc := <-got; rc != ReasonSuccess {
		t.Errorf("onConnect reason = %d, want %d", rc, ReasonSuccess)
	}
}

func TestHandleDisconnect_ReasonCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want byte
	}{
		{name: "network error", err: errors.New("EOF"), want: ReasonConnectionLost},
		{name: "nil error", err: nil, want: ReasonSuccess},
		{name: "cancelled", err: context.Canceled, want: ReasonSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(testConfig())
			logger := &mockLogger{}
			c.SetLogger(logger)

			var got byte = 0xFF
			c.SetOnDisconnect(func(rc byte) { got = rc })
			c.handleDisconnect(tt.err)

			if got != tt.want {
				t.Errorf("onDisconnect reason = %d, want %d", got, tt.want)
			}
			if c.IsConnected() {
				t.Error("IsConnected() = true after disconnect")
			}
		})
	}
}

func TestSetLogger(t *testing.T) {
	c := New(testConfig())
	c.SetLogger(&mockLogger{})
	if c.getLogger() == nil {
		t.Error("getLogger() = nil after SetLogger()")
	}
	c.SetLogger(nil)
	if c.getLogger() != nil {
		t.Error("getLogger() should be nil after SetLogger(nil)")
	}
}

// =============================================================================
// Handler Wrapping Tests
// =============================================================================

func TestDispatch_HandlerError(t *testing.T) {
	c := New(testConfig())
	logger := &mockLogger{}
	c.SetLogger(logger)

	c.dispatch(func(string, []byte) error { return errors.New("bad payload") }, "Maestro/Command", []byte("x"))

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.warns) != 1 {
		t.Errorf("warns = %v, want one entry", logger.warns)
	}
}

func TestDispatch_RecoversPanic(t *testing.T) {
	c := New(testConfig())
	logger := &mockLogger{}
	c.SetLogger(logger)

	c.dispatch(func(string, []byte) error { panic("boom") }, "Maestro/Command", nil)

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.errors) != 1 {
		t.Errorf("errors = %v, want one panic entry", logger.errors)
	}
}

func TestDispatch_NoLogger(t *testing.T) {
	c := New(testConfig())

	// Must not panic without a logger.
	c.dispatch(func(string, []byte) error { panic("boom") }, "t", nil)
	c.dispatch(func(string, []byte) error { return errors.New("e") }, "t", nil)
}

// =============================================================================
// Topics Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := NewTopics("Maestro/State/", "Maestro/Command")

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{name: "State", got: topics.State(), expected: "Maestro/State"},
		{name: "EntityState", got: topics.EntityState("Power"), expected: "Maestro/State/Power"},
		{name: "Availability", got: topics.Availability(), expected: "Maestro/State/availability"},
		{name: "Command", got: topics.Command(), expected: "Maestro/Command"},
		{name: "EntityCommand", got: topics.EntityCommand("Fan_State"), expected: "Maestro/Command/Fan_State"},
		{name: "AllEntityCommands", got: topics.AllEntityCommands(), expected: "Maestro/Command/+"},
		{
			name:     "DiscoveryConfig",
			got:      DiscoveryConfig("homeassistant/", "switch", "stove", "stove_power"),
			expected: "homeassistant/switch/stove/stove_power/config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestEntityFromCommand(t *testing.T) {
	topics := NewTopics("Maestro/State", "Maestro/Command")

	tests := []struct {
		topic  string
		key    string
		wantOK bool
	}{
		{topic: "Maestro/Command/Power", key: "Power", wantOK: true},
		{topic: "Maestro/Command", wantOK: false},
		{topic: "Maestro/Command/", wantOK: false},
		{topic: "Maestro/Command/a/b", wantOK: false},
		{topic: "Other/Command/Power", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			key, ok := topics.EntityFromCommand(tt.topic)
			if ok != tt.wantOK || key != tt.key {
				t.Errorf("EntityFromCommand(%q) = (%q, %v), want (%q, %v)", tt.topic, key, ok, tt.key, tt.wantOK)
			}
		})
	}
}
