package discovery

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/nerrad567/maestro-bridge/internal/infrastructure/mqtt"
)

// Device metadata defaults.
const (
	DefaultManufacturer  = "MCZ"
	DefaultModel         = "Maestro Stove"
	DefaultSuggestedArea = "Living Room"
)

// Publisher is the MQTT publishing capability the manager needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the logging interface used by the manager.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Settings configures discovery payloads.
type Settings struct {
	Enabled    bool
	Prefix     string
	DeviceName string
	DeviceID   string

	// StateTopic and CommandTopic are the bridge's topic bases.
	StateTopic   string
	CommandTopic string

	Version       string
	Manufacturer  string
	Model         string
	SuggestedArea string

	QoS byte
}

// Manager builds and publishes discovery configs and availability.
//
// Thread Safety: All methods are safe for concurrent use.
type Manager struct {
	settings Settings
	entities []Entity
	topics   mqtt.Topics
	pub      Publisher

	logger   Logger
	loggerMu sync.RWMutex
}

// NewManager creates a manager for the given catalog.
// Empty device metadata fields take the package defaults.
func NewManager(settings Settings, entities []Entity, pub Publisher) *Manager {
	if settings.Manufacturer == "" {
		settings.Manufacturer = DefaultManufacturer
	}
	if settings.Model == "" {
		settings.Model = DefaultModel
	}
	if settings.SuggestedArea == "" {
		settings.SuggestedArea = DefaultSuggestedArea
	}
	settings.Prefix = strings.TrimRight(settings.Prefix, "/")

	catalog := make([]Entity, len(entities))
	copy(catalog, entities)

	return &Manager{
		settings: settings,
		entities: catalog,
		topics:   mqtt.NewTopics(settings.StateTopic, settings.CommandTopic),
		pub:      pub,
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.loggerMu.Lock()
	defer m.loggerMu.Unlock()
	m.logger = logger
}

// Enabled reports whether discovery publication is enabled.
func (m *Manager) Enabled() bool {
	return m.settings.Enabled
}

// Entities returns a copy of the catalog.
func (m *Manager) Entities() []Entity {
	out := make([]Entity, len(m.entities))
	copy(out, m.entities)
	return out
}

// AvailabilityTopic returns the retained online/offline topic.
func (m *Manager) AvailabilityTopic() string {
	return m.topics.Availability()
}

// DeviceInfo returns the device block shared by all entity configs.
func (m *Manager) DeviceInfo() DeviceInfo {
	return DeviceInfo{
		Identifiers:   []string{m.settings.DeviceID},
		Name:          m.settings.DeviceName,
		Manufacturer:  m.settings.Manufacturer,
		Model:         m.settings.Model,
		SWVersion:     m.settings.Version,
		SuggestedArea: m.settings.SuggestedArea,
	}
}

// ObjectID returns the Home Assistant object id for an entity.
func (m *Manager) ObjectID(e Entity) string {
	return m.settings.DeviceID + "_" + strings.ToLower(e.Key)
}

// DiscoveryTopic returns the retained config topic for an entity.
func (m *Manager) DiscoveryTopic(e Entity) string {
	return mqtt.DiscoveryConfig(m.settings.Prefix, string(e.Component), m.settings.DeviceID, m.ObjectID(e))
}

// BuildEntityConfig builds the discovery payload for an entity.
func (m *Manager) BuildEntityConfig(e Entity) EntityConfig {
	cfg := EntityConfig{
		Name:              m.settings.DeviceName + " " + e.Name,
		UniqueID:          m.settings.DeviceID + "-" + e.Key,
		ObjectID:          m.ObjectID(e),
		Device:            m.DeviceInfo(),
		AvailabilityTopic: m.topics.Availability(),
		StateTopic:        m.topics.EntityState(e.Key),
		Unit:              e.Unit,
		Icon:              e.Icon,
		DeviceClass:       e.DeviceClass,
		StateClass:        e.StateClass,
		ValueTemplate:     e.ValueTemplate,
	}

	if e.Controllable {
		key := e.Key
		if e.CommandKey != "" {
			key = e.CommandKey
		}
		cfg.CommandTopic = m.topics.EntityCommand(key)
	}

	switch e.Component {
	case ComponentSwitch:
		cfg.PayloadOn = orDefault(e.PayloadOn, defaultPayloadOn)
		cfg.PayloadOff = orDefault(e.PayloadOff, defaultPayloadOff)
		cfg.StateOn = defaultPayloadOn
		cfg.StateOff = defaultPayloadOff
	case ComponentNumber:
		cfg.Min = e.Min
		cfg.Max = e.Max
		cfg.Step = e.Step
		cfg.Mode = e.Mode
	}

	return cfg
}

// PublishDiscoveryConfigs publishes a retained config for every entity and
// returns how many were published. A failed entity is logged and skipped.
func (m *Manager) PublishDiscoveryConfigs() int {
	if !m.settings.Enabled {
		m.logDebug("discovery disabled, skipping config publication")
		return 0
	}

	m.logInfo("publishing discovery configs", "entities", len(m.entities))

	published := 0
	for _, e := range m.entities {
		payload, err := json.Marshal(m.BuildEntityConfig(e))
		if err != nil {
			m.logError("failed to encode discovery config", "entity", e.Key, "error", err)
			continue
		}
		if err := m.publish(m.DiscoveryTopic(e), payload); err != nil {
			m.logError("failed to publish discovery config", "entity", e.Key, "error", err)
			continue
		}
		published++
	}
	return published
}

// CleanupDiscoveryConfigs retracts every entity by publishing an empty
// retained payload to its config topic. Returns how many were retracted.
func (m *Manager) CleanupDiscoveryConfigs() int {
	if !m.settings.Enabled {
		return 0
	}

	m.logInfo("removing discovery configs", "entities", len(m.entities))

	removed := 0
	for _, e := range m.entities {
		if err := m.publish(m.DiscoveryTopic(e), []byte{}); err != nil {
			m.logError("failed to remove discovery config", "entity", e.Key, "error", err)
			continue
		}
		removed++
	}
	return removed
}

// PublishAvailabilityOnline marks the device available.
func (m *Manager) PublishAvailabilityOnline() error {
	return m.publishAvailability(mqtt.PayloadOnline)
}

// PublishAvailabilityOffline marks the device unavailable.
func (m *Manager) PublishAvailabilityOffline() error {
	return m.publishAvailability(mqtt.PayloadOffline)
}

func (m *Manager) publishAvailability(state string) error {
	if !m.settings.Enabled {
		return nil
	}
	if err := m.publish(m.topics.Availability(), []byte(state)); err != nil {
		m.logError("failed to publish availability", "state", state, "error", err)
		return err
	}
	m.logDebug("published availability", "state", state)
	return nil
}

// publish sends a retained message.
func (m *Manager) publish(topic string, payload []byte) error {
	if err := m.pub.Publish(topic, payload, m.settings.QoS, true); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (m *Manager) logDebug(msg string, keysAndValues ...any) {
	m.loggerMu.RLock()
	defer m.loggerMu.RUnlock()
	if m.logger != nil {
		m.logger.Debug(msg, keysAndValues...)
	}
}

func (m *Manager) logInfo(msg string, keysAndValues ...any) {
	m.loggerMu.RLock()
	defer m.loggerMu.RUnlock()
	if m.logger != nil {
		m.logger.Info(msg, keysAndValues...)
	}
}

func (m *Manager) logError(msg string, keysAndValues ...any) {
	m.loggerMu.RLock()
	defer m.loggerMu.RUnlock()
	if m.logger != nil {
		m.logger.Error(msg, keysAndValues...)
	}
}
