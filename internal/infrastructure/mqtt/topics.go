package mqtt

import (
	"fmt"
	"strings"
)

// Topic suffixes below the state base.
const (
	// AvailabilitySuffix is appended to the state base for online/offline status.
	AvailabilitySuffix = "availability"

	// Availability payloads understood by Home Assistant.
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// Topics builds the bridge's topic hierarchy from the configured bases.
//
//	topics := mqtt.NewTopics("Maestro/State", "Maestro/Command")
//	topics.EntityState("Power")    // "Maestro/State/Power"
//	topics.Availability()          // "Maestro/State/availability"
//	topics.EntityCommand("Power")  // "Maestro/Command/Power"
type Topics struct {
	stateBase   string
	commandBase string
}

// NewTopics returns a builder for the given state and command bases.
// Trailing slashes are stripped.
func NewTopics(stateBase, commandBase string) Topics {
	return Topics{
		stateBase:   strings.TrimRight(stateBase, "/"),
		commandBase: strings.TrimRight(commandBase, "/"),
	}
}

// State returns the aggregate state topic carrying the full JSON snapshot.
//
// Example: Maestro/State
func (t Topics) State() string {
	return t.stateBase
}

// EntityState returns the per-entity state topic.
//
// Example: Maestro/State/Ambient_Temperature
func (t Topics) EntityState(key string) string {
	return fmt.Sprintf("%s/%s", t.stateBase, key)
}

// Availability returns the retained online/offline topic.
//
// Example: Maestro/State/availability
func (t Topics) Availability() string {
	return fmt.Sprintf("%s/%s", t.stateBase, AvailabilitySuffix)
}

// Command returns the raw command topic accepting "code,value" payloads.
//
// Example: Maestro/Command
func (t Topics) Command() string {
	return t.commandBase
}

// EntityCommand returns the command topic advertised for a controllable entity.
//
// Example: Maestro/Command/Power
func (t Topics) EntityCommand(key string) string {
	return fmt.Sprintf("%s/%s", t.commandBase, key)
}

// AllEntityCommands returns a pattern matching every entity command topic.
//
// Pattern: Maestro/Command/+
func (t Topics) AllEntityCommands() string {
	return fmt.Sprintf("%s/+", t.commandBase)
}

// EntityFromCommand extracts the entity key from an entity command topic.
// It reports false for the raw command topic and for foreign topics.
func (t Topics) EntityFromCommand(topic string) (string, bool) {
	key, ok := strings.CutPrefix(topic, t.commandBase+"/")
	if !ok || key == "" || strings.Contains(key, "/") {
		return "", false
	}
	return key, true
}

// DiscoveryConfig returns the Home Assistant discovery config topic.
//
// Example: homeassistant/sensor/mcz_maestro_stove/mcz_maestro_stove_power/config
func DiscoveryConfig(prefix, component, deviceID, objectID string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", strings.TrimRight(prefix, "/"), component, deviceID, objectID)
}
