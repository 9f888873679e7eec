// Package discovery publishes Home Assistant MQTT discovery metadata for the
// stove.
//
// Each Entity in the catalog becomes one retained config message under
//
//	<prefix>/<component>/<device id>/<device id>_<lowercase key>/config
//
// pointing Home Assistant at the bridge's per-entity state and command
// topics. The Manager also owns the retained availability topic
// (<state base>/availability) that every entity references.
//
// Every operation is a no-op while discovery is disabled.
package discovery
