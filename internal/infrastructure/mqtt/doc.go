// Package mqtt provides the MQTT client used by the Maestro bridge.
//
// It wraps the Eclipse Paho MQTT client with:
//   - Connection management with automatic reconnection
//   - Reason-coded connect and disconnect callbacks
//   - Last Will for availability announcement
//   - Input validation on publish and subscribe
//   - Panic recovery around message handlers
//
// # Topic Structure
//
// All topics hang off two configured bases (see Topics):
//
//	Maestro/State                    aggregate JSON snapshot
//	Maestro/State/{Key}              one entity value
//	Maestro/State/availability       online | offline (retained)
//	Maestro/Command                  "code,value" commands
//	Maestro/Command/{Key}            entity command topics
//	homeassistant/{component}/{device}/{object}/config   discovery
//
// # Usage
//
//	client := mqtt.New(cfg.MQTT)
//	client.SetWill(topics.Availability(), mqtt.PayloadOffline)
//	client.SetOnConnect(func(rc byte) { ... })
//	if err := client.Connect(); err != nil {
//	    return err
//	}
//	defer client.Close()
//
// # Thread Safety
//
// All Client methods are safe for concurrent use.
package mqtt
