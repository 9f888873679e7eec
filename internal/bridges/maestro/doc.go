// Package maestro implements the MCZ Maestro cloud to MQTT bridge.
//
// The stove is reached through the MCZ cloud: a Socket.IO session on which
// the bridge joins the stove, sends requests ("chiedo") and receives status
// frames ("rispondo"). State is republished on MQTT and commands arriving on
// MQTT are relayed back to the cloud.
//
// # Architecture
//
//	┌─────────────────┐          ┌─────────────────┐  Socket.IO  ┌───────────┐
//	│  Home Assistant │   MQTT   │  Maestro Bridge │◄───────────►│ MCZ cloud │
//	│  / automations  │◄────────►│   (this pkg)    │             └───────────┘
//	└─────────────────┘          └─────────────────┘
//
// # Status Frames
//
// A frame is a "|"-separated list of hexadecimal fields. Each position is
// decoded by a FieldRule: enumerated codes become labels, a few temperatures
// are transmitted in half degrees, and operating hours arrive as seconds and
// are rendered as "d:h:m:s".
//
//	snap, errs := maestro.NewInfoDecoder().Decode("01|0|0|0|0|A0|2C|...")
//	snap["Temperature ambiante"] // 22.0
//
// The decoded snapshot is published as JSON on the state topic. With
// discovery enabled each mapped field is also published on its own topic
// (e.g. Maestro/State/Ambient_Temperature).
//
// # Commands
//
// The command topic accepts "code,value" payloads which become
// "C|WriteParametri|code|value" requests. Requests are queued and sent one
// at a time by the drain loop; when the queue is idle the loop polls the
// stove with "C|RecuperoInfo".
//
// # Thread Safety
//
// Bridge and CommandQueue are safe for concurrent use.
package maestro
