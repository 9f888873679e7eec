// Package api implements the read-only HTTP status API of the Maestro bridge.
//
// Endpoints:
//   - GET /api/v1/health   connection state of the cloud session and the MQTT bus
//   - GET /api/v1/metrics  runtime statistics and bridge counters
//   - GET /api/v1/snapshot the last decoded status frame
//   - GET /api/v1/queue    commands waiting to be sent to the stove
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// There is no authentication; bind it to a trusted interface.
package api
