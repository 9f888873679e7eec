package socketio

import "errors"

// Domain-specific errors for Socket.IO session operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidURL is returned when the server URL cannot be turned into a WebSocket endpoint.
	ErrInvalidURL = errors.New("socketio: invalid server URL")

	// ErrConnectionFailed is returned when the initial connection attempt fails.
	ErrConnectionFailed = errors.New("socketio: connection failed")

	// ErrHandshakeFailed is returned when the Engine.IO open packet is missing or malformed.
	ErrHandshakeFailed = errors.New("socketio: handshake failed")

	// ErrAlreadyStarted is returned when Connect is called on a running client.
	ErrAlreadyStarted = errors.New("socketio: client already started")

	// ErrNotConnected is returned when emitting without an active session.
	ErrNotConnected = errors.New("socketio: not connected")

	// ErrEmitFailed is returned when an event cannot be written to the socket.
	ErrEmitFailed = errors.New("socketio: emit failed")

	// ErrInvalidPacket is returned for packets that do not follow the protocol.
	ErrInvalidPacket = errors.New("socketio: invalid packet")

	// ErrServerClosed is returned when the server ends the session.
	ErrServerClosed = errors.New("socketio: session closed by server")
)
