package maestro

import "errors"

// Domain errors for the Maestro bridge package.
var (
	// ErrQueueFull is returned when enqueueing into a bounded queue at capacity.
	ErrQueueFull = errors.New("maestro: command queue full")

	// ErrQueueEmpty is returned when dequeueing or peeking an empty queue.
	ErrQueueEmpty = errors.New("maestro: command queue empty")

	// ErrIndexOutOfRange is returned for a queue position or range outside the queue.
	ErrIndexOutOfRange = errors.New("maestro: queue index out of range")

	// ErrEmptyResponse is returned when a rispondo payload carries no frame.
	ErrEmptyResponse = errors.New("maestro: response without frame")

	// ErrMalformedField is returned when a frame field is not hexadecimal.
	ErrMalformedField = errors.New("maestro: malformed frame field")

	// ErrInvalidCommand is returned when a bus command payload cannot be parsed.
	ErrInvalidCommand = errors.New("maestro: invalid command")

	// ErrUnknownEntity is returned when an entity command topic has no parameter code.
	ErrUnknownEntity = errors.New("maestro: no command code for entity")

	// ErrSessionDisconnected is returned when the cloud session is required but down.
	ErrSessionDisconnected = errors.New("maestro: cloud session disconnected")
)
