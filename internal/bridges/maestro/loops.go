package maestro

import (
	"context"
	"time"
)

// SessionState is the cloud session axis of the bridge state.
type SessionState int32

// Session states.
const (
	SessionDisconnected SessionState = iota
	SessionConnecting
	SessionActive
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case SessionDisconnected:
		return "disconnected"
	case SessionConnecting:
		return "connecting"
	case SessionActive:
		return "active"
	default:
		return "unknown"
	}
}

// BusState is the MQTT axis of the bridge state.
type BusState int32

// Bus states.
const (
	BusDisconnected BusState = iota
	BusConnected
)

// String returns the state name.
func (s BusState) String() string {
	if s == BusConnected {
		return "connected"
	}
	return "disconnected"
}

// State combines the two independent connection axes.
type State struct {
	Session SessionState
	Bus     BusState
}

// refreshLoop periodically asks the stove for a fresh status frame.
func (b *Bridge) refreshLoop(ctx context.Context) {
	defer b.wg.Done()

	for {
		if !b.wait(ctx, b.cfg.RefreshInterval) {
			return
		}

		if !b.session.IsConnected() {
			b.logWarn("cloud session down, waiting", "wait", b.cfg.ReconnectWait)
			if !b.wait(ctx, b.cfg.ReconnectWait) {
				return
			}
			continue
		}

		if err := b.emitRequest(CallCommand, RequestInfo); err != nil {
			b.logError("failed to refresh", err)
		}
		if !b.wait(ctx, b.cfg.RefreshSettle) {
			return
		}
	}
}

// drainLoop emits one queued command per tick or trigger.
func (b *Bridge) drainLoop(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case <-ticker.C:
		case <-b.trigger:
		}

		if err := b.drainOnce(); err != nil {
			if !isDisconnected(err) {
				b.logError("failed to send command", err)
				continue
			}
			b.logWarn("cloud session down, holding commands",
				"pending", b.queue.Len(), "wait", b.cfg.ReconnectWait)
			if !b.wait(ctx, b.cfg.ReconnectWait) {
				return
			}
		}
	}
}

// drainOnce sends the next queued command. An empty queue is seeded with an
// info request so the stove is polled even without bus traffic. A command
// that fails to send goes back to the head of the line.
func (b *Bridge) drainOnce() error {
	if !b.session.IsConnected() {
		return ErrSessionDisconnected
	}

	if b.queue.IsEmpty() {
		if err := b.queue.Enqueue(RequestInfo); err != nil {
			return err
		}
	}

	cmd, err := b.queue.Dequeue()
	if err != nil {
		return err
	}

	b.logInfo("sending command", "request", cmd, "pending", b.queue.Len())
	if err := b.emitRequest(CallCommand, cmd); err != nil {
		if requeueErr := b.queue.EnqueueBack(cmd); requeueErr != nil {
			b.logError("command lost", requeueErr)
		}
		return err
	}
	return nil
}

// wait blocks for d, returning false if the bridge is stopping.
func (b *Bridge) wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-b.done:
		return false
	case <-timer.C:
		return true
	}
}
