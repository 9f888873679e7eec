package socketio

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Default timeouts and intervals for the cloud session.
const (
	// defaultConnectTimeout bounds dial plus the Engine.IO handshake.
	defaultConnectTimeout = 10 * time.Second

	// defaultWriteTimeout is the timeout for a single frame write.
	defaultWriteTimeout = 5 * time.Second

	// defaultReconnectInterval is the initial delay between reconnection attempts.
	defaultReconnectInterval = 5 * time.Second

	// defaultMaxReconnectInterval caps the exponential backoff.
	defaultMaxReconnectInterval = time.Minute

	// Heartbeat fallbacks when the server's open packet omits them.
	defaultPingInterval = 25 * time.Second
	defaultPingTimeout  = 20 * time.Second

	// dispatchQueueSize buffers handler invocations so slow handlers never
	// stall the read loop and the server's heartbeat.
	dispatchQueueSize = 64
)

// Config holds the session transport settings.
type Config struct {
	// URL of the Socket.IO server, e.g. "http://app.mcz.it:9000".
	URL string

	// Path of the Engine.IO endpoint. Default: "/socket.io/".
	Path string

	ConnectTimeout       time.Duration
	WriteTimeout         time.Duration
	ReconnectInterval    time.Duration
	MaxReconnectInterval time.Duration
}

// Handler receives the first argument of an event (nil if the event had none).
type Handler func(payload json.RawMessage)

// Logger defines the logging interface used by the client.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Stats is a point-in-time view of the session.
type Stats struct {
	Connected      bool   `json:"connected"`
	SessionID      string `json:"session_id,omitempty"`
	EventsReceived uint64 `json:"events_received"`
	EventsSent     uint64 `json:"events_sent"`
	EventsDropped  uint64 `json:"events_dropped"`
	Reconnects     uint64 `json:"reconnects"`
}

// Client is a Socket.IO client speaking Engine.IO v3 over a WebSocket.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Handlers and connection callbacks run one at a time, in arrival order,
//     on a dedicated dispatch goroutine.
//
// Reconnection:
//   - When the connection drops, the client reconnects with exponential
//     backoff (×1.5) from ReconnectInterval up to MaxReconnectInterval.
//   - The connect callback fires again once the server confirms the namespace.
type Client struct {
	cfg      Config
	endpoint string
	dialer   *websocket.Dialer

	conn      *websocket.Conn
	sessionID string
	connMu    sync.RWMutex
	writeMu   sync.Mutex

	started   atomic.Bool
	connected atomic.Bool

	handlers   map[string]Handler
	handlersMu sync.RWMutex

	onConnect    func()
	onDisconnect func(err error)
	callbackMu   sync.RWMutex

	dispatch chan func()

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	wg        sync.WaitGroup

	logger   Logger
	loggerMu sync.RWMutex

	eventsReceived atomic.Uint64
	eventsSent     atomic.Uint64
	eventsDropped  atomic.Uint64
	reconnects     atomic.Uint64
}

// New validates the configuration and prepares a client without connecting.
// Register handlers and callbacks before calling Connect.
func New(cfg Config) (*Client, error) {
	endpoint, err := endpointURL(cfg.URL, cfg.Path)
	if err != nil {
		return nil, err
	}

	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = defaultReconnectInterval
	}
	if cfg.MaxReconnectInterval < cfg.ReconnectInterval {
		cfg.MaxReconnectInterval = max(defaultMaxReconnectInterval, cfg.ReconnectInterval)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		cfg:      cfg,
		endpoint: endpoint,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.ConnectTimeout,
		},
		handlers: make(map[string]Handler),
		dispatch: make(chan func(), dispatchQueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Connect dials the server and starts the session goroutines.
//
// An error is returned only for the initial attempt; once connected, later
// drops are recovered in the background.
func (c *Client) Connect(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	dialCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	conn, open, err := c.dial(dialCtx)
	stop()
	cancel()
	if err != nil {
		c.started.Store(false)
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c.logInfo("session transport connected", "endpoint", c.endpoint, "sid", open.SID)

	c.wg.Add(2)
	go c.dispatchLoop()
	go c.run(conn, open)

	return nil
}

// dial opens the WebSocket and reads the Engine.IO open packet.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, openPacket, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	conn, resp, err := c.dialer.DialContext(ctx, c.endpoint, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, openPacket{}, err
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.cfg.ConnectTimeout)); err != nil {
		conn.Close()
		return nil, openPacket{}, err
	}
	_, msg, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, openPacket{}, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}
	open, err := parseOpen(msg)
	if err != nil {
		conn.Close()
		return nil, openPacket{}, err
	}

	c.connMu.Lock()
	c.conn = conn
	c.sessionID = open.SID
	c.connMu.Unlock()

	return conn, open, nil
}

// run serves one connection at a time until the client is closed.
func (c *Client) run(conn *websocket.Conn, open openPacket) {
	defer c.wg.Done()

	for {
		err := c.serve(conn, open)

		c.connMu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.connMu.Unlock()

		wasConnected := c.connected.Swap(false)
		if c.isClosed() {
			return
		}

		c.logWarn("session transport lost", "error", err)
		if wasConnected {
			c.enqueue(func() { c.notifyDisconnect(err) })
		}

		var ok bool
		conn, open, ok = c.reconnect()
		if !ok {
			return
		}
	}
}

// serve runs the read loop and heartbeat for a single connection.
func (c *Client) serve(conn *websocket.Conn, open openPacket) error {
	interval := millis(open.PingInterval, defaultPingInterval)
	timeout := millis(open.PingTimeout, defaultPingTimeout)

	stop := make(chan struct{})
	pingDone := make(chan struct{})
	go func() {
		defer close(pingDone)
		c.pingLoop(conn, interval, stop)
	}()
	defer func() {
		close(stop)
		<-pingDone
		conn.Close()
	}()

	for {
		// Any frame from the server proves liveness, pongs included.
		if err := conn.SetReadDeadline(time.Now().Add(interval + timeout)); err != nil {
			return err
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := c.handlePacket(conn, msg); err != nil {
			return err
		}
	}
}

// pingLoop sends Engine.IO v3 client heartbeats.
func (c *Client) pingLoop(conn *websocket.Conn, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.writeTo(conn, []byte{eioPing}); err != nil {
				c.logDebug("heartbeat write failed", "error", err)
				return
			}
		}
	}
}

// handlePacket processes one Engine.IO frame. A non-nil error ends the connection.
func (c *Client) handlePacket(conn *websocket.Conn, msg []byte) error {
	if len(msg) == 0 {
		return nil
	}

	switch msg[0] {
	case eioPing:
		// Server-initiated heartbeat (Engine.IO v4 servers).
		return c.writeTo(conn, []byte{eioPong})
	case eioPong, eioNoop, eioOpen, eioUpgrade:
		return nil
	case eioClose:
		return ErrServerClosed
	case eioMessage:
		return c.handleSocketPacket(msg[1:])
	default:
		c.logDebug("ignoring unknown engine.io packet", "packet", truncate(msg))
		return nil
	}
}

func (c *Client) handleSocketPacket(data []byte) error {
	pkt, err := parseSocketPacket(data)
	if err != nil {
		c.logWarn("invalid socket.io packet", "error", err, "packet", truncate(data))
		return nil
	}
	if pkt.namespace != defaultNamespace {
		return nil
	}

	switch pkt.kind {
	case sioConnect:
		if c.connected.CompareAndSwap(false, true) {
			c.logInfo("session namespace connected")
			c.enqueue(c.notifyConnect)
		}
	case sioDisconnect:
		return ErrServerClosed
	case sioEvent:
		name, args, err := parseEvent(pkt.body)
		if err != nil {
			c.logWarn("invalid event", "error", err)
			return nil
		}
		c.eventsReceived.Add(1)
		c.dispatchEvent(name, args)
	case sioAck:
		// Acknowledgements are not requested by this client.
	case sioError:
		c.logWarn("server reported error", "payload", truncate(pkt.body))
	}
	return nil
}

func (c *Client) dispatchEvent(name string, args []json.RawMessage) {
	c.handlersMu.RLock()
	handler := c.handlers[name]
	c.handlersMu.RUnlock()

	if handler == nil {
		c.logDebug("no handler for event", "event", name)
		return
	}

	var payload json.RawMessage
	if len(args) > 0 {
		payload = args[0]
	}
	c.enqueue(func() { handler(payload) })
}

// enqueue hands work to the dispatch goroutine without blocking the reader.
func (c *Client) enqueue(fn func()) {
	select {
	case c.dispatch <- fn:
	default:
		c.eventsDropped.Add(1)
		c.logWarn("dispatch queue full, dropping callback", "queue_size", dispatchQueueSize)
	}
}

func (c *Client) dispatchLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case fn := <-c.dispatch:
			c.safeCall(fn)
		}
	}
}

// safeCall runs a callback with panic recovery.
func (c *Client) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logError("session handler panic recovered", "panic", r)
		}
	}()
	fn()
}

// reconnect re-dials with exponential backoff.
// Returns false if the client was closed while waiting.
func (c *Client) reconnect() (*websocket.Conn, openPacket, bool) {
	backoff := c.cfg.ReconnectInterval

	for attempt := 1; ; attempt++ {
		select {
		case <-c.ctx.Done():
			return nil, openPacket{}, false
		case <-time.After(backoff):
		}

		c.logInfo("attempting session reconnection", "attempt", attempt, "backoff", backoff.String())
		conn, open, err := c.dial(c.ctx)
		if err == nil {
			if c.isClosed() {
				conn.Close()
				return nil, openPacket{}, false
			}
			c.reconnects.Add(1)
			c.logInfo("session reconnection successful", "total_reconnects", c.reconnects.Load())
			return conn, open, true
		}
		if c.isClosed() {
			return nil, openPacket{}, false
		}
		c.logWarn("session reconnection failed", "error", err)

		backoff = time.Duration(float64(backoff) * 1.5)
		if backoff > c.cfg.MaxReconnectInterval {
			backoff = c.cfg.MaxReconnectInterval
		}
	}
}

// Emit sends an event with a single JSON-encodable payload.
func (c *Client) Emit(event string, payload any) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	msg, err := encodeEvent(event, payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEmitFailed, err)
	}

	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	if err := c.writeTo(conn, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrEmitFailed, err)
	}
	c.eventsSent.Add(1)
	return nil
}

// writeTo serialises frame writes; gorilla allows a single concurrent writer.
func (c *Client) writeTo(conn *websocket.Conn, msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, msg)
}

// On registers the handler for an event name, replacing any previous one.
func (c *Client) On(event string, handler Handler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	if handler == nil {
		delete(c.handlers, event)
		return
	}
	c.handlers[event] = handler
}

// SetOnConnect sets the callback invoked each time the session is established.
func (c *Client) SetOnConnect(callback func()) {
	c.callbackMu.Lock()
	c.onConnect = callback
	c.callbackMu.Unlock()
}

// SetOnDisconnect sets the callback invoked when an established session drops.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}

func (c *Client) notifyConnect() {
	c.callbackMu.RLock()
	callback := c.onConnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

func (c *Client) notifyDisconnect(err error) {
	c.callbackMu.RLock()
	callback := c.onDisconnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// IsConnected reports whether the namespace session is established.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Stats returns a snapshot of session counters.
func (c *Client) Stats() Stats {
	c.connMu.RLock()
	sid := c.sessionID
	c.connMu.RUnlock()

	return Stats{
		Connected:      c.IsConnected(),
		SessionID:      sid,
		EventsReceived: c.eventsReceived.Load(),
		EventsSent:     c.eventsSent.Load(),
		EventsDropped:  c.eventsDropped.Load(),
		Reconnects:     c.reconnects.Load(),
	}
}

// Close ends the session and waits for the client goroutines to exit.
// Safe to call multiple times.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.connMu.RLock()
		conn := c.conn
		c.connMu.RUnlock()

		if conn != nil {
			if c.connected.Load() {
				_ = c.writeTo(conn, []byte{eioMessage, sioDisconnect}) //nolint:errcheck // best effort on shutdown
			}
			conn.Close()
		}
		c.connected.Store(false)
	})

	c.wg.Wait()
	return nil
}

func (c *Client) isClosed() bool {
	return c.ctx.Err() != nil
}

// SetLogger sets the logger for connection events.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

func (c *Client) logDebug(msg string, keysAndValues ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (c *Client) logInfo(msg string, keysAndValues ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (c *Client) logWarn(msg string, keysAndValues ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (c *Client) logError(msg string, keysAndValues ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Error(msg, keysAndValues...)
	}
}

// millis converts a millisecond count from the open packet, with a fallback.
func millis(ms int64, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
