package socketio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Engine.IO packet types (protocol revision 3).
const (
	eioOpen    byte = '0'
	eioClose   byte = '1'
	eioPing    byte = '2'
	eioPong    byte = '3'
	eioMessage byte = '4'
	eioUpgrade byte = '5'
	eioNoop    byte = '6'
)

// Socket.IO packet types carried inside Engine.IO message packets.
const (
	sioConnect    byte = '0'
	sioDisconnect byte = '1'
	sioEvent      byte = '2'
	sioAck        byte = '3'
	sioError      byte = '4'
)

// defaultNamespace is the only namespace the client joins.
const defaultNamespace = "/"

// openPacket is the JSON body of the Engine.IO open packet.
// Intervals are in milliseconds.
type openPacket struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int64    `json:"pingInterval"`
	PingTimeout  int64    `json:"pingTimeout"`
}

// socketPacket is a decoded Socket.IO packet.
type socketPacket struct {
	kind      byte
	namespace string
	ackID     string
	body      []byte
}

// endpointURL converts an http(s) or ws(s) server URL into the Engine.IO
// WebSocket endpoint, e.g. ws://host:9000/socket.io/?EIO=3&transport=websocket.
func endpointURL(raw, path string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidURL, raw)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	if path == "" {
		path = "/socket.io/"
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	u.Path = path

	q := u.Query()
	q.Set("EIO", "3")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// parseOpen decodes the Engine.IO open packet that starts every session.
func parseOpen(msg []byte) (openPacket, error) {
	var open openPacket
	if len(msg) == 0 || msg[0] != eioOpen {
		return open, fmt.Errorf("%w: expected open packet, got %q", ErrHandshakeFailed, truncate(msg))
	}
	if err := json.Unmarshal(msg[1:], &open); err != nil {
		return open, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}
	if open.SID == "" {
		return open, fmt.Errorf("%w: open packet without sid", ErrHandshakeFailed)
	}
	return open, nil
}

// parseSocketPacket decodes the Socket.IO layer of an Engine.IO message:
//
//	<type>[/<namespace>,][<ack id>][<json>]
func parseSocketPacket(data []byte) (socketPacket, error) {
	if len(data) == 0 {
		return socketPacket{}, fmt.Errorf("%w: empty message", ErrInvalidPacket)
	}

	pkt := socketPacket{kind: data[0], namespace: defaultNamespace}
	if pkt.kind < sioConnect || pkt.kind > '6' {
		return socketPacket{}, fmt.Errorf("%w: unknown type %q", ErrInvalidPacket, pkt.kind)
	}
	rest := data[1:]

	if len(rest) > 0 && rest[0] == '/' {
		end := bytes.IndexByte(rest, ',')
		if end < 0 {
			pkt.namespace = string(rest)
			return pkt, nil
		}
		pkt.namespace = string(rest[:end])
		rest = rest[end+1:]
	}

	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	pkt.ackID = string(rest[:i])
	pkt.body = rest[i:]

	return pkt, nil
}

// parseEvent splits an event body ["name", arg...] into its name and arguments.
func parseEvent(body []byte) (string, []json.RawMessage, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(body, &parts); err != nil {
		return "", nil, fmt.Errorf("%w: event body: %w", ErrInvalidPacket, err)
	}
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("%w: event without name", ErrInvalidPacket)
	}

	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return "", nil, fmt.Errorf("%w: event name: %w", ErrInvalidPacket, err)
	}
	return name, parts[1:], nil
}

// encodeEvent builds the Engine.IO message for a Socket.IO event on the
// default namespace: 42["name",payload].
func encodeEvent(name string, payload any) ([]byte, error) {
	args := []any{name}
	if payload != nil {
		args = append(args, payload)
	}
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encoding event %q: %w", name, err)
	}
	return append([]byte{eioMessage, sioEvent}, body...), nil
}

// truncate shortens a packet for log and error output.
func truncate(msg []byte) string {
	const limit = 64
	if len(msg) > limit {
		return string(msg[:limit]) + "..."
	}
	return string(msg)
}
