package socketio

import (
	"errors"
	"testing"
)

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		raw     string
		path    string
		want    string
		wantErr bool
	}{
		{raw: "http://app.mcz.it:9000", want: "ws://app.mcz.it:9000/socket.io/?EIO=3&transport=websocket"},
		{raw: "https://cloud.example.com", want: "wss://cloud.example.com/socket.io/?EIO=3&transport=websocket"},
		{raw: "ws://10.0.0.2:9000", path: "/io", want: "ws://10.0.0.2:9000/io/?EIO=3&transport=websocket"},
		{raw: "tcp://10.0.0.2", wantErr: true},
		{raw: "/relative", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := endpointURL(tt.raw, tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("endpointURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("endpointURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseOpen(t *testing.T) {
	open, err := parseOpen([]byte(testOpenPacket))
	if err != nil {
		t.Fatalf("parseOpen() error = %v", err)
	}
	if open.SID != "sid-123" || open.PingInterval != 25000 || open.PingTimeout != 5000 {
		t.Errorf("parseOpen() = %+v", open)
	}

	for _, bad := range []string{"", "40", "0{}", "0not-json"} {
		if _, err := parseOpen([]byte(bad)); !errors.Is(err, ErrHandshakeFailed) {
			t.Errorf("parseOpen(%q) error = %v, want ErrHandshakeFailed", bad, err)
		}
	}
}

func TestParseSocketPacket(t *testing.T) {
	tests := []struct {
		in        string
		kind      byte
		namespace string
		ackID     string
		body      string
		wantErr   bool
	}{
		{in: "0", kind: sioConnect, namespace: "/"},
		{in: "1", kind: sioDisconnect, namespace: "/"},
		{in: `2["rispondo",{}]`, kind: sioEvent, namespace: "/", body: `["rispondo",{}]`},
		{in: `2/admin,["x"]`, kind: sioEvent, namespace: "/admin", body: `["x"]`},
		{in: `212["x"]`, kind: sioEvent, namespace: "/", ackID: "12", body: `["x"]`},
		{in: "0/chat", kind: sioConnect, namespace: "/chat"},
		{in: `4"not authorised"`, kind: sioError, namespace: "/", body: `"not authorised"`},
		{in: "", wantErr: true},
		{in: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			pkt, err := parseSocketPacket([]byte(tt.in))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSocketPacket() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if pkt.kind != tt.kind || pkt.namespace != tt.namespace || pkt.ackID != tt.ackID || string(pkt.body) != tt.body {
				t.Errorf("parseSocketPacket() = {%q %q %q %q}, want {%q %q %q %q}",
					pkt.kind, pkt.namespace, pkt.ackID, pkt.body, tt.kind, tt.namespace, tt.ackID, tt.body)
			}
		})
	}
}

func TestParseEvent(t *testing.T) {
	name, args, err := parseEvent([]byte(`["rispondo",{"stringaRicevuta":"01|"},2]`))
	if err != nil {
		t.Fatalf("parseEvent() error = %v", err)
	}
	if name != "rispondo" || len(args) != 2 {
		t.Errorf("parseEvent() = %q with %d args", name, len(args))
	}

	for _, bad := range []string{`[]`, `{}`, `[1]`, `not json`} {
		if _, _, err := parseEvent([]byte(bad)); !errors.Is(err, ErrInvalidPacket) {
			t.Errorf("parseEvent(%q) error = %v, want ErrInvalidPacket", bad, err)
		}
	}
}

func TestEncodeEvent(t *testing.T) {
	msg, err := encodeEvent("join", map[string]string{"type": "Android-App"})
	if err != nil {
		t.Fatalf("encodeEvent() error = %v", err)
	}
	if string(msg) != `42["join",{"type":"Android-App"}]` {
		t.Errorf("encodeEvent() = %s", msg)
	}

	msg, err = encodeEvent("ping", nil)
	if err != nil {
		t.Fatalf("encodeEvent(nil) error = %v", err)
	}
	if string(msg) != `42["ping"]` {
		t.Errorf("encodeEvent(nil) = %s", msg)
	}

	if _, err := encodeEvent("bad", make(chan int)); err == nil {
		t.Error("encodeEvent() with unencodable payload should fail")
	}
}
