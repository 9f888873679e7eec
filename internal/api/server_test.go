package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/maestro-bridge/internal/bridges/maestro"
	"github.com/nerrad567/maestro-bridge/internal/infrastructure/config"
	"github.com/nerrad567/maestro-bridge/internal/infrastructure/logging"
)

// mockBridge is a canned BridgeStatus.
type mockBridge struct {
	metrics  maestro.BridgeMetrics
	snapshot maestro.Snapshot
	frameAt  time.Time
	pending  []string
	state    maestro.State
	panics   bool
}

func (m *mockBridge) GetMetrics() maestro.BridgeMetrics {
	if m.panics {
		panic("metrics exploded")
	}
	return m.metrics
}

func (m *mockBridge) Snapshot() (maestro.Snapshot, time.Time) {
	return m.snapshot.Clone(), m.frameAt
}

func (m *mockBridge) PendingCommands() []string { return m.pending }

func (m *mockBridge) State() maestro.State { return m.state }

func testServer(t *testing.T, bridge *mockBridge) *Server {
	t.Helper()

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	srv, err := New(Deps{
		Config: config.APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		Logger:  log,
		Bridge:  bridge,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestNew_Validation(t *testing.T) {
	log := logging.Default()

	if _, err := New(Deps{Bridge: &mockBridge{}}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: log}); err == nil {
		t.Error("New() without bridge should fail")
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		state   maestro.State
		status  string
		session string
		bus     string
	}{
		{
			name:    "healthy",
			state:   maestro.State{Session: maestro.SessionActive, Bus: maestro.BusConnected},
			status:  "healthy",
			session: "active",
			bus:     "connected",
		},
		{
			name:    "session reconnecting",
			state:   maestro.State{Session: maestro.SessionConnecting, Bus: maestro.BusConnected},
			status:  "degraded",
			session: "connecting",
			bus:     "connected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t, &mockBridge{
				metrics: maestro.BridgeMetrics{Status: tt.status},
				state:   tt.state,
			})

			w := get(t, srv, "/api/v1/health")
			if w.Code != http.StatusOK {
				t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
			}

			resp := decode(t, w)
			if resp["status"] != tt.status {
				t.Errorf("status = %v, want %s", resp["status"], tt.status)
			}
			if resp["session"] != tt.session {
				t.Errorf("session = %v, want %s", resp["session"], tt.session)
			}
			if resp["bus"] != tt.bus {
				t.Errorf("bus = %v, want %s", resp["bus"], tt.bus)
			}
			if resp["version"] != "test" {
				t.Errorf("version = %v, want test", resp["version"])
			}
		})
	}
}

func TestHealth_ContentType(t *testing.T) {
	w := get(t, testServer(t, &mockBridge{}), "/api/v1/health")

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}
}

func TestMetrics(t *testing.T) {
	frameAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	srv := testServer(t, &mockBridge{
		metrics: maestro.BridgeMetrics{
			Status:           "healthy",
			FramesDecoded:    7,
			FieldErrors:      1,
			CommandsReceived: 3,
			CommandsRejected: 1,
			RequestsSent:     9,
			PendingCommands:  2,
			LastFrameAt:      frameAt,
		},
		state: maestro.State{Session: maestro.SessionActive, Bus: maestro.BusConnected},
	})

	w := get(t, srv, "/api/v1/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp SystemMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Version != "test" {
		t.Errorf("Version = %q, want test", resp.Version)
	}
	if resp.Runtime.Goroutines < 1 {
		t.Errorf("Goroutines = %d, want >= 1", resp.Runtime.Goroutines)
	}
	b := resp.Bridge
	if b.Status != "healthy" || b.Session != "active" || b.Bus != "connected" {
		t.Errorf("bridge state = %s/%s/%s, want healthy/active/connected", b.Status, b.Session, b.Bus)
	}
	if b.FramesDecoded != 7 || b.FieldErrors != 1 || b.RequestsSent != 9 {
		t.Errorf("counters = %+v", b)
	}
	if b.CommandsReceived != 3 || b.CommandsRejected != 1 || b.PendingCommands != 2 {
		t.Errorf("command counters = %+v", b)
	}
	if b.LastFrameAt != "2026-01-02T03:04:05Z" {
		t.Errorf("LastFrameAt = %q, want 2026-01-02T03:04:05Z", b.LastFrameAt)
	}
}

func TestMetrics_NoFrameYet(t *testing.T) {
	w := get(t, testServer(t, &mockBridge{}), "/api/v1/metrics")

	var resp SystemMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Bridge.LastFrameAt != "" {
		t.Errorf("LastFrameAt = %q, want empty", resp.Bridge.LastFrameAt)
	}
}

func TestSnapshot(t *testing.T) {
	frameAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	srv := testServer(t, &mockBridge{
		snapshot: maestro.Snapshot{
			"Temperature ambiante": 21.5,
			"Etat du poele":        "Puissance 3",
			"Etat du ventilateur":  maestro.UnknownCode{Code: 99},
		},
		frameAt: frameAt,
	})

	w := get(t, srv, "/api/v1/snapshot")
	if w.Code != http.StatusOK {
		t.Fatalf("snapshot status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decode(t, w)
	if resp["updated_at"] != "2026-01-02T03:04:05Z" {
		t.Errorf("updated_at = %v", resp["updated_at"])
	}

	fields, ok := resp["fields"].(map[string]any)
	if !ok {
		t.Fatalf("fields = %T, want object", resp["fields"])
	}
	if fields["Temperature ambiante"] != 21.5 {
		t.Errorf("Temperature ambiante = %v, want 21.5", fields["Temperature ambiante"])
	}
	if fields["Etat du poele"] != "Puissance 3" {
		t.Errorf("Etat du poele = %v, want Puissance 3", fields["Etat du poele"])
	}
	unknown, ok := fields["Etat du ventilateur"].([]any)
	if !ok || len(unknown) != 2 || unknown[0] != "Unknown code:" || unknown[1] != "99" {
		t.Errorf("Etat du ventilateur = %v, want [Unknown code: 99]", fields["Etat du ventilateur"])
	}
}

func TestSnapshot_NoFrameYet(t *testing.T) {
	w := get(t, testServer(t, &mockBridge{}), "/api/v1/snapshot")

	if w.Code != http.StatusNotFound {
		t.Fatalf("snapshot status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if resp := decode(t, w); resp["code"] != ErrCodeNotFound {
		t.Errorf("code = %v, want %s", resp["code"], ErrCodeNotFound)
	}
}

func TestQueue(t *testing.T) {
	tests := []struct {
		name    string
		pending []string
		want    int
	}{
		{name: "empty", pending: nil, want: 0},
		{name: "two commands", pending: []string{"C|WriteParametri|34|1", "C|RecuperoInfo"}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, testServer(t, &mockBridge{pending: tt.pending}), "/api/v1/queue")
			if w.Code != http.StatusOK {
				t.Fatalf("queue status = %d, want %d", w.Code, http.StatusOK)
			}

			resp := decode(t, w)
			if resp["count"] != float64(tt.want) {
				t.Errorf("count = %v, want %d", resp["count"], tt.want)
			}
			pending, ok := resp["pending"].([]any)
			if !ok {
				t.Fatalf("pending = %T, want array", resp["pending"])
			}
			if len(pending) != tt.want {
				t.Errorf("len(pending) = %d, want %d", len(pending), tt.want)
			}
			for i, p := range pending {
				if p != tt.pending[i] {
					t.Errorf("pending[%d] = %v, want %s", i, p, tt.pending[i])
				}
			}
		})
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	w := get(t, testServer(t, &mockBridge{}), "/api/v1/health")

	requestID := w.Header().Get("X-Request-ID")
	if _, err := uuid.Parse(requestID); err != nil {
		t.Errorf("X-Request-ID = %q, want a UUID: %v", requestID, err)
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv := testServer(t, &mockBridge{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-id-123")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-id-123" {
		t.Errorf("X-Request-ID = %q, want client-id-123", got)
	}
}

func TestRecovery(t *testing.T) {
	w := get(t, testServer(t, &mockBridge{panics: true}), "/api/v1/metrics")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if resp := decode(t, w); resp["code"] != ErrCodeInternal {
		t.Errorf("code = %v, want %s", resp["code"], ErrCodeInternal)
	}
}

func TestNotFound(t *testing.T) {
	w := get(t, testServer(t, &mockBridge{}), "/api/v1/devices")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := testServer(t, &mockBridge{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/queue", nil)
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

func TestHealthCheck(t *testing.T) {
	srv := testServer(t, &mockBridge{})

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(func() {
		if err := srv.Close(); err != nil {
			t.Errorf("Close() error: %v", err)
		}
	})

	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() after Start = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := srv.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() with cancelled context should fail")
	}
}

func TestClose_NotStarted(t *testing.T) {
	if err := testServer(t, &mockBridge{}).Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}
