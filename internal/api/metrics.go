package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete metrics response.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	Bridge        BridgeMetrics  `json:"bridge"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// BridgeMetrics contains the bridge counters and connection state.
type BridgeMetrics struct {
	Status           string `json:"status"`
	Session          string `json:"session"`
	Bus              string `json:"bus"`
	FramesDecoded    uint64 `json:"frames_decoded"`
	FieldErrors      uint64 `json:"field_errors"`
	CommandsReceived uint64 `json:"commands_received"`
	CommandsRejected uint64 `json:"commands_rejected"`
	RequestsSent     uint64 `json:"requests_sent"`
	PublishErrors    uint64 `json:"publish_errors"`
	PendingCommands  int    `json:"pending_commands"`
	LastFrameAt      string `json:"last_frame_at,omitempty"`
}

// handleMetrics returns runtime and bridge metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	bm := s.bridge.GetMetrics()
	state := s.bridge.State()

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Bridge: BridgeMetrics{
			Status:           bm.Status,
			Session:          state.Session.String(),
			Bus:              state.Bus.String(),
			FramesDecoded:    bm.FramesDecoded,
			FieldErrors:      bm.FieldErrors,
			CommandsReceived: bm.CommandsReceived,
			CommandsRejected: bm.CommandsRejected,
			RequestsSent:     bm.RequestsSent,
			PublishErrors:    bm.PublishErrors,
			PendingCommands:  bm.PendingCommands,
		},
	}
	if !bm.LastFrameAt.IsZero() {
		metrics.Bridge.LastFrameAt = bm.LastFrameAt.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, metrics)
}
