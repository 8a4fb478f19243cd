package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// healthHandler reports process liveness and basic host resource usage.
type healthHandler struct {
	startupTime time.Time
	log         zerolog.Logger
}

func newHealthHandler(log zerolog.Logger) *healthHandler {
	return &healthHandler{
		startupTime: time.Now(),
		log:         log.With().Str("handler", "health").Logger(),
	}
}

// Handle handles GET /health and GET /api/health
func (h *healthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startupTime).Seconds()),
		"timestamp":      time.Now().Format(time.RFC3339),
	}

	// Resource stats are best effort; the endpoint stays green without them.
	if vm, err := mem.VirtualMemory(); err == nil {
		response["memory"] = map[string]interface{}{
			"used_percent": vm.UsedPercent,
			"total_mb":     vm.Total / 1024 / 1024,
		}
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		response["cpu"] = map[string]interface{}{
			"used_percent": percents[0],
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode health response")
	}
}
