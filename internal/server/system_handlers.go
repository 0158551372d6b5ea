package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"fundlens/internal/database"
)

// SystemHandlers serves process and host monitoring endpoints.
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	cacheDB     *database.DB
}

// NewSystemHandlers creates the system monitoring handlers.
func NewSystemHandlers(log zerolog.Logger, dataDir string, cacheDB *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		cacheDB:     cacheDB,
	}
}

// HandleSystemHealth reports CPU, memory, disk and cache database health.
// GET /api/system/health
func (h *SystemHandlers) HandleSystemHealth(w http.ResponseWriter, r *http.Request) {
	cpuAvg, ramUsed := h.systemUsage()

	diskUsed := 0.0
	if du, err := disk.Usage(h.dataDir); err == nil {
		diskUsed = du.UsedPercent
	} else {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
	}

	dbHealthy := true
	if err := h.cacheDB.HealthCheck(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("Cache database health check failed")
		dbHealthy = false
	}

	status := "healthy"
	if !dbHealthy {
		status = "degraded"
	}

	h.writeJSON(w, map[string]any{
		"status":            status,
		"uptime_sec":        time.Since(h.startupTime).Seconds(),
		"cpu_percent":       cpuAvg,
		"ram_used_percent":  ramUsed,
		"disk_used_percent": diskUsed,
		"cache_db_healthy":  dbHealthy,
	})
}

// systemUsage returns average CPU and RAM usage percentages.
func (h *SystemHandlers) systemUsage() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
