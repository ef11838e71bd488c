package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/allocator/internal/database"
	"github.com/aristath/allocator/internal/modules/dashboard"
)

// SystemHandlers serves process and cache status endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	dashboard   *dashboard.Service
	cacheDB     *database.DB
	sampleStats func() (float64, float64)
}

// NewSystemHandlers creates a new system handlers instance. cacheDB may be nil.
func NewSystemHandlers(log zerolog.Logger, svc *dashboard.Service, cacheDB *database.DB) *SystemHandlers {
	h := &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		startupTime: time.Now(),
		dashboard:   svc,
		cacheDB:     cacheDB,
	}
	h.sampleStats = h.getSystemStats
	return h
}

// SystemStatusResponse is the payload of GET /api/system/status
type SystemStatusResponse struct {
	Status        string            `json:"status"`
	StartedAt     string            `json:"started_at"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	CPUPercent    float64           `json:"cpu_percent"`
	MemoryPercent float64           `json:"memory_percent"`
	Assets        int               `json:"assets"`
	Defaults      DefaultsResponse  `json:"defaults"`
	Cache         CacheStatusResult `json:"cache"`
}

// DefaultsResponse mirrors the dashboard defaults applied to empty query parameters
type DefaultsResponse struct {
	Period           string  `json:"period"`
	Interval         string  `json:"interval"`
	ThresholdPercent float64 `json:"threshold_percent"`
	RiskFreeRate     float64 `json:"risk_free_rate"`
}

// CacheStatusResult describes the SQLite price cache, when one is configured
type CacheStatusResult struct {
	Enabled bool   `json:"enabled"`
	Healthy bool   `json:"healthy"`
	Path    string `json:"path,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DatabaseStatsResponse is the payload of GET /api/system/database/stats
type DatabaseStatsResponse struct {
	Enabled bool            `json:"enabled"`
	Name    string          `json:"name,omitempty"`
	Path    string          `json:"path,omitempty"`
	SizeMB  float64         `json:"size_mb"`
	Stats   *database.Stats `json:"stats,omitempty"`
}

// HandleSystemStatus returns process, configuration and cache status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, memPercent := h.sampleStats()

	response := SystemStatusResponse{
		Status:        "ok",
		StartedAt:     h.startupTime.Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Cache:         h.cacheStatus(r.Context()),
	}

	if h.dashboard != nil {
		defaults := h.dashboard.Defaults()
		response.Assets = h.dashboard.Registry().Len()
		response.Defaults = DefaultsResponse{
			Period:           string(defaults.Period),
			Interval:         string(defaults.Interval),
			ThresholdPercent: defaults.ThresholdPercent,
			RiskFreeRate:     defaults.RiskFreeRate,
		}
	}
	if response.Cache.Enabled && !response.Cache.Healthy {
		response.Status = "degraded"
	}

	h.writeJSON(w, response)
}

// HandleDatabaseStats returns SQLite cache statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	if h.cacheDB == nil {
		h.writeJSON(w, DatabaseStatsResponse{Enabled: false})
		return
	}

	stats, err := h.cacheDB.GetStats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get database stats")
		http.Error(w, "Failed to get database stats", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, DatabaseStatsResponse{
		Enabled: true,
		Name:    h.cacheDB.Name(),
		Path:    h.cacheDB.Path(),
		SizeMB:  float64(stats.SizeBytes) / 1024 / 1024,
		Stats:   stats,
	})
}

func (h *SystemHandlers) cacheStatus(ctx context.Context) CacheStatusResult {
	if h.cacheDB == nil {
		return CacheStatusResult{}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := CacheStatusResult{Enabled: true, Path: h.cacheDB.Path(), Healthy: true}
	if err := h.cacheDB.QuickCheck(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Cache database health check failed")
		status.Healthy = false
		status.Error = err.Error()
	}
	return status
}

// getSystemStats calculates CPU and RAM usage percentages.
// The 100ms CPU sample keeps the status call fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
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

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
