package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/aristath/qpulse/internal/calibration"
	"github.com/aristath/qpulse/internal/database"
	"github.com/aristath/qpulse/internal/modules/waveforms"
	"github.com/aristath/qpulse/internal/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Version is reported by /health and the system status endpoint.
const Version = "1.0.0"

// SystemHandlers serves service monitoring and maintenance endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	databases   []*database.DB
	waveforms   *waveforms.Service
	calibration *calibration.Cache
	scheduler   *scheduler.Scheduler
	startedAt   time.Time
}

// NewSystemHandlers creates a new system handlers instance. Any dependency may be nil.
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	databases []*database.DB,
	waveformService *waveforms.Service,
	calibrationCache *calibration.Cache,
	sched *scheduler.Scheduler,
) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		dataDir:     dataDir,
		databases:   databases,
		waveforms:   waveformService,
		calibration: calibrationCache,
		scheduler:   sched,
		startedAt:   time.Now(),
	}
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status             string           `json:"status"`
	Version            string           `json:"version"`
	UptimeSeconds      float64          `json:"uptime_seconds"`
	CPUPercent         float64          `json:"cpu_percent"`
	MemoryPercent      float64          `json:"memory_percent"`
	Goroutines         int              `json:"goroutines"`
	WaveformCache      *waveforms.Stats `json:"waveform_cache,omitempty"`
	CalibrationEntries int              `json:"calibration_entries"`
	Timestamp          string           `json:"timestamp"`
}

// DBInfo describes one database file
type DBInfo struct {
	Name  string          `json:"name"`
	Path  string          `json:"path"`
	Stats *database.Stats `json:"stats,omitempty"`
	Error string          `json:"error,omitempty"`
}

// DatabaseStatsResponse is the body of GET /api/system/database/stats
type DatabaseStatsResponse struct {
	Databases   []DBInfo `json:"databases"`
	TotalSizeMB float64  `json:"total_size_mb"`
	LastChecked string   `json:"last_checked"`
}

// DiskUsageResponse is the body of GET /api/system/disk
type DiskUsageResponse struct {
	DataDirMB       float64 `json:"data_dir_mb"`
	CalibrationMB   float64 `json:"calibration_mb"`
	FilesystemFreeG float64 `json:"filesystem_free_gb"`
	FilesystemUsed  float64 `json:"filesystem_used_percent"`
}

// StatusSnapshot collects the current system status.
func (h *SystemHandlers) StatusSnapshot() SystemStatusResponse {
	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		Version:       Version,
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		Timestamp:     time.Now().Format(time.RFC3339),
	}
	if h.waveforms != nil {
		stats := h.waveforms.Stats()
		response.WaveformCache = &stats
	}
	if h.calibration != nil {
		response.CalibrationEntries = h.calibration.Len()
	}
	return response
}

// HandleSystemStatus returns CPU, memory and cache status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")
	h.writeJSON(w, http.StatusOK, h.StatusSnapshot())
}

// HandleDatabaseStats returns database statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	response := DatabaseStatsResponse{
		Databases:   []DBInfo{},
		LastChecked: time.Now().Format(time.RFC3339),
	}

	for _, db := range h.databases {
		if db == nil {
			continue
		}
		info := DBInfo{Name: db.Name(), Path: db.Path()}
		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			info.Error = err.Error()
		} else {
			info.Stats = stats
			response.TotalSizeMB += float64(stats.SizeBytes+stats.WALSizeBytes) / 1024 / 1024
		}
		response.Databases = append(response.Databases, info)
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDiskUsage returns disk usage statistics
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting disk usage")

	response := DiskUsageResponse{
		DataDirMB:     h.getDirSize(h.dataDir),
		CalibrationMB: h.getDirSize(filepath.Join(h.dataDir, "calibration")),
	}

	usage, err := disk.Usage(h.dataDir)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get filesystem usage")
	} else {
		response.FilesystemFreeG = float64(usage.Free) / 1024 / 1024 / 1024
		response.FilesystemUsed = usage.UsedPercent
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleJobsStatus lists the scheduled maintenance jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	jobs := []scheduler.JobInfo{}
	if h.scheduler != nil {
		jobs = h.scheduler.Jobs()
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

// HandleTriggerJob runs a registered job immediately
// POST /api/system/jobs/{name}/run
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.scheduler == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "message": "scheduler not available"})
		return
	}

	found, err := h.scheduler.RunByName(name)
	if !found {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "unknown job " + name})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manually triggered job failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": name + " completed"})
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats returns CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// 100ms sample keeps the endpoint responsive
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

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
