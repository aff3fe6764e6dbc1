package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/elasticom/internal/database"
	"github.com/aristath/elasticom/internal/domain"
	"github.com/aristath/elasticom/internal/scheduler"
	"github.com/aristath/elasticom/internal/utils"
)

// JobRunner runs and reports on scheduled jobs
type JobRunner interface {
	RunNow(job scheduler.Job) error
	Status() []scheduler.JobStatus
}

// SystemHandlers handles system monitoring and maintenance endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	databases   []*database.DB
	runner      JobRunner
	jobs        map[string]scheduler.Job
	schedule    string
	// sampleCPU reports CPU and RAM usage percentages
	sampleCPU func() (float64, float64)
}

// NewSystemHandlers creates a new system handlers instance. runner may be nil
// when no scheduler is running; jobs can then still be triggered directly.
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	databases []*database.DB,
	runner JobRunner,
	jobs []scheduler.Job,
	schedule string,
) *SystemHandlers {
	h := &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		databases:   databases,
		runner:      runner,
		jobs:        make(map[string]scheduler.Job, len(jobs)),
		schedule:    schedule,
	}
	for _, job := range jobs {
		if job != nil {
			h.jobs[job.Name()] = job
		}
	}
	h.sampleCPU = h.getSystemStats
	return h
}

// SystemStatusResponse represents the system status
type SystemStatusResponse struct {
	Status        string    `json:"status"` // "healthy" or "degraded"
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	DataDirMB     float64   `json:"data_dir_mb"`
	Databases     []DBInfo  `json:"databases"`
}

// DBInfo represents information about a single database
type DBInfo struct {
	Name          string  `json:"name"`
	Path          string  `json:"path"`
	SizeMB        float64 `json:"size_mb"`
	WALSizeMB     float64 `json:"wal_size_mb"`
	PageCount     int64   `json:"page_count"`
	FreelistCount int64   `json:"freelist_count"`
	Healthy       bool    `json:"healthy"`
	Error         string  `json:"error,omitempty"`
}

// JobsStatusResponse represents the status of the maintenance jobs
type JobsStatusResponse struct {
	Schedule string                `json:"schedule"`
	Jobs     []scheduler.JobStatus `json:"jobs"`
}

// GetSystemStatusSnapshot collects host and database status
func (h *SystemHandlers) GetSystemStatusSnapshot(ctx context.Context) SystemStatusResponse {
	cpuPercent, memPercent := h.sampleCPU()

	response := SystemStatusResponse{
		Status:        "healthy",
		StartedAt:     h.startupTime.UTC(),
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		DataDirMB:     h.getDirSize(h.dataDir),
		Databases:     h.databaseInfo(ctx),
	}
	for _, db := range response.Databases {
		if !db.Healthy {
			response.Status = "degraded"
		}
	}
	return response
}

// HandleSystemStatus returns host load and database health
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")
	utils.WriteData(w, http.StatusOK, h.GetSystemStatusSnapshot(r.Context()), h.log)
}

// HandleDatabaseStats returns database statistics
// GET /api/system/databases
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	infos := h.databaseInfo(r.Context())
	totalSizeMB := 0.0
	for _, info := range infos {
		totalSizeMB += info.SizeMB + info.WALSizeMB
	}

	utils.WriteData(w, http.StatusOK, map[string]interface{}{
		"databases":     infos,
		"total_size_mb": totalSizeMB,
	}, h.log)
}

// HandleJobsStatus lists the maintenance jobs
// GET /api/system/jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	response := JobsStatusResponse{
		Schedule: h.schedule,
		Jobs:     []scheduler.JobStatus{},
	}
	if h.runner != nil {
		response.Jobs = h.runner.Status()
	} else {
		for name := range h.jobs {
			response.Jobs = append(response.Jobs, scheduler.JobStatus{Name: name})
		}
	}
	utils.WriteData(w, http.StatusOK, response, h.log)
}

// HandleTriggerJob runs a maintenance job immediately
// POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	job, ok := h.jobs[name]
	if !ok {
		utils.WriteError(w, fmt.Errorf("job %s: %w", name, domain.ErrNotFound), h.log)
		return
	}

	start := time.Now()
	var err error
	if h.runner != nil {
		err = h.runner.RunNow(job)
	} else {
		err = job.Run()
	}
	if err != nil {
		utils.WriteError(w, fmt.Errorf("job %s failed: %w", name, err), h.log)
		return
	}

	utils.WriteData(w, http.StatusOK, map[string]interface{}{
		"job":         name,
		"status":      "completed",
		"duration_ms": time.Since(start).Milliseconds(),
	}, h.log)
}

func (h *SystemHandlers) databaseInfo(ctx context.Context) []DBInfo {
	infos := make([]DBInfo, 0, len(h.databases))
	for _, db := range h.databases {
		info := DBInfo{Name: db.Name(), Path: db.Path(), Healthy: true}

		if err := db.QuickCheck(ctx); err != nil {
			info.Healthy = false
			info.Error = err.Error()
			infos = append(infos, info)
			continue
		}

		stats, err := db.GetStats(ctx)
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			info.Error = err.Error()
		} else {
			info.SizeMB = float64(stats.SizeBytes) / 1024 / 1024
			info.WALSizeMB = float64(stats.WALSizeBytes) / 1024 / 1024
			info.PageCount = stats.PageCount
			info.FreelistCount = stats.FreelistCount
		}
		infos = append(infos, info)
	}
	return infos
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	if dirPath == "" {
		return 0
	}

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

// getSystemStats calculates CPU and RAM usage percentages.
// CPU is sampled over 100ms so the status call stays fast.
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
