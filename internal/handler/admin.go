package handler

import (
	"net/http"
	"runtime"
	"time"

	"dumptrack-api/internal/repository"
	"dumptrack-api/pkg/response"
)

// WorkspaceCounter reports the number of open workspaces.
type WorkspaceCounter interface {
	Len() int
}

// AdminHandler serves operational statistics to administrators.
type AdminHandler struct {
	repo       repository.TableRepository
	workspaces WorkspaceCounter
	dbType     string
	cacheType  string
	startTime  time.Time
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(repo repository.TableRepository, workspaces WorkspaceCounter, dbType, cacheType string) *AdminHandler {
	return &AdminHandler{
		repo:       repo,
		workspaces: workspaces,
		dbType:     dbType,
		cacheType:  cacheType,
		startTime:  time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["db_type"] = h.dbType
	stats["cache_type"] = h.cacheType

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	if h.workspaces != nil {
		stats["workspaces"] = h.workspaces.Len()
	}

	dbStats, err := h.repo.GetStats(r.Context())
	if err == nil {
		dbStats["status"] = "connected"
		stats["database"] = dbStats
	} else {
		stats["database"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}
