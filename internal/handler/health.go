package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"dumptrack-api/internal/repository"
	"dumptrack-api/pkg/response"
)

// Version is reported by the health endpoints.
const Version = "1.0.0"

// Pinger is implemented by caches that can check their connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the health and status endpoints.
type Handler struct {
	repo      repository.TableRepository
	cache     Pinger
	startTime time.Time
}

// New creates a health handler. cache may be nil.
func New(repo repository.TableRepository, cache Pinger) *Handler {
	return &Handler{repo: repo, cache: cache, startTime: time.Now()}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Health handles GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response.OK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   Version,
	})
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Ready     bool      `json:"ready"`
	Timestamp time.Time `json:"timestamp"`
	Checks    []Check   `json:"checks"`
}

// Check represents an individual readiness check.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (h *Handler) checks(ctx context.Context) []Check {
	checks := []Check{{Name: "api", Status: "ok"}}

	db := Check{Name: "database", Status: "ok"}
	if h.repo == nil {
		db.Status = "not_configured"
	} else if _, err := h.repo.GetStats(ctx); err != nil {
		db.Status, db.Error = "error", err.Error()
	}
	checks = append(checks, db)

	if h.cache != nil {
		c := Check{Name: "cache", Status: "ok"}
		if err := h.cache.Ping(ctx); err != nil {
			c.Status, c.Error = "error", err.Error()
		}
		checks = append(checks, c)
	}
	return checks
}

// Ready handles GET /api/v1/ready
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := h.checks(r.Context())

	allReady := true
	for _, check := range checks {
		if check.Status == "error" {
			allReady = false
			break
		}
	}

	status := http.StatusOK
	if !allReady {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, status, ReadyResponse{
		Ready:     allReady,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	})
}

// StatusResponse represents the status response for uptime monitors.
type StatusResponse struct {
	Service       string  `json:"service"`
	Status        string  `json:"status"`
	Timestamp     string  `json:"timestamp"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	PingMS        int64   `json:"ping_ms"`
	Database      string  `json:"database"`
	MemoryMB      float64 `json:"memory_mb"`
}

// Status handles GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	requestStart := time.Now()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	memoryMB := float64(memStats.Alloc) / 1024 / 1024

	database := "ok"
	for _, c := range h.checks(r.Context()) {
		if c.Name == "database" {
			database = c.Status
		}
	}

	resp := StatusResponse{
		Service:       "dumptrack-api",
		Status:        "ok",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		PingMS:        time.Since(requestStart).Milliseconds(),
		Database:      database,
		MemoryMB:      float64(int(memoryMB*100)) / 100,
	}
	if database == "error" {
		resp.Status = "degraded"
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	response.OK(w, resp)
}
