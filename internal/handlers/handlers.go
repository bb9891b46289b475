// Package handlers содержит HTTP обработчики API симулятора
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"solar-simulator/internal/config"
	"solar-simulator/internal/metrics"
	"solar-simulator/internal/models"
)

// Player движок воспроизведения с точки зрения API
type Player interface {
	Start()
	Stop()
	JumpToIndex(index int)
	Current(farm string) models.Record
	All() map[string]models.Record
	Status() models.ReplayStatus
	Playing() bool
}

// SnapshotStore чтение снимка из кэша
type SnapshotStore interface {
	Snapshot(ctx context.Context) (map[string]models.Record, error)
	Refreshes(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// cacheStatusTimeout ограничивает обращения к Redis из /status
const cacheStatusTimeout = 500 * time.Millisecond

// Handler содержит зависимости HTTP обработчиков
type Handler struct {
	player    Player
	catalog   config.Catalog
	registry  *metrics.Registry
	formatter *metrics.Formatter
	refresh   func(ctx context.Context)
	cache     SnapshotStore
	settings  models.StatusConfig
	logger    *zap.Logger
	startTime time.Time
}

// Deps аргументы конструктора Handler.
// Player и Cache могут быть nil.
type Deps struct {
	Player   Player
	Catalog  config.Catalog
	Registry *metrics.Registry
	// Refresh пересчитывает метрики после перехода
	Refresh  func(ctx context.Context)
	Cache    SnapshotStore
	Settings models.StatusConfig
	Logger   *zap.Logger
}

// NewHandler создает набор обработчиков
func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Refresh == nil {
		d.Refresh = func(context.Context) {}
	}
	return &Handler{
		player:    d.Player,
		catalog:   d.Catalog,
		registry:  d.Registry,
		formatter: metrics.NewFormatter(d.Registry),
		refresh:   d.Refresh,
		cache:     d.Cache,
		settings:  d.Settings,
		logger:    d.Logger,
		startTime: time.Now(),
	}
}

// IndexHandler обрабатывает GET / - описание сервиса
func (h *Handler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, map[string]interface{}{
		"name":        "Solar Simulator",
		"version":     "1.0.0",
		"description": "Solar farm data simulator",
		"endpoints": map[string]string{
			"metrics":  "GET /metrics - Prometheus metrics",
			"health":   "GET /health - Health check",
			"ready":    "GET /ready - Readiness check",
			"status":   "GET /status - Replay status",
			"data":     "GET /data - Current data of all farms",
			"dataFarm": "GET /data/{farm} - Current data of one farm",
			"farms":    "GET /farms - Farm configuration",
			"jump":     "POST /control/jump - Jump to an index",
			"pause":    "POST /control/pause - Pause replay",
			"resume":   "POST /control/resume - Resume replay",
			"cache":    "GET /cache/snapshot - Snapshot mirrored in Redis",
		},
		"farms": h.catalog.Names(),
	}, http.StatusOK)
}

// MetricsHandler обрабатывает GET /metrics - текстовая экспозиция
func (h *Handler) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.formatter.Write(&buf); err != nil {
		h.logger.Error("metrics rendering failed", zap.Error(err))
		h.respondError(w, "Failed to render metrics", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", metrics.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// HealthHandler обрабатывает GET /health - liveness, воспроизведение должно идти
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	healthy := h.player != nil && h.player.Playing()

	status := models.HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    h.uptime(),
	}
	code := http.StatusOK
	if !healthy {
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	h.respondJSON(w, status, code)
}

// ReadyHandler обрабатывает GET /ready - readiness, движок должен существовать
func (h *Handler) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatus{Status: "ready", Timestamp: time.Now()}
	code := http.StatusOK
	if h.player == nil {
		status.Status = "not_ready"
		code = http.StatusServiceUnavailable
	}
	h.respondJSON(w, status, code)
}

// StatusHandler обрабатывает GET /status
func (h *Handler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !h.requirePlayer(w) {
		return
	}
	settings := h.settings
	settings.Farms = h.catalog.Names()

	h.respondJSON(w, models.StatusResponse{
		ReplayStatus: h.player.Status(),
		Uptime:       h.uptime(),
		Config:       settings,
		Cache:        h.cacheStatus(r.Context()),
	}, http.StatusOK)
}

// AllDataHandler обрабатывает GET /data
func (h *Handler) AllDataHandler(w http.ResponseWriter, r *http.Request) {
	if !h.requirePlayer(w) {
		return
	}
	h.respondJSON(w, h.player.All(), http.StatusOK)
}

// FarmDataHandler обрабатывает GET /data/{farm}
func (h *Handler) FarmDataHandler(w http.ResponseWriter, r *http.Request) {
	farm := mux.Vars(r)["farm"]
	if _, ok := h.catalog.Get(farm); !ok {
		h.respondJSON(w, models.FarmNotFound{
			Error:                  "Farm not found",
			AvailableInstallations: h.catalog.Names(),
		}, http.StatusNotFound)
		return
	}
	if !h.requirePlayer(w) {
		return
	}
	h.respondJSON(w, h.player.Current(farm), http.StatusOK)
}

// FarmsHandler обрабатывает GET /farms
func (h *Handler) FarmsHandler(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]models.FarmConfig, len(h.catalog.Farms))
	for _, f := range h.catalog.Farms {
		out[f.Name] = f
	}
	h.respondJSON(w, out, http.StatusOK)
}

// JumpHandler обрабатывает POST /control/jump
func (h *Handler) JumpHandler(w http.ResponseWriter, r *http.Request) {
	var req models.JumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	index, err := parseIndex(req.Index)
	if err != nil {
		h.respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !h.requirePlayer(w) {
		return
	}

	h.player.JumpToIndex(index)
	h.refresh(r.Context())

	h.respondJSON(w, models.JumpResponse{
		Message:     "Index updated",
		NewIndex:    index,
		CurrentData: h.player.All(),
	}, http.StatusOK)
}

// PauseHandler обрабатывает POST /control/pause
func (h *Handler) PauseHandler(w http.ResponseWriter, r *http.Request) {
	if !h.requirePlayer(w) {
		return
	}
	h.player.Stop()
	h.respondJSON(w, models.ControlResponse{Message: "Replay paused", Status: h.player.Status()}, http.StatusOK)
}

// ResumeHandler обрабатывает POST /control/resume
func (h *Handler) ResumeHandler(w http.ResponseWriter, r *http.Request) {
	if !h.requirePlayer(w) {
		return
	}
	h.player.Start()
	h.respondJSON(w, models.ControlResponse{Message: "Replay resumed", Status: h.player.Status()}, http.StatusOK)
}

// CachedSnapshotHandler обрабатывает GET /cache/snapshot
func (h *Handler) CachedSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.respondError(w, "Cache not available", http.StatusServiceUnavailable)
		return
	}
	snapshot, err := h.cache.Snapshot(r.Context())
	if err != nil {
		h.respondError(w, "Failed to read cache: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.respondJSON(w, snapshot, http.StatusOK)
}

// parseIndex принимает любое неотрицательное JSON число, дробная часть отбрасывается
func parseIndex(raw interface{}) (int, error) {
	v, ok := raw.(float64)
	if !ok || math.IsNaN(v) || v < 0 {
		return 0, errors.New("Invalid index")
	}
	if v > math.MaxInt32 {
		return math.MaxInt32, nil
	}
	return int(v), nil
}

func (h *Handler) requirePlayer(w http.ResponseWriter) bool {
	if h.player == nil {
		h.respondError(w, "Simulator not initialized", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (h *Handler) uptime() int64 {
	return int64(time.Since(h.startTime).Seconds())
}

func (h *Handler) cacheStatus(ctx context.Context) models.CacheStatus {
	if h.cache == nil {
		return models.CacheStatus{Status: "disabled"}
	}
	ctx, cancel := context.WithTimeout(ctx, cacheStatusTimeout)
	defer cancel()

	if err := h.cache.Ping(ctx); err != nil {
		return models.CacheStatus{Status: "disconnected"}
	}
	refreshes, err := h.cache.Refreshes(ctx)
	if err != nil {
		h.logger.Warn("cache refresh counter unavailable", zap.Error(err))
	}
	return models.CacheStatus{Status: "connected", Refreshes: refreshes}
}

// respondJSON отправляет JSON ответ
func (h *Handler) respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("response encoding failed", zap.Error(err))
	}
}

// respondError отправляет ошибку в формате JSON
func (h *Handler) respondError(w http.ResponseWriter, message string, status int) {
	h.respondJSON(w, map[string]string{"error": message}, status)
}
