package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// NewRouter регистрирует маршруты и оборачивает роутер
// middleware логирования, метрик и CORS
func (h *Handler) NewRouter(corsOrigins string) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/", h.IndexHandler).Methods("GET")
	router.HandleFunc("/metrics", h.MetricsHandler).Methods("GET")
	router.HandleFunc("/health", h.HealthHandler).Methods("GET")
	router.HandleFunc("/ready", h.ReadyHandler).Methods("GET")
	router.HandleFunc("/status", h.StatusHandler).Methods("GET")
	router.HandleFunc("/data", h.AllDataHandler).Methods("GET")
	router.HandleFunc("/data/{farm}", h.FarmDataHandler).Methods("GET")
	router.HandleFunc("/farms", h.FarmsHandler).Methods("GET")
	router.HandleFunc("/control/jump", h.JumpHandler).Methods("POST")
	router.HandleFunc("/control/pause", h.PauseHandler).Methods("POST")
	router.HandleFunc("/control/resume", h.ResumeHandler).Methods("POST")
	router.HandleFunc("/cache/snapshot", h.CachedSnapshotHandler).Methods("GET")

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.respondError(w, "Route not found", http.StatusNotFound)
	})

	router.Use(h.loggingMiddleware)
	if h.registry != nil {
		router.Use(h.metricsMiddleware)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: splitOrigins(corsOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(router)
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// statusRecorder запоминает код ответа обработчика
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware логирует HTTP запросы
func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// metricsMiddleware считает запросы и время их обработки по шаблону маршрута
func (h *Handler) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tpl
			}
		}

		timer := prometheus.NewTimer(h.registry.RequestDuration.WithLabelValues(endpoint, r.Method))
		defer timer.ObserveDuration()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.registry.RequestsTotal.WithLabelValues(endpoint, r.Method, strconv.Itoa(rec.status)).Inc()
	})
}
