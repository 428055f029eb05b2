package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/strawberry/internal/api/handlers"
	"github.com/wonny/strawberry/pkg/logger"
	"github.com/wonny/strawberry/pkg/metrics"
)

// Handlers groups the endpoint handlers mounted by NewRouter
type Handlers struct {
	Facts *handlers.FactsHandler
	Runs  *handlers.RunsHandler
	Hub   *Hub
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: routes are only registered here
func NewRouter(h Handlers, m *metrics.Registry, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthCheckHandler).Methods("GET")
	r.Handle("/metrics", m.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Fact endpoints
	api.HandleFunc("/tickers", h.Facts.GetTickers).Methods("GET")
	api.HandleFunc("/facts/{symbol}", h.Facts.GetFacts).Methods("GET")
	api.HandleFunc("/facts/{symbol}/latest", h.Facts.GetLatest).Methods("GET")
	api.HandleFunc("/screener", h.Facts.GetScreener).Methods("GET")

	// Run endpoints
	api.HandleFunc("/runs/latest", h.Runs.GetLatest).Methods("GET")
	api.HandleFunc("/runs", h.Runs.Trigger).Methods("POST")

	r.HandleFunc("/ws/runs", h.Hub.ServeWS).Methods("GET")

	r.Use(loggingMiddleware(m, log))
	r.Use(recoveryMiddleware(log))

	return r
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "strawberry-api",
	})
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests and records them per route template
func loggingMiddleware(m *metrics.Registry, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}

			// the websocket upgrade needs the raw writer
			if route == "/ws/runs" {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			duration := time.Since(start)

			m.ObserveHTTP(route, strconv.Itoa(rec.status), duration)
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": duration,
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
