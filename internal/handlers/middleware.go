package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"campus-energy/pkg/logging"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// RouterConfig configures the middleware chain
type RouterConfig struct {
	AllowedOrigins []string
	// MetricsHandler is mounted on /metrics when set
	MetricsHandler http.Handler
}

// NewRouter registers h's routes and wraps them with request ids, CORS and
// panic recovery
func NewRouter(h *EnergyHandler, cfg RouterConfig, logger *logging.StructuredLogger) http.Handler {
	router := mux.NewRouter()
	router.Use(RequestID)

	h.RegisterRoutes(router)
	if cfg.MetricsHandler != nil {
		router.Handle("/metrics", cfg.MetricsHandler).Methods("GET")
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(origins),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", RequestIDHeader}),
		gorillahandlers.ExposedHeaders([]string{RequestIDHeader}),
	)
	recovery := gorillahandlers.RecoveryHandler(
		gorillahandlers.RecoveryLogger(recoveryLogger{logger: logger}),
	)

	return recovery(cors(router))
}

// RequestID reuses the caller's X-Request-ID or assigns a new one, echoes it
// and stores it in the request context for logging
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// recoveryLogger adapts the structured logger to gorilla's RecoveryHandlerLogger
type recoveryLogger struct {
	logger *logging.StructuredLogger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error(context.Background(), "[API_PANIC] Recovered from panic", logging.Fields{
		"panic": fmt.Sprint(v...),
	}, nil)
}
