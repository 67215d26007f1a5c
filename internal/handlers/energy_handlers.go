package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"campus-energy/internal/models"
	"campus-energy/pkg/logging"
	"campus-energy/pkg/metrics"
)

// Dashboard is the read side the API serves from
type Dashboard interface {
	Buildings() []models.BuildingProfile
	Current(ctx context.Context) (*models.CurrentReadings, error)
	Building(ctx context.Context, buildingID string) (*models.BuildingWindowSummary, error)
	Historical(ctx context.Context, date, buildingID string) (*models.HistoricalData, error)
	Summary(ctx context.Context, period string) (*models.SummaryResponse, error)
	HealthCheck(ctx context.Context) error
}

// Legacy query actions on /api/energy
const (
	ActionCurrent    = "current"
	ActionBuilding   = "building"
	ActionHistorical = "historical"
	ActionSummary    = "summary"
)

const noDataMessage = "No data found for specified building"

// EnergyHandler handles the dashboard API endpoints
type EnergyHandler struct {
	dashboard Dashboard
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// NewEnergyHandler creates a new energy handler
func NewEnergyHandler(dashboard Dashboard, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *EnergyHandler {
	return &EnergyHandler{
		dashboard: dashboard,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// GetEnergy handles GET /api/energy?action=current|building|historical|summary.
// The action defaults to current. A building without data yields a 200
// carrying a "no data" message, which the dashboard expects.
func (h *EnergyHandler) GetEnergy(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/energy"
	defer h.observe(endpoint, time.Now())

	q := r.URL.Query()
	action := q.Get("action")
	if action == "" {
		action = ActionCurrent
	}

	var (
		result interface{}
		err    error
	)
	switch action {
	case ActionCurrent:
		result, err = h.dashboard.Current(r.Context())
	case ActionBuilding:
		result, err = h.dashboard.Building(r.Context(), q.Get("buildingId"))
		if models.IsNotFound(err) {
			result, err = models.NoData{Message: noDataMessage}, nil
		}
	case ActionHistorical:
		result, err = h.dashboard.Historical(r.Context(), q.Get("date"), q.Get("buildingId"))
	case ActionSummary:
		result, err = h.dashboard.Summary(r.Context(), q.Get("period"))
	default:
		h.metrics.RecordAPIError("invalid_action", endpoint)
		h.sendError(w, r, endpoint, "Invalid action specified", http.StatusBadRequest)
		return
	}

	h.respond(w, r, endpoint, result, err)
}

// GetCurrent handles GET /api/energy/current
func (h *EnergyHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/energy/current"
	defer h.observe(endpoint, time.Now())

	result, err := h.dashboard.Current(r.Context())
	h.respond(w, r, endpoint, result, err)
}

// GetBuilding handles GET /api/energy/buildings/{buildingId}
func (h *EnergyHandler) GetBuilding(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/energy/buildings/{buildingId}"
	defer h.observe(endpoint, time.Now())

	result, err := h.dashboard.Building(r.Context(), mux.Vars(r)["buildingId"])
	if models.IsNotFound(err) {
		h.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(http.StatusNotFound))
		h.sendJSON(w, models.NoData{Message: noDataMessage}, http.StatusNotFound)
		return
	}
	h.respond(w, r, endpoint, result, err)
}

// GetHistorical handles GET /api/energy/historical?date=YYYY-MM-DD[&buildingId=]
func (h *EnergyHandler) GetHistorical(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/energy/historical"
	defer h.observe(endpoint, time.Now())

	q := r.URL.Query()
	result, err := h.dashboard.Historical(r.Context(), q.Get("date"), q.Get("buildingId"))
	h.respond(w, r, endpoint, result, err)
}

// GetSummary handles GET /api/energy/summary?period=day|week|month
func (h *EnergyHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/energy/summary"
	defer h.observe(endpoint, time.Now())

	result, err := h.dashboard.Summary(r.Context(), r.URL.Query().Get("period"))
	h.respond(w, r, endpoint, result, err)
}

// ListBuildings handles GET /api/buildings
func (h *EnergyHandler) ListBuildings(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/buildings"
	defer h.observe(endpoint, time.Now())

	buildings := h.dashboard.Buildings()
	h.respond(w, r, endpoint, map[string]interface{}{
		"buildings": buildings,
		"count":     len(buildings),
	}, nil)
}

// HealthCheck handles GET /health
func (h *EnergyHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if err := h.dashboard.HealthCheck(ctx); err != nil {
		h.logger.Warn(ctx, "[HEALTH_CHECK] Reading store unhealthy", logging.Fields{
			"error": err.Error(),
		})
		status["status"] = "unhealthy"
		status["store"] = err.Error()
		code = http.StatusServiceUnavailable
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, code)
}

// Preflight answers CORS preflight requests; the CORS middleware adds the headers
func (h *EnergyHandler) Preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// respond maps service errors to status codes: validation errors are 400,
// anything else 500
func (h *EnergyHandler) respond(w http.ResponseWriter, r *http.Request, endpoint string, result interface{}, err error) {
	ctx := r.Context()

	if err != nil {
		if models.IsValidation(err) {
			h.metrics.RecordAPIError("validation_error", endpoint)
			h.sendError(w, r, endpoint, err.Error(), http.StatusBadRequest)
			return
		}

		h.logger.Error(ctx, "[API_ERROR] Failed to process request", logging.Fields{
			"endpoint": endpoint,
			"query":    r.URL.RawQuery,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, endpoint, "Error processing request", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, result, http.StatusOK)
}

func (h *EnergyHandler) observe(endpoint string, start time.Time) {
	h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// sendJSON sends a JSON response
func (h *EnergyHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *EnergyHandler) sendError(w http.ResponseWriter, r *http.Request, endpoint, message string, statusCode int) {
	h.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all energy API routes
func (h *EnergyHandler) RegisterRoutes(router *mux.Router) {
	api := map[string]http.HandlerFunc{
		"/api/energy":                        h.GetEnergy,
		"/api/energy/current":                h.GetCurrent,
		"/api/energy/buildings/{buildingId}": h.GetBuilding,
		"/api/energy/historical":             h.GetHistorical,
		"/api/energy/summary":                h.GetSummary,
		"/api/buildings":                     h.ListBuildings,
	}
	for path, handler := range api {
		router.HandleFunc(path, handler).Methods("GET")
		router.HandleFunc(path, h.Preflight).Methods("OPTIONS")
	}

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
}
