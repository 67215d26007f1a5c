package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-energy/internal/models"
	"campus-energy/pkg/logging"
	"campus-energy/pkg/metrics"
)

var fixedAt = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

type fakeDashboard struct {
	buildings []models.BuildingProfile
	current   *models.CurrentReadings
	building  *models.BuildingWindowSummary
	err       error
	healthErr error
	panics    bool

	gotBuildingID string
	gotDate       string
	gotPeriod     string
}

func (f *fakeDashboard) Buildings() []models.BuildingProfile { return f.buildings }

func (f *fakeDashboard) Current(ctx context.Context) (*models.CurrentReadings, error) {
	if f.panics {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.current, nil
}

func (f *fakeDashboard) Building(ctx context.Context, buildingID string) (*models.BuildingWindowSummary, error) {
	f.gotBuildingID = buildingID
	if buildingID == "" {
		return nil, &models.ValidationError{Field: "buildingId", Message: "buildingId is required"}
	}
	if f.building == nil || f.building.BuildingID != buildingID {
		return nil, &models.NotFoundError{Resource: "building data", ID: buildingID}
	}
	return f.building, nil
}

func (f *fakeDashboard) Historical(ctx context.Context, date, buildingID string) (*models.HistoricalData, error) {
	f.gotDate, f.gotBuildingID = date, buildingID
	if date == "" {
		return nil, &models.ValidationError{Field: "date", Message: "date parameter is required"}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.HistoricalData{Date: date, Source: models.SourceStore, BuildingID: buildingID, Readings: []models.Reading{}}, nil
}

func (f *fakeDashboard) Summary(ctx context.Context, period string) (*models.SummaryResponse, error) {
	f.gotPeriod = period
	switch period {
	case "", "day", "week", "month":
	default:
		return nil, &models.ValidationError{Field: "period", Value: period, Message: "Invalid period. Use day, week, or month."}
	}
	if period == "" {
		period = "day"
	}
	return &models.SummaryResponse{Timestamp: fixedAt, Period: models.Period(period)}, nil
}

func (f *fakeDashboard) HealthCheck(ctx context.Context) error { return f.healthErr }

func newDashboard() *fakeDashboard {
	lab := models.Reading{
		BuildingID:   "lab-01",
		Timestamp:    fixedAt,
		BuildingName: "Science Laboratory",
		BuildingType: models.CategoryLaboratory,
		EnergyKwh:    356.36,
		Temperature:  72.4,
		Occupancy:    84,
		Cost:         42.76,
	}
	return &fakeDashboard{
		buildings: []models.BuildingProfile{
			{ID: "lab-01", Name: "Science Laboratory", Category: models.CategoryLaboratory, Capacity: 120, Floors: 3, BaseLoadKW: 200, PeakMultiplier: 2},
		},
		current: &models.CurrentReadings{
			Timestamp: fixedAt,
			Readings:  []models.Reading{lab},
			Summary:   models.CurrentSummary{BuildingCount: 1, TotalEnergyKwh: 356.36, TotalCost: 42.76},
		},
		building: &models.BuildingWindowSummary{
			BuildingID:   "lab-01",
			BuildingName: "Science Laboratory",
			BuildingType: models.CategoryLaboratory,
			Timestamp:    fixedAt,
			Latest:       lab,
			Readings:     []models.Reading{lab},
		},
	}
}

func newTestRouter(t *testing.T, d Dashboard, cfg RouterConfig) (http.Handler, *metrics.Collector) {
	t.Helper()
	m := metrics.NewCollector("test", prometheus.NewRegistry())
	h := NewEnergyHandler(d, logging.NewNopLogger(), m)
	return NewRouter(h, cfg, logging.NewNopLogger()), m
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func get(router http.Handler, target string) *httptest.ResponseRecorder {
	return serve(router, httptest.NewRequest(http.MethodGet, target, nil))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestGetEnergy_Actions(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantStatus int
		check      func(t *testing.T, body map[string]interface{}, d *fakeDashboard)
	}{
		{
			name:       "default action is current",
			target:     "/api/energy",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}, d *fakeDashboard) {
				summary := body["summary"].(map[string]interface{})
				assert.Equal(t, float64(1), summary["buildingCount"])
				assert.Len(t, body["readings"], 1)
			},
		},
		{
			name:       "building",
			target:     "/api/energy?action=building&buildingId=lab-01",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}, d *fakeDashboard) {
				assert.Equal(t, "lab-01", body["buildingId"])
				assert.Equal(t, "laboratory", body["buildingType"])
			},
		},
		{
			name:       "building without data answers with a message",
			target:     "/api/energy?action=building&buildingId=gym-09",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}, d *fakeDashboard) {
				assert.Equal(t, "No data found for specified building", body["message"])
				assert.Equal(t, "gym-09", d.gotBuildingID)
			},
		},
		{
			name:       "building without id",
			target:     "/api/energy?action=building",
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}, d *fakeDashboard) {
				assert.Equal(t, "buildingId is required", body["message"])
			},
		},
		{
			name:       "historical",
			target:     "/api/energy?action=historical&date=2024-03-04&buildingId=lab-01",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}, d *fakeDashboard) {
				assert.Equal(t, "2024-03-04", body["date"])
				assert.Equal(t, "store", body["source"])
				assert.Equal(t, "lab-01", d.gotBuildingID)
			},
		},
		{
			name:       "historical without date",
			target:     "/api/energy?action=historical",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "summary",
			target:     "/api/energy?action=summary&period=week",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}, d *fakeDashboard) {
				assert.Equal(t, "week", body["period"])
			},
		},
		{
			name:       "summary with bad period",
			target:     "/api/energy?action=summary&period=year",
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}, d *fakeDashboard) {
				assert.Equal(t, "Invalid period. Use day, week, or month.", body["message"])
				assert.Equal(t, float64(http.StatusBadRequest), body["code"])
			},
		},
		{
			name:       "unknown action",
			target:     "/api/energy?action=forecast",
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}, d *fakeDashboard) {
				assert.Equal(t, "Invalid action specified", body["message"])
				assert.Equal(t, "Bad Request", body["error"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDashboard()
			router, _ := newTestRouter(t, d, RouterConfig{})

			rec := get(router, tt.target)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tt.check != nil {
				tt.check(t, decode(t, rec), d)
			}
		})
	}
}

func TestGetBuilding_NotFoundIs404(t *testing.T) {
	router, m := newTestRouter(t, newDashboard(), RouterConfig{})

	rec := get(router, "/api/energy/buildings/gym-09")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No data found for specified building", decode(t, rec)["message"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues("/api/energy/buildings/{buildingId}", "GET", "404")))
}

func TestGetBuilding_Found(t *testing.T) {
	d := newDashboard()
	router, _ := newTestRouter(t, d, RouterConfig{})

	rec := get(router, "/api/energy/buildings/lab-01")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "lab-01", d.gotBuildingID)
	latest := decode(t, rec)["latest"].(map[string]interface{})
	assert.Equal(t, 356.36, latest["energyKwh"])
}

func TestRESTRoutes(t *testing.T) {
	tests := []struct {
		target     string
		wantStatus int
	}{
		{"/api/energy/current", http.StatusOK},
		{"/api/energy/historical?date=2024-03-04", http.StatusOK},
		{"/api/energy/historical", http.StatusBadRequest},
		{"/api/energy/summary", http.StatusOK},
		{"/api/energy/summary?period=year", http.StatusBadRequest},
		{"/api/energy/unknown", http.StatusNotFound},
		{"/api/docs/openapi.json", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			router, _ := newTestRouter(t, newDashboard(), RouterConfig{})
			rec := get(router, tt.target)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestStoreFailureIs500(t *testing.T) {
	d := newDashboard()
	d.err = errors.New("connection refused")
	router, m := newTestRouter(t, d, RouterConfig{})

	rec := get(router, "/api/energy/current")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Error processing request", body["message"])
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIErrorsTotal.WithLabelValues("internal_error", "/api/energy/current")))
}

func TestListBuildings(t *testing.T) {
	router, _ := newTestRouter(t, newDashboard(), RouterConfig{})

	rec := get(router, "/api/buildings")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(1), body["count"])
	first := body["buildings"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "lab-01", first["id"])
}

func TestHealthCheck(t *testing.T) {
	d := newDashboard()
	router, _ := newTestRouter(t, d, RouterConfig{})

	rec := get(router, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])

	d.healthErr = errors.New("dial tcp: connection refused")
	rec = get(router, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", decode(t, rec)["status"])
}

func TestRequestID(t *testing.T) {
	router, _ := newTestRouter(t, newDashboard(), RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/energy/current", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := serve(router, req)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))

	rec = get(router, "/api/energy/current")
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}

func TestCORS(t *testing.T) {
	router, _ := newTestRouter(t, newDashboard(), RouterConfig{AllowedOrigins: []string{"https://dashboard.example.edu"}})

	req := httptest.NewRequest(http.MethodGet, "/api/energy/current", nil)
	req.Header.Set("Origin", "https://dashboard.example.edu")
	rec := serve(router, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://dashboard.example.edu", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/energy", nil)
	req.Header.Set("Origin", "https://dashboard.example.edu")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec = serve(router, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://dashboard.example.edu", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/energy/current", nil)
	req.Header.Set("Origin", "https://elsewhere.example.com")
	rec = serve(router, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = serve(router, httptest.NewRequest(http.MethodOptions, "/api/energy/summary", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, newDashboard(), RouterConfig{})
	assert.Equal(t, http.StatusNotFound, get(router, "/metrics").Code)

	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# metrics"))
	})
	router, _ = newTestRouter(t, newDashboard(), RouterConfig{MetricsHandler: metricsHandler})
	rec := get(router, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())
}

func TestPanicRecovered(t *testing.T) {
	d := newDashboard()
	d.panics = true
	router, _ := newTestRouter(t, d, RouterConfig{})

	rec := get(router, "/api/energy/current")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
