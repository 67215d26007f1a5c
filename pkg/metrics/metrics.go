package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	// API Metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	// Simulation Metrics
	ReadingsGeneratedTotal prometheus.Counter
	SimulationDuration     prometheus.Histogram
	SimulationErrorsTotal  *prometheus.CounterVec
	BuildingEnergyKwh      *prometheus.GaugeVec
	BuildingTemperatureF   *prometheus.GaugeVec
	BuildingOccupancy      *prometheus.GaugeVec

	// Alert Metrics
	AlertChecksTotal   *prometheus.CounterVec
	AlertsTotal        *prometheus.CounterVec
	AlertPublishErrors prometheus.Counter

	// Archive Metrics
	ArchiveRecordsTotal   prometheus.Counter
	ArchiveBuildingsTotal *prometheus.CounterVec
	ArchiveDuration       prometheus.Histogram

	// Database Metrics
	DBQueryDuration   *prometheus.HistogramVec
	DBConnectionPool  *prometheus.GaugeVec
	DBErrorsTotal     *prometheus.CounterVec
	StoreRetriesTotal *prometheus.CounterVec

	// Cache Metrics
	CacheRequestsTotal *prometheus.CounterVec

	// Best-effort side effects that failed and were suppressed
	SideEffectFailuresTotal *prometheus.CounterVec

	// System Metrics
	ProcessingTimeMS *prometheus.HistogramVec
}

// NewCollector creates a new metrics collector registered with reg.
// Passing nil registers with the Prometheus default registerer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by endpoint, method, and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"endpoint"},
		),

		APIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors by type",
			},
			[]string{"error_type", "endpoint"},
		),

		ReadingsGeneratedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "readings_generated_total",
				Help:      "Total number of simulated readings persisted",
			},
		),

		SimulationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "simulation_tick_duration_seconds",
				Help:      "Duration of one simulation tick across all buildings",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),

		SimulationErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "simulation_errors_total",
				Help:      "Total number of per-building simulation failures by type",
			},
			[]string{"error_type"},
		),

		BuildingEnergyKwh: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "building_energy_kwh",
				Help:      "Latest simulated energy consumption per building",
			},
			[]string{"building_id", "building_type"},
		),

		BuildingTemperatureF: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "building_temperature_fahrenheit",
				Help:      "Latest simulated indoor temperature per building",
			},
			[]string{"building_id"},
		),

		BuildingOccupancy: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "building_occupancy",
				Help:      "Latest simulated occupant count per building",
			},
			[]string{"building_id"},
		),

		AlertChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alert_checks_total",
				Help:      "Readings evaluated against the threshold table by trigger",
			},
			[]string{"trigger"},
		),

		AlertsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "energy_alerts_total",
				Help:      "Alerts raised by building",
			},
			[]string{"building_id", "building_type"},
		),

		AlertPublishErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alert_publish_errors_total",
				Help:      "Alert notifications that could not be published",
			},
		),

		ArchiveRecordsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "archive_records_total",
				Help:      "Readings written to the archive",
			},
		),

		ArchiveBuildingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "archive_buildings_total",
				Help:      "Buildings processed by the archiver by outcome",
			},
			[]string{"status"},
		),

		ArchiveDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "archive_duration_seconds",
				Help:      "Duration of a daily archive run",
				Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds by query type",
				Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
			},
			[]string{"query_type"},
		),

		DBConnectionPool: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"state"}, // "in_use", "idle", "total"
		),

		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_errors_total",
				Help:      "Total number of database errors by type",
			},
			[]string{"error_type"},
		),

		StoreRetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_retries_total",
				Help:      "Retries of transient store failures by operation",
			},
			[]string{"operation"},
		),

		CacheRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Response cache lookups by result",
			},
			[]string{"result"}, // "hit", "miss", "error"
		),

		SideEffectFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "side_effect_failures_total",
				Help:      "Best-effort side effects that failed and were suppressed",
			},
			[]string{"effect"},
		),

		ProcessingTimeMS: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "processing_time_milliseconds",
				Help:      "Processing time in milliseconds by operation",
				Buckets:   []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000},
			},
			[]string{"operation"},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordAPIRequest increments API request counter
func (c *Collector) RecordAPIRequest(endpoint, method, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordAPIError increments API error counter
func (c *Collector) RecordAPIError(errorType, endpoint string) {
	c.APIErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordSimulationError increments the per-building simulation failure counter
func (c *Collector) RecordSimulationError(errorType string) {
	c.SimulationErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordReading publishes the latest values of a building's reading
func (c *Collector) RecordReading(buildingID, buildingType string, energyKwh, temperature float64, occupancy int) {
	c.BuildingEnergyKwh.WithLabelValues(buildingID, buildingType).Set(energyKwh)
	c.BuildingTemperatureF.WithLabelValues(buildingID).Set(temperature)
	c.BuildingOccupancy.WithLabelValues(buildingID).Set(float64(occupancy))
}

// RecordAlertCheck counts a reading evaluated by the given trigger ("stream" or "scheduled")
func (c *Collector) RecordAlertCheck(trigger string) {
	c.AlertChecksTotal.WithLabelValues(trigger).Inc()
}

// RecordAlert counts a raised alert
func (c *Collector) RecordAlert(buildingID, buildingType string) {
	c.AlertsTotal.WithLabelValues(buildingID, buildingType).Inc()
}

// RecordArchiveBuilding counts an archived building by outcome ("archived", "empty", "failed")
func (c *Collector) RecordArchiveBuilding(status string) {
	c.ArchiveBuildingsTotal.WithLabelValues(status).Inc()
}

// RecordDBError increments database error counter
func (c *Collector) RecordDBError(errorType string) {
	c.DBErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordStoreRetry counts a retried store operation
func (c *Collector) RecordStoreRetry(operation string) {
	c.StoreRetriesTotal.WithLabelValues(operation).Inc()
}

// RecordCache counts a cache lookup result
func (c *Collector) RecordCache(result string) {
	c.CacheRequestsTotal.WithLabelValues(result).Inc()
}

// RecordSideEffectFailure counts a suppressed best-effort failure
func (c *Collector) RecordSideEffectFailure(effect string) {
	c.SideEffectFailuresTotal.WithLabelValues(effect).Inc()
}

// UpdateDBConnectionPool updates database connection pool metrics
func (c *Collector) UpdateDBConnectionPool(inUse, idle, total int) {
	c.DBConnectionPool.WithLabelValues("in_use").Set(float64(inUse))
	c.DBConnectionPool.WithLabelValues("idle").Set(float64(idle))
	c.DBConnectionPool.WithLabelValues("total").Set(float64(total))
}
