package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mescon/Dupearr/internal/domain"
	"github.com/mescon/Dupearr/internal/eventbus"
	"github.com/mescon/Dupearr/internal/logger"
)

// MetricsService exposes Prometheus metrics for Dupearr
type MetricsService struct {
	registry *prometheus.Registry

	// Counters
	runsTotal       *prometheus.CounterVec
	catalogFetches  *prometheus.CounterVec
	rootsSkipped    prometheus.Counter
	removalsPlanned prometheus.Counter

	// Gauges
	lastGroupsFound    prometheus.Gauge
	lastFoldersIndexed prometheus.Gauge
	lastFilesIndexed   prometheus.Gauge

	// Histograms
	runDuration *prometheus.HistogramVec
}

// NewMetricsService creates and registers Prometheus metrics on a private
// registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dupearr_runs_total",
				Help: "Total number of runs by kind and outcome",
			},
			[]string{"kind", "outcome"}, // completed, failed
		),

		catalogFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dupearr_catalog_fetches_total",
				Help: "Total number of catalog fetch attempts by service and outcome",
			},
			[]string{"service", "outcome"}, // success, degraded
		),

		rootsSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dupearr_scan_roots_skipped_total",
				Help: "Total number of scan roots skipped because they were missing or unreadable",
			},
		),

		removalsPlanned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dupearr_removals_suggested_total",
				Help: "Total number of removals suggested in written cleanup plans",
			},
		),

		lastGroupsFound: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dupearr_last_run_duplicate_groups",
				Help: "Duplicate groups found by the most recent run",
			},
		),

		lastFoldersIndexed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dupearr_last_run_folders_indexed",
				Help: "Folder names indexed by the most recent run",
			},
		),

		lastFilesIndexed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dupearr_last_run_files_indexed",
				Help: "Media files indexed by the most recent run",
			},
		),

		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dupearr_run_duration_seconds",
				Help:    "Duration of runs in seconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1hour
			},
			[]string{"kind"},
		),
	}

	m.registry.MustRegister(
		m.runsTotal,
		m.catalogFetches,
		m.rootsSkipped,
		m.removalsPlanned,
		m.lastGroupsFound,
		m.lastFoldersIndexed,
		m.lastFilesIndexed,
		m.runDuration,
	)

	return m
}

// Start subscribes to events and updates metrics
func (m *MetricsService) Start(bus eventbus.Publisher) {
	bus.Subscribe(domain.RunCompleted, m.handleRunCompleted)
	bus.Subscribe(domain.RunFailed, m.handleRunFailed)
	bus.Subscribe(domain.ScanRootSkipped, m.handleRootSkipped)
	bus.Subscribe(domain.CatalogFetched, m.handleCatalogFetched)
	bus.Subscribe(domain.CatalogDegraded, m.handleCatalogDegraded)
	bus.Subscribe(domain.PlanWritten, m.handlePlanWritten)

	logger.Infof("Metrics service started")
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint
func (m *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for test scrapes.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// Event handlers

func (m *MetricsService) handleRunCompleted(event domain.Event) {
	kind, _ := event.GetString("kind")
	m.runsTotal.WithLabelValues(kind, "completed").Inc()

	if groups, ok := event.GetInt("groups_found"); ok {
		m.lastGroupsFound.Set(float64(groups))
	}
	if folders, ok := event.GetInt("folders_indexed"); ok {
		m.lastFoldersIndexed.Set(float64(folders))
	}
	if files, ok := event.GetInt("files_indexed"); ok {
		m.lastFilesIndexed.Set(float64(files))
	}
	if secs, ok := event.EventData["duration_seconds"].(float64); ok {
		m.runDuration.WithLabelValues(kind).Observe(secs)
	}
}

func (m *MetricsService) handleRunFailed(event domain.Event) {
	kind, _ := event.GetString("kind")
	m.runsTotal.WithLabelValues(kind, "failed").Inc()
}

func (m *MetricsService) handleRootSkipped(event domain.Event) {
	m.rootsSkipped.Inc()
}

func (m *MetricsService) handleCatalogFetched(event domain.Event) {
	service, _ := event.GetString("service")
	m.catalogFetches.WithLabelValues(service, "success").Inc()
}

func (m *MetricsService) handleCatalogDegraded(event domain.Event) {
	service, _ := event.GetString("service")
	m.catalogFetches.WithLabelValues(service, "degraded").Inc()
}

func (m *MetricsService) handlePlanWritten(event domain.Event) {
	if removals, ok := event.GetInt("removal_count"); ok {
		m.removalsPlanned.Add(float64(removals))
	}
}
