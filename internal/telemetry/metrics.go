package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики оркестратора. Экспортируются на /metrics.
var (
	// StageOutcomes — количество обработанных stages по результату.
	StageOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autoanalysis_stage_outcomes_total",
		Help: "Pipeline stages processed, by pipeline and outcome",
	}, []string{"pipeline", "outcome"})

	// StageDuration — длительность выполнения stage в Execution Engine.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "autoanalysis_stage_duration_seconds",
		Help:    "Wall time spent in the execution engine per stage",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	}, []string{"pipeline"})

	// ScanDuration — длительность одного прохода по runs.
	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "autoanalysis_scan_duration_seconds",
		Help:    "Duration of a full scan cycle",
		Buckets: prometheus.ExponentialBuckets(0.1, 4, 10),
	})

	// RunsProcessed — количество runs, прошедших через оркестратор.
	RunsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autoanalysis_runs_processed_total",
		Help: "Runs processed across all scans",
	})

	// ActiveRuns — runs, обрабатываемые в данный момент.
	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "autoanalysis_active_runs",
		Help: "Runs currently being processed",
	})

	// ConfigReloadFailures — неудачные перезагрузки конфигурации.
	ConfigReloadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autoanalysis_config_reload_failures_total",
		Help: "Config reloads that failed and kept the previous config",
	})

	// NotificationFailures — ошибки доставки уведомлений.
	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autoanalysis_notification_failures_total",
		Help: "Notification deliveries that failed",
	})

	// EventPersistFailures — события, которые не удалось сохранить в БД.
	EventPersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autoanalysis_event_persist_failures_total",
		Help: "Events that could not be written to the event store",
	})
)
