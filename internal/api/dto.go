package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/autoanalysis/internal/orchestrator"
	"github.com/shaiso/autoanalysis/internal/telemetry"
)

// Status DTOs

// StatusResponse — состояние цикла оркестратора.
type StatusResponse struct {
	State      string   `json:"state"`
	Phase      string   `json:"phase"`
	ConfigPath string   `json:"config_path,omitempty"`
	Pipelines  []string `json:"pipelines"`

	Cycles        int64    `json:"cycles"`
	RunsProcessed int64    `json:"runs_processed"`
	ActiveRuns    []string `json:"active_runs"`

	LastScanStartedAt       *time.Time `json:"last_scan_started_at,omitempty"`
	LastScanDurationSeconds float64    `json:"last_scan_duration_seconds"`
	NextScanAt              *time.Time `json:"next_scan_at,omitempty"`
}

// StatusFromDomain конвертирует orchestrator.Status в StatusResponse.
func StatusFromDomain(s orchestrator.Status) StatusResponse {
	resp := StatusResponse{
		State:                   string(s.State),
		Phase:                   string(s.Phase),
		ConfigPath:              s.ConfigPath,
		Pipelines:               s.Pipelines,
		Cycles:                  s.Cycles,
		RunsProcessed:           s.RunsProcessed,
		ActiveRuns:              s.ActiveRuns,
		LastScanDurationSeconds: s.LastScanDuration.Seconds(),
		LastScanStartedAt:       timePtr(s.LastScanStartedAt),
		NextScanAt:              timePtr(s.NextScanAt),
	}
	if resp.Pipelines == nil {
		resp.Pipelines = []string{}
	}
	if resp.ActiveRuns == nil {
		resp.ActiveRuns = []string{}
	}
	return resp
}

// HealthResponse — ответ /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Phase  string `json:"phase"`
}

// Event DTOs

// EventResponse — событие журнала.
type EventResponse struct {
	ID        uuid.UUID      `json:"id"`
	Type      string         `json:"event_type"`
	Level     string         `json:"level"`
	RunID     string         `json:"run_id,omitempty"`
	Pipeline  string         `json:"pipeline,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventFromDomain конвертирует telemetry.Event в EventResponse.
func EventFromDomain(e telemetry.Event) EventResponse {
	return EventResponse{
		ID:        e.ID,
		Type:      e.Type,
		Level:     e.Level.String(),
		RunID:     e.RunID,
		Pipeline:  e.Pipeline,
		Fields:    e.Fields,
		Timestamp: e.Time,
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
