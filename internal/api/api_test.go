package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/autoanalysis/internal/domain"
	"github.com/shaiso/autoanalysis/internal/orchestrator"
	"github.com/shaiso/autoanalysis/internal/repo"
	"github.com/shaiso/autoanalysis/internal/telemetry"
)

type staticStatus orchestrator.Status

func (s staticStatus) Status() orchestrator.Status { return orchestrator.Status(s) }

type fakeEvents struct {
	events []telemetry.Event
	filter repo.EventFilter
	err    error
}

func (f *fakeEvents) List(_ context.Context, filter repo.EventFilter) ([]telemetry.Event, error) {
	f.filter = filter
	return f.events, f.err
}

func (f *fakeEvents) GetByID(_ context.Context, id uuid.UUID) (*telemetry.Event, error) {
	for _, e := range f.events {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, repo.ErrNotFound
}

func newTestMux(cfg Config) *http.ServeMux {
	cfg.Logger = slog.New(slog.DiscardHandler)
	mux := http.NewServeMux()
	NewHandler(cfg).RegisterRoutes(mux)
	return mux
}

func do(t *testing.T, mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

// --- Status Tests ---

func TestGetStatus(t *testing.T) {
	started := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	mux := newTestMux(Config{Status: staticStatus{
		State:             orchestrator.StateSleeping,
		Phase:             domain.PhaseRunning,
		Pipelines:         []string{"BCCDC-PHL/pipeline-1@1.0.0"},
		Cycles:            3,
		RunsProcessed:     7,
		LastScanStartedAt: started,
		LastScanDuration:  1500 * time.Millisecond,
	}})

	rec := do(t, mux, "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data StatusResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))

	assert.Equal(t, "SLEEPING", body.Data.State)
	assert.Equal(t, "RUNNING", body.Data.Phase)
	assert.Equal(t, int64(3), body.Data.Cycles)
	assert.Equal(t, int64(7), body.Data.RunsProcessed)
	assert.InDelta(t, 1.5, body.Data.LastScanDurationSeconds, 1e-9)
	require.NotNil(t, body.Data.LastScanStartedAt)
	assert.True(t, started.Equal(*body.Data.LastScanStartedAt))
	assert.Nil(t, body.Data.NextScanAt)
	assert.Empty(t, body.Data.ActiveRuns)
}

func TestGetStatus_NoProvider(t *testing.T) {
	rec := do(t, newTestMux(Config{}), "/api/v1/status")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name  string
		phase domain.LoopPhase
		code  int
	}{
		{name: "running", phase: domain.PhaseRunning, code: http.StatusOK},
		{name: "draining", phase: domain.PhaseDraining, code: http.StatusOK},
		{name: "stopped", phase: domain.PhaseStopped, code: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestMux(Config{Status: staticStatus{Phase: tt.phase}})
			rec := do(t, mux, "/healthz")
			assert.Equal(t, tt.code, rec.Code)

			var body HealthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, string(tt.phase), body.Phase)
		})
	}
}

// --- Event Tests ---

func TestListEvents(t *testing.T) {
	event := telemetry.NewEvent(telemetry.EventPipelineComplete).ForRun("R1").With("analysis_output_dir", "/out")
	store := &fakeEvents{events: []telemetry.Event{event}}
	mux := newTestMux(Config{Events: store})

	rec := do(t, mux, "/api/v1/events?run_id=R1&event_type=pipeline_complete&limit=10&since=2026-01-01T00:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "R1", store.filter.RunID)
	assert.Equal(t, "pipeline_complete", store.filter.Type)
	assert.Equal(t, 10, store.filter.Limit)
	assert.Equal(t, 2026, store.filter.Since.Year())

	var body struct {
		Data  []EventResponse `json:"data"`
		Total int             `json:"total"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, "INFO", body.Data[0].Level)
	assert.Equal(t, "/out", body.Data[0].Fields["analysis_output_dir"])
}

func TestListEvents_BadParams(t *testing.T) {
	mux := newTestMux(Config{Events: &fakeEvents{}})

	for _, target := range []string{
		"/api/v1/events?limit=abc",
		"/api/v1/events?offset=-x",
		"/api/v1/events?since=yesterday",
	} {
		rec := do(t, mux, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestListEvents_RepoErrors(t *testing.T) {
	store := &fakeEvents{err: repo.ErrInvalidFilter}
	rec := do(t, newTestMux(Config{Events: store}), "/api/v1/events")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	store.err = errors.New("connection reset")
	rec = do(t, newTestMux(Config{Events: store}), "/api/v1/events")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestEvents_NotConfigured(t *testing.T) {
	mux := newTestMux(Config{})
	assert.Equal(t, http.StatusServiceUnavailable, do(t, mux, "/api/v1/events").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, mux, "/api/v1/events/"+uuid.NewString()).Code)
}

func TestGetEvent(t *testing.T) {
	event := telemetry.NewEvent(telemetry.EventScanComplete)
	mux := newTestMux(Config{Events: &fakeEvents{events: []telemetry.Event{event}}})

	rec := do(t, mux, "/api/v1/events/"+event.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusNotFound, do(t, mux, "/api/v1/events/"+uuid.NewString()).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, mux, "/api/v1/events/not-a-uuid").Code)
}

// --- Middleware Tests ---

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	h := Chain(Recovery(logger), Logging(logger))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
