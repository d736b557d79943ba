package orchestrator

import (
	"slices"
	"sync"
	"time"

	"github.com/shaiso/autoanalysis/internal/domain"
)

// LoopState — текущее занятие цикла.
//
//	IDLE → RELOADING_CONFIG → SCANNING → PROCESSING_RUN → SLEEPING → IDLE
//	                                                              ↘ TERMINATING
type LoopState string

const (
	StateIdle            LoopState = "IDLE"
	StateReloadingConfig LoopState = "RELOADING_CONFIG"
	StateScanning        LoopState = "SCANNING"
	StateProcessingRun   LoopState = "PROCESSING_RUN"
	StateSleeping        LoopState = "SLEEPING"
	StateTerminating     LoopState = "TERMINATING"
)

// Status — снимок состояния цикла для API.
type Status struct {
	State LoopState        `json:"state"`
	Phase domain.LoopPhase `json:"phase"`

	ConfigPath string   `json:"config_path,omitempty"`
	Pipelines  []string `json:"pipelines"`

	Cycles            int64         `json:"cycles"`
	RunsProcessed     int64         `json:"runs_processed"`
	ActiveRuns        []string      `json:"active_runs"`
	LastScanStartedAt time.Time     `json:"last_scan_started_at,omitzero"`
	LastScanDuration  time.Duration `json:"last_scan_duration_ns"`
	NextScanAt        time.Time     `json:"next_scan_at,omitzero"`
}

// tracker хранит Status и защищает его мьютексом.
// Писатели — цикл и воркеры, читатель — status API.
type tracker struct {
	mu     sync.RWMutex
	status Status
	active map[string]int
}

func newTracker(configPath string) *tracker {
	return &tracker{
		status: Status{
			State:      StateIdle,
			Phase:      domain.PhaseRunning,
			ConfigPath: configPath,
		},
		active: make(map[string]int),
	}
}

func (t *tracker) setState(s LoopState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.State = s
}

func (t *tracker) setPhase(p domain.LoopPhase) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Phase = p
}

func (t *tracker) phase() domain.LoopPhase {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status.Phase
}

func (t *tracker) setPipelines(names []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Pipelines = names
}

func (t *tracker) scanStarted(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Cycles++
	t.status.LastScanStartedAt = at
	t.status.NextScanAt = time.Time{}
}

func (t *tracker) scanFinished(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.LastScanDuration = d
}

func (t *tracker) sleeping(until time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.State = StateSleeping
	t.status.NextScanAt = until
}

func (t *tracker) runStarted(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[runID]++
	t.status.State = StateProcessingRun
}

func (t *tracker) runFinished(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active[runID] <= 1 {
		delete(t.active, runID)
	} else {
		t.active[runID]--
	}
	t.status.RunsProcessed++
	if len(t.active) == 0 && t.status.State == StateProcessingRun {
		t.status.State = StateScanning
	}
}

func (t *tracker) snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := t.status
	s.Pipelines = slices.Clone(t.status.Pipelines)
	s.ActiveRuns = make([]string, 0, len(t.active))
	for id := range t.active {
		s.ActiveRuns = append(s.ActiveRuns, id)
	}
	slices.Sort(s.ActiveRuns)
	return s
}
