package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/domain"
	"github.com/shaiso/autoanalysis/internal/engine"
	"github.com/shaiso/autoanalysis/internal/pipelines"
	"github.com/shaiso/autoanalysis/internal/telemetry"
)

type stubHandler struct {
	name      string
	finalized int
	err       error
}

func (h *stubHandler) Name() string { return h.name }

func (h *stubHandler) Prepare(context.Context, *pipelines.Request) (map[string]any, error) {
	return map[string]any{}, nil
}

func (h *stubHandler) Finalize(context.Context, *pipelines.Request) error {
	h.finalized++
	return h.err
}

func preparedFor(t *testing.T, cfg *config.Config, spec domain.PipelineSpec, h pipelines.Handler, ts time.Time) *Prepared {
	t.Helper()
	layout := engine.NewLayout(cfg, "R1", spec.Identity(), ts)
	require.NoError(t, os.MkdirAll(layout.WorkDir, 0o755))
	require.NoError(t, writeStageRecord(cfg, StageRecord{
		RunID:    "R1",
		Pipeline: spec.Name,
		Version:  spec.Version,
		WorkDir:  layout.WorkDir,
	}))
	return &Prepared{Spec: spec, Layout: layout, Handler: h}
}

func TestFinalize_DeletesWorkDirByDefault(t *testing.T) {
	cfg := testConfig(t, specA())
	h := &stubHandler{name: pipelines.Pipeline1}
	prepared := preparedFor(t, cfg, specA(), h, clockStart)
	rec := telemetry.NewRecorder()

	require.NoError(t, NewFinalizer(rec).Finalize(context.Background(), cfg, prepared, testRun("R1")))

	assert.NoDirExists(t, prepared.Layout.WorkDir)
	assert.Len(t, rec.OfType(telemetry.EventWorkDirDeleted), 1)
	assert.Len(t, rec.OfType(telemetry.EventPostAnalysisStarted), 1)
	assert.Equal(t, 1, h.finalized)
	assert.NoFileExists(t, StageRecordPath(cfg, "R1", identA))
}

func TestFinalize_KeepsWorkDirWhenDisabled(t *testing.T) {
	cfg := testConfig(t)
	keep := false
	spec := specA()
	spec.DeleteWorkDir = &keep
	prepared := preparedFor(t, cfg, spec, &stubHandler{name: pipelines.Pipeline1}, clockStart)
	rec := telemetry.NewRecorder()

	require.NoError(t, NewFinalizer(rec).Finalize(context.Background(), cfg, prepared, testRun("R1")))

	assert.DirExists(t, prepared.Layout.WorkDir)
	assert.Len(t, rec.OfType(telemetry.EventWorkDirDeletionSkipped), 1)
	assert.Empty(t, rec.OfType(telemetry.EventWorkDirDeleted))
}

func TestFinalize_WorkDirNotFound(t *testing.T) {
	cfg := testConfig(t)
	layout := engine.NewLayout(cfg, "R1", identA, clockStart)
	rec := telemetry.NewRecorder()

	err := NewFinalizer(rec).Finalize(context.Background(), cfg,
		&Prepared{Spec: specA(), Layout: layout, Handler: &stubHandler{name: pipelines.Pipeline1}}, testRun("R1"))

	require.NoError(t, err)
	events := rec.OfType(telemetry.EventWorkDirNotFound)
	require.Len(t, events, 1)
	assert.Equal(t, "WARN", events[0].Level.String())
}

func TestFinalize_HandlerErrors(t *testing.T) {
	cfg := testConfig(t)
	boom := errors.New("archive unavailable")

	prepared := preparedFor(t, cfg, specA(), &stubHandler{name: pipelines.Pipeline1, err: boom}, clockStart)
	err := NewFinalizer(nil).Finalize(context.Background(), cfg, prepared, testRun("R1"))
	assert.ErrorIs(t, err, boom)

	rec := telemetry.NewRecorder()
	prepared = preparedFor(t, cfg, specA(),
		&stubHandler{name: pipelines.Pipeline1, err: pipelines.ErrPostAnalysisNotImplemented}, clockStart)
	require.NoError(t, NewFinalizer(rec).Finalize(context.Background(), cfg, prepared, testRun("R1")))
	assert.Len(t, rec.OfType(telemetry.EventPostAnalysisNotImpl), 1)

	rec.Reset()
	prepared = preparedFor(t, cfg, specA(), nil, clockStart)
	require.NoError(t, NewFinalizer(rec).Finalize(context.Background(), cfg, prepared, testRun("R1")))
	assert.Len(t, rec.OfType(telemetry.EventPostAnalysisNotImpl), 1)
}

// --- LocateWorkDir Tests ---

func TestLocateWorkDir_GlobFallbackPicksLatest(t *testing.T) {
	cfg := testConfig(t)
	for _, ts := range []string{"20260101000000", "20260301000000", "20260201000000"} {
		require.NoError(t, os.MkdirAll(filepath.Join(cfg.AnalysisWorkDir, "work-R1_pipeline-1_"+ts), 0o755))
	}
	// другой pipeline не должен совпасть
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.AnalysisWorkDir, "work-R1_pipeline-2_20270101000000"), 0o755))

	dir, ok := LocateWorkDir(cfg, "R1", identA)
	require.True(t, ok)
	assert.Equal(t, "work-R1_pipeline-1_20260301000000", filepath.Base(dir))
}

func TestLocateWorkDir_PrefersStageRecord(t *testing.T) {
	cfg := testConfig(t)
	older := filepath.Join(cfg.AnalysisWorkDir, "work-R1_pipeline-1_20260101000000")
	newer := filepath.Join(cfg.AnalysisWorkDir, "work-R1_pipeline-1_20260301000000")
	require.NoError(t, os.MkdirAll(older, 0o755))
	require.NoError(t, os.MkdirAll(newer, 0o755))
	require.NoError(t, writeStageRecord(cfg, StageRecord{RunID: "R1", Pipeline: identA.Name, Version: identA.Version, WorkDir: older}))

	dir, ok := LocateWorkDir(cfg, "R1", identA)
	require.True(t, ok)
	assert.Equal(t, older, dir)

	// запись указывает на удалённый каталог → поиск по шаблону
	require.NoError(t, os.RemoveAll(older))
	dir, ok = LocateWorkDir(cfg, "R1", identA)
	require.True(t, ok)
	assert.Equal(t, newer, dir)
}

func TestStageRecord_RemoveKeepsSiblings(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, writeStageRecord(cfg, StageRecord{RunID: "R1", Pipeline: identA.Name, Version: identA.Version}))
	require.NoError(t, writeStageRecord(cfg, StageRecord{RunID: "R1", Pipeline: identB.Name, Version: identB.Version}))

	require.NoError(t, removeStageRecord(cfg, "R1", identA))
	assert.FileExists(t, StageRecordPath(cfg, "R1", identB))

	require.NoError(t, removeStageRecord(cfg, "R1", identB))
	assert.NoDirExists(t, filepath.Dir(StageRecordPath(cfg, "R1", identB)))

	_, err := readStageRecord(cfg, "R1", identA)
	assert.ErrorIs(t, err, ErrStageRecordNotFound)
}
