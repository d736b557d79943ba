package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/autoanalysis/internal/engine"
	"github.com/shaiso/autoanalysis/internal/pipelines"
	"github.com/shaiso/autoanalysis/internal/telemetry"
)

type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }

var clockStart = time.Date(2026, 3, 14, 9, 26, 53, 500, time.UTC)

func TestPrepare_DependenciesIncomplete(t *testing.T) {
	cfg := testConfig(t, specA(), specB())
	rec := telemetry.NewRecorder()
	p := NewPreparer(pipelines.DefaultRegistry(nil), rec, nil)

	_, err := p.Prepare(context.Background(), cfg, specB(), testRun("R1"))

	assert.ErrorIs(t, err, ErrSkip)
	assert.NotErrorIs(t, err, pipelines.ErrUnsupportedPipeline)
	assert.Len(t, rec.OfType(telemetry.EventDependencyCheck), 1)
	assert.Len(t, rec.OfType(telemetry.EventAnalysisSkipped), 1)
	assert.NoDirExists(t, filepath.Join(cfg.AnalysisWorkDir, stageRecordDir))
}

func TestPrepare_UnsupportedPipeline(t *testing.T) {
	cfg := testConfig(t)
	rec := telemetry.NewRecorder()
	p := NewPreparer(pipelines.NewRegistry(), rec, nil)

	_, err := p.Prepare(context.Background(), cfg, specA(), testRun("R1"))

	assert.ErrorIs(t, err, ErrSkip)
	assert.ErrorIs(t, err, pipelines.ErrUnsupportedPipeline)
	assert.Len(t, rec.OfType(telemetry.EventUnsupportedPipeline), 1)
}

func TestPrepare_PopulatesParameters(t *testing.T) {
	cfg := testConfig(t, specA())
	clock := &fixedClock{t: clockStart}
	p := NewPreparer(pipelines.DefaultRegistry(nil), nil, clock.now)

	spec := specA()
	spec.Parameters = map[string]any{"sample_sheet": "{{ .Run.FastqDirectory }}/SampleSheet.csv"}

	prepared, err := p.Prepare(context.Background(), cfg, spec, testRun("R1"))
	require.NoError(t, err)

	outdir := engine.OutputDir(cfg, "R1", identA)
	workDir := filepath.Join(cfg.AnalysisWorkDir, "work-R1_pipeline-1_20260314092653")
	params := prepared.Spec.Parameters

	assert.Equal(t, "/fastq/R1/SampleSheet.csv", params["sample_sheet"])
	assert.Equal(t, "/fastq/R1", params[pipelines.ParamFastqInput])
	assert.Equal(t, "R1", params[pipelines.ParamPrefix])
	assert.Equal(t, outdir, params[pipelines.ParamOutdir])
	assert.Equal(t, workDir, params[pipelines.ParamWorkDir])
	assert.Equal(t, filepath.Join(outdir, "R1_pipeline-1_report.html"), params[pipelines.ParamReportPath])
	assert.Equal(t, filepath.Join(outdir, "R1_pipeline-1_nextflow.log"), params[pipelines.ParamLogPath])
	assert.Equal(t, workDir, prepared.Layout.WorkDir)

	// исходная спецификация не изменилась
	assert.Equal(t, map[string]any{"sample_sheet": "{{ .Run.FastqDirectory }}/SampleSheet.csv"}, spec.Parameters)

	rec, err := readStageRecord(cfg, "R1", identA)
	require.NoError(t, err)
	assert.Equal(t, workDir, rec.WorkDir)
	assert.Equal(t, outdir, rec.OutputDir)
	assert.Equal(t, pipelines.Pipeline1, rec.Pipeline)
}

func TestPrepare_DownstreamUsesUpstreamOutput(t *testing.T) {
	cfg := testConfig(t, specA(), specB())
	marker := engine.CompletionMarkerPath(cfg, "R1", identA)
	require.NoError(t, os.MkdirAll(filepath.Dir(marker), 0o755))
	require.NoError(t, os.WriteFile(marker, []byte("{}"), 0o644))

	p := NewPreparer(pipelines.DefaultRegistry(nil), nil, nil)
	prepared, err := p.Prepare(context.Background(), cfg, specB(), testRun("R1"))
	require.NoError(t, err)

	assert.Equal(t, engine.OutputDir(cfg, "R1", identA), prepared.Spec.Parameters[pipelines.ParamAnalysisDir])
	assert.Equal(t, engine.OutputDir(cfg, "R1", identB), prepared.Spec.Parameters[pipelines.ParamOutdir])
}

func TestPrepare_HandlerErrorIsNotSkip(t *testing.T) {
	cfg := testConfig(t)
	bad := specA()
	bad.Parameters = map[string]any{"label": "{{ .Nope }}"}
	p := NewPreparer(pipelines.DefaultRegistry(nil), nil, nil)

	_, err := p.Prepare(context.Background(), cfg, bad, testRun("R1"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSkip)
	assert.ErrorIs(t, err, engine.ErrTemplateRender)
}

func TestPrepare_WorkDirUniqueWithinSecond(t *testing.T) {
	cfg := testConfig(t, specA())
	clock := &fixedClock{t: clockStart}
	p := NewPreparer(pipelines.DefaultRegistry(nil), nil, clock.now)

	first, err := p.Prepare(context.Background(), cfg, specA(), testRun("R1"))
	require.NoError(t, err)
	second, err := p.Prepare(context.Background(), cfg, specA(), testRun("R1"))
	require.NoError(t, err)

	assert.NotEqual(t, first.Layout.WorkDir, second.Layout.WorkDir)
	assert.Equal(t, "work-R1_pipeline-1_20260314092654", filepath.Base(second.Layout.WorkDir))
}

func TestPrepare_WorkDirSkipsExistingDirectory(t *testing.T) {
	cfg := testConfig(t, specA())
	clock := &fixedClock{t: clockStart}
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.AnalysisWorkDir, "work-R1_pipeline-1_20260314092653"), 0o755))

	p := NewPreparer(pipelines.DefaultRegistry(nil), nil, clock.now)
	prepared, err := p.Prepare(context.Background(), cfg, specA(), testRun("R1"))
	require.NoError(t, err)
	assert.Equal(t, "work-R1_pipeline-1_20260314092654", filepath.Base(prepared.Layout.WorkDir))
}

func TestPrepare_WorkDirDistinctAcrossSeconds(t *testing.T) {
	cfg := testConfig(t, specA())
	clock := &fixedClock{t: clockStart}
	p := NewPreparer(pipelines.DefaultRegistry(nil), nil, clock.now)

	first, err := p.Prepare(context.Background(), cfg, specA(), testRun("R1"))
	require.NoError(t, err)
	clock.t = clock.t.Add(5 * time.Second)
	second, err := p.Prepare(context.Background(), cfg, specA(), testRun("R1"))
	require.NoError(t, err)

	assert.Equal(t, "work-R1_pipeline-1_20260314092658", filepath.Base(second.Layout.WorkDir))
	assert.NotEqual(t, first.Layout.WorkDir, second.Layout.WorkDir)
}

func TestPrepare_ReleaseDropsWorkDirState(t *testing.T) {
	cfg := testConfig(t, specA())
	clock := &fixedClock{t: clockStart}
	p := NewPreparer(pipelines.DefaultRegistry(nil), nil, clock.now)

	_, err := p.Prepare(context.Background(), cfg, specA(), testRun("R1"))
	require.NoError(t, err)
	_, err = p.Prepare(context.Background(), cfg, specA(), testRun("R2"))
	require.NoError(t, err)
	assert.Equal(t, 2, p.workdirs.Len())

	p.Release("R1", identA)
	assert.Equal(t, 1, p.workdirs.Len())
	p.Release("R2", identA)
	p.Release("R2", identA)
	assert.Zero(t, p.workdirs.Len())
}

func TestPrepare_HandlerErrorReleasesWorkDirState(t *testing.T) {
	cfg := testConfig(t)
	bad := specA()
	bad.Parameters = map[string]any{"label": "{{ .Nope }}"}
	p := NewPreparer(pipelines.DefaultRegistry(nil), nil, nil)

	_, err := p.Prepare(context.Background(), cfg, bad, testRun("R1"))
	require.Error(t, err)
	assert.Zero(t, p.workdirs.Len())
}

func TestPrepare_StageRecordFailureIsNotFatal(t *testing.T) {
	cfg := testConfig(t, specA())
	// файл на месте каталога .stages не даёт создать запись
	require.NoError(t, os.MkdirAll(cfg.AnalysisWorkDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.AnalysisWorkDir, stageRecordDir), nil, 0o644))

	rec := telemetry.NewRecorder()
	p := NewPreparer(pipelines.DefaultRegistry(nil), rec, nil)
	_, err := p.Prepare(context.Background(), cfg, specA(), testRun("R1"))

	require.NoError(t, err)
	assert.Len(t, rec.OfType(telemetry.EventStageRecordWriteFailed), 1)

	_, err = readStageRecord(cfg, "R1", identA)
	assert.Error(t, err)
}
