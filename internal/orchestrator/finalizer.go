package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/domain"
	"github.com/shaiso/autoanalysis/internal/engine"
	"github.com/shaiso/autoanalysis/internal/pipelines"
	"github.com/shaiso/autoanalysis/internal/telemetry"
)

// Finalizer убирает за завершённым stage и вызывает его post-analysis.
type Finalizer struct {
	sink telemetry.EventSink
}

// NewFinalizer создаёт Finalizer.
func NewFinalizer(sink telemetry.EventSink) *Finalizer {
	if sink == nil {
		sink = telemetry.Discard
	}
	return &Finalizer{sink: sink}
}

// Finalize удаляет work dir (если delete_work_dir) и вызывает Finalize
// handler'а.
//
// Ошибки уборки только логируются. Возвращается лишь ошибка handler'а;
// отсутствие post-analysis ошибкой не считается.
func (f *Finalizer) Finalize(ctx context.Context, cfg *config.Config, prepared *Prepared, run domain.Run) error {
	spec := prepared.Spec
	id := spec.Identity()

	f.cleanupWorkDir(ctx, cfg, spec, run)

	f.emit(ctx, run, spec, telemetry.NewEvent(telemetry.EventPostAnalysisStarted).
		With("analysis_pipeline_output_dir", prepared.Layout.OutputDir))

	var err error
	if prepared.Handler == nil {
		err = pipelines.ErrPostAnalysisNotImplemented
	} else {
		err = prepared.Handler.Finalize(ctx, &pipelines.Request{
			Config: cfg,
			Spec:   spec,
			Run:    run,
			Layout: prepared.Layout,
			Sink:   f.sink,
		})
	}
	if errors.Is(err, pipelines.ErrPostAnalysisNotImplemented) {
		f.emit(ctx, run, spec, telemetry.NewEvent(telemetry.EventPostAnalysisNotImpl).
			WithLevel(slog.LevelWarn))
		err = nil
	}

	if rmErr := removeStageRecord(cfg, run.ID, id); rmErr != nil {
		f.emit(ctx, run, spec, telemetry.NewEvent(telemetry.EventStageRecordWriteFailed).
			WithLevel(slog.LevelWarn).
			With("error", rmErr.Error()))
	}

	return err
}

func (f *Finalizer) cleanupWorkDir(ctx context.Context, cfg *config.Config, spec domain.PipelineSpec, run domain.Run) {
	workDir, ok := LocateWorkDir(cfg, run.ID, spec.Identity())
	if !ok {
		f.emit(ctx, run, spec, telemetry.NewEvent(telemetry.EventWorkDirNotFound).
			WithLevel(slog.LevelWarn))
		return
	}

	if !spec.ShouldDeleteWorkDir() {
		f.emit(ctx, run, spec, telemetry.NewEvent(telemetry.EventWorkDirDeletionSkipped).
			With("analysis_work_dir", workDir))
		return
	}

	if err := os.RemoveAll(workDir); err != nil {
		f.emit(ctx, run, spec, telemetry.NewEvent(telemetry.EventWorkDirDeleteFailed).
			WithLevel(slog.LevelError).
			With("analysis_work_dir", workDir).
			With("error", err.Error()))
		return
	}

	f.emit(ctx, run, spec, telemetry.NewEvent(telemetry.EventWorkDirDeleted).
		With("analysis_work_dir", workDir))
}

// LocateWorkDir находит work dir stage.
//
// Сначала читается запись, сохранённая при Prepare. Если записи нет или
// каталог из неё не существует, берётся последний по имени каталог,
// подходящий под шаблон work-{run_id}_{short_name}_*.
func LocateWorkDir(cfg *config.Config, runID string, id domain.PipelineIdentity) (string, bool) {
	if rec, err := readStageRecord(cfg, runID, id); err == nil && rec.WorkDir != "" {
		if info, err := os.Stat(rec.WorkDir); err == nil && info.IsDir() {
			return rec.WorkDir, true
		}
	}

	matches, err := filepath.Glob(engine.WorkDirPattern(cfg.AnalysisWorkDir, runID, id))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	slices.Sort(matches)
	for _, m := range slices.Backward(matches) {
		if info, err := os.Stat(m); err == nil && info.IsDir() {
			return m, true
		}
	}
	return "", false
}

func (f *Finalizer) emit(ctx context.Context, run domain.Run, spec domain.PipelineSpec, event telemetry.Event) {
	f.sink.Emit(ctx, event.ForRun(run.ID).ForPipeline(spec.Name))
}
