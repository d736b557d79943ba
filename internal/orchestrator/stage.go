package orchestrator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/domain"
	"github.com/shaiso/autoanalysis/internal/engine"
	"github.com/shaiso/autoanalysis/internal/execution"
	"github.com/shaiso/autoanalysis/internal/notification"
	"github.com/shaiso/autoanalysis/internal/pipelines"
	"github.com/shaiso/autoanalysis/internal/telemetry"
)

// processStage проводит один stage через Prepare → Execute → Finalize → Notify.
//
// Ошибка Execution Engine не прерывает run: finalize и уведомление для stage
// пропускаются, work dir остаётся для разбора, следующий stage проверяется
// как обычно.
func (o *Orchestrator) processStage(ctx context.Context, cfg *config.Config, eng execution.Engine, stage pipelines.Stage, run domain.Run) domain.StageOutcome {
	// Маркер уже есть: stage завершён в одном из прошлых проходов
	if engine.IsComplete(cfg, run.ID, stage.Spec.Identity()) {
		o.emitStage(ctx, run, stage.Spec, telemetry.NewEvent(telemetry.EventAnalysisSkipped).
			WithLevel(slog.LevelDebug).
			With("reason", "already_complete"))
		return domain.StageSkipped
	}

	prepared, err := o.preparer.PrepareStage(ctx, cfg, stage, run)
	switch {
	case errors.Is(err, pipelines.ErrUnsupportedPipeline):
		return domain.StageUnsupported
	case errors.Is(err, ErrSkip):
		return domain.StageSkipped
	case err != nil:
		o.emitStage(ctx, run, stage.Spec, telemetry.NewEvent(telemetry.EventAnalysisFailed).
			WithLevel(slog.LevelError).
			With("error", err.Error()))
		return domain.StageFailed
	}
	defer o.preparer.Release(run.ID, stage.Spec.Identity())

	o.emitStage(ctx, run, stage.Spec, telemetry.NewEvent(telemetry.EventAnalysisStarted).
		With("pipeline_version", stage.Spec.Version).
		With("analysis_work_dir", prepared.Layout.WorkDir).
		With("analysis_output_dir", prepared.Layout.OutputDir))

	start := o.now()
	err = eng.Execute(ctx, prepared.Spec, prepared.Layout.WorkDir)
	telemetry.StageDuration.WithLabelValues(stage.Spec.Name).Observe(o.now().Sub(start).Seconds())
	if err != nil {
		o.emitStage(ctx, run, stage.Spec, telemetry.NewEvent(telemetry.EventPipelineFailed).
			WithLevel(slog.LevelError).
			With("analysis_work_dir", prepared.Layout.WorkDir).
			With("error", err.Error()))
		return domain.StageFailed
	}

	o.emitStage(ctx, run, stage.Spec, telemetry.NewEvent(telemetry.EventPipelineComplete).
		With("analysis_output_dir", prepared.Layout.OutputDir))

	if err := o.finalizer.Finalize(ctx, cfg, prepared, run); err != nil {
		o.emitStage(ctx, run, stage.Spec, telemetry.NewEvent(telemetry.EventPostAnalysisFailed).
			WithLevel(slog.LevelError).
			With("error", err.Error()))
	}

	o.notify(ctx, cfg, run, stage.Spec, prepared.Layout.OutputDir)
	return domain.StageFinalized
}

func (o *Orchestrator) notify(ctx context.Context, cfg *config.Config, run domain.Run, spec domain.PipelineSpec, outputDir string) {
	if o.notifier == nil {
		return
	}

	err := o.notifier.Notify(ctx, outputDir, cfg)
	switch {
	case err == nil:
		o.emitStage(ctx, run, spec, telemetry.NewEvent(telemetry.EventNotificationSent).
			With("analysis_output_dir", outputDir))
	case errors.Is(err, notification.ErrNotConfigured):
		o.logger.Debug("notification not configured", "run_id", run.ID, "pipeline", spec.Name)
	default:
		telemetry.NotificationFailures.Inc()
		o.emitStage(ctx, run, spec, telemetry.NewEvent(telemetry.EventNotificationFailed).
			WithLevel(slog.LevelError).
			With("error", err.Error()))
	}
}

func (o *Orchestrator) emitStage(ctx context.Context, run domain.Run, spec domain.PipelineSpec, event telemetry.Event) {
	o.sink.Emit(ctx, event.ForRun(run.ID).ForPipeline(spec.Name))
}
